package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"ordertrack/internal/adapters/out/kafka"
	"ordertrack/internal/adapters/out/memory"
	"ordertrack/internal/adapters/out/postgres"
	"ordertrack/internal/adapters/out/postgres/listen"
	"ordertrack/internal/adapters/out/postgres/locationrepo"
	"ordertrack/internal/adapters/out/rabbitmq"
	"ordertrack/internal/adapters/out/routing"
	"ordertrack/internal/core/application/tracker"
	"ordertrack/internal/core/application/usecases/commands"
	"ordertrack/internal/core/ports"
	"ordertrack/internal/jobs"

	postgresdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// CompositionRoot owns every long-lived component of the service.
type CompositionRoot struct {
	Tracker *tracker.Tracker
	Jobs    *jobs.JobManager

	logger  *slog.Logger
	hub     *listen.Hub
	closers []io.Closer
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// NewCompositionRoot connects the configured adapters and wires the tracker.
func NewCompositionRoot(ctx context.Context, cfg Config, logger *slog.Logger) (*CompositionRoot, error) {
	root := &CompositionRoot{logger: logger}
	if err := root.build(ctx, cfg); err != nil {
		return nil, errors.Join(err, root.Close())
	}
	return root, nil
}

func (c *CompositionRoot) build(ctx context.Context, cfg Config) error {
	var publisher ports.OrderEventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		p, err := kafka.NewEventPublisher(cfg.KafkaBrokers, cfg.KafkaOrderChangedTopic, c.logger)
		if err != nil {
			return err
		}
		c.closers = append(c.closers, p)
		publisher = p
		c.logger.InfoContext(ctx, "Publishing order events to Kafka", "brokers", cfg.KafkaBrokers)
	}

	var (
		uowFactory  ports.UnitOfWorkFactory
		reader      ports.OrderReader
		orderFeed   ports.OrderChangeFeed
		partnerFeed ports.PartnerLocationFeed
		partnerSink ports.PartnerLocationSink
	)

	switch cfg.Store {
	case StoreMemory:
		store := memory.NewOrderStore()
		broker := memory.NewLocationBroker()
		uowFactory = memory.NewUnitOfWorkFactory(store, publisher, c.logger)
		reader, orderFeed = store, store
		partnerFeed, partnerSink = broker, broker
		c.logger.InfoContext(ctx, "Using in-memory order store")
	default:
		db, err := OpenDatabase(cfg)
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		c.closers = append(c.closers, sqlDB)
		if err = postgres.Migrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}

		hub, err := listen.NewHub(cfg.DSN(), c.logger)
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		c.hub = hub
		c.closers = append(c.closers, hub)

		uowFactory = postgres.NewGormUnitOfWorkFactory(db, publisher, c.logger)
		reader = postgres.NewOrderReader(db)
		orderFeed = hub.Orders()
		partnerFeed = hub.Partners()
		partnerSink = locationrepo.NewGormPartnerLocationSink(db, nil)
	}

	if cfg.AMQPURL != "" {
		conn, err := rabbitmq.Dial(ctx, cfg.AMQPURL, c.logger)
		if err != nil {
			return err
		}
		c.closers = append(c.closers, conn)

		sink, err := rabbitmq.NewLocationSink(conn.Channel(), cfg.AMQPExchange, nil)
		if err != nil {
			return err
		}
		// the feed lives as long as the channel; Close tears both down
		feed, err := rabbitmq.NewLocationFeed(context.WithoutCancel(ctx), conn.Channel(), cfg.AMQPExchange, c.logger)
		if err != nil {
			return err
		}
		partnerSink, partnerFeed = sink, feed
	}

	var routes ports.RouteProvider
	if cfg.OSRMURL != "" {
		routes = routing.NewOSRMProvider(cfg.OSRMURL, nil)
	}

	c.Jobs = jobs.NewJobManager(jobs.Schedules{
		Simulation: every(cfg.SimulationInterval),
		Poll:       every(cfg.PollInterval),
	}, nil, c.logger)

	registry := tracker.NewRegistry(tracker.Config{
		LegDuration:       cfg.LegDuration,
		StalenessWindow:   cfg.StalenessWindow,
		RouteTimeout:      cfg.RouteTimeout,
		SimulationEnabled: cfg.SimulationEnabled,
	}, tracker.Dependencies{
		Orders:      reader,
		OrderFeed:   orderFeed,
		PartnerFeed: partnerFeed,
		PartnerSink: partnerSink,
		Routes:      routes,
		Scheduler:   c.Jobs,
		Logger:      c.logger,
	})
	c.Tracker = tracker.NewTracker(registry, commands.OrderUoWFactoryFrom(uowFactory), reader, nil, c.logger)
	return nil
}

// Start runs the background loops until ctx is cancelled.
func (c *CompositionRoot) Start(ctx context.Context) error {
	if c.hub != nil {
		go c.hub.Run(ctx)
	}
	return c.Jobs.StartAll()
}

// Close stops the tracker and jobs, then releases connections in reverse order.
func (c *CompositionRoot) Close() error {
	if c.Tracker != nil {
		c.Tracker.Close()
	}
	if c.Jobs != nil {
		c.Jobs.StopAll()
	}

	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// OpenDatabase connects gorm to the configured postgres database.
func OpenDatabase(cfg Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgresdriver.Open(cfg.DSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}
