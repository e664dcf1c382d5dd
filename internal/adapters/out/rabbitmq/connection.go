// Package rabbitmq carries partner positions between service instances over
// a RabbitMQ topic exchange, one routing key per partner.
package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	defaultDialAttempts = 10
	initialRetryDelay   = time.Second
	maxRetryDelay       = 30 * time.Second
	prefetchCount       = 10
)

// ErrChannelClosed is returned when the broker channel is gone.
var ErrChannelClosed = errors.New("rabbitmq channel is closed")

// Channel is the subset of *amqp.Channel the adapters use.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	QueueUnbind(name, key, exchange string, args amqp.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Connection owns one AMQP connection and the channel opened on it.
type Connection struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// Dial connects to url, retrying with growing delays until the broker answers,
// attempts run out or ctx is cancelled.
func Dial(ctx context.Context, url string, logger *slog.Logger) (*Connection, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "rabbitmq")

	delay := initialRetryDelay
	for attempt := 1; ; attempt++ {
		c, err := connect(url)
		if err == nil {
			logger.InfoContext(ctx, "Connected to RabbitMQ", "attempt", attempt)
			return c, nil
		}
		if attempt == defaultDialAttempts {
			return nil, fmt.Errorf("connect to rabbitmq after %d attempts: %w", attempt, err)
		}

		logger.WarnContext(ctx, "RabbitMQ connection attempt failed",
			"attempt", attempt, "retry_in", delay.String(), "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay = min(time.Duration(float64(delay)*1.5), maxRetryDelay)
	}
}

func connect(url string) (*Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.Qos(prefetchCount, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	return &Connection{conn: conn, ch: ch}, nil
}

// Channel returns the open channel.
func (c *Connection) Channel() Channel {
	return c.ch
}

// Close closes the channel and the connection.
func (c *Connection) Close() error {
	return errors.Join(c.ch.Close(), c.conn.Close())
}
