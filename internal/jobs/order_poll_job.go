package jobs

import (
	"context"
	"log/slog"
	"time"

	"ordertrack/internal/core/application/tracker"

	"github.com/robfig/cron/v3"
)

const (
	// DefaultPollSchedule re-reads tracked orders every ten seconds.
	DefaultPollSchedule = "@every 10s"
	// DefaultPollTimeout bounds one order read.
	DefaultPollTimeout = 5 * time.Second
)

// OrderPollJob refreshes every scheduled order from the store. It covers
// missed or unavailable change notifications.
type OrderPollJob struct {
	schedule string
	timeout  time.Duration
	targets  *targetSet
	cron     *cron.Cron
	logger   *slog.Logger
}

// NewOrderPollJob creates the poller. An empty schedule uses DefaultPollSchedule.
func NewOrderPollJob(schedule string, logger *slog.Logger) *OrderPollJob {
	if schedule == "" {
		schedule = DefaultPollSchedule
	}
	return &OrderPollJob{
		schedule: schedule,
		timeout:  DefaultPollTimeout,
		targets:  newTargetSet(),
		cron:     cron.New(cron.WithSeconds()),
		logger:   logger.With("component", "order_poll_job"),
	}
}

// Add starts polling target.
func (j *OrderPollJob) Add(target tracker.Schedulable) {
	j.targets.add(target)
}

// Remove stops polling target.
func (j *OrderPollJob) Remove(target tracker.Schedulable) {
	j.targets.remove(target)
}

// Len returns the number of polled orders.
func (j *OrderPollJob) Len() int {
	return j.targets.len()
}

// Run refreshes every target once. Failures are logged and retried on the next run.
func (j *OrderPollJob) Run() {
	for _, target := range j.targets.snapshot() {
		ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
		if err := target.Refresh(ctx); err != nil {
			j.logger.ErrorContext(ctx, "Order poll failed", "order_id", target.OrderID().String(), "error", err)
		}
		cancel()
	}
}

// Start schedules Run.
func (j *OrderPollJob) Start() error {
	if _, err := j.cron.AddFunc(j.schedule, j.Run); err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "Order poll job started", "schedule", j.schedule)
	return nil
}

// Stop stops the job and waits for a running poll.
func (j *OrderPollJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.InfoContext(context.Background(), "Order poll job stopped")
}
