package jobs

import (
	"context"
	"log/slog"
	"time"

	"ordertrack/internal/core/application/tracker"

	"github.com/robfig/cron/v3"
)

// DefaultSimulationSchedule moves simulated partners once a second.
const DefaultSimulationSchedule = "@every 1s"

// SimulationTickJob advances the simulation leg of every scheduled order.
type SimulationTickJob struct {
	schedule string
	targets  *targetSet
	clock    func() time.Time
	cron     *cron.Cron
	logger   *slog.Logger
}

// NewSimulationTickJob creates the ticker. An empty schedule uses DefaultSimulationSchedule.
func NewSimulationTickJob(schedule string, clock func() time.Time, logger *slog.Logger) *SimulationTickJob {
	if schedule == "" {
		schedule = DefaultSimulationSchedule
	}
	if clock == nil {
		clock = time.Now
	}
	return &SimulationTickJob{
		schedule: schedule,
		targets:  newTargetSet(),
		clock:    clock,
		cron:     cron.New(cron.WithSeconds()),
		logger:   logger.With("component", "simulation_tick_job"),
	}
}

// Add starts ticking target.
func (j *SimulationTickJob) Add(target tracker.Schedulable) {
	j.targets.add(target)
}

// Remove stops ticking target.
func (j *SimulationTickJob) Remove(target tracker.Schedulable) {
	j.targets.remove(target)
}

// Len returns the number of ticked orders.
func (j *SimulationTickJob) Len() int {
	return j.targets.len()
}

// Run ticks every target once.
func (j *SimulationTickJob) Run() {
	now := j.clock()
	for _, target := range j.targets.snapshot() {
		target.Tick(now)
	}
}

// Start schedules Run.
func (j *SimulationTickJob) Start() error {
	if _, err := j.cron.AddFunc(j.schedule, j.Run); err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "Simulation tick job started", "schedule", j.schedule)
	return nil
}

// Stop stops the job and waits for a running tick.
func (j *SimulationTickJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.InfoContext(context.Background(), "Simulation tick job stopped")
}
