package jobs

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ordertrack/internal/core/application/tracker"
)

// JobManager coordinates all scheduled jobs in the application.
// Provides a unified interface to start and stop all background jobs and
// implements tracker.Scheduler so reconcilers can enrol their orders.
type JobManager struct {
	simulationJob *SimulationTickJob
	pollJob       *OrderPollJob
}

// Schedules configures the cron specs of the jobs. Empty values take the defaults.
type Schedules struct {
	Simulation string
	Poll       string
}

// NewJobManager creates a new job manager with all required jobs.
func NewJobManager(schedules Schedules, clock func() time.Time, logger *slog.Logger) *JobManager {
	return &JobManager{
		simulationJob: NewSimulationTickJob(schedules.Simulation, clock, logger),
		pollJob:       NewOrderPollJob(schedules.Poll, logger),
	}
}

// StartAll starts all scheduled jobs.
// Returns an error if any job fails to start.
func (jm *JobManager) StartAll() error {
	if err := jm.pollJob.Start(); err != nil {
		return fmt.Errorf("failed to start order poll job: %w", err)
	}

	if err := jm.simulationJob.Start(); err != nil {
		// Stop already started jobs if this one fails
		jm.pollJob.Stop()
		return fmt.Errorf("failed to start simulation tick job: %w", err)
	}

	return nil
}

// StopAll stops all scheduled jobs gracefully.
func (jm *JobManager) StopAll() {
	jm.simulationJob.Stop()
	jm.pollJob.Stop()
}

// Schedule enrols target in the poll job, and in the simulation job when simulate is set.
func (jm *JobManager) Schedule(target tracker.Schedulable, simulate bool) (func(), error) {
	jm.pollJob.Add(target)
	if simulate {
		jm.simulationJob.Add(target)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			jm.pollJob.Remove(target)
			jm.simulationJob.Remove(target)
		})
	}, nil
}

// Scheduled returns how many orders are polled and how many are simulated.
func (jm *JobManager) Scheduled() (polled, simulated int) {
	return jm.pollJob.Len(), jm.simulationJob.Len()
}

var _ tracker.Scheduler = (*JobManager)(nil)
