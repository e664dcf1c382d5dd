// Package jobs provides scheduled background tasks for order tracking.
//
// This package implements cron-based jobs using github.com/robfig/cron/v3.
// Each job owns one cron entry and drives the set of orders enrolled in it.
//
// # Available Jobs
//
// 1. OrderPollJob - Runs every 10 seconds and re-reads each tracked order from the store
// 2. SimulationTickJob - Runs every second and moves simulated partners along their legs
//
// # Usage
//
// Jobs are managed through JobManager, which is also the tracker.Scheduler
// reconcilers enrol in:
//
//	jobManager := jobs.NewJobManager(jobs.Schedules{}, time.Now, logger)
//	if err := jobManager.StartAll(); err != nil {
//		log.Fatal("Failed to start jobs:", err)
//	}
//	defer jobManager.StopAll()
//
// # Error Handling
//
// - Poll failures are logged and retried on the next run
// - Failed job starts will stop any already running jobs
package jobs
