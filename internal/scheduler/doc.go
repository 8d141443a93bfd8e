// Package scheduler runs the periodic maintenance jobs: refresh scans of
// the discovery namespace and pruning of the device change history.
//
// Jobs are cron specs (robfig/cron syntax, including "@every 1h" and
// "@daily"). An empty spec disables that job.
//
//	s, err := scheduler.New(scheduler.Deps{
//	    Discovery:      svc,
//	    RescanSchedule: "@every 1h",
//	})
//	go s.Run(ctx)
package scheduler
