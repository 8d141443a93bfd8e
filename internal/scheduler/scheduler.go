package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nerrad567/ha-discovery/internal/discovery"
)

// jobTimeout bounds a single job run.
const jobTimeout = time.Minute

// Rescanner runs a discovery scan.
type Rescanner interface {
	Devices(ctx context.Context, refresh bool) ([]discovery.Device, error)
}

// Pruner deletes history older than a retention window.
type Pruner interface {
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Logger defines the logging interface used by the Scheduler.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Deps holds the scheduler's collaborators and job specs.
type Deps struct {
	Discovery      Rescanner
	RescanSchedule string

	History       Pruner
	PruneSchedule string
	Retention     time.Duration

	Logger Logger
}

// Scheduler owns a cron runner and its registered jobs.
type Scheduler struct {
	cron   *cron.Cron
	deps   Deps
	logger Logger
}

// New registers the configured jobs. It fails on an unparseable spec or a
// prune job without a positive retention.
func New(deps Deps) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(),
		deps:   deps,
		logger: deps.Logger,
	}
	if s.logger == nil {
		s.logger = noopLogger{}
	}

	if deps.Discovery != nil && deps.RescanSchedule != "" {
		if _, err := s.cron.AddFunc(deps.RescanSchedule, s.rescan); err != nil {
			return nil, fmt.Errorf("adding rescan job %q: %w", deps.RescanSchedule, err)
		}
	}

	if deps.History != nil && deps.PruneSchedule != "" {
		if deps.Retention <= 0 {
			return nil, fmt.Errorf("prune job requires a positive retention, got %s", deps.Retention)
		}
		if _, err := s.cron.AddFunc(deps.PruneSchedule, s.prune); err != nil {
			return nil, fmt.Errorf("adding prune job %q: %w", deps.PruneSchedule, err)
		}
	}

	return s, nil
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// Run starts the jobs and blocks until ctx is cancelled. Running jobs are
// allowed to finish before it returns.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", s.Jobs())

	<-ctx.Done()

	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) rescan() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	devices, err := s.deps.Discovery.Devices(ctx, true)
	switch {
	case errors.Is(err, discovery.ErrScanTimeout):
		s.logger.Warn("scheduled rescan timed out", "devices", len(devices))
	case err != nil:
		s.logger.Error("scheduled rescan failed", "error", err)
	default:
		s.logger.Info("scheduled rescan complete",
			"devices", len(devices),
			"duration", time.Since(start),
		)
	}
}

func (s *Scheduler) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.deps.History.Prune(ctx, s.deps.Retention)
	if err != nil {
		s.logger.Error("history prune failed", "error", err)
		return
	}
	s.logger.Debug("history pruned", "deleted", n, "retention", s.deps.Retention)
}
