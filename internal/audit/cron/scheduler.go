package cronjob

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner removes audit entries older than a retention window.
type Pruner interface {
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

type Scheduler struct {
	cron      *cron.Cron
	pruner    Pruner
	schedule  string
	retention time.Duration
	timeout   time.Duration
}

func NewScheduler(pruner Pruner, schedule string, retention time.Duration) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithSeconds()),
		pruner:    pruner,
		schedule:  schedule,
		retention: retention,
		timeout:   2 * time.Minute,
	}
}

// Start registers the pruning job and starts the cron runner.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.RunOnce); err != nil {
		return err
	}
	slog.Info("audit retention scheduler started", "schedule", s.schedule, "retention", s.retention.String())
	s.cron.Start()
	return nil
}

// Stop waits for a running job to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// RunOnce performs a single pruning pass.
func (s *Scheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.pruner.Prune(ctx, s.retention); err != nil {
		slog.Error("audit prune failed", "error", err)
	}
}
