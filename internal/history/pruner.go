package history

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner deletes runs older than the retention period on a cron schedule.
type Pruner struct {
	store     *Store
	schedule  string
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time

	cron      *cron.Cron
	mu        sync.Mutex
	isRunning bool
}

// NewPruner creates a pruner. schedule accepts five-field cron specs and
// descriptors such as "@daily".
func NewPruner(store *Store, schedule string, retention time.Duration, logger *slog.Logger) *Pruner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{
		store:     store,
		schedule:  schedule,
		retention: retention,
		logger:    logger.With("component", "history-pruner"),
		now:       time.Now,
		cron: cron.New(cron.WithParser(cron.NewParser(
			cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
		))),
	}
}

// Start schedules the prune job. It stops when ctx is cancelled.
func (p *Pruner) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isRunning {
		return nil
	}
	if _, err := p.cron.AddFunc(p.schedule, func() {
		if _, err := p.RunOnce(context.Background()); err != nil {
			p.logger.Error("prune failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", p.schedule, err)
	}

	p.cron.Start()
	p.isRunning = true
	p.logger.Info("started", "schedule", p.schedule, "retention", p.retention)

	go func() {
		<-ctx.Done()
		p.Stop()
	}()
	return nil
}

// Stop waits for a running prune to finish and stops the schedule.
func (p *Pruner) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.isRunning {
		return
	}
	<-p.cron.Stop().Done()
	p.isRunning = false
	p.logger.Info("stopped")
}

// RunOnce deletes runs older than the retention period.
func (p *Pruner) RunOnce(ctx context.Context) (int64, error) {
	cutoff := p.now().UTC().Add(-p.retention)
	n, err := p.store.Prune(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		p.logger.Info("pruned runs", "count", n, "cutoff", cutoff)
	}
	return n, nil
}
