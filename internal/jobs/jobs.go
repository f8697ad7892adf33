// Package jobs runs the periodic maintenance sweeps of the exam engine.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mind-engage/examengine/internal/alert"
)

const batchSize = 100

// Sweeper is the part of the engine the jobs drive.
type Sweeper interface {
	SweepExpired(ctx context.Context, limit int) (int, error)
	SweepUnreconciled(ctx context.Context, minAge time.Duration, limit int) (int, error)
}

type Config struct {
	ExpirySweepSpec      string // empty disables
	ReconcileRetrySpec   string // empty disables
	ReconcileRetryMinAge time.Duration
	RunTimeout           time.Duration
}

type Scheduler struct {
	c   *cron.Cron
	sw  Sweeper
	cfg Config
	log alert.Logger
}

func New(sw Sweeper, cfg Config, log alert.Logger) (*Scheduler, error) {
	if log == nil {
		log = alert.Nop{}
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 2 * time.Minute
	}
	s := &Scheduler{
		c:   cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger))),
		sw:  sw,
		cfg: cfg,
		log: log,
	}
	if cfg.ExpirySweepSpec != "" {
		if _, err := s.c.AddFunc(cfg.ExpirySweepSpec, func() { s.ExpirySweep(context.Background()) }); err != nil {
			return nil, fmt.Errorf("expiry sweep spec %q: %w", cfg.ExpirySweepSpec, err)
		}
	}
	if cfg.ReconcileRetrySpec != "" {
		if _, err := s.c.AddFunc(cfg.ReconcileRetrySpec, func() { s.ReconcileRetry(context.Background()) }); err != nil {
			return nil, fmt.Errorf("reconcile retry spec %q: %w", cfg.ReconcileRetrySpec, err)
		}
	}
	return s, nil
}

// Jobs reports how many jobs are scheduled.
func (s *Scheduler) Jobs() int { return len(s.c.Entries()) }

func (s *Scheduler) Start() { s.c.Start() }

// Stop halts scheduling and waits for running jobs or ctx, whichever ends first.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.c.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// ExpirySweep auto-submits sessions whose deadline has passed.
func (s *Scheduler) ExpirySweep(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
	defer cancel()
	n, err := s.sw.SweepExpired(ctx, batchSize)
	if err != nil {
		s.log.Error("expiry sweep failed", err, alert.Fields{"closed": n})
	} else if n > 0 {
		s.log.Info("expiry sweep", alert.Fields{"closed": n})
	}
	return n
}

// ReconcileRetry pushes grades whose ledger write failed or never finished.
func (s *Scheduler) ReconcileRetry(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
	defer cancel()
	n, err := s.sw.SweepUnreconciled(ctx, s.cfg.ReconcileRetryMinAge, batchSize)
	if err != nil {
		s.log.Error("reconcile retry failed", err, alert.Fields{"reconciled": n})
	} else if n > 0 {
		s.log.Info("reconcile retry", alert.Fields{"reconciled": n})
	}
	return n
}
