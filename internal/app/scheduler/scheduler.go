// Package scheduler runs the engine's periodic jobs.
//
// The engine is passive: campaigns only change state when a caller invokes
// the completion check, and stakes only accrue when compounded. The
// scheduler is that caller — a cron-driven deadline sweep and compounding
// tick. Both jobs are idempotent, so overlapping or missed runs are
// harmless.
package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/fundra-network/fundra/internal/app/engine"
)

// Config holds the cron expressions for the periodic jobs.
type Config struct {
	SweepSpec    string `toml:"sweep_spec"`
	CompoundSpec string `toml:"compound_spec"`
}

// DefaultConfig sweeps deadlines every minute and compounds hourly.
// Compounding more often than the pool's period is a no-op by design.
func DefaultConfig() Config {
	return Config{
		SweepSpec:    "@every 1m",
		CompoundSpec: "@every 1h",
	}
}

// Scheduler owns the cron runner.
type Scheduler struct {
	cron *cron.Cron
	eng  *engine.Engine
	log  zerolog.Logger
}

// New registers the jobs. Invalid cron specs fail here, not at runtime.
func New(cfg Config, eng *engine.Engine, log zerolog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron: cron.New(),
		eng:  eng,
		log:  log,
	}

	if _, err := s.cron.AddFunc(cfg.SweepSpec, s.sweep); err != nil {
		return nil, err
	}
	if _, err := s.cron.AddFunc(cfg.CompoundSpec, s.compound); err != nil {
		return nil, err
	}
	return s, nil
}

// Start launches the cron runner in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop halts scheduling and waits for running jobs to finish, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
	}
	s.log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) sweep() {
	if n := s.eng.SweepDeadlines(); n > 0 {
		s.log.Info().Int("transitions", n).Msg("deadline sweep applied transitions")
	}
}

func (s *Scheduler) compound() {
	stakes, total := s.eng.CompoundAll()
	if stakes > 0 {
		s.log.Info().Int("stakes", stakes).Int64("yield", total).Msg("compounding tick accrued yield")
	}
}
