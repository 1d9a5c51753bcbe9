package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"contentgate/api/internal/config"
	"contentgate/api/internal/metrics"
)

const jobTimeout = 30 * time.Second

type Sweeper interface {
	ExpireSweep(ctx context.Context) (int64, error)
}

type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Scheduler runs the periodic maintenance jobs: persisting subscription expiry and
// reclaiming expired credentials. A run that is still going when the next one is due is skipped.
type Scheduler struct {
	cron    *cron.Cron
	cfg     config.JobsConfig
	sweeper Sweeper
	purger  Purger
	log     zerolog.Logger
}

func NewScheduler(cfg config.JobsConfig, sweeper Sweeper, purger Purger, log zerolog.Logger) *Scheduler {
	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	return &Scheduler{
		cron:    c,
		cfg:     cfg,
		sweeper: sweeper,
		purger:  purger,
		log:     log.With().Str("component", "scheduler").Logger(),
	}
}

func (s *Scheduler) Start() error {
	if !s.cfg.Enabled {
		s.log.Info().Msg("scheduler disabled")
		return nil
	}

	if s.sweeper != nil {
		if _, err := s.cron.AddFunc(s.cfg.ExpireSpec, s.runExpireSweep); err != nil {
			return fmt.Errorf("schedule expire sweep %q: %w", s.cfg.ExpireSpec, err)
		}
	}
	if s.purger != nil {
		if _, err := s.cron.AddFunc(s.cfg.PurgeSpec, s.runCredentialPurge); err != nil {
			return fmt.Errorf("schedule credential purge %q: %w", s.cfg.PurgeSpec, err)
		}
	}

	s.cron.Start()
	s.log.Info().Str("expire", s.cfg.ExpireSpec).Str("purge", s.cfg.PurgeSpec).Msg("scheduler started")
	return nil
}

// Stop prevents new runs and waits up to timeout for running jobs to finish.
func (s *Scheduler) Stop(timeout time.Duration) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-time.After(timeout):
		s.log.Warn().Dur("timeout", timeout).Msg("scheduler jobs still running at shutdown")
	}
}

func (s *Scheduler) runExpireSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.sweeper.ExpireSweep(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("expire sweep failed")
		return
	}
	if n > 0 {
		s.log.Info().Int64("expired", n).Msg("subscriptions expired")
	}
}

func (s *Scheduler) runCredentialPurge() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.purger.PurgeExpired(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("credential purge failed")
		return
	}
	metrics.CredentialsPurged.Add(float64(n))
	if n > 0 {
		s.log.Info().Int64("purged", n).Msg("expired credentials purged")
	}
}
