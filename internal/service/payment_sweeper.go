package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// StaleSweeper runs SweepStalePayments on a cron schedule.
type StaleSweeper struct {
	cron     *cron.Cron
	payments PaymentService
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewStaleSweeper registers the sweep under schedule, for example "@every 30m".
func NewStaleSweeper(payments PaymentService, schedule string, logger zerolog.Logger) (*StaleSweeper, error) {
	sweeper := &StaleSweeper{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		payments: payments,
		timeout:  time.Minute,
		logger:   logger.With().Str("component", "stale_payment_sweeper").Logger(),
	}

	if _, err := sweeper.cron.AddFunc(schedule, sweeper.run); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	return sweeper, nil
}

// Start begins the schedule in the background.
func (s *StaleSweeper) Start() {
	s.cron.Start()
	s.logger.Info().Msg("stale payment sweeper started")
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *StaleSweeper) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn().Msg("stale payment sweep still running at shutdown")
	}
}

func (s *StaleSweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	count, err := s.payments.SweepStalePayments(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("stale payment sweep failed")
		return
	}
	s.logger.Info().Int("stale_payments", count).Msg("stale payment sweep finished")
}
