// Package jobs contains the periodic operations jobs around the dispatch
// core.
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fleetops/internal/dispatch"
)

// SynthesisConfig controls the daily synthesis run.
type SynthesisConfig struct {
	// DailyHour/DailyMinute is the local wall-clock time the day's
	// confirmed schedules are materialized.
	DailyHour   int
	DailyMinute int
	// CheckInterval is how often to check if it's time to run.
	CheckInterval time.Duration
}

// DefaultSynthesisConfig runs synthesis at 04:00, checking once a minute.
func DefaultSynthesisConfig() SynthesisConfig {
	return SynthesisConfig{
		DailyHour:     4,
		DailyMinute:   0,
		CheckInterval: time.Minute,
	}
}

// SynthesisScheduler invokes trip synthesis once per day for the current
// operating date. Synthesis itself is idempotent, so an extra run after a
// restart is harmless.
type SynthesisScheduler struct {
	config   SynthesisConfig
	service  *dispatch.Service
	location *time.Location
	logger   *zerolog.Logger

	mu          sync.Mutex
	lastRunDate string // YYYY-MM-DD of last run
	running     bool
}

// NewSynthesisScheduler creates the scheduler in the given operating
// timezone.
func NewSynthesisScheduler(config SynthesisConfig, service *dispatch.Service, loc *time.Location, logger *zerolog.Logger) *SynthesisScheduler {
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	if loc == nil {
		loc = time.Local
	}
	return &SynthesisScheduler{
		config:   config,
		service:  service,
		location: loc,
		logger:   logger,
	}
}

// Start begins the scheduler loop and blocks until ctx is done.
func (s *SynthesisScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info().
		Int("hour", s.config.DailyHour).
		Int("minute", s.config.DailyMinute).
		Str("timezone", s.location.String()).
		Msg("synthesis scheduler started")

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.maybeRun(ctx, time.Now().In(s.location))
		}
	}
}

func (s *SynthesisScheduler) maybeRun(ctx context.Context, now time.Time) {
	if now.Hour() != s.config.DailyHour || now.Minute() < s.config.DailyMinute {
		return
	}

	today := now.Format("2006-01-02")
	s.mu.Lock()
	if s.lastRunDate == today {
		s.mu.Unlock()
		return
	}
	s.lastRunDate = today
	s.mu.Unlock()

	result, err := s.service.SynthesizeTrips(ctx, now)
	if err != nil {
		s.logger.Error().Err(err).Str("date", today).Msg("scheduled synthesis failed")
		return
	}
	s.logger.Info().
		Str("date", result.Date).
		Int("generated", result.Generated).
		Int("failed", result.Failed).
		Msg("scheduled synthesis completed")
}
