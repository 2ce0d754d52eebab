package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bulletin_scraper/internal/service"
)

const (
	DefaultInterval   = 24 * time.Hour
	DefaultRunTimeout = 5 * time.Minute
)

// Config controls when scheduled runs happen. When DailyAt ("15:04") is set
// it wins over Interval and runs fire once a day at that time in Location.
type Config struct {
	Interval          time.Duration
	DailyAt           string
	Location          *time.Location
	MaxItems          int
	GenerateHeadlines bool
	RunTimeout        time.Duration
}

type Scheduler struct {
	runner service.Runner
	cfg    Config
	daily  bool
	hour   int
	minute int
	now    func() time.Time
	logger *slog.Logger
}

func NewScheduler(runner service.Runner, cfg Config, logger *slog.Logger) (*Scheduler, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = DefaultRunTimeout
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	s := &Scheduler{
		runner: runner,
		cfg:    cfg,
		now:    time.Now,
		logger: logger.With("component", "scheduler"),
	}

	if cfg.DailyAt != "" {
		at, err := time.Parse("15:04", cfg.DailyAt)
		if err != nil {
			return nil, fmt.Errorf("parse daily_at %q: %w", cfg.DailyAt, err)
		}
		s.daily = true
		s.hour, s.minute = at.Hour(), at.Minute()
	}

	return s, nil
}

// Start blocks until ctx is done. In interval mode the first run happens
// immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.daily {
		s.logger.Info("scheduler started", "daily_at", s.cfg.DailyAt, "timezone", s.cfg.Location.String())
	} else {
		s.logger.Info("scheduler started", "interval", s.cfg.Interval)
		s.runOnce(ctx)
	}

	for {
		now := s.now()
		next := s.next(now)
		s.logger.Debug("next scheduled run", "at", next)

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-timer.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) next(now time.Time) time.Time {
	if !s.daily {
		return now.Add(s.cfg.Interval)
	}

	local := now.In(s.cfg.Location)
	at := time.Date(local.Year(), local.Month(), local.Day(), s.hour, s.minute, 0, 0, s.cfg.Location)
	if !at.After(local) {
		at = time.Date(local.Year(), local.Month(), local.Day()+1, s.hour, s.minute, 0, 0, s.cfg.Location)
	}
	return at
}

func (s *Scheduler) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
	defer cancel()

	_, err := s.runner.Run(runCtx, service.RunRequest{
		MaxItems:          s.cfg.MaxItems,
		GenerateHeadlines: s.cfg.GenerateHeadlines,
	})
	switch {
	case errors.Is(err, service.ErrRunInProgress):
		s.logger.Warn("skipping scheduled run, another run is active")
	case err != nil:
		s.logger.Error("scheduled run failed", "error", err)
	}
}
