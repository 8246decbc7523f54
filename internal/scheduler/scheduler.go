package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/weather-bands-dashboard/internal/logger"
)

// Refresher reloads the cached history of a station.
type Refresher interface {
	Refresh(ctx context.Context, stationID string) error
}

// Sweeper drops idle dashboard sessions.
type Sweeper interface {
	Sweep() int
}

// Config holds the job intervals. A zero interval disables its job.
type Config struct {
	RefreshInterval time.Duration
	RefreshTimeout  time.Duration
	SweepInterval   time.Duration
	// Parallelism bounds concurrent station refreshes.
	Parallelism int
}

// Scheduler periodically warms the observation cache for the configured
// stations and sweeps idle sessions.
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresher Refresher
	sweeper   Sweeper
	stations  []string
	cfg       Config
	log       logger.Logger
}

// New creates a new Scheduler.
func New(stations []string, refresher Refresher, sweeper Sweeper, cfg Config, log logger.Logger) *Scheduler {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 2
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = 2 * time.Minute
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		refresher: refresher,
		sweeper:   sweeper,
		stations:  stations,
		cfg:       cfg,
		log:       logger.Component(log, "scheduler"),
	}
}

// Start schedules the periodic jobs and starts the underlying scheduler. The
// warm-up job runs once immediately.
func (s *Scheduler) Start() error {
	if s.cfg.RefreshInterval > 0 && len(s.stations) > 0 {
		_, err := s.scheduler.Every(s.cfg.RefreshInterval).SingletonMode().Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RefreshTimeout)
			defer cancel()
			s.Warm(ctx)
		})
		if err != nil {
			return err
		}
	} else {
		s.log.Info("no stations or refresh interval configured; cache warm-up disabled")
	}

	if s.cfg.SweepInterval > 0 && s.sweeper != nil {
		_, err := s.scheduler.Every(s.cfg.SweepInterval).WaitForSchedule().Do(func() {
			if n := s.sweeper.Sweep(); n > 0 {
				s.log.Infof("removed %d idle sessions", n)
			}
		})
		if err != nil {
			return err
		}
	}

	s.scheduler.StartAsync()
	return nil
}

// Warm refreshes every configured station and returns the number of failures.
// Failures are logged; one station failing does not stop the others.
func (s *Scheduler) Warm(ctx context.Context) int {
	s.log.Info("running cache warm-up job")

	failures := make([]bool, len(s.stations))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Parallelism)

	for i, id := range s.stations {
		i, id := i, id
		g.Go(func() error {
			if err := s.refresher.Refresh(gctx, id); err != nil {
				s.log.Warnf("warm-up failed for station %s: %v", id, err)
				failures[i] = true
			}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, f := range failures {
		if f {
			failed++
		}
	}
	s.log.Infof("completed cache warm-up job: %d stations, %d failed", len(s.stations), failed)
	return failed
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
