package worker

// scheduler.go
// Single in-process scheduler driving the periodic maintenance steps:
// alert sweep, notification dispatch, key rotation, usage rollups, and
// session timeouts. A Redis lock keeps the steps single-flight when
// several instances run.

import (
	"context"
	"time"

	"gmcore/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	schedulerLockKey = "lock:scheduler"
	retentionDays    = 30
)

// SchedulerConfig holds all dependencies for the scheduler goroutine.
type SchedulerConfig struct {
	Keyring     service.KeyringService
	Alerts      service.AlertService
	Notify      service.NotifyService
	Usage       service.UsageService
	Activity    service.ActivityService
	RDB         *redis.Client
	Interval    time.Duration
	IdleTimeout time.Duration
}

// Scheduler owns the tick state. Each step is independently idempotent; a
// step failure is logged and never blocks the following steps or ticks.
type Scheduler struct {
	cfg      SchedulerConfig
	lastTick time.Time
	lastDay  time.Time
}

func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 2 * time.Hour
	}
	now := time.Now().UTC()
	return &Scheduler{
		cfg:      cfg,
		lastTick: now,
		lastDay:  now.Truncate(24 * time.Hour),
	}
}

// Start launches the tick loop. It respects the context for graceful
// shutdown and runs one pass immediately on startup.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()

		log.Info().Dur("interval", s.cfg.Interval).Msg("scheduler: started")
		s.RunOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("scheduler: shutting down")
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()
}

// RunOnce executes one full pass. A late tick covers the elapsed
// wall-clock interval since the previous pass, not a fixed delta.
func (s *Scheduler) RunOnce(ctx context.Context) {
	if !s.acquireLock(ctx) {
		log.Debug().Msg("scheduler: another instance holds the lock, skipping tick")
		return
	}
	defer s.releaseLock(ctx)
	s.runSteps(ctx)
}

func (s *Scheduler) runSteps(ctx context.Context) {
	now := time.Now().UTC()
	since := s.lastTick

	s.step("alert sweep", func() error {
		_, err := s.cfg.Alerts.Sweep(ctx)
		return err
	})

	s.step("notification dispatch", func() error {
		_, err := s.cfg.Notify.Dispatch(ctx, since, s.cfg.Interval)
		return err
	})

	s.step("key rotation", func() error {
		rotated, err := s.cfg.Keyring.RotateExpired(ctx)
		if len(rotated) > 0 {
			log.Info().Strs("kinds", rotated).Msg("scheduler: rotated expired keys")
		}
		return err
	})

	s.step("hourly rollup", func() error {
		// Roll every hour the elapsed interval touched, so a missed tick
		// backfills rather than skips.
		for h := since.Truncate(time.Hour); !h.After(now); h = h.Add(time.Hour) {
			if _, err := s.cfg.Usage.RollupHour(ctx, h); err != nil {
				return err
			}
		}
		return nil
	})

	s.step("idle sessions", func() error {
		_, err := s.cfg.Activity.CloseIdleSessions(ctx, s.cfg.IdleTimeout)
		return err
	})

	// Day boundary: finalize yesterday's bucket and purge settled alerts
	// past retention.
	today := now.Truncate(24 * time.Hour)
	if today.After(s.lastDay) {
		s.step("daily rollup", func() error {
			_, err := s.cfg.Usage.RollupDay(ctx, s.lastDay)
			return err
		})
		s.step("alert purge", func() error {
			purged, err := s.cfg.Alerts.PurgeSettled(ctx, retentionDays*24*time.Hour)
			if purged > 0 {
				log.Info().Int64("purged", purged).Msg("scheduler: settled alerts purged")
			}
			return err
		})
		s.lastDay = today
	}

	s.lastTick = now
}

func (s *Scheduler) step(name string, fn func() error) {
	started := time.Now()
	if err := fn(); err != nil {
		log.Error().Err(err).Str("step", name).Msg("scheduler: step failed")
		return
	}
	log.Debug().Str("step", name).Dur("took", time.Since(started)).Msg("scheduler: step done")
}

// acquireLock takes the singleton lock for roughly one interval. SETNX
// with TTL: a crashed holder frees the lock by expiry.
func (s *Scheduler) acquireLock(ctx context.Context) bool {
	ttl := s.cfg.Interval - time.Second
	if ttl < time.Second {
		ttl = time.Second
	}
	ok, err := s.cfg.RDB.SetNX(ctx, schedulerLockKey, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		log.Error().Err(err).Msg("scheduler: lock acquire failed")
		return false
	}
	return ok
}

func (s *Scheduler) releaseLock(ctx context.Context) {
	if err := s.cfg.RDB.Del(ctx, schedulerLockKey).Err(); err != nil {
		log.Warn().Err(err).Msg("scheduler: lock release failed")
	}
}
