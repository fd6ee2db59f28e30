package worker

// retry_cron.go
// Background goroutine that re-enqueues failed notification intents still
// under the attempt cap, at most once per dispatch window. Uses the
// circuit breaker state to avoid hammering a downed transport.

import (
	"context"
	"time"

	"gmcore/internal/infra"
	"gmcore/internal/repository"

	"github.com/rs/zerolog/log"
)

const retryTickInterval = 5 * time.Minute

// RetryCronConfig holds all dependencies for the retry goroutine.
type RetryCronConfig struct {
	NotificationRepo repository.NotificationRepository
	Dispatcher       *Dispatcher
	CB               *infra.CircuitBreaker
	MaxAttempts      int
	// Window is the dispatch window length; an intent that failed in the
	// current window is not retried before the next one starts.
	Window time.Duration
}

// StartRetryCron launches a background goroutine that periodically
// re-enqueues failed deliveries. It respects the context for graceful
// shutdown.
func StartRetryCron(ctx context.Context, cfg RetryCronConfig) {
	go func() {
		ticker := time.NewTicker(retryTickInterval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				processRetries(ctx, cfg)
			}
		}
	}()
}

func processRetries(ctx context.Context, cfg RetryCronConfig) {
	// If CB is open, skip entirely — the transport is still down.
	if cfg.CB.State() == infra.CBOpen {
		log.Debug().Msg("retry_cron: circuit breaker is open, skipping tick")
		return
	}

	windowStart := time.Now().UTC().Truncate(cfg.Window)
	intents, err := cfg.NotificationRepo.ListRedeliverable(ctx, cfg.MaxAttempts, windowStart)
	if err != nil {
		log.Error().Err(err).Msg("retry_cron: failed to query redeliverable intents")
		return
	}
	if len(intents) == 0 {
		return
	}

	log.Info().Int("count", len(intents)).Msg("retry_cron: re-enqueueing failed deliveries")
	for i := range intents {
		if err := cfg.Dispatcher.EnqueueNotification(ctx, intents[i].ID); err != nil {
			log.Error().Err(err).Str("intent_id", intents[i].ID.String()).Msg("retry_cron: enqueue failed")
		}
	}
}
