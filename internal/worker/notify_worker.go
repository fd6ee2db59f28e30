package worker

// notify_worker.go
// Delivers low-stock alert digests from QueueNotify. Each job references a
// NotificationIntent row; the worker renders the digest, sends it through
// the circuit breaker, and records the outcome on the intent.

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gmcore/internal/infra"
	"gmcore/internal/model"
	"gmcore/internal/repository"
	"gmcore/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Transport sends one rendered notification. Satisfied by infra.Mailer.
type Transport interface {
	Send(to, subject, body string) error
}

// NotifyWorker processes delivery jobs from QueueNotify.
type NotifyWorker struct {
	repo      repository.NotificationRepository
	notifySvc service.NotifyService
	transport Transport
	cb        *infra.CircuitBreaker
	rdb       *redis.Client
}

func NewNotifyWorker(
	repo repository.NotificationRepository,
	notifySvc service.NotifyService,
	transport Transport,
	cb *infra.CircuitBreaker,
	rdb *redis.Client,
) *NotifyWorker {
	return &NotifyWorker{repo: repo, notifySvc: notifySvc, transport: transport, cb: cb, rdb: rdb}
}

// Process delivers one intent. Already-settled intents are skipped, so a
// duplicate queue entry is harmless.
func (w *NotifyWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload NotifyJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("notify_worker: invalid payload")
		return
	}

	intent, err := w.repo.FindByID(ctx, payload.IntentID)
	if err != nil {
		log.Error().Err(err).Str("intent_id", payload.IntentID.String()).Msg("notify_worker: intent not found")
		return
	}
	if intent.Status == model.IntentSent || intent.Status == model.IntentGaveUp {
		return
	}
	if intent.Recipient == nil || intent.Recipient.Email == nil {
		log.Warn().Str("intent_id", intent.ID.String()).Msg("notify_worker: recipient not deliverable")
		_ = w.notifySvc.MarkFailed(ctx, intent.ID, fmt.Errorf("recipient has no email"))
		return
	}

	subject, body := renderDigest(intent)
	sendErr := w.cb.Execute(func() error {
		return w.transport.Send(*intent.Recipient.Email, subject, body)
	})
	if sendErr != nil {
		log.Error().Err(sendErr).Str("intent_id", intent.ID.String()).Msg("notify_worker: delivery failed")
		if err := w.notifySvc.MarkFailed(ctx, intent.ID, sendErr); err != nil {
			log.Error().Err(err).Str("intent_id", intent.ID.String()).Msg("notify_worker: mark failed")
			return
		}
		// Reload to see whether the intent just gave up.
		if updated, err := w.repo.FindByID(ctx, intent.ID); err == nil && updated.Status == model.IntentGaveUp {
			SendToDLQ(ctx, w.rdb, QueueNotify, "notify", raw,
				fmt.Sprintf("delivery windows exhausted: %s", sendErr), updated.Attempts)
		}
		return
	}

	if err := w.notifySvc.MarkSent(ctx, intent.ID); err != nil {
		log.Error().Err(err).Str("intent_id", intent.ID.String()).Msg("notify_worker: mark sent")
		return
	}
	log.Info().
		Str("intent_id", intent.ID.String()).
		Str("to", *intent.Recipient.Email).
		Msg("notify_worker: digest delivered")
}

// renderDigest builds the plain-text alert digest from the intent payload.
func renderDigest(intent *model.NotificationIntent) (subject, body string) {
	locationName := intent.LocationID.String()
	if intent.Location != nil {
		locationName = intent.Location.Name
	}

	count := 0
	if v, ok := intent.Payload["alert_count"].(float64); ok {
		count = int(v)
	}
	subject = fmt.Sprintf("Stock alerts for %s (%d items)", locationName, count)

	var b strings.Builder
	fmt.Fprintf(&b, "Low stock report for %s\nWindow starting %s\n\n",
		locationName, intent.WindowStart.Format("2006-01-02 15:04 UTC"))

	if alerts, ok := intent.Payload["alerts"].([]any); ok {
		lines := make([]string, 0, len(alerts))
		for _, raw := range alerts {
			a, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			level, _ := a["level"].(string)
			item, _ := a["item_id"].(string)
			stock, _ := a["current_stock"].(float64)
			reorder, _ := a["reorder_point"].(float64)
			lines = append(lines, fmt.Sprintf("  [%s] item %s: %d on hand (reorder at %d)",
				strings.ToUpper(level), item, int(stock), int(reorder)))
		}
		sort.Strings(lines)
		b.WriteString(strings.Join(lines, "\n"))
		b.WriteString("\n")
	}
	return subject, b.String()
}
