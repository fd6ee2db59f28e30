package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"gmcore/internal/model"
	"gmcore/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

// Enqueuer hands a persisted notification intent to the delivery workers.
type Enqueuer interface {
	EnqueueNotification(ctx context.Context, intentID uuid.UUID) error
}

// DispatchResult summarizes one dispatch pass.
type DispatchResult struct {
	Intents    int
	Duplicates int
	Skipped    int
	Errors     int
}

// NotifyService groups active alerts per location, resolves who should
// hear about them, and records one delivery intent per recipient and
// window. The idempotency key makes repeated passes over the same
// window harmless.
type NotifyService interface {
	// Dispatch considers alerts touched since the given time and
	// creates pending intents for the window containing now.
	Dispatch(ctx context.Context, since time.Time, window time.Duration) (*DispatchResult, error)
	// MarkSent and MarkFailed are called by the delivery workers.
	MarkSent(ctx context.Context, intentID uuid.UUID) error
	MarkFailed(ctx context.Context, intentID uuid.UUID, cause error) error
}

type notifyService struct {
	repo         repository.NotificationRepository
	locationRepo repository.LocationRepository
	userRepo     repository.UserRepository
	alertRepo    repository.AlertRepository
	queue        Enqueuer
	journal      ActivityService
	maxWindows   int
}

func NewNotifyService(
	repo repository.NotificationRepository,
	locationRepo repository.LocationRepository,
	userRepo repository.UserRepository,
	alertRepo repository.AlertRepository,
	queue Enqueuer,
	journal ActivityService,
	maxWindows int,
) NotifyService {
	if maxWindows <= 0 {
		maxWindows = 3
	}
	return &notifyService{
		repo:         repo,
		locationRepo: locationRepo,
		userRepo:     userRepo,
		alertRepo:    alertRepo,
		queue:        queue,
		journal:      journal,
		maxWindows:   maxWindows,
	}
}

// idempotencyKey fixes the identity of one digest: same recipient, same
// location, same window, same set of levels means the same message.
func idempotencyKey(recipientID uuid.UUID, locationID uuid.UUID, windowStart time.Time, levels []string) string {
	sorted := append([]string(nil), levels...)
	sort.Strings(sorted)
	raw := fmt.Sprintf("%s|%s|%d|%s",
		recipientID, locationID, windowStart.Unix(), strings.Join(sorted, ","))
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func (s *notifyService) Dispatch(ctx context.Context, since time.Time, window time.Duration) (*DispatchResult, error) {
	alerts, err := s.alertRepo.ListTouchedSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("notify dispatch: %w", err)
	}

	result := &DispatchResult{}
	if len(alerts) == 0 {
		return result, nil
	}

	windowStart := time.Now().UTC().Truncate(window)

	// Group the batch by location so each recipient gets one digest per
	// location, not one mail per alert.
	byLocation := map[uuid.UUID][]model.LowStockAlert{}
	for _, a := range alerts {
		if a.Status != model.AlertActive || a.Item == nil {
			continue
		}
		byLocation[a.Item.LocationID] = append(byLocation[a.Item.LocationID], a)
	}

	for locationID, group := range byLocation {
		recipients, err := s.resolveRecipients(ctx, locationID)
		if err != nil {
			result.Errors++
			log.Error().Err(err).Str("location_id", locationID.String()).Msg("notify dispatch: recipients")
			continue
		}
		if len(recipients) == 0 {
			result.Skipped++
			log.Warn().Str("location_id", locationID.String()).Msg("notify dispatch: no deliverable recipients")
			continue
		}

		levels := levelSet(group)
		payload := buildPayload(locationID, group)

		for _, r := range recipients {
			intent := &model.NotificationIntent{
				RecipientID:    r.ID,
				LocationID:     locationID,
				WindowStart:    windowStart,
				IdempotencyKey: idempotencyKey(r.ID, locationID, windowStart, levels),
				Payload:        payload,
				Status:         model.IntentPending,
			}
			inserted, err := s.repo.CreateIfAbsent(ctx, intent)
			if err != nil {
				result.Errors++
				log.Error().Err(err).Str("recipient_id", r.ID.String()).Msg("notify dispatch: intent")
				continue
			}
			if !inserted {
				result.Duplicates++
				continue
			}
			result.Intents++
			if err := s.queue.EnqueueNotification(ctx, intent.ID); err != nil {
				// Intent stays pending; the redelivery scan picks it up.
				log.Error().Err(err).Str("intent_id", intent.ID.String()).Msg("notify dispatch: enqueue")
			}
		}
	}

	log.Info().
		Int("intents", result.Intents).
		Int("duplicates", result.Duplicates).
		Int("skipped", result.Skipped).
		Int("errors", result.Errors).
		Msg("notify dispatch completed")
	return result, nil
}

// resolveRecipients picks who hears about a location's alerts: the
// location manager, actively assigned staff, and every active admin.
// Users without an email address are dropped.
func (s *notifyService) resolveRecipients(ctx context.Context, locationID uuid.UUID) ([]model.User, error) {
	seen := map[uuid.UUID]bool{}
	var recipients []model.User

	add := func(u *model.User) {
		if u == nil || seen[u.ID] || !u.Notifiable() {
			return
		}
		seen[u.ID] = true
		recipients = append(recipients, *u)
	}

	location, err := s.locationRepo.FindByID(ctx, locationID)
	if err != nil {
		return nil, err
	}
	if location.ManagerID != nil {
		if manager, err := s.userRepo.FindByID(ctx, *location.ManagerID); err == nil {
			add(manager)
		}
	}

	assignments, err := s.locationRepo.ListActiveAssignmentsByLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}
	for i := range assignments {
		add(assignments[i].Staff)
	}

	admins, err := s.userRepo.ListActiveAdmins(ctx)
	if err != nil {
		return nil, err
	}
	for i := range admins {
		add(&admins[i])
	}
	return recipients, nil
}

func levelSet(alerts []model.LowStockAlert) []string {
	seen := map[string]bool{}
	var levels []string
	for _, a := range alerts {
		if !seen[a.Level] {
			seen[a.Level] = true
			levels = append(levels, a.Level)
		}
	}
	return levels
}

func buildPayload(locationID uuid.UUID, alerts []model.LowStockAlert) datatypes.JSONMap {
	items := make([]any, 0, len(alerts))
	for _, a := range alerts {
		items = append(items, map[string]any{
			"alert_id":      a.ID.String(),
			"item_id":       a.ItemID.String(),
			"level":         a.Level,
			"current_stock": a.CurrentStock,
			"reorder_point": a.ReorderPoint,
		})
	}
	return datatypes.JSONMap{
		"location_id": locationID.String(),
		"alert_count": len(alerts),
		"alerts":      items,
	}
}

func (s *notifyService) MarkSent(ctx context.Context, intentID uuid.UUID) error {
	intent, err := s.repo.FindByID(ctx, intentID)
	if err != nil {
		return fmt.Errorf("intent %s: %w", intentID, ErrNotFound)
	}
	now := time.Now().UTC()
	intent.Status = model.IntentSent
	intent.SentAt = &now
	return s.repo.Save(ctx, intent)
}

func (s *notifyService) MarkFailed(ctx context.Context, intentID uuid.UUID, cause error) error {
	intent, err := s.repo.FindByID(ctx, intentID)
	if err != nil {
		return fmt.Errorf("intent %s: %w", intentID, ErrNotFound)
	}
	intent.Attempts++
	msg := cause.Error()
	intent.LastError = &msg
	if intent.Attempts >= s.maxWindows {
		intent.Status = model.IntentGaveUp
		log.Warn().
			Str("intent_id", intentID.String()).
			Int("attempts", intent.Attempts).
			Msg("notification gave up")
		s.raiseGiveUpAlert(ctx, intent, cause)
	} else {
		intent.Status = model.IntentFailed
	}
	return s.repo.Save(ctx, intent)
}

// raiseGiveUpAlert journals an exhausted intent so it surfaces in the
// admin activity feed.
func (s *notifyService) raiseGiveUpAlert(ctx context.Context, intent *model.NotificationIntent, cause error) {
	if s.journal == nil {
		return
	}
	_ = s.journal.Record(ctx, RecordInput{
		Type:         "notification",
		Action:       "delivery_gave_up",
		Category:     "system",
		Success:      false,
		ErrorMessage: cause.Error(),
		Metadata: map[string]any{
			"intent_id":    intent.ID.String(),
			"recipient_id": intent.RecipientID.String(),
			"location_id":  intent.LocationID.String(),
			"attempts":     intent.Attempts,
		},
	})
}
