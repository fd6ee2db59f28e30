package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gmcore/internal/model"
	"gmcore/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// SweepResult summarizes one alert sweep pass.
type SweepResult struct {
	Created  int
	Updated  int
	Resolved int
	Errors   int
}

// AlertService derives low/critical/out-of-stock alerts from the ledger.
// The sweep is idempotent and safe to run concurrently with mutations:
// duplicate active alerts are prevented by the partial unique index on
// (item_id) WHERE status='active'.
type AlertService interface {
	// Sweep walks all active items and reconciles their alert state.
	// Per-item errors are recorded and skipped; a bad row never halts
	// the pass.
	Sweep(ctx context.Context) (*SweepResult, error)
	// SweepItem reconciles one item inside its own transaction.
	SweepItem(ctx context.Context, itemID uuid.UUID) (created, updated, resolved bool, err error)
	ListActive(ctx context.Context, filter repository.AlertFilter) ([]model.LowStockAlert, error)
	// ListActiveForStaff scopes active alerts to the staff member's
	// assigned locations.
	ListActiveForStaff(ctx context.Context, staffID uuid.UUID) ([]model.LowStockAlert, error)
	Acknowledge(ctx context.Context, alertID, userID uuid.UUID) error
	Resolve(ctx context.Context, alertID, userID uuid.UUID) error
	// PurgeSettled removes resolved/acknowledged alerts older than the
	// retention window.
	PurgeSettled(ctx context.Context, olderThan time.Duration) (int64, error)
}

type alertService struct {
	repo          repository.AlertRepository
	inventoryRepo repository.InventoryRepository
	locationRepo  repository.LocationRepository
	// criticalBelow is the available-stock bound under which an alert
	// escalates to critical.
	criticalBelow int
}

func NewAlertService(
	repo repository.AlertRepository,
	inventoryRepo repository.InventoryRepository,
	locationRepo repository.LocationRepository,
	criticalBelow int,
) AlertService {
	if criticalBelow <= 0 {
		criticalBelow = 2
	}
	return &alertService{
		repo:          repo,
		inventoryRepo: inventoryRepo,
		locationRepo:  locationRepo,
		criticalBelow: criticalBelow,
	}
}

// levelFor computes the derived severity for an item, or "" when stock is ok.
func (s *alertService) levelFor(item *model.InventoryItem) string {
	available := item.AvailableStock()
	switch {
	case available <= 0:
		return model.AlertLevelOutOfStock
	case available < s.criticalBelow:
		return model.AlertLevelCritical
	case available <= item.ReorderPoint:
		return model.AlertLevelLow
	default:
		return ""
	}
}

// ── Sweep ────────────────────────────────────────────────────────────────────

func (s *alertService) Sweep(ctx context.Context) (*SweepResult, error) {
	ids, err := s.inventoryRepo.ListActiveIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("alert sweep: list items: %w", err)
	}

	result := &SweepResult{}
	for _, id := range ids {
		// Cooperative stop between items; each item op is atomic so a
		// partial sweep leaves a valid state.
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		created, updated, resolved, err := s.SweepItem(ctx, id)
		if err != nil {
			result.Errors++
			log.Error().Err(err).Str("item_id", id.String()).Msg("alert sweep: item failed")
			continue
		}
		if created {
			result.Created++
		}
		if updated {
			result.Updated++
		}
		if resolved {
			result.Resolved++
		}
	}

	log.Info().
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("resolved", result.Resolved).
		Int("errors", result.Errors).
		Msg("alert sweep completed")
	return result, nil
}

func (s *alertService) SweepItem(ctx context.Context, itemID uuid.UUID) (created, updated, resolved bool, err error) {
	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		item, err := s.inventoryRepo.FindByIDForUpdate(tx, itemID)
		if err != nil {
			return err
		}

		level := s.levelFor(item)
		existing, err := s.repo.FindActiveByItemForUpdate(tx, itemID)
		hasActive := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := time.Now().UTC()
		switch {
		case level == "" && hasActive:
			// Stock recovered: settle the row. It never reopens — a later
			// drop creates a fresh alert.
			existing.Status = model.AlertResolved
			existing.ResolvedAt = &now
			resolved = true
			return s.repo.SaveTx(tx, existing)

		case level != "" && !hasActive:
			alert := &model.LowStockAlert{
				ItemID:         itemID,
				Level:          level,
				CurrentStock:   item.CurrentStock,
				AvailableStock: item.AvailableStock(),
				ReorderPoint:   item.ReorderPoint,
				Status:         model.AlertActive,
			}
			created = true
			return s.repo.CreateTx(tx, alert)

		case level != "" && hasActive:
			// Level transitions keep the same row — no resolve/recreate
			// churn for rapid ok → low → critical movements.
			if existing.Level == level && existing.AvailableStock == item.AvailableStock() {
				return nil
			}
			existing.Level = level
			existing.CurrentStock = item.CurrentStock
			existing.AvailableStock = item.AvailableStock()
			updated = true
			return s.repo.SaveTx(tx, existing)
		}
		return nil
	})
	return created, updated, resolved, err
}

// ── Queries & transitions ────────────────────────────────────────────────────

func (s *alertService) ListActive(ctx context.Context, filter repository.AlertFilter) ([]model.LowStockAlert, error) {
	return s.repo.ListActive(ctx, filter)
}

func (s *alertService) ListActiveForStaff(ctx context.Context, staffID uuid.UUID) ([]model.LowStockAlert, error) {
	assignments, err := s.locationRepo.ListActiveAssignmentsForStaff(ctx, staffID)
	if err != nil {
		return nil, err
	}
	if len(assignments) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(assignments))
	for _, a := range assignments {
		ids = append(ids, a.LocationID)
	}
	return s.repo.ListActive(ctx, repository.AlertFilter{LocationIDs: ids})
}

func (s *alertService) Acknowledge(ctx context.Context, alertID, userID uuid.UUID) error {
	alert, err := s.repo.FindByID(ctx, alertID)
	if err != nil {
		return fmt.Errorf("alert %s: %w", alertID, ErrNotFound)
	}
	if alert.Status != model.AlertActive {
		return fmt.Errorf("alert is %s: %w", alert.Status, ErrStateConflict)
	}
	now := time.Now().UTC()
	alert.Status = model.AlertAcknowledged
	alert.AcknowledgedByID = &userID
	alert.AcknowledgedAt = &now
	return s.repo.Save(ctx, alert)
}

func (s *alertService) Resolve(ctx context.Context, alertID, userID uuid.UUID) error {
	alert, err := s.repo.FindByID(ctx, alertID)
	if err != nil {
		return fmt.Errorf("alert %s: %w", alertID, ErrNotFound)
	}
	if alert.Status == model.AlertResolved {
		return nil
	}
	now := time.Now().UTC()
	alert.Status = model.AlertResolved
	alert.ResolvedAt = &now
	if alert.AcknowledgedByID == nil {
		alert.AcknowledgedByID = &userID
		alert.AcknowledgedAt = &now
	}
	return s.repo.Save(ctx, alert)
}

func (s *alertService) PurgeSettled(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	return s.repo.PurgeSettledBefore(ctx, cutoff)
}
