package service

import (
	"context"
	"fmt"
	"time"

	"gmcore/internal/model"
	"gmcore/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// AuditService runs the cycle-count workflow. Starting an audit
// snapshots system counts per item; physical counts are compared against
// that snapshot, and accepting the audit writes the variances through
// the ledger as adjustment movements.
type AuditService interface {
	// Plan creates a new audit in the planned state.
	Plan(ctx context.Context, locationID, auditorID uuid.UUID, kind string, scheduledOn *time.Time) (*model.InventoryAudit, error)
	// Start moves planned → in_progress and pre-creates one line per
	// active item with the system count frozen at this moment.
	Start(ctx context.Context, auditID uuid.UUID) (*model.InventoryAudit, error)
	// Count records a physical count for one item of an in-progress audit.
	Count(ctx context.Context, auditID, itemID uuid.UUID, physical int, notes string) (*model.AuditLine, error)
	// Accept writes every nonzero variance through the ledger and moves
	// the audit to completed.
	Accept(ctx context.Context, auditID uuid.UUID) (*model.InventoryAudit, error)
	// Cancel abandons the audit with no ledger effect.
	Cancel(ctx context.Context, auditID uuid.UUID) error
	// ListVariances returns counted lines with nonzero variance.
	ListVariances(ctx context.Context, auditID uuid.UUID) ([]model.AuditLine, error)
	Get(ctx context.Context, auditID uuid.UUID) (*model.InventoryAudit, error)
	ListByLocation(ctx context.Context, locationID uuid.UUID) ([]model.InventoryAudit, error)
}

type auditService struct {
	repo          repository.AuditRepository
	inventoryRepo repository.InventoryRepository
	ledger        LedgerService
}

func NewAuditService(repo repository.AuditRepository, inventoryRepo repository.InventoryRepository, ledger LedgerService) AuditService {
	return &auditService{repo: repo, inventoryRepo: inventoryRepo, ledger: ledger}
}

func (s *auditService) Plan(ctx context.Context, locationID, auditorID uuid.UUID, kind string, scheduledOn *time.Time) (*model.InventoryAudit, error) {
	if kind != "cycle_count" && kind != "full" {
		return nil, fmt.Errorf("audit kind %q: %w", kind, ErrStateConflict)
	}
	audit := &model.InventoryAudit{
		LocationID:  locationID,
		AuditorID:   auditorID,
		Kind:        kind,
		Status:      model.AuditPlanned,
		ScheduledOn: scheduledOn,
	}
	if err := s.repo.Create(ctx, audit); err != nil {
		return nil, err
	}
	return audit, nil
}

func (s *auditService) Start(ctx context.Context, auditID uuid.UUID) (*model.InventoryAudit, error) {
	audit, err := s.repo.FindByID(ctx, auditID)
	if err != nil {
		return nil, fmt.Errorf("audit %s: %w", auditID, ErrNotFound)
	}
	if audit.Status != model.AuditPlanned {
		return nil, fmt.Errorf("audit is %s: %w", audit.Status, ErrStateConflict)
	}

	items, err := s.inventoryRepo.ListActiveByLocation(ctx, audit.LocationID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	audit.Status = model.AuditInProgress
	audit.StartedAt = &now
	if err := s.repo.Save(ctx, audit); err != nil {
		return nil, err
	}

	// Freeze the system count per item. Later sales or receipts change
	// the live ledger but not these lines.
	for _, item := range items {
		line := &model.AuditLine{
			AuditID:     audit.ID,
			ItemID:      item.ID,
			SystemCount: item.CurrentStock,
			UnitCost:    item.UnitCost,
			CountedAt:   now,
		}
		if err := s.repo.CreateLine(ctx, line); err != nil {
			return nil, err
		}
	}

	log.Info().
		Str("audit_id", audit.ID.String()).
		Str("location_id", audit.LocationID.String()).
		Int("items", len(items)).
		Msg("audit started")
	return audit, nil
}

func (s *auditService) Count(ctx context.Context, auditID, itemID uuid.UUID, physical int, notes string) (*model.AuditLine, error) {
	if physical < 0 {
		return nil, ErrInvalidQuantity
	}
	audit, err := s.repo.FindByID(ctx, auditID)
	if err != nil {
		return nil, fmt.Errorf("audit %s: %w", auditID, ErrNotFound)
	}
	if audit.Status != model.AuditInProgress {
		return nil, fmt.Errorf("audit is %s: %w", audit.Status, ErrStateConflict)
	}

	line, err := s.repo.FindLine(ctx, auditID, itemID)
	if err != nil {
		return nil, fmt.Errorf("item %s not in audit snapshot: %w", itemID, ErrNotFound)
	}

	line.PhysicalCount = physical
	line.Variance = physical - line.SystemCount
	line.ValueVariance = line.UnitCost.Mul(decimal.NewFromInt(int64(line.Variance))).Round(2)
	line.Counted = true
	line.CountedAt = time.Now().UTC()
	if notes != "" {
		line.Notes = &notes
	}
	if err := s.repo.SaveLine(ctx, line); err != nil {
		return nil, err
	}
	return line, nil
}

func (s *auditService) Accept(ctx context.Context, auditID uuid.UUID) (*model.InventoryAudit, error) {
	audit, err := s.repo.FindByID(ctx, auditID)
	if err != nil {
		return nil, fmt.Errorf("audit %s: %w", auditID, ErrNotFound)
	}
	if audit.Status != model.AuditInProgress {
		return nil, fmt.Errorf("audit is %s: %w", audit.Status, ErrStateConflict)
	}

	lines, err := s.repo.ListLines(ctx, auditID)
	if err != nil {
		return nil, err
	}

	ref := Reference{Type: "audit", ID: audit.ID.String()}
	counted, discrepancies := 0, 0
	valueDelta := decimal.Zero
	for _, line := range lines {
		if !line.Counted {
			continue
		}
		counted++
		if line.Variance == 0 {
			continue
		}
		discrepancies++
		valueDelta = valueDelta.Add(line.ValueVariance)
		if _, err := s.ledger.Adjust(ctx, line.ItemID, line.PhysicalCount, audit.AuditorID, ref); err != nil {
			return nil, fmt.Errorf("accept audit %s: item %s: %w", auditID, line.ItemID, err)
		}
	}

	now := time.Now().UTC()
	audit.Status = model.AuditCompleted
	audit.CompletedAt = &now
	audit.ItemsCounted = counted
	audit.Discrepancies = discrepancies
	audit.ValueDifference = valueDelta.Round(2)
	if err := s.repo.Save(ctx, audit); err != nil {
		return nil, err
	}

	log.Info().
		Str("audit_id", audit.ID.String()).
		Int("counted", counted).
		Int("discrepancies", discrepancies).
		Str("value_delta", valueDelta.String()).
		Msg("audit accepted")
	return audit, nil
}

func (s *auditService) Cancel(ctx context.Context, auditID uuid.UUID) error {
	audit, err := s.repo.FindByID(ctx, auditID)
	if err != nil {
		return fmt.Errorf("audit %s: %w", auditID, ErrNotFound)
	}
	if audit.Status == model.AuditCompleted {
		return fmt.Errorf("audit is completed: %w", ErrStateConflict)
	}
	if audit.Status == model.AuditCancelled {
		return nil
	}
	audit.Status = model.AuditCancelled
	return s.repo.Save(ctx, audit)
}

func (s *auditService) ListVariances(ctx context.Context, auditID uuid.UUID) ([]model.AuditLine, error) {
	lines, err := s.repo.ListLines(ctx, auditID)
	if err != nil {
		return nil, err
	}
	var variances []model.AuditLine
	for _, line := range lines {
		if line.Counted && line.Variance != 0 {
			variances = append(variances, line)
		}
	}
	return variances, nil
}

func (s *auditService) Get(ctx context.Context, auditID uuid.UUID) (*model.InventoryAudit, error) {
	audit, err := s.repo.FindByID(ctx, auditID)
	if err != nil {
		return nil, fmt.Errorf("audit %s: %w", auditID, ErrNotFound)
	}
	return audit, nil
}

func (s *auditService) ListByLocation(ctx context.Context, locationID uuid.UUID) ([]model.InventoryAudit, error) {
	return s.repo.ListByLocation(ctx, locationID)
}
