package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gmcore/internal/model"
	"gmcore/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Reference ties a movement back to its originating document
// (order, purchase, transfer, audit).
type Reference struct {
	Type string
	ID   string
}

// LedgerService is the multi-location stock ledger: balances, reservations,
// and the append-only movement history. Every mutating operation runs in a
// single transaction holding a row lock on the item, so no reader ever
// observes reserved_stock > current_stock.
type LedgerService interface {
	// Reserve places a soft hold and returns the reservation handle.
	// Fails with ErrInsufficientStock when available stock is short.
	Reserve(ctx context.Context, itemID uuid.UUID, qty int) (uuid.UUID, error)
	// Release returns a held quantity to availability. Idempotent on the handle.
	Release(ctx context.Context, handle uuid.UUID) error
	// Consume converts a reservation into an "out" movement. Idempotent on
	// the handle.
	Consume(ctx context.Context, handle, actorID uuid.UUID, ref Reference) (*model.StockMovement, error)
	// Receive books incoming stock and re-averages the unit cost.
	Receive(ctx context.Context, itemID uuid.UUID, qty int, unitCost decimal.Decimal, actorID uuid.UUID, ref Reference) (*model.StockMovement, error)
	// Transfer moves stock between locations: a transfer_out on the source
	// item and a transfer_in on the target item, both or neither.
	Transfer(ctx context.Context, itemID, toLocationID uuid.UUID, qty int, actorID uuid.UUID) error
	// Adjust reconciles the ledger to a physical count (audit write-through).
	Adjust(ctx context.Context, itemID uuid.UUID, newPhysical int, actorID uuid.UUID, ref Reference) (*model.StockMovement, error)
	// CreateItem registers a stock balance row for a product reference at
	// a location.
	CreateItem(ctx context.Context, item *model.InventoryItem) error
	Read(ctx context.Context, itemID uuid.UUID) (*model.InventoryItem, error)
	ReadByRef(ctx context.Context, refKind string, refID, locationID uuid.UUID) (*model.InventoryItem, error)
	ListItems(ctx context.Context, filter repository.ItemFilter) ([]model.InventoryItem, int64, error)
	ListMovements(ctx context.Context, filter repository.MovementFilter) ([]model.StockMovement, int64, error)
}

type ledgerService struct {
	repo         repository.InventoryRepository
	locationRepo repository.LocationRepository
}

func NewLedgerService(repo repository.InventoryRepository, locationRepo repository.LocationRepository) LedgerService {
	return &ledgerService{repo: repo, locationRepo: locationRepo}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// ── Reserve ──────────────────────────────────────────────────────────────────

func (s *ledgerService) Reserve(ctx context.Context, itemID uuid.UUID, qty int) (uuid.UUID, error) {
	if qty <= 0 {
		return uuid.Nil, ErrInvalidQuantity
	}

	var handle uuid.UUID
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		item, err := s.repo.FindByIDForUpdate(tx, itemID)
		if err != nil {
			return fmt.Errorf("item %s: %w", itemID, ErrNotFound)
		}
		if item.Status != "active" {
			return ErrItemInactive
		}
		if item.AvailableStock() < qty {
			return ErrInsufficientStock
		}

		item.ReservedStock += qty
		if err := s.repo.SaveTx(tx, item); err != nil {
			return err
		}

		res := &model.StockReservation{
			ItemID:   itemID,
			Quantity: qty,
			Status:   model.ReservationHeld,
		}
		if err := s.repo.CreateReservationTx(tx, res); err != nil {
			return err
		}
		handle = res.ID
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return handle, nil
}

// ── Release ──────────────────────────────────────────────────────────────────

func (s *ledgerService) Release(ctx context.Context, handle uuid.UUID) error {
	return runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		res, err := s.repo.FindReservationForUpdate(tx, handle)
		if err != nil {
			return fmt.Errorf("reservation %s: %w", handle, ErrNotFound)
		}
		if res.Status != model.ReservationHeld {
			return nil // already released or consumed
		}

		item, err := s.repo.FindByIDForUpdate(tx, res.ItemID)
		if err != nil {
			return err
		}
		item.ReservedStock -= res.Quantity
		if item.ReservedStock < 0 {
			return fmt.Errorf("reserved_stock underflow on item %s: %w", item.ID, ErrVersionConflict)
		}
		if err := s.repo.SaveTx(tx, item); err != nil {
			return err
		}

		res.Status = model.ReservationReleased
		return s.repo.SaveReservationTx(tx, res)
	})
}

// ── Consume ──────────────────────────────────────────────────────────────────

func (s *ledgerService) Consume(ctx context.Context, handle, actorID uuid.UUID, ref Reference) (*model.StockMovement, error) {
	var movement *model.StockMovement
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		res, err := s.repo.FindReservationForUpdate(tx, handle)
		if err != nil {
			return fmt.Errorf("reservation %s: %w", handle, ErrNotFound)
		}
		switch res.Status {
		case model.ReservationConsumed:
			return nil // idempotent replay
		case model.ReservationReleased:
			return fmt.Errorf("reservation %s was released: %w", handle, ErrStateConflict)
		}

		item, err := s.repo.FindByIDForUpdate(tx, res.ItemID)
		if err != nil {
			return err
		}

		before := item.CurrentStock
		item.CurrentStock -= res.Quantity
		item.ReservedStock -= res.Quantity
		if item.CurrentStock < 0 || item.ReservedStock < 0 {
			return fmt.Errorf("stock underflow on item %s: %w", item.ID, ErrVersionConflict)
		}
		item.RecomputeValue()
		if err := s.repo.SaveTx(tx, item); err != nil {
			return err
		}

		movement = s.newMovement(item, actorID, model.MovementOut, res.Quantity, before, ref)
		if err := s.repo.CreateMovementTx(tx, movement); err != nil {
			return err
		}

		res.Status = model.ReservationConsumed
		return s.repo.SaveReservationTx(tx, res)
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}

// ── Receive ──────────────────────────────────────────────────────────────────
// Cost policy: moving average, fixed per deployment. total_value stays
// reconcilable with sum(movements.qty × unit_cost).

func (s *ledgerService) Receive(ctx context.Context, itemID uuid.UUID, qty int, unitCost decimal.Decimal, actorID uuid.UUID, ref Reference) (*model.StockMovement, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}

	var movement *model.StockMovement
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		item, err := s.repo.FindByIDForUpdate(tx, itemID)
		if err != nil {
			return fmt.Errorf("item %s: %w", itemID, ErrNotFound)
		}
		if item.Status != "active" {
			return ErrItemInactive
		}

		before := item.CurrentStock
		item.UnitCost = movingAverage(item.CurrentStock, item.UnitCost, qty, unitCost)
		item.CurrentStock += qty
		item.RecomputeValue()
		if err := s.repo.SaveTx(tx, item); err != nil {
			return err
		}

		movement = s.newMovement(item, actorID, model.MovementIn, qty, before, ref)
		movement.UnitCost = unitCost
		return s.repo.CreateMovementTx(tx, movement)
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}

// movingAverage re-averages unit cost over the combined on-hand quantity.
func movingAverage(stock int, cost decimal.Decimal, inQty int, inCost decimal.Decimal) decimal.Decimal {
	if stock <= 0 {
		return inCost
	}
	onHand := cost.Mul(decimal.NewFromInt(int64(stock)))
	incoming := inCost.Mul(decimal.NewFromInt(int64(inQty)))
	return onHand.Add(incoming).
		Div(decimal.NewFromInt(int64(stock + inQty))).
		Round(2)
}

// ── Transfer ─────────────────────────────────────────────────────────────────

func (s *ledgerService) Transfer(ctx context.Context, itemID, toLocationID uuid.UUID, qty int, actorID uuid.UUID) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}

	if loc, err := s.locationRepo.FindByID(ctx, toLocationID); err != nil || !loc.Active {
		if err != nil {
			return fmt.Errorf("location %s: %w", toLocationID, ErrNotFound)
		}
		return ErrLocationInactive
	}

	return runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		source, err := s.repo.FindByIDForUpdate(tx, itemID)
		if err != nil {
			return fmt.Errorf("item %s: %w", itemID, ErrNotFound)
		}
		if source.Status != "active" {
			return ErrItemInactive
		}
		if source.LocationID == toLocationID {
			return fmt.Errorf("transfer within the same location: %w", ErrStateConflict)
		}
		if source.AvailableStock() < qty {
			return ErrInsufficientStock
		}

		target, err := s.findOrCreateTargetTx(tx, source, toLocationID)
		if err != nil {
			return err
		}

		ref := Reference{Type: "transfer", ID: source.ID.String()}

		srcBefore := source.CurrentStock
		source.CurrentStock -= qty
		source.RecomputeValue()
		if err := s.repo.SaveTx(tx, source); err != nil {
			return err
		}
		out := s.newMovement(source, actorID, model.MovementTransferOut, qty, srcBefore, ref)
		if err := s.repo.CreateMovementTx(tx, out); err != nil {
			return err
		}

		tgtBefore := target.CurrentStock
		target.UnitCost = movingAverage(target.CurrentStock, target.UnitCost, qty, source.UnitCost)
		target.CurrentStock += qty
		target.RecomputeValue()
		if err := s.repo.SaveTx(tx, target); err != nil {
			return err
		}
		in := s.newMovement(target, actorID, model.MovementTransferIn, qty, tgtBefore, ref)
		return s.repo.CreateMovementTx(tx, in)
	})
}

// findOrCreateTargetTx locates the target item row for the same product
// reference at the destination, creating one on first transfer. The target
// row is locked under the same transaction as the source so both movements
// commit together.
func (s *ledgerService) findOrCreateTargetTx(tx *gorm.DB, source *model.InventoryItem, toLocationID uuid.UUID) (*model.InventoryItem, error) {
	target, err := s.repo.FindByRefForUpdate(tx, source.RefKind, source.RefID, toLocationID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		target = &model.InventoryItem{
			RefKind:      source.RefKind,
			RefID:        source.RefID,
			LocationID:   toLocationID,
			ReorderPoint: source.ReorderPoint,
			UnitCost:     source.UnitCost,
			Status:       "active",
		}
		if err := s.repo.CreateTx(tx, target); err != nil {
			return nil, err
		}
		return target, nil
	}
	if target.Status != "active" {
		return nil, ErrItemInactive
	}
	return target, nil
}

// ── Adjust ───────────────────────────────────────────────────────────────────

func (s *ledgerService) Adjust(ctx context.Context, itemID uuid.UUID, newPhysical int, actorID uuid.UUID, ref Reference) (*model.StockMovement, error) {
	if newPhysical < 0 {
		return nil, ErrInvalidQuantity
	}

	var movement *model.StockMovement
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		item, err := s.repo.FindByIDForUpdate(tx, itemID)
		if err != nil {
			return fmt.Errorf("item %s: %w", itemID, ErrNotFound)
		}

		now := time.Now().UTC()
		before := item.CurrentStock
		delta := newPhysical - before

		item.CurrentStock = newPhysical
		item.LastCountedAt = &now
		item.RecomputeValue()
		if err := s.repo.SaveTx(tx, item); err != nil {
			return err
		}

		if delta == 0 {
			return nil // count confirmed the ledger; nothing to book
		}

		qty := delta
		if qty < 0 {
			qty = -qty
		}
		movement = s.newMovement(item, actorID, model.MovementAdjustment, qty, before, ref)
		return s.repo.CreateMovementTx(tx, movement)
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}

// ── Reads ────────────────────────────────────────────────────────────────────

func (s *ledgerService) CreateItem(ctx context.Context, item *model.InventoryItem) error {
	if item.CurrentStock < 0 || item.ReorderPoint < 0 {
		return ErrInvalidQuantity
	}
	location, err := s.locationRepo.FindByID(ctx, item.LocationID)
	if err != nil {
		return fmt.Errorf("location %s: %w", item.LocationID, ErrNotFound)
	}
	if !location.Active {
		return ErrLocationInactive
	}
	if item.Status == "" {
		item.Status = "active"
	}
	item.RecomputeValue()
	return s.repo.Create(ctx, item)
}

func (s *ledgerService) Read(ctx context.Context, itemID uuid.UUID) (*model.InventoryItem, error) {
	item, err := s.repo.FindByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("item %s: %w", itemID, ErrNotFound)
	}
	return item, nil
}

func (s *ledgerService) ReadByRef(ctx context.Context, refKind string, refID, locationID uuid.UUID) (*model.InventoryItem, error) {
	item, err := s.repo.FindByRef(ctx, refKind, refID, locationID)
	if err != nil {
		return nil, fmt.Errorf("item %s/%s: %w", refKind, refID, ErrNotFound)
	}
	return item, nil
}

func (s *ledgerService) ListItems(ctx context.Context, filter repository.ItemFilter) ([]model.InventoryItem, int64, error) {
	return s.repo.List(ctx, filter)
}

func (s *ledgerService) ListMovements(ctx context.Context, filter repository.MovementFilter) ([]model.StockMovement, int64, error) {
	return s.repo.ListMovements(ctx, filter)
}

// newMovement captures stock_before/stock_after under the caller's
// transaction so the ledger history is exact.
func (s *ledgerService) newMovement(item *model.InventoryItem, actorID uuid.UUID, kind string, qty, before int, ref Reference) *model.StockMovement {
	m := &model.StockMovement{
		ItemID:      item.ID,
		LocationID:  item.LocationID,
		ActorID:     actorID,
		Kind:        kind,
		Quantity:    qty,
		UnitCost:    item.UnitCost,
		StockBefore: before,
		StockAfter:  item.CurrentStock,
		OccurredAt:  time.Now().UTC(),
	}
	if ref.Type != "" {
		m.ReferenceType = &ref.Type
	}
	if ref.ID != "" {
		m.ReferenceID = &ref.ID
	}
	return m
}
