package repository

import (
	"context"

	"gmcore/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MovementFilter defines filters for listing stock movements.
type MovementFilter struct {
	ItemID     *uuid.UUID
	LocationID *uuid.UUID
	Kind       string
	Page       int
	Limit      int
}

// ItemFilter defines filters for listing inventory items.
type ItemFilter struct {
	LocationID *uuid.UUID
	Status     string
	Page       int
	Limit      int
}

// InventoryRepository is the data access contract for the stock ledger.
// Services depend on this interface, not on the concrete GORM implementation,
// enabling clean unit testing via stubs.
type InventoryRepository interface {
	Create(ctx context.Context, item *model.InventoryItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.InventoryItem, error)
	// FindByIDForUpdate takes a row-level lock — must run inside a transaction.
	FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*model.InventoryItem, error)
	FindByRef(ctx context.Context, refKind string, refID, locationID uuid.UUID) (*model.InventoryItem, error)
	// FindByRefForUpdate locks the balance row for a product reference at a
	// location — must run inside a transaction.
	FindByRefForUpdate(tx *gorm.DB, refKind string, refID, locationID uuid.UUID) (*model.InventoryItem, error)
	CreateTx(tx *gorm.DB, item *model.InventoryItem) error
	List(ctx context.Context, filter ItemFilter) ([]model.InventoryItem, int64, error)
	ListActiveByLocation(ctx context.Context, locationID uuid.UUID) ([]model.InventoryItem, error)
	// ListActiveIDs returns IDs of all active items; the alert sweep walks
	// them one at a time so a bad row never halts the pass.
	ListActiveIDs(ctx context.Context) ([]uuid.UUID, error)
	SaveTx(tx *gorm.DB, item *model.InventoryItem) error
	Update(ctx context.Context, item *model.InventoryItem) error

	// Reservations — the returned row ID is the caller's handle.
	CreateReservationTx(tx *gorm.DB, r *model.StockReservation) error
	FindReservationForUpdate(tx *gorm.DB, id uuid.UUID) (*model.StockReservation, error)
	SaveReservationTx(tx *gorm.DB, r *model.StockReservation) error

	// Movements — append-only, insert only inside the owning transaction.
	CreateMovementTx(tx *gorm.DB, m *model.StockMovement) error
	ListMovements(ctx context.Context, filter MovementFilter) ([]model.StockMovement, int64, error)

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type inventoryRepo struct{ db *gorm.DB }

func NewInventoryRepository(db *gorm.DB) InventoryRepository { return &inventoryRepo{db: db} }

func (r *inventoryRepo) Create(ctx context.Context, item *model.InventoryItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *inventoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.InventoryItem, error) {
	var item model.InventoryItem
	err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error
	return &item, err
}

func (r *inventoryRepo) FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*model.InventoryItem, error) {
	var item model.InventoryItem
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&item, "id = ?", id).Error
	return &item, err
}

func (r *inventoryRepo) FindByRef(ctx context.Context, refKind string, refID, locationID uuid.UUID) (*model.InventoryItem, error) {
	var item model.InventoryItem
	err := r.db.WithContext(ctx).
		Where("ref_kind = ? AND ref_id = ? AND location_id = ?", refKind, refID, locationID).
		First(&item).Error
	return &item, err
}

func (r *inventoryRepo) FindByRefForUpdate(tx *gorm.DB, refKind string, refID, locationID uuid.UUID) (*model.InventoryItem, error) {
	var item model.InventoryItem
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("ref_kind = ? AND ref_id = ? AND location_id = ?", refKind, refID, locationID).
		First(&item).Error
	return &item, err
}

func (r *inventoryRepo) CreateTx(tx *gorm.DB, item *model.InventoryItem) error {
	return tx.Create(item).Error
}

func (r *inventoryRepo) List(ctx context.Context, filter ItemFilter) ([]model.InventoryItem, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.InventoryItem{})
	if filter.LocationID != nil {
		q = q.Where("location_id = ?", *filter.LocationID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	limit := filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}

	var items []model.InventoryItem
	err := q.Order("created_at ASC").Offset((page - 1) * limit).Limit(limit).Find(&items).Error
	return items, total, err
}

func (r *inventoryRepo) ListActiveByLocation(ctx context.Context, locationID uuid.UUID) ([]model.InventoryItem, error) {
	var items []model.InventoryItem
	err := r.db.WithContext(ctx).
		Where("location_id = ? AND status = 'active'", locationID).
		Find(&items).Error
	return items, err
}

func (r *inventoryRepo) ListActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&model.InventoryItem{}).
		Where("status = 'active'").
		Order("created_at ASC").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *inventoryRepo) SaveTx(tx *gorm.DB, item *model.InventoryItem) error {
	return tx.Save(item).Error
}

func (r *inventoryRepo) Update(ctx context.Context, item *model.InventoryItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *inventoryRepo) CreateReservationTx(tx *gorm.DB, res *model.StockReservation) error {
	return tx.Create(res).Error
}

func (r *inventoryRepo) FindReservationForUpdate(tx *gorm.DB, id uuid.UUID) (*model.StockReservation, error) {
	var res model.StockReservation
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&res, "id = ?", id).Error
	return &res, err
}

func (r *inventoryRepo) SaveReservationTx(tx *gorm.DB, res *model.StockReservation) error {
	return tx.Save(res).Error
}

func (r *inventoryRepo) CreateMovementTx(tx *gorm.DB, m *model.StockMovement) error {
	return tx.Create(m).Error
}

func (r *inventoryRepo) ListMovements(ctx context.Context, filter MovementFilter) ([]model.StockMovement, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.StockMovement{})
	if filter.ItemID != nil {
		q = q.Where("item_id = ?", *filter.ItemID)
	}
	if filter.LocationID != nil {
		q = q.Where("location_id = ?", *filter.LocationID)
	}
	if filter.Kind != "" {
		q = q.Where("kind = ?", filter.Kind)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	limit := filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}

	var movements []model.StockMovement
	err := q.Order("occurred_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&movements).Error
	return movements, total, err
}

func (r *inventoryRepo) DB() *gorm.DB { return r.db }
