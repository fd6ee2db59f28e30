package repository

import (
	"context"
	"time"

	"gmcore/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AlertFilter narrows active-alert listings.
type AlertFilter struct {
	LocationID *uuid.UUID
	Level      string
	// LocationIDs restricts to a set of locations (staff-scoped views).
	LocationIDs []uuid.UUID
	Limit       int
}

type AlertRepository interface {
	// FindActiveByItemForUpdate locks the item's active alert row if one
	// exists — must run inside a transaction.
	FindActiveByItemForUpdate(tx *gorm.DB, itemID uuid.UUID) (*model.LowStockAlert, error)
	CreateTx(tx *gorm.DB, a *model.LowStockAlert) error
	SaveTx(tx *gorm.DB, a *model.LowStockAlert) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.LowStockAlert, error)
	Save(ctx context.Context, a *model.LowStockAlert) error
	ListActive(ctx context.Context, filter AlertFilter) ([]model.LowStockAlert, error)
	// ListTouchedSince returns active alerts created or updated after the
	// given instant — the notification dispatch window.
	ListTouchedSince(ctx context.Context, since time.Time) ([]model.LowStockAlert, error)
	// PurgeSettledBefore deletes resolved/acknowledged alerts whose last
	// update predates the cutoff. Returns the number removed.
	PurgeSettledBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DB() *gorm.DB
}

type alertRepo struct{ db *gorm.DB }

func NewAlertRepository(db *gorm.DB) AlertRepository { return &alertRepo{db: db} }

func (r *alertRepo) FindActiveByItemForUpdate(tx *gorm.DB, itemID uuid.UUID) (*model.LowStockAlert, error) {
	var alert model.LowStockAlert
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("item_id = ? AND status = ?", itemID, model.AlertActive).
		First(&alert).Error
	return &alert, err
}

func (r *alertRepo) CreateTx(tx *gorm.DB, a *model.LowStockAlert) error {
	return tx.Create(a).Error
}

func (r *alertRepo) SaveTx(tx *gorm.DB, a *model.LowStockAlert) error {
	return tx.Save(a).Error
}

func (r *alertRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.LowStockAlert, error) {
	var alert model.LowStockAlert
	err := r.db.WithContext(ctx).Preload("Item").First(&alert, "id = ?", id).Error
	return &alert, err
}

func (r *alertRepo) Save(ctx context.Context, a *model.LowStockAlert) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func (r *alertRepo) ListActive(ctx context.Context, filter AlertFilter) ([]model.LowStockAlert, error) {
	q := r.db.WithContext(ctx).Model(&model.LowStockAlert{}).
		Joins("JOIN inventory_items ON inventory_items.id = low_stock_alerts.item_id").
		Where("low_stock_alerts.status = ?", model.AlertActive).
		Preload("Item")
	if filter.LocationID != nil {
		q = q.Where("inventory_items.location_id = ?", *filter.LocationID)
	}
	if len(filter.LocationIDs) > 0 {
		q = q.Where("inventory_items.location_id IN ?", filter.LocationIDs)
	}
	if filter.Level != "" {
		q = q.Where("low_stock_alerts.level = ?", filter.Level)
	}
	limit := filter.Limit
	if limit < 1 || limit > 500 {
		limit = 200
	}
	var alerts []model.LowStockAlert
	err := q.Order("low_stock_alerts.created_at DESC").Limit(limit).Find(&alerts).Error
	return alerts, err
}

func (r *alertRepo) ListTouchedSince(ctx context.Context, since time.Time) ([]model.LowStockAlert, error) {
	var alerts []model.LowStockAlert
	err := r.db.WithContext(ctx).
		Where("status = ? AND (created_at >= ? OR updated_at >= ?)", model.AlertActive, since, since).
		Preload("Item").
		Order("created_at ASC").
		Find(&alerts).Error
	return alerts, err
}

func (r *alertRepo) PurgeSettledBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?", []string{model.AlertResolved, model.AlertAcknowledged}, cutoff).
		Delete(&model.LowStockAlert{})
	return res.RowsAffected, res.Error
}

func (r *alertRepo) DB() *gorm.DB { return r.db }
