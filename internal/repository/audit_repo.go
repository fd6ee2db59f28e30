package repository

import (
	"context"

	"gmcore/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditRepository interface {
	Create(ctx context.Context, a *model.InventoryAudit) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.InventoryAudit, error)
	Save(ctx context.Context, a *model.InventoryAudit) error
	SaveTx(tx *gorm.DB, a *model.InventoryAudit) error
	CreateLine(ctx context.Context, l *model.AuditLine) error
	FindLine(ctx context.Context, auditID, itemID uuid.UUID) (*model.AuditLine, error)
	SaveLine(ctx context.Context, l *model.AuditLine) error
	ListLines(ctx context.Context, auditID uuid.UUID) ([]model.AuditLine, error)
	ListByLocation(ctx context.Context, locationID uuid.UUID) ([]model.InventoryAudit, error)
	DB() *gorm.DB
}

type auditRepo struct{ db *gorm.DB }

func NewAuditRepository(db *gorm.DB) AuditRepository { return &auditRepo{db: db} }

func (r *auditRepo) Create(ctx context.Context, a *model.InventoryAudit) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *auditRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.InventoryAudit, error) {
	var a model.InventoryAudit
	err := r.db.WithContext(ctx).Preload("Lines").First(&a, "id = ?", id).Error
	return &a, err
}

func (r *auditRepo) Save(ctx context.Context, a *model.InventoryAudit) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func (r *auditRepo) SaveTx(tx *gorm.DB, a *model.InventoryAudit) error {
	return tx.Save(a).Error
}

func (r *auditRepo) CreateLine(ctx context.Context, l *model.AuditLine) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *auditRepo) FindLine(ctx context.Context, auditID, itemID uuid.UUID) (*model.AuditLine, error) {
	var l model.AuditLine
	err := r.db.WithContext(ctx).
		Where("audit_id = ? AND item_id = ?", auditID, itemID).
		First(&l).Error
	return &l, err
}

func (r *auditRepo) SaveLine(ctx context.Context, l *model.AuditLine) error {
	return r.db.WithContext(ctx).Save(l).Error
}

func (r *auditRepo) ListLines(ctx context.Context, auditID uuid.UUID) ([]model.AuditLine, error) {
	var lines []model.AuditLine
	err := r.db.WithContext(ctx).
		Where("audit_id = ?", auditID).
		Order("counted_at ASC").
		Find(&lines).Error
	return lines, err
}

func (r *auditRepo) ListByLocation(ctx context.Context, locationID uuid.UUID) ([]model.InventoryAudit, error) {
	var audits []model.InventoryAudit
	err := r.db.WithContext(ctx).
		Where("location_id = ?", locationID).
		Order("created_at DESC").
		Find(&audits).Error
	return audits, err
}

func (r *auditRepo) DB() *gorm.DB { return r.db }
