package repository

import (
	"context"
	"time"

	"gmcore/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type KeyRepository interface {
	// FindActiveForUpdate locks the active row for a kind — rotation must
	// run inside a transaction so exactly one active key exists per kind.
	FindActiveForUpdate(tx *gorm.DB, kind string) (*model.SecretKey, error)
	FindActive(ctx context.Context, kind string) (*model.SecretKey, error)
	// FindPrevious returns the most recently deactivated key for a kind,
	// kept readable for signature verification during the grace period.
	FindPrevious(ctx context.Context, kind string) (*model.SecretKey, error)
	ListActive(ctx context.Context) ([]model.SecretKey, error)
	ListExpiringBefore(ctx context.Context, deadline time.Time) ([]model.SecretKey, error)
	SaveTx(tx *gorm.DB, k *model.SecretKey) error
	CreateTx(tx *gorm.DB, k *model.SecretKey) error
	DB() *gorm.DB
}

type keyRepo struct{ db *gorm.DB }

func NewKeyRepository(db *gorm.DB) KeyRepository { return &keyRepo{db: db} }

func (r *keyRepo) FindActiveForUpdate(tx *gorm.DB, kind string) (*model.SecretKey, error) {
	var k model.SecretKey
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("kind = ? AND active", kind).
		First(&k).Error
	return &k, err
}

func (r *keyRepo) FindActive(ctx context.Context, kind string) (*model.SecretKey, error) {
	var k model.SecretKey
	err := r.db.WithContext(ctx).Where("kind = ? AND active", kind).First(&k).Error
	return &k, err
}

func (r *keyRepo) FindPrevious(ctx context.Context, kind string) (*model.SecretKey, error) {
	var k model.SecretKey
	err := r.db.WithContext(ctx).
		Where("kind = ? AND NOT active", kind).
		Order("created_at DESC").
		First(&k).Error
	return &k, err
}

func (r *keyRepo) ListActive(ctx context.Context) ([]model.SecretKey, error) {
	var keys []model.SecretKey
	err := r.db.WithContext(ctx).Where("active").Order("kind ASC").Find(&keys).Error
	return keys, err
}

func (r *keyRepo) ListExpiringBefore(ctx context.Context, deadline time.Time) ([]model.SecretKey, error) {
	var keys []model.SecretKey
	err := r.db.WithContext(ctx).
		Where("active AND expires_at <= ?", deadline).
		Find(&keys).Error
	return keys, err
}

func (r *keyRepo) SaveTx(tx *gorm.DB, k *model.SecretKey) error {
	return tx.Save(k).Error
}

func (r *keyRepo) CreateTx(tx *gorm.DB, k *model.SecretKey) error {
	return tx.Create(k).Error
}

func (r *keyRepo) DB() *gorm.DB { return r.db }
