package repository

import (
	"context"
	"time"

	"gmcore/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NotificationRepository interface {
	// CreateIfAbsent inserts the intent unless its idempotency key already
	// exists; returns true when a new row was created.
	CreateIfAbsent(ctx context.Context, n *model.NotificationIntent) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.NotificationIntent, error)
	Save(ctx context.Context, n *model.NotificationIntent) error
	// ListRedeliverable returns failed intents still under the attempt cap
	// whose last failure predates the cutoff. Retries are one-per-window:
	// passing the current window start keeps this window's failures out.
	ListRedeliverable(ctx context.Context, maxAttempts int, failedBefore time.Time) ([]model.NotificationIntent, error)
}

type notificationRepo struct{ db *gorm.DB }

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepo{db: db}
}

func (r *notificationRepo) CreateIfAbsent(ctx context.Context, n *model.NotificationIntent) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "idempotency_key"}},
		DoNothing: true,
	}).Create(n)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *notificationRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.NotificationIntent, error) {
	var n model.NotificationIntent
	err := r.db.WithContext(ctx).Preload("Recipient").Preload("Location").First(&n, "id = ?", id).Error
	return &n, err
}

func (r *notificationRepo) Save(ctx context.Context, n *model.NotificationIntent) error {
	return r.db.WithContext(ctx).Save(n).Error
}

func (r *notificationRepo) ListRedeliverable(ctx context.Context, maxAttempts int, failedBefore time.Time) ([]model.NotificationIntent, error) {
	var intents []model.NotificationIntent
	err := r.db.WithContext(ctx).
		Where("status = ? AND attempts < ? AND updated_at < ?", model.IntentFailed, maxAttempts, failedBefore).
		Order("created_at ASC").
		Find(&intents).Error
	return intents, err
}
