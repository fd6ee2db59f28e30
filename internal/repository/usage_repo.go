package repository

import (
	"context"
	"time"

	"gmcore/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UsageRepository interface {
	// Upsert replaces the counters on the (date, hour) bucket — the
	// authoritative rollup path. Replaying a window recomputes the same row.
	Upsert(ctx context.Context, b *model.UsageBucket) error
	// IncrementDaily opportunistically bumps one counter on today's daily
	// bucket for same-day feedback; the end-of-day rollup reconciles it.
	IncrementDaily(ctx context.Context, date time.Time, column string, delta int) error
	// Find returns one bucket; a nil hour selects the whole-day bucket.
	Find(ctx context.Context, date time.Time, hour *int) (*model.UsageBucket, error)
	ListRange(ctx context.Context, from, to time.Time) ([]model.UsageBucket, error)
}

type usageRepo struct{ db *gorm.DB }

func NewUsageRepository(db *gorm.DB) UsageRepository { return &usageRepo{db: db} }

func (r *usageRepo) Upsert(ctx context.Context, b *model.UsageBucket) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "date"}, {Name: "hour"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"active_users", "new_registrations", "logins", "failed_logins",
			"page_views", "service_actions", "errors", "avg_response_ms", "updated_at",
		}),
	}).Create(b).Error
}

func (r *usageRepo) IncrementDaily(ctx context.Context, date time.Time, column string, delta int) error {
	day := date.UTC().Truncate(24 * time.Hour)
	bucket := &model.UsageBucket{Date: day, Hour: model.HourWholeDay}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}, {Name: "hour"}},
		DoUpdates: clause.Assignments(map[string]interface{}{column: gorm.Expr(column+" + ?", delta)}),
	}).Create(bucket).Error
}

func (r *usageRepo) Find(ctx context.Context, date time.Time, hour *int) (*model.UsageBucket, error) {
	h := model.HourWholeDay
	if hour != nil {
		h = *hour
	}
	var b model.UsageBucket
	err := r.db.WithContext(ctx).
		Where("date = ? AND hour = ?", date.UTC().Truncate(24*time.Hour), h).
		First(&b).Error
	return &b, err
}

func (r *usageRepo) ListRange(ctx context.Context, from, to time.Time) ([]model.UsageBucket, error) {
	var buckets []model.UsageBucket
	err := r.db.WithContext(ctx).
		Where("date >= ? AND date < ?", from, to).
		Order("date ASC, hour ASC").
		Find(&buckets).Error
	return buckets, err
}
