package repository

import (
	"context"
	"time"

	"gmcore/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActivityFilter narrows activity listings.
type ActivityFilter struct {
	Type     string
	Category string
	From     *time.Time
	To       *time.Time
	Limit    int
}

// WindowCounts aggregates journal rows over a rollup window. The usage
// aggregator recomputes these from source on every pass, so replaying a
// window is idempotent.
type WindowCounts struct {
	ActiveUsers      int
	NewRegistrations int
	Logins           int
	FailedLogins     int
	PageViews        int
	ServiceActions   int
	Errors           int
	AvgResponseMs    float64
}

type ActivityRepository interface {
	Create(ctx context.Context, e *model.ActivityEntry) error
	CreateTx(tx *gorm.DB, e *model.ActivityEntry) error
	ListForUser(ctx context.Context, userID uuid.UUID, filter ActivityFilter) ([]model.ActivityEntry, error)
	ListRecent(ctx context.Context, filter ActivityFilter) ([]model.ActivityEntry, error)
	AggregateWindow(ctx context.Context, from, to time.Time) (*WindowCounts, error)
	DB() *gorm.DB
}

type activityRepo struct{ db *gorm.DB }

func NewActivityRepository(db *gorm.DB) ActivityRepository { return &activityRepo{db: db} }

func (r *activityRepo) Create(ctx context.Context, e *model.ActivityEntry) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *activityRepo) CreateTx(tx *gorm.DB, e *model.ActivityEntry) error {
	return tx.Create(e).Error
}

func (r *activityRepo) ListForUser(ctx context.Context, userID uuid.UUID, filter ActivityFilter) ([]model.ActivityEntry, error) {
	q := r.db.WithContext(ctx).Where("subject_id = ?", userID)
	q = applyActivityFilter(q, filter)

	var entries []model.ActivityEntry
	// Total order per user: occurred_at, ties broken by insertion order.
	err := q.Order("occurred_at DESC, created_at DESC").Find(&entries).Error
	return entries, err
}

func (r *activityRepo) ListRecent(ctx context.Context, filter ActivityFilter) ([]model.ActivityEntry, error) {
	q := applyActivityFilter(r.db.WithContext(ctx).Model(&model.ActivityEntry{}), filter)
	var entries []model.ActivityEntry
	err := q.Order("occurred_at DESC, created_at DESC").Find(&entries).Error
	return entries, err
}

func applyActivityFilter(q *gorm.DB, filter ActivityFilter) *gorm.DB {
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.From != nil {
		q = q.Where("occurred_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("occurred_at < ?", *filter.To)
	}
	limit := filter.Limit
	if limit < 1 || limit > 1000 {
		limit = 50
	}
	return q.Limit(limit)
}

func (r *activityRepo) AggregateWindow(ctx context.Context, from, to time.Time) (*WindowCounts, error) {
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&model.ActivityEntry{}).
			Where("occurred_at >= ? AND occurred_at < ?", from, to)
	}

	var counts WindowCounts

	type countRow struct{ N int64 }
	queries := []struct {
		dst  *int
		cond *gorm.DB
	}{
		{&counts.NewRegistrations, base().Where("type = ?", "registration")},
		{&counts.Logins, base().Where("type = ? AND action = ? AND success", "authentication", "login")},
		{&counts.FailedLogins, base().Where("type = ? AND action = ? AND NOT success", "authentication", "login")},
		{&counts.PageViews, base().Where("type = ?", "page_view")},
		{&counts.ServiceActions, base().Where("category = ?", "user_action")},
		{&counts.Errors, base().Where("NOT success")},
	}
	for _, q := range queries {
		var row countRow
		if err := q.cond.Select("COUNT(*) AS n").Scan(&row).Error; err != nil {
			return nil, err
		}
		*q.dst = int(row.N)
	}

	var active countRow
	if err := base().Where("subject_id IS NOT NULL").
		Select("COUNT(DISTINCT subject_id) AS n").Scan(&active).Error; err != nil {
		return nil, err
	}
	counts.ActiveUsers = int(active.N)

	type avgRow struct{ Avg *float64 }
	var avg avgRow
	if err := base().Where("duration_ms IS NOT NULL").
		Select("AVG(duration_ms) AS avg").Scan(&avg).Error; err != nil {
		return nil, err
	}
	if avg.Avg != nil {
		counts.AvgResponseMs = *avg.Avg
	}

	return &counts, nil
}

func (r *activityRepo) DB() *gorm.DB { return r.db }
