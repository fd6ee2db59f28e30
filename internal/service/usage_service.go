package service

import (
	"context"
	"fmt"
	"time"

	"gmcore/internal/model"
	"gmcore/internal/repository"

	"github.com/rs/zerolog/log"
)

// UsageService rolls the activity journal into daily and hourly buckets.
// Every rollup recomputes its window from the journal, so replaying a
// window converges on the same counters.
type UsageService interface {
	// RollupHour recomputes the hourly bucket containing the given instant.
	RollupHour(ctx context.Context, at time.Time) (*model.UsageBucket, error)
	// RollupDay recomputes the whole-day bucket for the given date,
	// replacing any opportunistic same-day increments.
	RollupDay(ctx context.Context, date time.Time) (*model.UsageBucket, error)
	Find(ctx context.Context, date time.Time, hour *int) (*model.UsageBucket, error)
	ListRange(ctx context.Context, from, to time.Time) ([]model.UsageBucket, error)
}

type usageService struct {
	repo         repository.UsageRepository
	activityRepo repository.ActivityRepository
}

func NewUsageService(repo repository.UsageRepository, activityRepo repository.ActivityRepository) UsageService {
	return &usageService{repo: repo, activityRepo: activityRepo}
}

func (s *usageService) RollupHour(ctx context.Context, at time.Time) (*model.UsageBucket, error) {
	start := at.UTC().Truncate(time.Hour)
	counts, err := s.activityRepo.AggregateWindow(ctx, start, start.Add(time.Hour))
	if err != nil {
		return nil, fmt.Errorf("hourly rollup: %w", err)
	}

	bucket := bucketFrom(counts)
	bucket.Date = start.Truncate(24 * time.Hour)
	bucket.Hour = start.Hour()
	if err := s.repo.Upsert(ctx, bucket); err != nil {
		return nil, fmt.Errorf("hourly rollup: %w", err)
	}

	log.Debug().
		Time("window_start", start).
		Int("logins", bucket.Logins).
		Int("page_views", bucket.PageViews).
		Msg("hourly usage rollup")
	return bucket, nil
}

func (s *usageService) RollupDay(ctx context.Context, date time.Time) (*model.UsageBucket, error) {
	day := date.UTC().Truncate(24 * time.Hour)
	counts, err := s.activityRepo.AggregateWindow(ctx, day, day.Add(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("daily rollup: %w", err)
	}

	bucket := bucketFrom(counts)
	bucket.Date = day
	bucket.Hour = model.HourWholeDay
	if err := s.repo.Upsert(ctx, bucket); err != nil {
		return nil, fmt.Errorf("daily rollup: %w", err)
	}

	log.Info().
		Time("date", day).
		Int("active_users", bucket.ActiveUsers).
		Int("logins", bucket.Logins).
		Msg("daily usage rollup")
	return bucket, nil
}

func (s *usageService) Find(ctx context.Context, date time.Time, hour *int) (*model.UsageBucket, error) {
	return s.repo.Find(ctx, date, hour)
}

func (s *usageService) ListRange(ctx context.Context, from, to time.Time) ([]model.UsageBucket, error) {
	return s.repo.ListRange(ctx, from, to)
}

func bucketFrom(c *repository.WindowCounts) *model.UsageBucket {
	return &model.UsageBucket{
		ActiveUsers:      c.ActiveUsers,
		NewRegistrations: c.NewRegistrations,
		Logins:           c.Logins,
		FailedLogins:     c.FailedLogins,
		PageViews:        c.PageViews,
		ServiceActions:   c.ServiceActions,
		Errors:           c.Errors,
		AvgResponseMs:    c.AvgResponseMs,
	}
}
