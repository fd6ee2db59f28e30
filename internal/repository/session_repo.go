package repository

import (
	"context"
	"time"

	"gmcore/internal/model"

	"gorm.io/gorm"
)

type SessionRepository interface {
	Create(ctx context.Context, s *model.LoginSession) error
	FindByToken(ctx context.Context, token string) (*model.LoginSession, error)
	Save(ctx context.Context, s *model.LoginSession) error
	// BumpCounters applies coalesced page-view/action increments and moves
	// last_seen_at forward in a single UPDATE.
	BumpCounters(ctx context.Context, token string, pageViews, actions int, lastSeen time.Time) error
	// CloseIdleBefore closes every open session whose last_seen_at predates
	// the cutoff. Returns tokens of the sessions closed.
	CloseIdleBefore(ctx context.Context, cutoff time.Time, reason string) ([]string, error)
	DB() *gorm.DB
}

type sessionRepo struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository { return &sessionRepo{db: db} }

func (r *sessionRepo) Create(ctx context.Context, s *model.LoginSession) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *sessionRepo) FindByToken(ctx context.Context, token string) (*model.LoginSession, error) {
	var s model.LoginSession
	err := r.db.WithContext(ctx).Where("session_token = ?", token).First(&s).Error
	return &s, err
}

func (r *sessionRepo) Save(ctx context.Context, s *model.LoginSession) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *sessionRepo) BumpCounters(ctx context.Context, token string, pageViews, actions int, lastSeen time.Time) error {
	return r.db.WithContext(ctx).Model(&model.LoginSession{}).
		Where("session_token = ? AND active", token).
		Updates(map[string]interface{}{
			"page_views":   gorm.Expr("page_views + ?", pageViews),
			"action_count": gorm.Expr("action_count + ?", actions),
			"last_seen_at": lastSeen,
		}).Error
}

func (r *sessionRepo) CloseIdleBefore(ctx context.Context, cutoff time.Time, reason string) ([]string, error) {
	var tokens []string
	err := r.db.WithContext(ctx).Model(&model.LoginSession{}).
		Where("active AND last_seen_at < ?", cutoff).
		Pluck("session_token", &tokens).Error
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, nil
	}
	err = r.db.WithContext(ctx).Model(&model.LoginSession{}).
		Where("session_token IN ?", tokens).
		Updates(map[string]interface{}{
			"active":        false,
			"logout_at":     time.Now().UTC(),
			"logout_reason": reason,
		}).Error
	return tokens, err
}

func (r *sessionRepo) DB() *gorm.DB { return r.db }
