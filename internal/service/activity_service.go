package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"gmcore/internal/model"
	"gmcore/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

// RequestInfo carries the HTTP context of an activity, when one exists.
type RequestInfo struct {
	IPAddress string
	UserAgent string
	Method    string
	URL       string
}

// RecordInput describes one journal entry. FormData, if present, is
// scrubbed and stored under metadata["form_data"]; call sites never
// write raw form data into Metadata themselves.
type RecordInput struct {
	SubjectID    *uuid.UUID
	ActorID      *uuid.UUID
	Type         string
	Action       string
	Category     string
	Description  string
	Request      *RequestInfo
	Metadata     map[string]any
	FormData     map[string]any
	Success      bool
	ErrorMessage string
	DurationMs   *int
	OccurredAt   time.Time
}

// ActivityService owns the journal and the login-session lifecycle.
// Journal writes are after-the-fact records: a failed write is logged
// and dropped, never surfaced to the operation being recorded.
type ActivityService interface {
	// Record persists one journal entry. Sensitive form keys are removed
	// here, the only path into the journal.
	Record(ctx context.Context, in RecordInput) error
	// Scrub returns a copy of form data with deny-listed keys removed.
	Scrub(form map[string]any) map[string]any

	ListForUser(ctx context.Context, userID uuid.UUID, filter repository.ActivityFilter) ([]model.ActivityEntry, error)
	ListRecent(ctx context.Context, filter repository.ActivityFilter) ([]model.ActivityEntry, error)

	// OpenSession creates a LoginSession with a fresh opaque token and
	// journals the login.
	OpenSession(ctx context.Context, userID uuid.UUID, method string, req *RequestInfo) (*model.LoginSession, error)
	// CloseSession ends a session; closing an already-closed or unknown
	// token is a no-op.
	CloseSession(ctx context.Context, token, reason string) error
	// TouchSession applies coalesced counter bumps to an open session.
	TouchSession(ctx context.Context, token string, pageViews, actions int) error
	// CloseIdleSessions times out sessions idle past the cutoff and
	// journals each as a timeout logout.
	CloseIdleSessions(ctx context.Context, idleFor time.Duration) (int, error)

	// RecordRegistration and RecordFailedLogin journal auth outcomes and
	// bump the daily usage counters opportunistically.
	RecordRegistration(ctx context.Context, userID uuid.UUID, req *RequestInfo) error
	RecordFailedLogin(ctx context.Context, username string, req *RequestInfo) error
}

type activityService struct {
	repo        repository.ActivityRepository
	sessionRepo repository.SessionRepository
	usageRepo   repository.UsageRepository
	denyList    map[string]bool
}

func NewActivityService(
	repo repository.ActivityRepository,
	sessionRepo repository.SessionRepository,
	usageRepo repository.UsageRepository,
	denyList []string,
) ActivityService {
	deny := make(map[string]bool, len(denyList))
	for _, k := range denyList {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			deny[k] = true
		}
	}
	return &activityService{
		repo:        repo,
		sessionRepo: sessionRepo,
		usageRepo:   usageRepo,
		denyList:    deny,
	}
}

// ── Journal ──────────────────────────────────────────────────────────────────

func (s *activityService) Record(ctx context.Context, in RecordInput) error {
	entry := &model.ActivityEntry{
		SubjectID:  in.SubjectID,
		ActorID:    in.ActorID,
		Type:       in.Type,
		Action:     in.Action,
		Category:   in.Category,
		Success:    in.Success,
		DurationMs: in.DurationMs,
		OccurredAt: in.OccurredAt,
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}
	if in.Description != "" {
		entry.Description = &in.Description
	}
	if in.ErrorMessage != "" {
		entry.ErrorMessage = &in.ErrorMessage
	}
	if in.Request != nil {
		entry.IPAddress = strptr(in.Request.IPAddress)
		entry.UserAgent = strptr(in.Request.UserAgent)
		entry.RequestMethod = strptr(in.Request.Method)
		entry.RequestURL = strptr(in.Request.URL)
	}

	metadata := datatypes.JSONMap{}
	for k, v := range in.Metadata {
		metadata[k] = v
	}
	if in.FormData != nil {
		metadata["form_data"] = s.Scrub(in.FormData)
	}
	if len(metadata) > 0 {
		entry.Metadata = metadata
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		log.Error().Err(err).
			Str("type", in.Type).
			Str("action", in.Action).
			Msg("activity journal write failed")
		return err
	}
	return nil
}

func (s *activityService) Scrub(form map[string]any) map[string]any {
	clean := make(map[string]any, len(form))
	for k, v := range form {
		if s.denyList[strings.ToLower(k)] {
			continue
		}
		clean[k] = v
	}
	return clean
}

func (s *activityService) ListForUser(ctx context.Context, userID uuid.UUID, filter repository.ActivityFilter) ([]model.ActivityEntry, error) {
	return s.repo.ListForUser(ctx, userID, filter)
}

func (s *activityService) ListRecent(ctx context.Context, filter repository.ActivityFilter) ([]model.ActivityEntry, error) {
	return s.repo.ListRecent(ctx, filter)
}

// ── Sessions ─────────────────────────────────────────────────────────────────

func (s *activityService) OpenSession(ctx context.Context, userID uuid.UUID, method string, req *RequestInfo) (*model.LoginSession, error) {
	token, err := newSessionToken()
	if err != nil {
		return nil, fmt.Errorf("session token: %w", err)
	}
	now := time.Now().UTC()
	session := &model.LoginSession{
		UserID:       userID,
		SessionToken: token,
		LoginAt:      now,
		LastSeenAt:   now,
		LoginMethod:  method,
		Active:       true,
	}
	if req != nil {
		session.IPAddress = strptr(req.IPAddress)
		session.UserAgent = strptr(req.UserAgent)
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	s.journalAuth(ctx, &userID, "login", true, "", req)
	s.bumpUsage(ctx, "logins")
	return session, nil
}

func (s *activityService) CloseSession(ctx context.Context, token, reason string) error {
	session, err := s.sessionRepo.FindByToken(ctx, token)
	if err != nil {
		return nil
	}
	if !session.Active {
		return nil
	}
	now := time.Now().UTC()
	session.Active = false
	session.LogoutAt = &now
	session.LogoutReason = &reason
	if err := s.sessionRepo.Save(ctx, session); err != nil {
		return err
	}
	s.journalAuth(ctx, &session.UserID, "logout", true, "", nil)
	return nil
}

func (s *activityService) TouchSession(ctx context.Context, token string, pageViews, actions int) error {
	if pageViews == 0 && actions == 0 {
		return nil
	}
	return s.sessionRepo.BumpCounters(ctx, token, pageViews, actions, time.Now().UTC())
}

func (s *activityService) CloseIdleSessions(ctx context.Context, idleFor time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-idleFor)
	tokens, err := s.sessionRepo.CloseIdleBefore(ctx, cutoff, "timeout")
	if err != nil {
		return 0, err
	}
	for range tokens {
		s.journalAuth(ctx, nil, "logout", true, "idle timeout", nil)
	}
	if len(tokens) > 0 {
		log.Info().Int("closed", len(tokens)).Msg("idle sessions closed")
	}
	return len(tokens), nil
}

// ── Auth events ──────────────────────────────────────────────────────────────

func (s *activityService) RecordRegistration(ctx context.Context, userID uuid.UUID, req *RequestInfo) error {
	err := s.Record(ctx, RecordInput{
		SubjectID: &userID,
		Type:      "registration",
		Action:    "register",
		Category:  "auth",
		Success:   true,
		Request:   req,
	})
	s.bumpUsage(ctx, "new_registrations")
	return err
}

func (s *activityService) RecordFailedLogin(ctx context.Context, username string, req *RequestInfo) error {
	err := s.Record(ctx, RecordInput{
		Type:     "authentication",
		Action:   "login",
		Category: "auth",
		Success:  false,
		Metadata: map[string]any{"username": username},
		Request:  req,
	})
	s.bumpUsage(ctx, "failed_logins")
	return err
}

func (s *activityService) journalAuth(ctx context.Context, userID *uuid.UUID, action string, success bool, detail string, req *RequestInfo) {
	in := RecordInput{
		SubjectID:   userID,
		Type:        "authentication",
		Action:      action,
		Category:    "auth",
		Description: detail,
		Success:     success,
		Request:     req,
	}
	// Journal failures never fail the auth path.
	_ = s.Record(ctx, in)
}

// bumpUsage nudges today's daily bucket; the end-of-day rollup recomputes
// from the journal, so a missed bump self-heals.
func (s *activityService) bumpUsage(ctx context.Context, column string) {
	if err := s.usageRepo.IncrementDaily(ctx, time.Now().UTC(), column, 1); err != nil {
		log.Warn().Err(err).Str("column", column).Msg("usage bump failed")
	}
}

func newSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func strptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
