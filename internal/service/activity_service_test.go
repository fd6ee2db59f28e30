package service

import (
	"context"
	"testing"
	"time"

	"gmcore/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDenyList = []string{"password", "confirm_password", "token", "csrf_token", "api_key"}

type activityFixture struct {
	activity ActivityService
	journal  *stubActivityRepo
	sessions *stubSessionRepo
	usage    *stubUsageRepo
}

func newActivityFixture(t *testing.T) *activityFixture {
	t.Helper()
	journal := newStubActivityRepo()
	sessions := newStubSessionRepo()
	usage := newStubUsageRepo()
	return &activityFixture{
		activity: NewActivityService(journal, sessions, usage, testDenyList),
		journal:  journal,
		sessions: sessions,
		usage:    usage,
	}
}

func TestScrubRemovesSensitiveKeys(t *testing.T) {
	f := newActivityFixture(t)

	clean := f.activity.Scrub(map[string]any{
		"email":    "a@b",
		"password": "hunter2",
	})
	assert.Equal(t, map[string]any{"email": "a@b"}, clean)

	// Matching is case-insensitive; the key is removed, never masked.
	clean = f.activity.Scrub(map[string]any{
		"username":         "maria",
		"PASSWORD":         "x",
		"Confirm_Password": "x",
		"csrf_token":       "x",
		"api_key":          "x",
		"note":             "restock please",
	})
	assert.Equal(t, map[string]any{"username": "maria", "note": "restock please"}, clean)
	assert.NotContains(t, clean, "PASSWORD")
	assert.NotContains(t, clean, "password")
}

func TestRecordStoresScrubbedFormData(t *testing.T) {
	ctx := context.Background()
	f := newActivityFixture(t)
	subject := uuid.New()

	err := f.activity.Record(ctx, RecordInput{
		SubjectID: &subject,
		Type:      "request",
		Action:    "POST /login",
		Category:  "auth",
		Success:   true,
		FormData:  map[string]any{"email": "a@b", "password": "p"},
		Request:   &RequestInfo{IPAddress: "10.0.0.1", Method: "POST", URL: "/login"},
	})
	require.NoError(t, err)

	require.Len(t, f.journal.entries, 1)
	entry := f.journal.entries[0]
	form, ok := entry.Metadata["form_data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"email": "a@b"}, form)
	require.NotNil(t, entry.IPAddress)
	assert.Equal(t, "10.0.0.1", *entry.IPAddress)
	assert.False(t, entry.OccurredAt.IsZero())
}

func TestRecordWithoutFormDataLeavesMetadataAlone(t *testing.T) {
	ctx := context.Background()
	f := newActivityFixture(t)

	err := f.activity.Record(ctx, RecordInput{
		Type:     "system",
		Action:   "sweep",
		Category: "system",
		Success:  true,
		Metadata: map[string]any{"items": 12},
	})
	require.NoError(t, err)

	entry := f.journal.entries[0]
	assert.NotContains(t, entry.Metadata, "form_data")
	assert.EqualValues(t, 12, entry.Metadata["items"])
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newActivityFixture(t)
	user := uuid.New()

	session, err := f.activity.OpenSession(ctx, user, "password", &RequestInfo{IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	assert.Len(t, session.SessionToken, 64)
	assert.True(t, session.Active)

	// Login is journaled and the daily counter bumped.
	logins, err := f.journal.ListRecent(ctx, repository.ActivityFilter{Type: "authentication"})
	require.NoError(t, err)
	require.Len(t, logins, 1)
	assert.Equal(t, "login", logins[0].Action)

	today, err := f.usage.Find(ctx, time.Now().UTC().Truncate(24*time.Hour), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, today.Logins)

	require.NoError(t, f.activity.TouchSession(ctx, session.SessionToken, 3, 1))
	touched, err := f.sessions.FindByToken(ctx, session.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, 3, touched.PageViews)
	assert.Equal(t, 1, touched.ActionCount)

	// Zero bumps never hit the store.
	require.NoError(t, f.activity.TouchSession(ctx, session.SessionToken, 0, 0))

	require.NoError(t, f.activity.CloseSession(ctx, session.SessionToken, "manual"))
	closed, err := f.sessions.FindByToken(ctx, session.SessionToken)
	require.NoError(t, err)
	assert.False(t, closed.Active)
	require.NotNil(t, closed.LogoutReason)
	assert.Equal(t, "manual", *closed.LogoutReason)
	require.NotNil(t, closed.LogoutAt)
}

func TestCloseSessionIsNoopWhenUnknownOrClosed(t *testing.T) {
	ctx := context.Background()
	f := newActivityFixture(t)

	assert.NoError(t, f.activity.CloseSession(ctx, "no-such-token", "manual"))

	session, err := f.activity.OpenSession(ctx, uuid.New(), "password", nil)
	require.NoError(t, err)
	require.NoError(t, f.activity.CloseSession(ctx, session.SessionToken, "manual"))
	require.NoError(t, f.activity.CloseSession(ctx, session.SessionToken, "forced"))

	closed, err := f.sessions.FindByToken(ctx, session.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, "manual", *closed.LogoutReason)
}

func TestCloseIdleSessions(t *testing.T) {
	ctx := context.Background()
	f := newActivityFixture(t)

	idle, err := f.activity.OpenSession(ctx, uuid.New(), "password", nil)
	require.NoError(t, err)
	fresh, err := f.activity.OpenSession(ctx, uuid.New(), "password", nil)
	require.NoError(t, err)

	f.sessions.sessions[idle.SessionToken].LastSeenAt = time.Now().UTC().Add(-3 * time.Hour)

	closed, err := f.activity.CloseIdleSessions(ctx, 2*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	idleAfter, err := f.sessions.FindByToken(ctx, idle.SessionToken)
	require.NoError(t, err)
	assert.False(t, idleAfter.Active)
	assert.Equal(t, "timeout", *idleAfter.LogoutReason)

	freshAfter, err := f.sessions.FindByToken(ctx, fresh.SessionToken)
	require.NoError(t, err)
	assert.True(t, freshAfter.Active)
}

func TestAuthEventsBumpUsageCounters(t *testing.T) {
	ctx := context.Background()
	f := newActivityFixture(t)
	user := uuid.New()

	require.NoError(t, f.activity.RecordRegistration(ctx, user, nil))
	require.NoError(t, f.activity.RecordFailedLogin(ctx, "maria", nil))
	require.NoError(t, f.activity.RecordFailedLogin(ctx, "maria", nil))

	today, err := f.usage.Find(ctx, time.Now().UTC().Truncate(24*time.Hour), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, today.NewRegistrations)
	assert.Equal(t, 2, today.FailedLogins)

	// The failed logins are journaled with the attempted username.
	failed, err := f.journal.ListRecent(ctx, repository.ActivityFilter{Type: "authentication"})
	require.NoError(t, err)
	var failures int
	for _, e := range failed {
		if !e.Success {
			failures++
			assert.Equal(t, "maria", e.Metadata["username"])
		}
	}
	assert.Equal(t, 2, failures)
}

func TestListForUserFiltersBySubject(t *testing.T) {
	ctx := context.Background()
	f := newActivityFixture(t)
	alice := uuid.New()
	bob := uuid.New()

	require.NoError(t, f.activity.Record(ctx, RecordInput{SubjectID: &alice, Type: "request", Action: "GET /items", Category: "user_action", Success: true}))
	require.NoError(t, f.activity.Record(ctx, RecordInput{SubjectID: &bob, Type: "request", Action: "GET /alerts", Category: "user_action", Success: true}))

	entries, err := f.activity.ListForUser(ctx, alice, repository.ActivityFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "GET /items", entries[0].Action)
}
