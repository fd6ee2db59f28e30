package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gmcore/internal/model"
	"gmcore/internal/repository"
	"gmcore/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKeyring struct{ key model.SecretKey }

func (f *fakeKeyring) GetActive(ctx context.Context, kind string) (*model.SecretKey, error) {
	k := f.key
	return &k, nil
}

func (f *fakeKeyring) VerificationKeys(ctx context.Context, kind string) ([]model.SecretKey, error) {
	return []model.SecretKey{f.key}, nil
}

func (f *fakeKeyring) Rotate(ctx context.Context, kind string) (*model.SecretKey, error) {
	k := f.key
	return &k, nil
}

func (f *fakeKeyring) RotateExpired(ctx context.Context) ([]string, error) { return nil, nil }

func (f *fakeKeyring) Status(ctx context.Context) ([]service.KeyStatus, error) { return nil, nil }

type touch struct {
	token     string
	pageViews int
	actions   int
}

type fakeActivity struct {
	touches  []touch
	recorded []service.RecordInput
}

func (f *fakeActivity) Record(ctx context.Context, in service.RecordInput) error {
	f.recorded = append(f.recorded, in)
	return nil
}

func (f *fakeActivity) Scrub(form map[string]any) map[string]any { return form }

func (f *fakeActivity) ListForUser(ctx context.Context, userID uuid.UUID, filter repository.ActivityFilter) ([]model.ActivityEntry, error) {
	return nil, nil
}

func (f *fakeActivity) ListRecent(ctx context.Context, filter repository.ActivityFilter) ([]model.ActivityEntry, error) {
	return nil, nil
}

func (f *fakeActivity) OpenSession(ctx context.Context, userID uuid.UUID, method string, req *service.RequestInfo) (*model.LoginSession, error) {
	return nil, nil
}

func (f *fakeActivity) CloseSession(ctx context.Context, token, reason string) error { return nil }

func (f *fakeActivity) TouchSession(ctx context.Context, token string, pageViews, actions int) error {
	f.touches = append(f.touches, touch{token: token, pageViews: pageViews, actions: actions})
	return nil
}

func (f *fakeActivity) CloseIdleSessions(ctx context.Context, idleFor time.Duration) (int, error) {
	return 0, nil
}

func (f *fakeActivity) RecordRegistration(ctx context.Context, userID uuid.UUID, req *service.RequestInfo) error {
	return nil
}

func (f *fakeActivity) RecordFailedLogin(ctx context.Context, username string, req *service.RequestInfo) error {
	return nil
}

func signToken(t *testing.T, key, session string) string {
	t.Helper()
	claims := &JWTClaims{
		UserID:   uuid.New().String(),
		Username: "clerk",
		Role:     "staff",
		Session:  session,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return signed
}

func newAuthRig(activity *fakeActivity) (*gin.Engine, *fakeKeyring) {
	gin.SetMode(gin.TestMode)
	keyring := &fakeKeyring{key: model.SecretKey{
		Kind:   model.KeyToken,
		Value:  "test-signing-key",
		Active: true,
	}}
	r := gin.New()
	r.Use(ActivityCapture(activity))
	r.Use(JWTAuth(keyring))
	r.GET("/items", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/items", func(c *gin.Context) { c.Status(http.StatusCreated) })
	return r, keyring
}

func TestJWTAuthBumpsSessionOnEachRequest(t *testing.T) {
	activity := &fakeActivity{}
	r, keyring := newAuthRig(activity)
	token := signToken(t, keyring.key.Value, "session-token-abc")

	req := httptest.NewRequest(http.MethodGet, "/items", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, activity.touches, 1)
	assert.Equal(t, "session-token-abc", activity.touches[0].token)
	assert.Equal(t, 1, activity.touches[0].pageViews)
	assert.Zero(t, activity.touches[0].actions)

	req = httptest.NewRequest(http.MethodPost, "/items", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	require.Len(t, activity.touches, 2)
	assert.Equal(t, 1, activity.touches[1].actions)
}

func TestJWTAuthWithoutSessionClaimSkipsBump(t *testing.T) {
	activity := &fakeActivity{}
	r, keyring := newAuthRig(activity)
	token := signToken(t, keyring.key.Value, "")

	req := httptest.NewRequest(http.MethodGet, "/items", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Empty(t, activity.touches)
}

func TestJWTAuthRejectsMissingAndInvalidTokens(t *testing.T) {
	activity := &fakeActivity{}
	r, _ := newAuthRig(activity)

	req := httptest.NewRequest(http.MethodGet, "/items", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/items", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "wrong-key", "s"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, activity.touches)
}
