package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"gmcore/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeKeysOf(repo *stubKeyRepo, kind string) []model.SecretKey {
	var out []model.SecretKey
	for _, k := range repo.keys {
		if k.Kind == kind && k.Active {
			out = append(out, *k)
		}
	}
	return out
}

func TestGetActiveMintsFirstGeneration(t *testing.T) {
	ctx := context.Background()
	repo := newStubKeyRepo()
	svc := NewKeyringService(repo, 28, 7)

	key, err := svc.GetActive(ctx, model.KeySession)
	require.NoError(t, err)
	assert.True(t, key.Active)
	assert.Len(t, key.Value, 64)
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, 28), key.ExpiresAt, time.Minute)

	// A second read returns the same generation, not a new one.
	again, err := svc.GetActive(ctx, model.KeySession)
	require.NoError(t, err)
	assert.Equal(t, key.ID, again.ID)
	assert.Equal(t, key.Value, again.Value)
	assert.Len(t, repo.keys, 1)
}

func TestRotateKeepsExactlyOneActive(t *testing.T) {
	ctx := context.Background()
	repo := newStubKeyRepo()
	svc := NewKeyringService(repo, 28, 7)

	first, err := svc.GetActive(ctx, model.KeyToken)
	require.NoError(t, err)

	next, err := svc.Rotate(ctx, model.KeyToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, next.ID)
	assert.NotEqual(t, first.Value, next.Value)

	active := activeKeysOf(repo, model.KeyToken)
	require.Len(t, active, 1)
	assert.Equal(t, next.ID, active[0].ID)

	// Rotation per kind is independent.
	_, err = svc.GetActive(ctx, model.KeyCSRF)
	require.NoError(t, err)
	assert.Len(t, activeKeysOf(repo, model.KeyCSRF), 1)
	assert.Len(t, activeKeysOf(repo, model.KeyToken), 1)
}

func TestVerificationKeysIncludePreviousGeneration(t *testing.T) {
	ctx := context.Background()
	repo := newStubKeyRepo()
	svc := NewKeyringService(repo, 28, 7)

	first, err := svc.GetActive(ctx, model.KeySession)
	require.NoError(t, err)

	// One generation only: a single verification key.
	keys, err := svc.VerificationKeys(ctx, model.KeySession)
	require.NoError(t, err)
	assert.Len(t, keys, 1)

	next, err := svc.Rotate(ctx, model.KeySession)
	require.NoError(t, err)

	keys, err = svc.VerificationKeys(ctx, model.KeySession)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, next.ID, keys[0].ID)
	assert.Equal(t, first.ID, keys[1].ID)
	assert.True(t, keys[0].Active)
	assert.False(t, keys[1].Active)
}

func TestGetActivePastExpiryRotates(t *testing.T) {
	ctx := context.Background()
	repo := newStubKeyRepo()
	svc := NewKeyringService(repo, 28, 7)

	first, err := svc.GetActive(ctx, model.KeySession)
	require.NoError(t, err)

	for _, k := range repo.keys {
		if k.ID == first.ID {
			k.ExpiresAt = time.Now().UTC().Add(-time.Hour)
		}
	}

	fresh, err := svc.GetActive(ctx, model.KeySession)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, fresh.ID)
	assert.True(t, fresh.ExpiresAt.After(time.Now().UTC()))
	assert.Len(t, activeKeysOf(repo, model.KeySession), 1)
}

func TestRotateExpiredOnlyTouchesDueKinds(t *testing.T) {
	ctx := context.Background()
	repo := newStubKeyRepo()
	svc := NewKeyringService(repo, 28, 7)

	session, err := svc.GetActive(ctx, model.KeySession)
	require.NoError(t, err)
	csrf, err := svc.GetActive(ctx, model.KeyCSRF)
	require.NoError(t, err)

	for _, k := range repo.keys {
		if k.ID == session.ID {
			k.ExpiresAt = time.Now().UTC().Add(-time.Minute)
		}
	}

	rotated, err := svc.RotateExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{model.KeySession}, rotated)

	stillCSRF, err := svc.GetActive(ctx, model.KeyCSRF)
	require.NoError(t, err)
	assert.Equal(t, csrf.ID, stillCSRF.ID)
}

func TestStatusReportsAllManagedKinds(t *testing.T) {
	ctx := context.Background()
	repo := newStubKeyRepo()
	svc := NewKeyringService(repo, 28, 7)

	statuses, err := svc.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 3)

	kinds := map[string]bool{}
	for _, st := range statuses {
		kinds[st.Kind] = true
		assert.False(t, st.Expiring)
		assert.Equal(t, 27, st.DaysToExpiry)
	}
	assert.True(t, kinds[model.KeySession])
	assert.True(t, kinds[model.KeyCSRF])
	assert.True(t, kinds[model.KeyToken])
}

func TestGenerateKeyCharset(t *testing.T) {
	value, err := generateKey(keyLength)
	require.NoError(t, err)
	assert.Len(t, value, 64)

	// No characters that break naive config interpolation.
	assert.NotContains(t, value, `"`)
	assert.NotContains(t, value, "'")
	assert.NotContains(t, value, `\`)
	for _, c := range value {
		assert.True(t, strings.ContainsRune(keyAlphabet, c), "unexpected character %q", c)
	}

	other, err := generateKey(keyLength)
	require.NoError(t, err)
	assert.NotEqual(t, value, other)
}
