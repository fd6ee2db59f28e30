package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"gmcore/internal/model"
	"gmcore/internal/repository"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// keyLength is the number of characters in a generated secret.
const keyLength = 64

// keyAlphabet excludes quote and backslash characters so generated
// values survive naive config interpolation.
const keyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789" +
	"!#$%&()*+,-./:;<=>?@[]^_{|}~"

// KeyStatus reports one kind's rotation state.
type KeyStatus struct {
	Kind         string    `json:"kind"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	DaysToExpiry int       `json:"days_to_expiry"`
	Expiring     bool      `json:"expiring"`
}

// KeyringService manages the rotating secrets used for session signing,
// CSRF protection, and token issuance. Rotation guarantees exactly one
// active key per kind; the previous generation stays readable so
// signatures issued just before a rotation still verify.
type KeyringService interface {
	// GetActive returns the active key for a kind, minting the first
	// generation on initial use.
	GetActive(ctx context.Context, kind string) (*model.SecretKey, error)
	// VerificationKeys returns the active key plus the previous
	// generation when one exists, newest first.
	VerificationKeys(ctx context.Context, kind string) ([]model.SecretKey, error)
	// Rotate deactivates the current key for a kind and mints a new one.
	Rotate(ctx context.Context, kind string) (*model.SecretKey, error)
	// RotateExpired rotates every kind whose active key has passed its
	// expiry. Returns the kinds rotated.
	RotateExpired(ctx context.Context) ([]string, error)
	// Status reports rotation state for all managed kinds.
	Status(ctx context.Context) ([]KeyStatus, error)
}

type keyringService struct {
	repo         repository.KeyRepository
	rotationDays int
	warningDays  int
}

func NewKeyringService(repo repository.KeyRepository, rotationDays, warningDays int) KeyringService {
	if rotationDays <= 0 {
		rotationDays = 28
	}
	if warningDays <= 0 {
		warningDays = 7
	}
	return &keyringService{repo: repo, rotationDays: rotationDays, warningDays: warningDays}
}

// managedKinds is the fixed set of secrets the keyring owns.
var managedKinds = []string{model.KeySession, model.KeyCSRF, model.KeyToken}

func (s *keyringService) GetActive(ctx context.Context, kind string) (*model.SecretKey, error) {
	key, err := s.repo.FindActive(ctx, kind)
	if err == nil {
		if time.Now().UTC().After(key.ExpiresAt) {
			return s.Rotate(ctx, kind)
		}
		return key, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	// First use of this kind: mint generation one.
	return s.Rotate(ctx, kind)
}

func (s *keyringService) VerificationKeys(ctx context.Context, kind string) ([]model.SecretKey, error) {
	active, err := s.GetActive(ctx, kind)
	if err != nil {
		return nil, err
	}
	keys := []model.SecretKey{*active}
	if previous, err := s.repo.FindPrevious(ctx, kind); err == nil {
		keys = append(keys, *previous)
	}
	return keys, nil
}

func (s *keyringService) Rotate(ctx context.Context, kind string) (*model.SecretKey, error) {
	value, err := generateKey(keyLength)
	if err != nil {
		return nil, fmt.Errorf("rotate %s: %w", kind, err)
	}

	now := time.Now().UTC()
	next := &model.SecretKey{
		Kind:      kind,
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.AddDate(0, 0, s.rotationDays),
		Active:    true,
	}

	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		current, err := s.repo.FindActiveForUpdate(tx, kind)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err == nil {
			current.Active = false
			if err := s.repo.SaveTx(tx, current); err != nil {
				return err
			}
		}
		// The old row is deactivated before the insert so the partial
		// unique index on (kind) WHERE active never sees two rows.
		return s.repo.CreateTx(tx, next)
	})
	if err != nil {
		return nil, fmt.Errorf("rotate %s: %w", kind, err)
	}

	log.Info().Str("kind", kind).Time("expires_at", next.ExpiresAt).Msg("secret key rotated")
	return next, nil
}

func (s *keyringService) RotateExpired(ctx context.Context) ([]string, error) {
	now := time.Now().UTC()
	expired, err := s.repo.ListExpiringBefore(ctx, now)
	if err != nil {
		return nil, err
	}

	var rotated []string
	for _, key := range expired {
		if _, err := s.Rotate(ctx, key.Kind); err != nil {
			log.Error().Err(err).Str("kind", key.Kind).Msg("scheduled rotation failed")
			continue
		}
		rotated = append(rotated, key.Kind)
	}

	// Warn on keys inside the expiry window but not yet due.
	warning, err := s.repo.ListExpiringBefore(ctx, now.AddDate(0, 0, s.warningDays))
	if err == nil {
		for _, key := range warning {
			if key.ExpiresAt.After(now) {
				log.Warn().
					Str("kind", key.Kind).
					Int("days_to_expiry", key.DaysToExpiry(now)).
					Msg("secret key expiring soon")
			}
		}
	}
	return rotated, nil
}

func (s *keyringService) Status(ctx context.Context) ([]KeyStatus, error) {
	statuses := make([]KeyStatus, 0, len(managedKinds))
	for _, kind := range managedKinds {
		key, err := s.GetActive(ctx, kind)
		if err != nil {
			return nil, err
		}
		// GetActive may have just minted the key, so now is taken after it.
		days := key.DaysToExpiry(time.Now().UTC())
		statuses = append(statuses, KeyStatus{
			Kind:         kind,
			CreatedAt:    key.CreatedAt,
			ExpiresAt:    key.ExpiresAt,
			DaysToExpiry: days,
			Expiring:     days <= s.warningDays,
		})
	}
	return statuses, nil
}

// generateKey draws n characters uniformly from the safe alphabet.
func generateKey(n int) (string, error) {
	max := big.NewInt(int64(len(keyAlphabet)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = keyAlphabet[idx.Int64()]
	}
	return string(buf), nil
}
