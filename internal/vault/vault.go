package vault

import (
	"context"
	"fmt"
	"time"

	"contentgate/api/internal/models"
	"contentgate/api/internal/security"
)

const (
	DefaultOTPTTL   = 10 * time.Minute
	DefaultTokenTTL = 5 * time.Minute

	verificationTokenBytes = 32
)

type Config struct {
	OTPTTL   time.Duration
	TokenTTL time.Duration
	// Pepper keys the stored hashes.
	Pepper string
	Clock  func() time.Time
}

type Vault struct {
	store Store
	cfg   Config
	now   func() time.Time
}

func New(store Store, cfg Config) *Vault {
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = DefaultOTPTTL
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	if c, ok := store.(clocked); ok {
		c.useClock(now)
	}
	return &Vault{store: store, cfg: cfg, now: now}
}

// IssueOTP stores a fresh code for the account, invalidating any previous one.
func (v *Vault) IssueOTP(ctx context.Context, accountID string) (string, time.Time, error) {
	code, err := security.GenerateOTP()
	if err != nil {
		return "", time.Time{}, err
	}
	expiresAt, err := v.put(ctx, accountID, models.CredentialOTP, code, v.cfg.OTPTTL)
	if err != nil {
		return "", time.Time{}, err
	}
	return code, expiresAt, nil
}

func (v *Vault) ConsumeOTP(ctx context.Context, accountID, code string) error {
	return v.consume(ctx, accountID, models.CredentialOTP, code)
}

func (v *Vault) IssueVerificationToken(ctx context.Context, accountID string) (string, time.Time, error) {
	token, _, err := security.GenerateOpaqueToken(verificationTokenBytes)
	if err != nil {
		return "", time.Time{}, err
	}
	expiresAt, err := v.put(ctx, accountID, models.CredentialVerificationToken, token, v.cfg.TokenTTL)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

func (v *Vault) ConsumeVerificationToken(ctx context.Context, accountID, token string) error {
	return v.consume(ctx, accountID, models.CredentialVerificationToken, token)
}

func (v *Vault) Invalidate(ctx context.Context, accountID string, kind models.CredentialKind) error {
	return v.store.Delete(ctx, accountID, kind)
}

func (v *Vault) PurgeExpired(ctx context.Context) (int64, error) {
	return v.store.PurgeExpired(ctx, v.now())
}

func (v *Vault) put(ctx context.Context, accountID string, kind models.CredentialKind, secret string, ttl time.Duration) (time.Time, error) {
	expiresAt := v.now().Add(ttl)
	cred := models.Credential{
		AccountID: accountID,
		Kind:      kind,
		Hash:      security.HashSecret(v.cfg.Pepper, secret),
		ExpiresAt: expiresAt,
	}
	if err := v.store.Put(ctx, cred); err != nil {
		return time.Time{}, fmt.Errorf("issue %s: %w", kind, err)
	}
	return expiresAt, nil
}

func (v *Vault) consume(ctx context.Context, accountID string, kind models.CredentialKind, submitted string) error {
	cred, ok, err := v.store.Get(ctx, accountID, kind)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}

	if cred.Expired(v.now()) {
		if _, err := v.store.CompareAndDelete(ctx, accountID, kind, cred.Hash); err != nil {
			return err
		}
		return ErrExpired
	}

	if !security.EqualHashes(security.HashSecret(v.cfg.Pepper, submitted), cred.Hash) {
		return ErrMismatch
	}

	consumed, err := v.store.CompareAndDelete(ctx, accountID, kind, cred.Hash)
	if err != nil {
		return err
	}
	if !consumed {
		// Another caller consumed or replaced it between Get and here.
		return ErrNotFound
	}
	return nil
}
