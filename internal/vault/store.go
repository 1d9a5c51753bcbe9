// Package vault holds the short-lived credentials that bootstrap an account: the e-mail OTP
// and the single-use verification token exchanged for a session. Values are stored only as
// keyed hashes and are consumed with compare-and-delete, so concurrent consumers see at most
// one success.
package vault

import (
	"context"
	"errors"
	"time"

	"contentgate/api/internal/models"
)

var (
	ErrNotFound = errors.New("credential not found")
	ErrExpired  = errors.New("credential expired")
	ErrMismatch = errors.New("credential mismatch")
)

type Store interface {
	// Put replaces any live credential of the same kind for the account.
	Put(ctx context.Context, cred models.Credential) error
	Get(ctx context.Context, accountID string, kind models.CredentialKind) (models.Credential, bool, error)
	// CompareAndDelete removes the credential only while it still holds hash.
	CompareAndDelete(ctx context.Context, accountID string, kind models.CredentialKind, hash []byte) (bool, error)
	Delete(ctx context.Context, accountID string, kind models.CredentialKind) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// clocked is implemented by stores whose retention is computed from the current time.
type clocked interface {
	useClock(now func() time.Time)
}
