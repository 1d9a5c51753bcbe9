package vault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"contentgate/api/internal/models"
	"contentgate/api/internal/repository"
)

// PostgresStore keeps credentials in nullable columns on the accounts row.
type PostgresStore struct {
	db repository.DBTX
}

func NewPostgresStore(db repository.DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

type credentialColumns struct {
	hash    string
	expires string
}

func columnsFor(kind models.CredentialKind) (credentialColumns, error) {
	switch kind {
	case models.CredentialOTP:
		return credentialColumns{hash: "otp_hash", expires: "otp_expires_at"}, nil
	case models.CredentialVerificationToken:
		return credentialColumns{hash: "verification_token_hash", expires: "verification_token_expires_at"}, nil
	default:
		return credentialColumns{}, fmt.Errorf("unknown credential kind %q", kind)
	}
}

func (s *PostgresStore) Put(ctx context.Context, cred models.Credential) error {
	cols, err := columnsFor(cred.Kind)
	if err != nil {
		return err
	}

	query := `UPDATE accounts SET ` + cols.hash + ` = $2, ` + cols.expires + ` = $3, updated_at = NOW() WHERE id = $1`
	cmd, err := s.db.Exec(ctx, query, cred.AccountID, cred.Hash, cred.ExpiresAt)
	if err != nil {
		return fmt.Errorf("store %s: %w", cred.Kind, err)
	}
	if cmd.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, accountID string, kind models.CredentialKind) (models.Credential, bool, error) {
	cols, err := columnsFor(kind)
	if err != nil {
		return models.Credential{}, false, err
	}

	query := `SELECT ` + cols.hash + `, ` + cols.expires + ` FROM accounts WHERE id = $1`
	var (
		hash      []byte
		expiresAt *time.Time
	)
	if err := s.db.QueryRow(ctx, query, accountID).Scan(&hash, &expiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Credential{}, false, nil
		}
		return models.Credential{}, false, fmt.Errorf("load %s: %w", kind, err)
	}
	if hash == nil || expiresAt == nil {
		return models.Credential{}, false, nil
	}

	return models.Credential{
		AccountID: accountID,
		Kind:      kind,
		Hash:      hash,
		ExpiresAt: *expiresAt,
	}, true, nil
}

func (s *PostgresStore) CompareAndDelete(ctx context.Context, accountID string, kind models.CredentialKind, hash []byte) (bool, error) {
	cols, err := columnsFor(kind)
	if err != nil {
		return false, err
	}

	query := `UPDATE accounts SET ` + cols.hash + ` = NULL, ` + cols.expires + ` = NULL, updated_at = NOW() WHERE id = $1 AND ` + cols.hash + ` = $2`
	cmd, err := s.db.Exec(ctx, query, accountID, hash)
	if err != nil {
		return false, fmt.Errorf("consume %s: %w", kind, err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (s *PostgresStore) Delete(ctx context.Context, accountID string, kind models.CredentialKind) error {
	cols, err := columnsFor(kind)
	if err != nil {
		return err
	}

	query := `UPDATE accounts SET ` + cols.hash + ` = NULL, ` + cols.expires + ` = NULL, updated_at = NOW() WHERE id = $1`
	if _, err := s.db.Exec(ctx, query, accountID); err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	return nil
}

func (s *PostgresStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	var purged int64
	for _, kind := range []models.CredentialKind{models.CredentialOTP, models.CredentialVerificationToken} {
		cols, _ := columnsFor(kind)
		query := `UPDATE accounts SET ` + cols.hash + ` = NULL, ` + cols.expires + ` = NULL WHERE ` + cols.expires + ` < $1`
		cmd, err := s.db.Exec(ctx, query, now)
		if err != nil {
			return purged, fmt.Errorf("purge %s: %w", kind, err)
		}
		purged += cmd.RowsAffected()
	}
	return purged, nil
}
