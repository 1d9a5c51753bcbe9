package memory

import (
	"bytes"
	"context"
	"time"

	"contentgate/api/internal/models"
)

// Credentials satisfies vault.Store.
type Credentials struct{ s *Store }

func (c *Credentials) Put(_ context.Context, cred models.Credential) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.data.credentials[credentialKey{cred.AccountID, cred.Kind}] = cred
	return nil
}

func (c *Credentials) Get(_ context.Context, accountID string, kind models.CredentialKind) (models.Credential, bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	cred, ok := c.s.data.credentials[credentialKey{accountID, kind}]
	return cred, ok, nil
}

func (c *Credentials) CompareAndDelete(_ context.Context, accountID string, kind models.CredentialKind, hash []byte) (bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	key := credentialKey{accountID, kind}
	cred, ok := c.s.data.credentials[key]
	if !ok || !bytes.Equal(cred.Hash, hash) {
		return false, nil
	}
	delete(c.s.data.credentials, key)
	return true, nil
}

func (c *Credentials) Delete(_ context.Context, accountID string, kind models.CredentialKind) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	delete(c.s.data.credentials, credentialKey{accountID, kind})
	return nil
}

func (c *Credentials) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	var purged int64
	for key, cred := range c.s.data.credentials {
		if cred.Expired(now) {
			delete(c.s.data.credentials, key)
			purged++
		}
	}
	return purged, nil
}
