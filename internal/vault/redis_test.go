package vault

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contentgate/api/internal/models"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "cred"), mr
}

func TestRedisStoreCompareAndDelete(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	cred := models.Credential{
		AccountID: "acc-1",
		Kind:      models.CredentialOTP,
		Hash:      []byte{0xde, 0xad, 0xbe, 0xef},
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}
	require.NoError(t, store.Put(ctx, cred))
	assert.True(t, mr.Exists("cred:otp:acc-1"))

	got, ok, err := store.Get(ctx, "acc-1", models.CredentialOTP)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, cred.Hash, got.Hash)
	assert.Equal(t, cred.ExpiresAt.UnixNano(), got.ExpiresAt.UnixNano())

	deleted, err := store.CompareAndDelete(ctx, "acc-1", models.CredentialOTP, []byte{0x01})
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = store.CompareAndDelete(ctx, "acc-1", models.CredentialOTP, cred.Hash)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.CompareAndDelete(ctx, "acc-1", models.CredentialOTP, cred.Hash)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, ok, err = store.Get(ctx, "acc-1", models.CredentialOTP)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreKeepsExpiredValueForGracePeriod(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	require.NoError(t, store.Put(ctx, models.Credential{
		AccountID: "acc-1",
		Kind:      models.CredentialVerificationToken,
		Hash:      []byte{0x01, 0x02},
		ExpiresAt: time.Now().Add(-time.Second),
	}))
	require.NoError(t, store.Put(ctx, models.Credential{
		AccountID: "acc-2",
		Kind:      models.CredentialVerificationToken,
		Hash:      []byte{0x03},
		ExpiresAt: time.Now().Add(time.Minute),
	}))

	assert.True(t, mr.Exists("cred:verification_token:acc-1"))

	purged, err := store.PurgeExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)
	assert.False(t, mr.Exists("cred:verification_token:acc-1"))
	assert.True(t, mr.Exists("cred:verification_token:acc-2"))
}

func TestRedisStoreTTLFollowsVaultClock(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)
	issuedAt := time.Date(2031, 6, 1, 8, 0, 0, 0, time.UTC)
	v := New(store, Config{Pepper: "pepper", OTPTTL: 10 * time.Minute, Clock: func() time.Time { return issuedAt }})

	_, expiresAt, err := v.IssueOTP(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, issuedAt.Add(10*time.Minute), expiresAt)
	assert.Equal(t, 10*time.Minute+defaultGrace, mr.TTL("cred:otp:acc-1"))

	past := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	v = New(store, Config{Pepper: "pepper", OTPTTL: 10 * time.Minute, Clock: func() time.Time { return past }})
	_, _, err = v.IssueOTP(ctx, "acc-2")
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute+defaultGrace, mr.TTL("cred:otp:acc-2"))
}

func TestVaultOverRedisStore(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisStore(t)
	v := New(store, Config{Pepper: "pepper"})

	code, _, err := v.IssueOTP(ctx, "acc-1")
	require.NoError(t, err)
	require.NoError(t, v.ConsumeOTP(ctx, "acc-1", code))
	require.ErrorIs(t, v.ConsumeOTP(ctx, "acc-1", code), ErrNotFound)
}
