package vault_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contentgate/api/internal/models"
	"contentgate/api/internal/repository/memory"
	"contentgate/api/internal/vault"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newVault(t *testing.T) (*vault.Vault, *clock) {
	t.Helper()
	clk := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	v := vault.New(memory.NewStore().Credentials(), vault.Config{Pepper: "pepper", Clock: clk.Now})
	return v, clk
}

func TestIssueOTPFormat(t *testing.T) {
	v, clk := newVault(t)

	code, expiresAt, err := v.IssueOTP(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Regexp(t, `^\d{6}$`, code)
	assert.Equal(t, clk.Now().Add(vault.DefaultOTPTTL), expiresAt)
}

func TestConsumeOTP(t *testing.T) {
	ctx := context.Background()
	v, _ := newVault(t)

	code, _, err := v.IssueOTP(ctx, "acc-1")
	require.NoError(t, err)

	require.ErrorIs(t, v.ConsumeOTP(ctx, "acc-1", wrongCode(code)), vault.ErrMismatch)
	// a wrong guess leaves the code usable
	require.NoError(t, v.ConsumeOTP(ctx, "acc-1", code))
	require.ErrorIs(t, v.ConsumeOTP(ctx, "acc-1", code), vault.ErrNotFound)
}

func TestReissueInvalidatesPreviousOTP(t *testing.T) {
	ctx := context.Background()
	v, _ := newVault(t)

	first, _, err := v.IssueOTP(ctx, "acc-1")
	require.NoError(t, err)
	second, _, err := v.IssueOTP(ctx, "acc-1")
	require.NoError(t, err)

	if first != second {
		require.ErrorIs(t, v.ConsumeOTP(ctx, "acc-1", first), vault.ErrMismatch)
	}
	require.NoError(t, v.ConsumeOTP(ctx, "acc-1", second))
}

func TestExpiredOTPIsRemoved(t *testing.T) {
	ctx := context.Background()
	v, clk := newVault(t)

	code, _, err := v.IssueOTP(ctx, "acc-1")
	require.NoError(t, err)

	clk.Advance(vault.DefaultOTPTTL + time.Second)
	require.ErrorIs(t, v.ConsumeOTP(ctx, "acc-1", code), vault.ErrExpired)
	require.ErrorIs(t, v.ConsumeOTP(ctx, "acc-1", code), vault.ErrNotFound)
}

func TestOTPValidAtExactExpiry(t *testing.T) {
	ctx := context.Background()
	v, clk := newVault(t)

	code, _, err := v.IssueOTP(ctx, "acc-1")
	require.NoError(t, err)

	clk.Advance(vault.DefaultOTPTTL)
	require.NoError(t, v.ConsumeOTP(ctx, "acc-1", code))
}

func TestVerificationTokenConsumedOnceUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	v, _ := newVault(t)

	token, expiresAt, err := v.IssueVerificationToken(ctx, "acc-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v.ConsumeVerificationToken(ctx, "acc-1", token) == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, successes.Load())
}

func TestInvalidateAndPurge(t *testing.T) {
	ctx := context.Background()
	v, clk := newVault(t)

	code, _, err := v.IssueOTP(ctx, "acc-1")
	require.NoError(t, err)
	require.NoError(t, v.Invalidate(ctx, "acc-1", models.CredentialOTP))
	require.ErrorIs(t, v.ConsumeOTP(ctx, "acc-1", code), vault.ErrNotFound)

	_, _, err = v.IssueVerificationToken(ctx, "acc-2")
	require.NoError(t, err)
	clk.Advance(vault.DefaultTokenTTL + time.Minute)

	purged, err := v.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)
}

func wrongCode(code string) string {
	if code == "000000" {
		return "000001"
	}
	return "000000"
}
