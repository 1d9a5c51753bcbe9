package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"contentgate/api/internal/cache"
	"contentgate/api/internal/config"
	"contentgate/api/internal/gateway"
	"contentgate/api/internal/models"
	"contentgate/api/internal/repository/memory"
	"contentgate/api/internal/security"
	"contentgate/api/internal/service"
	"contentgate/api/internal/vault"
)

var testSecurity = config.SecurityConfig{
	JWTAccessSecret: "test-access-secret",
	JWTAccessTTL:    15 * time.Minute,
	JWTRefreshTTL:   24 * time.Hour,
	MaxSessions:     2,
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
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

type sentOTP struct {
	AccountID string
	Code      string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentOTP
	err  error
}

func (n *recordingNotifier) SendOTP(_ context.Context, account models.Account, code string, _ time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentOTP{AccountID: account.ID, Code: code})
	return n.err
}

func (n *recordingNotifier) lastCode(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.sent, "no otp was sent")
	return n.sent[len(n.sent)-1].Code
}

// flakyCredentials fails Put while putErr is set.
type flakyCredentials struct {
	*memory.Credentials
	mu     sync.Mutex
	putErr error
}

func (c *flakyCredentials) Put(ctx context.Context, cred models.Credential) error {
	c.mu.Lock()
	err := c.putErr
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return c.Credentials.Put(ctx, cred)
}

func (c *flakyCredentials) failPuts(err error) {
	c.mu.Lock()
	c.putErr = err
	c.mu.Unlock()
}

type identityEnv struct {
	store       *memory.Store
	credentials *flakyCredentials
	auth     *service.AuthService
	identity *service.IdentityService
	notifier *recordingNotifier
	redis    *miniredis.Miniredis
}

func newIdentityEnv(t *testing.T) *identityEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := memory.NewStore()
	repos := store.Repositories()
	logger := zerolog.Nop()

	auth := service.NewAuthService(repos.Accounts, repos.Sessions, testSecurity, logger)
	notifier := &recordingNotifier{}
	credentials := &flakyCredentials{Credentials: store.Credentials()}
	identity := service.NewIdentityService(service.IdentityDeps{
		Accounts: repos.Accounts,
		Sessions: repos.Sessions,
		Vault:    vault.New(credentials, vault.Config{Pepper: "pepper"}),
		Auth:     auth,
		Attempts: cache.NewLimiter(client, "otp-attempts", 5, 10*time.Minute),
		Resends:  cache.NewLimiter(client, "otp-resends", 3, 10*time.Minute),
		Notifier: notifier,
		Logger:   logger,
	})

	return &identityEnv{store: store, credentials: credentials, auth: auth, identity: identity, notifier: notifier, redis: mr}
}

// seedAccount stores a verified account with the given password.
func seedAccount(t *testing.T, store *memory.Store, id, email, password string, role models.AccountRole) models.Account {
	t.Helper()
	hash, err := security.HashPassword(password)
	require.NoError(t, err)
	account := models.Account{
		ID:            id,
		Email:         email,
		PasswordHash:  hash,
		DisplayName:   id,
		Role:          role,
		EmailVerified: true,
	}
	store.PutAccount(account)
	return account
}

type fakeGateway struct {
	mu        sync.Mutex
	orderErr  error
	cancelErr error
	orders    []gateway.OrderRequest
	cancelled []string
}

func (g *fakeGateway) CreateOrder(_ context.Context, req gateway.OrderRequest) (gateway.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.orders = append(g.orders, req)
	if g.orderErr != nil {
		return gateway.Order{}, g.orderErr
	}
	return gateway.Order{
		ExternalID:   "pi_" + req.ReceiptID,
		ClientSecret: "secret_" + req.ReceiptID,
		Amount:       req.AmountMinor,
		Currency:     req.Currency,
		ReceiptID:    req.ReceiptID,
	}, nil
}

func (g *fakeGateway) CancelRecurring(_ context.Context, externalID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelled = append(g.cancelled, externalID)
	return g.cancelErr
}

func principalOf(account models.Account) *models.Principal {
	return &models.Principal{AccountID: account.ID, Role: account.Role}
}
