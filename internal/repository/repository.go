package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"contentgate/api/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record conflict")
)

const uniqueViolation = "23505"

// DBTX is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

type AccountStore interface {
	Create(ctx context.Context, account models.Account) error
	GetByID(ctx context.Context, id string) (models.Account, error)
	FindByEmail(ctx context.Context, email string) (models.Account, error)
	MarkVerified(ctx context.Context, id string) error
	SetBanned(ctx context.Context, id string, banned bool) (models.Account, error)
	// LockForUpdate holds the account row until the surrounding transaction ends.
	LockForUpdate(ctx context.Context, id string) error
}

type SessionStore interface {
	Create(ctx context.Context, session models.Session) error
	CountByAccount(ctx context.Context, accountID string) (int, error)
	DeleteOldestSessions(ctx context.Context, accountID string, keepLatest int) error
	GetByID(ctx context.Context, id string) (models.Session, error)
	FindByRefreshHash(ctx context.Context, accountID string, refreshHash []byte) (models.Session, error)
	DeleteByDevice(ctx context.Context, accountID string, deviceID string) error
	DeleteByAccount(ctx context.Context, accountID string) error
}

type ContentStore interface {
	GetByID(ctx context.Context, id string) (models.ContentItem, error)
}

type PlanStore interface {
	GetByID(ctx context.Context, id string) (models.Plan, error)
	ListActive(ctx context.Context) ([]models.Plan, error)
}

type SubscriptionStore interface {
	Create(ctx context.Context, sub models.Subscription) error
	GetByID(ctx context.Context, id string) (models.Subscription, error)
	SetGatewayRef(ctx context.Context, id string, ref string) error
	ListByAccount(ctx context.Context, accountID string) ([]models.Subscription, error)
	// HasActive reports an ACTIVE subscription whose window covers now.
	HasActive(ctx context.Context, accountID string, now time.Time) (bool, error)
	// HasAccess reports an ACTIVE or CANCELLED subscription whose window covers now.
	HasAccess(ctx context.Context, accountID string, now time.Time) (bool, error)
	// Activate moves a PENDING subscription to ACTIVE. ErrConflict means the account
	// already holds another ACTIVE row.
	Activate(ctx context.Context, id string, start, end time.Time) error
	Cancel(ctx context.Context, id string, at time.Time) error
	ExpireBefore(ctx context.Context, now time.Time) (int64, error)
	ExpireAccountBefore(ctx context.Context, accountID string, now time.Time) error
}

type PaymentStore interface {
	Create(ctx context.Context, payment models.Payment) error
	GetByID(ctx context.Context, id string) (models.Payment, error)
	GetForUpdate(ctx context.Context, id string) (models.Payment, error)
	FindByExternalID(ctx context.Context, externalOrderID string) (models.Payment, error)
	// ListPendingPurchases locks the account's PENDING payments that buy contentID.
	ListPendingPurchases(ctx context.Context, accountID, contentID string) ([]models.Payment, error)
	// UpdateStatus performs the from -> to transition. ErrConflict means the row was
	// no longer in from.
	UpdateStatus(ctx context.Context, id string, from, to models.PaymentStatus) error
}

type PurchaseStore interface {
	// Create returns false when the account already owned the content.
	Create(ctx context.Context, purchase models.Purchase) (bool, error)
	Exists(ctx context.Context, accountID, contentID string) (bool, error)
}

// Repositories bundles every store bound to one connection or transaction.
type Repositories struct {
	Accounts      AccountStore
	Sessions      SessionStore
	Content       ContentStore
	Plans         PlanStore
	Subscriptions SubscriptionStore
	Payments      PaymentStore
	Purchases     PurchaseStore
}

func NewRepositories(db DBTX) Repositories {
	return Repositories{
		Accounts:      NewAccountRepository(db),
		Sessions:      NewSessionRepository(db),
		Content:       NewContentRepository(db),
		Plans:         NewPlanRepository(db),
		Subscriptions: NewSubscriptionRepository(db),
		Payments:      NewPaymentRepository(db),
		Purchases:     NewPurchaseRepository(db),
	}
}
