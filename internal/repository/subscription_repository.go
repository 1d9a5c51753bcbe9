package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"contentgate/api/internal/models"
)

type SubscriptionRepository struct {
	db DBTX
}

func NewSubscriptionRepository(db DBTX) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

const subscriptionColumns = `id, account_id, plan_id, price, currency, duration_months, status, start_date, end_date, cancelled_at, gateway_ref, created_at, updated_at`

func (r *SubscriptionRepository) Create(ctx context.Context, sub models.Subscription) error {
	const query = `
		INSERT INTO subscriptions (
			id, account_id, plan_id, price, currency, duration_months, status, start_date, end_date, gateway_ref, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW()
		)
	`

	_, err := r.db.Exec(ctx, query,
		sub.ID,
		sub.AccountID,
		sub.PlanID,
		sub.Price,
		sub.Currency,
		sub.DurationMonths,
		sub.Status,
		sub.StartDate,
		sub.EndDate,
		sub.GatewayRef,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

func (r *SubscriptionRepository) GetByID(ctx context.Context, id string) (models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`
	sub, err := scanSubscription(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Subscription{}, ErrNotFound
		}
		return models.Subscription{}, fmt.Errorf("get subscription: %w", err)
	}
	return sub, nil
}

func (r *SubscriptionRepository) SetGatewayRef(ctx context.Context, id string, ref string) error {
	const query = `UPDATE subscriptions SET gateway_ref = $2, updated_at = NOW() WHERE id = $1`
	cmd, err := r.db.Exec(ctx, query, id, ref)
	if err != nil {
		return fmt.Errorf("set gateway ref: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SubscriptionRepository) ListByAccount(ctx context.Context, accountID string) ([]models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE account_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (r *SubscriptionRepository) HasActive(ctx context.Context, accountID string, now time.Time) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM subscriptions
			WHERE account_id = $1 AND status = 'ACTIVE' AND end_date >= $2
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, accountID, now).Scan(&exists); err != nil {
		return false, fmt.Errorf("check active subscription: %w", err)
	}
	return exists, nil
}

func (r *SubscriptionRepository) HasAccess(ctx context.Context, accountID string, now time.Time) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM subscriptions
			WHERE account_id = $1 AND status IN ('ACTIVE', 'CANCELLED') AND end_date >= $2
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, accountID, now).Scan(&exists); err != nil {
		return false, fmt.Errorf("check subscription access: %w", err)
	}
	return exists, nil
}

func (r *SubscriptionRepository) Activate(ctx context.Context, id string, start, end time.Time) error {
	const query = `
		UPDATE subscriptions
		SET status = 'ACTIVE', start_date = $2, end_date = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'
	`
	cmd, err := r.db.Exec(ctx, query, id, start, end)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("activate subscription: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SubscriptionRepository) Cancel(ctx context.Context, id string, at time.Time) error {
	const query = `
		UPDATE subscriptions
		SET status = 'CANCELLED', cancelled_at = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'ACTIVE'
	`
	cmd, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("cancel subscription: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

func (r *SubscriptionRepository) ExpireBefore(ctx context.Context, now time.Time) (int64, error) {
	const query = `
		UPDATE subscriptions
		SET status = 'EXPIRED', updated_at = NOW()
		WHERE status IN ('ACTIVE', 'CANCELLED') AND end_date < $1
	`
	cmd, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("expire subscriptions: %w", err)
	}
	return cmd.RowsAffected(), nil
}

func (r *SubscriptionRepository) ExpireAccountBefore(ctx context.Context, accountID string, now time.Time) error {
	const query = `
		UPDATE subscriptions
		SET status = 'EXPIRED', updated_at = NOW()
		WHERE account_id = $1 AND status IN ('ACTIVE', 'CANCELLED') AND end_date < $2
	`
	if _, err := r.db.Exec(ctx, query, accountID, now); err != nil {
		return fmt.Errorf("expire account subscriptions: %w", err)
	}
	return nil
}

func scanSubscription(row pgx.Row) (models.Subscription, error) {
	var sub models.Subscription
	err := row.Scan(
		&sub.ID,
		&sub.AccountID,
		&sub.PlanID,
		&sub.Price,
		&sub.Currency,
		&sub.DurationMonths,
		&sub.Status,
		&sub.StartDate,
		&sub.EndDate,
		&sub.CancelledAt,
		&sub.GatewayRef,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	return sub, err
}
