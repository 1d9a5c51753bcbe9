package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"contentgate/api/internal/models"
)

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `id, account_id, amount, currency, external_order_id, status, purpose, subscription_id, created_at, updated_at`

func (r *PaymentRepository) Create(ctx context.Context, payment models.Payment) error {
	const query = `
		INSERT INTO payments (
			id, account_id, amount, currency, external_order_id, status, purpose, subscription_id, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()
		)
	`

	purpose, err := models.MarshalPurpose(payment.Purpose)
	if err != nil {
		return fmt.Errorf("encode purpose: %w", err)
	}

	_, err = r.db.Exec(ctx, query,
		payment.ID,
		payment.AccountID,
		payment.Amount,
		payment.Currency,
		payment.ExternalOrderID,
		payment.Status,
		purpose,
		payment.SubscriptionID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id string) (models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	return scanPayment(r.db.QueryRow(ctx, query, id))
}

func (r *PaymentRepository) GetForUpdate(ctx context.Context, id string) (models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 FOR UPDATE`
	return scanPayment(r.db.QueryRow(ctx, query, id))
}

func (r *PaymentRepository) FindByExternalID(ctx context.Context, externalOrderID string) (models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE external_order_id = $1`
	return scanPayment(r.db.QueryRow(ctx, query, externalOrderID))
}

func (r *PaymentRepository) ListPendingPurchases(ctx context.Context, accountID, contentID string) ([]models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
		WHERE account_id = $1
		  AND status = 'PENDING'
		  AND purpose->>'kind' IN ('blog_purchase', 'resource_purchase')
		  AND COALESCE(purpose->'data'->>'blogId', purpose->'data'->>'resourceId') = $2
		ORDER BY created_at
		FOR UPDATE`

	rows, err := r.db.Query(ctx, query, accountID, contentID)
	if err != nil {
		return nil, fmt.Errorf("list pending purchases: %w", err)
	}
	defer rows.Close()

	var pending []models.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		pending = append(pending, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending purchases: %w", err)
	}
	return pending, nil
}

func (r *PaymentRepository) UpdateStatus(ctx context.Context, id string, from, to models.PaymentStatus) error {
	const query = `
		UPDATE payments SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2
	`
	cmd, err := r.db.Exec(ctx, query, id, from, to)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

func scanPayment(row pgx.Row) (models.Payment, error) {
	var (
		payment models.Payment
		purpose []byte
	)
	if err := row.Scan(
		&payment.ID,
		&payment.AccountID,
		&payment.Amount,
		&payment.Currency,
		&payment.ExternalOrderID,
		&payment.Status,
		&purpose,
		&payment.SubscriptionID,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Payment{}, ErrNotFound
		}
		return models.Payment{}, fmt.Errorf("scan payment: %w", err)
	}

	decoded, err := models.UnmarshalPurpose(purpose)
	if err != nil {
		return models.Payment{}, fmt.Errorf("payment %s: %w", payment.ID, err)
	}
	payment.Purpose = decoded
	return payment, nil
}
