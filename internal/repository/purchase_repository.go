package repository

import (
	"context"
	"fmt"

	"contentgate/api/internal/models"
)

type PurchaseRepository struct {
	db DBTX
}

func NewPurchaseRepository(db DBTX) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

func (r *PurchaseRepository) Create(ctx context.Context, purchase models.Purchase) (bool, error) {
	const query = `
		INSERT INTO purchases (id, account_id, content_id, payment_id, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (account_id, content_id) DO NOTHING
	`
	cmd, err := r.db.Exec(ctx, query, purchase.ID, purchase.AccountID, purchase.ContentID, purchase.PaymentID)
	if err != nil {
		return false, fmt.Errorf("insert purchase: %w", err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *PurchaseRepository) Exists(ctx context.Context, accountID, contentID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM purchases WHERE account_id = $1 AND content_id = $2)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, accountID, contentID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check purchase: %w", err)
	}
	return exists, nil
}
