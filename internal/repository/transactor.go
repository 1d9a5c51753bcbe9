package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type PostgresTransactor struct {
	db TxBeginner
}

func NewPostgresTransactor(db TxBeginner) *PostgresTransactor {
	return &PostgresTransactor{db: db}
}

// WithinTx commits when fn returns nil and rolls back on error or panic.
func (t *PostgresTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) (err error) {
	tx, err := t.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(ctx, NewRepositories(tx)); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
