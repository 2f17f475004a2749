package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dartmaster/dartmaster-api/repositories"
)

// txRunner wraps a unit of work in a database transaction. Services depend on
// the interface so tests can run the function directly against fakes.
type txRunner interface {
	InTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error
}

type sqlTxRunner struct {
	db *sql.DB
}

func newSQLTxRunner(db *sql.DB) txRunner {
	return &sqlTxRunner{db: db}
}

func (r *sqlTxRunner) InTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
