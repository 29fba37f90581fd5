package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const (
	// DBConnKey carries a dedicated *pgxpool.Conn, used by tests that pin
	// all queries to a single connection.
	DBConnKey contextKey = "db_conn"

	// DBTxKey carries the pgx.Tx for the current unit of work. Repositories
	// route every query through it when present.
	DBTxKey contextKey = "db_tx"
)

// ConnFromContext retrieves the dedicated connection from the context.
// Returns nil if no connection is set.
func ConnFromContext(ctx context.Context) *pgxpool.Conn {
	conn, ok := ctx.Value(DBConnKey).(*pgxpool.Conn)
	if !ok {
		return nil
	}
	return conn
}

// TxFromContext retrieves the transaction from the context. Returns nil if
// no transaction is in progress.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, ok := ctx.Value(DBTxKey).(pgx.Tx)
	if !ok {
		return nil
	}
	return tx
}

// RunInTx executes fn inside a single transaction. The transaction is
// carried via the context so every repository call inside fn joins it.
// fn returning nil commits; any error rolls back and is returned unchanged.
//
// Nested calls join the transaction already in the context instead of
// opening a second one; commit and rollback then stay with the outermost
// caller.
func RunInTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	if tx := TxFromContext(ctx); tx != nil {
		return fn(ctx)
	}
	if pool == nil {
		return errors.New("no database connection in context")
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, DBTxKey, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
