package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// SQLSTATE codes after which the whole transaction can simply be run again.
const (
	serializationFailure = "40001"
	deadlockDetected     = "40P01"
)

const (
	defaultTxAttempts = 3
	txRetryBackoff    = 50 * time.Millisecond
)

type TransactionManager struct {
	conn     PostgresPool
	attempts int
	logger   *zap.Logger
}

func NewTransactionManager(conn PostgresPool, logger *zap.Logger) *TransactionManager {
	return &TransactionManager{
		conn:     conn,
		attempts: defaultTxAttempts,
		logger:   logger,
	}
}

// ExecuteTransaction runs fn in a read-committed transaction. fn may be called
// more than once: serialization failures and deadlocks are retried.
func (m *TransactionManager) ExecuteTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return m.ExecuteTransactionWithOptions(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

func (m *TransactionManager) ExecuteTransactionWithOptions(ctx context.Context, opts pgx.TxOptions, fn func(tx pgx.Tx) error) error {
	var err error
	for attempt := 1; attempt <= m.attempts; attempt++ {
		if err = m.runOnce(ctx, opts, fn); err == nil || !retryable(err) {
			return err
		}
		if attempt == m.attempts {
			break
		}

		m.logger.Warn("Transaction conflict, retrying", zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * txRetryBackoff):
		}
	}
	return fmt.Errorf("transaction failed after %d attempts: %w", m.attempts, err)
}

func (m *TransactionManager) runOnce(ctx context.Context, opts pgx.TxOptions, fn func(tx pgx.Tx) error) (err error) {
	tx, err := m.conn.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		switch p := recover(); {
		case p != nil:
			m.rollback(ctx, tx)
			m.logger.Error("Panic in transaction", zap.Any("panic", p))
			panic(p)
		case err != nil:
			m.rollback(ctx, tx)
		default:
			if err = tx.Commit(ctx); err != nil {
				err = fmt.Errorf("failed to commit transaction: %w", err)
			}
		}
	}()

	return fn(tx)
}

func (m *TransactionManager) rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		m.logger.Error("Failed to roll back transaction", zap.Error(err))
	}
}

func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == serializationFailure || pgErr.Code == deadlockDetected
}
