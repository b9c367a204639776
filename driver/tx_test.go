package driver

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeTx embeds pgx.Tx so only Commit and Rollback need real bodies.
type fakeTx struct {
	pgx.Tx
	committed, rolledBack bool
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	t.rolledBack = true
	return nil
}

type fakePool struct {
	PostgresPool
	txs []*fakeTx
}

func (p *fakePool) BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error) {
	tx := &fakeTx{}
	p.txs = append(p.txs, tx)
	return tx, nil
}

func TestTransactionManager_CommitsOnSuccess(t *testing.T) {
	pool := &fakePool{}
	m := NewTransactionManager(pool, zap.NewNop())

	require.NoError(t, m.ExecuteTransaction(context.Background(), func(pgx.Tx) error { return nil }))

	require.Len(t, pool.txs, 1)
	assert.True(t, pool.txs[0].committed)
	assert.False(t, pool.txs[0].rolledBack)
}

func TestTransactionManager_RetriesSerializationFailures(t *testing.T) {
	pool := &fakePool{}
	m := NewTransactionManager(pool, zap.NewNop())

	calls := 0
	err := m.ExecuteTransaction(context.Background(), func(pgx.Tx) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("update: %w", &pgconn.PgError{Code: serializationFailure})
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 3, calls)
	require.Len(t, pool.txs, 3)
	assert.True(t, pool.txs[0].rolledBack)
	assert.True(t, pool.txs[2].committed)
}

func TestTransactionManager_DoesNotRetryOtherErrors(t *testing.T) {
	pool := &fakePool{}
	m := NewTransactionManager(pool, zap.NewNop())
	boom := errors.New("boom")

	calls := 0
	err := m.ExecuteTransaction(context.Background(), func(pgx.Tx) error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.True(t, pool.txs[0].rolledBack)
}

func TestTransactionManager_GivesUp(t *testing.T) {
	pool := &fakePool{}
	m := NewTransactionManager(pool, zap.NewNop())

	err := m.ExecuteTransaction(context.Background(), func(pgx.Tx) error {
		return &pgconn.PgError{Code: deadlockDetected}
	})

	assert.ErrorContains(t, err, "after 3 attempts")
	assert.Len(t, pool.txs, 3)
}
