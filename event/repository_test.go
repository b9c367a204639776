package event

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"goflare.io/storefront/docstore"
	"goflare.io/storefront/models"
)

func TestMarkAsProcessed(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(docstore.NewMemoryGateway(), zap.NewNop())
	e := &models.Event{ID: "evt_1", Type: stripe.EventTypeCheckoutSessionCompleted, ProcessedAt: time.UnixMilli(1718000000000).UTC()}

	first, err := repo.MarkAsProcessed(ctx, e)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := repo.MarkAsProcessed(ctx, e)
	require.NoError(t, err)
	assert.False(t, again)

	stored, err := repo.GetByID(ctx, "evt_1")
	require.NoError(t, err)
	assert.Equal(t, stripe.EventTypeCheckoutSessionCompleted, stored.Type)
	assert.True(t, e.ProcessedAt.Equal(stored.ProcessedAt))

	require.NoError(t, repo.Release(ctx, "evt_1"))
	require.NoError(t, repo.Release(ctx, "evt_1"))

	retried, err := repo.MarkAsProcessed(ctx, e)
	require.NoError(t, err)
	assert.True(t, retried)

	_, err = repo.MarkAsProcessed(ctx, &models.Event{})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestMarkAsProcessed_ConcurrentDeliveries(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(docstore.NewMemoryGateway(), zap.NewNop())

	var claimed atomic.Int32
	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			ok, err := repo.MarkAsProcessed(ctx, &models.Event{ID: "evt_dup", Type: stripe.EventTypeCheckoutSessionCompleted})
			if ok {
				claimed.Add(1)
			}
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), claimed.Load())
}
