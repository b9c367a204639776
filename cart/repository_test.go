package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"goflare.io/storefront/models"
)

type fakeRedis struct {
	redis.Cmdable

	values map[string]string
	ttls   map[string]time.Duration
	down   bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.down {
		return redis.NewStringResult("", errors.New("dial tcp: connection refused"))
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	if f.down {
		return redis.NewStatusResult("", errors.New("dial tcp: connection refused"))
	}
	f.values[key] = string(value.([]byte))
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.values, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestRepository_SaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	repo := NewRepository(rdb, time.Hour, zap.NewNop())

	c := New()
	c.AddToCart(product("P1", "10.00"))
	c.AddToCart(product("P2", "5.50"))
	c.AddToCart(product("P1", "10.00"))

	require.NoError(t, repo.Save(ctx, "uid-1", c))
	assert.Equal(t, time.Hour, rdb.ttls["cart:uid-1"])

	loaded, err := repo.Load(ctx, "uid-1")
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())
	assert.True(t, c.CalculateSubtotal().Equal(loaded.CalculateSubtotal()))
	line, _ := loaded.Line("P1")
	assert.Equal(t, int64(2), line.Quantity)
	assert.Equal(t, "Product P1", line.Name)

	require.NoError(t, repo.Delete(ctx, "uid-1"))
	_, err = repo.Load(ctx, "uid-1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRepository_Errors(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	repo := NewRepository(rdb, time.Hour, zap.NewNop())

	assert.ErrorIs(t, repo.Save(ctx, "", New()), models.ErrValidation)

	rdb.values["cart:bad"] = "{not json"
	_, err := repo.Load(ctx, "bad")
	assert.Error(t, err)

	rdb.down = true
	assert.Error(t, repo.Save(ctx, "uid-1", New()))
	_, err = repo.Load(ctx, "uid-1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrNotFound)
}
