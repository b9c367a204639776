package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStorage(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	_, ok, err := s.Get(ctx, "session")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "session", `{"uid":"1"}`))
	require.NoError(t, s.Set(ctx, "session", `{"uid":"2"}`))
	v, ok, err := s.Get(ctx, "session")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"uid":"2"}`, v)

	require.NoError(t, s.Remove(ctx, "session"))
	require.NoError(t, s.Remove(ctx, "session"))
	_, ok, err = s.Get(ctx, "session")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Error(t, s.Set(ctx, "../escape", "x"))
}

type fakeRedis struct {
	redis.Cmdable
	values map[string]string
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	s, ok := value.(string)
	if !ok {
		return redis.NewStatusResult("", errors.New("unexpected value type"))
	}
	f.values[key] = s
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.values, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestRedisStorage(t *testing.T) {
	ctx := context.Background()
	rdb := &fakeRedis{values: make(map[string]string)}
	s := NewRedisStorage(rdb, "storefront:device-1:")

	require.NoError(t, s.Set(ctx, "session", "v"))
	assert.Equal(t, "v", rdb.values["storefront:device-1:session"])

	v, ok, err := s.Get(ctx, "session")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	require.NoError(t, s.Remove(ctx, "session"))
	_, ok, err = s.Get(ctx, "session")
	require.NoError(t, err)
	assert.False(t, ok)
}
