package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type cachedGateway struct {
	Gateway
	cache  redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

// WithCache puts a Redis read-through cache in front of Get. Writes go to g
// first and then drop the cached copy. Cache failures are logged and never
// fail the call.
func WithCache(g Gateway, cache redis.Cmdable, ttl time.Duration, logger *zap.Logger) Gateway {
	return &cachedGateway{
		Gateway: g,
		cache:   cache,
		ttl:     ttl,
		logger:  logger,
	}
}

func cacheKey(collection, id string) string {
	return fmt.Sprintf("doc:%s:%s", collection, id)
}

func (g *cachedGateway) Create(ctx context.Context, collection string, doc Document) (string, error) {
	id, err := g.Gateway.Create(ctx, collection, doc)
	if err != nil {
		return "", err
	}
	g.invalidate(ctx, collection, id)
	return id, nil
}

func (g *cachedGateway) Get(ctx context.Context, collection, id string) (Document, error) {
	key := cacheKey(collection, id)

	// 嘗試從快取中獲取
	raw, err := g.cache.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		data, decErr := decodeCached(raw)
		if decErr == nil {
			return Document{ID: id, Data: data}, nil
		}
		g.logger.Warn("Failed to decode cached document", zap.String("key", key), zap.Error(decErr))
	case !errors.Is(err, redis.Nil):
		g.logger.Warn("Failed to get document from cache", zap.String("key", key), zap.Error(err))
	}

	doc, err := g.Gateway.Get(ctx, collection, id)
	if err != nil {
		return Document{}, err
	}

	// 更新快取
	b, err := json.Marshal(doc.Data)
	if err != nil {
		g.logger.Warn("Failed to encode document for cache", zap.String("key", key), zap.Error(err))
		return doc, nil
	}
	if err = g.cache.Set(ctx, key, b, g.ttl).Err(); err != nil {
		g.logger.Warn("Failed to cache document", zap.String("key", key), zap.Error(err))
	}

	return doc, nil
}

func (g *cachedGateway) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	err := g.Gateway.Update(ctx, collection, id, fields)
	g.invalidate(ctx, collection, id)
	return err
}

func (g *cachedGateway) Delete(ctx context.Context, collection, id string) error {
	err := g.Gateway.Delete(ctx, collection, id)
	g.invalidate(ctx, collection, id)
	return err
}

func (g *cachedGateway) invalidate(ctx context.Context, collection, id string) {
	if err := g.cache.Del(ctx, cacheKey(collection, id)).Err(); err != nil {
		g.logger.Warn("Failed to invalidate cached document", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
	}
}

func decodeCached(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	data := make(map[string]any)
	if err := dec.Decode(&data); err != nil {
		return nil, err
	}
	for k, v := range data {
		data[k] = normalizeNumber(v)
	}
	return data, nil
}
