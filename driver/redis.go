package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis client tuning. Reads are on the request path of every cached Get, so
// timeouts are short and a miss falls through to the document store.
const (
	redisMaxRetries   = 2
	redisDialTimeout  = 3 * time.Second
	redisReadTimeout  = time.Second
	redisWriteTimeout = time.Second
	redisPingTimeout  = 3 * time.Second
)

// ConnectRedis opens a client for the cache, cart snapshots and session
// records, and pings the server once.
func ConnectRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		MaxRetries:   redisMaxRetries,
		DialTimeout:  redisDialTimeout,
		ReadTimeout:  redisReadTimeout,
		WriteTimeout: redisWriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", addr, err)
	}
	return client, nil
}
