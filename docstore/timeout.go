package docstore

import (
	"context"
	"time"

	"goflare.io/storefront/models"
)

type timeoutGateway struct {
	next    Gateway
	timeout time.Duration
}

// WithTimeout bounds every call on g by d. A call that has not returned when
// the deadline passes fails with a *RemoteError wrapping context.DeadlineExceeded,
// even if the backend ignores its context.
func WithTimeout(g Gateway, d time.Duration) Gateway {
	if d <= 0 {
		return g
	}
	return &timeoutGateway{next: g, timeout: d}
}

type result[T any] struct {
	v   T
	err error
}

func bounded[T any](ctx context.Context, d time.Duration, kind error, op, collection string, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan result[T], 1)
	go func() {
		v, err := fn(ctx)
		done <- result[T]{v: v, err: err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, remoteError(op, collection, kind, ctx.Err())
	}
}

func (g *timeoutGateway) Create(ctx context.Context, collection string, doc Document) (string, error) {
	return bounded(ctx, g.timeout, models.ErrRemoteWrite, "create", collection, func(ctx context.Context) (string, error) {
		return g.next.Create(ctx, collection, doc)
	})
}

func (g *timeoutGateway) Get(ctx context.Context, collection, id string) (Document, error) {
	return bounded(ctx, g.timeout, models.ErrRemoteQuery, "get", collection, func(ctx context.Context) (Document, error) {
		return g.next.Get(ctx, collection, id)
	})
}

func (g *timeoutGateway) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	_, err := bounded(ctx, g.timeout, models.ErrRemoteWrite, "update", collection, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.next.Update(ctx, collection, id, fields)
	})
	return err
}

func (g *timeoutGateway) Delete(ctx context.Context, collection, id string) error {
	_, err := bounded(ctx, g.timeout, models.ErrRemoteWrite, "delete", collection, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.next.Delete(ctx, collection, id)
	})
	return err
}

func (g *timeoutGateway) Query(ctx context.Context, q Query) (Page, error) {
	return bounded(ctx, g.timeout, models.ErrRemoteQuery, "query", q.Collection, func(ctx context.Context) (Page, error) {
		return g.next.Query(ctx, q)
	})
}
