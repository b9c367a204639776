// Command storefront is an interactive command-line shop. It reads commands
// from standard input; type "help" for the list.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"firebase.google.com/go/v4/auth"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"goflare.io/storefront"
	"goflare.io/storefront/cart"
	"goflare.io/storefront/catalog"
	"goflare.io/storefront/checkout"
	"goflare.io/storefront/comment"
	"goflare.io/storefront/config"
	"goflare.io/storefront/docstore"
	"goflare.io/storefront/driver"
	"goflare.io/storefront/event"
	"goflare.io/storefront/logger"
	"goflare.io/storefront/session"
)

func main() {
	var (
		backend      = flag.String("backend", "", "document store: firestore, postgres or memory (default from STORE_BACKEND)")
		sessionStore = flag.String("session-store", "file", "where the signed-in session is kept: file or redis")
		pageSize     = flag.Int("page-size", 10, "products and comments per page")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *backend != "" {
		cfg.StoreBackend = *backend
	}

	l, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = l.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, cleanup, err := build(ctx, cfg, *sessionStore, l)
	if err != nil {
		l.Fatal("Failed to start storefront", zap.Error(err))
	}
	defer cleanup()
	defer svc.Close()

	sh := &shell{svc: svc, pageSize: *pageSize, out: os.Stdout}
	if err = sh.run(ctx, os.Stdin); err != nil {
		l.Error("Storefront shell stopped", zap.Error(err))
	}
}

// build connects the backing services and assembles the storefront. The
// returned cleanup closes every connection that was opened.
func build(ctx context.Context, cfg *config.Config, sessionStore string, l *zap.Logger) (storefront.Service, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (storefront.Service, func(), error) {
		cleanup()
		return nil, nil, err
	}

	if err := cfg.RequireStorefront(); err != nil {
		return fail(err)
	}

	gateway, err := openGateway(ctx, cfg, l, &closers)
	if err != nil {
		return fail(err)
	}
	gateway = docstore.WithTimeout(gateway, cfg.StoreTimeout)

	var (
		rdb   *redis.Client
		carts cart.Repository
	)
	if cfg.RedisAddr != "" {
		rdb, err = driver.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { _ = rdb.Close() })

		gateway = docstore.WithCache(gateway, rdb, cfg.CacheTTL, l)
		carts = cart.NewRepository(rdb, cfg.CartTTL, l)
	}

	var storage session.LocalStorage
	switch sessionStore {
	case "redis":
		if rdb == nil {
			return fail(errors.New("session store redis needs REDIS_ADDR"))
		}
		storage = session.NewRedisStorage(rdb, "storefront:")
	case "file":
		fileStorage, err := session.NewFileStorage("")
		if err != nil {
			return fail(err)
		}
		storage = fileStorage
	default:
		return fail(fmt.Errorf("unknown session store %q", sessionStore))
	}

	// The admin client is only needed to revoke refresh tokens on logout.
	var admin *auth.Client
	if cfg.GCPProjectID != "" {
		if admin, err = driver.ConnectFirebaseAuth(ctx, cfg.GCPProjectID, cfg.CredentialsFile); err != nil {
			l.Warn("Firebase admin unavailable, logout will not revoke tokens", zap.Error(err))
			admin = nil
		}
	}
	provider, err := session.NewFirebaseProvider(ctx, cfg.FirebaseAPIKey, admin, l)
	if err != nil {
		return fail(err)
	}

	deps := storefront.Dependencies{
		Catalog:  catalog.NewController(catalog.NewRepository(gateway, l), l),
		Comments: comment.NewController(comment.NewRepository(gateway, l), l),
		Session:  session.NewAdapter(ctx, provider, session.NewProfileStore(gateway, l), storage, l),
		Checkout: checkout.NewGateway(cfg.PaymentBackendURL, l, checkout.WithCurrency(cfg.Currency)),
		Events:   event.NewRepository(gateway, l),
		Carts:    carts,
	}

	if cfg.NATSURL != "" {
		nc, err := driver.ConnectNATS(cfg.NATSURL, "storefront", l)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, nc.Close)
		deps.NATS = nc
	}

	svc, err := storefront.NewService(deps, l)
	if err != nil {
		return fail(err)
	}
	return svc, cleanup, nil
}

func openGateway(ctx context.Context, cfg *config.Config, l *zap.Logger, closers *[]func()) (docstore.Gateway, error) {
	switch cfg.StoreBackend {
	case config.BackendFirestore:
		client, err := driver.ConnectFirestore(ctx, cfg.GCPProjectID, cfg.CredentialsFile)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, func() { _ = client.Close() })
		return docstore.NewFirestoreGateway(client, l), nil

	case config.BackendPostgres:
		pool, err := driver.ConnectSQL(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, pool.Close)

		g := docstore.NewPostgresGateway(pool, driver.NewTransactionManager(pool, l), l)
		if err = g.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return g, nil

	case config.BackendMemory:
		l.Warn("Using the in-memory document store, nothing will be kept after exit")
		return docstore.NewMemoryGateway(), nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
