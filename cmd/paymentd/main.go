// Command paymentd is the payment backend. It creates Stripe Checkout
// Sessions for the storefront and relays verified webhook events to NATS.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"go.uber.org/zap"

	"goflare.io/storefront/checkout"
	"goflare.io/storefront/config"
	"goflare.io/storefront/driver"
	"goflare.io/storefront/logger"
)

const shutdownTimeout = 25 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	l, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = l.Sync() }()

	if err = run(cfg, l); err != nil {
		l.Fatal("paymentd stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, l *zap.Logger) error {
	if err := cfg.RequirePaymentd(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	nc, err := driver.ConnectNATS(cfg.NATSURL, "paymentd", l)
	if err != nil {
		return err
	}
	defer nc.Close()

	// stripe-go logs through its own leveled logger; keep it to errors.
	stripe.DefaultLeveledLogger = &stripe.LeveledLogger{Level: stripe.LevelError}
	sessions := &session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: cfg.StripeSecretKey}

	server := checkout.NewServer(sessions, nc, checkout.ServerConfig{
		SuccessURL:    cfg.SuccessURL,
		CancelURL:     cfg.CancelURL,
		AllowedOrigin: cfg.AllowedOrigin,
		WebhookSecret: cfg.WebhookSecret,
		Currency:      cfg.Currency,
	}, l)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      server.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info("paymentd listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err = <-errCh:
		return err
	case <-ctx.Done():
	}

	l.Info("Shutting down paymentd")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err = nc.Drain(); err != nil {
		l.Warn("Failed to drain NATS connection", zap.Error(err))
	}
	return nil
}
