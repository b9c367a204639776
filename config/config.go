// Package config reads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend names accepted in STORE_BACKEND.
const (
	BackendFirestore = "firestore"
	BackendPostgres  = "postgres"
	BackendMemory    = "memory"
)

type Config struct {
	Env      string
	LogLevel string

	// Remote store
	StoreBackend    string
	StoreTimeout    time.Duration
	GCPProjectID    string
	CredentialsFile string
	PostgresDSN     string

	// Firebase Authentication
	FirebaseAPIKey string

	// Redis backs the document cache, saved carts and, when set, the session record.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration
	CartTTL       time.Duration

	NATSURL string

	// Payment backend
	PaymentBackendURL string
	HTTPAddr          string
	StripeSecretKey   string
	WebhookSecret     string
	SuccessURL        string
	CancelURL         string
	AllowedOrigin     string
	Currency          string
}

// Load reads the environment. Values in a .env file in the working directory
// fill in variables that are not already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var errs []error

	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StoreBackend:    strings.ToLower(getEnv("STORE_BACKEND", BackendFirestore)),
		StoreTimeout:    getDuration("STORE_TIMEOUT", 10*time.Second, &errs),
		GCPProjectID:    os.Getenv("GCP_PROJECT_ID"),
		CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		PostgresDSN:     os.Getenv("POSTGRES_DSN"),

		FirebaseAPIKey: os.Getenv("FIREBASE_API_KEY"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0, &errs),
		CacheTTL:      getDuration("CACHE_TTL", 5*time.Minute, &errs),
		CartTTL:       getDuration("CART_TTL", 30*24*time.Hour, &errs),

		NATSURL: os.Getenv("NATS_URL"),

		PaymentBackendURL: getEnv("PAYMENT_BACKEND_URL", "http://localhost:4242/create-checkout-session"),
		HTTPAddr:          getEnv("HTTP_ADDR", ":4242"),
		StripeSecretKey:   os.Getenv("STRIPE_SECRET_KEY"),
		WebhookSecret:     os.Getenv("STRIPE_WEBHOOK_SECRET"),
		SuccessURL:        getEnv("CHECKOUT_SUCCESS_URL", "http://localhost:3000/success"),
		CancelURL:         getEnv("CHECKOUT_CANCEL_URL", "http://localhost:3000/cancel"),
		AllowedOrigin:     getEnv("ALLOWED_ORIGIN", "http://localhost:3000"),
		Currency:          strings.ToLower(getEnv("CURRENCY", "usd")),
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// RequireStorefront checks the settings the command-line storefront needs.
func (c *Config) RequireStorefront() error {
	var missing []string
	switch c.StoreBackend {
	case BackendFirestore:
		if c.GCPProjectID == "" {
			missing = append(missing, "GCP_PROJECT_ID")
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			missing = append(missing, "POSTGRES_DSN")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.FirebaseAPIKey == "" {
		missing = append(missing, "FIREBASE_API_KEY")
	}
	return missingError(missing)
}

// RequirePaymentd checks the settings the payment backend needs.
func (c *Config) RequirePaymentd() error {
	var missing []string
	if c.StripeSecretKey == "" {
		missing = append(missing, "STRIPE_SECRET_KEY")
	}
	if c.WebhookSecret == "" {
		missing = append(missing, "STRIPE_WEBHOOK_SECRET")
	}
	if c.NATSURL == "" {
		missing = append(missing, "NATS_URL")
	}
	return missingError(missing)
}

func missingError(missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}
