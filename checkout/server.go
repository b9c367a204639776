package checkout

import (
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"

	"goflare.io/storefront/models"
)

// EventSubjectPrefix is the NATS subject prefix verified webhook events are
// relayed under, followed by the event type.
const EventSubjectPrefix = "payment.service.event."

const maxBodyBytes = 64 << 10

var currencyCode = regexp.MustCompile(`^[a-z]{3}$`)

// SessionCreator creates hosted checkout sessions. *session.Client from
// stripe-go satisfies it.
type SessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// Publisher relays webhook payloads. *nats.Conn satisfies it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

type ServerConfig struct {
	SuccessURL    string
	CancelURL     string
	AllowedOrigin string
	WebhookSecret string
	Currency      string
}

// Server is the payment backend. It is the only process that holds the
// payment provider's secret key.
type Server struct {
	sessions  SessionCreator
	publisher Publisher
	cfg       ServerConfig
	logger    *zap.Logger
}

func NewServer(sessions SessionCreator, publisher Publisher, cfg ServerConfig, logger *zap.Logger) *Server {
	if cfg.Currency == "" {
		cfg.Currency = DefaultCurrency
	}
	return &Server{
		sessions:  sessions,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{s.cfg.AllowedOrigin},
		AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Post("/create-checkout-session", s.handleCreateSession)
	r.Post("/webhook", s.handleWebhook)

	return r
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req models.CheckoutRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.CheckoutResponse{Error: "invalid request body"})
		return
	}
	if req.Currency == "" {
		req.Currency = s.cfg.Currency
	}
	req.Currency = strings.ToLower(req.Currency)

	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, models.CheckoutResponse{Error: err.Error()})
		return
	}
	if !currencyCode.MatchString(req.Currency) {
		writeJSON(w, http.StatusBadRequest, models.CheckoutResponse{Error: "invalid currency"})
		return
	}

	params := s.sessionParams(&req)
	params.Context = r.Context()

	sess, err := s.sessions.New(params)
	if err != nil {
		s.logger.Error("Failed to create checkout session", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, models.CheckoutResponse{Error: "failed to create payment session"})
		return
	}

	s.logger.Info("Checkout session created",
		zap.String("session_id", sess.ID),
		zap.String("client_reference_id", req.ClientReferenceID),
		zap.Int("items", len(req.Items)))

	writeJSON(w, http.StatusOK, models.CheckoutResponse{URL: sess.URL})
}

func (s *Server) sessionParams(req *models.CheckoutRequest) *stripe.CheckoutSessionParams {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Items))
	for _, item := range req.Items {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.Description != "" {
			product.Description = stripe.String(item.Description)
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(req.Currency),
				ProductData: product,
				UnitAmount:  stripe.Int64(item.UnitAmount),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  lineItems,
		SuccessURL: stripe.String(s.cfg.SuccessURL),
		CancelURL:  stripe.String(s.cfg.CancelURL),
	}
	if req.ClientReferenceID != "" {
		params.ClientReferenceID = stripe.String(req.ClientReferenceID)
	}
	return params
}

// handleWebhook verifies the provider signature and relays the event to NATS.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, r.Header.Get("Stripe-Signature"), s.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		s.logger.Warn("Rejected webhook", zap.Error(err))
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	subject := EventSubjectPrefix + string(event.Type)
	if err = s.publisher.Publish(subject, payload); err != nil {
		s.logger.Error("Failed to relay webhook", zap.String("event_id", event.ID), zap.String("subject", subject), zap.Error(err))
		// a non-2xx makes the provider retry delivery
		http.Error(w, "failed to relay event", http.StatusServiceUnavailable)
		return
	}

	s.logger.Info("Webhook relayed", zap.String("event_id", event.ID), zap.String("type", string(event.Type)))
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
