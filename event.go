package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"

	"goflare.io/storefront/checkout"
	"goflare.io/storefront/models"
)

type EventHandler func(context.Context, *stripe.Event) error

type EventManager struct {
	natsConn *nats.Conn
	sub      *nats.Subscription
	handlers map[stripe.EventType]EventHandler
	logger   *zap.Logger
}

func NewEventManager(natsConn *nats.Conn, logger *zap.Logger) *EventManager {
	return &EventManager{
		natsConn: natsConn,
		handlers: make(map[stripe.EventType]EventHandler),
		logger:   logger,
	}
}

func (em *EventManager) RegisterHandler(eventType stripe.EventType, handler EventHandler) {
	em.handlers[eventType] = handler
}

func (em *EventManager) GetHandler(eventType stripe.EventType) (EventHandler, bool) {
	handler, exists := em.handlers[eventType]
	return handler, exists
}

// SubscribeToEvents hands every event relayed by the payment backend to wp.
func (em *EventManager) SubscribeToEvents(wp *WorkerPool) error {
	if em.natsConn == nil {
		return errors.New("nats connection is not configured")
	}

	sub, err := em.natsConn.Subscribe(checkout.EventSubjectPrefix+">", func(msg *nats.Msg) {
		var event stripe.Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			em.logger.Error("Failed to unmarshal event", zap.String("subject", msg.Subject), zap.Error(err))
			return
		}

		wp.Submit(context.Background(), &event)
	})
	if err != nil {
		return err
	}

	em.sub = sub
	return nil
}

func (em *EventManager) Unsubscribe() error {
	if em.sub == nil {
		return nil
	}
	err := em.sub.Unsubscribe()
	em.sub = nil
	return err
}

func (s *service) registerEventHandlers() {
	eventHandlers := map[stripe.EventType]EventHandler{
		stripe.EventTypeCheckoutSessionCompleted: s.handleCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionExpired:   s.handleCheckoutSessionExpired,
	}

	for eventType, handler := range eventHandlers {
		s.eventManager.RegisterHandler(eventType, handler)
	}
}

// handleCheckoutSessionCompleted empties the cart of the shopper who paid. Sessions
// paid by someone else, or finished after the shopper signed out, only drop
// that shopper's saved snapshot.
func (s *service) handleCheckoutSessionCompleted(ctx context.Context, event *stripe.Event) error {
	s.logger.Info("Handling Checkout Session completed event", zap.String("event_id", event.ID))

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		s.logger.Error("Failed to unmarshal Checkout Session", zap.Error(err))
		return err
	}

	owner := session.ClientReferenceID
	if owner == "" {
		s.logger.Warn("Checkout Session has no client reference", zap.String("session_id", session.ID))
		return nil
	}

	s.mu.Lock()
	current := s.session.Current()
	if current != nil && current.UID == owner {
		s.cart.ClearCart()
		s.logger.Info("Cart cleared after payment", zap.String("uid", owner), zap.String("session_id", session.ID))
	}
	s.mu.Unlock()

	if s.carts == nil {
		return nil
	}
	if err := s.carts.Delete(ctx, owner); err != nil {
		return fmt.Errorf("failed to delete saved cart: %w", err)
	}
	return nil
}

func (s *service) handleCheckoutSessionExpired(_ context.Context, event *stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		s.logger.Error("Failed to unmarshal Checkout Session", zap.Error(err))
		return err
	}

	s.logger.Info("Checkout Session expired",
		zap.String("event_id", event.ID),
		zap.String("session_id", session.ID),
		zap.String("client_reference_id", session.ClientReferenceID))
	return nil
}

// ProcessEvent claims the event in the ledger and runs its handler. A claim
// whose handler fails is released so the event can be retried.
func (s *service) ProcessEvent(ctx context.Context, event *stripe.Event) error {
	handler, exists := s.eventManager.GetHandler(event.Type)
	if !exists {
		s.logger.Debug("Ignoring unhandled event", zap.String("event_id", event.ID), zap.String("event_type", string(event.Type)))
		return nil
	}

	claimed, err := s.event.MarkAsProcessed(ctx, &models.Event{
		ID:          event.ID,
		Type:        event.Type,
		ProcessedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	if !claimed {
		s.logger.Info("Event already processed", zap.String("event_id", event.ID))
		return nil
	}

	if err = handler(ctx, event); err != nil {
		s.logger.Error("處理事件時出錯",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
		if relErr := s.event.Release(ctx, event.ID); relErr != nil {
			return errors.Join(err, relErr)
		}
		return err
	}

	s.logger.Info("Stripe event processed", zap.String("event_id", event.ID))
	return nil
}
