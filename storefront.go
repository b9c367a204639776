// Package storefront wires the catalog, cart, comments, session and checkout
// into one service that owns a single shopper's state.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"

	"goflare.io/storefront/cart"
	"goflare.io/storefront/catalog"
	"goflare.io/storefront/comment"
	"goflare.io/storefront/event"
	"goflare.io/storefront/models"
	"goflare.io/storefront/session"
)

const defaultWorkers = 4

type Service interface {
	LoadProducts(ctx context.Context, page, size int) (catalog.Page, error)
	Products() []models.Product
	CurrentPage() int
	HasMorePages() bool
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	CreateProduct(ctx context.Context, product models.Product) (*models.Product, error)
	UpdateProduct(ctx context.Context, id string, update models.ProductUpdate) error
	DeleteProduct(ctx context.Context, id string) error

	AddToCart(product models.Product) bool
	IncrementQuantity(productID string)
	DecrementQuantity(productID string)
	RemoveFromCart(productID string)
	ClearCart()
	CartLines() []models.CartLine
	// CartQuantity is the number of units across all lines.
	CartQuantity() int64
	Subtotal() decimal.Decimal
	SaveCart(ctx context.Context) error
	RestoreCart(ctx context.Context) error

	LoadComments(ctx context.Context, productID string, page, size int) (comment.Page, error)
	CreateComment(ctx context.Context, productID, content string) (*models.Comment, error)
	EditComment(ctx context.Context, id, content string) (*models.Comment, error)
	DeleteComment(ctx context.Context, id string) error

	Register(ctx context.Context, in session.RegisterInput) (*models.Session, error)
	Login(ctx context.Context, email, password string) (*models.Session, error)
	Logout(ctx context.Context) error
	SendPasswordReset(ctx context.Context, email string) error
	CurrentSession() *models.Session
	IsAuthenticated() bool

	// Checkout returns the payment page URL for the current cart.
	Checkout(ctx context.Context) (string, error)

	ProcessEvent(ctx context.Context, event *stripe.Event) error
	Close()
}

// CheckoutGateway creates hosted payment sessions. *checkout.Gateway satisfies it.
type CheckoutGateway interface {
	CreateSession(ctx context.Context, lines []models.CartLine, clientReferenceID string) (string, error)
}

// Dependencies are the components the service is built from. Carts and NATS
// are optional: without Carts the cart lives only in memory, without NATS no
// payment events are received.
type Dependencies struct {
	Catalog  *catalog.Controller
	Comments *comment.Controller
	Session  *session.Adapter
	Checkout CheckoutGateway
	Events   event.Repository
	Carts    cart.Repository
	NATS     *nats.Conn
	Workers  int
}

var _ Service = (*service)(nil)

// service serializes every call with mu; none of the components it owns are
// safe for concurrent use on their own.
type service struct {
	mu sync.Mutex

	catalog  *catalog.Controller
	cart     *cart.Cart
	carts    cart.Repository
	comments *comment.Controller
	session  *session.Adapter
	checkout CheckoutGateway
	event    event.Repository

	eventManager *EventManager
	workerPool   *WorkerPool

	logger *zap.Logger
}

func NewService(deps Dependencies, logger *zap.Logger) (Service, error) {
	s := &service{
		catalog:  deps.Catalog,
		cart:     cart.New(),
		carts:    deps.Carts,
		comments: deps.Comments,
		session:  deps.Session,
		checkout: deps.Checkout,
		event:    deps.Events,
		logger:   logger,
	}

	s.eventManager = NewEventManager(deps.NATS, logger)
	s.registerEventHandlers()

	if deps.NATS != nil {
		workers := deps.Workers
		if workers <= 0 {
			workers = defaultWorkers
		}
		s.workerPool = NewWorkerPool(workers, s, logger)

		// 訂閱事件
		if err := s.eventManager.SubscribeToEvents(s.workerPool); err != nil {
			s.workerPool.Shutdown()
			return nil, fmt.Errorf("failed to subscribe to payment events: %w", err)
		}
	}

	return s, nil
}

func (s *service) LoadProducts(ctx context.Context, page, size int) (catalog.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.LoadPage(ctx, page, size)
}

func (s *service) Products() []models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.Products()
}

func (s *service) CurrentPage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.CurrentPage()
}

func (s *service) HasMorePages() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.HasMore()
}

func (s *service) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.GetProduct(ctx, id)
}

func (s *service) CreateProduct(ctx context.Context, product models.Product) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdmin(); err != nil {
		return nil, err
	}
	return s.catalog.CreateProduct(ctx, product)
}

func (s *service) UpdateProduct(ctx context.Context, id string, update models.ProductUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdmin(); err != nil {
		return err
	}
	return s.catalog.UpdateProduct(ctx, id, update)
}

func (s *service) DeleteProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdmin(); err != nil {
		return err
	}
	return s.catalog.DeleteProduct(ctx, id)
}

func (s *service) AddToCart(product models.Product) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.AddToCart(product)
}

func (s *service) IncrementQuantity(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.IncrementQuantity(productID)
}

func (s *service) DecrementQuantity(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.DecrementQuantity(productID)
}

func (s *service) RemoveFromCart(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.RemoveFromCart(productID)
}

func (s *service) ClearCart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.ClearCart()
}

func (s *service) CartLines() []models.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Lines()
}

func (s *service) CartQuantity() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.TotalQuantity()
}

func (s *service) Subtotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.CalculateSubtotal()
}

// SaveCart stores a snapshot of the cart for the signed-in user.
func (s *service) SaveCart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, err := s.cartOwner()
	if err != nil {
		return err
	}
	return s.carts.Save(ctx, owner, s.cart)
}

// RestoreCart replaces the cart with the signed-in user's snapshot. A user
// without a snapshot keeps the current cart.
func (s *service) RestoreCart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, err := s.cartOwner()
	if err != nil {
		return err
	}

	restored, err := s.carts.Load(ctx, owner)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	s.cart = restored
	return nil
}

func (s *service) cartOwner() (string, error) {
	if s.carts == nil {
		return "", errors.New("cart persistence is not configured")
	}
	current := s.session.Current()
	if current == nil {
		return "", fmt.Errorf("saving a cart requires a signed-in user: %w", models.ErrAuth)
	}
	return current.UID, nil
}

func (s *service) LoadComments(ctx context.Context, productID string, page, size int) (comment.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.comments.LoadPage(ctx, productID, page, size)
}

func (s *service) CreateComment(ctx context.Context, productID, content string) (*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.comments.Create(ctx, s.session.Current(), productID, content)
}

func (s *service) EditComment(ctx context.Context, id, content string) (*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.comments.Edit(ctx, s.session.Current(), id, content)
}

func (s *service) DeleteComment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.comments.Delete(ctx, s.session.Current(), id)
}

func (s *service) Register(ctx context.Context, in session.RegisterInput) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Register(ctx, in)
}

func (s *service) Login(ctx context.Context, email, password string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Login(ctx, email, password)
}

func (s *service) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Logout(ctx)
}

func (s *service) SendPasswordReset(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.SendPasswordReset(ctx, email)
}

func (s *service) CurrentSession() *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Current()
}

func (s *service) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.IsAuthenticated()
}

func (s *service) Checkout(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.session.Current()
	if current == nil {
		return "", fmt.Errorf("checkout requires a signed-in user: %w", models.ErrAuth)
	}
	if s.cart.IsEmpty() {
		return "", models.Invalid("cart is empty")
	}

	url, err := s.checkout.CreateSession(ctx, s.cart.Lines(), current.UID)
	if err != nil {
		s.logger.Error("Checkout failed", zap.String("uid", current.UID), zap.Error(err))
		return "", err
	}

	s.logger.Info("Checkout session ready",
		zap.String("uid", current.UID),
		zap.Int("lines", s.cart.Len()),
		zap.String("subtotal", s.cart.CalculateSubtotal().StringFixed(2)))
	return url, nil
}

func (s *service) Close() {
	if err := s.eventManager.Unsubscribe(); err != nil {
		s.logger.Warn("Failed to unsubscribe from payment events", zap.Error(err))
	}
	if s.workerPool != nil {
		s.workerPool.Shutdown()
	}
}

func (s *service) requireAdmin() error {
	current := s.session.Current()
	if current == nil {
		return models.ErrAuth
	}
	if !current.IsAdmin {
		return fmt.Errorf("user %s is not an administrator: %w", current.UID, models.ErrForbidden)
	}
	return nil
}
