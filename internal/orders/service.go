// Package orders holds the order lifecycle: placement, status changes and the
// notifications that follow a committed change.
package orders

import (
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"kitchen-orders-backend/internal/model"
	"kitchen-orders-backend/internal/store"
)

// Event names published on a restaurant's channel.
const (
	EventOrderCreated = "order.created"
	EventOrderUpdated = "order.updated"
)

// Broadcaster publishes an event to every subscriber of a channel.
type Broadcaster interface {
	Broadcast(channel, event string, data any) error
}

// Notifier alerts a restaurant's kitchen devices about a new order. It must
// not block the caller.
type Notifier interface {
	NotifyNewOrder(order model.Order)
}

// Service applies order operations against the store and announces
// committed changes.
type Service struct {
	store       store.Store
	broadcaster Broadcaster
	notifier    Notifier
	policy      TransitionPolicy
	taxRate     float64
	listDefault int
	listMax     int
	logger      *slog.Logger
	now         func() time.Time
	newID       func() string
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets the kitchen alert sink for new orders.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithPolicy replaces the default permissive transition policy.
func WithPolicy(p TransitionPolicy) Option {
	return func(s *Service) {
		if p != nil {
			s.policy = p
		}
	}
}

// WithTaxRate sets the tax rate applied to order subtotals, e.g. 0.08.
func WithTaxRate(rate float64) Option {
	return func(s *Service) { s.taxRate = rate }
}

// WithListLimits sets the default and maximum page size of order listings.
func WithListLimits(def, max int) Option {
	return func(s *Service) {
		if def > 0 {
			s.listDefault = def
		}
		if max > 0 {
			s.listMax = max
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires a Service. A nil broadcaster disables live notifications.
func NewService(st store.Store, b Broadcaster, opts ...Option) *Service {
	s := &Service{
		store:       st,
		broadcaster: b,
		policy:      AnyTransition,
		listDefault: 50,
		listMax:     200,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// broadcast publishes after a commit. Delivery problems are logged and never
// turn a committed change into a failure.
func (s *Service) broadcast(channel, event string, data any) {
	if s.broadcaster == nil {
		return
	}
	if err := s.broadcaster.Broadcast(channel, event, data); err != nil {
		s.logger.Warn("broadcast failed",
			slog.String("channel", channel),
			slog.String("event", event),
			slog.String("error", err.Error()))
	}
}
