// Package service provides the subscriber-list reconciliation logic.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	gumerrors "github.com/mbocharov/gumhook/internal/errors"
	"github.com/mbocharov/gumhook/internal/registry"
	"github.com/mbocharov/gumhook/internal/store"
	"github.com/mbocharov/gumhook/pkg/messaging"
	"github.com/mbocharov/gumhook/pkg/messaging/events"
)

// SubscriberService defines the operations for maintaining and querying
// per-product subscriber sets.
type SubscriberService interface {
	// HandleWebhook interprets a raw webhook field map and applies the
	// resulting add/remove to the store.
	// Returns ErrMissingEmail or ErrUntrustedSender for rejected payloads.
	HandleWebhook(ctx context.Context, fields map[string]string) (*WebhookResultDto, error)

	// Verify checks membership of an email in one product's set.
	Verify(ctx context.Context, product, email string) (*VerificationDto, error)

	// VerifyAny checks membership across all registered products in registry
	// order and attributes the first match.
	VerifyAny(ctx context.Context, email string) (*VerificationDto, error)

	// ListAll returns the current subscriber sets of every registered product.
	ListAll(ctx context.Context) (map[string][]string, error)

	// Add directly inserts a subscriber, bypassing event interpretation.
	// Returns ErrMissingParameter unless both product and email are present.
	Add(ctx context.Context, product, email string) (bool, error)

	// Remove directly deletes a subscriber, bypassing event interpretation.
	// Returns ErrMissingParameter unless both product and email are present.
	Remove(ctx context.Context, product, email string) (bool, error)

	// Health returns a diagnostic snapshot with per-product counts.
	Health(ctx context.Context) (*HealthDto, error)
}

// WebhookResultDto is the outcome of a processed webhook event.
type WebhookResultDto struct {
	Success bool   `json:"success"`
	Product string `json:"product"`
	Action  string `json:"action"`
	Changed bool   `json:"-"`
	Email   string `json:"-"`
}

// VerificationDto reports the subscription status of an email.
type VerificationDto struct {
	Email      string `json:"email"`
	Subscribed bool   `json:"subscribed"`
	Status     string `json:"status"`
	Product    string `json:"product,omitempty"`
}

// HealthDto is a side-effect-free diagnostic snapshot.
type HealthDto struct {
	Status      string         `json:"status"`
	Subscribers map[string]int `json:"subscribers"`
	Timestamp   string         `json:"timestamp"`
}

// Subscription status values reported by verification.
const (
	StatusActive = "active"
	StatusNone   = "none"
)

// Service implements SubscriberService on top of a SubscriberStore and the
// static product registry.
type Service struct {
	store       store.SubscriberStore
	registry    *registry.Registry
	interpreter *Interpreter
	publisher   messaging.Publisher // nil when event publishing is disabled
	logger      *slog.Logger
}

// NewService creates a new SubscriberService. publisher may be nil.
func NewService(st store.SubscriberStore, reg *registry.Registry, interpreter *Interpreter, publisher messaging.Publisher, logger *slog.Logger) *Service {
	return &Service{
		store:       st,
		registry:    reg,
		interpreter: interpreter,
		publisher:   publisher,
		logger:      logger.With("component", "service"),
	}
}

// HandleWebhook interprets the payload and reconciles the subscriber set.
// Unknown product keys are processed anyway: the registry cannot be assumed
// complete at every release, and dropping paid events silently is worse than
// tracking an unregistered key.
func (s *Service) HandleWebhook(ctx context.Context, fields map[string]string) (*WebhookResultDto, error) {
	event, err := s.interpreter.Interpret(fields)
	if err != nil {
		return nil, err
	}

	if _, ok := s.registry.Lookup(event.Product); !ok {
		s.logger.WarnContext(ctx, "Webhook for unregistered product", "product", event.Product)
	}

	var changed bool
	switch event.Action {
	case ActionRemove:
		changed, err = s.store.Remove(ctx, event.Product, event.Email)
	default:
		changed, err = s.store.Add(ctx, event.Product, event.Email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to apply %s for product %s: %w", event.Action, event.Product, err)
	}

	if changed {
		s.publishChange(ctx, event.Product, event.Email, event.Action)
	}

	return &WebhookResultDto{
		Success: true,
		Product: event.Product,
		Action:  string(event.Action),
		Changed: changed,
		Email:   event.Email,
	}, nil
}

// Verify checks membership in a single product's subscriber set.
func (s *Service) Verify(ctx context.Context, product, email string) (*VerificationDto, error) {
	normalized := store.NormalizeEmail(email)
	emails, err := s.store.Load(ctx, product)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscribers for %s: %w", product, err)
	}
	if slices.Contains(emails, normalized) {
		return &VerificationDto{Email: normalized, Subscribed: true, Status: StatusActive, Product: product}, nil
	}
	return &VerificationDto{Email: normalized, Subscribed: false, Status: StatusNone}, nil
}

// VerifyAny checks membership across all registered products and reports the
// first match in registry order. No product is attributed when none match.
func (s *Service) VerifyAny(ctx context.Context, email string) (*VerificationDto, error) {
	normalized := store.NormalizeEmail(email)
	for _, product := range s.registry.Keys() {
		emails, err := s.store.Load(ctx, product)
		if err != nil {
			return nil, fmt.Errorf("failed to load subscribers for %s: %w", product, err)
		}
		if slices.Contains(emails, normalized) {
			return &VerificationDto{Email: normalized, Subscribed: true, Status: StatusActive, Product: product}, nil
		}
	}
	return &VerificationDto{Email: normalized, Subscribed: false, Status: StatusNone}, nil
}

// ListAll returns the current on-disk subscriber sets of every registered product.
func (s *Service) ListAll(ctx context.Context) (map[string][]string, error) {
	all := make(map[string][]string, s.registry.Len())
	for _, product := range s.registry.Keys() {
		emails, err := s.store.Load(ctx, product)
		if err != nil {
			return nil, fmt.Errorf("failed to load subscribers for %s: %w", product, err)
		}
		all[product] = emails
	}
	return all, nil
}

// Add directly inserts a subscriber into a product's set.
func (s *Service) Add(ctx context.Context, product, email string) (bool, error) {
	normalized := store.NormalizeEmail(email)
	if product == "" || normalized == "" {
		return false, gumerrors.ErrMissingParameter
	}
	added, err := s.store.Add(ctx, product, normalized)
	if err != nil {
		return false, fmt.Errorf("failed to add subscriber for %s: %w", product, err)
	}
	if added {
		s.publishChange(ctx, product, normalized, ActionAdd)
	}
	return added, nil
}

// Remove directly deletes a subscriber from a product's set.
func (s *Service) Remove(ctx context.Context, product, email string) (bool, error) {
	normalized := store.NormalizeEmail(email)
	if product == "" || normalized == "" {
		return false, gumerrors.ErrMissingParameter
	}
	removed, err := s.store.Remove(ctx, product, normalized)
	if err != nil {
		return false, fmt.Errorf("failed to remove subscriber for %s: %w", product, err)
	}
	if removed {
		s.publishChange(ctx, product, normalized, ActionRemove)
	}
	return removed, nil
}

// Health returns per-product subscriber counts and a timestamp.
func (s *Service) Health(ctx context.Context) (*HealthDto, error) {
	counts := make(map[string]int, s.registry.Len())
	for _, product := range s.registry.Keys() {
		emails, err := s.store.Load(ctx, product)
		if err != nil {
			return nil, fmt.Errorf("failed to load subscribers for %s: %w", product, err)
		}
		counts[product] = len(emails)
	}
	return &HealthDto{
		Status:      "ok",
		Subscribers: counts,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// publishChange emits a subscriber lifecycle event when a publisher is wired.
// Publishing is best effort: a broker failure never fails the request.
func (s *Service) publishChange(ctx context.Context, product, email string, action Action) {
	if s.publisher == nil {
		return
	}
	var event messaging.Event
	if action == ActionRemove {
		event = events.SubscriberRemovedEvent{Product: product, Email: email, OccurredAt: time.Now().UTC()}
	} else {
		event = events.SubscriberAddedEvent{Product: product, Email: email, OccurredAt: time.Now().UTC()}
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish subscriber event",
			"product", product, "action", action, "error", err)
	}
}
