/**
 * @description
 * This file contains the core Service for the renewal engine. The Service
 * orchestrates the per-subscription renewal workflow, dispatching to the
 * payment-method handler and coordinating the repository, the notification
 * publisher and the configuration.
 *
 * @dependencies
 * - internal/config, internal/domain, internal/store: Internal packages.
 * - log/slog: Structured logging.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shoply/renewal-service/internal/config"
	"github.com/shoply/renewal-service/internal/domain"
	"github.com/shoply/renewal-service/internal/store"
)

// ErrUnknownPaymentMethod is returned for a payment method the engine has no
// handler for. Fatal for the cycle attempt; retrying cannot change it.
var ErrUnknownPaymentMethod = errors.New("unknown payment method")

// Notifier publishes customer notifications. Dispatch is fire-and-forget: a
// publish failure is logged and never fails or rolls back a renewal.
type Notifier interface {
	Notify(ctx context.Context, event domain.NotificationEvent) error
}

// Service provides the business logic of the renewal engine.
type Service struct {
	repo     store.Repository
	notifier Notifier
	logger   *slog.Logger
	cfg      config.Config
}

// NewService creates a new renewal service instance.
func NewService(repo store.Repository, notifier Notifier, logger *slog.Logger, cfg config.Config) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
		cfg:      cfg,
	}
}

// GetSubscription retrieves a subscription by id.
func (s *Service) GetSubscription(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	return s.repo.GetSubscription(ctx, id)
}

// processSubscription runs one renewal cycle for a claimed subscription.
// Resource insufficiency is a state transition, not an error; only failures
// worth retrying (or surfacing) are returned.
func (s *Service) processSubscription(ctx context.Context, sub domain.Subscription, today time.Time) error {
	switch sub.PaymentMethod {
	case domain.PaymentMethodWallet:
		return s.renewWithWallet(ctx, sub, today)
	case domain.PaymentMethodCOD:
		return s.renewWithCOD(ctx, sub, today)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownPaymentMethod, sub.PaymentMethod)
	}
}

// pauseForInsufficiency transitions the subscription to paused, releases the
// claim and notifies the customer. Terminal for this cycle; never retried.
func (s *Service) pauseForInsufficiency(ctx context.Context, sub domain.Subscription, template, message string) error {
	if err := s.repo.MarkPaused(ctx, sub.ID); err != nil {
		if errors.Is(err, store.ErrSubscriptionNotActive) {
			// Status changed under us; the claim still needs releasing.
			s.logger.Warn("subscription no longer active while pausing", "subscription_id", sub.ID)
			return s.repo.ReleaseSubscription(ctx, sub.ID)
		}
		return fmt.Errorf("pause subscription: %w", err)
	}
	s.notify(ctx, sub, template, message)
	return nil
}

// notify publishes a customer notification, logging instead of failing.
func (s *Service) notify(ctx context.Context, sub domain.Subscription, template, message string) {
	event := domain.NotificationEvent{
		CustomerID:     sub.CustomerID,
		SubscriptionID: sub.ID,
		Template:       template,
		Message:        message,
		OccurredAt:     time.Now().UTC(),
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.logger.Warn("notification publish failed",
			"subscription_id", sub.ID, "template", template, "error", err)
	}
}

// isFatal reports whether a cycle error cannot be cured by retrying with the
// same inputs (missing entities, malformed data).
func isFatal(err error) bool {
	return errors.Is(err, store.ErrWalletNotFound) ||
		errors.Is(err, store.ErrPlanNotFound) ||
		errors.Is(err, store.ErrProductNotFound) ||
		errors.Is(err, store.ErrSubscriptionNotFound) ||
		errors.Is(err, ErrInvalidFrequency) ||
		errors.Is(err, ErrUnknownPaymentMethod)
}
