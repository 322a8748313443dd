/**
 * @description
 * Customer-initiated pause/resume/cancel workflow. Pausing or cancelling is
 * refused inside the buffer window before an imminent delivery, because that
 * fulfillment cycle is already committed; outside the window the pending
 * delivery, its order, the payment and the wallet lock are all reversed in
 * one database transaction.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shoply/renewal-service/internal/domain"
	"github.com/shoply/renewal-service/internal/store"
)

// ErrDeliveryTooClose rejects a pause/cancel attempted within the buffer
// window of the next delivery.
var ErrDeliveryTooClose = errors.New("next delivery is too close to pause or cancel")

// PauseSubscription pauses an active subscription, reversing the pending
// fulfillment cycle.
func (s *Service) PauseSubscription(ctx context.Context, id uuid.UUID, today time.Time) error {
	sub, err := s.repo.GetSubscription(ctx, id)
	if err != nil {
		return err
	}
	if sub.Status != domain.SubscriptionActive {
		return store.ErrSubscriptionNotActive
	}

	if err := s.checkDeliveryBuffer(ctx, id, today); err != nil {
		return err
	}

	err = s.repo.CancelSubscriptionCycle(ctx, store.CancelCycleParams{
		SubscriptionID: id,
		NewStatus:      domain.SubscriptionPaused,
		Today:          today,
	})
	if err != nil {
		return fmt.Errorf("pause subscription cycle: %w", err)
	}

	s.notify(ctx, *sub, domain.NotifyPaused, "Your subscription has been paused. Resume any time to pick up where you left off.")
	return nil
}

// ResumeSubscription reactivates a paused subscription. A renewal date left
// in the past is picked up by the next scheduled run; no catch-up charge.
func (s *Service) ResumeSubscription(ctx context.Context, id uuid.UUID) error {
	return s.repo.ResumeSubscription(ctx, id)
}

// CancelSubscription cancels an active or paused subscription permanently,
// reversing the pending fulfillment cycle.
func (s *Service) CancelSubscription(ctx context.Context, id uuid.UUID, today time.Time) error {
	sub, err := s.repo.GetSubscription(ctx, id)
	if err != nil {
		return err
	}
	if sub.Status != domain.SubscriptionActive && sub.Status != domain.SubscriptionPaused {
		return store.ErrSubscriptionNotActive
	}

	if err := s.checkDeliveryBuffer(ctx, id, today); err != nil {
		return err
	}

	err = s.repo.CancelSubscriptionCycle(ctx, store.CancelCycleParams{
		SubscriptionID: id,
		NewStatus:      domain.SubscriptionCancelled,
		Today:          today,
	})
	if err != nil {
		return fmt.Errorf("cancel subscription cycle: %w", err)
	}

	s.notify(ctx, *sub, domain.NotifyCancelled, "Your subscription has been cancelled. Any pending delivery was cancelled and refunded.")
	return nil
}

// checkDeliveryBuffer allows the action unconditionally when no delivery is
// upcoming; otherwise the delivery must be strictly more than BufferDays
// away.
func (s *Service) checkDeliveryBuffer(ctx context.Context, id uuid.UUID, today time.Time) error {
	delivery, err := s.repo.GetNextDelivery(ctx, id, startOfDay(today))
	if err != nil {
		return fmt.Errorf("find next delivery: %w", err)
	}
	if delivery == nil {
		return nil
	}
	if daysUntil(today, delivery.DeliveryDate) <= s.cfg.BufferDays {
		return ErrDeliveryTooClose
	}
	return nil
}
