/**
 * @description
 * Cash-on-delivery payment handler. COD has no wallet precondition and no
 * lock step, so the whole cycle — pending order and payment, stock
 * consumption, delivery, renewal advance — is one database transaction.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shoply/renewal-service/internal/domain"
	"github.com/shoply/renewal-service/internal/store"
)

func (s *Service) renewWithCOD(ctx context.Context, sub domain.Subscription, today time.Time) error {
	plan, err := s.repo.GetPlan(ctx, sub.PlanID)
	if err != nil {
		return fmt.Errorf("resolve plan: %w", err)
	}

	deliveryDate, err := NextDeliveryDate(today, plan.Frequency, s.cfg.BufferDays)
	if err != nil {
		return err
	}
	nextRenewal, err := NextRenewalDate(sub.RenewalDate, plan.Frequency)
	if err != nil {
		return err
	}

	_, err = s.repo.ApplyCODRenewal(ctx, store.CODRenewalParams{
		Subscription:    sub,
		Plan:            *plan,
		Price:           plan.Price,
		Quantity:        1,
		DeliveryDate:    deliveryDate,
		NextRenewalDate: nextRenewal,
	})
	switch {
	case errors.Is(err, store.ErrInsufficientStock):
		s.logger.Info("insufficient stock, pausing subscription",
			"subscription_id", sub.ID, "product_id", plan.ProductID)
		return s.pauseForInsufficiency(ctx, sub, domain.NotifyInsufficientStock,
			"Your subscription was paused because the product is out of stock. We will let you know when it is back.")
	case errors.Is(err, store.ErrCycleAlreadyFulfilled):
		// COD renewals are a single transaction, so an existing delivery for
		// this cycle means the work is done; just release the claim.
		s.logger.Warn("cycle already fulfilled for cod subscription, releasing claim", "subscription_id", sub.ID)
		return s.repo.ReleaseSubscription(ctx, sub.ID)
	case err != nil:
		return fmt.Errorf("apply cod renewal: %w", err)
	}

	s.notify(ctx, sub, domain.NotifyPaymentDue,
		"Your subscription has renewed. Your delivery is scheduled for "+deliveryDate.Format("Jan 2, 2006")+" — payment is due on receipt.")
	return nil
}
