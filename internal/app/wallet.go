/**
 * @description
 * Wallet payment handler: the charge-then-lock renewal flow. Each cycle runs
 * two database transactions — transaction A charges the current cycle from
 * the funds locked for it, transaction B reserves the next cycle's funds and
 * advances the renewal date. A process crash between the two leaves the cycle
 * charged with the renewal date not yet advanced; the next run detects the
 * existing delivery and reruns only the lock step.
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

func (s *Service) renewWithWallet(ctx context.Context, sub domain.Subscription, today time.Time) error {
	plan, err := s.repo.GetPlan(ctx, sub.PlanID)
	if err != nil {
		return fmt.Errorf("resolve plan: %w", err)
	}

	// The current cycle draws on the funds locked for it; a subscription that
	// predates any lock falls back to the plan price.
	chargePrice := sub.PlanPrice
	if chargePrice.IsZero() {
		chargePrice = plan.Price
	}

	// A delivery recorded past the un-advanced renewal date means a previous
	// attempt committed the charge transaction and crashed before the lock
	// step. The wallet is already drained for this cycle, so the balance
	// check would misread the charged state as insufficient funds; skip
	// straight to the lock step instead.
	charged, err := s.repo.GetNextDelivery(ctx, sub.ID, startOfDay(sub.RenewalDate).AddDate(0, 0, 1))
	if err != nil {
		return fmt.Errorf("check current cycle delivery: %w", err)
	}

	var deliveryDate time.Time
	if charged != nil {
		deliveryDate = charged.DeliveryDate
		s.logger.Info("cycle already charged, resuming at lock step", "subscription_id", sub.ID)
	} else {
		wallet, err := s.repo.GetWalletByCustomerID(ctx, sub.CustomerID)
		if err != nil {
			return fmt.Errorf("resolve wallet: %w", err)
		}
		if HasInsufficientWalletBalance(*wallet, chargePrice) {
			s.logger.Info("insufficient wallet balance, pausing subscription",
				"subscription_id", sub.ID, "customer_id", sub.CustomerID)
			return s.pauseForInsufficiency(ctx, sub, domain.NotifyInsufficientFunds,
				"Your subscription was paused because your wallet balance could not cover the renewal. Top up and resume any time.")
		}

		deliveryDate, err = NextDeliveryDate(today, plan.Frequency, s.cfg.BufferDays)
		if err != nil {
			return err
		}

		_, err = s.repo.ApplyWalletCharge(ctx, store.WalletChargeParams{
			Subscription: sub,
			Plan:         *plan,
			Price:        chargePrice,
			Quantity:     1,
			DeliveryDate: deliveryDate,
		})
		switch {
		case errors.Is(err, store.ErrInsufficientStock):
			s.logger.Info("insufficient stock, pausing subscription",
				"subscription_id", sub.ID, "product_id", plan.ProductID)
			return s.pauseForInsufficiency(ctx, sub, domain.NotifyInsufficientStock,
				"Your subscription was paused because the product is out of stock. We will let you know when it is back.")
		case errors.Is(err, store.ErrInsufficientFunds):
			return s.pauseForInsufficiency(ctx, sub, domain.NotifyInsufficientFunds,
				"Your subscription was paused because your wallet balance could not cover the renewal. Top up and resume any time.")
		case errors.Is(err, store.ErrCycleAlreadyFulfilled):
			// A concurrent run charged the cycle between the delivery read
			// above and the charge transaction; only the lock step remains.
			s.logger.Info("cycle already charged, resuming at lock step", "subscription_id", sub.ID)
		case err != nil:
			return fmt.Errorf("apply wallet charge: %w", err)
		}
	}

	nextRenewal, err := NextRenewalDate(sub.RenewalDate, plan.Frequency)
	if err != nil {
		return err
	}

	err = s.repo.LockNextCycle(ctx, store.LockNextCycleParams{
		SubscriptionID:  sub.ID,
		CustomerID:      sub.CustomerID,
		Amount:          plan.Price,
		NextRenewalDate: nextRenewal,
	})
	if errors.Is(err, store.ErrInsufficientFunds) {
		s.logger.Info("cannot lock next cycle, pausing subscription", "subscription_id", sub.ID)
		return s.pauseForInsufficiency(ctx, sub, domain.NotifyInsufficientFunds,
			"Your order is on its way, but we could not reserve funds for your next renewal. Your subscription is paused until you top up.")
	}
	if err != nil {
		return fmt.Errorf("lock next cycle: %w", err)
	}

	s.notify(ctx, sub, domain.NotifyRenewalSuccess,
		"Your subscription has renewed and your delivery is scheduled for "+deliveryDate.Format("Jan 2, 2006")+".")
	return nil
}
