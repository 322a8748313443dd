/**
 * @description
 * This file defines the Repository interface, which abstracts all persistence
 * operations the renewal engine needs. Simple reads are fine-grained; every
 * ledger-affecting step (charge, lock-next-cycle, COD renewal, cycle
 * cancellation) is a single composite method so the PostgreSQL implementation
 * can wrap it in one database transaction.
 *
 * @dependencies
 * - internal/domain: Domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shoply/renewal-service/internal/domain"
)

var (
	ErrSubscriptionNotFound      = errors.New("subscription not found")
	ErrPlanNotFound              = errors.New("subscription plan not found")
	ErrProductNotFound           = errors.New("product not found")
	ErrWalletNotFound            = errors.New("wallet not found")
	ErrOrderNotFound             = errors.New("order not found")
	ErrAlreadyProcessing         = errors.New("subscription is already being processed")
	ErrSubscriptionNotActive     = errors.New("subscription is not active")
	ErrSubscriptionNotPaused     = errors.New("subscription is not paused")
	ErrInsufficientStock         = errors.New("insufficient product stock")
	ErrInsufficientFunds         = errors.New("insufficient wallet funds")
	ErrInsufficientLockedBalance = errors.New("locked balance would go negative")
	ErrCycleAlreadyFulfilled     = errors.New("cycle already has a delivery")
)

// WalletChargeParams carries everything the charge transaction needs for one
// wallet-funded renewal cycle.
type WalletChargeParams struct {
	Subscription domain.Subscription
	Plan         domain.SubscriptionPlan
	Price        decimal.Decimal
	Quantity     int
	DeliveryDate time.Time
}

// LockNextCycleParams reserves funds for the following cycle and advances the
// subscription to its next renewal date.
type LockNextCycleParams struct {
	SubscriptionID  uuid.UUID
	CustomerID      uuid.UUID
	Amount          decimal.Decimal
	NextRenewalDate time.Time
}

// CODRenewalParams carries everything the cash-on-delivery renewal
// transaction needs for one cycle.
type CODRenewalParams struct {
	Subscription    domain.Subscription
	Plan            domain.SubscriptionPlan
	Price           decimal.Decimal
	Quantity        int
	DeliveryDate    time.Time
	NextRenewalDate time.Time
}

// CancelCycleParams drives the customer-initiated pause/cancel reversal.
// NewStatus must be domain.SubscriptionPaused or domain.SubscriptionCancelled.
type CancelCycleParams struct {
	SubscriptionID uuid.UUID
	NewStatus      string
	Today          time.Time
}

// Repository defines the persistence operations used by the renewal engine.
type Repository interface {
	GetSubscription(ctx context.Context, id uuid.UUID) (*domain.Subscription, error)
	ListDueSubscriptions(ctx context.Context, dueOn time.Time, limit, offset int) ([]domain.Subscription, error)
	GetPlan(ctx context.Context, id uuid.UUID) (*domain.SubscriptionPlan, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	GetWalletByCustomerID(ctx context.Context, customerID uuid.UUID) (*domain.Wallet, error)
	GetNextDelivery(ctx context.Context, subscriptionID uuid.UUID, onOrAfter time.Time) (*domain.SubscriptionDelivery, error)

	// ClaimSubscription atomically marks a subscription as processing. It
	// returns ErrAlreadyProcessing when another worker holds the claim, which
	// serializes concurrent renewal attempts on the same row.
	ClaimSubscription(ctx context.Context, id uuid.UUID) error
	// ReleaseSubscription clears the processing flag. Called on every exit
	// path that did not already clear it transactionally.
	ReleaseSubscription(ctx context.Context, id uuid.UUID) error

	// MarkPaused transitions a subscription to paused and releases its claim
	// in one statement. Used for insufficiency-driven pauses during renewal,
	// where nothing has been charged yet.
	MarkPaused(ctx context.Context, id uuid.UUID) error
	// ResumeSubscription transitions paused back to active.
	ResumeSubscription(ctx context.Context, id uuid.UUID) error

	// ApplyWalletCharge runs the charge transaction for one cycle: wallet
	// debit with its ledger row, order materialization, completed payment,
	// stock consumption and the cycle's delivery record. Returns
	// ErrCycleAlreadyFulfilled when a delivery already exists for the cycle,
	// letting a resumed run skip straight to the lock step.
	ApplyWalletCharge(ctx context.Context, p WalletChargeParams) (*domain.Order, error)

	// LockNextCycle reserves the next cycle's funds, records the pending
	// reservation ledger row, advances the renewal date and releases the
	// claim, all in one transaction.
	LockNextCycle(ctx context.Context, p LockNextCycleParams) error

	// ApplyCODRenewal runs the full cash-on-delivery cycle in one
	// transaction: pending order and payment, stock consumption, delivery,
	// renewal date advance and claim release.
	ApplyCODRenewal(ctx context.Context, p CODRenewalParams) (*domain.Order, error)

	// CancelSubscriptionCycle runs the customer-initiated pause/cancel
	// reversal in one transaction: status change, delivery and order
	// cancellation, tracking event, payment flip, wallet reversal and
	// restock.
	CancelSubscriptionCycle(ctx context.Context, p CancelCycleParams) error
}
