/**
 * @description
 * This file defines the core domain models for the renewal-service.
 * These structs represent the main entities used throughout the engine's
 * business logic, database interactions, and API layers.
 *
 * @notes
 * - All money values use shopspring/decimal backed by NUMERIC columns, which
 *   avoids floating-point inaccuracies with financial data.
 * - Status fields are strings constrained by the exported constants below.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Subscription statuses.
const (
	SubscriptionActive    = "active"
	SubscriptionPaused    = "paused"
	SubscriptionCancelled = "cancelled"
	SubscriptionExpired   = "expired"
)

// Payment methods.
const (
	PaymentMethodWallet = "wallet"
	PaymentMethodCOD    = "cod"
)

// Renewal frequencies.
const (
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// Subscription represents a customer's recurring product subscription.
// This struct maps directly to the `subscriptions` table.
type Subscription struct {
	ID              uuid.UUID       `json:"id"`
	CustomerID      uuid.UUID       `json:"customer_id"`
	PlanID          uuid.UUID       `json:"plan_id"`
	Status          string          `json:"status"`         // 'active', 'paused', 'cancelled', 'expired'
	PaymentMethod   string          `json:"payment_method"` // 'wallet', 'cod'
	RenewalDate     time.Time       `json:"renewal_date"`
	IsProcessing    bool            `json:"is_processing"`
	PlanPrice       decimal.Decimal `json:"plan_price"` // price locked at the last completed cycle
	ShippingAddress string          `json:"shipping_address"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// SubscriptionPlan describes what a subscription delivers and at what cadence.
type SubscriptionPlan struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Frequency string          `json:"frequency"` // 'weekly', 'monthly'
}

// Delivery statuses.
const (
	DeliveryProcessing = "processing"
	DeliveryCancelled  = "cancelled"
)

// SubscriptionDelivery is the per-cycle fulfillment record. The "next due
// delivery" for a subscription is the earliest non-cancelled row with
// delivery_date >= today.
type SubscriptionDelivery struct {
	ID             uuid.UUID `json:"id"`
	SubscriptionID uuid.UUID `json:"subscription_id"`
	OrderID        uuid.UUID `json:"order_id"`
	DeliveryDate   time.Time `json:"delivery_date"`
	Status         string    `json:"status"` // 'processing', 'cancelled'
	CreatedAt      time.Time `json:"created_at"`
}
