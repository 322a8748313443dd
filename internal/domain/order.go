/**
 * @description
 * Order-side domain models for subscription-generated orders. An order is
 * always created atomically with its single line item and an initial tracking
 * event; tracking rows are append-only.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order statuses.
const (
	OrderConfirmed = "confirmed"
	OrderCancelled = "cancelled"
)

// Payment statuses.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

// Order is a subscription-generated order. Maps to the `orders` table.
type Order struct {
	ID              uuid.UUID       `json:"id"`
	CustomerID      uuid.UUID       `json:"customer_id"`
	SubscriptionID  uuid.UUID       `json:"subscription_id"`
	Status          string          `json:"status"`         // 'confirmed', 'cancelled'
	PaymentStatus   string          `json:"payment_status"` // 'pending', 'completed', 'failed', 'refunded'
	PaymentMethod   string          `json:"payment_method"` // 'wallet', 'cod'
	TotalAmount     decimal.Decimal `json:"total_amount"`
	IsSubscription  bool            `json:"is_subscription"`
	ShippingAddress string          `json:"shipping_address"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// OrderItem snapshots the product and pricing at order time.
type OrderItem struct {
	ID          uuid.UUID       `json:"id"`
	OrderID     uuid.UUID       `json:"order_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	PackageSize int             `json:"package_size"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// OrderTracking is an append-only audit event on an order.
type OrderTracking struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	Status    string    `json:"status"` // 'confirmed', 'cancelled'
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

// Payment records the settlement state of an order. For wallet renewals it is
// linked to the wallet transaction that funded it.
type Payment struct {
	ID                  uuid.UUID       `json:"id"`
	OrderID             uuid.UUID       `json:"order_id"`
	WalletTransactionID *uuid.UUID      `json:"wallet_transaction_id,omitempty"`
	Method              string          `json:"method"` // 'wallet', 'cod'
	Status              string          `json:"status"` // 'pending', 'completed', 'failed', 'refunded'
	Amount              decimal.Decimal `json:"amount"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}
