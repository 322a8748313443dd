/**
 * @description
 * Notification payloads published for the customer messaging pipeline. The
 * renewal engine only emits these events; delivery to the customer happens
 * out-of-band in the notification consumer.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Notification templates emitted by the renewal engine.
const (
	NotifyRenewalSuccess    = "subscription.renewed"
	NotifyPaymentDue        = "subscription.payment_due"
	NotifyPaused            = "subscription.paused"
	NotifyCancelled         = "subscription.cancelled"
	NotifyInsufficientFunds = "subscription.insufficient_funds"
	NotifyInsufficientStock = "subscription.insufficient_stock"
)

// NotificationEvent is the versioned payload published to the message broker.
type NotificationEvent struct {
	CustomerID     uuid.UUID `json:"customer_id"`
	SubscriptionID uuid.UUID `json:"subscription_id"`
	Template       string    `json:"template"`
	Message        string    `json:"message"`
	OccurredAt     time.Time `json:"occurred_at"`
}
