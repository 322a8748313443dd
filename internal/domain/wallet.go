/**
 * @description
 * Wallet and ledger domain models. A wallet's locked balance is the portion of
 * the balance reserved for the next renewal cycle; it can never exceed the
 * balance itself. Every balance mutation is paired with a WalletTransaction
 * audit row inside the same database transaction.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet transaction types.
const (
	WalletTxPurchase = "purchase"
	WalletTxRefund   = "refund"
)

// Wallet transaction statuses.
const (
	WalletTxPending   = "pending"
	WalletTxCompleted = "completed"
	WalletTxRefunded  = "refunded"
)

// Wallet holds a customer's store-credit funds. Owned 1:1 by a customer.
type Wallet struct {
	ID            uuid.UUID       `json:"id"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	Balance       decimal.Decimal `json:"balance"`
	LockedBalance decimal.Decimal `json:"locked_balance"` // subset of Balance reserved for the next renewal
	UpdatedAt     time.Time       `json:"updated_at"`
}

// WalletTransaction is an immutable ledger entry recording a balance change.
// The subscription id is a structured correlation field; reservation rows for
// a future cycle are linked to their subscription through it rather than
// through description text.
type WalletTransaction struct {
	ID             uuid.UUID       `json:"id"`
	WalletID       uuid.UUID       `json:"wallet_id"`
	SubscriptionID *uuid.UUID      `json:"subscription_id,omitempty"`
	OrderID        *uuid.UUID      `json:"order_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Type           string          `json:"type"`   // 'purchase', 'refund'
	Status         string          `json:"status"` // 'pending', 'completed', 'refunded'
	Description    string          `json:"description"`
	CreatedAt      time.Time       `json:"created_at"`
}
