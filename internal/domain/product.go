/**
 * @description
 * Inventory-side domain models. Stock never goes negative, and every stock
 * movement is paired with a StockTransaction audit row ('out' on renewal
 * consumption, 'in' on cancellation-driven restock).
 */

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Stock movement directions.
const (
	StockOut = "out"
	StockIn  = "in"
)

// Product carries the inventory fields the renewal engine reads and mutates.
type Product struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	PackageSize   int             `json:"package_size"` // units consumed per renewal cycle
	UpdatedAt     time.Time       `json:"updated_at"`
}

// StockTransaction is the audit row paired with every stock mutation.
type StockTransaction struct {
	ID        uuid.UUID  `json:"id"`
	ProductID uuid.UUID  `json:"product_id"`
	OrderID   *uuid.UUID `json:"order_id,omitempty"`
	Direction string     `json:"direction"` // 'out', 'in'
	Quantity  int        `json:"quantity"`
	CreatedAt time.Time  `json:"created_at"`
}
