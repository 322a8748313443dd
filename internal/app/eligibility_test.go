package app

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/shoply/renewal-service/internal/domain"
)

func TestHasInsufficientStock(t *testing.T) {
	product := domain.Product{PackageSize: 5, StockQuantity: 9}

	if !HasInsufficientStock(product, 2) {
		t.Error("expected 2 cycles of 5 units to exceed 9 in stock")
	}
	if HasInsufficientStock(product, 1) {
		t.Error("expected 1 cycle of 5 units to fit 9 in stock")
	}

	product.StockQuantity = 10
	if HasInsufficientStock(product, 2) {
		t.Error("expected exactly-matching stock to be sufficient")
	}
}

func TestHasInsufficientWalletBalance(t *testing.T) {
	price := decimal.NewFromInt(60)

	cases := []struct {
		name         string
		balance      int64
		locked       int64
		insufficient bool
	}{
		{"covered by lock", 100, 60, false},
		{"locked below price", 100, 50, true},
		{"balance below price", 50, 60, true},
		{"exact match", 60, 60, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wallet := domain.Wallet{
				Balance:       decimal.NewFromInt(tc.balance),
				LockedBalance: decimal.NewFromInt(tc.locked),
			}
			if got := HasInsufficientWalletBalance(wallet, price); got != tc.insufficient {
				t.Errorf("expected insufficient=%t, got %t", tc.insufficient, got)
			}
		})
	}
}

func TestCanLockNextPayment(t *testing.T) {
	wallet := domain.Wallet{
		Balance:       decimal.NewFromInt(100),
		LockedBalance: decimal.NewFromInt(60),
	}

	if !CanLockNextPayment(wallet, decimal.NewFromInt(40)) {
		t.Error("expected 40 unreserved to cover a 40 lock")
	}
	if CanLockNextPayment(wallet, decimal.NewFromInt(41)) {
		t.Error("expected 40 unreserved not to cover a 41 lock")
	}
}
