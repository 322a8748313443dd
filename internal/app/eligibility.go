/**
 * @description
 * Eligibility predicates over wallet and inventory snapshots. These are pure
 * pre-checks; the store re-validates each one under a row lock inside the
 * transaction that applies the effect.
 */

package app

import (
	"github.com/shopspring/decimal"

	"github.com/shoply/renewal-service/internal/domain"
)

// HasInsufficientStock reports whether the product cannot cover qty renewal
// cycles' worth of units.
func HasInsufficientStock(product domain.Product, qty int) bool {
	return product.PackageSize*qty > product.StockQuantity
}

// HasInsufficientWalletBalance reports whether the wallet cannot fund the
// current cycle. A renewal charge may only draw from funds that were locked
// for it, so both the locked balance and the total balance must cover price.
func HasInsufficientWalletBalance(wallet domain.Wallet, price decimal.Decimal) bool {
	return wallet.LockedBalance.LessThan(price) || wallet.Balance.LessThan(price)
}

// CanLockNextPayment reports whether unreserved funds cover the next cycle's
// price without double-counting the current lock.
func CanLockNextPayment(wallet domain.Wallet, price decimal.Decimal) bool {
	return wallet.Balance.Sub(wallet.LockedBalance).GreaterThanOrEqual(price)
}
