/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository`
 * interface. All ledger-affecting composites (charge, lock-next-cycle, COD
 * renewal, cycle cancellation) run inside a single database transaction with
 * `SELECT ... FOR UPDATE` row locks on the contended rows (wallets, products,
 * subscriptions), so concurrent renewals never interleave partial updates.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - github.com/shopspring/decimal: NUMERIC money values.
 * - internal/domain: Domain models used for data transfer.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/shoply/renewal-service/internal/domain"
)

// PostgresRepository is the concrete Repository backed by PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const subscriptionColumns = `id, customer_id, plan_id, status, payment_method, renewal_date, is_processing, plan_price, shipping_address, created_at, updated_at`

func scanSubscription(row pgx.Row) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := row.Scan(
		&sub.ID, &sub.CustomerID, &sub.PlanID, &sub.Status, &sub.PaymentMethod,
		&sub.RenewalDate, &sub.IsProcessing, &sub.PlanPrice, &sub.ShippingAddress,
		&sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// GetSubscription retrieves a subscription by its ID.
func (r *PostgresRepository) GetSubscription(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`
	return scanSubscription(r.db.QueryRow(ctx, query, id))
}

// ListDueSubscriptions returns one page of active, unclaimed subscriptions
// whose renewal date is due on or before the given day, oldest first.
func (r *PostgresRepository) ListDueSubscriptions(ctx context.Context, dueOn time.Time, limit, offset int) ([]domain.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE status = $1 AND is_processing = FALSE AND renewal_date <= $2
		ORDER BY renewal_date ASC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.Query(ctx, query, domain.SubscriptionActive, dueOn, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []domain.Subscription
	for rows.Next() {
		var sub domain.Subscription
		err := rows.Scan(
			&sub.ID, &sub.CustomerID, &sub.PlanID, &sub.Status, &sub.PaymentMethod,
			&sub.RenewalDate, &sub.IsProcessing, &sub.PlanPrice, &sub.ShippingAddress,
			&sub.CreatedAt, &sub.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// GetPlan retrieves a subscription plan by its ID.
func (r *PostgresRepository) GetPlan(ctx context.Context, id uuid.UUID) (*domain.SubscriptionPlan, error) {
	var plan domain.SubscriptionPlan
	query := `SELECT id, product_id, name, price, frequency FROM subscription_plans WHERE id = $1`
	err := r.db.QueryRow(ctx, query, id).Scan(&plan.ID, &plan.ProductID, &plan.Name, &plan.Price, &plan.Frequency)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// GetProduct retrieves the inventory fields of a product.
func (r *PostgresRepository) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	var product domain.Product
	query := `SELECT id, name, price, stock_quantity, package_size, updated_at FROM products WHERE id = $1`
	err := r.db.QueryRow(ctx, query, id).Scan(
		&product.ID, &product.Name, &product.Price, &product.StockQuantity, &product.PackageSize, &product.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

// GetWalletByCustomerID retrieves a customer's wallet.
func (r *PostgresRepository) GetWalletByCustomerID(ctx context.Context, customerID uuid.UUID) (*domain.Wallet, error) {
	var wallet domain.Wallet
	query := `SELECT id, customer_id, balance, locked_balance, updated_at FROM wallets WHERE customer_id = $1`
	err := r.db.QueryRow(ctx, query, customerID).Scan(
		&wallet.ID, &wallet.CustomerID, &wallet.Balance, &wallet.LockedBalance, &wallet.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &wallet, nil
}

// GetNextDelivery returns the earliest non-cancelled delivery on or after the
// given day, or nil when the subscription has no upcoming delivery.
func (r *PostgresRepository) GetNextDelivery(ctx context.Context, subscriptionID uuid.UUID, onOrAfter time.Time) (*domain.SubscriptionDelivery, error) {
	var delivery domain.SubscriptionDelivery
	query := `
		SELECT id, subscription_id, order_id, delivery_date, status, created_at
		FROM subscription_deliveries
		WHERE subscription_id = $1 AND delivery_date >= $2 AND status <> $3
		ORDER BY delivery_date ASC
		LIMIT 1
	`
	err := r.db.QueryRow(ctx, query, subscriptionID, onOrAfter, domain.DeliveryCancelled).Scan(
		&delivery.ID, &delivery.SubscriptionID, &delivery.OrderID,
		&delivery.DeliveryDate, &delivery.Status, &delivery.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &delivery, nil
}

// ClaimSubscription marks a subscription as processing only if it is not
// already claimed. The rows-affected check makes the claim a single atomic
// compare-and-set, so two overlapping orchestrator runs cannot both win.
func (r *PostgresRepository) ClaimSubscription(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE subscriptions
		SET is_processing = TRUE, updated_at = NOW()
		WHERE id = $1 AND status = $2 AND is_processing = FALSE
	`
	result, err := r.db.Exec(ctx, query, id, domain.SubscriptionActive)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrAlreadyProcessing
	}
	return nil
}

// ReleaseSubscription clears the processing flag.
func (r *PostgresRepository) ReleaseSubscription(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE subscriptions SET is_processing = FALSE, updated_at = NOW() WHERE id = $1`
	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

// MarkPaused pauses a subscription and releases its claim in one statement.
func (r *PostgresRepository) MarkPaused(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE subscriptions
		SET status = $1, is_processing = FALSE, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`
	result, err := r.db.Exec(ctx, query, domain.SubscriptionPaused, id, domain.SubscriptionActive)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrSubscriptionNotActive
	}
	return nil
}

// ResumeSubscription transitions a paused subscription back to active. A
// renewal date left in the past is picked up by the next scheduled run.
func (r *PostgresRepository) ResumeSubscription(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE subscriptions
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`
	result, err := r.db.Exec(ctx, query, domain.SubscriptionActive, id, domain.SubscriptionPaused)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrSubscriptionNotPaused
	}
	return nil
}

// ApplyWalletCharge executes the charge transaction for one wallet-funded
// renewal cycle. See Repository for the full contract.
func (r *PostgresRepository) ApplyWalletCharge(ctx context.Context, p WalletChargeParams) (*domain.Order, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// A delivery already recorded for this cycle means the charge step ran to
	// completion on a previous attempt; only the lock step remains.
	fulfilled, err := cycleFulfilled(ctx, tx, p.Subscription.ID, p.Subscription.RenewalDate)
	if err != nil {
		return nil, err
	}
	if fulfilled {
		return nil, ErrCycleAlreadyFulfilled
	}

	// Lock the wallet row and re-check funds under the lock.
	var walletID uuid.UUID
	var balance, lockedBalance decimal.Decimal
	err = tx.QueryRow(ctx,
		`SELECT id, balance, locked_balance FROM wallets WHERE customer_id = $1 FOR UPDATE`,
		p.Subscription.CustomerID,
	).Scan(&walletID, &balance, &lockedBalance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	if lockedBalance.LessThan(p.Price) || balance.LessThan(p.Price) {
		return nil, ErrInsufficientFunds
	}

	product, err := lockProductForConsumption(ctx, tx, p.Plan.ProductID, p.Quantity)
	if err != nil {
		return nil, err
	}

	// Debit both balances: the charge consumes the funds reserved for this
	// cycle by the previous lock step.
	_, err = tx.Exec(ctx,
		`UPDATE wallets SET balance = balance - $1, locked_balance = locked_balance - $1, updated_at = NOW() WHERE id = $2`,
		p.Price, walletID,
	)
	if err != nil {
		return nil, err
	}

	order, err := createOrderWithItems(ctx, tx, orderParams{
		subscription:  p.Subscription,
		product:       *product,
		price:         p.Price,
		quantity:      p.Quantity,
		paymentStatus: domain.PaymentCompleted,
	})
	if err != nil {
		return nil, err
	}

	// Settle the pending reservation ledger row from the previous cycle's
	// lock step, or record a fresh completed purchase when none exists (the
	// very first cycle is funded by the reservation made at subscribe time
	// and may predate this engine's ledger rows).
	walletTxID, err := settleReservation(ctx, tx, walletID, p.Subscription.ID, order.ID, p.Price)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO payments (id, order_id, wallet_transaction_id, method, status, amount, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())`,
		uuid.New(), order.ID, walletTxID, domain.PaymentMethodWallet, domain.PaymentCompleted, p.Price,
	)
	if err != nil {
		return nil, err
	}

	if err := consumeStock(ctx, tx, *product, p.Quantity, order.ID); err != nil {
		return nil, err
	}

	if err := createDelivery(ctx, tx, p.Subscription.ID, order.ID, p.DeliveryDate); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return order, nil
}

// LockNextCycle reserves the next cycle's funds and advances the subscription.
func (r *PostgresRepository) LockNextCycle(ctx context.Context, p LockNextCycleParams) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var walletID uuid.UUID
	var balance, lockedBalance decimal.Decimal
	err = tx.QueryRow(ctx,
		`SELECT id, balance, locked_balance FROM wallets WHERE customer_id = $1 FOR UPDATE`,
		p.CustomerID,
	).Scan(&walletID, &balance, &lockedBalance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrWalletNotFound
		}
		return err
	}

	// Only unreserved funds may be locked; the current lock is not
	// double-counted.
	if balance.Sub(lockedBalance).LessThan(p.Amount) {
		return ErrInsufficientFunds
	}

	_, err = tx.Exec(ctx,
		`UPDATE wallets SET locked_balance = locked_balance + $1, updated_at = NOW() WHERE id = $2`,
		p.Amount, walletID,
	)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO wallet_transactions (id, wallet_id, subscription_id, amount, type, status, description, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`,
		uuid.New(), walletID, p.SubscriptionID, p.Amount,
		domain.WalletTxPurchase, domain.WalletTxPending, "funds reserved for next renewal cycle",
	)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`UPDATE subscriptions SET renewal_date = $1, plan_price = $2, is_processing = FALSE, updated_at = NOW() WHERE id = $3`,
		p.NextRenewalDate, p.Amount, p.SubscriptionID,
	)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ApplyCODRenewal executes the full cash-on-delivery cycle in one transaction.
func (r *PostgresRepository) ApplyCODRenewal(ctx context.Context, p CODRenewalParams) (*domain.Order, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	fulfilled, err := cycleFulfilled(ctx, tx, p.Subscription.ID, p.Subscription.RenewalDate)
	if err != nil {
		return nil, err
	}
	if fulfilled {
		return nil, ErrCycleAlreadyFulfilled
	}

	product, err := lockProductForConsumption(ctx, tx, p.Plan.ProductID, p.Quantity)
	if err != nil {
		return nil, err
	}

	order, err := createOrderWithItems(ctx, tx, orderParams{
		subscription:  p.Subscription,
		product:       *product,
		price:         p.Price,
		quantity:      p.Quantity,
		paymentStatus: domain.PaymentPending,
	})
	if err != nil {
		return nil, err
	}

	// COD settles on receipt; the payment stays pending until then.
	_, err = tx.Exec(ctx,
		`INSERT INTO payments (id, order_id, method, status, amount, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())`,
		uuid.New(), order.ID, domain.PaymentMethodCOD, domain.PaymentPending, p.Price,
	)
	if err != nil {
		return nil, err
	}

	if err := consumeStock(ctx, tx, *product, p.Quantity, order.ID); err != nil {
		return nil, err
	}

	if err := createDelivery(ctx, tx, p.Subscription.ID, order.ID, p.DeliveryDate); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		`UPDATE subscriptions SET renewal_date = $1, plan_price = $2, is_processing = FALSE, updated_at = NOW() WHERE id = $3`,
		p.NextRenewalDate, p.Price, p.Subscription.ID,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return order, nil
}

// CancelSubscriptionCycle runs the customer-initiated pause/cancel reversal.
func (r *PostgresRepository) CancelSubscriptionCycle(ctx context.Context, p CancelCycleParams) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var customerID uuid.UUID
	var status, paymentMethod string
	err = tx.QueryRow(ctx,
		`SELECT customer_id, status, payment_method FROM subscriptions WHERE id = $1 FOR UPDATE`,
		p.SubscriptionID,
	).Scan(&customerID, &status, &paymentMethod)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrSubscriptionNotFound
		}
		return err
	}
	if status == domain.SubscriptionCancelled || status == domain.SubscriptionExpired {
		return ErrSubscriptionNotActive
	}

	if _, err := tx.Exec(ctx,
		`UPDATE subscriptions SET status = $1, updated_at = NOW() WHERE id = $2`,
		p.NewStatus, p.SubscriptionID,
	); err != nil {
		return err
	}

	// Locate the pending upcoming delivery. With none the status change is
	// the whole action.
	var deliveryID, orderID uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT id, order_id FROM subscription_deliveries
		 WHERE subscription_id = $1 AND delivery_date >= $2 AND status = $3
		 ORDER BY delivery_date ASC LIMIT 1 FOR UPDATE`,
		p.SubscriptionID, p.Today, domain.DeliveryProcessing,
	).Scan(&deliveryID, &orderID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return tx.Commit(ctx)
		}
		return err
	}

	var totalAmount decimal.Decimal
	err = tx.QueryRow(ctx,
		`SELECT total_amount FROM orders WHERE id = $1 FOR UPDATE`, orderID,
	).Scan(&totalAmount)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrOrderNotFound
		}
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE subscription_deliveries SET status = $1 WHERE id = $2`,
		domain.DeliveryCancelled, deliveryID,
	); err != nil {
		return err
	}

	paymentStatus := domain.PaymentFailed
	if paymentMethod == domain.PaymentMethodWallet {
		paymentStatus = domain.PaymentRefunded
	}

	if _, err := tx.Exec(ctx,
		`UPDATE orders SET status = $1, payment_status = $2, updated_at = NOW() WHERE id = $3`,
		domain.OrderCancelled, paymentStatus, orderID,
	); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO order_tracking (id, order_id, status, note, created_at) VALUES ($1, $2, $3, $4, NOW())`,
		uuid.New(), orderID, domain.OrderCancelled, "subscription "+p.NewStatus+" by customer",
	); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE payments SET status = $1, updated_at = NOW() WHERE order_id = $2`,
		paymentStatus, orderID,
	); err != nil {
		return err
	}

	if paymentMethod == domain.PaymentMethodWallet {
		if err := reverseWalletCharge(ctx, tx, customerID, p.SubscriptionID, orderID, totalAmount); err != nil {
			return err
		}
	}

	if err := restockOrderItems(ctx, tx, orderID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// cycleFulfilled reports whether a non-cancelled delivery already exists for
// the current cycle. The cycle is identified by the subscription's un-advanced
// renewal date, not by a delivery date recomputed from the run day: a retry
// days after a crash computes a different delivery date, while the renewal
// date only moves once the lock step commits. Every delivery created for a
// cycle lands strictly after that cycle's renewal date, and the previous
// cycle's delivery never does.
func cycleFulfilled(ctx context.Context, tx pgx.Tx, subscriptionID uuid.UUID, renewalDate time.Time) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM subscription_deliveries
			WHERE subscription_id = $1 AND delivery_date > $2 AND status <> $3
		)`,
		subscriptionID, renewalDate, domain.DeliveryCancelled,
	).Scan(&exists)
	return exists, err
}

// lockProductForConsumption locks the product row and verifies stock covers
// the cycle's consumption.
func lockProductForConsumption(ctx context.Context, tx pgx.Tx, productID uuid.UUID, quantity int) (*domain.Product, error) {
	var product domain.Product
	err := tx.QueryRow(ctx,
		`SELECT id, name, price, stock_quantity, package_size, updated_at FROM products WHERE id = $1 FOR UPDATE`,
		productID,
	).Scan(&product.ID, &product.Name, &product.Price, &product.StockQuantity, &product.PackageSize, &product.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	if product.PackageSize*quantity > product.StockQuantity {
		return nil, ErrInsufficientStock
	}
	return &product, nil
}

type orderParams struct {
	subscription  domain.Subscription
	product       domain.Product
	price         decimal.Decimal
	quantity      int
	paymentStatus string
}

// createOrderWithItems inserts the order, its single line item and the
// initial confirmed tracking event inside the caller's transaction.
func createOrderWithItems(ctx context.Context, tx pgx.Tx, p orderParams) (*domain.Order, error) {
	now := time.Now().UTC()
	order := &domain.Order{
		ID:              uuid.New(),
		CustomerID:      p.subscription.CustomerID,
		SubscriptionID:  p.subscription.ID,
		Status:          domain.OrderConfirmed,
		PaymentStatus:   p.paymentStatus,
		PaymentMethod:   p.subscription.PaymentMethod,
		TotalAmount:     p.price,
		IsSubscription:  true,
		ShippingAddress: p.subscription.ShippingAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	_, err := tx.Exec(ctx,
		`INSERT INTO orders (id, customer_id, subscription_id, status, payment_status, payment_method, total_amount, is_subscription, shipping_address, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())`,
		order.ID, order.CustomerID, order.SubscriptionID, order.Status, order.PaymentStatus,
		order.PaymentMethod, order.TotalAmount, order.IsSubscription, order.ShippingAddress,
	)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO order_items (id, order_id, product_id, unit_price, package_size, quantity, subtotal)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New(), order.ID, p.product.ID, p.price, p.product.PackageSize, p.quantity,
		p.price.Mul(decimal.NewFromInt(int64(p.quantity))),
	)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO order_tracking (id, order_id, status, note, created_at) VALUES ($1, $2, $3, $4, NOW())`,
		uuid.New(), order.ID, domain.OrderConfirmed, "subscription renewal order confirmed",
	)
	if err != nil {
		return nil, err
	}

	return order, nil
}

// settleReservation completes the pending reservation ledger row made by the
// previous cycle's lock step, linking it to the order it funded. When no
// reservation row exists a fresh completed purchase row is recorded.
func settleReservation(ctx context.Context, tx pgx.Tx, walletID, subscriptionID, orderID uuid.UUID, amount decimal.Decimal) (uuid.UUID, error) {
	var txID uuid.UUID
	err := tx.QueryRow(ctx,
		`SELECT id FROM wallet_transactions
		 WHERE subscription_id = $1 AND type = $2 AND status = $3
		 ORDER BY created_at ASC LIMIT 1 FOR UPDATE`,
		subscriptionID, domain.WalletTxPurchase, domain.WalletTxPending,
	).Scan(&txID)
	if err != nil && err != pgx.ErrNoRows {
		return uuid.Nil, err
	}

	if err == pgx.ErrNoRows {
		txID = uuid.New()
		_, err = tx.Exec(ctx,
			`INSERT INTO wallet_transactions (id, wallet_id, subscription_id, order_id, amount, type, status, description, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())`,
			txID, walletID, subscriptionID, orderID, amount,
			domain.WalletTxPurchase, domain.WalletTxCompleted, "subscription renewal charge",
		)
		return txID, err
	}

	_, err = tx.Exec(ctx,
		`UPDATE wallet_transactions SET status = $1, order_id = $2, amount = $3 WHERE id = $4`,
		domain.WalletTxCompleted, orderID, amount, txID,
	)
	return txID, err
}

// consumeStock decrements stock by the cycle's consumption and records the
// paired audit row.
func consumeStock(ctx context.Context, tx pgx.Tx, product domain.Product, quantity int, orderID uuid.UUID) error {
	units := product.PackageSize * quantity
	result, err := tx.Exec(ctx,
		`UPDATE products SET stock_quantity = stock_quantity - $1, updated_at = NOW()
		 WHERE id = $2 AND stock_quantity >= $1`,
		units, product.ID,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrInsufficientStock
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO stock_transactions (id, product_id, order_id, direction, quantity, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())`,
		uuid.New(), product.ID, orderID, domain.StockOut, units,
	)
	return err
}

// createDelivery inserts the cycle's delivery record.
func createDelivery(ctx context.Context, tx pgx.Tx, subscriptionID, orderID uuid.UUID, deliveryDate time.Time) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO subscription_deliveries (id, subscription_id, order_id, delivery_date, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())`,
		uuid.New(), subscriptionID, orderID, deliveryDate, domain.DeliveryProcessing,
	)
	return err
}

// reverseWalletCharge refunds the cancelled order to the wallet balance,
// releases the next-cycle reservation and marks the affected ledger rows
// refunded, recording a refund audit row.
func reverseWalletCharge(ctx context.Context, tx pgx.Tx, customerID, subscriptionID, orderID uuid.UUID, amount decimal.Decimal) error {
	var walletID uuid.UUID
	var lockedBalance decimal.Decimal
	err := tx.QueryRow(ctx,
		`SELECT id, locked_balance FROM wallets WHERE customer_id = $1 FOR UPDATE`,
		customerID,
	).Scan(&walletID, &lockedBalance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrWalletNotFound
		}
		return err
	}
	if lockedBalance.LessThan(amount) {
		return ErrInsufficientLockedBalance
	}

	_, err = tx.Exec(ctx,
		`UPDATE wallets SET balance = balance + $1, locked_balance = locked_balance - $1, updated_at = NOW() WHERE id = $2`,
		amount, walletID,
	)
	if err != nil {
		return err
	}

	// The settled charge for this order and any outstanding reservation for
	// the cycle that will never run are both flipped to refunded.
	if _, err := tx.Exec(ctx,
		`UPDATE wallet_transactions SET status = $1 WHERE order_id = $2 AND type = $3`,
		domain.WalletTxRefunded, orderID, domain.WalletTxPurchase,
	); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE wallet_transactions SET status = $1 WHERE subscription_id = $2 AND status = $3`,
		domain.WalletTxRefunded, subscriptionID, domain.WalletTxPending,
	); err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO wallet_transactions (id, wallet_id, subscription_id, order_id, amount, type, status, description, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())`,
		uuid.New(), walletID, subscriptionID, orderID, amount,
		domain.WalletTxRefund, domain.WalletTxRefunded, "subscription order refund",
	)
	return err
}

// restockOrderItems returns the cancelled order's units to stock with paired
// audit rows.
func restockOrderItems(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) error {
	rows, err := tx.Query(ctx,
		`SELECT product_id, package_size, quantity FROM order_items WHERE order_id = $1`,
		orderID,
	)
	if err != nil {
		return err
	}

	type restock struct {
		productID uuid.UUID
		units     int
	}
	var restocks []restock
	for rows.Next() {
		var productID uuid.UUID
		var packageSize, quantity int
		if err := rows.Scan(&productID, &packageSize, &quantity); err != nil {
			rows.Close()
			return err
		}
		restocks = append(restocks, restock{productID: productID, units: packageSize * quantity})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, item := range restocks {
		if _, err := tx.Exec(ctx,
			`UPDATE products SET stock_quantity = stock_quantity + $1, updated_at = NOW() WHERE id = $2`,
			item.units, item.productID,
		); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO stock_transactions (id, product_id, order_id, direction, quantity, created_at)
			 VALUES ($1, $2, $3, $4, $5, NOW())`,
			uuid.New(), item.productID, orderID, domain.StockIn, item.units,
		); err != nil {
			return err
		}
	}
	return nil
}
