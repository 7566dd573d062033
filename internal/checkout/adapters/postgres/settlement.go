package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vantagecommerce/settle/internal/checkout/domain"
	"github.com/vantagecommerce/settle/internal/checkout/ports"
)

type SettlementRepository struct {
	pool *pgxpool.Pool
}

func NewSettlementRepository(pool *pgxpool.Pool) *SettlementRepository {
	return &SettlementRepository{pool: pool}
}

// SettleApproved commits the approved-path transition in one transaction.
// The guarded payment update is the serialization point: of two concurrent
// callbacks for the same order only one claims the PENDING row, the other
// rolls back with ErrNoPendingPayment and resolves as a no-op upstream.
func (r *SettlementRepository) SettleApproved(ctx context.Context, s ports.Settlement) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		claim := `
			UPDATE payments
			SET status = $1, transaction_id = NULLIF($2, ''), gateway_data = $3, updated_at = now()
			WHERE id = $4 AND status = $5
		`
		result, err := tx.Exec(ctx, claim,
			domain.PaymentCompleted, s.TransactionID, s.GatewayData, s.PaymentID, domain.PaymentPending)
		if err != nil {
			return fmt.Errorf("claim pending payment: %w", err)
		}
		if result.RowsAffected() == 0 {
			return fmt.Errorf("payment %d: %w", s.PaymentID, ports.ErrNoPendingPayment)
		}

		if err := updateOrderStatus(ctx, tx, s.OrderID, domain.OrderPaid); err != nil {
			return err
		}

		// Atomic decrement with a floor check: a concurrent settlement for the
		// same product cannot drive stock negative.
		for _, item := range s.Items {
			if err := adjustStock(ctx, tx, item.ProductID, -item.Quantity); err != nil {
				return err
			}
		}

		cleanup := `
			DELETE FROM cart_items
			WHERE cart_id IN (SELECT id FROM carts WHERE customer_id = $1)
		`
		if _, err := tx.Exec(ctx, cleanup, s.CustomerID); err != nil {
			return fmt.Errorf("clear cart items: %w", err)
		}

		return nil
	})
}

// SettleDeclined records a declined settlement. Stock and cart are untouched.
func (r *SettlementRepository) SettleDeclined(ctx context.Context, paymentID, orderID int64, transactionID string, raw json.RawMessage) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		claim := `
			UPDATE payments
			SET status = $1, transaction_id = NULLIF($2, ''), gateway_data = $3, updated_at = now()
			WHERE id = $4 AND status = $5
		`
		result, err := tx.Exec(ctx, claim,
			domain.PaymentFailed, transactionID, raw, paymentID, domain.PaymentPending)
		if err != nil {
			return fmt.Errorf("claim pending payment: %w", err)
		}
		if result.RowsAffected() == 0 {
			return fmt.Errorf("payment %d: %w", paymentID, ports.ErrNoPendingPayment)
		}

		return updateOrderStatus(ctx, tx, orderID, domain.OrderCancelled)
	})
}

// Reverse commits the refund transition: payment and order become REFUNDED
// and every item's stock is restored.
func (r *SettlementRepository) Reverse(ctx context.Context, rev ports.Reversal) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		claim := `
			UPDATE payments
			SET status = $1, gateway_data = $2, updated_at = now()
			WHERE id = $3 AND status = $4
		`
		result, err := tx.Exec(ctx, claim,
			domain.PaymentRefunded, rev.GatewayData, rev.PaymentID, domain.PaymentCompleted)
		if err != nil {
			return fmt.Errorf("claim completed payment: %w", err)
		}
		if result.RowsAffected() == 0 {
			return fmt.Errorf("payment %d is not COMPLETED: %w", rev.PaymentID, ports.ErrNotFound)
		}

		if err := updateOrderStatus(ctx, tx, rev.OrderID, domain.OrderRefunded); err != nil {
			return err
		}

		for _, item := range rev.Items {
			if err := adjustStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		return nil
	})
}

func updateOrderStatus(ctx context.Context, tx pgx.Tx, orderID int64, status domain.OrderStatus) error {
	result, err := tx.Exec(ctx,
		`UPDATE orders SET status = $1, updated_at = now() WHERE id = $2`, status, orderID)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("order %d: %w", orderID, ports.ErrNotFound)
	}
	return nil
}

// adjustStock applies a delta to a product's stock. Decrements carry a floor
// check in the predicate so the row is simply not matched when stock would go
// negative.
func adjustStock(ctx context.Context, tx pgx.Tx, productID int64, delta int32) error {
	query := `UPDATE products SET stock = stock + $1 WHERE id = $2 AND stock + $1 >= 0`

	result, err := tx.Exec(ctx, query, delta, productID)
	if err != nil {
		return fmt.Errorf("adjust stock for product %d: %w", productID, err)
	}
	if result.RowsAffected() == 0 {
		if delta >= 0 {
			return fmt.Errorf("product %d: %w", productID, ports.ErrNotFound)
		}
		return fmt.Errorf("product %d: %w", productID, ports.ErrInsufficientStock)
	}
	return nil
}
