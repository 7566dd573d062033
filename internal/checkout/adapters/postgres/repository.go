package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// The adapters in this package implement the checkout persistence ports on
// PostgreSQL, one repository per port, all sharing the same pool. The
// multi-entity transitions (settle, reverse, order assembly) run inside
// single transactions; atomicity is the store's guarantee, not compensation
// logic in the application layer.

// Repositories bundles every checkout adapter over one pool.
type Repositories struct {
	Orders     *OrderRepository
	Payments   *PaymentRepository
	Settlement *SettlementRepository
	Catalog    *CatalogRepository
	Carts      *CartRepository
	Customers  *CustomerRepository
	Refunds    *RefundRepository
}

// NewRepositories constructs the full adapter set.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Orders:     NewOrderRepository(pool),
		Payments:   NewPaymentRepository(pool),
		Settlement: NewSettlementRepository(pool),
		Catalog:    NewCatalogRepository(pool),
		Carts:      NewCartRepository(pool),
		Customers:  NewCustomerRepository(pool),
		Refunds:    NewRefundRepository(pool),
	}
}

// withTx runs fn inside a transaction, committing on success.
func withTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
