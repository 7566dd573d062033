package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vantagecommerce/settle/internal/checkout/domain"
	"github.com/vantagecommerce/settle/internal/checkout/ports"
)

type CartRepository struct {
	pool *pgxpool.Pool
}

func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// ActiveCart returns the customer's cart with items priced at the live
// catalog price. Order assembly freezes these prices into order items.
func (r *CartRepository) ActiveCart(ctx context.Context, customerID int64) (*domain.Cart, error) {
	var cart domain.Cart
	err := r.pool.QueryRow(ctx,
		`SELECT id, customer_id FROM carts WHERE customer_id = $1`,
		customerID,
	).Scan(&cart.ID, &cart.CustomerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("cart for customer %d: %w", customerID, ports.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	query := `
		SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity, p.price
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.id
	`

	rows, err := r.pool.Query(ctx, query, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(
			&item.ID,
			&item.CartID,
			&item.ProductID,
			&item.Quantity,
			&item.UnitPrice,
		); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart items: %w", err)
	}

	return &cart, nil
}
