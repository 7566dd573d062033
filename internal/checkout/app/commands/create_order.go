package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vantagecommerce/settle/internal/checkout/domain"
	"github.com/vantagecommerce/settle/internal/checkout/ports"
)

// CreateOrderCommand converts the customer's active cart into an order.
type CreateOrderCommand struct {
	CustomerID int64
	AddressID  int64
}

func (c CreateOrderCommand) Validate() error {
	if c.CustomerID <= 0 {
		return errors.New("customer_id is required")
	}
	if c.AddressID <= 0 {
		return errors.New("address_id is required")
	}
	return nil
}

// CreateOrderHandler assembles a priced, line-itemized order from the cart
// inside one transaction and clears the cart.
type CreateOrderHandler struct {
	orders    ports.OrderRepository
	carts     ports.CartRepository
	catalog   ports.CatalogRepository
	customers ports.CustomerRepository
}

func NewCreateOrderHandler(
	orders ports.OrderRepository,
	carts ports.CartRepository,
	catalog ports.CatalogRepository,
	customers ports.CustomerRepository,
) *CreateOrderHandler {
	return &CreateOrderHandler{
		orders:    orders,
		carts:     carts,
		catalog:   catalog,
		customers: customers,
	}
}

func (h *CreateOrderHandler) Handle(ctx context.Context, cmd CreateOrderCommand) (*domain.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	owned, err := h.customers.AddressBelongsTo(ctx, cmd.AddressID, cmd.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("check address ownership: %w", err)
	}
	if !owned {
		return nil, fmt.Errorf("address %d: %w", cmd.AddressID, ports.ErrForbidden)
	}

	cart, err := h.carts.ActiveCart(ctx, cmd.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("load active cart: %w", err)
	}
	if len(cart.Items) == 0 {
		return nil, ports.ErrEmptyCart
	}

	// Defense in depth: settlement re-checks stock, but an order that cannot
	// possibly settle should not be created.
	ids := make([]int64, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := h.catalog.GetProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	for _, item := range cart.Items {
		product, ok := products[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("product %d: %w", item.ProductID, ports.ErrNotFound)
		}
		if product.Stock < item.Quantity {
			return nil, fmt.Errorf("product %s: available %d, requested %d: %w",
				product.Name, product.Stock, item.Quantity, ports.ErrInsufficientStock)
		}
	}

	now := time.Now().UTC()
	order := domain.Order{
		CustomerID: cmd.CustomerID,
		AddressID:  cmd.AddressID,
		Status:     domain.OrderPending,
		TotalPrice: decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, item := range cart.Items {
		order.Items = append(order.Items, domain.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.UnitPrice,
		})
		order.TotalPrice = order.TotalPrice.Add(item.UnitPrice.Mul(decimal.NewFromInt32(item.Quantity)))
	}

	if err := order.Validate(); err != nil {
		return nil, err
	}

	created, err := h.orders.CreateFromCart(ctx, order, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	return created, nil
}
