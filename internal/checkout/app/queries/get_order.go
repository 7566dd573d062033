package queries

import (
	"context"
	"errors"
	"fmt"

	"github.com/vantagecommerce/settle/internal/checkout/domain"
	"github.com/vantagecommerce/settle/internal/checkout/ports"
)

// GetOrderQuery retrieves an order, scoped to the requesting customer.
type GetOrderQuery struct {
	OrderID    int64
	CustomerID int64
}

// Validate ensures the query has valid parameters.
func (q GetOrderQuery) Validate() error {
	if q.OrderID <= 0 {
		return errors.New("order_id is required")
	}
	if q.CustomerID <= 0 {
		return errors.New("customer_id is required")
	}
	return nil
}

// GetOrderQueryHandler executes GetOrderQuery.
type GetOrderQueryHandler struct {
	repo ports.OrderRepository
}

// NewGetOrderQueryHandler constructs a GetOrderQueryHandler.
func NewGetOrderQueryHandler(repo ports.OrderRepository) *GetOrderQueryHandler {
	return &GetOrderQueryHandler{repo: repo}
}

// Handle returns the order when it exists and belongs to the customer.
func (h *GetOrderQueryHandler) Handle(ctx context.Context, query GetOrderQuery) (*domain.Order, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	order, err := h.repo.GetByID(ctx, query.OrderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != query.CustomerID {
		return nil, fmt.Errorf("order %d: %w", query.OrderID, ports.ErrForbidden)
	}

	return order, nil
}
