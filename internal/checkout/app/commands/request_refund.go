package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vantagecommerce/settle/internal/checkout/domain"
	"github.com/vantagecommerce/settle/internal/checkout/ports"
)

// RequestRefundCommand is the customer-initiated half of the refund workflow.
type RequestRefundCommand struct {
	OrderItemID int64
	Quantity    int32
	Description string
	CustomerID  int64
}

func (c RequestRefundCommand) Validate() error {
	if c.OrderItemID <= 0 {
		return errors.New("order_item_id is required")
	}
	if c.Quantity <= 0 {
		return errors.New("quantity must be positive")
	}
	if c.CustomerID <= 0 {
		return errors.New("customer_id is required")
	}
	return nil
}

// RequestRefundHandler validates eligibility and cumulative quantity before
// recording a PENDING refund request.
type RequestRefundHandler struct {
	orders  ports.OrderRepository
	refunds ports.RefundRepository
}

func NewRequestRefundHandler(orders ports.OrderRepository, refunds ports.RefundRepository) *RequestRefundHandler {
	return &RequestRefundHandler{orders: orders, refunds: refunds}
}

func (h *RequestRefundHandler) Handle(ctx context.Context, cmd RequestRefundCommand) (*domain.RefundRequest, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	item, err := h.orders.GetItem(ctx, cmd.OrderItemID)
	if err != nil {
		return nil, fmt.Errorf("load order item: %w", err)
	}

	order, err := h.orders.GetByID(ctx, item.OrderID)
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	if order.CustomerID != cmd.CustomerID {
		return nil, fmt.Errorf("order item %d: %w", item.ID, ports.ErrForbidden)
	}
	if order.Status != domain.OrderPaid {
		return nil, fmt.Errorf("order %d must be PAID to request a refund, is %s", order.ID, order.Status)
	}
	if cmd.Quantity > item.Quantity {
		return nil, fmt.Errorf("refund quantity %d exceeds ordered quantity %d", cmd.Quantity, item.Quantity)
	}

	existing, err := h.refunds.ListByOrderItem(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("load existing refund requests: %w", err)
	}
	if claimed := ports.RefundableQuantity(existing); claimed+cmd.Quantity > item.Quantity {
		return nil, fmt.Errorf("refund quantity %d exceeds remaining refundable quantity %d",
			cmd.Quantity, item.Quantity-claimed)
	}

	now := time.Now().UTC()
	request, err := h.refunds.Create(ctx, domain.RefundRequest{
		OrderItemID: item.ID,
		Quantity:    cmd.Quantity,
		Description: cmd.Description,
		Status:      domain.RefundPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, fmt.Errorf("create refund request: %w", err)
	}

	return request, nil
}
