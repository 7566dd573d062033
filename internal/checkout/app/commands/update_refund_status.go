package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/vantagecommerce/settle/internal/checkout/domain"
	"github.com/vantagecommerce/settle/internal/checkout/ports"
)

// UpdateRefundStatusCommand is the admin decision on a refund request.
type UpdateRefundStatusCommand struct {
	RefundRequestID int64
	Status          domain.RefundStatus
}

func (c UpdateRefundStatusCommand) Validate() error {
	if c.RefundRequestID <= 0 {
		return errors.New("refund request id is required")
	}
	if c.Status != domain.RefundApproved && c.Status != domain.RefundRejected {
		return fmt.Errorf("status must be %s or %s", domain.RefundApproved, domain.RefundRejected)
	}
	return nil
}

// UpdateRefundStatusHandler decides a PENDING refund request. Approval drives
// the gateway reversal through the refund-payment handler; rejection is
// terminal with no side effects. A reversal failure returns the request to
// PENDING so the decision can be retried.
type UpdateRefundStatusHandler struct {
	orders   ports.OrderRepository
	payments ports.PaymentRepository
	refunds  ports.RefundRepository
	refunder RefundHandler
}

func NewUpdateRefundStatusHandler(
	orders ports.OrderRepository,
	payments ports.PaymentRepository,
	refunds ports.RefundRepository,
	refunder RefundHandler,
) *UpdateRefundStatusHandler {
	return &UpdateRefundStatusHandler{
		orders:   orders,
		payments: payments,
		refunds:  refunds,
		refunder: refunder,
	}
}

func (h *UpdateRefundStatusHandler) Handle(ctx context.Context, cmd UpdateRefundStatusCommand) (*domain.RefundRequest, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	request, err := h.refunds.GetByID(ctx, cmd.RefundRequestID)
	if err != nil {
		return nil, fmt.Errorf("load refund request: %w", err)
	}
	if request.Decided() {
		return nil, ports.ErrAlreadyProcessed
	}

	if cmd.Status == domain.RefundRejected {
		if err := h.refunds.UpdateStatus(ctx, request.ID, domain.RefundPending, domain.RefundRejected); err != nil {
			return nil, fmt.Errorf("reject refund request: %w", err)
		}
		request.Status = domain.RefundRejected
		return request, nil
	}

	item, err := h.orders.GetItem(ctx, request.OrderItemID)
	if err != nil {
		return nil, fmt.Errorf("load order item: %w", err)
	}

	payment, err := h.payments.LatestCompleted(ctx, item.OrderID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, fmt.Errorf("order %d has no completed payment to refund", item.OrderID)
		}
		return nil, fmt.Errorf("load completed payment: %w", err)
	}

	if err := h.refunds.UpdateStatus(ctx, request.ID, domain.RefundPending, domain.RefundApproved); err != nil {
		return nil, fmt.Errorf("approve refund request: %w", err)
	}
	request.Status = domain.RefundApproved

	if _, err := h.refunder.Handle(ctx, RefundPaymentCommand{PaymentID: payment.ID}); err != nil {
		if revertErr := h.refunds.UpdateStatus(ctx, request.ID, domain.RefundApproved, domain.RefundPending); revertErr != nil {
			return nil, errors.Join(err, fmt.Errorf("return refund request to pending: %w", revertErr))
		}
		request.Status = domain.RefundPending
		return nil, err
	}

	if err := h.refunds.UpdateStatus(ctx, request.ID, domain.RefundApproved, domain.RefundCompleted); err != nil {
		return nil, fmt.Errorf("mark refund request completed: %w", err)
	}
	request.Status = domain.RefundCompleted

	return request, nil
}
