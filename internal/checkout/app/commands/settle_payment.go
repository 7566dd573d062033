package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vantagecommerce/settle/internal/checkout/domain"
	"github.com/vantagecommerce/settle/internal/checkout/ports"
)

// Outcome classifies the result of a reconciliation pass.
type Outcome string

const (
	OutcomeApproved       Outcome = "approved"
	OutcomeDeclined       Outcome = "declined"
	OutcomePending        Outcome = "pending"
	OutcomeAlreadySettled Outcome = "already_settled"
)

// SettlePaymentCommand reconciles a gateway callback. The payload is never
// trusted as proof of payment; only the authoritative status check drives the
// state transition.
type SettlePaymentCommand struct {
	InvoiceID     string
	TransactionID string
}

// SettlementResult reports the reconciled state to the caller.
type SettlementResult struct {
	Outcome Outcome              `json:"outcome"`
	Order   *domain.Order        `json:"order"`
	Status  *ports.GatewayStatus `json:"status,omitempty"`
}

// SettlePaymentHandler owns the reconciliation half of the settlement state
// machine. The PENDING payment row is the serialization point: a duplicate
// callback finds no payment to claim and becomes a no-op.
type SettlePaymentHandler struct {
	orders     ports.OrderRepository
	payments   ports.PaymentRepository
	settlement ports.SettlementRepository
	customers  ports.CustomerRepository
	gateway    ports.PaymentGateway
	notifier   ports.Notifier
	events     ports.EventBus
	logger     *slog.Logger
}

func NewSettlePaymentHandler(
	orders ports.OrderRepository,
	payments ports.PaymentRepository,
	settlement ports.SettlementRepository,
	customers ports.CustomerRepository,
	gateway ports.PaymentGateway,
	notifier ports.Notifier,
	events ports.EventBus,
	logger *slog.Logger,
) *SettlePaymentHandler {
	return &SettlePaymentHandler{
		orders:     orders,
		payments:   payments,
		settlement: settlement,
		customers:  customers,
		gateway:    gateway,
		notifier:   notifier,
		events:     events,
		logger:     logger,
	}
}

func (h *SettlePaymentHandler) Handle(ctx context.Context, cmd SettlePaymentCommand) (*SettlementResult, error) {
	orderID, err := domain.ParseInvoiceID(cmd.InvoiceID)
	if err != nil {
		return nil, err
	}

	payment, err := h.payments.FindPending(ctx, orderID)
	if err != nil {
		if errors.Is(err, ports.ErrNoPendingPayment) {
			return h.resolveWithoutPending(ctx, orderID)
		}
		return nil, fmt.Errorf("find pending payment: %w", err)
	}

	status, err := h.gateway.CheckStatus(ctx, cmd.InvoiceID)
	if err != nil {
		// The payment stays PENDING; a later callback retry is the recovery
		// path.
		h.logger.Error("status check failed, payment left pending",
			"order_id", orderID, "payment_id", payment.ID, "error", err)
		return nil, fmt.Errorf("check gateway status: %w", err)
	}

	transactionID := status.TransactionID
	if transactionID == "" {
		transactionID = cmd.TransactionID
	}

	switch {
	case status.Approved():
		return h.settleApproved(ctx, payment, orderID, transactionID, status)
	case status.Declined():
		if err := h.settlement.SettleDeclined(ctx, payment.ID, orderID, transactionID, status.Raw); err != nil {
			return nil, fmt.Errorf("record declined settlement: %w", err)
		}
		if err := h.events.PublishPaymentFailed(ctx, orderID, payment.ID, status.ErrorMessage); err != nil {
			h.logger.Error("publish payment failed event", "order_id", orderID, "error", err)
		}
		order, err := h.orders.GetByID(ctx, orderID)
		if err != nil {
			return nil, fmt.Errorf("load order after decline: %w", err)
		}
		return &SettlementResult{Outcome: OutcomeDeclined, Order: order, Status: status}, nil
	default:
		order, err := h.orders.GetByID(ctx, orderID)
		if err != nil {
			return nil, fmt.Errorf("load order: %w", err)
		}
		return &SettlementResult{Outcome: OutcomePending, Order: order, Status: status}, nil
	}
}

func (h *SettlePaymentHandler) settleApproved(
	ctx context.Context,
	payment *domain.Payment,
	orderID int64,
	transactionID string,
	status *ports.GatewayStatus,
) (*SettlementResult, error) {
	order, err := h.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}

	err = h.settlement.SettleApproved(ctx, ports.Settlement{
		PaymentID:     payment.ID,
		OrderID:       order.ID,
		CustomerID:    order.CustomerID,
		TransactionID: transactionID,
		GatewayData:   status.Raw,
		Items:         order.Items,
	})
	if err != nil {
		if errors.Is(err, ports.ErrNoPendingPayment) {
			// A concurrent reconciliation claimed the payment first.
			return h.resolveWithoutPending(ctx, orderID)
		}
		return nil, fmt.Errorf("commit settlement: %w", err)
	}

	// Post-commit effects are best-effort: the settlement stands even when
	// the confirmation or the event cannot be delivered.
	if customer, err := h.customers.GetCustomer(ctx, order.CustomerID); err != nil {
		h.logger.Error("load customer for confirmation", "order_id", order.ID, "error", err)
	} else if err := h.notifier.SendPaymentConfirmation(ctx, customer.Email, ports.PaymentConfirmation{
		PaymentID: payment.ID,
		OrderID:   order.ID,
		Amount:    payment.Amount,
	}); err != nil {
		h.logger.Error("send payment confirmation", "order_id", order.ID, "error", err)
	}
	if err := h.events.PublishPaymentSettled(ctx, order.ID, payment.ID); err != nil {
		h.logger.Error("publish payment settled event", "order_id", order.ID, "error", err)
	}

	settled, err := h.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load settled order: %w", err)
	}
	return &SettlementResult{Outcome: OutcomeApproved, Order: settled, Status: status}, nil
}

// resolveWithoutPending handles a callback with no PENDING payment to claim:
// a duplicate of an already-reconciled transaction is a safe no-op, anything
// else is a conflict.
func (h *SettlePaymentHandler) resolveWithoutPending(ctx context.Context, orderID int64) (*SettlementResult, error) {
	order, err := h.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	if order.Status == domain.OrderPaid {
		return &SettlementResult{Outcome: OutcomeAlreadySettled, Order: order}, nil
	}
	return nil, fmt.Errorf("order %d in status %s: %w", orderID, order.Status, ports.ErrNoPendingPayment)
}
