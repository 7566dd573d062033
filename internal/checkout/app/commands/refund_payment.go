package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/vantagecommerce/settle/internal/checkout/domain"
	"github.com/vantagecommerce/settle/internal/checkout/ports"
)

// RefundPaymentCommand reverses a completed settlement: funds through the
// gateway, then order status and stock in one transaction.
type RefundPaymentCommand struct {
	PaymentID int64
}

// RefundPaymentHandler runs the reversal path. Nothing is committed unless
// the gateway accepted the refund.
type RefundPaymentHandler struct {
	orders     ports.OrderRepository
	payments   ports.PaymentRepository
	settlement ports.SettlementRepository
	gateway    ports.PaymentGateway
	events     ports.EventBus
	logger     *slog.Logger
}

func NewRefundPaymentHandler(
	orders ports.OrderRepository,
	payments ports.PaymentRepository,
	settlement ports.SettlementRepository,
	gateway ports.PaymentGateway,
	events ports.EventBus,
	logger *slog.Logger,
) *RefundPaymentHandler {
	return &RefundPaymentHandler{
		orders:     orders,
		payments:   payments,
		settlement: settlement,
		gateway:    gateway,
		events:     events,
		logger:     logger,
	}
}

func (h *RefundPaymentHandler) Handle(ctx context.Context, cmd RefundPaymentCommand) (*ports.GatewayResponse, error) {
	payment, err := h.payments.GetByID(ctx, cmd.PaymentID)
	if err != nil {
		return nil, fmt.Errorf("load payment: %w", err)
	}
	if payment.Status != domain.PaymentCompleted {
		return nil, fmt.Errorf("payment %d is %s, only COMPLETED payments can be refunded", payment.ID, payment.Status)
	}

	order, err := h.orders.GetByID(ctx, payment.OrderID)
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}

	response, err := h.gateway.Refund(ctx, payment.Amount, payment.OrderID)
	if err != nil {
		return nil, fmt.Errorf("gateway refund: %w", err)
	}
	if !response.Success {
		return nil, fmt.Errorf("gateway refused refund: %s", response.ErrorMessage)
	}

	raw, err := appendRefundData(payment.GatewayData, response.Raw)
	if err != nil {
		return nil, err
	}

	err = h.settlement.Reverse(ctx, ports.Reversal{
		PaymentID:   payment.ID,
		OrderID:     order.ID,
		GatewayData: raw,
		Items:       order.Items,
	})
	if err != nil {
		return nil, fmt.Errorf("commit reversal: %w", err)
	}

	if err := h.events.PublishPaymentRefunded(ctx, order.ID, payment.ID); err != nil {
		h.logger.Error("publish payment refunded event", "order_id", order.ID, "error", err)
	}

	return response, nil
}

// appendRefundData keeps the payment's gateway history append-only: the
// refund response is attached alongside whatever was recorded before.
func appendRefundData(existing, refund json.RawMessage) (json.RawMessage, error) {
	history := map[string]json.RawMessage{}
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &history); err != nil {
			// Earlier phases may have stored a non-object payload; wrap it.
			history = map[string]json.RawMessage{"payment": existing}
		}
	}
	history["refund"] = refund

	merged, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("encode gateway history: %w", err)
	}
	return merged, nil
}
