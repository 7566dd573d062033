package commands

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/vantagecommerce/settle/internal/checkout/metrics"
	"github.com/vantagecommerce/settle/internal/checkout/ports"
	"github.com/vantagecommerce/settle/internal/telemetry"
)

// RefundHandler is implemented by RefundPaymentHandler and its decorators.
type RefundHandler interface {
	Handle(ctx context.Context, cmd RefundPaymentCommand) (*ports.GatewayResponse, error)
}

type ObservableRefundHandler struct {
	handler RefundHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableRefundHandler(handler RefundHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservableRefundHandler {
	return &ObservableRefundHandler{
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}
}

func (o *ObservableRefundHandler) Handle(ctx context.Context, cmd RefundPaymentCommand) (*ports.GatewayResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "RefundPaymentCommand.Handle")
	defer span.End()

	var success bool
	defer func() {
		o.metrics.RecordRefund(ctx, success)
	}()

	o.logger.InfoContext(ctx, "refunding payment",
		"payment_id", cmd.PaymentID,
	)

	response, err := o.handler.Handle(ctx, cmd)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		o.logger.ErrorContext(ctx, "payment refund failed",
			"error", err,
			"payment_id", cmd.PaymentID,
		)
		return nil, err
	}
	success = true

	telemetry.AddSpanAttributes(span,
		attribute.Int64("payment.id", cmd.PaymentID),
	)

	o.logger.InfoContext(ctx, "payment refunded",
		"payment_id", cmd.PaymentID,
	)

	telemetry.SetSpanSuccess(span)

	return response, nil
}
