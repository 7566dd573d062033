package commands

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/vantagecommerce/settle/internal/checkout/metrics"
	"github.com/vantagecommerce/settle/internal/telemetry"
)

// InitiateHandler is implemented by InitiatePaymentHandler and its decorators.
type InitiateHandler interface {
	Handle(ctx context.Context, cmd InitiatePaymentCommand) (*InitiationResult, error)
}

type ObservableInitiateHandler struct {
	handler InitiateHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableInitiateHandler(handler InitiateHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservableInitiateHandler {
	return &ObservableInitiateHandler{
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}
}

func (o *ObservableInitiateHandler) Handle(ctx context.Context, cmd InitiatePaymentCommand) (*InitiationResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "InitiatePaymentCommand.Handle")
	defer span.End()

	var success bool
	defer func() {
		o.metrics.RecordPaymentInitiated(ctx, success)
	}()

	o.logger.InfoContext(ctx, "initiating 3-D payment",
		"order_id", cmd.OrderID,
	)

	result, err := o.handler.Handle(ctx, cmd)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		o.logger.ErrorContext(ctx, "payment initiation failed",
			"error", err,
			"order_id", cmd.OrderID,
		)
		return nil, err
	}
	success = true

	telemetry.AddSpanAttributes(span,
		attribute.Int64("order.id", cmd.OrderID),
		attribute.Int64("payment.id", result.Payment.ID),
		attribute.String("payment.status", string(result.Payment.Status)),
	)

	o.logger.InfoContext(ctx, "payment initiated",
		"order_id", cmd.OrderID,
		"payment_id", result.Payment.ID,
	)

	telemetry.SetSpanSuccess(span)

	return result, nil
}
