package commands

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/vantagecommerce/settle/internal/checkout/metrics"
	"github.com/vantagecommerce/settle/internal/telemetry"
)

// SettleHandler is implemented by SettlePaymentHandler and its decorators.
type SettleHandler interface {
	Handle(ctx context.Context, cmd SettlePaymentCommand) (*SettlementResult, error)
}

type ObservableSettleHandler struct {
	handler SettleHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableSettleHandler(handler SettleHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservableSettleHandler {
	return &ObservableSettleHandler{
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}
}

func (o *ObservableSettleHandler) Handle(ctx context.Context, cmd SettlePaymentCommand) (*SettlementResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "SettlePaymentCommand.Handle")
	defer span.End()

	start := time.Now()
	defer func() {
		o.metrics.RecordSettlementDuration(ctx, time.Since(start).Seconds())
	}()

	o.logger.InfoContext(ctx, "reconciling payment callback",
		"invoice_id", cmd.InvoiceID,
	)

	result, err := o.handler.Handle(ctx, cmd)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		o.metrics.RecordSettlement(ctx, "error")
		o.logger.ErrorContext(ctx, "settlement reconciliation failed",
			"error", err,
			"invoice_id", cmd.InvoiceID,
		)
		return nil, err
	}

	telemetry.AddSpanAttributes(span,
		attribute.Int64("order.id", result.Order.ID),
		attribute.String("order.status", string(result.Order.Status)),
		attribute.String("settlement.outcome", string(result.Outcome)),
	)

	o.metrics.RecordSettlement(ctx, string(result.Outcome))
	o.logger.InfoContext(ctx, "settlement reconciled",
		"invoice_id", cmd.InvoiceID,
		"order_id", result.Order.ID,
		"outcome", result.Outcome,
	)

	telemetry.SetSpanSuccess(span)

	return result, nil
}
