package adapters

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/vantagecommerce/settle/internal/checkout/ports"
	"github.com/vantagecommerce/settle/internal/kafka"
	"github.com/vantagecommerce/settle/internal/telemetry"
)

// ObservableEventBus decorates an EventBus with spans and publish latency
// metrics, one topic per event type.
type ObservableEventBus struct {
	bus     ports.EventBus
	metrics *kafka.Metrics
}

func NewObservableEventBus(bus ports.EventBus, metrics *kafka.Metrics) *ObservableEventBus {
	return &ObservableEventBus{
		bus:     bus,
		metrics: metrics,
	}
}

func (e *ObservableEventBus) PublishPaymentSettled(ctx context.Context, orderID, paymentID int64) error {
	ctx, span := telemetry.StartSpan(ctx, "EventBus.PublishPaymentSettled")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.Int64("order.id", orderID),
		attribute.Int64("payment.id", paymentID),
		attribute.String("topic", "payment.settled"),
	)

	start := time.Now()
	err := e.bus.PublishPaymentSettled(ctx, orderID, paymentID)
	e.metrics.RecordPublish(ctx, "payment.settled", time.Since(start).Seconds(), err == nil)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}

func (e *ObservableEventBus) PublishPaymentFailed(ctx context.Context, orderID, paymentID int64, reason string) error {
	ctx, span := telemetry.StartSpan(ctx, "EventBus.PublishPaymentFailed")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.Int64("order.id", orderID),
		attribute.Int64("payment.id", paymentID),
		attribute.String("topic", "payment.failed"),
		attribute.String("failure.reason", reason),
	)

	start := time.Now()
	err := e.bus.PublishPaymentFailed(ctx, orderID, paymentID, reason)
	e.metrics.RecordPublish(ctx, "payment.failed", time.Since(start).Seconds(), err == nil)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}

func (e *ObservableEventBus) PublishPaymentRefunded(ctx context.Context, orderID, paymentID int64) error {
	ctx, span := telemetry.StartSpan(ctx, "EventBus.PublishPaymentRefunded")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.Int64("order.id", orderID),
		attribute.Int64("payment.id", paymentID),
		attribute.String("topic", "payment.refunded"),
	)

	start := time.Now()
	err := e.bus.PublishPaymentRefunded(ctx, orderID, paymentID)
	e.metrics.RecordPublish(ctx, "payment.refunded", time.Since(start).Seconds(), err == nil)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}
