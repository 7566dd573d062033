package kafka

import (
	"context"
	"log/slog"
)

// NoopEventBus logs events without sending them to Kafka. Useful for local dev before wiring Kafka.
type NoopEventBus struct{}

// NewNoopEventBus returns a new no-op event publisher.
func NewNoopEventBus() *NoopEventBus {
	return &NoopEventBus{}
}

func (n *NoopEventBus) PublishPaymentSettled(_ context.Context, orderID, paymentID int64) error {
	slog.Debug("event::payment_settled", "order_id", orderID, "payment_id", paymentID)
	return nil
}

func (n *NoopEventBus) PublishPaymentFailed(_ context.Context, orderID, paymentID int64, reason string) error {
	slog.Debug("event::payment_failed", "order_id", orderID, "payment_id", paymentID, "reason", reason)
	return nil
}

func (n *NoopEventBus) PublishPaymentRefunded(_ context.Context, orderID, paymentID int64) error {
	slog.Debug("event::payment_refunded", "order_id", orderID, "payment_id", paymentID)
	return nil
}
