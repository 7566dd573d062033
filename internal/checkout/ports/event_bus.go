package ports

import "context"

// EventBus defines the contract for publishing payment lifecycle events.
type EventBus interface {
	PublishPaymentSettled(ctx context.Context, orderID, paymentID int64) error
	PublishPaymentFailed(ctx context.Context, orderID, paymentID int64, reason string) error
	PublishPaymentRefunded(ctx context.Context, orderID, paymentID int64) error
}
