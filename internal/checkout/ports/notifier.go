package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// PaymentConfirmation carries the fields of the confirmation message.
type PaymentConfirmation struct {
	PaymentID int64
	OrderID   int64
	Amount    decimal.Decimal
}

// Notifier is a fire-and-forget notification sink. Delivery failure must
// never fail the settlement that triggered it.
type Notifier interface {
	SendPaymentConfirmation(ctx context.Context, email string, c PaymentConfirmation) error
}
