package notification

import (
	"context"
	"log/slog"

	"github.com/vantagecommerce/settle/internal/checkout/ports"
)

// LogMailer records payment confirmations in the log instead of sending
// mail. It stands in for a real mail provider until one is wired; delivery
// is best-effort either way.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer constructs a LogMailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendPaymentConfirmation(ctx context.Context, email string, c ports.PaymentConfirmation) error {
	m.logger.InfoContext(ctx, "payment confirmation",
		"email", email,
		"order_id", c.OrderID,
		"payment_id", c.PaymentID,
		"amount", c.Amount.StringFixed(2),
	)
	return nil
}
