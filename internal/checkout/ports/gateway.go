package ports

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Gateway status codes as reported by the provider's checkstatus endpoint.
const (
	GatewayStatusApproved = 100
	GatewayStatusDeclined = 41
)

// GatewayRequest is the fully-populated 3-D payment request. Card fields pass
// through from the caller; merchant-derived fields are synthesized server-side
// and never trusted from the outside.
type GatewayRequest struct {
	CCHolderName       string
	CCNo               string
	ExpiryMonth        string
	ExpiryYear         string
	CVV                string
	CurrencyCode       string
	InstallmentsNumber int32
	InvoiceID          string
	InvoiceDescription string
	Name               string
	Surname            string
	Total              decimal.Decimal
	ReturnURL          string
	CancelURL          string
	// Items is the JSON-encoded line item manifest the gateway displays.
	Items string
}

// GatewayResponse is the provider's answer to a submit or refund call.
// Business failures (declined card, rejected refund) are data here, not
// errors: the caller persists the reason either way.
type GatewayResponse struct {
	Success      bool            `json:"success"`
	HTTPCode     int             `json:"http_code"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Raw          json.RawMessage `json:"raw,omitempty"`
}

// GatewayStatus is the authoritative transaction state from checkstatus.
type GatewayStatus struct {
	StatusCode    int             `json:"status_code"`
	TransactionID string          `json:"transaction_id,omitempty"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	Raw           json.RawMessage `json:"raw,omitempty"`
}

// Approved reports whether the gateway confirmed the payment.
func (s GatewayStatus) Approved() bool { return s.StatusCode == GatewayStatusApproved }

// Declined reports whether the gateway rejected the payment.
func (s GatewayStatus) Declined() bool { return s.StatusCode == GatewayStatusDeclined }

// PaymentGateway is the provider adapter. Transport errors propagate as
// retryable errors; provider-reported business failures come back as data.
type PaymentGateway interface {
	Submit3D(ctx context.Context, req GatewayRequest) (*GatewayResponse, error)
	CheckStatus(ctx context.Context, invoiceID string) (*GatewayStatus, error)
	Refund(ctx context.Context, amount decimal.Decimal, orderID int64) (*GatewayResponse, error)
}
