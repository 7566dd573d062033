package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus captures the lifecycle of an order in the system.
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderPaid      OrderStatus = "PAID"
	OrderCancelled OrderStatus = "CANCELLED"
	OrderRefunded  OrderStatus = "REFUNDED"
)

// Order is a priced snapshot of a cart at checkout time. Its total is frozen
// at creation; status transitions are the only mutation afterwards.
type Order struct {
	ID         int64           `json:"id"`
	CustomerID int64           `json:"customer_id"`
	AddressID  int64           `json:"address_id"`
	Status     OrderStatus     `json:"status"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Items      []OrderItem     `json:"items,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// OrderItem is an immutable line item with the unit price captured at order
// time, decoupled from the live catalog price.
type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int32           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Validate ensures the order adheres to business constraints.
func (o Order) Validate() error {
	if o.CustomerID <= 0 {
		return errors.New("customer_id is required")
	}
	if o.AddressID <= 0 {
		return errors.New("address_id is required")
	}
	if len(o.Items) == 0 {
		return errors.New("order must have at least one item")
	}
	total := decimal.Zero
	for _, item := range o.Items {
		if item.Quantity <= 0 {
			return errors.New("item quantity must be positive")
		}
		total = total.Add(item.Price.Mul(decimal.NewFromInt32(item.Quantity)))
	}
	if !total.Equal(o.TotalPrice) {
		return fmt.Errorf("total_price %s does not match item sum %s", o.TotalPrice, total)
	}
	return nil
}

const invoicePrefix = "ORDER_"

// InvoiceID formats the merchant invoice identifier sent to the gateway.
func InvoiceID(orderID int64) string {
	return invoicePrefix + strconv.FormatInt(orderID, 10)
}

// ParseInvoiceID extracts the order id from a gateway invoice identifier.
// Anything that is not exactly "ORDER_<positive integer>" is rejected.
func ParseInvoiceID(invoiceID string) (int64, error) {
	raw, ok := strings.CutPrefix(invoiceID, invoicePrefix)
	if !ok {
		return 0, fmt.Errorf("invalid invoice_id format: %q", invoiceID)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid invoice_id format: %q", invoiceID)
	}
	return id, nil
}
