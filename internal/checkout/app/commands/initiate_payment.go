package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vantagecommerce/settle/internal/checkout/domain"
	"github.com/vantagecommerce/settle/internal/checkout/ports"
)

// CallbackURLs are the gateway redirect targets for the 3-D result.
type CallbackURLs struct {
	Return string
	Cancel string
}

// InitiatePaymentCommand starts a 3-D settlement attempt for an order. Card
// fields pass through to the gateway; everything merchant-side is synthesized
// by the handler.
type InitiatePaymentCommand struct {
	OrderID            int64
	CCHolderName       string
	CCNo               string
	ExpiryMonth        string
	ExpiryYear         string
	CVV                string
	CurrencyCode       string
	InstallmentsNumber int32
}

func (c InitiatePaymentCommand) Validate() error {
	if c.OrderID <= 0 {
		return errors.New("order_id is required")
	}
	if c.CCNo == "" || c.CCHolderName == "" || c.CVV == "" {
		return errors.New("card details are required")
	}
	if c.ExpiryMonth == "" || c.ExpiryYear == "" {
		return errors.New("card expiry is required")
	}
	if c.CurrencyCode == "" {
		return errors.New("currency_code is required")
	}
	if c.InstallmentsNumber <= 0 {
		return errors.New("installments_number must be positive")
	}
	return nil
}

// InitiatePaymentHandler drives the initiation half of the settlement state
// machine: validate, record a PENDING payment, sign, submit.
type InitiatePaymentHandler struct {
	orders    ports.OrderRepository
	payments  ports.PaymentRepository
	catalog   ports.CatalogRepository
	customers ports.CustomerRepository
	gateway   ports.PaymentGateway
	urls      CallbackURLs
}

func NewInitiatePaymentHandler(
	orders ports.OrderRepository,
	payments ports.PaymentRepository,
	catalog ports.CatalogRepository,
	customers ports.CustomerRepository,
	gateway ports.PaymentGateway,
	urls CallbackURLs,
) *InitiatePaymentHandler {
	return &InitiatePaymentHandler{
		orders:    orders,
		payments:  payments,
		catalog:   catalog,
		customers: customers,
		gateway:   gateway,
		urls:      urls,
	}
}

// InitiationResult pairs the recorded payment with the gateway's redirect
// payload, returned to the caller unmodified.
type InitiationResult struct {
	Payment  *domain.Payment        `json:"payment"`
	Response *ports.GatewayResponse `json:"response"`
}

func (h *InitiatePaymentHandler) Handle(ctx context.Context, cmd InitiatePaymentCommand) (*InitiationResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	order, err := h.orders.GetByID(ctx, cmd.OrderID)
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	if order.Status == domain.OrderPaid || order.Status == domain.OrderRefunded {
		return nil, fmt.Errorf("order %d already settled (%s)", order.ID, order.Status)
	}

	customer, err := h.customers.GetCustomer(ctx, order.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("load customer: %w", err)
	}

	ids := make([]int64, 0, len(order.Items))
	for _, item := range order.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := h.catalog.GetProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	for _, item := range order.Items {
		product, ok := products[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("product %d: %w", item.ProductID, ports.ErrNotFound)
		}
		if product.Stock < item.Quantity {
			return nil, fmt.Errorf("product %s: available %d, requested %d: %w",
				product.Name, product.Stock, item.Quantity, ports.ErrInsufficientStock)
		}
	}

	manifest, err := itemManifest(order.Items, products)
	if err != nil {
		return nil, err
	}

	request := ports.GatewayRequest{
		CCHolderName:       cmd.CCHolderName,
		CCNo:               cmd.CCNo,
		ExpiryMonth:        cmd.ExpiryMonth,
		ExpiryYear:         cmd.ExpiryYear,
		CVV:                cmd.CVV,
		CurrencyCode:       cmd.CurrencyCode,
		InstallmentsNumber: cmd.InstallmentsNumber,
		InvoiceID:          domain.InvoiceID(order.ID),
		InvoiceDescription: fmt.Sprintf("Order #%d Payment", order.ID),
		Name:               customer.FirstName,
		Surname:            customer.LastName,
		Total:              order.TotalPrice,
		ReturnURL:          h.urls.Return,
		CancelURL:          h.urls.Cancel,
		Items:              manifest,
	}

	// The payment row goes in before the gateway call: a crash in between
	// leaves an observable orphaned PENDING record instead of a silent loss.
	now := time.Now().UTC()
	payment, err := h.payments.Create(ctx, domain.Payment{
		OrderID:      order.ID,
		Status:       domain.PaymentPending,
		Amount:       order.TotalPrice,
		Currency:     cmd.CurrencyCode,
		Installments: cmd.InstallmentsNumber,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, fmt.Errorf("create payment record: %w", err)
	}

	response, err := h.gateway.Submit3D(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("submit payment: %w", err)
	}

	if err := h.payments.SaveGatewayData(ctx, payment.ID, response.Raw); err != nil {
		return nil, fmt.Errorf("persist gateway response: %w", err)
	}
	payment.GatewayData = response.Raw

	return &InitiationResult{Payment: payment, Response: response}, nil
}

// itemManifest renders the JSON line-item list the gateway shows during
// authentication.
func itemManifest(items []domain.OrderItem, products map[int64]domain.Product) (string, error) {
	type manifestItem struct {
		Name        string `json:"name"`
		Price       string `json:"price"`
		Quantity    int32  `json:"quantity"`
		Description string `json:"description"`
	}

	entries := make([]manifestItem, 0, len(items))
	for _, item := range items {
		product := products[item.ProductID]
		description := product.Description
		if description == "" {
			description = product.Name
		}
		entries = append(entries, manifestItem{
			Name:        product.Name,
			Price:       item.Price.StringFixed(2),
			Quantity:    item.Quantity,
			Description: description,
		})
	}

	encoded, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("encode item manifest: %w", err)
	}
	return string(encoded), nil
}
