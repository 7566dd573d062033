package ports

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/vantagecommerce/settle/internal/checkout/domain"
)

var (
	// ErrNotFound is returned when the requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the entity is not owned by the caller.
	ErrForbidden = errors.New("forbidden")
	// ErrEmptyCart is returned when order assembly finds no items to price.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInsufficientStock is returned when a decrement would drive stock negative.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrNoPendingPayment is returned when settlement finds no payment to claim.
	ErrNoPendingPayment = errors.New("no pending payment for order")
	// ErrAlreadyProcessed is returned when a decided refund request is re-processed.
	ErrAlreadyProcessed = errors.New("refund request already processed")
)

// OrderRepository persists orders and their immutable line items.
type OrderRepository interface {
	// CreateFromCart inserts the order with its items and deletes the cart's
	// items in a single transaction.
	CreateFromCart(ctx context.Context, order domain.Order, cartID int64) (*domain.Order, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]domain.Order, error)
	GetItem(ctx context.Context, orderItemID int64) (*domain.OrderItem, error)
}

// PaymentRepository persists settlement attempts. Rows are append-only apart
// from status transitions and the raw gateway response blob.
type PaymentRepository interface {
	Create(ctx context.Context, payment domain.Payment) (*domain.Payment, error)
	GetByID(ctx context.Context, id int64) (*domain.Payment, error)
	ListByOrder(ctx context.Context, orderID int64) ([]domain.Payment, error)
	// FindPending returns the payment currently awaiting reconciliation for the
	// order, or ErrNoPendingPayment.
	FindPending(ctx context.Context, orderID int64) (*domain.Payment, error)
	// LatestCompleted returns the most recent COMPLETED payment for the order,
	// or ErrNotFound.
	LatestCompleted(ctx context.Context, orderID int64) (*domain.Payment, error)
	SaveGatewayData(ctx context.Context, paymentID int64, raw json.RawMessage) error
}

// Settlement carries everything the approved-path transaction mutates.
type Settlement struct {
	PaymentID     int64
	OrderID       int64
	CustomerID    int64
	TransactionID string
	GatewayData   json.RawMessage
	Items         []domain.OrderItem
}

// Reversal carries everything the refund transaction mutates.
type Reversal struct {
	PaymentID   int64
	OrderID     int64
	GatewayData json.RawMessage
	Items       []domain.OrderItem
}

// SettlementRepository owns the multi-entity state transitions. Each method
// runs as one transaction: partial application is prevented by the store, not
// by compensation logic.
type SettlementRepository interface {
	// SettleApproved claims the PENDING payment (ErrNoPendingPayment when a
	// concurrent call already did), marks it COMPLETED, marks the order PAID,
	// decrements stock for every item with a floor check and clears the
	// customer's cart items.
	SettleApproved(ctx context.Context, s Settlement) error
	// SettleDeclined marks the payment FAILED and the order CANCELLED. Stock
	// and cart are untouched.
	SettleDeclined(ctx context.Context, paymentID, orderID int64, transactionID string, raw json.RawMessage) error
	// Reverse marks the payment REFUNDED, the order REFUNDED and increments
	// stock for every item.
	Reverse(ctx context.Context, r Reversal) error
}

// CatalogRepository exposes the catalog reads this engine needs. Stock
// mutation happens only inside settlement transactions.
type CatalogRepository interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	GetProducts(ctx context.Context, ids []int64) (map[int64]domain.Product, error)
}

// CartRepository reads the customer's active cart for order assembly.
type CartRepository interface {
	ActiveCart(ctx context.Context, customerID int64) (*domain.Cart, error)
}

// CustomerRepository reads customer identity and address ownership.
type CustomerRepository interface {
	GetCustomer(ctx context.Context, id int64) (*domain.Customer, error)
	AddressBelongsTo(ctx context.Context, addressID, customerID int64) (bool, error)
}

// RefundRepository persists refund requests.
type RefundRepository interface {
	Create(ctx context.Context, req domain.RefundRequest) (*domain.RefundRequest, error)
	GetByID(ctx context.Context, id int64) (*domain.RefundRequest, error)
	ListByOrderItem(ctx context.Context, orderItemID int64) ([]domain.RefundRequest, error)
	ListByStatus(ctx context.Context, status *domain.RefundStatus) ([]domain.RefundRequest, error)
	// UpdateStatus transitions a request out of PENDING; it returns
	// ErrAlreadyProcessed when the request was already decided.
	UpdateStatus(ctx context.Context, id int64, from, to domain.RefundStatus) error
}

// RefundableQuantity sums non-REJECTED request quantities for an order item.
func RefundableQuantity(requests []domain.RefundRequest) int32 {
	var total int32
	for _, r := range requests {
		if r.Status != domain.RefundRejected {
			total += r.Quantity
		}
	}
	return total
}
