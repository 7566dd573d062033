package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vantagecommerce/settle/internal/checkout/domain"
	"github.com/vantagecommerce/settle/internal/checkout/ports"
)

// Store provides an in-memory implementation of every checkout persistence
// port, useful for local development and handler tests. All adapters returned
// by its accessors share the same state and mutex.
type Store struct {
	mu sync.RWMutex

	nextID    int64
	orders    map[int64]domain.Order
	payments  map[int64]domain.Payment
	products  map[int64]domain.Product
	customers map[int64]domain.Customer
	addresses map[int64]int64 // address id -> owning customer
	carts     map[int64]domain.Cart
	refunds   map[int64]domain.RefundRequest
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{
		orders:    make(map[int64]domain.Order),
		payments:  make(map[int64]domain.Payment),
		products:  make(map[int64]domain.Product),
		customers: make(map[int64]domain.Customer),
		addresses: make(map[int64]int64),
		carts:     make(map[int64]domain.Cart),
		refunds:   make(map[int64]domain.RefundRequest),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// SeedCustomer registers a customer and returns its id.
func (s *Store) SeedCustomer(c domain.Customer) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		c.ID = s.id()
	}
	s.customers[c.ID] = c
	return c.ID
}

// SeedAddress registers an address owned by the customer and returns its id.
func (s *Store) SeedAddress(customerID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	s.addresses[id] = customerID
	return id
}

// SeedProduct registers a product and returns its id.
func (s *Store) SeedProduct(p domain.Product) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.id()
	}
	s.products[p.ID] = p
	return p.ID
}

// SeedCart installs the customer's active cart. Item unit prices are filled
// from the seeded products.
func (s *Store) SeedCart(customerID int64, items []domain.CartItem) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	for i := range items {
		items[i].ID = s.id()
		items[i].CartID = id
		if p, ok := s.products[items[i].ProductID]; ok {
			items[i].UnitPrice = p.Price
		}
	}
	s.carts[id] = domain.Cart{ID: id, CustomerID: customerID, Items: items}
	return id
}

// Product returns the current catalog entry, for stock assertions in tests.
func (s *Store) Product(id int64) (domain.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	return p, ok
}

func (s *Store) Orders() *OrderRepository          { return &OrderRepository{s} }
func (s *Store) Payments() *PaymentRepository      { return &PaymentRepository{s} }
func (s *Store) Settlement() *SettlementRepository { return &SettlementRepository{s} }
func (s *Store) Catalog() *CatalogRepository       { return &CatalogRepository{s} }
func (s *Store) Carts() *CartRepository            { return &CartRepository{s} }
func (s *Store) Customers() *CustomerRepository    { return &CustomerRepository{s} }
func (s *Store) Refunds() *RefundRepository        { return &RefundRepository{s} }

type OrderRepository struct{ s *Store }

func (r *OrderRepository) CreateFromCart(_ context.Context, order domain.Order, cartID int64) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	order.ID = r.s.id()
	for i := range order.Items {
		order.Items[i].ID = r.s.id()
		order.Items[i].OrderID = order.ID
	}
	r.s.orders[order.ID] = order

	if cart, ok := r.s.carts[cartID]; ok {
		cart.Items = nil
		r.s.carts[cartID] = cart
	}

	created := order
	return &created, nil
}

func (r *OrderRepository) GetByID(_ context.Context, id int64) (*domain.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	order, ok := r.s.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %d: %w", id, ports.ErrNotFound)
	}
	copy := order
	return &copy, nil
}

func (r *OrderRepository) ListByCustomer(_ context.Context, customerID int64) ([]domain.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []domain.Order
	for _, order := range r.s.orders {
		if order.CustomerID == customerID {
			result = append(result, order)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *OrderRepository) GetItem(_ context.Context, orderItemID int64) (*domain.OrderItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, order := range r.s.orders {
		for _, item := range order.Items {
			if item.ID == orderItemID {
				copy := item
				return &copy, nil
			}
		}
	}
	return nil, fmt.Errorf("order item %d: %w", orderItemID, ports.ErrNotFound)
}

type PaymentRepository struct{ s *Store }

func (r *PaymentRepository) Create(_ context.Context, payment domain.Payment) (*domain.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	payment.ID = r.s.id()
	r.s.payments[payment.ID] = payment
	created := payment
	return &created, nil
}

func (r *PaymentRepository) GetByID(_ context.Context, id int64) (*domain.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	payment, ok := r.s.payments[id]
	if !ok {
		return nil, fmt.Errorf("payment %d: %w", id, ports.ErrNotFound)
	}
	copy := payment
	return &copy, nil
}

func (r *PaymentRepository) ListByOrder(_ context.Context, orderID int64) ([]domain.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.byOrder(orderID, nil), nil
}

func (r *PaymentRepository) FindPending(_ context.Context, orderID int64) (*domain.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	status := domain.PaymentPending
	matches := r.s.byOrder(orderID, &status)
	if len(matches) == 0 {
		return nil, fmt.Errorf("order %d: %w", orderID, ports.ErrNoPendingPayment)
	}
	return &matches[0], nil
}

func (r *PaymentRepository) LatestCompleted(_ context.Context, orderID int64) (*domain.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	status := domain.PaymentCompleted
	matches := r.s.byOrder(orderID, &status)
	if len(matches) == 0 {
		return nil, fmt.Errorf("order %d: %w", orderID, ports.ErrNotFound)
	}
	return &matches[0], nil
}

func (r *PaymentRepository) SaveGatewayData(_ context.Context, paymentID int64, raw json.RawMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	payment, ok := r.s.payments[paymentID]
	if !ok {
		return fmt.Errorf("payment %d: %w", paymentID, ports.ErrNotFound)
	}
	payment.GatewayData = raw
	payment.UpdatedAt = time.Now().UTC()
	r.s.payments[paymentID] = payment
	return nil
}

// byOrder returns the order's payments newest first, optionally filtered by
// status. Callers hold the lock.
func (s *Store) byOrder(orderID int64, status *domain.PaymentStatus) []domain.Payment {
	var result []domain.Payment
	for _, p := range s.payments {
		if p.OrderID != orderID {
			continue
		}
		if status != nil && p.Status != *status {
			continue
		}
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

type SettlementRepository struct{ s *Store }

func (r *SettlementRepository) SettleApproved(_ context.Context, s ports.Settlement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	payment, ok := r.s.payments[s.PaymentID]
	if !ok || payment.Status != domain.PaymentPending {
		return fmt.Errorf("payment %d: %w", s.PaymentID, ports.ErrNoPendingPayment)
	}

	// validate every decrement before applying any, so a floor violation
	// leaves the store untouched
	for _, item := range s.Items {
		product, ok := r.s.products[item.ProductID]
		if !ok {
			return fmt.Errorf("product %d: %w", item.ProductID, ports.ErrNotFound)
		}
		if product.Stock < item.Quantity {
			return fmt.Errorf("product %d: %w", item.ProductID, ports.ErrInsufficientStock)
		}
	}

	now := time.Now().UTC()
	payment.Status = domain.PaymentCompleted
	if s.TransactionID != "" {
		txn := s.TransactionID
		payment.TransactionID = &txn
	}
	payment.GatewayData = s.GatewayData
	payment.UpdatedAt = now
	r.s.payments[s.PaymentID] = payment

	if order, ok := r.s.orders[s.OrderID]; ok {
		order.Status = domain.OrderPaid
		order.UpdatedAt = now
		r.s.orders[s.OrderID] = order
	}

	for _, item := range s.Items {
		product := r.s.products[item.ProductID]
		product.Stock -= item.Quantity
		r.s.products[item.ProductID] = product
	}

	for id, cart := range r.s.carts {
		if cart.CustomerID == s.CustomerID {
			cart.Items = nil
			r.s.carts[id] = cart
		}
	}

	return nil
}

func (r *SettlementRepository) SettleDeclined(_ context.Context, paymentID, orderID int64, transactionID string, raw json.RawMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	payment, ok := r.s.payments[paymentID]
	if !ok || payment.Status != domain.PaymentPending {
		return fmt.Errorf("payment %d: %w", paymentID, ports.ErrNoPendingPayment)
	}

	now := time.Now().UTC()
	payment.Status = domain.PaymentFailed
	if transactionID != "" {
		txn := transactionID
		payment.TransactionID = &txn
	}
	payment.GatewayData = raw
	payment.UpdatedAt = now
	r.s.payments[paymentID] = payment

	if order, ok := r.s.orders[orderID]; ok {
		order.Status = domain.OrderCancelled
		order.UpdatedAt = now
		r.s.orders[orderID] = order
	}

	return nil
}

func (r *SettlementRepository) Reverse(_ context.Context, rev ports.Reversal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	payment, ok := r.s.payments[rev.PaymentID]
	if !ok || payment.Status != domain.PaymentCompleted {
		return fmt.Errorf("payment %d: %w", rev.PaymentID, ports.ErrNoPendingPayment)
	}

	now := time.Now().UTC()
	payment.Status = domain.PaymentRefunded
	payment.GatewayData = rev.GatewayData
	payment.UpdatedAt = now
	r.s.payments[rev.PaymentID] = payment

	if order, ok := r.s.orders[rev.OrderID]; ok {
		order.Status = domain.OrderRefunded
		order.UpdatedAt = now
		r.s.orders[rev.OrderID] = order
	}

	for _, item := range rev.Items {
		if product, ok := r.s.products[item.ProductID]; ok {
			product.Stock += item.Quantity
			r.s.products[item.ProductID] = product
		}
	}

	return nil
}

type CatalogRepository struct{ s *Store }

func (r *CatalogRepository) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	product, ok := r.s.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, ports.ErrNotFound)
	}
	copy := product
	return &copy, nil
}

func (r *CatalogRepository) GetProducts(_ context.Context, ids []int64) (map[int64]domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	products := make(map[int64]domain.Product, len(ids))
	for _, id := range ids {
		if product, ok := r.s.products[id]; ok {
			products[id] = product
		}
	}
	return products, nil
}

type CartRepository struct{ s *Store }

func (r *CartRepository) ActiveCart(_ context.Context, customerID int64) (*domain.Cart, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, cart := range r.s.carts {
		if cart.CustomerID == customerID {
			copy := cart
			copy.Items = append([]domain.CartItem(nil), cart.Items...)
			return &copy, nil
		}
	}
	return nil, fmt.Errorf("cart for customer %d: %w", customerID, ports.ErrNotFound)
}

type CustomerRepository struct{ s *Store }

func (r *CustomerRepository) GetCustomer(_ context.Context, id int64) (*domain.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	customer, ok := r.s.customers[id]
	if !ok {
		return nil, fmt.Errorf("customer %d: %w", id, ports.ErrNotFound)
	}
	copy := customer
	return &copy, nil
}

func (r *CustomerRepository) AddressBelongsTo(_ context.Context, addressID, customerID int64) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	owner, ok := r.s.addresses[addressID]
	return ok && owner == customerID, nil
}

type RefundRepository struct{ s *Store }

func (r *RefundRepository) Create(_ context.Context, req domain.RefundRequest) (*domain.RefundRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req.ID = r.s.id()
	r.s.refunds[req.ID] = req
	created := req
	return &created, nil
}

func (r *RefundRepository) GetByID(_ context.Context, id int64) (*domain.RefundRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	req, ok := r.s.refunds[id]
	if !ok {
		return nil, fmt.Errorf("refund request %d: %w", id, ports.ErrNotFound)
	}
	copy := req
	return &copy, nil
}

func (r *RefundRepository) ListByOrderItem(_ context.Context, orderItemID int64) ([]domain.RefundRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []domain.RefundRequest
	for _, req := range r.s.refunds {
		if req.OrderItemID == orderItemID {
			result = append(result, req)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *RefundRepository) ListByStatus(_ context.Context, status *domain.RefundStatus) ([]domain.RefundRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []domain.RefundRequest
	for _, req := range r.s.refunds {
		if status != nil && req.Status != *status {
			continue
		}
		result = append(result, req)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *RefundRepository) UpdateStatus(_ context.Context, id int64, from, to domain.RefundStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	req, ok := r.s.refunds[id]
	if !ok {
		return fmt.Errorf("refund request %d: %w", id, ports.ErrNotFound)
	}
	if req.Status != from {
		return fmt.Errorf("refund request %d: %w", id, ports.ErrAlreadyProcessed)
	}
	req.Status = to
	req.UpdatedAt = time.Now().UTC()
	r.s.refunds[id] = req
	return nil
}
