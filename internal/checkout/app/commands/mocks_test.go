package commands_test

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/vantagecommerce/settle/internal/checkout/domain"
	"github.com/vantagecommerce/settle/internal/checkout/ports"
)

type mockOrderRepository struct {
	createFromCartFn func(ctx context.Context, order domain.Order, cartID int64) (*domain.Order, error)
	getByIDFn        func(ctx context.Context, id int64) (*domain.Order, error)
	listByCustomerFn func(ctx context.Context, customerID int64) ([]domain.Order, error)
	getItemFn        func(ctx context.Context, orderItemID int64) (*domain.OrderItem, error)
}

func (m *mockOrderRepository) CreateFromCart(ctx context.Context, order domain.Order, cartID int64) (*domain.Order, error) {
	if m.createFromCartFn != nil {
		return m.createFromCartFn(ctx, order, cartID)
	}
	order.ID = 1
	return &order, nil
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, ports.ErrNotFound
}

func (m *mockOrderRepository) ListByCustomer(ctx context.Context, customerID int64) ([]domain.Order, error) {
	if m.listByCustomerFn != nil {
		return m.listByCustomerFn(ctx, customerID)
	}
	return nil, nil
}

func (m *mockOrderRepository) GetItem(ctx context.Context, orderItemID int64) (*domain.OrderItem, error) {
	if m.getItemFn != nil {
		return m.getItemFn(ctx, orderItemID)
	}
	return nil, ports.ErrNotFound
}

type mockPaymentRepository struct {
	createFn          func(ctx context.Context, payment domain.Payment) (*domain.Payment, error)
	getByIDFn         func(ctx context.Context, id int64) (*domain.Payment, error)
	findPendingFn     func(ctx context.Context, orderID int64) (*domain.Payment, error)
	latestCompletedFn func(ctx context.Context, orderID int64) (*domain.Payment, error)
	saveGatewayDataFn func(ctx context.Context, paymentID int64, raw json.RawMessage) error
}

func (m *mockPaymentRepository) Create(ctx context.Context, payment domain.Payment) (*domain.Payment, error) {
	if m.createFn != nil {
		return m.createFn(ctx, payment)
	}
	payment.ID = 1
	return &payment, nil
}

func (m *mockPaymentRepository) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, ports.ErrNotFound
}

func (m *mockPaymentRepository) ListByOrder(ctx context.Context, orderID int64) ([]domain.Payment, error) {
	return nil, nil
}

func (m *mockPaymentRepository) FindPending(ctx context.Context, orderID int64) (*domain.Payment, error) {
	if m.findPendingFn != nil {
		return m.findPendingFn(ctx, orderID)
	}
	return nil, ports.ErrNoPendingPayment
}

func (m *mockPaymentRepository) LatestCompleted(ctx context.Context, orderID int64) (*domain.Payment, error) {
	if m.latestCompletedFn != nil {
		return m.latestCompletedFn(ctx, orderID)
	}
	return nil, ports.ErrNotFound
}

func (m *mockPaymentRepository) SaveGatewayData(ctx context.Context, paymentID int64, raw json.RawMessage) error {
	if m.saveGatewayDataFn != nil {
		return m.saveGatewayDataFn(ctx, paymentID, raw)
	}
	return nil
}

type mockSettlementRepository struct {
	settleApprovedFn func(ctx context.Context, s ports.Settlement) error
	settleDeclinedFn func(ctx context.Context, paymentID, orderID int64, transactionID string, raw json.RawMessage) error
	reverseFn        func(ctx context.Context, r ports.Reversal) error
}

func (m *mockSettlementRepository) SettleApproved(ctx context.Context, s ports.Settlement) error {
	if m.settleApprovedFn != nil {
		return m.settleApprovedFn(ctx, s)
	}
	return nil
}

func (m *mockSettlementRepository) SettleDeclined(ctx context.Context, paymentID, orderID int64, transactionID string, raw json.RawMessage) error {
	if m.settleDeclinedFn != nil {
		return m.settleDeclinedFn(ctx, paymentID, orderID, transactionID, raw)
	}
	return nil
}

func (m *mockSettlementRepository) Reverse(ctx context.Context, r ports.Reversal) error {
	if m.reverseFn != nil {
		return m.reverseFn(ctx, r)
	}
	return nil
}

type mockCatalogRepository struct {
	getProductFn  func(ctx context.Context, id int64) (*domain.Product, error)
	getProductsFn func(ctx context.Context, ids []int64) (map[int64]domain.Product, error)
}

func (m *mockCatalogRepository) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	if m.getProductFn != nil {
		return m.getProductFn(ctx, id)
	}
	return nil, ports.ErrNotFound
}

func (m *mockCatalogRepository) GetProducts(ctx context.Context, ids []int64) (map[int64]domain.Product, error) {
	if m.getProductsFn != nil {
		return m.getProductsFn(ctx, ids)
	}
	return map[int64]domain.Product{}, nil
}

type mockCartRepository struct {
	activeCartFn func(ctx context.Context, customerID int64) (*domain.Cart, error)
}

func (m *mockCartRepository) ActiveCart(ctx context.Context, customerID int64) (*domain.Cart, error) {
	if m.activeCartFn != nil {
		return m.activeCartFn(ctx, customerID)
	}
	return nil, ports.ErrNotFound
}

type mockCustomerRepository struct {
	getCustomerFn      func(ctx context.Context, id int64) (*domain.Customer, error)
	addressBelongsToFn func(ctx context.Context, addressID, customerID int64) (bool, error)
}

func (m *mockCustomerRepository) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	if m.getCustomerFn != nil {
		return m.getCustomerFn(ctx, id)
	}
	return &domain.Customer{ID: id, FirstName: "Test", LastName: "Customer", Email: "test@example.com"}, nil
}

func (m *mockCustomerRepository) AddressBelongsTo(ctx context.Context, addressID, customerID int64) (bool, error) {
	if m.addressBelongsToFn != nil {
		return m.addressBelongsToFn(ctx, addressID, customerID)
	}
	return true, nil
}

type mockRefundRepository struct {
	createFn          func(ctx context.Context, req domain.RefundRequest) (*domain.RefundRequest, error)
	getByIDFn         func(ctx context.Context, id int64) (*domain.RefundRequest, error)
	listByOrderItemFn func(ctx context.Context, orderItemID int64) ([]domain.RefundRequest, error)
	updateStatusFn    func(ctx context.Context, id int64, from, to domain.RefundStatus) error
}

func (m *mockRefundRepository) Create(ctx context.Context, req domain.RefundRequest) (*domain.RefundRequest, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	req.ID = 1
	return &req, nil
}

func (m *mockRefundRepository) GetByID(ctx context.Context, id int64) (*domain.RefundRequest, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, ports.ErrNotFound
}

func (m *mockRefundRepository) ListByOrderItem(ctx context.Context, orderItemID int64) ([]domain.RefundRequest, error) {
	if m.listByOrderItemFn != nil {
		return m.listByOrderItemFn(ctx, orderItemID)
	}
	return nil, nil
}

func (m *mockRefundRepository) ListByStatus(ctx context.Context, status *domain.RefundStatus) ([]domain.RefundRequest, error) {
	return nil, nil
}

func (m *mockRefundRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.RefundStatus) error {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, from, to)
	}
	return nil
}

type mockGateway struct {
	submit3DFn    func(ctx context.Context, req ports.GatewayRequest) (*ports.GatewayResponse, error)
	checkStatusFn func(ctx context.Context, invoiceID string) (*ports.GatewayStatus, error)
	refundFn      func(ctx context.Context, amount decimal.Decimal, orderID int64) (*ports.GatewayResponse, error)
}

func (m *mockGateway) Submit3D(ctx context.Context, req ports.GatewayRequest) (*ports.GatewayResponse, error) {
	if m.submit3DFn != nil {
		return m.submit3DFn(ctx, req)
	}
	return &ports.GatewayResponse{Success: true, HTTPCode: 200}, nil
}

func (m *mockGateway) CheckStatus(ctx context.Context, invoiceID string) (*ports.GatewayStatus, error) {
	if m.checkStatusFn != nil {
		return m.checkStatusFn(ctx, invoiceID)
	}
	return &ports.GatewayStatus{StatusCode: ports.GatewayStatusApproved}, nil
}

func (m *mockGateway) Refund(ctx context.Context, amount decimal.Decimal, orderID int64) (*ports.GatewayResponse, error) {
	if m.refundFn != nil {
		return m.refundFn(ctx, amount, orderID)
	}
	return &ports.GatewayResponse{Success: true, HTTPCode: 200}, nil
}

type mockNotifier struct {
	sendFn func(ctx context.Context, email string, c ports.PaymentConfirmation) error
}

func (m *mockNotifier) SendPaymentConfirmation(ctx context.Context, email string, c ports.PaymentConfirmation) error {
	if m.sendFn != nil {
		return m.sendFn(ctx, email, c)
	}
	return nil
}

type mockEventBus struct {
	settledFn  func(ctx context.Context, orderID, paymentID int64) error
	failedFn   func(ctx context.Context, orderID, paymentID int64, reason string) error
	refundedFn func(ctx context.Context, orderID, paymentID int64) error
}

func (m *mockEventBus) PublishPaymentSettled(ctx context.Context, orderID, paymentID int64) error {
	if m.settledFn != nil {
		return m.settledFn(ctx, orderID, paymentID)
	}
	return nil
}

func (m *mockEventBus) PublishPaymentFailed(ctx context.Context, orderID, paymentID int64, reason string) error {
	if m.failedFn != nil {
		return m.failedFn(ctx, orderID, paymentID, reason)
	}
	return nil
}

func (m *mockEventBus) PublishPaymentRefunded(ctx context.Context, orderID, paymentID int64) error {
	if m.refundedFn != nil {
		return m.refundedFn(ctx, orderID, paymentID)
	}
	return nil
}
