package app

import (
	"context"
	"log/slog"

	"github.com/vantagecommerce/settle/internal/checkout/app/commands"
	"github.com/vantagecommerce/settle/internal/checkout/app/queries"
	"github.com/vantagecommerce/settle/internal/checkout/domain"
	"github.com/vantagecommerce/settle/internal/checkout/metrics"
	"github.com/vantagecommerce/settle/internal/checkout/ports"
)

// Repositories groups the persistence ports the service depends on.
type Repositories struct {
	Orders     ports.OrderRepository
	Payments   ports.PaymentRepository
	Settlement ports.SettlementRepository
	Catalog    ports.CatalogRepository
	Carts      ports.CartRepository
	Customers  ports.CustomerRepository
	Refunds    ports.RefundRepository
}

// Service bundles the settlement engine's use cases behind one facade.
type Service struct {
	repos Repositories

	createOrder   *commands.CreateOrderHandler
	initiate      commands.InitiateHandler
	settle        commands.SettleHandler
	refundPayment commands.RefundHandler
	requestRefund *commands.RequestRefundHandler
	decideRefund  *commands.UpdateRefundStatusHandler
	getOrder      *queries.GetOrderQueryHandler
	getPayment    *queries.GetPaymentQueryHandler
	listPayments  *queries.ListPaymentsQueryHandler
}

// NewService wires required dependencies.
func NewService(
	repos Repositories,
	gateway ports.PaymentGateway,
	notifier ports.Notifier,
	events ports.EventBus,
	urls commands.CallbackURLs,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Service {
	settleHandler := commands.NewSettlePaymentHandler(
		repos.Orders, repos.Payments, repos.Settlement, repos.Customers,
		gateway, notifier, events, logger,
	)
	refundHandler := commands.NewObservableRefundHandler(
		commands.NewRefundPaymentHandler(
			repos.Orders, repos.Payments, repos.Settlement, gateway, events, logger,
		),
		logger, m,
	)

	return &Service{
		repos:       repos,
		createOrder: commands.NewCreateOrderHandler(repos.Orders, repos.Carts, repos.Catalog, repos.Customers),
		initiate: commands.NewObservableInitiateHandler(
			commands.NewInitiatePaymentHandler(
				repos.Orders, repos.Payments, repos.Catalog, repos.Customers, gateway, urls,
			),
			logger, m,
		),
		settle:        commands.NewObservableSettleHandler(settleHandler, logger, m),
		refundPayment: refundHandler,
		requestRefund: commands.NewRequestRefundHandler(repos.Orders, repos.Refunds),
		decideRefund: commands.NewUpdateRefundStatusHandler(
			repos.Orders, repos.Payments, repos.Refunds, refundHandler,
		),
		getOrder:     queries.NewGetOrderQueryHandler(repos.Orders),
		getPayment:   queries.NewGetPaymentQueryHandler(repos.Payments),
		listPayments: queries.NewListPaymentsQueryHandler(repos.Payments),
	}
}

// CreateOrder assembles the customer's cart into a priced order.
func (s *Service) CreateOrder(ctx context.Context, customerID, addressID int64) (*domain.Order, error) {
	return s.createOrder.Handle(ctx, commands.CreateOrderCommand{
		CustomerID: customerID,
		AddressID:  addressID,
	})
}

// InitiatePayment starts a 3-D settlement attempt.
func (s *Service) InitiatePayment(ctx context.Context, cmd commands.InitiatePaymentCommand) (*commands.InitiationResult, error) {
	return s.initiate.Handle(ctx, cmd)
}

// SettlePayment reconciles a gateway callback against the authoritative
// status check.
func (s *Service) SettlePayment(ctx context.Context, invoiceID, transactionID string) (*commands.SettlementResult, error) {
	return s.settle.Handle(ctx, commands.SettlePaymentCommand{
		InvoiceID:     invoiceID,
		TransactionID: transactionID,
	})
}

// RefundPayment reverses a completed settlement by payment id.
func (s *Service) RefundPayment(ctx context.Context, paymentID int64) (*ports.GatewayResponse, error) {
	return s.refundPayment.Handle(ctx, commands.RefundPaymentCommand{PaymentID: paymentID})
}

// RequestRefund records a customer's (possibly partial) reversal intent.
func (s *Service) RequestRefund(ctx context.Context, cmd commands.RequestRefundCommand) (*domain.RefundRequest, error) {
	return s.requestRefund.Handle(ctx, cmd)
}

// DecideRefund approves or rejects a pending refund request.
func (s *Service) DecideRefund(ctx context.Context, id int64, status domain.RefundStatus) (*domain.RefundRequest, error) {
	return s.decideRefund.Handle(ctx, commands.UpdateRefundStatusCommand{
		RefundRequestID: id,
		Status:          status,
	})
}

// GetOrder retrieves an order scoped to the requesting customer.
func (s *Service) GetOrder(ctx context.Context, orderID, customerID int64) (*domain.Order, error) {
	return s.getOrder.Handle(ctx, queries.GetOrderQuery{OrderID: orderID, CustomerID: customerID})
}

// ListOrders returns the customer's orders, newest first.
func (s *Service) ListOrders(ctx context.Context, customerID int64) ([]domain.Order, error) {
	return s.repos.Orders.ListByCustomer(ctx, customerID)
}

// GetPayment retrieves a settlement attempt by id.
func (s *Service) GetPayment(ctx context.Context, paymentID int64) (*domain.Payment, error) {
	return s.getPayment.Handle(ctx, queries.GetPaymentQuery{PaymentID: paymentID})
}

// ListPayments returns all settlement attempts for an order.
func (s *Service) ListPayments(ctx context.Context, orderID int64) ([]domain.Payment, error) {
	return s.listPayments.Handle(ctx, queries.ListPaymentsQuery{OrderID: orderID})
}

// ListRefunds returns refund requests, optionally filtered by status.
func (s *Service) ListRefunds(ctx context.Context, status *domain.RefundStatus) ([]domain.RefundRequest, error) {
	return s.repos.Refunds.ListByStatus(ctx, status)
}
