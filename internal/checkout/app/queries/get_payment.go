package queries

import (
	"context"
	"errors"

	"github.com/vantagecommerce/settle/internal/checkout/domain"
	"github.com/vantagecommerce/settle/internal/checkout/ports"
)

// GetPaymentQuery retrieves a single settlement attempt.
type GetPaymentQuery struct {
	PaymentID int64
}

func (q GetPaymentQuery) Validate() error {
	if q.PaymentID <= 0 {
		return errors.New("payment_id is required")
	}
	return nil
}

type GetPaymentQueryHandler struct {
	repo ports.PaymentRepository
}

func NewGetPaymentQueryHandler(repo ports.PaymentRepository) *GetPaymentQueryHandler {
	return &GetPaymentQueryHandler{repo: repo}
}

func (h *GetPaymentQueryHandler) Handle(ctx context.Context, query GetPaymentQuery) (*domain.Payment, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	return h.repo.GetByID(ctx, query.PaymentID)
}

// ListPaymentsQuery lists all settlement attempts for an order, newest first.
type ListPaymentsQuery struct {
	OrderID int64
}

func (q ListPaymentsQuery) Validate() error {
	if q.OrderID <= 0 {
		return errors.New("order_id is required")
	}
	return nil
}

type ListPaymentsQueryHandler struct {
	repo ports.PaymentRepository
}

func NewListPaymentsQueryHandler(repo ports.PaymentRepository) *ListPaymentsQueryHandler {
	return &ListPaymentsQueryHandler{repo: repo}
}

func (h *ListPaymentsQueryHandler) Handle(ctx context.Context, query ListPaymentsQuery) ([]domain.Payment, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	return h.repo.ListByOrder(ctx, query.OrderID)
}
