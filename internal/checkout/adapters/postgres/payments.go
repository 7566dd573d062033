package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vantagecommerce/settle/internal/checkout/domain"
	"github.com/vantagecommerce/settle/internal/checkout/ports"
)

const paymentColumns = `id, order_id, status, amount, currency, installments, transaction_id, gateway_data, created_at, updated_at`

type PaymentRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

func (r *PaymentRepository) Create(ctx context.Context, payment domain.Payment) (*domain.Payment, error) {
	query := `
		INSERT INTO payments (order_id, status, amount, currency, installments, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	created := payment
	err := r.pool.QueryRow(ctx, query,
		payment.OrderID,
		payment.Status,
		payment.Amount,
		payment.Currency,
		payment.Installments,
		payment.CreatedAt,
		payment.UpdatedAt,
	).Scan(&created.ID)
	if err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}

	return &created, nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	payment, err := scanPayment(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("payment %d: %w", id, ports.ErrNotFound)
		}
		return nil, fmt.Errorf("select payment: %w", err)
	}

	return payment, nil
}

func (r *PaymentRepository) ListByOrder(ctx context.Context, orderID int64) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1 ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, *payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}

	return payments, nil
}

func (r *PaymentRepository) FindPending(ctx context.Context, orderID int64) (*domain.Payment, error) {
	payment, err := r.latestByStatus(ctx, orderID, domain.PaymentPending)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %d: %w", orderID, ports.ErrNoPendingPayment)
		}
		return nil, fmt.Errorf("select pending payment: %w", err)
	}
	return payment, nil
}

func (r *PaymentRepository) LatestCompleted(ctx context.Context, orderID int64) (*domain.Payment, error) {
	payment, err := r.latestByStatus(ctx, orderID, domain.PaymentCompleted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("completed payment for order %d: %w", orderID, ports.ErrNotFound)
		}
		return nil, fmt.Errorf("select completed payment: %w", err)
	}
	return payment, nil
}

func (r *PaymentRepository) SaveGatewayData(ctx context.Context, paymentID int64, raw json.RawMessage) error {
	query := `UPDATE payments SET gateway_data = $1, updated_at = now() WHERE id = $2`

	result, err := r.pool.Exec(ctx, query, raw, paymentID)
	if err != nil {
		return fmt.Errorf("update gateway data: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("payment %d: %w", paymentID, ports.ErrNotFound)
	}

	return nil
}

func (r *PaymentRepository) latestByStatus(ctx context.Context, orderID int64, status domain.PaymentStatus) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1 AND status = $2 ORDER BY created_at DESC, id DESC LIMIT 1`
	return scanPayment(r.pool.QueryRow(ctx, query, orderID, status))
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var payment domain.Payment
	err := row.Scan(
		&payment.ID,
		&payment.OrderID,
		&payment.Status,
		&payment.Amount,
		&payment.Currency,
		&payment.Installments,
		&payment.TransactionID,
		&payment.GatewayData,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}
