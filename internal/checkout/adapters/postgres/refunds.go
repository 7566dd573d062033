package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vantagecommerce/settle/internal/checkout/domain"
	"github.com/vantagecommerce/settle/internal/checkout/ports"
)

const refundColumns = `id, order_item_id, quantity, description, status, created_at, updated_at`

type RefundRepository struct {
	pool *pgxpool.Pool
}

func NewRefundRepository(pool *pgxpool.Pool) *RefundRepository {
	return &RefundRepository{pool: pool}
}

func (r *RefundRepository) Create(ctx context.Context, req domain.RefundRequest) (*domain.RefundRequest, error) {
	query := `
		INSERT INTO refund_requests (order_item_id, quantity, description, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	created := req
	err := r.pool.QueryRow(ctx, query,
		req.OrderItemID,
		req.Quantity,
		req.Description,
		req.Status,
		req.CreatedAt,
		req.UpdatedAt,
	).Scan(&created.ID)
	if err != nil {
		return nil, fmt.Errorf("insert refund request: %w", err)
	}

	return &created, nil
}

func (r *RefundRepository) GetByID(ctx context.Context, id int64) (*domain.RefundRequest, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+refundColumns+` FROM refund_requests WHERE id = $1`, id)

	req, err := scanRefund(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("refund request %d: %w", id, ports.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get refund request: %w", err)
	}
	return req, nil
}

func (r *RefundRepository) ListByOrderItem(ctx context.Context, orderItemID int64) ([]domain.RefundRequest, error) {
	query := `SELECT ` + refundColumns + ` FROM refund_requests WHERE order_item_id = $1 ORDER BY created_at`
	return r.list(ctx, query, orderItemID)
}

func (r *RefundRepository) ListByStatus(ctx context.Context, status *domain.RefundStatus) ([]domain.RefundRequest, error) {
	if status == nil {
		query := `SELECT ` + refundColumns + ` FROM refund_requests ORDER BY created_at DESC`
		return r.list(ctx, query)
	}
	query := `SELECT ` + refundColumns + ` FROM refund_requests WHERE status = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, *status)
}

// UpdateStatus claims the transition with a guarded update so a concurrent
// decision on the same request loses instead of double-applying.
func (r *RefundRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.RefundStatus) error {
	query := `
		UPDATE refund_requests
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
	`

	result, err := r.pool.Exec(ctx, query, to, id, from)
	if err != nil {
		return fmt.Errorf("update refund status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("refund request %d: %w", id, ports.ErrAlreadyProcessed)
	}
	return nil
}

func (r *RefundRepository) list(ctx context.Context, query string, args ...any) ([]domain.RefundRequest, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list refund requests: %w", err)
	}
	defer rows.Close()

	var requests []domain.RefundRequest
	for rows.Next() {
		req, err := scanRefund(rows)
		if err != nil {
			return nil, fmt.Errorf("scan refund request: %w", err)
		}
		requests = append(requests, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate refund requests: %w", err)
	}

	return requests, nil
}

func scanRefund(row pgx.Row) (*domain.RefundRequest, error) {
	var req domain.RefundRequest
	err := row.Scan(
		&req.ID,
		&req.OrderItemID,
		&req.Quantity,
		&req.Description,
		&req.Status,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}
