package domain

import "time"

// RefundStatus captures the lifecycle of a refund request.
type RefundStatus string

const (
	RefundPending   RefundStatus = "PENDING"
	RefundApproved  RefundStatus = "APPROVED"
	RefundRejected  RefundStatus = "REJECTED"
	RefundCompleted RefundStatus = "COMPLETED"
)

// RefundRequest is a (possibly partial) reversal intent against one order
// item. The sum of quantities across non-REJECTED requests for an item never
// exceeds the ordered quantity.
type RefundRequest struct {
	ID          int64        `json:"id"`
	OrderItemID int64        `json:"order_item_id"`
	Quantity    int32        `json:"quantity"`
	Description string       `json:"description,omitempty"`
	Status      RefundStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Decided indicates whether the request has left the PENDING state.
func (r RefundRequest) Decided() bool {
	return r.Status != RefundPending
}
