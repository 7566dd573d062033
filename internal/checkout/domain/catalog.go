package domain

import "github.com/shopspring/decimal"

// Product is the slice of the catalog this engine consumes: live price for
// cart snapshots and the mutable stock counter adjusted at settlement and
// refund time.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int32           `json:"stock"`
}

// Customer carries the fields the gateway request and the confirmation mail
// need. Identity management lives upstream.
type Customer struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// Cart is consumed transiently by order assembly: read once, cleared on
// order creation, never referenced afterwards.
type Cart struct {
	ID         int64      `json:"id"`
	CustomerID int64      `json:"customer_id"`
	Items      []CartItem `json:"items"`
}

// CartItem references a product with the quantity the customer picked. The
// unit price reflects the live catalog price at read time.
type CartItem struct {
	ID        int64           `json:"id"`
	CartID    int64           `json:"cart_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int32           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}
