//go:build integration

package postgres_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	testpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/vantagecommerce/settle/internal/checkout/adapters/postgres"
	"github.com/vantagecommerce/settle/internal/checkout/domain"
	"github.com/vantagecommerce/settle/internal/checkout/ports"
	"github.com/vantagecommerce/settle/internal/database"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := testpostgres.Run(ctx,
		"postgres:16-alpine",
		testpostgres.WithDatabase("test"),
		testpostgres.WithUsername("test"),
		testpostgres.WithPassword("test"),
		testpostgres.BasicWaitStrategies(),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	projectRoot := findProjectRoot(t)
	migrationsPath := filepath.Join(projectRoot, "migrations")

	if err := database.RunMigrations(connStr, migrationsPath); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	pool, err := database.NewPool(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
	})

	return pool
}

func findProjectRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// fixture holds the IDs of a seeded customer with an address, a stocked
// product and a one-item cart.
type fixture struct {
	customerID int64
	addressID  int64
	productID  int64
	cartID     int64
}

func seedCheckout(t *testing.T, pool *pgxpool.Pool, stock int32, quantity int32) fixture {
	t.Helper()
	ctx := context.Background()

	var f fixture
	err := pool.QueryRow(ctx,
		`INSERT INTO customers (first_name, last_name, email) VALUES ('Ada', 'Lovelace', 'ada@example.com') RETURNING id`,
	).Scan(&f.customerID)
	if err != nil {
		t.Fatalf("failed to seed customer: %v", err)
	}

	err = pool.QueryRow(ctx,
		`INSERT INTO addresses (customer_id, line1, city, country) VALUES ($1, '1 Main St', 'London', 'UK') RETURNING id`,
		f.customerID,
	).Scan(&f.addressID)
	if err != nil {
		t.Fatalf("failed to seed address: %v", err)
	}

	err = pool.QueryRow(ctx,
		`INSERT INTO products (name, price, stock) VALUES ('Widget', 19.99, $1) RETURNING id`,
		stock,
	).Scan(&f.productID)
	if err != nil {
		t.Fatalf("failed to seed product: %v", err)
	}

	err = pool.QueryRow(ctx,
		`INSERT INTO carts (customer_id) VALUES ($1) RETURNING id`,
		f.customerID,
	).Scan(&f.cartID)
	if err != nil {
		t.Fatalf("failed to seed cart: %v", err)
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO cart_items (cart_id, product_id, quantity) VALUES ($1, $2, $3)`,
		f.cartID, f.productID, quantity,
	)
	if err != nil {
		t.Fatalf("failed to seed cart item: %v", err)
	}

	return f
}

func createOrder(t *testing.T, repos *postgres.Repositories, f fixture, quantity int32) *domain.Order {
	t.Helper()
	ctx := context.Background()

	price := decimal.RequireFromString("19.99")
	now := time.Now().UTC()
	order := domain.Order{
		CustomerID: f.customerID,
		AddressID:  f.addressID,
		Status:     domain.OrderPending,
		TotalPrice: price.Mul(decimal.NewFromInt32(quantity)),
		Items: []domain.OrderItem{
			{ProductID: f.productID, Quantity: quantity, Price: price},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := repos.Orders.CreateFromCart(ctx, order, f.cartID)
	if err != nil {
		t.Fatalf("failed to create order: %v", err)
	}
	return created
}

func createPendingPayment(t *testing.T, repos *postgres.Repositories, order *domain.Order) *domain.Payment {
	t.Helper()
	ctx := context.Background()

	now := time.Now().UTC()
	payment, err := repos.Payments.Create(ctx, domain.Payment{
		OrderID:      order.ID,
		Status:       domain.PaymentPending,
		Amount:       order.TotalPrice,
		Currency:     "TRY",
		Installments: 1,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("failed to create payment: %v", err)
	}
	return payment
}

func TestOrderRepositoryCreateFromCart(t *testing.T) {
	pool := setupTestDB(t)
	repos := postgres.NewRepositories(pool)
	ctx := context.Background()

	f := seedCheckout(t, pool, 10, 2)
	created := createOrder(t, repos, f, 2)

	if created.ID == 0 {
		t.Fatal("expected order to be assigned an id")
	}
	if len(created.Items) != 1 || created.Items[0].ID == 0 {
		t.Fatalf("expected one persisted item, got %+v", created.Items)
	}

	retrieved, err := repos.Orders.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("failed to retrieve order: %v", err)
	}
	if retrieved.Status != domain.OrderPending {
		t.Errorf("expected status PENDING, got %s", retrieved.Status)
	}
	if !retrieved.TotalPrice.Equal(decimal.RequireFromString("39.98")) {
		t.Errorf("expected total 39.98, got %s", retrieved.TotalPrice)
	}

	cart, err := repos.Carts.ActiveCart(ctx, f.customerID)
	if err != nil {
		t.Fatalf("failed to read cart: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Errorf("expected cart items to be cleared, got %d", len(cart.Items))
	}
}

func TestOrderRepositoryGetByID_NotFound(t *testing.T) {
	pool := setupTestDB(t)
	repos := postgres.NewRepositories(pool)

	_, err := repos.Orders.GetByID(context.Background(), 999)
	if !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSettlementSettleApproved(t *testing.T) {
	pool := setupTestDB(t)
	repos := postgres.NewRepositories(pool)
	ctx := context.Background()

	f := seedCheckout(t, pool, 10, 2)
	order := createOrder(t, repos, f, 2)
	payment := createPendingPayment(t, repos, order)

	// re-add a cart item so the settle path has something to clear
	if _, err := pool.Exec(ctx,
		`INSERT INTO cart_items (cart_id, product_id, quantity) VALUES ($1, $2, 1)`,
		f.cartID, f.productID,
	); err != nil {
		t.Fatalf("failed to re-seed cart item: %v", err)
	}

	settlement := ports.Settlement{
		PaymentID:     payment.ID,
		OrderID:       order.ID,
		CustomerID:    f.customerID,
		TransactionID: "txn-123",
		GatewayData:   json.RawMessage(`{"status_code":100}`),
		Items:         order.Items,
	}

	if err := repos.Settlement.SettleApproved(ctx, settlement); err != nil {
		t.Fatalf("failed to settle: %v", err)
	}

	settled, err := repos.Payments.GetByID(ctx, payment.ID)
	if err != nil {
		t.Fatalf("failed to read payment: %v", err)
	}
	if settled.Status != domain.PaymentCompleted {
		t.Errorf("expected payment COMPLETED, got %s", settled.Status)
	}
	if settled.TransactionID == nil || *settled.TransactionID != "txn-123" {
		t.Errorf("expected transaction id txn-123, got %v", settled.TransactionID)
	}

	paid, err := repos.Orders.GetByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("failed to read order: %v", err)
	}
	if paid.Status != domain.OrderPaid {
		t.Errorf("expected order PAID, got %s", paid.Status)
	}

	product, err := repos.Catalog.GetProduct(ctx, f.productID)
	if err != nil {
		t.Fatalf("failed to read product: %v", err)
	}
	if product.Stock != 8 {
		t.Errorf("expected stock 8 after settling 2 units, got %d", product.Stock)
	}

	cart, err := repos.Carts.ActiveCart(ctx, f.customerID)
	if err != nil {
		t.Fatalf("failed to read cart: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Errorf("expected cart cleared by settlement, got %d items", len(cart.Items))
	}

	// second claim on the same payment must lose
	err = repos.Settlement.SettleApproved(ctx, settlement)
	if !errors.Is(err, ports.ErrNoPendingPayment) {
		t.Errorf("expected ErrNoPendingPayment on repeated settle, got %v", err)
	}
}

func TestSettlementSettleApproved_InsufficientStock(t *testing.T) {
	pool := setupTestDB(t)
	repos := postgres.NewRepositories(pool)
	ctx := context.Background()

	f := seedCheckout(t, pool, 1, 2)
	order := createOrder(t, repos, f, 2)
	payment := createPendingPayment(t, repos, order)

	settlement := ports.Settlement{
		PaymentID:     payment.ID,
		OrderID:       order.ID,
		CustomerID:    f.customerID,
		TransactionID: "txn-456",
		Items:         order.Items,
	}

	err := repos.Settlement.SettleApproved(ctx, settlement)
	if !errors.Is(err, ports.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	// the transaction must roll back: payment still claimable, stock intact
	unchanged, err := repos.Payments.GetByID(ctx, payment.ID)
	if err != nil {
		t.Fatalf("failed to read payment: %v", err)
	}
	if unchanged.Status != domain.PaymentPending {
		t.Errorf("expected payment to stay PENDING, got %s", unchanged.Status)
	}

	product, err := repos.Catalog.GetProduct(ctx, f.productID)
	if err != nil {
		t.Fatalf("failed to read product: %v", err)
	}
	if product.Stock != 1 {
		t.Errorf("expected stock untouched at 1, got %d", product.Stock)
	}
}

func TestSettlementSettleDeclined(t *testing.T) {
	pool := setupTestDB(t)
	repos := postgres.NewRepositories(pool)
	ctx := context.Background()

	f := seedCheckout(t, pool, 5, 1)
	order := createOrder(t, repos, f, 1)
	payment := createPendingPayment(t, repos, order)

	raw := json.RawMessage(`{"status_code":41}`)
	if err := repos.Settlement.SettleDeclined(ctx, payment.ID, order.ID, "txn-789", raw); err != nil {
		t.Fatalf("failed to settle declined: %v", err)
	}

	failed, err := repos.Payments.GetByID(ctx, payment.ID)
	if err != nil {
		t.Fatalf("failed to read payment: %v", err)
	}
	if failed.Status != domain.PaymentFailed {
		t.Errorf("expected payment FAILED, got %s", failed.Status)
	}

	cancelled, err := repos.Orders.GetByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("failed to read order: %v", err)
	}
	if cancelled.Status != domain.OrderCancelled {
		t.Errorf("expected order CANCELLED, got %s", cancelled.Status)
	}

	product, err := repos.Catalog.GetProduct(ctx, f.productID)
	if err != nil {
		t.Fatalf("failed to read product: %v", err)
	}
	if product.Stock != 5 {
		t.Errorf("expected stock untouched on decline, got %d", product.Stock)
	}
}

func TestSettlementReverse(t *testing.T) {
	pool := setupTestDB(t)
	repos := postgres.NewRepositories(pool)
	ctx := context.Background()

	f := seedCheckout(t, pool, 10, 3)
	order := createOrder(t, repos, f, 3)
	payment := createPendingPayment(t, repos, order)

	settlement := ports.Settlement{
		PaymentID:     payment.ID,
		OrderID:       order.ID,
		CustomerID:    f.customerID,
		TransactionID: "txn-rev",
		Items:         order.Items,
	}
	if err := repos.Settlement.SettleApproved(ctx, settlement); err != nil {
		t.Fatalf("failed to settle: %v", err)
	}

	reversal := ports.Reversal{
		PaymentID:   payment.ID,
		OrderID:     order.ID,
		GatewayData: json.RawMessage(`{"refund":true}`),
		Items:       order.Items,
	}
	if err := repos.Settlement.Reverse(ctx, reversal); err != nil {
		t.Fatalf("failed to reverse: %v", err)
	}

	refunded, err := repos.Payments.GetByID(ctx, payment.ID)
	if err != nil {
		t.Fatalf("failed to read payment: %v", err)
	}
	if refunded.Status != domain.PaymentRefunded {
		t.Errorf("expected payment REFUNDED, got %s", refunded.Status)
	}

	reversedOrder, err := repos.Orders.GetByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("failed to read order: %v", err)
	}
	if reversedOrder.Status != domain.OrderRefunded {
		t.Errorf("expected order REFUNDED, got %s", reversedOrder.Status)
	}

	product, err := repos.Catalog.GetProduct(ctx, f.productID)
	if err != nil {
		t.Fatalf("failed to read product: %v", err)
	}
	if product.Stock != 10 {
		t.Errorf("expected stock restored to 10, got %d", product.Stock)
	}
}

func TestPaymentRepositoryFindPending(t *testing.T) {
	pool := setupTestDB(t)
	repos := postgres.NewRepositories(pool)
	ctx := context.Background()

	f := seedCheckout(t, pool, 5, 1)
	order := createOrder(t, repos, f, 1)

	_, err := repos.Payments.FindPending(ctx, order.ID)
	if !errors.Is(err, ports.ErrNoPendingPayment) {
		t.Fatalf("expected ErrNoPendingPayment before creating one, got %v", err)
	}

	payment := createPendingPayment(t, repos, order)

	found, err := repos.Payments.FindPending(ctx, order.ID)
	if err != nil {
		t.Fatalf("failed to find pending payment: %v", err)
	}
	if found.ID != payment.ID {
		t.Errorf("expected payment %d, got %d", payment.ID, found.ID)
	}
}

func TestRefundRepositoryUpdateStatus(t *testing.T) {
	pool := setupTestDB(t)
	repos := postgres.NewRepositories(pool)
	ctx := context.Background()

	f := seedCheckout(t, pool, 5, 2)
	order := createOrder(t, repos, f, 2)

	now := time.Now().UTC()
	req, err := repos.Refunds.Create(ctx, domain.RefundRequest{
		OrderItemID: order.Items[0].ID,
		Quantity:    1,
		Description: "damaged on arrival",
		Status:      domain.RefundPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("failed to create refund request: %v", err)
	}

	if err := repos.Refunds.UpdateStatus(ctx, req.ID, domain.RefundPending, domain.RefundApproved); err != nil {
		t.Fatalf("failed to approve request: %v", err)
	}

	err = repos.Refunds.UpdateStatus(ctx, req.ID, domain.RefundPending, domain.RefundRejected)
	if !errors.Is(err, ports.ErrAlreadyProcessed) {
		t.Errorf("expected ErrAlreadyProcessed on second decision, got %v", err)
	}

	pending := domain.RefundPending
	remaining, err := repos.Refunds.ListByStatus(ctx, &pending)
	if err != nil {
		t.Fatalf("failed to list requests: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("expected no pending requests, got %d", len(remaining))
	}
}

func TestCustomerRepositoryAddressBelongsTo(t *testing.T) {
	pool := setupTestDB(t)
	repos := postgres.NewRepositories(pool)
	ctx := context.Background()

	f := seedCheckout(t, pool, 1, 1)

	owned, err := repos.Customers.AddressBelongsTo(ctx, f.addressID, f.customerID)
	if err != nil {
		t.Fatalf("failed to check ownership: %v", err)
	}
	if !owned {
		t.Error("expected address to belong to its customer")
	}

	owned, err = repos.Customers.AddressBelongsTo(ctx, f.addressID, f.customerID+1)
	if err != nil {
		t.Fatalf("failed to check ownership: %v", err)
	}
	if owned {
		t.Error("expected address not to belong to another customer")
	}
}
