package commands_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vantagecommerce/settle/internal/checkout/app/commands"
	"github.com/vantagecommerce/settle/internal/checkout/domain"
	"github.com/vantagecommerce/settle/internal/checkout/ports"
)

func cartWith(items ...domain.CartItem) *mockCartRepository {
	return &mockCartRepository{
		activeCartFn: func(ctx context.Context, customerID int64) (*domain.Cart, error) {
			return &domain.Cart{ID: 7, CustomerID: customerID, Items: items}, nil
		},
	}
}

func catalogWith(products ...domain.Product) *mockCatalogRepository {
	return &mockCatalogRepository{
		getProductsFn: func(ctx context.Context, ids []int64) (map[int64]domain.Product, error) {
			result := make(map[int64]domain.Product)
			for _, p := range products {
				result[p.ID] = p
			}
			return result, nil
		},
	}
}

func TestCreateOrder(t *testing.T) {
	price := decimal.RequireFromString("19.99")

	t.Run("assembles priced order from cart", func(t *testing.T) {
		var created *domain.Order
		var clearedCart int64
		orders := &mockOrderRepository{
			createFromCartFn: func(ctx context.Context, order domain.Order, cartID int64) (*domain.Order, error) {
				created = &order
				clearedCart = cartID
				order.ID = 42
				return &order, nil
			},
		}
		carts := cartWith(domain.CartItem{ProductID: 5, Quantity: 2, UnitPrice: price})
		catalog := catalogWith(domain.Product{ID: 5, Name: "Widget", Price: price, Stock: 10})

		handler := commands.NewCreateOrderHandler(orders, carts, catalog, &mockCustomerRepository{})
		order, err := handler.Handle(context.Background(), commands.CreateOrderCommand{CustomerID: 1, AddressID: 2})
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		if order.ID != 42 {
			t.Errorf("expected order id 42, got %d", order.ID)
		}
		if created.Status != domain.OrderPending {
			t.Errorf("expected status PENDING, got %s", created.Status)
		}
		if !created.TotalPrice.Equal(decimal.RequireFromString("39.98")) {
			t.Errorf("expected total 39.98, got %s", created.TotalPrice)
		}
		if len(created.Items) != 1 || !created.Items[0].Price.Equal(price) {
			t.Errorf("expected unit price frozen at %s, got %+v", price, created.Items)
		}
		if clearedCart != 7 {
			t.Errorf("expected cart 7 to be cleared, got %d", clearedCart)
		}
	})

	t.Run("rejects address owned by another customer", func(t *testing.T) {
		customers := &mockCustomerRepository{
			addressBelongsToFn: func(ctx context.Context, addressID, customerID int64) (bool, error) {
				return false, nil
			},
		}
		handler := commands.NewCreateOrderHandler(&mockOrderRepository{}, cartWith(), &mockCatalogRepository{}, customers)

		_, err := handler.Handle(context.Background(), commands.CreateOrderCommand{CustomerID: 1, AddressID: 2})
		if !errors.Is(err, ports.ErrForbidden) {
			t.Errorf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("rejects empty cart", func(t *testing.T) {
		handler := commands.NewCreateOrderHandler(&mockOrderRepository{}, cartWith(), &mockCatalogRepository{}, &mockCustomerRepository{})

		_, err := handler.Handle(context.Background(), commands.CreateOrderCommand{CustomerID: 1, AddressID: 2})
		if !errors.Is(err, ports.ErrEmptyCart) {
			t.Errorf("expected ErrEmptyCart, got %v", err)
		}
	})

	t.Run("rejects quantity above available stock", func(t *testing.T) {
		carts := cartWith(domain.CartItem{ProductID: 5, Quantity: 3, UnitPrice: price})
		catalog := catalogWith(domain.Product{ID: 5, Name: "Widget", Price: price, Stock: 2})
		handler := commands.NewCreateOrderHandler(&mockOrderRepository{}, carts, catalog, &mockCustomerRepository{})

		_, err := handler.Handle(context.Background(), commands.CreateOrderCommand{CustomerID: 1, AddressID: 2})
		if !errors.Is(err, ports.ErrInsufficientStock) {
			t.Errorf("expected ErrInsufficientStock, got %v", err)
		}
	})

	t.Run("rejects missing product", func(t *testing.T) {
		carts := cartWith(domain.CartItem{ProductID: 99, Quantity: 1, UnitPrice: price})
		handler := commands.NewCreateOrderHandler(&mockOrderRepository{}, carts, catalogWith(), &mockCustomerRepository{})

		_, err := handler.Handle(context.Background(), commands.CreateOrderCommand{CustomerID: 1, AddressID: 2})
		if !errors.Is(err, ports.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("validates command fields", func(t *testing.T) {
		handler := commands.NewCreateOrderHandler(&mockOrderRepository{}, &mockCartRepository{}, &mockCatalogRepository{}, &mockCustomerRepository{})

		if _, err := handler.Handle(context.Background(), commands.CreateOrderCommand{AddressID: 2}); err == nil {
			t.Error("expected error for missing customer id")
		}
		if _, err := handler.Handle(context.Background(), commands.CreateOrderCommand{CustomerID: 1}); err == nil {
			t.Error("expected error for missing address id")
		}
	})
}
