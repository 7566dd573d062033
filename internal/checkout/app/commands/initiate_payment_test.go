package commands_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vantagecommerce/settle/internal/checkout/app/commands"
	"github.com/vantagecommerce/settle/internal/checkout/domain"
	"github.com/vantagecommerce/settle/internal/checkout/ports"
)

func validInitiateCommand() commands.InitiatePaymentCommand {
	return commands.InitiatePaymentCommand{
		OrderID:            42,
		CCHolderName:       "Ada Lovelace",
		CCNo:               "4111111111111111",
		ExpiryMonth:        "12",
		ExpiryYear:         "2030",
		CVV:                "123",
		CurrencyCode:       "TRY",
		InstallmentsNumber: 1,
	}
}

func stockedCatalog() *mockCatalogRepository {
	return &mockCatalogRepository{
		getProductsFn: func(ctx context.Context, ids []int64) (map[int64]domain.Product, error) {
			return map[int64]domain.Product{
				5: {ID: 5, Name: "Widget", Price: decimal.RequireFromString("25.00"), Stock: 10},
			}, nil
		},
	}
}

func TestInitiatePayment(t *testing.T) {
	urls := commands.CallbackURLs{
		Return: "https://shop.example.com/payments/result/success",
		Cancel: "https://shop.example.com/payments/result/cancel",
	}

	t.Run("records pending payment before submitting", func(t *testing.T) {
		var createdStatus domain.PaymentStatus
		var submitted *ports.GatewayRequest
		payments := &mockPaymentRepository{
			createFn: func(ctx context.Context, payment domain.Payment) (*domain.Payment, error) {
				createdStatus = payment.Status
				if submitted != nil {
					t.Error("payment row must be recorded before the gateway call")
				}
				payment.ID = 77
				return &payment, nil
			},
		}
		gateway := &mockGateway{
			submit3DFn: func(ctx context.Context, req ports.GatewayRequest) (*ports.GatewayResponse, error) {
				submitted = &req
				return &ports.GatewayResponse{Success: true, HTTPCode: 200, Raw: json.RawMessage(`{"form":"..."}`)}, nil
			},
		}

		handler := commands.NewInitiatePaymentHandler(
			orderInStatus(domain.OrderPending), payments, stockedCatalog(), &mockCustomerRepository{}, gateway, urls,
		)

		result, err := handler.Handle(context.Background(), validInitiateCommand())
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		if createdStatus != domain.PaymentPending {
			t.Errorf("expected payment recorded as PENDING, got %s", createdStatus)
		}
		if result.Payment.ID != 77 {
			t.Errorf("expected payment id 77, got %d", result.Payment.ID)
		}
		if submitted == nil {
			t.Fatal("expected gateway submission")
		}
		if submitted.InvoiceID != "ORDER_42" {
			t.Errorf("expected invoice ORDER_42, got %s", submitted.InvoiceID)
		}
		if !submitted.Total.Equal(decimal.RequireFromString("50.00")) {
			t.Errorf("expected total 50.00, got %s", submitted.Total)
		}
		if submitted.ReturnURL != urls.Return || submitted.CancelURL != urls.Cancel {
			t.Errorf("expected configured callback urls, got %s / %s", submitted.ReturnURL, submitted.CancelURL)
		}

		var manifest []map[string]any
		if err := json.Unmarshal([]byte(submitted.Items), &manifest); err != nil {
			t.Fatalf("expected item manifest to be JSON: %v", err)
		}
		if len(manifest) != 1 || manifest[0]["name"] != "Widget" {
			t.Errorf("unexpected item manifest: %s", submitted.Items)
		}
	})

	t.Run("rejects an already paid order", func(t *testing.T) {
		handler := commands.NewInitiatePaymentHandler(
			orderInStatus(domain.OrderPaid), &mockPaymentRepository{}, stockedCatalog(), &mockCustomerRepository{}, &mockGateway{}, urls,
		)

		if _, err := handler.Handle(context.Background(), validInitiateCommand()); err == nil {
			t.Error("expected error for an already paid order")
		}
	})

	t.Run("re-checks stock before submitting", func(t *testing.T) {
		catalog := &mockCatalogRepository{
			getProductsFn: func(ctx context.Context, ids []int64) (map[int64]domain.Product, error) {
				return map[int64]domain.Product{
					5: {ID: 5, Name: "Widget", Stock: 1},
				}, nil
			},
		}
		handler := commands.NewInitiatePaymentHandler(
			orderInStatus(domain.OrderPending), &mockPaymentRepository{}, catalog, &mockCustomerRepository{}, &mockGateway{}, urls,
		)

		_, err := handler.Handle(context.Background(), validInitiateCommand())
		if !errors.Is(err, ports.ErrInsufficientStock) {
			t.Errorf("expected ErrInsufficientStock, got %v", err)
		}
	})

	t.Run("allows retry on a cancelled order", func(t *testing.T) {
		handler := commands.NewInitiatePaymentHandler(
			orderInStatus(domain.OrderCancelled), &mockPaymentRepository{}, stockedCatalog(), &mockCustomerRepository{}, &mockGateway{}, urls,
		)

		if _, err := handler.Handle(context.Background(), validInitiateCommand()); err != nil {
			t.Errorf("expected retry on cancelled order to succeed, got: %v", err)
		}
	})

	t.Run("validates card fields", func(t *testing.T) {
		handler := commands.NewInitiatePaymentHandler(
			&mockOrderRepository{}, &mockPaymentRepository{}, &mockCatalogRepository{}, &mockCustomerRepository{}, &mockGateway{}, urls,
		)

		cmd := validInitiateCommand()
		cmd.CCNo = ""
		if _, err := handler.Handle(context.Background(), cmd); err == nil {
			t.Error("expected error for missing card number")
		}
	})
}
