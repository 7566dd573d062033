package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/vantagecommerce/settle/internal/checkout/app"
	"github.com/vantagecommerce/settle/internal/checkout/app/commands"
	"github.com/vantagecommerce/settle/internal/checkout/domain"
	"github.com/vantagecommerce/settle/internal/checkout/ports"
)

// Handler exposes the settlement engine's HTTP endpoints. Callers are
// identified by the X-Customer-ID header set by the upstream auth layer;
// admin-only endpoints additionally require X-Admin: true.
type Handler struct {
	service *app.Service
}

// NewHandler constructs a Handler.
func NewHandler(service *app.Service) *Handler {
	return &Handler{service: service}
}

// Register binds the checkout handlers to the provided ServeMux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/v1/orders", h.handleOrders)
	mux.HandleFunc("/v1/orders/", h.handleOrderByID)
	mux.HandleFunc("/v1/payments/3d", h.initiatePayment)
	mux.HandleFunc("/v1/payments/result/success", h.paymentResult)
	mux.HandleFunc("/v1/payments/result/cancel", h.paymentResult)
	mux.HandleFunc("/v1/payments", h.listPayments)
	mux.HandleFunc("/v1/payments/", h.handlePaymentByID)
	mux.HandleFunc("/v1/refunds", h.handleRefunds)
	mux.HandleFunc("/v1/refunds/", h.handleRefundByID)
}

func (h *Handler) handleOrders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createOrder(w, r)
	case http.MethodGet:
		h.listOrders(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	customerID, ok := customerFrom(w, r)
	if !ok {
		return
	}

	var payload struct {
		AddressID int64 `json:"address_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	order, err := h.service.CreateOrder(r.Context(), customerID, payload.AddressID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"order": order})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	customerID, ok := customerFrom(w, r)
	if !ok {
		return
	}

	orders, err := h.service.ListOrders(r.Context(), customerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (h *Handler) handleOrderByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	customerID, ok := customerFrom(w, r)
	if !ok {
		return
	}

	id, ok := pathID(w, r.URL.Path, "/v1/orders/")
	if !ok {
		return
	}

	order, err := h.service.GetOrder(r.Context(), id, customerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *Handler) initiatePayment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	customerID, ok := customerFrom(w, r)
	if !ok {
		return
	}

	var payload struct {
		OrderID            int64  `json:"order_id"`
		CCHolderName       string `json:"cc_holder_name"`
		CCNo               string `json:"cc_no"`
		ExpiryMonth        string `json:"expiry_month"`
		ExpiryYear         string `json:"expiry_year"`
		CVV                string `json:"cvv"`
		CurrencyCode       string `json:"currency_code"`
		InstallmentsNumber int32  `json:"installments_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	// The order must belong to the caller.
	if _, err := h.service.GetOrder(r.Context(), payload.OrderID, customerID); err != nil {
		writeServiceError(w, err)
		return
	}

	result, err := h.service.InitiatePayment(r.Context(), commands.InitiatePaymentCommand{
		OrderID:            payload.OrderID,
		CCHolderName:       payload.CCHolderName,
		CCNo:               payload.CCNo,
		ExpiryMonth:        payload.ExpiryMonth,
		ExpiryYear:         payload.ExpiryYear,
		CVV:                payload.CVV,
		CurrencyCode:       payload.CurrencyCode,
		InstallmentsNumber: payload.InstallmentsNumber,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// paymentResult serves both gateway redirect targets. The callback payload is
// never trusted: both routes reconcile against the authoritative status check
// and report what actually happened.
func (h *Handler) paymentResult(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid callback payload")
		return
	}
	invoiceID := r.Form.Get("invoice_id")
	if invoiceID == "" {
		writeError(w, http.StatusBadRequest, "invoice_id is required")
		return
	}
	transactionID := r.Form.Get("transaction_id")

	result, err := h.service.SettlePayment(r.Context(), invoiceID, transactionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	customerID, ok := customerFrom(w, r)
	if !ok {
		return
	}

	orderID, err := strconv.ParseInt(r.URL.Query().Get("order_id"), 10, 64)
	if err != nil || orderID <= 0 {
		writeError(w, http.StatusBadRequest, "order_id query parameter is required")
		return
	}

	// Scope check before listing.
	if _, err := h.service.GetOrder(r.Context(), orderID, customerID); err != nil {
		writeServiceError(w, err)
		return
	}

	payments, err := h.service.ListPayments(r.Context(), orderID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"payments": payments})
}

func (h *Handler) handlePaymentByID(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.TrimPrefix(r.URL.Path, "/v1/payments/")

	if strings.HasSuffix(trimmed, "/refund") {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if !requireAdmin(w, r) {
			return
		}
		idPart := strings.TrimSuffix(strings.TrimSuffix(trimmed, "/refund"), "/")
		id, err := strconv.ParseInt(idPart, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusNotFound, "payment not found")
			return
		}
		h.refundPayment(w, r, id)
		return
	}

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	customerID, ok := customerFrom(w, r)
	if !ok {
		return
	}

	id, ok := pathID(w, r.URL.Path, "/v1/payments/")
	if !ok {
		return
	}

	payment, err := h.service.GetPayment(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	// Payments are visible only through an order the caller owns.
	if _, err := h.service.GetOrder(r.Context(), payment.OrderID, customerID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"payment": payment})
}

func (h *Handler) refundPayment(w http.ResponseWriter, r *http.Request, id int64) {
	response, err := h.service.RefundPayment(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"response": response})
}

func (h *Handler) handleRefunds(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.requestRefund(w, r)
	case http.MethodGet:
		h.listRefunds(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) requestRefund(w http.ResponseWriter, r *http.Request) {
	customerID, ok := customerFrom(w, r)
	if !ok {
		return
	}

	var payload struct {
		OrderItemID int64  `json:"order_item_id"`
		Quantity    int32  `json:"quantity"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	request, err := h.service.RequestRefund(r.Context(), commands.RequestRefundCommand{
		OrderItemID: payload.OrderItemID,
		Quantity:    payload.Quantity,
		Description: payload.Description,
		CustomerID:  customerID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"refund_request": request})
}

func (h *Handler) listRefunds(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	var status *domain.RefundStatus
	if param := r.URL.Query().Get("status"); param != "" {
		s := domain.RefundStatus(param)
		status = &s
	}

	requests, err := h.service.ListRefunds(r.Context(), status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"refund_requests": requests})
}

func (h *Handler) handleRefundByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !requireAdmin(w, r) {
		return
	}

	id, ok := pathID(w, r.URL.Path, "/v1/refunds/")
	if !ok {
		return
	}

	var payload struct {
		Status domain.RefundStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	request, err := h.service.DecideRefund(r.Context(), id, payload.Status)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"refund_request": request})
}

// customerFrom reads the authenticated customer id injected by the upstream
// auth layer.
func customerFrom(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(r.Header.Get("X-Customer-ID"))
	if raw == "" {
		writeError(w, http.StatusUnauthorized, "X-Customer-ID header required")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusUnauthorized, "invalid X-Customer-ID header")
		return 0, false
	}
	return id, true
}

func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if !strings.EqualFold(r.Header.Get("X-Admin"), "true") {
		writeError(w, http.StatusForbidden, "admin access required")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, path, prefix string) (int64, bool) {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(path, prefix), "/")
	id, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, "not found")
		return 0, false
	}
	return id, true
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ports.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ports.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ports.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ports.ErrInsufficientStock),
		errors.Is(err, ports.ErrNoPendingPayment),
		errors.Is(err, ports.ErrAlreadyProcessed):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
