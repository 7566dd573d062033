package paybull

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vantagecommerce/settle/internal/checkout/domain"
	"github.com/vantagecommerce/settle/internal/checkout/ports"
)

// Config carries the merchant credentials and endpoints for the provider.
type Config struct {
	BaseURL     string
	AppID       string
	AppSecret   string
	MerchantKey string
	// TokenTTL bounds how long a bearer token is reused before a fresh
	// exchange. The provider does not document an expiry; fifty minutes keeps
	// us under the common one-hour window.
	TokenTTL time.Duration
}

// Client talks to the payment gateway. It is safe for concurrent use; the
// bearer token is cached across calls and refreshed when stale.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
	now    func() time.Time

	mu             sync.Mutex
	token          string
	tokenFetchedAt time.Time
}

// NewClient constructs a Client. A nil httpClient falls back to a default
// with a conservative timeout.
func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 50 * time.Minute
	}
	return &Client{
		cfg:    cfg,
		http:   httpClient,
		logger: logger,
		now:    time.Now,
	}
}

// Token exchanges the application credentials for a bearer token, reusing the
// cached value while it is fresh. A racing refresh is benign: both fetches
// yield an equally valid token.
func (c *Client) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.token != "" && c.now().Sub(c.tokenFetchedAt) < c.cfg.TokenTTL {
		token := c.token
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	body := map[string]string{
		"app_id":     c.cfg.AppID,
		"app_secret": c.cfg.AppSecret,
	}

	status, raw, err := c.post(ctx, c.cfg.BaseURL+"/api/token", body, "")
	if err != nil {
		return "", fmt.Errorf("request token: %w", err)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("request token: gateway returned %d: %s", status, raw)
	}

	var payload struct {
		Token string `json:"token"`
		Data  struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}

	token := payload.Data.Token
	if token == "" {
		token = payload.Token
	}
	if token == "" {
		return "", fmt.Errorf("gateway token response missing token")
	}

	c.mu.Lock()
	c.token = token
	c.tokenFetchedAt = c.now()
	c.mu.Unlock()

	return token, nil
}

// Submit3D signs and posts the payment request. The response typically holds
// the redirect form for 3-D authentication; non-2xx answers come back as a
// structured failure so the caller can persist the reason.
func (c *Client) Submit3D(ctx context.Context, req ports.GatewayRequest) (*ports.GatewayResponse, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}

	total := req.Total.StringFixed(2)
	hashKey, err := GenerateHashKey(
		total,
		fmt.Sprintf("%d", req.InstallmentsNumber),
		req.CurrencyCode,
		c.cfg.MerchantKey,
		req.InvoiceID,
		c.cfg.AppSecret,
	)
	if err != nil {
		return nil, fmt.Errorf("sign payment request: %w", err)
	}

	parameters := map[string]any{
		"cc_holder_name":      req.CCHolderName,
		"cc_no":               req.CCNo,
		"expiry_month":        req.ExpiryMonth,
		"expiry_year":         req.ExpiryYear,
		"cvv":                 req.CVV,
		"currency_code":       req.CurrencyCode,
		"installments_number": req.InstallmentsNumber,
		"invoice_id":          req.InvoiceID,
		"invoice_description": req.InvoiceDescription,
		"name":                req.Name,
		"surname":             req.Surname,
		"total":               total,
		"merchant_key":        c.cfg.MerchantKey,
		"cancel_url":          req.CancelURL,
		"return_url":          req.ReturnURL,
		"hash_key":            hashKey,
		"items":               req.Items,
	}

	status, raw, err := c.post(ctx, c.cfg.BaseURL+"/ccpayment/api/paySmart3D", parameters, token)
	if err != nil {
		return nil, fmt.Errorf("submit 3d payment: %w", err)
	}

	resp := &ports.GatewayResponse{
		Success:  status == http.StatusOK,
		HTTPCode: status,
		Raw:      raw,
	}
	if !resp.Success {
		resp.ErrorMessage = gatewayError(raw)
		c.logger.Warn("gateway rejected 3d payment",
			"invoice_id", req.InvoiceID, "http_code", status, "error", resp.ErrorMessage)
	}
	return resp, nil
}

// CheckStatus polls the gateway for the authoritative state of an invoice.
func (c *Client) CheckStatus(ctx context.Context, invoiceID string) (*ports.GatewayStatus, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"invoice_id":             invoiceID,
		"merchant_key":           c.cfg.MerchantKey,
		"include_pending_status": 1,
	}

	status, raw, err := c.post(ctx, c.cfg.BaseURL+"/api/checkstatus", body, token)
	if err != nil {
		return nil, fmt.Errorf("check status for %s: %w", invoiceID, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("check status for %s: gateway returned %d: %s", invoiceID, status, raw)
	}

	var payload struct {
		StatusCode    json.Number `json:"status_code"`
		TransactionID string      `json:"transaction_id"`
		Error         string      `json:"error"`
		ErrorMessage  string      `json:"error_message"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}

	code, err := payload.StatusCode.Int64()
	if err != nil {
		return nil, fmt.Errorf("decode status response: bad status_code %q", payload.StatusCode)
	}

	msg := payload.ErrorMessage
	if msg == "" {
		msg = payload.Error
	}

	return &ports.GatewayStatus{
		StatusCode:    int(code),
		TransactionID: payload.TransactionID,
		ErrorMessage:  msg,
		Raw:           raw,
	}, nil
}

// Refund signs and posts a reversal for the full amount against the order's
// invoice. A non-success status code comes back as a structured failure with
// the gateway's own error text.
func (c *Client) Refund(ctx context.Context, amount decimal.Decimal, orderID int64) (*ports.GatewayResponse, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}

	invoiceID := domain.InvoiceID(orderID)
	hashKey, err := GenerateRefundHashKey(amount.StringFixed(2), invoiceID, c.cfg.MerchantKey, c.cfg.AppSecret)
	if err != nil {
		return nil, fmt.Errorf("sign refund request: %w", err)
	}

	parameters := map[string]any{
		"amount":       amount.StringFixed(2),
		"invoice_id":   invoiceID,
		"hash_key":     hashKey,
		"app_id":       c.cfg.AppID,
		"app_secret":   c.cfg.AppSecret,
		"merchant_key": c.cfg.MerchantKey,
	}

	status, raw, err := c.post(ctx, c.cfg.BaseURL+"/api/refund", parameters, token)
	if err != nil {
		return nil, fmt.Errorf("refund %s: %w", invoiceID, err)
	}

	var payload struct {
		StatusCode json.Number `json:"status_code"`
	}
	_ = json.Unmarshal(raw, &payload)
	code, _ := payload.StatusCode.Int64()

	resp := &ports.GatewayResponse{
		Success:  status == http.StatusOK && code == ports.GatewayStatusApproved,
		HTTPCode: status,
		Raw:      raw,
	}
	if !resp.Success {
		resp.ErrorMessage = gatewayError(raw)
		if resp.ErrorMessage == "" {
			resp.ErrorMessage = "refund failed"
		}
		c.logger.Warn("gateway rejected refund",
			"invoice_id", invoiceID, "http_code", status, "error", resp.ErrorMessage)
	}
	return resp, nil
}

func (c *Client) post(ctx context.Context, url string, body any, token string) (int, json.RawMessage, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}

	return resp.StatusCode, raw, nil
}

// gatewayError digs the provider's error text out of a raw response body.
func gatewayError(raw json.RawMessage) string {
	var payload struct {
		ErrorMessage string          `json:"error_message"`
		Error        json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	if payload.ErrorMessage != "" {
		return payload.ErrorMessage
	}
	var text string
	if err := json.Unmarshal(payload.Error, &text); err == nil {
		return text
	}
	return string(payload.Error)
}
