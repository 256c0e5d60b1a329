// Package payments is the client of the inbound payments gateway: checkout
// order creation and payment signature verification.
package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"glasserp/internal/core/apperror"
	"glasserp/internal/core/types"
)

var tracer = otel.Tracer("glasserp/payments")

// Config configures the gateway client.
type Config struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Timeout   time.Duration
}

// Gateway implements order.Gateway over the gateway REST API.
type Gateway struct {
	baseURL   string
	keyID     string
	keySecret string
	http      *http.Client
}

// NewGateway creates a gateway client.
func NewGateway(cfg Config) *Gateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Gateway{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		http:      &http.Client{Timeout: timeout},
	}
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type createOrderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CreateOrder opens a checkout order for amount paise and returns its id.
func (g *Gateway) CreateOrder(ctx context.Context, amount types.Paise, receipt string) (string, error) {
	ctx, span := tracer.Start(ctx, "gateway.create_order")
	defer span.End()
	span.SetAttributes(attribute.Int64("amount_paise", int64(amount)), attribute.String("receipt", receipt))

	if g.keyID == "" || g.keySecret == "" {
		err := fmt.Errorf("gateway credentials are not configured")
		span.SetStatus(codes.Error, err.Error())
		return "", apperror.NewExternal("payments", err)
	}

	body, err := json.Marshal(createOrderRequest{Amount: int64(amount), Currency: "INR", Receipt: receipt})
	if err != nil {
		return "", fmt.Errorf("encode gateway order: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build gateway request: %w", err)
	}
	req.SetBasicAuth(g.keyID, g.keySecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", apperror.NewExternal("payments", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("gateway error %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		span.SetStatus(codes.Error, err.Error())
		return "", apperror.NewExternal("payments", err)
	}

	var parsed createOrderResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", apperror.NewExternal("payments", fmt.Errorf("decode gateway order: %w", err))
	}
	if parsed.ID == "" {
		return "", apperror.NewExternal("payments", fmt.Errorf("gateway returned no order id"))
	}
	return parsed.ID, nil
}

// VerifySignature checks the HMAC-SHA256 of "order_id|payment_id" keyed with
// the API secret.
func (g *Gateway) VerifySignature(gatewayOrderID, paymentID, signature string) bool {
	if g.keySecret == "" || signature == "" {
		return false
	}
	expected := Sign(g.keySecret, gatewayOrderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

// Sign returns the hex signature the gateway attaches to a payment.
func Sign(secret, gatewayOrderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
