package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glasserp/internal/core/apperror"
)

func TestVerifySignature(t *testing.T) {
	g := NewGateway(Config{KeyID: "key", KeySecret: "secret"})
	valid := Sign("secret", "order_1", "pay_1")

	tests := []struct {
		name      string
		orderID   string
		paymentID string
		signature string
		want      bool
	}{
		{"valid", "order_1", "pay_1", valid, true},
		{"uppercase hex", "order_1", "pay_1", toUpper(valid), true},
		{"swapped ids", "pay_1", "order_1", valid, false},
		{"other payment", "order_1", "pay_2", valid, false},
		{"empty", "order_1", "pay_1", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.VerifySignature(tt.orderID, tt.paymentID, tt.signature))
		})
	}
}

func TestVerifySignature_NoSecret(t *testing.T) {
	g := NewGateway(Config{})
	assert.False(t, g.VerifySignature("order_1", "pay_1", Sign("", "order_1", "pay_1")))
}

func TestCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)

		var body createOrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, int64(150000), body.Amount)
		assert.Equal(t, "INR", body.Currency)
		assert.Equal(t, "000123", body.Receipt)

		_ = json.NewEncoder(w).Encode(createOrderResponse{ID: "order_abc", Status: "created"})
	}))
	defer srv.Close()

	g := NewGateway(Config{BaseURL: srv.URL + "/", KeyID: "key", KeySecret: "secret"})
	id, err := g.CreateOrder(context.Background(), 150000, "000123")
	require.NoError(t, err)
	assert.Equal(t, "order_abc", id)
}

func TestCreateOrder_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	g := NewGateway(Config{BaseURL: srv.URL, KeyID: "key", KeySecret: "wrong"})
	_, err := g.CreateOrder(context.Background(), 100, "r")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeExternal))
}

func TestCreateOrder_NotConfigured(t *testing.T) {
	_, err := NewGateway(Config{}).CreateOrder(context.Background(), 100, "r")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeExternal))
}

func toUpper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'f' {
			b[i] = c - 32
		}
	}
	return string(b)
}
