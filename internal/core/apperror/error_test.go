package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFactories_HTTPStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		status int
	}{
		{"validation", NewValidation("bad"), http.StatusBadRequest},
		{"schema", NewSchemaViolation("bad"), http.StatusUnprocessableEntity},
		{"not found", NewNotFound("order", "x"), http.StatusNotFound},
		{"transition", NewInvalidTransition("order", "pending", "dispatched"), http.StatusConflict},
		{"settlement", NewPaymentNotSettled("000001"), http.StatusBadRequest},
		{"unauthorized", NewUnauthorized("no token"), http.StatusUnauthorized},
		{"forbidden", NewForbidden("role"), http.StatusForbidden},
		{"external", NewExternal("payouts", errors.New("timeout")), http.StatusBadGateway},
		{"internal", NewInternal(errors.New("boom")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			assert.Equal(t, tt.status, GetHTTPStatus(fmt.Errorf("wrapped: %w", tt.err)))
		})
	}
}

func TestGetHTTPStatus_PlainError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(errors.New("plain")))
}

func TestIsCode_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("service: %w", NewPaymentNotSettled("000042"))

	assert.True(t, IsCode(err, CodePaymentNotSettled))
	assert.False(t, IsNotFound(err))
	assert.True(t, IsNotFound(NewNotFound("vendor", 1)))
	assert.True(t, IsConcurrentModification(NewConcurrentModification("po", 1)))
}

func TestPaymentNotSettled_Message(t *testing.T) {
	err := NewPaymentNotSettled("000042")
	assert.Equal(t, "Payment not completed", err.Message)
	assert.Equal(t, "000042", err.Details["order"])
}
