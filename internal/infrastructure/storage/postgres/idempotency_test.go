package postgres

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glasserp/internal/core/apperror"
)

func TestScopedIdempotencyKey(t *testing.T) {
	assert.Equal(t, "u-1|abc", ScopedIdempotencyKey("u-1", "abc"))
	assert.NotEqual(t, ScopedIdempotencyKey("u-1", "abc"), ScopedIdempotencyKey("u-2", "abc"))
	assert.Equal(t, "anonymous|abc", ScopedIdempotencyKey("", "abc"))
}

func TestDecideIdempotency(t *testing.T) {
	now := time.Date(2024, 9, 4, 6, 0, 0, 0, time.UTC)
	base := IdempotencyRecord{
		Key:         "u-1|k",
		UserID:      "u-1",
		Operation:   "POST /api/v1/orders",
		RequestHash: "h1",
		UpdatedAt:   now.Add(-10 * time.Second),
	}

	tests := []struct {
		name      string
		mutate    func(r *IdempotencyRecord)
		operation string
		hash      string
		replay    *IdempotencyReplay
		reclaim   bool
		conflict  bool
	}{
		{
			name: "completed request replays",
			mutate: func(r *IdempotencyRecord) {
				r.Status = IdempotencyStatusSuccess
				r.StatusCode = http.StatusCreated
				r.Response = []byte(`{"order_number":"000123"}`)
			},
			replay: &IdempotencyReplay{StatusCode: http.StatusCreated, ContentType: "application/json", Body: []byte(`{"order_number":"000123"}`)},
		},
		{
			name: "client error replays with defaults",
			mutate: func(r *IdempotencyRecord) {
				r.Status = IdempotencyStatusFailed
			},
			replay: &IdempotencyReplay{StatusCode: http.StatusOK, ContentType: "application/json"},
		},
		{
			name:     "request in flight is busy",
			mutate:   func(r *IdempotencyRecord) { r.Status = IdempotencyStatusPending },
			conflict: true,
		},
		{
			name: "abandoned request is reclaimed",
			mutate: func(r *IdempotencyRecord) {
				r.Status = IdempotencyStatusPending
				r.UpdatedAt = now.Add(-pendingLease - time.Second)
			},
			reclaim: true,
		},
		{
			name:      "other route is a mismatch",
			mutate:    func(r *IdempotencyRecord) { r.Status = IdempotencyStatusSuccess },
			operation: "POST /api/v1/orders/:id/cash",
			conflict:  true,
		},
		{
			name:     "other body is a mismatch",
			mutate:   func(r *IdempotencyRecord) { r.Status = IdempotencyStatusSuccess },
			hash:     "h2",
			conflict: true,
		},
		{
			name:     "unknown status is busy",
			mutate:   func(r *IdempotencyRecord) { r.Status = "archived" },
			conflict: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := base
			tt.mutate(&record)
			operation := tt.operation
			if operation == "" {
				operation = base.Operation
			}
			hash := tt.hash
			if hash == "" {
				hash = base.RequestHash
			}

			replay, reclaim, err := decideIdempotency(&record, "u-1", operation, hash, now)
			if tt.conflict {
				require.Error(t, err)
				assert.True(t, apperror.IsCode(err, apperror.CodeIdempotency))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.replay, replay)
			assert.Equal(t, tt.reclaim, reclaim)
		})
	}
}

func TestRetryableFailure(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{http.StatusBadRequest, false},
		{http.StatusConflict, false},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, retryableFailure(tt.status), "status %d", tt.status)
	}
}
