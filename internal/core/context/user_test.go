package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasAnyRole(t *testing.T) {
	ctx := WithUser(context.Background(), &UserContext{UserID: "u1", Role: "finance"})

	assert.True(t, HasAnyRole(ctx, "admin", "finance"))
	assert.False(t, HasAnyRole(ctx, "admin", "owner"))
	assert.True(t, HasRole(ctx, "finance"))
	assert.Equal(t, "u1", GetUserID(ctx))
}

func TestAnonymousContext(t *testing.T) {
	ctx := context.Background()

	assert.Nil(t, GetUser(ctx))
	assert.Empty(t, GetUserID(ctx))
	assert.False(t, HasAnyRole(ctx, "customer"))
}

func TestNewTraceContext_GeneratesRequestID(t *testing.T) {
	tc := NewTraceContext("", "")
	assert.NotEmpty(t, tc.RequestID)
	assert.Equal(t, tc.RequestID, tc.TraceID)

	tc = NewTraceContext("trace-1", "req-1")
	assert.Equal(t, "trace-1", tc.TraceID)
	assert.Equal(t, "req-1", tc.RequestID)
}
