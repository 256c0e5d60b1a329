package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Type string `json:"type"`
	Rate int    `json:"rate"`
}

func TestLocal_RoundTripAndExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 9, 3, 6, 30, 0, 0, time.UTC)
	c := NewLocal()
	c.now = func() time.Time { return now }

	var got doc
	hit, err := c.GetJSON(ctx, "settings:gst", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.SetJSON(ctx, "settings:gst", doc{Type: "gst", Rate: 18}, 5*time.Minute))
	hit, err = c.GetJSON(ctx, "settings:gst", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, doc{Type: "gst", Rate: 18}, got)

	now = now.Add(5 * time.Minute)
	hit, err = c.GetJSON(ctx, "settings:gst", &got)
	require.NoError(t, err)
	assert.False(t, hit, "entry expires at its ttl")
}

func TestLocal_Delete(t *testing.T) {
	ctx := context.Background()
	c := NewLocal()
	require.NoError(t, c.SetJSON(ctx, "a", 1, time.Minute))
	require.NoError(t, c.SetJSON(ctx, "b", 2, time.Minute))
	require.NoError(t, c.Delete(ctx, "a", "missing"))

	assert.Equal(t, 1, c.Len())
	var v int
	hit, err := c.GetJSON(ctx, "b", &v)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 2, v)
}

func TestLocal_StopWithoutListen(t *testing.T) {
	c := NewLocal()
	assert.NotPanics(t, c.Stop)
}
