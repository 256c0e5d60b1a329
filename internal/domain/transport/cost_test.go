package transport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glasserp/internal/core/apperror"
	"glasserp/internal/core/types"
	"glasserp/internal/domain/settings"
)

func TestDistance(t *testing.T) {
	mumbai := settings.Location{Lat: 19.0760, Lng: 72.8777}
	pune := settings.Location{Lat: 18.5204, Lng: 73.8567}

	assert.Zero(t, Distance(mumbai, mumbai))
	assert.InDelta(t, 120, Distance(mumbai, pune), 1.5)
	assert.InDelta(t, Distance(mumbai, pune), Distance(pune, mumbai), 1e-9)
	assert.InDelta(t, 111.195, Distance(mumbai, settings.Location{Lat: 20.0760, Lng: 72.8777}), 0.001)
}

func TestEstimate(t *testing.T) {
	cfg := settings.DefaultTransport()
	factory := cfg.FactoryLocation

	tests := []struct {
		name  string
		req   Request
		sub   types.Paise
		gst   types.Paise
		total types.Paise
	}{
		{
			name:  "within base distance",
			req:   Request{Destination: factory, TotalSqft: 100, IncludeGST: true},
			sub:   types.PaiseFromRupees(700),
			gst:   types.PaiseFromRupees(126),
			total: types.PaiseFromRupees(826),
		},
		{
			name:  "one degree north",
			req:   Request{Destination: settings.Location{Lat: factory.Lat + 1, Lng: factory.Lng}},
			sub:   types.PaiseFromRupees(3029.75),
			total: types.PaiseFromRupees(3029.75),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Estimate(cfg, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.sub, c.Subtotal)
			assert.Equal(t, tt.gst, c.GSTAmount)
			assert.Equal(t, tt.total, c.Total)
		})
	}
}

func TestEstimate_Rejects(t *testing.T) {
	cfg := settings.DefaultTransport()
	_, err := Estimate(cfg, Request{Destination: settings.Location{Lat: 91}})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = Estimate(cfg, Request{Destination: cfg.FactoryLocation, TotalSqft: -1})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

type staticSettings settings.Transport

func (s staticSettings) Transport(ctx context.Context) (settings.Transport, error) {
	return settings.Transport(s), nil
}

func TestService_Calculate(t *testing.T) {
	cfg := settings.DefaultTransport()
	cfg.BaseCharge = 0
	svc := NewService(staticSettings(cfg))

	c, err := svc.Calculate(context.Background(), Request{Destination: cfg.FactoryLocation, TotalSqft: 12.5})
	require.NoError(t, err)
	assert.Equal(t, types.PaiseFromRupees(25), c.Total)
}
