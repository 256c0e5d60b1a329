// Package transport prices delivery from the factory to a site.
package transport

import (
	"context"
	"math"

	"github.com/shopspring/decimal"

	"glasserp/internal/core/apperror"
	"glasserp/internal/core/types"
	"glasserp/internal/domain/settings"
)

const earthRadiusKM = 6371.0

// Distance is the great-circle distance between two points in kilometres.
func Distance(a, b settings.Location) float64 {
	lat1, lat2 := radians(a.Lat), radians(b.Lat)
	dLat := lat2 - lat1
	dLng := radians(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKM * math.Asin(math.Min(1, math.Sqrt(h)))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// Request asks for the cost of one delivery.
type Request struct {
	Destination settings.Location
	TotalSqft   float64
	IncludeGST  bool
}

// Cost is the itemised delivery charge.
type Cost struct {
	DistanceKM     float64     `json:"distance_km"`
	ChargeableKM   float64     `json:"chargeable_km"`
	BaseCharge     types.Paise `json:"base_charge"`
	DistanceCharge types.Paise `json:"distance_charge"`
	AreaCharge     types.Paise `json:"area_charge"`
	Subtotal       types.Paise `json:"subtotal"`
	GSTPercent     float64     `json:"gst_percent"`
	GSTAmount      types.Paise `json:"gst_amount"`
	Total          types.Paise `json:"total"`
}

// Estimate prices req: base charge, plus the per-km rate beyond the base
// distance, plus the per-sqft rate on the glass carried.
func Estimate(cfg settings.Transport, req Request) (Cost, error) {
	if err := validLocation(req.Destination); err != nil {
		return Cost{}, err
	}
	if req.TotalSqft < 0 {
		return Cost{}, apperror.NewFieldValidation("total_sqft", "total_sqft must not be negative")
	}
	km := round2(Distance(cfg.FactoryLocation, req.Destination))
	extra := math.Max(0, km-cfg.BaseKM)
	c := Cost{
		DistanceKM:     km,
		ChargeableKM:   round2(extra),
		BaseCharge:     cfg.BaseCharge,
		DistanceCharge: scale(cfg.PerKMRate, extra),
		AreaCharge:     scale(cfg.PerSqftRate, req.TotalSqft),
	}
	c.Subtotal = c.BaseCharge + c.DistanceCharge + c.AreaCharge
	if req.IncludeGST {
		c.GSTPercent = cfg.GSTPercent
		c.GSTAmount = c.Subtotal.MulRate(decimal.NewFromFloat(cfg.GSTPercent))
	}
	c.Total = c.Subtotal + c.GSTAmount
	return c, nil
}

func validLocation(l settings.Location) error {
	if l.Lat < -90 || l.Lat > 90 {
		return apperror.NewFieldValidation("delivery_location.lat", "latitude must be between -90 and 90")
	}
	if l.Lng < -180 || l.Lng > 180 {
		return apperror.NewFieldValidation("delivery_location.lng", "longitude must be between -180 and 180")
	}
	return nil
}

// scale multiplies a rate by a fractional quantity, rounding half away from zero.
func scale(rate types.Paise, qty float64) types.Paise {
	v := decimal.NewFromInt(int64(rate)).Mul(decimal.NewFromFloat(qty)).Round(0)
	return types.Paise(v.IntPart())
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Settings provides the transport parameters.
type Settings interface {
	Transport(ctx context.Context) (settings.Transport, error)
}

// Service prices deliveries with the current settings.
type Service struct {
	settings Settings
}

// NewService creates the transport service.
func NewService(s Settings) *Service {
	return &Service{settings: s}
}

// Calculate prices one delivery.
func (s *Service) Calculate(ctx context.Context, req Request) (Cost, error) {
	cfg, err := s.settings.Transport(ctx)
	if err != nil {
		return Cost{}, err
	}
	return Estimate(cfg, req)
}
