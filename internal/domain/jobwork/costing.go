package jobwork

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"glasserp/internal/core/apperror"
	"glasserp/internal/core/types"
	"glasserp/internal/domain/settings"
)

// Cutout is a hole or shape cut into a pane.
type Cutout struct {
	Shape    string  `json:"shape"`
	Diameter float64 `json:"diameter_inch,omitempty"`
	Width    float64 `json:"width_inch,omitempty"`
	Height   float64 `json:"height_inch,omitempty"`
	Count    int     `json:"count"`
}

// Item is one size of pane supplied by the customer.
type Item struct {
	ThicknessMM int         `json:"thickness_mm"`
	WidthInch   float64     `json:"width_inch"`
	HeightInch  float64     `json:"height_inch"`
	Quantity    int         `json:"quantity"`
	Cutouts     []Cutout    `json:"cutouts,omitempty"`
	AreaSqft    float64     `json:"area_sqft"`
	TotalSqft   float64     `json:"total_sqft"`
	LabourRate  types.Paise `json:"labour_rate"`
	LabourCost  types.Paise `json:"labour_cost"`
}

// Summary totals a job-work order.
type Summary struct {
	TotalSqft     float64     `json:"total_sqft"`
	TotalPieces   int         `json:"total_pieces"`
	LabourCharges types.Paise `json:"labour_charges"`
	GSTRate       float64     `json:"gst_rate"`
	GSTAmount     types.Paise `json:"gst_amount"`
	GrandTotal    types.Paise `json:"grand_total"`
}

// Quote is a priced job-work request.
type Quote struct {
	Items           []Item      `json:"items"`
	Summary         Summary     `json:"summary"`
	AdvancePercent  int         `json:"advance_percent"`
	AdvanceRequired types.Paise `json:"advance_required"`
}

var sqInches = decimal.NewFromInt(144)

// AdvancePercentFor is 100 for a single item and 50 otherwise.
func AdvancePercentFor(items int) int {
	if items == 1 {
		return 100
	}
	return 50
}

// Calculate prices items with the labour rates of cfg. Each item's cost is
// area × quantity × rate rounded to the paisa; GST is rounded once on the sum.
func Calculate(cfg settings.JobWorkPricing, items []Item) (Quote, error) {
	if len(items) == 0 {
		return Quote{}, apperror.NewFieldValidation("items", "at least one item is required")
	}
	q := Quote{Items: make([]Item, len(items))}
	var sqft decimal.Decimal
	for i, it := range items {
		field := fmt.Sprintf("items[%d]", i)
		if it.WidthInch <= 0 || it.HeightInch <= 0 {
			return Quote{}, apperror.NewFieldValidation(field, "width and height must be positive")
		}
		if it.Quantity <= 0 {
			return Quote{}, apperror.NewFieldValidation(field+".quantity", "quantity must be positive")
		}
		rate, ok := cfg.LabourRates[strconv.Itoa(it.ThicknessMM)]
		if !ok {
			return Quote{}, apperror.NewFieldValidation(field+".thickness_mm",
				fmt.Sprintf("no labour rate for %d mm", it.ThicknessMM))
		}
		for _, c := range it.Cutouts {
			if c.Count <= 0 {
				return Quote{}, apperror.NewFieldValidation(field+".cutouts", "cutout count must be positive")
			}
		}

		area := decimal.NewFromFloat(it.WidthInch).Mul(decimal.NewFromFloat(it.HeightInch)).Div(sqInches)
		total := area.Mul(decimal.NewFromInt(int64(it.Quantity)))
		sqft = sqft.Add(total)

		it.AreaSqft = area.Round(2).InexactFloat64()
		it.TotalSqft = total.Round(2).InexactFloat64()
		it.LabourRate = rate
		it.LabourCost = types.PaiseFromDecimal(total.Mul(rate.Rupees()))
		q.Items[i] = it

		q.Summary.TotalPieces += it.Quantity
		q.Summary.LabourCharges += it.LabourCost
	}
	q.Summary.TotalSqft = sqft.Round(2).InexactFloat64()
	q.Summary.GSTRate = cfg.GSTRate
	q.Summary.GSTAmount = q.Summary.LabourCharges.MulRate(decimal.NewFromFloat(cfg.GSTRate))
	q.Summary.GrandTotal = q.Summary.LabourCharges + q.Summary.GSTAmount
	q.AdvancePercent = AdvancePercentFor(len(items))
	q.AdvanceRequired = q.Summary.GrandTotal.Percent(q.AdvancePercent)
	return q, nil
}
