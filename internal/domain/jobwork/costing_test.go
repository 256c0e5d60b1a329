package jobwork

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glasserp/internal/core/apperror"
	"glasserp/internal/core/types"
	"glasserp/internal/domain/settings"
)

func TestCalculate_MultiItem(t *testing.T) {
	q, err := Calculate(settings.DefaultJobWorkPricing(), []Item{
		{ThicknessMM: 6, WidthInch: 24, HeightInch: 36, Quantity: 2},
		{ThicknessMM: 8, WidthInch: 30, HeightInch: 40, Quantity: 1},
	})
	require.NoError(t, err)

	assert.Equal(t, 6.0, q.Items[0].AreaSqft)
	assert.Equal(t, 12.0, q.Items[0].TotalSqft)
	assert.Equal(t, types.Paise(14400), q.Items[0].LabourCost)
	assert.Equal(t, 8.33, q.Items[1].AreaSqft)
	assert.Equal(t, types.Paise(12500), q.Items[1].LabourCost)

	assert.Equal(t, types.Paise(26900), q.Summary.LabourCharges)
	assert.Equal(t, types.Paise(4842), q.Summary.GSTAmount)
	assert.Equal(t, types.Paise(31742), q.Summary.GrandTotal)
	assert.Equal(t, 3, q.Summary.TotalPieces)
	assert.Equal(t, 50, q.AdvancePercent)
	assert.Equal(t, types.Paise(15871), q.AdvanceRequired)
}

func TestCalculate_SingleItemNeedsFullAdvance(t *testing.T) {
	q, err := Calculate(settings.DefaultJobWorkPricing(), []Item{
		{ThicknessMM: 8, WidthInch: 12, HeightInch: 12, Quantity: 4},
	})
	require.NoError(t, err)

	assert.Equal(t, 100, q.AdvancePercent)
	assert.Equal(t, q.Summary.GrandTotal, q.AdvanceRequired)
}

func TestCalculate_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		items []Item
		field string
	}{
		{"empty", nil, "items"},
		{"zero width", []Item{{ThicknessMM: 6, HeightInch: 10, Quantity: 1}}, "items[0]"},
		{"zero quantity", []Item{{ThicknessMM: 6, WidthInch: 10, HeightInch: 10}}, "items[0].quantity"},
		{"unknown thickness", []Item{{ThicknessMM: 7, WidthInch: 10, HeightInch: 10, Quantity: 1}}, "items[0].thickness_mm"},
		{"bad cutout", []Item{{ThicknessMM: 6, WidthInch: 10, HeightInch: 10, Quantity: 1, Cutouts: []Cutout{{Shape: "circle"}}}}, "items[0].cutouts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Calculate(settings.DefaultJobWorkPricing(), tt.items)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
			assert.Equal(t, tt.field, appErr.Details["field"])
		})
	}
}

func TestFlow(t *testing.T) {
	assert.True(t, Flow.Allows(StatusPending, StatusAccepted))
	assert.True(t, Flow.Allows(StatusInProcess, StatusCancelled))
	assert.False(t, Flow.Allows(StatusPending, StatusInProcess))
	assert.False(t, Flow.Allows(StatusDelivered, StatusCancelled))
	assert.True(t, Flow.IsTerminal(StatusDelivered))

	_, ok := ParseStatus("in_process")
	assert.True(t, ok)
	_, ok = ParseStatus("done")
	assert.False(t, ok)
}
