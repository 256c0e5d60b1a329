package order

import (
	"fmt"
	"slices"

	"glasserp/internal/core/apperror"
	"glasserp/internal/core/types"
	"glasserp/internal/domain/settings"
)

// UpperBand is the order total up to which MinAdvancePercentUpto5000 applies.
// A total of exactly ₹5000 belongs to that band.
const UpperBand = types.Paise(500_000)

// MinAdvance returns the smallest advance percentage allowed for total.
func MinAdvance(cfg settings.AdvancePayment, total types.Paise) int {
	switch {
	case total <= cfg.NoAdvanceUpto:
		return 100
	case total <= UpperBand:
		return cfg.MinAdvancePercentUpto5000
	default:
		return cfg.MinAdvancePercentAbove5000
	}
}

// AdvanceOptions lists the selectable percentages for total.
func AdvanceOptions(cfg settings.AdvancePayment, total types.Paise) []int {
	minPct := MinAdvance(cfg, total)
	var out []int
	for _, p := range AdvancePercents {
		if p > 0 && p >= minPct {
			out = append(out, p)
		}
	}
	return out
}

// CheckAdvance validates percent against the advance rule. Credit orders
// bypass the rule and always carry a zero advance.
func CheckAdvance(cfg settings.AdvancePayment, total types.Paise, percent int, credit bool) error {
	if credit {
		if percent != 0 {
			return apperror.NewFieldValidation("advance_percent", "Credit orders carry no advance")
		}
		return nil
	}
	if !slices.Contains(AdvancePercents, percent) {
		return apperror.NewFieldValidation("advance_percent", "advance_percent must be one of 0, 25, 50, 75, 100")
	}
	if percent == 0 {
		return apperror.NewFieldValidation("advance_percent", "Only credit orders may skip the advance")
	}
	switch {
	case total <= cfg.NoAdvanceUpto:
		if percent != 100 {
			return apperror.NewFieldValidation("advance_percent",
				fmt.Sprintf("Full payment required for orders below ₹%s", cfg.NoAdvanceUpto.Rupees().String()))
		}
	case total <= UpperBand:
		if percent < cfg.MinAdvancePercentUpto5000 {
			return apperror.NewFieldValidation("advance_percent",
				fmt.Sprintf("Minimum %d%% advance required for orders up to ₹5000", cfg.MinAdvancePercentUpto5000))
		}
	default:
		if percent < cfg.MinAdvancePercentAbove5000 {
			return apperror.NewFieldValidation("advance_percent",
				fmt.Sprintf("Minimum %d%% advance required for orders above ₹5000", cfg.MinAdvancePercentAbove5000))
		}
	}
	return nil
}

// Split divides total into advance and remaining; the two always add up to total.
func Split(total types.Paise, percent int) (advance, remaining types.Paise) {
	advance = total.Percent(percent)
	return advance, total - advance
}
