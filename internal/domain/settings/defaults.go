package settings

import "glasserp/internal/core/types"

// DefaultAdvancePayment is used until an admin saves the document.
func DefaultAdvancePayment() AdvancePayment {
	return AdvancePayment{
		NoAdvanceUpto:              types.PaiseFromRupees(2000),
		MinAdvancePercentUpto5000:  50,
		MinAdvancePercentAbove5000: 25,
		CreditEnabled:              true,
	}
}

// DefaultGST uses the configured company state code.
func DefaultGST(companyStateCode string) GST {
	return GST{
		CompanyStateCode: companyStateCode,
		DefaultGSTRate:   18,
		InvoicePrefix:    "INV",
		HSNCodes: []HSNCode{
			{Code: "7003", Description: "Cast and rolled glass", GSTRate: 18},
			{Code: "7004", Description: "Drawn and blown glass", GSTRate: 18},
			{Code: "7005", Description: "Float glass", GSTRate: 18},
			{Code: "7007", Description: "Safety glass (toughened, laminated)", GSTRate: 18},
			{Code: "7008", Description: "Multiple-walled insulating units", GSTRate: 18},
			{Code: "7009", Description: "Glass mirrors", GSTRate: 18},
			{Code: "7016", Description: "Glass blocks and paving", GSTRate: 18},
			{Code: "9988", Description: "Job work on glass", GSTRate: 18},
		},
	}
}

// DefaultJobWorkPricing holds rupees per square foot by thickness.
func DefaultJobWorkPricing() JobWorkPricing {
	return JobWorkPricing{
		LabourRates: map[string]types.Paise{
			"4":  types.PaiseFromRupees(8),
			"5":  types.PaiseFromRupees(10),
			"6":  types.PaiseFromRupees(12),
			"8":  types.PaiseFromRupees(15),
			"10": types.PaiseFromRupees(18),
			"12": types.PaiseFromRupees(22),
			"15": types.PaiseFromRupees(28),
			"19": types.PaiseFromRupees(35),
		},
		GSTRate: 18,
	}
}

// DefaultWallet disables referral rewards.
func DefaultWallet() Wallet {
	return Wallet{
		ReferralBonus:       types.PaiseFromRupees(100),
		RefereeBonus:        types.PaiseFromRupees(50),
		CashbackPercent:     1,
		MaxCashbackPerOrder: types.PaiseFromRupees(500),
		MinOrderForCashback: types.PaiseFromRupees(5000),
	}
}

// DefaultTransport uses a factory in Mumbai.
func DefaultTransport() Transport {
	return Transport{
		BaseCharge:      types.PaiseFromRupees(500),
		BaseKM:          10,
		PerKMRate:       types.PaiseFromRupees(25),
		PerSqftRate:     types.PaiseFromRupees(2),
		GSTPercent:      18,
		FactoryLocation: Location{Lat: 19.0760, Lng: 72.8777},
	}
}
