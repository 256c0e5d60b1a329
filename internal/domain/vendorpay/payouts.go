package vendorpay

import (
	"context"

	"glasserp/internal/core/types"
	"glasserp/internal/domain/vendor"
)

// Payout transfer modes.
const (
	TransferIMPS = "IMPS"
	TransferNEFT = "NEFT"
	TransferUPI  = "UPI"
)

// impsLimit is the largest single IMPS transfer.
const impsLimit = types.Paise(5_00_000_00)

// Payout states reported by the payouts API.
const (
	PayoutQueued     = "queued"
	PayoutProcessing = "processing"
	PayoutProcessed  = "processed"
	PayoutReversed   = "reversed"
	PayoutCancelled  = "cancelled"
	PayoutFailed     = "failed"
)

// Beneficiary is where a payout lands.
type Beneficiary struct {
	Name          string
	Email         string
	Mobile        string
	AccountNumber string
	IFSC          string
	VPA           string
}

// PayoutRequest asks the payouts API to move money.
type PayoutRequest struct {
	Amount      types.Paise
	Mode        string
	Purpose     string
	ReferenceID string
	Narration   string
	Beneficiary Beneficiary
}

// PayoutResult is the API's view of a payout.
type PayoutResult struct {
	ID     string
	Status string
	UTR    string
	Mock   bool
}

// Payouts is the outbound payouts API.
type Payouts interface {
	Create(ctx context.Context, req PayoutRequest) (PayoutResult, error)
	Fetch(ctx context.Context, payoutID string) (PayoutResult, error)
}

// beneficiary picks bank transfer when account details exist, else UPI.
func beneficiary(v *vendor.Vendor, amount types.Paise) (Beneficiary, string) {
	b := Beneficiary{Name: v.DisplayName(), Email: v.Email, Mobile: v.Mobile}
	if v.HasBank() {
		b.AccountNumber = *v.BankAccount
		b.IFSC = *v.IFSCCode
		if amount > impsLimit {
			return b, TransferNEFT
		}
		return b, TransferIMPS
	}
	b.VPA = *v.UPIID
	return b, TransferUPI
}
