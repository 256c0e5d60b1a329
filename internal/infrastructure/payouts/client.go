// Package payouts is the client of the outbound payouts API used to pay
// vendors. Mock mode short-circuits the API with synthetic payouts.
package payouts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"glasserp/internal/domain/vendorpay"
)

var tracer = otel.Tracer("glasserp/payouts")

// Config configures the payouts client.
type Config struct {
	BaseURL       string
	KeyID         string
	KeySecret     string
	AccountNumber string
	Timeout       time.Duration
}

// Client implements vendorpay.Payouts over the payouts REST API.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a live payouts client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

type contact struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Contact string `json:"contact,omitempty"`
	Type    string `json:"type"`
}

type bankAccount struct {
	Name          string `json:"name"`
	IFSC          string `json:"ifsc"`
	AccountNumber string `json:"account_number"`
}

type vpa struct {
	Address string `json:"address"`
}

type fundAccount struct {
	AccountType string       `json:"account_type"`
	BankAccount *bankAccount `json:"bank_account,omitempty"`
	VPA         *vpa         `json:"vpa,omitempty"`
	Contact     contact      `json:"contact"`
}

type payoutRequest struct {
	AccountNumber     string      `json:"account_number"`
	FundAccount       fundAccount `json:"fund_account"`
	Amount            int64       `json:"amount"`
	Currency          string      `json:"currency"`
	Mode              string      `json:"mode"`
	Purpose           string      `json:"purpose"`
	QueueIfLowBalance bool        `json:"queue_if_low_balance"`
	ReferenceID       string      `json:"reference_id"`
	Narration         string      `json:"narration,omitempty"`
}

type payoutResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	UTR    string `json:"utr"`
}

// Create asks the API to move money to the beneficiary.
func (c *Client) Create(ctx context.Context, req vendorpay.PayoutRequest) (vendorpay.PayoutResult, error) {
	ctx, span := tracer.Start(ctx, "payouts.create")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("amount_paise", int64(req.Amount)),
		attribute.String("mode", req.Mode),
		attribute.String("reference_id", req.ReferenceID),
	)

	body := payoutRequest{
		AccountNumber:     c.cfg.AccountNumber,
		FundAccount:       toFundAccount(req.Beneficiary),
		Amount:            int64(req.Amount),
		Currency:          "INR",
		Mode:              req.Mode,
		Purpose:           purpose(req.Purpose),
		QueueIfLowBalance: true,
		ReferenceID:       req.ReferenceID,
		Narration:         narration(req.Narration),
	}
	var resp payoutResponse
	if err := c.do(ctx, http.MethodPost, "/payouts", body, &resp); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return vendorpay.PayoutResult{}, err
	}
	return vendorpay.PayoutResult{ID: resp.ID, Status: resp.Status, UTR: resp.UTR}, nil
}

// Fetch reads the current state of a payout.
func (c *Client) Fetch(ctx context.Context, payoutID string) (vendorpay.PayoutResult, error) {
	ctx, span := tracer.Start(ctx, "payouts.fetch")
	defer span.End()
	span.SetAttributes(attribute.String("payout_id", payoutID))

	var resp payoutResponse
	if err := c.do(ctx, http.MethodGet, "/payouts/"+url.PathEscape(payoutID), nil, &resp); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return vendorpay.PayoutResult{}, err
	}
	return vendorpay.PayoutResult{ID: resp.ID, Status: resp.Status, UTR: resp.UTR}, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if c.cfg.KeyID == "" || c.cfg.KeySecret == "" {
		return fmt.Errorf("payout credentials are not configured")
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode payout request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("build payout request: %w", err)
	}
	req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("payouts request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("payouts api error %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode payout response: %w", err)
	}
	return nil
}

func toFundAccount(b vendorpay.Beneficiary) fundAccount {
	fa := fundAccount{Contact: contact{Name: b.Name, Email: b.Email, Contact: b.Mobile, Type: "vendor"}}
	if b.AccountNumber != "" {
		fa.AccountType = "bank_account"
		fa.BankAccount = &bankAccount{Name: b.Name, IFSC: b.IFSC, AccountNumber: b.AccountNumber}
		return fa
	}
	fa.AccountType = "vpa"
	fa.VPA = &vpa{Address: b.VPA}
	return fa
}

func purpose(p string) string {
	if p == "" {
		return "vendor bill"
	}
	return p
}

// narration is limited to 30 alphanumerics and spaces by the API.
func narration(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == ' ' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
		if b.Len() == 30 {
			break
		}
	}
	return b.String()
}
