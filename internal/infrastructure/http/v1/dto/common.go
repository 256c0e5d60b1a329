// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"glasserp/internal/core/types"
)

// ListQuery holds the reserved list parameters. Every other query parameter
// is treated as a field filter (`status=paid`, `total__gte=1000`).
type ListQuery struct {
	Limit   int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Skip    int    `form:"skip" binding:"omitempty,min=0"`
	Search  string `form:"search"`
	From    string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To      string `form:"to" binding:"omitempty,datetime=2006-01-02"`
	OrderBy string `form:"order_by"`
}

// ReservedListParams are consumed by ListQuery and never become filters.
var ReservedListParams = map[string]struct{}{
	"limit": {}, "skip": {}, "search": {}, "from": {}, "to": {}, "order_by": {},
}

// IDResponse contains just an ID.
type IDResponse struct {
	ID string `json:"id"`
}

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ReasonRequest carries an optional free-text reason.
type ReasonRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// AmountRequest carries a rupee amount.
type AmountRequest struct {
	Amount types.Paise `json:"amount" binding:"required,gt=0"`
}
