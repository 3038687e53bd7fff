package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RejectReason codes why a transaction was routed to the rejection report.
type RejectReason string

const (
	RejectDuplicate       RejectReason = "DUPLICATE"
	RejectOutOfPeriod     RejectReason = "OUT_OF_PERIOD"
	RejectValidationError RejectReason = "VALIDATION_ERROR"
)

// RejectedTransaction carries the original transaction fields plus the
// rejection reason for the upload report.
type RejectedTransaction struct {
	Date         time.Time       `json:"date"`
	Details      string          `json:"details"`
	ServiceFee   decimal.Decimal `json:"serviceFee"`
	DebitAmount  decimal.Decimal `json:"debitAmount"`
	CreditAmount decimal.Decimal `json:"creditAmount"`
	Balance      decimal.Decimal `json:"balance"`
	Reason       RejectReason    `json:"reason"`
	Detail       string          `json:"detail"`
}

// UploadResult is the structured report returned to callers after one
// document has been processed.
type UploadResult struct {
	SourceFile           string                `json:"sourceFile"`
	Bank                 string                `json:"bank"`
	TotalTransactions    int                   `json:"totalTransactions"`
	SavedCount           int                   `json:"savedCount"`
	DuplicateCount       int                   `json:"duplicateCount"`
	OutOfPeriodCount     int                   `json:"outOfPeriodCount"`
	ValidationErrorCount int                   `json:"validationErrorCount"`
	SavedIDs             []string              `json:"savedIds"`
	UnclassifiedIDs      []string              `json:"unclassifiedIds"`
	Rejected             []RejectedTransaction `json:"rejected"`
	SkippedLines         int                   `json:"skippedLines"`
}

// FiscalPeriod is a company's bounded accounting date range. Both ends are
// inclusive.
type FiscalPeriod struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"companyId"`
	Label     string    `json:"label"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
}

// Contains reports whether d falls inside the period, inclusive both ends.
// Dates are compared at day granularity; parsers emit midnight-UTC dates.
func (p *FiscalPeriod) Contains(d time.Time) bool {
	return !d.Before(p.Start) && !d.After(p.End)
}
