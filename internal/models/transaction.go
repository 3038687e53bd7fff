package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// StandardizedTransaction is the parser's sole output unit: one statement
// row with its multiline description already accumulated. It is created by
// a parser during a single document pass and is immutable afterwards.
type StandardizedTransaction struct {
	Date            time.Time       `json:"date"`
	Details         string          `json:"details"`
	ServiceFee      decimal.Decimal `json:"serviceFee"`
	DebitAmount     decimal.Decimal `json:"debitAmount"`
	CreditAmount    decimal.Decimal `json:"creditAmount"`
	Balance         decimal.Decimal `json:"balance"`
	SourceReference string          `json:"sourceReference"`
}

// Validate checks the required-field and amount invariants: the date must be
// set, the details non-empty, amounts non-negative, and at most one of
// debit/credit non-zero. A row carrying only a standalone service fee may
// have both at zero.
func (t *StandardizedTransaction) Validate() error {
	if t.Date.IsZero() {
		return &ValidationError{Field: "date", Message: "transaction date is required"}
	}
	if strings.TrimSpace(t.Details) == "" {
		return &ValidationError{Field: "details", Message: "transaction description is required"}
	}
	if t.DebitAmount.IsNegative() || t.CreditAmount.IsNegative() || t.ServiceFee.IsNegative() {
		return &ValidationError{Field: "amount", Message: "amounts must be non-negative"}
	}
	if t.DebitAmount.IsPositive() && t.CreditAmount.IsPositive() {
		return &ValidationError{Field: "amount", Message: "debit and credit cannot both be non-zero"}
	}
	if t.DebitAmount.IsZero() && t.CreditAmount.IsZero() && t.ServiceFee.IsZero() {
		return &ValidationError{Field: "amount", Message: "transaction carries no amount"}
	}
	return nil
}

// Amount returns the transaction's principal amount: whichever of debit or
// credit is non-zero, or the service fee for a standalone fee row.
func (t *StandardizedTransaction) Amount() decimal.Decimal {
	if t.DebitAmount.IsPositive() {
		return t.DebitAmount
	}
	if t.CreditAmount.IsPositive() {
		return t.CreditAmount
	}
	return t.ServiceFee
}

// SavedTransaction is a StandardizedTransaction after the persistence
// gateway accepted it.
type SavedTransaction struct {
	ID             string    `json:"id"`
	CompanyID      string    `json:"companyId"`
	FiscalPeriodID string    `json:"fiscalPeriodId"`
	UploadedAt     time.Time `json:"uploadedAt"`
	StandardizedTransaction
}

// DocumentMeta identifies the statement document being processed.
type DocumentMeta struct {
	CompanyID      string
	FiscalPeriodID string
	SourceFile     string
}
