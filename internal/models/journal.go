package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// JournalEntry is a balanced double-entry posting for one transaction.
// An entry owns exactly two lines: one debit and one credit of equal amount.
type JournalEntry struct {
	ID            string             `json:"id"`
	CompanyID     string             `json:"companyId"`
	TransactionID string             `json:"transactionId"`
	Date          time.Time          `json:"date"`
	Description   string             `json:"description"`
	Reference     string             `json:"reference"`
	Lines         []JournalEntryLine `json:"lines"`
}

// JournalEntryLine is one side of a posting. Exactly one of Debit/Credit
// is non-zero.
type JournalEntryLine struct {
	AccountCode string          `json:"accountCode"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// Validate enforces the double-entry invariant: two lines, one debit and
// one credit, equal amounts.
func (e *JournalEntry) Validate() error {
	if len(e.Lines) != 2 {
		return fmt.Errorf("journal entry must have exactly 2 lines, has %d", len(e.Lines))
	}
	debitTotal := decimal.Zero
	creditTotal := decimal.Zero
	for _, l := range e.Lines {
		if l.Debit.IsPositive() && l.Credit.IsPositive() {
			return fmt.Errorf("journal line on %s has both debit and credit", l.AccountCode)
		}
		debitTotal = debitTotal.Add(l.Debit)
		creditTotal = creditTotal.Add(l.Credit)
	}
	if !debitTotal.Equal(creditTotal) {
		return fmt.Errorf("journal entry unbalanced: debit %s != credit %s", debitTotal, creditTotal)
	}
	if debitTotal.IsZero() {
		return fmt.Errorf("journal entry has zero amount")
	}
	return nil
}

// DebitLine returns the debit side of the entry, or nil.
func (e *JournalEntry) DebitLine() *JournalEntryLine {
	for i := range e.Lines {
		if e.Lines[i].Debit.IsPositive() {
			return &e.Lines[i]
		}
	}
	return nil
}

// CreditLine returns the credit side of the entry, or nil.
func (e *JournalEntry) CreditLine() *JournalEntryLine {
	for i := range e.Lines {
		if e.Lines[i].Credit.IsPositive() {
			return &e.Lines[i]
		}
	}
	return nil
}
