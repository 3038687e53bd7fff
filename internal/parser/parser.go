package parser

import (
	"fmt"
)

// Bank identifies a supported statement format.
type Bank string

const (
	BankStandard Bank = "standardbank"
	BankFNB      Bank = "fnb"
	BankAbsa     Bank = "absa"
)

// Parser consumes the ordered line sequence of one statement document and
// emits standardized transactions. A parser instance is document-scoped: it
// holds its own accumulation state and must not be reused or shared across
// documents.
type Parser interface {
	// ParseLines runs one pass over the document's lines. Malformed or
	// ambiguous lines are skipped and reported in the result, never fatal.
	ParseLines(lines []string) (*Result, error)
	// BankName returns the human-readable bank name.
	BankName() string
}

// Options carries per-document parser configuration.
type Options struct {
	// Year is the statement year used by formats whose transaction lines
	// carry no year component (Standard Bank "MM DD", FNB "DD Mon").
	Year int
}

// New returns a fresh document-scoped parser for the given bank.
func New(bank Bank, opts Options) (Parser, error) {
	switch bank {
	case BankStandard:
		return &StandardBankParser{year: opts.Year}, nil
	case BankFNB:
		return &FNBParser{year: opts.Year}, nil
	case BankAbsa:
		return &AbsaParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported bank type: %q", bank)
	}
}

// AutoDetect identifies the statement format from its line shapes.
// Standard Bank lines end in a two-part date plus balance; Absa lines lead
// with a DD/MM/YYYY date; FNB lines lead with a DD Mon date and mark
// credits with a Cr suffix.
func AutoDetect(lines []string) (Bank, error) {
	for _, line := range lines {
		trimmed := trimRight(line)
		if standardTxnPattern.MatchString(trimmed) {
			return BankStandard, nil
		}
		if absaLeadDatePattern.MatchString(trimmed) {
			return BankAbsa, nil
		}
		if fnbLeadDatePattern.MatchString(trimmed) {
			return BankFNB, nil
		}
	}
	return "", fmt.Errorf("could not detect statement format from document content; specify the bank explicitly")
}
