package parser

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ledgerkeep/statement-ledger/internal/models"
)

// Role is the debit/credit role inferred from an amount token's trailing
// sign marker, so callers never re-parse the suffix.
type Role int

const (
	RoleNone Role = iota
	RoleDebit
	RoleCredit
)

// AmountMarkers configures the trailing sign markers a bank variant uses.
// Standard Bank marks debits with "-"; FNB marks credits with "Cr".
type AmountMarkers struct {
	DebitSuffix  string
	CreditSuffix string
}

// bareAmountPattern matches a fully-normalized amount: digits with exactly
// two fractional digits, optional leading minus.
var bareAmountPattern = regexp.MustCompile(`^-?\d+\.\d{2}$`)

// ParseAmountToken parses a locale-variant numeric token into an exact
// two-decimal magnitude plus its inferred role. Interior spaces and commas
// used as thousands separators are stripped ("54 882.66" and "54,882.66"
// both parse to 54882.66). Tokens without exactly two fractional digits, or
// with non-numeric residue after stripping, fail with MalformedAmountError.
func ParseAmountToken(token string, markers AmountMarkers) (decimal.Decimal, Role, error) {
	raw := token
	s := strings.TrimSpace(token)

	role := RoleNone
	if markers.CreditSuffix != "" && strings.HasSuffix(s, markers.CreditSuffix) {
		role = RoleCredit
		s = strings.TrimSpace(strings.TrimSuffix(s, markers.CreditSuffix))
	} else if markers.DebitSuffix != "" && strings.HasSuffix(s, markers.DebitSuffix) {
		role = RoleDebit
		s = strings.TrimSpace(strings.TrimSuffix(s, markers.DebitSuffix))
	}

	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")

	if !bareAmountPattern.MatchString(s) {
		return decimal.Zero, RoleNone, &models.MalformedAmountError{Token: raw}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, RoleNone, &models.MalformedAmountError{Token: raw}
	}
	return d, role, nil
}

// ParseSignedAmount parses a balance-style token where the debit suffix (or
// a leading minus) means a negative value. The returned decimal carries the
// sign; there is no role.
func ParseSignedAmount(token string, markers AmountMarkers) (decimal.Decimal, error) {
	d, role, err := ParseAmountToken(token, markers)
	if err != nil {
		return decimal.Zero, err
	}
	if role == RoleDebit && d.IsPositive() {
		d = d.Neg()
	}
	return d, nil
}
