package parser

import (
	"regexp"
	"strings"
	"time"
)

// Shared date and keyword helpers used across the bank variants.

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// parseMonthName resolves a three-letter (or longer) month name.
func parseMonthName(name string) (time.Month, bool) {
	key := strings.ToLower(name)
	if len(key) > 3 {
		key = key[:3]
	}
	m, ok := months[key]
	return m, ok
}

// amountGroupPattern matches one numeric column group: digits with comma or
// single-space thousands separators, exactly two fractional digits, and an
// optional leading or trailing minus.
var amountGroupPattern = regexp.MustCompile(`^-?\d{1,3}(?:[ ,]\d{3})*\.\d{2}-?$|^-?\d+\.\d{2}-?$`)

// isAmountGroup reports whether a whitespace-trimmed field is an amount
// column group.
func isAmountGroup(field string) bool {
	return amountGroupPattern.MatchString(strings.TrimSpace(field))
}

func trimRight(s string) string {
	return strings.TrimRight(s, " \t\r")
}

// Debit/credit keyword heuristics for formats that carry no sign marker.

var debitKeywords = []string{
	"withdrawal", "payment", "debit", "purchase", "cheque", "atm",
	"fee", "charge", "transfer out", "insurance", "pos ",
}

var creditKeywords = []string{
	"deposit", "credit", "salary", "refund", "interest received",
	"transfer in", "reversal",
}

// isDebitDescription reports whether a description reads like money out.
func isDebitDescription(desc string) bool {
	lower := strings.ToLower(desc)
	for _, kw := range debitKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// isCreditDescription reports whether a description reads like money in.
func isCreditDescription(desc string) bool {
	lower := strings.ToLower(desc)
	for _, kw := range creditKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// stripTrailingAmountTokens removes amount-shaped tokens from the end of a
// description fragment so numeric columns never leak into stored details.
func stripTrailingAmountTokens(s string) string {
	fields := strings.Fields(s)
	for len(fields) > 0 {
		last := fields[len(fields)-1]
		if isAmountGroup(last) || last == "##" || strings.HasSuffix(last, "##") && isAmountGroup(strings.TrimSuffix(last, "##")) {
			fields = fields[:len(fields)-1]
			continue
		}
		break
	}
	return strings.Join(fields, " ")
}

// dateAt returns a midnight-UTC date.
func dateAt(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
