package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerkeep/statement-ledger/internal/models"
)

// FNBParser handles FNB statement exports.
//
// A new-transaction line begins with a "DD Mon" date token. Credits carry a
// trailing "Cr" suffix; a bare amount is a debit. The last amount on a line
// is the running balance. A leading "#" marks a bank-charge line that
// carries no date of its own and inherits the date of the previous
// transaction.
//
// Example line: "02 Apr Magtape Credit Salary Payment 7,500.00Cr 5,969.38Cr"
type FNBParser struct {
	year int
	used bool
	acc  accumulator

	// currentDate is the date of the last dated line, inherited by
	// "#" bank-charge lines.
	currentDate time.Time
}

func (p *FNBParser) BankName() string {
	return "FNB"
}

var fnbLeadDatePattern = regexp.MustCompile(
	`(?i)^(\d{1,2})\s+(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\b`,
)

// fnbMarkers: "Cr" marks credits; "Dr" appears only on overdrawn balances.
var fnbMarkers = AmountMarkers{CreditSuffix: "Cr", DebitSuffix: "Dr"}

func (p *FNBParser) ParseLines(lines []string) (*Result, error) {
	if p.used {
		return nil, fmt.Errorf("parser instance is document-scoped and cannot be reused")
	}
	p.used = true

	res := &Result{}
	for i, raw := range lines {
		line := strings.TrimSpace(trimRight(raw))
		if line == "" {
			continue
		}

		switch {
		case fnbLeadDatePattern.MatchString(line):
			tx, desc, err := p.extractDated(line)
			if err != nil {
				res.Skipped = append(res.Skipped, SkippedLine{LineNum: i + 1, Text: line, Reason: err.Error()})
				continue
			}
			tx.SourceReference = fmt.Sprintf("line %d", i+1)
			p.currentDate = tx.Date
			p.acc.begin(tx, desc)

		case strings.HasPrefix(line, "#"):
			tx, desc, err := p.extractCharge(line)
			if err != nil {
				res.Skipped = append(res.Skipped, SkippedLine{LineNum: i + 1, Text: line, Reason: err.Error()})
				continue
			}
			tx.SourceReference = fmt.Sprintf("line %d", i+1)
			p.acc.begin(tx, desc)

		default:
			p.acc.appendContinuation(line)
		}
	}

	p.acc.flush()
	res.Transactions = p.acc.out
	return res, nil
}

func (p *FNBParser) extractDated(line string) (models.StandardizedTransaction, string, error) {
	var tx models.StandardizedTransaction

	m := fnbLeadDatePattern.FindStringSubmatch(line)
	day, _ := strconv.Atoi(m[1])
	month, ok := parseMonthName(m[2])
	if !ok || day < 1 || day > 31 {
		return tx, "", fmt.Errorf("invalid date token %q", m[0])
	}
	year := p.year
	if year == 0 {
		year = time.Now().Year()
	}
	tx.Date = dateAt(year, month, day)

	rest := strings.TrimSpace(line[len(m[0]):])
	desc, amounts, roles := peelTrailingAmounts(rest, fnbMarkers)

	switch len(amounts) {
	case 0, 1:
		// A lone amount is a balance-only row (brought forward etc.),
		// not a transaction.
		return tx, "", &models.ParseAmbiguityError{Line: line, Reason: "no principal amount on line"}
	case 2:
		p.assignPrincipal(&tx, amounts[0], roles[0])
		tx.Balance = fnbBalance(amounts[1], roles[1])
	case 3:
		tx.ServiceFee = amounts[0]
		p.assignPrincipal(&tx, amounts[1], roles[1])
		tx.Balance = fnbBalance(amounts[2], roles[2])
	default:
		return tx, "", &models.ParseAmbiguityError{Line: line, Reason: "too many amount columns"}
	}

	if strings.TrimSpace(desc) == "" {
		return tx, "", &models.ParseAmbiguityError{Line: line, Reason: "line has no description text"}
	}
	return tx, desc, nil
}

// extractCharge handles "#"-prefixed bank-charge lines. The charge amount
// is recorded as a standalone service fee against the inherited date.
func (p *FNBParser) extractCharge(line string) (models.StandardizedTransaction, string, error) {
	var tx models.StandardizedTransaction
	if p.currentDate.IsZero() {
		return tx, "", &models.ParseAmbiguityError{Line: line, Reason: "bank-charge line before any dated transaction"}
	}
	tx.Date = p.currentDate

	rest := strings.TrimSpace(strings.TrimPrefix(line, "#"))
	desc, amounts, roles := peelTrailingAmounts(rest, fnbMarkers)

	switch len(amounts) {
	case 1:
		tx.ServiceFee = amounts[0]
	case 2:
		tx.ServiceFee = amounts[0]
		tx.Balance = fnbBalance(amounts[1], roles[1])
	default:
		return tx, "", &models.ParseAmbiguityError{Line: line, Reason: "bank-charge line without a single fee amount"}
	}

	if strings.TrimSpace(desc) == "" {
		return tx, "", &models.ParseAmbiguityError{Line: line, Reason: "line has no description text"}
	}
	return tx, desc, nil
}

func (p *FNBParser) assignPrincipal(tx *models.StandardizedTransaction, amt decimal.Decimal, role Role) {
	if role == RoleCredit {
		tx.CreditAmount = amt
	} else {
		tx.DebitAmount = amt
	}
}

// fnbBalance applies the suffix convention to the running balance: "Cr"
// (or no suffix) is positive, "Dr" is overdrawn.
func fnbBalance(amt decimal.Decimal, role Role) decimal.Decimal {
	if role == RoleDebit {
		return amt.Neg()
	}
	return amt
}

// peelTrailingAmounts strips amount tokens off the right of a line segment,
// returning the remaining description plus the amounts in column order.
func peelTrailingAmounts(segment string, markers AmountMarkers) (string, []decimal.Decimal, []Role) {
	fields := strings.Fields(segment)
	end := len(fields)

	var amounts []decimal.Decimal
	var roles []Role
	for end > 0 {
		amt, role, err := ParseAmountToken(fields[end-1], markers)
		if err != nil {
			break
		}
		amounts = append([]decimal.Decimal{amt}, amounts...)
		roles = append([]Role{role}, roles...)
		end--
	}
	return strings.Join(fields[:end], " "), amounts, roles
}
