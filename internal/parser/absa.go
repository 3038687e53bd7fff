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

// AbsaParser handles Absa statement exports.
//
// The format is column-position based: numeric columns are separated by two
// or more spaces, and thousands may be separated by a space or a comma
// ("54 882.66" and "54,882.66" are the same balance). A new-transaction
// line starts at column zero with a DD/MM/YYYY date; continuation lines are
// indented and carry no leading date.
//
// Extraction runs right to left: the last numeric group is always the
// running balance. The remaining numeric groups (0-2 of them) are
// classified by count and relative magnitude: a small value followed by a
// larger one is a service fee plus the principal amount, while a single
// value's debit/credit role comes from description keywords ("withdrawal",
// "payment" imply debit). Numeric suffix tokens are always stripped before
// a description is stored.
type AbsaParser struct {
	used bool
	acc  accumulator
}

func (p *AbsaParser) BankName() string {
	return "Absa"
}

var (
	absaLeadDatePattern = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	columnSplitPattern  = regexp.MustCompile(`\s{2,}`)
)

var absaMarkers = AmountMarkers{DebitSuffix: "-"}

func (p *AbsaParser) ParseLines(lines []string) (*Result, error) {
	if p.used {
		return nil, fmt.Errorf("parser instance is document-scoped and cannot be reused")
	}
	p.used = true

	res := &Result{}
	for i, raw := range lines {
		line := trimRight(raw)
		if strings.TrimSpace(line) == "" {
			continue
		}

		indented := strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
		trimmed := strings.TrimSpace(line)

		if indented || !absaLeadDatePattern.MatchString(trimmed) {
			// Continuation: keep text only, never trailing numeric tokens.
			p.acc.appendContinuation(stripTrailingAmountTokens(trimmed))
			continue
		}

		tx, desc, err := p.extract(trimmed)
		if err != nil {
			res.Skipped = append(res.Skipped, SkippedLine{LineNum: i + 1, Text: trimmed, Reason: err.Error()})
			continue
		}
		tx.SourceReference = fmt.Sprintf("line %d", i+1)
		p.acc.begin(tx, desc)
	}

	p.acc.flush()
	res.Transactions = p.acc.out
	return res, nil
}

func (p *AbsaParser) extract(line string) (models.StandardizedTransaction, string, error) {
	var tx models.StandardizedTransaction

	m := absaLeadDatePattern.FindStringSubmatch(line)
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return tx, "", fmt.Errorf("invalid date %q", m[0])
	}
	tx.Date = dateAt(year, time.Month(month), day)

	rest := strings.TrimSpace(line[len(m[0]):])
	cols := columnSplitPattern.Split(rest, -1)

	// Collect trailing numeric column groups right to left.
	end := len(cols)
	var groups []decimal.Decimal
	for end > 0 {
		col := strings.TrimSpace(cols[end-1])
		if !isAmountGroup(col) {
			break
		}
		d, err := ParseSignedAmount(col, absaMarkers)
		if err != nil {
			return tx, "", err
		}
		groups = append([]decimal.Decimal{d}, groups...)
		end--
	}

	if len(groups) == 0 {
		return tx, "", &models.ParseAmbiguityError{Line: line, Reason: "no numeric columns on transaction line"}
	}

	desc := stripTrailingAmountTokens(strings.TrimSpace(strings.Join(cols[:end], " ")))
	if desc == "" {
		return tx, "", &models.ParseAmbiguityError{Line: line, Reason: "line has no description text"}
	}

	// The last group is always the running balance.
	tx.Balance = groups[len(groups)-1]
	rest2 := groups[:len(groups)-1]

	switch len(rest2) {
	case 0:
		// Balance-only row (brought forward etc.), not a transaction.
		return tx, "", &models.ParseAmbiguityError{Line: line, Reason: "balance-only line"}
	case 1:
		p.assignByKeyword(&tx, rest2[0].Abs(), desc)
	case 2:
		// Small value followed by a larger one reads as fee + principal.
		// Anything else cannot be attributed safely and goes to review.
		if rest2[0].Abs().LessThan(rest2[1].Abs()) {
			tx.ServiceFee = rest2[0].Abs()
			p.assignByKeyword(&tx, rest2[1].Abs(), desc)
		} else {
			return tx, "", &models.ParseAmbiguityError{
				Line:   line,
				Reason: "two numeric columns with non-increasing magnitude; cannot attribute fee vs amount",
			}
		}
	default:
		return tx, "", &models.ParseAmbiguityError{Line: line, Reason: "too many numeric columns"}
	}

	return tx, desc, nil
}

// assignByKeyword sets the principal amount's side from the same-line
// description.
func (p *AbsaParser) assignByKeyword(tx *models.StandardizedTransaction, amt decimal.Decimal, desc string) {
	if isDebitDescription(desc) && !isCreditDescription(desc) {
		tx.DebitAmount = amt
		return
	}
	if isCreditDescription(desc) {
		tx.CreditAmount = amt
		return
	}
	// No keyword signal either way; treat as money in, which matches how
	// unlabelled single-amount deposit rows appear in this format.
	tx.CreditAmount = amt
}
