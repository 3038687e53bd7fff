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

// StandardBankParser handles Standard Bank statement exports.
//
// Column order: details | service fee | debit or credit | date | balance.
// A trailing "-" on an amount marks a debit; a bare amount is a credit. A
// "##" token after an amount marks it as a bank service fee. The date is a
// two-part "MM DD" token pair carrying no year, so the statement year is
// supplied per document.
//
// Example line: "IMMEDIATE PAYMENT 1,310.00- 03 16 24,106.81"
type StandardBankParser struct {
	year int
	used bool
	acc  accumulator
}

func (p *StandardBankParser) BankName() string {
	return "Standard Bank"
}

// A new-transaction line ends in the two-part date plus balance.
var standardTxnPattern = regexp.MustCompile(
	`^(.+?)\s+(\d{2}) (\d{2})\s+([\d,]+\.\d{2}-?)$`,
)

var standardMarkers = AmountMarkers{DebitSuffix: "-"}

func (p *StandardBankParser) ParseLines(lines []string) (*Result, error) {
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

		m := standardTxnPattern.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			// Continuation line; dropped when nothing is accumulating.
			p.acc.appendContinuation(line)
			continue
		}

		tx, desc, err := p.extract(m)
		if err != nil {
			res.Skipped = append(res.Skipped, SkippedLine{
				LineNum: i + 1, Text: strings.TrimSpace(line), Reason: err.Error(),
			})
			continue
		}
		tx.SourceReference = fmt.Sprintf("line %d", i+1)
		p.acc.begin(tx, desc)
	}

	p.acc.flush()
	res.Transactions = p.acc.out
	return res, nil
}

// extract reads a matched new-transaction line into a transaction plus the
// first description fragment.
func (p *StandardBankParser) extract(m []string) (models.StandardizedTransaction, string, error) {
	var tx models.StandardizedTransaction

	mm, _ := strconv.Atoi(m[2])
	dd, _ := strconv.Atoi(m[3])
	if mm > 12 && dd <= 12 {
		mm, dd = dd, mm
	}
	if mm < 1 || mm > 12 || dd < 1 || dd > 31 {
		return tx, "", fmt.Errorf("invalid two-part date %q", m[2]+" "+m[3])
	}
	year := p.year
	if year == 0 {
		year = time.Now().Year()
	}
	tx.Date = dateAt(year, time.Month(mm), dd)

	bal, err := ParseSignedAmount(m[4], standardMarkers)
	if err != nil {
		return tx, "", err
	}
	tx.Balance = bal

	// Peel amount and fee tokens off the right of the details segment.
	fields := strings.Fields(m[1])
	type parsed struct {
		amount decimal.Decimal
		role   Role
		isFee  bool
	}
	var tail []parsed
	end := len(fields)
	for end > 0 {
		tok := fields[end-1]
		if tok == "##" {
			// Marker follows the fee amount it tags.
			if end < 2 {
				return tx, "", &models.ParseAmbiguityError{Line: m[0], Reason: "dangling ## service fee marker"}
			}
			amt, _, err := ParseAmountToken(fields[end-2], standardMarkers)
			if err != nil {
				return tx, "", err
			}
			tail = append(tail, parsed{amount: amt, isFee: true})
			end -= 2
			continue
		}
		if strings.HasSuffix(tok, "##") {
			amt, _, err := ParseAmountToken(strings.TrimSuffix(tok, "##"), standardMarkers)
			if err != nil {
				return tx, "", err
			}
			tail = append(tail, parsed{amount: amt, isFee: true})
			end--
			continue
		}
		amt, role, err := ParseAmountToken(tok, standardMarkers)
		if err != nil {
			break
		}
		tail = append(tail, parsed{amount: amt, role: role})
		end--
	}

	principal := 0
	for _, pt := range tail {
		if pt.isFee {
			tx.ServiceFee = pt.amount
			continue
		}
		principal++
		if principal > 1 {
			return tx, "", &models.ParseAmbiguityError{Line: m[0], Reason: "more than one principal amount on line"}
		}
		if pt.role == RoleDebit {
			tx.DebitAmount = pt.amount
		} else {
			tx.CreditAmount = pt.amount
		}
	}

	desc := strings.Join(fields[:end], " ")
	if strings.TrimSpace(desc) == "" {
		return tx, "", &models.ParseAmbiguityError{Line: m[0], Reason: "line has no description text"}
	}
	return tx, desc, nil
}
