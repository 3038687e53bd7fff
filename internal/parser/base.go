package parser

import (
	"strings"

	"github.com/ledgerkeep/statement-ledger/internal/models"
)

// The multiline accumulation base shared by every bank variant.
//
// A parser walks the document's lines in order, classifying each line as
// either the start of a new transaction or a continuation of the pending
// one. The accumulator holds the pending transaction and its description
// buffer; a new-transaction line finalizes the pending transaction before
// starting the next, and the end of the stream flushes whatever is pending.
// Continuation lines seen while nothing is pending cannot belong to any
// transaction and are discarded.

// SkippedLine records a line the parser could not use, for manual review.
type SkippedLine struct {
	LineNum int    `json:"lineNum"`
	Text    string `json:"text"`
	Reason  string `json:"reason"`
}

// Result is the output of one document pass.
type Result struct {
	Transactions []models.StandardizedTransaction
	Skipped      []SkippedLine
}

// accumulator carries the IDLE/ACCUMULATING state for one document pass.
// A zero accumulator is IDLE.
type accumulator struct {
	pending   *models.StandardizedTransaction
	descParts []string
	out       []models.StandardizedTransaction
}

func (a *accumulator) accumulating() bool {
	return a.pending != nil
}

// begin finalizes any pending transaction and starts accumulating a new one
// whose description begins with desc.
func (a *accumulator) begin(tx models.StandardizedTransaction, desc string) {
	a.flush()
	a.pending = &tx
	a.descParts = a.descParts[:0]
	if d := strings.TrimSpace(desc); d != "" {
		a.descParts = append(a.descParts, d)
	}
}

// appendContinuation adds a trimmed continuation line to the description
// buffer. Lines arriving while IDLE are dropped.
func (a *accumulator) appendContinuation(line string) {
	if !a.accumulating() {
		return
	}
	if d := strings.TrimSpace(line); d != "" {
		a.descParts = append(a.descParts, d)
	}
}

// flush finalizes the pending transaction, joining the accumulated
// description parts with single spaces.
func (a *accumulator) flush() {
	if !a.accumulating() {
		return
	}
	a.pending.Details = strings.Join(a.descParts, " ")
	a.out = append(a.out, *a.pending)
	a.pending = nil
	a.descParts = a.descParts[:0]
}
