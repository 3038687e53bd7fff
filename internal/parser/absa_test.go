package parser

import (
	"strings"
	"testing"
)

func TestAbsaParser_MultilineWithFee(t *testing.T) {
	p := &AbsaParser{}

	res, err := p.ParseLines([]string{
		"23/02/2023 Atm Payment Fr Killarney  10.00  600.00  54,882.66",
		"           Card No. 5392 Bank Branch",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Transactions) != 1 {
		t.Fatalf("transactions: got %d, want 1", len(res.Transactions))
	}

	tx := res.Transactions[0]
	if tx.Details != "Atm Payment Fr Killarney Card No. 5392 Bank Branch" {
		t.Errorf("details: got %q", tx.Details)
	}
	if !tx.ServiceFee.Equal(dec("10.00")) {
		t.Errorf("service fee: got %s, want 10.00", tx.ServiceFee)
	}
	if !tx.DebitAmount.Equal(dec("600.00")) {
		t.Errorf("debit: got %s, want 600.00", tx.DebitAmount)
	}
	if !tx.CreditAmount.IsZero() {
		t.Errorf("credit: got %s, want 0", tx.CreditAmount)
	}
	if !tx.Balance.Equal(dec("54882.66")) {
		t.Errorf("balance: got %s, want 54882.66", tx.Balance)
	}
	if got := tx.Date.Format("2006-01-02"); got != "2023-02-23" {
		t.Errorf("date: got %s, want 2023-02-23", got)
	}
}

func TestAbsaParser_SpaceThousandsBalance(t *testing.T) {
	p := &AbsaParser{}

	res, err := p.ParseLines([]string{
		"24/02/2023 Deposit Cash  1 500.00  56 382.66",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Transactions) != 1 {
		t.Fatalf("transactions: got %d, want 1: skipped=%v", len(res.Transactions), res.Skipped)
	}

	tx := res.Transactions[0]
	if !tx.CreditAmount.Equal(dec("1500.00")) {
		t.Errorf("credit: got %s, want 1500.00", tx.CreditAmount)
	}
	if !tx.Balance.Equal(dec("56382.66")) {
		t.Errorf("balance: got %s, want 56382.66", tx.Balance)
	}
}

func TestAbsaParser_KeywordRole(t *testing.T) {
	tests := []struct {
		line       string
		wantDebit  string
		wantCredit string
	}{
		{"25/02/2023 Cash Withdrawal Sandton  300.00  56 082.66", "300.00", "0"},
		{"26/02/2023 Salary Credit Acme Ltd  9 000.00  65 082.66", "0", "9000.00"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			p := &AbsaParser{}
			res, err := p.ParseLines([]string{tt.line})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(res.Transactions) != 1 {
				t.Fatalf("transactions: got %d, want 1: skipped=%v", len(res.Transactions), res.Skipped)
			}
			tx := res.Transactions[0]
			if !tx.DebitAmount.Equal(dec(tt.wantDebit)) {
				t.Errorf("debit: got %s, want %s", tx.DebitAmount, tt.wantDebit)
			}
			if !tx.CreditAmount.Equal(dec(tt.wantCredit)) {
				t.Errorf("credit: got %s, want %s", tx.CreditAmount, tt.wantCredit)
			}
		})
	}
}

func TestAbsaParser_AmbiguousColumnsSkipped(t *testing.T) {
	p := &AbsaParser{}

	// Two numeric columns where the first is not smaller than the second
	// cannot be attributed as fee+amount.
	res, err := p.ParseLines([]string{
		"27/02/2023 Payment To Supplier  600.00  10.00  64 482.66",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Transactions) != 0 {
		t.Fatalf("transactions: got %d, want 0", len(res.Transactions))
	}
	if len(res.Skipped) != 1 {
		t.Fatalf("skipped: got %d, want 1", len(res.Skipped))
	}
	if !strings.Contains(res.Skipped[0].Reason, "fee") {
		t.Errorf("skip reason should mention fee attribution: %q", res.Skipped[0].Reason)
	}
}

func TestAbsaParser_NoNumericTokensInDetails(t *testing.T) {
	p := &AbsaParser{}

	res, err := p.ParseLines([]string{
		"28/02/2023 Pos Purchase Grocer 125.50  125.50  64 357.16",
		"           Ref 442.00",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Transactions) != 1 {
		t.Fatalf("transactions: got %d, want 1: skipped=%v", len(res.Transactions), res.Skipped)
	}

	tx := res.Transactions[0]
	for _, field := range strings.Fields(tx.Details) {
		if isAmountGroup(field) {
			t.Errorf("numeric token %q leaked into details %q", field, tx.Details)
		}
	}
	if !tx.DebitAmount.Equal(dec("125.50")) {
		t.Errorf("debit: got %s, want 125.50", tx.DebitAmount)
	}
}

func TestAbsaParser_BalanceOnlyLineSkipped(t *testing.T) {
	p := &AbsaParser{}

	res, err := p.ParseLines([]string{
		"01/03/2023 Balance Brought Forward  64 357.16",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Transactions) != 0 {
		t.Fatalf("transactions: got %d, want 0", len(res.Transactions))
	}
	if len(res.Skipped) != 1 {
		t.Fatalf("skipped: got %d, want 1", len(res.Skipped))
	}
}
