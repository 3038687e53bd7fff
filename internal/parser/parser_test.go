package parser

import (
	"testing"
)

func TestAutoDetect(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  Bank
	}{
		{
			name:  "standard bank two-part date tail",
			lines: []string{"STATEMENT", "IMMEDIATE PAYMENT 1,310.00- 03 16 24,106.81"},
			want:  BankStandard,
		},
		{
			name:  "fnb leading short date",
			lines: []string{"Cheque Account Statement", "02 Apr Magtape Credit 7,500.00Cr 5,969.38Cr"},
			want:  BankFNB,
		},
		{
			name:  "absa leading slash date",
			lines: []string{"Cheque Account", "23/02/2023 Atm Payment Fr Killarney  10.00  600.00  54,882.66"},
			want:  BankAbsa,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AutoDetect(tt.lines)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAutoDetect_Unknown(t *testing.T) {
	_, err := AutoDetect([]string{"just some text", "no transactions here"})
	if err == nil {
		t.Fatal("expected detection failure")
	}
}

func TestNew_FreshInstancePerDocument(t *testing.T) {
	for _, bank := range []Bank{BankStandard, BankFNB, BankAbsa} {
		a, err := New(bank, Options{Year: 2024})
		if err != nil {
			t.Fatalf("New(%q): %v", bank, err)
		}
		b, err := New(bank, Options{Year: 2024})
		if err != nil {
			t.Fatalf("New(%q): %v", bank, err)
		}
		if a == b {
			t.Errorf("New(%q) returned a shared instance", bank)
		}
		if _, err := a.ParseLines(nil); err != nil {
			t.Fatalf("first pass on %q: %v", bank, err)
		}
		if _, err := a.ParseLines(nil); err == nil {
			t.Errorf("reusing a %q parser should fail", bank)
		}
		if _, err := b.ParseLines(nil); err != nil {
			t.Errorf("fresh %q instance should be unaffected: %v", bank, err)
		}
	}
}

func TestNew_UnsupportedBank(t *testing.T) {
	if _, err := New("monzo", Options{}); err == nil {
		t.Fatal("expected error for unsupported bank")
	}
}

func TestInvariant_DebitCreditNeverBothSet(t *testing.T) {
	docs := map[Bank][]string{
		BankStandard: {
			"IMMEDIATE PAYMENT 1,310.00- 03 16 24,106.81",
			"CREDIT TRANSFER 2,000.00 03 18 26,106.81",
		},
		BankFNB: {
			"02 Apr Magtape Credit 7,500.00Cr 5,969.38Cr",
			"03 Apr Internet Pmt 1,200.00 4,769.38Cr",
		},
		BankAbsa: {
			"23/02/2023 Atm Payment Fr Killarney  10.00  600.00  54,882.66",
			"24/02/2023 Deposit Cash  1 500.00  56 382.66",
		},
	}

	for bank, lines := range docs {
		p, err := New(bank, Options{Year: 2024})
		if err != nil {
			t.Fatalf("New(%q): %v", bank, err)
		}
		res, err := p.ParseLines(lines)
		if err != nil {
			t.Fatalf("ParseLines(%q): %v", bank, err)
		}
		for i, tx := range res.Transactions {
			if tx.DebitAmount.IsPositive() && tx.CreditAmount.IsPositive() {
				t.Errorf("%s txn[%d]: debit %s and credit %s both set",
					bank, i, tx.DebitAmount, tx.CreditAmount)
			}
		}
	}
}
