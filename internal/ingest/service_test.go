package ingest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ledgerkeep/statement-ledger/internal/ledger"
	"github.com/ledgerkeep/statement-ledger/internal/models"
	"github.com/ledgerkeep/statement-ledger/internal/parser"
	"github.com/ledgerkeep/statement-ledger/internal/validate"
)

// memGateway is an in-memory stand-in for the sqlite store.
type memGateway struct {
	mu            sync.Mutex
	byFingerprint map[string]*models.SavedTransaction
	saved         []*models.SavedTransaction
	entries       map[string]*models.JournalEntry
	rules         []models.MappingRule
	periods       map[string]*models.FiscalPeriod
}

func newMemGateway() *memGateway {
	return &memGateway{
		byFingerprint: map[string]*models.SavedTransaction{},
		entries:       map[string]*models.JournalEntry{},
		periods:       map[string]*models.FiscalPeriod{},
	}
}

func (g *memGateway) FindByFingerprint(_ context.Context, key string) (*models.SavedTransaction, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.byFingerprint[key], nil
}

func (g *memGateway) SavedInRange(_ context.Context, companyID string, from, to time.Time) ([]models.SavedTransaction, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []models.SavedTransaction
	for _, tx := range g.saved {
		if tx.CompanyID == companyID && !tx.Date.Before(from) && !tx.Date.After(to) {
			out = append(out, *tx)
		}
	}
	return out, nil
}

func (g *memGateway) SaveTransaction(_ context.Context, tx *models.SavedTransaction, fingerprint string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.byFingerprint[fingerprint]; exists {
		return fmt.Errorf("UNIQUE constraint failed: transactions.fingerprint")
	}
	g.byFingerprint[fingerprint] = tx
	g.saved = append(g.saved, tx)
	return nil
}

func (g *memGateway) SaveOrUpdateJournalEntry(_ context.Context, entry *models.JournalEntry) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entries[entry.TransactionID] = entry
	return nil
}

func (g *memGateway) RulesByCompany(_ context.Context, _ string) ([]models.MappingRule, error) {
	return g.rules, nil
}

func (g *memGateway) FiscalPeriodByID(_ context.Context, id string) (*models.FiscalPeriod, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.periods[id], nil
}

// seed marks a transaction as already persisted so later uploads see it as
// a duplicate.
func (g *memGateway) seed(companyID string, tx models.StandardizedTransaction, uploadedAt time.Time) {
	saved := &models.SavedTransaction{
		ID:                      fmt.Sprintf("seeded-%d", len(g.saved)),
		CompanyID:               companyID,
		FiscalPeriodID:          "fy-2024",
		UploadedAt:              uploadedAt,
		StandardizedTransaction: tx,
	}
	key := validate.NewFingerprint(companyID, &tx).Key()
	g.byFingerprint[key] = saved
	g.saved = append(g.saved, saved)
}

type stubStore struct{}

func (stubStore) AccountByID(context.Context, string) (*models.Account, error) { return nil, nil }
func (stubStore) SavedTransactionByID(context.Context, string) (*models.SavedTransaction, error) {
	return nil, nil
}
func (stubStore) FindJournalEntryByTransactionID(context.Context, string) (*models.JournalEntry, error) {
	return nil, nil
}
func (stubStore) SaveOrUpdateJournalEntry(context.Context, *models.JournalEntry) error { return nil }

func newTestService(g *memGateway) *Service {
	engine := ledger.NewEngine(stubStore{}, zap.NewNop())
	return NewService(g, engine, zap.NewNop())
}

func fy2324() *models.FiscalPeriod {
	return &models.FiscalPeriod{
		ID:        "fy-2024",
		CompanyID: "co-1",
		Label:     "FY2023-2024",
		Start:     time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC),
		End:       time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
	}
}

// absaLine renders one statement row in the column layout the Absa parser
// reads: date, description, amount, balance.
func absaLine(date, desc, amount, balance string) string {
	return fmt.Sprintf("%s %s  %s  %s", date, desc, amount, balance)
}

func testDoc(lines []string) Document {
	return Document{
		Meta: models.DocumentMeta{
			CompanyID:      "co-1",
			FiscalPeriodID: "fy-2024",
			SourceFile:     "statement.pdf",
		},
		Bank:  parser.BankAbsa,
		Lines: lines,
	}
}

func TestProcessDocumentMixedBatch(t *testing.T) {
	g := newMemGateway()
	g.periods["fy-2024"] = fy2324()

	// 10 rows: 7 inside FY2023-2024 and 3 outside it.
	lines := []string{
		absaLine("05/04/2023", "Atm Payment Fr Killarney", "600.00", "54,882.66"),
		absaLine("12/05/2023", "Cheque Payment Supplier One", "1,200.00", "53,682.66"),
		absaLine("20/06/2023", "Cash Deposit Branch", "5,000.00", "58,682.66"),
		absaLine("03/08/2023", "Insurance Payment Monthly", "529.00", "58,153.66"),
		absaLine("14/10/2023", "Salary Deposit October", "18,500.00", "76,653.66"),
		absaLine("09/01/2024", "Atm Withdrawal Sandton", "900.00", "75,753.66"),
		absaLine("28/02/2024", "Refund Received Store", "250.00", "76,003.66"),
		absaLine("15/05/2024", "Atm Payment After Year End", "100.00", "75,903.66"),
		absaLine("16/05/2024", "Cheque Payment After Year End", "200.00", "75,703.66"),
		absaLine("17/05/2024", "Cash Deposit After Year End", "300.00", "76,003.66"),
	}

	// Two in-period rows are already persisted from an earlier upload.
	pre, err := parser.New(parser.BankAbsa, parser.Options{})
	require.NoError(t, err)
	preParsed, err := pre.ParseLines([]string{lines[0], lines[1]})
	require.NoError(t, err)
	require.Len(t, preParsed.Transactions, 2)
	for _, tx := range preParsed.Transactions {
		g.seed("co-1", tx, time.Date(2023, 11, 20, 9, 0, 0, 0, time.UTC))
	}

	result, err := newTestService(g).ProcessDocument(context.Background(), testDoc(lines))
	require.NoError(t, err)

	assert.Equal(t, 10, result.TotalTransactions)
	assert.Equal(t, 5, result.SavedCount)
	assert.Equal(t, 2, result.DuplicateCount)
	assert.Equal(t, 3, result.OutOfPeriodCount)
	assert.Equal(t, 0, result.ValidationErrorCount)
	assert.Len(t, result.SavedIDs, 5)
	require.Len(t, result.Rejected, 5)

	reasons := map[models.RejectReason]int{}
	for _, r := range result.Rejected {
		reasons[r.Reason]++
	}
	assert.Equal(t, 2, reasons[models.RejectDuplicate])
	assert.Equal(t, 3, reasons[models.RejectOutOfPeriod])

	for _, r := range result.Rejected {
		if r.Reason == models.RejectDuplicate {
			assert.Contains(t, r.Detail, "Transaction already exists (uploaded on 2023-11-20)")
		}
		if r.Reason == models.RejectOutOfPeriod {
			assert.Contains(t, r.Detail, "falls outside selected fiscal period FY2023-2024")
		}
		// The rejection record carries the original row's fields.
		assert.NotEmpty(t, r.Details)
		assert.False(t, r.Balance.IsZero())
	}
}

func TestProcessDocumentResubmissionIsIdempotent(t *testing.T) {
	g := newMemGateway()
	g.periods["fy-2024"] = fy2324()

	lines := []string{
		absaLine("05/04/2023", "Atm Payment Fr Killarney", "600.00", "54,882.66"),
		absaLine("20/06/2023", "Cash Deposit Branch", "5,000.00", "59,882.66"),
	}
	svc := newTestService(g)

	first, err := svc.ProcessDocument(context.Background(), testDoc(lines))
	require.NoError(t, err)
	assert.Equal(t, 2, first.SavedCount)
	assert.Equal(t, 0, first.DuplicateCount)

	second, err := svc.ProcessDocument(context.Background(), testDoc(lines))
	require.NoError(t, err)
	assert.Equal(t, 0, second.SavedCount)
	assert.Equal(t, second.TotalTransactions, second.DuplicateCount)
}

func TestProcessDocumentDuplicateWithinOneDocument(t *testing.T) {
	g := newMemGateway()
	g.periods["fy-2024"] = fy2324()

	line := absaLine("05/04/2023", "Atm Payment Fr Killarney", "600.00", "54,882.66")
	result, err := newTestService(g).ProcessDocument(context.Background(), testDoc([]string{line, line}))
	require.NoError(t, err)

	assert.Equal(t, 1, result.SavedCount)
	assert.Equal(t, 1, result.DuplicateCount)
}

func TestProcessDocumentClassifiesAgainstRules(t *testing.T) {
	g := newMemGateway()
	g.periods["fy-2024"] = fy2324()
	g.rules = []models.MappingRule{
		{Pattern: "insurance", DebitAccountCode: "8100", CreditAccountCode: "1000", Priority: 10},
	}

	lines := []string{
		absaLine("03/08/2023", "Insurance Payment Monthly", "529.00", "58,153.66"),
		absaLine("09/01/2024", "Atm Withdrawal Sandton", "900.00", "57,253.66"),
	}
	result, err := newTestService(g).ProcessDocument(context.Background(), testDoc(lines))
	require.NoError(t, err)

	assert.Equal(t, 2, result.SavedCount)
	require.Len(t, result.UnclassifiedIDs, 1)
	require.Len(t, g.entries, 1)
	for _, entry := range g.entries {
		require.NoError(t, entry.Validate())
		assert.Equal(t, "8100", entry.DebitLine().AccountCode)
		assert.Equal(t, "1000", entry.CreditLine().AccountCode)
	}
}

func TestProcessDocumentFailsWholeDocumentOnly(t *testing.T) {
	g := newMemGateway()
	g.periods["fy-2024"] = fy2324()
	svc := newTestService(g)

	_, err := svc.ProcessDocument(context.Background(), testDoc(nil))
	require.Error(t, err)

	doc := testDoc([]string{absaLine("05/04/2023", "Atm Payment", "600.00", "54,882.66")})
	doc.Meta.FiscalPeriodID = "fy-missing"
	_, err = svc.ProcessDocument(context.Background(), doc)
	var nferr *models.NotFoundError
	require.ErrorAs(t, err, &nferr)

	doc = testDoc([]string{absaLine("05/04/2023", "Atm Payment", "600.00", "54,882.66")})
	doc.Meta.CompanyID = "co-other"
	_, err = svc.ProcessDocument(context.Background(), doc)
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestProcessBatchRunsDocumentsIndependently(t *testing.T) {
	g := newMemGateway()
	g.periods["fy-2024"] = fy2324()

	docs := []Document{
		testDoc([]string{absaLine("05/04/2023", "Atm Payment Fr Killarney", "600.00", "54,882.66")}),
		testDoc([]string{absaLine("20/06/2023", "Cash Deposit Branch", "5,000.00", "59,882.66")}),
		testDoc([]string{absaLine("14/10/2023", "Salary Deposit October", "18,500.00", "78,382.66")}),
	}
	results, err := newTestService(g).ProcessBatch(context.Background(), docs)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, 1, r.SavedCount)
	}
	assert.Len(t, g.saved, 3)
}

func TestProcessDocumentAutoDetectsFormat(t *testing.T) {
	g := newMemGateway()
	g.periods["fy-2024"] = fy2324()

	doc := testDoc([]string{absaLine("05/04/2023", "Atm Payment Fr Killarney", "600.00", "54,882.66")})
	doc.Bank = ""
	result, err := newTestService(g).ProcessDocument(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, string(parser.BankAbsa), result.Bank)
	assert.Equal(t, 1, result.SavedCount)
}
