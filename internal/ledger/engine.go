package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ledgerkeep/statement-ledger/internal/models"
)

// Store is the slice of the persistence gateway the engine consumes.
type Store interface {
	// AccountByID returns the account, or nil when it does not exist.
	AccountByID(ctx context.Context, id string) (*models.Account, error)
	// SavedTransactionByID returns the saved transaction, or nil.
	SavedTransactionByID(ctx context.Context, id string) (*models.SavedTransaction, error)
	FindJournalEntryByTransactionID(ctx context.Context, txID string) (*models.JournalEntry, error)
	SaveOrUpdateJournalEntry(ctx context.Context, entry *models.JournalEntry) error
}

// Engine turns flat transactions into balanced double-entry postings, either
// by scanning ordered mapping rules or by applying a manual account pair.
type Engine struct {
	store Store
	log   *zap.Logger
}

func NewEngine(store Store, log *zap.Logger) *Engine {
	return &Engine{store: store, log: log}
}

// SortRules orders rules for a classification pass: ascending priority,
// ties keeping declaration order.
func SortRules(rules []models.MappingRule) []models.MappingRule {
	sorted := make([]models.MappingRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})
	return sorted
}

// Classify matches the transaction's details against the ordered rule list
// and returns a balanced journal entry for the first match, or nil when no
// rule matches. An unmatched transaction is not an error: it is persisted
// unclassified and surfaced for manual classification. Rules must already
// be sorted via SortRules.
func (e *Engine) Classify(tx *models.SavedTransaction, rules []models.MappingRule) *models.JournalEntry {
	amount := tx.Amount()
	if amount.IsZero() {
		return nil
	}

	details := strings.ToLower(tx.Details)
	for _, rule := range rules {
		if !strings.Contains(details, strings.ToLower(rule.Pattern)) {
			continue
		}
		entry := e.buildEntry(tx, rule.DebitAccountCode, rule.CreditAccountCode)
		e.log.Debug("transaction classified",
			zap.String("transaction_id", tx.ID),
			zap.String("pattern", rule.Pattern),
			zap.String("debit_account", rule.DebitAccountCode),
			zap.String("credit_account", rule.CreditAccountCode))
		return entry
	}
	return nil
}

// ApplyManual classifies one saved transaction against an explicit account
// pair. Both accounts must belong to the company and be active. When the
// transaction already has a journal entry, only the two lines' account
// references change; the entry header is preserved and no duplicate lines
// are created. Re-invoking with the same pair is a no-op.
func (e *Engine) ApplyManual(ctx context.Context, companyID, txID, debitAccountID, creditAccountID string) (*models.JournalEntry, error) {
	tx, err := e.store.SavedTransactionByID(ctx, txID)
	if err != nil {
		return nil, fmt.Errorf("load transaction: %w", err)
	}
	if tx == nil {
		return nil, &models.NotFoundError{Resource: "transaction", ID: txID}
	}
	if tx.CompanyID != companyID {
		return nil, &models.ValidationError{Field: "transactionId", Message: "transaction does not belong to the company"}
	}

	debitAcct, err := e.lookupAccount(ctx, companyID, debitAccountID)
	if err != nil {
		return nil, err
	}
	creditAcct, err := e.lookupAccount(ctx, companyID, creditAccountID)
	if err != nil {
		return nil, err
	}

	amount := tx.Amount()
	if amount.IsZero() {
		return nil, &models.ValidationError{Field: "amount", Message: "transaction carries no amount to post"}
	}

	entry, err := e.store.FindJournalEntryByTransactionID(ctx, txID)
	if err != nil {
		return nil, fmt.Errorf("load journal entry: %w", err)
	}
	if entry == nil {
		entry = e.buildEntry(tx, debitAcct.Code, creditAcct.Code)
	} else {
		// Update in place: header untouched, lines keep their amounts and
		// only swap account references.
		for i := range entry.Lines {
			if entry.Lines[i].Debit.IsPositive() {
				entry.Lines[i].AccountCode = debitAcct.Code
			} else {
				entry.Lines[i].AccountCode = creditAcct.Code
			}
		}
	}

	if err := entry.Validate(); err != nil {
		return nil, fmt.Errorf("journal entry invariant: %w", err)
	}
	if err := e.store.SaveOrUpdateJournalEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("save journal entry: %w", err)
	}

	e.log.Info("manual classification applied",
		zap.String("transaction_id", txID),
		zap.String("debit_account", debitAcct.Code),
		zap.String("credit_account", creditAcct.Code))
	return entry, nil
}

func (e *Engine) lookupAccount(ctx context.Context, companyID, accountID string) (*models.Account, error) {
	acct, err := e.store.AccountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if acct == nil {
		return nil, &models.NotFoundError{Resource: "account", ID: accountID}
	}
	if acct.CompanyID != companyID {
		return nil, &models.ValidationError{Field: "accountId", Message: "account does not belong to the company"}
	}
	if !acct.IsActive {
		return nil, &models.ValidationError{Field: "accountId", Message: fmt.Sprintf("account %s is inactive", acct.Code)}
	}
	return acct, nil
}

func (e *Engine) buildEntry(tx *models.SavedTransaction, debitCode, creditCode string) *models.JournalEntry {
	amount := tx.Amount()
	return &models.JournalEntry{
		ID:            uuid.NewString(),
		CompanyID:     tx.CompanyID,
		TransactionID: tx.ID,
		Date:          tx.Date,
		Description:   tx.Details,
		Reference:     tx.SourceReference,
		Lines: []models.JournalEntryLine{
			{AccountCode: debitCode, Debit: amount},
			{AccountCode: creditCode, Credit: amount},
		},
	}
}
