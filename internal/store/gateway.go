package store

import (
	"context"
	"time"

	"github.com/ledgerkeep/statement-ledger/internal/models"
)

// Gateway is the persistence surface for the whole pipeline. Lookup methods
// return (nil, nil) when the row does not exist; callers translate that into
// their own not-found handling.
type Gateway interface {
	// Transactions.
	SaveTransaction(ctx context.Context, tx *models.SavedTransaction, fingerprint string) error
	SavedTransactionByID(ctx context.Context, id string) (*models.SavedTransaction, error)
	FindByFingerprint(ctx context.Context, key string) (*models.SavedTransaction, error)
	SavedInRange(ctx context.Context, companyID string, from, to time.Time) ([]models.SavedTransaction, error)

	// Journal entries.
	FindJournalEntryByTransactionID(ctx context.Context, txID string) (*models.JournalEntry, error)
	SaveOrUpdateJournalEntry(ctx context.Context, entry *models.JournalEntry) error

	// Chart of accounts and mapping rules.
	AccountByID(ctx context.Context, id string) (*models.Account, error)
	AccountsByCompany(ctx context.Context, companyID string) ([]models.Account, error)
	SaveAccount(ctx context.Context, acct *models.Account) error
	RulesByCompany(ctx context.Context, companyID string) ([]models.MappingRule, error)
	SaveRule(ctx context.Context, companyID string, rule *models.MappingRule) error

	// Fiscal periods.
	FiscalPeriodByID(ctx context.Context, id string) (*models.FiscalPeriod, error)
	SaveFiscalPeriod(ctx context.Context, period *models.FiscalPeriod) error

	Close() error
}
