package validate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ledgerkeep/statement-ledger/internal/models"
)

// Fingerprint is the composite duplicate-detection key. All five transaction
// fields must match: date alone, amount alone, or description alone each
// produce false positives on real statements.
type Fingerprint struct {
	CompanyID string
	Date      time.Time
	Debit     string
	Credit    string
	Details   string
	Balance   string
}

// NewFingerprint builds the fingerprint for a transaction. Details are
// case-folded and whitespace-collapsed so re-extracted documents with
// cosmetic differences still match.
func NewFingerprint(companyID string, tx *models.StandardizedTransaction) Fingerprint {
	return Fingerprint{
		CompanyID: companyID,
		Date:      tx.Date,
		Debit:     tx.DebitAmount.StringFixed(2),
		Credit:    tx.CreditAmount.StringFixed(2),
		Details:   NormalizeDetails(tx.Details),
		Balance:   tx.Balance.StringFixed(2),
	}
}

// Key renders the fingerprint as a stable lookup string.
func (f Fingerprint) Key() string {
	return strings.Join([]string{
		f.CompanyID,
		f.Date.Format("2006-01-02"),
		f.Debit,
		f.Credit,
		f.Details,
		f.Balance,
	}, "|")
}

// NormalizeDetails case-folds and collapses whitespace in a description.
func NormalizeDetails(details string) string {
	return strings.Join(strings.Fields(strings.ToLower(details)), " ")
}

// FingerprintStore is the slice of the persistence gateway the detector
// consumes.
type FingerprintStore interface {
	// FindByFingerprint returns the saved transaction matching the key, or
	// nil when none exists.
	FindByFingerprint(ctx context.Context, key string) (*models.SavedTransaction, error)
	// SavedInRange lists a company's saved transactions dated within
	// [from, to], inclusive.
	SavedInRange(ctx context.Context, companyID string, from, to time.Time) ([]models.SavedTransaction, error)
}

// DuplicateDetector answers whether a candidate transaction's fingerprint
// already exists for the company. One detector serves one document pass.
type DuplicateDetector struct {
	store     FingerprintStore
	companyID string

	preloaded   map[string]*models.SavedTransaction
	preloadFrom time.Time
	preloadTo   time.Time

	// seen holds rows accepted earlier in the same pass, so a document
	// containing the same row twice rejects the second occurrence.
	seen map[string]*models.SavedTransaction
}

// NewDuplicateDetector builds a detector backed by the gateway.
func NewDuplicateDetector(store FingerprintStore, companyID string) *DuplicateDetector {
	return &DuplicateDetector{store: store, companyID: companyID}
}

// Preload fetches existing fingerprints for a date range in one round trip.
// Batching is an optimization only: lookups outside the preloaded range
// still hit the gateway.
func (d *DuplicateDetector) Preload(ctx context.Context, from, to time.Time) error {
	existing, err := d.store.SavedInRange(ctx, d.companyID, from, to)
	if err != nil {
		return fmt.Errorf("preload fingerprints: %w", err)
	}
	d.preloaded = make(map[string]*models.SavedTransaction, len(existing))
	for i := range existing {
		key := NewFingerprint(d.companyID, &existing[i].StandardizedTransaction).Key()
		d.preloaded[key] = &existing[i]
	}
	d.preloadFrom, d.preloadTo = from, to
	return nil
}

// Find returns the existing record matching the candidate's fingerprint,
// or nil when the candidate is new.
func (d *DuplicateDetector) Find(ctx context.Context, tx *models.StandardizedTransaction) (*models.SavedTransaction, error) {
	key := NewFingerprint(d.companyID, tx).Key()

	if hit, ok := d.seen[key]; ok {
		return hit, nil
	}
	if d.preloaded != nil && !tx.Date.Before(d.preloadFrom) && !tx.Date.After(d.preloadTo) {
		return d.preloaded[key], nil
	}
	return d.store.FindByFingerprint(ctx, key)
}

// IsDuplicate reports whether the candidate's fingerprint already exists.
func (d *DuplicateDetector) IsDuplicate(ctx context.Context, tx *models.StandardizedTransaction) (bool, error) {
	existing, err := d.Find(ctx, tx)
	if err != nil {
		return false, err
	}
	return existing != nil, nil
}

// Record marks a just-saved row as seen within the current pass.
func (d *DuplicateDetector) Record(tx *models.SavedTransaction) {
	if d.seen == nil {
		d.seen = make(map[string]*models.SavedTransaction)
	}
	key := NewFingerprint(tx.CompanyID, &tx.StandardizedTransaction).Key()
	d.seen[key] = tx
}
