// Package ingest binds the statement pipeline together: lines in, parsed
// transactions validated, classified and persisted, one structured report
// out per document.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ledgerkeep/statement-ledger/internal/ledger"
	"github.com/ledgerkeep/statement-ledger/internal/models"
	"github.com/ledgerkeep/statement-ledger/internal/parser"
	"github.com/ledgerkeep/statement-ledger/internal/validate"
)

// Gateway is the slice of the persistence layer the ingest service needs.
type Gateway interface {
	validate.FingerprintStore
	SaveTransaction(ctx context.Context, tx *models.SavedTransaction, fingerprint string) error
	SaveOrUpdateJournalEntry(ctx context.Context, entry *models.JournalEntry) error
	RulesByCompany(ctx context.Context, companyID string) ([]models.MappingRule, error)
	FiscalPeriodByID(ctx context.Context, id string) (*models.FiscalPeriod, error)
}

// Classifier matches parsed transactions against mapping rules.
type Classifier interface {
	Classify(tx *models.SavedTransaction, rules []models.MappingRule) *models.JournalEntry
}

// Document is one statement to process: its lines plus identifying metadata.
// Bank may be empty, in which case the format is auto-detected.
type Document struct {
	Meta  models.DocumentMeta
	Bank  parser.Bank
	Lines []string
}

// Service runs the per-document pipeline. A single Service is safe for
// concurrent use: every document gets its own parser instance and duplicate
// detector.
type Service struct {
	store      Gateway
	classifier Classifier
	log        *zap.Logger
	batchLimit int
}

func NewService(store Gateway, classifier Classifier, log *zap.Logger) *Service {
	return &Service{
		store:      store,
		classifier: classifier,
		log:        log,
		batchLimit: 4,
	}
}

// ProcessDocument runs one statement through parse, validate, classify and
// save. Individual transactions are accepted or rejected independently;
// only an unusable document (no lines, unknown format, unknown period)
// fails as a whole.
func (s *Service) ProcessDocument(ctx context.Context, doc Document) (*models.UploadResult, error) {
	if len(doc.Lines) == 0 {
		return nil, fmt.Errorf("document %s contains no text lines", doc.Meta.SourceFile)
	}

	period, err := s.store.FiscalPeriodByID(ctx, doc.Meta.FiscalPeriodID)
	if err != nil {
		return nil, fmt.Errorf("load fiscal period: %w", err)
	}
	if period == nil {
		return nil, &models.NotFoundError{Resource: "fiscal period", ID: doc.Meta.FiscalPeriodID}
	}
	if period.CompanyID != doc.Meta.CompanyID {
		return nil, &models.ValidationError{Field: "fiscalPeriodId", Message: "fiscal period does not belong to the company"}
	}

	bank := doc.Bank
	if bank == "" {
		bank, err = parser.AutoDetect(doc.Lines)
		if err != nil {
			return nil, fmt.Errorf("detect statement format of %s: %w", doc.Meta.SourceFile, err)
		}
	}

	// Year-less date formats resolve against the period when it sits in one
	// calendar year; otherwise the parser falls back to the current year and
	// the boundary validator catches mismatches.
	opts := parser.Options{}
	if period.Start.Year() == period.End.Year() {
		opts.Year = period.Start.Year()
	}
	p, err := parser.New(bank, opts)
	if err != nil {
		return nil, err
	}

	parsed, err := p.ParseLines(doc.Lines)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", doc.Meta.SourceFile, err)
	}
	for _, sk := range parsed.Skipped {
		s.log.Warn("statement line skipped",
			zap.String("source_file", doc.Meta.SourceFile),
			zap.Int("line", sk.LineNum),
			zap.String("reason", sk.Reason))
	}

	rules, err := s.store.RulesByCompany(ctx, doc.Meta.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("load mapping rules: %w", err)
	}
	rules = ledger.SortRules(rules)

	detector := validate.NewDuplicateDetector(s.store, doc.Meta.CompanyID)
	if from, to, ok := dateRange(parsed.Transactions); ok {
		if err := detector.Preload(ctx, from, to); err != nil {
			return nil, fmt.Errorf("preload fingerprints: %w", err)
		}
	}

	result := &models.UploadResult{
		SourceFile:        doc.Meta.SourceFile,
		Bank:              string(bank),
		TotalTransactions: len(parsed.Transactions),
		SkippedLines:      len(parsed.Skipped),
	}

	for i := range parsed.Transactions {
		tx := &parsed.Transactions[i]
		s.processTransaction(ctx, tx, doc.Meta, period, rules, detector, result)
	}

	s.log.Info("document processed",
		zap.String("source_file", doc.Meta.SourceFile),
		zap.String("bank", string(bank)),
		zap.Int("total", result.TotalTransactions),
		zap.Int("saved", result.SavedCount),
		zap.Int("duplicates", result.DuplicateCount),
		zap.Int("out_of_period", result.OutOfPeriodCount),
		zap.Int("validation_errors", result.ValidationErrorCount))
	return result, nil
}

// processTransaction validates, classifies and saves one transaction,
// routing failures to the rejection report. Never aborts the document.
func (s *Service) processTransaction(ctx context.Context, tx *models.StandardizedTransaction,
	meta models.DocumentMeta, period *models.FiscalPeriod, rules []models.MappingRule,
	detector *validate.DuplicateDetector, result *models.UploadResult) {

	if err := tx.Validate(); err != nil {
		result.ValidationErrorCount++
		result.Rejected = append(result.Rejected, reject(tx, models.RejectValidationError, err.Error()))
		return
	}

	if err := validate.CheckPeriod(tx.Date, period); err != nil {
		result.OutOfPeriodCount++
		result.Rejected = append(result.Rejected, reject(tx, models.RejectOutOfPeriod, err.Error()))
		return
	}

	existing, err := detector.Find(ctx, tx)
	if err != nil {
		result.ValidationErrorCount++
		result.Rejected = append(result.Rejected, reject(tx, models.RejectValidationError,
			fmt.Sprintf("duplicate lookup failed: %v", err)))
		return
	}
	if existing != nil {
		result.DuplicateCount++
		result.Rejected = append(result.Rejected, reject(tx, models.RejectDuplicate,
			fmt.Sprintf("Transaction already exists (uploaded on %s)", existing.UploadedAt.Format("2006-01-02"))))
		return
	}

	saved := &models.SavedTransaction{
		ID:                      uuid.NewString(),
		CompanyID:               meta.CompanyID,
		FiscalPeriodID:          period.ID,
		UploadedAt:              time.Now().UTC(),
		StandardizedTransaction: *tx,
	}
	fingerprint := validate.NewFingerprint(meta.CompanyID, tx).Key()

	if err := s.store.SaveTransaction(ctx, saved, fingerprint); err != nil {
		result.ValidationErrorCount++
		result.Rejected = append(result.Rejected, reject(tx, models.RejectValidationError,
			fmt.Sprintf("save failed: %v", err)))
		return
	}
	detector.Record(saved)

	result.SavedCount++
	result.SavedIDs = append(result.SavedIDs, saved.ID)

	entry := s.classifier.Classify(saved, rules)
	if entry == nil {
		result.UnclassifiedIDs = append(result.UnclassifiedIDs, saved.ID)
		return
	}
	if err := s.store.SaveOrUpdateJournalEntry(ctx, entry); err != nil {
		// Transaction stays saved; it is surfaced for manual classification.
		s.log.Error("journal entry save failed",
			zap.String("transaction_id", saved.ID), zap.Error(err))
		result.UnclassifiedIDs = append(result.UnclassifiedIDs, saved.ID)
	}
}

// ProcessBatch runs independent documents in parallel with bounded
// concurrency. Results keep the order of the input documents. A document
// failure fails the batch; per-transaction rejections do not.
func (s *Service) ProcessBatch(ctx context.Context, docs []Document) ([]*models.UploadResult, error) {
	results := make([]*models.UploadResult, len(docs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchLimit)

	for i := range docs {
		g.Go(func() error {
			res, err := s.ProcessDocument(ctx, docs[i])
			if err != nil {
				return fmt.Errorf("document %s: %w", docs[i].Meta.SourceFile, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func reject(tx *models.StandardizedTransaction, reason models.RejectReason, detail string) models.RejectedTransaction {
	return models.RejectedTransaction{
		Date:         tx.Date,
		Details:      tx.Details,
		ServiceFee:   tx.ServiceFee,
		DebitAmount:  tx.DebitAmount,
		CreditAmount: tx.CreditAmount,
		Balance:      tx.Balance,
		Reason:       reason,
		Detail:       detail,
	}
}

func dateRange(txs []models.StandardizedTransaction) (from, to time.Time, ok bool) {
	for _, tx := range txs {
		if tx.Date.IsZero() {
			continue
		}
		if !ok {
			from, to, ok = tx.Date, tx.Date, true
			continue
		}
		if tx.Date.Before(from) {
			from = tx.Date
		}
		if tx.Date.After(to) {
			to = tx.Date
		}
	}
	return from, to, ok
}
