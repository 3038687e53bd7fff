package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/ledgerkeep/statement-ledger/internal/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const dayFormat = "2006-01-02"

type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore implements Gateway on a single SQLite file.
type SQLiteStore struct {
	db DBTX
}

var _ Gateway = (*SQLiteStore)(nil)

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory %s: %w", dbDir, err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("set up migrate driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("set up migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migration(up): %w", err)
	}
	return nil
}

// ExecTx runs fn inside one database transaction.
func (s *SQLiteStore) ExecTx(fn func(Gateway) error) error {
	db, ok := s.db.(*sql.DB)
	if !ok {
		return fmt.Errorf("store is already in a transaction")
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}

	if err := fn(&SQLiteStore{db: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx err: %v, rb err: %v", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	if db, ok := s.db.(*sql.DB); ok {
		return db.Close()
	}
	return nil
}

func (s *SQLiteStore) SaveTransaction(ctx context.Context, tx *models.SavedTransaction, fingerprint string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions
			(id, company_id, fiscal_period_id, date, details, service_fee,
			 debit_amount, credit_amount, balance, source_reference, fingerprint, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		tx.ID, tx.CompanyID, tx.FiscalPeriodID, tx.Date.Format(dayFormat), tx.Details,
		tx.ServiceFee.StringFixed(2), tx.DebitAmount.StringFixed(2), tx.CreditAmount.StringFixed(2),
		tx.Balance.StringFixed(2), tx.SourceReference, fingerprint, tx.UploadedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

const savedTxColumns = `id, company_id, fiscal_period_id, date, details, service_fee,
	debit_amount, credit_amount, balance, source_reference, uploaded_at`

func (s *SQLiteStore) SavedTransactionByID(ctx context.Context, id string) (*models.SavedTransaction, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+savedTxColumns+` FROM transactions WHERE id = ?`, id)
	return scanSavedTransaction(row)
}

func (s *SQLiteStore) FindByFingerprint(ctx context.Context, key string) (*models.SavedTransaction, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+savedTxColumns+` FROM transactions WHERE fingerprint = ?`, key)
	return scanSavedTransaction(row)
}

func (s *SQLiteStore) SavedInRange(ctx context.Context, companyID string, from, to time.Time) ([]models.SavedTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+savedTxColumns+`
		FROM transactions
		WHERE company_id = ? AND date >= ? AND date <= ?
		ORDER BY date, id
	`, companyID, from.Format(dayFormat), to.Format(dayFormat))
	if err != nil {
		return nil, fmt.Errorf("query transactions by range: %w", err)
	}
	defer rows.Close()

	var out []models.SavedTransaction
	for rows.Next() {
		tx, err := scanSavedTransactionRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *tx)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTx(sc rowScanner) (*models.SavedTransaction, error) {
	var tx models.SavedTransaction
	var date, fee, debit, credit, balance, uploadedAt string
	err := sc.Scan(&tx.ID, &tx.CompanyID, &tx.FiscalPeriodID, &date, &tx.Details,
		&fee, &debit, &credit, &balance, &tx.SourceReference, &uploadedAt)
	if err != nil {
		return nil, err
	}
	if tx.Date, err = time.ParseInLocation(dayFormat, date, time.UTC); err != nil {
		return nil, fmt.Errorf("parse stored date %q: %w", date, err)
	}
	if tx.UploadedAt, err = time.Parse(time.RFC3339, uploadedAt); err != nil {
		return nil, fmt.Errorf("parse stored upload time %q: %w", uploadedAt, err)
	}
	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&tx.ServiceFee, fee},
		{&tx.DebitAmount, debit},
		{&tx.CreditAmount, credit},
		{&tx.Balance, balance},
	} {
		if *f.dst, err = decimal.NewFromString(f.src); err != nil {
			return nil, fmt.Errorf("parse stored amount %q: %w", f.src, err)
		}
	}
	return &tx, nil
}

func scanSavedTransaction(row *sql.Row) (*models.SavedTransaction, error) {
	tx, err := scanTx(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	return tx, nil
}

func scanSavedTransactionRows(rows *sql.Rows) (*models.SavedTransaction, error) {
	tx, err := scanTx(rows)
	if err != nil {
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	return tx, nil
}

func (s *SQLiteStore) FindJournalEntryByTransactionID(ctx context.Context, txID string) (*models.JournalEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, company_id, transaction_id, date, description, reference
		FROM journal_entries
		WHERE transaction_id = ?
	`, txID)

	var entry models.JournalEntry
	var date string
	err := row.Scan(&entry.ID, &entry.CompanyID, &entry.TransactionID, &date, &entry.Description, &entry.Reference)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan journal entry: %w", err)
	}
	if entry.Date, err = time.ParseInLocation(dayFormat, date, time.UTC); err != nil {
		return nil, fmt.Errorf("parse stored date %q: %w", date, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT account_code, debit, credit
		FROM journal_lines
		WHERE entry_id = ?
		ORDER BY position
	`, entry.ID)
	if err != nil {
		return nil, fmt.Errorf("query journal lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line models.JournalEntryLine
		var debit, credit string
		if err := rows.Scan(&line.AccountCode, &debit, &credit); err != nil {
			return nil, fmt.Errorf("scan journal line: %w", err)
		}
		if line.Debit, err = decimal.NewFromString(debit); err != nil {
			return nil, fmt.Errorf("parse stored amount %q: %w", debit, err)
		}
		if line.Credit, err = decimal.NewFromString(credit); err != nil {
			return nil, fmt.Errorf("parse stored amount %q: %w", credit, err)
		}
		entry.Lines = append(entry.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *SQLiteStore) SaveOrUpdateJournalEntry(ctx context.Context, entry *models.JournalEntry) error {
	// An existing entry for the transaction keeps its persisted id even if
	// the caller built a fresh one, so the line rewrite below always
	// targets the row the conflict update touched.
	entryID := entry.ID
	var existingID string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM journal_entries WHERE transaction_id = ?`, entry.TransactionID).Scan(&existingID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("look up journal entry: %w", err)
	default:
		entryID = existingID
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO journal_entries (id, company_id, transaction_id, date, description, reference)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (transaction_id) DO UPDATE SET
			date = excluded.date,
			description = excluded.description,
			reference = excluded.reference
	`, entryID, entry.CompanyID, entry.TransactionID, entry.Date.Format(dayFormat), entry.Description, entry.Reference)
	if err != nil {
		return fmt.Errorf("upsert journal entry: %w", err)
	}

	// Lines are replaced wholesale so a re-classification never leaves a
	// stale third line behind.
	if _, err := s.db.ExecContext(ctx, `DELETE FROM journal_lines WHERE entry_id = ?`, entryID); err != nil {
		return fmt.Errorf("clear journal lines: %w", err)
	}
	for i, line := range entry.Lines {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO journal_lines (entry_id, position, account_code, debit, credit)
			VALUES (?, ?, ?, ?, ?)
		`, entryID, i, line.AccountCode, line.Debit.StringFixed(2), line.Credit.StringFixed(2))
		if err != nil {
			return fmt.Errorf("insert journal line: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) AccountByID(ctx context.Context, id string) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, company_id, code, name, category, is_active
		FROM accounts
		WHERE id = ?
	`, id)

	var acct models.Account
	err := row.Scan(&acct.ID, &acct.CompanyID, &acct.Code, &acct.Name, &acct.Category, &acct.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return &acct, nil
}

func (s *SQLiteStore) AccountsByCompany(ctx context.Context, companyID string) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company_id, code, name, category, is_active
		FROM accounts
		WHERE company_id = ?
		ORDER BY code
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var acct models.Account
		if err := rows.Scan(&acct.ID, &acct.CompanyID, &acct.Code, &acct.Name, &acct.Category, &acct.IsActive); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, acct)
	}
	return accounts, rows.Err()
}

func (s *SQLiteStore) SaveAccount(ctx context.Context, acct *models.Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, company_id, code, name, category, is_active)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (company_id, code) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			is_active = excluded.is_active
	`, acct.ID, acct.CompanyID, acct.Code, acct.Name, acct.Category, acct.IsActive)
	if err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RulesByCompany(ctx context.Context, companyID string) ([]models.MappingRule, error) {
	// Priority ties keep declaration order; rowid preserves insertion order
	// and stays stable across SaveRule upserts.
	rows, err := s.db.QueryContext(ctx, `
		SELECT pattern, debit_account_code, credit_account_code, priority, description
		FROM mapping_rules
		WHERE company_id = ?
		ORDER BY priority, rowid
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("query mapping rules: %w", err)
	}
	defer rows.Close()

	var rules []models.MappingRule
	for rows.Next() {
		var rule models.MappingRule
		if err := rows.Scan(&rule.Pattern, &rule.DebitAccountCode, &rule.CreditAccountCode, &rule.Priority, &rule.Description); err != nil {
			return nil, fmt.Errorf("scan mapping rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (s *SQLiteStore) SaveRule(ctx context.Context, companyID string, rule *models.MappingRule) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mapping_rules (company_id, pattern, debit_account_code, credit_account_code, priority, description)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (company_id, pattern) DO UPDATE SET
			debit_account_code = excluded.debit_account_code,
			credit_account_code = excluded.credit_account_code,
			priority = excluded.priority,
			description = excluded.description
	`, companyID, rule.Pattern, rule.DebitAccountCode, rule.CreditAccountCode, rule.Priority, rule.Description)
	if err != nil {
		return fmt.Errorf("upsert mapping rule: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FiscalPeriodByID(ctx context.Context, id string) (*models.FiscalPeriod, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, company_id, label, start_date, end_date
		FROM fiscal_periods
		WHERE id = ?
	`, id)

	var p models.FiscalPeriod
	var start, end string
	err := row.Scan(&p.ID, &p.CompanyID, &p.Label, &start, &end)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan fiscal period: %w", err)
	}
	if p.Start, err = time.ParseInLocation(dayFormat, start, time.UTC); err != nil {
		return nil, fmt.Errorf("parse stored date %q: %w", start, err)
	}
	if p.End, err = time.ParseInLocation(dayFormat, end, time.UTC); err != nil {
		return nil, fmt.Errorf("parse stored date %q: %w", end, err)
	}
	return &p, nil
}

func (s *SQLiteStore) SaveFiscalPeriod(ctx context.Context, period *models.FiscalPeriod) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fiscal_periods (id, company_id, label, start_date, end_date)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			label = excluded.label,
			start_date = excluded.start_date,
			end_date = excluded.end_date
	`, period.ID, period.CompanyID, period.Label, period.Start.Format(dayFormat), period.End.Format(dayFormat))
	if err != nil {
		return fmt.Errorf("upsert fiscal period: %w", err)
	}
	return nil
}
