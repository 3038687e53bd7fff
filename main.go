package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ledgerkeep/statement-ledger/internal/api"
	"github.com/ledgerkeep/statement-ledger/internal/config"
	"github.com/ledgerkeep/statement-ledger/internal/extractor"
	"github.com/ledgerkeep/statement-ledger/internal/ingest"
	"github.com/ledgerkeep/statement-ledger/internal/ledger"
	"github.com/ledgerkeep/statement-ledger/internal/models"
	"github.com/ledgerkeep/statement-ledger/internal/observability"
	"github.com/ledgerkeep/statement-ledger/internal/parser"
	"github.com/ledgerkeep/statement-ledger/internal/store"
)

const version = "1.0.0"

func main() {
	bankFlag := flag.String("bank", "", "Bank format: standardbank, fnb, absa (auto-detected if omitted)")
	companyFlag := flag.String("company", "", "Company identifier the statements belong to")
	periodFlag := flag.String("period", "", "Fiscal period identifier to validate against")
	cfgFlag := flag.String("config", "", "Config file path (optional)")
	serveFlag := flag.Bool("serve", false, "Run the HTTP API instead of processing files")
	versionFlag := flag.Bool("version", false, "Print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Statement Ledger
Bank statement ingestion and double-entry classification

Parses Standard Bank, FNB, and Absa statement exports into validated,
deduplicated transactions with rule-driven journal entries.

Usage:
  statement-ledger [flags] <statement.pdf|statement.txt> [more files ...]
  statement-ledger -serve

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Auto-detect format and ingest
  statement-ledger -company=co-1 -period=fy-2024 statement.pdf

  # Specify format explicitly, multiple files in parallel
  statement-ledger -bank=fnb -company=co-1 -period=fy-2024 jan.pdf feb.pdf

  # Run the HTTP API
  statement-ledger -serve

Supported Formats:
  standardbank  - Standard Bank (MM DD dates, trailing '-' debit, '##' fee)
  fnb           - FNB (DD Mon dates, 'Cr' credit suffix, '#' charge lines)
  absa          - Absa (DD/MM/YYYY dates, column-position layout)
`)
	}

	flag.Parse()

	if *versionFlag {
		fmt.Printf("statement-ledger v%s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*cfgFlag)
	if err != nil {
		fatalf("Config error: %v\n", err)
	}

	log := observability.NewLogger(cfg.Log.Level)
	defer log.Sync()

	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		fatalf("Database error: %v\n", err)
	}
	defer db.Close()

	engine := ledger.NewEngine(db, log)
	svc := ingest.NewService(db, engine, log)

	if *serveFlag {
		runServer(cfg, db, engine, svc, log)
		return
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}
	if *companyFlag == "" || *periodFlag == "" {
		fatalf("Flags -company and -period are required when processing files.\n")
	}

	bank, err := resolveBank(*bankFlag)
	if err != nil {
		fatalf("%v\n", err)
	}

	docs := make([]ingest.Document, 0, flag.NArg())
	for _, path := range flag.Args() {
		lines, err := readStatement(path)
		if err != nil {
			fatalf("Error reading %s: %v\n", path, err)
		}
		docs = append(docs, ingest.Document{
			Meta: models.DocumentMeta{
				CompanyID:      *companyFlag,
				FiscalPeriodID: *periodFlag,
				SourceFile:     filepath.Base(path),
			},
			Bank:  bank,
			Lines: lines,
		})
	}

	results, err := svc.ProcessBatch(context.Background(), docs)
	if err != nil {
		fatalf("Error: %v\n", err)
	}
	for _, res := range results {
		printResult(res)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}

func runServer(cfg *config.Config, db *store.SQLiteStore, engine *ledger.Engine, svc *ingest.Service, log *zap.Logger) {
	app := fiber.New(fiber.Config{
		BodyLimit: cfg.Upload.MaxSizeMB * 1024 * 1024,
	})
	app.Use(observability.RequestLogger(log))

	h := &api.Handler{Ingestor: svc, Classifier: engine, Log: log}
	h.RegisterRoutes(app)

	log.Info("listening", zap.String("addr", cfg.Server.Addr))
	if err := app.Listen(cfg.Server.Addr); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func resolveBank(name string) (parser.Bank, error) {
	switch strings.ToLower(name) {
	case "":
		return "", nil
	case "standardbank", "standard":
		return parser.BankStandard, nil
	case "fnb":
		return parser.BankFNB, nil
	case "absa":
		return parser.BankAbsa, nil
	default:
		return "", fmt.Errorf("unknown bank format %q. Supported: standardbank, fnb, absa", name)
	}
}

func readStatement(path string) ([]string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("input file not found: %s", path)
	}
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return extractor.FromPDF(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return extractor.FromReader(f)
}

func printResult(res *models.UploadResult) {
	fmt.Printf("Processed: %s (%s)\n", res.SourceFile, res.Bank)
	fmt.Printf("  Transactions: %d\n", res.TotalTransactions)
	fmt.Printf("  Saved: %d (%d unclassified)\n", res.SavedCount, len(res.UnclassifiedIDs))
	fmt.Printf("  Duplicates: %d\n", res.DuplicateCount)
	fmt.Printf("  Out of period: %d\n", res.OutOfPeriodCount)
	fmt.Printf("  Validation errors: %d\n", res.ValidationErrorCount)
	if res.SkippedLines > 0 {
		fmt.Printf("  Skipped lines: %d\n", res.SkippedLines)
	}
	for _, r := range res.Rejected {
		fmt.Printf("  Rejected [%s] %s: %s\n", r.Reason, r.Date.Format("2006-01-02"), r.Detail)
	}
	fmt.Println("  Done.")
}
