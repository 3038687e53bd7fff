package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ledgerkeep/statement-ledger/internal/extractor"
	"github.com/ledgerkeep/statement-ledger/internal/ingest"
	"github.com/ledgerkeep/statement-ledger/internal/models"
	"github.com/ledgerkeep/statement-ledger/internal/parser"
)

// Ingestor runs one statement document through the pipeline.
type Ingestor interface {
	ProcessDocument(ctx context.Context, doc ingest.Document) (*models.UploadResult, error)
}

// ManualClassifier applies an explicit account pair to a saved transaction.
type ManualClassifier interface {
	ApplyManual(ctx context.Context, companyID, txID, debitAccountID, creditAccountID string) (*models.JournalEntry, error)
}

// Handler holds the HTTP handlers for the API.
type Handler struct {
	Ingestor   Ingestor
	Classifier ManualClassifier
	Log        *zap.Logger
}

// RegisterRoutes sets up the HTTP routes.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Get("/api/health", h.handleHealth)
	app.Post("/api/statements", h.handleUpload)
	app.Post("/api/transactions/:id/classify", h.handleClassify)
}

func (h *Handler) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"engine": "fiber",
	})
}

func (h *Handler) handleUpload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "No file uploaded. Use form field 'file'.")
	}

	companyID := c.FormValue("company")
	periodID := c.FormValue("period")
	if companyID == "" || periodID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Form fields 'company' and 'period' are required.")
	}

	var bank parser.Bank
	if bankParam := c.FormValue("bank"); bankParam != "" {
		switch strings.ToLower(bankParam) {
		case "standardbank", "standard":
			bank = parser.BankStandard
		case "fnb":
			bank = parser.BankFNB
		case "absa":
			bank = parser.BankAbsa
		default:
			return fiber.NewError(fiber.StatusBadRequest,
				fmt.Sprintf("Unknown bank: %q. Use standardbank, fnb, or absa.", bankParam))
		}
	}

	lines, err := h.readLines(fileHeader.Filename, func() (io.ReadCloser, error) { return fileHeader.Open() })
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}

	doc := ingest.Document{
		Meta: models.DocumentMeta{
			CompanyID:      companyID,
			FiscalPeriodID: periodID,
			SourceFile:     fileHeader.Filename,
		},
		Bank:  bank,
		Lines: lines,
	}

	result, err := h.Ingestor.ProcessDocument(c.Context(), doc)
	if err != nil {
		var nferr *models.NotFoundError
		var verr *models.ValidationError
		switch {
		case errors.As(err, &nferr):
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		case errors.As(err, &verr):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		default:
			return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
		}
	}
	return c.JSON(result)
}

// readLines extracts statement lines from the upload. PDFs go through the
// text-layer extractor; anything else is treated as plain text.
func (h *Handler) readLines(filename string, open func() (io.ReadCloser, error)) ([]string, error) {
	src, err := open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return extractor.FromReader(src)
	}

	// The PDF library needs a seekable file on disk.
	tmp, err := os.CreateTemp("", "statement-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := io.Copy(tmp, src); err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}
	return extractor.FromPDF(tmp.Name())
}

type classifyRequest struct {
	CompanyID       string `json:"companyId"`
	DebitAccountID  string `json:"debitAccountId"`
	CreditAccountID string `json:"creditAccountId"`
}

func (h *Handler) handleClassify(c *fiber.Ctx) error {
	txID := c.Params("id")

	var req classifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON body.")
	}
	if req.CompanyID == "" || req.DebitAccountID == "" || req.CreditAccountID == "" {
		return fiber.NewError(fiber.StatusBadRequest,
			"Fields 'companyId', 'debitAccountId' and 'creditAccountId' are required.")
	}

	entry, err := h.Classifier.ApplyManual(c.Context(), req.CompanyID, txID, req.DebitAccountID, req.CreditAccountID)
	if err != nil {
		var nferr *models.NotFoundError
		var verr *models.ValidationError
		switch {
		case errors.As(err, &nferr):
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		case errors.As(err, &verr):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		default:
			h.Log.Error("manual classification failed", zap.String("transaction_id", txID), zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "Classification failed.")
		}
	}
	return c.JSON(entry)
}
