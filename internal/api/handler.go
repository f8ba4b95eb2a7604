// Package api serves the receipt scanner over HTTP.
package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/extractor"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/models"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/parser"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/pipeline"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/store"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/writer"
)

// previewSize is how many transactions an upload response lists.
const previewSize = 5

// UploadResponse is the JSON response from POST /upload.
type UploadResponse struct {
	UploadID         string                              `json:"upload_id"`
	Message          string                              `json:"message"`
	UploadDate       time.Time                           `json:"upload_date"`
	TotalFiles       int                                 `json:"total_files"`
	TotalAmount      map[models.Currency]decimal.Decimal `json:"total_amount"`
	MissingInfoCount int                                 `json:"missing_info_count"`
	TransactionInfo  []TransactionInfo                   `json:"transaction_info"`
	Files            []models.FileOutcome                `json:"files"`
}

// TransactionInfo is the short form of a transaction in an upload response.
type TransactionInfo struct {
	TransactionID *string          `json:"transaction_id"`
	Date          *string          `json:"date"`
	Amount        *decimal.Decimal `json:"amount"`
	MissingFields []models.Field   `json:"missing_fields"`
}

// ResultsResponse is the JSON response from GET /results/:id.
type ResultsResponse struct {
	Summary      *models.BatchSummary `json:"summary"`
	Transactions []models.Transaction `json:"extracted_transactions"`
}

// HistoryItem is one entry of GET /history.
type HistoryItem struct {
	UploadID              string                              `json:"upload_id"`
	UploadDate            time.Time                           `json:"upload_date"`
	TotalFiles            int                                 `json:"total_files"`
	TotalAmount           map[models.Currency]decimal.Decimal `json:"total_amount"`
	ValidationErrorsCount int                                 `json:"validation_errors_count"`
}

// HealthResponse is the JSON response from GET /api/health.
type HealthResponse struct {
	Status     string           `json:"status"`
	Engine     string           `json:"engine"`
	Version    string           `json:"version"`
	Recognizer extractor.Status `json:"recognizer"`
	Classifier extractor.Status `json:"classifier"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Handler holds the HTTP handlers for the API.
type Handler struct {
	Processor *pipeline.Processor
	Store     store.RecordStore
	Registry  *parser.Registry
	StaticDir string
	Version   string
	Log       zerolog.Logger
}

// RegisterRoutes sets up the HTTP routes.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Get("/api/health", h.HandleHealth)
	app.Post("/upload", h.HandleUpload)
	app.Get("/results/:id", h.HandleResults)
	app.Get("/history", h.HandleHistory)
	app.Get("/transactions/:id", h.HandleTransactions)
	app.Get("/download/excel/:id", h.handleExport(writer.FormatXLSX))
	app.Get("/download/csv/:id", h.handleExport(writer.FormatCSV))
	app.Get("/download/:id", h.handleExport(writer.FormatZip))

	// Serve the static frontend
	if h.StaticDir != "" {
		app.Static("/", h.StaticDir)
		app.Get("/*", func(c *fiber.Ctx) error {
			// For SPA: serve index.html for non-file routes
			full := filepath.Join(h.StaticDir, filepath.Clean("/"+c.Params("*")))
			if _, err := os.Stat(full); os.IsNotExist(err) {
				return c.SendFile(filepath.Join(h.StaticDir, "index.html"))
			}
			return c.SendFile(full)
		})
	}
}

// HandleHealth reports liveness and whether the OCR and classification
// engines can be used.
func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	resp := HealthResponse{Status: "ok", Engine: "fiber", Version: h.Version}
	if h.Processor != nil {
		resp.Recognizer = extractor.StatusOf(h.Processor.Recognizer)
		resp.Classifier = extractor.StatusOf(h.Processor.Classifier)
		if !resp.Recognizer.Available || !resp.Classifier.Available {
			resp.Status = "degraded"
		}
	}
	return c.JSON(resp)
}

// HandleUpload processes the files in the multipart field "files". An
// optional "bank" field names the dialect of every file and skips
// classification.
func (h *Handler) HandleUpload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Failed to parse form: %v", err))
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "No files uploaded. Use form field 'files'.")
	}

	bank := strings.TrimSpace(c.FormValue("bank"))
	if bank != "" {
		if _, ok := h.Registry.Lookup(bank); !ok {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Unknown bank: %q. Use aba or acleda.", bank))
		}
	}

	docs := make([]extractor.Document, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Failed to open %s: %v", fh.Filename, err))
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Failed to read %s: %v", fh.Filename, err))
		}
		docs = append(docs, extractor.Document{
			Name:        filepath.Base(fh.Filename),
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	res, err := h.Processor.ProcessUpload(c.UserContext(), docs, bank)
	if err != nil {
		return err
	}

	includeDebug := c.FormValue("debug") == "true"
	files := make([]models.FileOutcome, len(res.Files))
	for i, f := range res.Files {
		if !includeDebug {
			f.DebugLines = nil
		}
		files[i] = f
	}

	preview := make([]TransactionInfo, 0, previewSize)
	for _, t := range res.Transactions {
		if len(preview) == previewSize {
			break
		}
		info := TransactionInfo{
			TransactionID: t.TransactionID,
			Date:          t.Date,
			Amount:        t.Amount,
			MissingFields: []models.Field{},
		}
		if t.Invalid() {
			info.MissingFields = t.Info.MissingFields
		}
		preview = append(preview, info)
	}

	summary := res.Batch.Summary
	return c.JSON(UploadResponse{
		UploadID:         res.Batch.UploadID,
		Message:          "Files processed successfully.",
		UploadDate:       res.Batch.UploadDate,
		TotalFiles:       res.Batch.TotalFiles,
		TotalAmount:      summary.TotalAmountByCurrency,
		MissingInfoCount: summary.MissingInfoCount,
		TransactionInfo:  preview,
		Files:            files,
	})
}

// HandleResults returns a batch's summary and transactions. Unknown batches
// yield an empty result rather than an error.
func (h *Handler) HandleResults(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id := c.Params("id")

	batch, err := h.Store.GetBatch(ctx, id)
	if errors.Is(err, models.ErrBatchNotFound) {
		return c.JSON(ResultsResponse{Transactions: []models.Transaction{}})
	}
	if err != nil {
		return err
	}
	txns, err := h.Store.ListTransactions(ctx, id)
	if err != nil {
		return err
	}
	if txns == nil {
		txns = []models.Transaction{}
	}
	return c.JSON(ResultsResponse{Summary: batch.Summary, Transactions: txns})
}

// HandleHistory lists every batch, newest first.
func (h *Handler) HandleHistory(c *fiber.Ctx) error {
	batches, err := h.Store.ListBatches(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]HistoryItem, 0, len(batches))
	for _, b := range batches {
		item := HistoryItem{
			UploadID:    b.UploadID,
			UploadDate:  b.UploadDate,
			TotalFiles:  b.TotalFiles,
			TotalAmount: map[models.Currency]decimal.Decimal{},
		}
		if b.Summary != nil {
			item.TotalAmount = b.Summary.TotalAmountByCurrency
			item.ValidationErrorsCount = b.Summary.MissingInfoCount
		}
		items = append(items, item)
	}
	return c.JSON(items)
}

// HandleTransactions returns a batch's transactions, or 404 when there are none.
func (h *Handler) HandleTransactions(c *fiber.Ctx) error {
	txns, err := h.Store.ListTransactions(c.UserContext(), c.Params("id"))
	if err != nil && !errors.Is(err, models.ErrBatchNotFound) {
		return err
	}
	if len(txns) == 0 {
		return fiber.NewError(fiber.StatusNotFound, "Transactions not found for this upload ID")
	}
	return c.JSON(txns)
}

// handleExport streams a batch in the given format as a file download.
// CSV and XLSX exports need at least one transaction.
func (h *Handler) handleExport(format writer.Format) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		id := c.Params("id")

		batch, err := h.Store.GetBatch(ctx, id)
		if errors.Is(err, models.ErrBatchNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Extraction results not found")
		}
		if err != nil {
			return err
		}
		txns, err := h.Store.ListTransactions(ctx, id)
		if err != nil {
			return err
		}
		if len(txns) == 0 && format != writer.FormatZip {
			return fiber.NewError(fiber.StatusNotFound, "Extraction results not found")
		}

		var buf bytes.Buffer
		if err := writer.Write(&buf, format, writer.Report{Batch: *batch, Transactions: txns}); err != nil {
			return fmt.Errorf("export %s: %w", format, err)
		}
		c.Attachment(format.FileName(id))
		c.Set(fiber.HeaderContentType, format.ContentType())
		return c.Send(buf.Bytes())
	}
}
