// Package writer exports a batch's transactions as CSV, XLSX, JSON or a zip
// archive.
package writer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/models"
)

// Report is a batch together with its transactions.
type Report struct {
	Batch        models.UploadBatch   `json:"batch"`
	Transactions []models.Transaction `json:"extracted_transactions"`
}

// Format is an export format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatZip  Format = "zip"
)

// ParseFormat accepts json, csv, xlsx (or excel) and zip.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json", "":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	case "zip":
		return FormatZip, nil
	}
	return "", fmt.Errorf("unknown format %q (use json, csv, xlsx or zip)", s)
}

// ContentType is the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatZip:
		return "application/zip"
	}
	return "application/json"
}

// FileName is the download name of a batch export in this format.
func (f Format) FileName(uploadID string) string {
	return fmt.Sprintf("extracted_data_%s.%s", uploadID, f)
}

// Write encodes r in the given format.
func Write(out io.Writer, f Format, r Report) error {
	switch f {
	case FormatCSV:
		return (&CSVWriter{IncludeHeader: true}).Write(out, r)
	case FormatXLSX:
		return (&XLSXWriter{}).Write(out, r)
	case FormatZip:
		return (&ZipWriter{}).Write(out, r)
	default:
		return writeJSON(out, r)
	}
}

// WriteToFile writes r to path in the given format.
func WriteToFile(path string, f Format, r Report) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	if err := Write(file, f, r); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// columns is the flat row layout shared by CSV and XLSX.
var columns = []string{
	"Upload ID", "Source File", "Bank", "Transaction ID", "Date", "Time",
	"Amount", "Currency", "Description", "External Txn Ref", "Missing Fields",
}

func row(t models.Transaction) []string {
	return []string{
		t.UploadID,
		t.SourceFile,
		string(t.Dialect),
		deref(t.TransactionID),
		deref(t.Date),
		deref(t.Time),
		formatAmount(t.Amount),
		formatCurrency(t.Currency),
		deref(t.Description),
		t.Extras[string(models.FieldExternalTxnRef)],
		missingFields(t),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatAmount(amount *decimal.Decimal) string {
	if amount == nil {
		return ""
	}
	return amount.StringFixed(2)
}

func formatCurrency(c *models.Currency) string {
	if c == nil {
		return ""
	}
	return string(*c)
}

func missingFields(t models.Transaction) string {
	if !t.Invalid() {
		return ""
	}
	parts := make([]string, len(t.Info.MissingFields))
	for i, f := range t.Info.MissingFields {
		parts[i] = string(f)
	}
	return strings.Join(parts, ";")
}
