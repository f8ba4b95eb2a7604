package writer

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/models"
)

func strPtr(s string) *string { return &s }

func testReport() Report {
	usd := models.USD
	amt := decimal.RequireFromString("50")
	return Report{
		Batch: models.UploadBatch{
			UploadID:   "batch-1",
			UploadDate: time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC),
			TotalFiles: 2,
			Summary: &models.BatchSummary{
				TotalTransactions:     2,
				TotalAmountByCurrency: map[models.Currency]decimal.Decimal{models.USD: amt},
				MissingInfoCount:      1,
			},
		},
		Transactions: []models.Transaction{
			{
				UploadID:      "batch-1",
				SourceFile:    "a.png",
				Dialect:       models.DialectABA,
				TransactionID: strPtr("123456"),
				Date:          strPtr("Jan 5, 2024"),
				Time:          strPtr("10:00 AM"),
				Amount:        &amt,
				Currency:      &usd,
				Description:   strPtr("Lunch, with team"),
			},
			{
				UploadID:      "batch-1",
				SourceFile:    "b.png",
				Dialect:       models.DialectACLEDA,
				TransactionID: strPtr("99887766"),
				Extras:        map[string]string{"external_txn_ref": "FT2401"},
				Info:          &models.TransactionInfo{MissingFields: []models.Field{models.FieldDate, models.FieldAmount, models.FieldCurrency}},
			},
		},
	}
}

func TestCSVWriter_Write(t *testing.T) {
	var buf bytes.Buffer
	w := &CSVWriter{IncludeHeader: true}
	if err := w.Write(&buf, testReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()

	if !strings.Contains(output, "# Upload ID,batch-1") {
		t.Error("expected upload id metadata")
	}
	if !strings.Contains(output, "# Missing Info,1") {
		t.Error("expected missing info metadata")
	}
	if !strings.Contains(output, strings.Join(columns, ",")) {
		t.Error("expected column headers")
	}
	if !strings.Contains(output, "batch-1,a.png,aba,123456,\"Jan 5, 2024\",10:00 AM,50.00,USD,\"Lunch, with team\",,") {
		t.Errorf("unexpected first row in:\n%s", output)
	}
	if !strings.Contains(output, "FT2401,date;amount;currency") {
		t.Error("expected external ref and missing fields on second row")
	}

	lines := strings.Split(strings.TrimSpace(output), "\n")
	// 4 metadata lines + 1 header + 2 transactions = 7
	if len(lines) != 7 {
		t.Errorf("expected 7 lines, got %d", len(lines))
	}
}

func TestCSVWriter_WriteNoHeader(t *testing.T) {
	var buf bytes.Buffer
	w := &CSVWriter{IncludeHeader: false}
	if err := w.Write(&buf, testReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()

	if strings.Contains(output, "# Upload ID") {
		t.Error("should not have batch metadata when header=false")
	}
	if !strings.HasPrefix(output, strings.Join(columns, ",")) {
		t.Error("expected column headers even without metadata")
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		input    *decimal.Decimal
		expected string
	}{
		{decPtr("25.99"), "25.99"},
		{decPtr("10000"), "10000.00"},
		{decPtr("-50.5"), "-50.50"},
		{nil, ""},
	}

	for _, tt := range tests {
		got := formatAmount(tt.input)
		if got != tt.expected {
			t.Errorf("formatAmount(%v): got %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
