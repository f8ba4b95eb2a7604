package writer

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/aggregate"
)

const (
	dataSheet    = "Extracted Data"
	summarySheet = "Summary"
)

// XLSXWriter writes a workbook with one row per transaction and a summary sheet.
type XLSXWriter struct{}

// Write encodes the report as an XLSX workbook.
func (w *XLSXWriter) Write(out io.Writer, r Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", dataSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(dataSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := f.SetRowStyle(dataSheet, 1, 1, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, txn := range r.Transactions {
		cells := row(txn)
		values := make([]interface{}, len(cells))
		for j, c := range cells {
			values[j] = c
		}
		// Amount as a number so spreadsheet formulas work on it.
		if txn.Amount != nil {
			values[6] = txn.Amount.InexactFloat64()
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(dataSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(dataSheet, "A", "K", 18); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if err := writeSummarySheet(f, r, bold); err != nil {
		return err
	}

	if err := f.Write(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, r Report, bold int) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	summary := aggregate.Aggregate(r.Batch.UploadID, r.Transactions)
	if r.Batch.Summary != nil {
		summary = *r.Batch.Summary
	}

	rows := [][]interface{}{
		{"Upload ID", r.Batch.UploadID},
		{"Upload Date", r.Batch.UploadDate.Format(time.RFC3339)},
		{"Total Files", r.Batch.TotalFiles},
		{"Total Transactions", summary.TotalTransactions},
		{"Missing Info", summary.MissingInfoCount},
	}
	for _, cur := range aggregate.Currencies(summary.TotalAmountByCurrency) {
		total := summary.TotalAmountByCurrency[cur]
		rows = append(rows, []interface{}{"Total " + string(cur), total.InexactFloat64()})
	}

	for i, values := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &values); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}
	if err := f.SetColStyle(summarySheet, "A", bold); err != nil {
		return fmt.Errorf("style summary: %w", err)
	}
	return f.SetColWidth(summarySheet, "A", "B", 22)
}
