package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// CSVWriter writes transactions to CSV format.
type CSVWriter struct {
	IncludeHeader bool
}

// Write writes the report's transactions in CSV format to the given writer.
func (w *CSVWriter) Write(out io.Writer, r Report) error {
	writer := csv.NewWriter(out)

	// Write batch metadata as comment rows
	if w.IncludeHeader {
		meta := [][]string{
			{"# Upload ID", r.Batch.UploadID},
			{"# Upload Date", r.Batch.UploadDate.Format(time.RFC3339)},
			{"# Total Files", strconv.Itoa(r.Batch.TotalFiles)},
		}
		if s := r.Batch.Summary; s != nil {
			meta = append(meta, []string{"# Missing Info", strconv.Itoa(s.MissingInfoCount)})
		}
		for _, m := range meta {
			if err := writer.Write(m); err != nil {
				return fmt.Errorf("failed to write CSV metadata: %w", err)
			}
		}
	}

	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, txn := range r.Transactions {
		if err := writer.Write(row(txn)); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
