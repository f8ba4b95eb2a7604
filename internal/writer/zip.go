package writer

import (
	"archive/zip"
	"fmt"
	"io"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/models"
)

// ZipWriter packs the report's transactions as a single JSON file inside a
// zip archive.
type ZipWriter struct{}

// Write encodes the report as a zip archive.
func (w *ZipWriter) Write(out io.Writer, r Report) error {
	zw := zip.NewWriter(out)
	entry, err := zw.Create(FormatJSON.FileName(r.Batch.UploadID))
	if err != nil {
		return fmt.Errorf("create zip entry: %w", err)
	}
	txns := r.Transactions
	if txns == nil {
		txns = []models.Transaction{}
	}
	if err := writeJSON(entry, txns); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize zip: %w", err)
	}
	return nil
}
