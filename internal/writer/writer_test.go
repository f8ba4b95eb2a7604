package writer

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/models"
)

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"":      FormatJSON,
		"JSON":  FormatJSON,
		"csv":   FormatCSV,
		"excel": FormatXLSX,
		"xlsx":  FormatXLSX,
		"zip":   FormatZip,
	}
	for in, want := range tests {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("pdf")
	assert.Error(t, err)
}

func TestFormatMetadata(t *testing.T) {
	assert.Equal(t, "extracted_data_b1.xlsx", FormatXLSX.FileName("b1"))
	assert.Equal(t, "text/csv; charset=utf-8", FormatCSV.ContentType())
	assert.Equal(t, "application/zip", FormatZip.ContentType())
}

func TestXLSXWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXLSX, testReport()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{dataSheet, summarySheet}, f.GetSheetList())

	rows, err := f.GetRows(dataSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, columns, rows[0])
	assert.Equal(t, "123456", rows[1][3])
	assert.Equal(t, "50", rows[1][6])
	assert.Equal(t, "date;amount;currency", rows[2][10])

	total, err := f.GetCellValue(summarySheet, "B6")
	require.NoError(t, err)
	assert.Equal(t, "50", total)
	label, err := f.GetCellValue(summarySheet, "A6")
	require.NoError(t, err)
	assert.Equal(t, "Total USD", label)
}

func TestZipWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatZip, testReport()))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, "extracted_data_batch-1.json", zr.File[0].Name)

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)

	var txns []models.Transaction
	require.NoError(t, json.Unmarshal(data, &txns))
	require.Len(t, txns, 2)
	assert.Equal(t, "123456", *txns[0].TransactionID)
	assert.True(t, txns[1].Invalid())
}

func TestWriteToFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, WriteToFile(path, FormatJSON, testReport()))
	assert.FileExists(t, path)
}
