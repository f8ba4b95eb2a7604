package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/writer"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		bankFlag, formatFlag, outputFlag = "", "json", ""
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestScanDirectoryToJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"),
		[]byte("ABA BANK\nTrx. ID: 123456\nTransaction date: Jan 5, 2024 10:00 AM\n50.00 USD"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"),
		[]byte("ACLEDA\nCompleted : Ref. FT24005XYZ\nPayment Amount : 25.00 USD\nDate : Jan 05, 2024 11:00 AM"), 0o600))

	out, err := runCLI(t, "scan", "--config", filepath.Join(dir, "missing.yaml"), dir)
	require.NoError(t, err)

	var report writer.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report), out)
	assert.Equal(t, 2, report.Batch.TotalFiles)
	require.NotNil(t, report.Batch.Summary)
	assert.Equal(t, 2, report.Batch.Summary.TotalTransactions)
	assert.Equal(t, "a.txt", report.Transactions[0].SourceFile)
}

func TestScanRejectsUnknownBank(t *testing.T) {
	_, err := runCLI(t, "scan", "--bank", "wing", "x.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown bank")
}

func TestScanXLSXNeedsOutput(t *testing.T) {
	_, err := runCLI(t, "scan", "--format", "xlsx", "x.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--output")
}

func TestVersion(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "Version:    "+Version))
}
