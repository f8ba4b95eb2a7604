package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/parser"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/source"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/writer"
)

var (
	bankFlag   string
	formatFlag string
	outputFlag string
)

var scanCmd = &cobra.Command{
	Use:   "scan <file|dir|gs://bucket/path>...",
	Short: "Scan receipt files as one upload batch",
	Long: `Scan receipt files as one upload batch and write the transactions.

Locations may be files, directories (their receipt files) or GCS URIs.
A GCS URI ending in "/" is read as a prefix.

Examples:
  scanner scan receipt.png
  scanner scan --bank acleda --format xlsx --output jan.xlsx receipts/
  scanner scan gs://my-bucket/receipts/2024-01/`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&bankFlag, "bank", "", "Bank of every receipt: aba or acleda (classified if omitted)")
	scanCmd.Flags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json, csv, xlsx or zip")
	scanCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output file (defaults to stdout)")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	format, err := writer.ParseFormat(formatFlag)
	if err != nil {
		return err
	}
	if bankFlag != "" {
		if _, ok := parser.DefaultRegistry().Lookup(bankFlag); !ok {
			return fmt.Errorf("unknown bank %q, supported: aba, acleda", bankFlag)
		}
	}
	if outputFlag == "" && (format == writer.FormatXLSX || format == writer.FormatZip) {
		return fmt.Errorf("--output is required for %s", format)
	}

	ctx := cmd.Context()
	// Logs go to stderr so stdout carries only the export.
	svc, err := setup(ctx, os.Stderr)
	if err != nil {
		return err
	}
	defer svc.Close()

	loader := &source.Loader{CredentialsFile: svc.cfg.GCS.CredentialsFile}
	defer loader.Close()

	docs, err := loader.Load(ctx, args)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no receipt files found")
	}

	res, err := svc.processor.ProcessUpload(ctx, docs, bankFlag)
	if err != nil {
		return err
	}
	for _, f := range res.Files {
		if f.Transactions == 0 {
			svc.log.Warn().Str("file", f.FileName).Msg("no transactions found; try --bank if classification failed")
		}
	}

	report := writer.Report{Batch: res.Batch, Transactions: res.Transactions}
	if outputFlag == "" {
		return writer.Write(cmd.OutOrStdout(), format, report)
	}
	if err := writer.WriteToFile(outputFlag, format, report); err != nil {
		return err
	}
	svc.log.Info().
		Str("upload_id", res.Batch.UploadID).
		Str("output", outputFlag).
		Int("transactions", len(res.Transactions)).
		Msg("scan written")
	return nil
}
