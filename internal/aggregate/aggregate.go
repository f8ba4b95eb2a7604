// Package aggregate rolls a batch's transactions up into its summary.
package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/models"
)

// Aggregate computes the summary for the complete transaction set of a batch.
// The result does not depend on the order of txns. Amounts are only totalled
// when both amount and currency are known.
func Aggregate(batchID string, txns []models.Transaction) models.BatchSummary {
	s := models.BatchSummary{
		TotalTransactions:     len(txns),
		TotalAmountByCurrency: make(map[models.Currency]decimal.Decimal),
	}
	for _, t := range txns {
		if t.Invalid() {
			s.MissingInfoCount++
		}
		if t.Amount == nil || t.Currency == nil {
			continue
		}
		s.TotalAmountByCurrency[*t.Currency] = s.TotalAmountByCurrency[*t.Currency].Add(*t.Amount)
	}
	return s
}

// Verify checks a stored summary against the stored transactions of its batch.
// Any difference is returned as models.ErrAggregationInconsistency.
func Verify(batchID string, summary models.BatchSummary, persisted []models.Transaction) error {
	var problems []string
	for _, t := range persisted {
		if t.UploadID != batchID {
			problems = append(problems, fmt.Sprintf("transaction %s belongs to batch %q", t.ID, t.UploadID))
		}
	}

	stored := Aggregate(batchID, persisted)
	if summary.TotalTransactions != len(persisted) {
		problems = append(problems, fmt.Sprintf("total_transactions %d, stored %d", summary.TotalTransactions, len(persisted)))
	}
	if summary.MissingInfoCount != stored.MissingInfoCount {
		problems = append(problems, fmt.Sprintf("missing_info_count %d, stored %d", summary.MissingInfoCount, stored.MissingInfoCount))
	}
	for _, cur := range Currencies(summary.TotalAmountByCurrency, stored.TotalAmountByCurrency) {
		got, have := summary.TotalAmountByCurrency[cur], stored.TotalAmountByCurrency[cur]
		if !got.Equal(have) {
			problems = append(problems, fmt.Sprintf("total %s %s, stored %s", cur, got, have))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: batch %s: %s", models.ErrAggregationInconsistency, batchID, strings.Join(problems, "; "))
	}
	return nil
}

// Currencies returns the sorted union of the currencies keyed in maps.
func Currencies(maps ...map[models.Currency]decimal.Decimal) []models.Currency {
	seen := make(map[models.Currency]bool)
	var out []models.Currency
	for _, m := range maps {
		for c := range m {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
