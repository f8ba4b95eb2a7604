// Package validation checks transactions against the required-field contract.
package validation

import "github.com/chantharith-NY/Bank-Transcript-Scanner/internal/models"

// Outcome is the result of validating one transaction.
type Outcome struct {
	Valid         bool           `json:"valid"`
	MissingFields []models.Field `json:"missing_fields,omitempty"`
}

// Validate reports which required fields t lacks. The base fields are
// checked first in canonical order, followed by extra in the order given.
// Validate does not modify t.
func Validate(t models.Transaction, extra ...models.Field) Outcome {
	var missing []models.Field
	seen := make(map[models.Field]bool, len(models.BaseRequiredFields)+len(extra))
	check := func(f models.Field) {
		if seen[f] {
			return
		}
		seen[f] = true
		if !t.Has(f) {
			missing = append(missing, f)
		}
	}
	for _, f := range models.BaseRequiredFields {
		check(f)
	}
	for _, f := range extra {
		check(f)
	}
	return Outcome{Valid: len(missing) == 0, MissingFields: missing}
}

// Apply returns a copy of t carrying the outcome. Valid transactions have no
// info block; invalid ones list their missing fields.
func Apply(t models.Transaction, o Outcome) models.Transaction {
	if o.Valid {
		t.Info = nil
		return t
	}
	fields := make([]models.Field, len(o.MissingFields))
	copy(fields, o.MissingFields)
	t.Info = &models.TransactionInfo{MissingFields: fields}
	return t
}
