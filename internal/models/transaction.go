package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Dialect identifies a bank's receipt layout.
type Dialect string

const (
	DialectABA     Dialect = "aba"
	DialectACLEDA  Dialect = "acleda"
	DialectUnknown Dialect = "unknown"
)

// Field names a transaction attribute an extraction rule can produce.
type Field string

const (
	FieldTransactionID  Field = "transaction_id"
	FieldDate           Field = "date"
	FieldTime           Field = "time"
	FieldAmount         Field = "amount"
	FieldCurrency       Field = "currency"
	FieldDescription    Field = "description"
	FieldExternalTxnRef Field = "external_txn_ref"
)

// BaseRequiredFields are the fields every valid transaction must carry,
// in the order they are reported when missing.
var BaseRequiredFields = []Field{FieldTransactionID, FieldDate, FieldAmount, FieldCurrency}

// Transaction is one receipt's worth of extracted data. Absent fields are nil.
type Transaction struct {
	ID            string            `json:"id,omitempty"`
	UploadID      string            `json:"upload_id,omitempty"`
	SourceFile    string            `json:"source_file,omitempty"`
	Dialect       Dialect           `json:"dialect,omitempty"`
	TransactionID *string           `json:"transaction_id"`
	Date          *string           `json:"date"`
	Time          *string           `json:"time,omitempty"`
	Amount        *decimal.Decimal  `json:"amount"`
	Currency      *Currency         `json:"currency"`
	Description   *string           `json:"description,omitempty"`
	Extras        map[string]string `json:"extras,omitempty"`
	Info          *TransactionInfo  `json:"info,omitempty"`
}

// TransactionInfo carries validation results. Only set on invalid transactions.
type TransactionInfo struct {
	MissingFields []Field `json:"missing_fields"`
}

// Has reports whether the named field holds a value.
func (t Transaction) Has(f Field) bool {
	switch f {
	case FieldTransactionID:
		return t.TransactionID != nil
	case FieldDate:
		return t.Date != nil
	case FieldTime:
		return t.Time != nil
	case FieldAmount:
		return t.Amount != nil
	case FieldCurrency:
		return t.Currency != nil
	case FieldDescription:
		return t.Description != nil
	default:
		_, ok := t.Extras[string(f)]
		return ok
	}
}

// Invalid reports whether validation flagged missing fields.
func (t Transaction) Invalid() bool {
	return t.Info != nil && len(t.Info.MissingFields) > 0
}

// UploadBatch groups the transactions extracted from one upload.
type UploadBatch struct {
	UploadID   string        `json:"upload_id"`
	UploadDate time.Time     `json:"upload_date"`
	TotalFiles int           `json:"total_files"`
	Summary    *BatchSummary `json:"extraction_summary,omitempty"`
}

// BatchSummary is derived from the full transaction set of a batch.
type BatchSummary struct {
	TotalTransactions     int                          `json:"total_transactions"`
	TotalAmountByCurrency map[Currency]decimal.Decimal `json:"total_amount_by_currency"`
	MissingInfoCount      int                          `json:"missing_info_count"`
}

// DebugLine captures what the extractor did with each input line.
type DebugLine struct {
	LineNum int     `json:"lineNum"`
	Text    string  `json:"text"`
	Fields  []Field `json:"fields,omitempty"`
	Result  string  `json:"result"` // "matched", "skipped", "committed", "malformed"
	Note    string  `json:"note,omitempty"`
}

// FileOutcome reports what happened to a single uploaded file.
type FileOutcome struct {
	FileName      string      `json:"file_name"`
	Checksum      string      `json:"checksum,omitempty"`
	Dialect       Dialect     `json:"dialect"`
	Recognized    bool        `json:"recognized"`
	FieldsMatched int         `json:"fields_matched"`
	Transactions  int         `json:"transactions"`
	Valid         int         `json:"valid"`
	Invalid       int         `json:"invalid"`
	Error         string      `json:"error,omitempty"`
	DebugLines    []DebugLine `json:"debugLines,omitempty"`
}

// Clone returns a copy of t that shares no maps or slices with it.
func (t Transaction) Clone() Transaction {
	if t.Extras != nil {
		extras := make(map[string]string, len(t.Extras))
		for k, v := range t.Extras {
			extras[k] = v
		}
		t.Extras = extras
	}
	if t.Info != nil {
		fields := make([]Field, len(t.Info.MissingFields))
		copy(fields, t.Info.MissingFields)
		t.Info = &TransactionInfo{MissingFields: fields}
	}
	return t
}

// Clone returns a copy of b with its own summary.
func (b UploadBatch) Clone() UploadBatch {
	if b.Summary != nil {
		s := *b.Summary
		if s.TotalAmountByCurrency != nil {
			totals := make(map[Currency]decimal.Decimal, len(s.TotalAmountByCurrency))
			for c, v := range s.TotalAmountByCurrency {
				totals[c] = v
			}
			s.TotalAmountByCurrency = totals
		}
		b.Summary = &s
	}
	return b
}
