package parser

import (
	"regexp"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/models"
)

// ABA Bank mobile receipts.
//
// Typical OCR output:
//
//	Trx. ID: 123456
//	Transaction date: Jan 5, 2024 10:00 AM
//	-50.00 USD
//	Original amount: -200,000 KHR
//
// The settlement amount carries no label; it is the first number on a line
// followed by a currency code or shorthand.
const (
	amountNumber  = `-?\d{1,3}(?:,\d{3})+(?:\.\d{1,2})?|-?\d+(?:\.\d{1,2})?`
	currencyToken = `USD|KHR|THB|EUR|U|K`
)

var (
	abaTrxIDPattern = regexp.MustCompile(
		`(?i:Trx)\s*\.?\s*(?i:ID)\s*[:;.]?\s*([` + confusableDigits + `]{3,})\b`,
	)
	abaAmountPattern = regexp.MustCompile(
		`(?:^|[^\d.,])(` + amountNumber + `)\s*(` + currencyToken + `)\b`,
	)
	abaDatePattern = regexp.MustCompile(
		`(?i:Transact[il1]on\s+date)\s*[:;]?\s*(\w{3}\s+\d{1,2},\s*\d{4})`,
	)
	abaTimePattern = regexp.MustCompile(
		`(?i:Transact[il1]on\s+date)\s*[:;]?\s*\w{3}\s+\d{1,2},\s*\d{4}\s+(\d{1,2}:\d{2}\s*(?i:AM|PM))`,
	)
	abaRemarkPattern = regexp.MustCompile(`^(?i:Remark|Purpose|Note)\s*[:;]\s*(.+)$`)

	originalAmountLine = regexp.MustCompile(`(?i)original\s+amount`)
)

func abaGrammar() *Grammar {
	return &Grammar{
		Dialect: models.DialectABA,
		Name:    "ABA Bank",
		Rules: []Rule{
			{Field: models.FieldTransactionID, Pattern: abaTrxIDPattern, Group: 1, Normalize: normalizeNumericID},
			{Field: models.FieldDate, Pattern: abaDatePattern, Group: 1, Normalize: normalizeText, Lookahead: true},
			{Field: models.FieldTime, Pattern: abaTimePattern, Group: 1, Normalize: normalizeText, Lookahead: true},
			{Field: models.FieldAmount, Pattern: abaAmountPattern, Group: 1, Normalize: normalizeAmount, Reject: originalAmountLine},
			{Field: models.FieldCurrency, Pattern: abaAmountPattern, Group: 2, Normalize: normalizeCurrency, Reject: originalAmountLine},
			{Field: models.FieldDescription, Pattern: abaRemarkPattern, Group: 1, Normalize: normalizeText},
		},
		CommitFields: []models.Field{models.FieldTransactionID, models.FieldDate, models.FieldAmount},
		Keywords:     []string{"ABA BANK", "ABA'", "National Bank of Canada Group", "Trx. ID"},
	}
}
