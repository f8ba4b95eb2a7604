package parser

import (
	"regexp"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/models"
)

// ACLEDA Bank (ACLEDA mobile) receipts. Every value follows a "Label :" prefix
// and the references come after the amount and date:
//
//	Payment Amount : 25.00 USD
//	Date : Jan 05, 2024 09:15 AM
//	Completed : Ref. FT24005XYZ
//	External Txn Ref : 998877
var (
	acledaAmountPattern = regexp.MustCompile(
		`(?i:Payment\s+Amount)\s*[:;]?\s*(` + amountNumber + `)\s*(` + currencyToken + `)\b`,
	)
	acledaDatePattern = regexp.MustCompile(
		`(?:^|\s)(?i:Date)\s*[:;]\s*(\w{3}\s+\d{1,2},\s*\d{4})`,
	)
	acledaTimePattern = regexp.MustCompile(
		`(?:^|\s)(?i:Date)\s*[:;]\s*\w{3}\s+\d{1,2},\s*\d{4}\s+(\d{1,2}:\d{2}\s*(?i:AM|PM))`,
	)
	acledaRefPattern         = regexp.MustCompile(`(?i:Completed)\s*[:;]?\s*(?i:Ref)\s*\.?\s*(\S+)`)
	acledaExternalRefPattern = regexp.MustCompile(`(?i:External\s+Txn\s+Ref)\s*[:;]?\s*(\S+)`)
	acledaPurposePattern     = regexp.MustCompile(`^(?i:Purpose|Remark|Description)\s*[:;]\s*(.+)$`)
)

func acledaGrammar() *Grammar {
	return &Grammar{
		Dialect: models.DialectACLEDA,
		Name:    "ACLEDA Bank",
		Rules: []Rule{
			{Field: models.FieldAmount, Pattern: acledaAmountPattern, Group: 1, Normalize: normalizeAmount, Lookahead: true, Reject: originalAmountLine},
			{Field: models.FieldCurrency, Pattern: acledaAmountPattern, Group: 2, Normalize: normalizeCurrency, Lookahead: true, Reject: originalAmountLine},
			{Field: models.FieldDate, Pattern: acledaDatePattern, Group: 1, Normalize: normalizeText, Lookahead: true},
			{Field: models.FieldTime, Pattern: acledaTimePattern, Group: 1, Normalize: normalizeText, Lookahead: true},
			{Field: models.FieldTransactionID, Pattern: acledaRefPattern, Group: 1, Normalize: normalizeReference},
			{Field: models.FieldExternalTxnRef, Pattern: acledaExternalRefPattern, Group: 1, Normalize: normalizeReference},
			{Field: models.FieldDescription, Pattern: acledaPurposePattern, Group: 1, Normalize: normalizeText},
		},
		CommitFields: []models.Field{models.FieldAmount, models.FieldDate},
		DeferCommit:  true,
		ReportFields: []models.Field{models.FieldDescription},
		Keywords:     []string{"ACLEDA", "ACLIDA", "Payment Amount", "External Txn Ref"},
	}
}
