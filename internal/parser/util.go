package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/models"
)

// Characters Tesseract commonly substitutes for digits on receipt photos.
// Only this set is corrected; anything else is left for validation to flag.
var digitConfusables = map[rune]rune{
	'I': '1', 'l': '1', '|': '1', '!': '1',
	'O': '0', 'o': '0', 'Q': '0', 'D': '0',
	'S': '5', 's': '5',
	'B': '8',
	'Z': '2', 'z': '2',
	'G': '6',
}

// confusableDigits is the character class used in identifier patterns so that
// a misread digit still matches before canonicalization.
const confusableDigits = `0-9Il|!OoQDSsBZzG`

var (
	semicolonDecimal = regexp.MustCompile(`(\d);(\s*)(\d)`)
	groupSeparators  = strings.NewReplacer(",", "", " ", "", "\u00A0", "", "\u202F", "")
)

// canonicalizeDigits maps confusable characters in a numeric identifier back
// to digits. It fails if anything outside the declared set remains.
func canonicalizeDigits(s string) (string, error) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			continue
		}
		d, ok := digitConfusables[r]
		if !ok {
			return "", fmt.Errorf("unexpected character %q in identifier %q", r, s)
		}
		b.WriteRune(d)
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("empty identifier")
	}
	return b.String(), nil
}

// parseAmount converts a string like "1,234.56" or "-50.00" to a decimal.
func parseAmount(s string) (decimal.Decimal, error) {
	s = groupSeparators.Replace(strings.TrimSpace(s))
	if s == "" || s == "-" {
		return decimal.Decimal{}, fmt.Errorf("%w: empty", models.ErrMalformedAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q: %v", models.ErrMalformedAmount, s, err)
	}
	return d, nil
}

// sanitizeOCRAmounts fixes semicolons that Tesseract reads in place of a
// decimal point: "50;00 USD" becomes "50.00 USD". Colons are kept because
// receipt times use them.
func sanitizeOCRAmounts(line string) string {
	return semicolonDecimal.ReplaceAllString(line, "$1.$3")
}

func normalizeText(raw string) (FieldValue, error) {
	s := strings.Join(strings.Fields(raw), " ")
	if s == "" {
		return FieldValue{}, fmt.Errorf("empty value")
	}
	return FieldValue{Text: s}, nil
}

func normalizeNumericID(raw string) (FieldValue, error) {
	id, err := canonicalizeDigits(raw)
	if err != nil {
		return FieldValue{}, err
	}
	return FieldValue{Text: id}, nil
}

// normalizeReference keeps alphanumeric references as printed, minus
// trailing punctuation OCR tends to attach.
func normalizeReference(raw string) (FieldValue, error) {
	s := strings.TrimRight(strings.TrimSpace(raw), ".,;:")
	if s == "" {
		return FieldValue{}, fmt.Errorf("empty reference")
	}
	return FieldValue{Text: s}, nil
}

func normalizeAmount(raw string) (FieldValue, error) {
	d, err := parseAmount(raw)
	if err != nil {
		return FieldValue{}, err
	}
	return FieldValue{Amount: d}, nil
}

func normalizeCurrency(raw string) (FieldValue, error) {
	c, ok := models.ParseCurrency(raw)
	if !ok {
		return FieldValue{}, fmt.Errorf("unknown currency %q", raw)
	}
	return FieldValue{Text: string(c)}, nil
}
