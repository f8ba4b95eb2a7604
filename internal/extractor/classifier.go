package extractor

import (
	"context"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/models"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/parser"
)

// KeywordClassifier labels receipts by the bank keywords in their text.
type KeywordClassifier struct {
	Registry *parser.Registry
}

// NewKeywordClassifier classifies against the built-in dialects.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{Registry: parser.DefaultRegistry()}
}

// Name implements Classifier.
func (k *KeywordClassifier) Name() string { return "keywords" }

// Classify implements Classifier.
func (k *KeywordClassifier) Classify(ctx context.Context, _ Document, text string) (models.Dialect, error) {
	if err := ctx.Err(); err != nil {
		return models.DialectUnknown, err
	}
	return k.Registry.Detect(text), nil
}

// Static returns the same label for every document, for callers that know
// the bank up front.
type Static struct {
	Label    string
	Registry *parser.Registry
}

// Name implements Classifier.
func (s Static) Name() string { return "static" }

// Classify implements Classifier.
func (s Static) Classify(context.Context, Document, string) (models.Dialect, error) {
	reg := s.Registry
	if reg == nil {
		reg = parser.DefaultRegistry()
	}
	return reg.Resolve(s.Label), nil
}
