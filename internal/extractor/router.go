package extractor

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Router picks how to get text out of a document: plain text is used as is,
// PDFs are read from their text layer when it is readable, and everything
// else goes to the OCR engine.
type Router struct {
	OCR Recognizer
}

// NewRouter routes images and scanned PDFs to ocr.
func NewRouter(ocr Recognizer) *Router {
	return &Router{OCR: ocr}
}

// Name implements Recognizer.
func (r *Router) Name() string { return "router/" + r.OCR.Name() }

func (r *Router) status() Status {
	s := StatusOf(r.OCR)
	s.Name = r.Name()
	return s
}

// Recognize implements Recognizer.
func (r *Router) Recognize(ctx context.Context, doc Document) (string, error) {
	switch doc.Kind() {
	case KindText:
		if !utf8.Valid(doc.Data) {
			return "", fmt.Errorf("%s: text upload is not valid UTF-8", doc.Name)
		}
		return string(doc.Data), nil
	case KindPDF:
		pages, err := ExtractPDFText(doc.Data)
		if err == nil && IsReadableText(pages) {
			return strings.Join(pages, "\n"), nil
		}
		return r.OCR.Recognize(ctx, doc)
	case KindImage:
		return r.OCR.Recognize(ctx, doc)
	default:
		return "", fmt.Errorf("%s: unsupported file type %q", doc.Name, doc.ContentType)
	}
}
