// Package extractor holds the collaborators that turn uploaded receipt files
// into text and bank labels: OCR engines, the PDF text layer, and classifiers.
package extractor

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"github.com/gtank/cryptopasta"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/models"
)

// ErrUnavailable is returned by collaborators that could not be set up.
var ErrUnavailable = errors.New("collaborator unavailable")

// Document is one uploaded file.
type Document struct {
	Name        string
	ContentType string
	Data        []byte
}

// Kind buckets documents by how their text is obtained.
type Kind int

const (
	KindUnsupported Kind = iota
	KindText
	KindPDF
	KindImage
)

// Kind inspects the declared content type, then the bytes, then the extension.
func (d Document) Kind() Kind {
	for _, ct := range []string{d.ContentType, http.DetectContentType(d.Data)} {
		ct = strings.ToLower(strings.TrimSpace(strings.Split(ct, ";")[0]))
		switch {
		case ct == "application/pdf":
			return KindPDF
		case strings.HasPrefix(ct, "image/"):
			return KindImage
		case ct == "text/plain":
			return KindText
		}
	}
	switch strings.ToLower(filepath.Ext(d.Name)) {
	case ".pdf":
		return KindPDF
	case ".png", ".jpg", ".jpeg", ".tif", ".tiff", ".bmp", ".webp":
		return KindImage
	case ".txt":
		return KindText
	}
	return KindUnsupported
}

// Fingerprint returns a stable hex digest of the document contents.
func (d Document) Fingerprint() string {
	return hex.EncodeToString(cryptopasta.Hash("receipt-file", d.Data))
}

// Recognizer extracts text from a document.
type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, doc Document) (string, error)
}

// Classifier assigns a bank dialect to a document. Documents it cannot place
// are models.DialectUnknown, not an error.
type Classifier interface {
	Name() string
	Classify(ctx context.Context, doc Document, text string) (models.Dialect, error)
}

// Unavailable stands in for a recognizer or classifier whose engine could not
// be set up. Every call fails with ErrUnavailable.
type Unavailable struct {
	Engine string
	Reason error
}

// Name implements Recognizer and Classifier.
func (u Unavailable) Name() string { return u.Engine }

func (u Unavailable) err() error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, u.Engine, u.Reason)
}

// Recognize implements Recognizer.
func (u Unavailable) Recognize(context.Context, Document) (string, error) { return "", u.err() }

// Classify implements Classifier.
func (u Unavailable) Classify(context.Context, Document, string) (models.Dialect, error) {
	return models.DialectUnknown, u.err()
}

// Status describes whether a collaborator can be used.
type Status struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// StatusOf reports the availability of a recognizer or classifier.
func StatusOf(c interface{ Name() string }) Status {
	switch u := c.(type) {
	case Unavailable:
		return Status{Name: u.Engine, Reason: fmt.Sprint(u.Reason)}
	case *Unavailable:
		return Status{Name: u.Engine, Reason: fmt.Sprint(u.Reason)}
	case Retrying:
		return StatusOf(u.Recognizer)
	case *Router:
		return u.status()
	}
	return Status{Name: c.Name(), Available: true}
}

// Retrying wraps a recognizer with exponential backoff. ErrUnavailable and
// context errors are not retried.
type Retrying struct {
	Recognizer
	Attempts uint64
}

// Recognize implements Recognizer.
func (r Retrying) Recognize(ctx context.Context, doc Document) (string, error) {
	var text string
	op := func() error {
		var err error
		text, err = r.Recognizer.Recognize(ctx, doc)
		if err != nil && (errors.Is(err, ErrUnavailable) || ctx.Err() != nil) {
			return backoff.Permanent(err)
		}
		return err
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), r.Attempts), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return "", err
	}
	return text, nil
}
