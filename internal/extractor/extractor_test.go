package extractor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/models"
)

type fakeOCR struct {
	text  string
	errs  []error
	calls int
}

func (f *fakeOCR) Name() string { return "fake" }

func (f *fakeOCR) Recognize(context.Context, Document) (string, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return "", err
	}
	return f.text, nil
}

func TestDocumentKind(t *testing.T) {
	tests := []struct {
		name string
		doc  Document
		want Kind
	}{
		{"declared pdf", Document{Name: "r", ContentType: "application/pdf"}, KindPDF},
		{"sniffed pdf", Document{Name: "r.bin", Data: []byte("%PDF-1.4\n")}, KindPDF},
		{"declared image", Document{Name: "r", ContentType: "image/jpeg"}, KindImage},
		{"sniffed png", Document{Name: "r", Data: []byte("\x89PNG\r\n\x1a\n0000")}, KindImage},
		{"text with charset", Document{Name: "r", ContentType: "text/plain; charset=utf-8"}, KindText},
		{"sniffed text", Document{Name: "r", Data: []byte("Trx. ID: 1")}, KindText},
		{"extension fallback", Document{Name: "scan.TIFF", ContentType: "application/octet-stream", Data: []byte{0, 1, 2}}, KindImage},
		{"unsupported", Document{Name: "r.docx", ContentType: "application/octet-stream", Data: []byte{0, 1, 2}}, KindUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.doc.Kind())
		})
	}
}

func TestFingerprintIsStable(t *testing.T) {
	a := Document{Name: "a.txt", Data: []byte("same bytes")}
	b := Document{Name: "b.txt", Data: []byte("same bytes")}
	c := Document{Name: "a.txt", Data: []byte("other bytes")}

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
	assert.Len(t, a.Fingerprint(), 64)
}

func TestUnavailable(t *testing.T) {
	u := Unavailable{Engine: "tesseract", Reason: errors.New("not installed")}

	_, err := u.Recognize(context.Background(), Document{})
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "not installed")

	d, err := u.Classify(context.Background(), Document{}, "ABA BANK")
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, models.DialectUnknown, d)

	st := StatusOf(u)
	assert.False(t, st.Available)
	assert.Equal(t, "tesseract", st.Name)
	assert.Equal(t, "not installed", st.Reason)
}

func TestStatusOfRouter(t *testing.T) {
	ok := StatusOf(NewRouter(&fakeOCR{}))
	assert.True(t, ok.Available)
	assert.Equal(t, "router/fake", ok.Name)

	down := StatusOf(NewRouter(Retrying{Recognizer: Unavailable{Engine: "gemini", Reason: errors.New("no key")}}))
	assert.False(t, down.Available)
	assert.Equal(t, "router/gemini", down.Name)
}

func TestNewTesseractMissingBinary(t *testing.T) {
	r := NewTesseract(TesseractOptions{Binary: "definitely-not-a-tesseract-binary"})
	_, ok := r.(Unavailable)
	require.True(t, ok, "got %T", r)

	_, err := r.Recognize(context.Background(), Document{Name: "r.png"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestRetryingRecoversFromTransientFailure(t *testing.T) {
	ocr := &fakeOCR{text: "Trx. ID: 1", errs: []error{errors.New("engine busy")}}
	r := Retrying{Recognizer: ocr, Attempts: 2}

	text, err := r.Recognize(context.Background(), Document{})
	require.NoError(t, err)
	assert.Equal(t, "Trx. ID: 1", text)
	assert.Equal(t, 2, ocr.calls)
}

func TestRetryingDoesNotRetryUnavailable(t *testing.T) {
	ocr := &fakeOCR{errs: []error{ErrUnavailable, ErrUnavailable}}
	r := Retrying{Recognizer: ocr, Attempts: 3}

	_, err := r.Recognize(context.Background(), Document{})
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 1, ocr.calls)
}

func TestRouterRecognize(t *testing.T) {
	ocr := &fakeOCR{text: "from ocr"}
	r := NewRouter(ocr)
	ctx := context.Background()

	text, err := r.Recognize(ctx, Document{Name: "r.txt", ContentType: "text/plain", Data: []byte("Trx. ID: 42")})
	require.NoError(t, err)
	assert.Equal(t, "Trx. ID: 42", text)
	assert.Equal(t, 0, ocr.calls)

	text, err = r.Recognize(ctx, Document{Name: "r.png", ContentType: "image/png", Data: []byte{1}})
	require.NoError(t, err)
	assert.Equal(t, "from ocr", text)
	assert.Equal(t, 1, ocr.calls)

	// Unparseable PDF bytes fall back to OCR.
	text, err = r.Recognize(ctx, Document{Name: "r.pdf", ContentType: "application/pdf", Data: []byte("%PDF-garbage")})
	require.NoError(t, err)
	assert.Equal(t, "from ocr", text)
	assert.Equal(t, 2, ocr.calls)

	_, err = r.Recognize(ctx, Document{Name: "r.txt", ContentType: "text/plain", Data: []byte{0xff, 0xfe, 0xfd}})
	assert.Error(t, err)

	_, err = r.Recognize(ctx, Document{Name: "r.docx", ContentType: "application/octet-stream", Data: []byte{0, 1}})
	assert.Error(t, err)
}

func TestIsReadableText(t *testing.T) {
	assert.True(t, IsReadableText([]string{"ABA BANK\nTrx. ID: 123456\nTransaction date: Jan 5, 2024"}))
	assert.False(t, IsReadableText([]string{"\x01\x02\x03"}))
	assert.False(t, IsReadableText(nil))
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, "Trx. ID: 1", stripFences("```text\nTrx. ID: 1\n```"))
	assert.Equal(t, "plain", stripFences("  plain \n"))
}

func TestKeywordClassifier(t *testing.T) {
	c := NewKeywordClassifier()
	ctx := context.Background()

	d, err := c.Classify(ctx, Document{}, "ABA BANK\nTrx. ID: 123")
	require.NoError(t, err)
	assert.Equal(t, models.DialectABA, d)

	d, err = c.Classify(ctx, Document{}, "ACLEDA\nPayment Amount")
	require.NoError(t, err)
	assert.Equal(t, models.DialectACLEDA, d)

	d, err = c.Classify(ctx, Document{}, "hello world")
	require.NoError(t, err)
	assert.Equal(t, models.DialectUnknown, d)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = c.Classify(cancelled, Document{}, "ABA BANK")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStaticClassifier(t *testing.T) {
	d, err := Static{Label: "ACLIDA Bank"}.Classify(context.Background(), Document{}, "")
	require.NoError(t, err)
	assert.Equal(t, models.DialectACLEDA, d)

	d, _ = Static{Label: "Wing"}.Classify(context.Background(), Document{}, "")
	assert.Equal(t, models.DialectUnknown, d)
}
