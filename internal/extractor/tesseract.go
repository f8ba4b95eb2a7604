package extractor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// TesseractOptions configures the tesseract command line.
type TesseractOptions struct {
	Binary    string // path or name of the tesseract executable
	Rasterize string // path or name of pdftoppm, used for scanned PDFs
	Language  string
	PSM       int
}

// Tesseract runs the tesseract CLI on receipt images and scanned PDFs.
type Tesseract struct {
	opts TesseractOptions
}

// NewTesseract returns a Tesseract recognizer, or Unavailable when the
// tesseract binary cannot be found.
func NewTesseract(opts TesseractOptions) Recognizer {
	if opts.Binary == "" {
		opts.Binary = "tesseract"
	}
	if opts.Rasterize == "" {
		opts.Rasterize = "pdftoppm"
	}
	if opts.Language == "" {
		opts.Language = "eng"
	}
	if opts.PSM == 0 {
		// PSM 6 = a single uniform block of text, which suits receipt crops.
		opts.PSM = 6
	}
	bin, err := exec.LookPath(opts.Binary)
	if err != nil {
		return Unavailable{Engine: "tesseract", Reason: fmt.Errorf("install tesseract-ocr: %w", err)}
	}
	opts.Binary = bin
	return &Tesseract{opts: opts}
}

// Name implements Recognizer.
func (t *Tesseract) Name() string { return "tesseract" }

// Recognize implements Recognizer.
func (t *Tesseract) Recognize(ctx context.Context, doc Document) (string, error) {
	tmpDir, err := os.MkdirTemp("", "receipt-ocr-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	ext := strings.ToLower(filepath.Ext(doc.Name))
	if ext == "" {
		ext = ".img"
	}
	input := filepath.Join(tmpDir, "input"+ext)
	if err := os.WriteFile(input, doc.Data, 0o600); err != nil {
		return "", fmt.Errorf("failed to stage %s: %w", doc.Name, err)
	}

	if doc.Kind() != KindPDF {
		return t.ocrImage(ctx, input)
	}

	images, err := t.rasterize(ctx, input, tmpDir)
	if err != nil {
		return "", err
	}
	var pages []string
	for _, img := range images {
		text, err := t.ocrImage(ctx, img)
		if err != nil {
			return "", err
		}
		if text != "" {
			pages = append(pages, text)
		}
	}
	return strings.Join(pages, "\n"), nil
}

// ocrImage runs tesseract on one image and returns its stdout.
func (t *Tesseract) ocrImage(ctx context.Context, path string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.opts.Binary, path, "stdout",
		"-l", t.opts.Language, "--psm", strconv.Itoa(t.opts.PSM))
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract failed on %s: %w (output: %s)", filepath.Base(path), err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// rasterize converts every PDF page to a 300 DPI PNG with pdftoppm.
func (t *Tesseract) rasterize(ctx context.Context, pdfPath, dir string) ([]string, error) {
	bin, err := exec.LookPath(t.opts.Rasterize)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm not available (install poppler-utils): %w", err)
	}
	prefix := filepath.Join(dir, "page")
	cmd := exec.CommandContext(ctx, bin, "-r", "300", "-png", pdfPath, prefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(out))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read temp dir: %w", err)
	}
	var images []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "page") && strings.HasSuffix(e.Name(), ".png") {
			images = append(images, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(images)
	if len(images) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no page images")
	}
	return images, nil
}
