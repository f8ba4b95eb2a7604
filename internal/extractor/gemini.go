package extractor

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const transcribePrompt = "Transcribe all text on this bank transfer receipt exactly as printed, " +
	"one printed line per output line, keeping labels and values on the same line. " +
	"Do not summarize, translate, or add any commentary."

// Gemini transcribes receipts with a Gemini vision model. The API key is read
// from GOOGLE_API_KEY or GEMINI_API_KEY by the genai client.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini returns a Gemini recognizer, or Unavailable when no client can be
// created.
func NewGemini(ctx context.Context, model string) Recognizer {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return Unavailable{Engine: "gemini", Reason: err}
	}
	return &Gemini{client: client, model: model}
}

// Name implements Recognizer.
func (g *Gemini) Name() string { return "gemini/" + g.model }

// Recognize implements Recognizer.
func (g *Gemini) Recognize(ctx context.Context, doc Document) (string, error) {
	mime := doc.ContentType
	switch doc.Kind() {
	case KindPDF:
		mime = "application/pdf"
	case KindImage:
		if !strings.HasPrefix(mime, "image/") {
			mime = "image/png"
		}
	default:
		return "", fmt.Errorf("%s: unsupported file type for gemini", doc.Name)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: transcribePrompt},
				{InlineData: &genai.Blob{MIMEType: mime, Data: doc.Data}},
			},
		},
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("gemini returned no text for %s", doc.Name)
	}
	return stripFences(text), nil
}

// stripFences drops a Markdown code fence if the model wrapped its answer in one.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if idx := strings.Index(s, "\n"); idx != -1 {
		s = s[idx+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
