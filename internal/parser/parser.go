package parser

import (
	"strings"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/models"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/validation"
)

// FileResult is everything extracted from one file's recognized text.
type FileResult struct {
	Dialect       models.Dialect
	Recognized    bool
	FieldsMatched int
	Transactions  []models.Transaction
	DebugLines    []models.DebugLine
}

// Valid counts transactions that passed validation.
func (r FileResult) Valid() int {
	n := 0
	for _, t := range r.Transactions {
		if !t.Invalid() {
			n++
		}
	}
	return n
}

// Scanner turns recognized receipt text into validated transactions.
type Scanner struct {
	Registry *Registry
	Policy   FlushPolicy
}

// NewScanner returns a scanner over the built-in dialects.
func NewScanner(policy FlushPolicy) *Scanner {
	return &Scanner{Registry: DefaultRegistry(), Policy: policy}
}

// ProcessFile scans text with the built-in dialects and the default flush policy.
func ProcessFile(text, label string) FileResult {
	return NewScanner(FlushPartial).Process(text, label)
}

// Process tokenizes text, extracts fields with the grammar registered for
// label, assembles them into transactions and validates each one.
// An unregistered label yields no transactions.
func (s *Scanner) Process(text, label string) FileResult {
	g, ok := s.Registry.Lookup(label)
	if !ok {
		return FileResult{Dialect: models.DialectUnknown}
	}
	res := FileResult{Dialect: g.Dialect, Recognized: true}

	lines := Tokenize(text)
	asm := NewAssembler(g, s.Policy)
	commit := func(c Commit) {
		res.Transactions = append(res.Transactions, s.finish(g, c))
		if c.Line >= 1 && c.Line <= len(res.DebugLines) {
			res.DebugLines[c.Line-1].Result = "committed"
		}
	}
	for i := 0; i < len(lines); i++ {
		prev, next := "", ""
		if i > 0 {
			prev = lines[i-1]
		}
		if i+1 < len(lines) {
			next = lines[i+1]
		}
		m := extractLine(g, prev, lines[i], next)
		dl := models.DebugLine{LineNum: i + 1, Text: lines[i], Result: "skipped"}
		for _, v := range m.values {
			// Deferred grammars commit the previous candidate when a field repeats.
			if c, ok := asm.Feed(FieldEvent(v)); ok {
				commit(c)
			}
			dl.Fields = append(dl.Fields, v.Field)
		}
		res.FieldsMatched += len(m.values)
		if len(m.values) > 0 {
			dl.Result = "matched"
		}
		if len(m.malformed) > 0 {
			dl.Result = "malformed"
			dl.Note = "unparseable " + joinFields(m.malformed)
		}
		res.DebugLines = append(res.DebugLines, dl)
		if c, ok := asm.Feed(LineEnd(i + 1)); ok {
			commit(c)
		}
	}
	if c, ok := asm.Feed(EndOfStream()); ok {
		commit(c)
	}
	return res
}

func (s *Scanner) finish(g *Grammar, c Commit) models.Transaction {
	t := c.Transaction(g.Dialect)
	return validation.Apply(t, validation.Validate(t, g.ReportFields...))
}

// Detect identifies the dialect of recognized text by keyword hits. The
// grammar with the most hits wins; a tie or no hits yields DialectUnknown.
func (r *Registry) Detect(text string) models.Dialect {
	lower := strings.ToLower(text)
	best, bestHits, tied := models.DialectUnknown, 0, false
	for _, g := range r.Grammars() {
		hits := 0
		for _, kw := range g.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				hits++
			}
		}
		switch {
		case hits > bestHits:
			best, bestHits, tied = g.Dialect, hits, false
		case hits > 0 && hits == bestHits:
			tied = true
		}
	}
	if tied {
		return models.DialectUnknown
	}
	return best
}

func joinFields(fields []models.Field) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = string(f)
	}
	return strings.Join(parts, ", ")
}
