package parser

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/models"
)

// FieldValue is one normalized value pulled out of a line.
// Amount is only meaningful for models.FieldAmount; every other field uses Text.
type FieldValue struct {
	Field  models.Field
	Text   string
	Amount decimal.Decimal
}

// Normalizer converts a raw capture into a typed value.
// An error leaves the field unset.
type Normalizer func(raw string) (FieldValue, error)

// Rule extracts one field from a line.
//
// When Lookahead is set the pattern is matched against the current line
// joined to the next one, for receipts that wrap a label and its value.
// Lines matching Reject are never considered by the rule.
type Rule struct {
	Field     models.Field
	Pattern   *regexp.Regexp
	Group     int
	Normalize Normalizer
	Lookahead bool
	Reject    *regexp.Regexp
}

// Grammar is the complete rule table for one bank's receipts.
type Grammar struct {
	Dialect models.Dialect
	Name    string
	Rules   []Rule
	// CommitFields gate when the assembler emits a transaction.
	CommitFields []models.Field
	// DeferCommit holds a satisfied candidate open until one of its fields
	// repeats or the text ends, for layouts that print references after the
	// commit fields.
	DeferCommit bool
	// ReportFields are reported as missing by validation in addition to the
	// base required fields, without gating commit.
	ReportFields []models.Field
	// Keywords identify this bank's receipts in recognized text.
	Keywords []string
}

// satisfied reports whether every commit field is present.
func (g *Grammar) satisfied(present map[models.Field]FieldValue) bool {
	for _, f := range g.CommitFields {
		if _, ok := present[f]; !ok {
			return false
		}
	}
	return true
}

// Registry maps dialect labels to grammars. It is read-only after construction.
type Registry struct {
	grammars map[models.Dialect]*Grammar
	aliases  map[string]models.Dialect
}

// NewRegistry builds a registry from the given grammars. Each grammar is
// reachable by its dialect tag and by its display name.
func NewRegistry(grammars ...*Grammar) *Registry {
	r := &Registry{
		grammars: make(map[models.Dialect]*Grammar, len(grammars)),
		aliases:  make(map[string]models.Dialect),
	}
	for _, g := range grammars {
		r.grammars[g.Dialect] = g
		r.aliases[normalizeLabel(string(g.Dialect))] = g.Dialect
		r.aliases[normalizeLabel(g.Name)] = g.Dialect
	}
	return r
}

// Alias registers an additional label for an existing dialect.
func (r *Registry) Alias(label string, d models.Dialect) *Registry {
	r.aliases[normalizeLabel(label)] = d
	return r
}

// Lookup returns the grammar for a label such as "ABA", "aba" or "ACLEDA Bank".
func (r *Registry) Lookup(label string) (*Grammar, bool) {
	d, ok := r.aliases[normalizeLabel(label)]
	if !ok {
		return nil, false
	}
	g, ok := r.grammars[d]
	return g, ok
}

// Resolve maps a label to its dialect tag, or models.DialectUnknown.
func (r *Registry) Resolve(label string) models.Dialect {
	if g, ok := r.Lookup(label); ok {
		return g.Dialect
	}
	return models.DialectUnknown
}

// Grammars returns every registered grammar sorted by dialect.
func (r *Registry) Grammars() []*Grammar {
	out := make([]*Grammar, 0, len(r.grammars))
	for _, g := range r.grammars {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Dialect < out[j].Dialect })
	return out
}

func normalizeLabel(label string) string {
	s := strings.ToLower(strings.TrimSpace(label))
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimSuffix(s, " bank")
	return strings.ReplaceAll(s, " ", "")
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// DefaultRegistry returns the built-in dialect table.
func DefaultRegistry() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry(abaGrammar(), acledaGrammar()).
			Alias("ACLIDA Bank", models.DialectACLEDA)
	})
	return defaultRegistry
}
