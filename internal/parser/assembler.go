package parser

import (
	"fmt"
	"strings"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/models"
)

// State is the assembler's position between commits.
type State int

const (
	StateEmpty State = iota
	StateAccumulating
)

func (s State) String() string {
	if s == StateAccumulating {
		return "accumulating"
	}
	return "empty"
}

// EventKind distinguishes the inputs an Assembler reacts to.
type EventKind int

const (
	EventField EventKind = iota
	EventLineEnd
	EventEndOfStream
)

// Event is one step of input to the assembler.
type Event struct {
	Kind  EventKind
	Value FieldValue
	Line  int
}

// FieldEvent wraps an extracted value.
func FieldEvent(v FieldValue) Event { return Event{Kind: EventField, Value: v} }

// LineEnd marks the end of line n.
func LineEnd(n int) Event { return Event{Kind: EventLineEnd, Line: n} }

// EndOfStream marks the end of a file's text.
func EndOfStream() Event { return Event{Kind: EventEndOfStream} }

// FlushPolicy decides what happens to an incomplete candidate at end of stream.
type FlushPolicy int

const (
	// FlushPartial hands the incomplete candidate to validation, which marks it
	// invalid with its missing fields.
	FlushPartial FlushPolicy = iota
	// DiscardPartial drops the incomplete candidate.
	DiscardPartial
)

func (p FlushPolicy) String() string {
	if p == DiscardPartial {
		return "discard"
	}
	return "flush"
}

// ParseFlushPolicy accepts "flush" or "discard". Empty means flush.
func ParseFlushPolicy(s string) (FlushPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "flush":
		return FlushPartial, nil
	case "discard":
		return DiscardPartial, nil
	default:
		return FlushPartial, fmt.Errorf("unknown flush policy %q (want flush or discard)", s)
	}
}

// CommitReason records why a candidate was emitted.
type CommitReason string

const (
	CommitComplete CommitReason = "complete"
	CommitFlushed  CommitReason = "flushed"
)

// Commit is an emitted candidate. It shares no state with the assembler.
type Commit struct {
	Fields []FieldValue
	Reason CommitReason
	Line   int
}

// Transaction converts the committed fields into a transaction record.
func (c Commit) Transaction(dialect models.Dialect) models.Transaction {
	t := models.Transaction{Dialect: dialect}
	for _, v := range c.Fields {
		text := v.Text
		switch v.Field {
		case models.FieldTransactionID:
			t.TransactionID = &text
		case models.FieldDate:
			t.Date = &text
		case models.FieldTime:
			t.Time = &text
		case models.FieldAmount:
			amount := v.Amount
			t.Amount = &amount
		case models.FieldCurrency:
			cur := models.Currency(text)
			t.Currency = &cur
		case models.FieldDescription:
			t.Description = &text
		default:
			if t.Extras == nil {
				t.Extras = make(map[string]string)
			}
			t.Extras[string(v.Field)] = text
		}
	}
	return t
}

// Assembler accumulates field values into candidates and commits them once
// the grammar's commit fields are all present. Within a candidate the first
// value seen for a field wins.
type Assembler struct {
	grammar *Grammar
	policy  FlushPolicy

	state  State
	fields map[models.Field]FieldValue
	order  []models.Field
	line   int // last line ended
}

// NewAssembler returns an assembler in the empty state.
func NewAssembler(g *Grammar, policy FlushPolicy) *Assembler {
	return &Assembler{grammar: g, policy: policy}
}

// State reports whether a candidate is being accumulated.
func (a *Assembler) State() State { return a.state }

// Feed advances the state machine. It returns a commit when one is emitted.
//
// Grammars with DeferCommit keep a satisfied candidate open: it is committed
// when a field it already holds arrives, and that field starts the next
// candidate. Otherwise a satisfied candidate is committed at the end of the
// line that completed it.
func (a *Assembler) Feed(ev Event) (Commit, bool) {
	switch ev.Kind {
	case EventField:
		if a.grammar.DeferCommit && a.holds(ev.Value.Field) && a.grammar.satisfied(a.fields) {
			c := a.emit(CommitComplete, a.line)
			a.merge(ev.Value)
			return c, true
		}
		a.merge(ev.Value)
	case EventLineEnd:
		a.line = ev.Line
		if !a.grammar.DeferCommit && a.state == StateAccumulating && a.grammar.satisfied(a.fields) {
			return a.emit(CommitComplete, ev.Line), true
		}
	case EventEndOfStream:
		if a.state != StateAccumulating {
			return Commit{}, false
		}
		if a.grammar.satisfied(a.fields) {
			return a.emit(CommitComplete, a.line), true
		}
		if a.policy == FlushPartial {
			return a.emit(CommitFlushed, a.line), true
		}
		a.reset()
	}
	return Commit{}, false
}

func (a *Assembler) holds(f models.Field) bool {
	_, ok := a.fields[f]
	return a.state == StateAccumulating && ok
}

func (a *Assembler) merge(v FieldValue) {
	if a.fields == nil {
		a.fields = make(map[models.Field]FieldValue)
	}
	if _, seen := a.fields[v.Field]; seen {
		return
	}
	a.fields[v.Field] = v
	a.order = append(a.order, v.Field)
	a.state = StateAccumulating
}

func (a *Assembler) emit(reason CommitReason, line int) Commit {
	c := Commit{Reason: reason, Line: line, Fields: make([]FieldValue, 0, len(a.order))}
	for _, f := range a.order {
		c.Fields = append(c.Fields, a.fields[f])
	}
	a.reset()
	return c
}

func (a *Assembler) reset() {
	a.state = StateEmpty
	a.fields = nil
	a.order = nil
}
