package parser

import (
	"errors"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/internal/models"
)

// lineMatch is everything a grammar found on one line.
type lineMatch struct {
	values    []FieldValue
	malformed []models.Field
}

// Extract applies every rule of g to line, using next for look-ahead rules.
// It returns at most one value per rule, in rule order.
func Extract(g *Grammar, line, next string) []FieldValue {
	return extractLine(g, "", line, next).values
}

// extractLine is Extract with the preceding line, so a rule can skip the
// value line that follows a bare rejected label.
func extractLine(g *Grammar, prev, line, next string) lineMatch {
	var m lineMatch
	if g == nil {
		return m
	}
	line = sanitizeOCRAmounts(line)
	joined := line
	if next != "" {
		joined = line + " " + sanitizeOCRAmounts(next)
	}

	for _, rule := range g.Rules {
		if rule.Reject != nil && (rule.Reject.MatchString(line) || danglingLabel(rule, prev)) {
			continue
		}
		subject := line
		if rule.Lookahead {
			subject = joined
		}
		loc := rule.Pattern.FindStringSubmatchIndex(subject)
		// A look-ahead match must start on the current line; otherwise the
		// next line is matching on its own and will be seen in its turn.
		if loc == nil || loc[0] >= len(line) || 2*rule.Group+1 >= len(loc) {
			continue
		}
		if rule.Reject != nil && rule.Reject.MatchString(subject[loc[0]:loc[1]]) {
			continue
		}
		start, end := loc[2*rule.Group], loc[2*rule.Group+1]
		if start < 0 || start == end {
			continue
		}
		v, err := rule.Normalize(subject[start:end])
		if err != nil {
			if errors.Is(err, models.ErrMalformedAmount) {
				m.malformed = append(m.malformed, rule.Field)
			}
			continue
		}
		v.Field = rule.Field
		m.values = append(m.values, v)
	}
	return m
}

// danglingLabel reports whether prev carries a rejected label without the
// value the rule would take from it, leaving the value for the current line.
// Look-ahead rules need no such check: their match must start on the
// current line, so a label above it is never part of the match.
func danglingLabel(rule Rule, prev string) bool {
	if prev == "" || rule.Lookahead {
		return false
	}
	prev = sanitizeOCRAmounts(prev)
	return rule.Reject.MatchString(prev) && !rule.Pattern.MatchString(prev)
}
