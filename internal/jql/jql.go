// Package jql implements a small conjunctive issue query language:
//
//	field = value AND field2 = "quoted value"
//
// Only equality clauses joined by AND are supported. There is no OR, NOT,
// ordering, range comparison or grouping.
package jql

import (
	"errors"
	"regexp"
	"strings"

	"github.com/evanschultz/issuedeck/internal/domain"
)

// ErrInvalidQuery reports a non-empty query with no parseable clause.
var ErrInvalidQuery = errors.New("invalid query")

var (
	andSeparator  = regexp.MustCompile(`(?i)\s+AND\s+`)
	clausePattern = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(.*?)\s*$`)
)

// Clause is one field equality test.
type Clause struct {
	Field string
	Value string
}

// Query is a parsed conjunction of clauses.
type Query struct {
	Clauses []Clause
}

// Parse splits raw on AND and parses each clause. Clauses that do not parse are
// dropped. An empty query yields no clauses and matches everything.
func Parse(raw string) (Query, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Query{}, nil
	}
	parts := andSeparator.Split(raw, -1)
	q := Query{Clauses: make([]Clause, 0, len(parts))}
	for _, part := range parts {
		clause, ok := parseClause(part)
		if !ok {
			continue
		}
		q.Clauses = append(q.Clauses, clause)
	}
	if len(q.Clauses) == 0 {
		return Query{}, ErrInvalidQuery
	}
	return q, nil
}

func parseClause(part string) (Clause, bool) {
	m := clausePattern.FindStringSubmatch(part)
	if m == nil {
		return Clause{}, false
	}
	value := m[2]
	if n := len(value); n >= 2 && (value[0] == '"' || value[0] == '\'') && value[n-1] == value[0] {
		return Clause{Field: m[1], Value: value[1 : n-1]}, true
	}
	if value == "" || strings.ContainsAny(value, `="'`) {
		return Clause{}, false
	}
	return Clause{Field: m[1], Value: value}, true
}

// Matches reports whether issue satisfies every clause.
func (q Query) Matches(issue domain.Issue) bool {
	for _, clause := range q.Clauses {
		got, ok := issue.FieldValue(clause.Field)
		if !ok || got != clause.Value {
			return false
		}
	}
	return true
}

// Filter returns the issues matching raw. A query that fails to parse returns
// the input unchanged.
func Filter(issues []domain.Issue, raw string) []domain.Issue {
	q, err := Parse(raw)
	if err != nil {
		return issues
	}
	out := make([]domain.Issue, 0, len(issues))
	for _, issue := range issues {
		if q.Matches(issue) {
			out = append(out, issue)
		}
	}
	return out
}

// String renders the query in canonical form.
func (q Query) String() string {
	parts := make([]string, 0, len(q.Clauses))
	for _, c := range q.Clauses {
		value := c.Value
		if value == "" || strings.ContainsAny(value, " \t'") {
			value = `"` + value + `"`
		}
		parts = append(parts, c.Field+" = "+value)
	}
	return strings.Join(parts, " AND ")
}
