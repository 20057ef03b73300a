package jql

import (
	"testing"

	"github.com/evanschultz/issuedeck/internal/domain"
)

func fixtureIssues() []domain.Issue {
	return []domain.Issue{
		{ID: "1", Key: "DEV-101", Status: domain.StatusDone, Priority: domain.PriorityHighest, AssigneeID: "u1"},
		{ID: "2", Key: "DEV-102", Status: domain.StatusDone, Priority: domain.PriorityLow, AssigneeID: "u2"},
		{ID: "3", Key: "DEV-103", Status: domain.StatusInProgress, Priority: domain.PriorityHighest, AssigneeID: "u1"},
		{ID: "4", Key: "DEV-104", Status: domain.StatusToDo, Priority: domain.PriorityMedium},
	}
}

func ids(issues []domain.Issue) []string {
	out := make([]string, 0, len(issues))
	for _, issue := range issues {
		out = append(out, issue.ID)
	}
	return out
}

func TestParse(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []Clause
	}{
		{name: "single", raw: "status = Done", want: []Clause{{"status", "Done"}}},
		{name: "lowercase and", raw: "status = Done and priority = High", want: []Clause{{"status", "Done"}, {"priority", "High"}}},
		{name: "double quoted", raw: `status = "In Progress"`, want: []Clause{{"status", "In Progress"}}},
		{name: "single quoted", raw: `status='In Review'`, want: []Clause{{"status", "In Review"}}},
		{name: "unparseable clause dropped", raw: "status = Done AND storyPoints > 3", want: []Clause{{"status", "Done"}}},
		{name: "not-equal dropped", raw: "priority != Low AND status = Done", want: []Clause{{"status", "Done"}}},
		{name: "empty", raw: "   ", want: nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := Parse(tc.raw)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tc.raw, err)
			}
			if len(q.Clauses) != len(tc.want) {
				t.Fatalf("Parse(%q) = %#v, want %#v", tc.raw, q.Clauses, tc.want)
			}
			for idx := range tc.want {
				if q.Clauses[idx] != tc.want[idx] {
					t.Fatalf("clause %d = %#v, want %#v", idx, q.Clauses[idx], tc.want[idx])
				}
			}
		})
	}
}

func TestParseRejectsQueryWithoutClauses(t *testing.T) {
	for _, raw := range []string{"status", "OR OR", "priority > High", "= Done"} {
		if _, err := Parse(raw); err != ErrInvalidQuery {
			t.Fatalf("Parse(%q) error = %v, want ErrInvalidQuery", raw, err)
		}
	}
}

func TestFilterConjunction(t *testing.T) {
	got := ids(Filter(fixtureIssues(), "status = Done AND priority = Highest"))
	if len(got) != 1 || got[0] != "1" {
		t.Fatalf("unexpected match set %#v", got)
	}
	got = ids(Filter(fixtureIssues(), `assigneeId = "u1"`))
	if len(got) != 2 || got[0] != "1" || got[1] != "3" {
		t.Fatalf("unexpected match set %#v", got)
	}
}

func TestFilterInvalidQueryReturnsInput(t *testing.T) {
	issues := fixtureIssues()
	got := Filter(issues, "status >> Done")
	if len(got) != len(issues) {
		t.Fatalf("expected unfiltered input, got %d issues", len(got))
	}
}

func TestFilterUnknownFieldMatchesNothing(t *testing.T) {
	if got := Filter(fixtureIssues(), "color = red"); len(got) != 0 {
		t.Fatalf("expected no matches, got %#v", ids(got))
	}
}

func TestQueryString(t *testing.T) {
	q, err := Parse(`status = "In Progress" AND priority = High`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := q.String(); got != `status = "In Progress" AND priority = High` {
		t.Fatalf("String() = %q", got)
	}
}
