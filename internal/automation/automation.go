// Package automation evaluates rule conditions and applies rule actions to
// issues. Nothing here touches storage; the app service persists results and
// writes the execution log.
package automation

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/evanschultz/issuedeck/internal/domain"
)

// Errors returned by Apply.
var (
	ErrNoReporter    = errors.New("issue has no reporter")
	ErrUnknownAction = errors.New("unknown automation action")
)

// Operator compares an issue field with a literal.
type Operator string

// Operator values.
const (
	OpEqual    Operator = "="
	OpNotEqual Operator = "!="
)

// Condition is a parsed "field op value" expression. A condition that could
// not be parsed is Always true.
type Condition struct {
	Field  string
	Op     Operator
	Value  string
	Always bool
}

// ParseCondition parses raw. Anything other than exactly three single-space
// separated tokens yields an always-true condition.
func ParseCondition(raw string) Condition {
	tokens := strings.Split(raw, " ")
	if len(tokens) != 3 {
		return Condition{Always: true}
	}
	return Condition{Field: tokens[0], Op: Operator(tokens[1]), Value: tokens[2]}
}

// Matches evaluates the condition against issue. Unknown operators match.
func (c Condition) Matches(issue domain.Issue) bool {
	if c.Always {
		return true
	}
	got, _ := issue.FieldValue(c.Field)
	switch c.Op {
	case OpEqual:
		return got == c.Value
	case OpNotEqual:
		return got != c.Value
	default:
		return true
	}
}

// Matches parses raw and evaluates it against issue.
func Matches(raw string, issue domain.Issue) bool {
	return ParseCondition(raw).Matches(issue)
}

// Select returns the enabled rules of projectID listening to trigger, ordered
// by creation time and then id.
func Select(rules []domain.AutomationRule, projectID string, trigger domain.AutomationTrigger) []domain.AutomationRule {
	out := make([]domain.AutomationRule, 0, len(rules))
	for _, rule := range rules {
		if !rule.Enabled || rule.ProjectID != projectID || rule.Trigger != trigger {
			continue
		}
		out = append(out, rule)
	}
	slices.SortFunc(out, func(a, b domain.AutomationRule) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// ApplyOptions carries the ids and clock used by Apply.
type ApplyOptions struct {
	RuleName string
	NewID    func() string
	Now      time.Time
}

func (o ApplyOptions) newID() string {
	if o.NewID == nil {
		return ""
	}
	return o.NewID()
}

// CommentBody is the canned comment text written by the add_comment action.
func CommentBody(ruleName string) string {
	return fmt.Sprintf("自動化ルール「%s」によって追加されたコメントです。", ruleName)
}

// Apply runs action against a copy of issue and returns the modified issue with
// a human-readable summary. Field changes are recorded in history under the
// automation actor.
func Apply(action domain.AutomationAction, issue domain.Issue, opts ApplyOptions) (domain.Issue, string, error) {
	issue.History = slices.Clone(issue.History)
	issue.Comments = slices.Clone(issue.Comments)
	switch action {
	case domain.ActionAssignReporter:
		if strings.TrimSpace(issue.ReporterID) == "" {
			return issue, "", fmt.Errorf("assign %s to reporter: %w", issue.Key, ErrNoReporter)
		}
		if issue.AssigneeID == issue.ReporterID {
			return issue, fmt.Sprintf("%s already assigned to reporter %s", issue.Key, issue.ReporterID), nil
		}
		change := domain.FieldChange{Field: domain.FieldAssigneeID, From: issue.AssigneeID, To: issue.ReporterID}
		issue.AssigneeID = issue.ReporterID
		issue.RecordChanges([]domain.FieldChange{change}, domain.AutomationActorID, opts.NewID, opts.Now)
		return issue, fmt.Sprintf("assigned %s to reporter %s", issue.Key, issue.ReporterID), nil
	case domain.ActionAddComment:
		err := issue.AddComment(domain.Comment{
			ID:        opts.newID(),
			AuthorID:  domain.AutomationActorID,
			Body:      CommentBody(opts.RuleName),
			CreatedAt: opts.Now.UTC(),
		})
		if err != nil {
			return issue, "", fmt.Errorf("comment on %s: %w", issue.Key, err)
		}
		return issue, fmt.Sprintf("added comment to %s", issue.Key), nil
	case domain.ActionSetPriorityHigh:
		if issue.Priority == domain.PriorityHigh {
			return issue, fmt.Sprintf("%s already has priority %s", issue.Key, domain.PriorityHigh), nil
		}
		change := domain.FieldChange{Field: domain.FieldPriority, From: string(issue.Priority), To: string(domain.PriorityHigh)}
		issue.Priority = domain.PriorityHigh
		issue.RecordChanges([]domain.FieldChange{change}, domain.AutomationActorID, opts.NewID, opts.Now)
		return issue, fmt.Sprintf("set %s priority to %s", issue.Key, domain.PriorityHigh), nil
	default:
		return issue, "", fmt.Errorf("%w %q", ErrUnknownAction, action)
	}
}
