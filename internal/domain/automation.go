package domain

import (
	"slices"
	"strings"
	"time"
)

// AutomationTrigger names the issue event a rule listens to.
type AutomationTrigger string

// AutomationTrigger values.
const (
	TriggerIssueCreated  AutomationTrigger = "issue_created"
	TriggerStatusChanged AutomationTrigger = "status_changed"
	TriggerCommentAdded  AutomationTrigger = "comment_added"
)

var validTriggers = []AutomationTrigger{TriggerIssueCreated, TriggerStatusChanged, TriggerCommentAdded}

// AutomationAction names the single side effect a rule performs.
type AutomationAction string

// AutomationAction values.
const (
	ActionAssignReporter  AutomationAction = "assign_reporter"
	ActionAddComment      AutomationAction = "add_comment"
	ActionSetPriorityHigh AutomationAction = "set_priority_high"
)

var validActions = []AutomationAction{ActionAssignReporter, ActionAddComment, ActionSetPriorityHigh}

// AutomationActorID is the author recorded for automation-driven changes.
const AutomationActorID = "automation"

// IsValidTrigger reports whether t is a supported trigger.
func IsValidTrigger(t AutomationTrigger) bool { return slices.Contains(validTriggers, t) }

// IsValidAction reports whether a is a supported action.
func IsValidAction(a AutomationAction) bool { return slices.Contains(validActions, a) }

// AutomationRule runs one action when its trigger fires and condition matches.
type AutomationRule struct {
	ID          string            `json:"id"`
	ProjectID   string            `json:"projectId"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Trigger     AutomationTrigger `json:"trigger"`
	Condition   string            `json:"condition"`
	Action      AutomationAction  `json:"action"`
	Enabled     bool              `json:"enabled"`
	LastRun     *time.Time        `json:"lastRun,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// AutomationRuleInput holds input values for NewAutomationRule.
type AutomationRuleInput struct {
	ID          string
	ProjectID   string
	Name        string
	Description string
	Trigger     AutomationTrigger
	Condition   string
	Action      AutomationAction
	Enabled     bool
}

// NewAutomationRule constructs a validated rule.
func NewAutomationRule(in AutomationRuleInput, now time.Time) (AutomationRule, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.ProjectID = strings.TrimSpace(in.ProjectID)
	in.Name = strings.TrimSpace(in.Name)
	if in.ID == "" || in.ProjectID == "" {
		return AutomationRule{}, ErrInvalidID
	}
	if in.Name == "" {
		return AutomationRule{}, ErrInvalidName
	}
	if !IsValidTrigger(in.Trigger) {
		return AutomationRule{}, ErrInvalidTrigger
	}
	if !IsValidAction(in.Action) {
		return AutomationRule{}, ErrInvalidAction
	}
	return AutomationRule{
		ID:          in.ID,
		ProjectID:   in.ProjectID,
		Name:        in.Name,
		Description: strings.TrimSpace(in.Description),
		Trigger:     in.Trigger,
		Condition:   strings.TrimSpace(in.Condition),
		Action:      in.Action,
		Enabled:     in.Enabled,
		CreatedAt:   now.UTC(),
	}, nil
}

// AutomationLogStatus is the outcome of one rule execution.
type AutomationLogStatus string

// AutomationLogStatus values.
const (
	AutomationSuccess AutomationLogStatus = "success"
	AutomationFailure AutomationLogStatus = "failure"
)

// AutomationLog is an immutable record of one rule execution.
type AutomationLog struct {
	ID         string              `json:"id"`
	RuleID     string              `json:"ruleId"`
	Status     AutomationLogStatus `json:"status"`
	Message    string              `json:"message"`
	ExecutedAt time.Time           `json:"executedAt"`
}
