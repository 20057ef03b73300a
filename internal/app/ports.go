package app

import (
	"context"

	"github.com/evanschultz/issuedeck/internal/domain"
)

// Table names one entity table of the backing store.
type Table string

// Table values. Names match the persisted store names.
const (
	TableProjects        Table = "projects"
	TableIssues          Table = "issues"
	TableSprints         Table = "sprints"
	TableVersions        Table = "versions"
	TableNotifications   Table = "notifications"
	TableAutomationRules Table = "automationRules"
	TableAutomationLogs  Table = "automationLogs"
	TableSavedFilters    Table = "savedFilters"
	TableViewHistory     Table = "viewHistory"
	TableSettings        Table = "settings"
)

// Tables lists every entity table. Settings are kept apart.
var Tables = []Table{
	TableProjects,
	TableIssues,
	TableSprints,
	TableVersions,
	TableNotifications,
	TableAutomationRules,
	TableAutomationLogs,
	TableSavedFilters,
	TableViewHistory,
}

// IssueFilter narrows ListIssues. Empty fields do not filter.
type IssueFilter struct {
	ProjectID  string
	SprintID   string
	AssigneeID string
	ReporterID string
	ParentID   string
	Status     domain.IssueStatus
	Type       domain.IssueType
}

// Matches reports whether issue passes every set field.
func (f IssueFilter) Matches(issue domain.Issue) bool {
	switch {
	case f.ProjectID != "" && issue.ProjectID != f.ProjectID:
		return false
	case f.SprintID != "" && issue.SprintID != f.SprintID:
		return false
	case f.AssigneeID != "" && issue.AssigneeID != f.AssigneeID:
		return false
	case f.ReporterID != "" && issue.ReporterID != f.ReporterID:
		return false
	case f.ParentID != "" && issue.ParentID != f.ParentID:
		return false
	case f.Status != "" && issue.Status != f.Status:
		return false
	case f.Type != "" && issue.Type != f.Type:
		return false
	}
	return true
}

// NotificationFilter narrows ListNotifications.
type NotificationFilter struct {
	RecipientID string
	UnreadOnly  bool
}

// Matches reports whether n passes the filter.
func (f NotificationFilter) Matches(n domain.Notification) bool {
	if f.RecipientID != "" && n.RecipientID != f.RecipientID {
		return false
	}
	return !f.UnreadOnly || !n.Read
}

// AutomationRuleFilter narrows ListAutomationRules.
type AutomationRuleFilter struct {
	ProjectID   string
	Trigger     domain.AutomationTrigger
	EnabledOnly bool
}

// Matches reports whether rule passes the filter.
func (f AutomationRuleFilter) Matches(rule domain.AutomationRule) bool {
	switch {
	case f.ProjectID != "" && rule.ProjectID != f.ProjectID:
		return false
	case f.Trigger != "" && rule.Trigger != f.Trigger:
		return false
	case f.EnabledOnly && !rule.Enabled:
		return false
	}
	return true
}

// Repository is the storage port implemented by every backend. Get and Delete
// on a missing id, and Update of a missing row, return an error wrapping
// ErrNotFound. List results carry no ordering guarantee; Service orders them.
type Repository interface {
	CreateProject(context.Context, domain.Project) error
	UpdateProject(context.Context, domain.Project) error
	GetProject(context.Context, string) (domain.Project, error)
	GetProjectByKey(context.Context, string) (domain.Project, error)
	ListProjects(context.Context) ([]domain.Project, error)
	// DeleteProject removes the project with its issues, sprints, versions,
	// automation rules and their logs.
	DeleteProject(context.Context, string) error

	CreateIssue(context.Context, domain.Issue) error
	UpdateIssue(context.Context, domain.Issue) error
	GetIssue(context.Context, string) (domain.Issue, error)
	GetIssueByKey(context.Context, string) (domain.Issue, error)
	ListIssues(context.Context, IssueFilter) ([]domain.Issue, error)
	CountIssues(context.Context, string) (int, error)
	DeleteIssue(context.Context, string) error

	CreateSprint(context.Context, domain.Sprint) error
	UpdateSprint(context.Context, domain.Sprint) error
	GetSprint(context.Context, string) (domain.Sprint, error)
	ListSprints(context.Context, string) ([]domain.Sprint, error)
	DeleteSprint(context.Context, string) error

	CreateVersion(context.Context, domain.Version) error
	UpdateVersion(context.Context, domain.Version) error
	GetVersion(context.Context, string) (domain.Version, error)
	ListVersions(context.Context, string) ([]domain.Version, error)
	DeleteVersion(context.Context, string) error

	CreateNotification(context.Context, domain.Notification) error
	UpdateNotification(context.Context, domain.Notification) error
	GetNotification(context.Context, string) (domain.Notification, error)
	ListNotifications(context.Context, NotificationFilter) ([]domain.Notification, error)
	DeleteNotification(context.Context, string) error

	CreateAutomationRule(context.Context, domain.AutomationRule) error
	UpdateAutomationRule(context.Context, domain.AutomationRule) error
	GetAutomationRule(context.Context, string) (domain.AutomationRule, error)
	ListAutomationRules(context.Context, AutomationRuleFilter) ([]domain.AutomationRule, error)
	// DeleteAutomationRule removes the rule and its logs.
	DeleteAutomationRule(context.Context, string) error
	CreateAutomationLog(context.Context, domain.AutomationLog) error
	ListAutomationLogs(context.Context, string) ([]domain.AutomationLog, error)

	CreateSavedFilter(context.Context, domain.SavedFilter) error
	UpdateSavedFilter(context.Context, domain.SavedFilter) error
	GetSavedFilter(context.Context, string) (domain.SavedFilter, error)
	ListSavedFilters(context.Context, string) ([]domain.SavedFilter, error)
	DeleteSavedFilter(context.Context, string) error

	UpsertViewHistory(context.Context, domain.ViewHistory) error
	ListViewHistory(context.Context, string) ([]domain.ViewHistory, error)

	GetSetting(context.Context, string) (string, bool, error)
	SetSetting(context.Context, string, string) error
	DeleteSettings(context.Context, ...string) error
	ListSettingKeys(context.Context, string) ([]string, error)

	// ReplaceAll atomically clears every entity table and loads ds. Settings
	// are left untouched.
	ReplaceAll(context.Context, domain.Dataset) error
	// ClearAll empties every entity table one at a time. It is the
	// non-atomic fallback used when ReplaceAll fails.
	ClearAll(context.Context) error

	// Subscribe registers fn to run after every committed change to table.
	// Backends without a change stream never call fn.
	Subscribe(Table, func()) (unsubscribe func())
	SupportsPush() bool
	Close() error
}
