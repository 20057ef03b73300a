package badgerkv

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/evanschultz/issuedeck/internal/app"
	"github.com/evanschultz/issuedeck/internal/domain"
)

var (
	projects = collection[domain.Project]{
		table: app.TableProjects,
		id:    func(p domain.Project) string { return p.ID },
		indexes: []index[domain.Project]{
			{name: "key", value: func(p domain.Project) string { return p.Key }},
		},
	}
	issues = collection[domain.Issue]{
		table: app.TableIssues,
		id:    func(i domain.Issue) string { return i.ID },
		indexes: []index[domain.Issue]{
			{name: "projectId", value: func(i domain.Issue) string { return i.ProjectID }},
			{name: "key", value: func(i domain.Issue) string { return i.Key }},
			{name: "sprintId", value: func(i domain.Issue) string { return i.SprintID }},
			{name: "assigneeId", value: func(i domain.Issue) string { return i.AssigneeID }},
			{name: "reporterId", value: func(i domain.Issue) string { return i.ReporterID }},
			{name: "parentId", value: func(i domain.Issue) string { return i.ParentID }},
			{name: "status", value: func(i domain.Issue) string { return string(i.Status) }},
		},
	}
	sprints = collection[domain.Sprint]{
		table: app.TableSprints,
		id:    func(s domain.Sprint) string { return s.ID },
		indexes: []index[domain.Sprint]{
			{name: "projectId", value: func(s domain.Sprint) string { return s.ProjectID }},
		},
	}
	versions = collection[domain.Version]{
		table: app.TableVersions,
		id:    func(v domain.Version) string { return v.ID },
		indexes: []index[domain.Version]{
			{name: "projectId", value: func(v domain.Version) string { return v.ProjectID }},
		},
	}
	notifications = collection[domain.Notification]{
		table: app.TableNotifications,
		id:    func(n domain.Notification) string { return n.ID },
		indexes: []index[domain.Notification]{
			{name: "recipientId", value: func(n domain.Notification) string { return n.RecipientID }},
		},
	}
	automationRules = collection[domain.AutomationRule]{
		table: app.TableAutomationRules,
		id:    func(r domain.AutomationRule) string { return r.ID },
		indexes: []index[domain.AutomationRule]{
			{name: "projectId", value: func(r domain.AutomationRule) string { return r.ProjectID }},
		},
	}
	automationLogs = collection[domain.AutomationLog]{
		table: app.TableAutomationLogs,
		id:    func(l domain.AutomationLog) string { return l.ID },
		indexes: []index[domain.AutomationLog]{
			{name: "ruleId", value: func(l domain.AutomationLog) string { return l.RuleID }},
		},
	}
	savedFilters = collection[domain.SavedFilter]{
		table: app.TableSavedFilters,
		id:    func(f domain.SavedFilter) string { return f.ID },
		indexes: []index[domain.SavedFilter]{
			{name: "ownerId", value: func(f domain.SavedFilter) string { return f.OwnerID }},
		},
	}
	viewHistory = collection[domain.ViewHistory]{
		table: app.TableViewHistory,
		id:    func(v domain.ViewHistory) string { return v.ID },
		indexes: []index[domain.ViewHistory]{
			{name: "userId", value: func(v domain.ViewHistory) string { return v.UserID }},
		},
	}
)

// tables is a shorthand for update's notification list.
func tables(t ...app.Table) []app.Table { return t }

// CreateProject creates project.
func (r *Repository) CreateProject(ctx context.Context, p domain.Project) error {
	return r.update(ctx, tables(app.TableProjects), func(txn *badger.Txn) error {
		return projects.put(txn, p, modeCreate)
	})
}

// UpdateProject updates state for the requested operation.
func (r *Repository) UpdateProject(ctx context.Context, p domain.Project) error {
	return r.update(ctx, tables(app.TableProjects), func(txn *badger.Txn) error {
		return projects.put(txn, p, modeUpdate)
	})
}

// GetProject returns project.
func (r *Repository) GetProject(ctx context.Context, id string) (out domain.Project, err error) {
	err = r.view(ctx, func(txn *badger.Txn) error {
		out, err = projects.load(txn, id)
		return err
	})
	return out, err
}

// GetProjectByKey returns the project with key.
func (r *Repository) GetProjectByKey(ctx context.Context, key string) (domain.Project, error) {
	var found []domain.Project
	err := r.view(ctx, func(txn *badger.Txn) (err error) {
		found, err = projects.by(txn, "key", key)
		return err
	})
	if err != nil {
		return domain.Project{}, err
	}
	if len(found) == 0 {
		return domain.Project{}, fmt.Errorf("project key %s: %w", key, app.ErrNotFound)
	}
	return found[0], nil
}

// ListProjects lists projects.
func (r *Repository) ListProjects(ctx context.Context) (out []domain.Project, err error) {
	err = r.view(ctx, func(txn *badger.Txn) error {
		out, err = projects.all(txn)
		return err
	})
	return out, err
}

// DeleteProject deletes a project and its issues, sprints, versions,
// automation rules and automation logs in one transaction.
func (r *Repository) DeleteProject(ctx context.Context, id string) error {
	changed := tables(app.TableProjects, app.TableIssues, app.TableSprints, app.TableVersions, app.TableAutomationRules, app.TableAutomationLogs)
	return r.update(ctx, changed, func(txn *badger.Txn) error {
		if _, err := projects.load(txn, id); err != nil {
			return err
		}
		for _, issueID := range issues.lookup(txn, "projectId", id) {
			if err := issues.remove(txn, issueID); err != nil {
				return err
			}
		}
		for _, sprintID := range sprints.lookup(txn, "projectId", id) {
			if err := sprints.remove(txn, sprintID); err != nil {
				return err
			}
		}
		for _, versionID := range versions.lookup(txn, "projectId", id) {
			if err := versions.remove(txn, versionID); err != nil {
				return err
			}
		}
		for _, ruleID := range automationRules.lookup(txn, "projectId", id) {
			if err := removeRule(txn, ruleID); err != nil {
				return err
			}
		}
		return projects.remove(txn, id)
	})
}

// CreateIssue creates issue.
func (r *Repository) CreateIssue(ctx context.Context, issue domain.Issue) error {
	return r.update(ctx, tables(app.TableIssues), func(txn *badger.Txn) error {
		return issues.put(txn, issue, modeCreate)
	})
}

// UpdateIssue updates state for the requested operation.
func (r *Repository) UpdateIssue(ctx context.Context, issue domain.Issue) error {
	return r.update(ctx, tables(app.TableIssues), func(txn *badger.Txn) error {
		return issues.put(txn, issue, modeUpdate)
	})
}

// GetIssue returns issue.
func (r *Repository) GetIssue(ctx context.Context, id string) (out domain.Issue, err error) {
	err = r.view(ctx, func(txn *badger.Txn) error {
		out, err = issues.load(txn, id)
		return err
	})
	return out, err
}

// GetIssueByKey returns the issue with key.
func (r *Repository) GetIssueByKey(ctx context.Context, key string) (domain.Issue, error) {
	var found []domain.Issue
	err := r.view(ctx, func(txn *badger.Txn) (err error) {
		found, err = issues.by(txn, "key", key)
		return err
	})
	if err != nil {
		return domain.Issue{}, err
	}
	if len(found) == 0 {
		return domain.Issue{}, fmt.Errorf("issue key %s: %w", key, app.ErrNotFound)
	}
	return found[0], nil
}

// ListIssues reads through the narrowest index the filter names and applies
// the remaining fields in memory.
func (r *Repository) ListIssues(ctx context.Context, filter app.IssueFilter) ([]domain.Issue, error) {
	var candidates []domain.Issue
	err := r.view(ctx, func(txn *badger.Txn) (err error) {
		switch {
		case filter.SprintID != "":
			candidates, err = issues.by(txn, "sprintId", filter.SprintID)
		case filter.ParentID != "":
			candidates, err = issues.by(txn, "parentId", filter.ParentID)
		case filter.AssigneeID != "":
			candidates, err = issues.by(txn, "assigneeId", filter.AssigneeID)
		case filter.ReporterID != "":
			candidates, err = issues.by(txn, "reporterId", filter.ReporterID)
		case filter.ProjectID != "":
			candidates, err = issues.by(txn, "projectId", filter.ProjectID)
		case filter.Status != "":
			candidates, err = issues.by(txn, "status", string(filter.Status))
		default:
			candidates, err = issues.all(txn)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	out := candidates[:0]
	for _, issue := range candidates {
		if filter.Matches(issue) {
			out = append(out, issue)
		}
	}
	return out, nil
}

// CountIssues counts the issues of a project.
func (r *Repository) CountIssues(ctx context.Context, projectID string) (n int, err error) {
	err = r.view(ctx, func(txn *badger.Txn) error {
		n = len(issues.lookup(txn, "projectId", projectID))
		return nil
	})
	return n, err
}

// DeleteIssue deletes issue.
func (r *Repository) DeleteIssue(ctx context.Context, id string) error {
	return r.update(ctx, tables(app.TableIssues), func(txn *badger.Txn) error {
		return issues.remove(txn, id)
	})
}

// CreateSprint creates sprint.
func (r *Repository) CreateSprint(ctx context.Context, s domain.Sprint) error {
	return r.update(ctx, tables(app.TableSprints), func(txn *badger.Txn) error {
		return sprints.put(txn, s, modeCreate)
	})
}

// UpdateSprint updates state for the requested operation.
func (r *Repository) UpdateSprint(ctx context.Context, s domain.Sprint) error {
	return r.update(ctx, tables(app.TableSprints), func(txn *badger.Txn) error {
		return sprints.put(txn, s, modeUpdate)
	})
}

// GetSprint returns sprint.
func (r *Repository) GetSprint(ctx context.Context, id string) (out domain.Sprint, err error) {
	err = r.view(ctx, func(txn *badger.Txn) error {
		out, err = sprints.load(txn, id)
		return err
	})
	return out, err
}

// ListSprints lists the sprints of projectID, or every sprint when empty.
func (r *Repository) ListSprints(ctx context.Context, projectID string) (out []domain.Sprint, err error) {
	err = r.view(ctx, func(txn *badger.Txn) error {
		if projectID == "" {
			out, err = sprints.all(txn)
		} else {
			out, err = sprints.by(txn, "projectId", projectID)
		}
		return err
	})
	return out, err
}

// DeleteSprint deletes sprint.
func (r *Repository) DeleteSprint(ctx context.Context, id string) error {
	return r.update(ctx, tables(app.TableSprints), func(txn *badger.Txn) error {
		return sprints.remove(txn, id)
	})
}

// CreateVersion creates version.
func (r *Repository) CreateVersion(ctx context.Context, v domain.Version) error {
	return r.update(ctx, tables(app.TableVersions), func(txn *badger.Txn) error {
		return versions.put(txn, v, modeCreate)
	})
}

// UpdateVersion updates state for the requested operation.
func (r *Repository) UpdateVersion(ctx context.Context, v domain.Version) error {
	return r.update(ctx, tables(app.TableVersions), func(txn *badger.Txn) error {
		return versions.put(txn, v, modeUpdate)
	})
}

// GetVersion returns version.
func (r *Repository) GetVersion(ctx context.Context, id string) (out domain.Version, err error) {
	err = r.view(ctx, func(txn *badger.Txn) error {
		out, err = versions.load(txn, id)
		return err
	})
	return out, err
}

// ListVersions lists the versions of projectID, or every version when empty.
func (r *Repository) ListVersions(ctx context.Context, projectID string) (out []domain.Version, err error) {
	err = r.view(ctx, func(txn *badger.Txn) error {
		if projectID == "" {
			out, err = versions.all(txn)
		} else {
			out, err = versions.by(txn, "projectId", projectID)
		}
		return err
	})
	return out, err
}

// DeleteVersion deletes version.
func (r *Repository) DeleteVersion(ctx context.Context, id string) error {
	return r.update(ctx, tables(app.TableVersions), func(txn *badger.Txn) error {
		return versions.remove(txn, id)
	})
}

// CreateNotification creates notification.
func (r *Repository) CreateNotification(ctx context.Context, n domain.Notification) error {
	return r.update(ctx, tables(app.TableNotifications), func(txn *badger.Txn) error {
		return notifications.put(txn, n, modeCreate)
	})
}

// UpdateNotification updates state for the requested operation.
func (r *Repository) UpdateNotification(ctx context.Context, n domain.Notification) error {
	return r.update(ctx, tables(app.TableNotifications), func(txn *badger.Txn) error {
		return notifications.put(txn, n, modeUpdate)
	})
}

// GetNotification returns notification.
func (r *Repository) GetNotification(ctx context.Context, id string) (out domain.Notification, err error) {
	err = r.view(ctx, func(txn *badger.Txn) error {
		out, err = notifications.load(txn, id)
		return err
	})
	return out, err
}

// ListNotifications lists notifications matching filter.
func (r *Repository) ListNotifications(ctx context.Context, filter app.NotificationFilter) ([]domain.Notification, error) {
	var candidates []domain.Notification
	err := r.view(ctx, func(txn *badger.Txn) (err error) {
		if filter.RecipientID != "" {
			candidates, err = notifications.by(txn, "recipientId", filter.RecipientID)
		} else {
			candidates, err = notifications.all(txn)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	out := candidates[:0]
	for _, n := range candidates {
		if filter.Matches(n) {
			out = append(out, n)
		}
	}
	return out, nil
}

// DeleteNotification deletes notification.
func (r *Repository) DeleteNotification(ctx context.Context, id string) error {
	return r.update(ctx, tables(app.TableNotifications), func(txn *badger.Txn) error {
		return notifications.remove(txn, id)
	})
}

// CreateAutomationRule creates automation rule.
func (r *Repository) CreateAutomationRule(ctx context.Context, rule domain.AutomationRule) error {
	return r.update(ctx, tables(app.TableAutomationRules), func(txn *badger.Txn) error {
		return automationRules.put(txn, rule, modeCreate)
	})
}

// UpdateAutomationRule updates state for the requested operation.
func (r *Repository) UpdateAutomationRule(ctx context.Context, rule domain.AutomationRule) error {
	return r.update(ctx, tables(app.TableAutomationRules), func(txn *badger.Txn) error {
		return automationRules.put(txn, rule, modeUpdate)
	})
}

// GetAutomationRule returns automation rule.
func (r *Repository) GetAutomationRule(ctx context.Context, id string) (out domain.AutomationRule, err error) {
	err = r.view(ctx, func(txn *badger.Txn) error {
		out, err = automationRules.load(txn, id)
		return err
	})
	return out, err
}

// ListAutomationRules lists rules matching filter.
func (r *Repository) ListAutomationRules(ctx context.Context, filter app.AutomationRuleFilter) ([]domain.AutomationRule, error) {
	var candidates []domain.AutomationRule
	err := r.view(ctx, func(txn *badger.Txn) (err error) {
		if filter.ProjectID != "" {
			candidates, err = automationRules.by(txn, "projectId", filter.ProjectID)
		} else {
			candidates, err = automationRules.all(txn)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	out := candidates[:0]
	for _, rule := range candidates {
		if filter.Matches(rule) {
			out = append(out, rule)
		}
	}
	return out, nil
}

// DeleteAutomationRule deletes a rule together with its logs.
func (r *Repository) DeleteAutomationRule(ctx context.Context, id string) error {
	return r.update(ctx, tables(app.TableAutomationRules, app.TableAutomationLogs), func(txn *badger.Txn) error {
		return removeRule(txn, id)
	})
}

func removeRule(txn *badger.Txn, id string) error {
	if _, err := automationRules.load(txn, id); err != nil {
		return err
	}
	for _, logID := range automationLogs.lookup(txn, "ruleId", id) {
		if err := automationLogs.remove(txn, logID); err != nil {
			return err
		}
	}
	return automationRules.remove(txn, id)
}

// CreateAutomationLog appends one execution record.
func (r *Repository) CreateAutomationLog(ctx context.Context, entry domain.AutomationLog) error {
	return r.update(ctx, tables(app.TableAutomationLogs), func(txn *badger.Txn) error {
		return automationLogs.put(txn, entry, modeCreate)
	})
}

// ListAutomationLogs lists the logs of ruleID, or every log when empty.
func (r *Repository) ListAutomationLogs(ctx context.Context, ruleID string) (out []domain.AutomationLog, err error) {
	err = r.view(ctx, func(txn *badger.Txn) error {
		if ruleID == "" {
			out, err = automationLogs.all(txn)
		} else {
			out, err = automationLogs.by(txn, "ruleId", ruleID)
		}
		return err
	})
	return out, err
}

// CreateSavedFilter creates saved filter.
func (r *Repository) CreateSavedFilter(ctx context.Context, f domain.SavedFilter) error {
	return r.update(ctx, tables(app.TableSavedFilters), func(txn *badger.Txn) error {
		return savedFilters.put(txn, f, modeCreate)
	})
}

// UpdateSavedFilter updates state for the requested operation.
func (r *Repository) UpdateSavedFilter(ctx context.Context, f domain.SavedFilter) error {
	return r.update(ctx, tables(app.TableSavedFilters), func(txn *badger.Txn) error {
		return savedFilters.put(txn, f, modeUpdate)
	})
}

// GetSavedFilter returns saved filter.
func (r *Repository) GetSavedFilter(ctx context.Context, id string) (out domain.SavedFilter, err error) {
	err = r.view(ctx, func(txn *badger.Txn) error {
		out, err = savedFilters.load(txn, id)
		return err
	})
	return out, err
}

// ListSavedFilters lists the filters of ownerID, or every filter when empty.
func (r *Repository) ListSavedFilters(ctx context.Context, ownerID string) (out []domain.SavedFilter, err error) {
	err = r.view(ctx, func(txn *badger.Txn) error {
		if ownerID == "" {
			out, err = savedFilters.all(txn)
		} else {
			out, err = savedFilters.by(txn, "ownerId", ownerID)
		}
		return err
	})
	return out, err
}

// DeleteSavedFilter deletes saved filter.
func (r *Repository) DeleteSavedFilter(ctx context.Context, id string) error {
	return r.update(ctx, tables(app.TableSavedFilters), func(txn *badger.Txn) error {
		return savedFilters.remove(txn, id)
	})
}

// UpsertViewHistory inserts or overwrites the composite-keyed view row.
func (r *Repository) UpsertViewHistory(ctx context.Context, v domain.ViewHistory) error {
	return r.update(ctx, tables(app.TableViewHistory), func(txn *badger.Txn) error {
		return viewHistory.put(txn, v, modeUpsert)
	})
}

// ListViewHistory lists the views of userID, or every view when empty.
func (r *Repository) ListViewHistory(ctx context.Context, userID string) (out []domain.ViewHistory, err error) {
	err = r.view(ctx, func(txn *badger.Txn) error {
		if userID == "" {
			out, err = viewHistory.all(txn)
		} else {
			out, err = viewHistory.by(txn, "userId", userID)
		}
		return err
	})
	return out, err
}
