package sqlite

import (
	"context"
	"fmt"

	"github.com/evanschultz/issuedeck/internal/app"
	"github.com/evanschultz/issuedeck/internal/domain"
)

// CreateProject creates project.
func (r *Repository) CreateProject(ctx context.Context, p domain.Project) error {
	return insertRow(ctx, r.db, projectsTable, p.ID, p, p.Key)
}

// UpdateProject updates state for the requested operation.
func (r *Repository) UpdateProject(ctx context.Context, p domain.Project) error {
	return updateRow(ctx, r.db, projectsTable, p.ID, p, p.Key)
}

// GetProject returns project.
func (r *Repository) GetProject(ctx context.Context, id string) (domain.Project, error) {
	return getRow[domain.Project](ctx, r.db, projectsTable, "id = ?", id)
}

// GetProjectByKey returns the project with key.
func (r *Repository) GetProjectByKey(ctx context.Context, key string) (domain.Project, error) {
	return getRow[domain.Project](ctx, r.db, projectsTable, "key = ?", key)
}

// ListProjects lists projects.
func (r *Repository) ListProjects(ctx context.Context) ([]domain.Project, error) {
	return listRows[domain.Project](ctx, r.db, projectsTable, nil)
}

// DeleteProject deletes a project and its issues, sprints, versions,
// automation rules and automation logs in one transaction.
func (r *Repository) DeleteProject(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	cascade := []string{
		`DELETE FROM automation_logs WHERE rule_id IN (SELECT id FROM automation_rules WHERE project_id = ?)`,
		`DELETE FROM automation_rules WHERE project_id = ?`,
		`DELETE FROM issues WHERE project_id = ?`,
		`DELETE FROM sprints WHERE project_id = ?`,
		`DELETE FROM versions WHERE project_id = ?`,
	}
	for _, stmt := range cascade {
		if _, err = tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("delete project %s: %w", id, err)
		}
	}
	if err = deleteRow(ctx, tx, projectsTable, id); err != nil {
		return err
	}
	err = tx.Commit()
	return err
}

// CreateIssue creates issue.
func (r *Repository) CreateIssue(ctx context.Context, issue domain.Issue) error {
	return insertRow(ctx, r.db, issuesTable, issue.ID, issue, issue.ProjectID, issue.Key)
}

// UpdateIssue updates state for the requested operation.
func (r *Repository) UpdateIssue(ctx context.Context, issue domain.Issue) error {
	return updateRow(ctx, r.db, issuesTable, issue.ID, issue, issue.ProjectID, issue.Key)
}

// GetIssue returns issue.
func (r *Repository) GetIssue(ctx context.Context, id string) (domain.Issue, error) {
	return getRow[domain.Issue](ctx, r.db, issuesTable, "id = ?", id)
}

// GetIssueByKey returns the issue with key.
func (r *Repository) GetIssueByKey(ctx context.Context, key string) (domain.Issue, error) {
	return getRow[domain.Issue](ctx, r.db, issuesTable, "key = ?", key)
}

// ListIssues lists issues matching filter through the issue indexes.
func (r *Repository) ListIssues(ctx context.Context, filter app.IssueFilter) ([]domain.Issue, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause, value string) {
		if value != "" {
			where = append(where, clause)
			args = append(args, value)
		}
	}
	add("project_id = ?", filter.ProjectID)
	add("json_extract(data, '$.sprintId') = ?", filter.SprintID)
	add("json_extract(data, '$.assigneeId') = ?", filter.AssigneeID)
	add("json_extract(data, '$.reporterId') = ?", filter.ReporterID)
	add("json_extract(data, '$.parentId') = ?", filter.ParentID)
	add("json_extract(data, '$.status') = ?", string(filter.Status))
	add("json_extract(data, '$.type') = ?", string(filter.Type))
	return listRows[domain.Issue](ctx, r.db, issuesTable, where, args...)
}

// CountIssues counts the issues of a project.
func (r *Repository) CountIssues(ctx context.Context, projectID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM issues WHERE project_id = ?`, projectID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// DeleteIssue deletes issue.
func (r *Repository) DeleteIssue(ctx context.Context, id string) error {
	return deleteRow(ctx, r.db, issuesTable, id)
}

// CreateSprint creates sprint.
func (r *Repository) CreateSprint(ctx context.Context, s domain.Sprint) error {
	return insertRow(ctx, r.db, sprintsTable, s.ID, s, s.ProjectID)
}

// UpdateSprint updates state for the requested operation.
func (r *Repository) UpdateSprint(ctx context.Context, s domain.Sprint) error {
	return updateRow(ctx, r.db, sprintsTable, s.ID, s, s.ProjectID)
}

// GetSprint returns sprint.
func (r *Repository) GetSprint(ctx context.Context, id string) (domain.Sprint, error) {
	return getRow[domain.Sprint](ctx, r.db, sprintsTable, "id = ?", id)
}

// ListSprints lists the sprints of projectID, or every sprint when empty.
func (r *Repository) ListSprints(ctx context.Context, projectID string) ([]domain.Sprint, error) {
	if projectID == "" {
		return listRows[domain.Sprint](ctx, r.db, sprintsTable, nil)
	}
	return listRows[domain.Sprint](ctx, r.db, sprintsTable, []string{"project_id = ?"}, projectID)
}

// DeleteSprint deletes sprint.
func (r *Repository) DeleteSprint(ctx context.Context, id string) error {
	return deleteRow(ctx, r.db, sprintsTable, id)
}

// CreateVersion creates version.
func (r *Repository) CreateVersion(ctx context.Context, v domain.Version) error {
	return insertRow(ctx, r.db, versionsTable, v.ID, v, v.ProjectID)
}

// UpdateVersion updates state for the requested operation.
func (r *Repository) UpdateVersion(ctx context.Context, v domain.Version) error {
	return updateRow(ctx, r.db, versionsTable, v.ID, v, v.ProjectID)
}

// GetVersion returns version.
func (r *Repository) GetVersion(ctx context.Context, id string) (domain.Version, error) {
	return getRow[domain.Version](ctx, r.db, versionsTable, "id = ?", id)
}

// ListVersions lists the versions of projectID, or every version when empty.
func (r *Repository) ListVersions(ctx context.Context, projectID string) ([]domain.Version, error) {
	if projectID == "" {
		return listRows[domain.Version](ctx, r.db, versionsTable, nil)
	}
	return listRows[domain.Version](ctx, r.db, versionsTable, []string{"project_id = ?"}, projectID)
}

// DeleteVersion deletes version.
func (r *Repository) DeleteVersion(ctx context.Context, id string) error {
	return deleteRow(ctx, r.db, versionsTable, id)
}

// CreateNotification creates notification.
func (r *Repository) CreateNotification(ctx context.Context, n domain.Notification) error {
	return insertRow(ctx, r.db, notificationsTable, n.ID, n, n.RecipientID, boolInt(n.Read))
}

// UpdateNotification updates state for the requested operation.
func (r *Repository) UpdateNotification(ctx context.Context, n domain.Notification) error {
	return updateRow(ctx, r.db, notificationsTable, n.ID, n, n.RecipientID, boolInt(n.Read))
}

// GetNotification returns notification.
func (r *Repository) GetNotification(ctx context.Context, id string) (domain.Notification, error) {
	return getRow[domain.Notification](ctx, r.db, notificationsTable, "id = ?", id)
}

// ListNotifications lists notifications matching filter.
func (r *Repository) ListNotifications(ctx context.Context, filter app.NotificationFilter) ([]domain.Notification, error) {
	var (
		where []string
		args  []any
	)
	if filter.RecipientID != "" {
		where = append(where, "recipient_id = ?")
		args = append(args, filter.RecipientID)
	}
	if filter.UnreadOnly {
		where = append(where, "read = 0")
	}
	return listRows[domain.Notification](ctx, r.db, notificationsTable, where, args...)
}

// DeleteNotification deletes notification.
func (r *Repository) DeleteNotification(ctx context.Context, id string) error {
	return deleteRow(ctx, r.db, notificationsTable, id)
}

// CreateAutomationRule creates automation rule.
func (r *Repository) CreateAutomationRule(ctx context.Context, rule domain.AutomationRule) error {
	return insertRow(ctx, r.db, automationRulesTable, rule.ID, rule, rule.ProjectID)
}

// UpdateAutomationRule updates state for the requested operation.
func (r *Repository) UpdateAutomationRule(ctx context.Context, rule domain.AutomationRule) error {
	return updateRow(ctx, r.db, automationRulesTable, rule.ID, rule, rule.ProjectID)
}

// GetAutomationRule returns automation rule.
func (r *Repository) GetAutomationRule(ctx context.Context, id string) (domain.AutomationRule, error) {
	return getRow[domain.AutomationRule](ctx, r.db, automationRulesTable, "id = ?", id)
}

// ListAutomationRules lists rules matching filter through the project,
// trigger and enabled indexes.
func (r *Repository) ListAutomationRules(ctx context.Context, filter app.AutomationRuleFilter) ([]domain.AutomationRule, error) {
	var (
		where []string
		args  []any
	)
	if filter.ProjectID != "" {
		where = append(where, "project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if filter.Trigger != "" {
		where = append(where, "json_extract(data, '$.trigger') = ?")
		args = append(args, string(filter.Trigger))
	}
	if filter.EnabledOnly {
		where = append(where, "json_extract(data, '$.enabled') = 1")
	}
	return listRows[domain.AutomationRule](ctx, r.db, automationRulesTable, where, args...)
}

// DeleteAutomationRule deletes a rule together with its logs.
func (r *Repository) DeleteAutomationRule(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, `DELETE FROM automation_logs WHERE rule_id = ?`, id); err != nil {
		return fmt.Errorf("delete automation logs of %s: %w", id, err)
	}
	if err = deleteRow(ctx, tx, automationRulesTable, id); err != nil {
		return err
	}
	err = tx.Commit()
	return err
}

// CreateAutomationLog appends one execution record.
func (r *Repository) CreateAutomationLog(ctx context.Context, entry domain.AutomationLog) error {
	return insertRow(ctx, r.db, automationLogsTable, entry.ID, entry, entry.RuleID)
}

// ListAutomationLogs lists the logs of ruleID, or every log when empty.
func (r *Repository) ListAutomationLogs(ctx context.Context, ruleID string) ([]domain.AutomationLog, error) {
	if ruleID == "" {
		return listRows[domain.AutomationLog](ctx, r.db, automationLogsTable, nil)
	}
	return listRows[domain.AutomationLog](ctx, r.db, automationLogsTable, []string{"rule_id = ?"}, ruleID)
}

// CreateSavedFilter creates saved filter.
func (r *Repository) CreateSavedFilter(ctx context.Context, f domain.SavedFilter) error {
	return insertRow(ctx, r.db, savedFiltersTable, f.ID, f, f.OwnerID)
}

// UpdateSavedFilter updates state for the requested operation.
func (r *Repository) UpdateSavedFilter(ctx context.Context, f domain.SavedFilter) error {
	return updateRow(ctx, r.db, savedFiltersTable, f.ID, f, f.OwnerID)
}

// GetSavedFilter returns saved filter.
func (r *Repository) GetSavedFilter(ctx context.Context, id string) (domain.SavedFilter, error) {
	return getRow[domain.SavedFilter](ctx, r.db, savedFiltersTable, "id = ?", id)
}

// ListSavedFilters lists the filters of ownerID, or every filter when empty.
func (r *Repository) ListSavedFilters(ctx context.Context, ownerID string) ([]domain.SavedFilter, error) {
	if ownerID == "" {
		return listRows[domain.SavedFilter](ctx, r.db, savedFiltersTable, nil)
	}
	return listRows[domain.SavedFilter](ctx, r.db, savedFiltersTable, []string{"owner_id = ?"}, ownerID)
}

// DeleteSavedFilter deletes saved filter.
func (r *Repository) DeleteSavedFilter(ctx context.Context, id string) error {
	return deleteRow(ctx, r.db, savedFiltersTable, id)
}

// UpsertViewHistory inserts or overwrites the composite-keyed view row.
func (r *Repository) UpsertViewHistory(ctx context.Context, v domain.ViewHistory) error {
	return upsertRow(ctx, r.db, viewHistoryTable, v.ID, v, v.UserID)
}

// ListViewHistory lists the views of userID, or every view when empty.
func (r *Repository) ListViewHistory(ctx context.Context, userID string) ([]domain.ViewHistory, error) {
	if userID == "" {
		return listRows[domain.ViewHistory](ctx, r.db, viewHistoryTable, nil)
	}
	return listRows[domain.ViewHistory](ctx, r.db, viewHistoryTable, []string{"user_id = ?"}, userID)
}
