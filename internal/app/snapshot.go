package app

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/evanschultz/issuedeck/internal/domain"
)

// SnapshotVersion defines a package constant value.
const SnapshotVersion = "issuedeck.snapshot.v1"

// Snapshot is a portable dump of every entity table. Settings are not part of
// a snapshot.
type Snapshot struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exportedAt"`
	domain.Dataset
}

// ExportSnapshot handles export snapshot.
func (s *Service) ExportSnapshot(ctx context.Context) (Snapshot, error) {
	var (
		ds  domain.Dataset
		err error
	)
	if ds.Projects, err = s.repo.ListProjects(ctx); err != nil {
		return Snapshot{}, err
	}
	if ds.Issues, err = s.repo.ListIssues(ctx, IssueFilter{}); err != nil {
		return Snapshot{}, err
	}
	if ds.Sprints, err = s.repo.ListSprints(ctx, ""); err != nil {
		return Snapshot{}, err
	}
	if ds.Versions, err = s.repo.ListVersions(ctx, ""); err != nil {
		return Snapshot{}, err
	}
	if ds.Notifications, err = s.repo.ListNotifications(ctx, NotificationFilter{}); err != nil {
		return Snapshot{}, err
	}
	if ds.AutomationRules, err = s.repo.ListAutomationRules(ctx, AutomationRuleFilter{}); err != nil {
		return Snapshot{}, err
	}
	if ds.AutomationLogs, err = s.repo.ListAutomationLogs(ctx, ""); err != nil {
		return Snapshot{}, err
	}
	if ds.SavedFilters, err = s.repo.ListSavedFilters(ctx, ""); err != nil {
		return Snapshot{}, err
	}
	if ds.ViewHistory, err = s.repo.ListViewHistory(ctx, ""); err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{Version: SnapshotVersion, ExportedAt: s.now(), Dataset: ds}
	snap.sort()
	return snap, nil
}

// ImportSnapshot replaces every entity table with the snapshot content in one
// atomic step and marks the store initialized.
func (s *Service) ImportSnapshot(ctx context.Context, snap Snapshot) error {
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	snap.sort()
	for idx := range snap.Issues {
		snap.Issues[idx].Normalize()
	}
	if err := s.repo.ReplaceAll(ctx, snap.Dataset); err != nil {
		return fmt.Errorf("import snapshot: %w", err)
	}
	if err := s.repo.SetSetting(ctx, SettingAppInitialized, boolSetting(true)); err != nil {
		return err
	}
	s.logger.Info("snapshot imported", "projects", len(snap.Projects), "issues", len(snap.Issues))
	return nil
}

// Validate checks ids, key uniqueness and references between tables.
func (s *Snapshot) Validate() error {
	if s.Version != "" && s.Version != SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version: %q", s.Version)
	}

	projectIDs := map[string]struct{}{}
	projectKeys := map[string]struct{}{}
	for i, p := range s.Projects {
		if strings.TrimSpace(p.ID) == "" {
			return fmt.Errorf("projects[%d].id is required", i)
		}
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("projects[%d].name is required", i)
		}
		if _, exists := projectIDs[p.ID]; exists {
			return fmt.Errorf("duplicate project id: %q", p.ID)
		}
		if _, exists := projectKeys[p.Key]; exists {
			return fmt.Errorf("duplicate project key: %q", p.Key)
		}
		projectIDs[p.ID] = struct{}{}
		projectKeys[p.Key] = struct{}{}
	}

	issueIDs := map[string]struct{}{}
	issueKeys := map[string]struct{}{}
	for i, issue := range s.Issues {
		if strings.TrimSpace(issue.ID) == "" {
			return fmt.Errorf("issues[%d].id is required", i)
		}
		if _, ok := projectIDs[issue.ProjectID]; !ok {
			return fmt.Errorf("issues[%d] references unknown project_id %q", i, issue.ProjectID)
		}
		if !domain.IsValidStatus(issue.Status) {
			return fmt.Errorf("issues[%d] has invalid status %q", i, issue.Status)
		}
		if _, exists := issueIDs[issue.ID]; exists {
			return fmt.Errorf("duplicate issue id: %q", issue.ID)
		}
		if _, exists := issueKeys[issue.Key]; exists {
			return fmt.Errorf("duplicate issue key: %q", issue.Key)
		}
		issueIDs[issue.ID] = struct{}{}
		issueKeys[issue.Key] = struct{}{}
	}

	for i, sprint := range s.Sprints {
		if _, ok := projectIDs[sprint.ProjectID]; !ok {
			return fmt.Errorf("sprints[%d] references unknown project_id %q", i, sprint.ProjectID)
		}
		if !domain.IsValidSprintStatus(sprint.Status) {
			return fmt.Errorf("sprints[%d] has invalid status %q", i, sprint.Status)
		}
	}
	for i, version := range s.Versions {
		if _, ok := projectIDs[version.ProjectID]; !ok {
			return fmt.Errorf("versions[%d] references unknown project_id %q", i, version.ProjectID)
		}
	}
	ruleIDs := map[string]struct{}{}
	for i, rule := range s.AutomationRules {
		if _, ok := projectIDs[rule.ProjectID]; !ok {
			return fmt.Errorf("automationRules[%d] references unknown project_id %q", i, rule.ProjectID)
		}
		ruleIDs[rule.ID] = struct{}{}
	}
	for i, entry := range s.AutomationLogs {
		if _, ok := ruleIDs[entry.RuleID]; !ok {
			return fmt.Errorf("automationLogs[%d] references unknown rule_id %q", i, entry.RuleID)
		}
	}
	for i, view := range s.ViewHistory {
		if view.ID != domain.ViewHistoryID(view.UserID, view.IssueID) {
			return fmt.Errorf("viewHistory[%d] id %q does not match user and issue", i, view.ID)
		}
	}
	return nil
}

// sort orders every table by id so exports are stable.
func (s *Snapshot) sort() {
	slices.SortFunc(s.Projects, func(a, b domain.Project) int { return cmp.Compare(a.ID, b.ID) })
	slices.SortFunc(s.Issues, func(a, b domain.Issue) int { return cmp.Compare(a.ID, b.ID) })
	slices.SortFunc(s.Sprints, func(a, b domain.Sprint) int { return cmp.Compare(a.ID, b.ID) })
	slices.SortFunc(s.Versions, func(a, b domain.Version) int { return cmp.Compare(a.ID, b.ID) })
	slices.SortFunc(s.Notifications, func(a, b domain.Notification) int { return cmp.Compare(a.ID, b.ID) })
	slices.SortFunc(s.AutomationRules, func(a, b domain.AutomationRule) int { return cmp.Compare(a.ID, b.ID) })
	slices.SortFunc(s.AutomationLogs, func(a, b domain.AutomationLog) int { return cmp.Compare(a.ID, b.ID) })
	slices.SortFunc(s.SavedFilters, func(a, b domain.SavedFilter) int { return cmp.Compare(a.ID, b.ID) })
	slices.SortFunc(s.ViewHistory, func(a, b domain.ViewHistory) int { return cmp.Compare(a.ID, b.ID) })
}
