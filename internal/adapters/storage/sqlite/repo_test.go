package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/evanschultz/issuedeck/internal/app"
	"github.com/evanschultz/issuedeck/internal/domain"
	"github.com/evanschultz/issuedeck/internal/seed"
)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), "issuedeck.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Close()
	})
	return repo
}

func demoDataset(t *testing.T, now time.Time) domain.Dataset {
	t.Helper()
	ds, err := seed.Demo(now)
	if err != nil {
		t.Fatalf("seed.Demo() error = %v", err)
	}
	return ds
}

func TestRepository_ProjectIssueLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)

	project, err := domain.NewProject(domain.ProjectInput{ID: "p1", Key: "dev", Name: "Dev", Type: domain.ProjectTypeKanban}, now)
	if err != nil {
		t.Fatalf("NewProject() error = %v", err)
	}
	if err := repo.CreateProject(ctx, project); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	byKey, err := repo.GetProjectByKey(ctx, "DEV")
	if err != nil {
		t.Fatalf("GetProjectByKey() error = %v", err)
	}
	if byKey.ID != "p1" || byKey.Type != domain.ProjectTypeKanban {
		t.Fatalf("unexpected project %#v", byKey)
	}

	points := 5
	issue, err := domain.NewIssue(domain.IssueInput{
		ID:          "i1",
		Key:         project.IssueKey(101),
		ProjectID:   project.ID,
		Title:       "Login form",
		Type:        domain.IssueTypeStory,
		Priority:    domain.PriorityHigh,
		ReporterID:  "user-1",
		AssigneeID:  "user-2",
		StoryPoints: &points,
		Labels:      []string{"ui", "auth"},
		HistoryID:   "h1",
	}, now)
	if err != nil {
		t.Fatalf("NewIssue() error = %v", err)
	}
	if err := repo.CreateIssue(ctx, issue); err != nil {
		t.Fatalf("CreateIssue() error = %v", err)
	}

	loaded, err := repo.GetIssueByKey(ctx, "DEV-101")
	if err != nil {
		t.Fatalf("GetIssueByKey() error = %v", err)
	}
	if loaded.StoryPoints == nil || *loaded.StoryPoints != 5 {
		t.Fatalf("unexpected story points %#v", loaded.StoryPoints)
	}
	if len(loaded.Labels) != 2 || len(loaded.History) != 1 || len(loaded.WatcherIDs) != 1 {
		t.Fatalf("unexpected nested fields %#v", loaded)
	}

	loaded.Status = domain.StatusInProgress
	if err := repo.UpdateIssue(ctx, loaded); err != nil {
		t.Fatalf("UpdateIssue() error = %v", err)
	}
	inProgress, err := repo.ListIssues(ctx, app.IssueFilter{ProjectID: "p1", Status: domain.StatusInProgress})
	if err != nil {
		t.Fatalf("ListIssues() error = %v", err)
	}
	if len(inProgress) != 1 {
		t.Fatalf("expected 1 in-progress issue, got %d", len(inProgress))
	}
	byAssignee, err := repo.ListIssues(ctx, app.IssueFilter{AssigneeID: "user-3"})
	if err != nil {
		t.Fatalf("ListIssues() error = %v", err)
	}
	if len(byAssignee) != 0 {
		t.Fatalf("expected no issues for user-3, got %d", len(byAssignee))
	}

	count, err := repo.CountIssues(ctx, "p1")
	if err != nil {
		t.Fatalf("CountIssues() error = %v", err)
	}
	if count != 1 {
		t.Fatalf("expected count 1, got %d", count)
	}

	if err := repo.DeleteIssue(ctx, "i1"); err != nil {
		t.Fatalf("DeleteIssue() error = %v", err)
	}
	if _, err := repo.GetIssue(ctx, "i1"); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRepository_MissingRowsReturnNotFound(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	if _, err := repo.GetProject(ctx, "missing"); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("GetProject() expected ErrNotFound, got %v", err)
	}
	if err := repo.UpdateSprint(ctx, domain.Sprint{ID: "missing", ProjectID: "p"}); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("UpdateSprint() expected ErrNotFound, got %v", err)
	}
	if err := repo.DeleteNotification(ctx, "missing"); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("DeleteNotification() expected ErrNotFound, got %v", err)
	}
	if err := repo.DeleteProject(ctx, "missing"); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("DeleteProject() expected ErrNotFound, got %v", err)
	}
}

func TestRepository_DeleteProjectCascades(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	if err := repo.ReplaceAll(ctx, demoDataset(t, now)); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}
	rule, err := domain.NewAutomationRule(domain.AutomationRuleInput{
		ID:        "rule-1",
		ProjectID: "project-demo",
		Name:      "Escalate bugs",
		Trigger:   domain.TriggerIssueCreated,
		Condition: "type = Bug",
		Action:    domain.ActionSetPriorityHigh,
		Enabled:   true,
	}, now)
	if err != nil {
		t.Fatalf("NewAutomationRule() error = %v", err)
	}
	if err := repo.CreateAutomationRule(ctx, rule); err != nil {
		t.Fatalf("CreateAutomationRule() error = %v", err)
	}
	logEntry := domain.AutomationLog{ID: "log-1", RuleID: rule.ID, Status: domain.AutomationSuccess, ExecutedAt: now}
	if err := repo.CreateAutomationLog(ctx, logEntry); err != nil {
		t.Fatalf("CreateAutomationLog() error = %v", err)
	}

	if err := repo.DeleteProject(ctx, "project-demo"); err != nil {
		t.Fatalf("DeleteProject() error = %v", err)
	}
	for _, name := range []string{"projects", "issues", "sprints", "versions", "automationRules", "automationLogs"} {
		n, err := repo.Count(ctx, name)
		if err != nil {
			t.Fatalf("Count(%s) error = %v", name, err)
		}
		if n != 0 {
			t.Fatalf("expected %s to be empty after cascade, got %d", name, n)
		}
	}
	notifications, err := repo.ListNotifications(ctx, app.NotificationFilter{})
	if err != nil {
		t.Fatalf("ListNotifications() error = %v", err)
	}
	if len(notifications) == 0 {
		t.Fatal("expected notifications to survive project delete")
	}
}

func TestRepository_AutomationRuleFilterAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)

	for _, in := range []domain.AutomationRuleInput{
		{ID: "r1", ProjectID: "p1", Name: "on", Trigger: domain.TriggerCommentAdded, Action: domain.ActionAddComment, Enabled: true},
		{ID: "r2", ProjectID: "p1", Name: "off", Trigger: domain.TriggerCommentAdded, Action: domain.ActionAddComment},
		{ID: "r3", ProjectID: "p1", Name: "other", Trigger: domain.TriggerIssueCreated, Action: domain.ActionAddComment, Enabled: true},
	} {
		rule, err := domain.NewAutomationRule(in, now)
		if err != nil {
			t.Fatalf("NewAutomationRule(%s) error = %v", in.ID, err)
		}
		if err := repo.CreateAutomationRule(ctx, rule); err != nil {
			t.Fatalf("CreateAutomationRule(%s) error = %v", in.ID, err)
		}
	}
	rules, err := repo.ListAutomationRules(ctx, app.AutomationRuleFilter{ProjectID: "p1", Trigger: domain.TriggerCommentAdded, EnabledOnly: true})
	if err != nil {
		t.Fatalf("ListAutomationRules() error = %v", err)
	}
	if len(rules) != 1 || rules[0].ID != "r1" {
		t.Fatalf("unexpected rules %#v", rules)
	}

	for _, id := range []string{"l1", "l2"} {
		if err := repo.CreateAutomationLog(ctx, domain.AutomationLog{ID: id, RuleID: "r1", Status: domain.AutomationSuccess, ExecutedAt: now}); err != nil {
			t.Fatalf("CreateAutomationLog(%s) error = %v", id, err)
		}
	}
	if err := repo.DeleteAutomationRule(ctx, "r1"); err != nil {
		t.Fatalf("DeleteAutomationRule() error = %v", err)
	}
	logs, err := repo.ListAutomationLogs(ctx, "r1")
	if err != nil {
		t.Fatalf("ListAutomationLogs() error = %v", err)
	}
	if len(logs) != 0 {
		t.Fatalf("expected logs removed with rule, got %d", len(logs))
	}
}

func TestRepository_NotificationsAndViewHistory(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)

	for _, n := range []domain.Notification{
		{ID: "n1", RecipientID: "user-1", Title: "a", CreatedAt: now, Type: domain.NotificationSystem},
		{ID: "n2", RecipientID: "user-1", Title: "b", Read: true, CreatedAt: now, Type: domain.NotificationSystem},
		{ID: "n3", RecipientID: "user-2", Title: "c", CreatedAt: now, Type: domain.NotificationSystem},
	} {
		if err := repo.CreateNotification(ctx, n); err != nil {
			t.Fatalf("CreateNotification(%s) error = %v", n.ID, err)
		}
	}
	unread, err := repo.ListNotifications(ctx, app.NotificationFilter{RecipientID: "user-1", UnreadOnly: true})
	if err != nil {
		t.Fatalf("ListNotifications() error = %v", err)
	}
	if len(unread) != 1 || unread[0].ID != "n1" {
		t.Fatalf("unexpected unread notifications %#v", unread)
	}

	first, err := domain.NewViewHistory("user-1", "i1", now)
	if err != nil {
		t.Fatalf("NewViewHistory() error = %v", err)
	}
	second, _ := domain.NewViewHistory("user-1", "i1", now.Add(time.Hour))
	for _, v := range []domain.ViewHistory{first, second} {
		if err := repo.UpsertViewHistory(ctx, v); err != nil {
			t.Fatalf("UpsertViewHistory() error = %v", err)
		}
	}
	views, err := repo.ListViewHistory(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListViewHistory() error = %v", err)
	}
	if len(views) != 1 || !views[0].ViewedAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("expected one upserted view, got %#v", views)
	}
}

func TestRepository_Settings(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	if _, ok, err := repo.GetSetting(ctx, "theme"); err != nil || ok {
		t.Fatalf("GetSetting() on missing key = %v, %v", ok, err)
	}
	for key, value := range map[string]string{
		"theme":                     "dark",
		"dashboard_gadgets_user-1":  "[]",
		"dashboard_gadgets_user-2":  "[]",
		"dashboardXgadgets_ignored": "x",
	} {
		if err := repo.SetSetting(ctx, key, value); err != nil {
			t.Fatalf("SetSetting(%s) error = %v", key, err)
		}
	}
	if err := repo.SetSetting(ctx, "theme", "light"); err != nil {
		t.Fatalf("SetSetting() overwrite error = %v", err)
	}
	value, ok, err := repo.GetSetting(ctx, "theme")
	if err != nil || !ok || value != "light" {
		t.Fatalf("GetSetting() = %q, %v, %v", value, ok, err)
	}

	keys, err := repo.ListSettingKeys(ctx, "dashboard_gadgets_")
	if err != nil {
		t.Fatalf("ListSettingKeys() error = %v", err)
	}
	if len(keys) != 2 || keys[0] != "dashboard_gadgets_user-1" {
		t.Fatalf("unexpected keys %#v", keys)
	}

	if err := repo.DeleteSettings(ctx, append(keys, "not-there")...); err != nil {
		t.Fatalf("DeleteSettings() error = %v", err)
	}
	keys, _ = repo.ListSettingKeys(ctx, "dashboard")
	if len(keys) != 1 {
		t.Fatalf("expected only the lookalike key to remain, got %#v", keys)
	}
}

func TestRepository_ReplaceAllAndClearAll(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	ds := demoDataset(t, now)

	if err := repo.SetSetting(ctx, "theme", "dark"); err != nil {
		t.Fatalf("SetSetting() error = %v", err)
	}
	for range 2 {
		if err := repo.ReplaceAll(ctx, ds); err != nil {
			t.Fatalf("ReplaceAll() error = %v", err)
		}
	}
	for name, want := range ds.Counts() {
		got, err := repo.Count(ctx, name)
		if err != nil {
			t.Fatalf("Count(%s) error = %v", name, err)
		}
		if got != want {
			t.Fatalf("expected %d %s after replace, got %d", want, name, got)
		}
	}

	broken := ds
	broken.Issues = append([]domain.Issue{}, ds.Issues...)
	broken.Issues = append(broken.Issues, ds.Issues[0])
	if err := repo.ReplaceAll(ctx, broken); err == nil {
		t.Fatal("expected duplicate id to fail ReplaceAll")
	}
	got, _ := repo.Count(ctx, "issues")
	if got != len(ds.Issues) {
		t.Fatalf("expected failed ReplaceAll to roll back, got %d issues", got)
	}

	if err := repo.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll() error = %v", err)
	}
	for _, name := range app.Tables {
		n, err := repo.Count(ctx, string(name))
		if err != nil {
			t.Fatalf("Count(%s) error = %v", name, err)
		}
		if n != 0 {
			t.Fatalf("expected %s empty after ClearAll, got %d", name, n)
		}
	}
	if _, ok, _ := repo.GetSetting(ctx, "theme"); !ok {
		t.Fatal("expected settings to survive ClearAll")
	}
}

func TestRepository_DecodesLegacySprintStatus(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO sprints(id, project_id, data) VALUES (?, ?, ?)`,
		"s1", "p1", `{"id":"s1","projectId":"p1","name":"Legacy","status":"planning"}`,
	)
	if err != nil {
		t.Fatalf("insert legacy sprint error = %v", err)
	}
	sprint, err := repo.GetSprint(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSprint() error = %v", err)
	}
	if sprint.Status != domain.SprintFuture {
		t.Fatalf("expected legacy planning to decode as future, got %q", sprint.Status)
	}
}

func TestOpenInMemoryIsolated(t *testing.T) {
	ctx := context.Background()
	a, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	defer a.Close()
	b, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	defer b.Close()

	if err := a.SetSetting(ctx, "k", "v"); err != nil {
		t.Fatalf("SetSetting() error = %v", err)
	}
	if _, ok, _ := b.GetSetting(ctx, "k"); ok {
		t.Fatal("expected in-memory databases to be isolated")
	}
	if a.SupportsPush() {
		t.Fatal("expected sqlite to report no push support")
	}
}
