package badgerkv

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/evanschultz/issuedeck/internal/app"
	"github.com/evanschultz/issuedeck/internal/domain"
	"github.com/evanschultz/issuedeck/internal/seed"
)

var testNow = time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Close()
	})
	return repo
}

func demoDataset(t *testing.T) domain.Dataset {
	t.Helper()
	ds, err := seed.Demo(testNow)
	if err != nil {
		t.Fatalf("seed.Demo() error = %v", err)
	}
	return ds
}

func newTestIssue(t *testing.T, id, assignee string) domain.Issue {
	t.Helper()
	issue, err := domain.NewIssue(domain.IssueInput{
		ID:         id,
		Key:        "DEV-" + id,
		ProjectID:  "p1",
		Title:      "Issue " + id,
		ReporterID: "user-1",
		AssigneeID: assignee,
		HistoryID:  id + "-h0",
	}, testNow)
	if err != nil {
		t.Fatalf("NewIssue() error = %v", err)
	}
	return issue
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	repo, err := Open(Config{Dir: dir})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := repo.CreateIssue(ctx, newTestIssue(t, "101", "user-2")); err != nil {
		t.Fatalf("CreateIssue() error = %v", err)
	}
	if err := repo.SetSetting(ctx, "theme", "dark"); err != nil {
		t.Fatalf("SetSetting() error = %v", err)
	}
	if err := repo.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := Open(Config{Dir: dir})
	if err != nil {
		t.Fatalf("Open() reopen error = %v", err)
	}
	defer reopened.Close()
	issue, err := reopened.GetIssueByKey(ctx, "DEV-101")
	if err != nil {
		t.Fatalf("GetIssueByKey() error = %v", err)
	}
	if issue.AssigneeID != "user-2" {
		t.Fatalf("unexpected issue %#v", issue)
	}
	if value, ok, _ := reopened.GetSetting(ctx, "theme"); !ok || value != "dark" {
		t.Fatalf("expected setting to persist, got %q %v", value, ok)
	}
}

func TestOpenRequiresDir(t *testing.T) {
	if _, err := Open(Config{}); err == nil {
		t.Fatal("expected Open() without dir to fail")
	}
}

func TestIndexesFollowUpdates(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	issue := newTestIssue(t, "101", "user-2")
	if err := repo.CreateIssue(ctx, issue); err != nil {
		t.Fatalf("CreateIssue() error = %v", err)
	}
	if err := repo.CreateIssue(ctx, issue); err == nil {
		t.Fatal("expected duplicate create to fail")
	}

	issue.AssigneeID = "user-3"
	if err := repo.UpdateIssue(ctx, issue); err != nil {
		t.Fatalf("UpdateIssue() error = %v", err)
	}
	old, err := repo.ListIssues(ctx, app.IssueFilter{AssigneeID: "user-2"})
	if err != nil {
		t.Fatalf("ListIssues() error = %v", err)
	}
	if len(old) != 0 {
		t.Fatalf("expected stale assignee index entry removed, got %d", len(old))
	}
	current, err := repo.ListIssues(ctx, app.IssueFilter{AssigneeID: "user-3", ProjectID: "p1"})
	if err != nil {
		t.Fatalf("ListIssues() error = %v", err)
	}
	if len(current) != 1 {
		t.Fatalf("expected 1 issue for user-3, got %d", len(current))
	}

	issue.AssigneeID = ""
	if err := repo.UpdateIssue(ctx, issue); err != nil {
		t.Fatalf("UpdateIssue() unassign error = %v", err)
	}
	if got, _ := repo.ListIssues(ctx, app.IssueFilter{AssigneeID: "user-3"}); len(got) != 0 {
		t.Fatalf("expected unassigned issue to leave the index, got %d", len(got))
	}
	if n, _ := repo.CountIssues(ctx, "p1"); n != 1 {
		t.Fatalf("expected count 1, got %d", n)
	}
}

func TestMissingRowsReturnNotFound(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	if _, err := repo.GetIssue(ctx, "missing"); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("GetIssue() expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetProjectByKey(ctx, "NOPE"); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("GetProjectByKey() expected ErrNotFound, got %v", err)
	}
	if err := repo.UpdateVersion(ctx, domain.Version{ID: "missing"}); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("UpdateVersion() expected ErrNotFound, got %v", err)
	}
	if err := repo.DeleteAutomationRule(ctx, "missing"); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("DeleteAutomationRule() expected ErrNotFound, got %v", err)
	}
}

func TestSubscribersHearCommittedWrites(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	var issueEvents, projectEvents atomic.Int32
	unsubscribe := repo.Subscribe(app.TableIssues, func() { issueEvents.Add(1) })
	repo.Subscribe(app.TableProjects, func() { projectEvents.Add(1) })

	if err := repo.CreateIssue(ctx, newTestIssue(t, "101", "")); err != nil {
		t.Fatalf("CreateIssue() error = %v", err)
	}
	if err := repo.DeleteIssue(ctx, "missing"); err == nil {
		t.Fatal("expected delete of missing issue to fail")
	}
	if got := issueEvents.Load(); got != 1 {
		t.Fatalf("expected 1 issue event, got %d", got)
	}
	if got := projectEvents.Load(); got != 0 {
		t.Fatalf("expected no project events, got %d", got)
	}

	unsubscribe()
	unsubscribe()
	if err := repo.CreateIssue(ctx, newTestIssue(t, "102", "")); err != nil {
		t.Fatalf("CreateIssue() error = %v", err)
	}
	if got := issueEvents.Load(); got != 1 {
		t.Fatalf("expected no events after unsubscribe, got %d", got)
	}
	if !repo.SupportsPush() {
		t.Fatal("expected badger to report push support")
	}
}

func TestSubscriberMayReadStore(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	var seen int
	repo.Subscribe(app.TableIssues, func() {
		issues, err := repo.ListIssues(ctx, app.IssueFilter{})
		if err != nil {
			t.Errorf("ListIssues() in callback error = %v", err)
		}
		seen = len(issues)
	})
	if err := repo.CreateIssue(ctx, newTestIssue(t, "101", "")); err != nil {
		t.Fatalf("CreateIssue() error = %v", err)
	}
	if seen != 1 {
		t.Fatalf("expected callback to observe the committed issue, saw %d", seen)
	}
}

func TestDeleteProjectCascades(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	if err := repo.ReplaceAll(ctx, demoDataset(t)); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}
	rule, err := domain.NewAutomationRule(domain.AutomationRuleInput{
		ID:        "rule-1",
		ProjectID: "project-demo",
		Name:      "Comment",
		Trigger:   domain.TriggerCommentAdded,
		Action:    domain.ActionAddComment,
		Enabled:   true,
	}, testNow)
	if err != nil {
		t.Fatalf("NewAutomationRule() error = %v", err)
	}
	if err := repo.CreateAutomationRule(ctx, rule); err != nil {
		t.Fatalf("CreateAutomationRule() error = %v", err)
	}
	if err := repo.CreateAutomationLog(ctx, domain.AutomationLog{ID: "log-1", RuleID: rule.ID, Status: domain.AutomationSuccess, ExecutedAt: testNow}); err != nil {
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
			t.Fatalf("expected %s empty after cascade, got %d", name, n)
		}
	}
	if _, err := repo.GetIssueByKey(ctx, "DEMO-101"); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("expected key index cleared, got %v", err)
	}
}

func TestReplaceAllAndClearAll(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	ds := demoDataset(t)

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
			t.Fatalf("expected %d %s, got %d", want, name, got)
		}
	}

	broken := ds
	broken.Projects = append([]domain.Project{}, ds.Projects...)
	broken.Projects = append(broken.Projects, ds.Projects[0])
	if err := repo.ReplaceAll(ctx, broken); err == nil {
		t.Fatal("expected duplicate project to fail ReplaceAll")
	}
	if got, _ := repo.Count(ctx, "issues"); got != len(ds.Issues) {
		t.Fatalf("expected failed ReplaceAll to leave data intact, got %d issues", got)
	}

	if err := repo.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll() error = %v", err)
	}
	for _, table := range app.Tables {
		if n, _ := repo.Count(ctx, string(table)); n != 0 {
			t.Fatalf("expected %s empty after ClearAll, got %d", table, n)
		}
	}
	if _, ok, _ := repo.GetSetting(ctx, "theme"); !ok {
		t.Fatal("expected settings to survive ClearAll")
	}
	if _, err := repo.Count(ctx, "bogus"); err == nil {
		t.Fatal("expected unknown table count to fail")
	}
}

func TestSettingsPrefixListing(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	for _, key := range []string{"dashboard_gadgets_user-2", "dashboard_gadgets_user-1", "notificationsEnabled"} {
		if err := repo.SetSetting(ctx, key, "x"); err != nil {
			t.Fatalf("SetSetting(%s) error = %v", key, err)
		}
	}
	keys, err := repo.ListSettingKeys(ctx, "dashboard_gadgets_")
	if err != nil {
		t.Fatalf("ListSettingKeys() error = %v", err)
	}
	if len(keys) != 2 || keys[0] != "dashboard_gadgets_user-1" || keys[1] != "dashboard_gadgets_user-2" {
		t.Fatalf("unexpected keys %#v", keys)
	}
	if err := repo.DeleteSettings(ctx, "notificationsEnabled", "missing"); err != nil {
		t.Fatalf("DeleteSettings() error = %v", err)
	}
	if _, ok, _ := repo.GetSetting(ctx, "notificationsEnabled"); ok {
		t.Fatal("expected setting deleted")
	}
}

func TestViewHistoryUpsert(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	for _, at := range []time.Time{testNow, testNow.Add(time.Minute)} {
		v, err := domain.NewViewHistory("user-1", "i1", at)
		if err != nil {
			t.Fatalf("NewViewHistory() error = %v", err)
		}
		if err := repo.UpsertViewHistory(ctx, v); err != nil {
			t.Fatalf("UpsertViewHistory() error = %v", err)
		}
	}
	views, err := repo.ListViewHistory(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListViewHistory() error = %v", err)
	}
	if len(views) != 1 || !views[0].ViewedAt.Equal(testNow.Add(time.Minute)) {
		t.Fatalf("expected single upserted row, got %#v", views)
	}
}
