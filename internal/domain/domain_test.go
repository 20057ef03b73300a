package domain

import (
	"encoding/json"
	"slices"
	"testing"
	"time"
)

func TestNewProjectNormalizesKey(t *testing.T) {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	p, err := NewProject(ProjectInput{ID: "p1", Key: " dev ", Name: "  Developer Portal  "}, now)
	if err != nil {
		t.Fatalf("NewProject() error = %v", err)
	}
	if p.Key != "DEV" {
		t.Fatalf("unexpected key %q", p.Key)
	}
	if p.Name != "Developer Portal" {
		t.Fatalf("unexpected name %q", p.Name)
	}
	if p.Type != ProjectTypeScrum || p.Category != CategorySoftware {
		t.Fatalf("unexpected defaults type=%q category=%q", p.Type, p.Category)
	}
	if got := p.IssueKey(101); got != "DEV-101" {
		t.Fatalf("IssueKey() = %q", got)
	}
}

func TestNewProjectValidation(t *testing.T) {
	now := time.Now()
	if _, err := NewProject(ProjectInput{Key: "DEV", Name: "ok"}, now); err != ErrInvalidID {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := NewProject(ProjectInput{ID: "p1", Key: "DEV", Name: "  "}, now); err != ErrInvalidName {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
	for _, key := range []string{"", "1AB", "DE-V", "ABCDEFGHIJK", "日本"} {
		if _, err := NewProject(ProjectInput{ID: "p1", Key: key, Name: "x"}, now); err != ErrInvalidKey {
			t.Fatalf("key %q: expected ErrInvalidKey, got %v", key, err)
		}
	}
	if _, err := NewProject(ProjectInput{ID: "p1", Key: "DEV", Name: "x", Type: "Waterfall"}, now); err != ErrInvalidProjectType {
		t.Fatalf("expected ErrInvalidProjectType, got %v", err)
	}
}

func TestNewIssueDefaults(t *testing.T) {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	issue, err := NewIssue(IssueInput{
		ID:         "i1",
		Key:        "DEV-101",
		ProjectID:  "p1",
		Title:      " Fix bug ",
		ReporterID: "u1",
		Labels:     []string{"ui", " ui ", "api", ""},
	}, now)
	if err != nil {
		t.Fatalf("NewIssue() error = %v", err)
	}
	if issue.Status != StatusToDo || issue.Type != IssueTypeTask || issue.Priority != PriorityMedium {
		t.Fatalf("unexpected defaults %q %q %q", issue.Status, issue.Type, issue.Priority)
	}
	if issue.Title != "Fix bug" {
		t.Fatalf("unexpected title %q", issue.Title)
	}
	if len(issue.History) != 1 || issue.History[0].Field != FieldStatus || issue.History[0].To != string(StatusToDo) {
		t.Fatalf("expected one initial status history entry, got %#v", issue.History)
	}
	if !slices.Equal(issue.WatcherIDs, []string{"u1"}) {
		t.Fatalf("expected reporter watching, got %#v", issue.WatcherIDs)
	}
	if !slices.Equal(issue.Labels, []string{"api", "ui"}) {
		t.Fatalf("unexpected labels %#v", issue.Labels)
	}
	if issue.Comments == nil || issue.Links == nil || issue.Attachments == nil {
		t.Fatal("expected empty collections, got nil")
	}
}

func TestNewIssueValidation(t *testing.T) {
	now := time.Now()
	base := IssueInput{ID: "i1", Key: "DEV-1", ProjectID: "p1", Title: "x"}

	in := base
	in.Title = " "
	if _, err := NewIssue(in, now); err != ErrInvalidTitle {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
	in = base
	in.Status = "Blocked"
	if _, err := NewIssue(in, now); err != ErrInvalidStatus {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	in = base
	in.Priority = "Urgent"
	if _, err := NewIssue(in, now); err != ErrInvalidPriority {
		t.Fatalf("expected ErrInvalidPriority, got %v", err)
	}
	in = base
	in.Type = "Spike"
	if _, err := NewIssue(in, now); err != ErrInvalidIssueType {
		t.Fatalf("expected ErrInvalidIssueType, got %v", err)
	}
}

func TestIssueFieldValue(t *testing.T) {
	points := 5
	due := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	issue := Issue{
		Key:         "DEV-1",
		Status:      StatusDone,
		Priority:    PriorityHighest,
		StoryPoints: &points,
		DueDate:     &due,
		Labels:      []string{"a", "b"},
	}
	cases := map[string]string{
		"status":      "Done",
		"STATUS":      "Done",
		"priority":    "Highest",
		"storyPoints": "5",
		"dueDate":     "2026-03-01",
		"labels":      "a,b",
		"assigneeId":  "",
	}
	for field, want := range cases {
		got, ok := issue.FieldValue(field)
		if !ok || got != want {
			t.Fatalf("FieldValue(%q) = %q, %t; want %q", field, got, ok, want)
		}
	}
	if _, ok := issue.FieldValue("color"); ok {
		t.Fatal("expected unknown field to report false")
	}
}

func TestRecordChangesKeepsUpdatedAtMonotonic(t *testing.T) {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	issue := Issue{UpdatedAt: now}
	issue.RecordChanges([]FieldChange{{Field: FieldStatus, From: "To Do", To: "Done"}}, "u1", nil, now.Add(-time.Minute))
	if issue.UpdatedAt.Before(now) {
		t.Fatalf("UpdatedAt went backwards: %v", issue.UpdatedAt)
	}
	if len(issue.History) != 1 || issue.History[0].AuthorID != "u1" {
		t.Fatalf("unexpected history %#v", issue.History)
	}
}

func TestIssueWatchers(t *testing.T) {
	issue := Issue{WatcherIDs: []string{"u1"}}
	if issue.AddWatcher("u1") {
		t.Fatal("expected duplicate watcher to be ignored")
	}
	if !issue.AddWatcher("u2") || !issue.IsWatchedBy("u2") {
		t.Fatal("expected u2 to watch")
	}
	if !issue.RemoveWatcher("u1") || issue.IsWatchedBy("u1") {
		t.Fatal("expected u1 removed")
	}
}

func TestIssueAppendValidation(t *testing.T) {
	now := time.Now()
	issue := Issue{ID: "i1"}
	if err := issue.AddComment(Comment{ID: "c1", Body: "  "}); err != ErrInvalidBody {
		t.Fatalf("expected ErrInvalidBody, got %v", err)
	}
	if err := issue.AddWorkLog(WorkLog{ID: "w1", TimeSpent: 0}); err != ErrInvalidDuration {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
	if err := issue.AddLink(IssueLink{ID: "l1", Type: LinkBlocks, OutwardIssueID: "i1"}, now); err != ErrInvalidID {
		t.Fatalf("expected self-link rejected, got %v", err)
	}
	if err := issue.AddLink(IssueLink{ID: "l1", Type: "clones", OutwardIssueID: "i2"}, now); err != ErrInvalidLinkType {
		t.Fatalf("expected ErrInvalidLinkType, got %v", err)
	}
}

func TestSprintStatusNormalization(t *testing.T) {
	if got := NormalizeSprintStatus("planning"); got != SprintFuture {
		t.Fatalf("NormalizeSprintStatus(planning) = %q", got)
	}
	s, err := NewSprint("s1", "p1", "Sprint 1", "")
	if err != nil {
		t.Fatalf("NewSprint() error = %v", err)
	}
	if s.Status != SprintFuture {
		t.Fatalf("unexpected default status %q", s.Status)
	}
	if _, err := NewSprint("s1", "p1", "Sprint 1", "paused"); err != ErrInvalidSprintStatus {
		t.Fatalf("expected ErrInvalidSprintStatus, got %v", err)
	}
	now := time.Now()
	s.Start(now)
	if s.Status != SprintActive || s.StartDate == nil {
		t.Fatalf("unexpected started sprint %#v", s)
	}
	s.Complete(now)
	if s.Status != SprintCompleted || s.EndDate == nil {
		t.Fatalf("unexpected completed sprint %#v", s)
	}
}

func TestHasPermission(t *testing.T) {
	users := []User{
		{ID: "admin", Role: RoleAdmin},
		{ID: "member", Role: RoleMember},
	}
	if !HasPermission(users, "admin", PermissionDeleteIssue) {
		t.Fatal("expected admin to delete issues")
	}
	if HasPermission(users, "member", PermissionDeleteIssue) {
		t.Fatal("expected member denied delete_issue")
	}
	if HasPermission(users, "ghost", PermissionCreateIssue) {
		t.Fatal("expected unknown user denied")
	}
}

func TestSprintDecodesLegacyPlanning(t *testing.T) {
	var s Sprint
	if err := json.Unmarshal([]byte(`{"id":"s1","projectId":"p1","name":"Old","status":"planning"}`), &s); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if s.Status != SprintFuture {
		t.Fatalf("expected legacy planning decoded as future, got %q", s.Status)
	}
}
