package stats

import (
	"testing"
	"time"

	"github.com/evanschultz/issuedeck/internal/domain"
)

func points(n int) *int { return &n }

func TestWorkloads(t *testing.T) {
	users := []domain.User{{ID: "u1", Name: "Aiko"}, {ID: "u2", Name: "Ben"}}
	issues := []domain.Issue{
		{ID: "1", AssigneeID: "u1", Status: domain.StatusToDo, StoryPoints: points(3)},
		{ID: "2", AssigneeID: "u1", Status: domain.StatusInProgress, StoryPoints: points(5)},
		{ID: "3", AssigneeID: "u1", Status: domain.StatusDone, StoryPoints: points(8)},
		{ID: "4", AssigneeID: "u2", Status: domain.StatusInReview},
		{ID: "5", Status: domain.StatusToDo, StoryPoints: points(2)},
		{ID: "6", AssigneeID: "ghost", Status: domain.StatusToDo},
	}
	rows := Workloads(issues, users)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %#v", rows)
	}
	if got := rows[0]; got.Open != 2 || got.InProgress != 1 || got.Done != 1 || got.StoryPoints != 8 {
		t.Fatalf("unexpected u1 workload %#v", got)
	}
	if got := rows[1]; got.Open != 1 || got.InProgress != 1 || got.StoryPoints != 0 {
		t.Fatalf("unexpected u2 workload %#v", got)
	}
	if got := rows[2]; got.UserID != "" || got.Open != 1 || got.StoryPoints != 2 {
		t.Fatalf("unexpected unassigned workload %#v", got)
	}
}

func TestEpicProgress(t *testing.T) {
	issues := []domain.Issue{
		{ID: "e1", Type: domain.IssueTypeEpic},
		{ID: "a", ParentID: "e1", Status: domain.StatusDone},
		{ID: "b", ParentID: "e1", Status: domain.StatusInProgress},
		{ID: "c", ParentID: "e1", Status: domain.StatusToDo},
		{ID: "d", ParentID: "e2", Status: domain.StatusDone},
	}
	got := EpicProgress("e1", issues)
	if got.Total != 3 || got.Done != 1 || got.Percent != 33 {
		t.Fatalf("unexpected progress %#v", got)
	}
	if empty := EpicProgress("missing", issues); empty != (Progress{}) {
		t.Fatalf("expected zero progress, got %#v", empty)
	}
}

func TestRecentIssues(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	issues := []domain.Issue{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	history := []domain.ViewHistory{
		{UserID: "u1", IssueID: "a", ViewedAt: base},
		{UserID: "u1", IssueID: "c", ViewedAt: base.Add(2 * time.Minute)},
		{UserID: "u1", IssueID: "b", ViewedAt: base.Add(time.Minute)},
		{UserID: "u1", IssueID: "gone", ViewedAt: base.Add(time.Hour)},
		{UserID: "u2", IssueID: "a", ViewedAt: base.Add(time.Hour)},
	}
	got := RecentIssues(history, issues, "u1", 2)
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "b" {
		t.Fatalf("unexpected recent issues %#v", got)
	}
	if all := RecentIssues(history, issues, "u1", 0); len(all) != 3 {
		t.Fatalf("expected uncapped result of 3, got %d", len(all))
	}
}

func TestBoardFlagsWIPLimit(t *testing.T) {
	project := domain.Project{ID: "p1", ColumnSettings: map[domain.IssueStatus]int{domain.StatusInProgress: 1}}
	issues := []domain.Issue{
		{ID: "1", Key: "DEV-102", ProjectID: "p1", Status: domain.StatusInProgress, Priority: domain.PriorityLow},
		{ID: "2", Key: "DEV-101", ProjectID: "p1", Status: domain.StatusInProgress, Priority: domain.PriorityHighest},
		{ID: "3", Key: "DEV-103", ProjectID: "p1", Status: domain.StatusToDo, Priority: domain.PriorityMedium},
		{ID: "4", Key: "OPS-101", ProjectID: "p2", Status: domain.StatusToDo, Priority: domain.PriorityMedium},
	}
	cols := Board(project, issues)
	if len(cols) != len(domain.Statuses) {
		t.Fatalf("expected %d columns, got %d", len(domain.Statuses), len(cols))
	}
	if len(cols[0].Issues) != 1 || cols[0].OverLimit {
		t.Fatalf("unexpected To Do column %#v", cols[0])
	}
	inProgress := cols[1]
	if !inProgress.OverLimit || inProgress.WIPLimit != 1 {
		t.Fatalf("expected In Progress over limit, got %#v", inProgress)
	}
	if inProgress.Issues[0].Key != "DEV-101" {
		t.Fatalf("expected highest priority first, got %s", inProgress.Issues[0].Key)
	}
}
