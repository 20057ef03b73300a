// Package stats derives read-only views from issue collections: per-user
// workload, epic progress, recently viewed issues and board columns.
package stats

import (
	"cmp"
	"slices"

	"github.com/evanschultz/issuedeck/internal/domain"
)

// Workload summarises the open work assigned to one user.
type Workload struct {
	UserID      string
	Name        string
	Open        int
	InProgress  int
	Done        int
	StoryPoints int
}

// Workloads returns one row per user in users order, followed by an
// "unassigned" row (empty UserID) when any open issue lacks an assignee.
func Workloads(issues []domain.Issue, users []domain.User) []Workload {
	rows := make([]Workload, 0, len(users)+1)
	byUser := make(map[string]int, len(users))
	for _, u := range users {
		byUser[u.ID] = len(rows)
		rows = append(rows, Workload{UserID: u.ID, Name: u.Name})
	}
	unassigned := Workload{}
	for _, issue := range issues {
		row := &unassigned
		if idx, ok := byUser[issue.AssigneeID]; ok {
			row = &rows[idx]
		} else if issue.AssigneeID != "" {
			continue
		}
		switch {
		case issue.IsDone():
			row.Done++
			continue
		case issue.Status == domain.StatusInProgress || issue.Status == domain.StatusInReview:
			row.InProgress++
		}
		row.Open++
		if issue.StoryPoints != nil {
			row.StoryPoints += *issue.StoryPoints
		}
	}
	if unassigned.Open > 0 {
		rows = append(rows, unassigned)
	}
	return rows
}

// Progress is the completion state of an epic.
type Progress struct {
	Total   int
	Done    int
	Percent int
}

// EpicProgress counts the children of epicID. Percent rounds down and is zero
// for an epic without children.
func EpicProgress(epicID string, issues []domain.Issue) Progress {
	var p Progress
	for _, issue := range issues {
		if issue.ParentID != epicID || epicID == "" {
			continue
		}
		p.Total++
		if issue.IsDone() {
			p.Done++
		}
	}
	if p.Total > 0 {
		p.Percent = p.Done * 100 / p.Total
	}
	return p
}

// RecentIssues returns the issues userID viewed, most recent first, capped at
// limit when limit > 0. Views of issues no longer present are skipped.
func RecentIssues(history []domain.ViewHistory, issues []domain.Issue, userID string, limit int) []domain.Issue {
	views := make([]domain.ViewHistory, 0, len(history))
	for _, v := range history {
		if v.UserID == userID {
			views = append(views, v)
		}
	}
	slices.SortFunc(views, func(a, b domain.ViewHistory) int {
		if c := b.ViewedAt.Compare(a.ViewedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.IssueID, b.IssueID)
	})
	byID := make(map[string]domain.Issue, len(issues))
	for _, issue := range issues {
		byID[issue.ID] = issue
	}
	out := make([]domain.Issue, 0, len(views))
	for _, v := range views {
		issue, ok := byID[v.IssueID]
		if !ok {
			continue
		}
		out = append(out, issue)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Column is one board status lane.
type Column struct {
	Status    domain.IssueStatus
	Label     string
	Issues    []domain.Issue
	WIPLimit  int
	OverLimit bool
}

// Board groups the project's issues into one column per status in board order.
// Issues inside a column keep priority order, then key order.
func Board(project domain.Project, issues []domain.Issue) []Column {
	cols := make([]Column, 0, len(domain.Statuses))
	index := make(map[domain.IssueStatus]int, len(domain.Statuses))
	for _, status := range domain.Statuses {
		index[status] = len(cols)
		cols = append(cols, Column{
			Status:   status,
			Label:    domain.StatusLabel(status),
			Issues:   []domain.Issue{},
			WIPLimit: project.WIPLimit(status),
		})
	}
	for _, issue := range issues {
		if issue.ProjectID != project.ID {
			continue
		}
		idx, ok := index[issue.Status]
		if !ok {
			continue
		}
		cols[idx].Issues = append(cols[idx].Issues, issue)
	}
	for idx := range cols {
		col := &cols[idx]
		slices.SortFunc(col.Issues, func(a, b domain.Issue) int {
			if c := cmp.Compare(domain.PriorityRank(a.Priority), domain.PriorityRank(b.Priority)); c != 0 {
				return c
			}
			return cmp.Compare(a.Key, b.Key)
		})
		col.OverLimit = col.WIPLimit > 0 && len(col.Issues) > col.WIPLimit
	}
	return cols
}
