package main

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	humanize "github.com/dustin/go-humanize"
	"github.com/evanschultz/issuedeck/internal/domain"
	"github.com/evanschultz/issuedeck/internal/stats"
)

const maxTitleWidth = 48

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	keyStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1).
			Width(30)
)

// statusColor maps workflow states onto terminal colors.
func statusColor(s domain.IssueStatus) lipgloss.Color {
	switch s {
	case domain.StatusInProgress:
		return lipgloss.Color("11")
	case domain.StatusInReview:
		return lipgloss.Color("13")
	case domain.StatusDone:
		return lipgloss.Color("10")
	default:
		return lipgloss.Color("7")
	}
}

func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...)
}

func writeLine(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format+"\n", args...)
}

// emptyState prints message with an optional dim hint.
func emptyState(w io.Writer, message, hint string) {
	writeLine(w, "%s", dimStyle.Render(message))
	if hint != "" {
		writeLine(w, "%s", dimStyle.Italic(true).Render(hint))
	}
}

func userName(users []domain.User, id string) string {
	if strings.TrimSpace(id) == "" {
		return "-"
	}
	if user, ok := domain.FindUser(users, id); ok {
		return user.Name
	}
	return id
}

func relTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return humanize.Time(*t)
}

func renderProjects(w io.Writer, projects []domain.Project, users []domain.User) {
	if len(projects) == 0 {
		emptyState(w, "No projects.", "Create one with 'issuedeck project create --key KEY --name NAME'.")
		return
	}
	t := newTable("KEY", "NAME", "TYPE", "LEAD", "STAR", "UPDATED")
	for _, p := range projects {
		star := ""
		if p.Starred {
			star = "*"
		}
		t.Row(p.Key, truncate(p.Name, maxTitleWidth), string(p.Type), userName(users, p.LeadID), star, humanize.Time(p.UpdatedAt))
	}
	writeLine(w, "%s", t.Render())
}

func renderIssues(w io.Writer, issues []domain.Issue, users []domain.User) {
	if len(issues) == 0 {
		emptyState(w, "No issues found.", "")
		return
	}
	t := newTable("KEY", "TYPE", "STATUS", "PRIORITY", "ASSIGNEE", "PTS", "TITLE", "UPDATED")
	for _, issue := range issues {
		t.Row(
			issue.Key,
			string(issue.Type),
			lipgloss.NewStyle().Foreground(statusColor(issue.Status)).Render(string(issue.Status)),
			string(issue.Priority),
			userName(users, issue.AssigneeID),
			domain.FormatPoints(issue.StoryPoints),
			truncate(issue.Title, maxTitleWidth),
			humanize.Time(issue.UpdatedAt),
		)
	}
	writeLine(w, "%s", t.Render())
	writeLine(w, "%s", dimStyle.Render(fmt.Sprintf("%s issues", humanize.Comma(int64(len(issues))))))
}

func renderIssueDetail(w io.Writer, issue domain.Issue, users []domain.User, next []domain.IssueStatus) {
	writeLine(w, "%s %s", keyStyle.Render(issue.Key), headerStyle.Render(issue.Title))
	field := func(label, value string) {
		writeLine(w, "%s %s", labelStyle.Render(fmt.Sprintf("%-12s", label+":")), value)
	}
	field("Type", string(issue.Type))
	field("Status", lipgloss.NewStyle().Foreground(statusColor(issue.Status)).Render(domain.StatusLabel(issue.Status)+" ("+string(issue.Status)+")"))
	field("Priority", string(issue.Priority))
	field("Assignee", userName(users, issue.AssigneeID))
	field("Reporter", userName(users, issue.ReporterID))
	field("Points", domain.FormatPoints(issue.StoryPoints))
	field("Due", domain.FormatDate(issue.DueDate))
	if len(issue.Labels) > 0 {
		field("Labels", strings.Join(issue.Labels, ", "))
	}
	if issue.ParentID != "" {
		field("Parent", issue.ParentID)
	}
	if len(issue.WatcherIDs) > 0 {
		names := make([]string, 0, len(issue.WatcherIDs))
		for _, id := range issue.WatcherIDs {
			names = append(names, userName(users, id))
		}
		field("Watchers", strings.Join(names, ", "))
	}
	field("Created", humanize.Time(issue.CreatedAt))
	field("Updated", humanize.Time(issue.UpdatedAt))
	if len(next) > 0 {
		moves := make([]string, 0, len(next))
		for _, s := range next {
			moves = append(moves, string(s))
		}
		field("Moves", strings.Join(moves, " | "))
	}
	if desc := strings.TrimSpace(issue.Description); desc != "" {
		writeLine(w, "")
		writeLine(w, "%s", desc)
	}
	if len(issue.Comments) > 0 {
		writeLine(w, "")
		writeLine(w, "%s", headerStyle.Render(fmt.Sprintf("Comments (%d)", len(issue.Comments))))
		for _, c := range issue.Comments {
			writeLine(w, "%s %s", okStyle.Render(userName(users, c.AuthorID)), dimStyle.Render(humanize.Time(c.CreatedAt)))
			writeLine(w, "  %s", c.Body)
		}
	}
}

func renderBoard(w io.Writer, project domain.Project, columns []stats.Column) {
	writeLine(w, "%s %s", keyStyle.Render(project.Key), headerStyle.Render(project.Name))
	blocks := make([]string, 0, len(columns))
	for _, col := range columns {
		title := fmt.Sprintf("%s (%d)", col.Status, len(col.Issues))
		if col.WIPLimit > 0 {
			title = fmt.Sprintf("%s (%d/%d)", col.Status, len(col.Issues), col.WIPLimit)
		}
		titleStyle := headerStyle.Foreground(statusColor(col.Status))
		if col.OverLimit {
			titleStyle = warnStyle.Bold(true)
		}
		lines := []string{titleStyle.Render(title)}
		for _, issue := range col.Issues {
			lines = append(lines, keyStyle.Render(issue.Key)+" "+truncate(issue.Title, 22))
		}
		if len(col.Issues) == 0 {
			lines = append(lines, dimStyle.Render("empty"))
		}
		blocks = append(blocks, columnStyle.Render(strings.Join(lines, "\n")))
	}
	writeLine(w, "%s", lipgloss.JoinHorizontal(lipgloss.Top, blocks...))
}

func renderWorkload(w io.Writer, rows []stats.Workload) {
	if len(rows) == 0 {
		emptyState(w, "No workload.", "")
		return
	}
	t := newTable("USER", "OPEN", "IN PROGRESS", "DONE", "POINTS")
	for _, row := range rows {
		name := row.Name
		if row.UserID == "" {
			name = "unassigned"
		}
		t.Row(name, fmt.Sprint(row.Open), fmt.Sprint(row.InProgress), fmt.Sprint(row.Done), fmt.Sprint(row.StoryPoints))
	}
	writeLine(w, "%s", t.Render())
}

func renderNotifications(w io.Writer, items []domain.Notification) {
	if len(items) == 0 {
		emptyState(w, "No notifications.", "")
		return
	}
	for _, n := range items {
		marker := okStyle.Render("●")
		if n.Read {
			marker = dimStyle.Render("○")
		}
		writeLine(w, "%s %s %s", marker, headerStyle.Render(n.Title), dimStyle.Render(humanize.Time(n.CreatedAt)))
		if n.Description != "" {
			writeLine(w, "  %s", n.Description)
		}
	}
}

func renderRules(w io.Writer, rules []domain.AutomationRule) {
	if len(rules) == 0 {
		emptyState(w, "No automation rules.", "")
		return
	}
	t := newTable("ID", "NAME", "TRIGGER", "CONDITION", "ACTION", "ENABLED", "LAST RUN")
	for _, r := range rules {
		enabled := dimStyle.Render("no")
		if r.Enabled {
			enabled = okStyle.Render("yes")
		}
		t.Row(r.ID, truncate(r.Name, 32), string(r.Trigger), r.Condition, string(r.Action), enabled, relTime(r.LastRun))
	}
	writeLine(w, "%s", t.Render())
}

func renderRuleLogs(w io.Writer, logs []domain.AutomationLog) {
	if len(logs) == 0 {
		emptyState(w, "No executions logged.", "")
		return
	}
	for _, l := range logs {
		status := okStyle.Render(string(l.Status))
		if l.Status != domain.AutomationSuccess {
			status = warnStyle.Render(string(l.Status))
		}
		writeLine(w, "%s %s %s", status, dimStyle.Render(humanize.Time(l.ExecutedAt)), l.Message)
	}
}

func renderSprints(w io.Writer, sprints []domain.Sprint) {
	if len(sprints) == 0 {
		emptyState(w, "No sprints.", "")
		return
	}
	t := newTable("ID", "NAME", "STATUS", "START", "END", "GOAL")
	for _, s := range sprints {
		t.Row(s.ID, s.Name, string(s.Status), domain.FormatDate(s.StartDate), domain.FormatDate(s.EndDate), truncate(s.Goal, 40))
	}
	writeLine(w, "%s", t.Render())
}

func renderVersions(w io.Writer, versions []domain.Version) {
	if len(versions) == 0 {
		emptyState(w, "No versions.", "")
		return
	}
	t := newTable("ID", "NAME", "STATUS", "RELEASE")
	for _, v := range versions {
		t.Row(v.ID, v.Name, string(v.Status), domain.FormatDate(v.ReleaseDate))
	}
	writeLine(w, "%s", t.Render())
}

func renderFilters(w io.Writer, filters []domain.SavedFilter) {
	if len(filters) == 0 {
		emptyState(w, "No saved filters.", "")
		return
	}
	t := newTable("ID", "NAME", "QUERY", "MODE", "FAV")
	for _, f := range filters {
		mode := "text"
		if f.IsJQLMode {
			mode = "jql"
		}
		fav := ""
		if f.IsFavorite {
			fav = "*"
		}
		t.Row(f.ID, f.Name, truncate(f.Query, 40), mode, fav)
	}
	writeLine(w, "%s", t.Render())
}
