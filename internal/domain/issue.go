package domain

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

// IssueType classifies one unit of work.
type IssueType string

// IssueType values.
const (
	IssueTypeStory IssueType = "Story"
	IssueTypeBug   IssueType = "Bug"
	IssueTypeTask  IssueType = "Task"
	IssueTypeEpic  IssueType = "Epic"
)

var validIssueTypes = []IssueType{IssueTypeStory, IssueTypeBug, IssueTypeTask, IssueTypeEpic}

// IssueStatus is one workflow state.
type IssueStatus string

// IssueStatus values, in board order.
const (
	StatusToDo       IssueStatus = "To Do"
	StatusInProgress IssueStatus = "In Progress"
	StatusInReview   IssueStatus = "In Review"
	StatusDone       IssueStatus = "Done"
)

// Statuses lists every workflow state in board order.
var Statuses = []IssueStatus{StatusToDo, StatusInProgress, StatusInReview, StatusDone}

// Priority ranks issue urgency.
type Priority string

// Priority values, most urgent first.
const (
	PriorityHighest Priority = "Highest"
	PriorityHigh    Priority = "High"
	PriorityMedium  Priority = "Medium"
	PriorityLow     Priority = "Low"
	PriorityLowest  Priority = "Lowest"
)

var validPriorities = []Priority{PriorityHighest, PriorityHigh, PriorityMedium, PriorityLow, PriorityLowest}

// LinkType names an issue-to-issue relation.
type LinkType string

// LinkType values.
const (
	LinkBlocks     LinkType = "blocks"
	LinkBlockedBy  LinkType = "is blocked by"
	LinkRelatesTo  LinkType = "relates to"
	LinkDuplicates LinkType = "duplicates"
)

var validLinkTypes = []LinkType{LinkBlocks, LinkBlockedBy, LinkRelatesTo, LinkDuplicates}

// IsValidIssueType reports whether t is a known issue type.
func IsValidIssueType(t IssueType) bool { return slices.Contains(validIssueTypes, t) }

// IsValidStatus reports whether s is a known workflow state.
func IsValidStatus(s IssueStatus) bool { return slices.Contains(Statuses, s) }

// IsValidPriority reports whether p is a known priority.
func IsValidPriority(p Priority) bool { return slices.Contains(validPriorities, p) }

// IsValidLinkType reports whether t is a known link type.
func IsValidLinkType(t LinkType) bool { return slices.Contains(validLinkTypes, t) }

// Comment is an append-only remark embedded in an issue.
type Comment struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"authorId"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// WorkLog records time spent on an issue.
type WorkLog struct {
	ID          string    `json:"id"`
	AuthorID    string    `json:"authorId"`
	TimeSpent   int       `json:"timeSpentMinutes"`
	Description string    `json:"description,omitempty"`
	StartedAt   time.Time `json:"startedAt"`
	CreatedAt   time.Time `json:"createdAt"`
}

// HistoryEntry is one audited field change.
type HistoryEntry struct {
	ID        string    `json:"id"`
	Field     string    `json:"field"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	AuthorID  string    `json:"authorId"`
	CreatedAt time.Time `json:"createdAt"`
}

// IssueLink points from one issue to another.
type IssueLink struct {
	ID             string   `json:"id"`
	Type           LinkType `json:"type"`
	OutwardIssueID string   `json:"outwardIssueId"`
}

// Attachment is a file held in memory as a data URI.
type Attachment struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	MimeType   string    `json:"mimeType"`
	Size       int       `json:"size"`
	DataURI    string    `json:"dataUri"`
	UploaderID string    `json:"uploaderId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Issue is one unit of work within a project.
type Issue struct {
	ID           string         `json:"id"`
	Key          string         `json:"key"`
	ProjectID    string         `json:"projectId"`
	Title        string         `json:"title"`
	Type         IssueType      `json:"type"`
	Status       IssueStatus    `json:"status"`
	Priority     Priority       `json:"priority"`
	AssigneeID   string         `json:"assigneeId,omitempty"`
	ReporterID   string         `json:"reporterId"`
	SprintID     string         `json:"sprintId,omitempty"`
	FixVersionID string         `json:"fixVersionId,omitempty"`
	Description  string         `json:"description,omitempty"`
	DueDate      *time.Time     `json:"dueDate,omitempty"`
	StoryPoints  *int           `json:"storyPoints,omitempty"`
	Labels       []string       `json:"labels"`
	Comments     []Comment      `json:"comments"`
	WorkLogs     []WorkLog      `json:"workLogs"`
	History      []HistoryEntry `json:"history"`
	Links        []IssueLink    `json:"links"`
	Attachments  []Attachment   `json:"attachments"`
	WatcherIDs   []string       `json:"watcherIds"`
	ParentID     string         `json:"parentId,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// IssueInput holds input values for NewIssue.
type IssueInput struct {
	ID           string
	Key          string
	ProjectID    string
	Title        string
	Type         IssueType
	Status       IssueStatus
	Priority     Priority
	AssigneeID   string
	ReporterID   string
	SprintID     string
	FixVersionID string
	Description  string
	DueDate      *time.Time
	StoryPoints  *int
	Labels       []string
	ParentID     string
	HistoryID    string
}

// NewIssue builds an issue with defaults applied, one initial status history
// entry, and the reporter watching it.
func NewIssue(in IssueInput, now time.Time) (Issue, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.ProjectID = strings.TrimSpace(in.ProjectID)
	in.Title = strings.TrimSpace(in.Title)
	in.Key = strings.TrimSpace(in.Key)
	if in.ID == "" || in.ProjectID == "" {
		return Issue{}, ErrInvalidID
	}
	if in.Key == "" {
		return Issue{}, ErrInvalidKey
	}
	if in.Title == "" {
		return Issue{}, ErrInvalidTitle
	}
	if in.Type == "" {
		in.Type = IssueTypeTask
	}
	if !IsValidIssueType(in.Type) {
		return Issue{}, ErrInvalidIssueType
	}
	if in.Status == "" {
		in.Status = StatusToDo
	}
	if !IsValidStatus(in.Status) {
		return Issue{}, ErrInvalidStatus
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if !IsValidPriority(in.Priority) {
		return Issue{}, ErrInvalidPriority
	}

	ts := now.UTC()
	reporter := strings.TrimSpace(in.ReporterID)
	issue := Issue{
		ID:           in.ID,
		Key:          in.Key,
		ProjectID:    in.ProjectID,
		Title:        in.Title,
		Type:         in.Type,
		Status:       in.Status,
		Priority:     in.Priority,
		AssigneeID:   strings.TrimSpace(in.AssigneeID),
		ReporterID:   reporter,
		SprintID:     strings.TrimSpace(in.SprintID),
		FixVersionID: strings.TrimSpace(in.FixVersionID),
		Description:  strings.TrimSpace(in.Description),
		DueDate:      normalizeDate(in.DueDate),
		StoryPoints:  in.StoryPoints,
		Labels:       normalizeLabels(in.Labels),
		Comments:     []Comment{},
		WorkLogs:     []WorkLog{},
		History: []HistoryEntry{{
			ID:        in.HistoryID,
			Field:     FieldStatus,
			From:      "",
			To:        string(in.Status),
			AuthorID:  reporter,
			CreatedAt: ts,
		}},
		Links:       []IssueLink{},
		Attachments: []Attachment{},
		WatcherIDs:  []string{},
		ParentID:    strings.TrimSpace(in.ParentID),
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	if reporter != "" {
		issue.WatcherIDs = append(issue.WatcherIDs, reporter)
	}
	return issue, nil
}

// Field names used in history entries and query clauses.
const (
	FieldID           = "id"
	FieldKey          = "key"
	FieldProjectID    = "projectId"
	FieldTitle        = "title"
	FieldType         = "type"
	FieldStatus       = "status"
	FieldPriority     = "priority"
	FieldAssigneeID   = "assigneeId"
	FieldReporterID   = "reporterId"
	FieldSprintID     = "sprintId"
	FieldFixVersionID = "fixVersionId"
	FieldDescription  = "description"
	FieldDueDate      = "dueDate"
	FieldStoryPoints  = "storyPoints"
	FieldLabels       = "labels"
	FieldParentID     = "parentId"
	FieldCreatedAt    = "createdAt"
	FieldUpdatedAt    = "updatedAt"
)

// FieldValue renders one named issue field as a string. Field names match the
// persisted JSON names case-insensitively; unknown fields report false.
func (i Issue) FieldValue(field string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(field)) {
	case "id":
		return i.ID, true
	case "key":
		return i.Key, true
	case "projectid":
		return i.ProjectID, true
	case "title":
		return i.Title, true
	case "type":
		return string(i.Type), true
	case "status":
		return string(i.Status), true
	case "priority":
		return string(i.Priority), true
	case "assigneeid", "assignee":
		return i.AssigneeID, true
	case "reporterid", "reporter":
		return i.ReporterID, true
	case "sprintid", "sprint":
		return i.SprintID, true
	case "fixversionid":
		return i.FixVersionID, true
	case "description":
		return i.Description, true
	case "duedate":
		return formatDate(i.DueDate), true
	case "storypoints":
		return formatPoints(i.StoryPoints), true
	case "labels":
		return strings.Join(i.Labels, ","), true
	case "parentid", "parent":
		return i.ParentID, true
	case "createdat":
		return i.CreatedAt.UTC().Format(time.RFC3339), true
	case "updatedat":
		return i.UpdatedAt.UTC().Format(time.RFC3339), true
	default:
		return "", false
	}
}

// IsDone reports whether the issue reached the terminal workflow state.
func (i Issue) IsDone() bool { return i.Status == StatusDone }

// IsWatchedBy reports whether userID watches the issue.
func (i Issue) IsWatchedBy(userID string) bool { return slices.Contains(i.WatcherIDs, userID) }

// FieldChange is one field transition awaiting a history entry.
type FieldChange struct {
	Field string
	From  string
	To    string
}

// RecordChanges appends one history entry per change and refreshes UpdatedAt.
func (i *Issue) RecordChanges(changes []FieldChange, authorID string, newID func() string, now time.Time) {
	ts := now.UTC()
	for _, change := range changes {
		id := ""
		if newID != nil {
			id = newID()
		}
		i.History = append(i.History, HistoryEntry{
			ID:        id,
			Field:     change.Field,
			From:      change.From,
			To:        change.To,
			AuthorID:  authorID,
			CreatedAt: ts,
		})
	}
	if ts.Before(i.UpdatedAt) {
		ts = i.UpdatedAt
	}
	i.UpdatedAt = ts
}

// AddComment appends a comment.
func (i *Issue) AddComment(c Comment) error {
	c.Body = strings.TrimSpace(c.Body)
	if c.Body == "" {
		return ErrInvalidBody
	}
	if strings.TrimSpace(c.ID) == "" {
		return ErrInvalidID
	}
	i.Comments = append(i.Comments, c)
	i.touch(c.CreatedAt)
	return nil
}

// AddWorkLog appends a work log entry.
func (i *Issue) AddWorkLog(w WorkLog) error {
	if strings.TrimSpace(w.ID) == "" {
		return ErrInvalidID
	}
	if w.TimeSpent <= 0 {
		return ErrInvalidDuration
	}
	w.Description = strings.TrimSpace(w.Description)
	i.WorkLogs = append(i.WorkLogs, w)
	i.touch(w.CreatedAt)
	return nil
}

// AddLink appends an outward link.
func (i *Issue) AddLink(l IssueLink, now time.Time) error {
	if strings.TrimSpace(l.ID) == "" || strings.TrimSpace(l.OutwardIssueID) == "" || l.OutwardIssueID == i.ID {
		return ErrInvalidID
	}
	if !IsValidLinkType(l.Type) {
		return ErrInvalidLinkType
	}
	i.Links = append(i.Links, l)
	i.touch(now)
	return nil
}

// AddAttachment appends an attachment.
func (i *Issue) AddAttachment(a Attachment) error {
	if strings.TrimSpace(a.ID) == "" {
		return ErrInvalidID
	}
	if strings.TrimSpace(a.Name) == "" {
		return ErrInvalidName
	}
	i.Attachments = append(i.Attachments, a)
	i.touch(a.CreatedAt)
	return nil
}

// AddWatcher adds userID to the watcher set and reports whether it changed.
func (i *Issue) AddWatcher(userID string) bool {
	userID = strings.TrimSpace(userID)
	if userID == "" || i.IsWatchedBy(userID) {
		return false
	}
	i.WatcherIDs = append(i.WatcherIDs, userID)
	return true
}

// RemoveWatcher removes userID from the watcher set and reports whether it changed.
func (i *Issue) RemoveWatcher(userID string) bool {
	idx := slices.Index(i.WatcherIDs, userID)
	if idx < 0 {
		return false
	}
	i.WatcherIDs = slices.Delete(i.WatcherIDs, idx, idx+1)
	return true
}

func (i *Issue) touch(now time.Time) {
	ts := now.UTC()
	if ts.After(i.UpdatedAt) {
		i.UpdatedAt = ts
	}
}

// Normalize fills nil collections so persisted rows always carry arrays.
func (i *Issue) Normalize() {
	if i.Labels == nil {
		i.Labels = []string{}
	}
	if i.Comments == nil {
		i.Comments = []Comment{}
	}
	if i.WorkLogs == nil {
		i.WorkLogs = []WorkLog{}
	}
	if i.History == nil {
		i.History = []HistoryEntry{}
	}
	if i.Links == nil {
		i.Links = []IssueLink{}
	}
	if i.Attachments == nil {
		i.Attachments = []Attachment{}
	}
	if i.WatcherIDs == nil {
		i.WatcherIDs = []string{}
	}
}

// NormalizeLabels trims, dedupes and sorts labels.
func NormalizeLabels(labels []string) []string { return normalizeLabels(labels) }

func normalizeLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	seen := map[string]struct{}{}
	for _, raw := range labels {
		label := strings.TrimSpace(raw)
		if label == "" {
			continue
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	slices.Sort(out)
	return out
}

func normalizeDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	ts := t.UTC().Truncate(time.Second)
	return &ts
}

// FormatDate renders an optional date as YYYY-MM-DD.
func FormatDate(t *time.Time) string { return formatDate(t) }

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.DateOnly)
}

// FormatPoints renders optional story points.
func FormatPoints(p *int) string { return formatPoints(p) }

func formatPoints(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}
