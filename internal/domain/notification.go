package domain

import (
	"fmt"
	"slices"
	"time"
)

// NotificationType classifies how a notification is presented.
type NotificationType string

// NotificationType values.
const (
	NotificationMention    NotificationType = "mention"
	NotificationAssignment NotificationType = "assignment"
	NotificationSystem     NotificationType = "system"
)

// Notification is one unread-or-read message for a recipient.
type Notification struct {
	ID          string           `json:"id"`
	RecipientID string           `json:"recipientId,omitempty"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Read        bool             `json:"read"`
	CreatedAt   time.Time        `json:"createdAt"`
	Type        NotificationType `json:"type"`
	IssueID     string           `json:"issueId,omitempty"`
}

// NotificationEvent names an issue event that can fan out notifications.
type NotificationEvent string

// NotificationEvent values.
const (
	EventIssueCreated  NotificationEvent = "issue_created"
	EventIssueAssigned NotificationEvent = "issue_assigned"
	EventStatusChanged NotificationEvent = "status_changed"
	EventCommentAdded  NotificationEvent = "comment_added"
	EventIssueResolved NotificationEvent = "issue_resolved"
)

// NotificationEvents lists every event in display order.
var NotificationEvents = []NotificationEvent{
	EventIssueCreated,
	EventIssueAssigned,
	EventStatusChanged,
	EventCommentAdded,
	EventIssueResolved,
}

// NotificationRole resolves to concrete users on an issue.
type NotificationRole string

// NotificationRole values.
const (
	RoleReporter NotificationRole = "Reporter"
	RoleAssignee NotificationRole = "Assignee"
	RoleWatcher  NotificationRole = "Watcher"
)

// NotificationScheme maps each event to the roles that receive it.
type NotificationScheme map[NotificationEvent][]NotificationRole

// DefaultNotificationScheme returns a fresh copy of the built-in scheme.
func DefaultNotificationScheme() NotificationScheme {
	return NotificationScheme{
		EventIssueCreated:  {RoleAssignee, RoleWatcher},
		EventIssueAssigned: {RoleAssignee},
		EventStatusChanged: {RoleReporter, RoleAssignee, RoleWatcher},
		EventCommentAdded:  {RoleReporter, RoleAssignee, RoleWatcher},
		EventIssueResolved: {RoleReporter, RoleWatcher},
	}
}

// Clone deep-copies the scheme.
func (s NotificationScheme) Clone() NotificationScheme {
	if s == nil {
		return nil
	}
	out := make(NotificationScheme, len(s))
	for event, roles := range s {
		out[event] = slices.Clone(roles)
	}
	return out
}

// Validate rejects unknown events and roles.
func (s NotificationScheme) Validate() error {
	for event, roles := range s {
		if !slices.Contains(NotificationEvents, event) {
			return ErrInvalidEvent
		}
		for _, role := range roles {
			switch role {
			case RoleReporter, RoleAssignee, RoleWatcher:
			default:
				return fmt.Errorf("%w: unknown role %q", ErrInvalidEvent, role)
			}
		}
	}
	return nil
}

// Recipients resolves the roles configured for event to user ids on issue,
// excluding actorID. The result is sorted.
func (s NotificationScheme) Recipients(event NotificationEvent, issue Issue, actorID string) []string {
	set := map[string]struct{}{}
	for _, role := range s[event] {
		switch role {
		case RoleReporter:
			if issue.ReporterID != "" {
				set[issue.ReporterID] = struct{}{}
			}
		case RoleAssignee:
			if issue.AssigneeID != "" {
				set[issue.AssigneeID] = struct{}{}
			}
		case RoleWatcher:
			for _, id := range issue.WatcherIDs {
				if id != "" {
					set[id] = struct{}{}
				}
			}
		}
	}
	delete(set, actorID)

	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// BuildNotifications synthesizes one unread notification per recipient of
// event, never addressing the acting user.
func BuildNotifications(scheme NotificationScheme, event NotificationEvent, issue Issue, actorID string, newID func() string, now time.Time) []Notification {
	recipients := scheme.Recipients(event, issue, actorID)
	if len(recipients) == 0 {
		return nil
	}
	title := NotificationTitle(event, issue)
	kind := notificationTypeFor(event)
	out := make([]Notification, 0, len(recipients))
	for _, recipient := range recipients {
		out = append(out, Notification{
			ID:          newID(),
			RecipientID: recipient,
			Title:       title,
			Description: issue.Title,
			Read:        false,
			CreatedAt:   now.UTC(),
			Type:        kind,
			IssueID:     issue.ID,
		})
	}
	return out
}

// NotificationTitle renders the event-specific title for issue.
func NotificationTitle(event NotificationEvent, issue Issue) string {
	switch event {
	case EventIssueCreated:
		return fmt.Sprintf("%s が作成されました", issue.Key)
	case EventIssueAssigned:
		return fmt.Sprintf("%s があなたに割り当てられました", issue.Key)
	case EventStatusChanged:
		return fmt.Sprintf("%s のステータスが「%s」に変更されました", issue.Key, StatusLabel(issue.Status))
	case EventCommentAdded:
		return fmt.Sprintf("%s に新しいコメントが追加されました", issue.Key)
	case EventIssueResolved:
		return fmt.Sprintf("%s が完了しました", issue.Key)
	default:
		return issue.Key
	}
}

func notificationTypeFor(event NotificationEvent) NotificationType {
	switch event {
	case EventIssueAssigned:
		return NotificationAssignment
	case EventCommentAdded:
		return NotificationMention
	default:
		return NotificationSystem
	}
}
