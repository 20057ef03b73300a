package domain

import (
	"strings"
	"time"
)

// SavedFilter is a named issue query, either free text or JQL.
type SavedFilter struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Query      string `json:"query"`
	OwnerID    string `json:"ownerId"`
	IsFavorite bool   `json:"isFavorite"`
	IsJQLMode  bool   `json:"isJqlMode,omitempty"`
}

// ViewHistory records the latest time a user opened an issue. The id is the
// composite "{userId}-{issueId}" so repeat views overwrite the same row.
type ViewHistory struct {
	ID       string    `json:"id"`
	UserID   string    `json:"userId"`
	IssueID  string    `json:"issueId"`
	ViewedAt time.Time `json:"viewedAt"`
}

// ViewHistoryID builds the composite view-history key.
func ViewHistoryID(userID, issueID string) string {
	return userID + "-" + issueID
}

// NewViewHistory constructs a view record keyed by user and issue.
func NewViewHistory(userID, issueID string, now time.Time) (ViewHistory, error) {
	userID = strings.TrimSpace(userID)
	issueID = strings.TrimSpace(issueID)
	if userID == "" || issueID == "" {
		return ViewHistory{}, ErrInvalidID
	}
	return ViewHistory{
		ID:       ViewHistoryID(userID, issueID),
		UserID:   userID,
		IssueID:  issueID,
		ViewedAt: now.UTC(),
	}, nil
}

// GadgetKind names a dashboard widget.
type GadgetKind string

// GadgetKind values.
const (
	GadgetAssignedToMe GadgetKind = "assigned_to_me"
	GadgetRecentIssues GadgetKind = "recent_issues"
	GadgetWorkload     GadgetKind = "workload"
	GadgetEpicProgress GadgetKind = "epic_progress"
	GadgetSavedFilter  GadgetKind = "saved_filter"
	GadgetActivityFeed GadgetKind = "activity_feed"
)

// Gadget is one configured dashboard widget.
type Gadget struct {
	ID       string            `json:"id"`
	Kind     GadgetKind        `json:"kind"`
	Position int               `json:"position"`
	Config   map[string]string `json:"config,omitempty"`
}
