package domain

import (
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ProjectCategory groups projects by audience.
type ProjectCategory string

// ProjectCategory values.
const (
	CategorySoftware ProjectCategory = "Software"
	CategoryBusiness ProjectCategory = "Business"
)

// ProjectType selects the board style. Scrum projects use sprints and a backlog.
type ProjectType string

// ProjectType values.
const (
	ProjectTypeScrum  ProjectType = "Scrum"
	ProjectTypeKanban ProjectType = "Kanban"
)

// Project is the container for issues, sprints and versions.
type Project struct {
	ID                   string              `json:"id"`
	Key                  string              `json:"key"`
	Name                 string              `json:"name"`
	Description          string              `json:"description"`
	LeadID               string              `json:"leadId"`
	Category             ProjectCategory     `json:"category"`
	Type                 ProjectType         `json:"type"`
	IconURL              string              `json:"iconUrl,omitempty"`
	Starred              bool                `json:"starred,omitempty"`
	ColumnSettings       map[IssueStatus]int `json:"columnSettings,omitempty"`
	WorkflowSettings     Workflow            `json:"workflowSettings,omitempty"`
	NotificationSettings NotificationScheme  `json:"notificationSettings,omitempty"`
	IssueCounter         int                 `json:"issueCounter,omitempty"`
	CreatedAt            time.Time           `json:"createdAt"`
	UpdatedAt            time.Time           `json:"updatedAt"`
}

// ProjectInput holds input values for NewProject.
type ProjectInput struct {
	ID          string
	Key         string
	Name        string
	Description string
	LeadID      string
	Category    ProjectCategory
	Type        ProjectType
	IconURL     string
}

// NewProject constructs a normalized project.
func NewProject(in ProjectInput, now time.Time) (Project, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Name = strings.TrimSpace(in.Name)
	if in.ID == "" {
		return Project{}, ErrInvalidID
	}
	if in.Name == "" {
		return Project{}, ErrInvalidName
	}
	key, err := NormalizeProjectKey(in.Key)
	if err != nil {
		return Project{}, err
	}
	if in.Category == "" {
		in.Category = CategorySoftware
	}
	if !slices.Contains([]ProjectCategory{CategorySoftware, CategoryBusiness}, in.Category) {
		return Project{}, ErrInvalidCategory
	}
	if in.Type == "" {
		in.Type = ProjectTypeScrum
	}
	if !IsValidProjectType(in.Type) {
		return Project{}, ErrInvalidProjectType
	}

	return Project{
		ID:          in.ID,
		Key:         key,
		Name:        in.Name,
		Description: strings.TrimSpace(in.Description),
		LeadID:      strings.TrimSpace(in.LeadID),
		Category:    in.Category,
		Type:        in.Type,
		IconURL:     strings.TrimSpace(in.IconURL),
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}, nil
}

// IsValidProjectType reports whether t is a known project type.
func IsValidProjectType(t ProjectType) bool {
	return t == ProjectTypeScrum || t == ProjectTypeKanban
}

// NormalizeProjectKey upper-cases a project key and rejects anything that is not
// a short alphanumeric code starting with a letter.
func NormalizeProjectKey(raw string) (string, error) {
	key := strings.ToUpper(strings.TrimSpace(raw))
	if key == "" || len(key) > 10 {
		return "", ErrInvalidKey
	}
	for idx, r := range key {
		if idx == 0 && !unicode.IsLetter(r) {
			return "", ErrInvalidKey
		}
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return "", ErrInvalidKey
		}
	}
	return key, nil
}

// UsesSprints reports whether sprint and backlog views apply to the project.
func (p Project) UsesSprints() bool { return p.Type == ProjectTypeScrum }

// EffectiveWorkflow returns the project override or the default table.
func (p Project) EffectiveWorkflow() Workflow {
	if len(p.WorkflowSettings) > 0 {
		return p.WorkflowSettings.Clone()
	}
	return DefaultWorkflow()
}

// EffectiveNotificationScheme returns the project override or the default scheme.
func (p Project) EffectiveNotificationScheme() NotificationScheme {
	if len(p.NotificationSettings) > 0 {
		return p.NotificationSettings.Clone()
	}
	return DefaultNotificationScheme()
}

// WIPLimit returns the column limit for status, zero meaning unlimited.
func (p Project) WIPLimit(status IssueStatus) int {
	if p.ColumnSettings == nil {
		return 0
	}
	return p.ColumnSettings[status]
}

// IssueKey renders the display key for issue number n.
func (p Project) IssueKey(n int) string {
	return p.Key + "-" + strconv.Itoa(n)
}

// Touch refreshes UpdatedAt.
func (p *Project) Touch(now time.Time) {
	p.UpdatedAt = now.UTC()
}
