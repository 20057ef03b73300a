package domain

import (
	"strings"
	"time"
)

// SprintStatus is the lifecycle state of a sprint.
type SprintStatus string

// SprintStatus values.
const (
	SprintActive    SprintStatus = "active"
	SprintFuture    SprintStatus = "future"
	SprintCompleted SprintStatus = "completed"

	// sprintPlanningLegacy is written by older mobile installs and reads as future.
	sprintPlanningLegacy SprintStatus = "planning"
)

// NormalizeSprintStatus maps legacy values onto the three supported states.
func NormalizeSprintStatus(s SprintStatus) SprintStatus {
	s = SprintStatus(strings.ToLower(strings.TrimSpace(string(s))))
	if s == sprintPlanningLegacy {
		return SprintFuture
	}
	return s
}

// UnmarshalText decodes stored values through NormalizeSprintStatus so legacy
// "planning" rows load as future.
func (s *SprintStatus) UnmarshalText(text []byte) error {
	*s = NormalizeSprintStatus(SprintStatus(text))
	return nil
}

// IsValidSprintStatus reports whether s is a supported sprint state.
func IsValidSprintStatus(s SprintStatus) bool {
	switch s {
	case SprintActive, SprintFuture, SprintCompleted:
		return true
	default:
		return false
	}
}

// Sprint is a time-boxed container inside a Scrum project.
type Sprint struct {
	ID        string       `json:"id"`
	ProjectID string       `json:"projectId"`
	Name      string       `json:"name"`
	Status    SprintStatus `json:"status"`
	StartDate *time.Time   `json:"startDate,omitempty"`
	EndDate   *time.Time   `json:"endDate,omitempty"`
	Goal      string       `json:"goal,omitempty"`
}

// NewSprint constructs a sprint, defaulting to future.
func NewSprint(id, projectID, name string, status SprintStatus) (Sprint, error) {
	id = strings.TrimSpace(id)
	projectID = strings.TrimSpace(projectID)
	name = strings.TrimSpace(name)
	if id == "" || projectID == "" {
		return Sprint{}, ErrInvalidID
	}
	if name == "" {
		return Sprint{}, ErrInvalidName
	}
	if status == "" {
		status = SprintFuture
	}
	status = NormalizeSprintStatus(status)
	if !IsValidSprintStatus(status) {
		return Sprint{}, ErrInvalidSprintStatus
	}
	return Sprint{ID: id, ProjectID: projectID, Name: name, Status: status}, nil
}

// Start marks the sprint active.
func (s *Sprint) Start(now time.Time) {
	s.Status = SprintActive
	if s.StartDate == nil {
		ts := now.UTC()
		s.StartDate = &ts
	}
}

// Complete marks the sprint completed.
func (s *Sprint) Complete(now time.Time) {
	s.Status = SprintCompleted
	if s.EndDate == nil {
		ts := now.UTC()
		s.EndDate = &ts
	}
}

// VersionStatus is the release state of a version.
type VersionStatus string

// VersionStatus values.
const (
	VersionReleased   VersionStatus = "released"
	VersionUnreleased VersionStatus = "unreleased"
	VersionArchived   VersionStatus = "archived"
)

// IsValidVersionStatus reports whether s is a supported version state.
func IsValidVersionStatus(s VersionStatus) bool {
	switch s {
	case VersionReleased, VersionUnreleased, VersionArchived:
		return true
	default:
		return false
	}
}

// Version is a release that issues target through FixVersionID.
type Version struct {
	ID          string        `json:"id"`
	ProjectID   string        `json:"projectId"`
	Name        string        `json:"name"`
	Status      VersionStatus `json:"status"`
	ReleaseDate *time.Time    `json:"releaseDate,omitempty"`
	Description string        `json:"description,omitempty"`
}

// NewVersion constructs an unreleased version.
func NewVersion(id, projectID, name, description string, releaseDate *time.Time) (Version, error) {
	id = strings.TrimSpace(id)
	projectID = strings.TrimSpace(projectID)
	name = strings.TrimSpace(name)
	if id == "" || projectID == "" {
		return Version{}, ErrInvalidID
	}
	if name == "" {
		return Version{}, ErrInvalidName
	}
	return Version{
		ID:          id,
		ProjectID:   projectID,
		Name:        name,
		Status:      VersionUnreleased,
		ReleaseDate: normalizeDate(releaseDate),
		Description: strings.TrimSpace(description),
	}, nil
}

// Release marks the version released, stamping the release date when unset.
func (v *Version) Release(now time.Time) {
	v.Status = VersionReleased
	if v.ReleaseDate == nil {
		ts := now.UTC().Truncate(time.Second)
		v.ReleaseDate = &ts
	}
}
