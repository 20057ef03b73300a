package app

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/evanschultz/issuedeck/internal/domain"
)

// CreateSprintInput holds input values for create sprint operations.
type CreateSprintInput struct {
	ProjectID string              `validate:"required"`
	Name      string              `validate:"required,max=80"`
	Goal      string              `validate:"max=500"`
	Status    domain.SprintStatus `validate:"omitempty,oneof=active future completed planning"`
	StartDate *time.Time
	EndDate   *time.Time
}

// CreateSprint creates a sprint in a Scrum project.
func (s *Service) CreateSprint(ctx context.Context, in CreateSprintInput) (domain.Sprint, error) {
	if err := validateInput(in); err != nil {
		return domain.Sprint{}, err
	}
	project, err := s.repo.GetProject(ctx, in.ProjectID)
	if err != nil {
		return domain.Sprint{}, err
	}
	if !project.UsesSprints() {
		return domain.Sprint{}, fmt.Errorf("%w: %s", ErrSprintsDisabled, project.Key)
	}
	sprint, err := domain.NewSprint(s.idGen(), project.ID, in.Name, in.Status)
	if err != nil {
		return domain.Sprint{}, err
	}
	sprint.Goal = strings.TrimSpace(in.Goal)
	if err := setSprintDates(&sprint, in.StartDate, in.EndDate); err != nil {
		return domain.Sprint{}, err
	}
	if err := s.repo.CreateSprint(ctx, sprint); err != nil {
		return domain.Sprint{}, err
	}
	return sprint, nil
}

func setSprintDates(sprint *domain.Sprint, start, end *time.Time) error {
	if start != nil {
		ts := start.UTC()
		sprint.StartDate = &ts
	}
	if end != nil {
		ts := end.UTC()
		sprint.EndDate = &ts
	}
	if sprint.StartDate != nil && sprint.EndDate != nil && sprint.EndDate.Before(*sprint.StartDate) {
		return fmt.Errorf("%w: sprint ends before it starts", ErrInvalidInput)
	}
	return nil
}

// SprintPatch describes a partial sprint update.
type SprintPatch struct {
	Name      *string
	Goal      *string
	StartDate *time.Time
	EndDate   *time.Time
}

// UpdateSprint applies patch to a sprint.
func (s *Service) UpdateSprint(ctx context.Context, sprintID string, patch SprintPatch) (domain.Sprint, error) {
	sprint, err := s.repo.GetSprint(ctx, sprintID)
	if err != nil {
		return domain.Sprint{}, fmt.Errorf("update sprint %s: %w", sprintID, err)
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return domain.Sprint{}, domain.ErrInvalidName
		}
		sprint.Name = name
	}
	if patch.Goal != nil {
		sprint.Goal = strings.TrimSpace(*patch.Goal)
	}
	if err := setSprintDates(&sprint, patch.StartDate, patch.EndDate); err != nil {
		return domain.Sprint{}, err
	}
	if err := s.repo.UpdateSprint(ctx, sprint); err != nil {
		return domain.Sprint{}, err
	}
	return sprint, nil
}

// StartSprint activates a future sprint. Other active sprints are left alone.
func (s *Service) StartSprint(ctx context.Context, sprintID string) (domain.Sprint, error) {
	sprint, err := s.repo.GetSprint(ctx, sprintID)
	if err != nil {
		return domain.Sprint{}, err
	}
	if sprint.Status != domain.SprintFuture {
		return domain.Sprint{}, fmt.Errorf("%w: cannot start %s sprint", domain.ErrInvalidSprintStatus, sprint.Status)
	}
	sprint.Start(s.now())
	if err := s.repo.UpdateSprint(ctx, sprint); err != nil {
		return domain.Sprint{}, err
	}
	return sprint, nil
}

// CompleteSprint closes an active sprint and moves its unfinished issues back
// to the backlog, recording the sprint change in each issue's history.
func (s *Service) CompleteSprint(ctx context.Context, sprintID, actorID string) (domain.Sprint, []domain.Issue, error) {
	sprint, err := s.repo.GetSprint(ctx, sprintID)
	if err != nil {
		return domain.Sprint{}, nil, err
	}
	if sprint.Status != domain.SprintActive {
		return domain.Sprint{}, nil, fmt.Errorf("%w: cannot complete %s sprint", domain.ErrInvalidSprintStatus, sprint.Status)
	}
	moved, err := s.detachSprintIssues(ctx, sprint, actorID, false)
	if err != nil {
		return domain.Sprint{}, nil, err
	}
	sprint.Complete(s.now())
	if err := s.repo.UpdateSprint(ctx, sprint); err != nil {
		return domain.Sprint{}, nil, err
	}
	s.logger.Info("sprint completed", "sprint", sprint.Name, "returned_to_backlog", len(moved))
	return sprint, moved, nil
}

// DeleteSprint removes a sprint after returning all of its issues to the backlog.
func (s *Service) DeleteSprint(ctx context.Context, sprintID, actorID string) error {
	sprint, err := s.repo.GetSprint(ctx, sprintID)
	if err != nil {
		return err
	}
	if _, err := s.detachSprintIssues(ctx, sprint, actorID, true); err != nil {
		return err
	}
	return s.repo.DeleteSprint(ctx, sprint.ID)
}

func (s *Service) detachSprintIssues(ctx context.Context, sprint domain.Sprint, actorID string, includeDone bool) ([]domain.Issue, error) {
	issues, err := s.repo.ListIssues(ctx, IssueFilter{ProjectID: sprint.ProjectID, SprintID: sprint.ID})
	if err != nil {
		return nil, err
	}
	sortIssues(issues)
	now := s.now()
	moved := make([]domain.Issue, 0, len(issues))
	for _, issue := range issues {
		if issue.IsDone() && !includeDone {
			continue
		}
		issue.RecordChanges([]domain.FieldChange{{Field: domain.FieldSprintID, From: issue.SprintID, To: ""}}, actorID, s.idGen, now)
		issue.SprintID = ""
		if err := s.repo.UpdateIssue(ctx, issue); err != nil {
			return nil, err
		}
		moved = append(moved, issue)
	}
	return moved, nil
}

// GetSprint returns one sprint.
func (s *Service) GetSprint(ctx context.Context, sprintID string) (domain.Sprint, error) {
	return s.repo.GetSprint(ctx, sprintID)
}

// ListSprints lists a project's sprints: active first, then future, then
// completed, each by start date and name.
func (s *Service) ListSprints(ctx context.Context, projectID string) ([]domain.Sprint, error) {
	sprints, err := s.repo.ListSprints(ctx, projectID)
	if err != nil {
		return nil, err
	}
	rank := map[domain.SprintStatus]int{domain.SprintActive: 0, domain.SprintFuture: 1, domain.SprintCompleted: 2}
	slices.SortFunc(sprints, func(a, b domain.Sprint) int {
		if c := cmp.Compare(rank[a.Status], rank[b.Status]); c != 0 {
			return c
		}
		if c := compareTimePtr(a.StartDate, b.StartDate); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return sprints, nil
}

// CreateVersionInput holds input values for create version operations.
type CreateVersionInput struct {
	ProjectID   string `validate:"required"`
	Name        string `validate:"required,max=80"`
	Description string `validate:"max=2000"`
	ReleaseDate *time.Time
}

// CreateVersion creates an unreleased version.
func (s *Service) CreateVersion(ctx context.Context, in CreateVersionInput) (domain.Version, error) {
	if err := validateInput(in); err != nil {
		return domain.Version{}, err
	}
	if _, err := s.repo.GetProject(ctx, in.ProjectID); err != nil {
		return domain.Version{}, err
	}
	version, err := domain.NewVersion(s.idGen(), in.ProjectID, in.Name, in.Description, in.ReleaseDate)
	if err != nil {
		return domain.Version{}, err
	}
	if err := s.repo.CreateVersion(ctx, version); err != nil {
		return domain.Version{}, err
	}
	return version, nil
}

// VersionPatch describes a partial version update.
type VersionPatch struct {
	Name        *string
	Description *string
	Status      *domain.VersionStatus
	ReleaseDate *time.Time
}

// UpdateVersion applies patch to a version.
func (s *Service) UpdateVersion(ctx context.Context, versionID string, patch VersionPatch) (domain.Version, error) {
	version, err := s.repo.GetVersion(ctx, versionID)
	if err != nil {
		return domain.Version{}, fmt.Errorf("update version %s: %w", versionID, err)
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return domain.Version{}, domain.ErrInvalidName
		}
		version.Name = name
	}
	if patch.Description != nil {
		version.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Status != nil {
		if !domain.IsValidVersionStatus(*patch.Status) {
			return domain.Version{}, domain.ErrInvalidVersionStatus
		}
		version.Status = *patch.Status
	}
	if patch.ReleaseDate != nil {
		ts := patch.ReleaseDate.UTC()
		version.ReleaseDate = &ts
	}
	if err := s.repo.UpdateVersion(ctx, version); err != nil {
		return domain.Version{}, err
	}
	return version, nil
}

// ReleaseVersion marks a version released.
func (s *Service) ReleaseVersion(ctx context.Context, versionID string) (domain.Version, error) {
	version, err := s.repo.GetVersion(ctx, versionID)
	if err != nil {
		return domain.Version{}, err
	}
	version.Release(s.now())
	if err := s.repo.UpdateVersion(ctx, version); err != nil {
		return domain.Version{}, err
	}
	return version, nil
}

// DeleteVersion removes a version and clears it from every issue targeting it.
func (s *Service) DeleteVersion(ctx context.Context, versionID, actorID string) error {
	version, err := s.repo.GetVersion(ctx, versionID)
	if err != nil {
		return err
	}
	issues, err := s.repo.ListIssues(ctx, IssueFilter{ProjectID: version.ProjectID})
	if err != nil {
		return err
	}
	now := s.now()
	for _, issue := range issues {
		if issue.FixVersionID != version.ID {
			continue
		}
		issue.RecordChanges([]domain.FieldChange{{Field: domain.FieldFixVersionID, From: issue.FixVersionID, To: ""}}, actorID, s.idGen, now)
		issue.FixVersionID = ""
		if err := s.repo.UpdateIssue(ctx, issue); err != nil {
			return err
		}
	}
	return s.repo.DeleteVersion(ctx, version.ID)
}

// ListVersions lists a project's versions by release date, undated last.
func (s *Service) ListVersions(ctx context.Context, projectID string) ([]domain.Version, error) {
	versions, err := s.repo.ListVersions(ctx, projectID)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(versions, func(a, b domain.Version) int {
		if c := compareTimePtr(a.ReleaseDate, b.ReleaseDate); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return versions, nil
}

// compareTimePtr orders nil after any time.
func compareTimePtr(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return a.Compare(*b)
	}
}
