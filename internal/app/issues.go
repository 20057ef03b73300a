package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/evanschultz/issuedeck/internal/domain"
	"github.com/evanschultz/issuedeck/internal/jql"
	"github.com/evanschultz/issuedeck/internal/stats"
)

// CreateIssueInput holds input values for create issue operations.
type CreateIssueInput struct {
	ProjectID    string             `validate:"required"`
	Title        string             `validate:"required,max=255"`
	Type         domain.IssueType   `validate:"omitempty,oneof=Story Bug Task Epic"`
	Status       domain.IssueStatus `validate:"max=32"`
	Priority     domain.Priority    `validate:"omitempty,oneof=Highest High Medium Low Lowest"`
	AssigneeID   string
	ReporterID   string `validate:"required"`
	SprintID     string
	FixVersionID string
	Description  string `validate:"max=20000"`
	DueDate      *time.Time
	StoryPoints  *int     `validate:"omitempty,gte=0,lte=1000"`
	Labels       []string `validate:"max=30,dive,max=50"`
	ParentID     string
}

// CreateIssue numbers and stores a new issue, then runs issue_created
// automation and notifications. The reporter is the acting user.
func (s *Service) CreateIssue(ctx context.Context, in CreateIssueInput) (domain.Issue, error) {
	if err := validateInput(in); err != nil {
		return domain.Issue{}, err
	}
	project, err := s.repo.GetProject(ctx, in.ProjectID)
	if err != nil {
		return domain.Issue{}, err
	}
	if err := s.checkIssueRefs(ctx, project, in.SprintID, in.FixVersionID, in.ParentID); err != nil {
		return domain.Issue{}, err
	}
	count, err := s.repo.CountIssues(ctx, project.ID)
	if err != nil {
		return domain.Issue{}, err
	}
	n := max(count+s.keyOffset, project.IssueCounter+1)

	issue, err := domain.NewIssue(domain.IssueInput{
		ID:           s.idGen(),
		Key:          project.IssueKey(n),
		ProjectID:    project.ID,
		Title:        in.Title,
		Type:         in.Type,
		Status:       in.Status,
		Priority:     in.Priority,
		AssigneeID:   in.AssigneeID,
		ReporterID:   in.ReporterID,
		SprintID:     in.SprintID,
		FixVersionID: in.FixVersionID,
		Description:  in.Description,
		DueDate:      in.DueDate,
		StoryPoints:  in.StoryPoints,
		Labels:       in.Labels,
		ParentID:     in.ParentID,
		HistoryID:    s.idGen(),
	}, s.now())
	if err != nil {
		return domain.Issue{}, err
	}

	// The counter moves first so a failed insert skips a number instead of
	// handing it out twice.
	project.IssueCounter = n
	if err := s.repo.UpdateProject(ctx, project); err != nil {
		return domain.Issue{}, err
	}
	if err := s.repo.CreateIssue(ctx, issue); err != nil {
		return domain.Issue{}, err
	}

	issue = s.RunAutomation(ctx, domain.TriggerIssueCreated, issue)
	s.notify(ctx, project, domain.EventIssueCreated, issue, in.ReporterID)
	if issue.AssigneeID != "" && issue.AssigneeID != issue.ReporterID {
		s.notify(ctx, project, domain.EventIssueAssigned, issue, in.ReporterID)
	}
	return issue, nil
}

func (s *Service) checkIssueRefs(ctx context.Context, project domain.Project, sprintID, versionID, parentID string) error {
	if sprintID = strings.TrimSpace(sprintID); sprintID != "" {
		if !project.UsesSprints() {
			return fmt.Errorf("%w: %s", ErrSprintsDisabled, project.Key)
		}
		sprint, err := s.repo.GetSprint(ctx, sprintID)
		if err != nil {
			return fmt.Errorf("sprint %s: %w", sprintID, err)
		}
		if sprint.ProjectID != project.ID {
			return fmt.Errorf("%w: sprint %s belongs to another project", ErrInvalidInput, sprintID)
		}
	}
	if versionID = strings.TrimSpace(versionID); versionID != "" {
		version, err := s.repo.GetVersion(ctx, versionID)
		if err != nil {
			return fmt.Errorf("version %s: %w", versionID, err)
		}
		if version.ProjectID != project.ID {
			return fmt.Errorf("%w: version %s belongs to another project", ErrInvalidInput, versionID)
		}
	}
	if parentID = strings.TrimSpace(parentID); parentID != "" {
		parent, err := s.repo.GetIssue(ctx, parentID)
		if err != nil {
			return fmt.Errorf("parent %s: %w", parentID, err)
		}
		if parent.ProjectID != project.ID {
			return fmt.Errorf("%w: parent %s belongs to another project", ErrInvalidInput, parentID)
		}
	}
	return nil
}

// IssuePatch describes a partial issue update. Nil fields are left unchanged.
type IssuePatch struct {
	ActorID          string
	Title            *string
	Type             *domain.IssueType
	Status           *domain.IssueStatus
	Priority         *domain.Priority
	AssigneeID       *string
	SprintID         *string
	FixVersionID     *string
	Description      *string
	DueDate          *time.Time
	ClearDueDate     bool
	StoryPoints      *int
	ClearStoryPoints bool
	Labels           []string
	ClearLabels      bool
	ParentID         *string
}

// UpdateIssue applies patch and appends one history entry per changed field.
// A status change outside the project's workflow fails with
// domain.ErrTransitionNotAllowed and leaves the stored issue untouched.
// Status changes run status_changed automation and notify status_changed, or
// issue_resolved when the issue reaches Done; assignee changes notify
// issue_assigned.
func (s *Service) UpdateIssue(ctx context.Context, issueID string, patch IssuePatch) (domain.Issue, error) {
	issue, err := s.repo.GetIssue(ctx, issueID)
	if err != nil {
		return domain.Issue{}, fmt.Errorf("update issue %s: %w", issueID, err)
	}
	project, err := s.repo.GetProject(ctx, issue.ProjectID)
	if err != nil {
		return domain.Issue{}, err
	}

	var changes []domain.FieldChange
	track := func(field, from, to string) {
		if from != to {
			changes = append(changes, domain.FieldChange{Field: field, From: from, To: to})
		}
	}

	if patch.Status != nil && *patch.Status != issue.Status {
		to := *patch.Status
		if !domain.IsValidStatus(to) {
			return domain.Issue{}, domain.ErrInvalidStatus
		}
		if !project.EffectiveWorkflow().CanTransition(issue.Status, to) {
			s.logger.Warn("transition rejected", "issue", issue.Key, "from", issue.Status, "to", to)
			return domain.Issue{}, fmt.Errorf("%w: %s -> %s", domain.ErrTransitionNotAllowed, issue.Status, to)
		}
		track(domain.FieldStatus, string(issue.Status), string(to))
		issue.Status = to
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return domain.Issue{}, domain.ErrInvalidTitle
		}
		track(domain.FieldTitle, issue.Title, title)
		issue.Title = title
	}
	if patch.Type != nil {
		if !domain.IsValidIssueType(*patch.Type) {
			return domain.Issue{}, domain.ErrInvalidIssueType
		}
		track(domain.FieldType, string(issue.Type), string(*patch.Type))
		issue.Type = *patch.Type
	}
	if patch.Priority != nil {
		if !domain.IsValidPriority(*patch.Priority) {
			return domain.Issue{}, domain.ErrInvalidPriority
		}
		track(domain.FieldPriority, string(issue.Priority), string(*patch.Priority))
		issue.Priority = *patch.Priority
	}
	previousAssignee := issue.AssigneeID
	if patch.AssigneeID != nil {
		assignee := strings.TrimSpace(*patch.AssigneeID)
		track(domain.FieldAssigneeID, issue.AssigneeID, assignee)
		issue.AssigneeID = assignee
	}
	var sprintRef, versionRef, parentRef string
	if patch.SprintID != nil {
		sprintRef = strings.TrimSpace(*patch.SprintID)
		track(domain.FieldSprintID, issue.SprintID, sprintRef)
		issue.SprintID = sprintRef
	}
	if patch.FixVersionID != nil {
		versionRef = strings.TrimSpace(*patch.FixVersionID)
		track(domain.FieldFixVersionID, issue.FixVersionID, versionRef)
		issue.FixVersionID = versionRef
	}
	if patch.ParentID != nil {
		parentRef = strings.TrimSpace(*patch.ParentID)
		if parentRef == issue.ID {
			return domain.Issue{}, fmt.Errorf("%w: issue cannot be its own parent", ErrInvalidInput)
		}
		track(domain.FieldParentID, issue.ParentID, parentRef)
		issue.ParentID = parentRef
	}
	if err := s.checkIssueRefs(ctx, project, sprintRef, versionRef, parentRef); err != nil {
		return domain.Issue{}, err
	}
	if patch.Description != nil {
		description := strings.TrimSpace(*patch.Description)
		track(domain.FieldDescription, issue.Description, description)
		issue.Description = description
	}
	switch {
	case patch.ClearDueDate:
		track(domain.FieldDueDate, domain.FormatDate(issue.DueDate), "")
		issue.DueDate = nil
	case patch.DueDate != nil:
		due := patch.DueDate.UTC()
		track(domain.FieldDueDate, domain.FormatDate(issue.DueDate), domain.FormatDate(&due))
		issue.DueDate = &due
	}
	switch {
	case patch.ClearStoryPoints:
		track(domain.FieldStoryPoints, domain.FormatPoints(issue.StoryPoints), "")
		issue.StoryPoints = nil
	case patch.StoryPoints != nil:
		if *patch.StoryPoints < 0 {
			return domain.Issue{}, fmt.Errorf("%w: negative story points", ErrInvalidInput)
		}
		points := *patch.StoryPoints
		track(domain.FieldStoryPoints, domain.FormatPoints(issue.StoryPoints), strconv.Itoa(points))
		issue.StoryPoints = &points
	}
	if patch.ClearLabels || patch.Labels != nil {
		labels := domain.NormalizeLabels(patch.Labels)
		track(domain.FieldLabels, strings.Join(issue.Labels, ","), strings.Join(labels, ","))
		issue.Labels = labels
	}

	if len(changes) == 0 {
		return issue, nil
	}
	actorID := strings.TrimSpace(patch.ActorID)
	issue.RecordChanges(changes, actorID, s.idGen, s.now())
	if err := s.repo.UpdateIssue(ctx, issue); err != nil {
		return domain.Issue{}, err
	}

	if slices.ContainsFunc(changes, func(c domain.FieldChange) bool { return c.Field == domain.FieldStatus }) {
		issue = s.RunAutomation(ctx, domain.TriggerStatusChanged, issue)
		event := domain.EventStatusChanged
		if issue.IsDone() {
			event = domain.EventIssueResolved
		}
		s.notify(ctx, project, event, issue, actorID)
	}
	if issue.AssigneeID != previousAssignee && issue.AssigneeID != "" {
		s.notify(ctx, project, domain.EventIssueAssigned, issue, actorID)
	}
	return issue, nil
}

// TransitionIssue moves an issue to status.
func (s *Service) TransitionIssue(ctx context.Context, issueID string, status domain.IssueStatus, actorID string) (domain.Issue, error) {
	return s.UpdateIssue(ctx, issueID, IssuePatch{ActorID: actorID, Status: &status})
}

// AssignIssue sets the assignee. An empty assigneeID unassigns.
func (s *Service) AssignIssue(ctx context.Context, issueID, assigneeID, actorID string) (domain.Issue, error) {
	return s.UpdateIssue(ctx, issueID, IssuePatch{ActorID: actorID, AssigneeID: &assigneeID})
}

// AllowedTransitions lists the statuses issueID may move to next.
func (s *Service) AllowedTransitions(ctx context.Context, issueID string) ([]domain.IssueStatus, error) {
	issue, err := s.repo.GetIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}
	project, err := s.repo.GetProject(ctx, issue.ProjectID)
	if err != nil {
		return nil, err
	}
	return project.EffectiveWorkflow().Allowed(issue.Status), nil
}

// DeleteIssue removes an issue when actorID holds delete_issue. It reports
// false without an error when permission is missing or the issue is gone.
func (s *Service) DeleteIssue(ctx context.Context, issueID, actorID string) (bool, error) {
	if !s.HasPermission(actorID, domain.PermissionDeleteIssue) {
		s.logger.Warn("delete denied", "issue_id", issueID, "actor", actorID)
		return false, nil
	}
	if err := s.repo.DeleteIssue(ctx, issueID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetIssue returns one issue.
func (s *Service) GetIssue(ctx context.Context, issueID string) (domain.Issue, error) {
	return s.repo.GetIssue(ctx, issueID)
}

// GetIssueByKey returns the issue with key, matched case-insensitively.
func (s *Service) GetIssueByKey(ctx context.Context, key string) (domain.Issue, error) {
	return s.repo.GetIssueByKey(ctx, strings.ToUpper(strings.TrimSpace(key)))
}

// ListIssues lists issues matching filter in creation order.
func (s *Service) ListIssues(ctx context.Context, filter IssueFilter) ([]domain.Issue, error) {
	issues, err := s.repo.ListIssues(ctx, filter)
	if err != nil {
		return nil, err
	}
	sortIssues(issues)
	return issues, nil
}

// ListBacklog lists project issues outside any sprint that are not done.
func (s *Service) ListBacklog(ctx context.Context, projectID string) ([]domain.Issue, error) {
	issues, err := s.ListIssues(ctx, IssueFilter{ProjectID: projectID})
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(issues, func(issue domain.Issue) bool {
		return issue.SprintID != "" || issue.IsDone()
	}), nil
}

// SearchIssues filters issues of projectID ("" for all projects) with a JQL
// query. A query that fails to parse returns every issue.
func (s *Service) SearchIssues(ctx context.Context, projectID, query string) ([]domain.Issue, error) {
	issues, err := s.ListIssues(ctx, IssueFilter{ProjectID: projectID})
	if err != nil {
		return nil, err
	}
	return jql.Filter(issues, query), nil
}

// EpicProgress summarises the children of epicID.
func (s *Service) EpicProgress(ctx context.Context, epicID string) (stats.Progress, error) {
	epic, err := s.repo.GetIssue(ctx, epicID)
	if err != nil {
		return stats.Progress{}, err
	}
	children, err := s.repo.ListIssues(ctx, IssueFilter{ProjectID: epic.ProjectID, ParentID: epic.ID})
	if err != nil {
		return stats.Progress{}, err
	}
	return stats.EpicProgress(epic.ID, children), nil
}

// Workload reports per-user workload for projectID ("" for all projects).
func (s *Service) Workload(ctx context.Context, projectID string) ([]stats.Workload, error) {
	issues, err := s.repo.ListIssues(ctx, IssueFilter{ProjectID: projectID})
	if err != nil {
		return nil, err
	}
	return stats.Workloads(issues, s.users), nil
}

// Board groups a project's issues into status columns with WIP flags. Scrum
// projects show the active sprints only.
func (s *Service) Board(ctx context.Context, projectID string) ([]stats.Column, error) {
	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	issues, err := s.repo.ListIssues(ctx, IssueFilter{ProjectID: project.ID})
	if err != nil {
		return nil, err
	}
	if project.UsesSprints() {
		sprints, err := s.repo.ListSprints(ctx, project.ID)
		if err != nil {
			return nil, err
		}
		active := map[string]bool{}
		for _, sprint := range sprints {
			if sprint.Status == domain.SprintActive {
				active[sprint.ID] = true
			}
		}
		if len(active) > 0 {
			issues = slices.DeleteFunc(issues, func(issue domain.Issue) bool { return !active[issue.SprintID] })
		}
	}
	return stats.Board(project, issues), nil
}
