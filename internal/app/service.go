package app

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"

	"github.com/evanschultz/issuedeck/internal/domain"
)

// DefaultKeyOffset is the issue number assigned to the first issue of a project.
const DefaultKeyOffset = 101

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	// KeyOffset is added to the project's issue count when numbering new
	// issues. Values <= 0 select DefaultKeyOffset.
	KeyOffset int
	// Users is the local user directory used for permission checks.
	Users  []domain.User
	Logger *log.Logger
}

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Service is the storage facade used by every caller. It owns id and key
// generation, the status state machine, automation and notification dispatch,
// audit history, demo seeding and reset. Backends only persist.
type Service struct {
	repo      Repository
	idGen     IDGenerator
	clock     Clock
	keyOffset int
	users     []domain.User
	logger    *log.Logger
}

// NewService constructs a new value for this package.
func NewService(repo Repository, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	if cfg.KeyOffset <= 0 {
		cfg.KeyOffset = DefaultKeyOffset
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Service{
		repo:      repo,
		idGen:     idGen,
		clock:     clock,
		keyOffset: cfg.KeyOffset,
		users:     slices.Clone(cfg.Users),
		logger:    cfg.Logger,
	}
}

func (s *Service) now() time.Time {
	return s.clock().UTC()
}

// Users returns the local user directory.
func (s *Service) Users() []domain.User {
	return slices.Clone(s.users)
}

// HasPermission reports whether userID holds p.
func (s *Service) HasPermission(userID string, p domain.Permission) bool {
	return domain.HasPermission(s.users, userID, p)
}

// SupportsPush reports whether watch subscriptions fire again after changes.
func (s *Service) SupportsPush() bool {
	return s.repo.SupportsPush()
}

var inputValidate = newInputValidator()

func newInputValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("projectkey", func(fl validator.FieldLevel) bool {
		_, err := domain.NormalizeProjectKey(fl.Field().String())
		return err == nil
	})
	return v
}

func validateInput(in any) error {
	if err := inputValidate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// CreateProjectInput holds input values for create project operations.
type CreateProjectInput struct {
	Key         string                 `validate:"required,projectkey"`
	Name        string                 `validate:"required,max=80"`
	Description string                 `validate:"max=2000"`
	LeadID      string                 `validate:"max=64"`
	Category    domain.ProjectCategory `validate:"omitempty,oneof=Software Business"`
	Type        domain.ProjectType     `validate:"omitempty,oneof=Scrum Kanban"`
	IconURL     string                 `validate:"omitempty,url"`
}

// CreateProject creates project.
func (s *Service) CreateProject(ctx context.Context, in CreateProjectInput) (domain.Project, error) {
	if err := validateInput(in); err != nil {
		return domain.Project{}, err
	}
	project, err := domain.NewProject(domain.ProjectInput{
		ID:          s.idGen(),
		Key:         in.Key,
		Name:        in.Name,
		Description: in.Description,
		LeadID:      in.LeadID,
		Category:    in.Category,
		Type:        in.Type,
		IconURL:     in.IconURL,
	}, s.now())
	if err != nil {
		return domain.Project{}, err
	}
	if _, err := s.repo.GetProjectByKey(ctx, project.Key); err == nil {
		return domain.Project{}, fmt.Errorf("%w: %s", ErrDuplicateKey, project.Key)
	} else if !errors.Is(err, ErrNotFound) {
		return domain.Project{}, err
	}
	if err := s.repo.CreateProject(ctx, project); err != nil {
		return domain.Project{}, err
	}
	return project, nil
}

// UpdateProjectInput holds input values for update project operations. Nil
// fields are left unchanged.
type UpdateProjectInput struct {
	ProjectID            string `validate:"required"`
	Name                 *string
	Description          *string
	LeadID               *string
	Category             *domain.ProjectCategory
	Type                 *domain.ProjectType
	IconURL              *string
	Starred              *bool
	ColumnSettings       map[domain.IssueStatus]int
	WorkflowSettings     domain.Workflow
	NotificationSettings domain.NotificationScheme
}

// UpdateProject updates state for the requested operation.
func (s *Service) UpdateProject(ctx context.Context, in UpdateProjectInput) (domain.Project, error) {
	if err := validateInput(in); err != nil {
		return domain.Project{}, err
	}
	project, err := s.repo.GetProject(ctx, in.ProjectID)
	if err != nil {
		return domain.Project{}, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return domain.Project{}, domain.ErrInvalidName
		}
		project.Name = name
	}
	if in.Description != nil {
		project.Description = strings.TrimSpace(*in.Description)
	}
	if in.LeadID != nil {
		project.LeadID = strings.TrimSpace(*in.LeadID)
	}
	if in.Category != nil {
		if *in.Category != domain.CategorySoftware && *in.Category != domain.CategoryBusiness {
			return domain.Project{}, domain.ErrInvalidCategory
		}
		project.Category = *in.Category
	}
	if in.Type != nil {
		if !domain.IsValidProjectType(*in.Type) {
			return domain.Project{}, domain.ErrInvalidProjectType
		}
		project.Type = *in.Type
	}
	if in.IconURL != nil {
		project.IconURL = strings.TrimSpace(*in.IconURL)
	}
	if in.Starred != nil {
		project.Starred = *in.Starred
	}
	if in.ColumnSettings != nil {
		limits := make(map[domain.IssueStatus]int, len(in.ColumnSettings))
		for status, limit := range in.ColumnSettings {
			if !domain.IsValidStatus(status) || limit < 0 {
				return domain.Project{}, fmt.Errorf("%w: column %q limit %d", ErrInvalidInput, status, limit)
			}
			limits[status] = limit
		}
		project.ColumnSettings = limits
	}
	if in.WorkflowSettings != nil {
		if err := in.WorkflowSettings.Validate(); err != nil {
			return domain.Project{}, err
		}
		project.WorkflowSettings = in.WorkflowSettings.Clone()
	}
	if in.NotificationSettings != nil {
		if err := in.NotificationSettings.Validate(); err != nil {
			return domain.Project{}, err
		}
		project.NotificationSettings = in.NotificationSettings.Clone()
	}
	project.Touch(s.now())
	if err := s.repo.UpdateProject(ctx, project); err != nil {
		return domain.Project{}, err
	}
	return project, nil
}

// StarProject sets the starred flag.
func (s *Service) StarProject(ctx context.Context, projectID string, starred bool) (domain.Project, error) {
	return s.UpdateProject(ctx, UpdateProjectInput{ProjectID: projectID, Starred: &starred})
}

// GetProject returns one project.
func (s *Service) GetProject(ctx context.Context, projectID string) (domain.Project, error) {
	return s.repo.GetProject(ctx, projectID)
}

// GetProjectByKey returns the project with key, matched case-insensitively.
func (s *Service) GetProjectByKey(ctx context.Context, key string) (domain.Project, error) {
	return s.repo.GetProjectByKey(ctx, strings.ToUpper(strings.TrimSpace(key)))
}

// ListProjects lists projects, starred first, then by key.
func (s *Service) ListProjects(ctx context.Context) ([]domain.Project, error) {
	projects, err := s.repo.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	sortProjects(projects)
	return projects, nil
}

// DeleteProject removes a project and everything it owns. The actor needs
// the manage_project permission.
func (s *Service) DeleteProject(ctx context.Context, actorID, projectID string) error {
	if err := s.requirePermission(actorID, domain.PermissionManageProject); err != nil {
		return err
	}
	if err := s.repo.DeleteProject(ctx, projectID); err != nil {
		return err
	}
	s.logger.Info("project deleted", "project_id", projectID, "actor", actorID)
	return nil
}

func sortProjects(projects []domain.Project) {
	slices.SortFunc(projects, func(a, b domain.Project) int {
		if a.Starred != b.Starred {
			if a.Starred {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.Key, b.Key)
	})
}

func sortIssues(issues []domain.Issue) {
	slices.SortFunc(issues, func(a, b domain.Issue) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
