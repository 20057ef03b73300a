package app

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/evanschultz/issuedeck/internal/domain"
	"github.com/evanschultz/issuedeck/internal/jql"
)

// SaveFilterInput holds input values for create saved filter operations.
type SaveFilterInput struct {
	OwnerID    string `validate:"required"`
	Name       string `validate:"required,max=80"`
	Query      string `validate:"max=1000"`
	IsJQLMode  bool
	IsFavorite bool
}

// CreateSavedFilter stores a named query.
func (s *Service) CreateSavedFilter(ctx context.Context, in SaveFilterInput) (domain.SavedFilter, error) {
	if err := validateInput(in); err != nil {
		return domain.SavedFilter{}, err
	}
	filter := domain.SavedFilter{
		ID:         s.idGen(),
		Name:       strings.TrimSpace(in.Name),
		Query:      strings.TrimSpace(in.Query),
		OwnerID:    strings.TrimSpace(in.OwnerID),
		IsFavorite: in.IsFavorite,
		IsJQLMode:  in.IsJQLMode,
	}
	if filter.Name == "" {
		return domain.SavedFilter{}, domain.ErrInvalidName
	}
	if err := s.repo.CreateSavedFilter(ctx, filter); err != nil {
		return domain.SavedFilter{}, err
	}
	return filter, nil
}

// SavedFilterPatch describes a partial saved filter update.
type SavedFilterPatch struct {
	Name       *string
	Query      *string
	IsJQLMode  *bool
	IsFavorite *bool
}

// UpdateSavedFilter applies patch to a saved filter.
func (s *Service) UpdateSavedFilter(ctx context.Context, filterID string, patch SavedFilterPatch) (domain.SavedFilter, error) {
	filter, err := s.repo.GetSavedFilter(ctx, filterID)
	if err != nil {
		return domain.SavedFilter{}, fmt.Errorf("update saved filter %s: %w", filterID, err)
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return domain.SavedFilter{}, domain.ErrInvalidName
		}
		filter.Name = name
	}
	if patch.Query != nil {
		filter.Query = strings.TrimSpace(*patch.Query)
	}
	if patch.IsJQLMode != nil {
		filter.IsJQLMode = *patch.IsJQLMode
	}
	if patch.IsFavorite != nil {
		filter.IsFavorite = *patch.IsFavorite
	}
	if err := s.repo.UpdateSavedFilter(ctx, filter); err != nil {
		return domain.SavedFilter{}, err
	}
	return filter, nil
}

// ToggleFavoriteFilter flips the favourite flag.
func (s *Service) ToggleFavoriteFilter(ctx context.Context, filterID string) (domain.SavedFilter, error) {
	filter, err := s.repo.GetSavedFilter(ctx, filterID)
	if err != nil {
		return domain.SavedFilter{}, err
	}
	favorite := !filter.IsFavorite
	return s.UpdateSavedFilter(ctx, filterID, SavedFilterPatch{IsFavorite: &favorite})
}

// DeleteSavedFilter removes a saved filter.
func (s *Service) DeleteSavedFilter(ctx context.Context, filterID string) error {
	return s.repo.DeleteSavedFilter(ctx, filterID)
}

// ListSavedFilters lists ownerID's filters ("" for all), favourites first.
func (s *Service) ListSavedFilters(ctx context.Context, ownerID string) ([]domain.SavedFilter, error) {
	filters, err := s.repo.ListSavedFilters(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(filters, func(a, b domain.SavedFilter) int {
		if a.IsFavorite != b.IsFavorite {
			if a.IsFavorite {
				return -1
			}
			return 1
		}
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return filters, nil
}

// RunSavedFilter evaluates a saved filter over projectID's issues ("" for all
// projects). JQL filters go through the query language; text filters match
// key, title or description case-insensitively.
func (s *Service) RunSavedFilter(ctx context.Context, filterID, projectID string) ([]domain.Issue, error) {
	filter, err := s.repo.GetSavedFilter(ctx, filterID)
	if err != nil {
		return nil, err
	}
	issues, err := s.ListIssues(ctx, IssueFilter{ProjectID: projectID})
	if err != nil {
		return nil, err
	}
	if filter.IsJQLMode {
		return jql.Filter(issues, filter.Query), nil
	}
	return textFilter(issues, filter.Query), nil
}

func textFilter(issues []domain.Issue, query string) []domain.Issue {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return issues
	}
	out := make([]domain.Issue, 0, len(issues))
	for _, issue := range issues {
		if strings.Contains(strings.ToLower(issue.Key), query) ||
			strings.Contains(strings.ToLower(issue.Title), query) ||
			strings.Contains(strings.ToLower(issue.Description), query) {
			out = append(out, issue)
		}
	}
	return out
}

// DefaultGadgets is the dashboard layout of a user who never customised it.
func DefaultGadgets() []domain.Gadget {
	return []domain.Gadget{
		{ID: "assigned", Kind: domain.GadgetAssignedToMe, Position: 0},
		{ID: "recent", Kind: domain.GadgetRecentIssues, Position: 1},
		{ID: "workload", Kind: domain.GadgetWorkload, Position: 2},
	}
}

// DashboardGadgets returns userID's dashboard layout in position order.
func (s *Service) DashboardGadgets(ctx context.Context, userID string) ([]domain.Gadget, error) {
	raw, ok, err := s.repo.GetSetting(ctx, DashboardGadgetsKey(userID))
	if err != nil {
		return nil, err
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return DefaultGadgets(), nil
	}
	var gadgets []domain.Gadget
	if err := json.Unmarshal([]byte(raw), &gadgets); err != nil {
		s.logger.Warn("discarding unreadable dashboard layout", "user_id", userID, "err", err)
		return DefaultGadgets(), nil
	}
	slices.SortStableFunc(gadgets, func(a, b domain.Gadget) int { return cmp.Compare(a.Position, b.Position) })
	return gadgets, nil
}

// SaveDashboardGadgets stores userID's layout. Positions are renumbered in
// slice order.
func (s *Service) SaveDashboardGadgets(ctx context.Context, userID string, gadgets []domain.Gadget) ([]domain.Gadget, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrInvalidID
	}
	out := make([]domain.Gadget, 0, len(gadgets))
	for idx, g := range gadgets {
		if strings.TrimSpace(g.ID) == "" {
			g.ID = s.idGen()
		}
		if strings.TrimSpace(string(g.Kind)) == "" {
			return nil, fmt.Errorf("%w: gadget %d has no kind", ErrInvalidInput, idx)
		}
		g.Position = idx
		out = append(out, g)
	}
	encoded, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode dashboard layout: %w", err)
	}
	if err := s.repo.SetSetting(ctx, DashboardGadgetsKey(userID), string(encoded)); err != nil {
		return nil, err
	}
	return out, nil
}
