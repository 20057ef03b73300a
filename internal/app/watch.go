package app

import (
	"context"
	"sync"

	"github.com/evanschultz/issuedeck/internal/domain"
)

// Watches deliver a fresh fetch to fn. On push backends fn runs once
// immediately and again after every committed change to the backing table,
// on the goroutine that made the change, until the returned func is called or
// ctx ends. On one-shot backends fn runs exactly once and the returned func
// does nothing; callers must fetch again after their own mutations.
func watch[T any](ctx context.Context, s *Service, table Table, fetch func(context.Context) (T, error), fn func(T, error)) func() {
	deliver := func() {
		if ctx.Err() != nil {
			return
		}
		fn(fetch(ctx))
	}
	if !s.repo.SupportsPush() {
		deliver()
		return func() {}
	}
	var once sync.Once
	unsubscribe := s.repo.Subscribe(table, deliver)
	stop := func() { once.Do(unsubscribe) }
	context.AfterFunc(ctx, stop)
	deliver()
	return stop
}

// WatchProjects watches the project list.
func (s *Service) WatchProjects(ctx context.Context, fn func([]domain.Project, error)) func() {
	return watch(ctx, s, TableProjects, s.ListProjects, fn)
}

// WatchProject watches one project.
func (s *Service) WatchProject(ctx context.Context, projectID string, fn func(domain.Project, error)) func() {
	return watch(ctx, s, TableProjects, func(ctx context.Context) (domain.Project, error) {
		return s.repo.GetProject(ctx, projectID)
	}, fn)
}

// WatchIssues watches the issues matching filter.
func (s *Service) WatchIssues(ctx context.Context, filter IssueFilter, fn func([]domain.Issue, error)) func() {
	return watch(ctx, s, TableIssues, func(ctx context.Context) ([]domain.Issue, error) {
		return s.ListIssues(ctx, filter)
	}, fn)
}

// WatchIssue watches one issue.
func (s *Service) WatchIssue(ctx context.Context, issueID string, fn func(domain.Issue, error)) func() {
	return watch(ctx, s, TableIssues, func(ctx context.Context) (domain.Issue, error) {
		return s.repo.GetIssue(ctx, issueID)
	}, fn)
}

// WatchSprints watches a project's sprints.
func (s *Service) WatchSprints(ctx context.Context, projectID string, fn func([]domain.Sprint, error)) func() {
	return watch(ctx, s, TableSprints, func(ctx context.Context) ([]domain.Sprint, error) {
		return s.ListSprints(ctx, projectID)
	}, fn)
}

// WatchVersions watches a project's versions.
func (s *Service) WatchVersions(ctx context.Context, projectID string, fn func([]domain.Version, error)) func() {
	return watch(ctx, s, TableVersions, func(ctx context.Context) ([]domain.Version, error) {
		return s.ListVersions(ctx, projectID)
	}, fn)
}

// WatchNotifications watches recipientID's notifications.
func (s *Service) WatchNotifications(ctx context.Context, recipientID string, fn func([]domain.Notification, error)) func() {
	return watch(ctx, s, TableNotifications, func(ctx context.Context) ([]domain.Notification, error) {
		return s.ListNotifications(ctx, recipientID, false)
	}, fn)
}

// WatchAutomationRules watches a project's automation rules.
func (s *Service) WatchAutomationRules(ctx context.Context, projectID string, fn func([]domain.AutomationRule, error)) func() {
	return watch(ctx, s, TableAutomationRules, func(ctx context.Context) ([]domain.AutomationRule, error) {
		return s.ListAutomationRules(ctx, projectID)
	}, fn)
}

// WatchSavedFilters watches ownerID's saved filters.
func (s *Service) WatchSavedFilters(ctx context.Context, ownerID string, fn func([]domain.SavedFilter, error)) func() {
	return watch(ctx, s, TableSavedFilters, func(ctx context.Context) ([]domain.SavedFilter, error) {
		return s.ListSavedFilters(ctx, ownerID)
	}, fn)
}
