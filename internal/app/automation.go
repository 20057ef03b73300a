package app

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/evanschultz/issuedeck/internal/automation"
	"github.com/evanschultz/issuedeck/internal/domain"
)

// RunAutomation executes every enabled rule of the issue's project listening
// to trigger whose condition matches, in creation order. Each execution is
// logged; failures are recorded and never returned. The returned issue
// reflects all successful actions.
func (s *Service) RunAutomation(ctx context.Context, trigger domain.AutomationTrigger, issue domain.Issue) domain.Issue {
	rules, err := s.repo.ListAutomationRules(ctx, AutomationRuleFilter{
		ProjectID:   issue.ProjectID,
		Trigger:     trigger,
		EnabledOnly: true,
	})
	if err != nil {
		s.logger.Error("list automation rules", "project_id", issue.ProjectID, "trigger", trigger, "err", err)
		return issue
	}
	for _, rule := range automation.Select(rules, issue.ProjectID, trigger) {
		if !automation.Matches(rule.Condition, issue) {
			continue
		}
		issue = s.executeRule(ctx, rule, issue)
	}
	return issue
}

func (s *Service) executeRule(ctx context.Context, rule domain.AutomationRule, issue domain.Issue) domain.Issue {
	updated, message, err := s.applyRule(ctx, rule, issue)
	entry := domain.AutomationLog{
		ID:         s.idGen(),
		RuleID:     rule.ID,
		Status:     domain.AutomationSuccess,
		Message:    fmt.Sprintf("%s: %s", rule.Name, message),
		ExecutedAt: s.now(),
	}
	if err != nil {
		entry.Status = domain.AutomationFailure
		entry.Message = fmt.Sprintf("%s: %v", rule.Name, err)
		updated = issue
		s.logger.Warn("automation failed", "rule", rule.Name, "issue", issue.Key, "err", err)
	} else {
		ranAt := entry.ExecutedAt
		rule.LastRun = &ranAt
		if err := s.repo.UpdateAutomationRule(ctx, rule); err != nil {
			s.logger.Error("update automation rule", "rule", rule.Name, "err", err)
		}
		s.logger.Debug("automation executed", "rule", rule.Name, "issue", issue.Key, "action", rule.Action)
	}
	if err := s.repo.CreateAutomationLog(ctx, entry); err != nil {
		s.logger.Error("write automation log", "rule", rule.Name, "err", err)
	}
	return updated
}

func (s *Service) applyRule(ctx context.Context, rule domain.AutomationRule, issue domain.Issue) (updated domain.Issue, message string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action %s panicked: %v", rule.Action, r)
		}
	}()
	updated, message, err = automation.Apply(rule.Action, issue, automation.ApplyOptions{
		RuleName: rule.Name,
		NewID:    s.idGen,
		Now:      s.now(),
	})
	if err != nil {
		return issue, "", err
	}
	if err := s.repo.UpdateIssue(ctx, updated); err != nil {
		return issue, "", err
	}
	return updated, message, nil
}

// CreateAutomationRuleInput holds input values for create automation rule operations.
type CreateAutomationRuleInput struct {
	ActorID     string                   `validate:"required"`
	ProjectID   string                   `validate:"required"`
	Name        string                   `validate:"required,max=120"`
	Description string                   `validate:"max=2000"`
	Trigger     domain.AutomationTrigger `validate:"required,oneof=issue_created status_changed comment_added"`
	Condition   string                   `validate:"max=200"`
	Action      domain.AutomationAction  `validate:"required,oneof=assign_reporter add_comment set_priority_high"`
	Enabled     bool
}

// CreateAutomationRule creates a rule. The actor needs manage_automation.
func (s *Service) CreateAutomationRule(ctx context.Context, in CreateAutomationRuleInput) (domain.AutomationRule, error) {
	if err := validateInput(in); err != nil {
		return domain.AutomationRule{}, err
	}
	if err := s.requirePermission(in.ActorID, domain.PermissionManageAutomation); err != nil {
		return domain.AutomationRule{}, err
	}
	if _, err := s.repo.GetProject(ctx, in.ProjectID); err != nil {
		return domain.AutomationRule{}, err
	}
	rule, err := domain.NewAutomationRule(domain.AutomationRuleInput{
		ID:          s.idGen(),
		ProjectID:   in.ProjectID,
		Name:        in.Name,
		Description: in.Description,
		Trigger:     in.Trigger,
		Condition:   in.Condition,
		Action:      in.Action,
		Enabled:     in.Enabled,
	}, s.now())
	if err != nil {
		return domain.AutomationRule{}, err
	}
	if err := s.repo.CreateAutomationRule(ctx, rule); err != nil {
		return domain.AutomationRule{}, err
	}
	return rule, nil
}

// AutomationRulePatch describes a partial rule update.
type AutomationRulePatch struct {
	Name        *string
	Description *string
	Trigger     *domain.AutomationTrigger
	Condition   *string
	Action      *domain.AutomationAction
	Enabled     *bool
}

// UpdateAutomationRule applies patch to a rule. The actor needs manage_automation.
func (s *Service) UpdateAutomationRule(ctx context.Context, actorID, ruleID string, patch AutomationRulePatch) (domain.AutomationRule, error) {
	if err := s.requirePermission(actorID, domain.PermissionManageAutomation); err != nil {
		return domain.AutomationRule{}, err
	}
	rule, err := s.repo.GetAutomationRule(ctx, ruleID)
	if err != nil {
		return domain.AutomationRule{}, fmt.Errorf("update automation rule %s: %w", ruleID, err)
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return domain.AutomationRule{}, domain.ErrInvalidName
		}
		rule.Name = name
	}
	if patch.Description != nil {
		rule.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Trigger != nil {
		if !domain.IsValidTrigger(*patch.Trigger) {
			return domain.AutomationRule{}, domain.ErrInvalidTrigger
		}
		rule.Trigger = *patch.Trigger
	}
	if patch.Condition != nil {
		rule.Condition = strings.TrimSpace(*patch.Condition)
	}
	if patch.Action != nil {
		if !domain.IsValidAction(*patch.Action) {
			return domain.AutomationRule{}, domain.ErrInvalidAction
		}
		rule.Action = *patch.Action
	}
	if patch.Enabled != nil {
		rule.Enabled = *patch.Enabled
	}
	if err := s.repo.UpdateAutomationRule(ctx, rule); err != nil {
		return domain.AutomationRule{}, err
	}
	return rule, nil
}

// SetAutomationRuleEnabled toggles a rule.
func (s *Service) SetAutomationRuleEnabled(ctx context.Context, actorID, ruleID string, enabled bool) (domain.AutomationRule, error) {
	return s.UpdateAutomationRule(ctx, actorID, ruleID, AutomationRulePatch{Enabled: &enabled})
}

// DeleteAutomationRule removes a rule and its logs.
func (s *Service) DeleteAutomationRule(ctx context.Context, actorID, ruleID string) error {
	if err := s.requirePermission(actorID, domain.PermissionManageAutomation); err != nil {
		return err
	}
	return s.repo.DeleteAutomationRule(ctx, ruleID)
}

// ListAutomationRules lists a project's rules in execution order.
func (s *Service) ListAutomationRules(ctx context.Context, projectID string) ([]domain.AutomationRule, error) {
	rules, err := s.repo.ListAutomationRules(ctx, AutomationRuleFilter{ProjectID: projectID})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(rules, func(a, b domain.AutomationRule) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return rules, nil
}

// ListAutomationLogs lists a rule's executions, newest first. limit <= 0
// returns every entry.
func (s *Service) ListAutomationLogs(ctx context.Context, ruleID string, limit int) ([]domain.AutomationLog, error) {
	logs, err := s.repo.ListAutomationLogs(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(logs, func(a, b domain.AutomationLog) int {
		if c := b.ExecutedAt.Compare(a.ExecutedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

func (s *Service) requirePermission(actorID string, p domain.Permission) error {
	if !s.HasPermission(actorID, p) {
		return fmt.Errorf("%w: %s lacks %s", ErrPermissionDenied, actorID, p)
	}
	return nil
}
