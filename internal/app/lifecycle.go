package app

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/evanschultz/issuedeck/internal/domain"
	"github.com/evanschultz/issuedeck/internal/seed"
)

// SeedDemo replaces every entity table with the demo dataset. Seeding always
// starts from empty tables, so running it twice yields the same counts. When
// the atomic replace fails the tables are cleared one by one and the original
// error is returned.
func (s *Service) SeedDemo(ctx context.Context) (domain.Dataset, error) {
	ds, err := seed.Demo(s.now())
	if err != nil {
		return domain.Dataset{}, err
	}
	if err := s.repo.ReplaceAll(ctx, ds); err != nil {
		s.logger.Error("seed demo failed, clearing tables", "err", err)
		if clearErr := s.repo.ClearAll(ctx); clearErr != nil {
			s.logger.Error("fallback clear failed", "err", clearErr)
		}
		return domain.Dataset{}, fmt.Errorf("seed demo: %w", err)
	}
	if err := s.repo.SetSetting(ctx, SettingAppInitialized, boolSetting(true)); err != nil {
		return domain.Dataset{}, err
	}
	s.logger.Info("demo data seeded", "issues", len(ds.Issues), "sprints", len(ds.Sprints))
	return ds, nil
}

// Reset empties every entity table and removes the session, setup and
// notification settings together with every dashboard layout.
func (s *Service) Reset(ctx context.Context) error {
	var errs []error
	if err := s.repo.ReplaceAll(ctx, domain.Dataset{}); err != nil {
		s.logger.Error("reset failed, clearing tables", "err", err)
		if clearErr := s.repo.ClearAll(ctx); clearErr != nil {
			s.logger.Error("fallback clear failed", "err", clearErr)
		}
		errs = append(errs, fmt.Errorf("reset tables: %w", err))
	}
	keys := slices.Clone(ResetSettingKeys)
	gadgetKeys, err := s.repo.ListSettingKeys(ctx, DashboardGadgetsPrefix)
	if err != nil {
		errs = append(errs, fmt.Errorf("list dashboard settings: %w", err))
	}
	keys = append(keys, gadgetKeys...)
	if err := s.repo.DeleteSettings(ctx, keys...); err != nil {
		errs = append(errs, fmt.Errorf("reset settings: %w", err))
	}
	if len(errs) == 0 {
		s.logger.Info("storage reset", "settings_cleared", len(keys))
	}
	return errors.Join(errs...)
}

// SetupInput holds input values for first-run setup.
type SetupInput struct {
	UserID      string             `validate:"required"`
	ProjectKey  string             `validate:"required,projectkey"`
	ProjectName string             `validate:"required,max=80"`
	ProjectType domain.ProjectType `validate:"omitempty,oneof=Scrum Kanban"`
}

// CompleteSetup creates the first project led by the chosen user and records
// setup, initialisation and login settings.
func (s *Service) CompleteSetup(ctx context.Context, in SetupInput) (domain.Project, error) {
	if err := validateInput(in); err != nil {
		return domain.Project{}, err
	}
	if _, ok := domain.FindUser(s.users, in.UserID); !ok {
		return domain.Project{}, fmt.Errorf("%w: unknown user %s", ErrInvalidInput, in.UserID)
	}
	project, err := s.CreateProject(ctx, CreateProjectInput{
		Key:    in.ProjectKey,
		Name:   in.ProjectName,
		LeadID: in.UserID,
		Type:   in.ProjectType,
	})
	if err != nil {
		return domain.Project{}, err
	}
	for _, kv := range [][2]string{
		{SettingHasSetup, boolSetting(true)},
		{SettingAppInitialized, boolSetting(true)},
		{SettingCurrentUserID, in.UserID},
		{SettingIsLoggedIn, boolSetting(true)},
	} {
		if err := s.repo.SetSetting(ctx, kv[0], kv[1]); err != nil {
			return domain.Project{}, err
		}
	}
	return project, nil
}

// IsSetupComplete reports the hasSetup setting.
func (s *Service) IsSetupComplete(ctx context.Context) (bool, error) {
	value, ok, err := s.repo.GetSetting(ctx, SettingHasSetup)
	if err != nil {
		return false, err
	}
	return settingBool(value, ok, false), nil
}

// IsInitialized reports whether demo data or a snapshot was ever loaded.
func (s *Service) IsInitialized(ctx context.Context) (bool, error) {
	value, ok, err := s.repo.GetSetting(ctx, SettingAppInitialized)
	if err != nil {
		return false, err
	}
	return settingBool(value, ok, false), nil
}

// Login records userID as the current user.
func (s *Service) Login(ctx context.Context, userID string) (domain.User, error) {
	user, ok := domain.FindUser(s.users, userID)
	if !ok {
		return domain.User{}, fmt.Errorf("%w: unknown user %s", ErrInvalidInput, userID)
	}
	if err := s.repo.SetSetting(ctx, SettingCurrentUserID, user.ID); err != nil {
		return domain.User{}, err
	}
	if err := s.repo.SetSetting(ctx, SettingIsLoggedIn, boolSetting(true)); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// Logout clears the session settings.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.repo.SetSetting(ctx, SettingIsLoggedIn, boolSetting(false)); err != nil {
		return err
	}
	return s.repo.DeleteSettings(ctx, SettingCurrentUserID)
}

// CurrentUser returns the logged-in user. ok is false when nobody is logged in.
func (s *Service) CurrentUser(ctx context.Context) (user domain.User, ok bool, err error) {
	loggedIn, found, err := s.repo.GetSetting(ctx, SettingIsLoggedIn)
	if err != nil || !settingBool(loggedIn, found, false) {
		return domain.User{}, false, err
	}
	userID, found, err := s.repo.GetSetting(ctx, SettingCurrentUserID)
	if err != nil || !found {
		return domain.User{}, false, err
	}
	user, ok = domain.FindUser(s.users, userID)
	return user, ok, nil
}
