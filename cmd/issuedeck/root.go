package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/evanschultz/issuedeck/internal/app"
	"github.com/evanschultz/issuedeck/internal/domain"
	"github.com/evanschultz/issuedeck/internal/platform"
	"github.com/spf13/cobra"
)

// skipStoreAnnotation marks commands that run without opening storage.
const skipStoreAnnotation = "skipStore"

// errNotLoggedIn is returned by commands that need an acting user.
var errNotLoggedIn = errors.New("not logged in, run 'issuedeck login <user-id>' first")

func newRootCmd(rt *runtime) *cobra.Command {
	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("ISSUEDECK_DEV_MODE"); ok {
		defaultDevMode = envDev
	}
	defaultApp := platform.AppName
	if envApp := strings.TrimSpace(os.Getenv("ISSUEDECK_APP_NAME")); envApp != "" {
		defaultApp = envApp
	}

	cmd := &cobra.Command{
		Use:           "issuedeck",
		Short:         "Local issue tracker with Scrum and Kanban projects",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if _, ok := cmd.Annotations[skipStoreAnnotation]; ok {
				return rt.resolvePaths()
			}
			return rt.open(cmd.Context())
		},
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&rt.opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&rt.opts.dbPath, "db", "", "storage path (sqlite file or badger dir)")
	flags.StringVar(&rt.opts.backend, "backend", "", "storage backend: sqlite or badger")
	flags.StringVar(&rt.opts.appName, "app", defaultApp, "application name for config/data path resolution")
	flags.BoolVar(&rt.opts.devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")

	cmd.AddCommand(
		newPathsCmd(rt),
		newSetupCmd(rt),
		newLoginCmd(rt),
		newLogoutCmd(rt),
		newWhoamiCmd(rt),
		newUsersCmd(rt),
		newProjectCmd(rt),
		newIssueCmd(rt),
		newSprintCmd(rt),
		newVersionCmd(rt),
		newAutomationCmd(rt),
		newFilterCmd(rt),
		newDashboardCmd(rt),
		newNotificationsCmd(rt),
		newStatsCmd(rt),
		newSeedCmd(rt),
		newResetCmd(rt),
		newExportCmd(rt),
		newImportCmd(rt),
		newDoctorCmd(rt),
	)
	return cmd
}

func newPathsCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:         "paths",
		Short:       "Show resolved config and data paths",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipStoreAnnotation: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "app: %s\n", rt.opts.appName)
			_, _ = fmt.Fprintf(out, "dev_mode: %t\n", rt.opts.devMode)
			_, _ = fmt.Fprintf(out, "config: %s\n", rt.paths.ConfigPath)
			_, _ = fmt.Fprintf(out, "data_dir: %s\n", rt.paths.DataDir)
			_, _ = fmt.Fprintf(out, "db: %s\n", rt.paths.DBPath)
			_, _ = fmt.Fprintf(out, "badger_dir: %s\n", rt.paths.BadgerDir)
			_, _ = fmt.Fprintf(out, "log_dir: %s\n", rt.paths.LogDir)
			return nil
		},
	}
}

// actor returns the logged-in user.
func (rt *runtime) actor(ctx context.Context) (domain.User, error) {
	user, ok, err := rt.svc.CurrentUser(ctx)
	if err != nil {
		return domain.User{}, fmt.Errorf("read session: %w", err)
	}
	if !ok {
		return domain.User{}, errNotLoggedIn
	}
	return user, nil
}

// project resolves a project by key, falling back to its id.
func (rt *runtime) project(ctx context.Context, ref string) (domain.Project, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return domain.Project{}, fmt.Errorf("%w: project key is required", app.ErrInvalidInput)
	}
	project, err := rt.svc.GetProjectByKey(ctx, strings.ToUpper(ref))
	if err == nil || !errors.Is(err, app.ErrNotFound) {
		return project, err
	}
	return rt.svc.GetProject(ctx, ref)
}

// issue resolves an issue by key, falling back to its id.
func (rt *runtime) issue(ctx context.Context, ref string) (domain.Issue, error) {
	ref = strings.TrimSpace(ref)
	issue, err := rt.svc.GetIssueByKey(ctx, strings.ToUpper(ref))
	if err == nil || !errors.Is(err, app.ErrNotFound) {
		return issue, err
	}
	return rt.svc.GetIssue(ctx, ref)
}

// parseStatus accepts a status name in any case, with dashes or underscores
// standing in for spaces.
func parseStatus(raw string) (domain.IssueStatus, error) {
	want := normalizeWord(raw)
	for _, status := range domain.Statuses {
		if normalizeWord(string(status)) == want {
			return status, nil
		}
	}
	return "", fmt.Errorf("%w: unknown status %q", app.ErrInvalidInput, raw)
}

// titleWord maps user input onto one of the enum values, ignoring case.
func titleWord[T ~string](raw string, values ...T) (T, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	for _, value := range values {
		if strings.EqualFold(string(value), raw) {
			return value, nil
		}
	}
	return "", fmt.Errorf("%w: unknown value %q", app.ErrInvalidInput, raw)
}

func normalizeWord(raw string) string {
	replacer := strings.NewReplacer("-", " ", "_", " ")
	return strings.Join(strings.Fields(strings.ToLower(replacer.Replace(raw))), " ")
}
