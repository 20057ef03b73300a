package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/evanschultz/issuedeck/internal/app"
	"github.com/evanschultz/issuedeck/internal/config"
	"github.com/evanschultz/issuedeck/internal/domain"
)

// TestMain sets deterministic environment defaults for CLI tests.
func TestMain(m *testing.M) {
	_ = os.Setenv("ISSUEDECK_DEV_MODE", "false")
	_ = os.Unsetenv("ISSUEDECK_CONFIG")
	_ = os.Unsetenv("ISSUEDECK_DB_PATH")
	os.Exit(m.Run())
}

// workspace is one isolated config + storage location for CLI runs.
type workspace struct {
	t       *testing.T
	dir     string
	backend config.Backend
}

func newWorkspace(t *testing.T, backend config.Backend) workspace {
	t.Helper()
	return workspace{t: t, dir: t.TempDir(), backend: backend}
}

func (w workspace) configPath() string { return filepath.Join(w.dir, "config.toml") }

func (w workspace) storagePath() string {
	if w.backend == config.BackendBadger {
		return filepath.Join(w.dir, "badger")
	}
	return filepath.Join(w.dir, "issuedeck.db")
}

// run executes one CLI invocation against the workspace.
func (w workspace) run(args ...string) (string, error) {
	w.t.Helper()
	full := append([]string{
		"--config", w.configPath(),
		"--db", w.storagePath(),
		"--backend", string(w.backend),
	}, args...)
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), full, nil, &stdout, &stderr)
	return stdout.String(), err
}

// mustRun fails the test when the invocation errors.
func (w workspace) mustRun(args ...string) string {
	w.t.Helper()
	out, err := w.run(args...)
	if err != nil {
		w.t.Fatalf("run(%q) error = %v", args, err)
	}
	return out
}

func eachBackend(t *testing.T, fn func(t *testing.T, w workspace)) {
	for _, backend := range []config.Backend{config.BackendSQLite, config.BackendBadger} {
		t.Run(string(backend), func(t *testing.T) {
			fn(t, newWorkspace(t, backend))
		})
	}
}

func TestRunPathsCommand(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"--app", "issuedeck-test", "paths"}, nil, &out, nil); err != nil {
		t.Fatalf("run(paths) error = %v", err)
	}
	for _, want := range []string{"app: issuedeck-test", "config:", "db:", "badger_dir:", "log_dir:"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected %q in paths output, got %q", want, out.String())
		}
	}
}

func TestRunVersionFlag(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"--version"}, nil, &out, nil); err != nil {
		t.Fatalf("run(--version) error = %v", err)
	}
	if !strings.Contains(out.String(), version) {
		t.Fatalf("expected version in output, got %q", out.String())
	}
}

func TestRunUnknownCommand(t *testing.T) {
	w := newWorkspace(t, config.BackendSQLite)
	if _, err := w.run("wat"); err == nil {
		t.Fatal("expected unknown command error")
	}
}

func TestRunFirstRunSeedsDemoData(t *testing.T) {
	eachBackend(t, func(t *testing.T, w workspace) {
		out := w.mustRun("project", "list")
		if !strings.Contains(out, "DEMO") {
			t.Fatalf("expected seeded DEMO project, got %q", out)
		}
		// A second run must not reseed over changes.
		w.mustRun("login", "user-1")
		w.mustRun("project", "create", "--key", "WEB", "--name", "Web")
		out = w.mustRun("project", "list")
		if !strings.Contains(out, "WEB") || !strings.Contains(out, "DEMO") {
			t.Fatalf("expected both projects to survive reopen, got %q", out)
		}
	})
}

func TestRunSeedOnFirstRunCanBeDisabled(t *testing.T) {
	w := newWorkspace(t, config.BackendSQLite)
	if err := os.WriteFile(w.configPath(), []byte("[seed]\non_first_run = false\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	out := w.mustRun("project", "list")
	if !strings.Contains(out, "No projects.") {
		t.Fatalf("expected empty project list, got %q", out)
	}
}

func TestRunIssueLifecycle(t *testing.T) {
	eachBackend(t, func(t *testing.T, w workspace) {
		w.mustRun("login", "user-1")
		w.mustRun("project", "create", "--key", "web", "--name", "Web", "--type", "kanban")

		out := w.mustRun("issue", "create", "-p", "WEB", "-t", "Ship the board", "--assignee", "user-2", "--priority", "high", "--points", "3")
		if !strings.Contains(out, "WEB-101") {
			t.Fatalf("expected first key WEB-101, got %q", out)
		}
		out = w.mustRun("issue", "move", "web-101", "in-progress")
		if !strings.Contains(out, "In Progress") {
			t.Fatalf("expected transition output, got %q", out)
		}
		if _, err := w.run("issue", "move", "WEB-101", "to_do"); err != nil {
			t.Fatalf("move back to To Do error = %v", err)
		}
		w.mustRun("issue", "move", "WEB-101", "done")
		if _, err := w.run("issue", "move", "WEB-101", "in review"); !errors.Is(err, domain.ErrTransitionNotAllowed) {
			t.Fatalf("expected ErrTransitionNotAllowed, got %v", err)
		}

		w.mustRun("issue", "comment", "WEB-101", "looks", "good")
		out = w.mustRun("issue", "show", "WEB-101")
		for _, want := range []string{"Ship the board", "Done", "looks good", "Comments (1)"} {
			if !strings.Contains(out, want) {
				t.Fatalf("expected %q in show output, got %q", want, out)
			}
		}
		out = w.mustRun("issue", "recent")
		if !strings.Contains(out, "WEB-101") {
			t.Fatalf("expected viewed issue in recent list, got %q", out)
		}
		out = w.mustRun("issue", "list", "-p", "WEB", "--jql", `status = Done AND priority = High`)
		if !strings.Contains(out, "WEB-101") {
			t.Fatalf("expected jql match, got %q", out)
		}
		out = w.mustRun("issue", "list", "-p", "WEB", "--status", "to-do")
		if strings.Contains(out, "WEB-101") {
			t.Fatalf("expected status filter to exclude WEB-101, got %q", out)
		}

		w.mustRun("login", "user-2")
		out = w.mustRun("notifications", "--unread")
		if !strings.Contains(out, "WEB-101") {
			t.Fatalf("expected assignee notification, got %q", out)
		}
		out = w.mustRun("notifications", "read-all")
		if strings.Contains(out, "marked 0 ") {
			t.Fatalf("expected notifications to be marked, got %q", out)
		}

		w.mustRun("login", "user-1")
		w.mustRun("issue", "delete", "WEB-101")
		out = w.mustRun("issue", "create", "-p", "WEB", "-t", "Next")
		if !strings.Contains(out, "WEB-102") {
			t.Fatalf("expected deleted key to stay retired, got %q", out)
		}
	})
}

func TestRunCommandsRequireLogin(t *testing.T) {
	w := newWorkspace(t, config.BackendSQLite)
	if _, err := w.run("issue", "create", "-p", "DEMO", "-t", "Nope"); !errors.Is(err, errNotLoggedIn) {
		t.Fatalf("expected errNotLoggedIn, got %v", err)
	}
	w.mustRun("login", "user-3")
	w.mustRun("logout")
	if _, err := w.run("whoami"); !errors.Is(err, errNotLoggedIn) {
		t.Fatalf("expected errNotLoggedIn after logout, got %v", err)
	}
	if _, err := w.run("login", "user-99"); !errors.Is(err, app.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown user, got %v", err)
	}
}

func TestRunViewerCannotDelete(t *testing.T) {
	w := newWorkspace(t, config.BackendSQLite)
	w.mustRun("login", "user-4")
	if _, err := w.run("issue", "delete", "DEMO-101"); !errors.Is(err, app.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if _, err := w.run("project", "delete", "DEMO"); !errors.Is(err, app.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied for project delete, got %v", err)
	}
	out := w.mustRun("issue", "show", "DEMO-101")
	if !strings.Contains(out, "DEMO-101") {
		t.Fatalf("expected issue to survive, got %q", out)
	}
}

func TestRunSprintAndBoardCommands(t *testing.T) {
	w := newWorkspace(t, config.BackendBadger)
	w.mustRun("login", "user-1")
	out := w.mustRun("sprint", "list", "DEMO")
	if !strings.Contains(out, "sprint-1") || !strings.Contains(out, "active") {
		t.Fatalf("expected demo sprints, got %q", out)
	}
	out = w.mustRun("sprint", "complete", "sprint-1")
	if !strings.Contains(out, "returned to the backlog") {
		t.Fatalf("unexpected complete output %q", out)
	}
	w.mustRun("sprint", "start", "sprint-2")
	if _, err := w.run("sprint", "start", "sprint-2"); !errors.Is(err, domain.ErrInvalidSprintStatus) {
		t.Fatalf("expected ErrInvalidSprintStatus, got %v", err)
	}

	w.mustRun("project", "create", "--key", "OPS", "--name", "Ops", "--type", "Kanban")
	if _, err := w.run("sprint", "create", "-p", "OPS", "--name", "S1"); !errors.Is(err, app.ErrSprintsDisabled) {
		t.Fatalf("expected ErrSprintsDisabled, got %v", err)
	}
	w.mustRun("project", "wip", "OPS", "in-progress", "1")
	out = w.mustRun("issue", "board", "OPS")
	if !strings.Contains(out, "In Progress (0/1)") {
		t.Fatalf("expected wip limit in board header, got %q", out)
	}
}

func TestRunAutomationCommands(t *testing.T) {
	w := newWorkspace(t, config.BackendSQLite)
	w.mustRun("login", "user-2")
	if _, err := w.run("automation", "create", "-p", "DEMO", "--name", "x", "--trigger", "issue_created", "--action", "add_comment"); !errors.Is(err, app.ErrPermissionDenied) {
		t.Fatalf("expected member to be denied, got %v", err)
	}

	w.mustRun("login", "user-1")
	w.mustRun("automation", "create", "-p", "DEMO", "--name", "Escalate bugs", "--trigger", "issue_created", "--condition", "type = Bug", "--action", "set_priority_high")
	out := w.mustRun("automation", "list", "DEMO")
	if !strings.Contains(out, "Escalate bugs") {
		t.Fatalf("expected rule in list, got %q", out)
	}
	out = w.mustRun("issue", "create", "-p", "DEMO", "-t", "Crash on save", "--type", "bug", "--priority", "low")
	key := strings.Fields(out)[2]
	out = w.mustRun("issue", "show", key)
	if !strings.Contains(out, "High") {
		t.Fatalf("expected automation to raise priority, got %q", out)
	}
}

func TestRunFiltersAndDashboard(t *testing.T) {
	w := newWorkspace(t, config.BackendSQLite)
	w.mustRun("login", "user-1")
	out := w.mustRun("filter", "save", "Open bugs", `type = Bug AND status = "To Do"`, "--jql", "--favorite")
	id := strings.Fields(out)[len(strings.Fields(out))-1]
	out = w.mustRun("filter", "list")
	if !strings.Contains(out, "Open bugs") {
		t.Fatalf("expected saved filter, got %q", out)
	}
	if _, err := w.run("filter", "run", id, "-p", "DEMO"); err != nil {
		t.Fatalf("filter run error = %v", err)
	}

	out = w.mustRun("dashboard")
	if !strings.Contains(out, string(domain.GadgetAssignedToMe)) {
		t.Fatalf("expected default gadgets, got %q", out)
	}
	w.mustRun("dashboard", "set", "workload", "recent_issues")
	out = w.mustRun("dashboard")
	if strings.Contains(out, string(domain.GadgetAssignedToMe)) || !strings.Contains(out, "workload") {
		t.Fatalf("expected saved layout, got %q", out)
	}
}

func TestRunExportImportAcrossBackends(t *testing.T) {
	src := newWorkspace(t, config.BackendSQLite)
	src.mustRun("login", "user-1")
	src.mustRun("issue", "create", "-p", "DEMO", "-t", "Exported issue")
	snapPath := filepath.Join(t.TempDir(), "out", "snapshot.json")
	src.mustRun("export", "--out", snapPath)

	content, err := os.ReadFile(snapPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var snap app.Snapshot
	if err := json.Unmarshal(content, &snap); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if snap.Version != app.SnapshotVersion || len(snap.Issues) == 0 {
		t.Fatalf("unexpected snapshot header %q with %d issues", snap.Version, len(snap.Issues))
	}

	dst := newWorkspace(t, config.BackendBadger)
	dst.mustRun("reset")
	dst.mustRun("import", "--in", snapPath)
	out := dst.mustRun("issue", "list", "-p", "DEMO", "--jql", `title = "Exported issue"`)
	if !strings.Contains(out, "Exported issue") {
		t.Fatalf("expected imported issue, got %q", out)
	}
	out = dst.mustRun("doctor")
	if !strings.Contains(out, "badger") || !strings.Contains(out, "push: true") {
		t.Fatalf("unexpected doctor output %q", out)
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte(`{"projects":[{"id":"p"}]}`), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := dst.run("import", "--in", bad); !errors.Is(err, app.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for invalid snapshot, got %v", err)
	}
}

func TestRunExportToStdout(t *testing.T) {
	w := newWorkspace(t, config.BackendSQLite)
	out := w.mustRun("export")
	if !strings.Contains(out, `"version": "`+app.SnapshotVersion+`"`) {
		t.Fatalf("expected snapshot json on stdout, got %q", out)
	}
	if _, err := w.run("import"); err == nil {
		t.Fatal("expected missing --in error")
	}
}

func TestRunConfigAndDBEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "env.toml")
	dbPath := filepath.Join(dir, "env.db")
	if err := os.WriteFile(cfgPath, []byte("[seed]\non_first_run = true\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("ISSUEDECK_CONFIG", cfgPath)
	t.Setenv("ISSUEDECK_DB_PATH", dbPath)

	if err := run(context.Background(), []string{"doctor"}, nil, &bytes.Buffer{}, nil); err != nil {
		t.Fatalf("run(doctor) error = %v", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected env db path to be created, stat error %v", err)
	}
}

func TestRunRejectsInvalidLoggingLevelFromConfig(t *testing.T) {
	w := newWorkspace(t, config.BackendSQLite)
	if err := os.WriteFile(w.configPath(), []byte("[logging]\nlevel = \"chatty\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := w.run("project", "list"); err == nil || !strings.Contains(err.Error(), "logging.level") {
		t.Fatalf("expected logging level error, got %v", err)
	}
}

func TestRunRejectsUnknownBackend(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"--config", filepath.Join(t.TempDir(), "c.toml"), "--backend", "mongo", "doctor"}, nil, &out, nil)
	if err == nil || !strings.Contains(err.Error(), "database.backend") {
		t.Fatalf("expected backend validation error, got %v", err)
	}
}

func TestRunDevModeCreatesWorkspaceLogFile(t *testing.T) {
	w := newWorkspace(t, config.BackendSQLite)
	logDir := filepath.Join(w.dir, "logs")
	content := "[logging]\nlevel = \"debug\"\n\n[logging.dev_file]\nenabled = true\ndir = \"" + filepath.ToSlash(logDir) + "\"\n"
	if err := os.WriteFile(w.configPath(), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := w.run("--dev", "--app", "issuedeck-devtest", "project", "list"); err != nil {
		t.Fatalf("run(--dev) error = %v", err)
	}
	entries, err := os.ReadDir(logDir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 || !strings.HasPrefix(entries[0].Name(), "issuedeck-devtest-") {
		t.Fatalf("expected one dev log file, got %v", entries)
	}
	logged, err := os.ReadFile(filepath.Join(logDir, entries[0].Name()))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(logged), "demo data seeded") {
		t.Fatalf("expected service events in dev log, got %q", logged)
	}
}

func TestDevLogFilePathResolvesAgainstWorkspaceRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "go.mod"), []byte("module x\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if got := workspaceRootFrom(nested); got != root {
		t.Fatalf("workspaceRootFrom() = %q, want %q", got, root)
	}

	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	abs := filepath.Join(root, "logs")
	got, err := devLogFilePath(abs, "my app", now)
	if err != nil {
		t.Fatalf("devLogFilePath() error = %v", err)
	}
	if want := filepath.Join(abs, "my-app-20260304.log"); got != want {
		t.Fatalf("devLogFilePath() = %q, want %q", got, want)
	}
}

func TestSanitizeLogFileStem(t *testing.T) {
	cases := map[string]string{
		"issuedeck":  "issuedeck",
		" a/b:c ":    "a-b-c",
		"///":        "issuedeck",
		"":           "issuedeck",
		"my app dev": "my-app-dev",
	}
	for in, want := range cases {
		if got := sanitizeLogFileStem(in); got != want {
			t.Fatalf("sanitizeLogFileStem(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	cases := map[string]domain.IssueStatus{
		"todo":        "",
		"to-do":       domain.StatusToDo,
		"IN_PROGRESS": domain.StatusInProgress,
		"in review":   domain.StatusInReview,
		" Done ":      domain.StatusDone,
	}
	for in, want := range cases {
		got, err := parseStatus(in)
		if want == "" {
			if !errors.Is(err, app.ErrInvalidInput) {
				t.Fatalf("parseStatus(%q) error = %v, want ErrInvalidInput", in, err)
			}
			continue
		}
		if err != nil || got != want {
			t.Fatalf("parseStatus(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
}

func TestParseBoolEnv(t *testing.T) {
	t.Setenv("ISSUEDECK_TEST_BOOL", "true")
	if v, ok := parseBoolEnv("ISSUEDECK_TEST_BOOL"); !ok || !v {
		t.Fatalf("parseBoolEnv() = %t, %t", v, ok)
	}
	t.Setenv("ISSUEDECK_TEST_BOOL", "nope")
	if _, ok := parseBoolEnv("ISSUEDECK_TEST_BOOL"); ok {
		t.Fatal("expected invalid bool to be ignored")
	}
}

// stubCounter counts every table as its name length, failing for one name.
type stubCounter struct {
	fail string
}

func (s stubCounter) Count(_ context.Context, name string) (int, error) {
	if name == s.fail {
		return 0, errors.New("boom")
	}
	return len(name), nil
}

func TestCountTablesKeepsOrderAndReportsErrors(t *testing.T) {
	counts, err := countTables(context.Background(), stubCounter{}, app.Tables)
	if err != nil {
		t.Fatalf("countTables() error = %v", err)
	}
	for idx, table := range app.Tables {
		if counts[idx] != len(table) {
			t.Fatalf("counts[%d] = %d, want %d", idx, counts[idx], len(table))
		}
	}
	if _, err := countTables(context.Background(), stubCounter{fail: string(app.TableIssues)}, app.Tables); err == nil || !strings.Contains(err.Error(), "issues") {
		t.Fatalf("expected issues count error, got %v", err)
	}
}
