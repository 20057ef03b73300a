package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/evanschultz/issuedeck/internal/adapters/storage/badgerkv"
	"github.com/evanschultz/issuedeck/internal/adapters/storage/sqlite"
	"github.com/evanschultz/issuedeck/internal/app"
	"github.com/evanschultz/issuedeck/internal/config"
	"github.com/evanschultz/issuedeck/internal/platform"
	"github.com/evanschultz/issuedeck/internal/seed"
	"github.com/google/uuid"
)

// version stores a package-level helper value.
var version = "dev"

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// run builds the command tree and executes args against it.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if stdin == nil {
		stdin = strings.NewReader("")
	}
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	rt := &runtime{
		stderr: stderr,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	defer func() {
		_ = rt.close()
	}()

	root := newRootCmd(rt)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	dbPath     string
	backend    string
	appName    string
	devMode    bool
}

// runtime carries the resolved config, logger and service for one invocation.
type runtime struct {
	opts   rootOptions
	stderr io.Writer
	now    func() time.Time
	newID  func() string

	paths  platform.Paths
	cfg    config.Config
	logger *runtimeLogger
	repo   app.Repository
	svc    *app.Service
}

// resolvePaths applies the app name and dev mode flags to platform defaults.
func (rt *runtime) resolvePaths() error {
	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: rt.opts.appName,
		DevMode: rt.opts.devMode,
	})
	if err != nil {
		return err
	}
	rt.paths = paths
	return nil
}

// loadConfig resolves the config file and applies env and flag overrides.
func (rt *runtime) loadConfig() error {
	configPath := strings.TrimSpace(rt.opts.configPath)
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("ISSUEDECK_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = rt.paths.ConfigPath
		}
	}
	rt.opts.configPath = configPath

	cfg, err := config.Load(configPath, config.Default(rt.paths.DBPath, rt.paths.BadgerDir))
	if err != nil {
		return fmt.Errorf("load config %q: %w", configPath, err)
	}
	if backend := strings.ToLower(strings.TrimSpace(rt.opts.backend)); backend != "" {
		cfg.Database.Backend = config.Backend(backend)
	}
	dbPath := strings.TrimSpace(rt.opts.dbPath)
	if dbPath == "" {
		dbPath = strings.TrimSpace(os.Getenv("ISSUEDECK_DB_PATH"))
	}
	if dbPath != "" {
		switch cfg.Database.Backend {
		case config.BackendBadger:
			cfg.Database.BadgerDir = dbPath
		default:
			cfg.Database.Path = dbPath
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config %q: %w", configPath, err)
	}
	rt.cfg = cfg
	return nil
}

// open wires the logger, repository and service. It is a no-op when already open.
func (rt *runtime) open(ctx context.Context) error {
	if rt.svc != nil {
		return nil
	}
	if err := rt.resolvePaths(); err != nil {
		return err
	}
	if err := rt.loadConfig(); err != nil {
		return err
	}

	logger, err := newRuntimeLogger(rt.stderr, rt.opts.appName, rt.opts.devMode, rt.cfg.Logging, rt.now)
	if err != nil {
		return fmt.Errorf("configure runtime logger: %w", err)
	}
	rt.logger = logger
	if path := logger.DevLogPath(); path != "" {
		logger.Debug("dev file logging enabled", "path", path)
	}

	repo, err := rt.openRepository()
	if err != nil {
		logger.Error("storage open failed", "backend", rt.cfg.Database.Backend, "path", rt.cfg.StoragePath(), "err", err)
		return err
	}
	rt.repo = repo
	logger.Debug("storage opened", "backend", rt.cfg.Database.Backend, "path", rt.cfg.StoragePath(), "push", repo.SupportsPush())

	users, err := seed.Users()
	if err != nil {
		return fmt.Errorf("load user directory: %w", err)
	}
	rt.svc = app.NewService(repo, rt.newID, rt.now, app.ServiceConfig{
		KeyOffset: rt.cfg.Issues.KeyOffset,
		Users:     users,
		Logger:    logger.ServiceLogger(),
	})

	if rt.cfg.Seed.OnFirstRun {
		initialized, err := rt.svc.IsInitialized(ctx)
		if err != nil {
			return fmt.Errorf("read initialization state: %w", err)
		}
		if !initialized {
			logger.Info("first run, seeding demo data")
			if _, err := rt.svc.SeedDemo(ctx); err != nil {
				return fmt.Errorf("first-run seed: %w", err)
			}
		}
	}
	return nil
}

// openRepository opens the configured storage backend.
func (rt *runtime) openRepository() (app.Repository, error) {
	switch rt.cfg.Database.Backend {
	case config.BackendBadger:
		repo, err := badgerkv.Open(badgerkv.Config{
			Dir:    rt.cfg.Database.BadgerDir,
			Logger: rt.logger.ServiceLogger(),
		})
		if err != nil {
			return nil, fmt.Errorf("open badger store: %w", err)
		}
		return repo, nil
	case config.BackendSQLite:
		repo, err := sqlite.Open(rt.cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", rt.cfg.Database.Backend)
	}
}

// close releases the repository and the dev log file.
func (rt *runtime) close() error {
	var errs []error
	if rt.repo != nil {
		errs = append(errs, rt.repo.Close())
		rt.repo = nil
		rt.svc = nil
	}
	if rt.logger != nil {
		errs = append(errs, rt.logger.Close())
		rt.logger = nil
	}
	return errors.Join(errs...)
}

// parseBoolEnv parses input into a normalized form.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
