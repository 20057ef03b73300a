package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	toml "github.com/pelletier/go-toml/v2"
)

// Backend names one storage adapter.
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendBadger Backend = "badger"
)

// DefaultKeyOffset matches the first issue number handed out in a fresh project.
const DefaultKeyOffset = 101

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
	Issues   IssuesConfig   `toml:"issues"`
	Seed     SeedConfig     `toml:"seed"`
}

type DatabaseConfig struct {
	Backend   Backend `toml:"backend"`
	Path      string  `toml:"path"`
	BadgerDir string  `toml:"badger_dir"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

// DevFileConfig controls the optional logfmt file sink used in dev mode.
type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type IssuesConfig struct {
	KeyOffset int `toml:"key_offset"`
}

type SeedConfig struct {
	OnFirstRun bool `toml:"on_first_run"`
}

func Default(dbPath, badgerDir string) Config {
	return Config{
		Database: DatabaseConfig{
			Backend:   BackendSQLite,
			Path:      dbPath,
			BadgerDir: badgerDir,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".issuedeck/log",
			},
		},
		Issues: IssuesConfig{
			KeyOffset: DefaultKeyOffset,
		},
		Seed: SeedConfig{
			OnFirstRun: true,
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}
	cfg.Database.Backend = Backend(strings.ToLower(strings.TrimSpace(string(cfg.Database.Backend))))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Database.Backend {
	case BackendSQLite:
		if strings.TrimSpace(c.Database.Path) == "" {
			return errors.New("database.path is required for the sqlite backend")
		}
	case BackendBadger:
		if strings.TrimSpace(c.Database.BadgerDir) == "" {
			return errors.New("database.badger_dir is required for the badger backend")
		}
	default:
		return fmt.Errorf("invalid database.backend: %q", c.Database.Backend)
	}

	if _, err := log.ParseLevel(strings.TrimSpace(c.Logging.Level)); err != nil {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}
	if c.Issues.KeyOffset < 0 {
		return fmt.Errorf("issues.key_offset must be >= 0, got %d", c.Issues.KeyOffset)
	}
	return nil
}

// StoragePath returns the location the configured backend reads and writes.
func (c Config) StoragePath() string {
	if c.Database.Backend == BackendBadger {
		return c.Database.BadgerDir
	}
	return c.Database.Path
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
