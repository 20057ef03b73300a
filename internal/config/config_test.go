package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default("/tmp/issuedeck.db", "/tmp/badger")
	if cfg.Database.Backend != BackendSQLite {
		t.Fatalf("unexpected backend %q", cfg.Database.Backend)
	}
	if cfg.Database.Path != "/tmp/issuedeck.db" {
		t.Fatalf("unexpected db path %q", cfg.Database.Path)
	}
	if cfg.Database.BadgerDir != "/tmp/badger" {
		t.Fatalf("unexpected badger dir %q", cfg.Database.BadgerDir)
	}
	if cfg.Issues.KeyOffset != DefaultKeyOffset {
		t.Fatalf("unexpected key offset %d", cfg.Issues.KeyOffset)
	}
	if !cfg.Seed.OnFirstRun {
		t.Fatal("expected first-run seeding enabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if got := cfg.StoragePath(); got != "/tmp/issuedeck.db" {
		t.Fatalf("StoragePath() = %q", got)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	defaults := Default("/tmp/issuedeck.db", "/tmp/badger")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"), defaults)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != defaults.Database.Path {
		t.Fatalf("expected default db path, got %q", cfg.Database.Path)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[database]
backend = "Badger"
badger_dir = "/custom/badger"

[logging]
level = "debug"

[logging.dev_file]
enabled = false

[issues]
key_offset = 1

[seed]
on_first_run = false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path, Default("/tmp/default.db", "/tmp/badger"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Backend != BackendBadger {
		t.Fatalf("unexpected backend %q", cfg.Database.Backend)
	}
	if got := cfg.StoragePath(); got != "/custom/badger" {
		t.Fatalf("StoragePath() = %q", got)
	}
	if cfg.Database.Path != "/tmp/default.db" {
		t.Fatalf("expected untouched sqlite path, got %q", cfg.Database.Path)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.DevFile.Enabled {
		t.Fatalf("unexpected logging config %#v", cfg.Logging)
	}
	if cfg.Logging.DevFile.Dir != ".issuedeck/log" {
		t.Fatalf("expected default dev log dir to survive, got %q", cfg.Logging.DevFile.Dir)
	}
	if cfg.Issues.KeyOffset != 1 || cfg.Seed.OnFirstRun {
		t.Fatalf("unexpected issues/seed config %#v %#v", cfg.Issues, cfg.Seed)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"backend": `
[database]
backend = "postgres"
`,
		"missing sqlite path": `
[database]
backend = "sqlite"
path = "  "
`,
		"missing badger dir": `
[database]
backend = "badger"
badger_dir = ""
`,
		"level": `
[logging]
level = "loud"
`,
		"key offset": `
[issues]
key_offset = -3
`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}
			if _, err := Load(path, Default("/tmp/default.db", "/tmp/badger")); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestEnsureConfigDir(t *testing.T) {
	target := filepath.Join(t.TempDir(), "a", "b", "config.toml")
	if err := EnsureConfigDir(target); err != nil {
		t.Fatalf("EnsureConfigDir() error = %v", err)
	}
	if _, err := os.Stat(filepath.Dir(target)); err != nil {
		t.Fatalf("expected dir to exist, stat error %v", err)
	}
}
