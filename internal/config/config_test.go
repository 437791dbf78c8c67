package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestDefaultPath(t *testing.T) {
	t.Run("xdg config home", func(t *testing.T) {
		base := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", base)
		want := filepath.Join(base, "codeworkspace", "config.yaml")
		if got := DefaultPath(); got != want {
			t.Fatalf("DefaultPath() = %q, want %q", got, want)
		}
	})

	t.Run("home fallback", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		home := t.TempDir()
		original := userHomeDirFn
		userHomeDirFn = func() (string, error) { return home, nil }
		t.Cleanup(func() { userHomeDirFn = original })

		want := filepath.Join(home, ".config", "codeworkspace", "config.yaml")
		if got := DefaultPath(); got != want {
			t.Fatalf("DefaultPath() = %q, want %q", got, want)
		}
	})

	t.Run("temp dir fallback", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		original := userHomeDirFn
		userHomeDirFn = func() (string, error) { return "", errors.New("no home") }
		t.Cleanup(func() { userHomeDirFn = original })

		want := filepath.Join(os.TempDir(), "codeworkspace", "config.yaml")
		if got := DefaultPath(); got != want {
			t.Fatalf("DefaultPath() = %q, want %q", got, want)
		}
	})
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Fatalf("Load() = %+v, want defaults", cfg)
	}
}

func TestLoadRequiresPath(t *testing.T) {
	if _, err := Load("  "); err == nil {
		t.Fatal("Load(blank) should fail")
	}
}

func TestLoadOverridesAndKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
storage:
  backend: SQLite
  path: /tmp/projects.db
vfs:
  allow_duplicate_names: false
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Storage.Backend != BackendSQLite || cfg.Storage.Path != "/tmp/projects.db" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if cfg.Storage.Key != DefaultConfig().Storage.Key {
		t.Fatalf("storage.key = %q, want default", cfg.Storage.Key)
	}
	if cfg.VFS.AllowDuplicateNames {
		t.Fatal("allow_duplicate_names: false was not honored")
	}
	if !reflect.DeepEqual(cfg.Template.Skip, DefaultSkip()) {
		t.Fatalf("template.skip = %v, want defaults", cfg.Template.Skip)
	}
	if cfg.Log.SlogLevel() != slog.LevelDebug {
		t.Fatalf("SlogLevel() = %v, want debug", cfg.Log.SlogLevel())
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{name: "unknown backend", raw: "storage:\n  backend: floppy\n", wantErr: "unknown storage backend"},
		{name: "sqlite without path", raw: "storage:\n  backend: sqlite\n  path: \"\"\n", wantErr: "storage.path required"},
		{name: "postgres without dsn", raw: "storage:\n  backend: postgres\n", wantErr: "storage.dsn required"},
		{name: "s3 without bucket", raw: "storage:\n  backend: s3\n", wantErr: "storage.s3.bucket required"},
		{name: "bad log level", raw: "log:\n  level: loud\n", wantErr: "unknown log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.raw), 0o600); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMalformedYAMLReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("storage: [unclosed"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	cfg, err := Load(path)
	if err == nil {
		t.Fatal("Load() should report parse error")
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Fatal("Load() should fall back to defaults on parse error")
	}
}

func TestLoadRejectsOversizedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	big := "# " + strings.Repeat("x", int(maxConfigFileBytes)) + "\n"
	if err := os.WriteFile(path, []byte(big), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Fatalf("Load() error = %v, want size error", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := DefaultConfig()
	cfg.Storage = StorageConfig{
		Backend: BackendS3,
		S3:      S3Config{Endpoint: "http://127.0.0.1:9000", Bucket: "ws", Region: "us-east-1"},
	}
	cfg.Template.Dir = "/srv/template"

	saved, err := Save(path, cfg)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if saved.Storage.Key == "" {
		t.Fatal("Save() should fill the default key")
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(loaded, saved) {
		t.Fatalf("Load() = %+v\nwant %+v", loaded, saved)
	}
	if loaded.Storage.Path != "" {
		t.Fatalf("Load() storage.path = %q, want the saved empty path", loaded.Storage.Path)
	}
}

func TestSaveRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Storage.Backend = "tape"
	if _, err := Save(path, cfg); err == nil {
		t.Fatal("Save() should reject an unknown backend")
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("rejected config must not be written")
	}
}

func TestEnsureFileWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if _, err := EnsureFile(path); err != nil {
		t.Fatalf("EnsureFile() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("EnsureFile() did not create the file: %v", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	src := DefaultConfig()
	dst := Clone(src)
	dst.Template.Skip[0] = "changed"
	if src.Template.Skip[0] == "changed" {
		t.Fatal("Clone() shares the skip slice")
	}
}
