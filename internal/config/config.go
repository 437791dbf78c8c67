// Package config loads and saves the workspace runtime configuration (YAML).
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"go.yaml.in/yaml/v3"

	"codeworkspace/internal/atomicfile"
)

const maxConfigFileBytes int64 = 1 << 20 // 1MB

// Storage backends understood by blobstore.Open.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
)

var userHomeDirFn = os.UserHomeDir

// Config is the workspace runtime configuration.
type Config struct {
	Storage  StorageConfig  `yaml:"storage" json:"storage"`
	Template TemplateConfig `yaml:"template" json:"template"`
	VFS      VFSConfig      `yaml:"vfs" json:"vfs"`
	Server   ServerConfig   `yaml:"server" json:"server"`
	Log      LogConfig      `yaml:"log" json:"log"`
}

// StorageConfig selects where the project collection lives.
// Path is used by file and sqlite, DSN by postgres, S3 by s3. Path is always
// written because its default is not empty.
type StorageConfig struct {
	Backend string   `yaml:"backend" json:"backend"`
	Path    string   `yaml:"path" json:"path,omitempty"`
	DSN     string   `yaml:"dsn,omitempty" json:"dsn,omitempty"`
	Key     string   `yaml:"key" json:"key"`
	S3      S3Config `yaml:"s3,omitempty" json:"s3,omitempty"`
}

// S3Config holds S3/MinIO connection settings.
type S3Config struct {
	Endpoint  string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Bucket    string `yaml:"bucket,omitempty" json:"bucket,omitempty"`
	Region    string `yaml:"region,omitempty" json:"region,omitempty"`
	Prefix    string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	AccessKey string `yaml:"access_key,omitempty" json:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty" json:"secret_key,omitempty"`
}

// TemplateConfig describes where new-project seed files come from.
// Dir wins over URL when both are set; neither means new projects start empty.
type TemplateConfig struct {
	Dir   string   `yaml:"dir,omitempty" json:"dir,omitempty"`
	URL   string   `yaml:"url,omitempty" json:"url,omitempty"`
	Watch bool     `yaml:"watch" json:"watch"`
	Skip  []string `yaml:"skip" json:"skip"`
}

// VFSConfig holds namespace rules for project trees.
type VFSConfig struct {
	// AllowDuplicateNames keeps the permissive namespace where siblings may
	// share a name.
	AllowDuplicateNames bool `yaml:"allow_duplicate_names" json:"allow_duplicate_names"`
}

// ServerConfig configures `workspacectl serve`.
type ServerConfig struct {
	Addr    string `yaml:"addr" json:"addr"`
	Metrics bool   `yaml:"metrics" json:"metrics"`
}

// LogConfig sets the slog level (debug, info, warn, error).
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

// DefaultSkip lists template entries never copied into a seed.
func DefaultSkip() []string {
	return []string{".git", "node_modules", "build", ".github"}
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Storage: StorageConfig{
			Backend: BackendFile,
			Path:    filepath.Join(filepath.Dir(DefaultPath()), "projects.json"),
			Key:     "codeworkspace-projects",
		},
		Template: TemplateConfig{
			Watch: true,
			Skip:  DefaultSkip(),
		},
		VFS: VFSConfig{AllowDuplicateNames: true},
		Server: ServerConfig{
			Addr:    "127.0.0.1:0",
			Metrics: true,
		},
		Log: LogConfig{Level: "info"},
	}
}

// DefaultPath resolves the config file path: $XDG_CONFIG_HOME, then
// ~/.config, then os.TempDir() when the home directory is unavailable.
func DefaultPath() string {
	base := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME"))
	if base == "" {
		home, err := userHomeDirFn()
		if err != nil {
			slog.Warn("[WARN-CONFIG] using temp dir as config path fallback", "error", err)
			base = os.TempDir()
		} else {
			base = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(base, "codeworkspace", "config.yaml")
}

// Load reads the config file. A missing or empty file yields defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, errors.New("config path required")
	}

	raw, err := readLimitedFile(path, maxConfigFileBytes)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if len(raw) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		slog.Warn("[WARN-CONFIG] failed to parse config, using defaults", "path", path, "error", err)
		return DefaultConfig(), err
	}
	if err := applyDefaultsAndValidate(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save validates cfg, fills defaults and atomically writes it to path.
// Returns the normalized config that was written.
func Save(path string, cfg Config) (Config, error) {
	if strings.TrimSpace(path) == "" {
		return cfg, errors.New("config path required")
	}
	if err := applyDefaultsAndValidate(&cfg); err != nil {
		return cfg, fmt.Errorf("save config: %w", err)
	}
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return cfg, fmt.Errorf("save config: marshal: %w", err)
	}
	if err := atomicfile.Write(path, raw, 0o600); err != nil {
		return cfg, fmt.Errorf("save config: %w", err)
	}
	slog.Debug("[DEBUG-CONFIG] config saved", "path", path)
	return cfg, nil
}

// EnsureFile writes the default config if missing and returns the loaded config.
func EnsureFile(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		if _, err := Save(path, cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// Clone returns a deep copy of src.
func Clone(src Config) Config {
	dst := src
	if src.Template.Skip != nil {
		dst.Template.Skip = append([]string(nil), src.Template.Skip...)
	}
	return dst
}

// SlogLevel maps the configured level name to a slog.Level.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.Level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// applyDefaultsAndValidate fills missing defaults and validates cfg in place.
// Used by both Load and Save.
func applyDefaultsAndValidate(cfg *Config) error {
	defaults := DefaultConfig()
	if reflect.DeepEqual(*cfg, Config{}) {
		*cfg = defaults
		return nil
	}

	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = defaults.Storage.Backend
	}
	if strings.TrimSpace(cfg.Storage.Key) == "" {
		cfg.Storage.Key = defaults.Storage.Key
	}
	if err := validateStorage(cfg.Storage); err != nil {
		return err
	}
	if cfg.Template.Skip == nil {
		cfg.Template.Skip = defaults.Template.Skip
	}
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		cfg.Server.Addr = defaults.Server.Addr
	}
	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	return validateLogLevel(cfg.Log.Level)
}

func validateStorage(s StorageConfig) error {
	switch s.Backend {
	case BackendMemory:
		return nil
	case BackendFile, BackendSQLite:
		if strings.TrimSpace(s.Path) == "" {
			return fmt.Errorf("storage.path required for %s backend", s.Backend)
		}
		return nil
	case BackendPostgres:
		if strings.TrimSpace(s.DSN) == "" {
			return errors.New("storage.dsn required for postgres backend")
		}
		return nil
	case BackendS3:
		if strings.TrimSpace(s.S3.Bucket) == "" {
			return errors.New("storage.s3.bucket required for s3 backend")
		}
		return nil
	default:
		return fmt.Errorf("unknown storage backend: %q", s.Backend)
	}
}

func validateLogLevel(level string) error {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("unknown log level: %q", level)
	}
}

func readLimitedFile(path string, maxBytes int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > maxBytes {
		return nil, fmt.Errorf("config file exceeds %d bytes", maxBytes)
	}
	return raw, nil
}
