package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/basket/go-t/internal/otel"
)

// ErrInvalidConfig wraps every config.yaml validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Save modes.
const (
	SaveTruncate = "truncate"
	SaveAtomic   = "atomic"
)

//go:embed schema.json
var schemaJSON string

type Config struct {
	HomeDir string `yaml:"-"`

	// TaskDir holds list files. Relative paths resolve against the working directory.
	TaskDir     string `yaml:"task_dir"`
	DefaultList string `yaml:"default_list"`
	LogLevel    string `yaml:"log_level"`

	// SaveMode is "truncate" (rewrite in place) or "atomic" (temp file + rename).
	SaveMode      string `yaml:"save_mode"`
	DeleteIfEmpty bool   `yaml:"delete_if_empty"`
	Journal       bool   `yaml:"journal"`

	OTel otel.Config `yaml:"otel"`
}

// ConfigPath returns the path to config.yaml within the given home directory.
func ConfigPath(homeDir string) string {
	return filepath.Join(homeDir, "config.yaml")
}

func defaultConfig() Config {
	return Config{
		TaskDir:     ".",
		DefaultList: "tasks",
		LogLevel:    "info",
		SaveMode:    SaveTruncate,
		Journal:     true,
		OTel: otel.Config{
			Exporter: "stdout",
		},
	}
}

func HomeDir() string {
	if override := os.Getenv("T_HOME"); override != "" {
		return override
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".t")
}

func Load() (Config, error) {
	return LoadFrom(HomeDir())
}

// LoadFrom loads config.yaml from homeDir, creating the directory if needed.
// A missing config.yaml yields the defaults.
func LoadFrom(homeDir string) (Config, error) {
	cfg := defaultConfig()
	cfg.HomeDir = homeDir

	if err := os.MkdirAll(cfg.HomeDir, 0o755); err != nil {
		return cfg, fmt.Errorf("create t home: %w", err)
	}

	data, err := os.ReadFile(ConfigPath(cfg.HomeDir))
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("read config.yaml: %w", err)
	}
	if len(data) > 0 {
		raw := make(map[string]any)
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return cfg, fmt.Errorf("parse config.yaml: %w", err)
		}
		if len(raw) > 0 {
			if err := validateRaw(raw); err != nil {
				return cfg, err
			}
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config.yaml: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	normalize(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ListPath returns the file for list name inside the configured task dir.
func (c Config) ListPath(name string) string {
	return filepath.Join(c.TaskDir, name)
}

// loadRawConfig reads config.yaml into a generic map, returning an empty map if the file doesn't exist.
func loadRawConfig(path string) (map[string]any, error) {
	raw := make(map[string]any)
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config.yaml: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse config.yaml: %w", err)
		}
	}
	if raw == nil {
		raw = make(map[string]any)
	}
	return raw, nil
}

// saveRawConfig marshals and writes a generic map back to config.yaml.
func saveRawConfig(path string, raw map[string]any) error {
	out, err := yaml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("marshal config.yaml: %w", err)
	}
	return os.WriteFile(path, out, 0o644)
}

// Set updates a single top-level key in config.yaml, preserving other
// settings. The value is parsed as YAML so "true" and "0.5" keep their types.
// The file is left untouched if the result would not validate.
func Set(homeDir, key, value string) error {
	path := ConfigPath(homeDir)
	raw, err := loadRawConfig(path)
	if err != nil {
		return err
	}

	var v any
	if err := yaml.Unmarshal([]byte(value), &v); err != nil || v == nil {
		v = value
	}
	parent, leaf := raw, key
	if section, sub, ok := strings.Cut(key, "."); ok {
		m, _ := raw[section].(map[string]any)
		if m == nil {
			m = make(map[string]any)
		}
		raw[section] = m
		parent, leaf = m, sub
	}
	parent[leaf] = v

	if err := validateRaw(raw); err != nil {
		return err
	}
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		return fmt.Errorf("create t home: %w", err)
	}
	return saveRawConfig(path, raw)
}

// validateRaw checks a decoded config.yaml document against the embedded schema.
func validateRaw(raw map[string]any) error {
	schema, err := compileSchema()
	if err != nil {
		return err
	}
	// Round-trip through JSON so the validator sees json.Number and []any.
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func compileSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal config schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("config.schema.json", doc); err != nil {
		return nil, fmt.Errorf("add config schema: %w", err)
	}
	schema, err := c.Compile("config.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile config schema: %w", err)
	}
	return schema, nil
}

func normalize(cfg *Config) {
	cfg.TaskDir = expandHome(strings.TrimSpace(cfg.TaskDir))
	if cfg.TaskDir == "" {
		cfg.TaskDir = "."
	}
	cfg.DefaultList = strings.TrimSpace(cfg.DefaultList)
	if cfg.DefaultList == "" {
		cfg.DefaultList = "tasks"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	cfg.SaveMode = strings.ToLower(strings.TrimSpace(cfg.SaveMode))
	if cfg.SaveMode == "" {
		cfg.SaveMode = SaveTruncate
	}
}

// validate covers values that bypass the schema, i.e. environment overrides.
func validate(cfg Config) error {
	switch cfg.SaveMode {
	case SaveTruncate, SaveAtomic:
	default:
		return fmt.Errorf("%w: save_mode %q (supported: truncate, atomic)", ErrInvalidConfig, cfg.SaveMode)
	}
	if err := ValidateListName(cfg.DefaultList); err != nil {
		return fmt.Errorf("default_list: %w", err)
	}
	return nil
}

// ValidateListName rejects list names that would resolve outside the task dir.
func ValidateListName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: list name %q must be a plain file name", ErrInvalidConfig, name)
	}
	return nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

func applyEnvOverrides(cfg *Config) {
	if raw := os.Getenv("T_TASKDIR"); raw != "" {
		cfg.TaskDir = raw
	}
	if raw := os.Getenv("T_LIST"); raw != "" {
		cfg.DefaultList = raw
	}
	if raw := os.Getenv("T_LOG_LEVEL"); raw != "" {
		cfg.LogLevel = raw
	}
	if raw := os.Getenv("T_SAVE_MODE"); raw != "" {
		cfg.SaveMode = raw
	}
	if raw := os.Getenv("T_OTEL"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			cfg.OTel.Enabled = v
		}
	}
}
