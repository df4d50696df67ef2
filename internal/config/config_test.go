package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/basket/go-t/internal/config"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	home := filepath.Join(t.TempDir(), "t-home")
	t.Setenv("T_HOME", home)
	for _, k := range []string{"T_TASKDIR", "T_LIST", "T_LOG_LEVEL", "T_SAVE_MODE", "T_OTEL"} {
		t.Setenv(k, "")
	}
	return home
}

func writeConfig(t *testing.T, home, body string) {
	t.Helper()
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(config.ConfigPath(home), []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestLoad_DefaultsWhenNoConfig(t *testing.T) {
	home := isolateEnv(t)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.HomeDir != home {
		t.Fatalf("expected home %q, got %q", home, cfg.HomeDir)
	}
	if _, err := os.Stat(home); err != nil {
		t.Fatalf("expected home dir to be created: %v", err)
	}
	if cfg.TaskDir != "." || cfg.DefaultList != "tasks" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.SaveMode != config.SaveTruncate {
		t.Fatalf("expected truncate save mode by default, got %q", cfg.SaveMode)
	}
	if !cfg.Journal {
		t.Fatal("expected journal enabled by default")
	}
	if cfg.OTel.Enabled {
		t.Fatal("expected otel disabled by default")
	}
}

func TestLoad_FromYAML(t *testing.T) {
	home := isolateEnv(t)
	writeConfig(t, home, strings.Join([]string{
		"task_dir: /srv/lists",
		"default_list: groceries",
		"log_level: debug",
		"save_mode: atomic",
		"delete_if_empty: true",
		"journal: false",
		"otel:",
		"  enabled: true",
		"  exporter: none",
		"  sample_rate: 0.25",
	}, "\n"))

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.TaskDir != "/srv/lists" || cfg.DefaultList != "groceries" || cfg.LogLevel != "debug" {
		t.Fatalf("yaml values not applied: %+v", cfg)
	}
	if cfg.SaveMode != config.SaveAtomic || !cfg.DeleteIfEmpty || cfg.Journal {
		t.Fatalf("yaml flags not applied: %+v", cfg)
	}
	if !cfg.OTel.Enabled || cfg.OTel.Exporter != "none" || cfg.OTel.SampleRate != 0.25 {
		t.Fatalf("otel section not applied: %+v", cfg.OTel)
	}
}

func TestLoad_CommentOnlyConfig(t *testing.T) {
	home := isolateEnv(t)
	writeConfig(t, home, "# nothing configured yet\n")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DefaultList != "tasks" {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoad_EnvOverridesConfig(t *testing.T) {
	home := isolateEnv(t)
	writeConfig(t, home, "default_list: groceries\ntask_dir: /a\n")
	t.Setenv("T_LIST", "work")
	t.Setenv("T_TASKDIR", "/b")
	t.Setenv("T_LOG_LEVEL", "warn")
	t.Setenv("T_SAVE_MODE", "ATOMIC")
	t.Setenv("T_OTEL", "true")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DefaultList != "work" || cfg.TaskDir != "/b" || cfg.LogLevel != "warn" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.SaveMode != config.SaveAtomic {
		t.Fatalf("expected normalized atomic save mode, got %q", cfg.SaveMode)
	}
	if !cfg.OTel.Enabled {
		t.Fatal("expected T_OTEL to enable telemetry")
	}
}

func TestLoad_ExpandsHomeInTaskDir(t *testing.T) {
	home := isolateEnv(t)
	userHome := t.TempDir()
	t.Setenv("HOME", userHome)
	writeConfig(t, home, "task_dir: ~/lists\n")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if want := filepath.Join(userHome, "lists"); cfg.TaskDir != want {
		t.Fatalf("expected %q, got %q", want, cfg.TaskDir)
	}
}

func TestLoad_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "unknown key", body: "worker_count: 4\n"},
		{name: "bad save mode", body: "save_mode: sometimes\n"},
		{name: "list with slash", body: "default_list: a/b\n"},
		{name: "wrong type", body: "journal: maybe\n"},
		{name: "sample rate out of range", body: "otel:\n  sample_rate: 2\n"},
		{name: "unknown exporter", body: "otel:\n  exporter: pigeon\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home := isolateEnv(t)
			writeConfig(t, home, tt.body)
			_, err := config.Load()
			if !errors.Is(err, config.ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoad_InvalidEnvSaveMode(t *testing.T) {
	isolateEnv(t)
	t.Setenv("T_SAVE_MODE", "yolo")
	if _, err := config.Load(); !errors.Is(err, config.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	home := isolateEnv(t)
	writeConfig(t, home, "default_list: [unterminated\n")
	_, err := config.Load()
	if err == nil || !strings.Contains(err.Error(), "parse config.yaml") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestHomeDir_DefaultsUnderUserHome(t *testing.T) {
	t.Setenv("T_HOME", "")
	userHome := t.TempDir()
	t.Setenv("HOME", userHome)
	if got, want := config.HomeDir(), filepath.Join(userHome, ".t"); got != want {
		t.Fatalf("HomeDir() = %q, want %q", got, want)
	}
}

func TestSet_WritesAndPreserves(t *testing.T) {
	home := isolateEnv(t)
	writeConfig(t, home, "default_list: groceries\n")

	if err := config.Set(home, "save_mode", "atomic"); err != nil {
		t.Fatalf("set save_mode: %v", err)
	}
	if err := config.Set(home, "otel.enabled", "true"); err != nil {
		t.Fatalf("set otel.enabled: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DefaultList != "groceries" {
		t.Fatalf("existing value lost: %+v", cfg)
	}
	if cfg.SaveMode != config.SaveAtomic || !cfg.OTel.Enabled {
		t.Fatalf("set values not applied: %+v", cfg)
	}
}

func TestSet_RejectsInvalidValue(t *testing.T) {
	home := isolateEnv(t)
	writeConfig(t, home, "default_list: groceries\n")

	err := config.Set(home, "save_mode", "sometimes")
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	raw, err := os.ReadFile(config.ConfigPath(home))
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if string(raw) != "default_list: groceries\n" {
		t.Fatalf("config changed despite invalid value: %q", raw)
	}
}

func TestSet_CreatesConfig(t *testing.T) {
	home := isolateEnv(t)
	if err := config.Set(home, "default_list", "inbox"); err != nil {
		t.Fatalf("set: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DefaultList != "inbox" {
		t.Fatalf("expected inbox, got %q", cfg.DefaultList)
	}
}

func TestListPath(t *testing.T) {
	cfg := config.Config{TaskDir: "/lists"}
	if got := cfg.ListPath("groceries"); got != filepath.Join("/lists", "groceries") {
		t.Fatalf("unexpected list path %q", got)
	}
}

func TestValidateListName(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
	}{
		{name: "tasks", ok: true},
		{name: ".hidden", ok: true},
		{name: "", ok: false},
		{name: ".", ok: false},
		{name: "..", ok: false},
		{name: "../x", ok: false},
		{name: `a\b`, ok: false},
	}
	for _, tt := range tests {
		err := config.ValidateListName(tt.name)
		if tt.ok && err != nil {
			t.Fatalf("ValidateListName(%q) = %v", tt.name, err)
		}
		if !tt.ok && !errors.Is(err, config.ErrInvalidConfig) {
			t.Fatalf("ValidateListName(%q) = %v, want ErrInvalidConfig", tt.name, err)
		}
	}
}
