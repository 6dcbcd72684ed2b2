// cliparse/cliparse_test.go
package cliparse

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

// clearEnv unsets every variable ParseFlags reads, restoring them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"PORT", "ASKANY_STORE", "ASKANY_CONFIG", "REDIS_HOST", "REDIS_PORT", "REDIS_ADDR",
		"REDIS_PASSWORD", "REDIS_DB", "STORE_TIMEOUT", "DATABASE_TYPE", "DATABASE_URL",
		"STATS_FILE", "RETENTION_WINDOW", "RETENTION_CRON", "STATS_SYNC_CRON",
		"DAILY_STATS_CRON", "STARS_REPO", "STARS_REFRESH", "CORS_ORIGINS", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestParseFlags_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 5001 {
		t.Errorf("expected port 5001, got %d", cfg.Port)
	}
	if cfg.Store != StoreRedis || cfg.RedisAddr != "localhost:6379" {
		t.Errorf("unexpected store defaults: %s %s", cfg.Store, cfg.RedisAddr)
	}
	if cfg.DatabaseURL != defaultSQLiteURL {
		t.Errorf("expected sqlite default URL, got %q", cfg.DatabaseURL)
	}
	if cfg.RetentionWindow != 7*24*time.Hour {
		t.Errorf("expected 7 day retention, got %v", cfg.RetentionWindow)
	}
	if !reflect.DeepEqual(cfg.CORSOrigins, []string{"http://localhost:3000"}) {
		t.Errorf("unexpected CORS origins %v", cfg.CORSOrigins)
	}
}

func TestParseFlags_EnvVars(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("STORE_TIMEOUT", "750ms")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.RedisAddr != "cache:6380" {
		t.Errorf("expected cache:6380, got %s", cfg.RedisAddr)
	}
	if cfg.StoreTimeout != 750*time.Millisecond {
		t.Errorf("expected 750ms, got %v", cfg.StoreTimeout)
	}
	if !reflect.DeepEqual(cfg.CORSOrigins, []string{"https://a.example", "https://b.example"}) {
		t.Errorf("unexpected CORS origins %v", cfg.CORSOrigins)
	}

	t.Setenv("REDIS_ADDR", "redis.internal:6379")
	cfg, err = ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RedisAddr != "redis.internal:6379" {
		t.Errorf("REDIS_ADDR should win over REDIS_HOST, got %s", cfg.RedisAddr)
	}
}

func TestParseFlags_CLIOverridesEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("ASKANY_STORE", "redis")

	cfg, err := ParseFlags([]string{"-p", "8080", "-store", "memory", "-cors-origins", "https://x.example"})
	if err != nil {
		t.Fatal(err)
	}

	// CLI should override env
	if cfg.Port != 8080 {
		t.Errorf("CLI should override env: expected 8080, got %d", cfg.Port)
	}
	if cfg.Store != StoreMemory {
		t.Errorf("CLI should override env: expected memory, got %s", cfg.Store)
	}
	if !reflect.DeepEqual(cfg.CORSOrigins, []string{"https://x.example"}) {
		t.Errorf("unexpected CORS origins %v", cfg.CORSOrigins)
	}
}

func TestParseFlags_ConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "askany.toml")
	content := `
port = 7000
store = "memory"
retention_window = "48h"
stats_file = "/var/lib/askany/stats.json"
cors_origins = ["https://ama.example"]
log_format = "json"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := ParseFlags([]string{"-config", path})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 7000 || cfg.Store != StoreMemory || cfg.LogFormat != "json" {
		t.Errorf("config file not applied: %+v", cfg)
	}
	if cfg.RetentionWindow != 48*time.Hour {
		t.Errorf("expected 48h retention, got %v", cfg.RetentionWindow)
	}
	if cfg.RetentionCron != "0 0 4 * * *" {
		t.Errorf("unset keys should keep defaults, got %q", cfg.RetentionCron)
	}

	// Env beats the file, flags beat env.
	t.Setenv("ASKANY_CONFIG", path)
	t.Setenv("PORT", "7100")
	cfg, err = ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 7100 {
		t.Errorf("env should override file: expected 7100, got %d", cfg.Port)
	}
	cfg, err = ParseFlags([]string{"-p", "7200"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 7200 {
		t.Errorf("flag should override env: expected 7200, got %d", cfg.Port)
	}
}

func TestParseFlags_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
		want string
	}{
		{"bad port env", nil, map[string]string{"PORT": "abc"}, "invalid PORT"},
		{"unknown store", []string{"-store", "etcd"}, nil, "unknown store"},
		{"postgres without url", []string{"-t", "postgres"}, nil, "database URL required"},
		{"unknown database", []string{"-t", "mysql"}, nil, "unknown database type"},
		{"bad log level", []string{"-log-level", "loud"}, nil, "invalid log level"},
		{"bad log format", []string{"-log-format", "xml"}, nil, "unknown log format"},
		{"unknown flag", []string{"-nope"}, nil, "flag provided but not defined"},
		{"missing config file", []string{"-config", "/does/not/exist.toml"}, nil, "failed to read config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := ParseFlags(tt.args)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("PORT=6100\nREDIS_ADDR=dotenv:6379\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("REDIS_ADDR", "already-set:6379")

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("PORT") })

	cfg, err := ParseFlags(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 6100 {
		t.Errorf("expected port from .env, got %d", cfg.Port)
	}
	if cfg.RedisAddr != "already-set:6379" {
		t.Errorf(".env must not override the environment, got %s", cfg.RedisAddr)
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Defaults()
	cfg.LogFormat = "json"
	cfg.LogLevel = "warn"

	logger := cfg.Logger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "slug", "abc")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, `"slug":"abc"`) {
		t.Errorf("expected JSON output, got %s", out)
	}
}
