package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoader_Defaults(t *testing.T) {
	cfg, err := load(lookupFrom(nil))
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}

	if cfg.HTTPPort != 8080 {
		t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
	}
	if cfg.SQLite.DSN != "file:tms.db" || cfg.SQLite.BusyTimeout != 5*time.Second {
		t.Fatalf("unexpected SQLite defaults: %+v", cfg.SQLite)
	}
	if cfg.Location != time.UTC {
		t.Fatalf("expected UTC, got %v", cfg.Location)
	}
	if !cfg.Availability.OpenWhenUnset {
		t.Fatalf("expected halls without windows to be open by default")
	}
	if cfg.Attendance.LeadTime != 30*time.Minute || cfg.Attendance.DefaultDurationMinutes != 15 || cfg.Attendance.MaxDurationMinutes != 240 {
		t.Fatalf("unexpected attendance defaults: %+v", cfg.Attendance)
	}
	if cfg.Lock.TTL != 10*time.Second || cfg.Lock.Wait != 3*time.Second {
		t.Fatalf("unexpected lock defaults: %+v", cfg.Lock)
	}
	if cfg.RedisEnabled() {
		t.Fatalf("expected Redis to be disabled by default")
	}
	if cfg.Events.Channel != "tms.events" {
		t.Fatalf("unexpected events channel %q", cfg.Events.Channel)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("unexpected log level %v", cfg.LogLevel)
	}
}

func TestLoader_YAMLAndEnvironmentPrecedence(t *testing.T) {
	path := writeYAML(t, `
http:
  port: 9090
sqlite:
  dsn: file:/var/lib/tms.db
attendance:
  lead_time: 45m
redis:
  address: ${TMS_TEST_REDIS_HOST}:6379
  db: 2
`)
	t.Setenv("TMS_TEST_REDIS_HOST", "cache")

	cfg, err := load(lookupFrom(map[string]string{
		FileEnv:              path,
		"TMS_HTTP_PORT":      "7070",
		"TMS_LOG_LEVEL":      "debug",
		"TMS_TIMEZONE":       "Asia/Kolkata",
		"TMS_LOCK_WAIT":      "500ms",
		"TMS_REDIS_PASSWORD": "secret",
	}))
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}

	if cfg.HTTPPort != 7070 {
		t.Fatalf("expected environment to override YAML port, got %d", cfg.HTTPPort)
	}
	if cfg.SQLite.DSN != "file:/var/lib/tms.db" {
		t.Fatalf("expected YAML DSN, got %q", cfg.SQLite.DSN)
	}
	if cfg.Attendance.LeadTime != 45*time.Minute {
		t.Fatalf("expected YAML lead time, got %s", cfg.Attendance.LeadTime)
	}
	if cfg.Redis.Address != "cache:6379" || cfg.Redis.DB != 2 || cfg.Redis.Password != "secret" {
		t.Fatalf("unexpected Redis settings: %+v", cfg.Redis)
	}
	if cfg.Lock.Wait != 500*time.Millisecond {
		t.Fatalf("expected lock wait override, got %s", cfg.Lock.Wait)
	}
	if cfg.Location.String() != "Asia/Kolkata" {
		t.Fatalf("unexpected location %v", cfg.Location)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("expected debug level, got %v", cfg.LogLevel)
	}
}

func TestLoader_ReportsMissingAndInvalidKeys(t *testing.T) {
	path := writeYAML(t, "lock:\n  ttl: soon\nunexpected: 1\n")

	_, err := load(lookupFrom(map[string]string{
		FileEnv:                            path,
		"TMS_SQLITE_DSN":                   "",
		"TMS_HTTP_PORT":                    "-1",
		"TMS_AVAILABILITY_OPEN_WHEN_UNSET": "sometimes",
		"TMS_ATTENDANCE_DEFAULT_DURATION_MINUTES": "300",
	}))

	var cfgErr *Error
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if len(cfgErr.Missing) != 1 || cfgErr.Missing[0] != "sqlite.dsn" {
		t.Fatalf("unexpected missing keys: %v", cfgErr.Missing)
	}
	want := []string{
		"attendance.default_duration_minutes",
		"availability.open_when_unset",
		"http.port",
		"lock.ttl",
		"unexpected",
	}
	if len(cfgErr.Invalid) != len(want) {
		t.Fatalf("unexpected invalid keys: %v", cfgErr.Invalid)
	}
	for i, key := range want {
		if cfgErr.Invalid[i] != key {
			t.Fatalf("unexpected invalid keys: %v", cfgErr.Invalid)
		}
	}
	if msg := err.Error(); !strings.Contains(msg, "TMS_SQLITE_DSN") || !strings.Contains(msg, "TMS_LOCK_TTL") {
		t.Fatalf("expected error to name environment variables, got %q", msg)
	}
}

func TestLoader_MissingConfigFile(t *testing.T) {
	_, err := load(lookupFrom(map[string]string{FileEnv: filepath.Join(t.TempDir(), "absent.yaml")}))
	if err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestLoad_ReadsProcessEnvironment(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("TMS_HTTP_PORT", "8181")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.HTTPPort != 8181 {
		t.Fatalf("expected port from environment, got %d", cfg.HTTPPort)
	}
}
