// Package config loads service settings from an optional .env file, an
// optional YAML file, and TMS_* environment variables, in increasing order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/abeldaneesh/TMS-sub000/internal/logging"
)

// FileEnv names the environment variable pointing at the YAML config file.
const FileEnv = "TMS_CONFIG_FILE"

// Config captures the settings of the training hall service.
type Config struct {
	HTTPPort int
	LogLevel slog.Level
	// Location interprets training dates and times of day.
	Location *time.Location

	SQLite struct {
		DSN         string
		BusyTimeout time.Duration
	}
	Availability struct {
		OpenWhenUnset bool
	}
	Attendance struct {
		LeadTime               time.Duration
		DefaultDurationMinutes int
		MaxDurationMinutes     int
		ScanRatePerSecond      float64
		ScanBurst              int
	}
	Lock struct {
		TTL  time.Duration
		Wait time.Duration
	}
	Redis struct {
		// Address is empty when Redis is disabled.
		Address  string
		Password string
		DB       int
	}
	Events struct {
		Channel string
	}
	Auth struct {
		// GatewayKeyHash is a bcrypt hash of the gateway bearer key. Empty
		// means identity headers are trusted as-is.
		GatewayKeyHash string
	}
}

// RedisEnabled reports whether a Redis address is configured.
func (c Config) RedisEnabled() bool {
	return c.Redis.Address != ""
}

var defaults = map[string]string{
	"http.port":                           "8080",
	"log.level":                           "info",
	"timezone":                            "UTC",
	"sqlite.dsn":                          "file:tms.db",
	"sqlite.busy_timeout":                 "5s",
	"availability.open_when_unset":        "true",
	"attendance.lead_time":                "30m",
	"attendance.default_duration_minutes": "15",
	"attendance.max_duration_minutes":     "240",
	"attendance.scan_rate_per_second":     "1",
	"attendance.scan_burst":               "3",
	"lock.ttl":                            "10s",
	"lock.wait":                           "3s",
	"redis.address":                       "",
	"redis.password":                      "",
	"redis.db":                            "0",
	"events.channel":                      "tms.events",
	"auth.gateway_key_hash":               "",
}

var required = []string{"http.port", "sqlite.dsn", "timezone", "events.channel"}

// EnvName returns the environment variable overriding key, e.g. TMS_LOCK_TTL
// for lock.ttl.
func EnvName(key string) string {
	return "TMS_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Load reads .env when present, then the YAML file named by TMS_CONFIG_FILE,
// then TMS_* overrides. Every missing or invalid key is reported in one error.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}
	return load(os.LookupEnv)
}

func load(lookup func(string) (string, bool)) (Config, error) {
	values := make(map[string]string, len(defaults))
	for key, value := range defaults {
		values[key] = value
	}

	var unknown []string
	if path, ok := lookup(FileEnv); ok && strings.TrimSpace(path) != "" {
		fileValues, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		for key, value := range fileValues {
			if _, known := defaults[key]; !known {
				unknown = append(unknown, key)
				continue
			}
			values[key] = value
		}
	}

	for key := range defaults {
		if value, ok := lookup(EnvName(key)); ok {
			values[key] = value
		}
	}

	return parse(values, unknown)
}

func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	data = []byte(os.ExpandEnv(string(data)))

	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	out := make(map[string]string)
	flatten("", tree, out)
	return out, nil
}

func flatten(prefix string, tree map[string]any, out map[string]string) {
	for key, value := range tree {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		switch v := value.(type) {
		case map[string]any:
			flatten(full, v, out)
		case nil:
			out[full] = ""
		default:
			out[full] = fmt.Sprint(v)
		}
	}
}

type parser struct {
	values  map[string]string
	missing []string
	invalid []string
}

func (p *parser) str(key string) string {
	return strings.TrimSpace(p.values[key])
}

func (p *parser) integer(key string, min int) int {
	v, err := strconv.Atoi(p.str(key))
	if err != nil || v < min {
		p.invalid = append(p.invalid, key)
		return 0
	}
	return v
}

func (p *parser) duration(key string) time.Duration {
	d, err := time.ParseDuration(p.str(key))
	if err != nil || d <= 0 {
		p.invalid = append(p.invalid, key)
		return 0
	}
	return d
}

func (p *parser) boolean(key string) bool {
	b, err := strconv.ParseBool(p.str(key))
	if err != nil {
		p.invalid = append(p.invalid, key)
	}
	return b
}

func parse(values map[string]string, unknown []string) (Config, error) {
	p := &parser{values: values, invalid: unknown}
	for _, key := range required {
		if p.str(key) == "" {
			p.missing = append(p.missing, key)
		}
	}

	var cfg Config
	if p.str("http.port") != "" {
		cfg.HTTPPort = p.integer("http.port", 1)
	}
	level, err := logging.ParseLevel(p.str("log.level"))
	if err != nil {
		p.invalid = append(p.invalid, "log.level")
	}
	cfg.LogLevel = level
	if tz := p.str("timezone"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			p.invalid = append(p.invalid, "timezone")
		}
		cfg.Location = loc
	}

	cfg.SQLite.DSN = p.str("sqlite.dsn")
	cfg.SQLite.BusyTimeout = p.duration("sqlite.busy_timeout")
	cfg.Availability.OpenWhenUnset = p.boolean("availability.open_when_unset")

	cfg.Attendance.LeadTime = p.duration("attendance.lead_time")
	cfg.Attendance.DefaultDurationMinutes = p.integer("attendance.default_duration_minutes", 1)
	cfg.Attendance.MaxDurationMinutes = p.integer("attendance.max_duration_minutes", 1)
	if cfg.Attendance.DefaultDurationMinutes > cfg.Attendance.MaxDurationMinutes && cfg.Attendance.MaxDurationMinutes > 0 {
		p.invalid = append(p.invalid, "attendance.default_duration_minutes")
	}
	rate, err := strconv.ParseFloat(p.str("attendance.scan_rate_per_second"), 64)
	if err != nil || rate <= 0 {
		p.invalid = append(p.invalid, "attendance.scan_rate_per_second")
	}
	cfg.Attendance.ScanRatePerSecond = rate
	cfg.Attendance.ScanBurst = p.integer("attendance.scan_burst", 1)

	cfg.Lock.TTL = p.duration("lock.ttl")
	cfg.Lock.Wait = p.duration("lock.wait")

	cfg.Redis.Address = p.str("redis.address")
	cfg.Redis.Password = values["redis.password"]
	cfg.Redis.DB = p.integer("redis.db", 0)
	cfg.Events.Channel = p.str("events.channel")
	cfg.Auth.GatewayKeyHash = p.str("auth.gateway_key_hash")

	if len(p.missing) > 0 || len(p.invalid) > 0 {
		return Config{}, &Error{Missing: sortedUnique(p.missing), Invalid: sortedUnique(p.invalid)}
	}
	return cfg, nil
}

// Error lists every configuration key that was missing or could not be parsed.
type Error struct {
	Missing []string
	Invalid []string
}

func (e *Error) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing: "+describe(e.Missing))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid: "+describe(e.Invalid))
	}
	return "config: " + strings.Join(parts, "; ")
}

func describe(keys []string) string {
	out := make([]string, len(keys))
	for i, key := range keys {
		out[i] = fmt.Sprintf("%s (%s)", key, EnvName(key))
	}
	return strings.Join(out, ", ")
}

func sortedUnique(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	var out []string
	for _, key := range keys {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
