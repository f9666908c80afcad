// Package config handles configuration loading and wordmask home resolution.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Supported store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ---------------------------------------------------------------------------
// Config types
// ---------------------------------------------------------------------------

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	RateLimit    float64       `yaml:"rate_limit"` // requests per second; 0 disables
	RateBurst    int           `yaml:"rate_burst"`
}

// StoreConfig selects the word store backend.
type StoreConfig struct {
	Driver string `yaml:"driver"` // "sqlite" | "postgres"
	DSN    string `yaml:"dsn"`    // empty for sqlite means <home>/words.db
}

// CacheConfig controls the word set cache.
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl"` // 0 keeps entries until invalidated
}

// BatchConfig controls batch sanitization.
type BatchConfig struct {
	Workers int `yaml:"workers"` // 0 means unbounded
}

// NotifyConfig configures cross-instance change notifications over Redis.
type NotifyConfig struct {
	RedisAddr     string `yaml:"redis_addr"` // empty disables notifications
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	Channel       string `yaml:"channel"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // json | console
}

// Config is the root configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Cache  CacheConfig  `yaml:"cache"`
	Batch  BatchConfig  `yaml:"batch"`
	Notify NotifyConfig `yaml:"notify"`
	Log    LogConfig    `yaml:"log"`
}

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			RateBurst:    50,
		},
		Store: StoreConfig{
			Driver: DriverSQLite,
		},
		Batch: BatchConfig{
			Workers: 8,
		},
		Notify: NotifyConfig{
			Channel: "wordmask:changes",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads a config.yaml from path.
// If the file does not exist it returns Default() with no error.
// Missing keys retain their default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "config.Load")
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "config.Load: parse %s", path)
	}
	return cfg, nil
}

// ApplyEnv loads a .env file from the working directory (best effort) and
// overrides cfg with any WORDMASK_* variables that are set.
func ApplyEnv(cfg *Config) error {
	_ = godotenv.Load()

	if v := strings.TrimSpace(os.Getenv("WORDMASK_ADDR")); v != "" {
		cfg.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("WORDMASK_DB_DRIVER")); v != "" {
		cfg.Store.Driver = v
	}
	if v := strings.TrimSpace(os.Getenv("WORDMASK_DB_DSN")); v != "" {
		cfg.Store.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("WORDMASK_REDIS_ADDR")); v != "" {
		cfg.Notify.RedisAddr = v
	}
	if v := os.Getenv("WORDMASK_REDIS_PASSWORD"); v != "" {
		cfg.Notify.RedisPassword = v
	}
	if v := strings.TrimSpace(os.Getenv("WORDMASK_LOG_LEVEL")); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("WORDMASK_BATCH_WORKERS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "config.ApplyEnv: WORDMASK_BATCH_WORKERS")
		}
		cfg.Batch.Workers = n
	}
	if v := strings.TrimSpace(os.Getenv("WORDMASK_CACHE_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrap(err, "config.ApplyEnv: WORDMASK_CACHE_TTL")
		}
		cfg.Cache.TTL = d
	}
	return nil
}

// Validate reports the first invalid setting in cfg.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if c.Store.DSN == "" {
			return errors.New("config: store.dsn is required for the postgres driver")
		}
	default:
		return errors.Newf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Batch.Workers < 0 {
		return errors.Newf("config: batch.workers must be >= 0, got %d", c.Batch.Workers)
	}
	if c.Cache.TTL < 0 {
		return errors.Newf("config: cache.ttl must be >= 0, got %s", c.Cache.TTL)
	}
	if c.Server.RateLimit < 0 {
		return errors.Newf("config: server.rate_limit must be >= 0, got %v", c.Server.RateLimit)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return errors.Newf("config: unknown log format %q", c.Log.Format)
	}
	return nil
}

// Resolve loads <home>/config.yaml, applies environment overrides, fills in
// the default SQLite DSN and validates the result.
func Resolve(home string) (*Config, error) {
	cfg, err := Load(filepath.Join(home, "config.yaml"))
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if cfg.Store.Driver == DriverSQLite && cfg.Store.DSN == "" {
		cfg.Store.DSN = filepath.Join(home, "words.db")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ---------------------------------------------------------------------------
// Home resolution
// ---------------------------------------------------------------------------

// globalConfigPath returns the path to the global wordmask config file.
// This file stores only home (and future global settings).
func globalConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "wordmask", "config.yaml"), nil
}

// normalizePath expands ~ and makes the path absolute.
func normalizePath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[2:])
	}
	return filepath.Abs(os.ExpandEnv(path))
}

// ResolveHome returns the wordmask home path and the source of the resolution.
// Priority: WORDMASK_HOME env → persisted global config → ~/.wordmask
// source is one of "env", "config", or "default".
func ResolveHome() (path, source string) {
	if env := os.Getenv("WORDMASK_HOME"); env != "" {
		p, err := normalizePath(env)
		if err == nil {
			return p, "env"
		}
	}

	if persisted, ok, _ := GetPersistedHome(); ok {
		return persisted, "config"
	}

	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".wordmask"), "default"
}

// GetHome returns the resolved wordmask home path.
func GetHome() string {
	path, _ := ResolveHome()
	return path
}

// GetPersistedHome reads home from the global config.
// Returns ("", false, nil) if not set.
func GetPersistedHome() (string, bool, error) {
	cfgPath, err := globalConfigPath()
	if err != nil {
		return "", false, err
	}

	data, err := os.ReadFile(cfgPath)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return "", false, nil
	}

	val, _ := raw["home"].(string)
	val = strings.TrimSpace(val)
	if val == "" {
		return "", false, nil
	}

	p, err := normalizePath(val)
	if err != nil {
		return "", false, err
	}
	return p, true, nil
}

// SetPersistedHome normalizes path and persists it in the global config.
// Returns the normalized path.
func SetPersistedHome(path string) (string, error) {
	normalized, err := normalizePath(path)
	if err != nil {
		return "", err
	}

	cfgPath, err := globalConfigPath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
		return "", err
	}

	// Read existing global config, preserving any other keys.
	var raw map[string]any
	if data, err := os.ReadFile(cfgPath); err == nil {
		_ = yaml.Unmarshal(data, &raw)
	}
	if raw == nil {
		raw = make(map[string]any)
	}
	raw["home"] = normalized

	out, err := yaml.Marshal(raw)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(cfgPath, out, 0o600); err != nil {
		return "", err
	}
	return normalized, nil
}

// ClearPersistedHome removes home from the global config.
// Returns true if the key was present and removed.
// If the file becomes empty after removal it is deleted.
func ClearPersistedHome() (bool, error) {
	cfgPath, err := globalConfigPath()
	if err != nil {
		return false, err
	}

	data, err := os.ReadFile(cfgPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return false, nil
	}

	if _, ok := raw["home"]; !ok {
		return false, nil
	}
	delete(raw, "home")

	if len(raw) == 0 {
		_ = os.Remove(cfgPath)
		return true, nil
	}

	out, err := yaml.Marshal(raw)
	if err != nil {
		return false, err
	}
	return true, os.WriteFile(cfgPath, out, 0o600)
}
