package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage backend names.
const (
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds application configuration.
type Config struct {
	// StorageBackend selects the key-value facility snapshots are written to:
	// "sqlite" (default), "redis", "postgres" or "memory".
	StorageBackend string `json:"storage_backend" yaml:"storage_backend"`

	// RedisAddr is the host:port of the redis server when StorageBackend is "redis".
	RedisAddr string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`

	// RedisPassword is optional.
	RedisPassword string `json:"redis_password,omitempty" yaml:"redis_password,omitempty"`

	// RedisDB selects the logical redis database.
	RedisDB int `json:"redis_db,omitempty" yaml:"redis_db,omitempty"`

	// RedisKeyPrefix is prepended to every snapshot key stored in redis.
	RedisKeyPrefix string `json:"redis_key_prefix,omitempty" yaml:"redis_key_prefix,omitempty"`

	// PostgresDSN is the connection string used when StorageBackend is "postgres".
	PostgresDSN string `json:"postgres_dsn,omitempty" yaml:"postgres_dsn,omitempty"`

	// DBMaxOpenConns limits the maximum number of open sqlite connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty" yaml:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle sqlite connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty" yaml:"db_max_idle_conns,omitempty"`

	// StrictProjectIDs makes AddProject and SetProjects reject duplicate ids.
	// Off by default: duplicates are accepted like the original client did.
	StrictProjectIDs bool `json:"strict_project_ids,omitempty" yaml:"strict_project_ids,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty"`

	// AllowedPaths is an allowlist of directories for project export/import.
	// Paths outside ~/.archiai/exports require either being in this list or AllowUnsafePaths=true.
	AllowedPaths []string `json:"allowed_paths,omitempty" yaml:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for export/import.
	// Symlink and extension checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty" yaml:"allow_unsafe_paths,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty" yaml:"disabled_tools,omitempty"`

	// DisabledTypes is a list of tool groups to disable entirely.
	// Known types: "project", "ui", "notification".
	DisabledTypes []string `json:"disabled_types,omitempty" yaml:"disabled_types,omitempty"`

	// BackupSchedule is a five-field cron expression; when set, `studio serve`
	// exports the project list to the exports directory on that schedule.
	BackupSchedule string `json:"backup_schedule,omitempty" yaml:"backup_schedule,omitempty"`

	// BackupKeep is how many scheduled backups to retain (default 7).
	BackupKeep int `json:"backup_keep,omitempty" yaml:"backup_keep,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		StorageBackend: BackendSQLite,
		RedisAddr:      "localhost:6379",
		RedisKeyPrefix: "studio:",
		LogLevel:       "info",
		BackupKeep:     7,
	}
}

// Load loads configuration from baseDir/config.json (or config.yaml when
// there is no JSON file), then applies STUDIO_* environment overrides.
// Variables may also come from baseDir/.env; the process environment wins
// over the file. Returns default config if neither exists.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(configPath(baseDir))
	if err != nil {
		return nil, err
	}

	dotenv, err := readDotenv(filepath.Join(baseDir, ".env"))
	if err != nil {
		return nil, err
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	ApplyEnv(cfg, lookup)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readDotenv parses a .env file without touching the process environment.
func readDotenv(path string) (map[string]string, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return vars, nil
}

// ApplyEnv overlays STUDIO_* variables onto cfg.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup("STUDIO_STORAGE"); ok && v != "" {
		cfg.StorageBackend = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup("STUDIO_REDIS_ADDR"); ok && v != "" {
		cfg.RedisAddr = v
	}
	if v, ok := lookup("STUDIO_REDIS_PASSWORD"); ok {
		cfg.RedisPassword = v
	}
	if v, ok := lookup("STUDIO_REDIS_DB"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer for STUDIO_REDIS_DB, keeping previous value", "value", v, "redis_db", cfg.RedisDB)
		} else {
			cfg.RedisDB = n
		}
	}
	if v, ok := lookup("STUDIO_REDIS_PREFIX"); ok {
		cfg.RedisKeyPrefix = v
	}
	if v, ok := lookup("STUDIO_POSTGRES_DSN"); ok && v != "" {
		cfg.PostgresDSN = v
	}
	if v, ok := lookup("STUDIO_LOG_LEVEL"); ok && v != "" {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup("STUDIO_BACKUP_SCHEDULE"); ok {
		cfg.BackupSchedule = strings.TrimSpace(v)
	}
	if v, ok := lookup("STUDIO_STRICT_PROJECT_IDS"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("invalid boolean for STUDIO_STRICT_PROJECT_IDS, ignoring", "value", v)
		} else {
			cfg.StrictProjectIDs = b
		}
	}
}

// Validate checks that the selected backend is known and has what it needs.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendSQLite, BackendMemory:
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("redis_addr is required for the redis backend")
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown storage_backend %q (want sqlite, redis, postgres or memory)", c.StorageBackend)
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLogLevel maps a config log level to a slog.Level. Empty means info.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log_level %q", level)
	}
}

// configPath picks config.json, falling back to config.yaml or config.yml.
func configPath(baseDir string) string {
	jsonPath := filepath.Join(baseDir, "config.json")
	if _, err := os.Stat(jsonPath); err == nil {
		return jsonPath
	}
	for _, name := range []string{"config.yaml", "config.yml"} {
		p := filepath.Join(baseDir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return jsonPath
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	switch filepath.Ext(configPath) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", configPath, err)
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.StorageBackend = firstNonEmpty(overlay.StorageBackend, base.StorageBackend)
	result.RedisAddr = firstNonEmpty(overlay.RedisAddr, base.RedisAddr)
	result.RedisPassword = firstNonEmpty(overlay.RedisPassword, base.RedisPassword)
	result.RedisKeyPrefix = firstNonEmpty(overlay.RedisKeyPrefix, base.RedisKeyPrefix)
	result.PostgresDSN = firstNonEmpty(overlay.PostgresDSN, base.PostgresDSN)
	result.LogLevel = firstNonEmpty(overlay.LogLevel, base.LogLevel)

	result.RedisDB = overlay.RedisDB
	if result.RedisDB == 0 {
		result.RedisDB = base.RedisDB
	}

	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}

	result.BackupSchedule = firstNonEmpty(overlay.BackupSchedule, base.BackupSchedule)
	result.BackupKeep = overlay.BackupKeep
	if result.BackupKeep == 0 {
		result.BackupKeep = base.BackupKeep
	}

	result.DBMaxIdleConns = overlay.DBMaxIdleConns
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	// Booleans: overlay wins if true, else base
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths
	result.StrictProjectIDs = base.StrictProjectIDs || overlay.StrictProjectIDs

	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
