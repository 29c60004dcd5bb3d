// Package config loads the service configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Alp4ka/pagequery"
)

// Supported storage back ends.
const (
	ORMGorm   = "gorm"
	ORMBun    = "bun"
	ORMMemory = "memory"

	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
	DialectSQLite   = "sqlite"
)

// Config holds the pagequery service configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Paging   PagingConfig   `yaml:"paging"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port             int `yaml:"port"`
	ReadTimeoutSec   int `yaml:"read_timeout_sec"`
	WriteTimeoutSec  int `yaml:"write_timeout_sec"`
	ShutdownSec      int `yaml:"shutdown_timeout_sec"`
	RequestTimeoutMs int `yaml:"request_timeout_ms"` // 0 = no per-request deadline
}

// DatabaseConfig holds storage settings.
type DatabaseConfig struct {
	ORM          string `yaml:"orm"`     // gorm, bun, memory (default: gorm)
	Dialect      string `yaml:"dialect"` // postgres, mysql, sqlite (default: sqlite)
	DSN          string `yaml:"dsn"`
	Seed         bool   `yaml:"seed"`  // insert the demo dataset on start
	Debug        bool   `yaml:"debug"` // log every SQL statement
	MaxOpenConns int    `yaml:"max_open_conns"`
	SlowQueryMs  int    `yaml:"slow_query_ms"`
}

// PagingConfig holds page size limits and the default count policy.
type PagingConfig struct {
	DefaultLimit int    `yaml:"default_limit"`
	MaxLimit     int    `yaml:"max_limit"`
	Policy       string `yaml:"policy"` // simple, optimistic, decoupled (default: simple)
}

// Limits returns the page size limits.
func (c PagingConfig) Limits() pagequery.Limits {
	return pagequery.Limits{
		Default: c.DefaultLimit,
		Max:     c.MaxLimit,
	}
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from the YAML file at path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, substituting ${VAR} references first.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ORM == "" {
		c.Database.ORM = ORMGorm
	}
	if c.Database.Dialect == "" {
		c.Database.Dialect = DialectSQLite
	}
	if c.Database.DSN == "" && c.Database.Dialect == DialectSQLite {
		c.Database.DSN = "file::memory:?cache=shared"
	}
	if c.Database.SlowQueryMs <= 0 {
		c.Database.SlowQueryMs = 200
	}
	if c.Paging.DefaultLimit <= 0 {
		c.Paging.DefaultLimit = pagequery.DefaultLimit
	}
	if c.Paging.MaxLimit <= 0 {
		c.Paging.MaxLimit = pagequery.MaxLimit
	}
	if c.Paging.Policy == "" {
		c.Paging.Policy = string(pagequery.PolicySimple)
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.HTTP.RequestTimeoutMs < 0 {
		return fmt.Errorf("http.request_timeout_ms must not be negative, got %d", c.HTTP.RequestTimeoutMs)
	}
	if !slices.Contains([]string{ORMGorm, ORMBun, ORMMemory}, c.Database.ORM) {
		return fmt.Errorf("database.orm must be %q, %q or %q, got %q", ORMGorm, ORMBun, ORMMemory, c.Database.ORM)
	}
	if c.Database.ORM != ORMMemory {
		if !slices.Contains([]string{DialectPostgres, DialectMySQL, DialectSQLite}, c.Database.Dialect) {
			return fmt.Errorf("database.dialect must be %q, %q or %q, got %q",
				DialectPostgres, DialectMySQL, DialectSQLite, c.Database.Dialect)
		}
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for dialect %q", c.Database.Dialect)
		}
	}
	if c.Paging.DefaultLimit > c.Paging.MaxLimit {
		return fmt.Errorf("paging.default_limit (%d) must not exceed paging.max_limit (%d)",
			c.Paging.DefaultLimit, c.Paging.MaxLimit)
	}
	if _, err := pagequery.ParsePolicy(c.Paging.Policy); err != nil {
		return fmt.Errorf("paging.policy: %w", err)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
