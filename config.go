package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	defaultDumpFile        = "rx_backup_processed.sql"
	defaultBatchSize       = 10000
	defaultMaxLoggedErrors = 5
	defaultMySQLPort       = 3306
	defaultPostgresPort    = 5432
)

// LoadConfig holds the TOML-driven load configuration.
type LoadConfig struct {
	Dump            string       `toml:"dump"`
	BatchSize       int          `toml:"batch_size"`
	MaxLoggedErrors int          `toml:"max_logged_errors"`
	Target          TargetConfig `toml:"target"`
	Hooks           HooksConfig  `toml:"hooks"`

	// configDir is the directory containing the TOML file, used to resolve relative paths.
	configDir string
}

// TargetConfig identifies the destination engine and how to reach it.
// DSN wins over the discrete fields when both are set.
type TargetConfig struct {
	Type     string `toml:"type"` // "mysql", "sqlite" or "postgres"
	DSN      string `toml:"dsn"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	Charset  string `toml:"charset"` // MySQL only (default: "utf8mb4")
}

type HooksConfig struct {
	BeforeLoad []string `toml:"before_load"`
	AfterLoad  []string `toml:"after_load"`
}

// envLookup matches os.LookupEnv.
type envLookup func(key string) (string, bool)

// Environment overrides; secrets normally arrive this way.
const (
	envTargetType = "RXFERRY_TARGET_TYPE"
	envDSN        = "RXFERRY_DSN"
	envHost       = "RXFERRY_DB_HOST"
	envPort       = "RXFERRY_DB_PORT"
	envUser       = "RXFERRY_DB_USER"
	envPassword   = "RXFERRY_DB_PASSWORD"
	envDatabase   = "RXFERRY_DB_NAME"
)

// loadConfig reads an optional TOML file, applies environment overrides and
// defaults, and validates the result. An empty path means environment only.
func loadConfig(path string, env envLookup) (*LoadConfig, error) {
	cfg := LoadConfig{
		BatchSize:       defaultBatchSize,
		MaxLoggedErrors: defaultMaxLoggedErrors,
		Target: TargetConfig{
			Type: "mysql",
			Host: "localhost",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		if unknown := md.Undecoded(); len(unknown) > 0 {
			keys := make([]string, len(unknown))
			for i, k := range unknown {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
		}
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
		cfg.configDir = filepath.Dir(absPath)
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		cfg.configDir = wd
	}

	if env != nil {
		if err := cfg.applyEnv(env); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *LoadConfig) applyEnv(env envLookup) error {
	set := func(key string, dst *string) {
		if v, ok := env(key); ok && v != "" {
			*dst = v
		}
	}
	set(envTargetType, &c.Target.Type)
	set(envDSN, &c.Target.DSN)
	set(envHost, &c.Target.Host)
	set(envUser, &c.Target.User)
	set(envPassword, &c.Target.Password)
	set(envDatabase, &c.Target.Database)
	if v, ok := env(envPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid port %q", envPort, v)
		}
		c.Target.Port = port
	}
	return nil
}

func (c *LoadConfig) validate() error {
	if c.Dump == "" {
		c.Dump = defaultDumpFile
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive")
	}
	if c.MaxLoggedErrors < 0 {
		return fmt.Errorf("max_logged_errors must not be negative")
	}

	c.Target.Type = strings.ToLower(strings.TrimSpace(c.Target.Type))
	if _, err := newTargetDB(c.Target.Type); err != nil {
		return err
	}
	switch c.Target.Type {
	case "mysql":
		if c.Target.Port == 0 {
			c.Target.Port = defaultMySQLPort
		}
		if c.Target.Charset == "" {
			c.Target.Charset = "utf8mb4"
		}
	case "postgres":
		if c.Target.Port == 0 {
			c.Target.Port = defaultPostgresPort
		}
	}
	if c.Target.Charset != "" && c.Target.Type != "mysql" {
		return fmt.Errorf("target.charset is a MySQL-only option")
	}
	if c.Target.Port < 0 || c.Target.Port > 65535 {
		return fmt.Errorf("target.port %d out of range", c.Target.Port)
	}
	return nil
}

// resolvePath resolves a path relative to the config file directory.
func (c *LoadConfig) resolvePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.configDir, p)
}

// redactedTarget describes the target for logs without the password.
func (c *LoadConfig) redactedTarget() string {
	if c.Target.DSN != "" {
		return c.Target.Type + " (dsn)"
	}
	return fmt.Sprintf("%s %s@%s:%d/%s", c.Target.Type, c.Target.User, c.Target.Host, c.Target.Port, c.Target.Database)
}
