// Package config holds all geoverify configuration, loaded once from a
// YAML file and shared read-only.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all geoverify configuration.
type Config struct {
	// Search budgets for the deepening orchestrator.
	Verify VerifyConfig `yaml:"verify"`

	// Rule/definition table sources.
	Tables TablesConfig `yaml:"tables"`

	// Verdict cache.
	Cache CacheConfig `yaml:"cache"`

	// Logging.
	Logging LoggingConfig `yaml:"logging"`
}

// VerifyConfig bounds verification effort.
type VerifyConfig struct {
	// StepMaxLevel caps deepening for per-step derivation checks.
	StepMaxLevel int `yaml:"step_max_level"`
	// GoalMaxLevel caps deepening for final goal and solution checks.
	GoalMaxLevel int `yaml:"goal_max_level"`
	// StepTimeout bounds one rule engine pass during a step check.
	StepTimeout string `yaml:"step_timeout"`
	// GoalTimeout bounds one rule engine pass during a goal check.
	GoalTimeout string `yaml:"goal_timeout"`
	// NumericCheck filters rule conclusions against the realization.
	NumericCheck bool `yaml:"numeric_check"`
	// MaxParallel caps concurrent rule matchers per pass; 0 = GOMAXPROCS.
	MaxParallel int `yaml:"max_parallel"`
}

// TablesConfig points at the rule/definition tables. Empty paths mean
// the tables baked into the binary.
type TablesConfig struct {
	DefsPath  string `yaml:"defs_path"`
	RulesPath string `yaml:"rules_path"`
	// Watch enables hot reload of file-based tables.
	Watch bool `yaml:"watch"`
}

// CacheConfig configures the sqlite verdict cache.
type CacheConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures categorized file logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
	JSONFormat bool            `yaml:"json_format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Verify: VerifyConfig{
			StepMaxLevel: 3,
			GoalMaxLevel: 12,
			StepTimeout:  "30s",
			GoalTimeout:  "120s",
			NumericCheck: true,
		},
		Tables: TablesConfig{},
		Cache: CacheConfig{
			Enabled:      false,
			DatabasePath: ".geoverify/verdicts.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults
// when the file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides lets the environment override file settings.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GEOVERIFY_CACHE_PATH"); v != "" {
		c.Cache.DatabasePath = v
		c.Cache.Enabled = true
	}
	if v := os.Getenv("GEOVERIFY_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("GEOVERIFY_DEFS_PATH"); v != "" {
		c.Tables.DefsPath = v
	}
	if v := os.Getenv("GEOVERIFY_RULES_PATH"); v != "" {
		c.Tables.RulesPath = v
	}
}

// GetStepTimeout parses the step pass timeout.
func (c *Config) GetStepTimeout() time.Duration {
	return parseDuration(c.Verify.StepTimeout, 30*time.Second)
}

// GetGoalTimeout parses the goal pass timeout.
func (c *Config) GetGoalTimeout() time.Duration {
	return parseDuration(c.Verify.GoalTimeout, 120*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// UseEmbeddedTables reports whether the built-in tables should be used.
func (c *Config) UseEmbeddedTables() bool {
	return c.Tables.DefsPath == "" && c.Tables.RulesPath == ""
}
