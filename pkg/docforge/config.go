package docforge

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultMaxDepth bounds nested blocks, section expansion and condition nesting.
const DefaultMaxDepth = 100

// DefaultMaxIncludes bounds the total number of section expansions in one render.
const DefaultMaxIncludes = 10000

// Config contains all configuration options for the DocForge engine
type Config struct {
	// LogLevel controls the verbosity of logging (debug, info, warn, error)
	LogLevel string `yaml:"logLevel" json:"logLevel"`
	// LogFormat selects the log handler (text, json)
	LogFormat string `yaml:"logFormat" json:"logFormat"`
	// MaxDepth limits nested blocks, section includes and condition nesting
	MaxDepth int `yaml:"maxDepth" json:"maxDepth"`
	// MaxIncludes limits the total number of section expansions per render
	MaxIncludes int `yaml:"maxIncludes" json:"maxIncludes"`
	// TrimBlocks drops the first newline after a block tag
	TrimBlocks bool `yaml:"trimBlocks" json:"trimBlocks"`
	// UnresolvedPlaceholder is emitted for variables that do not resolve.
	// "{name}" is replaced with the variable path. Empty renders nothing.
	UnresolvedPlaceholder string `yaml:"unresolvedPlaceholder" json:"unresolvedPlaceholder"`
}

var (
	globalConfig      *Config
	globalConfigMutex sync.RWMutex
	configOnce        sync.Once
)

func init() {
	// Initialize global config from environment on first use
	configOnce.Do(func() {
		globalConfig = ConfigFromEnvironment()
	})
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		MaxDepth:              DefaultMaxDepth,
		MaxIncludes:           DefaultMaxIncludes,
		TrimBlocks:            false,
		UnresolvedPlaceholder: "",
	}
}

// ConfigFromEnvironment creates a configuration from environment variables
func ConfigFromEnvironment() *Config {
	config := DefaultConfig()
	applyEnvironment(config)
	return config
}

func applyEnvironment(config *Config) {
	// DOCFORGE_LOG_LEVEL
	if val := os.Getenv("DOCFORGE_LOG_LEVEL"); val != "" {
		config.LogLevel = strings.ToLower(val)
	}

	// DOCFORGE_LOG_FORMAT
	if val := os.Getenv("DOCFORGE_LOG_FORMAT"); val != "" {
		config.LogFormat = strings.ToLower(val)
	}

	// DOCFORGE_MAX_DEPTH
	if val := os.Getenv("DOCFORGE_MAX_DEPTH"); val != "" {
		if depth, err := strconv.Atoi(val); err == nil && depth > 0 {
			config.MaxDepth = depth
		}
	}

	// DOCFORGE_MAX_INCLUDES
	if val := os.Getenv("DOCFORGE_MAX_INCLUDES"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			config.MaxIncludes = n
		}
	}

	// DOCFORGE_TRIM_BLOCKS
	if val := os.Getenv("DOCFORGE_TRIM_BLOCKS"); val != "" {
		config.TrimBlocks = parseBool(val)
	}

	// DOCFORGE_UNRESOLVED_PLACEHOLDER
	if val, ok := os.LookupEnv("DOCFORGE_UNRESOLVED_PLACEHOLDER"); ok {
		config.UnresolvedPlaceholder = val
	}
}

// LoadConfigFile reads a YAML configuration file. Fields missing from the
// file keep their defaults and environment variables override the file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	applyEnvironment(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return config, nil
}

// NewConfigWithDefaults creates a new configuration with defaults applied to unset fields
func NewConfigWithDefaults(overrides *Config) *Config {
	defaults := DefaultConfig()

	if overrides == nil {
		return defaults
	}

	// Create a copy of the overrides
	config := *overrides

	if config.LogLevel == "" {
		config.LogLevel = defaults.LogLevel
	}

	if config.LogFormat == "" {
		config.LogFormat = defaults.LogFormat
	}

	if config.MaxDepth <= 0 {
		config.MaxDepth = defaults.MaxDepth
	}

	if config.MaxIncludes <= 0 {
		config.MaxIncludes = defaults.MaxIncludes
	}

	return &config
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.LogLevel] {
		return errors.New("invalid log level: " + c.LogLevel)
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		return errors.New("invalid log format: " + c.LogFormat)
	}

	if c.MaxDepth <= 0 {
		return errors.New("max depth must be positive")
	}

	if c.MaxIncludes <= 0 {
		return errors.New("max includes must be positive")
	}

	return nil
}

// GetGlobalConfig returns the global configuration
func GetGlobalConfig() *Config {
	globalConfigMutex.RLock()
	defer globalConfigMutex.RUnlock()

	if globalConfig == nil {
		return DefaultConfig()
	}

	// Return a copy to prevent modification
	configCopy := *globalConfig
	return &configCopy
}

// SetGlobalConfig sets the global configuration
func SetGlobalConfig(config *Config) {
	globalConfigMutex.Lock()
	globalConfig = config
	globalConfigMutex.Unlock()

	// Update logger based on new config (outside the lock to avoid deadlock)
	UpdateLoggerFromConfig()
}

// parseBool parses a boolean value from a string
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
