package docforge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "info", config.LogLevel)
	assert.Equal(t, "text", config.LogFormat)
	assert.Equal(t, DefaultMaxDepth, config.MaxDepth)
	assert.Equal(t, DefaultMaxIncludes, config.MaxIncludes)
	assert.False(t, config.TrimBlocks)
	assert.Empty(t, config.UnresolvedPlaceholder)
	assert.NoError(t, config.Validate())
}

func TestConfigFromEnvironment(t *testing.T) {
	t.Setenv("DOCFORGE_LOG_LEVEL", "DEBUG")
	t.Setenv("DOCFORGE_LOG_FORMAT", "json")
	t.Setenv("DOCFORGE_MAX_DEPTH", "25")
	t.Setenv("DOCFORGE_MAX_INCLUDES", "500")
	t.Setenv("DOCFORGE_TRIM_BLOCKS", "yes")
	t.Setenv("DOCFORGE_UNRESOLVED_PLACEHOLDER", "<{name}>")

	config := ConfigFromEnvironment()
	assert.Equal(t, "debug", config.LogLevel)
	assert.Equal(t, "json", config.LogFormat)
	assert.Equal(t, 25, config.MaxDepth)
	assert.Equal(t, 500, config.MaxIncludes)
	assert.True(t, config.TrimBlocks)
	assert.Equal(t, "<{name}>", config.UnresolvedPlaceholder)
}

func TestConfigFromEnvironmentIgnoresBadLimits(t *testing.T) {
	tests := []struct {
		name     string
		depth    string
		includes string
	}{
		{"not a number", "deep", "many"},
		{"zero", "0", "0"},
		{"negative", "-3", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DOCFORGE_MAX_DEPTH", tt.depth)
			t.Setenv("DOCFORGE_MAX_INCLUDES", tt.includes)

			config := ConfigFromEnvironment()
			assert.Equal(t, DefaultMaxDepth, config.MaxDepth)
			assert.Equal(t, DefaultMaxIncludes, config.MaxIncludes)
			assert.NoError(t, config.Validate())
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docforge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logLevel: warn\nmaxDepth: 12\ntrimBlocks: true\n"), 0o600))

	config, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", config.LogLevel)
	assert.Equal(t, "text", config.LogFormat)
	assert.Equal(t, 12, config.MaxDepth)
	assert.True(t, config.TrimBlocks)

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("DOCFORGE_MAX_DEPTH", "40")
		config, err := LoadConfigFile(path)
		require.NoError(t, err)
		assert.Equal(t, 40, config.MaxDepth)
	})
}

func TestLoadConfigFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfigFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("maxDepth: [1, 2\n"), 0o600))
	_, err = LoadConfigFile(broken)
	assert.ErrorContains(t, err, "failed to parse config file")

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("logFormat: xml\n"), 0o600))
	_, err = LoadConfigFile(invalid)
	assert.ErrorContains(t, err, "invalid log format: xml")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad level", func(c *Config) { c.LogLevel = "trace" }, "invalid log level"},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, "invalid log format"},
		{"zero depth", func(c *Config) { c.MaxDepth = 0 }, "max depth must be positive"},
		{"negative includes", func(c *Config) { c.MaxIncludes = -1 }, "max includes must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestNewConfigWithDefaults(t *testing.T) {
	assert.Equal(t, DefaultConfig(), NewConfigWithDefaults(nil))

	overrides := &Config{MaxDepth: 7, UnresolvedPlaceholder: "?"}
	config := NewConfigWithDefaults(overrides)
	assert.Equal(t, "info", config.LogLevel)
	assert.Equal(t, "text", config.LogFormat)
	assert.Equal(t, 7, config.MaxDepth)
	assert.Equal(t, DefaultMaxIncludes, config.MaxIncludes)
	assert.Equal(t, "?", config.UnresolvedPlaceholder)

	negative := NewConfigWithDefaults(&Config{MaxDepth: -4, MaxIncludes: -1})
	assert.Equal(t, DefaultMaxDepth, negative.MaxDepth)
	assert.Equal(t, DefaultMaxIncludes, negative.MaxIncludes)

	config.MaxDepth = 99
	assert.Equal(t, 7, overrides.MaxDepth)
}

func TestGlobalConfig(t *testing.T) {
	original := GetGlobalConfig()
	t.Cleanup(func() { SetGlobalConfig(original) })

	SetGlobalConfig(&Config{LogLevel: "error", LogFormat: "text", MaxDepth: 2})

	got := GetGlobalConfig()
	assert.Equal(t, 2, got.MaxDepth)
	got.MaxDepth = 50
	assert.Equal(t, 2, GetGlobalConfig().MaxDepth, "GetGlobalConfig returns a copy")

	_, err := ParseTemplate("{% if a %}{% if b %}{% if c %}{% endif %}{% endif %}{% endif %}")
	assert.ErrorContains(t, err, "maximum depth of 2")
}

func TestGlobalConfigWithoutDepth(t *testing.T) {
	original := GetGlobalConfig()
	t.Cleanup(func() { SetGlobalConfig(original) })

	SetGlobalConfig(&Config{LogLevel: "error", LogFormat: "text", MaxDepth: -1})

	_, err := ParseCondition("NOT (a OR b)")
	assert.NoError(t, err)

	tmpl, err := ParseTemplate("{% if NOT a %}x{% endif %}")
	require.NoError(t, err)
	assert.Len(t, tmpl.Nodes, 1)

	_, err = Tokenize("{% if a %}{{b}}{% endif %}")
	assert.NoError(t, err)
}
