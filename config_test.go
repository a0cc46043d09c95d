package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, 5, cfg.MaxIters)
	assert.Equal(t, 3, cfg.CompileRetries)
	assert.Equal(t, 8.0, cfg.PassThreshold)
	assert.Equal(t, 0.0, cfg.PlateauEpsilon)
	assert.Equal(t, 30*time.Second, cfg.CompileTimeout.Std())
	assert.Equal(t, 10*time.Minute, cfg.LLMTimeout.Std())
	assert.Equal(t, 300, cfg.DPI)
	assert.Equal(t, "test-key", cfg.APIKey)
}

func TestLoadConfigFileOverridesDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gem-key")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`provider: gemini
model: gemini-2.5-flash
max_iters: 8
compile_timeout: 45s
`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.Provider)
	assert.Equal(t, "gemini-2.5-flash", cfg.Model)
	assert.Equal(t, 8, cfg.MaxIters)
	assert.Equal(t, 45*time.Second, cfg.CompileTimeout.Std())
	// Untouched keys keep their defaults.
	assert.Equal(t, 3, cfg.CompileRetries)
	assert.Equal(t, "gem-key", cfg.APIKey)
}

func TestLoadConfigBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("compile_timeout: fast\n"), 0644))

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "invalid duration")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func validTestConfig() Config {
	return Config{
		Provider:       "anthropic",
		Model:          "claude-sonnet-4-5",
		APIKey:         "test-key",
		MaxIters:       5,
		CompileRetries: 3,
		PassThreshold:  8.0,
		CompileTimeout: Duration(30 * time.Second),
		LLMTimeout:     Duration(10 * time.Minute),
		DPI:            300,
		OutputDir:      "out",
	}
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	assert.NoError(t, validTestConfig().Validate())
}

func TestValidateRejectsMissingThreshold(t *testing.T) {
	cfg := validTestConfig()
	cfg.PassThreshold = 0
	assert.ErrorContains(t, cfg.Validate(), "pass_threshold")
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := validTestConfig()
	cfg.Provider = "openai"
	assert.ErrorContains(t, cfg.Validate(), "unknown provider")
}

func TestValidateRejectsMissingCredentials(t *testing.T) {
	cfg := validTestConfig()
	cfg.APIKey = ""
	assert.ErrorContains(t, cfg.Validate(), "ANTHROPIC_API_KEY")

	cfg.Provider = "gemini"
	assert.ErrorContains(t, cfg.Validate(), "GEMINI_API_KEY")
}

func TestValidateRejectsNonPositiveBudgets(t *testing.T) {
	cfg := validTestConfig()
	cfg.MaxIters = 0
	assert.ErrorContains(t, cfg.Validate(), "max_iters")

	cfg = validTestConfig()
	cfg.CompileRetries = -1
	assert.ErrorContains(t, cfg.Validate(), "compile_retries")

	cfg = validTestConfig()
	cfg.DPI = 0
	assert.ErrorContains(t, cfg.Validate(), "dpi")

	cfg = validTestConfig()
	cfg.OutputDir = ""
	assert.ErrorContains(t, cfg.Validate(), "output directory")
}

func TestDurationJSONRoundTrip(t *testing.T) {
	d := Duration(90 * time.Second)
	data, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(data))

	var back Duration
	require.NoError(t, back.UnmarshalJSON(data))
	assert.Equal(t, d, back)
}
