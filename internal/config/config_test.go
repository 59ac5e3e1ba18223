package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 3080, cfg.Port)
	assert.Equal(t, 100, cfg.RateLimit.PerDay)
	assert.False(t, cfg.RateLimit.Enforce)
	assert.False(t, cfg.ResumeEnabled)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadJSONFile(t *testing.T) {
	dir := t.TempDir()
	content := `{
		// local overrides
		"port": 4000,
		"defaultModel": "anthropic/chat-model",
		"rateLimit": {"perDay": 5, "enforce": true}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "arbor.jsonc"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.Port)
	assert.Equal(t, "anthropic/chat-model", cfg.DefaultModel)
	assert.Equal(t, 5, cfg.RateLimit.PerDay)
	assert.True(t, cfg.RateLimit.Enforce)
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	content := "port: 5000\nthreadsServiceUrl: http://threads.local\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "arbor.yaml"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, "http://threads.local", cfg.ThreadsServiceURL)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "arbor.json"), []byte(`{"port": 4000}`), 0o644))

	t.Setenv("ARBOR_PORT", "9999")
	t.Setenv("ARBOR_AUTH_SECRET", "sekrit")
	t.Setenv("ARBOR_RESUME_ENABLED", "true")
	t.Setenv("ARBOR_RATE_LIMIT_ENFORCE", "1")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, "sekrit", cfg.AuthSecret)
	assert.True(t, cfg.ResumeEnabled)
	assert.True(t, cfg.RateLimit.Enforce)
}

func TestProviderKeyFromEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sk-ant-test", cfg.Provider["anthropic"].APIKey)
}

func TestLoadMissingDirIsFine(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 3080, cfg.Port)
}
