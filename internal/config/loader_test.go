package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir, content string) {
	t.Helper()
	path := filepath.Join(dir, "patchreview.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(LoaderOptions{ConfigPaths: []string{t.TempDir()}})
	require.NoError(t, err)

	assert.Equal(t, "claude", cfg.Engine.Binary)
	assert.False(t, cfg.Engine.Streaming)
	assert.Equal(t, "normal", cfg.Review.Strictness)
	assert.Equal(t, 200000, cfg.Review.MaxDiffChars)
	assert.Equal(t, "out", cfg.Output.Directory)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "human", cfg.Logging.Format)
	assert.False(t, cfg.Store.Enabled)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `
engine:
  model: opus
  streaming: true
  maxTurns: 40
review:
  strictness: strict
store:
  enabled: true
  path: runs.db
logging:
  level: debug
  format: json
`)

	cfg, err := Load(LoaderOptions{ConfigPaths: []string{dir}})
	require.NoError(t, err)

	assert.Equal(t, "opus", cfg.Engine.Model)
	assert.True(t, cfg.Engine.Streaming)
	assert.Equal(t, 40, cfg.Engine.MaxTurns)
	assert.Equal(t, "strict", cfg.Review.Strictness)
	assert.True(t, cfg.Store.Enabled)
	assert.Equal(t, "runs.db", cfg.Store.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Unset fields keep their defaults.
	assert.Equal(t, "claude", cfg.Engine.Binary)
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("PR_TEST_TOKEN", "secret-token")

	dir := t.TempDir()
	writeConfigFile(t, dir, `
github:
  token: ${PR_TEST_TOKEN}
`)

	cfg, err := Load(LoaderOptions{ConfigPaths: []string{dir}})
	require.NoError(t, err)
	assert.Equal(t, "secret-token", cfg.GitHub.Token)
}

func TestLoad_UnsetEnvVarKeptLiteral(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `
store:
  path: ${PR_DEFINITELY_UNSET_VAR}
`)

	cfg, err := Load(LoaderOptions{ConfigPaths: []string{dir}})
	require.NoError(t, err)
	assert.Equal(t, "${PR_DEFINITELY_UNSET_VAR}", cfg.Store.Path)
}

func TestLoad_RejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `
review:
  strictness: brutal
`)

	_, err := Load(LoaderOptions{ConfigPaths: []string{dir}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strictness")
}

func TestLoad_RejectsBadTimeout(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `
engine:
  timeout: fivemins
`)

	_, err := Load(LoaderOptions{ConfigPaths: []string{dir}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine.timeout")
}

func TestLocateConfigFile_MissingReturnsEmpty(t *testing.T) {
	assert.Equal(t, "", locateConfigFile("patchreview", []string{t.TempDir()}))
}
