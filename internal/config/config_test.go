package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `backend: vault
namespace: com.example.app
account: alice
access_group: TEAM.shared
accessibility: when_unlocked
synchronizable: true
log_level: debug
log_format: json
options:
  VAULT_ADDR: http://127.0.0.1:8200
  VAULT_MAX_RETRIES: 3
  VAULT_SKIP_VERIFY: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "vault", cfg.Backend)
	assert.Equal(t, "com.example.app", cfg.Namespace)
	assert.Equal(t, "alice", cfg.Account)
	assert.Equal(t, "TEAM.shared", cfg.AccessGroup)
	assert.Equal(t, "when_unlocked", cfg.Accessibility)
	assert.True(t, cfg.Synchronizable)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)

	opts := cfg.BackendOptions()
	assert.Equal(t, "http://127.0.0.1:8200", opts["VAULT_ADDR"])
	assert.Equal(t, "3", opts["VAULT_MAX_RETRIES"])
	assert.Equal(t, "true", opts["VAULT_SKIP_VERIFY"])
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, "# nothing here\n"))
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
	assert.Empty(t, cfg.BackendOptions())
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "backend: [unterminated\n"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := &Config{Backend: "keyring", Namespace: "from-file"}
	t.Setenv("LOCKBOX_BACKEND", "file")
	t.Setenv("LOCKBOX_ACCESS_GROUP", "group")
	t.Setenv("LOCKBOX_SYNCHRONIZABLE", "true")

	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, "file", cfg.Backend)
	assert.Equal(t, "from-file", cfg.Namespace)
	assert.Equal(t, "group", cfg.AccessGroup)
	assert.True(t, cfg.Synchronizable)

	t.Setenv("LOCKBOX_SYNCHRONIZABLE", "perhaps")
	assert.Error(t, cfg.ApplyEnv())
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("HOME", "/home/lockbox")
	assert.Equal(t, filepath.Join("/home/lockbox", ".lockbox", "config.yaml"), DefaultPath())
}
