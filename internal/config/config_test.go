package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalConfig = `
webhook:
  token: hunter2
ig:
  api_key: key
  identifier: user
  password: pass
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, ":9980", cfg.App.HTTPAddr)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, 15, cfg.IG.TimeoutSeconds)
	assert.Equal(t, 5, cfg.IG.RetryMax)
	assert.Equal(t, 360, cfg.IG.SessionTTLMinutes)
	assert.Equal(t, 1, cfg.Engine.ConfirmAttempts)
	assert.Equal(t, 500, cfg.Engine.ConfirmBackoffMS)
	assert.False(t, cfg.IG.Live)
	assert.Equal(t, "https://demo-api.ig.com/gateway/deal", cfg.IG.BaseURL())
}

func TestLoadLiveSelectsLiveURL(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+`
  live: true
`))
	require.NoError(t, err)
	assert.Equal(t, "https://api.ig.com/gateway/deal", cfg.IG.BaseURL())
}

func TestLoadRequiresWebhookToken(t *testing.T) {
	_, err := Load(writeConfig(t, `
ig:
  api_key: key
  identifier: user
  password: pass
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook.token")
}

func TestLoadRequiresCredentials(t *testing.T) {
	_, err := Load(writeConfig(t, `
webhook:
  token: hunter2
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ig.api_key")
}

func TestLoadEnvOverridesSecret(t *testing.T) {
	t.Setenv("IGBRIDGE_IG_PASSWORD", "from-env")
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.IG.Password)
}

func TestLoadTelegramValidation(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+`
notify:
  telegram:
    enabled: true
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
