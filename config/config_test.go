package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "development", s.Environment)
	assert.Equal(t, "mock", s.Providers.Model)
	assert.Equal(t, "local", s.Sandbox.Tier)
	assert.Equal(t, 100.0, s.Budget.DefaultLimitUSD)
	assert.Equal(t, []float64{50, 80, 100}, s.Budget.AlertPercentages)
	assert.True(t, s.Budget.AutoPauseEnabled)
	assert.Equal(t, "/v1", s.Server.BasePath)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
environment: staging
server:
  addr: ":9090"
budget:
  default_limit_usd: 25
sandbox:
  tier: process
providers:
  model: openai
  openai_key: sk-test
`), 0o600))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "staging", s.Environment)
	assert.Equal(t, ":9090", s.Server.Addr)
	assert.Equal(t, 25.0, s.Budget.DefaultLimitUSD)
	assert.Equal(t, "process", s.Sandbox.Tier)
	assert.Equal(t, "openai", s.Providers.Model)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	t.Setenv("GENERATE_AGENT_ENVIRONMENT", "staging")
	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "staging", s.Environment)
}

func TestValidateRejections(t *testing.T) {
	base := func() *Settings {
		s, err := Load("")
		require.NoError(t, err)
		return s
	}

	s := base()
	s.Environment = "qa"
	assert.ErrorContains(t, s.Validate(), "unknown environment")

	s = base()
	s.Budget.DefaultLimitUSD = 0
	assert.ErrorContains(t, s.Validate(), "default_limit_usd")

	s = base()
	s.Budget.AlertPercentages = []float64{150}
	assert.ErrorContains(t, s.Validate(), "alert percentage")

	s = base()
	s.Sandbox.Tier = "remote"
	assert.ErrorContains(t, s.Validate(), "remote_url")

	s = base()
	s.Environment = "production"
	assert.ErrorContains(t, s.Validate(), "not allowed in production")

	s = base()
	s.Providers.Model = "openai"
	assert.ErrorContains(t, s.Validate(), "openai_key")

	s = base()
	s.Providers.Model = "whatever"
	assert.ErrorContains(t, s.Validate(), "unknown model provider")
}
