package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("HELPDESK_BASE_URL", "https://acme.zendesk.com/")
	t.Setenv("HELPDESK_EMAIL", "ops@acme.test")
	t.Setenv("HELPDESK_API_TOKEN", "secret")
	t.Setenv("HELPDESK_AGENT_IDS", "101, 202,303")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://acme.zendesk.com", cfg.Helpdesk.BaseURL)
	assert.Equal(t, []int64{101, 202, 303}, cfg.Helpdesk.AgentIDs)
	assert.Equal(t, 10*time.Second, cfg.Helpdesk.Timeout)
	assert.Equal(t, 50, cfg.Helpdesk.MaxPages)
	assert.Equal(t, 100, cfg.Sync.BatchSize)
	assert.Equal(t, 30*24*time.Hour, cfg.IncrementalWindow())
	assert.False(t, cfg.Redis.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SYNC_BATCH_SIZE", "25")
	t.Setenv("HELPDESK_TIMEOUT", "5s")
	t.Setenv("SYNC_SCHEDULE_ENABLED", "true")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/pulse?sslmode=disable")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Sync.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.Helpdesk.Timeout)
	assert.True(t, cfg.Sync.ScheduleEnabled)
	assert.Equal(t, "postgres://u:p@db:5432/pulse?sslmode=disable", cfg.GetDatabaseURL())
}

func TestLoad_InvalidAgentIDs(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HELPDESK_AGENT_IDS", "12,abc")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing base url", func(c *Config) { c.Helpdesk.BaseURL = "" }, "HELPDESK_BASE_URL"},
		{"missing token", func(c *Config) { c.Helpdesk.APIToken = "" }, "HELPDESK_API_TOKEN"},
		{"no agents", func(c *Config) { c.Helpdesk.AgentIDs = nil }, "HELPDESK_AGENT_IDS"},
		{"bad batch size", func(c *Config) { c.Sync.BatchSize = 0 }, "batch size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			cfg, err := Load()
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
