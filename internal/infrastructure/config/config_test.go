package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"batchline/internal/domain/allocation"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load()
	require.NoError(t, err)
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg := validConfig(t)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.EqualValues(t, 25, cfg.DB.MaxConns)
	assert.Equal(t, allocation.PolicyCreationOrder, cfg.SelectionPolicy())
	assert.True(t, cfg.Audit.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.Idempotency.TTL)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Environment(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("integration-key"), bcrypt.MinCost)
	require.NoError(t, err)

	t.Setenv("BATCHLINE_HTTP_ADDR", ":9090")
	t.Setenv("BATCHLINE_HTTP_READ_TIMEOUT", "5s")
	t.Setenv("BATCHLINE_ALLOCATION_POLICY", "largest_first")
	t.Setenv("BATCHLINE_GAUGE_DISABLED_CATEGORIES", "TILE,ACC")
	t.Setenv("BATCHLINE_AUTH_API_KEYS", "erp-sync:"+string(hash))
	t.Setenv("BATCHLINE_IDEMPOTENCY_TTL", "1h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, allocation.PolicyLargestFirst, cfg.SelectionPolicy())
	assert.Equal(t, []string{"TILE", "ACC"}, cfg.Gauge.DisabledCategories)
	assert.Equal(t, string(hash), cfg.Auth.APIKeys["erp-sync"])
	assert.Equal(t, time.Hour, cfg.Idempotency.TTL)

	assert.True(t, cfg.GaugeDisabled("TILE"))
	assert.False(t, cfg.GaugeDisabled("ALUM"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Log.Level = "verbose" },
			wantErr: "BATCHLINE_LOG_LEVEL",
		},
		{
			name:    "unknown policy",
			mutate:  func(c *Config) { c.Allocation.Policy = "round_robin" },
			wantErr: "selection policy",
		},
		{
			name:    "empty dsn",
			mutate:  func(c *Config) { c.DB.DSN = "" },
			wantErr: "BATCHLINE_DB_DSN",
		},
		{
			name:    "production keeps dev secret",
			mutate:  func(c *Config) { c.App.Env = "production" },
			wantErr: "real secret",
		},
		{
			name:    "api key not bcrypt",
			mutate:  func(c *Config) { c.Auth.APIKeys = map[string]string{"erp": "plaintext"} },
			wantErr: "not a bcrypt hash",
		},
		{
			name:    "non-positive ttl",
			mutate:  func(c *Config) { c.Idempotency.TTL = 0 },
			wantErr: "BATCHLINE_IDEMPOTENCY_TTL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ProductionWithRealSecret(t *testing.T) {
	cfg := validConfig(t)
	cfg.App.Env = "production"
	cfg.Auth.JWTSecret = "0123456789abcdef0123456789abcdef"
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.IsProduction())
}
