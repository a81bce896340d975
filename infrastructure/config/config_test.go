package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.AuthEnabled())
	assert.False(t, cfg.IsLambda)
	assert.Equal(t, 5*time.Second, cfg.BusyTimeout)
}

func TestLoadConfigLayering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server_address: ":9000"
database_path: /data/graph.db
busy_timeout: 2s
allowed_origins: [https://a.example, https://b.example]
rate_limit_rps: 5
rate_limit_burst: 10
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SERVER_ADDRESS", ":7000")
	t.Setenv("ENABLE_TRACING", "yes")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.ServerAddress, "environment wins over file")
	assert.Equal(t, "/data/graph.db", cfg.DatabasePath)
	assert.Equal(t, 2*time.Second, cfg.BusyTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 5.0, cfg.RateLimitRPS)
	assert.True(t, cfg.EnableTracing)
}

func TestLoadConfigBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server_address: [unclosed"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"production without secret", func(c *Config) { c.Environment = "production" }, false},
		{"production with wildcard origin", func(c *Config) {
			c.Environment = "production"
			c.JWTSecret = "s3cret"
		}, false},
		{"production complete", func(c *Config) {
			c.Environment = "production"
			c.JWTSecret = "s3cret"
			c.AllowedOrigins = []string{"https://recipes.example"}
		}, true},
		{"burst missing", func(c *Config) { c.RateLimitBurst = 0 }, false},
		{"no database", func(c *Config) { c.DatabasePath = "" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
