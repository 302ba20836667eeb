package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "bolt://localhost:7687", cfg.Neo4j.URI)
	assert.Equal(t, "neo4j", cfg.Neo4j.Database)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "localhost:3000", cfg.Server.Addr())
	assert.Equal(t, int64(5), cfg.Webhooks.MaxAttempts)
	assert.Equal(t, 24*time.Hour, cfg.Webhooks.AttemptTTL)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	contents := `
neo4j:
  uri: bolt://graph:7687
  password: secret
provider:
  api_key: sk_test_123
  webhook_secret: whsec_abc
server:
  port: 8080
webhooks:
  max_attempts: 3
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "graphbill.yml"), []byte(contents), 0o644))
	chdir(t, dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "bolt://graph:7687", cfg.Neo4j.URI)
	assert.Equal(t, "secret", cfg.Neo4j.Password)
	assert.Equal(t, "sk_test_123", cfg.Provider.APIKey)
	assert.Equal(t, "whsec_abc", cfg.Provider.WebhookSecret)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(3), cfg.Webhooks.MaxAttempts)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "empty neo4j uri",
			mutate:  func(c *Config) { c.Neo4j.URI = "" },
			wantErr: "neo4j.uri",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "server.port",
		},
		{
			name:    "zero attempts",
			mutate:  func(c *Config) { c.Webhooks.MaxAttempts = 0 },
			wantErr: "max_attempts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Neo4j:    Neo4jConfig{URI: "bolt://localhost:7687"},
				Server:   ServerConfig{Port: 3000},
				Webhooks: WebhookConfig{MaxAttempts: 5},
			}
			tt.mutate(cfg)
			err := validateConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
