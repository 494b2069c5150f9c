package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 180, cfg.Helios.UnitID)
	assert.Equal(t, 1, cfg.Helios.MailboxOffset)
	assert.Equal(t, 200*time.Millisecond, cfg.Helios.SettleDelay)
	assert.Equal(t, 5*time.Second, cfg.Helios.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Helios.PollInterval)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, time.Hour, cfg.Auth.AccessTokenTTL)
	assert.NotEmpty(t, cfg.Presets.SearchPaths)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  http_port: 9090
helios:
  address: "10.0.0.7:502"
  settle_delay: 250ms
  poll_interval: 1m
database:
  enabled: true
  host: db
  password: secret
presets:
  search_paths: ["/srv/presets"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.HTTPPort)
	assert.Equal(t, "10.0.0.7:502", cfg.Helios.Address)
	assert.Equal(t, 250*time.Millisecond, cfg.Helios.SettleDelay)
	assert.Equal(t, time.Minute, cfg.Helios.PollInterval)
	assert.Equal(t, 180, cfg.Helios.UnitID)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, "postgres://homegateway:secret@db:5432/homegateway?sslmode=disable", cfg.Database.DSN())
	assert.Equal(t, []string{"/srv/presets"}, cfg.Presets.SearchPaths)
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("HGW_HELIOS_ADDRESS", "kwl.local:502")
	t.Setenv("HGW_HELIOS_UNIT_ID", "17")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "kwl.local:502", cfg.Helios.Address)
	assert.Equal(t, 17, cfg.Helios.UnitID)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unit id zero", func(c *Config) { c.Helios.UnitID = 0 }},
		{"unit id too large", func(c *Config) { c.Helios.UnitID = 248 }},
		{"no address", func(c *Config) { c.Helios.Address = "" }},
		{"no settle delay", func(c *Config) { c.Helios.SettleDelay = 0 }},
		{"poll faster than settle", func(c *Config) { c.Helios.PollInterval = 10 * time.Millisecond }},
		{"bad port", func(c *Config) { c.Server.HTTPPort = 70000 }},
		{"no token ttl", func(c *Config) { c.Auth.AccessTokenTTL = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, base.Validate())
}

func TestJWTSecret(t *testing.T) {
	a := AuthConfig{JWTSecretEnv: "HGW_TEST_JWT"}
	assert.Equal(t, devJWTSecret, a.GetJWTSecret())
	assert.False(t, a.IsProductionReady())

	t.Setenv("HGW_TEST_JWT", "0123456789abcdef0123456789abcdef")
	a.APIKeyHash = "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA"
	assert.True(t, a.IsProductionReady())
}
