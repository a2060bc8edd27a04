package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("IMPACT_CACHE_SIZE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 512, cfg.Impact.CacheSize)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("IMPACT_CACHE_SIZE", "64")
	t.Setenv("SERVER_SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("CORS_ORIGINS", "https://ea.example.org, https://admin.example.org")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, 64, cfg.Impact.CacheSize)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, []string{"https://ea.example.org", "https://admin.example.org"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 2.5, cfg.RateLimit.RPS)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-number")
	t.Setenv("SERVER_READ_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: "8080"},
			Database: DatabaseConfig{Host: "localhost"},
			Impact:   ImpactConfig{CacheSize: 1},
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("missing port", func(t *testing.T) {
		c := base()
		c.Server.Port = ""
		assert.Error(t, c.Validate())
	})

	t.Run("dsn replaces host", func(t *testing.T) {
		c := base()
		c.Database.Host = ""
		c.Database.DSN = "postgres://localhost/ea"
		assert.NoError(t, c.Validate())
	})

	t.Run("non-positive cache", func(t *testing.T) {
		c := base()
		c.Impact.CacheSize = 0
		assert.Error(t, c.Validate())
	})

	t.Run("dev user refused in production", func(t *testing.T) {
		c := base()
		c.App.Environment = "production"
		c.Auth.DevUser = "demo-user"
		assert.Error(t, c.Validate())
	})
}

func TestLoad_Auth(t *testing.T) {
	t.Setenv("AUTH_ADMIN_USERS", "alice,bob")
	t.Setenv("AUTH_DEV_USER", "demo-user")
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, cfg.Auth.AdminUsers)
	assert.Equal(t, "demo-user", cfg.Auth.DevUser)
}
