package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProductionConfig() *Config {
	return &Config{
		Env:           "production",
		Port:          "8080",
		DBDriver:      "postgres",
		DBSSLMode:     "require",
		DBPassword:    "secure-password",
		SessionSecret: "session-secret-at-least-32-chars-long",
		JWTSecret:     "secure-secret-at-least-32-chars-long",
		BcryptCost:    12,
		TimelineLimit: 100,
	}
}

func TestConfig_ValidateSSLMode(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		expectError bool
	}{
		{"Production with empty SSL mode", "production", "", true},
		{"Production with disable SSL mode", "production", "disable", true},
		{"Production with require SSL mode", "production", "require", false},
		{"Prod with disable SSL mode", "prod", "disable", true},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validProductionConfig()
			c.Env = tt.env
			c.DBSSLMode = tt.sslMode

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateSecrets(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"Missing session secret", func(c *Config) { c.SessionSecret = "" }},
		{"Default session secret in production", func(c *Config) { c.SessionSecret = defaultSecret }},
		{"Default JWT secret in production", func(c *Config) { c.JWTSecret = defaultSecret }},
		{"Short JWT secret in production", func(c *Config) { c.JWTSecret = "short" }},
		{"Weak DB password in production", func(c *Config) { c.DBPassword = "password" }},
		{"Unknown driver", func(c *Config) { c.DBDriver = "mysql" }},
		{"Bcrypt cost out of range", func(c *Config) { c.BcryptCost = 40 }},
		{"Missing port", func(c *Config) { c.Port = "" }},
		{"Negative timeline limit", func(c *Config) { c.TimelineLimit = -1 }},
		{"Timeline limit above max", func(c *Config) { c.TimelineLimit = MaxTimelineLimit + 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validProductionConfig()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}

	assert.NoError(t, validProductionConfig().Validate())
}

func TestConfig_SQLiteSkipsPostgresChecks(t *testing.T) {
	c := validProductionConfig()
	c.DBDriver = "sqlite"
	c.DBPassword = ""
	c.DBSSLMode = ""
	assert.NoError(t, c.Validate())
}

func TestLoadConfig_EnvironmentNormalization(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("TIMELINE_LIMIT", "50")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, 50, c.TimelineLimit)
	assert.Equal(t, 10, c.BcryptCost)
	assert.False(t, c.IsProduction())
}
