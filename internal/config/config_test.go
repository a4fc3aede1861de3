package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:                      "development",
		DBDriver:                 "postgres",
		DBSSLMode:                "disable",
		JWTSecret:                "secure-secret-at-least-32-chars-long",
		DBPassword:               "secure-password",
		Port:                     "8080",
		DBConnMaxLifetimeMinutes: 1,
		RedisURL:                 "redis://localhost:6379",
		MailDriver:               "log",
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
		{"Prod with empty SSL mode", "prod", "", true},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
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

func TestConfig_ValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing port", func(c *Config) { c.Port = "" }},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }},
		{"unknown driver", func(c *Config) { c.DBDriver = "mysql" }},
		{"smtp without host", func(c *Config) { c.MailDriver = "smtp" }},
		{"unknown mail driver", func(c *Config) { c.MailDriver = "carrier-pigeon" }},
		{"negative audit workers", func(c *Config) { c.AuditWorkers = -1 }},
		{"sqlite in production", func(c *Config) {
			c.Env = "production"
			c.DBSSLMode = "require"
			c.DBDriver = "sqlite"
		}},
		{"default secret in production", func(c *Config) {
			c.Env = "production"
			c.DBSSLMode = "require"
			c.JWTSecret = defaultJWTSecret
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestConfig_NegativeCeilingDisablesFilter(t *testing.T) {
	c := validConfig()
	c.ActivityDurationCeiling = -time.Second
	assert.NoError(t, c.Validate())
}

func TestLoadConfig_DefaultActivityDurationCeiling(t *testing.T) {
	defer viper.Reset()
	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_DRIVER", "sqlite")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 100*time.Microsecond, c.ActivityDurationCeiling)
}

func TestConfig_Durations(t *testing.T) {
	c := &Config{}
	assert.Equal(t, time.Hour, c.JWTTTL())
	assert.Equal(t, 15*time.Minute, c.ResetTokenTTL())

	c.JWTTTLMinutes = 15
	c.ResetTokenTTLMinutes = 5
	assert.Equal(t, 15*time.Minute, c.JWTTTL())
	assert.Equal(t, 5*time.Minute, c.ResetTokenTTL())
}

func TestConfig_KafkaBrokerList(t *testing.T) {
	assert.Empty(t, (&Config{}).KafkaBrokerList())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, (&Config{KafkaBrokers: " k1:9092, ,k2:9092 "}).KafkaBrokerList())
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("ACTIVITY_DURATION_CEILING", "250ms")
	t.Setenv("SALE_DELETE_RELEASES_PROPERTY", "true")
	t.Setenv("KAFKA_BROKERS", "localhost:9092")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, 250*time.Millisecond, c.ActivityDurationCeiling)
	assert.True(t, c.SaleDeleteReleasesProperty)
	assert.Equal(t, []string{"localhost:9092"}, c.KafkaBrokerList())
	assert.Equal(t, "estate.activity", c.KafkaActivityTopic)
	assert.Equal(t, 1024, c.AuditBufferSize)
}
