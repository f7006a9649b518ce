package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// helpers
// -----------------------------------------------------------------------------

// baseValidConfig returns a fully-valid configuration object that callers
// can tweak inside table tests.
func baseValidConfig() Config {
	return Config{
		AppPort:            8080,
		AppBaseURL:         "http://localhost:8080",
		BcryptCost:         12,
		SignInRatePerMin:   5,
		LogLevel:           "info",
		LogFormat:          "json",
		MongoURI:           "mongodb://localhost:27017",
		MongoDBName:        "test",
		JWTSecret:          "this-is-a-super-secret-jwt-key-with-32-plus-chars",
		AccessTokenMinutes: 15,
		RefreshTokenDays:   30,
		RefreshTokenRotate: true,
		ResetTokenMinutes:  60,
		WSMaxSessionSec:    900,
		WSOutboxBuffer:     16,
	}
}

// clearConfigEnvVars removes every environment variable that the Config loader
// consumes so each test starts with a clean slate.
func clearConfigEnvVars(t *testing.T) {
	t.Helper()

	for _, k := range []string{
		"APP_PORT",
		"APP_BASE_URL",
		"BCRYPT_COST",
		"SIGNIN_RATE_PER_MIN",
		"LOG_LEVEL",
		"LOG_FORMAT",
		"MONGO_URI",
		"MONGO_DB_NAME",
		"JWT_SECRET",
		"ACCESS_TOKEN_MINUTES",
		"REFRESH_TOKEN_DAYS",
		"REFRESH_TOKEN_ROTATE",
		"RESET_TOKEN_MINUTES",
		"WS_MAX_SESSION_SEC",
		"WS_OUTBOX_BUFFER",
		"ROUTE_METRICS_ENABLED",
		"REQUEST_LOG_ENABLED",
		"GOOGLE_CLIENT_ID",
		"GOOGLE_CLIENT_SECRET",
		"GOOGLE_REDIRECT_URL",
		"SMTP_HOST",
		"SMTP_PORT",
		"SMTP_USER",
		"SMTP_PASS",
		"SMTP_SENDER",
	} {
		if err := os.Unsetenv(k); err != nil {
			t.Logf("warning: failed to unset %s: %v", k, err)
		}
	}
}

func TestConfigLoadDefaults(t *testing.T) {
	clearConfigEnvVars(t)
	ResetCache()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.AppPort)
	assert.Equal(t, "http://localhost:8080", cfg.AppBaseURL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, 5, cfg.SignInRatePerMin)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "mongodb://mongo:27017", cfg.MongoURI)
	assert.Equal(t, "notesync", cfg.MongoDBName)
	assert.Equal(t, 15, cfg.AccessTokenMinutes)
	assert.Equal(t, 30, cfg.RefreshTokenDays)
	assert.True(t, cfg.RefreshTokenRotate)
	assert.Equal(t, 60, cfg.ResetTokenMinutes)
	assert.Equal(t, 900, cfg.WSMaxSessionSec)
	assert.Equal(t, 16, cfg.WSOutboxBuffer)
	assert.True(t, cfg.RouteMetricsEnabled)
	assert.False(t, cfg.RequestLogEnabled)
	assert.False(t, cfg.GoogleSignInEnabled())
	assert.Empty(t, cfg.SMTPHost)
}

func TestConfigLoadWithOverride(t *testing.T) {
	clearConfigEnvVars(t)
	ResetCache()

	t.Setenv("APP_PORT", "9999")
	t.Setenv("WS_OUTBOX_BUFFER", "64")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.AppPort)
	assert.Equal(t, 64, cfg.WSOutboxBuffer)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "mongodb://mongo:27017", cfg.MongoURI)
	assert.Equal(t, "notesync", cfg.MongoDBName)
}

func TestConfigCaching(t *testing.T) {
	clearConfigEnvVars(t)
	ResetCache()

	cfg1, err := Load()
	require.NoError(t, err)

	// second call should hit the cache
	cfg2, err := Load()
	require.NoError(t, err)

	assert.Equal(t, cfg1, cfg2)
}

func TestConfigGoogleSignInEnabled(t *testing.T) {
	cfg := baseValidConfig()
	assert.False(t, cfg.GoogleSignInEnabled())

	cfg.GoogleClientID = "client-id"
	cfg.GoogleClientSecret = "client-secret"
	assert.True(t, cfg.GoogleSignInEnabled())
}

// -----------------------------------------------------------------------------
// Validate() unit tests (table-driven)
// -----------------------------------------------------------------------------

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config) // mutates the baseValidConfig
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid config",
			modify: func(*Config) {
				// baseValidConfig is already valid
			},
		},
		{
			name: "invalid port - zero",
			modify: func(c *Config) {
				c.AppPort = 0
			},
			wantErr: true,
			errMsg:  "APP_PORT",
		},
		{
			name: "invalid port - negative",
			modify: func(c *Config) {
				c.AppPort = -1
			},
			wantErr: true,
			errMsg:  "APP_PORT",
		},
		{
			name: "bcrypt cost too low",
			modify: func(c *Config) {
				c.BcryptCost = 9
			},
			wantErr: true,
			errMsg:  "BCRYPT_COST",
		},
		{
			name: "bcrypt cost too high",
			modify: func(c *Config) {
				c.BcryptCost = 17
			},
			wantErr: true,
			errMsg:  "BCRYPT_COST",
		},
		{
			name: "signin rate too low",
			modify: func(c *Config) {
				c.SignInRatePerMin = 0
			},
			wantErr: true,
			errMsg:  "SIGNIN_RATE_PER_MIN",
		},
		{
			name: "empty log level",
			modify: func(c *Config) {
				c.LogLevel = ""
			},
			wantErr: true,
			errMsg:  "LOG_LEVEL",
		},
		{
			name: "empty log format",
			modify: func(c *Config) {
				c.LogFormat = ""
			},
			wantErr: true,
			errMsg:  "LOG_FORMAT",
		},
		{
			name: "empty mongo URI",
			modify: func(c *Config) {
				c.MongoURI = ""
			},
			wantErr: true,
			errMsg:  "MONGO_URI",
		},
		{
			name: "empty mongo db name",
			modify: func(c *Config) {
				c.MongoDBName = ""
			},
			wantErr: true,
			errMsg:  "MONGO_DB_NAME",
		},
		{
			name: "JWT secret too short",
			modify: func(c *Config) {
				c.JWTSecret = "short"
			},
			wantErr: true,
			errMsg:  "JWT_SECRET",
		},
		{
			name: "access token lifetime zero",
			modify: func(c *Config) {
				c.AccessTokenMinutes = 0
			},
			wantErr: true,
			errMsg:  "ACCESS_TOKEN_MINUTES",
		},
		{
			name: "refresh token lifetime zero",
			modify: func(c *Config) {
				c.RefreshTokenDays = 0
			},
			wantErr: true,
			errMsg:  "REFRESH_TOKEN_DAYS",
		},
		{
			name: "reset token lifetime zero",
			modify: func(c *Config) {
				c.ResetTokenMinutes = 0
			},
			wantErr: true,
			errMsg:  "RESET_TOKEN_MINUTES",
		},
		{
			name: "ws session limit zero",
			modify: func(c *Config) {
				c.WSMaxSessionSec = 0
			},
			wantErr: true,
			errMsg:  "WS_MAX_SESSION_SEC",
		},
		{
			name: "ws outbox buffer zero",
			modify: func(c *Config) {
				c.WSOutboxBuffer = 0
			},
			wantErr: true,
			errMsg:  "WS_OUTBOX_BUFFER",
		},
		{
			name: "google client ID without secret",
			modify: func(c *Config) {
				c.GoogleClientID = "client-id"
				c.GoogleClientSecret = ""
			},
			wantErr: true,
			errMsg:  "GOOGLE_CLIENT_SECRET",
		},
		{
			name: "SMTP host without sender",
			modify: func(c *Config) {
				c.SMTPHost = "smtp.example.com"
				c.SMTPSender = ""
			},
			wantErr: true,
			errMsg:  "SMTP_SENDER",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseValidConfig()
			tt.modify(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
