package config

import (
	"errors"
	"sync"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	AppPort             int    `mapstructure:"APP_PORT"`
	AppBaseURL          string `mapstructure:"APP_BASE_URL"`
	BcryptCost          int    `mapstructure:"BCRYPT_COST"`
	SignInRatePerMin    int    `mapstructure:"SIGNIN_RATE_PER_MIN"`
	LogLevel            string `mapstructure:"LOG_LEVEL"`
	LogFormat           string `mapstructure:"LOG_FORMAT"`
	MongoURI            string `mapstructure:"MONGO_URI"`
	MongoDBName         string `mapstructure:"MONGO_DB_NAME"`
	JWTSecret           string `mapstructure:"JWT_SECRET"`
	AccessTokenMinutes  int    `mapstructure:"ACCESS_TOKEN_MINUTES"`
	RefreshTokenDays    int    `mapstructure:"REFRESH_TOKEN_DAYS"`
	RefreshTokenRotate  bool   `mapstructure:"REFRESH_TOKEN_ROTATE"`
	ResetTokenMinutes   int    `mapstructure:"RESET_TOKEN_MINUTES"`
	WSMaxSessionSec     int    `mapstructure:"WS_MAX_SESSION_SEC"`
	WSOutboxBuffer      int    `mapstructure:"WS_OUTBOX_BUFFER"`
	RouteMetricsEnabled bool   `mapstructure:"ROUTE_METRICS_ENABLED"`
	RequestLogEnabled   bool   `mapstructure:"REQUEST_LOG_ENABLED"`

	// Google sign-in is disabled when the client ID is empty.
	GoogleClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `mapstructure:"GOOGLE_REDIRECT_URL"`

	// Password-reset mail is logged instead of sent when SMTP_HOST is empty.
	SMTPHost   string `mapstructure:"SMTP_HOST"`
	SMTPPort   int    `mapstructure:"SMTP_PORT"`
	SMTPUser   string `mapstructure:"SMTP_USER"`
	SMTPPass   string `mapstructure:"SMTP_PASS"`
	SMTPSender string `mapstructure:"SMTP_SENDER"`
}

var (
	cachedConfig *Config
	configMutex  sync.RWMutex
)

// Load loads configuration from environment variables and an optional .env
// file, caching the result for subsequent calls.
func Load() (Config, error) {
	configMutex.RLock()
	if cachedConfig != nil {
		defer configMutex.RUnlock()
		return *cachedConfig, nil
	}
	configMutex.RUnlock()

	configMutex.Lock()
	defer configMutex.Unlock()

	// Another goroutine may have loaded it while we waited for the lock.
	if cachedConfig != nil {
		return *cachedConfig, nil
	}

	v := viper.New()

	v.SetDefault("APP_PORT", 8080)
	v.SetDefault("APP_BASE_URL", "http://localhost:8080")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("SIGNIN_RATE_PER_MIN", 5)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("MONGO_URI", "mongodb://mongo:27017")
	v.SetDefault("MONGO_DB_NAME", "notesync")
	v.SetDefault("JWT_SECRET", "this-is-a-default-jwt-secret-key-with-32-plus-characters")
	v.SetDefault("ACCESS_TOKEN_MINUTES", 15)
	v.SetDefault("REFRESH_TOKEN_DAYS", 30)
	v.SetDefault("REFRESH_TOKEN_ROTATE", true)
	v.SetDefault("RESET_TOKEN_MINUTES", 60)
	v.SetDefault("WS_MAX_SESSION_SEC", 900)
	v.SetDefault("WS_OUTBOX_BUFFER", 16)
	v.SetDefault("ROUTE_METRICS_ENABLED", true)
	v.SetDefault("REQUEST_LOG_ENABLED", false)
	v.SetDefault("SMTP_PORT", 587)

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	// A missing .env file is fine; anything else is a real error.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	cachedConfig = &cfg

	return cfg, nil
}

// ResetCache clears the cached configuration (for testing purposes)
func ResetCache() {
	configMutex.Lock()
	defer configMutex.Unlock()
	cachedConfig = nil
}

// Validate checks if required configuration fields are properly set
func (c Config) Validate() error {
	if c.AppPort <= 0 {
		return errors.New("APP_PORT must be greater than 0")
	}
	if c.BcryptCost < 10 || c.BcryptCost > 16 {
		return errors.New("BCRYPT_COST must be between 10 and 16")
	}
	if c.SignInRatePerMin < 1 {
		return errors.New("SIGNIN_RATE_PER_MIN must be greater than or equal to 1")
	}
	if c.LogLevel == "" {
		return errors.New("LOG_LEVEL cannot be empty")
	}
	if c.LogFormat == "" {
		return errors.New("LOG_FORMAT cannot be empty")
	}
	if c.MongoURI == "" {
		return errors.New("MONGO_URI cannot be empty")
	}
	if c.MongoDBName == "" {
		return errors.New("MONGO_DB_NAME cannot be empty")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters")
	}
	if c.AccessTokenMinutes <= 0 {
		return errors.New("ACCESS_TOKEN_MINUTES must be greater than 0")
	}
	if c.RefreshTokenDays <= 0 {
		return errors.New("REFRESH_TOKEN_DAYS must be greater than 0")
	}
	if c.ResetTokenMinutes <= 0 {
		return errors.New("RESET_TOKEN_MINUTES must be greater than 0")
	}
	if c.WSMaxSessionSec <= 0 {
		return errors.New("WS_MAX_SESSION_SEC must be greater than 0")
	}
	if c.WSOutboxBuffer <= 0 {
		return errors.New("WS_OUTBOX_BUFFER must be greater than 0")
	}
	if c.GoogleClientID != "" && c.GoogleClientSecret == "" {
		return errors.New("GOOGLE_CLIENT_SECRET is required when GOOGLE_CLIENT_ID is set")
	}
	if c.SMTPHost != "" && c.SMTPSender == "" {
		return errors.New("SMTP_SENDER is required when SMTP_HOST is set")
	}
	return nil
}

// GoogleSignInEnabled reports whether the Google credential flow is configured.
func (c Config) GoogleSignInEnabled() bool {
	return c.GoogleClientID != ""
}
