// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// DBReadyTimeout is how long bootstrap waits for the database to accept
	// queries before giving up (e.g. "30s").
	DBReadyTimeout string `mapstructure:"DB_READY_TIMEOUT"`
	// DefaultTenantID is the tenant used when a hint resolves to nothing.
	DefaultTenantID string `mapstructure:"DEFAULT_TENANT_ID"`
	// BcryptCost is the bcrypt cost factor (4–31) for one-time code hashing; default 10.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// SMSLocalAPIKey is the API key for the SMS Local delivery channel.
	SMSLocalAPIKey string `mapstructure:"SMS_LOCAL_API_KEY"`
	// SMSLocalSender is the optional sender ID for SMS Local.
	SMSLocalSender string `mapstructure:"SMS_LOCAL_SENDER"`
	// SMSLocalBaseURL is the SMS Local API base URL.
	SMSLocalBaseURL string `mapstructure:"SMS_LOCAL_BASE_URL"`
	// DefaultChannel is the delivery channel used when the request names none.
	DefaultChannel string `mapstructure:"DEFAULT_DELIVERY_CHANNEL"`
	// OTLPEndpoint enables trace export when set (e.g. http://localhost:4317).
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure disables TLS for the OTLP exporter (standard OTEL behavior for http endpoints).
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is the service name reported in telemetry.
	ServiceName string `mapstructure:"SERVICE_NAME"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_READY_TIMEOUT", "30s")
	v.SetDefault("DEFAULT_TENANT_ID", "")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("SMS_LOCAL_BASE_URL", "https://www.smslocal.com/dev/bulkV2")
	v.SetDefault("DEFAULT_DELIVERY_CHANNEL", "sms")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", true)
	v.SetDefault("SERVICE_NAME", "chat-auth")
	v.SetDefault("APP_ENV", "development")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 10
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	// The default tenant id is written into uuid columns whenever a hint
	// resolves to nothing, so a malformed value must not reach the database.
	if cfg.DefaultTenantID != "" {
		if _, err := uuid.Parse(cfg.DefaultTenantID); err != nil {
			return nil, errors.New("config: DEFAULT_TENANT_ID must be a UUID")
		}
	}

	return &cfg, nil
}

// ReadyTimeout parses DBReadyTimeout as a time.Duration. Returns 30s if
// unset or invalid.
func (c *Config) ReadyTimeout() time.Duration {
	d, err := time.ParseDuration(c.DBReadyTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}
