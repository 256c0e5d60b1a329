// Package config loads process configuration from the environment.
// A .env file in the working directory is read first when present.
// The returned Config is never mutated after Load.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full process configuration.
type Config struct {
	AppEnv     string
	LogLevel   string
	ServerPort string

	DatabaseURL  string
	DatabaseName string
	Database     DatabaseConfig
	RedisAddress string
	RedisPass    string

	JWTSecret string
	JWTExpiry time.Duration

	Gateway  GatewayConfig
	Payouts  PayoutConfig
	SMTP     SMTPConfig
	SMS      HTTPChannelConfig
	WhatsApp HTTPChannelConfig

	CompanyStateCode string
	Timezone         string
	AdminEmail       string
	ReportRecipients []string
	CORSOrigins      []string

	IdempotencyEnabled bool
	WorkerInterval     time.Duration
}

// DatabaseConfig tunes the connection pool and its sessions.
type DatabaseConfig struct {
	AppName          string
	MaxConns         int
	StatementTimeout time.Duration
}

// GatewayConfig holds credentials of the inbound payments gateway.
type GatewayConfig struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Timeout   time.Duration
}

// PayoutConfig holds credentials of the outbound payouts API.
type PayoutConfig struct {
	BaseURL       string
	KeyID         string
	KeySecret     string
	AccountNumber string
	MockMode      bool
	// MockSettleAfter is how long a mock payout stays "processing".
	MockSettleAfter time.Duration
	Timeout         time.Duration
}

// SMTPConfig configures the e-mail channel.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// HTTPChannelConfig configures an HTTP-based messaging provider.
type HTTPChannelConfig struct {
	URL   string
	Token string
}

// Enabled reports whether the channel has an endpoint.
func (c HTTPChannelConfig) Enabled() bool { return c.URL != "" }

// Enabled reports whether SMTP is configured.
func (c SMTPConfig) Enabled() bool { return c.Host != "" }

// IsDevelopment reports whether the process runs in development mode.
func (c *Config) IsDevelopment() bool { return c.AppEnv == "development" }

// Load reads the environment. Missing mandatory variables are reported together.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var missing []string
	must := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := &Config{
		AppEnv:     getEnv("APP_ENV", "production"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		ServerPort: getEnv("SERVER_PORT", "8080"),

		DatabaseURL:  must("DATABASE_URL"),
		DatabaseName: getEnv("DATABASE_NAME", "glasserp"),
		Database: DatabaseConfig{
			AppName:          getEnv("DATABASE_APP_NAME", "glasserp"),
			MaxConns:         getEnvInt("DATABASE_MAX_CONNS", 25),
			StatementTimeout: getEnvDuration("DATABASE_STATEMENT_TIMEOUT", 30*time.Second),
		},
		RedisAddress: os.Getenv("REDIS_ADDRESS"),
		RedisPass:    os.Getenv("REDIS_PASSWORD"),

		JWTSecret: must("JWT_SECRET"),
		JWTExpiry: getEnvDuration("JWT_EXPIRY", 7*24*time.Hour),

		Gateway: GatewayConfig{
			BaseURL:   getEnv("GATEWAY_BASE_URL", "https://api.razorpay.com/v1"),
			KeyID:     os.Getenv("GATEWAY_KEY_ID"),
			KeySecret: os.Getenv("GATEWAY_KEY_SECRET"),
			Timeout:   getEnvDuration("GATEWAY_TIMEOUT", 15*time.Second),
		},
		Payouts: PayoutConfig{
			BaseURL:         getEnv("PAYOUT_BASE_URL", "https://api.razorpay.com/v1"),
			KeyID:           os.Getenv("PAYOUT_KEY_ID"),
			KeySecret:       os.Getenv("PAYOUT_KEY_SECRET"),
			AccountNumber:   os.Getenv("PAYOUT_ACCOUNT_NUMBER"),
			MockMode:        getEnvBool("PAYOUT_MOCK_MODE", false),
			MockSettleAfter: getEnvDuration("PAYOUT_MOCK_SETTLE_AFTER", 0),
			Timeout:         getEnvDuration("PAYOUT_TIMEOUT", 15*time.Second),
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getEnvInt("SMTP_PORT", 587),
			User:     os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
		},
		SMS: HTTPChannelConfig{
			URL:   os.Getenv("SMS_API_URL"),
			Token: os.Getenv("SMS_API_KEY"),
		},
		WhatsApp: HTTPChannelConfig{
			URL:   os.Getenv("WHATSAPP_API_URL"),
			Token: os.Getenv("WHATSAPP_API_TOKEN"),
		},

		CompanyStateCode: getEnv("COMPANY_STATE_CODE", "27"),
		Timezone:         getEnv("TIMEZONE", "Asia/Kolkata"),
		AdminEmail:       os.Getenv("ADMIN_EMAIL"),
		ReportRecipients: splitList(os.Getenv("REPORT_RECIPIENTS")),
		CORSOrigins:      splitList(getEnv("CORS_ORIGINS", "*")),

		IdempotencyEnabled: getEnvBool("IDEMPOTENCY_ENABLED", true),
		WorkerInterval:     getEnvDuration("WORKER_INTERVAL", 30*time.Second),
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variable(s) not set: %s", strings.Join(missing, ", "))
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.CompanyStateCode) != 2 {
		return errors.New("COMPANY_STATE_CODE must be a two-digit state code")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE: %w", err)
	}
	if !c.Payouts.MockMode && c.Payouts.KeyID != "" && c.Payouts.AccountNumber == "" {
		return errors.New("PAYOUT_ACCOUNT_NUMBER is required when payouts are live")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
