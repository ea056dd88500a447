package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends.
const (
	StoreBackendPostgres = "postgres"
	StoreBackendSupabase = "supabase"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Supabase SupabaseConfig
	Redis    RedisConfig
	NewRelic NewRelicConfig
	Stripe   StripeConfig
	Log      LogConfig

	// StoreBackend selects the Vehicle Store implementation.
	StoreBackend string
	// AppURL is the public base URL used for checkout redirects.
	AppURL string
	// MetricsEnabled exposes /metrics and records request metrics.
	MetricsEnabled bool
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// SupabaseConfig holds the PostgREST endpoint and service credential.
type SupabaseConfig struct {
	URL            string
	ServiceRoleKey string
	Timeout        time.Duration
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// StripeConfig holds payment gateway credentials.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	Timeout       time.Duration
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string
}

var defaults = map[string]any{
	"SERVER_PORT":               "8080",
	"SERVER_READ_TIMEOUT":       10 * time.Second,
	"SERVER_WRITE_TIMEOUT":      10 * time.Second,
	"DB_HOST":                   "localhost",
	"DB_PORT":                   "5432",
	"DB_USER":                   "postgres",
	"DB_PASSWORD":               "postgres",
	"DB_NAME":                   "dealership",
	"DB_SSLMODE":                "disable",
	"SUPABASE_URL":              "",
	"SUPABASE_SERVICE_ROLE_KEY": "",
	"SUPABASE_TIMEOUT":          10 * time.Second,
	"REDIS_ADDR":                "localhost:6379",
	"REDIS_PASSWORD":            "",
	"REDIS_DB":                  0,
	"REDIS_POOL_SIZE":           10,
	"REDIS_DIAL_TIMEOUT":        2 * time.Second,
	"REDIS_READ_TIMEOUT":        500 * time.Millisecond,
	"REDIS_WRITE_TIMEOUT":       500 * time.Millisecond,
	"NEW_RELIC_APP_NAME":        "dealership-storefront",
	"NEW_RELIC_LICENSE_KEY":     "",
	"NEW_RELIC_ENABLED":         false,
	"STRIPE_SECRET":             "",
	"STRIPE_WEBHOOK_SECRET":     "",
	"STRIPE_CURRENCY":           "cad",
	"STRIPE_TIMEOUT":            15 * time.Second,
	"LOG_LEVEL":                 "info",
	"STORE_BACKEND":             StoreBackendPostgres,
	"APP_URL":                   "http://localhost:8080",
	"METRICS_ENABLED":           true,
}

// Load loads configuration from environment variables and, if CONFIG_FILE is
// set, from that file. Environment variables take precedence over the file.
func Load() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadStore loads configuration for tools that only touch the Vehicle Store.
// Payment credentials are not required.
func LoadStore() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateStore(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func read() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			ReadTimeout:  v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("SERVER_WRITE_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Supabase: SupabaseConfig{
			URL:            strings.TrimRight(v.GetString("SUPABASE_URL"), "/"),
			ServiceRoleKey: v.GetString("SUPABASE_SERVICE_ROLE_KEY"),
			Timeout:        v.GetDuration("SUPABASE_TIMEOUT"),
		},
		Redis: RedisConfig{
			Addr:         v.GetString("REDIS_ADDR"),
			Password:     v.GetString("REDIS_PASSWORD"),
			DB:           v.GetInt("REDIS_DB"),
			PoolSize:     v.GetInt("REDIS_POOL_SIZE"),
			DialTimeout:  v.GetDuration("REDIS_DIAL_TIMEOUT"),
			ReadTimeout:  v.GetDuration("REDIS_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("REDIS_WRITE_TIMEOUT"),
		},
		NewRelic: NewRelicConfig{
			AppName:    v.GetString("NEW_RELIC_APP_NAME"),
			LicenseKey: v.GetString("NEW_RELIC_LICENSE_KEY"),
			Enabled:    v.GetBool("NEW_RELIC_ENABLED"),
		},
		Stripe: StripeConfig{
			SecretKey:     v.GetString("STRIPE_SECRET"),
			WebhookSecret: v.GetString("STRIPE_WEBHOOK_SECRET"),
			Currency:      strings.ToLower(v.GetString("STRIPE_CURRENCY")),
			Timeout:       v.GetDuration("STRIPE_TIMEOUT"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
		StoreBackend:   strings.ToLower(v.GetString("STORE_BACKEND")),
		AppURL:         strings.TrimRight(v.GetString("APP_URL"), "/"),
		MetricsEnabled: v.GetBool("METRICS_ENABLED"),
	}
	return cfg, nil
}

// Validate reports settings that would make the service unusable. Payment
// notifications cannot be authenticated without a webhook secret.
func (c *Config) Validate() error {
	if err := c.ValidateStore(); err != nil {
		return err
	}

	if c.Stripe.SecretKey == "" {
		return fmt.Errorf("STRIPE_SECRET must not be empty")
	}
	if c.Stripe.WebhookSecret == "" {
		return fmt.Errorf("STRIPE_WEBHOOK_SECRET must not be empty")
	}
	if c.Stripe.Currency == "" {
		return fmt.Errorf("STRIPE_CURRENCY must not be empty")
	}
	return nil
}

// ValidateStore checks the store backend settings only.
func (c *Config) ValidateStore() error {
	switch c.StoreBackend {
	case StoreBackendPostgres:
	case StoreBackendSupabase:
		if c.Supabase.URL == "" || c.Supabase.ServiceRoleKey == "" {
			return fmt.Errorf("supabase backend requires SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	return nil
}
