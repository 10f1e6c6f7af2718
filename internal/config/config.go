// Package config loads the typed application configuration from the
// environment (optionally seeded from a .env file).
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverMySQL = "mysql"
	DriverMongo = "mongo"
)

// Config is the full runtime configuration. Secrets have no defaults and
// must come from the environment.
type Config struct {
	HTTPAddr   string `mapstructure:"http_addr"`
	Env        string `mapstructure:"env"`
	LogLevel   string `mapstructure:"log_level"`
	CORSOrigin string `mapstructure:"cors_origin"`

	DBDriver      string `mapstructure:"db_driver"`
	DBDSN         string `mapstructure:"db_dsn"`
	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`

	JWTSecret string        `mapstructure:"jwt_secret"`
	JWTTTL    time.Duration `mapstructure:"jwt_ttl"`

	PayPal PayPal `mapstructure:",squash"`

	PaymentRateRPS    float64       `mapstructure:"payment_rate_rps"`
	PaymentRateBurst  int           `mapstructure:"payment_rate_burst"`
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval"`
}

// PayPal holds the payment provider settings.
type PayPal struct {
	BaseURL      string        `mapstructure:"paypal_base_url"`
	ClientID     string        `mapstructure:"paypal_client_id"`
	ClientSecret string        `mapstructure:"paypal_client_secret"`
	Currency     string        `mapstructure:"paypal_currency"`
	CacheToken   bool          `mapstructure:"paypal_cache_token"`
	Timeout      time.Duration `mapstructure:"paypal_timeout"`
}

var defaults = map[string]any{
	"http_addr":            ":5000",
	"env":                  "development",
	"log_level":            "info",
	"cors_origin":          "http://localhost:3000",
	"db_driver":            DriverMySQL,
	"db_dsn":               "",
	"mongo_uri":            "",
	"mongo_database":       "proshop",
	"jwt_secret":           "",
	"jwt_ttl":              "720h",
	"paypal_base_url":      "https://api-m.sandbox.paypal.com",
	"paypal_client_id":     "",
	"paypal_client_secret": "",
	"paypal_currency":      "USD",
	"paypal_cache_token":   false,
	"paypal_timeout":       "15s",
	"payment_rate_rps":     5.0,
	"payment_rate_burst":   10,
	"reconcile_interval":   "5m",
}

// Load reads envFiles (missing files are ignored), then binds every key
// from the process environment. It does not validate; call Validate.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		// Already-set variables win over the file.
		_ = godotenv.Load(f)
	}

	v := viper.New()
	v.AutomaticEnv()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.PayPal.BaseURL = strings.TrimRight(cfg.PayPal.BaseURL, "/")
	cfg.PayPal.Currency = strings.ToUpper(cfg.PayPal.Currency)
	return &cfg, nil
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	errs := c.storageErrors()

	errs = append(errs, c.PayPal.validate()...)

	if c.PaymentRateRPS <= 0 || c.PaymentRateBurst <= 0 {
		errs = append(errs, errors.New("PAYMENT_RATE_RPS and PAYMENT_RATE_BURST must be positive"))
	}
	if c.ReconcileInterval < 0 {
		errs = append(errs, errors.New("RECONCILE_INTERVAL must not be negative"))
	}

	return errors.Join(errs...)
}

// ValidateStorage checks only what commands that never reach the payment
// provider need (migrate, seed-admin).
func (c *Config) ValidateStorage() error {
	return errors.Join(c.storageErrors()...)
}

func (c *Config) storageErrors() []error {
	var errs []error

	if len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be set and at least 16 bytes"))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}

	switch c.DBDriver {
	case DriverMySQL:
		if c.DBDSN == "" {
			errs = append(errs, errors.New("DB_DSN is required when DB_DRIVER=mysql"))
		}
	case DriverMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required when DB_DRIVER=mongo"))
		}
		if c.MongoDatabase == "" {
			errs = append(errs, errors.New("MONGO_DATABASE is required when DB_DRIVER=mongo"))
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverMySQL, DriverMongo, c.DBDriver))
	}
	return errs
}

func (p PayPal) validate() []error {
	var errs []error
	if p.ClientID == "" {
		errs = append(errs, errors.New("PAYPAL_CLIENT_ID is required"))
	}
	if p.ClientSecret == "" {
		errs = append(errs, errors.New("PAYPAL_CLIENT_SECRET is required"))
	}
	if u, err := url.Parse(p.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("PAYPAL_BASE_URL must be an absolute URL, got %q", p.BaseURL))
	}
	if len(p.Currency) != 3 {
		errs = append(errs, fmt.Errorf("PAYPAL_CURRENCY must be a 3-letter code, got %q", p.Currency))
	}
	if p.Timeout <= 0 {
		errs = append(errs, errors.New("PAYPAL_TIMEOUT must be positive"))
	}
	return errs
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
