package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is read from the environment, optionally seeded from a .env file.
// Variables already set in the environment win over the file.
type Config struct {
	Port           string `mapstructure:"PORT"`
	ServiceVersion string `mapstructure:"SERVICE_VERSION"`
	OTLPEndpoint   string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	PostgresURL     string `mapstructure:"POSTGRES_URL"`
	CatalogFromDB   bool   `mapstructure:"CATALOG_FROM_DB"`
	RedisURL        string `mapstructure:"REDIS_URL"`
	KafkaBrokers    string `mapstructure:"KAFKA_BROKERS"`
	EmailServiceURL string `mapstructure:"EMAIL_SERVICE_URL"`
	AdminEmail      string `mapstructure:"ADMIN_EMAIL"`

	JWTSecret string `mapstructure:"JWT_SECRET"`
	JWTIssuer string `mapstructure:"JWT_ISSUER"`

	StripeSecretKey   string `mapstructure:"STRIPE_SECRET_KEY"`
	StripeAPIURL      string `mapstructure:"STRIPE_API_URL"`
	RazorpayKeyID     string `mapstructure:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret string `mapstructure:"RAZORPAY_KEY_SECRET"`
	RazorpayBaseURL   string `mapstructure:"RAZORPAY_BASE_URL"`

	PaymentDelay      time.Duration `mapstructure:"PAYMENT_SIMULATED_DELAY"`
	PaymentTimeout    time.Duration `mapstructure:"PAYMENT_TIMEOUT"`
	PaymentMaxRetries uint64        `mapstructure:"PAYMENT_MAX_RETRIES"`

	SessionTTL    time.Duration `mapstructure:"SESSION_TTL"`
	NotifyTimeout time.Duration `mapstructure:"NOTIFY_TIMEOUT"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`
}

var defaults = map[string]any{
	"PORT":                        "8080",
	"SERVICE_VERSION":             "0.1.0",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "localhost:4317",
	"POSTGRES_URL":                "",
	"CATALOG_FROM_DB":             false,
	"REDIS_URL":                   "",
	"KAFKA_BROKERS":               "",
	"EMAIL_SERVICE_URL":           "",
	"ADMIN_EMAIL":                 "",
	"JWT_SECRET":                  "",
	"JWT_ISSUER":                  "",
	"STRIPE_SECRET_KEY":           "",
	"STRIPE_API_URL":              "",
	"RAZORPAY_KEY_ID":             "",
	"RAZORPAY_KEY_SECRET":         "",
	"RAZORPAY_BASE_URL":           "",
	"PAYMENT_SIMULATED_DELAY":     2 * time.Second,
	"PAYMENT_TIMEOUT":             15 * time.Second,
	"PAYMENT_MAX_RETRIES":         uint64(1),
	"SESSION_TTL":                 2 * time.Hour,
	"NOTIFY_TIMEOUT":              30 * time.Second,
	"SMTP_HOST":                   "",
	"SMTP_PORT":                   587,
	"SMTP_USERNAME":               "",
	"SMTP_PASSWORD":               "",
	"SMTP_FROM":                   "",
}

// Load reads envFile if it exists, then the environment. defaultPort
// overrides the PORT default so each binary keeps its own port.
func Load(envFile, defaultPort string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	if defaultPort != "" {
		v.SetDefault("PORT", defaultPort)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Brokers splits KAFKA_BROKERS on commas, dropping blanks.
func (c *Config) Brokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
