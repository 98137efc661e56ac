package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var (
	ErrMissingFulfillment   = errors.New("FULFILLMENT_API_URL is required")
	ErrMissingPublicBaseURL = errors.New("PUBLIC_BASE_URL is required")
)

type Config struct {
	HTTPPort string `mapstructure:"HTTP_PORT"`
	GRPCPort string `mapstructure:"GRPC_PORT"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// PublicBaseURL is where the buyer's browser reaches the storefront;
	// success and cancel URLs are built from it.
	PublicBaseURL string `mapstructure:"PUBLIC_BASE_URL"`
	CartPath      string `mapstructure:"CART_PATH"`

	StripeSecretKey     string `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`

	FulfillmentURL         string        `mapstructure:"FULFILLMENT_API_URL"`
	BreakerMaxFailures     uint32        `mapstructure:"BREAKER_MAX_FAILURES"`
	BreakerOpenTimeout     time.Duration `mapstructure:"BREAKER_OPEN_TIMEOUT"`
	MailRelayHost          string        `mapstructure:"MAIL_RELAY_HOST"`
	MailRelayPort          int           `mapstructure:"MAIL_RELAY_PORT"`
	ProcessorTimeout       time.Duration `mapstructure:"PROCESSOR_TIMEOUT"`
	FulfillmentTimeout     time.Duration `mapstructure:"FULFILLMENT_TIMEOUT"`
	ContactTimeout         time.Duration `mapstructure:"CONTACT_TIMEOUT"`
	RequestTimeout         time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ShutdownTimeout        time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	IdempotencyTTL         time.Duration `mapstructure:"IDEMPOTENCY_TTL"`
	RedisAddr              string        `mapstructure:"REDIS_ADDR"`
	KafkaBrokers           string        `mapstructure:"KAFKA_BROKERS"`
	ShippingCountries      string        `mapstructure:"SHIPPING_COUNTRIES"`
	ReplayDelay            time.Duration `mapstructure:"REPLAY_DELAY"`
	CatalogDBPath          string        `mapstructure:"CATALOG_DB_PATH"`
	RateLimitPerMinute     int           `mapstructure:"RATE_LIMIT_PER_MINUTE"`
	ContactRateLimitPerMin int           `mapstructure:"CONTACT_RATE_LIMIT_PER_MINUTE"`
}

var defaults = map[string]any{
	"HTTP_PORT":                     "8080",
	"GRPC_PORT":                     "9090",
	"LOG_LEVEL":                     "info",
	"PUBLIC_BASE_URL":               "",
	"CART_PATH":                     "/cart",
	"STRIPE_SECRET_KEY":             "",
	"STRIPE_WEBHOOK_SECRET":         "",
	"FULFILLMENT_API_URL":           "",
	"BREAKER_MAX_FAILURES":          5,
	"BREAKER_OPEN_TIMEOUT":          "30s",
	"MAIL_RELAY_HOST":               "localhost",
	"MAIL_RELAY_PORT":               2525,
	"PROCESSOR_TIMEOUT":             "10s",
	"FULFILLMENT_TIMEOUT":           "10s",
	"CONTACT_TIMEOUT":               "5s",
	"REQUEST_TIMEOUT":               "30s",
	"SHUTDOWN_TIMEOUT":              "15s",
	"IDEMPOTENCY_TTL":               "72h",
	"REDIS_ADDR":                    "",
	"KAFKA_BROKERS":                 "",
	"SHIPPING_COUNTRIES":            "US,CA",
	"REPLAY_DELAY":                  "5m",
	"CATALOG_DB_PATH":               "file:catalog.db",
	"RATE_LIMIT_PER_MINUTE":         120,
	"CONTACT_RATE_LIMIT_PER_MINUTE": 5,
}

// New returns a viper instance that reads the environment and, when path
// is set, a config file.
func New(path string) *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
	}
	return v
}

// Load resolves the configuration once. Environment variables win over
// the file.
func Load(v *viper.Viper) (*Config, error) {
	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return cfg, nil
}

// Validate checks what every command needs. The Stripe key is checked when
// the processor is built, so a bad key degrades checkout instead of
// stopping the process.
func (c *Config) Validate() error {
	var errs []error
	if c.FulfillmentURL == "" {
		errs = append(errs, ErrMissingFulfillment)
	}
	if c.PublicBaseURL == "" {
		errs = append(errs, ErrMissingPublicBaseURL)
	}
	return errors.Join(errs...)
}

func (c *Config) SuccessURL() string {
	return c.PublicBaseURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}"
}

func (c *Config) CancelURL() string {
	return c.PublicBaseURL + c.CartPath
}

func (c *Config) Brokers() []string {
	return splitList(c.KafkaBrokers)
}

// ShipTo lists the ISO country codes checkout collects shipping addresses for.
func (c *Config) ShipTo() []string {
	out := splitList(c.ShippingCountries)
	for i := range out {
		out[i] = strings.ToUpper(out[i])
	}
	return out
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Watch calls onChange with the re-read config whenever the config file
// changes. Only settings that are safe to swap live, like the log level,
// should be acted on.
func Watch(v *viper.Viper, onChange func(*Config, error)) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(fsnotify.Event) {
		cfg := &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			onChange(nil, err)
			return
		}
		onChange(cfg, nil)
	})
	v.WatchConfig()
}
