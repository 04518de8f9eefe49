package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/checkout-core/internal/domain/order"
	"github.com/xenking/checkout-core/internal/gateway"
)

// Config holds the complete application configuration, loadable from
// environment variables (CHECKOUT_ prefix), flags, or YAML config files.
// Every pricing and gateway tunable lives here and is passed into the
// components at construction; nothing reads ambient globals.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (CHECKOUT_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	AuthPepper  string `usage:"HMAC pepper for access credential hashing" flag:"auth-pepper"`
	Pricing     PricingConfig
	Gateway     GatewayConfig
	Kafka       KafkaConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// PricingConfig holds the shipping and online-payment rules in whole
// currency units.
type PricingConfig struct {
	FreeShippingThreshold int64 `default:"499"   usage:"Items subtotal at which shipping becomes free" flag:"free-shipping-threshold"`
	FlatShippingFee       int64 `default:"40"    usage:"Shipping fee below the free-shipping threshold" flag:"shipping-fee"`
	OnlineCeiling         int64 `default:"99999" usage:"Maximum order total payable online" flag:"online-ceiling"`
}

// Domain converts the configured whole-unit amounts to the decimal pricing
// rules used by the order service.
func (c PricingConfig) Domain() order.PricingConfig {
	return order.PricingConfig{
		FreeShippingThreshold: decimal.NewFromInt(c.FreeShippingThreshold),
		FlatShippingFee:       decimal.NewFromInt(c.FlatShippingFee),
		OnlineCeiling:         decimal.NewFromInt(c.OnlineCeiling),
	}
}

// GatewayConfig holds payment gateway connection settings. KeySecret doubles
// as the shared secret for payment signature verification and is never sent
// per-call beyond basic auth.
type GatewayConfig struct {
	BaseURL   string        `usage:"Payment gateway API base URL" flag:"gateway-url"`
	KeyID     string        `usage:"Payment gateway key id" flag:"gateway-key-id"`
	KeySecret string        `usage:"Payment gateway key secret (CHECKOUT_GATEWAY_KEY_SECRET)" flag:"gateway-key-secret"`
	Currency  string        `default:"INR" usage:"Currency code sent with payment intents"`
	Timeout   time.Duration `default:"10s" usage:"Payment gateway request timeout" flag:"gateway-timeout"`
}

// Client converts the configuration into gateway client settings.
func (c GatewayConfig) Client() gateway.Config {
	return gateway.Config{
		BaseURL:   c.BaseURL,
		KeyID:     c.KeyID,
		KeySecret: c.KeySecret,
		Currency:  c.Currency,
	}
}

// KafkaConfig controls the best-effort order event stream. Empty brokers
// disable publishing.
type KafkaConfig struct {
	Brokers []string `usage:"Kafka brokers for order events (empty disables publishing)" flag:"kafka-brokers"`
	Topic   string   `default:"checkout.orders" usage:"Kafka topic for order events" flag:"kafka-topic"`
}

// RateLimitConfig controls the per-client rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "CHECKOUT",
		Files:     []string{"config.yaml", "/etc/checkout/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set CHECKOUT_DATABASE_URL or DATABASE_URL")
	}
	if cfg.Gateway.KeySecret == "" {
		return nil, errors.New("gateway key secret is required: set CHECKOUT_GATEWAY_KEY_SECRET")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables
// (Railway, Render, etc.) that use standard names like DATABASE_URL and PORT
// to the application's CHECKOUT_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
