package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
)

const envPrefix = "GATEWAY_"

type Config struct {
	Primary    Primary          `koanf:"primary"`
	Server     ServerConfig     `koanf:"server"`
	Store      StoreConfig      `koanf:"store"`
	Database   DatabaseConfig   `koanf:"database"`
	PayToday   PayTodayConfig   `koanf:"paytoday"`
	Retry      RetryConfig      `koanf:"retry"`
	Polling    PollingConfig    `koanf:"polling"`
	Reconciler ReconcilerConfig `koanf:"reconciler"`
	Storefront StorefrontConfig `koanf:"storefront"`
	Redis      RedisConfig      `koanf:"redis"`
	Kafka      KafkaConfig      `koanf:"kafka"`
	Outbox     OutboxConfig     `koanf:"outbox"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
	Logger     LoggerConfig     `koanf:"logger"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"required"`
	// ValidateRequests turns on OpenAPI request validation.
	ValidateRequests bool `koanf:"validate_requests"`
	// AdminToken guards the admin routes. Empty disables them.
	AdminToken string `koanf:"admin_token"`
}

type StoreConfig struct {
	Driver string `koanf:"driver" validate:"required,oneof=postgres memory"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	User            string        `koanf:"user"`
	Password        string        `koanf:"password"`
	Name            string        `koanf:"name"`
	SSLMode         string        `koanf:"ssl_mode"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

type RetryConfig struct {
	BaseDelay  time.Duration `koanf:"base_delay"`
	MaxRetries int           `koanf:"max_retries" validate:"min=1"`
}

type PollingConfig struct {
	InitialDelay      time.Duration `koanf:"initial_delay" validate:"required"`
	Interval          time.Duration `koanf:"interval" validate:"required"`
	ClientInterval    time.Duration `koanf:"client_interval" validate:"required"`
	ClientMaxDuration time.Duration `koanf:"client_max_duration" validate:"required"`
	ResyncInterval    time.Duration `koanf:"resync_interval" validate:"required"`
	ResyncBatchSize   int           `koanf:"resync_batch_size" validate:"required"`
}

type ReconcilerConfig struct {
	AllowRedirectRecovery bool `koanf:"allow_redirect_recovery"`
}

// StorefrontConfig holds the shop URLs the payer is sent back to.
// OrderReceivedURL may contain the placeholder {order_id}.
type StorefrontConfig struct {
	ReturnURL        string `koanf:"return_url" validate:"required"`
	OrderReceivedURL string `koanf:"order_received_url" validate:"required"`
	CheckoutURL      string `koanf:"checkout_url" validate:"required"`
}

// OrderReceived renders the order-received URL for an order.
func (s StorefrontConfig) OrderReceived(orderID int64) string {
	return strings.ReplaceAll(s.OrderReceivedURL, "{order_id}", fmt.Sprint(orderID))
}

type RedisConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Addr       string        `koanf:"addr"`
	Password   string        `koanf:"password"`
	DB         int           `koanf:"db"`
	LockExpiry time.Duration `koanf:"lock_expiry"`
}

type KafkaConfig struct {
	Enabled bool     `koanf:"enabled"`
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
}

type OutboxConfig struct {
	Interval  time.Duration `koanf:"interval" validate:"required"`
	BatchSize int           `koanf:"batch_size" validate:"required"`
}

type TelemetryConfig struct {
	TracingEnabled bool   `koanf:"tracing_enabled"`
	OTLPEndpoint   string `koanf:"otlp_endpoint"`
	ServiceName    string `koanf:"service_name" validate:"required"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"primary.env":                        "development",
		"server.port":                        "8080",
		"server.read_timeout":                "35s",
		"server.write_timeout":               "40s",
		"server.idle_timeout":                "60s",
		"server.validate_requests":           true,
		"store.driver":                       "postgres",
		"database.host":                      "localhost",
		"database.port":                      5432,
		"database.ssl_mode":                  "disable",
		"database.max_open_conns":            10,
		"database.max_idle_conns":            2,
		"database.conn_max_lifetime":         "1h",
		"database.conn_max_idle_time":        "30m",
		"paytoday.environment":               "sandbox",
		"paytoday.sandbox_url":               "https://admin.today-ww.net",
		"paytoday.live_url":                  "https://admin.today.com.na",
		"paytoday.timeout":                   "30s",
		"paytoday.protocol_version":          "12.12.2024",
		"paytoday.user_agent":                "PayToday-Gateway/1.0",
		"retry.base_delay":                   "500ms",
		"retry.max_retries":                  3,
		"polling.initial_delay":              "15s",
		"polling.interval":                   "15s",
		"polling.client_interval":            "15s",
		"polling.client_max_duration":        "30m",
		"polling.resync_interval":            "1m",
		"polling.resync_batch_size":          500,
		"reconciler.allow_redirect_recovery": true,
		"storefront.return_url":              "http://localhost:8080/paytoday/return",
		"storefront.order_received_url":      "http://localhost:8080/checkout/order-received/{order_id}",
		"storefront.checkout_url":            "http://localhost:8080/checkout",
		"redis.lock_expiry":                  "45s",
		"kafka.topic":                        "paytoday.order.events",
		"outbox.interval":                    "5s",
		"outbox.batch_size":                  100,
		"telemetry.service_name":             "paytoday-gateway",
		"logger.level":                       "info",
		"logger.format":                      "json",
	}
}

func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		logger.Error("failed to load config defaults", "error", err)
		return nil, err
	}

	err := k.Load(env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(key, envPrefix)),
			"__",
			".",
		)
		if key == "kafka.brokers" {
			return key, strings.Split(value, ",")
		}
		return key, value
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	if err := mainConfig.check(); err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}

// check covers rules that depend on other fields.
func (c *Config) check() error {
	if c.Store.Driver == "postgres" {
		if c.Database.Host == "" || c.Database.User == "" || c.Database.Name == "" {
			return fmt.Errorf("database host, user and name are required for the postgres store")
		}
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}
	return nil
}
