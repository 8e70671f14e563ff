package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix scopes every environment variable consumed by the engine.
const EnvPrefix = "MYSTORE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App      AppConfig
	LocalDB  LocalDBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Remote   RemoteConfig
	Gateway  GatewayConfig
	Shipping ShippingConfig
	PubSub   PubSubConfig
	Sync     SyncConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MYSTORE_APP_ENV" default:"dev"`
	Port         string `envconfig:"MYSTORE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"MYSTORE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MYSTORE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// LocalDBConfig locates the durable on-device cache.
type LocalDBConfig struct {
	Path        string `envconfig:"MYSTORE_LOCALDB_PATH" default:"mystore.db"`
	AutoMigrate bool   `envconfig:"MYSTORE_LOCALDB_AUTO_MIGRATE" default:"true"`
}

// DSN renders the sqlite DSN for the configured path.
func (c LocalDBConfig) DSN() string {
	path := strings.TrimSpace(c.Path)
	if path == "" {
		path = "mystore.db"
	}
	return fmt.Sprintf("file:%s?_busy_timeout=5000", path)
}

type RedisConfig struct {
	URL          string        `envconfig:"MYSTORE_REDIS_URL"`
	Address      string        `envconfig:"MYSTORE_REDIS_ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"MYSTORE_REDIS_PASSWORD"`
	DB           int           `envconfig:"MYSTORE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MYSTORE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MYSTORE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MYSTORE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MYSTORE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MYSTORE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MYSTORE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MYSTORE_JWT_ISSUER" default:"mystore"`
	ExpirationMinutes int    `envconfig:"MYSTORE_JWT_EXPIRATION_MINUTES" default:"60"`
}

// RemoteConfig points at the backend cart/order service.
type RemoteConfig struct {
	BaseURL string        `envconfig:"MYSTORE_REMOTE_BASE_URL" default:"http://localhost:4000"`
	Timeout time.Duration `envconfig:"MYSTORE_REMOTE_TIMEOUT" default:"10s"`
}

// GatewayConfig points at the payment gateway collaborator.
type GatewayConfig struct {
	BaseURL  string        `envconfig:"MYSTORE_GATEWAY_BASE_URL" default:"http://localhost:4100"`
	APIKey   string        `envconfig:"MYSTORE_GATEWAY_API_KEY"`
	Currency string        `envconfig:"MYSTORE_GATEWAY_CURRENCY" default:"SAR"`
	Timeout  time.Duration `envconfig:"MYSTORE_GATEWAY_TIMEOUT" default:"15s"`
}

// ShippingConfig points at the shipping quote collaborator.
type ShippingConfig struct {
	BaseURL string        `envconfig:"MYSTORE_SHIPPING_BASE_URL"`
	Timeout time.Duration `envconfig:"MYSTORE_SHIPPING_TIMEOUT" default:"5s"`
}

type PubSubConfig struct {
	ProjectID      string `envconfig:"MYSTORE_PUBSUB_PROJECT_ID"`
	SubscriptionID string `envconfig:"MYSTORE_PUBSUB_SUBSCRIPTION_ID" default:"order-events"`
}

// SyncConfig tunes the cart write-behind queue.
type SyncConfig struct {
	QueueSize      int           `envconfig:"MYSTORE_SYNC_QUEUE_SIZE" default:"256"`
	DrainTimeout   time.Duration `envconfig:"MYSTORE_SYNC_DRAIN_TIMEOUT" default:"10s"`
	IdempotencyTTL time.Duration `envconfig:"MYSTORE_SYNC_IDEMPOTENCY_TTL" default:"24h"`
}
