package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Gateway       GatewayConfig       `mapstructure:"gateway"`
	Commerce      CommerceConfig      `mapstructure:"commerce"`
	Checkout      CheckoutConfig      `mapstructure:"checkout"`
	Worker        WorkerConfig        `mapstructure:"worker"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Auth          AuthConfig          `mapstructure:"auth"`
	InstanceID    string              `mapstructure:"instance_id"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	JWTExpiry time.Duration `mapstructure:"jwt_expiry"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	// SlowQuery is the threshold above which statements are logged at warn level. Zero disables it.
	SlowQuery      time.Duration `mapstructure:"slow_query"`
	ConnectRetries uint          `mapstructure:"connect_retries"`
}

type RedisConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	DB                int           `mapstructure:"db"`
	Password          string        `mapstructure:"password"`
	ConnectRetries    int           `mapstructure:"connect_retries"`
	ConnectRetryDelay time.Duration `mapstructure:"connect_retry_delay"`
}

// GatewayConfig tunes the payment gateway client and its circuit breaker.
type GatewayConfig struct {
	MaxRetries              int           `mapstructure:"max_retries"`
	RetryDelay              time.Duration `mapstructure:"retry_delay"`
	Timeout                 time.Duration `mapstructure:"timeout"`
	CircuitBreakerThreshold int           `mapstructure:"circuit_breaker_threshold"`
	CircuitBreakerTimeout   time.Duration `mapstructure:"circuit_breaker_timeout"`
	SimulatedLatency        time.Duration `mapstructure:"simulated_latency"`
	SimulatedDeclineRate    float64       `mapstructure:"simulated_decline_rate"`
}

// CommerceConfig tunes the order service client.
type CommerceConfig struct {
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// CheckoutConfig holds settings shared by the checkout workflows.
type CheckoutConfig struct {
	Currency        string        `mapstructure:"currency"`
	LockTTL         time.Duration `mapstructure:"lock_ttl"`
	WorkflowTimeout time.Duration `mapstructure:"workflow_timeout"`
	RateLimit       int           `mapstructure:"rate_limit"`
}

type WorkerConfig struct {
	BatchSize       int64         `mapstructure:"batch_size"`
	BlockDuration   time.Duration `mapstructure:"block_duration"`
	ConsumerGroup   string        `mapstructure:"consumer_group"`
	IntegrityStream string        `mapstructure:"integrity_stream"`
	IdempotencyTTL  time.Duration `mapstructure:"idempotency_ttl"`
	ClaimMinIdle    time.Duration `mapstructure:"claim_min_idle"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	LogFormat      string `mapstructure:"log_format"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	EnableMetrics  bool   `mapstructure:"enable_metrics"`
	EnableTracing  bool   `mapstructure:"enable_tracing"`
}

func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/storefront")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.read_timeout must be positive"))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.write_timeout must be positive"))
	}
	if c.Database.Host == "" {
		errs = append(errs, fmt.Errorf("database.host is required"))
	}
	if c.Database.Port <= 0 {
		errs = append(errs, fmt.Errorf("database.port must be positive"))
	}
	if c.Redis.Port <= 0 {
		errs = append(errs, fmt.Errorf("redis.port must be positive"))
	}
	if len(c.Checkout.Currency) != 3 {
		errs = append(errs, fmt.Errorf("checkout.currency must be a 3-letter ISO code, got %q", c.Checkout.Currency))
	}
	if c.Checkout.LockTTL <= 0 {
		errs = append(errs, fmt.Errorf("checkout.lock_ttl must be positive"))
	}
	if c.Gateway.SimulatedDeclineRate < 0 || c.Gateway.SimulatedDeclineRate > 1 {
		errs = append(errs, fmt.Errorf("gateway.simulated_decline_rate must be between 0 and 1"))
	}
	if c.Worker.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("worker.batch_size must be positive"))
	}
	if c.Worker.ClaimMinIdle <= 0 || c.Worker.CleanupInterval <= 0 {
		errs = append(errs, fmt.Errorf("worker.claim_min_idle and worker.cleanup_interval must be positive"))
	}

	env := os.Getenv("ENV")
	if env == "production" || env == "prod" {
		if c.Database.Password == "" {
			errs = append(errs, fmt.Errorf("database.password required in production"))
		}
		if c.Auth.JWTSecret == "" {
			errs = append(errs, fmt.Errorf("auth.jwt_secret required in production"))
		}
	}

	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, fmt.Errorf("auth.jwt_secret must be at least 32 characters"))
	}

	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.cors.allow_credentials", false)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "storefront")
	v.SetDefault("database.database", "storefront")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.conn_max_idle_time", "30m")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.slow_query", "200ms")
	v.SetDefault("database.connect_retries", 5)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.connect_retries", 5)
	v.SetDefault("redis.connect_retry_delay", "1s")

	v.SetDefault("gateway.max_retries", 3)
	v.SetDefault("gateway.retry_delay", "200ms")
	v.SetDefault("gateway.timeout", "10s")
	v.SetDefault("gateway.circuit_breaker_threshold", 5)
	v.SetDefault("gateway.circuit_breaker_timeout", "30s")
	v.SetDefault("gateway.simulated_latency", "50ms")
	v.SetDefault("gateway.simulated_decline_rate", 0.0)

	v.SetDefault("commerce.max_retries", 3)
	v.SetDefault("commerce.retry_delay", "200ms")
	v.SetDefault("commerce.timeout", "10s")

	v.SetDefault("checkout.currency", "USD")
	v.SetDefault("checkout.lock_ttl", "60s")
	v.SetDefault("checkout.workflow_timeout", "45s")
	v.SetDefault("checkout.rate_limit", 20)

	v.SetDefault("worker.batch_size", 10)
	v.SetDefault("worker.block_duration", "2s")
	v.SetDefault("worker.consumer_group", "integrity-recovery")
	v.SetDefault("worker.integrity_stream", "storefront:integrity")
	v.SetDefault("worker.idempotency_ttl", "24h")
	v.SetDefault("worker.claim_min_idle", "5m")
	v.SetDefault("worker.cleanup_interval", "1h")

	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.log_format", "json")
	v.SetDefault("observability.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.enable_tracing", true)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_expiry", "24h")

	v.SetDefault("instance_id", "storefront-1")
}

func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// MigrationURL is the DSN in the URL form golang-migrate expects.
func (c *DatabaseConfig) MigrationURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
