package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server        ServerConfig        `envconfig:"SERVER"`
	Redis         RedisConfig         `envconfig:"REDIS"`
	JWT           JWTConfig           `envconfig:"JWT"`
	DynamoDB      DynamoDBConfig      `envconfig:"DYNAMODB"`
	Catalog       CatalogConfig       `envconfig:"CATALOG"`
	Auth          AuthConfig          `envconfig:"AUTH"`
	Session       SessionConfig       `envconfig:"SESSION"`
	RateLimit     RateLimitConfig     `envconfig:"RATE_LIMIT"`
	Observability ObservabilityConfig `envconfig:"OBSERVABILITY"`
	CORS          CORSConfig          `envconfig:"CORS"`
	Log           LogConfig           `envconfig:"LOG"`
	AWS           AWSConfig           `envconfig:"AWS"`
}

type AWSConfig struct {
	Region     string `envconfig:"REGION" default:"us-east-1"`
	Profile    string `envconfig:"PROFILE" default:""`
	SecretName string `envconfig:"SECRET_NAME" default:""`
}

type ServerConfig struct {
	Port         string        `envconfig:"PORT" default:"8000"`
	Environment  string        `envconfig:"ENVIRONMENT" default:"development"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout  time.Duration `envconfig:"IDLE_TIMEOUT" default:"120s"`
}

type RedisConfig struct {
	Address             string        `envconfig:"ADDRESS" default:"localhost:6379"`
	Password            string        `envconfig:"PASSWORD" default:""`
	Database            int           `envconfig:"DATABASE" default:"0"`
	MaxRetries          int           `envconfig:"MAX_RETRIES" default:"3"`
	PoolSize            int           `envconfig:"POOL_SIZE" default:"100"`
	PoolTimeout         time.Duration `envconfig:"POOL_TIMEOUT" default:"4s"`
	TLSEnabled          bool          `envconfig:"TLS_ENABLED" default:"false"`
	PasswordFromSecrets bool          `envconfig:"PASSWORD_FROM_SECRETS" default:"false"`
}

type JWTConfig struct {
	// Self-issued tokens are signed with Secret. When JWKSEndpoint is set,
	// inbound tokens are verified against the remote key set instead.
	Secret       string        `envconfig:"SECRET" default:"change-me-in-production"`
	JWKSEndpoint string        `envconfig:"JWKS_ENDPOINT" required:"false"`
	CacheTTL     time.Duration `envconfig:"CACHE_TTL" default:"10m"`
	Issuer       string        `envconfig:"ISSUER" default:"storefront-api"`
	Audience     string        `envconfig:"AUDIENCE" default:"storefront-web"`
	ExpiresIn    time.Duration `envconfig:"EXPIRES_IN" default:"24h"`
}

type DynamoDBConfig struct {
	UsersTableName string `envconfig:"USERS_TABLE_NAME" default:"storefront-users"`
	Region         string `envconfig:"REGION" default:"us-east-1"`
}

// CatalogConfig points at the remote catalog service. Every call is a single
// attempt bounded by Timeout.
type CatalogConfig struct {
	BaseURL string        `envconfig:"BASE_URL" default:"https://api.escuelajs.co/api/v1"`
	Timeout time.Duration `envconfig:"TIMEOUT" default:"10s"`
}

// AuthConfig carries the password policy. The page flow and the JSON API
// historically enforce different minimum lengths; both stay configurable.
type AuthConfig struct {
	PagePasswordMinLength int `envconfig:"PAGE_PASSWORD_MIN_LENGTH" default:"6"`
	APIPasswordMinLength  int `envconfig:"API_PASSWORD_MIN_LENGTH" default:"8"`
}

type SessionConfig struct {
	CookieName string        `envconfig:"COOKIE_NAME" default:"storefront_session"`
	TTL        time.Duration `envconfig:"TTL" default:"24h"`
	Secure     bool          `envconfig:"SECURE" default:"false"`
}

type RateLimitConfig struct {
	RPS         int           `envconfig:"RPS" default:"50"`
	Burst       int           `envconfig:"BURST" default:"100"`
	WindowSize  time.Duration `envconfig:"WINDOW_SIZE" default:"1s"`
	Enabled     bool          `envconfig:"ENABLED" default:"true"`
	ExemptPaths []string      `envconfig:"EXEMPT_PATHS" default:"/healthz,/readyz,/metrics"`
}

type ObservabilityConfig struct {
	MetricsPath    string  `envconfig:"METRICS_PATH" default:"/metrics"`
	OTLPEndpoint   string  `envconfig:"OTLP_ENDPOINT" default:"http://localhost:4318"`
	TracingEnabled bool    `envconfig:"TRACING_ENABLED" default:"true"`
	SampleRate     float64 `envconfig:"SAMPLE_RATE" default:"0.1"`
}

type CORSConfig struct {
	AllowOrigins string `envconfig:"ALLOW_ORIGINS" default:"*"`
}

type LogConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"json"`
}

func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	if port, err := strconv.Atoi(cfg.Server.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid server port: %s", cfg.Server.Port)
	}

	if !strings.HasPrefix(cfg.Catalog.BaseURL, "http://") && !strings.HasPrefix(cfg.Catalog.BaseURL, "https://") {
		return fmt.Errorf("invalid catalog base URL: %s", cfg.Catalog.BaseURL)
	}

	if cfg.Catalog.Timeout <= 0 {
		return fmt.Errorf("catalog timeout must be positive: %s", cfg.Catalog.Timeout)
	}

	if cfg.Auth.PagePasswordMinLength < 1 || cfg.Auth.APIPasswordMinLength < 1 {
		return fmt.Errorf("password minimum lengths must be positive")
	}

	if cfg.Observability.SampleRate < 0 || cfg.Observability.SampleRate > 1 {
		return fmt.Errorf("invalid tracing sample rate: %f", cfg.Observability.SampleRate)
	}

	return nil
}
