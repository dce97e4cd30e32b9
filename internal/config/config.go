package config

import (
	"fmt"
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the application's configuration values.
// Tags like `envconfig:"APP_ENV"` specify the environment variable name.
// `default:""` provides a default value if the env var is not set.
// `required:"true"` makes an environment variable mandatory.
type Config struct {
	AppEnv     string `envconfig:"APP_ENV" default:"development"` // e.g., development, staging, production
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`      // e.g., debug, info, warn, error
	HttpServer ServerConfig
	GrpcServer GrpcServerConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Image      ImageConfig
	Catalog    CatalogConfig
	Auth       AuthConfig
	Tracing    TracingConfig
}

// ServerConfig holds HTTP server-specific configurations.
type ServerConfig struct {
	Port         string        `envconfig:"HTTP_SERVER_PORT" default:"8080"`
	TimeoutRead  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_READ" default:"15s"`
	TimeoutWrite time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_WRITE" default:"15s"`
	TimeoutIdle  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_IDLE" default:"60s"`
}

// GrpcServerConfig holds gRPC server-specific configurations.
type GrpcServerConfig struct {
	Port string `envconfig:"GRPC_SERVER_PORT" default:"9090"`
}

// PostgresConfig holds PostgreSQL database connection details.
type PostgresConfig struct {
	Host            string `envconfig:"POSTGRES_HOST" required:"true"`
	Port            string `envconfig:"POSTGRES_PORT" default:"5432"`
	User            string `envconfig:"POSTGRES_USER" required:"true"`
	Password        string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	DBName          string `envconfig:"POSTGRES_DBNAME" required:"true"`
	MigrationsTable string `envconfig:"POSTGRES_MIGRATIONS_TABLE" default:"shop_schema_migrations"`
	MaxOpenConns    int    `envconfig:"POSTGRES_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int    `envconfig:"POSTGRES_MAX_IDLE_CONNS" default:"5"`
}

// DSN constructs the Data Source Name string for connecting to PostgreSQL.
func (pc *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		pc.Host, pc.Port, pc.User, pc.Password, pc.DBName)
}

// RedisConfig configures the sidebar cache. An empty Addr disables caching.
type RedisConfig struct {
	Addr     string        `envconfig:"REDIS_ADDR" default:""`
	Password string        `envconfig:"REDIS_PASSWORD" default:""`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	TTL      time.Duration `envconfig:"REDIS_SIDEBAR_TTL" default:"10m"`
}

// ImageConfig holds the upload and normalization policy for product images.
type ImageConfig struct {
	MinWidth  int   `envconfig:"IMAGE_MIN_WIDTH" default:"400"`
	MinHeight int   `envconfig:"IMAGE_MIN_HEIGHT" default:"400"`
	MaxWidth  int   `envconfig:"IMAGE_MAX_WIDTH" default:"1000"`
	MaxHeight int   `envconfig:"IMAGE_MAX_HEIGHT" default:"1000"`
	MaxBytes  int64 `envconfig:"IMAGE_MAX_BYTES" default:"3145728"`
	// ResizeTarget is "min" or "max": the resolution oversized images are scaled to.
	ResizeTarget      string `envconfig:"IMAGE_RESIZE_TARGET" default:"min"`
	EnforceSizeOnSave bool   `envconfig:"IMAGE_ENFORCE_SIZE_ON_SAVE" default:"false"`
	JPEGQuality       int    `envconfig:"IMAGE_JPEG_QUALITY" default:"90"`
	MediaRoot         string `envconfig:"MEDIA_ROOT" default:"./media"`
}

// CatalogConfig holds catalog presentation settings.
type CatalogConfig struct {
	// CategoryTypes binds a category slug to the product type filed under it.
	CategoryTypes map[string]string `envconfig:"CATALOG_CATEGORY_TYPES" default:"notebooks:notebook,smartphones:smartphone"`
	LatestLimit   int               `envconfig:"CATALOG_LATEST_LIMIT" default:"5"`
	Prioritize    string            `envconfig:"CATALOG_PRIORITIZE" default:"notebook"`
}

// AuthConfig holds settings for verifying tokens issued by the identity provider.
type AuthConfig struct {
	JWTSecret  string `envconfig:"AUTH_JWT_SECRET" required:"true"`
	Issuer     string `envconfig:"AUTH_JWT_ISSUER" default:""`
	CookieName string `envconfig:"AUTH_ANON_COOKIE" default:"storefront_anon"`
}

// TracingConfig toggles the stdout span exporter.
type TracingConfig struct {
	Stdout      bool   `envconfig:"TRACING_STDOUT" default:"false"`
	ServiceName string `envconfig:"TRACING_SERVICE_NAME" default:"storefront-service"`
}

var cfg Config

// Load initializes the configuration from environment variables.
// It should be called once during application startup.
func Load() (*Config, error) {
	log.Println("Loading service configuration...")
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log.Printf("Configuration loaded successfully for APP_ENV: %s", cfg.AppEnv)
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET must not be empty")
	}
	switch c.Image.ResizeTarget {
	case "min", "max":
	default:
		return fmt.Errorf("invalid IMAGE_RESIZE_TARGET %q: must be min or max", c.Image.ResizeTarget)
	}
	if c.Image.MinWidth <= 0 || c.Image.MinHeight <= 0 {
		return fmt.Errorf("image minimum resolution must be positive, got %dx%d", c.Image.MinWidth, c.Image.MinHeight)
	}
	if c.Image.MaxWidth < c.Image.MinWidth || c.Image.MaxHeight < c.Image.MinHeight {
		return fmt.Errorf("image maximum resolution %dx%d is below the minimum %dx%d",
			c.Image.MaxWidth, c.Image.MaxHeight, c.Image.MinWidth, c.Image.MinHeight)
	}
	if c.Image.JPEGQuality < 1 || c.Image.JPEGQuality > 100 {
		return fmt.Errorf("invalid IMAGE_JPEG_QUALITY %d", c.Image.JPEGQuality)
	}
	if c.Catalog.LatestLimit <= 0 {
		return fmt.Errorf("CATALOG_LATEST_LIMIT must be positive, got %d", c.Catalog.LatestLimit)
	}
	return nil
}

// Get returns the loaded configuration.
// Panics if Load() has not been called successfully.
func Get() *Config {
	if cfg.Postgres.Host == "" {
		log.Fatal("Configuration has not been loaded. Call config.Load() first.")
	}
	return &cfg
}
