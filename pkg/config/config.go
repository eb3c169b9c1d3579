package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// TokenTransport selects where the auth guard looks for the bearer token
type TokenTransport string

const (
	TransportCookie TokenTransport = "cookie"
	TransportHeader TokenTransport = "header"
	TransportBoth   TokenTransport = "both"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Auth          AuthConfig
	Database      DatabaseConfig
	Blob          BlobConfig
	Cache         CacheConfig
	Maintenance   MaintenanceConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string

	// "development" or "production"; controls the Secure cookie flag
	Environment string

	CORSAllowedOrigins []string
}

// AuthConfig holds credential and token settings
type AuthConfig struct {
	JWTSecret      string
	TokenTTL       time.Duration
	CookieName     string
	TokenTransport TokenTransport
	BcryptCost     int
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	URL         string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
}

// BlobConfig holds blob storage settings
type BlobConfig struct {
	// "s3" or "filesystem"
	Backend string

	FilesystemRoot string

	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool
}

// CacheConfig holds Redis cache settings
type CacheConfig struct {
	Enabled  bool
	RedisURL string
	TTL      time.Duration
}

// MaintenanceConfig holds background job settings
type MaintenanceConfig struct {
	SweeperEnabled  bool
	SweeperSchedule string
	SweeperGrace    time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       string
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:               getEnv("QUILL_HOST", "0.0.0.0"),
			Port:               getEnv("QUILL_PORT", "8080"),
			ReadTimeout:        getEnvDuration("QUILL_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:       getEnvDuration("QUILL_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:        getEnvDuration("QUILL_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout:    getEnvDuration("QUILL_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:         getEnv("QUILL_HEALTH_PORT", "9090"),
			Environment:        getEnv("QUILL_ENV", "development"),
			CORSAllowedOrigins: getEnvList("QUILL_CORS_ORIGINS", []string{"*"}),
		},
		Auth: AuthConfig{
			JWTSecret:      getEnv("QUILL_JWT_SECRET", ""),
			TokenTTL:       getEnvDuration("QUILL_TOKEN_TTL", 24*time.Hour),
			CookieName:     getEnv("QUILL_COOKIE_NAME", "access_token"),
			TokenTransport: TokenTransport(getEnv("QUILL_TOKEN_TRANSPORT", string(TransportBoth))),
			BcryptCost:     getEnvInt("QUILL_BCRYPT_COST", 10),
		},
		Database: DatabaseConfig{
			URL:         getEnv("QUILL_POSTGRES_URL", ""),
			MaxConns:    getEnvInt("QUILL_POSTGRES_MAX_CONNS", 20),
			MinConns:    getEnvInt("QUILL_POSTGRES_MIN_CONNS", 2),
			Timeout:     getEnvDuration("QUILL_POSTGRES_TIMEOUT", 10*time.Second),
			MaxLifetime: getEnvDuration("QUILL_POSTGRES_MAX_LIFETIME", 30*time.Minute),
		},
		Blob: BlobConfig{
			Backend:        getEnv("QUILL_BLOB_BACKEND", "filesystem"),
			FilesystemRoot: getEnv("QUILL_BLOB_ROOT", "/tmp/quill"),
			S3Endpoint:     getEnv("QUILL_S3_ENDPOINT", ""),
			S3Region:       getEnv("QUILL_S3_REGION", "us-east-1"),
			S3Bucket:       getEnv("QUILL_S3_BUCKET", "quill-attachments"),
			S3AccessKey:    getEnv("QUILL_S3_ACCESS_KEY", ""),
			S3SecretKey:    getEnv("QUILL_S3_SECRET_KEY", ""),
			S3UsePathStyle: getEnvBool("QUILL_S3_PATH_STYLE", false),
		},
		Cache: CacheConfig{
			Enabled:  getEnvBool("QUILL_CACHE_ENABLED", false),
			RedisURL: getEnv("QUILL_REDIS_URL", "redis://localhost:6379/0"),
			TTL:      getEnvDuration("QUILL_CACHE_TTL", 5*time.Minute),
		},
		Maintenance: MaintenanceConfig{
			SweeperEnabled:  getEnvBool("QUILL_SWEEPER_ENABLED", false),
			SweeperSchedule: getEnv("QUILL_SWEEPER_SCHEDULE", "@hourly"),
			SweeperGrace:    getEnvDuration("QUILL_SWEEPER_GRACE", 1*time.Hour),
		},
		Observability: ObservabilityConfig{
			LogLevel:           getEnv("QUILL_LOG_LEVEL", "info"),
			MetricsEnabled:     getEnvBool("QUILL_METRICS_ENABLED", true),
			OTelEnabled:        getEnvBool("QUILL_OTEL_ENABLED", false),
			OTelEndpoint:       getEnv("QUILL_OTEL_ENDPOINT", "localhost:4317"),
			OTelServiceName:    getEnv("QUILL_OTEL_SERVICE_NAME", "quill"),
			OTelServiceVersion: getEnv("QUILL_OTEL_SERVICE_VERSION", "dev"),
			OTelInsecure:       getEnvBool("QUILL_OTEL_INSECURE", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("QUILL_JWT_SECRET is required")
	}
	if c.Server.Environment == "production" && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("QUILL_JWT_SECRET must be at least 32 bytes in production")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("QUILL_POSTGRES_URL is required")
	}
	switch c.Auth.TokenTransport {
	case TransportCookie, TransportHeader, TransportBoth:
	default:
		return fmt.Errorf("invalid QUILL_TOKEN_TRANSPORT: %s", c.Auth.TokenTransport)
	}
	switch c.Blob.Backend {
	case "s3", "filesystem":
	default:
		return fmt.Errorf("invalid QUILL_BLOB_BACKEND: %s", c.Blob.Backend)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("QUILL_TOKEN_TTL must be positive")
	}
	return nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
