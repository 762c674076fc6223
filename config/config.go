package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	SessionStoreMemory   = "memory"
	SessionStorePostgres = "postgres"
	SessionStoreRedis    = "redis"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	API           APIConfig
	Session       SessionConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Routes        RoutesConfig
	Observability ObservabilityConfig
	Environment   string `validate:"required"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host               string
	Port               int           `validate:"min=1,max=65535"`
	ReadTimeout        time.Duration `validate:"gt=0"`
	WriteTimeout       time.Duration `validate:"gt=0"`
	ShutdownTimeout    time.Duration `validate:"gt=0"`
	CORSAllowedOrigins []string
}

// APIConfig holds the CampusIQ API client configuration
type APIConfig struct {
	BaseURL     string        `validate:"required,url"`
	Timeout     time.Duration `validate:"gt=0"`
	MaxAttempts int           `validate:"min=1,max=10"`
	BackoffUnit time.Duration `validate:"gte=0"`
}

// SessionConfig holds browser session configuration
type SessionConfig struct {
	CookieName     string        `validate:"required"`
	CookieSecure   bool
	TTL            time.Duration `validate:"gt=0"`
	ResolveTimeout time.Duration `validate:"gt=0"`
	SweepInterval  time.Duration `validate:"gt=0"`
	Store          string        `validate:"oneof=memory postgres redis"`
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string // From DATABASE_URL when set
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// RedisConfig holds the Redis session store configuration
type RedisConfig struct {
	URL       string // redis://[:password@]host:port/db
	KeyPrefix string
}

// RoutesConfig locates the page route table
type RoutesConfig struct {
	File string // empty means the built-in table
}

// ObservabilityConfig holds monitoring and logging configuration
type ObservabilityConfig struct {
	LogLevel        string `validate:"oneof=debug info warn error"`
	LogFormat       string `validate:"oneof=json text"`
	MetricsEnabled  bool
	TracingEndpoint string // OTLP gRPC collector; empty disables tracing
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// .env is optional
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:               getEnv("SERVER_HOST", "0.0.0.0"),
			Port:               getPort(),
			ReadTimeout:        getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:       getEnvAsDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout:    getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		},
		API: APIConfig{
			BaseURL:     strings.TrimSuffix(getEnv("API_BASE", "http://localhost:8000"), "/"),
			Timeout:     getEnvAsDuration("API_TIMEOUT", 30*time.Second),
			MaxAttempts: getEnvAsInt("API_MAX_ATTEMPTS", 3),
			BackoffUnit: getEnvAsDuration("API_BACKOFF_UNIT", time.Second),
		},
		Session: SessionConfig{
			CookieName:     getEnv("SESSION_COOKIE_NAME", "campusiq_session"),
			CookieSecure:   getEnvAsBool("SESSION_COOKIE_SECURE", false),
			TTL:            getEnvAsDuration("SESSION_TTL", 8*time.Hour),
			ResolveTimeout: getEnvAsDuration("SESSION_RESOLVE_TIMEOUT", 10*time.Second),
			SweepInterval:  getEnvAsDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute),
			Store:          strings.ToLower(getEnv("SESSION_STORE", SessionStoreMemory)),
		},
		Database: loadDatabaseConfig(),
		Redis: RedisConfig{
			URL:       getEnv("REDIS_URL", ""),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "campusiq:session:"),
		},
		Routes: RoutesConfig{
			File: getEnv("ROUTES_FILE", ""),
		},
		Observability: ObservabilityConfig{
			LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", "info")),
			LogFormat:       strings.ToLower(getEnv("LOG_FORMAT", "json")),
			MetricsEnabled:  getEnvAsBool("METRICS_ENABLED", true),
			TracingEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks field constraints, then the rules that span fields
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if c.UsesPostgres() {
		if c.Database.ConnectionString == "" && c.Database.Host == "" {
			return fmt.Errorf("database configuration required for postgres session store: set DATABASE_URL or DB_HOST")
		}
		if c.Database.ConnectionString == "" {
			if c.Database.User == "" {
				return fmt.Errorf("database user is required")
			}
			if c.Database.Database == "" {
				return fmt.Errorf("database name is required")
			}
		}
	}

	if c.UsesRedis() && c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required for redis session store")
	}

	if c.IsProduction() && !c.Session.CookieSecure {
		return fmt.Errorf("SESSION_COOKIE_SECURE must be enabled in production")
	}

	return nil
}

// UsesPostgres returns true if session credentials are kept in PostgreSQL
func (c *Config) UsesPostgres() bool {
	return c.Session.Store == SessionStorePostgres
}

// UsesRedis returns true if session credentials are kept in Redis
func (c *Config) UsesRedis() bool {
	return c.Session.Store == SessionStoreRedis
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// loadDatabaseConfig loads database config from DATABASE_URL or DB_* env vars
func loadDatabaseConfig() DatabaseConfig {
	dbURL := getEnv("DATABASE_URL", "")
	if dbURL != "" {
		return DatabaseConfig{
			ConnectionString: dbURL,
			MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		}
	}
	return DatabaseConfig{
		Host:            getEnv("DB_HOST", ""),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", ""),
		Password:        getEnv("DB_PASSWORD", ""),
		Database:        getEnv("DB_NAME", "campusiq_portal"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
