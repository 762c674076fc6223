package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name: "default configuration",
			envVars: map[string]string{
				"ENVIRONMENT": "development",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "development", cfg.Environment)
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
				assert.Equal(t, 30*time.Second, cfg.API.Timeout)
				assert.Equal(t, 3, cfg.API.MaxAttempts)
				assert.Equal(t, time.Second, cfg.API.BackoffUnit)
				assert.Equal(t, "campusiq_session", cfg.Session.CookieName)
				assert.Equal(t, 8*time.Hour, cfg.Session.TTL)
				assert.Equal(t, 10*time.Second, cfg.Session.ResolveTimeout)
				assert.Equal(t, SessionStoreMemory, cfg.Session.Store)
				assert.False(t, cfg.UsesPostgres())
				assert.Empty(t, cfg.Routes.File)
				assert.Empty(t, cfg.Observability.TracingEndpoint)
				assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.CORSAllowedOrigins)
			},
		},
		{
			name: "api client settings",
			envVars: map[string]string{
				"API_BASE":         "https://api.campusiq.edu/",
				"API_TIMEOUT":      "5s",
				"API_MAX_ATTEMPTS": "5",
				"API_BACKOFF_UNIT": "250ms",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "https://api.campusiq.edu", cfg.API.BaseURL)
				assert.Equal(t, 5*time.Second, cfg.API.Timeout)
				assert.Equal(t, 5, cfg.API.MaxAttempts)
				assert.Equal(t, 250*time.Millisecond, cfg.API.BackoffUnit)
			},
		},
		{
			name: "redis session store",
			envVars: map[string]string{
				"SESSION_STORE": "redis",
				"REDIS_URL":     "redis://cache:6379/2",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.UsesRedis())
				assert.False(t, cfg.UsesPostgres())
				assert.Equal(t, "redis://cache:6379/2", cfg.Redis.URL)
				assert.Equal(t, "campusiq:session:", cfg.Redis.KeyPrefix)
			},
		},
		{
			name: "postgres session store with DATABASE_URL",
			envVars: map[string]string{
				"SESSION_STORE": "Postgres",
				"DATABASE_URL":  "postgres://portal:secret@db:5432/portal?sslmode=disable",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.UsesPostgres())
				assert.Equal(t, "postgres://portal:secret@db:5432/portal?sslmode=disable", cfg.Database.DSN())
				assert.Equal(t, "host=db port=5432 database=portal", cfg.Database.LogString())
			},
		},
		{
			name: "postgres session store without database",
			envVars: map[string]string{
				"SESSION_STORE": "postgres",
			},
			wantErr: true,
		},
		{
			name: "unknown session store",
			envVars: map[string]string{
				"SESSION_STORE": "redis",
			},
			wantErr: true,
		},
		{
			name: "invalid api base",
			envVars: map[string]string{
				"API_BASE": "not a url",
			},
			wantErr: true,
		},
		{
			name: "zero attempts rejected",
			envVars: map[string]string{
				"API_MAX_ATTEMPTS": "0",
			},
			wantErr: true,
		},
		{
			name: "production requires secure cookies",
			envVars: map[string]string{
				"ENVIRONMENT": "production",
			},
			wantErr: true,
		},
		{
			name: "production with secure cookies",
			envVars: map[string]string{
				"ENVIRONMENT":           "production",
				"SESSION_COOKIE_SECURE": "true",
				"API_BASE":              "https://api.campusiq.edu",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.IsProduction())
				assert.True(t, cfg.Session.CookieSecure)
			},
		},
		{
			name: "observability configuration",
			envVars: map[string]string{
				"LOG_LEVEL":       "DEBUG",
				"LOG_FORMAT":      "text",
				"METRICS_ENABLED": "false",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Observability.LogLevel)
				assert.Equal(t, "text", cfg.Observability.LogFormat)
				assert.False(t, cfg.Observability.MetricsEnabled)
			},
		},
		{
			name: "invalid log level",
			envVars: map[string]string{
				"LOG_LEVEL": "verbose",
			},
			wantErr: true,
		},
		{
			name: "cors origins list",
			envVars: map[string]string{
				"CORS_ALLOWED_ORIGINS": "https://portal.campusiq.edu, https://admin.campusiq.edu,",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"https://portal.campusiq.edu", "https://admin.campusiq.edu"}, cfg.Server.CORSAllowedOrigins)
			},
		},
		{
			name: "PORT env var takes precedence over SERVER_PORT",
			envVars: map[string]string{
				"PORT":        "9443",
				"SERVER_PORT": "9000",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9443, cfg.Server.Port)
			},
		},
		{
			name: "routes file",
			envVars: map[string]string{
				"ROUTES_FILE": "/etc/portal/routes.yaml",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/etc/portal/routes.yaml", cfg.Routes.File)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := New(context.Background())

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func validConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     time.Second,
			WriteTimeout:    time.Second,
			ShutdownTimeout: time.Second,
		},
		API: APIConfig{
			BaseURL:     "http://localhost:8000",
			Timeout:     time.Second,
			MaxAttempts: 3,
			BackoffUnit: time.Second,
		},
		Session: SessionConfig{
			CookieName:     "campusiq_session",
			TTL:            time.Hour,
			ResolveTimeout: time.Second,
			SweepInterval:  time.Minute,
			Store:          SessionStoreMemory,
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid memory config",
			mutate: func(*Config) {},
		},
		{
			name: "valid postgres config",
			mutate: func(c *Config) {
				c.Session.Store = SessionStorePostgres
				c.Database = DatabaseConfig{Host: "localhost", User: "user", Database: "db"}
			},
		},
		{
			name: "missing database host",
			mutate: func(c *Config) {
				c.Session.Store = SessionStorePostgres
				c.Database = DatabaseConfig{User: "user", Database: "db"}
			},
			wantErr: true,
			errMsg:  "database configuration required",
		},
		{
			name: "missing database user",
			mutate: func(c *Config) {
				c.Session.Store = SessionStorePostgres
				c.Database = DatabaseConfig{Host: "localhost", Database: "db"}
			},
			wantErr: true,
			errMsg:  "database user is required",
		},
		{
			name: "valid redis config",
			mutate: func(c *Config) {
				c.Session.Store = SessionStoreRedis
				c.Redis.URL = "redis://localhost:6379/0"
			},
		},
		{
			name: "redis without url",
			mutate: func(c *Config) {
				c.Session.Store = SessionStoreRedis
			},
			wantErr: true,
			errMsg:  "REDIS_URL is required",
		},
		{
			name: "unknown session store",
			mutate: func(c *Config) {
				c.Session.Store = "memcached"
			},
			wantErr: true,
			errMsg:  "Store",
		},
		{
			name: "missing cookie name",
			mutate: func(c *Config) {
				c.Session.CookieName = ""
			},
			wantErr: true,
			errMsg:  "CookieName",
		},
		{
			name: "missing api base",
			mutate: func(c *Config) {
				c.API.BaseURL = ""
			},
			wantErr: true,
			errMsg:  "BaseURL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr {
				assert.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		want        bool
	}{
		{"production", "production", true},
		{"prod", "prod", true},
		{"development", "development", false},
		{"staging", "staging", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Environment: tt.environment}
			assert.Equal(t, tt.want, cfg.IsProduction())
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "testuser",
		Password: "testpass",
		Database: "testdb",
		SSLMode:  "disable",
	}

	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable"
	assert.Equal(t, expected, cfg.DSN())
	assert.NotContains(t, cfg.LogString(), "testpass")
}

func TestServerConfig_Address(t *testing.T) {
	cfg := ServerConfig{
		Host: "0.0.0.0",
		Port: 8080,
	}

	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue time.Duration
		want         time.Duration
	}{
		{"valid duration", "90s", time.Second, 90 * time.Second},
		{"empty value", "", time.Second, time.Second},
		{"invalid duration", "soon", time.Second, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				t.Setenv("TEST_DURATION", tt.value)
			}
			assert.Equal(t, tt.want, getEnvAsDuration("TEST_DURATION", tt.defaultValue))
		})
	}
}

func TestGetEnvAsBool(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue bool
		want         bool
	}{
		{"true", "true", false, true},
		{"false", "false", true, false},
		{"empty value", "", true, true},
		{"invalid bool", "not-a-bool", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				t.Setenv("TEST_BOOL", tt.value)
			}
			assert.Equal(t, tt.want, getEnvAsBool("TEST_BOOL", tt.defaultValue))
		})
	}
}
