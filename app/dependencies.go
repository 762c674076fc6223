package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/upb/campusiq-portal/config"
	"github.com/upb/campusiq-portal/internal/apiclient"
	"github.com/upb/campusiq-portal/internal/auth"
	"github.com/upb/campusiq-portal/internal/guard"
	"github.com/upb/campusiq-portal/internal/observability"
	"github.com/upb/campusiq-portal/internal/routing"
	"github.com/upb/campusiq-portal/middleware"
	"github.com/upb/campusiq-portal/repositories"
	"github.com/upb/campusiq-portal/repositories/postgres"
	"github.com/upb/campusiq-portal/repositories/redis"
	"github.com/upb/campusiq-portal/services"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config   *config.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Metrics  *observability.Metrics

	// Session store; DB and Credentials are set only for Postgres, Redis only for Redis
	DB          *postgres.DB
	RepoFactory *postgres.RepositoryFactory
	Credentials repositories.CredentialRepository
	Redis       goredis.UniversalClient
	Store       auth.CredentialStore

	// Domain
	Routes   *routing.Table
	API      *apiclient.Client
	Identity auth.IdentityProvider
	Sessions *auth.Manager
	Guard    *guard.Guard
	Pages    *services.PageService

	// HTTP middleware
	SessionMiddleware *middleware.SessionMiddleware
	RouteGuard        *middleware.RouteGuard
}

// Option customizes NewDependencies
type Option func(*Dependencies)

// WithDatabase supplies an open session store database instead of dialing one
func WithDatabase(db *postgres.DB) Option {
	return func(d *Dependencies) {
		d.DB = db
	}
}

// WithRedis supplies a Redis client instead of dialing REDIS_URL
func WithRedis(client goredis.UniversalClient) Option {
	return func(d *Dependencies) {
		d.Redis = client
	}
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}
	for _, opt := range opts {
		opt(deps)
	}

	deps.initMetrics(cfg)

	if err := deps.initRoutes(cfg); err != nil {
		return nil, fmt.Errorf("failed to load route table: %w", err)
	}

	if err := deps.initStore(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}

	deps.initDomain(cfg)

	logger.Info("all dependencies initialized successfully",
		zap.String("session_store", cfg.Session.Store),
		zap.String("api_base", cfg.API.BaseURL),
		zap.Int("routes", len(deps.Routes.Rules)))
	return deps, nil
}

// initMetrics creates a private registry with the gateway and runtime collectors
func (d *Dependencies) initMetrics(cfg *config.Config) {
	if !cfg.Observability.MetricsEnabled {
		return
	}
	d.Registry = prometheus.NewRegistry()
	d.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	d.Metrics = observability.NewMetrics(d.Registry)
}

// initRoutes loads the page table; a broken table stops startup
func (d *Dependencies) initRoutes(cfg *config.Config) error {
	table, err := routing.Load(cfg.Routes.File)
	if err != nil {
		return err
	}
	d.Routes = table
	return nil
}

// initStore selects the credential store and prepares its schema
func (d *Dependencies) initStore(ctx context.Context, cfg *config.Config) error {
	switch {
	case cfg.UsesPostgres():
		return d.initPostgresStore(ctx, cfg)
	case cfg.UsesRedis():
		return d.initRedisStore(ctx, cfg)
	default:
		d.Store = auth.NewMemoryStore()
		d.Logger.Info("using in-memory session store")
		return nil
	}
}

func (d *Dependencies) initRedisStore(ctx context.Context, cfg *config.Config) error {
	if d.Redis == nil {
		client, err := redis.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		d.Redis = client
	}

	d.Store = redis.NewCredentialStore(d.Redis, cfg.Redis.KeyPrefix, cfg.Session.TTL, d.Logger.Named("redis"))
	d.Logger.Info("using redis session store", zap.String("key_prefix", cfg.Redis.KeyPrefix))
	return nil
}

func (d *Dependencies) initPostgresStore(ctx context.Context, cfg *config.Config) error {
	if d.DB == nil {
		factory, err := postgres.NewRepositoryFactory(cfg.Database, d.Logger)
		if err != nil {
			return fmt.Errorf("failed to create repository factory: %w", err)
		}
		d.RepoFactory = factory
		d.DB = factory.GetDB()
	} else {
		d.RepoFactory = postgres.NewRepositoryFactoryFromDB(d.DB, d.Logger)
	}

	if err := d.DB.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	repos := d.RepoFactory.NewRepositories()
	d.Credentials = repos.Credentials
	d.Store = repos.Credentials

	d.Logger.Info("using postgres session store",
		zap.String("connection", cfg.Database.LogString()))
	return nil
}

func (d *Dependencies) initDomain(cfg *config.Config) {
	d.API = apiclient.New(apiclient.Config{
		BaseURL:     cfg.API.BaseURL,
		Timeout:     cfg.API.Timeout,
		MaxAttempts: cfg.API.MaxAttempts,
		BackoffUnit: cfg.API.BackoffUnit,
	}, d.Logger.Named("apiclient"), apiclient.WithMetrics(d.Metrics))

	d.Identity = auth.NewAPIIdentity(d.API)
	d.Sessions = auth.NewManager(d.Identity, d.Store, cfg.Session.TTL, d.Logger.Named("session"),
		auth.WithResolveTimeout(cfg.Session.ResolveTimeout),
		auth.WithSessionMetrics(d.Metrics))

	d.Guard = guard.New(d.Routes, d.Metrics, d.Logger.Named("guard"))
	d.Pages = services.NewPageService(d.API, d.Logger.Named("pages"))

	d.SessionMiddleware = middleware.NewSessionMiddleware(d.Sessions, middleware.CookieConfig{
		Name:   cfg.Session.CookieName,
		Secure: cfg.Session.CookieSecure,
		MaxAge: cfg.Session.TTL,
	}, d.Logger.Named("session"))
	d.RouteGuard = middleware.NewRouteGuard(d.Guard, d.Logger.Named("guard"))
}

// RunMaintenance evicts idle sessions and, with the Postgres store, purges
// credentials untouched for longer than the session TTL. It returns when ctx ends.
func (d *Dependencies) RunMaintenance(ctx context.Context) {
	interval := d.Config.Session.SweepInterval

	if d.Credentials != nil {
		go d.purgeLoop(ctx, interval)
	}
	d.Sessions.Run(ctx, interval)
}

func (d *Dependencies) purgeLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.PurgeStaleCredentials(ctx)
		}
	}
}

// PurgeStaleCredentials deletes persisted credentials idle for longer than the TTL
func (d *Dependencies) PurgeStaleCredentials(ctx context.Context) {
	if d.Credentials == nil {
		return
	}
	cutoff := time.Now().Add(-d.Config.Session.TTL)
	purged, err := d.Credentials.PurgeStale(ctx, cutoff)
	if err != nil {
		d.Logger.Warn("failed to purge stale credentials", zap.Error(err))
		return
	}
	if purged > 0 {
		d.Logger.Info("purged stale credentials", zap.Int64("purged", purged))
	}
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		} else {
			d.Logger.Info("redis connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
