// Command api serves the course registration HTTP API.
//
// @title                       Course Registration API
// @version                     1.0
// @description                 Course catalog, registration ledger and accounts.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/coursehub/registration-api/internal/api"
	"github.com/coursehub/registration-api/internal/api/handler"
	"github.com/coursehub/registration-api/internal/core/ports"
	"github.com/coursehub/registration-api/internal/core/service"
	"github.com/coursehub/registration-api/internal/infrastructure/config"
	"github.com/coursehub/registration-api/internal/infrastructure/db/memory"
	mongostore "github.com/coursehub/registration-api/internal/infrastructure/db/mongo"
	"github.com/coursehub/registration-api/internal/infrastructure/db/postgres"
	redisstore "github.com/coursehub/registration-api/internal/infrastructure/db/redis"
	"github.com/coursehub/registration-api/internal/infrastructure/db/sqlite"
	"github.com/coursehub/registration-api/internal/infrastructure/identity"
	"github.com/coursehub/registration-api/internal/infrastructure/queue"
	"github.com/coursehub/registration-api/internal/infrastructure/telemetry"
	"github.com/coursehub/registration-api/pkg/logger"
)

const (
	serviceName     = "registration-api"
	version         = "1.0.0"
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: serviceName,
	})

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, version, cfg.Tracing.Endpoint)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn().Err(err).Msg("tracer shutdown")
		}
	}()

	readiness := map[string]handler.Pinger{}

	// --- Ledger and catalog ---
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()
	readiness["store"] = store

	// --- Accounts and audit trail (MongoDB, optional) ---
	var (
		users ports.UserRepository = memory.NewUserRepository()
		audit ports.AuditRepository
	)
	if cfg.Mongo.URI != "" {
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return err
		}
		defer func() { _ = client.Disconnect(context.Background()) }()

		userRepo := mongostore.NewUserRepository(db)
		auditRepo := mongostore.NewAuditRepository(db)
		if err := userRepo.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("user indexes: %w", err)
		}
		if err := auditRepo.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("audit indexes: %w", err)
		}
		users, audit = userRepo, auditRepo
		readiness["mongodb"] = mongostore.Pinger{Client: client}
		log.Info().Str("db", cfg.Mongo.Database).Msg("mongodb connected")
	} else {
		log.Warn().Msg("MONGO_URI not set: accounts are kept in memory and the audit trail is off")
	}

	// --- My-courses cache (Redis, optional) ---
	var cache service.RegistrationCache
	if cfg.Redis.Addr != "" {
		rdb, err := redisstore.Connect(ctx, redisstore.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer rdb.Close()
		cache = redisstore.NewRegistrationCache(rdb, cfg.Redis.CacheTTL)
		readiness["redis"] = redisstore.Pinger{Client: rdb}
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected")
	}

	// --- Social login (optional) ---
	var provider ports.IdentityProvider
	socialCfg := identity.Config(cfg.Social)
	if socialCfg.Enabled() {
		provider = identity.NewOAuthProvider(socialCfg)
		log.Info().Str("provider", socialCfg.Name).Msg("social login enabled")
	}

	// --- Services ---
	dispatcher := queue.NewDispatcher(cfg.Ledger.EventWorkers, service.NewAuditService(audit, cache, log), log)

	registrations := service.NewRegistrationService(store, cache, dispatcher, service.RegistrationOptions{
		Timeout:    cfg.Ledger.Timeout,
		MaxRetries: cfg.Ledger.MaxRetries,
	}, log)
	courses := service.NewCourseService(store, service.CourseOptions{
		EditGrace:   cfg.Catalog.EditGrace,
		DeleteGrace: cfg.Catalog.DeleteGrace,
	}, log)
	auth := service.NewAuthService(users, provider, cfg.JWTSecret, cfg.JWTTTL, log)
	profiles := service.NewUserService(users, log)

	if cfg.Admin.Email != "" && cfg.Admin.Password != "" {
		if err := auth.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	}

	router := api.NewRouter(api.Services{
		Auth:          auth,
		Courses:       courses,
		Registrations: registrations,
		Users:         profiles,
		Readiness:     readiness,
	}, api.Options{
		JWTSecret: cfg.JWTSecret,
		RateLimit: cfg.RateLimit,
		Logger:    log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("store", cfg.Store.Driver).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return dispatcher.Run(gctx)
	})
	if cfg.Ledger.ReconcileInterval > 0 {
		g.Go(func() error {
			return queue.NewReconciler(registrations, cfg.Ledger.ReconcileInterval, log).Run(gctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}

// openStore selects the ledger backend named by STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ports.CourseStore, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		log.Warn().Msg("using in-memory store: data is lost on restart")
		return memory.NewStore(), nil
	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, postgres.Config{DSN: cfg.Store.PostgresDSN}, log)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return postgres.NewStore(pool, cfg.Ledger.Timeout), nil
	default:
		s, err := sqlite.Open(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", cfg.Store.SQLitePath).Msg("sqlite store opened")
		return s, nil
	}
}
