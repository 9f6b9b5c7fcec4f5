package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/copperkettle/storefront/pkg/api"
	"github.com/copperkettle/storefront/pkg/approval"
	"github.com/copperkettle/storefront/pkg/audit"
	"github.com/copperkettle/storefront/pkg/config"
	"github.com/copperkettle/storefront/pkg/identity"
	"github.com/copperkettle/storefront/pkg/middleware"
	"github.com/copperkettle/storefront/pkg/observability"
	"github.com/copperkettle/storefront/pkg/policy"
	"github.com/copperkettle/storefront/pkg/profile"
	"github.com/copperkettle/storefront/pkg/storefront"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).
			WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("server exited with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *observability.Logger) error {
	// PostgreSQL
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnLifetime)
	if err := db.PingContext(ctx); err != nil {
		return err
	}
	logger.Info("connected to postgres")

	migrations := append(identity.Migrations(), storefront.Migrations()...)
	if err := identity.RunMigrations(ctx, db, migrations); err != nil {
		return err
	}
	logger.Info("migrations applied")

	// Redis session store
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return err
	}
	logger.Info("connected to redis")

	// Observability
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}
	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := otelProviders.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("otel shutdown failed")
		}
	}()

	// Identity
	accounts := identity.NewAccountStore(db)
	profiles := identity.NewProfileStore(db)
	sessions := identity.NewSessionStore(redisClient, cfg.Auth.SessionTTL)
	idService := identity.NewService(accounts, profiles, sessions, identity.ServiceConfig{
		BcryptCost:        cfg.Auth.BcryptCost,
		MaxSignInAttempts: cfg.Auth.MaxSignInAttempts,
		LockoutWindow:     cfg.Auth.LockoutWindow,
	}, logger, metrics)

	resolver := profile.NewResolver(idService, logger, metrics)
	gate := middleware.NewGate(idService, resolver, policy.DefaultTable(), logger, metrics)

	auditLogger, err := audit.NewDBLogger(db)
	if err != nil {
		return err
	}

	shopStore := storefront.NewStore(db)
	shopHandlers := storefront.NewHandlers(shopStore, auditLogger, logger)
	holdingPage := approval.NewHandler(cfg.Auth.ApprovalRetry, logger)

	server := api.NewServer(api.ServerConfig{
		Store:         idService,
		Profiles:      profiles,
		Gate:          gate,
		Shop:          shopHandlers,
		Approval:      holdingPage,
		Audit:         auditLogger,
		AuditSearch:   auditLogger,
		Logger:        logger,
		Metrics:       metrics,
		SessionTTL:    cfg.Auth.SessionTTL,
		SecureCookies: cfg.Auth.SecureCookies,
	})

	var rootHandler http.Handler = server.Handler()
	if cfg.Observability.OTelEnabled {
		rootHandler = otelhttp.NewHandler(rootHandler, "storefront")
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      rootHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics on a separate listener for probes
	healthChecker := observability.NewHealthChecker(db, redisClient)
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", healthChecker.Liveness)
	healthMux.HandleFunc("/readyz", healthChecker.Readiness)
	if metrics != nil {
		healthMux.Handle("/metrics", metrics.Handler())
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.WithField("addr", httpServer.Addr).Info("storefront listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("health listener started")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("http shutdown failed")
		}
		return healthServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
