package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/noah-isme/crm-admin-api/api/swagger"
	"github.com/noah-isme/crm-admin-api/internal/handler"
	"github.com/noah-isme/crm-admin-api/internal/migrations"
	"github.com/noah-isme/crm-admin-api/internal/repository"
	"github.com/noah-isme/crm-admin-api/internal/router"
	"github.com/noah-isme/crm-admin-api/internal/service"
	"github.com/noah-isme/crm-admin-api/pkg/cache"
	"github.com/noah-isme/crm-admin-api/pkg/config"
	"github.com/noah-isme/crm-admin-api/pkg/database"
	"github.com/noah-isme/crm-admin-api/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

// @title CRM Admin API
// @version 1.0.0
// @description User directory, dashboard stats and authentication for the CRM admin console
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, migrations.FS); err != nil {
			return err
		}
		logr.Info("migrations applied")
	}

	checks := map[string]handler.Pinger{"postgres": db}

	metrics := service.NewMetricsService()

	var cacheRepo *repository.CacheRepository
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			cacheRepo = repository.NewCacheRepository(client, "crm", logr)
			defer cacheRepo.Close() //nolint:errcheck
			checks["redis"] = handler.PingFunc(cacheRepo.Ping)
		}
	}
	var cacheBackend service.CacheRepository
	if cacheRepo != nil {
		cacheBackend = cacheRepo
	}
	cacheSvc := service.NewCacheService(cacheBackend, metrics, cfg.Cache.UsersTTL, logr, cacheBackend != nil)

	userRepo := repository.NewUserRepository(db)
	auditSvc := service.NewAuditService(repository.NewAuditRepository(db), metrics, logr, service.AuditServiceConfig{
		Workers:    cfg.Audit.Workers,
		BufferSize: cfg.Audit.BufferSize,
		MaxRetries: cfg.Audit.MaxRetries,
		RetryDelay: cfg.Audit.RetryDelay,
	})
	// the queue outlives the signal context; Stop drains it before the db closes
	auditSvc.Start(context.WithoutCancel(ctx))
	defer auditSvc.Stop()

	authSvc := service.NewAuthService(userRepo, auditSvc, cacheSvc, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(service.UserServiceParams{
		Repo:     userRepo,
		Cache:    cacheSvc,
		Audit:    auditSvc,
		Metrics:  metrics,
		Logger:   logr,
		CacheTTL: cfg.Cache.UsersTTL,
	})
	statsSvc := service.NewStatsService(service.StatsServiceParams{
		Stats:    repository.NewStatRepository(db),
		Users:    userRepo,
		Cache:    cacheSvc,
		Logger:   logr,
		CacheTTL: cfg.Cache.StatsTTL,
	})

	engine := router.New(router.Deps{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AuthRequired:   cfg.Auth.Required,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Logger:         logr,
		Tokens:         authSvc,
		Observer:       metrics,
		Users:          handler.NewUserHandler(userSvc),
		Stats:          handler.NewStatsHandler(statsSvc),
		Auth:           handler.NewAuthHandler(authSvc),
		Metrics:        handler.NewMetricsHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
