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

	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/controller"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/ikkim/storefront-backend/internal/router"
	"github.com/ikkim/storefront-backend/internal/scheduler"
	"github.com/ikkim/storefront-backend/internal/storage"
	ws "github.com/ikkim/storefront-backend/internal/websocket"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/ikkim/storefront-backend/pkg/oidc"
	"github.com/ikkim/storefront-backend/pkg/receipt"
	redisPkg "github.com/ikkim/storefront-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	logFormat := "json"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
		logFormat = "console"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      logFormat,
		EnableColor: true,
	})

	logger.Info("Starting storefront backend", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}
	if err := db.Seed(); err != nil {
		logger.Warn("Failed to seed database", map[string]interface{}{
			"error": err.Error(),
		})
	}
	gdb := db.GetDB()

	healthChecks := map[string]router.HealthChecker{
		"database": func(ctx context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	// Optional token revocation
	var (
		revoker     service.TokenRevoker
		revocations middleware.RevocationChecker
	)
	if cfg.Redis.Enabled() {
		client, err := redisPkg.Connect(&cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", err)
		}
		blacklist := redisPkg.NewTokenBlacklist(client)
		defer blacklist.Close()
		revoker = blacklist
		revocations = blacklist
		healthChecks["redis"] = func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}
	} else {
		logger.Warn("Redis is not configured, logout will not revoke tokens", nil)
	}

	// Optional OIDC login
	var verifier service.IdentityVerifier
	if cfg.OIDC.Enabled() {
		v, err := oidc.NewVerifier(ctx, cfg.OIDC.Issuer, cfg.OIDC.ClientID)
		if err != nil {
			logger.Fatal("Failed to initialize OIDC verifier", err, map[string]interface{}{
				"issuer": cfg.OIDC.Issuer,
			})
		}
		verifier = v
	}

	s3Storage, err := storage.NewS3Storage(ctx, &cfg.S3)
	if err != nil {
		logger.Fatal("Failed to initialize S3 storage", err)
	}

	hub := ws.NewHub()
	go hub.Run(ctx)

	// Initialize repositories
	userRepo := repository.NewUserRepository(gdb)
	customerRepo := repository.NewCustomerRepository(gdb)
	categoryRepo := repository.NewCategoryRepository(gdb)
	productRepo := repository.NewProductRepository(gdb)
	relationRepo := repository.NewProductRelationRepository(gdb)
	featureRepo := repository.NewFeatureRepository(gdb)
	cartRepo := repository.NewCartRepository(gdb)
	orderRepo := repository.NewOrderRepository(gdb)

	// Initialize services
	authService := service.NewAuthService(
		userRepo,
		revoker,
		verifier,
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	cartResolver := service.NewCartResolver(gdb, customerRepo, cartRepo)
	cartService := service.NewCartService(gdb, cartRepo, productRepo)
	ratingService := service.NewRatingService(gdb, productRepo, relationRepo)
	catalogService := service.NewCatalogService(gdb, categoryRepo, productRepo, cartRepo)
	featureService := service.NewFeatureService(gdb, featureRepo, categoryRepo, productRepo)
	orderService := service.NewOrderService(gdb, orderRepo, cartRepo, customerRepo, hub, receipt.NewSigner(cfg.JWT.Secret))

	maintenance := scheduler.NewMaintenanceScheduler(cfg.Scheduler, cfg.Cart.AnonymousTTL, gdb, cartRepo, cartService, ratingService)
	if err := maintenance.Start(); err != nil {
		logger.Fatal("Failed to start maintenance scheduler", err)
	}
	defer maintenance.Stop()

	// Setup router
	r := router.NewRouter(
		router.Controllers{
			Auth:         controller.NewAuthController(authService),
			Category:     controller.NewCategoryController(catalogService),
			Product:      controller.NewProductController(catalogService),
			Feature:      controller.NewFeatureController(featureService),
			Relation:     controller.NewRelationController(ratingService),
			Cart:         controller.NewCartController(cartService),
			Order:        controller.NewOrderController(orderService),
			Upload:       controller.NewUploadController(s3Storage),
			Notification: controller.NewNotificationController(hub, cfg.CORS.AllowedOrigins),
		},
		middleware.NewAuthMiddleware(cfg.JWT.Secret, revocations),
		cartResolver,
		middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
		healthChecks,
		cfg,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shut down", err)
	}
	logger.Info("Server stopped successfully")
}
