package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pharmacore-erp/pharmacore/internal/app"
	"github.com/pharmacore-erp/pharmacore/internal/auth"
	"github.com/pharmacore-erp/pharmacore/internal/catalog"
	"github.com/pharmacore-erp/pharmacore/internal/compliance"
	"github.com/pharmacore-erp/pharmacore/internal/customers"
	"github.com/pharmacore-erp/pharmacore/internal/inventory"
	"github.com/pharmacore-erp/pharmacore/internal/licensing"
	"github.com/pharmacore-erp/pharmacore/internal/observability"
	"github.com/pharmacore-erp/pharmacore/internal/org"
	"github.com/pharmacore-erp/pharmacore/internal/platform/cache"
	"github.com/pharmacore-erp/pharmacore/internal/platform/db"
	"github.com/pharmacore-erp/pharmacore/internal/pos"
	"github.com/pharmacore-erp/pharmacore/internal/procurement"
	"github.com/pharmacore-erp/pharmacore/internal/reports"
	"github.com/pharmacore-erp/pharmacore/internal/shared"
	"github.com/pharmacore-erp/pharmacore/internal/transfers"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		// Caches degrade to direct reads without redis.
		logger.Warn("redis unavailable", slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()
	auditLog := shared.NewAuditLogger(pool)
	idempotency := shared.NewIdempotencyStore(pool)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)

	authService := auth.NewService(auth.NewRepository(pool), tokens, auditLog)
	authHandler := auth.NewHandler(logger, authService)

	licenseService := licensing.NewService(licensing.NewRepository(pool), redisClient, auditLog, cfg.LicenseCacheTTL)
	licenseHandler := licensing.NewHandler(logger, licenseService)

	orgService := org.NewService(org.NewRepository(pool), licenseService, auditLog)
	orgHandler := org.NewHandler(logger, orgService, authService)

	catalogService := catalog.NewService(catalog.NewRepository(pool), auditLog)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	inventoryService := inventory.NewService(inventory.NewRepository(pool), orgService, auditLog)
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	customersService := customers.NewService(customers.NewRepository(pool), auditLog)

	posService := pos.NewService(pos.NewRepository(pool), catalogService, orgService, customersService, auditLog)
	posHandler := pos.NewHandler(logger, posService)

	customersHandler := customers.NewHandler(logger, customersService, posService)

	procurementService := procurement.NewService(procurement.NewRepository(pool), catalogService, orgService, idempotency, auditLog)
	procurementHandler := procurement.NewHandler(logger, procurementService)

	transferService := transfers.NewService(transfers.NewRepository(pool), orgService, auditLog)
	transferHandler := transfers.NewHandler(logger, transferService)

	complianceService := compliance.NewService(compliance.NewRepository(pool), auditLog)
	complianceHandler := compliance.NewHandler(complianceService)

	reportsService := reports.NewService(reports.NewRepository(pool), redisClient, cfg.ReportCacheTTL)
	reportsHandler := reports.NewHandler(logger, reportsService)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Tokens:             tokens,
		LicenseService:     licenseService,
		AuthHandler:        authHandler,
		OrgHandler:         orgHandler,
		LicenseHandler:     licenseHandler,
		CatalogHandler:     catalogHandler,
		CustomerHandler:    customersHandler,
		InventoryHandler:   inventoryHandler,
		POSHandler:         posHandler,
		ProcurementHandler: procurementHandler,
		TransferHandler:    transferHandler,
		ComplianceHandler:  complianceHandler,
		ReportsHandler:     reportsHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
