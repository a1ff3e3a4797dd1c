package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-report-portal/api/swagger"
	"github.com/noah-isme/sma-report-portal/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-report-portal/internal/middleware"
	"github.com/noah-isme/sma-report-portal/internal/models"
	"github.com/noah-isme/sma-report-portal/internal/repository"
	"github.com/noah-isme/sma-report-portal/internal/service"
	"github.com/noah-isme/sma-report-portal/pkg/cache"
	"github.com/noah-isme/sma-report-portal/pkg/config"
	"github.com/noah-isme/sma-report-portal/pkg/database"
	"github.com/noah-isme/sma-report-portal/pkg/export"
	"github.com/noah-isme/sma-report-portal/pkg/jobs"
	"github.com/noah-isme/sma-report-portal/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-report-portal/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-report-portal/pkg/middleware/requestid"
	"github.com/noah-isme/sma-report-portal/pkg/storage"
)

// @title SMA Report Portal API
// @version 1.0.0
// @description Academic report workflow with chart and table PDF rendering
// @BasePath /api/v1
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close() //nolint:errcheck

	if err := database.EnsureSchema(ctx, db); err != nil {
		logr.Sugar().Fatalw("failed to ensure schema", "error", err)
	}

	metricsSvc := service.NewMetricsService()
	validate := validator.New()
	deps := map[string]handler.Pinger{"database": db}

	var cacheRepo service.CacheRepository
	if cfg.Reports.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, report list cache disabled", "error", err)
		} else {
			repo := repository.NewCacheRepository(client, logr)
			defer repo.Close() //nolint:errcheck
			cacheRepo = repo
			deps["redis"] = handler.PingFunc(repo.Ping)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Reports.ListCacheTTL, logr, cacheRepo != nil)

	reportRepo := repository.NewReportRepository(db)
	renderer := export.NewReportRenderer(cfg.Reports.Organization)
	reportSvc := service.NewReportService(reportRepo, renderer, cacheSvc, metricsSvc, validate, logr, service.ReportServiceConfig{
		Organization: cfg.Reports.Organization,
	})

	tokenSvc := service.NewTokenService(service.TokenConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc, "/metrics", "/health", "/ready"))
	r.Use(internalmiddleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metricsSvc, deps)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(tokenSvc))

	reportHandler := handler.NewReportHandler(reportSvc, service.EnvelopeBuilder{})
	reports := secured.Group("/reports")
	reports.POST("", reportHandler.Create)
	reports.GET("", reportHandler.List)
	reports.POST("/envelopes/class", reportHandler.BuildClassEnvelope)
	reports.POST("/envelopes/single", reportHandler.BuildSingleEnvelope)
	reports.GET("/:id", reportHandler.Get)
	reports.DELETE("/:id", reportHandler.Delete)
	reports.POST("/:id/submit", reportHandler.Submit)
	reports.POST("/:id/forward", reportHandler.Forward)
	reports.POST("/:id/approve", reportHandler.Approve)
	reports.GET("/:id/preview", reportHandler.Preview)
	reports.GET("/:id/download", reportHandler.Download)

	var queue *jobs.Queue
	if cfg.Exports.Enabled {
		queue = setupExports(ctx, cfg, db, reportRepo, metricsSvc, validate, logr, api, secured)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
	if queue != nil {
		queue.Stop()
	}
}

func setupExports(
	ctx context.Context,
	cfg *config.Config,
	db *sqlx.DB,
	reportRepo *repository.ReportRepository,
	metricsSvc *service.MetricsService,
	validate *validator.Validate,
	logr *zap.Logger,
	api *gin.RouterGroup,
	secured *gin.RouterGroup,
) *jobs.Queue {
	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	jobRepo := repository.NewExportJobRepository(db)
	exporter := service.NewExportService(reportRepo, files, signer, service.ExportConfig{
		APIPrefix:    cfg.APIPrefix,
		ResultTTL:    cfg.Exports.SignedURLTTL,
		Organization: cfg.Reports.Organization,
	}, logr, export.NewCSVExporter(), export.NewPDFExporter(cfg.Reports.Organization))

	worker := service.NewExportWorker(jobRepo, exporter, metricsSvc, cfg.Exports.WorkerRetries, logr)
	queue := jobs.NewQueue("register-exports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		Logger:     logr,
	})
	queue.Start(ctx)

	jobSvc := service.NewExportJobService(jobRepo, queue, exporter, validate, logr, service.ExportJobServiceConfig{
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
	})
	jobSvc.RecoverPendingJobs(ctx)
	jobSvc.StartCleanup(ctx)

	exportHandler := handler.NewExportHandler(jobSvc)
	exports := secured.Group("/exports")
	exports.Use(internalmiddleware.RequireRoles(models.RoleHOD, models.RolePrincipal))
	exports.POST("", exportHandler.Create)
	exports.GET("/:id", exportHandler.Status)
	api.GET("/export/:token", exportHandler.Download)

	return queue
}
