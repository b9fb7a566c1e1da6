package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/aditwicaksono/sharegate/api/swagger"
	"github.com/aditwicaksono/sharegate/internal/clientinfo"
	"github.com/aditwicaksono/sharegate/internal/dto"
	"github.com/aditwicaksono/sharegate/internal/geo"
	"github.com/aditwicaksono/sharegate/internal/handler"
	"github.com/aditwicaksono/sharegate/internal/middleware"
	"github.com/aditwicaksono/sharegate/internal/printer"
	"github.com/aditwicaksono/sharegate/internal/repository"
	"github.com/aditwicaksono/sharegate/internal/service"
	rediscache "github.com/aditwicaksono/sharegate/pkg/cache"
	"github.com/aditwicaksono/sharegate/pkg/config"
	"github.com/aditwicaksono/sharegate/pkg/database"
	"github.com/aditwicaksono/sharegate/pkg/logger"
	corsmiddleware "github.com/aditwicaksono/sharegate/pkg/middleware/cors"
	reqidmiddleware "github.com/aditwicaksono/sharegate/pkg/middleware/requestid"
	"github.com/aditwicaksono/sharegate/pkg/storage"
	"github.com/aditwicaksono/sharegate/pkg/token"
)

// @title ShareGate Access API
// @version 0.3.0
// @description OTP-gated file access with per-access audit trail
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	cache, err := rediscache.NewRedis(cfg.Redis)
	if err != nil {
		// Geolocation caching is the only Redis consumer, degrade without it.
		logr.Sugar().Warnw("redis unavailable, geo cache disabled", "error", err)
		cache = nil
	} else {
		defer cache.Close() //nolint:errcheck
	}

	ctx := context.Background()

	var blobs storage.BlobStore
	switch strings.ToLower(cfg.Storage.Backend) {
	case "s3":
		blobs, err = storage.NewS3Store(ctx, cfg.Storage)
		if err != nil {
			logr.Sugar().Fatalw("failed to init s3 store", "error", err)
		}
	default:
		blobs, err = storage.NewLocalStore(cfg.Storage.LocalDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init local store", "error", err)
		}
	}

	fileRepo := repository.NewFileRepository(db)
	traceRepo := repository.NewTraceRepository(db)

	metricsSvc := service.NewMetricsService()
	locator := geo.NewLocator(cfg.Geo, cache, logr)
	recorder := service.NewAuditRecorder(traceRepo, locator, metricsSvc, logr, cfg.Audit)
	recorder.Start(ctx)
	defer recorder.Stop()

	signer := token.NewGrantSigner(cfg.Grant.Secret, cfg.Grant.TTL)
	broker := printer.NewBroker(cfg.Printer, logr)
	accessSvc := service.NewAccessPolicyEngine(fileRepo, blobs, recorder, signer, broker, metricsSvc, logr)
	traceSvc := service.NewTraceQueryService(traceRepo, logr, cfg.Trace)
	authSvc := service.NewAuthService(cfg.JWT.Secret)

	dto.RegisterValidations()
	extractor := clientinfo.New(cfg.Env != config.EnvProduction)

	verifyHandler := handler.NewVerifyHandler(accessSvc, extractor, logr)
	traceHandler := handler.NewTraceHandler(traceSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db, cache)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/verify", verifyHandler.Verify)
		api.POST("/verify/print", verifyHandler.Print)
		api.POST("/verify/download", verifyHandler.Download)
		api.POST("/verify/print-job", verifyHandler.PrintJob)

		traces := api.Group("/traces", middleware.JWT(authSvc))
		{
			traces.GET("", traceHandler.List)
			traces.GET("/export", traceHandler.Export)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "storage", cfg.Storage.Backend)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
