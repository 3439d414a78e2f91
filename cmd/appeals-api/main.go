package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/emeraldmc/appeals-api/api/swagger"
	"github.com/emeraldmc/appeals-api/internal/handler"
	"github.com/emeraldmc/appeals-api/internal/middleware"
	"github.com/emeraldmc/appeals-api/internal/repository"
	"github.com/emeraldmc/appeals-api/internal/service"
	"github.com/emeraldmc/appeals-api/pkg/cache"
	"github.com/emeraldmc/appeals-api/pkg/config"
	"github.com/emeraldmc/appeals-api/pkg/database"
	"github.com/emeraldmc/appeals-api/pkg/logger"
	corsmiddleware "github.com/emeraldmc/appeals-api/pkg/middleware/cors"
	reqidmiddleware "github.com/emeraldmc/appeals-api/pkg/middleware/requestid"
)

// @title EmeraldMC Ban Appeals API
// @version 0.1.0
// @description Submission and review API for Minecraft ban appeals
// @BasePath /
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Appeals.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Appeals.StatsCacheTTL, logr, true)
		}
	}

	appealRepo := repository.NewAppealRepository(db)
	webhookSvc := service.NewWebhookService(cfg.Webhook.URL, cfg.Webhook.Timeout, appealRepo, metricsSvc, logr)
	appealSvc := service.NewAppealService(appealRepo, webhookSvc, cacheSvc, metricsSvc,
		validator.New(), logr, cfg.Appeals.RecentDaysDefault, cfg.Appeals.ListCacheTTL)

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		exportSvc = service.NewExportService(appealSvc, logr)
	}

	appealHandler := handler.NewAppealHandler(appealSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	var adminHandler *handler.AdminHandler
	if exportSvc != nil {
		adminHandler = handler.NewAdminHandler(appealSvc, exportSvc)
	} else {
		adminHandler = handler.NewAdminHandler(appealSvc, nil)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/appeals", appealHandler.Submit)
		api.GET("/appeals/:id", appealHandler.Get)

		admin := api.Group("/admin")
		{
			admin.GET("/appeals", adminHandler.List)
			admin.GET("/appeals/stats", adminHandler.Stats)
			admin.GET("/appeals/export", adminHandler.Export)
			admin.GET("/appeals/:id", adminHandler.Get)
			admin.PATCH("/appeals/:id/status", adminHandler.UpdateStatus)
			admin.POST("/appeals/:id/webhook-sent", adminHandler.MarkWebhookSent)
			admin.DELETE("/appeals/:id", adminHandler.Delete)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Info("server starting",
		zap.String("addr", addr),
		zap.String("env", cfg.Env),
		zap.Bool("webhook_configured", webhookSvc.Enabled()))
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
