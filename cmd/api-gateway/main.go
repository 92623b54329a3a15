package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campushq/timetable-api/api/swagger"
	"github.com/campushq/timetable-api/internal/handler"
	"github.com/campushq/timetable-api/internal/middleware"
	"github.com/campushq/timetable-api/internal/models"
	"github.com/campushq/timetable-api/internal/recurrence"
	"github.com/campushq/timetable-api/internal/repository"
	"github.com/campushq/timetable-api/internal/service"
	"github.com/campushq/timetable-api/pkg/cache"
	"github.com/campushq/timetable-api/pkg/config"
	"github.com/campushq/timetable-api/pkg/database"
	"github.com/campushq/timetable-api/pkg/logger"
	corsmiddleware "github.com/campushq/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campushq/timetable-api/pkg/middleware/requestid"
	"github.com/campushq/timetable-api/pkg/storage"
)

// @title Timetable API
// @version 1.0.0
// @description Recurring schedule templates, conflict checking and session occurrence generation
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, continuing without cache and events fan-out", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	// Repositories.
	templateRepo := repository.NewTemplateRepository(db)
	occurrenceRepo := repository.NewOccurrenceRepository(db)
	referenceRepo := repository.NewReferenceRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	// Services.
	eventSvc := service.NewEventService(cacheRepo, cfg.Events, logr)
	conflictSvc := service.NewConflictService(templateRepo, validate, metricsSvc, logr)
	templateSvc := service.NewTemplateService(templateRepo, referenceRepo, conflictSvc, cacheRepo, eventSvc, metricsSvc, validate, logr, cfg.Scheduling)
	occurrenceSvc := service.NewOccurrenceService(occurrenceRepo, templateRepo, recurrence.NewExpander(nil), cacheRepo, metricsSvc, eventSvc, validate, logr, cfg.Scheduling)
	var exportArchive *storage.LocalStorage
	if cfg.Export.Enabled && cfg.Export.ArchiveDir != "" {
		exportArchive, err = storage.NewLocalStorage(cfg.Export.ArchiveDir)
		if err != nil {
			logr.Sugar().Warnw("export archive unavailable", "error", err)
			exportArchive = nil
		}
	}
	timetableSvc := service.NewTimetableService(templateRepo, exportArchive, logr)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret: cfg.JWT.Secret,
		Expiry: cfg.JWT.Expiration,
		Issuer: cfg.JWT.Issuer,
	})

	eventCtx, stopEvents := context.WithCancel(context.Background())
	eventSvc.Start(eventCtx)
	defer func() {
		stopEvents()
		eventSvc.Stop()
	}()

	if exportArchive != nil && cfg.Export.Retention > 0 {
		go func() {
			ticker := time.NewTicker(12 * time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-eventCtx.Done():
					return
				case <-ticker.C:
					deleted, err := exportArchive.CleanupOlderThan(cfg.Export.Retention)
					if err != nil {
						logr.Sugar().Warnw("archive cleanup failed", "error", err)
						continue
					}
					if len(deleted) > 0 {
						logr.Sugar().Infow("archive cleanup", "deleted", len(deleted))
					}
				}
			}
		}()
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	templateHandler := handler.NewTemplateHandler(templateSvc, conflictSvc)
	occurrenceHandler := handler.NewOccurrenceHandler(occurrenceSvc)
	timetableHandler := handler.NewTimetableHandler(timetableSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	templates := api.Group("/templates", middleware.JWT(authSvc))
	{
		templates.GET("", middleware.RequireCapability(models.CapTemplateRead), templateHandler.List)
		templates.GET("/:id", middleware.RequireCapability(models.CapTemplateRead), templateHandler.Get)
		templates.POST("", middleware.RequireCapability(models.CapTemplateWrite),
			middleware.Audit(userRepo, models.AuditActionTemplateCreate, "template"), templateHandler.Create)
		templates.PUT("/:id", middleware.RequireCapability(models.CapTemplateWrite),
			middleware.Audit(userRepo, models.AuditActionTemplateUpdate, "template"), templateHandler.Update)
		templates.DELETE("/:id", middleware.RequireCapability(models.CapTemplateWrite),
			middleware.Audit(userRepo, models.AuditActionTemplateDeactivate, "template"), templateHandler.Deactivate)
		templates.POST("/check-conflicts", middleware.RequireCapability(models.CapTemplateRead), templateHandler.CheckConflicts)
		templates.POST("/:id/approve", middleware.RequireCapability(models.CapTemplateApprove),
			middleware.Audit(userRepo, models.AuditActionTemplateApprove, "template"), templateHandler.Approve)
		templates.POST("/:id/reject", middleware.RequireCapability(models.CapTemplateApprove),
			middleware.Audit(userRepo, models.AuditActionTemplateReject, "template"), templateHandler.Reject)
		templates.POST("/:id/generate", middleware.RequireCapability(models.CapOccurrenceGenerate),
			middleware.Audit(userRepo, models.AuditActionOccurrenceGenerate, "occurrence"), occurrenceHandler.Generate)
	}

	occurrences := api.Group("/occurrences", middleware.JWT(authSvc))
	{
		occurrences.GET("", middleware.RequireCapability(models.CapTemplateRead), occurrenceHandler.List)
		occurrences.GET("/:id", middleware.RequireCapability(models.CapTemplateRead), occurrenceHandler.Get)
		occurrences.PUT("/:id/status", middleware.RequireCapability(models.CapOccurrenceUpdate),
			middleware.Audit(userRepo, models.AuditActionOccurrenceUpdate, "occurrence"), occurrenceHandler.UpdateStatus)
	}

	if cfg.Export.Enabled {
		api.GET("/teachers/:id/timetable/export", middleware.JWT(authSvc),
			middleware.RequireCapability(models.CapTimetableExport), timetableHandler.ExportTeacher)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Sugar().Infow("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
