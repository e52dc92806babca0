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
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campusnotes/campus-notes-api/api/swagger"
	"github.com/campusnotes/campus-notes-api/internal/handler"
	"github.com/campusnotes/campus-notes-api/internal/middleware"
	"github.com/campusnotes/campus-notes-api/internal/models"
	"github.com/campusnotes/campus-notes-api/internal/repository"
	"github.com/campusnotes/campus-notes-api/internal/service"
	"github.com/campusnotes/campus-notes-api/pkg/cache"
	"github.com/campusnotes/campus-notes-api/pkg/config"
	"github.com/campusnotes/campus-notes-api/pkg/database"
	"github.com/campusnotes/campus-notes-api/pkg/jobs"
	"github.com/campusnotes/campus-notes-api/pkg/logger"
	corsmiddleware "github.com/campusnotes/campus-notes-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campusnotes/campus-notes-api/pkg/middleware/requestid"
	"github.com/campusnotes/campus-notes-api/pkg/storage"
)

// @title Campus Notes API
// @version 1.0.0
// @description College-scoped note sharing: catalog, uploads and signed downloads
// @BasePath /api
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
			redisClient = nil
		}
	}

	store, err := storage.NewS3Store(ctx, cfg.Storage)
	if err != nil {
		logr.Sugar().Fatalw("failed to init object storage", "error", err)
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Browse.CacheTTL, logr, true)
	} else {
		cacheSvc = service.NewCacheService(nil, metricsSvc, cfg.Browse.CacheTTL, logr, false)
	}

	userRepo := repository.NewUserRepository(db)
	noteRepo := repository.NewNoteRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	downloadRepo := repository.NewDownloadRepository(db)

	noteJobs := service.NewNoteJobs(downloadRepo, store, logr)
	queue := jobs.NewQueue("note-side-effects", noteJobs.Handle, jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		MaxRetries: cfg.Jobs.MaxRetries,
		RetryDelay: cfg.Jobs.RetryDelay,
		Logger:     logr,
	})
	queue.Start(ctx)
	defer queue.Stop()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.AppName,
		CollegeEmailDomain: cfg.CollegeEmailDomain,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, validate, logr)
	noteSvc := service.NewNoteService(noteRepo, store, cacheSvc, queue, validate, logr, service.NoteConfig{
		PageSize:       cfg.Browse.PageSize,
		SuggestionSize: cfg.Browse.SuggestionSize,
		CacheTTL:       cfg.Browse.CacheTTL,
		DownloadTTL:    cfg.Storage.DownloadURLTTL,
	})
	uploadSvc := service.NewUploadService(noteRepo, store, cacheSvc, storage.FileRules{
		MaxSizeBytes:      cfg.Uploads.MaxFileSizeBytes,
		AllowedExtensions: cfg.Uploads.AllowedExtensions,
	}, logr)
	exportSvc := service.NewExportService(noteRepo, nil, nil, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	subjectHandler := handler.NewSubjectHandler(subjectSvc)
	noteHandler := handler.NewNoteHandler(noteSvc)
	uploadHandler := handler.NewUploadHandler(uploadSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	fileHandler := handler.NewFileHandler(store, cfg.Storage.DownloadURLTTL)
	healthHandler := handler.NewHealthHandler(db, redisClient)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", healthHandler.Live)
	r.GET("/ready", healthHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/db-health", healthHandler.DBHealth)

	auth := api.Group("/auth")
	{
		auth.POST("/signup", authHandler.Signup)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)

		protected := auth.Group("", middleware.JWT(authSvc))
		protected.POST("/logout", authHandler.Logout)
		protected.POST("/change-password", authHandler.ChangePassword)
		protected.GET("/me", authHandler.Me)
	}

	notes := api.Group("/notes")
	{
		public := notes.Group("", middleware.OptionalJWT(authSvc))
		public.GET("", noteHandler.List)
		public.GET("/suggestions", noteHandler.Suggestions)
		public.GET("/:id", noteHandler.Get)
		public.POST("/:id/download", noteHandler.Download)

		authed := notes.Group("", middleware.JWT(authSvc))
		authed.POST("", noteHandler.Create)
		authed.POST("/upload", uploadHandler.Upload)
		authed.PUT("/:id", noteHandler.Update)
		authed.DELETE("/:id", noteHandler.Delete)

		admin := notes.Group("", middleware.JWT(authSvc), middleware.AdminOnly())
		admin.GET("/export", exportHandler.Catalog)
	}

	files := api.Group("/files", middleware.JWT(authSvc))
	files.POST("/signed-url", fileHandler.SignedURL)

	subjects := api.Group("/subjects")
	{
		subjects.GET("", subjectHandler.List)
		subjects.GET("/:id", subjectHandler.Get)

		admin := subjects.Group("", middleware.JWT(authSvc), middleware.AdminOnly())
		admin.POST("", subjectHandler.Create)
		admin.PUT("/:id", subjectHandler.Update)
		admin.DELETE("/:id", subjectHandler.Delete)
	}

	users := api.Group("/users", middleware.JWT(authSvc))
	{
		users.GET("/me", userHandler.Me)
		users.GET("", middleware.AdminOnly(), userHandler.List)
		users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), middleware.Self), userHandler.Get)
		users.PUT("/:id", middleware.RBAC(string(models.RoleAdmin), middleware.Self), userHandler.UpdateProfile)
		users.POST("/:id/verify-college-email", middleware.RBAC(string(models.RoleAdmin), middleware.Self), userHandler.VerifyCollegeEmail)
		users.DELETE("/:id", middleware.AdminOnly(), userHandler.Deactivate)
	}

	observability := api.Group("/metrics", middleware.JWT(authSvc), middleware.AdminOnly())
	observability.GET("/snapshot", metricsHandler.Snapshot)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
