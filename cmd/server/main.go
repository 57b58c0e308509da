// Package main runs the LMS HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lumina-lms/backend/config"
	"github.com/lumina-lms/backend/internal/auth"
	"github.com/lumina-lms/backend/internal/courses"
	"github.com/lumina-lms/backend/internal/dashboard"
	"github.com/lumina-lms/backend/internal/enrollments"
	"github.com/lumina-lms/backend/internal/lessons"
	"github.com/lumina-lms/backend/internal/middleware"
	"github.com/lumina-lms/backend/internal/progress"
	"github.com/lumina-lms/backend/internal/tracking"
	"github.com/lumina-lms/backend/internal/worker"
	"github.com/lumina-lms/backend/pkg/database"
	"github.com/lumina-lms/backend/pkg/queue"
	"github.com/lumina-lms/backend/pkg/redis"
	"github.com/lumina-lms/backend/pkg/response"
	"github.com/lumina-lms/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" && cfg.AWS.AccessKeyID != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			VideosBucket:         cfg.AWS.VideosBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	// Clickstream tracking pipeline
	trackingStore := tracking.NewRedisStore(rdb.Client)
	trackingRepo := tracking.NewRepository(pool)
	sessionTTL := time.Duration(cfg.Tracking.SessionTTLHours) * time.Hour
	tracker := tracking.New(tracking.Options{
		Enabled:     cfg.Tracking.Enabled,
		Origin:      cfg.Tracking.Origin,
		SessionTTL:  sessionTTL,
		IPEndpoints: cfg.Tracking.IPEndpoints,
		IPTimeout:   time.Duration(cfg.Tracking.IPLookupTimeoutMS) * time.Millisecond,
	}, trackingRepo, trackingStore, logger)
	trackingSessions := tracking.NewSessions(trackingStore, sessionTTL, logger)
	observer := tracking.NewObserver(tracker, trackingSessions,
		time.Duration(cfg.Tracking.UnloadMinSeconds)*time.Second,
		cfg.Tracking.MaxPageErrors, logger)
	trackingHandler := tracking.NewHandler(tracker, observer, trackingRepo, logger)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, tracker, logger)

	// Courses
	courseRepo := courses.NewRepository(pool)
	courseHandler := courses.NewHandler(courseRepo, tracker)

	// Lessons
	lessonRepo := lessons.NewRepository(pool)
	lessonHandler := lessons.NewHandler(lessonRepo, courseRepo, s3Client, tracker, logger)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	videoWebhook := lessons.NewWebhookHandler(lessonRepo, jobQueue, logger)
	videoProcessor := worker.NewVideoProcessor(lessonRepo, s3Client, jobQueue, logger)

	// Enrollments and progress
	enrollRepo := enrollments.NewRepository(pool)
	enrollHandler := enrollments.NewHandler(enrollRepo, courseRepo, tracker)
	progressRepo := progress.NewRepository(pool)
	progressHandler := progress.NewHandler(progressRepo, lessonRepo, courseRepo, enrollRepo, tracker)

	// Dashboard
	dashboardHandler := dashboard.NewHandler(enrollRepo, progressRepo, trackingRepo)

	jwtValidate := func(token string) (uuid.UUID, string, string, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return uuid.Nil, "", "", err
		}
		return claims.UserID, claims.Email, claims.Role, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtValidate))
	{
		// Users (admin only)
		api.GET("/users", middleware.RequireRole("admin"), authHandler.List)

		// Courses
		api.GET("/courses", courseHandler.List)
		api.POST("/courses", middleware.RequireRole("admin", "instructor"), courseHandler.Create)
		api.GET("/courses/:id", courseHandler.GetByID)
		api.PATCH("/courses/:id", middleware.RequireRole("admin", "instructor"), courseHandler.Update)
		api.DELETE("/courses/:id", middleware.RequireRole("admin", "instructor"), courseHandler.Delete)

		// Lessons
		api.GET("/courses/:id/lessons", lessonHandler.ListByCourse)
		api.POST("/courses/:id/lessons", middleware.RequireRole("admin", "instructor"), lessonHandler.Create)
		api.GET("/lessons/:id", lessonHandler.GetByID)
		api.PATCH("/lessons/:id", middleware.RequireRole("admin", "instructor"), lessonHandler.Update)
		api.DELETE("/lessons/:id", middleware.RequireRole("admin", "instructor"), lessonHandler.Delete)
		api.POST("/lessons/:id/video/upload-url", middleware.RequireRole("admin", "instructor"), lessonHandler.GenerateUploadURL)
		api.POST("/lessons/:id/video/confirm", middleware.RequireRole("admin", "instructor"), lessonHandler.ConfirmUpload)
		api.POST("/lessons/:id/video/events", lessonHandler.VideoEvent)

		// Enrollments
		api.POST("/courses/:id/enroll", enrollHandler.Enroll)
		api.DELETE("/courses/:id/enroll", enrollHandler.Unenroll)
		api.GET("/my/courses", enrollHandler.MyCourses)

		// Progress and quizzes
		api.POST("/lessons/:id/start", progressHandler.Start)
		api.POST("/lessons/:id/complete", progressHandler.Complete)
		api.POST("/lessons/:id/quiz", progressHandler.SubmitQuiz)
		api.GET("/lessons/:id/attempts", progressHandler.ListAttempts)

		// Dashboard
		api.GET("/dashboard", dashboardHandler.Get)

		// Clickstream beacons
		track := api.Group("/track")
		{
			track.POST("/events", trackingHandler.TrackEvent)
			track.POST("/pageview", trackingHandler.PageView)
			track.POST("/unload", trackingHandler.Unload)
			track.POST("/errors", trackingHandler.CaptureError)
		}

		// Event feed (admin only)
		api.GET("/admin/events", middleware.RequireRole("admin"), trackingHandler.ListRecent)
	}

	// Webhooks (no JWT)
	router.POST("/webhooks/video-ready", videoWebhook.VideoReady)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background worker (lesson video transfer to S3)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if s3Client != nil {
		go videoProcessor.Run(workerCtx)
		logger.Info("video worker started")
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
