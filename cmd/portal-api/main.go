package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/college-portal-api/api/swagger"
	"github.com/noah-isme/college-portal-api/internal/handler"
	"github.com/noah-isme/college-portal-api/internal/middleware"
	"github.com/noah-isme/college-portal-api/internal/models"
	"github.com/noah-isme/college-portal-api/internal/repository"
	"github.com/noah-isme/college-portal-api/internal/service"
	"github.com/noah-isme/college-portal-api/pkg/cache"
	"github.com/noah-isme/college-portal-api/pkg/config"
	"github.com/noah-isme/college-portal-api/pkg/database"
	"github.com/noah-isme/college-portal-api/pkg/export"
	"github.com/noah-isme/college-portal-api/pkg/gateway"
	"github.com/noah-isme/college-portal-api/pkg/logger"
	"github.com/noah-isme/college-portal-api/pkg/mail"
	reqidmiddleware "github.com/noah-isme/college-portal-api/pkg/middleware/requestid"
	"github.com/noah-isme/college-portal-api/pkg/storage"
)

//go:generate swag init --dir ../.. --generalInfo cmd/portal-api/main.go --output ../../api/swagger --outputTypes go --packageName swagger --parseInternal

// @title College Portal API
// @version 1.0.0
// @description Fee payments, admissions, exam results and notifications for a college portal
// @BasePath /api
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// @tag.name Authentication
// @tag.description Login and sign-up for students, faculty and administrators
// @tag.name Students
// @tag.description Student profiles and administrative student records
// @tag.name Faculty
// @tag.description Faculty accounts
// @tag.name Courses
// @tag.description Course catalog
// @tag.name Payments
// @tag.description Registration and full fee payments
// @tag.name Admissions
// @tag.description Admission applications and review
// @tag.name Results
// @tag.description Exam results and spreadsheet ingestion
// @tag.name Notifications
// @tag.description Email and in-app notifications
// @tag.name Health
// @tag.description Liveness, readiness and metrics

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
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.RunMigrations {
		if err := database.Migrate(db.DB, logr); err != nil {
			logr.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	metricsSvc := service.NewMetricsService()

	var (
		cacheRepo service.CacheRepository
		cachePing handler.Pinger
	)
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(context.Background(), cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, course cache disabled", zap.Error(err))
		} else {
			defer client.Close()
			repo := repository.NewCacheRepository(client, cfg.Redis.KeyPrefix, logr)
			cacheRepo, cachePing = repo, repo
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.CourseTTL, logr, cacheRepo != nil)

	documents, err := storage.NewLocalStorage(cfg.Uploads.Dir, cfg.Uploads.BaseURL)
	if err != nil {
		logr.Fatal("failed to prepare upload directory", zap.Error(err))
	}

	validate := service.NewValidator()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	facultyRepo := repository.NewFacultyRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	resultRepo := repository.NewResultRepository(db)
	admissionRepo := repository.NewAdmissionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	mailer := mail.NewSMTPMailer(cfg.Mail)
	if !mailer.Enabled() {
		logr.Warn("SMTP_HOST not set, email notifications will be marked failed")
	}
	dispatcher := service.NewNotificationDispatcher(notificationRepo, mailer, metricsSvc, service.DispatcherConfig{
		Workers:       cfg.Notifications.Workers,
		MaxAttempts:   cfg.Notifications.MaxAttempts,
		RetryDelay:    cfg.Notifications.RetryDelay,
		SweepInterval: cfg.Notifications.SweepInterval,
		QueueSize:     cfg.Notifications.QueueSize,
	}, logr)

	notificationSvc := service.NewNotificationService(notificationRepo, userRepo, studentRepo, facultyRepo, dispatcher, validate, logr)
	authSvc := service.NewAuthService(userRepo, studentRepo, facultyRepo, notificationSvc, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	accountSvc := service.NewAccountService(userRepo, studentRepo, facultyRepo, notificationSvc, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, cacheSvc, validate, logr)
	paymentSvc := service.NewPaymentService(
		paymentRepo,
		courseRepo,
		studentRepo,
		gateway.NewRazorpayClient(cfg.Payments.KeyID, cfg.Payments.KeySecret),
		gateway.NewSignatureVerifier(cfg.Payments.KeySecret),
		notificationSvc,
		export.NewPDFExporter(),
		metricsSvc,
		cfg.Payments.Currency,
		validate,
		logr,
	)
	resultSvc := service.NewResultService(resultRepo, studentRepo, courseRepo, export.NewCSVExporter(), export.NewXLSXExporter(), metricsSvc, validate, logr)
	admissionSvc := service.NewAdmissionService(admissionRepo, paymentRepo, courseRepo, studentRepo, documents, notificationSvc, validate, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	accountHandler := handler.NewAccountHandler(accountSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc)
	resultHandler := handler.NewResultHandler(resultSvc, cfg.Results.MaxUploadBytes)
	admissionHandler := handler.NewAdmissionHandler(admissionSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db, cachePing)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	if cfg.Metrics.Enabled {
		r.Use(middleware.Metrics(metricsSvc, "/metrics"))
		r.GET("/metrics", metricsHandler.Prometheus)
	}

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if strings.HasPrefix(cfg.Uploads.BaseURL, "/") {
		r.Static(cfg.Uploads.BaseURL, documents.Dir())
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/register", authHandler.Register)
	auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

	public := api.Group("/public")
	public.GET("/courses", courseHandler.List)
	public.GET("/courses/:id", courseHandler.Get)
	public.GET("/departments", courseHandler.ListDepartments)
	public.GET("/categories", courseHandler.ListCategories)

	student := api.Group("/student", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleStudent))
	student.GET("/profile", accountHandler.Profile)
	student.PUT("/profile", accountHandler.UpdateProfile)
	student.POST("/payments/intent", paymentHandler.CreateIntent)
	student.POST("/payments/verify", paymentHandler.Verify)
	student.GET("/payments/history", paymentHandler.History)
	student.GET("/payments/:id/receipt", paymentHandler.Receipt)
	student.GET("/courses", paymentHandler.StudentCourses)
	student.GET("/registered-courses", paymentHandler.RegisteredCourses)
	student.POST("/admissions", admissionHandler.Apply)
	student.GET("/admissions", admissionHandler.Mine)
	student.POST("/admissions/documents", admissionHandler.UploadDocument)
	student.GET("/results", resultHandler.Mine)
	student.GET("/notifications", notificationHandler.Mine)
	student.PUT("/notifications/:id", notificationHandler.MarkRead)

	faculty := api.Group("/faculty", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleFaculty))
	faculty.GET("/notifications", notificationHandler.Mine)
	faculty.PUT("/notifications/:id", notificationHandler.MarkRead)

	admin := api.Group("/admin", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/students", accountHandler.ListStudents)
	admin.GET("/students/:id", accountHandler.GetStudent)
	admin.PUT("/students/:id", accountHandler.UpdateStudent)
	admin.GET("/faculty", accountHandler.ListFaculty)
	admin.POST("/faculty", accountHandler.CreateFaculty)
	admin.PUT("/faculty/:id", accountHandler.UpdateFaculty)
	admin.POST("/courses", courseHandler.Create)
	admin.PUT("/courses/:id", courseHandler.Update)
	admin.POST("/departments", courseHandler.CreateDepartment)
	admin.POST("/categories", courseHandler.CreateCategory)
	admin.GET("/payments", paymentHandler.List)
	admin.POST("/payments/:orderId/fail", paymentHandler.MarkFailed)
	admin.POST("/results/upload", resultHandler.Upload)
	admin.POST("/results", resultHandler.Upsert)
	admin.GET("/results", resultHandler.List)
	admin.GET("/results/template", resultHandler.Template)
	admin.GET("/results/export", resultHandler.Export)
	admin.PUT("/results/:id", resultHandler.Update)
	admin.DELETE("/results/:id", resultHandler.Delete)
	admin.GET("/admissions", admissionHandler.List)
	admin.PUT("/admissions/:id", admissionHandler.UpdateStatus)
	admin.POST("/notifications", notificationHandler.Send)
	admin.POST("/notifications/broadcast", notificationHandler.Broadcast)
	admin.GET("/notifications", notificationHandler.List)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dispatcher.Start(ctx)
	defer dispatcher.Stop()

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
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
