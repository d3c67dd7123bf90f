package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/fitzone/booking-api/api/swagger"
	"github.com/fitzone/booking-api/internal/gateway"
	"github.com/fitzone/booking-api/internal/handler"
	internalmiddleware "github.com/fitzone/booking-api/internal/middleware"
	"github.com/fitzone/booking-api/internal/models"
	"github.com/fitzone/booking-api/internal/repository"
	"github.com/fitzone/booking-api/internal/service"
	"github.com/fitzone/booking-api/pkg/cache"
	"github.com/fitzone/booking-api/pkg/config"
	"github.com/fitzone/booking-api/pkg/database"
	"github.com/fitzone/booking-api/pkg/logger"
	corsmiddleware "github.com/fitzone/booking-api/pkg/middleware/cors"
	reqidmiddleware "github.com/fitzone/booking-api/pkg/middleware/requestid"
)

// @title FitZone Booking API
// @version 1.0.0
// @description Fitness studio class booking and registration service
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

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	classRepo := repository.NewClassRepository(db)
	memberRepo := repository.NewClassMemberRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	reservationRepo := repository.NewReservationRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsService := service.NewMetricsService()
	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Booking.ClassCacheTTL, logr, redisClient != nil)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "fitzone-booking-api",
	})

	gatewayClient := gateway.NewZaloPayClient(cfg.Payment, logr)
	paymentService := service.NewPaymentService(paymentRepo, gatewayClient, membershipRepo, cfg.Membership.MonthlyFee, validate, logr)
	membershipService := service.NewMembershipService(membershipRepo, logr)
	conflictService := service.NewConflictService(scheduleRepo, memberRepo, logr)
	classService := service.NewClassService(classRepo, scheduleRepo, memberRepo, cacheService, cfg.Booking.ClassCacheTTL, validate, logr)
	scheduleService := service.NewScheduleService(scheduleRepo, classRepo, conflictService, validate, logr)
	registrationService := service.NewRegistrationService(
		classRepo, reservationRepo, memberRepo, membershipRepo,
		conflictService, paymentService, metricsService,
		cfg.Booking.HoldTTL, validate, logr)
	analyticsService := service.NewAnalyticsService(analyticsRepo, reservationRepo, metricsService, cacheService,
		cfg.Analytics.CacheTTL, cfg.Analytics.Enabled, logr)
	exportService := service.NewExportService(classRepo, memberRepo, paymentService, cfg.Exports.Enabled, logr)

	sweeper := service.NewReservationSweeper(reservationRepo, classRepo, metricsService,
		cfg.Booking.SweepInterval, cfg.Booking.SweepWorkers, logr)

	authHandler := handler.NewAuthHandler(authService)
	classHandler := handler.NewClassHandler(classService, exportService)
	scheduleHandler := handler.NewScheduleHandler(scheduleService, conflictService)
	registrationHandler := handler.NewRegistrationHandler(registrationService)
	paymentHandler := handler.NewPaymentHandler(paymentService, membershipService, registrationService, exportService)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
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

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	authSecured := api.Group("/auth", internalmiddleware.JWT(authService))
	authSecured.POST("/logout", authHandler.Logout)
	authSecured.PUT("/password", authHandler.ChangePassword)
	authSecured.GET("/me", authHandler.Me)

	classes := api.Group("/classes")
	classes.GET("", classHandler.List)
	classes.GET("/info/:classId", classHandler.Info)

	classAdmin := api.Group("/classes", internalmiddleware.JWT(authService),
		internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleTrainer))
	classAdmin.POST("", classHandler.Create)
	classAdmin.PUT("/:classId", classHandler.Update)
	classAdmin.GET("/:classId/attendees", classHandler.Attendees)
	classAdmin.GET("/:classId/attendees/export", classHandler.ExportAttendees)

	registration := api.Group("/classes", internalmiddleware.JWT(authService))
	registration.POST("/:classId/queue-registration", registrationHandler.Queue)
	registration.DELETE("/:classId/queue-registration", registrationHandler.Cancel)
	registration.POST("/:classId/complete-registration", registrationHandler.Complete)
	registration.GET("/:classId/eligibility", registrationHandler.Eligibility)

	schedule := api.Group("/schedule")
	schedule.GET("/class/:classId", scheduleHandler.GetClassSchedule)
	schedule.POST("/check-schedule-conflict", scheduleHandler.CheckUserConflict)
	schedule.POST("/check-class-schedule-conflict", scheduleHandler.CheckClassConflict)

	scheduleAdmin := api.Group("/schedule", internalmiddleware.JWT(authService),
		internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleTrainer))
	scheduleAdmin.PUT("/class/:classId", scheduleHandler.Replace)

	api.GET("/user-class/status", classHandler.JoinStatus)

	payment := api.Group("/payment", internalmiddleware.JWT(authService))
	payment.GET("/membership-status", paymentHandler.MembershipStatus)
	payment.POST("/create-membership-payment", paymentHandler.CreateMembershipPayment)
	payment.GET("/check-status/:orderId", paymentHandler.CheckPaymentStatus)
	payment.GET("/history", paymentHandler.History)

	paymentClass := api.Group("/payment-class", internalmiddleware.JWT(authService))
	paymentClass.POST("/create-class-payment", paymentHandler.CreateClassPayment)
	paymentClass.GET("/check-status/:orderId", paymentHandler.CheckClassPaymentStatus)
	paymentClass.GET("/receipt/:orderId", paymentHandler.Receipt)

	analytics := api.Group("/analytics", internalmiddleware.JWT(authService),
		internalmiddleware.RequireRoles(models.RoleAdmin))
	analytics.GET("/revenue", analyticsHandler.Revenue)
	analytics.GET("/system", analyticsHandler.SystemMetrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeper.Start(ctx)
	defer sweeper.Stop()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	if err := cacheRepo.Close(); err != nil {
		logr.Sugar().Warnw("failed to close redis", "error", err)
	}
}
