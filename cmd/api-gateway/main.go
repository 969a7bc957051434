package main

import (
	"context"
	"errors"
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
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-appointment-api/api/swagger"
	"github.com/noah-isme/sma-appointment-api/internal/handler"
	"github.com/noah-isme/sma-appointment-api/internal/middleware"
	"github.com/noah-isme/sma-appointment-api/internal/repository"
	"github.com/noah-isme/sma-appointment-api/internal/service"
	"github.com/noah-isme/sma-appointment-api/pkg/cache"
	"github.com/noah-isme/sma-appointment-api/pkg/config"
	"github.com/noah-isme/sma-appointment-api/pkg/database"
	"github.com/noah-isme/sma-appointment-api/pkg/jobs"
	"github.com/noah-isme/sma-appointment-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-appointment-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-appointment-api/pkg/middleware/requestid"
)

// @title SMA Appointment API
// @version 1.0.0
// @description Appointment booking, approval and scoped queries for students, teachers and admins
// @BasePath /api
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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	catalog, err := service.LoadDepartmentCatalog(ctx, repository.NewDepartmentRepository(db), logr)
	if err != nil {
		return err
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, query cache disabled", zap.Error(err))
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient)
	defer cacheRepo.Close() //nolint:errcheck

	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled && cacheRepo.Enabled())

	directory := service.NewDirectoryService(repository.NewUserRepository(db), logr)
	store := service.NewAppointmentStore(repository.NewAppointmentRepository(db), directory, metrics, logr)
	audit := service.NewAuditService(repository.NewAuditRepository(db), jobs.QueueConfig{
		Workers:    cfg.Audit.Workers,
		BufferSize: cfg.Audit.BufferSize,
		MaxRetries: cfg.Audit.MaxRetries,
		RetryDelay: cfg.Audit.RetryDelay,
		Logger:     logr,
	}, metrics, logr)
	validate := validator.New()
	booking := service.NewBookingService(store, directory, validate, audit, cacheSvc, metrics, logr, service.BookingConfig{
		WindowMonths:  cfg.Booking.WindowMonths,
		Location:      cfg.Booking.Location(),
		MaxMessageLen: cfg.Booking.MaxMessageLen,
	})
	approval := service.NewApprovalService(store, validate, audit, cacheSvc, logr)
	query := service.NewQueryService(store, directory, cacheSvc, validate, logr)
	exporter := service.NewExportService(query, service.ExportConfig{Enabled: cfg.Exports.Enabled, MaxRows: cfg.Exports.MaxRows}, validate, logr)
	auth := service.NewAuthService(service.AuthConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer, Audience: cfg.JWT.Audience})

	// Workers outlive the signal context so Shutdown can drain buffered entries.
	audit.Start(context.Background())

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	deps := map[string]handler.Pinger{"postgres": db}
	if cacheRepo.Enabled() {
		deps["redis"] = handler.PingFunc(cacheRepo.Ping)
	}
	handler.RegisterOps(r, handler.NewMetricsHandler(metrics, deps))
	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Handlers{
		Appointments: handler.NewAppointmentHandler(booking, approval, query, audit),
		Queries:      handler.NewQueryHandler(query, exporter),
		Users:        handler.NewUserHandler(directory),
		Departments:  handler.NewDepartmentHandler(catalog, directory),
	}, middleware.JWT(auth))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logr.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http server shutdown", zap.Error(err))
	}
	if err := audit.Shutdown(shutdownCtx); err != nil {
		logr.Warn("audit queue drain incomplete", zap.Error(err))
	}
	logr.Info("server stopped")
	return nil
}

