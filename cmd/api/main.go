package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"habittracker/internal/handler"
	"habittracker/internal/httpserver"
	"habittracker/internal/repository"
	"habittracker/internal/service"
	"habittracker/pkg/db"
	"habittracker/pkg/logger"
	"habittracker/pkg/mq"
	"habittracker/pkg/otel"
	"habittracker/pkg/redis"
	"habittracker/pkg/util"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := logger.NewLogger(cfg.LogLevel)
	defer log.Sync()

	log.Info("Starting habittracker...",
		zap.String("env", configEnv),
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.Bool("redis_enabled", cfg.Redis.Addr != ""),
		zap.Bool("mq_enabled", cfg.MQ.URL != ""),
	)

	shutdownTracing, err := otel.Init(otel.Config{
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: version,
		Endpoint:       cfg.OTel.Endpoint,
		Enabled:        cfg.OTel.Enabled,
		SampleRatio:    cfg.OTel.SampleRatio,
	}, log)
	if err != nil {
		log.Error("Failed to init OpenTelemetry, continuing without tracing", zap.Error(err))
		shutdownTracing = func() {}
	}
	defer shutdownTracing()

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	userRepo := repository.NewUserRepository(dbConn)
	habitRepo := repository.NewHabitRepository(dbConn, log)
	logRepo := repository.NewHabitLogRepository(dbConn, log)

	// Redis（可选）：登录失败限流
	rdb, err := redis.NewRedisClient(cfg.Redis)
	if err != nil {
		return err
	}
	var attempts service.AttemptCounter
	if rdb != nil {
		defer rdb.Close()
		attempts = util.NewAttemptCounter(rdb, "login_failures", cfg.Login.Window)
		log.Info("Login throttling enabled",
			zap.Int("max_failures", cfg.Login.MaxFailures),
			zap.Duration("window", cfg.Login.Window),
		)
	}

	// MQ（可选）：领域事件
	var publisher mq.EventPublisher = mq.NopPublisher{}
	var mqConn httpserver.ConnChecker
	if cfg.MQ.URL != "" {
		p, err := mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			return err
		}
		defer p.Close()
		publisher, mqConn = p, p
		log.Info("Event publisher connected", zap.String("exchange", mq.ExchangeName))
	}

	authService := service.NewAuthService(userRepo, attempts, service.AuthConfig{
		JWTSecret:   cfg.JWT.Secret,
		TokenTTL:    cfg.JWT.TTL(),
		MaxFailures: cfg.Login.MaxFailures,
	}, log)
	habitService := service.NewHabitService(habitRepo, logRepo, publisher, log)
	reportService := service.NewReportService(habitRepo, logRepo, log)

	router := httpserver.NewRouter(httpserver.Handlers{
		Auth:   handler.NewAuthHandler(authService, log),
		Habit:  handler.NewHabitHandler(habitService, log),
		Export: handler.NewExportHandler(reportService, log),
	}, httpserver.Options{
		JWTSecret:   cfg.JWT.Secret,
		CORSOrigins: cfg.Server.CORSOrigins,
		Logger:      log,
		DB:          dbConn,
		Redis:       rdb,
		Publisher:   mqConn,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// 优雅退出处理
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("Shutting down habittracker gracefully...", zap.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("HTTP server failed", zap.Error(err))
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
		return err
	}

	log.Info("habittracker shutdown complete")
	return nil
}
