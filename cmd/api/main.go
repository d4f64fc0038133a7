package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"todo_api/internal/cache"
	"todo_api/internal/config"
	"todo_api/internal/db"
	"todo_api/internal/handler"
	"todo_api/internal/observability"
	"todo_api/internal/queue"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	config := config.Load()
	if level, err := logrus.ParseLevel(config.LogLevel); err == nil {
		logrus.SetLevel(level)
	}
	if config.JWT.Secret == "" {
		logrus.Fatal("JWT_SECRET must be set")
	}
	if config.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	database := db.Init(&config.DB)
	defer func() {
		if err := database.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close database connection")
		}
	}()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Migrate(migrateCtx, database); err != nil {
		logrus.WithError(err).Fatal("Failed to migrate database")
	}
	cancelMigrate()

	rdb := cache.SetupRedis(&config.Redis)
	defer func() {
		if err := rdb.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close redis connection")
		}
	}()

	conn := queue.SetupRabbitMQ(&config.RabbitMQ, config.AppName+"-api")
	defer func() {
		if err := conn.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close RabbitMQ connection")
		}
	}()

	if err := queue.EnsureQueue(conn, config.RabbitMQ.EventQueue); err != nil {
		logrus.WithError(err).Fatal("Failed to declare RabbitMQ queue")
	}

	// Initialize Prometheus metrics
	observability.InitMetrics()
	logrus.Info("Metrics initialized")

	statsCtx, stopStats := context.WithCancel(context.Background())
	defer stopStats()
	go observability.GlobalMetrics.CollectDBStats(statsCtx, database, 15*time.Second)

	r := handler.SetupHandler(database, conn, rdb, config, observability.GlobalMetrics)

	// Expose /metrics endpoint for Prometheus to scrape
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	logrus.Info("Metrics endpoint exposed at /metrics")

	srv := &http.Server{
		Addr:    ":" + config.AppPort,
		Handler: r,
	}

	go func() {
		logrus.Infof("Starting server on :%s", config.AppPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	}
	logrus.Info("Server exited")
}
