package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/spf13/pflag"

	"tablebook/config"
	"tablebook/database"
	"tablebook/events"
	"tablebook/route"
	"tablebook/utils"
)

const shutdownTimeout = 30 * time.Second

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "configs/tablebook.yaml", "Config file path")
	pflag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      cfg.LogLevel(),
		TimeFormat: time.DateTime,
	}))
	slog.SetDefault(logger)

	if cfg.Release() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		logger.Info("running in debug mode")
	}

	db, err := database.Open(cfg.Database.DSN, !cfg.Release())
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("failed to get database handle", slog.Any("error", err))
		os.Exit(1)
	}
	defer sqlDB.Close()

	seed := database.AdminSeed{Name: cfg.Admin.Name, Email: cfg.Admin.Email, Password: cfg.Admin.Password}
	if err := database.SeedAdmin(context.Background(), db, seed, logger); err != nil {
		logger.Error("failed to seed admin", slog.Any("error", err))
		os.Exit(1)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if brokers := cfg.KafkaBrokers(); len(brokers) > 0 {
		kp := events.NewKafkaPublisher(brokers, cfg.Kafka.Topic, logger)
		defer kp.Close()
		publisher = kp
		logger.Info("publishing reservation events", slog.Any("brokers", brokers), slog.String("topic", cfg.Kafka.Topic))
	}

	router := route.NewRouter(route.Options{
		DB:             db,
		Tokens:         utils.NewTokenManager(cfg.JWT.Secret, cfg.AccessTTL(), cfg.RefreshTTL()),
		Publisher:      publisher,
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins(),
		RequestTimeout: cfg.RequestTimeout(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting server", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
	}
	logger.Info("server exited")
}
