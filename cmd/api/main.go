package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"resumeStudio/internal/api"
	"resumeStudio/internal/capture"
	"resumeStudio/internal/config"
	"resumeStudio/internal/database"
	"resumeStudio/internal/pdf"
	"resumeStudio/internal/render"
	"resumeStudio/internal/storage"
	"resumeStudio/internal/store"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	logger.Info("api bootstrapping",
		slog.String("db_host", cfg.Database.Host),
		slog.Int("db_port", cfg.Database.Port),
		slog.String("db_name", cfg.Database.Name),
		slog.String("export_engine", cfg.Export.Engine),
	)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}
	logger.Info("database migrated")

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
	defer asynqClient.Close()

	engine, err := pdf.NewEngine(cfg.Export)
	if err != nil {
		log.Fatalf("init export engine: %v", err)
	}

	resumes := store.NewGormStore(db)
	renderer := render.MustNew(render.NewRegistry())
	printer := pdf.NewPrinter(engine, pdf.OptionsFromConfig(cfg.Export), logger)

	deps := api.Deps{
		Store:       resumes,
		Renderer:    renderer,
		Exporter:    pdf.NewService(resumes, renderer, printer, storageClient, logger),
		Capture:     capture.NewService(engine, cfg.Export.CaptureQuality, cfg.Export.LoadTimeout, cfg.Export.BrowserTimeout, logger),
		Images:      storageClient,
		Scanner:     api.NewClamdScanner(cfg.Clamd.Addr),
		Queue:       asynqClient,
		RateCounter: redisClient,
		Subscriber:  redisClient,
		Logger:      logger,
		Config:      cfg.API,
	}

	router := api.NewRouter(cfg.API, logger)
	api.RegisterRoutes(router, deps)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("api listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start api server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("api shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown failed", slog.Any("error", err))
	}
}
