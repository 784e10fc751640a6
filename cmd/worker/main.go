package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"resumeStudio/internal/capture"
	"resumeStudio/internal/config"
	"resumeStudio/internal/database"
	"resumeStudio/internal/metrics"
	"resumeStudio/internal/pdf"
	"resumeStudio/internal/render"
	"resumeStudio/internal/storage"
	"resumeStudio/internal/store"
	"resumeStudio/internal/tasks"
	"resumeStudio/internal/worker"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	log.Println("database connection ready for worker")

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	log.Printf("storage client ready, bucket=%s", cfg.MinIO.Bucket)

	redisAddr := cfg.Redis.Addr()
	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	engine, err := pdf.NewEngine(cfg.Export)
	if err != nil {
		log.Fatalf("init export engine: %v", err)
	}

	resumes := store.NewGormStore(db)
	renderer := render.MustNew(render.NewRegistry())
	printer := pdf.NewPrinter(engine, pdf.OptionsFromConfig(cfg.Export), logger)
	exporter := pdf.NewService(resumes, renderer, printer, storageClient, logger)
	thumbnails := capture.NewService(engine, cfg.Export.CaptureQuality, cfg.Export.LoadTimeout, cfg.Export.BrowserTimeout, logger)

	// 每个任务独占一个浏览器实例，并发数即浏览器进程上限。
	server := asynq.NewServer(asynq.RedisClientOpt{Addr: redisAddr}, asynq.Config{
		Concurrency: 4,
	})

	exportHandler := worker.NewExportHandler(resumes, exporter, thumbnails, storageClient, redisClient, logger)

	mux := asynq.NewServeMux()
	mux.Use(metrics.AsynqMetricsMiddleware())
	mux.Handle(tasks.TypeExportPDF, exportHandler)

	logger.Info("worker service started",
		slog.String("redis_addr", redisAddr),
		slog.String("export_engine", engine.Name()),
	)
	if err := server.Run(mux); err != nil {
		logger.Error("worker server stopped", slog.Any("error", err))
	}
}
