package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	"resumeStudio/internal/errcode"
	"resumeStudio/internal/pdf"
	"resumeStudio/internal/resume"
	"resumeStudio/internal/storage"
	"resumeStudio/internal/store"
	"resumeStudio/internal/tasks"
)

// Exporter 是 pdf.Service 在任务中用到的部分。
type Exporter interface {
	ExportRecord(ctx context.Context, rec *resume.Record) (*pdf.Result, error)
	RenderRecord(ctx context.Context, rec *resume.Record) ([]byte, error)
}

// Thumbnailer 生成预览缩略图。
type Thumbnailer interface {
	Thumbnail(ctx context.Context, markup string) ([]byte, error)
}

// ObjectStore 保存导出产物。
type ObjectStore interface {
	Upload(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, objectKey string) error
}

// ExportHandler 负责消费导出任务。
type ExportHandler struct {
	store      store.ResumeStore
	exporter   Exporter
	thumbnails Thumbnailer
	objects    ObjectStore
	publisher  Publisher
	logger     *slog.Logger
}

// NewExportHandler 创建任务处理器；thumbnails 为 nil 时不生成缩略图。
func NewExportHandler(
	st store.ResumeStore,
	exporter Exporter,
	thumbnails Thumbnailer,
	objects ObjectStore,
	publisher Publisher,
	logger *slog.Logger,
) *ExportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportHandler{
		store:      st,
		exporter:   exporter,
		thumbnails: thumbnails,
		objects:    objects,
		publisher:  publisher,
		logger:     logger,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *ExportHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.ExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return fmt.Errorf("decode export payload: %v: %w", err, asynq.SkipRetry)
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Uint64("resume_id", uint64(payload.ResumeID)),
	)
	log.Info("starting export task")

	rec, err := h.store.Get(ctx, payload.ResumeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("resume not found, skipping task")
			return nil
		}
		log.Error("load resume failed", slog.Any("error", err))
		return err
	}

	// cause 保存未包装 SkipRetry 的原始错误，用于通知文案。
	var cause error
	defer func() {
		if retErr == nil {
			return
		}
		if !errors.Is(retErr, asynq.SkipRetry) && !isFinalAsynqAttempt(ctx) {
			return
		}
		if cause == nil {
			cause = retErr
		}
		code := pdf.ErrorCode(cause)
		notify := ExportNotifyMessage{
			Status:        StatusError,
			ResumeID:      rec.ID,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     code,
			ErrorMessage:  strings.TrimSpace(cause.Error()),
			Retryable:     errcode.Retryable(code),
		}
		if err := publishNotify(ctx, h.publisher, notify); err != nil {
			log.Error("publish export error notification failed", slog.Any("error", err))
		}
	}()

	result, err := h.exporter.ExportRecord(ctx, rec)
	if err != nil {
		cause = err
		if !errcode.Retryable(pdf.ErrorCode(err)) {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}

	pdfKey := storage.ExportKey(rec.ID)
	if err := h.objects.Upload(ctx, pdfKey, bytes.NewReader(result.Data), int64(len(result.Data)), "application/pdf"); err != nil {
		log.Error("upload pdf to minio failed", slog.Any("error", err))
		return fmt.Errorf("upload export: %w", err)
	}

	previewKey, err := h.uploadPreview(ctx, rec)
	if err != nil {
		log.Warn("generate resume preview failed", slog.Any("error", err))
	}

	// 重新读取记录，避免覆盖导出期间的编辑。
	latest, err := h.store.Get(ctx, rec.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("resume deleted during export, discarding output")
			h.deleteObject(ctx, log, pdfKey)
			if previewKey != "" {
				h.deleteObject(ctx, log, previewKey)
			}
			return nil
		}
		return fmt.Errorf("reload resume: %w", err)
	}

	previous := latest.PDFKey
	latest.PDFKey = pdfKey
	if previewKey != "" {
		latest.PreviewKey = previewKey
	}
	if err := h.store.Set(ctx, latest); err != nil {
		log.Error("update resume failed", slog.Any("error", err))
		return fmt.Errorf("save export key: %w", err)
	}
	if previous != "" && previous != pdfKey {
		h.deleteObject(ctx, log, previous)
	}

	notify := ExportNotifyMessage{
		Status:        StatusCompleted,
		ResumeID:      rec.ID,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
		PDFKey:        pdfKey,
		PreviewKey:    latest.PreviewKey,
	}
	if err := publishNotify(ctx, h.publisher, notify); err != nil {
		log.Error("publish redis notification failed", slog.Any("error", err))
	}

	log.Info("export task completed",
		slog.String("object_key", pdfKey),
		slog.Int("bytes", len(result.Data)),
	)
	return nil
}

func (h *ExportHandler) uploadPreview(ctx context.Context, rec *resume.Record) (string, error) {
	if h.thumbnails == nil {
		return "", nil
	}
	markup, err := h.exporter.RenderRecord(ctx, rec)
	if err != nil {
		return "", err
	}
	thumb, err := h.thumbnails.Thumbnail(ctx, string(markup))
	if err != nil {
		return "", fmt.Errorf("capture preview: %w", err)
	}
	key := storage.PreviewKey(rec.ID)
	if err := h.objects.Upload(ctx, key, bytes.NewReader(thumb), int64(len(thumb)), "image/jpeg"); err != nil {
		return "", fmt.Errorf("upload preview image: %w", err)
	}
	return key, nil
}

func (h *ExportHandler) deleteObject(ctx context.Context, log *slog.Logger, key string) {
	if err := h.objects.Delete(ctx, key); err != nil {
		log.Warn("delete stale export object failed", slog.String("object_key", key), slog.Any("error", err))
	}
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
