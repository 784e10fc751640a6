package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"resumeStudio/internal/api/middleware"
	"resumeStudio/internal/pdf"
	"resumeStudio/internal/resume"
	"resumeStudio/internal/store"
	"resumeStudio/internal/tasks"
)

const downloadLinkTTL = 5 * time.Minute

// Exporter 是 *pdf.Service 在接口层用到的部分。
type Exporter interface {
	Export(ctx context.Context, id uint) (*pdf.Result, error)
	RenderRecord(ctx context.Context, rec *resume.Record) ([]byte, error)
	HealthCheck(ctx context.Context) (*pdf.Health, error)
}

// Enqueuer 是 *asynq.Client 的入队能力。
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ExportHandler 负责同步导出、异步导出任务与下载链接。
type ExportHandler struct {
	store    store.ResumeStore
	exporter Exporter
	queue    Enqueuer
	objects  ImageStore
}

// NewExportHandler 构造 ExportHandler；queue 或 objects 为 nil 时对应接口返回 503。
func NewExportHandler(st store.ResumeStore, exporter Exporter, queue Enqueuer, objects ImageStore) *ExportHandler {
	return &ExportHandler{store: st, exporter: exporter, queue: queue, objects: objects}
}

// DownloadPDF 同步导出并直接返回 PDF。
func (h *ExportHandler) DownloadPDF(c *gin.Context) {
	id, err := parseResumeID(c.Param("id"))
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	result, err := h.exporter.Export(c.Request.Context(), id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			middleware.LoggerFromContext(c).Error("export resume failed",
				slog.Uint64("resume_id", uint64(id)),
				slog.String("kind", pdf.FailureKind(err)),
				slog.Any("error", err),
			)
		}
		ExportError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/pdf", result.Data)
}

// EnqueueExport 把导出任务入队并立即返回 202，结果通过编辑会话推送。
func (h *ExportHandler) EnqueueExport(c *gin.Context) {
	if h.queue == nil {
		Error(c, http.StatusServiceUnavailable, "export queue is not configured")
		return
	}
	rec, ok := h.load(c)
	if !ok {
		return
	}

	correlationID := middleware.GetCorrelationID(c)
	task, err := tasks.NewExportTask(rec.ID, correlationID)
	if err != nil {
		Internal(c, "failed to create task")
		return
	}

	info, err := h.queue.Enqueue(task, asynq.MaxRetry(3), asynq.Timeout(3*time.Minute))
	if err != nil {
		middleware.LoggerFromContext(c).Error("enqueue export failed", slog.Any("error", err))
		Internal(c, "failed to enqueue export")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message":        "export request accepted",
		"task_id":        info.ID,
		"correlation_id": correlationID,
	})
}

// GetDownloadLink 返回最近一次异步导出的预签名下载链接。
func (h *ExportHandler) GetDownloadLink(c *gin.Context) {
	if h.objects == nil {
		Error(c, http.StatusServiceUnavailable, "object storage is not configured")
		return
	}
	rec, ok := h.load(c)
	if !ok {
		return
	}
	if rec.PDFKey == "" {
		Conflict(c, "pdf not ready")
		return
	}

	url, err := h.objects.PresignedURL(c.Request.Context(), rec.PDFKey, downloadLinkTTL, pdf.Filename(rec.Document.Data.Personal.Name))
	if err != nil {
		middleware.LoggerFromContext(c).Error("generate download link failed", slog.Any("error", err))
		Internal(c, "failed to generate download link")
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url, "expires_in": int(downloadLinkTTL.Seconds())})
}

// PreviewResume 返回已保存简历的渲染结果。
func (h *ExportHandler) PreviewResume(c *gin.Context) {
	rec, ok := h.load(c)
	if !ok {
		return
	}
	html, err := h.exporter.RenderRecord(c.Request.Context(), rec)
	if err != nil {
		middleware.LoggerFromContext(c).Error("render resume failed", slog.Any("error", err))
		Internal(c, "failed to render resume")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

// PDFHealth 打印一个最小文档，确认浏览器与打印链路可用。
func (h *ExportHandler) PDFHealth(c *gin.Context) {
	health, err := h.exporter.HealthCheck(c.Request.Context())
	if err != nil {
		code := pdf.ErrorCode(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"error":  err.Error(),
			"code":   code,
		})
		return
	}
	status := "ok"
	if health.Pages < 1 || !health.TextOK {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "check": health})
}

func (h *ExportHandler) load(c *gin.Context) (*resume.Record, bool) {
	id, err := parseResumeID(c.Param("id"))
	if err != nil {
		BadRequest(c, err.Error())
		return nil, false
	}
	rec, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFound(c, "resume not found")
			return nil, false
		}
		Internal(c, "failed to query resume")
		return nil, false
	}
	return rec, true
}
