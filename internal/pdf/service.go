package pdf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"resumeStudio/internal/errcode"
	"resumeStudio/internal/metrics"
	"resumeStudio/internal/render"
	"resumeStudio/internal/resume"
	"resumeStudio/internal/storage"
	"resumeStudio/internal/store"
)

// ImageSource 把本服务存储的图片读成 data URI。
type ImageSource interface {
	DataURI(ctx context.Context, key string) (string, error)
}

// Result 是一次导出的结果。
type Result struct {
	Data     []byte
	Filename string
}

// Service 负责服务端导出：读取记录、渲染、内联图片、打印。
type Service struct {
	store    store.ResumeStore
	renderer *render.Renderer
	printer  *Printer
	images   ImageSource
	logger   *slog.Logger
}

// NewService 创建 Service；images 可以为 nil，此时头像按原地址引用。
func NewService(st store.ResumeStore, renderer *render.Renderer, printer *Printer, images ImageSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, renderer: renderer, printer: printer, images: images, logger: logger}
}

// Export 导出指定简历。记录不存在时直接返回 store.ErrNotFound，不会启动浏览器。
func (s *Service) Export(ctx context.Context, id uint) (*Result, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load resume %d: %w", id, err)
	}
	return s.ExportRecord(ctx, rec)
}

// ExportRecord 导出一条已加载的记录。
func (s *Service) ExportRecord(ctx context.Context, rec *resume.Record) (*Result, error) {
	logger := s.logger.With(slog.Uint64("resume_id", uint64(rec.ID)))
	start := time.Now()

	html, err := s.renderRecord(ctx, logger, rec)
	if err != nil {
		return nil, err
	}

	data, err := s.printer.Print(ctx, string(html))
	engine := s.printer.Engine().Name()
	if err != nil {
		kind := FailureKind(err)
		metrics.ObserveExport(engine, "error", time.Since(start))
		metrics.ExportFailed(kind)
		logger.Error("export failed", slog.String("kind", kind), slog.Any("error", err))
		return nil, err
	}

	metrics.ObserveExport(engine, "ok", time.Since(start))
	logger.Info("export finished",
		slog.Int("bytes", len(data)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return &Result{Data: data, Filename: Filename(rec.Document.Data.Personal.Name)}, nil
}

// RenderRecord 渲染记录对应的自包含 HTML，头像按导出规则内联。
func (s *Service) RenderRecord(ctx context.Context, rec *resume.Record) ([]byte, error) {
	return s.renderRecord(ctx, s.logger.With(slog.Uint64("resume_id", uint64(rec.ID))), rec)
}

func (s *Service) renderRecord(ctx context.Context, logger *slog.Logger, rec *resume.Record) ([]byte, error) {
	html, err := s.renderer.Render(rec.Document, render.Options{ImageURL: s.imageFor(ctx, logger, rec)})
	if err != nil {
		return nil, fmt.Errorf("render resume %d: %w", rec.ID, err)
	}
	return html, nil
}

// imageFor 优先内联自有存储中的头像；对象已不存在时去掉头像，其他错误退回原地址。
func (s *Service) imageFor(ctx context.Context, logger *slog.Logger, rec *resume.Record) string {
	if s.images == nil || !storage.IsValidImageKey(rec.ImageKey) {
		return rec.ImageURL
	}
	uri, err := s.images.DataURI(ctx, rec.ImageKey)
	if err == nil {
		return uri
	}
	if storage.IsNoSuchKey(err) {
		logger.Warn("resume image missing, exporting without it", slog.String("object_key", rec.ImageKey))
		return ""
	}
	logger.Warn("inline resume image failed, keeping url",
		slog.String("object_key", rec.ImageKey),
		slog.Any("error", err),
	)
	return rec.ImageURL
}

// HealthCheck 打印一个最小文档并确认产物可解析。
func (s *Service) HealthCheck(ctx context.Context) (*Health, error) {
	return CheckPrinter(ctx, s.printer)
}

// FailureKind 把导出错误归类，用于指标与日志。
func FailureKind(err error) string {
	switch {
	case errors.Is(err, ErrRenderTimeout):
		return "timeout"
	case errors.Is(err, ErrEmptyOutput):
		return "empty"
	case errors.Is(err, ErrMalformedOutput):
		return "malformed"
	case errors.Is(err, ErrBrowserAcquisition):
		return "browser"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}

// ErrorCode 把导出错误映射为对外错误码。
func ErrorCode(err error) int {
	switch {
	case err == nil:
		return errcode.OK
	case errors.Is(err, store.ErrNotFound):
		return errcode.NotFound
	case errors.Is(err, ErrRenderTimeout):
		return errcode.RenderTimeout
	case errors.Is(err, ErrEmptyOutput), errors.Is(err, ErrMalformedOutput):
		return errcode.EmptyOutput
	case errors.Is(err, ErrBrowserAcquisition):
		return errcode.BrowserUnavailable
	default:
		return errcode.SystemError
	}
}
