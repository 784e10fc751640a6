// Package capture 把已经渲染好的预览标记截图并封装为单页 A4 PDF，不依赖打印管线。
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-pdf/fpdf"

	"resumeStudio/internal/pdf"
	"resumeStudio/internal/render"
)

// ErrEmptyCapture 表示截图为空。
var ErrEmptyCapture = errors.New("empty capture")

const (
	a4WidthMM  = 210.0
	a4HeightMM = 297.0
)

// Service 是客户端导出的服务端实现：截取预览节点并包装成 PDF。
type Service struct {
	engine      pdf.Engine
	quality     int
	loadTimeout time.Duration
	timeout     time.Duration
	logger      *slog.Logger
}

// NewService 创建截图导出服务。
func NewService(engine pdf.Engine, quality int, loadTimeout, browserTimeout time.Duration, logger *slog.Logger) *Service {
	if quality <= 0 || quality > 100 {
		quality = 90
	}
	if loadTimeout <= 0 {
		loadTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{engine: engine, quality: quality, loadTimeout: loadTimeout, timeout: browserTimeout, logger: logger}
}

// Capture 截取 #resume-preview 并返回单页 A4 PDF。
func (s *Service) Capture(ctx context.Context, markup string) ([]byte, error) {
	shot, err := s.screenshot(ctx, markup)
	if err != nil {
		return nil, err
	}
	return ImagePDF(shot)
}

// Thumbnail 返回预览节点的 JPEG 缩略图。
func (s *Service) Thumbnail(ctx context.Context, markup string) ([]byte, error) {
	shot, err := s.screenshot(ctx, markup)
	if err != nil {
		return nil, err
	}
	return ToJPEG(shot, s.quality)
}

func (s *Service) screenshot(ctx context.Context, markup string) ([]byte, error) {
	var shot []byte
	err := pdf.WithPage(ctx, s.engine, s.timeout, s.logger, func(ctx context.Context, page pdf.Page) error {
		loadCtx, cancel := context.WithTimeout(ctx, s.loadTimeout)
		defer cancel()
		if err := page.SetContent(loadCtx, markup); err != nil {
			if ctx.Err() == nil && errors.Is(loadCtx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: preview not loaded within %s", pdf.ErrRenderTimeout, s.loadTimeout)
			}
			return fmt.Errorf("load preview: %w", err)
		}

		data, err := page.Screenshot(ctx, "#"+render.PreviewElementID, s.quality)
		if err != nil {
			return fmt.Errorf("capture preview: %w", err)
		}
		shot = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(shot) == 0 {
		return nil, ErrEmptyCapture
	}
	s.logger.Info("preview captured", slog.Int("bytes", len(shot)))
	return shot, nil
}

// ImagePDF 把一张 PNG/JPEG 图片等比缩放后放入单页 A4 PDF，顶部对齐、水平居中。
func ImagePDF(img []byte) ([]byte, error) {
	if len(img) == 0 {
		return nil, ErrEmptyCapture
	}
	imageType, err := fpdfImageType(img)
	if err != nil {
		return nil, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("decode capture: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, ErrEmptyCapture
	}

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	doc.AddPage()

	opts := fpdf.ImageOptions{ImageType: imageType}
	doc.RegisterImageOptionsReader("capture", opts, bytes.NewReader(img))

	scale := min(a4WidthMM/float64(cfg.Width), a4HeightMM/float64(cfg.Height))
	w, h := float64(cfg.Width)*scale, float64(cfg.Height)*scale
	doc.ImageOptions("capture", (a4WidthMM-w)/2, 0, w, h, false, opts, 0, "")

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("write capture pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// ToJPEG 原样返回 JPEG，其他格式重新编码。
func ToJPEG(img []byte, quality int) ([]byte, error) {
	if http.DetectContentType(img) == "image/jpeg" {
		return img, nil
	}
	decoded, _, err := image.Decode(bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("decode capture: %w", err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, decoded, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

func fpdfImageType(img []byte) (string, error) {
	switch ct := http.DetectContentType(img); ct {
	case "image/jpeg":
		return "JPG", nil
	case "image/png":
		return "PNG", nil
	default:
		return "", fmt.Errorf("unsupported capture format %s", ct)
	}
}
