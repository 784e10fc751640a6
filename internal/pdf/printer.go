package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"resumeStudio/internal/config"
	"resumeStudio/internal/metrics"
)

// Options 控制打印流程中每一步的时限。
type Options struct {
	LoadTimeout    time.Duration
	ImageTimeout   time.Duration
	SettleDelay    time.Duration
	BrowserTimeout time.Duration
	Paper          Paper
}

// OptionsFromConfig 从导出配置构造打印参数，纸张固定为 A4。
func OptionsFromConfig(cfg config.ExportConfig) Options {
	return Options{
		LoadTimeout:    cfg.LoadTimeout,
		ImageTimeout:   cfg.ImageTimeout,
		SettleDelay:    cfg.SettleDelay,
		BrowserTimeout: cfg.BrowserTimeout,
		Paper:          A4,
	}
}

// Printer 把一段完整 HTML 打印为 PDF。
type Printer struct {
	engine Engine
	opts   Options
	logger *slog.Logger
}

// NewPrinter 创建 Printer。
func NewPrinter(engine Engine, opts Options, logger *slog.Logger) *Printer {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := config.DefaultExportConfig()
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = defaults.LoadTimeout
	}
	if opts.ImageTimeout <= 0 {
		opts.ImageTimeout = defaults.ImageTimeout
	}
	if opts.Paper == (Paper{}) {
		opts.Paper = A4
	}
	return &Printer{engine: engine, opts: opts, logger: logger}
}

// Engine 返回底层浏览器驱动。
func (p *Printer) Engine() Engine { return p.engine }

// Print 依次执行：获取浏览器、加载文档、等待图片、短暂稳定、打印并校验输出。
// 浏览器在所有路径上都会被释放。
func (p *Printer) Print(ctx context.Context, html string) ([]byte, error) {
	var out []byte
	err := WithPage(ctx, p.engine, p.opts.BrowserTimeout, p.logger, func(ctx context.Context, page Page) error {
		if err := p.load(ctx, page, html); err != nil {
			return err
		}
		p.waitImages(ctx, page)

		p.logger.Info("settling layout before print", slog.Duration("delay", p.opts.SettleDelay))
		if err := sleep(ctx, p.opts.SettleDelay); err != nil {
			return err
		}

		p.logger.Info("printing document", slog.String("engine", p.engine.Name()))
		data, err := page.PrintPDF(ctx, p.opts.Paper)
		if err != nil {
			return fmt.Errorf("print document: %w", err)
		}
		if err := CheckOutput(data); err != nil {
			return err
		}
		out = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Printer) load(ctx context.Context, page Page, html string) error {
	p.logger.Info("loading document", slog.Int("bytes", len(html)))

	loadCtx, cancel := context.WithTimeout(ctx, p.opts.LoadTimeout)
	defer cancel()

	if err := page.SetContent(loadCtx, html); err != nil {
		if ctx.Err() == nil && errors.Is(loadCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: document not loaded within %s", ErrRenderTimeout, p.opts.LoadTimeout)
		}
		return fmt.Errorf("load document: %w", err)
	}
	return nil
}

// waitImages 最多等待 ImageTimeout；超时只记录告警，导出继续。
func (p *Printer) waitImages(ctx context.Context, page Page) {
	imgCtx, cancel := context.WithTimeout(ctx, p.opts.ImageTimeout)
	defer cancel()

	start := time.Now()
	if err := page.WaitImages(imgCtx); err != nil {
		p.logger.Warn("image barrier incomplete, printing anyway",
			slog.Duration("waited", time.Since(start)),
			slog.Any("error", err),
		)
		return
	}
	p.logger.Info("images ready", slog.Duration("waited", time.Since(start)))
}

// CheckOutput 校验打印结果非空且以 PDF 魔数开头。
func CheckOutput(data []byte) error {
	if len(data) == 0 {
		return ErrEmptyOutput
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return ErrMalformedOutput
	}
	return nil
}

// WithPage 获取一个全新的浏览器与标签页执行 fn，返回前关闭两者。
// timeout 大于 0 时限制整次占用浏览器的时长。
func WithPage(ctx context.Context, engine Engine, timeout time.Duration, logger *slog.Logger, fn func(ctx context.Context, page Page) error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	logger.Info("acquiring browser", slog.String("engine", engine.Name()))
	browser, err := engine.Launch(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserAcquisition, err)
	}
	metrics.BrowserAcquired()
	defer func() {
		if err := browser.Close(); err != nil {
			logger.Warn("release browser failed", slog.Any("error", err))
		}
		metrics.BrowserReleased()
		logger.Info("browser released", slog.String("engine", engine.Name()))
	}()

	page, err := browser.NewPage(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserAcquisition, err)
	}
	defer func() {
		_ = page.Close()
	}()

	return fn(ctx, page)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
