// Package pdf 在无头浏览器中把渲染好的简历 HTML 打印为 PDF。
package pdf

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"resumeStudio/internal/config"
)

var (
	// ErrRenderTimeout 表示文档在加载超时内没有完成加载。
	ErrRenderTimeout = errors.New("render timed out")
	// ErrEmptyOutput 表示浏览器返回了 0 字节的 PDF，可重试。
	ErrEmptyOutput = errors.New("empty pdf output")
	// ErrMalformedOutput 表示输出不以 %PDF 开头。
	ErrMalformedOutput = errors.New("malformed pdf output")
	// ErrBrowserAcquisition 表示无法启动或连接浏览器。
	ErrBrowserAcquisition = errors.New("browser unavailable")
)

// Engine 启动一个独立的浏览器实例。每次导出都获取新的实例，不做池化。
type Engine interface {
	Name() string
	Launch(ctx context.Context) (Browser, error)
}

// Browser 是已启动的浏览器，Close 必须释放进程与临时目录。
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page 是单个标签页上的操作集合，ctx 控制每一步的超时。
type Page interface {
	// SetContent 写入完整 HTML 并等待 load 事件。
	SetContent(ctx context.Context, html string) error
	// WaitImages 等待页面内全部 <img> 加载完成或失败。
	WaitImages(ctx context.Context) error
	PrintPDF(ctx context.Context, paper Paper) ([]byte, error)
	// Screenshot 截取 selector 对应元素，找不到元素时截取整页。
	Screenshot(ctx context.Context, selector string, quality int) ([]byte, error)
	Close() error
}

// Paper 描述纸张与页边距，单位为英寸。
type Paper struct {
	Width        float64
	Height       float64
	MarginTop    float64
	MarginBottom float64
	MarginLeft   float64
	MarginRight  float64
}

// A4 是导出使用的固定纸张：210mm x 297mm，四边 10mm 边距。
var A4 = Paper{
	Width:        8.27,
	Height:       11.69,
	MarginTop:    0.4,
	MarginBottom: 0.4,
	MarginLeft:   0.4,
	MarginRight:  0.4,
}

// NewEngine 按配置选择浏览器驱动。
func NewEngine(cfg config.ExportConfig) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Engine)) {
	case "", "rod":
		return NewRodEngine(cfg.BrowserBin, cfg.BrowserTimeout), nil
	case "chromedp":
		return NewChromedpEngine(cfg.BrowserBin), nil
	default:
		return nil, fmt.Errorf("unknown export engine %q", cfg.Engine)
	}
}

// imagesReadyFn 在全部图片完成（成功或失败）后 resolve。
const imagesReadyFn = `() => Promise.all(Array.from(document.images)
  .filter(img => !img.complete)
  .map(img => new Promise(resolve => {
    img.addEventListener('load', resolve, { once: true });
    img.addEventListener('error', resolve, { once: true });
  }))).then(() => document.images.length)`
