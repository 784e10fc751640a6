package pdf

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// RodEngine 使用 go-rod 启动本地 Chromium。
type RodEngine struct {
	bin     string
	timeout time.Duration
}

// NewRodEngine 创建 RodEngine；bin 为空时自动查找浏览器。
func NewRodEngine(bin string, timeout time.Duration) *RodEngine {
	return &RodEngine{bin: bin, timeout: timeout}
}

func (e *RodEngine) Name() string { return "rod" }

func (e *RodEngine) Launch(ctx context.Context) (_ Browser, err error) {
	launch := launcher.New().
		Context(ctx).
		Headless(true).
		NoSandbox(true)
	defer func() {
		if err != nil {
			abandonLaunch(launch)
		}
	}()

	if e.bin != "" {
		launch = launch.Bin(e.bin)
	} else if path, ok := launcher.LookPath(); ok {
		launch = launch.Bin(path)
	}

	browserURL, err := launch.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	browser := rod.New().ControlURL(browserURL)
	if e.timeout > 0 {
		browser = browser.Timeout(e.timeout)
	}
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	return &rodBrowser{launch: launch, browser: browser}, nil
}

// launchedProcess 是释放本地浏览器进程所需的 launcher 方法。
type launchedProcess interface {
	Kill()
	Cleanup()
}

var _ launchedProcess = (*launcher.Launcher)(nil)

// abandonLaunch 先结束浏览器进程再清理用户目录。Cleanup 会一直等到进程退出。
func abandonLaunch(p launchedProcess) {
	p.Kill()
	p.Cleanup()
}

type rodBrowser struct {
	launch  *launcher.Launcher
	browser *rod.Browser
}

func (b *rodBrowser) NewPage(ctx context.Context) (Page, error) {
	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	return &rodPage{page: page}, nil
}

func (b *rodBrowser) Close() error {
	if err := b.browser.Close(); err != nil {
		abandonLaunch(b.launch)
		return fmt.Errorf("close browser: %w", err)
	}
	b.launch.Cleanup()
	return nil
}

type rodPage struct {
	page *rod.Page
}

func (p *rodPage) SetContent(ctx context.Context, html string) error {
	page := p.page.Context(ctx)
	if err := page.SetDocumentContent(html); err != nil {
		return fmt.Errorf("set document content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}
	return nil
}

func (p *rodPage) WaitImages(ctx context.Context) error {
	if _, err := p.page.Context(ctx).Eval(imagesReadyFn); err != nil {
		return fmt.Errorf("wait images: %w", err)
	}
	return nil
}

func (p *rodPage) PrintPDF(ctx context.Context, paper Paper) ([]byte, error) {
	reader, err := p.page.Context(ctx).PDF(&proto.PagePrintToPDF{
		PrintBackground: true,
		PaperWidth:      float64Ptr(paper.Width),
		PaperHeight:     float64Ptr(paper.Height),
		MarginTop:       float64Ptr(paper.MarginTop),
		MarginBottom:    float64Ptr(paper.MarginBottom),
		MarginLeft:      float64Ptr(paper.MarginLeft),
		MarginRight:     float64Ptr(paper.MarginRight),
	})
	if err != nil {
		return nil, fmt.Errorf("export pdf: %w", err)
	}
	defer func() {
		_ = reader.Close()
	}()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read pdf bytes: %w", err)
	}
	return data, nil
}

func (p *rodPage) Screenshot(ctx context.Context, selector string, quality int) ([]byte, error) {
	page := p.page.Context(ctx)
	if selector != "" {
		if found, element, err := page.Has(selector); err == nil && found {
			if data, shotErr := element.Screenshot(proto.PageCaptureScreenshotFormatJpeg, quality); shotErr == nil {
				return data, nil
			}
		}
	}

	data, err := page.Screenshot(true, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: intPtr(quality),
	})
	if err != nil {
		return nil, fmt.Errorf("page screenshot: %w", err)
	}
	return data, nil
}

func (p *rodPage) Close() error {
	return p.page.Close()
}

func float64Ptr(value float64) *float64 {
	return &value
}

func intPtr(value int) *int {
	return &value
}
