package pdf

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// ChromedpEngine 使用 chromedp 直接驱动 DevTools 协议。
type ChromedpEngine struct {
	bin string
}

// NewChromedpEngine 创建 ChromedpEngine；bin 为空时由 chromedp 自行查找。
func NewChromedpEngine(bin string) *ChromedpEngine {
	return &ChromedpEngine{bin: bin}
}

func (e *ChromedpEngine) Name() string { return "chromedp" }

func (e *ChromedpEngine) Launch(ctx context.Context) (Browser, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if e.bin != "" {
		opts = append(opts, chromedp.ExecPath(e.bin))
	}

	// 浏览器生命周期由 Close 控制，与单步操作的 ctx 分离
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	cancel := func() {
		cancelBrowser()
		cancelAlloc()
	}

	// 首次 Run 启动浏览器进程，必须直接使用 NewContext 返回的上下文
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	return &cdpBrowser{ctx: browserCtx, cancel: cancel}, nil
}

type cdpBrowser struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func (b *cdpBrowser) NewPage(_ context.Context) (Page, error) {
	tabCtx, cancel := chromedp.NewContext(b.ctx)
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("create page: %w", err)
	}
	return &cdpPage{ctx: tabCtx, cancel: cancel}, nil
}

func (b *cdpBrowser) Close() error {
	b.cancel()
	return nil
}

type cdpPage struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func (p *cdpPage) SetContent(ctx context.Context, html string) error {
	var complete bool
	err := run(ctx, p.ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.Poll(`document.readyState === "complete"`, &complete),
	)
	if err != nil {
		return fmt.Errorf("set document content: %w", err)
	}
	return nil
}

func (p *cdpPage) WaitImages(ctx context.Context) error {
	var count int
	err := run(ctx, p.ctx, chromedp.Evaluate("("+imagesReadyFn+")()", &count,
		func(params *runtime.EvaluateParams) *runtime.EvaluateParams {
			return params.WithAwaitPromise(true)
		},
	))
	if err != nil {
		return fmt.Errorf("wait images: %w", err)
	}
	return nil
}

func (p *cdpPage) PrintPDF(ctx context.Context, paper Paper) ([]byte, error) {
	var buf []byte
	err := run(ctx, p.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, _, err = page.PrintToPDF().
			WithPrintBackground(true).
			WithPaperWidth(paper.Width).
			WithPaperHeight(paper.Height).
			WithMarginTop(paper.MarginTop).
			WithMarginBottom(paper.MarginBottom).
			WithMarginLeft(paper.MarginLeft).
			WithMarginRight(paper.MarginRight).
			Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("export pdf: %w", err)
	}
	return buf, nil
}

func (p *cdpPage) Screenshot(ctx context.Context, selector string, quality int) ([]byte, error) {
	var buf []byte
	if selector != "" {
		var found bool
		if err := run(ctx, p.ctx, chromedp.Evaluate(fmt.Sprintf("document.querySelector(%q) !== null", selector), &found)); err == nil && found {
			if err := run(ctx, p.ctx, chromedp.Screenshot(selector, &buf, chromedp.ByQuery)); err == nil {
				return buf, nil
			}
		}
	}
	if err := run(ctx, p.ctx, chromedp.FullScreenshot(&buf, quality)); err != nil {
		return nil, fmt.Errorf("page screenshot: %w", err)
	}
	return buf, nil
}

func (p *cdpPage) Close() error {
	p.cancel()
	return nil
}

// run 在 chromedp 上下文中执行动作，同时遵守调用方 ctx 的取消与超时。
func run(ctx, target context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(target)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ctx.Err(), err)
		}
		return err
	}
	return nil
}
