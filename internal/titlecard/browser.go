package titlecard

import (
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/dgnsrekt/storyreel/internal/config"
)

const (
	defaultWidth   = 400
	defaultHeight  = 300
	defaultTimeout = 30 * time.Second
)

// Browser renders the HTML template in headless Chrome and screenshots the
// viewport. Each render starts its own browser, so concurrent renders do not
// share state.
type Browser struct {
	tmpl     *template.Template
	width    int
	height   int
	execPath string
	timeout  time.Duration
}

// NewBrowser creates a browser renderer from cfg.
func NewBrowser(cfg config.TitleCardConfig) (*Browser, error) {
	tmpl, err := LoadTemplate(cfg.Template)
	if err != nil {
		return nil, err
	}

	b := &Browser{
		tmpl:     tmpl,
		width:    cfg.Width,
		height:   cfg.Height,
		execPath: cfg.ChromePath,
		timeout:  cfg.Timeout,
	}
	if b.width <= 0 {
		b.width = defaultWidth
	}
	if b.height <= 0 {
		b.height = defaultHeight
	}
	if b.timeout <= 0 {
		b.timeout = defaultTimeout
	}
	return b, nil
}

// Render implements Renderer.
func (b *Browser) Render(ctx context.Context, title string, cropTop, cropBottom int) ([]byte, error) {
	html, err := RenderHTML(b.tmpl, title)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(b.width, b.height),
		chromedp.Flag("hide-scrollbars", true),
	)
	if b.execPath != "" {
		opts = append(opts, chromedp.ExecPath(b.execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			log.Debug(fmt.Sprintf(format, args...))
		}))
	defer cancelBrowser()

	start := time.Now()
	var shot []byte
	err = chromedp.Run(browserCtx,
		chromedp.EmulateViewport(int64(b.width), int64(b.height)),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.CaptureScreenshot(&shot),
	)
	if err != nil {
		return nil, fmt.Errorf("browser render failed: %w", err)
	}

	log.Debug("title card rendered", "bytes", len(shot), "took", time.Since(start).Round(time.Millisecond))
	return Crop(shot, cropTop, cropBottom)
}
