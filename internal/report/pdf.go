package report

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ErrRendererUnavailable is returned when no headless browser can be started.
var ErrRendererUnavailable = errors.New("pdf renderer unavailable")

// PDFRenderer prints HTML documents through headless Chrome.
type PDFRenderer struct {
	timeout  time.Duration
	execPath string

	startOnce sync.Once
	startErr  error
}

type PDFOption func(*PDFRenderer)

// WithBrowserPath runs the given executable instead of searching for Chrome.
func WithBrowserPath(path string) PDFOption {
	return func(r *PDFRenderer) { r.execPath = path }
}

func NewPDFRenderer(timeout time.Duration, opts ...PDFOption) *PDFRenderer {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	r := &PDFRenderer{timeout: timeout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *PDFRenderer) newBrowser(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.execPath == "" {
		return chromedp.NewContext(ctx)
	}
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.ExecPath(r.execPath))
	alloc, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	browser, cancelBrowser := chromedp.NewContext(alloc)
	return browser, func() {
		cancelBrowser()
		cancelAlloc()
	}
}

// Available starts a browser once and caches the outcome for the life of
// the renderer.
func (r *PDFRenderer) Available() error {
	r.startOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		browser, cancelBrowser := r.newBrowser(ctx)
		defer cancelBrowser()
		r.startErr = chromedp.Run(browser)
	})
	if r.startErr != nil {
		return fmt.Errorf("%w: %v", ErrRendererUnavailable, r.startErr)
	}
	return nil
}

// RenderPDF prints html as an A4 document.
func (r *PDFRenderer) RenderPDF(ctx context.Context, html []byte) ([]byte, error) {
	if err := r.Available(); err != nil {
		return nil, err
	}
	browser, cancel := r.newBrowser(ctx)
	defer cancel()

	timeoutCtx, cancelTimeout := context.WithTimeout(browser, r.timeout)
	defer cancelTimeout()

	dataURI := "data:text/html;base64," + base64.StdEncoding.EncodeToString(html)
	var pdf []byte
	tasks := chromedp.Tasks{
		chromedp.Navigate(dataURI),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	}
	if err := chromedp.Run(timeoutCtx, tasks...); err != nil {
		return nil, fmt.Errorf("print pdf: %w", err)
	}
	return pdf, nil
}
