package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"dicescraper/pkg/logger"
)

// Options configures a browser session
type Options struct {
	Headless    bool
	UserAgent   string
	BrowserType string // chromium, firefox or webkit
	// Install downloads the driver and browser on first use
	Install bool
}

// Session owns a playwright driver, one browser and one browser context
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	bctx    playwright.BrowserContext
	log     logger.Logger

	mu    sync.Mutex
	pages []*Page
}

// Launch starts playwright and opens a browser context
func Launch(opts Options, log logger.Logger) (*Session, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	if opts.Install {
		if err := playwright.Install(&playwright.RunOptions{
			Browsers: []string{browserName(opts.BrowserType)},
		}); err != nil {
			return nil, fmt.Errorf("could not install playwright: %w", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright: %w", err)
	}

	var bt playwright.BrowserType
	switch browserName(opts.BrowserType) {
	case "firefox":
		bt = pw.Firefox
	case "webkit":
		bt = pw.WebKit
	default:
		bt = pw.Chromium
	}

	browser, err := bt.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("could not launch %s: %w", browserName(opts.BrowserType), err)
	}

	ctxOpts := playwright.BrowserNewContextOptions{}
	if opts.UserAgent != "" {
		ctxOpts.UserAgent = playwright.String(opts.UserAgent)
	}
	bctx, err := browser.NewContext(ctxOpts)
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("could not create browser context: %w", err)
	}

	log.InfoWithFields("Browser started", map[string]interface{}{
		"browser":  browserName(opts.BrowserType),
		"headless": opts.Headless,
	})

	return &Session{pw: pw, browser: browser, bctx: bctx, log: log}, nil
}

func browserName(name string) string {
	switch name {
	case "firefox", "webkit":
		return name
	default:
		return "chromium"
	}
}

// NewPage opens a new tab in the session's context
func (s *Session) NewPage() (*Page, error) {
	p, err := s.bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("could not create new page: %w", err)
	}
	page := &Page{page: p, log: s.log}

	s.mu.Lock()
	s.pages = append(s.pages, page)
	s.mu.Unlock()
	return page, nil
}

// Close closes every page, the context and the browser, then stops the driver
func (s *Session) Close() error {
	s.mu.Lock()
	pages := s.pages
	s.pages = nil
	s.mu.Unlock()

	var errList []error
	for _, p := range pages {
		if err := p.Close(); err != nil {
			errList = append(errList, err)
		}
	}
	if err := s.bctx.Close(); err != nil {
		errList = append(errList, fmt.Errorf("close context: %w", err))
	}
	if err := s.browser.Close(); err != nil {
		errList = append(errList, fmt.Errorf("close browser: %w", err))
	}
	if err := s.pw.Stop(); err != nil {
		errList = append(errList, fmt.Errorf("stop playwright: %w", err))
	}
	return errors.Join(errList...)
}

// Page is a single browser tab. It is not safe for concurrent use; give each
// worker its own Page.
type Page struct {
	page playwright.Page
	log  logger.Logger
}

// Navigate implements PageFetcher. Cancelling ctx closes the tab so a
// pending load returns at once; the Page is unusable afterwards.
func (p *Page) Navigate(ctx context.Context, url string, timeout time.Duration, readySelector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	timeout = effectiveTimeout(ctx, timeout)
	if timeout <= 0 {
		return "", classify("navigate", url, context.DeadlineExceeded)
	}
	start := time.Now()

	stop := abortOnCancel(ctx, func() {
		p.log.WithField("url", url).Debug("Context cancelled, closing page")
		_ = p.page.Close()
	})
	defer stop()

	resp, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   millis(timeout),
	})
	if err != nil {
		return "", p.fail(ctx, "navigate", url, err)
	}
	if resp != nil && resp.Status() >= 400 {
		return "", classifyStatus("navigate", url, resp.Status(),
			fmt.Errorf("unexpected status %d", resp.Status()))
	}

	if readySelector != "" {
		left := timeout - time.Since(start)
		if left <= 0 {
			return "", classify("wait_for_selector", url, context.DeadlineExceeded)
		}
		if _, err := p.page.WaitForSelector(readySelector, playwright.PageWaitForSelectorOptions{
			Timeout: millis(left),
		}); err != nil {
			return "", p.fail(ctx, "wait_for_selector", url, err)
		}
	}

	html, err := p.page.Content()
	if err != nil {
		return "", p.fail(ctx, "content", url, err)
	}

	p.log.DebugWithFields("Page loaded", map[string]interface{}{
		"url":      url,
		"duration": time.Since(start),
		"bytes":    len(html),
	})
	return html, nil
}

// fail reports cancellation as ctx.Err() rather than the closed-page error
// it causes
func (p *Page) fail(ctx context.Context, op, url string, err error) error {
	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.Canceled) {
		return ctxErr
	}
	return classify(op, url, err)
}

// abortOnCancel runs abort once ctx is cancelled. Deadlines are left to the
// playwright timeouts. Calling stop detaches abort.
func abortOnCancel(ctx context.Context, abort func()) (stop func() bool) {
	return context.AfterFunc(ctx, func() {
		if errors.Is(ctx.Err(), context.Canceled) {
			abort()
		}
	})
}

// Content implements PageFetcher
func (p *Page) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.page.Content()
}

// Close closes the tab
func (p *Page) Close() error {
	if p.page.IsClosed() {
		return nil
	}
	return p.page.Close()
}
