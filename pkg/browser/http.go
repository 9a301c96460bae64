package browser

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	errs "dicescraper/pkg/errors"
)

// HTTPFetcher fetches pages without a browser. It suits servers that send
// complete HTML. Safe for concurrent use.
type HTTPFetcher struct {
	userAgent string

	mu   sync.Mutex
	last string
}

// NewHTTPFetcher creates a colly-backed fetcher
func NewHTTPFetcher(userAgent string) *HTTPFetcher {
	return &HTTPFetcher{userAgent: userAgent}
}

func (f *HTTPFetcher) collector(ctx context.Context, timeout time.Duration) *colly.Collector {
	opts := []colly.CollectorOption{
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
	}
	if f.userAgent != "" {
		opts = append(opts, colly.UserAgent(f.userAgent))
	}
	c := colly.NewCollector(opts...)
	if timeout > 0 {
		c.SetRequestTimeout(timeout)
	}
	return c
}

// Navigate implements PageFetcher
func (f *HTTPFetcher) Navigate(ctx context.Context, url string, timeout time.Duration, readySelector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	timeout = effectiveTimeout(ctx, timeout)

	var (
		body     []byte
		status   int
		fetchErr error
	)
	c := f.collector(ctx, timeout)
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		status = r.StatusCode
		fetchErr = fmt.Errorf("%w (status: %d)", err, r.StatusCode)
	})

	if err := c.Visit(url); err != nil && fetchErr == nil {
		fetchErr = err
	}
	if fetchErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", classify("navigate", url, ctxErr)
		}
		return "", classifyStatus("navigate", url, status, fetchErr)
	}

	if readySelector != "" {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return "", errs.NewWithURL(errs.ErrorTypeExtraction, "parse", url, err)
		}
		if doc.Find(readySelector).Length() == 0 {
			return "", errs.NewWithURL(errs.ErrorTypeExtraction, "wait_for_selector", url,
				fmt.Errorf("ready selector %q not found", readySelector))
		}
	}

	html := string(body)
	f.mu.Lock()
	f.last = html
	f.mu.Unlock()
	return html, nil
}

// Content implements PageFetcher
func (f *HTTPFetcher) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.last == "" {
		return "", fmt.Errorf("no page loaded")
	}
	return f.last, nil
}
