package browser

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/playwright-community/playwright-go"

	errs "dicescraper/pkg/errors"
)

// Engine names accepted by browser.engine
const (
	EnginePlaywright = "playwright"
	EngineHTTP       = "http"
)

// PageFetcher loads a page and returns its rendered HTML
type PageFetcher interface {
	// Navigate loads url, waits for readySelector when it is non-empty and
	// returns the page HTML. timeout bounds the whole call.
	Navigate(ctx context.Context, url string, timeout time.Duration, readySelector string) (string, error)
	// Content returns the HTML of the most recently loaded page
	Content(ctx context.Context) (string, error)
}

// Closer is implemented by fetchers holding browser resources
type Closer interface {
	Close() error
}

// effectiveTimeout shortens timeout to whatever is left of ctx's deadline
func effectiveTimeout(ctx context.Context, timeout time.Duration) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); timeout <= 0 || left < timeout {
			return left
		}
	}
	return timeout
}

// classify maps a fetch failure onto the scraper's error types
func classify(op, url string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if isTimeout(err) {
		return errs.NewWithURL(errs.ErrorTypeTimeout, op, url, err)
	}
	return errs.NewWithURL(errs.ErrorTypeNavigation, op, url, err)
}

// classifyStatus types a failed response. Statuses that a retry cannot fix
// are ErrorTypeHTTP; the rest classify like any other load failure.
func classifyStatus(op, url string, status int, err error) error {
	if status != 0 && !errs.IsRetryableStatusCode(status) {
		return errs.NewWithURL(errs.ErrorTypeHTTP, op, url, err)
	}
	return classify(op, url, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, playwright.ErrTimeout) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func millis(d time.Duration) *float64 {
	return playwright.Float(float64(d / time.Millisecond))
}
