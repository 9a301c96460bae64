// Package retry runs operations again after transient failures.
//
// The scraper uses it around detail-page fetches: navigation errors and
// timeouts are retried with exponential backoff, extraction problems are
// not. With MaxAttempts set to 1 an operation runs exactly once and its
// error is returned unchanged.
//
//	html, err := retry.DoWithResult(func() (string, error) {
//	    return fetcher.Navigate(ctx, url, timeout, "h1")
//	}, cfg.WithContext(ctx))
package retry
