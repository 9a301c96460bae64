// Package logger wraps zerolog behind a small interface used across the
// scraper. Console output is colorized and goes to stderr; an optional log
// file receives the same events as JSON lines.
//
//	log, err := logger.New(&cfg.Logging)
//	log.WithField("page", 3).Info("Scraping listing page")
//
// Tests use NewTestLogger to capture messages or NewNopLogger to discard them.
package logger
