package browser

import (
	"fmt"

	"dicescraper/pkg/config"
	"dicescraper/pkg/logger"
)

// Set is the fetchers for one run: one for listing pages and one per
// detail worker.
type Set struct {
	Listing PageFetcher
	Details []PageFetcher
	closer  Closer
}

// Close releases browser resources, if any
func (s *Set) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Open builds the fetchers described by cfg
func Open(cfg config.BrowserConfig, workers int, log logger.Logger) (*Set, error) {
	if workers < 1 {
		workers = 1
	}

	switch cfg.Engine {
	case EngineHTTP:
		f := NewHTTPFetcher(cfg.UserAgent)
		details := make([]PageFetcher, workers)
		for i := range details {
			details[i] = NewHTTPFetcher(cfg.UserAgent)
		}
		return &Set{Listing: f, Details: details}, nil

	case EnginePlaywright, "":
		session, err := Launch(Options{
			Headless:    cfg.Headless,
			UserAgent:   cfg.UserAgent,
			BrowserType: cfg.BrowserType,
		}, log)
		if err != nil {
			return nil, err
		}

		set := &Set{closer: session}
		// The listing tab is also the first detail tab, matching a single
		// browser window walking listing then details.
		first, err := session.NewPage()
		if err != nil {
			_ = session.Close()
			return nil, err
		}
		set.Listing = first
		set.Details = append(set.Details, first)
		for i := 1; i < workers; i++ {
			p, err := session.NewPage()
			if err != nil {
				_ = session.Close()
				return nil, err
			}
			set.Details = append(set.Details, p)
		}
		return set, nil

	default:
		return nil, fmt.Errorf("unknown browser engine %q", cfg.Engine)
	}
}
