package scraper

import (
	"context"

	"dicescraper/pkg/browser"
	"dicescraper/pkg/export"
	"dicescraper/pkg/models"
)

// PageFetcher loads pages; see browser.PageFetcher
type PageFetcher = browser.PageFetcher

// ListingExtractor turns a search results page into job stubs
type ListingExtractor interface {
	ExtractListing(html string, limit int) (totalPages int, stubs []models.JobStub)
}

// DetailExtractor turns a job detail page into an ordered field list
type DetailExtractor interface {
	ExtractDetail(html string) []models.Field
}

// Sink receives exported records
type Sink interface {
	Open() error
	// Append durably writes one page of records
	Append(ctx context.Context, page int, records []*models.Record) error
	// Snapshot writes the full table of records and returns its path
	Snapshot(records []*models.Record) (string, error)
	Paths() export.Paths
	Close() error
}

// Enricher adds best-effort fields to a record
type Enricher interface {
	Enrich(ctx context.Context, rec *models.Record) error
}

// Pacer blocks until the next detail fetch of url may start
type Pacer interface {
	Wait(ctx context.Context, url string) error
}

// Progress receives run events for display
type Progress interface {
	PageStarted(page, lastPage int)
	DetailDone(page, index, total int, title string, err error)
	PageDone(page, totalPages, records int)
}
