package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"dicescraper/pkg/dice"
	"dicescraper/pkg/export"
	"dicescraper/pkg/models"
)

// fakeFetcher serves canned HTML keyed by URL substring
type fakeFetcher struct {
	mu     sync.Mutex
	pages  map[string]string
	errs   map[string]error
	calls  []string
	onCall func(url string)
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{pages: map[string]string{}, errs: map[string]error{}}
}

func (f *fakeFetcher) Navigate(ctx context.Context, url string, timeout time.Duration, readySelector string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	hook := f.onCall
	f.mu.Unlock()

	if hook != nil {
		hook(url)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	for k, err := range f.errs {
		if strings.Contains(url, k) {
			return "", err
		}
	}
	for k, html := range f.pages {
		if strings.Contains(url, k) {
			return html, nil
		}
	}
	return "", fmt.Errorf("no page for %s", url)
}

func (f *fakeFetcher) Content(ctx context.Context) (string, error) {
	return "", errors.New("not supported")
}

func (f *fakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// fakeListing returns a fixed total and generates n stubs per page from the
// page number embedded in the html
type fakeListing struct {
	total int
	stubs map[string][]models.JobStub
}

func (l *fakeListing) ExtractListing(html string, limit int) (int, []models.JobStub) {
	stubs := l.stubs[html]
	if limit > 0 && len(stubs) > limit {
		stubs = stubs[:limit]
	}
	return l.total, stubs
}

type fakeDetail struct{}

func (fakeDetail) ExtractDetail(html string) []models.Field {
	return []models.Field{{Key: "Job Description", Value: html}}
}

type fakeSink struct {
	mu          sync.Mutex
	opened      bool
	pages       []int
	appended    [][]*models.Record
	snapshots   [][]*models.Record
	appendErr   error
	snapshotErr error
}

func (s *fakeSink) Open() error {
	s.opened = true
	return nil
}

func (s *fakeSink) Append(ctx context.Context, page int, records []*models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	s.pages = append(s.pages, page)
	s.appended = append(s.appended, records)
	return nil
}

func (s *fakeSink) Snapshot(records []*models.Record) (string, error) {
	if s.snapshotErr != nil {
		return "", s.snapshotErr
	}
	s.snapshots = append(s.snapshots, records)
	if len(records) == 0 {
		return "", nil
	}
	return "jobs.csv", nil
}

func (s *fakeSink) Paths() export.Paths {
	return export.Paths{JSONL: "jobs.jsonl"}
}

func (s *fakeSink) Close() error { return nil }

type fakeClassifier struct {
	err   error
	calls int
}

func (c *fakeClassifier) Enrich(ctx context.Context, rec *models.Record) error {
	c.calls++
	if c.err != nil {
		return c.err
	}
	rec.Set("Position Types (AI)", []string{"Contract"})
	return nil
}

type recordingProgress struct {
	mu      sync.Mutex
	started []int
	done    []int
	details int
}

func (p *recordingProgress) PageStarted(page, lastPage int) {
	p.mu.Lock()
	p.started = append(p.started, page)
	p.mu.Unlock()
}

func (p *recordingProgress) DetailDone(page, index, total int, title string, err error) {
	p.mu.Lock()
	p.details++
	p.mu.Unlock()
}

func (p *recordingProgress) PageDone(page, totalPages, records int) {
	p.mu.Lock()
	p.done = append(p.done, page)
	p.mu.Unlock()
}

type progressSaver struct {
	pages []int
	err   error
}

func (p *progressSaver) save(page int, q dice.Query) error {
	if p.err != nil {
		return p.err
	}
	p.pages = append(p.pages, page)
	return nil
}

func stub(title, url string) models.JobStub {
	s := models.NewJobStub()
	s.Title = title
	if url != "" {
		s.URL = url
	}
	return s
}
