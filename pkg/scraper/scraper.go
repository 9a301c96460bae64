package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dicescraper/internal/enricher"
	"dicescraper/pkg/checkpoint"
	"dicescraper/pkg/dice"
	errs "dicescraper/pkg/errors"
	"dicescraper/pkg/logger"
	"dicescraper/pkg/models"
	"dicescraper/pkg/retry"
)

// Default per-fetch timeouts
const (
	DefaultListingTimeout = 10 * time.Second
	DefaultDetailTimeout  = 30 * time.Second
)

// StopReason tells why the page loop ended
type StopReason string

const (
	StopBudget   StopReason = "budget"
	StopLastPage StopReason = "last_page"
	StopShutdown StopReason = "shutdown"
)

// PageWindow is the range of listing pages one run may fetch
type PageWindow struct {
	StartPage int
	PageCount int
}

// NewPageWindow starts after the checkpointed page, or at page 1 when resume is nil
func NewPageWindow(resume *checkpoint.Checkpoint, budget int) PageWindow {
	start := 1
	if resume != nil {
		start = resume.NextPage()
	}
	return PageWindow{StartPage: start, PageCount: budget}
}

// LastPage is the final page the budget allows; below StartPage when the budget is zero
func (w PageWindow) LastPage() int {
	return w.StartPage + w.PageCount - 1
}

// Dependencies are the collaborators a Scraper drives
type Dependencies struct {
	ListingFetcher PageFetcher
	// DetailFetchers holds one fetcher per detail worker
	DetailFetchers []PageFetcher
	Listing        ListingExtractor
	Detail         DetailExtractor
	Sink           Sink
	Classifier     Enricher
	Pacer          Pacer
	Progress       Progress
	Logger         logger.Logger
}

// RunOptions describe one run of the page loop
type RunOptions struct {
	Query       dice.Query
	BaseURL     string
	PageBudget  int
	JobsPerPage int
	// Resume continues after the checkpointed page; nil starts at page 1
	Resume *checkpoint.Checkpoint
	// Shutdown, once closed, stops the loop before the next page
	Shutdown <-chan struct{}
	// SaveProgress persists the last fully exported page
	SaveProgress func(page int, q dice.Query) error

	ListingTimeout       time.Duration
	DetailTimeout        time.Duration
	ListingReadySelector string
	DetailReadySelector  string
}

// Result summarises a run
type Result struct {
	Records           []*models.Record
	FirstPage         int
	LastPage          int
	PagesCompleted    int
	LastCompletedPage int
	TotalPages        int
	FailedDetails     int
	StopReason        StopReason
	JSONLPath         string
	CSVPath           string
	Duration          time.Duration
}

// Option configures a Scraper
type Option func(*Scraper)

// WithRetry retries failed detail fetches according to cfg
func WithRetry(cfg *retry.Config) Option {
	return func(s *Scraper) { s.retry = cfg }
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(s *Scraper) { s.now = now }
}

// Scraper walks listing pages, enriches each job from its detail page and
// exports every page before checkpointing it
type Scraper struct {
	deps  Dependencies
	log   logger.Logger
	retry *retry.Config
	now   func() time.Time
}

// New creates a Scraper
func New(deps Dependencies, opts ...Option) *Scraper {
	log := deps.Logger
	if log == nil {
		log = logger.GetLogger()
	}

	s := &Scraper{
		deps:  deps,
		log:   log.WithField("component", "scraper"),
		retry: &retry.Config{MaxAttempts: 1},
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scraper) validate() error {
	switch {
	case s.deps.ListingFetcher == nil:
		return errs.New(errs.ErrorTypeConfig, "scraper", errors.New("listing fetcher is required"))
	case len(s.deps.DetailFetchers) == 0:
		return errs.New(errs.ErrorTypeConfig, "scraper", errors.New("at least one detail fetcher is required"))
	case s.deps.Listing == nil || s.deps.Detail == nil:
		return errs.New(errs.ErrorTypeConfig, "scraper", errors.New("listing and detail extractors are required"))
	case s.deps.Sink == nil:
		return errs.New(errs.ErrorTypeConfig, "scraper", errors.New("sink is required"))
	}
	return nil
}

func (o RunOptions) withDefaults() RunOptions {
	if o.BaseURL == "" {
		o.BaseURL = dice.BaseURL
	}
	if o.Query == nil {
		o.Query = dice.DefaultQuery()
	}
	if o.ListingTimeout <= 0 {
		o.ListingTimeout = DefaultListingTimeout
	}
	if o.DetailTimeout <= 0 {
		o.DetailTimeout = DefaultDetailTimeout
	}
	return o
}

// detailOptions is what a worker needs to fetch one detail page
type detailOptions struct {
	timeout  time.Duration
	selector string
	page     int
	total    int
}

// Run executes the page loop. A closed Shutdown channel ends the run at the
// next page boundary and still writes the snapshot; cancelling ctx aborts
// immediately.
func (s *Scraper) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	started := s.now()

	window := NewPageWindow(opts.Resume, opts.PageBudget)
	startPage, lastPage := window.StartPage, window.LastPage()

	res := &Result{
		FirstPage:         startPage,
		LastPage:          lastPage,
		LastCompletedPage: startPage - 1,
		StopReason:        StopBudget,
	}

	if err := s.deps.Sink.Open(); err != nil {
		return res, asExportError("open", err)
	}

	logger.LogComponentStart(s.log, "scraper", map[string]interface{}{
		"start_page":    startPage,
		"last_page":     lastPage,
		"page_budget":   opts.PageBudget,
		"jobs_per_page": opts.JobsPerPage,
		"workers":       len(s.deps.DetailFetchers),
		"resumed":       opts.Resume != nil,
	})

	for current := startPage; current <= lastPage; current++ {
		if shutdownRequested(opts.Shutdown) {
			s.log.WithField("page", current).Warn("Shutdown requested, stopping before next page")
			res.StopReason = StopShutdown
			break
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		totalPages, records, err := s.scrapePage(ctx, opts, current, lastPage, res)
		if err != nil {
			return res, err
		}

		res.Records = append(res.Records, records...)
		res.PagesCompleted++
		res.LastCompletedPage = current
		res.TotalPages = totalPages

		if current >= totalPages {
			s.log.WithFields(map[string]interface{}{
				"page":        current,
				"total_pages": totalPages,
			}).Info("Reached last page of results")
			res.StopReason = StopLastPage
			break
		}
	}

	csvPath, err := s.deps.Sink.Snapshot(res.Records)
	if err != nil {
		return res, asExportError("snapshot", err)
	}
	res.CSVPath = csvPath
	res.JSONLPath = s.deps.Sink.Paths().JSONL
	res.Duration = s.now().Sub(started)

	logger.LogMetrics(s.log, "scrape", map[string]interface{}{
		"records":         len(res.Records),
		"pages_completed": res.PagesCompleted,
		"failed_details":  res.FailedDetails,
		"stop_reason":     string(res.StopReason),
		"jsonl":           res.JSONLPath,
		"csv":             res.CSVPath,
		"duration":        res.Duration,
	})
	logger.LogComponentStop(s.log, "scraper", string(res.StopReason))
	return res, nil
}

// scrapePage fetches, enriches, exports and checkpoints one listing page
func (s *Scraper) scrapePage(ctx context.Context, opts RunOptions, page, lastPage int, res *Result) (int, []*models.Record, error) {
	pageStart := s.now()
	pageURL := dice.BuildPageURL(opts.BaseURL, opts.Query, page)
	logger.LogPageStart(s.log, page, lastPage, pageURL)
	if s.deps.Progress != nil {
		s.deps.Progress.PageStarted(page, lastPage)
	}

	listingCtx, cancel := context.WithTimeout(ctx, opts.ListingTimeout)
	html, err := s.deps.ListingFetcher.Navigate(listingCtx, pageURL, opts.ListingTimeout, opts.ListingReadySelector)
	cancel()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, nil, ctxErr
		}
		return 0, nil, errs.NewWithURL(errs.ErrorTypeListing, "fetch_listing", pageURL, err)
	}

	totalPages, stubs := s.deps.Listing.ExtractListing(html, opts.JobsPerPage)
	if totalPages < 1 {
		totalPages = 1
	}
	s.log.WithFields(map[string]interface{}{
		"page":        page,
		"total_pages": totalPages,
		"jobs":        len(stubs),
	}).Info("Listing page parsed")

	records, failed := s.enrichPage(ctx, opts, page, stubs)
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}

	if err := s.deps.Sink.Append(ctx, page, records); err != nil {
		return 0, nil, asExportError("append", err)
	}
	if opts.SaveProgress != nil {
		if err := opts.SaveProgress(page, opts.Query); err != nil {
			if errs.TypeOf(err) == errs.ErrorTypeUnknown {
				err = errs.New(errs.ErrorTypeCheckpoint, "save_progress", err)
			}
			return 0, nil, err
		}
	}

	res.FailedDetails += failed
	logger.LogPageComplete(s.log, page, totalPages, len(records), s.now().Sub(pageStart))
	if s.deps.Progress != nil {
		s.deps.Progress.PageDone(page, totalPages, len(records))
	}
	return totalPages, records, nil
}

// enrichPage fetches the detail page of every stub and returns the records
// in listing order with the number of failed detail fetches
func (s *Scraper) enrichPage(ctx context.Context, opts RunOptions, page int, stubs []models.JobStub) ([]*models.Record, int) {
	jobs := make([]enricher.Job, len(stubs))
	for i, stub := range stubs {
		jobs[i] = enricher.Job{Index: i, Stub: stub}
	}

	dopts := detailOptions{
		timeout:  opts.DetailTimeout,
		selector: opts.DetailReadySelector,
		page:     page,
		total:    len(stubs),
	}
	pool := enricher.NewWorkerPool(len(s.deps.DetailFetchers), func(ctx context.Context, worker int, job enricher.Job) enricher.Result {
		return s.processJob(ctx, worker, job, dopts)
	}, s.log)
	s.log.DebugWithFields("Enriching page", map[string]interface{}{
		"page":    page,
		"jobs":    len(jobs),
		"workers": pool.Workers(),
	})
	results := pool.Process(ctx, jobs)

	records := make([]*models.Record, 0, len(results))
	failed := 0
	for _, r := range results {
		rec := r.Record
		if rec == nil {
			rec = r.Job.Stub.Record()
		}
		if r.Error != nil && ctx.Err() == nil {
			failed++
			logger.LogDetailFailure(s.log, r.Job.Stub.URL, r.Error)
		}
		records = append(records, rec)
	}
	return records, failed
}

// processJob is the per-stub work run by the enricher pool
func (s *Scraper) processJob(ctx context.Context, worker int, job enricher.Job, opts detailOptions) enricher.Result {
	rec := job.Stub.Record()
	result := enricher.Result{Record: rec}

	defer func() {
		if s.deps.Progress != nil {
			s.deps.Progress.DetailDone(opts.page, job.Index, opts.total, job.Stub.Title, result.Error)
		}
	}()

	if !job.Stub.HasDetailURL() {
		return result
	}

	if s.deps.Pacer != nil {
		if err := s.deps.Pacer.Wait(ctx, job.Stub.URL); err != nil {
			result.Error = err
			return result
		}
	}

	fetcher := s.deps.DetailFetchers[worker%len(s.deps.DetailFetchers)]
	html, err := retry.DoWithResult(func() (string, error) {
		return fetcher.Navigate(ctx, job.Stub.URL, opts.timeout, opts.selector)
	}, s.retry.WithContext(ctx))
	if err != nil {
		result.Error = err
		return result
	}

	fields := s.deps.Detail.ExtractDetail(html)
	rec.Merge(fields)
	if v, ok := rec.Get(dice.FieldError); ok {
		s.log.WithFields(map[string]interface{}{
			"url":   job.Stub.URL,
			"error": v,
		}).Debug("Detail page had no header card")
	}

	if s.deps.Classifier != nil {
		if err := s.deps.Classifier.Enrich(ctx, rec); err != nil {
			s.log.WithError(err).WithField("url", job.Stub.URL).Debug("Classifier failed, ignoring")
		}
	}
	return result
}

func shutdownRequested(ch <-chan struct{}) bool {
	if ch == nil {
		return false
	}
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func asExportError(op string, err error) error {
	if errs.TypeOf(err) != errs.ErrorTypeUnknown {
		return err
	}
	return errs.New(errs.ErrorTypeExport, op, fmt.Errorf("sink: %w", err))
}
