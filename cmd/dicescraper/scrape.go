package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"dicescraper/pkg/browser"
	"dicescraper/pkg/checkpoint"
	"dicescraper/pkg/classifier"
	"dicescraper/pkg/config"
	"dicescraper/pkg/dice"
	"dicescraper/pkg/export"
	"dicescraper/pkg/logger"
	"dicescraper/pkg/ratelimit"
	"dicescraper/pkg/retry"
	"dicescraper/pkg/scraper"
	"dicescraper/pkg/secrets"
	"dicescraper/pkg/storage"
	"dicescraper/pkg/ui"
)

var (
	// Scrape command flags
	pages         int
	jobsPerPage   int
	outputDir     string
	progressFile  string
	keyword       string
	engine        string
	detailWorkers int
	detailDelay   time.Duration
	resumeRun     bool
	forceRestart  bool
	headed        bool
	classify      bool
	sqliteMirror  bool
	notifications bool
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape Dice search results into JSONL and CSV",
	Long: `Scrape Dice search result pages and their job detail pages.

Every finished page is appended to <output>/<prefix>_<timestamp>.jsonl and then
recorded in the progress file, so an interrupted run picks up at the first
unfinished page. A CSV snapshot with one column per field seen is written at
the end of the run.

Press Ctrl-C once to stop after the current page, twice to abort immediately.`,
	Example: `  # Scrape the next five pages of the default search
  dicescraper scrape --pages 5

  # Different keyword, plain HTTP fetching, two detail workers
  dicescraper scrape --keyword "Go Developer" --engine http --detail-workers 2

  # Start over from page 1
  dicescraper scrape --force-restart

  # Tag position types with a local Ollama model
  dicescraper scrape --classify`,
	Args: cobra.NoArgs,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	f := scrapeCmd.Flags()
	f.IntVar(&pages, "pages", 1, "number of listing pages to scrape in this run")
	f.IntVar(&jobsPerPage, "jobs-per-page", 5, "maximum jobs taken from each listing page")
	f.StringVarP(&outputDir, "output-dir", "o", "", "output directory (default: ./output)")
	f.StringVar(&progressFile, "progress-file", "", "checkpoint file (default: progress.json)")
	f.StringVarP(&keyword, "keyword", "k", "", "search keyword (default: Java Developer)")
	f.StringVar(&engine, "engine", "", "page fetcher: playwright or http")
	f.IntVar(&detailWorkers, "detail-workers", 1, "number of concurrent detail fetchers")
	f.DurationVar(&detailDelay, "detail-delay", 10*time.Second, "pause between detail page fetches")
	f.BoolVar(&resumeRun, "resume", false, "continue after the last checkpointed page")
	f.BoolVar(&forceRestart, "force-restart", false, "back up and delete the checkpoint, then start at page 1")
	f.BoolVar(&headed, "headed", false, "show the browser window")
	f.BoolVar(&classify, "classify", false, "tag position types with the configured LLM")
	f.BoolVar(&sqliteMirror, "sqlite", false, "also upsert rows into <output>/<prefix>.db")
	f.BoolVar(&notifications, "notifications", false, "send a desktop notification when the run ends")
}

// scrapeFlags returns only the flags the user actually set
func scrapeFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	changed := cmd.Flags().Changed

	if changed("pages") {
		flags["pages"] = pages
	}
	if changed("jobs-per-page") {
		flags["jobs-per-page"] = jobsPerPage
	}
	if changed("output-dir") {
		flags["output-dir"] = outputDir
	}
	if changed("progress-file") {
		flags["progress-file"] = progressFile
	}
	if changed("keyword") {
		flags["keyword"] = keyword
	}
	if changed("engine") {
		flags["engine"] = engine
	}
	if changed("detail-workers") {
		flags["detail-workers"] = detailWorkers
	}
	if changed("detail-delay") {
		flags["detail-delay"] = detailDelay
	}
	if headed {
		flags["headed"] = true
	}
	if classify {
		flags["classify"] = true
	}
	if sqliteMirror {
		flags["sqlite"] = true
	}
	if cmd.Flags().Changed("log-level") || quiet {
		flags["log-level"] = logLevel
	}
	return flags
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, scrapeFlags(cmd))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.Version = version
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()

	query := dice.Query(cfg.Query())
	if !quiet {
		ui.PrintInfo("Search", cfg.Site.Keyword)
	}

	checkpoints, err := checkpoint.NewManager(cfg.Output.ProgressFile, log)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint: %w", err)
	}
	resume, err := resolveResume(checkpoints, query, log)
	if err != nil {
		return err
	}

	store, err := storage.NewManager(cfg.Output.Directory, cfg.Output.Prefix)
	if err != nil {
		return fmt.Errorf("failed to prepare output directory: %w", err)
	}
	if !quiet {
		ui.PrintInfo("Output", store.GetOutputDir())
	}
	if resume != nil {
		if prev := previousRun(store, log); prev != "" {
			log.WithField("path", prev).Info("Resuming after previous run")
			if !quiet {
				ui.PrintInfo("Previous run", prev)
			}
		}
	}
	exporter := export.New(store, export.Options{SQLite: cfg.Output.SQLite, Logger: log})
	defer exporter.Close()

	tagger, err := newClassifier(cfg.Classifier, log)
	if err != nil {
		return err
	}

	set, err := browser.Open(cfg.Browser, cfg.Scrape.DetailWorkers, log)
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer set.Close()

	var progress scraper.Progress
	var display *ui.ProgressDisplay
	if !quiet {
		display = ui.NewProgressDisplay(os.Stdout, verbose)
		progress = display
	}

	deps := scraper.Dependencies{
		ListingFetcher: set.Listing,
		DetailFetchers: set.Details,
		Listing:        dice.NewListingExtractor(cfg.Site.BaseURL),
		Detail:         dice.NewDetailExtractor(),
		Sink:           exporter,
		Pacer:          newPacer(cfg, log),
		Progress:       progress,
		Logger:         log,
	}
	if tagger != nil {
		deps.Classifier = tagger
	}
	s := scraper.New(deps, scraper.WithRetry(retryConfig(cfg.Retry, log)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := make(chan struct{})
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go handleSignals(sigs, stop, cancel, log)

	started := time.Now()
	res, runErr := s.Run(ctx, scraper.RunOptions{
		Query:                query,
		BaseURL:              cfg.Site.BaseURL,
		PageBudget:           cfg.Scrape.Pages,
		JobsPerPage:          cfg.Scrape.JobsPerPage,
		Resume:               resume,
		Shutdown:             stop,
		SaveProgress:         func(page int, q dice.Query) error { return checkpoints.Save(page, q) },
		ListingTimeout:       cfg.Scrape.ListingTimeout,
		DetailTimeout:        cfg.Scrape.DetailTimeout,
		ListingReadySelector: cfg.Scrape.ListingReadySelector,
		DetailReadySelector:  cfg.Scrape.DetailReadySelector,
	})

	if cfg.Output.Manifest && res != nil {
		m := buildManifest(exporter.RunID(), exporter.Paths(), query, cfg.Scrape.Pages, res, runErr, started)
		if path, err := exporter.WriteManifest(m); err != nil {
			log.WithError(err).Warn("Failed to write run manifest")
		} else {
			log.WithField("path", path).Debug("Run manifest written")
		}
	}

	notifier := ui.NewNotifierWithSender(nil)
	if notifications {
		notifier = ui.NewNotifier()
	}

	if runErr != nil {
		log.WithError(runErr).Error("Scrape failed")
		if notifications {
			notifier.SendError("Dice scrape failed", runErr.Error())
		}
		return fmt.Errorf("scrape failed: %w", runErr)
	}

	if display != nil {
		display.Complete(res.PagesCompleted, string(res.StopReason))
		ui.PrintInfo("JSONL", res.JSONLPath)
		if res.CSVPath != "" {
			ui.PrintInfo("CSV", res.CSVPath)
		}
	}
	if notifications {
		notifier.SendSuccess("Dice scrape complete", fmt.Sprintf("%d jobs from %d pages", len(res.Records), res.PagesCompleted))
	}
	return nil
}

// resolveResume applies --force-restart and --resume to the stored checkpoint
func resolveResume(checkpoints *checkpoint.Manager, query dice.Query, log logger.Logger) (*checkpoint.Checkpoint, error) {
	if forceRestart && checkpoints.Exists() {
		if err := checkpoints.Backup(); err != nil {
			log.WithError(err).Warn("Failed to back up checkpoint")
		}
		if err := checkpoints.Delete(); err != nil {
			return nil, fmt.Errorf("failed to delete checkpoint: %w", err)
		}
		if !quiet {
			ui.PrintWarning("Checkpoint cleared, starting at page 1")
		}
		return nil, nil
	}
	if !resumeRun {
		return nil, nil
	}

	cp := checkpoints.Load()
	if cp == nil {
		return nil, nil
	}
	if !cp.MatchesQuery(query) {
		log.WithField("checkpoint", checkpoints.Path()).Warn("Checkpoint was written for a different search, resuming its page anyway")
		if !quiet {
			ui.PrintWarning("Checkpoint query differs from the current search", "use --force-restart to start over")
		}
	}
	if !quiet {
		ui.PrintInfo("Resuming at page", fmt.Sprintf("%d", cp.NextPage()))
	}
	return cp, nil
}

// newClassifier returns nil when classification is disabled
func newClassifier(cfg config.ClassifierConfig, log logger.Logger) (*classifier.Classifier, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	var apiKey string
	if cfg.Provider != classifier.ProviderOllama && cfg.Provider != "" {
		mgr, err := secrets.NewManager()
		if err != nil {
			return nil, fmt.Errorf("failed to open secret store: %w", err)
		}
		apiKey, err = mgr.Get(cfg.Provider)
		if errors.Is(err, secrets.ErrKeyNotFound) {
			return nil, fmt.Errorf("no API key stored for %s, run 'dicescraper auth set-key %s'", cfg.Provider, cfg.Provider)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read API key: %w", err)
		}
	}

	c, err := classifier.NewLLM(cfg, apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create classifier: %w", err)
	}
	log.WithFields(map[string]interface{}{
		"provider": cfg.Provider,
		"model":    cfg.Model,
	}).Info("Position type classifier enabled")
	return c, nil
}

// retryConfig backs off exponentially, or at a fixed pace when the
// configured ceiling leaves no room to grow
func retryConfig(cfg config.RetryConfig, log logger.Logger) *retry.Config {
	var backoff retry.BackoffStrategy = &retry.ExponentialBackoff{
		BaseDelay:    cfg.BaseDelay,
		MaxDelay:     cfg.MaxDelay,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
	if cfg.MaxDelay <= cfg.BaseDelay {
		backoff = &retry.ConstantBackoff{Delay: cfg.BaseDelay}
	}
	return &retry.Config{
		MaxAttempts: cfg.MaxAttempts,
		Backoff:     backoff,
		RetryIf:     retry.DefaultRetryIf,
		Logger:      log,
	}
}

func newPacer(cfg *config.Config, log logger.Logger) *ratelimit.Pacer {
	pacer := ratelimit.NewPacer(cfg.Scrape.DetailDelay, cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.BurstSize)
	log.WithFields(map[string]interface{}{
		"detail_delay":        pacer.Delay().String(),
		"requests_per_minute": cfg.RateLimit.RequestsPerMinute,
		"burst":               cfg.RateLimit.BurstSize,
	}).Debug("Detail pacing configured")
	return pacer
}

// previousRun names the newest JSONL file an earlier run left behind
func previousRun(store *storage.Manager, log logger.Logger) string {
	runs, err := store.ListRuns()
	if err != nil {
		log.WithError(err).Warn("Failed to list previous runs")
		return ""
	}
	if len(runs) == 0 {
		return ""
	}
	return runs[0]
}

// handleSignals closes stop on the first signal and cancels on the second
func handleSignals(sigs <-chan os.Signal, stop chan<- struct{}, cancel context.CancelFunc, log logger.Logger) {
	stopped := false
	for sig := range sigs {
		if !stopped {
			stopped = true
			log.WithField("signal", sig.String()).Warn("Stopping after the current page")
			if !quiet {
				ui.PrintWarning("\nStopping after the current page, press Ctrl-C again to abort")
			}
			close(stop)
			continue
		}
		log.WithField("signal", sig.String()).Warn("Aborting run")
		cancel()
		return
	}
}

func buildManifest(runID string, paths export.Paths, query dice.Query, budget int, res *scraper.Result, runErr error, started time.Time) *export.Manifest {
	m := &export.Manifest{
		RunID:             runID,
		Query:             query,
		StartPage:         res.FirstPage,
		PageBudget:        budget,
		PagesCompleted:    res.PagesCompleted,
		LastCompletedPage: res.LastCompletedPage,
		TotalPages:        res.TotalPages,
		StopReason:        string(res.StopReason),
		Records:           len(res.Records),
		FailedDetails:     res.FailedDetails,
		JSONLPath:         paths.JSONL,
		CSVPath:           res.CSVPath,
		SQLitePath:        paths.SQLite,
		StartedAt:         started,
		FinishedAt:        time.Now(),
	}
	if runErr != nil {
		m.Error = runErr.Error()
		m.StopReason = ""
	}
	return m
}
