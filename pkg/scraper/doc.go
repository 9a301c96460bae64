// Package scraper drives a paginated Dice search from the first unfinished
// page to the last page of results or the page budget, whichever comes first.
//
// For every listing page the Scraper fetches and parses the search results,
// enriches each job through a pool of detail workers, appends the page to the
// export sink and only then records the page as completed. A crash after the
// checkpoint save therefore never loses rows, and a crash before it re-scrapes
// the page on the next run.
//
// Listing failures end the run. Detail failures are logged and the job keeps
// its listing fields.
//
// Usage:
//
//	s := scraper.New(scraper.Dependencies{
//		ListingFetcher: set.Listing,
//		DetailFetchers: set.Details,
//		Listing:        dice.NewListingExtractor(dice.BaseURL),
//		Detail:         dice.NewDetailExtractor(),
//		Sink:           exporter,
//		Logger:         log,
//	})
//
//	res, err := s.Run(ctx, scraper.RunOptions{
//		Query:        dice.DefaultQuery(),
//		PageBudget:   5,
//		JobsPerPage:  20,
//		Resume:       checkpoints.Load(),
//		Shutdown:     stop,
//		SaveProgress: func(page int, q dice.Query) error { return checkpoints.Save(page, q) },
//	})
//
// Shutdown is honoured only between pages. Cancelling ctx aborts the current
// page without exporting it.
package scraper
