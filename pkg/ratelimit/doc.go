// Package ratelimit paces requests to the job board.
//
// HostLimiter keeps one golang.org/x/time/rate token bucket per hostname.
// Pacer combines it with the fixed pause the scraper takes between detail
// pages:
//
//	pacer := ratelimit.NewPacer(10*time.Second, 30, 1)
//	for _, job := range jobs {
//	    if err := pacer.Wait(ctx, job.URL); err != nil {
//	        return err
//	    }
//	    // fetch job.URL
//	}
//
// The fixed delay is skipped before the very first fetch.
package ratelimit
