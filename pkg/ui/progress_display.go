package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// ProgressDisplay renders scrape progress as a single rewritten line on a
// terminal, or as one line per event when verbose or not attached to a tty.
type ProgressDisplay struct {
	mu      sync.Mutex
	out     io.Writer
	tracker *StatusTracker
	inline  bool
	verbose bool
	title   string
}

// NewProgressDisplay creates a display writing to out
func NewProgressDisplay(out io.Writer, verbose bool) *ProgressDisplay {
	return &ProgressDisplay{
		out:     out,
		tracker: NewStatusTracker(),
		inline:  !verbose && IsTerminal(out),
		verbose: verbose,
	}
}

// Tracker exposes the underlying counters
func (p *ProgressDisplay) Tracker() *StatusTracker {
	return p.tracker
}

// PageStarted announces a listing page
func (p *ProgressDisplay) PageStarted(page, lastPage int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.tracker.StartPage(page, lastPage)
	p.title = ""
	fmt.Fprintf(p.out, "%s Scraping page %d (last %d)\n", Magenta("→"), page, lastPage)
}

// DetailDone records one finished job
func (p *ProgressDisplay) DetailDone(page, index, total int, title string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.tracker.RecordJob(total, err != nil)
	p.title = title

	switch {
	case err != nil:
		if p.inline {
			fmt.Fprint(p.out, "\n")
		}
		fmt.Fprintf(p.out, "%s page %d job %d/%d %s: %v\n", Red("✗"), page, index+1, total, truncate(title, 50), err)
	case p.inline:
		p.printInline()
	case p.verbose:
		fmt.Fprintf(p.out, "%s page %d job %d/%d %s\n", Green("✓"), page, index+1, total, truncate(title, 50))
	}
}

// PageDone reports a page that has been exported and checkpointed
func (p *ProgressDisplay) PageDone(page, totalPages, records int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.inline {
		fmt.Fprint(p.out, "\n")
	}
	fmt.Fprintf(p.out, "%s Page %d of %d saved • %d jobs\n", Green("✓"), page, totalPages, records)
}

// Complete prints the final summary
func (p *ProgressDisplay) Complete(pages int, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := p.tracker
	fmt.Fprintf(p.out, "\n%s Scraped %d jobs from %d pages (%s)\n", Green("✓"), st.TotalJobs, pages, reason)
	fmt.Fprintf(p.out, "  %s %s (%.1f jobs/min)\n", Dim("•"), formatDuration(st.GetElapsedTime()), st.GetJobRate())
	if st.FailedDetails > 0 {
		fmt.Fprintf(p.out, "  %s %d detail pages failed\n", Dim("•"), st.FailedDetails)
	}
}

func (p *ProgressDisplay) printInline() {
	line := fmt.Sprintf("%s %s • %.1f/min",
		Cyan(fmt.Sprintf("page %d", p.tracker.Page)),
		p.tracker.GetPageProgress(),
		p.tracker.GetJobRate(),
	)
	if p.title != "" {
		line += " • " + truncate(p.title, 40)
	}
	if p.tracker.FailedDetails > 0 {
		line += " • " + Red(fmt.Sprintf("%d failed", p.tracker.FailedDetails))
	}
	fmt.Fprintf(p.out, "\r%s\r%s", strings.Repeat(" ", 120), line)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
