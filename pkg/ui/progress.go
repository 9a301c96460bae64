package ui

import (
	"fmt"
	"strings"
	"time"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
)

// StatusTracker keeps track of scraped pages and jobs
type StatusTracker struct {
	TotalJobs     int
	FailedDetails int
	PageJobs      int
	PageSize      int
	Page          int
	LastPage      int
	StartTime     time.Time

	now func() time.Time
}

// NewStatusTracker creates a new status tracker
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{
		StartTime: time.Now(),
		now:       time.Now,
	}
}

// StartPage resets the per-page counters
func (st *StatusTracker) StartPage(page, lastPage int) {
	st.Page = page
	st.LastPage = lastPage
	st.PageJobs = 0
	st.PageSize = 0
}

// RecordJob counts one processed job; failed marks a detail failure
func (st *StatusTracker) RecordJob(total int, failed bool) {
	st.TotalJobs++
	st.PageJobs++
	st.PageSize = total
	if failed {
		st.FailedDetails++
	}
}

// GetPageProgress returns a formatted progress bar for the current page
func (st *StatusTracker) GetPageProgress() string {
	const width = 20
	filled := 0
	if st.PageSize > 0 {
		filled = st.PageJobs * width / st.PageSize
	}
	if filled > width {
		filled = width
	}

	bar := strings.Repeat(ProgressBar, filled) +
		strings.Repeat(ProgressEmpty, width-filled)

	return fmt.Sprintf("[%s] %d/%d", bar, st.PageJobs, st.PageSize)
}

// GetElapsedTime returns the elapsed time since tracking started
func (st *StatusTracker) GetElapsedTime() time.Duration {
	return st.now().Sub(st.StartTime)
}

// GetJobRate returns the average number of jobs scraped per minute
func (st *StatusTracker) GetJobRate() float64 {
	elapsed := st.GetElapsedTime().Minutes()
	if elapsed <= 0 {
		return 0
	}
	return float64(st.TotalJobs) / elapsed
}
