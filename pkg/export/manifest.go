package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Manifest summarizes one scrape run next to its output files
type Manifest struct {
	RunID             string            `json:"run_id"`
	Query             map[string]string `json:"query"`
	StartPage         int               `json:"start_page"`
	PageBudget        int               `json:"page_budget"`
	PagesCompleted    int               `json:"pages_completed"`
	LastCompletedPage int               `json:"last_completed_page"`
	TotalPages        int               `json:"total_pages"`
	StopReason        string            `json:"stop_reason,omitempty"`
	Records           int               `json:"records"`
	FailedDetails     int               `json:"failed_details"`
	JSONLPath         string            `json:"jsonl_path,omitempty"`
	CSVPath           string            `json:"csv_path,omitempty"`
	SQLitePath        string            `json:"sqlite_path,omitempty"`
	StartedAt         time.Time         `json:"started_at"`
	FinishedAt        time.Time         `json:"finished_at"`
	Error             string            `json:"error,omitempty"`
}

// Duration returns how long the run took
func (m *Manifest) Duration() time.Duration {
	if m.FinishedAt.IsZero() {
		return 0
	}
	return m.FinishedAt.Sub(m.StartedAt)
}

// LoadManifest reads a manifest file
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	return &m, nil
}
