package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// TimestampLayout formats the timestamp embedded in output file names
const TimestampLayout = "2006-01-02_15-04-05"

// RunFiles holds the output paths of one scrape run
type RunFiles struct {
	Stamp    string
	JSONL    string
	CSV      string
	Manifest string
}

// Manager owns the output directory and names the files written into it
type Manager struct {
	outputDir string
	prefix    string
	now       func() time.Time
	mu        sync.Mutex
}

// NewManager creates the output directory if needed
func NewManager(outputDir, prefix string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if prefix == "" {
		prefix = "dice_jobs"
	}

	return &Manager{
		outputDir: outputDir,
		prefix:    prefix,
		now:       time.Now,
	}, nil
}

// SetClock replaces the time source used for file names
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// NewRun returns timestamped file names for a run started now
func (m *Manager) NewRun() RunFiles {
	m.mu.Lock()
	stamp := m.now().Format(TimestampLayout)
	m.mu.Unlock()

	base := filepath.Join(m.outputDir, m.prefix+"_"+stamp)
	return RunFiles{
		Stamp:    stamp,
		JSONL:    base + ".jsonl",
		CSV:      base + ".csv",
		Manifest: base + "_manifest.json",
	}
}

// Path joins name onto the output directory
func (m *Manager) Path(name string) string {
	return filepath.Join(m.outputDir, name)
}

// OpenAppend opens path for appending, creating it if needed
func (m *Manager) OpenAppend(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s for append: %w", path, err)
	}
	return f, nil
}

// WriteAtomic writes path through a temporary sibling that is renamed into
// place once write succeeds.
func (m *Manager) WriteAtomic(path string, write func(io.Writer) error) error {
	tempFile := path + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	err = write(out)
	if err == nil {
		err = out.Sync()
	}
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

// ListRuns returns the JSONL files of previous runs, newest first
func (m *Manager) ListRuns() ([]string, error) {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var runs []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, m.prefix+"_") || filepath.Ext(name) != ".jsonl" {
			continue
		}
		runs = append(runs, filepath.Join(m.outputDir, name))
	}

	// Timestamps sort lexically
	sort.Sort(sort.Reverse(sort.StringSlice(runs)))
	return runs, nil
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}
