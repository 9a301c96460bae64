package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"time"

	"dicescraper/pkg/logger"
	"github.com/gofrs/flock"
)

// DefaultPath is the checkpoint file used when none is configured
const DefaultPath = "progress.json"

const (
	currentVersion = 1
	lockTimeout    = 5 * time.Second
	lockRetry      = 50 * time.Millisecond
)

// Checkpoint records the last listing page whose records were exported,
// together with the query that produced it.
type Checkpoint struct {
	LastCompletedPage int               `json:"last_completed_page"`
	Query             map[string]string `json:"query"`
	UpdatedAt         time.Time         `json:"updated_at,omitempty"`
	Version           int               `json:"version,omitempty"`
}

// MatchesQuery reports whether the checkpoint was written for q
func (c *Checkpoint) MatchesQuery(q map[string]string) bool {
	return maps.Equal(c.Query, q)
}

// NextPage is the first page a resumed run should fetch
func (c *Checkpoint) NextPage() int {
	return c.LastCompletedPage + 1
}

// onDisk mirrors Checkpoint with a pointer page so a missing field is
// distinguishable from zero.
type onDisk struct {
	LastCompletedPage *int              `json:"last_completed_page"`
	Query             map[string]string `json:"query"`
	UpdatedAt         time.Time         `json:"updated_at"`
	Version           int               `json:"version"`
}

// Manager reads and writes a single checkpoint file
type Manager struct {
	checkpointPath string
	lock           *flock.Flock
	logger         logger.Logger
}

// NewManager creates a checkpoint manager for path. The parent directory is
// created if needed.
func NewManager(path string, log logger.Logger) (*Manager, error) {
	if path == "" {
		path = DefaultPath
	}
	if log == nil {
		log = logger.GetLogger()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
		}
	}

	return &Manager{
		checkpointPath: path,
		lock:           flock.New(path + ".lock"),
		logger:         log.WithField("component", "checkpoint"),
	}, nil
}

// Path returns the checkpoint file path
func (m *Manager) Path() string {
	return m.checkpointPath
}

// Load returns the stored checkpoint, or nil when there is nothing usable to
// resume from. A missing file is normal; unreadable, malformed or incomplete
// files are reported as warnings and treated as absent.
func (m *Manager) Load() *Checkpoint {
	data, err := os.ReadFile(m.checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			m.logger.WithField("path", m.checkpointPath).Info("No checkpoint found, starting fresh")
			return nil
		}
		m.logger.WithError(err).WithField("path", m.checkpointPath).Warn("Failed to read checkpoint, starting fresh")
		return nil
	}

	var raw onDisk
	if err := json.Unmarshal(data, &raw); err != nil {
		m.logger.WithError(err).WithField("path", m.checkpointPath).Warn("Corrupt checkpoint, starting fresh")
		return nil
	}
	if raw.LastCompletedPage == nil {
		m.logger.WithField("path", m.checkpointPath).Warn("Checkpoint has no last_completed_page, starting fresh")
		return nil
	}
	if *raw.LastCompletedPage < 0 {
		m.logger.WithField("last_completed_page", *raw.LastCompletedPage).Warn("Checkpoint page is negative, starting fresh")
		return nil
	}

	cp := &Checkpoint{
		LastCompletedPage: *raw.LastCompletedPage,
		Query:             raw.Query,
		UpdatedAt:         raw.UpdatedAt,
		Version:           raw.Version,
	}
	if cp.Query == nil {
		cp.Query = map[string]string{}
	}

	m.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"last_completed_page": cp.LastCompletedPage,
		"updated_at":          cp.UpdatedAt,
	})
	return cp
}

// Save replaces the checkpoint with page and query. The file is written to a
// temporary sibling, synced and renamed so readers never observe a partial
// write.
func (m *Manager) Save(page int, query map[string]string) error {
	if page < 0 {
		return fmt.Errorf("invalid checkpoint page %d", page)
	}

	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()
	locked, err := m.lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return fmt.Errorf("failed to lock checkpoint: %w", err)
	}
	if !locked {
		return fmt.Errorf("checkpoint %s is locked by another process", m.checkpointPath)
	}
	defer m.lock.Unlock()

	cp := Checkpoint{
		LastCompletedPage: page,
		Query:             maps.Clone(query),
		UpdatedAt:         time.Now().UTC(),
		Version:           currentVersion,
	}
	if cp.Query == nil {
		cp.Query = map[string]string{}
	}

	file, err := os.CreateTemp(filepath.Dir(m.checkpointPath), filepath.Base(m.checkpointPath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}
	tempPath := file.Name()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(cp); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, m.checkpointPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}

	m.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"last_completed_page": page,
		"path":                m.checkpointPath,
	})
	return nil
}

// Delete removes the checkpoint file
func (m *Manager) Delete() error {
	if err := os.Remove(m.checkpointPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	os.Remove(m.checkpointPath + ".lock")

	m.logger.Info("Checkpoint deleted")
	return nil
}

// Exists checks if a checkpoint file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.checkpointPath)
	return err == nil
}

// Backup copies the current checkpoint to <path>.backup
func (m *Manager) Backup() error {
	if !m.Exists() {
		return nil
	}

	src, err := os.Open(m.checkpointPath)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint for backup: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(m.checkpointPath + ".backup")
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to copy checkpoint to backup: %w", err)
	}

	m.logger.Debug("Checkpoint backed up")
	return nil
}
