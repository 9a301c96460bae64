package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"dicescraper/pkg/errors"
	"dicescraper/pkg/logger"
	"dicescraper/pkg/models"
	"dicescraper/pkg/storage"
	"github.com/google/uuid"
)

// Options configures an Exporter
type Options struct {
	// RunID tags SQLite rows and the manifest; generated when empty
	RunID string
	// SQLite enables the database mirror at <dir>/<prefix>.db
	SQLite bool
	// SQLiteName overrides the database file name
	SQLiteName string
	Logger     logger.Logger
}

// Paths lists the files an Exporter writes
type Paths struct {
	JSONL    string
	CSV      string
	Manifest string
	SQLite   string
}

// Exporter writes page batches to a JSON-lines file as they complete,
// mirrors them into SQLite when enabled and writes the final CSV snapshot.
type Exporter struct {
	storage *storage.Manager
	opts    Options
	files   storage.RunFiles
	jsonl   *JSONLWriter
	mirror  *SQLiteMirror
	dbPath  string
	csvPath string
	logger  logger.Logger
}

// New creates an exporter writing into the storage manager's directory.
// Nothing is created on disk until Open.
func New(store *storage.Manager, opts Options) *Exporter {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}
	if opts.SQLiteName == "" {
		opts.SQLiteName = "dice_jobs.db"
	}

	return &Exporter{
		storage: store,
		opts:    opts,
		logger:  opts.Logger.WithField("component", "export"),
	}
}

// RunID returns the identifier of this run
func (e *Exporter) RunID() string {
	return e.opts.RunID
}

// Open creates the run's JSONL file and, if enabled, the SQLite mirror
func (e *Exporter) Open() error {
	e.files = e.storage.NewRun()

	f, err := e.storage.OpenAppend(e.files.JSONL)
	if err != nil {
		return errors.New(errors.ErrorTypeExport, "open jsonl", err)
	}
	e.jsonl = NewJSONLWriter(f)

	if e.opts.SQLite {
		dbPath := e.storage.Path(e.opts.SQLiteName)
		mirror, err := OpenSQLite(dbPath, e.opts.RunID)
		if err != nil {
			e.jsonl.Close()
			return errors.New(errors.ErrorTypeExport, "open sqlite", err)
		}
		e.mirror = mirror
		e.dbPath = dbPath
	}

	e.logger.InfoWithFields("Export files opened", map[string]interface{}{
		"jsonl":  e.files.JSONL,
		"run_id": e.opts.RunID,
		"sqlite": e.opts.SQLite,
	})
	return nil
}

// Append persists one completed page. The JSONL lines are durable when it
// returns.
func (e *Exporter) Append(ctx context.Context, page int, records []*models.Record) error {
	if e.jsonl == nil {
		return errors.New(errors.ErrorTypeExport, "append", fmt.Errorf("exporter is not open"))
	}
	if len(records) == 0 {
		e.logger.WithField("page", page).Debug("No records to append")
		return nil
	}

	if err := e.jsonl.Append(records); err != nil {
		return errors.New(errors.ErrorTypeExport, "append jsonl", err)
	}
	if e.mirror != nil {
		if err := e.mirror.Upsert(ctx, page, records); err != nil {
			return errors.New(errors.ErrorTypeExport, "upsert sqlite", err)
		}
	}

	e.logger.DebugWithFields("JSONL write complete", map[string]interface{}{
		"page":       page,
		"records":    len(records),
		"total_rows": e.jsonl.Rows(),
		"path":       e.files.JSONL,
	})
	return nil
}

// Snapshot writes every record of the run to the CSV file. With no records
// no file is written and the returned path is empty.
func (e *Exporter) Snapshot(records []*models.Record) (string, error) {
	if len(records) == 0 {
		e.logger.Warn("No jobs to write to CSV")
		return "", nil
	}

	path := e.files.CSV
	if path == "" {
		path = e.storage.NewRun().CSV
	}

	err := e.storage.WriteAtomic(path, func(w io.Writer) error {
		return WriteCSV(w, records)
	})
	if err != nil {
		return "", errors.New(errors.ErrorTypeExport, "write csv", err)
	}

	e.csvPath = path
	e.logger.InfoWithFields("CSV written", map[string]interface{}{
		"path":    path,
		"records": len(records),
		"columns": len(models.UnionKeys(records)),
	})
	return path, nil
}

// WriteManifest stores m next to the run's other files
func (e *Exporter) WriteManifest(m *Manifest) (string, error) {
	path := e.files.Manifest
	if path == "" {
		path = e.storage.NewRun().Manifest
	}
	if m.RunID == "" {
		m.RunID = e.opts.RunID
	}

	err := e.storage.WriteAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(m)
	})
	if err != nil {
		return "", errors.New(errors.ErrorTypeExport, "write manifest", err)
	}
	return path, nil
}

// Paths returns the files written so far
func (e *Exporter) Paths() Paths {
	return Paths{
		JSONL:    e.files.JSONL,
		CSV:      e.csvPath,
		Manifest: e.files.Manifest,
		SQLite:   e.dbPath,
	}
}

// Close releases the JSONL file and the database
func (e *Exporter) Close() error {
	var firstErr error
	if e.jsonl != nil {
		if err := e.jsonl.Close(); err != nil {
			firstErr = err
		}
		e.jsonl = nil
	}
	if e.mirror != nil {
		if err := e.mirror.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		e.mirror = nil
	}
	return firstErr
}
