package export

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"dicescraper/pkg/models"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL,
	page       INTEGER NOT NULL,
	title      TEXT,
	company    TEXT,
	location   TEXT,
	record     TEXT NOT NULL,
	scraped_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS jobs_run_page ON jobs(run_id, page);
`

const upsertJob = `
INSERT INTO jobs (id, run_id, page, title, company, location, record, scraped_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	run_id = excluded.run_id,
	page = excluded.page,
	title = excluded.title,
	company = excluded.company,
	location = excluded.location,
	record = excluded.record,
	scraped_at = excluded.scraped_at`

// SQLiteMirror keeps a queryable copy of every exported record, keyed by the
// job URL so re-scraped jobs are updated rather than duplicated.
type SQLiteMirror struct {
	db    *sql.DB
	runID string
	now   func() time.Time
}

// OpenSQLite opens (or creates) the database at path
func OpenSQLite(path, runID string) (*SQLiteMirror, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create sqlite schema: %w", err)
	}

	return &SQLiteMirror{db: db, runID: runID, now: time.Now}, nil
}

// Upsert stores one page of records in a single transaction
func (m *SQLiteMirror) Upsert(ctx context.Context, page int, records []*models.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertJob)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	scrapedAt := m.now().UTC().Format(time.RFC3339)
	for i, rec := range records {
		data, err := rec.MarshalJSON()
		if err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			recordID(m.runID, page, i, rec),
			m.runID,
			page,
			rec.GetString(models.KeyTitle),
			rec.GetString(models.KeyCompany),
			rec.GetString(models.KeyLocation),
			string(data),
			scrapedAt,
		); err != nil {
			return fmt.Errorf("failed to upsert record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Count returns the number of stored jobs
func (m *SQLiteMirror) Count(ctx context.Context) (int, error) {
	var n int
	if err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}
	return n, nil
}

// Close closes the database
func (m *SQLiteMirror) Close() error {
	if m == nil || m.db == nil {
		return nil
	}
	return m.db.Close()
}

func recordID(runID string, page, index int, rec *models.Record) string {
	if url := rec.GetString(models.KeyURL); url != "" && url != models.Unavailable {
		return url
	}
	return fmt.Sprintf("%s:page:%d:%d", runID, page, index)
}
