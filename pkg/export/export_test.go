package export

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"strings"
	"testing"
	"time"

	"dicescraper/pkg/errors"
	"dicescraper/pkg/logger"
	"dicescraper/pkg/models"
	"dicescraper/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(pairs ...interface{}) *models.Record {
	rec := models.NewRecord()
	for i := 0; i+1 < len(pairs); i += 2 {
		rec.Set(pairs[i].(string), pairs[i+1])
	}
	return rec
}

func newExporter(t *testing.T, opts Options) (*Exporter, *storage.Manager) {
	t.Helper()
	store, err := storage.NewManager(t.TempDir(), "dice_jobs")
	require.NoError(t, err)
	store.SetClock(func() time.Time { return time.Date(2024, 5, 1, 13, 45, 10, 0, time.UTC) })
	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}
	return New(store, opts), store
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	return lines
}

func TestExporterAppendsPerPage(t *testing.T) {
	exp, _ := newExporter(t, Options{RunID: "run-1"})
	require.NoError(t, exp.Open())
	defer exp.Close()

	ctx := context.Background()
	require.NoError(t, exp.Append(ctx, 1, []*models.Record{
		record("title", "Java Dev", "url", "https://x/1"),
		record("title", "Go <Dev>", "location", "Zürich, CH"),
	}))

	// Durable before the next page is fetched
	lines := readLines(t, exp.Paths().JSONL)
	require.Len(t, lines, 2)
	assert.Equal(t, `{"title":"Java Dev","url":"https://x/1"}`, lines[0])
	assert.Equal(t, `{"title":"Go <Dev>","location":"Zürich, CH"}`, lines[1])

	require.NoError(t, exp.Append(ctx, 2, nil))
	require.NoError(t, exp.Append(ctx, 3, []*models.Record{record("title", "Third")}))

	lines = readLines(t, exp.Paths().JSONL)
	assert.Len(t, lines, 3)
	assert.True(t, strings.HasSuffix(exp.Paths().JSONL, "dice_jobs_2024-05-01_13-45-10.jsonl"))
}

func TestExporterAppendsToExistingRunFile(t *testing.T) {
	log := logger.NewTestLogger()
	exp, store := newExporter(t, Options{RunID: "run-2", Logger: log})

	path := store.NewRun().JSONL
	require.NoError(t, os.WriteFile(path, []byte(`{"title":"Earlier"}`+"\n"), 0644))

	require.NoError(t, exp.Open())
	defer exp.Close()
	require.NoError(t, exp.Append(context.Background(), 4, []*models.Record{record("title", "Later")}))

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.Equal(t, `{"title":"Earlier"}`, lines[0])
	assert.Equal(t, `{"title":"Later"}`, lines[1])

	msg, ok := log.FindMessage("JSONL write complete")
	require.True(t, ok)
	assert.Equal(t, 1, msg.Fields["total_rows"])
	assert.Equal(t, 4, msg.Fields["page"])
}

func TestExporterAppendBeforeOpen(t *testing.T) {
	exp, _ := newExporter(t, Options{})
	err := exp.Append(context.Background(), 1, []*models.Record{record("a", "b")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrorTypeExport))
}

func TestSnapshotUsesKeyUnion(t *testing.T) {
	exp, _ := newExporter(t, Options{})
	require.NoError(t, exp.Open())
	defer exp.Close()

	records := []*models.Record{
		record("title", "A", "url", "N/A"),
		record("title", "B", "url", "https://x/2", "Job Title", "Senior B", "Position Types", []string{"C2C", "W2"}),
		record("title", "C", "error", "No job header card found"),
	}

	path, err := exp.Snapshot(records)
	require.NoError(t, err)
	assert.Equal(t, path, exp.Paths().CSV)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 4)
	assert.Equal(t, []string{"title", "url", "Job Title", "Position Types", "error"}, rows[0])
	assert.Equal(t, []string{"A", "N/A", "", "", ""}, rows[1])
	assert.Equal(t, []string{"B", "https://x/2", "Senior B", "C2C; W2", ""}, rows[2])
	assert.Equal(t, []string{"C", "", "", "", "No job header card found"}, rows[3])
}

func TestSnapshotWithoutRecords(t *testing.T) {
	log := logger.NewTestLogger()
	exp, store := newExporter(t, Options{Logger: log})
	require.NoError(t, exp.Open())
	defer exp.Close()

	path, err := exp.Snapshot(nil)
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.True(t, log.HasMessage("No jobs to write to CSV"))

	_, statErr := os.Stat(store.NewRun().CSV)
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriteCSVQuoting(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []*models.Record{
		record("Job Description", "line one\nline \"two\", three"),
	}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "line one\nline \"two\", three", rows[1][0])
}

func TestReadJSONLRoundTrip(t *testing.T) {
	exp, _ := newExporter(t, Options{})
	require.NoError(t, exp.Open())

	require.NoError(t, exp.Append(context.Background(), 1, []*models.Record{
		record("title", "A", "Primary Skill Set", []string{"Java", "Spring"}),
	}))
	require.NoError(t, exp.Close())

	records, err := ReadJSONL(exp.Paths().JSONL)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"title", "Primary Skill Set"}, records[0].Keys())
	skills, _ := records[0].Get("Primary Skill Set")
	assert.Equal(t, []string{"Java", "Spring"}, skills)
}

func TestSQLiteMirror(t *testing.T) {
	exp, _ := newExporter(t, Options{RunID: "run-42", SQLite: true})
	require.NoError(t, exp.Open())
	defer exp.Close()

	ctx := context.Background()
	require.NoError(t, exp.Append(ctx, 1, []*models.Record{
		record("title", "A", "url", "https://x/1"),
		record("title", "B", "url", "N/A"),
	}))
	// Same URL on a later page updates the existing row
	require.NoError(t, exp.Append(ctx, 2, []*models.Record{
		record("title", "A2", "url", "https://x/1"),
	}))

	n, err := exp.mirror.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var title string
	var page int
	row := exp.mirror.db.QueryRowContext(ctx, `SELECT title, page FROM jobs WHERE id = ?`, "https://x/1")
	require.NoError(t, row.Scan(&title, &page))
	assert.Equal(t, "A2", title)
	assert.Equal(t, 2, page)

	assert.NotEmpty(t, exp.Paths().SQLite)
	_, err = os.Stat(exp.Paths().SQLite)
	assert.NoError(t, err)
}

func TestManifest(t *testing.T) {
	exp, _ := newExporter(t, Options{RunID: "run-7"})
	require.NoError(t, exp.Open())
	defer exp.Close()

	started := time.Date(2024, 5, 1, 13, 45, 10, 0, time.UTC)
	path, err := exp.WriteManifest(&Manifest{
		Query:             map[string]string{"q": "Java"},
		StartPage:         3,
		PageBudget:        2,
		PagesCompleted:    2,
		LastCompletedPage: 4,
		StopReason:        "budget",
		Records:           10,
		StartedAt:         started,
		FinishedAt:        started.Add(90 * time.Second),
	})
	require.NoError(t, err)

	loaded, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "run-7", loaded.RunID)
	assert.Equal(t, 4, loaded.LastCompletedPage)
	assert.Equal(t, 90*time.Second, loaded.Duration())

	_, err = LoadManifest(path + ".missing")
	assert.Error(t, err)
}

func TestNewGeneratesRunID(t *testing.T) {
	exp, _ := newExporter(t, Options{})
	assert.Len(t, exp.RunID(), 36)
}
