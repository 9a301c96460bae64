package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"dicescraper/pkg/models"
)

// JSONLWriter appends records to a JSON-lines file. Each batch is flushed and
// synced before Append returns.
type JSONLWriter struct {
	file *os.File
	buf  *bufio.Writer
	enc  *json.Encoder
	rows int
}

// NewJSONLWriter writes to f, which must be open for appending. The writer
// owns f and closes it.
func NewJSONLWriter(f *os.File) *JSONLWriter {
	buf := bufio.NewWriter(f)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)

	return &JSONLWriter{file: f, buf: buf, enc: enc}
}

// Append writes one line per record
func (w *JSONLWriter) Append(records []*models.Record) error {
	if len(records) == 0 {
		return nil
	}
	for _, rec := range records {
		if err := w.enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
	}
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush jsonl file: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync jsonl file: %w", err)
	}
	w.rows += len(records)
	return nil
}

// Rows returns the number of records written through this writer
func (w *JSONLWriter) Rows() int {
	return w.rows
}

// Close flushes and closes the file
func (w *JSONLWriter) Close() error {
	if w.file == nil {
		return nil
	}
	flushErr := w.buf.Flush()
	closeErr := w.file.Close()
	w.file = nil
	if flushErr != nil {
		return fmt.Errorf("failed to flush jsonl file: %w", flushErr)
	}
	return closeErr
}

// ReadJSONL loads every record of a JSON-lines file
func ReadJSONL(path string) ([]*models.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open jsonl file: %w", err)
	}
	defer f.Close()

	var records []*models.Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		rec := models.NewRecord()
		if err := json.Unmarshal(scanner.Bytes(), rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read jsonl file: %w", err)
	}
	return records, nil
}
