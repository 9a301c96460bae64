package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"dicescraper/pkg/models"
)

// WriteCSV writes records as CSV. The header is the union of all record keys
// in first-seen order; records lacking a column get an empty cell.
func WriteCSV(w io.Writer, records []*models.Record) error {
	header := models.UnionKeys(records)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	row := make([]string, len(header))
	for _, rec := range records {
		for i, key := range header {
			row[i] = rec.GetString(key)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
