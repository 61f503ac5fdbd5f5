package datatable

import (
	"encoding/csv"
	"io"

	"github.com/pkg/errors"
)

// WriteCSV writes records as CSV, one column per descriptor, using the same
// cell rendering as the table (markup stripped). Typically called from an export action
// with SelectedRecords or Rows.
func (t *Table[K, T]) WriteCSV(w io.Writer, records []T) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(t.columns))
	for _, col := range t.columns {
		header = append(header, col.Title)
	}
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "writing csv header")
	}

	for i, rec := range records {
		cells := t.cells(rec, i)
		line := make([]string, 0, len(cells))
		for _, c := range cells {
			line = append(line, c.PlainText())
		}
		if err := cw.Write(line); err != nil {
			return errors.Wrap(err, "writing csv row")
		}
	}

	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing csv")
}
