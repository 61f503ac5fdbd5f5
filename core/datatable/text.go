package datatable

import (
	"fmt"
	"io"

	strip "github.com/grokify/html-strip-tags-go"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
)

// WriteText writes v as a plain text table (terminal output).
func WriteText(w io.Writer, v View) error {
	tbl := tablewriter.NewWriter(w)

	header := make([]any, 0, v.ColSpan)
	if v.Selectable {
		header = append(header, selectMark(v.AllSelected, v.SomeSelected))
	}
	for _, hc := range v.Columns {
		title := hc.Title
		if ind := sortIndicator(hc.Sorted); ind != "" {
			title += " " + ind
		}
		header = append(header, title)
	}
	tbl.Header(header...)

	switch v.State {
	case StateRows:
		for _, row := range v.Rows {
			cells := make([]string, 0, v.ColSpan)
			if v.Selectable {
				cells = append(cells, selectMark(row.Selected, false))
			}
			for _, c := range row.Cells {
				cells = append(cells, c.PlainText())
			}
			if err := tbl.Append(cells); err != nil {
				return errors.Wrap(err, "appending table row")
			}
		}
	default:
		cells := make([]string, v.ColSpan)
		cells[0] = v.Message
		if err := tbl.Append(cells); err != nil {
			return errors.Wrap(err, "appending table row")
		}
	}

	if pv := v.Pagination; pv != nil {
		footer := make([]any, v.ColSpan)
		for i := range footer {
			footer[i] = ""
		}
		footer[0] = fmt.Sprintf("page %d/%d", pv.Page, pv.Pages)
		if v.ColSpan > 1 {
			footer[v.ColSpan-1] = fmt.Sprintf("%d-%d of %d", pv.From, pv.To, pv.Total)
		}
		tbl.Footer(footer...)
	}

	if err := tbl.Render(); err != nil {
		return errors.Wrap(err, "rendering table")
	}
	return nil
}

func selectMark(selected, partial bool) string {
	switch {
	case selected:
		return "[x]"
	case partial:
		return "[-]"
	}
	return "[ ]"
}

// PlainText returns the cell text with any markup stripped.
func (c Cell) PlainText() string {
	if c.HTML != "" {
		return strip.StripTags(string(c.HTML))
	}
	return c.Text
}
