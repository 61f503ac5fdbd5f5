package datatable

import (
	"fmt"
	"html/template"
	"strings"
	"time"
)

// DefaultPlaceholder is rendered for missing cell values.
const DefaultPlaceholder = "-"

// State is the body state of a rendered Table.
type State string

const (
	StateLoading State = "loading"
	StateEmpty   State = "empty"
	StateRows    State = "rows"
)

// View is a rendered Table, ready to be written as HTML, text or JSON.
type View struct {
	State         State           `json:"state"`
	Columns       []HeaderCell    `json:"columns"`
	Rows          []RowView       `json:"rows"`
	ColSpan       int             `json:"colspan"` // number of columns, +1 with selection
	Sort          Sort            `json:"sort"`
	Message       string          `json:"message,omitempty"` // loading or empty text
	Selectable    bool            `json:"selectable"`
	AllSelected   bool            `json:"all_selected"`
	SomeSelected  bool            `json:"some_selected"` // some, not all, visible rows selected
	SelectedCount int             `json:"selected_count"`
	Toolbar       Toolbar         `json:"toolbar"`
	Pagination    *PaginationView `json:"pagination,omitempty"`
}

type HeaderCell struct {
	Key      string    `json:"key"`
	Title    string    `json:"title"`
	Sortable bool      `json:"sortable"`
	Sorted   Direction `json:"sorted,omitempty"`
	Width    string    `json:"width,omitempty"`
	Align    Align     `json:"align"`
}

type RowView struct {
	Key       string `json:"key"`
	Index     int    `json:"index"`
	Cells     []Cell `json:"cells"`
	Selected  bool   `json:"selected"`
	Clickable bool   `json:"clickable"`
	ClassName string `json:"class_name,omitempty"`
}

// Cell holds either escaped Text or trusted HTML.
type Cell struct {
	Key   string        `json:"key"`
	Text  string        `json:"text,omitempty"`
	HTML  template.HTML `json:"html,omitempty"`
	Align Align         `json:"align"`
}

// Content returns the cell as markup, escaping Text.
func (c Cell) Content() template.HTML {
	if c.HTML != "" {
		return c.HTML
	}
	return template.HTML(template.HTMLEscapeString(c.Text))
}

type Toolbar struct {
	Search            bool         `json:"search"`
	SearchPlaceholder string       `json:"search_placeholder,omitempty"`
	SearchValue       string       `json:"search_value,omitempty"`
	Filters           []FilterView `json:"filters,omitempty"`
	Export            bool         `json:"export"`
	ExportTitle       string       `json:"export_title,omitempty"`
	Refresh           bool         `json:"refresh"`
}

type FilterView struct {
	Key      string         `json:"key"`
	Title    string         `json:"title"`
	Multiple bool           `json:"multiple"`
	Options  []FilterOption `json:"options"`
	Active   []string       `json:"active,omitempty"`
}

// IsActive reports whether value is one of the active filter values.
func (f FilterView) IsActive(value string) bool {
	for _, v := range f.Active {
		if v == value {
			return true
		}
	}
	return false
}

// Empty reports whether the toolbar has no control at all.
func (tb Toolbar) Empty() bool {
	return !tb.Search && len(tb.Filters) == 0 && !tb.Export && !tb.Refresh
}

// cellContent turns a render result into a Cell.
func cellContent(key string, align Align, v any, placeholder string) Cell {
	c := Cell{Key: key, Align: align}
	switch val := v.(type) {
	case template.HTML:
		if val == "" {
			c.Text = placeholder
		} else {
			c.HTML = val
		}
	default:
		c.Text = display(v, placeholder)
	}
	return c
}

// display coerces a field value to text. Null values, empty strings and zero
// times render as placeholder; zero numbers and false do not.
func display(v any, placeholder string) string {
	val, ok := normalize(v)
	if !ok {
		return placeholder
	}
	var s string
	switch x := val.(type) {
	case string:
		s = x
	case time.Time:
		if x.IsZero() {
			return placeholder
		}
		s = x.Format("2006-01-02 15:04")
	case []string:
		s = strings.Join(x, ", ")
	case []byte:
		s = string(x)
	case fmt.Stringer:
		s = x.String()
	default:
		s = fmt.Sprint(x)
	}
	if s == "" {
		return placeholder
	}
	return s
}
