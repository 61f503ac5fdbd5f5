// Package datatable implements a generic table over uniquely keyed records:
// client-side sorting, row selection, caller-driven pagination and toolbar actions
// (search, filters, export, refresh), rendered to a View that can be written as HTML, text or CSV.
//
// A Table never mutates or filters its records. Everything that needs data access
// (searching, filtering, paging, exporting) is delegated to caller callbacks, which are
// always invoked outside the Table's lock so they may call back into it (e.g. SetData).
package datatable

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

// RowProps are the per-row extras returned by Options.OnRow.
type RowProps struct {
	OnClick   func()
	ClassName string
}

// Options configure a Table.
type Options[K comparable, T any] struct {
	Columns []Column[T]
	// RowKey returns the unique key of a record. Required.
	RowKey func(T) K

	Pagination *Pagination
	Selection  *Selection[K, T]
	Actions    *Actions
	OnRow      func(record T, index int) RowProps

	EmptyText   string
	LoadingText string
	Placeholder string
}

// Table is a sortable, selectable table over records of type T keyed by K.
type Table[K comparable, T any] struct {
	mu sync.Mutex

	columns     []Column[T]
	colIndex    map[string]int
	rowKey      func(T) K
	onRow       func(T, int) RowProps
	actions     *Actions
	selection   *Selection[K, T]
	pagination  *Pagination
	emptyText   string
	loadingText string
	placeholder string

	data     []T
	rows     []T // sorted data, nil when stale
	loading  bool
	sort     Sort
	selected *keySet[K]
	search   string
	filters  map[string][]string
}

// New creates a Table. Data is set with SetData.
func New[K comparable, T any](opts Options[K, T]) (*Table[K, T], error) {
	if opts.RowKey == nil {
		return nil, errors.Wrap(ErrInvalidOptions, "RowKey is required")
	}
	if len(opts.Columns) == 0 {
		return nil, errors.Wrap(ErrInvalidOptions, "at least one column is required")
	}

	colIndex := make(map[string]int, len(opts.Columns))
	for i, col := range opts.Columns {
		if col.Key == "" {
			return nil, errors.Wrapf(ErrInvalidOptions, "column #%d has no key", i)
		}
		if _, dup := colIndex[col.Key]; dup {
			return nil, errors.Wrapf(ErrInvalidOptions, "duplicate column key %q", col.Key)
		}
		if col.Sortable && col.Value == nil {
			return nil, errors.Wrapf(ErrInvalidOptions, "sortable column %q has no Value", col.Key)
		}
		colIndex[col.Key] = i
	}

	t := &Table[K, T]{
		columns:     append([]Column[T](nil), opts.Columns...),
		colIndex:    colIndex,
		rowKey:      opts.RowKey,
		onRow:       opts.OnRow,
		actions:     opts.Actions,
		selection:   opts.Selection,
		emptyText:   opts.EmptyText,
		loadingText: opts.LoadingText,
		placeholder: opts.Placeholder,
		filters:     make(map[string][]string),
	}
	if t.emptyText == "" {
		t.emptyText = "No data"
	}
	if t.loadingText == "" {
		t.loadingText = "Loading..."
	}
	if t.placeholder == "" {
		t.placeholder = DefaultPlaceholder
	}
	if opts.Pagination != nil {
		p := *opts.Pagination
		t.pagination = &p
	}
	if opts.Selection != nil {
		t.selected = newKeySet(opts.Selection.InitialKeys)
	}
	return t, nil
}

// Columns returns the column descriptors.
func (t *Table[K, T]) Columns() []Column[T] {
	return append([]Column[T](nil), t.columns...)
}

// Column returns the column with the given key.
func (t *Table[K, T]) Column(key string) (Column[T], bool) {
	i, ok := t.colIndex[key]
	if !ok {
		return Column[T]{}, false
	}
	return t.columns[i], true
}

// SetData replaces the records. Selected keys missing from data stay selected
// until the caller resets the selection.
func (t *Table[K, T]) SetData(data []T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data = append([]T(nil), data...)
	t.rows = nil
}

// Data returns the records in their original order.
func (t *Table[K, T]) Data() []T {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]T(nil), t.data...)
}

func (t *Table[K, T]) SetLoading(loading bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loading = loading
}

func (t *Table[K, T]) Loading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loading
}

// SetPagination updates the page controls after the caller loaded a page.
func (t *Table[K, T]) SetPagination(page, pageSize, total int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pagination == nil {
		return ErrNoPagination
	}
	t.pagination.Page = page
	t.pagination.PageSize = pageSize
	t.pagination.Total = total
	return nil
}

// Sorting

// Sort returns the active sort (zero when none).
func (t *Table[K, T]) Sort() Sort {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sort
}

// ClickHeader handles a click on the header of the column key.
// It sorts ascending by a newly clicked column and flips the direction of the active one.
// Clicking a column that is not sortable does nothing.
func (t *Table[K, T]) ClickHeader(key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	col, ok := t.Column(key)
	if !ok {
		return errors.Wrapf(ErrUnknownColumn, "column %q", key)
	}
	if !col.Sortable {
		return nil
	}
	t.sort = t.sort.next(key)
	t.rows = nil
	return nil
}

// SetSort restores a sort state, e.g. from an ordering query param.
func (t *Table[K, T]) SetSort(s Sort) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !s.IsZero() {
		col, ok := t.Column(s.Key)
		if !ok || !col.Sortable {
			return errors.Wrapf(ErrUnknownColumn, "sortable column %q", s.Key)
		}
		if s.Direction != Descending {
			s.Direction = Ascending
		}
	}
	t.sort = s
	t.rows = nil
	return nil
}

// Rows returns the records in display order.
func (t *Table[K, T]) Rows() []T {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]T(nil), t.sortedRows()...)
}

func (t *Table[K, T]) sortedRows() []T {
	if t.rows != nil {
		return t.rows
	}
	col, ok := t.Column(t.sort.Key)
	if t.sort.IsZero() || !ok {
		t.rows = append(make([]T, 0, len(t.data)), t.data...)
	} else {
		t.rows = sortRecords(t.data, col, t.sort.Direction)
	}
	return t.rows
}

// Selection

// Selected returns the selected keys in selection order.
func (t *Table[K, T]) Selected() []K {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.selected == nil {
		return nil
	}
	return t.selected.slice()
}

// SelectedRecords returns the records of the current data whose key is selected, in data order.
func (t *Table[K, T]) SelectedRecords() []T {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.selectedRecords()
}

func (t *Table[K, T]) selectedRecords() []T {
	if t.selected == nil {
		return nil
	}
	records := make([]T, 0, t.selected.len())
	for _, rec := range t.data {
		if t.selected.has(t.rowKey(rec)) {
			records = append(records, rec)
		}
	}
	return records
}

func (t *Table[K, T]) IsSelected(key K) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.selected != nil && t.selected.has(key)
}

// AllSelected reports whether every record of a non empty data set is selected.
func (t *Table[K, T]) AllSelected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.allSelected()
}

func (t *Table[K, T]) allSelected() bool {
	return t.selected != nil && len(t.data) > 0 && t.visibleSelected() == len(t.data)
}

func (t *Table[K, T]) visibleSelected() int {
	var n int
	for _, rec := range t.data {
		if t.selected.has(t.rowKey(rec)) {
			n++
		}
	}
	return n
}

// ToggleRow selects or deselects the record with the given key.
func (t *Table[K, T]) ToggleRow(key K) error {
	t.mu.Lock()
	if t.selected == nil {
		t.mu.Unlock()
		return ErrSelectionDisabled
	}
	if t.selected.has(key) {
		t.selected.remove(key)
	} else {
		if !t.hasKey(key) {
			t.mu.Unlock()
			return errors.Wrapf(ErrUnknownRow, "row %v", key)
		}
		t.selected.add(key)
	}
	notify := t.selectionChanged()
	t.mu.Unlock()

	notify()
	return nil
}

// ToggleAll clears the selection when all records are selected,
// otherwise selects exactly the records of the current data.
func (t *Table[K, T]) ToggleAll() error {
	t.mu.Lock()
	if t.selected == nil {
		t.mu.Unlock()
		return ErrSelectionDisabled
	}
	if t.allSelected() {
		t.selected = newKeySet[K](nil)
	} else {
		keys := make([]K, 0, len(t.data))
		for _, rec := range t.data {
			keys = append(keys, t.rowKey(rec))
		}
		t.selected = newKeySet(keys)
	}
	notify := t.selectionChanged()
	t.mu.Unlock()

	notify()
	return nil
}

// ResetSelection replaces the selection. It is the caller's way to re-sync it
// and does not call Selection.OnChange.
func (t *Table[K, T]) ResetSelection(keys []K) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.selected == nil {
		return ErrSelectionDisabled
	}
	t.selected = newKeySet(keys)
	return nil
}

func (t *Table[K, T]) hasKey(key K) bool {
	for _, rec := range t.data {
		if t.rowKey(rec) == key {
			return true
		}
	}
	return false
}

// selectionChanged captures the change for Selection.OnChange, to be called once unlocked.
func (t *Table[K, T]) selectionChanged() func() {
	if t.selection == nil || t.selection.OnChange == nil {
		return func() {}
	}
	onChange := t.selection.OnChange
	keys := t.selected.slice()
	records := t.selectedRecords()
	return func() { onChange(keys, records) }
}

// Actions

// Search forwards the search text to the search action.
func (t *Table[K, T]) Search(query string) error {
	t.mu.Lock()
	if t.actions == nil || t.actions.Search == nil || t.actions.Search.OnSearch == nil {
		t.mu.Unlock()
		return errors.Wrap(ErrActionUnavailable, "search")
	}
	t.search = query
	onSearch := t.actions.Search.OnSearch
	t.mu.Unlock()

	onSearch(query)
	return nil
}

// SearchQuery returns the last search text.
func (t *Table[K, T]) SearchQuery() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.search
}

// Filter forwards the values of the filter key to its action.
func (t *Table[K, T]) Filter(key string, values []string) error {
	t.mu.Lock()
	f, ok := t.actions.filter(key)
	if !ok || f.OnFilter == nil {
		t.mu.Unlock()
		return errors.Wrapf(ErrActionUnavailable, "filter %q", key)
	}
	if !f.Multiple && len(values) > 1 {
		values = values[:1]
	}
	values = append([]string(nil), values...)
	if len(values) == 0 {
		delete(t.filters, key)
	} else {
		t.filters[key] = values
	}
	t.mu.Unlock()

	f.OnFilter(key, values)
	return nil
}

// Export forwards an export request to the export action.
func (t *Table[K, T]) Export() error {
	t.mu.Lock()
	if t.actions == nil || t.actions.Export == nil || t.actions.Export.OnExport == nil {
		t.mu.Unlock()
		return errors.Wrap(ErrActionUnavailable, "export")
	}
	onExport := t.actions.Export.OnExport
	t.mu.Unlock()

	onExport()
	return nil
}

// Refresh forwards a refresh request to the refresh action.
func (t *Table[K, T]) Refresh() error {
	t.mu.Lock()
	if t.actions == nil || t.actions.Refresh == nil || t.actions.Refresh.OnRefresh == nil {
		t.mu.Unlock()
		return errors.Wrap(ErrActionUnavailable, "refresh")
	}
	onRefresh := t.actions.Refresh.OnRefresh
	t.mu.Unlock()

	onRefresh()
	return nil
}

// ChangePage reports the intent to show another page (or page size).
// The Table keeps rendering its current page until SetPagination is called.
func (t *Table[K, T]) ChangePage(page, pageSize int) error {
	t.mu.Lock()
	if t.pagination == nil {
		t.mu.Unlock()
		return ErrNoPagination
	}
	if err := t.pagination.validate(page, pageSize); err != nil {
		t.mu.Unlock()
		return errors.Wrapf(err, "page %d of size %d", page, pageSize)
	}
	onChange := t.pagination.OnChange
	t.mu.Unlock()

	if onChange != nil {
		onChange(page, pageSize)
	}
	return nil
}

// ClickRow handles a click on the row at index (display order).
func (t *Table[K, T]) ClickRow(index int) error {
	t.mu.Lock()
	rows := t.sortedRows()
	if index < 0 || index >= len(rows) {
		t.mu.Unlock()
		return errors.Wrapf(ErrUnknownRow, "row #%d", index)
	}
	rec := rows[index]
	onRow := t.onRow
	t.mu.Unlock()

	if onRow == nil {
		return nil
	}
	if props := onRow(rec, index); props.OnClick != nil {
		props.OnClick()
	}
	return nil
}

// Rendering

// Render renders the current state of the Table.
func (t *Table[K, T]) Render() View {
	t.mu.Lock()
	var (
		rows      = t.sortedRows()
		sort      = t.sort
		loading   = t.loading
		selected  map[K]bool
		allSel    = t.allSelected()
		visible   int
		selCount  int
		toolbar   = t.toolbar()
		pageView  *PaginationView
		onRow     = t.onRow
		colSpan   = len(t.columns)
		dataCount = len(t.data)
	)
	if t.selected != nil {
		selected = make(map[K]bool, t.selected.len())
		for _, k := range t.selected.keys {
			selected[k] = true
		}
		visible = t.visibleSelected()
		selCount = t.selected.len()
		colSpan++
	}
	if t.pagination != nil {
		pageView = t.pagination.view()
	}
	t.mu.Unlock()

	v := View{
		Columns:       t.header(sort),
		ColSpan:       colSpan,
		Sort:          sort,
		Selectable:    selected != nil,
		AllSelected:   allSel,
		SomeSelected:  visible > 0 && visible < dataCount,
		SelectedCount: selCount,
		Toolbar:       toolbar,
		Pagination:    pageView,
	}

	switch {
	case loading:
		v.State = StateLoading
		v.Message = t.loadingText
	case len(rows) == 0:
		v.State = StateEmpty
		v.Message = t.emptyText
	default:
		v.State = StateRows
		v.Rows = make([]RowView, 0, len(rows))
		for i, rec := range rows {
			key := t.rowKey(rec)
			row := RowView{
				Key:      fmt.Sprint(key),
				Index:    i,
				Cells:    t.cells(rec, i),
				Selected: selected[key],
			}
			if onRow != nil {
				props := onRow(rec, i)
				row.Clickable = props.OnClick != nil
				row.ClassName = props.ClassName
			}
			v.Rows = append(v.Rows, row)
		}
	}
	return v
}

func (t *Table[K, T]) header(sort Sort) []HeaderCell {
	cells := make([]HeaderCell, 0, len(t.columns))
	for _, col := range t.columns {
		hc := HeaderCell{
			Key:      col.Key,
			Title:    col.Title,
			Sortable: col.Sortable,
			Width:    col.Width,
			Align:    col.align(),
		}
		if sort.Key == col.Key {
			hc.Sorted = sort.Direction
		}
		cells = append(cells, hc)
	}
	return cells
}

func (t *Table[K, T]) cells(rec T, index int) []Cell {
	cells := make([]Cell, 0, len(t.columns))
	for _, col := range t.columns {
		val := col.value(rec)
		if col.Render != nil {
			cells = append(cells, cellContent(col.Key, col.align(), col.Render(val, rec, index), t.placeholder))
			continue
		}
		cells = append(cells, cellContent(col.Key, col.align(), val, t.placeholder))
	}
	return cells
}

func (t *Table[K, T]) toolbar() Toolbar {
	var tb Toolbar
	if t.actions == nil {
		return tb
	}
	if s := t.actions.Search; s != nil {
		tb.Search = true
		tb.SearchPlaceholder = s.Placeholder
		tb.SearchValue = t.search
	}
	for _, f := range t.actions.Filters {
		tb.Filters = append(tb.Filters, FilterView{
			Key:      f.Key,
			Title:    f.Title,
			Multiple: f.Multiple,
			Options:  append([]FilterOption(nil), f.Options...),
			Active:   append([]string(nil), t.filters[f.Key]...),
		})
	}
	if e := t.actions.Export; e != nil {
		tb.Export = true
		tb.ExportTitle = e.Title
		if tb.ExportTitle == "" {
			tb.ExportTitle = "Export"
		}
	}
	tb.Refresh = t.actions.Refresh != nil
	return tb
}
