package datatable

import (
	"html/template"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
)

type person struct {
	ID   int
	Name string
	Age  *int
}

func intPtr(i int) *int { return &i }

func personColumns() []Column[person] {
	return []Column[person]{
		{Key: "name", Title: "Name", Sortable: true, Value: func(p person) any { return p.Name }},
		{Key: "age", Title: "Age", Sortable: true, Value: func(p person) any { return p.Age }, Align: AlignRight},
	}
}

func newPersonTable(t *testing.T, opts Options[int, person], data ...person) *Table[int, person] {
	t.Helper()
	if opts.Columns == nil {
		opts.Columns = personColumns()
	}
	if opts.RowKey == nil {
		opts.RowKey = func(p person) int { return p.ID }
	}
	tbl, err := New(opts)
	require.NoError(t, err)
	tbl.SetData(data)
	return tbl
}

func ids(people []person) []int {
	out := make([]int, 0, len(people))
	for _, p := range people {
		out = append(out, p.ID)
	}
	return out
}

func TestNew(t *testing.T) {
	key := func(p person) int { return p.ID }
	tests := []struct {
		name    string
		opts    Options[int, person]
		wantErr bool
	}{
		{name: "no row key", opts: Options[int, person]{Columns: personColumns()}, wantErr: true},
		{name: "no columns", opts: Options[int, person]{RowKey: key}, wantErr: true},
		{name: "empty column key", opts: Options[int, person]{RowKey: key, Columns: []Column[person]{{Title: "Name"}}}, wantErr: true},
		{
			name: "duplicate column key",
			opts: Options[int, person]{RowKey: key, Columns: []Column[person]{{Key: "name"}, {Key: "name"}}}, wantErr: true,
		},
		{
			name: "sortable without value",
			opts: Options[int, person]{RowKey: key, Columns: []Column[person]{{Key: "name", Sortable: true}}}, wantErr: true,
		},
		{name: "valid", opts: Options[int, person]{RowKey: key, Columns: personColumns()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts)
			if tt.wantErr {
				assert.Equal(t, ErrInvalidOptions, errors.Cause(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTable_ClickHeader_togglesBetweenTwoStates(t *testing.T) {
	tbl := newPersonTable(t, Options[int, person]{},
		person{ID: 1, Name: "Bob"}, person{ID: 2, Name: "Amy"}, person{ID: 3, Name: "Cid"})

	assert.True(t, tbl.Sort().IsZero())
	assert.Equal(t, []int{1, 2, 3}, ids(tbl.Rows()))

	want := []struct {
		dir  Direction
		rows []int
	}{
		{dir: Ascending, rows: []int{2, 1, 3}},
		{dir: Descending, rows: []int{3, 1, 2}},
		{dir: Ascending, rows: []int{2, 1, 3}},
	}
	for i, w := range want {
		require.NoError(t, tbl.ClickHeader("name"))
		assert.Equal(t, Sort{Key: "name", Direction: w.dir}, tbl.Sort(), "click #%d", i+1)
		assert.Equal(t, w.rows, ids(tbl.Rows()), "click #%d", i+1)
	}
}

func TestTable_ClickHeader_otherColumnStartsAscending(t *testing.T) {
	tbl := newPersonTable(t, Options[int, person]{})

	require.NoError(t, tbl.ClickHeader("name"))
	require.NoError(t, tbl.ClickHeader("name"))
	require.NoError(t, tbl.ClickHeader("age"))
	assert.Equal(t, Sort{Key: "age", Direction: Ascending}, tbl.Sort())
}

func TestTable_ClickHeader_unknownAndNotSortable(t *testing.T) {
	cols := append(personColumns(), Column[person]{Key: "id", Title: "ID", Value: func(p person) any { return p.ID }})
	tbl := newPersonTable(t, Options[int, person]{Columns: cols})

	err := tbl.ClickHeader("lol")
	assert.Equal(t, ErrUnknownColumn, errors.Cause(err))

	assert.NoError(t, tbl.ClickHeader("id"))
	assert.True(t, tbl.Sort().IsZero())
}

func TestTable_Rows_nullsLast(t *testing.T) {
	type item struct {
		ID int
		V  any
	}
	tbl, err := New(Options[int, item]{
		Columns: []Column[item]{{Key: "v", Title: "V", Sortable: true, Value: func(it item) any { return it.V }}},
		RowKey:  func(it item) int { return it.ID },
	})
	require.NoError(t, err)
	tbl.SetData([]item{
		{ID: 1, V: 3},
		{ID: 2, V: (*int)(nil)},
		{ID: 3, V: 1},
		{ID: 4, V: nil},
		{ID: 5, V: 2},
	})

	rowIDs := func() []int {
		var out []int
		for _, it := range tbl.Rows() {
			out = append(out, it.ID)
		}
		return out
	}

	require.NoError(t, tbl.ClickHeader("v"))
	assert.Equal(t, []int{3, 5, 1, 2, 4}, rowIDs())

	require.NoError(t, tbl.ClickHeader("v"))
	assert.Equal(t, []int{1, 5, 3, 2, 4}, rowIDs(), "nulls stay last when descending")
}

func TestTable_Rows_sqlNullValues(t *testing.T) {
	type member struct {
		ID    string
		Score null.Int
	}
	tbl, err := New(Options[string, member]{
		Columns: []Column[member]{{Key: "score", Title: "Score", Sortable: true, Value: func(m member) any { return m.Score }}},
		RowKey:  func(m member) string { return m.ID },
	})
	require.NoError(t, err)
	tbl.SetData([]member{
		{ID: "a", Score: null.Int{}},
		{ID: "b", Score: null.IntFrom(20)},
		{ID: "c", Score: null.IntFrom(10)},
	})

	require.NoError(t, tbl.ClickHeader("score"))
	rows := tbl.Rows()
	assert.Equal(t, []string{"c", "b", "a"}, []string{rows[0].ID, rows[1].ID, rows[2].ID})

	v := tbl.Render()
	assert.Equal(t, DefaultPlaceholder, v.Rows[2].Cells[0].Text)
	assert.Equal(t, "10", v.Rows[0].Cells[0].Text)
}

func TestTable_Rows_stableForEqualValues(t *testing.T) {
	tbl := newPersonTable(t, Options[int, person]{},
		person{ID: 1, Name: "Amy"}, person{ID: 2, Name: "Bob"}, person{ID: 3, Name: "Amy"}, person{ID: 4, Name: "Amy"})

	require.NoError(t, tbl.ClickHeader("name"))
	assert.Equal(t, []int{1, 3, 4, 2}, ids(tbl.Rows()))
	require.NoError(t, tbl.ClickHeader("name"))
	assert.Equal(t, []int{2, 1, 3, 4}, ids(tbl.Rows()))
}

func TestTable_endToEnd_nullAgeStaysLast(t *testing.T) {
	tbl := newPersonTable(t, Options[int, person]{},
		person{ID: 1, Name: "Bob", Age: intPtr(30)}, person{ID: 2, Name: "Amy"})

	require.NoError(t, tbl.ClickHeader("age"))
	assert.Equal(t, []int{1, 2}, ids(tbl.Rows()))

	require.NoError(t, tbl.ClickHeader("age"))
	assert.Equal(t, Descending, tbl.Sort().Direction)
	assert.Equal(t, []int{1, 2}, ids(tbl.Rows()))
}

func TestTable_SetSort(t *testing.T) {
	tbl := newPersonTable(t, Options[int, person]{},
		person{ID: 1, Name: "Amy"}, person{ID: 2, Name: "Bob"})

	require.NoError(t, tbl.SetSort(ParseSort("-name")))
	assert.Equal(t, []int{2, 1}, ids(tbl.Rows()))

	// the next click on the same column flips back to ascending
	require.NoError(t, tbl.ClickHeader("name"))
	assert.Equal(t, Sort{Key: "name", Direction: Ascending}, tbl.Sort())

	assert.Equal(t, ErrUnknownColumn, errors.Cause(tbl.SetSort(Sort{Key: "lol"})))
	require.NoError(t, tbl.SetSort(Sort{}))
	assert.Equal(t, []int{1, 2}, ids(tbl.Rows()))
}

type selectionRecorder struct {
	calls   int
	keys    []int
	records []person
}

func (r *selectionRecorder) onChange(keys []int, records []person) {
	r.calls++
	r.keys = keys
	r.records = records
}

func fivePeople() []person {
	return []person{
		{ID: 1, Name: "Eve"}, {ID: 2, Name: "Dan"}, {ID: 3, Name: "Cid"}, {ID: 4, Name: "Bob"}, {ID: 5, Name: "Amy"},
	}
}

func TestTable_ToggleAll(t *testing.T) {
	rec := new(selectionRecorder)
	tbl := newPersonTable(t, Options[int, person]{Selection: &Selection[int, person]{OnChange: rec.onChange}}, fivePeople()...)

	require.NoError(t, tbl.ToggleAll())
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5}, rec.keys)
	assert.Equal(t, fivePeople(), rec.records)
	assert.True(t, tbl.AllSelected())

	require.NoError(t, tbl.ToggleAll())
	assert.Empty(t, rec.keys)
	assert.Empty(t, rec.records)
	assert.False(t, tbl.AllSelected())
	assert.Equal(t, 2, rec.calls)
}

func TestTable_ToggleAll_fromPartialSelectsEverything(t *testing.T) {
	rec := new(selectionRecorder)
	tbl := newPersonTable(t, Options[int, person]{
		Selection: &Selection[int, person]{InitialKeys: []int{4, 42}, OnChange: rec.onChange},
	}, fivePeople()...)

	assert.False(t, tbl.AllSelected())
	require.NoError(t, tbl.ToggleAll())
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5}, rec.keys, "stale keys are dropped by select all")
}

func TestTable_ToggleAll_emptyData(t *testing.T) {
	rec := new(selectionRecorder)
	tbl := newPersonTable(t, Options[int, person]{Selection: &Selection[int, person]{OnChange: rec.onChange}})

	require.NotPanics(t, func() { require.NoError(t, tbl.ToggleAll()) })
	assert.False(t, tbl.AllSelected())
	require.NoError(t, tbl.ToggleAll())
	assert.False(t, tbl.AllSelected())
	assert.Empty(t, rec.keys)
	assert.False(t, tbl.Render().AllSelected)
}

func TestTable_ToggleRow(t *testing.T) {
	rec := new(selectionRecorder)
	tbl := newPersonTable(t, Options[int, person]{Selection: &Selection[int, person]{OnChange: rec.onChange}}, fivePeople()...)
	require.NoError(t, tbl.ClickHeader("name")) // display order must not leak into reported records

	steps := []struct {
		key      int
		wantKeys []int
		wantRecs []int
	}{
		{key: 5, wantKeys: []int{5}, wantRecs: []int{5}},
		{key: 2, wantKeys: []int{5, 2}, wantRecs: []int{2, 5}},
		{key: 4, wantKeys: []int{5, 2, 4}, wantRecs: []int{2, 4, 5}},
		{key: 5, wantKeys: []int{2, 4}, wantRecs: []int{2, 4}},
	}
	for _, s := range steps {
		require.NoError(t, tbl.ToggleRow(s.key))
		assert.Equal(t, s.wantKeys, rec.keys)
		assert.Equal(t, s.wantRecs, ids(rec.records))
		assert.Equal(t, len(rec.keys), len(rec.records))
	}

	err := tbl.ToggleRow(42)
	assert.Equal(t, ErrUnknownRow, errors.Cause(err))
	assert.Equal(t, len(steps), rec.calls)
}

func TestTable_selection_staleKeys(t *testing.T) {
	rec := new(selectionRecorder)
	tbl := newPersonTable(t, Options[int, person]{Selection: &Selection[int, person]{OnChange: rec.onChange}}, fivePeople()...)
	require.NoError(t, tbl.ToggleRow(1))
	require.NoError(t, tbl.ToggleRow(2))

	tbl.SetData(fivePeople()[1:]) // record 1 is gone
	assert.Equal(t, []int{1, 2}, tbl.Selected(), "not pruned until the caller re-syncs")
	assert.Equal(t, []int{2}, ids(tbl.SelectedRecords()))

	v := tbl.Render()
	for _, row := range v.Rows {
		assert.Equal(t, row.Key == "2", row.Selected, "row %s", row.Key)
	}

	// a stale key can still be deselected
	require.NoError(t, tbl.ToggleRow(1))
	assert.Equal(t, []int{2}, rec.keys)
}

func TestTable_ResetSelection(t *testing.T) {
	rec := new(selectionRecorder)
	tbl := newPersonTable(t, Options[int, person]{
		Selection: &Selection[int, person]{InitialKeys: []int{1}, OnChange: rec.onChange},
	}, fivePeople()...)
	assert.True(t, tbl.IsSelected(1))

	require.NoError(t, tbl.ResetSelection([]int{3, 4}))
	assert.Equal(t, []int{3, 4}, tbl.Selected())
	assert.Zero(t, rec.calls)

	require.NoError(t, tbl.ResetSelection(nil))
	assert.Empty(t, tbl.Selected())
}

func TestTable_selectionDisabled(t *testing.T) {
	tbl := newPersonTable(t, Options[int, person]{}, fivePeople()...)

	assert.Equal(t, ErrSelectionDisabled, tbl.ToggleRow(1))
	assert.Equal(t, ErrSelectionDisabled, tbl.ToggleAll())
	assert.Equal(t, ErrSelectionDisabled, tbl.ResetSelection(nil))
	assert.False(t, tbl.AllSelected())
	assert.Equal(t, 2, tbl.Render().ColSpan)
}

func TestTable_Search_delegatesWithoutFiltering(t *testing.T) {
	var queries []string
	var tbl *Table[int, person]
	tbl = newPersonTable(t, Options[int, person]{
		Actions: &Actions{Search: &SearchAction{
			Placeholder: "Search members",
			OnSearch: func(q string) {
				queries = append(queries, q)
				tbl.SetData(fivePeople()[:1]) // callbacks may call back into the table
			},
		}},
	}, fivePeople()...)

	require.NoError(t, tbl.Search("a"))
	require.NoError(t, tbl.Search("am"))
	assert.Equal(t, []string{"a", "am"}, queries)
	assert.Equal(t, "am", tbl.SearchQuery())
	assert.Len(t, tbl.Rows(), 1, "data comes from the caller only")

	tb := tbl.Render().Toolbar
	assert.True(t, tb.Search)
	assert.Equal(t, "am", tb.SearchValue)
	assert.Equal(t, "Search members", tb.SearchPlaceholder)
}

func TestTable_actionsUnavailable(t *testing.T) {
	tbl := newPersonTable(t, Options[int, person]{}, fivePeople()...)

	for name, err := range map[string]error{
		"search":  tbl.Search("x"),
		"filter":  tbl.Filter("role", []string{"x"}),
		"export":  tbl.Export(),
		"refresh": tbl.Refresh(),
	} {
		assert.Equal(t, ErrActionUnavailable, errors.Cause(err), name)
		assert.True(t, IsUserError(err), name)
	}
	assert.True(t, tbl.Render().Toolbar.Empty())
}

func TestTable_FilterExportRefresh(t *testing.T) {
	var filtered [][]string
	var exports, refreshes int
	tbl := newPersonTable(t, Options[int, person]{
		Actions: &Actions{
			Filters: []FilterAction{
				{Key: "role", Title: "Role", Multiple: true, OnFilter: func(_ string, v []string) { filtered = append(filtered, v) }},
				{Key: "status", Title: "Status", OnFilter: func(_ string, v []string) { filtered = append(filtered, v) }},
			},
			Export:  &ExportAction{OnExport: func() { exports++ }},
			Refresh: &RefreshAction{OnRefresh: func() { refreshes++ }},
		},
	}, fivePeople()...)

	require.NoError(t, tbl.Filter("role", []string{"admin:", "teacher:"}))
	require.NoError(t, tbl.Filter("status", []string{"active", "inactive"}))
	require.NoError(t, tbl.Export())
	require.NoError(t, tbl.Refresh())
	assert.Equal(t, ErrActionUnavailable, errors.Cause(tbl.Filter("lol", nil)))

	assert.Equal(t, [][]string{{"admin:", "teacher:"}, {"active"}}, filtered)
	assert.Equal(t, 1, exports)
	assert.Equal(t, 1, refreshes)

	tb := tbl.Render().Toolbar
	require.Len(t, tb.Filters, 2)
	assert.True(t, tb.Filters[0].IsActive("teacher:"))
	assert.Equal(t, []string{"active"}, tb.Filters[1].Active)
	assert.Equal(t, "Export", tb.ExportTitle)
	assert.True(t, tb.Refresh)

	require.NoError(t, tbl.Filter("role", nil))
	assert.Empty(t, tbl.Render().Toolbar.Filters[0].Active)
}

func TestTable_ChangePage(t *testing.T) {
	type change struct{ page, size int }
	var changes []change
	tbl := newPersonTable(t, Options[int, person]{
		Pagination: &Pagination{
			Page: 1, PageSize: 2, Total: 5, PageSizeOptions: []int{2, 10},
			OnChange: func(page, size int) { changes = append(changes, change{page, size}) },
		},
	}, fivePeople()[:2]...)

	tests := []struct {
		name       string
		page, size int
		wantErr    error
	}{
		{name: "next page", page: 2, size: 2},
		{name: "last page", page: 3, size: 2},
		{name: "past last page", page: 4, size: 2, wantErr: ErrInvalidPage},
		{name: "zero page", page: 0, size: 2, wantErr: ErrInvalidPage},
		{name: "zero size", page: 1, size: 0, wantErr: ErrInvalidPage},
		{name: "bigger page size", page: 1, size: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tbl.ChangePage(tt.page, tt.size)
			assert.Equal(t, tt.wantErr, errors.Cause(err))
		})
	}
	assert.Equal(t, []change{{2, 2}, {3, 2}, {1, 10}}, changes)

	// page intents do not move the table, the caller does
	pv := tbl.Render().Pagination
	require.NotNil(t, pv)
	assert.Equal(t, 1, pv.Page)

	require.NoError(t, tbl.SetPagination(3, 2, 5))
	pv = tbl.Render().Pagination
	assert.Equal(t, PaginationView{
		Page: 3, PageSize: 2, Total: 5, Pages: 3, From: 5, To: 5, HasPrev: true, HasNext: false, PageSizeOptions: []int{2, 10},
	}, *pv)
}

func TestTable_noPagination(t *testing.T) {
	tbl := newPersonTable(t, Options[int, person]{}, fivePeople()...)
	assert.Equal(t, ErrNoPagination, tbl.ChangePage(1, 10))
	assert.Equal(t, ErrNoPagination, tbl.SetPagination(1, 10, 5))
	assert.Nil(t, tbl.Render().Pagination)
}

func TestTable_ClickRow(t *testing.T) {
	var opened []int
	tbl := newPersonTable(t, Options[int, person]{
		OnRow: func(p person, _ int) RowProps {
			if p.ID == 3 {
				return RowProps{ClassName: "muted"}
			}
			return RowProps{OnClick: func() { opened = append(opened, p.ID) }}
		},
	}, fivePeople()...)
	require.NoError(t, tbl.ClickHeader("name")) // Amy(5) Bob(4) Cid(3) Dan(2) Eve(1)

	require.NoError(t, tbl.ClickRow(0))
	require.NoError(t, tbl.ClickRow(2))
	require.NoError(t, tbl.ClickRow(4))
	assert.Equal(t, ErrUnknownRow, errors.Cause(tbl.ClickRow(5)))
	assert.Equal(t, []int{5, 1}, opened)

	v := tbl.Render()
	assert.True(t, v.Rows[0].Clickable)
	assert.False(t, v.Rows[2].Clickable)
	assert.Equal(t, "muted", v.Rows[2].ClassName)
}

func TestTable_Render_states(t *testing.T) {
	tbl := newPersonTable(t, Options[int, person]{
		Selection: &Selection[int, person]{},
		EmptyText: "No members found",
	})

	v := tbl.Render()
	assert.Equal(t, StateEmpty, v.State)
	assert.Equal(t, "No members found", v.Message)
	assert.Equal(t, 3, v.ColSpan)

	tbl.SetLoading(true)
	tbl.SetData(fivePeople())
	v = tbl.Render()
	assert.Equal(t, StateLoading, v.State)
	assert.Equal(t, "Loading...", v.Message)
	assert.Empty(t, v.Rows)

	tbl.SetLoading(false)
	v = tbl.Render()
	assert.Equal(t, StateRows, v.State)
	assert.Len(t, v.Rows, 5)
	assert.Equal(t, "1", v.Rows[0].Key)
}

func TestTable_Render_cells(t *testing.T) {
	type row struct {
		ID    int
		Name  string
		Email *string
		Note  any
	}
	email := "amy@test.cd"
	tbl, err := New(Options[int, row]{
		RowKey: func(r row) int { return r.ID },
		Columns: []Column[row]{
			{Key: "name", Title: "Name", Value: func(r row) any { return r.Name }},
			{Key: "email", Title: "Email", Value: func(r row) any { return r.Email }},
			{Key: "note", Title: "Note", Value: func(r row) any { return r.Note }},
			{Key: "link", Title: "Link", Render: func(_ any, r row, i int) any {
				return template.HTML(`<a href="/members/` + template.HTMLEscapeString(r.Name) + `">open</a>`)
			}},
			{Key: "index", Title: "#", Render: func(_ any, _ row, i int) any { return i + 1 }},
			{Key: "missing", Title: "Missing"},
		},
	})
	require.NoError(t, err)
	tbl.SetData([]row{
		{ID: 1, Name: "Amy", Email: &email, Note: 0},
		{ID: 2, Name: "", Email: nil, Note: nil},
	})

	v := tbl.Render()
	require.Len(t, v.Rows, 2)

	first, second := v.Rows[0].Cells, v.Rows[1].Cells
	assert.Equal(t, "Amy", first[0].Text)
	assert.Equal(t, "amy@test.cd", first[1].Text)
	assert.Equal(t, "0", first[2].Text)
	assert.Equal(t, template.HTML(`<a href="/members/Amy">open</a>`), first[3].HTML)
	assert.Equal(t, "open", first[3].PlainText())
	assert.Equal(t, "1", first[4].Text)
	assert.Equal(t, "-", first[5].Text)

	assert.Equal(t, "-", second[0].Text, "empty string")
	assert.Equal(t, "-", second[1].Text, "nil pointer")
	assert.Equal(t, "-", second[2].Text, "nil")
	assert.Equal(t, "2", second[4].Text)
}

func TestTable_Render_custom_placeholder_and_header(t *testing.T) {
	tbl := newPersonTable(t, Options[int, person]{Placeholder: "n/a"}, person{ID: 1, Name: "Amy"})
	require.NoError(t, tbl.ClickHeader("age"))

	v := tbl.Render()
	assert.Equal(t, "n/a", v.Rows[0].Cells[1].Text)
	assert.Equal(t, Direction(""), v.Columns[0].Sorted)
	assert.Equal(t, Ascending, v.Columns[1].Sorted)
	assert.Equal(t, AlignLeft, v.Columns[0].Align)
	assert.Equal(t, AlignRight, v.Columns[1].Align)
}

func TestTable_Render_someSelected(t *testing.T) {
	tbl := newPersonTable(t, Options[int, person]{Selection: &Selection[int, person]{}}, fivePeople()...)
	require.NoError(t, tbl.ToggleRow(2))

	v := tbl.Render()
	assert.True(t, v.SomeSelected)
	assert.False(t, v.AllSelected)
	assert.Equal(t, 1, v.SelectedCount)
}
