package datatable

// Actions are the toolbar actions of a Table. The Table never implements them:
// it renders the controls and forwards every use to the callbacks.
type Actions struct {
	Search  *SearchAction
	Filters []FilterAction
	Export  *ExportAction
	Refresh *RefreshAction
}

// SearchAction is called on every change of the search text.
// Matching is the caller's business, the Table does not filter its data.
type SearchAction struct {
	Placeholder string
	OnSearch    func(query string)
}

type FilterOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type FilterAction struct {
	Key      string
	Title    string
	Multiple bool
	Options  []FilterOption
	OnFilter func(key string, values []string)
}

type ExportAction struct {
	Title    string
	OnExport func()
}

type RefreshAction struct {
	OnRefresh func()
}

func (a *Actions) filter(key string) (FilterAction, bool) {
	if a == nil {
		return FilterAction{}, false
	}
	for _, f := range a.Filters {
		if f.Key == key {
			return f, true
		}
	}
	return FilterAction{}, false
}
