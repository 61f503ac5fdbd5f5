package datatable

import (
	"html/template"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// HTMLOptions configure WriteHTML.
type HTMLOptions struct {
	// Action is the base URL the table controls post their intents to:
	// {Action}/sort/{key}, /select/{key}, /select-all, /search, /filter, /page, /export, /refresh,
	// /rows/{index}/open.
	Action string
	// ID of the <table> element.
	ID string
}

var htmlTmpl = template.Must(template.New("datatable").Funcs(template.FuncMap{
	"sortIndicator": sortIndicator,
	"pageSizes":     pageSizes,
	"rowClass":      rowClass,
	"plus":          func(n int) int { return n + 1 },
	"minus":         func(n int) int { return n - 1 },
}).Parse(htmlLayout))

// WriteHTML writes v as an HTML fragment.
func WriteHTML(w io.Writer, v View, opts HTMLOptions) error {
	data := struct {
		View
		Action string
		ID     string
	}{View: v, Action: strings.TrimSuffix(opts.Action, "/"), ID: opts.ID}
	if err := htmlTmpl.Execute(w, data); err != nil {
		return errors.Wrap(err, "rendering table html")
	}
	return nil
}

func sortIndicator(d Direction) string {
	switch d {
	case Ascending:
		return "▲"
	case Descending:
		return "▼"
	}
	return ""
}

func pageSizes(pv *PaginationView) []int {
	if len(pv.PageSizeOptions) > 0 {
		return pv.PageSizeOptions
	}
	return []int{pv.PageSize}
}

func rowClass(r RowView) string {
	classes := make([]string, 0, 3)
	if r.Clickable {
		classes = append(classes, "clickable")
	}
	if r.Selected {
		classes = append(classes, "selected")
	}
	if r.ClassName != "" {
		classes = append(classes, r.ClassName)
	}
	return strings.Join(classes, " ")
}

const htmlLayout = `<div class="datatable"{{with .ID}} id="{{.}}-wrapper"{{end}}>
{{- if not .Toolbar.Empty}}
<div class="datatable-toolbar">
{{- if .Toolbar.Search}}
<form method="post" action="{{.Action}}/search" class="datatable-search">
<input type="search" name="q" value="{{.Toolbar.SearchValue}}" placeholder="{{.Toolbar.SearchPlaceholder}}">
</form>
{{- end}}
{{- range .Toolbar.Filters}}{{$f := .}}
<form method="post" action="{{$.Action}}/filter" class="datatable-filter">
<input type="hidden" name="key" value="{{.Key}}">
<label>{{.Title}}
<select name="value"{{if .Multiple}} multiple{{end}}>
<option value="">All</option>
{{- range .Options}}
<option value="{{.Value}}"{{if $f.IsActive .Value}} selected{{end}}>{{.Label}}</option>
{{- end}}
</select>
</label>
<button type="submit">Apply</button>
</form>
{{- end}}
{{- if .Toolbar.Export}}
<form method="post" action="{{.Action}}/export"><button type="submit">{{.Toolbar.ExportTitle}}</button></form>
{{- end}}
{{- if .Toolbar.Refresh}}
<form method="post" action="{{.Action}}/refresh"><button type="submit">Refresh</button></form>
{{- end}}
</div>
{{- end}}
<table{{with .ID}} id="{{.}}"{{end}}>
<thead>
<tr>
{{- if .Selectable}}
<th class="datatable-select"><form method="post" action="{{.Action}}/select-all"><button type="submit" role="checkbox" aria-checked="{{if .AllSelected}}true{{else if .SomeSelected}}mixed{{else}}false{{end}}">{{if .AllSelected}}☑{{else if .SomeSelected}}▣{{else}}☐{{end}}</button></form></th>
{{- end}}
{{- range .Columns}}
<th{{with .Width}} style="width: {{.}}"{{end}} class="align-{{.Align}}{{if .Sorted}} sorted-{{.Sorted}}{{end}}">
{{- if .Sortable}}<form method="post" action="{{$.Action}}/sort/{{.Key}}"><button type="submit">{{.Title}} {{sortIndicator .Sorted}}</button></form>{{else}}{{.Title}}{{end -}}
</th>
{{- end}}
</tr>
</thead>
<tbody>
{{- if eq .State "loading"}}
<tr class="datatable-loading"><td colspan="{{.ColSpan}}">{{.Message}}</td></tr>
{{- else if eq .State "empty"}}
<tr class="datatable-empty"><td colspan="{{.ColSpan}}">{{.Message}}</td></tr>
{{- else}}
{{- range .Rows}}
<tr data-key="{{.Key}}"{{with rowClass .}} class="{{.}}"{{end}}>
{{- if $.Selectable}}
<td class="datatable-select"><form method="post" action="{{$.Action}}/select/{{.Key}}"><button type="submit" role="checkbox" aria-checked="{{.Selected}}">{{if .Selected}}☑{{else}}☐{{end}}</button></form></td>
{{- end}}
{{- $row := .}}
{{- range .Cells}}
<td class="align-{{.Align}}">{{if $row.Clickable}}<form method="post" action="{{$.Action}}/rows/{{$row.Index}}/open"><button type="submit" class="link">{{.Content}}</button></form>{{else}}{{.Content}}{{end}}</td>
{{- end}}
</tr>
{{- end}}
{{- end}}
</tbody>
</table>
{{- with .Pagination}}
<form method="post" action="{{$.Action}}/page" class="datatable-pagination">
<span>{{.From}}-{{.To}} of {{.Total}}</span>
{{- if .HasPrev}}
<button type="submit" name="page" value="{{minus .Page}}">‹</button>
{{- end}}
<span>Page {{.Page}} / {{.Pages}}</span>
{{- if .HasNext}}
<button type="submit" name="page" value="{{plus .Page}}">›</button>
{{- end}}
<select name="page_size">
{{- $size := .PageSize}}
{{- range pageSizes .}}
<option value="{{.}}"{{if eq . $size}} selected{{end}}>{{.}} / page</option>
{{- end}}
</select>
<button type="submit" name="page" value="1">Apply</button>
</form>
{{- end}}
</div>
`
