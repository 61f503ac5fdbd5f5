package echoapi

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/datatable"
	"github.com/trezcool/masomo/core/user"
)

const (
	directoryPath    = "/v1/directory/users"
	directoryTableID = "member-directory"
	exportFilename   = "members.csv"

	roleFilterKey   = "role"
	activeFilterKey = "is_active"
)

var directoryPage = template.Must(template.New("directory").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.AppName}} - Member directory</title></head>
<body>
<h1>Member directory</h1>
{{with .Flash}}<p class="flash">{{.}}</p>{{end}}
{{if .SelectedCount}}<form method="post" action="{{.Action}}/selected/delete"><button type="submit">Delete {{.SelectedCount}} selected</button></form>{{end}}
{{.Table}}
</body>
</html>
`))

type (
	// directorySession is the member directory of one admin. Its mutex serializes the
	// requests of the session; the table callbacks run with it held and only record intents.
	directorySession struct {
		mu       sync.Mutex
		table    *datatable.Table[string, user.User]
		filter   user.QueryFilter
		page     int
		pageSize int
		flash    string
		lastSeen time.Time // guarded by directorySessions.mu

		// intents
		reload   bool
		exported bool
		openedID string
	}

	directorySessions struct {
		mu       sync.Mutex
		sessions map[string]*directorySession
		ttl      time.Duration
		now      func() time.Time
		conf     core.TableConfig
	}

	directoryApi struct {
		auth     *authenticator
		svc      user.Service
		conf     *core.Config
		logger   core.Logger
		sessions *directorySessions
	}
)

func registerDirectoryAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, deps ServerDeps) {
	api := &directoryApi{
		auth:     auth,
		svc:      deps.UserSvc,
		conf:     deps.Conf,
		logger:   deps.Logger,
		sessions: newDirectorySessions(deps.Conf.Table, time.Now),
	}

	dg := g.Group("/directory/users", jwt, adminMiddleware())
	dg.GET("", api.render)
	dg.POST("/sort/:key", api.sort)
	dg.POST("/select/:id", api.toggleRow)
	dg.POST("/select-all", api.toggleAll)
	dg.POST("/search", api.search)
	dg.POST("/filter", api.filter)
	dg.POST("/page", api.changePage)
	dg.POST("/refresh", api.refresh)
	dg.POST("/rows/:index/open", api.openRow)
	dg.POST("/export", api.export)
	dg.DELETE("/selected", api.deleteSelected)
	dg.POST("/selected/delete", api.deleteSelected) // HTML forms cannot DELETE
}

func newDirectorySessions(conf core.TableConfig, now func() time.Time) *directorySessions {
	return &directorySessions{
		sessions: make(map[string]*directorySession),
		ttl:      conf.SessionTTL,
		now:      now,
		conf:     conf,
	}
}

// get returns the session of subject, creating it if needed. Idle sessions are evicted.
func (ds *directorySessions) get(subject string) (*directorySession, bool) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	now := ds.now()
	if ds.ttl > 0 {
		for sub, sess := range ds.sessions {
			if sub != subject && now.Sub(sess.lastSeen) > ds.ttl {
				delete(ds.sessions, sub)
			}
		}
	}

	sess, ok := ds.sessions[subject]
	if ok && ds.ttl > 0 && now.Sub(sess.lastSeen) > ds.ttl {
		ok = false
	}
	if !ok {
		sess = newDirectorySession(ds.conf)
		ds.sessions[subject] = sess
	}
	sess.lastSeen = now
	return sess, !ok
}

func (ds *directorySessions) len() int {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return len(ds.sessions)
}

func newDirectorySession(conf core.TableConfig) *directorySession {
	sess := &directorySession{page: 1, pageSize: conf.ClampPageSize(0), reload: true}

	activeOpts := []datatable.FilterOption{{Label: "Active", Value: "true"}, {Label: "Inactive", Value: "false"}}
	tbl, err := datatable.New(datatable.Options[string, user.User]{
		Columns: user.DirectoryColumns(),
		RowKey:  user.DirectoryKey,
		Pagination: &datatable.Pagination{
			Page:            sess.page,
			PageSize:        sess.pageSize,
			PageSizeOptions: conf.PageSizeOptions,
			OnChange: func(page, pageSize int) {
				sess.page = page
				sess.pageSize = conf.ClampPageSize(pageSize)
				sess.reload = true
			},
		},
		Selection: &datatable.Selection[string, user.User]{},
		Actions: &datatable.Actions{
			Search: &datatable.SearchAction{
				Placeholder: "Search members",
				OnSearch: func(query string) {
					sess.filter.Search = core.CleanString(query)
					sess.page = 1
					sess.reload = true
				},
			},
			Filters: []datatable.FilterAction{
				{Key: roleFilterKey, Title: "Role", Multiple: true, Options: user.DirectoryRoleFilter(), OnFilter: sess.onFilter},
				{Key: activeFilterKey, Title: "Status", Options: activeOpts, OnFilter: sess.onFilter},
			},
			Export:  &datatable.ExportAction{Title: "Export CSV", OnExport: func() { sess.exported = true }},
			Refresh: &datatable.RefreshAction{OnRefresh: func() { sess.reload = true }},
		},
		OnRow: func(usr user.User, _ int) datatable.RowProps {
			props := datatable.RowProps{OnClick: func() { sess.openedID = usr.ID }}
			if !usr.Active() {
				props.ClassName = "inactive"
			}
			return props
		},
		EmptyText:   conf.EmptyText,
		Placeholder: conf.Placeholder,
	})
	if err != nil { // static options
		panic(err)
	}
	sess.table = tbl
	return sess
}

func (sess *directorySession) onFilter(key string, values []string) {
	switch key {
	case roleFilterKey:
		sess.filter.Roles = core.CleanStrings(values, true /* lower */)
	case activeFilterKey:
		sess.filter.IsActive = nil
		if len(values) > 0 {
			if active, err := strconv.ParseBool(values[0]); err == nil {
				sess.filter.IsActive = &active
			}
		}
	}
	sess.page = 1
	sess.reload = true
}

// load fetches the current page of members when an intent asked for it.
// The table only ever holds one page: its sort is local to that page.
func (sess *directorySession) load(ctx context.Context, svc user.Service) error {
	if !sess.reload {
		return nil
	}
	sess.table.SetLoading(true)
	defer sess.table.SetLoading(false)

	filter := sess.filter
	total, err := svc.Count(ctx, &filter)
	if err != nil {
		return errors.Wrap(err, "counting members")
	}
	if pages := (total + sess.pageSize - 1) / sess.pageSize; total > 0 && sess.page > pages {
		sess.page = pages
	}
	if sess.page < 1 {
		sess.page = 1
	}

	users, err := svc.Query(ctx, &filter, nil, core.Page{Number: sess.page, Size: sess.pageSize})
	if err != nil {
		return errors.Wrap(err, "querying members")
	}
	sess.table.SetData(users)
	if err = sess.table.SetPagination(sess.page, sess.pageSize, total); err != nil {
		return errors.Wrap(err, "setting pagination")
	}
	sess.reload = false
	return nil
}

// Handlers

// withSession runs fn on the locked session of the context admin, then responds with
// the refreshed table (JSON View, or a redirect to the page for HTML forms).
func (api *directoryApi) withSession(ctx echo.Context, fn func(*directorySession) error) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	sess, _ := api.sessions.get(claims.Subject)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	reqCtx := ctx.Request().Context()
	if err = sess.load(reqCtx, api.svc); err != nil {
		return err
	}
	if fn != nil {
		if err = fn(sess); err != nil {
			return err
		}
		if err = sess.load(reqCtx, api.svc); err != nil {
			return err
		}
	}

	if ctx.Request().Method != http.MethodGet && !wantsJSON(ctx) {
		return ctx.Redirect(http.StatusSeeOther, directoryPath)
	}
	return api.respond(ctx, sess)
}

func (api *directoryApi) respond(ctx echo.Context, sess *directorySession) error {
	view := sess.table.Render()
	if wantsJSON(ctx) {
		return ctx.JSON(http.StatusOK, view)
	}

	table := new(bytes.Buffer)
	if err := datatable.WriteHTML(table, view, datatable.HTMLOptions{Action: directoryPath, ID: directoryTableID}); err != nil {
		return err
	}
	page := new(bytes.Buffer)
	err := directoryPage.Execute(page, map[string]interface{}{
		"AppName":       api.conf.AppName,
		"Action":        directoryPath,
		"Flash":         sess.flash,
		"SelectedCount": view.SelectedCount,
		"Table":         template.HTML(table.String()),
	})
	if err != nil {
		return errors.Wrap(err, "rendering directory page")
	}
	sess.flash = ""
	return ctx.HTMLBlob(http.StatusOK, page.Bytes())
}

func wantsJSON(ctx echo.Context) bool {
	return strings.Contains(ctx.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}

func (api *directoryApi) render(ctx echo.Context) error {
	return api.withSession(ctx, nil)
}

func (api *directoryApi) sort(ctx echo.Context) error {
	return api.withSession(ctx, func(sess *directorySession) error {
		return sess.table.ClickHeader(ctx.Param("key"))
	})
}

func (api *directoryApi) toggleRow(ctx echo.Context) error {
	return api.withSession(ctx, func(sess *directorySession) error {
		return sess.table.ToggleRow(ctx.Param("id"))
	})
}

func (api *directoryApi) toggleAll(ctx echo.Context) error {
	return api.withSession(ctx, func(sess *directorySession) error {
		return sess.table.ToggleAll()
	})
}

func (api *directoryApi) search(ctx echo.Context) error {
	return api.withSession(ctx, func(sess *directorySession) error {
		return sess.table.Search(ctx.FormValue("q"))
	})
}

func (api *directoryApi) filter(ctx echo.Context) error {
	form, err := ctx.FormParams()
	if err != nil {
		return errors.Wrap(err, "parsing form")
	}
	key, values := form.Get("key"), core.CleanStrings(form["value"])
	if err = validateFilter(key, values); err != nil {
		return err
	}
	return api.withSession(ctx, func(sess *directorySession) error {
		return sess.table.Filter(key, values)
	})
}

func validateFilter(key string, values []string) error {
	for _, v := range values {
		switch key {
		case roleFilterKey:
			if user.RolePriority(strings.ToLower(v)) == 0 {
				return core.NewValidationError(nil, core.FieldError{Field: key, Error: "invalid roles"})
			}
		case activeFilterKey:
			if _, err := strconv.ParseBool(v); err != nil {
				return core.NewValidationError(nil, core.FieldError{Field: key, Error: "must be a boolean"})
			}
		}
	}
	return nil
}

func (api *directoryApi) changePage(ctx echo.Context) error {
	return api.withSession(ctx, func(sess *directorySession) error {
		page, err := formInt(ctx, pageParam, sess.page)
		if err != nil {
			return err
		}
		size, err := formInt(ctx, pageSizeParam, sess.pageSize)
		if err != nil {
			return err
		}
		if size != sess.pageSize {
			page = 1 // the old page number means nothing at another size
		}
		return sess.table.ChangePage(page, size)
	})
}

func (api *directoryApi) refresh(ctx echo.Context) error {
	return api.withSession(ctx, func(sess *directorySession) error {
		return sess.table.Refresh()
	})
}

func (api *directoryApi) openRow(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	index, err := strconv.Atoi(ctx.Param("index"))
	if err != nil {
		return errors.Wrapf(datatable.ErrUnknownRow, "row %q", ctx.Param("index"))
	}

	sess, _ := api.sessions.get(claims.Subject)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err = sess.load(ctx.Request().Context(), api.svc); err != nil {
		return err
	}
	sess.openedID = ""
	if err = sess.table.ClickRow(index); err != nil {
		return err
	}
	return ctx.Redirect(http.StatusSeeOther, "/v1/users/"+sess.openedID)
}

// export writes the selected members (the current page when none) as CSV,
// or mails it to the admin with email=true.
func (api *directoryApi) export(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	sess, _ := api.sessions.get(claims.Subject)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err = sess.load(ctx.Request().Context(), api.svc); err != nil {
		return err
	}
	sess.exported = false
	if err = sess.table.Export(); err != nil {
		return err
	}
	if !sess.exported {
		return errors.Wrap(datatable.ErrActionUnavailable, "export")
	}

	records := sess.table.SelectedRecords()
	if len(records) == 0 {
		records = sess.table.Rows()
	}
	content := new(bytes.Buffer)
	if err = sess.table.WriteCSV(content, records); err != nil {
		return errors.Wrap(err, "writing members csv")
	}

	if email, _ := strconv.ParseBool(ctx.FormValue("email")); email {
		admin, err := api.auth.contextUser(ctx, claims)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}
		if err = api.svc.MailDirectoryExport(admin, exportFilename, content.Bytes(), len(records)); err != nil {
			return err
		}
		msg := fmt.Sprintf("%d member(s) exported to %s.", len(records), admin.Email)
		if wantsJSON(ctx) {
			return ctx.JSON(http.StatusOK, SuccessResponse{Success: msg})
		}
		sess.flash = msg
		return ctx.Redirect(http.StatusSeeOther, directoryPath)
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", exportFilename))
	return ctx.Blob(http.StatusOK, "text/csv; charset=utf-8", content.Bytes())
}

// deleteSelected deletes the selected members, then resets the selection and reloads.
func (api *directoryApi) deleteSelected(ctx echo.Context) error {
	return api.withSession(ctx, func(sess *directorySession) error {
		ids := sess.table.Selected()
		if len(ids) == 0 {
			return nil
		}

		// Say No to Suicide! admins cannot delete themselves
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		for _, id := range ids {
			if id == claims.Subject {
				return errHttpForbidden
			}
		}

		cnt, err := api.svc.Delete(ctx.Request().Context(), ids...)
		if err != nil {
			return errors.Wrap(err, "deleting members")
		}
		api.logger.Info(fmt.Sprintf("%d member(s) deleted from the directory", cnt), map[string]interface{}{"ids": ids})

		if err = sess.table.ResetSelection(nil); err != nil {
			return err
		}
		sess.flash = fmt.Sprintf("%d member(s) deleted.", cnt)
		sess.reload = true
		return nil
	})
}
