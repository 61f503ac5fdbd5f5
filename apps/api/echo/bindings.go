package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/masomo/core"
)

var (
	orderingParam = "ordering"
	pageParam     = "page"
	pageSizeParam = "page_size"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads the comma separated `ordering` query param: "name,-created_at".
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// bindPage reads the `page` and `page_size` query params. No page size means no paging.
func bindPage(ctx echo.Context, tc core.TableConfig) (core.Page, error) {
	var page core.Page
	if ctx.QueryParam(pageSizeParam) == "" && ctx.QueryParam(pageParam) == "" {
		return page, nil
	}

	page.Number = 1
	if v := ctx.QueryParam(pageParam); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return page, core.NewValidationError(nil, core.FieldError{Field: pageParam, Error: "must be a positive integer"})
		}
		page.Number = n
	}
	var size int
	if v := ctx.QueryParam(pageSizeParam); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return page, core.NewValidationError(nil, core.FieldError{Field: pageSizeParam, Error: "must be a positive integer"})
		}
		size = n
	}
	page.Size = tc.ClampPageSize(size)
	return page, nil
}

// formInt reads an optional integer form value, def when absent.
func formInt(ctx echo.Context, name string, def int) (int, error) {
	v := strings.TrimSpace(ctx.FormValue(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, core.NewValidationError(nil, core.FieldError{Field: name, Error: "must be an integer"})
	}
	return n, nil
}
