package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/datatable"
	"github.com/trezcool/masomo/core/user"
)

type listUsersOptions struct {
	search string
	role   string
	sort   string
	page   int
	size   int
}

// listUsers prints a page of the member directory, sorted by the database.
func (cli *commandLine) listUsers(opts listUsersOptions) error {
	ctx := context.Background()
	filter := &user.QueryFilter{Search: opts.search}
	if opts.role != "" {
		filter.Roles = []string{opts.role}
	}
	filter.Clean()
	for _, role := range filter.Roles {
		if user.RolePriority(role) == 0 {
			return core.NewValidationError(nil, core.FieldError{Field: "role", Error: "invalid roles"})
		}
	}

	sort := datatable.ParseSort(opts.sort)
	ordering := core.OrderingFromSort(sort)
	if err := user.ValidateOrdering(ordering); err != nil {
		return err
	}

	page := core.Page{Number: opts.page, Size: cli.conf.Table.ClampPageSize(opts.size)}
	if page.Number < 1 {
		page.Number = 1
	}

	total, err := cli.usrRepo.CountUsers(ctx, filter)
	if err != nil {
		return errors.Wrap(err, "counting users")
	}
	users, err := cli.usrRepo.QueryUsers(ctx, filter, ordering, page)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}

	tbl, err := datatable.New(datatable.Options[string, user.User]{
		Columns:     user.DirectoryColumns(),
		RowKey:      user.DirectoryKey,
		Pagination:  &datatable.Pagination{Page: page.Number, PageSize: page.Size, Total: total},
		EmptyText:   cli.conf.Table.EmptyText,
		Placeholder: cli.conf.Table.Placeholder,
	})
	if err != nil {
		return err
	}
	tbl.SetData(users)
	if !sort.IsZero() {
		if err = tbl.SetSort(sort); err != nil {
			return err
		}
	}
	return datatable.WriteText(cli.out, tbl.Render())
}
