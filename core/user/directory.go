package user

import (
	"strings"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo/core/datatable"
)

// DirectoryColumns are the columns of the member directory table.
// Keys of sortable columns are valid OrderingFields.
func DirectoryColumns() []datatable.Column[User] {
	return []datatable.Column[User]{
		{Key: "name", Title: "Name", Sortable: true, Value: func(u User) any { return u.Name }},
		{Key: "username", Title: "Username", Sortable: true, Value: func(u User) any { return u.Username }},
		{Key: "email", Title: "Email", Sortable: true, Value: func(u User) any { return u.Email }},
		{
			Key:   "roles",
			Title: "Roles",
			Value: func(u User) any { return u.Roles },
			Render: func(_ any, u User, _ int) any {
				names := make([]string, 0, len(u.Roles))
				for _, role := range u.Roles {
					names = append(names, RoleName(role))
				}
				return strings.Join(names, ", ")
			},
		},
		{
			Key:      "is_active",
			Title:    "Status",
			Sortable: true,
			Align:    datatable.AlignCenter,
			Value:    func(u User) any { return u.Active() },
			Render: func(_ any, u User, _ int) any {
				if u.Active() {
					return "Active"
				}
				return "Inactive"
			},
		},
		{Key: "created_at", Title: "Joined", Sortable: true, Value: func(u User) any { return u.CreatedAt }},
		{
			Key:      "last_login",
			Title:    "Last login",
			Sortable: true,
			Value:    func(u User) any { return null.NewTime(u.LastLogin, !u.LastLogin.IsZero()) },
		},
	}
}

// DirectoryKey is the row key of a user in the member directory.
func DirectoryKey(u User) string {
	return u.ID
}

// DirectoryRoleFilter lists the role filter options of the member directory.
func DirectoryRoleFilter() []datatable.FilterOption {
	opts := make([]datatable.FilterOption, 0, len(Roles))
	for _, r := range Roles {
		opts = append(opts, datatable.FilterOption{Label: r.Name, Value: r.Value})
	}
	return opts
}
