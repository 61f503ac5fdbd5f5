package sqlxrepos

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/user"
)

func TestFilterWhere(t *testing.T) {
	active := true
	from := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		filter   *user.QueryFilter
		wantSQL  string
		wantArgs []interface{}
	}{
		{name: "nil", wantSQL: ""},
		{
			name:     "search",
			filter:   &user.QueryFilter{Search: "amy"},
			wantSQL:  " WHERE (name ILIKE ? OR username ILIKE ? OR email ILIKE ?)",
			wantArgs: []interface{}{"%amy%", "%amy%", "%amy%"},
		},
		{
			name:    "roles and active",
			filter:  &user.QueryFilter{Roles: []string{"admin:", "student:"}, IsActive: &active, CreatedFrom: from},
			wantSQL: " WHERE (EXISTS (SELECT 1 FROM UNNEST(roles) user_role WHERE user_role ILIKE ?) OR EXISTS (SELECT 1 FROM UNNEST(roles) user_role WHERE user_role ILIKE ?))" +
				" AND (is_active = ?) AND (created_at >= ?)",
			wantArgs: []interface{}{"admin:%", "student:%", true, from},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := filterWhere(tt.filter)
			assert.Equal(t, tt.wantSQL, w.String())
			assert.Equal(t, tt.wantArgs, w.args)
		})
	}
}

func TestOrderBy(t *testing.T) {
	got, err := orderBy(nil)
	require.NoError(t, err)
	assert.Equal(t, " ORDER BY created_at ASC, id ASC", got)

	got, err = orderBy([]core.DBOrdering{{Field: "last_login"}, {Field: "name", Ascending: true}})
	require.NoError(t, err)
	assert.Equal(t, " ORDER BY last_login DESC, name ASC, id ASC", got)

	_, err = orderBy([]core.DBOrdering{{Field: "password_hash"}})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, map[string]string{"ordering": "unknown ordering field password_hash"}, vErr.FieldMap())
}

func TestUserRow(t *testing.T) {
	usr := user.User{ID: "id", Name: "Amy", Email: "amy@test.cd"}
	r := toRow(usr)
	assert.True(t, r.IsActive)
	assert.False(t, r.Username.Valid)
	assert.True(t, r.Email.Valid)
	assert.False(t, r.LastLogin.Valid)
	assert.NotNil(t, r.Roles)

	back := r.user()
	assert.Equal(t, "amy@test.cd", back.Email)
	assert.Equal(t, "", back.Username)
	assert.True(t, back.Active())
	assert.True(t, back.LastLogin.IsZero())
}
