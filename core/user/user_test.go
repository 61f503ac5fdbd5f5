package user_test

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/datatable"
	"github.com/trezcool/masomo/core/user"
	emailsvc "github.com/trezcool/masomo/services/email"
	inmemdb "github.com/trezcool/masomo/storage/database/inmem"
)

type testLogger struct{ errs []string }

func (l *testLogger) Debug(string, ...interface{}) {}
func (l *testLogger) Info(string, ...interface{})  {}
func (l *testLogger) Warn(string, ...interface{})  {}
func (l *testLogger) Error(msg string, _ ...interface{}) { l.errs = append(l.errs, msg) }
func (l *testLogger) Fatal(msg string, _ ...interface{}) { l.errs = append(l.errs, msg) }

type deps struct {
	conf *core.Config
	mail *emailsvc.ConsoleServiceMock
	svc  user.Service
}

func setup(t *testing.T) deps {
	logger := new(testLogger)
	conf := core.NewTestConfig()
	core.ParseEmailTemplates(conf, logger)
	user.LoadCommonPasswords(logger)
	require.Empty(t, logger.errs)

	mail := emailsvc.NewConsoleServiceMock(conf, logger)
	repo := inmemdb.NewUserRepository(inmemdb.Open())
	return deps{conf: conf, mail: mail, svc: user.NewService(repo, mail, conf)}
}

func newValidator() func(s interface{}) map[string]string {
	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	return func(s interface{}) map[string]string {
		err := validate.Struct(s)
		if err == nil {
			return nil
		}
		return core.TranslateErrors(err.(validator.ValidationErrors), translator)
	}
}

func TestNewUser_validation(t *testing.T) {
	setup(t)
	validate := newValidator()

	newUser := func(pwd string) user.NewUser {
		return user.NewUser{
			Name:            "Amy Pond",
			Username:        "amypond1",
			Email:           "amy@test.cd",
			Password:        pwd,
			PasswordConfirm: pwd,
		}
	}

	tests := []struct {
		name string
		nu   user.NewUser
		want map[string]string
	}{
		{name: "valid", nu: newUser("Xk9#mLq2vT")},
		{name: "too short", nu: newUser("Xk9#mL"), want: map[string]string{"password": "password must contain at least 8 characters"}},
		{name: "whitespace", nu: newUser("Xk9 #mLq2vT"), want: map[string]string{"password": "password must not contain whitespace"}},
		{name: "numeric", nu: newUser("12345678901"), want: map[string]string{"password": "password cannot be entirely numeric"}},
		{
			name: "simple",
			nu:   newUser("xk9mlq2vtz"),
			want: map[string]string{"password": "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"},
		},
		{name: "similar", nu: newUser("Amypond1!"), want: map[string]string{"password": "password cannot be similar to user attributes"}},
		{name: "common", nu: newUser("P@ssw0rd"), want: map[string]string{"password": "password is too common"}},
		{
			name: "no username nor email",
			nu:   user.NewUser{Name: "Amy", Password: "Xk9#mLq2vT", PasswordConfirm: "Xk9#mLq2vT"},
			want: map[string]string{"username": "one of username or email is required", "email": "one of username or email is required"},
		},
		{
			name: "bad roles",
			nu:   user.NewUser{Name: "Amy", Email: "amy@test.cd", Password: "Xk9#mLq2vT", PasswordConfirm: "Xk9#mLq2vT", Roles: []string{"admin:", "janitor"}},
			want: map[string]string{"roles": "invalid roles"},
		},
		{
			name: "bad username",
			nu:   user.NewUser{Name: "Amy", Username: "amy-pond", Password: "Xk9#mLq2vT", PasswordConfirm: "Xk9#mLq2vT"},
			want: map[string]string{"username": "only alphanumeric characters and underscores are allowed"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, validate(tt.nu))
		})
	}
}

func TestService_CreateAndGet(t *testing.T) {
	d := setup(t)
	ctx := context.Background()

	usr, err := d.svc.Create(ctx, user.NewUser{Name: "Amy", Username: "amy", Email: "amy@test.cd", Password: "Xk9#mLq2vT", Roles: []string{user.RoleTeacher}})
	require.NoError(t, err)
	assert.NotEmpty(t, usr.ID)
	assert.True(t, usr.Active())
	assert.NoError(t, usr.CheckPassword("Xk9#mLq2vT"))

	got, err := d.svc.GetByUsernameOrEmail(ctx, " AMY@test.cd ")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)

	_, err = d.svc.GetByID(ctx, "unknown")
	assert.Equal(t, user.ErrNotFound, err)

	err = d.svc.CheckUniqueness(ctx, "amy", "other@test.cd")
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, map[string]string{"username": user.ErrUsernameExists.Error()}, vErr.FieldMap())
	assert.NoError(t, d.svc.CheckUniqueness(ctx, "amy", "amy@test.cd", usr))

	before := time.Now().UTC()
	logged, err := d.svc.SetLastLogin(ctx, usr)
	require.NoError(t, err)
	assert.False(t, logged.LastLogin.Before(before))

	cnt, err := d.svc.Delete(ctx)
	require.NoError(t, err)
	assert.Zero(t, cnt)
	cnt, err = d.svc.Delete(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cnt)
}

func TestService_Query(t *testing.T) {
	d := setup(t)
	ctx := context.Background()
	for _, name := range []string{"Cyd", "Amy", "Bob"} {
		_, err := d.svc.Create(ctx, user.NewUser{Name: name, Username: name, Password: "Xk9#mLq2vT"})
		require.NoError(t, err)
	}

	users, err := d.svc.Query(ctx, nil, []core.DBOrdering{{Field: "name", Ascending: true}}, core.Page{Number: 1, Size: 2})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Amy", users[0].Name)
	assert.Equal(t, "Bob", users[1].Name)

	cnt, err := d.svc.Count(ctx, &user.QueryFilter{Search: "y"})
	require.NoError(t, err)
	assert.Equal(t, 2, cnt)

	_, err = d.svc.Query(ctx, nil, []core.DBOrdering{{Field: "password_hash"}}, core.Page{})
	var vErr *core.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestService_MailDirectoryExport(t *testing.T) {
	d := setup(t)

	amy := user.User{Name: "Amy", Email: "amy@test.cd"}
	require.NoError(t, d.svc.MailDirectoryExport(amy, "members.csv", []byte("Name\nAmy\nBob\n"), 2))

	sent := d.mail.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "amy@test.cd", sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, "the 2 member(s) you exported")
	require.Len(t, sent[0].Attachments, 1)
	assert.Equal(t, "text/csv", sent[0].Attachments[0].ContentType)
	content, err := base64.StdEncoding.DecodeString(sent[0].Attachments[0].Content.String())
	require.NoError(t, err)
	assert.Equal(t, "Name\nAmy\nBob\n", string(content))

	err = d.svc.MailDirectoryExport(user.User{Name: "Bob"}, "members.csv", nil, 0)
	var vErr *core.ValidationError
	assert.ErrorAs(t, err, &vErr)
	assert.Len(t, d.mail.SentMessages(), 1)
}

func TestDirectoryColumns(t *testing.T) {
	loggedIn := time.Date(2021, 3, 1, 10, 30, 0, 0, time.UTC)
	inactive := user.User{ID: "2", Name: "Bob", Roles: []string{user.RoleTeacher, user.RoleAdminOwner}, CreatedAt: loggedIn}
	inactive.SetActive(false)
	users := []user.User{
		inactive,
		{ID: "1", Name: "Amy", Email: "amy@test.cd", Roles: []string{user.RoleStudent}, CreatedAt: loggedIn, LastLogin: loggedIn},
	}

	tbl, err := datatable.New(datatable.Options[string, user.User]{Columns: user.DirectoryColumns(), RowKey: user.DirectoryKey})
	require.NoError(t, err)
	tbl.SetData(users)
	require.NoError(t, tbl.ClickHeader("last_login"))

	v := tbl.Render()
	require.Len(t, v.Rows, 2)
	assert.Equal(t, "1", v.Rows[0].Key)

	text := func(row datatable.RowView, key string) string {
		for _, c := range row.Cells {
			if c.Key == key {
				return c.PlainText()
			}
		}
		return ""
	}
	assert.Equal(t, "2021-03-01 10:30", text(v.Rows[0], "last_login"))
	assert.Equal(t, "-", text(v.Rows[1], "last_login"))
	assert.Equal(t, "-", text(v.Rows[1], "email"))
	assert.Equal(t, "Teacher, Admin Owner", text(v.Rows[1], "roles"))
	assert.Equal(t, "Inactive", text(v.Rows[1], "is_active"))
	assert.Equal(t, "Active", text(v.Rows[0], "is_active"))

	// null last logins stay last when descending
	require.NoError(t, tbl.ClickHeader("last_login"))
	assert.Equal(t, "1", tbl.Render().Rows[0].Key)

	for _, col := range user.DirectoryColumns() {
		if col.Sortable {
			assert.Contains(t, user.OrderingFields, col.Key)
		}
	}
	assert.Len(t, user.DirectoryRoleFilter(), len(user.Roles))
}
