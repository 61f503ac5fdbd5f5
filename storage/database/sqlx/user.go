package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/user"
)

const (
	userTable   = `"user"`
	userColumns = "id, name, username, email, is_active, roles, password_hash, created_at, updated_at, last_login"
)

type (
	userRepository struct {
		exec core.DBExecutor
	}

	userRow struct {
		ID           string         `db:"id"`
		Name         string         `db:"name"`
		Username     null.String    `db:"username"`
		Email        null.String    `db:"email"`
		IsActive     bool           `db:"is_active"`
		Roles        pq.StringArray `db:"roles"`
		PasswordHash null.Bytes     `db:"password_hash"`
		CreatedAt    null.Time      `db:"created_at"`
		UpdatedAt    null.Time      `db:"updated_at"`
		LastLogin    null.Time      `db:"last_login"`
	}

	// where accumulates "?" placeholder conditions, ANDed.
	where struct {
		conds []string
		args  []interface{}
	}
)

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{exec: exec}
}

func (repo userRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func toRow(usr user.User) userRow {
	active := true
	if usr.IsActive != nil {
		active = *usr.IsActive
	}
	roles := usr.Roles
	if roles == nil {
		roles = []string{}
	}
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     null.NewString(usr.Username, usr.Username != ""),
		Email:        null.NewString(usr.Email, usr.Email != ""),
		IsActive:     active,
		Roles:        roles,
		PasswordHash: null.BytesFrom(usr.PasswordHash),
		CreatedAt:    null.NewTime(usr.CreatedAt.UTC(), !usr.CreatedAt.IsZero()),
		UpdatedAt:    null.NewTime(usr.UpdatedAt.UTC(), !usr.UpdatedAt.IsZero()),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (r userRow) user() user.User {
	active := r.IsActive
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username.String,
		Email:        r.Email.String,
		IsActive:     &active,
		Roles:        []string(r.Roles),
		PasswordHash: r.PasswordHash.Bytes,
		CreatedAt:    r.CreatedAt.Time,
		UpdatedAt:    r.UpdatedAt.Time,
		LastLogin:    r.LastLogin.Time,
	}
}

func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, "("+cond+")")
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// query runs q (with "?" placeholders) and scans the resulting users.
func (repo userRepository) query(ctx context.Context, exec core.DBExecutor, q string, args ...interface{}) ([]user.User, error) {
	rows, err := exec.QueryContext(ctx, sqlx.Rebind(sqlx.DOLLAR, q), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var res []userRow
	if err = sqlx.StructScan(rows, &res); err != nil {
		return nil, err
	}
	users := make([]user.User, 0, len(res))
	for _, r := range res {
		users = append(users, r.user())
	}
	return users, nil
}

// queryOne is query for statements returning at most one row.
func (repo userRepository) queryOne(ctx context.Context, exec core.DBExecutor, q string, args ...interface{}) (user.User, error) {
	users, err := repo.query(ctx, exec, q, args...)
	if err != nil {
		return user.User{}, err
	}
	if len(users) == 0 {
		return user.User{}, sql.ErrNoRows
	}
	return users[0], nil
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	w := new(where)
	w.add("username = ? OR email = ?", null.NewString(username, username != ""), null.NewString(email, email != ""))
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		cond, args, err := sqlx.In("id NOT IN (?)", ids)
		if err != nil {
			return errors.Wrap(err, "checking user uniqueness")
		}
		w.add(cond, args...)
	}

	usr, err := repo.queryOne(ctx, repo.getExec(exec), "SELECT "+userColumns+" FROM "+userTable+w.String()+" LIMIT 1", w.args...)
	switch {
	case errors.Cause(err) == sql.ErrNoRows:
		return nil
	case err != nil:
		return errors.Wrap(err, "checking user uniqueness")
	case username != "" && usr.Username == username:
		return user.ErrUsernameExists
	}
	return user.ErrEmailExists
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.ID = uuid.New().String()
	r := toRow(usr)
	q := "INSERT INTO " + userTable + " (" + userColumns + ") " +
		"VALUES (?, ?, ?, ?, ?, ?, ?, COALESCE(?, NOW()), COALESCE(?, NOW()), ?) RETURNING " + userColumns
	created, err := repo.queryOne(ctx, repo.getExec(exec), q,
		r.ID, r.Name, r.Username, r.Email, r.IsActive, r.Roles, r.PasswordHash, r.CreatedAt, r.UpdatedAt, r.LastLogin)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return created, nil
}

func filterWhere(filter *user.QueryFilter) *where {
	w := new(where)
	if filter == nil {
		return w
	}

	// users with Name, Username or Email matching the search keyword
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		w.add("name ILIKE ? OR username ILIKE ? OR email ILIKE ?", val, val, val)
	}
	// users with any role that starts with any of the provided roles
	if len(filter.Roles) > 0 {
		conds := make([]string, 0, len(filter.Roles))
		args := make([]interface{}, 0, len(filter.Roles))
		for _, role := range filter.Roles {
			conds = append(conds, "EXISTS (SELECT 1 FROM UNNEST(roles) user_role WHERE user_role ILIKE ?)")
			args = append(args, role+"%")
		}
		w.add(strings.Join(conds, " OR "), args...)
	}
	if filter.IsActive != nil {
		w.add("is_active = ?", *filter.IsActive)
	}
	if !filter.CreatedFrom.IsZero() {
		w.add("created_at >= ?", filter.CreatedFrom.UTC())
	}
	if !filter.CreatedTo.IsZero() {
		w.add("created_at <= ?", filter.CreatedTo.UTC())
	}
	return w
}

func orderBy(ordering []core.DBOrdering) (string, error) {
	if len(ordering) == 0 {
		return " ORDER BY created_at ASC, id ASC", nil
	}
	if err := user.ValidateOrdering(ordering); err != nil {
		return "", err
	}
	orderList := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		orderList = append(orderList, ord.String())
	}
	orderList = append(orderList, "id ASC") // stable pages
	return " ORDER BY " + strings.Join(orderList, ", "), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, page core.Page, exec ...core.DBExecutor) ([]user.User, error) {
	order, err := orderBy(ordering)
	if err != nil {
		return nil, err
	}
	w := filterWhere(filter)
	q := "SELECT " + userColumns + " FROM " + userTable + w.String() + order
	if !page.IsZero() {
		q += " LIMIT " + strconv.Itoa(page.Limit()) + " OFFSET " + strconv.Itoa(page.Offset())
	}

	users, err := repo.query(ctx, repo.getExec(exec), q, w.args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return users, nil
}

func (repo userRepository) CountUsers(ctx context.Context, filter *user.QueryFilter, exec ...core.DBExecutor) (int, error) {
	w := filterWhere(filter)
	q := sqlx.Rebind(sqlx.DOLLAR, "SELECT COUNT(*) FROM "+userTable+w.String())

	var cnt int
	if err := repo.getExec(exec).QueryRowContext(ctx, q, w.args...).Scan(&cnt); err != nil {
		return 0, errors.Wrap(err, "counting users")
	}
	return cnt, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	w := new(where)
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		w.add("id = ?", filter.ID)
	case filter.Username != "":
		w.add("username = ?", filter.Username)
	case filter.Email != "":
		w.add("email = ?", filter.Email)
	case len(filter.UsernameOrEmail) > 0:
		var email string
		uname := filter.UsernameOrEmail[0]
		if len(filter.UsernameOrEmail) == 2 {
			email = filter.UsernameOrEmail[1]
		}
		if email == "" {
			email = uname
		} else if uname == "" {
			uname = email
		}
		if uname == "" {
			return user.User{}, user.ErrNotFound
		}
		w.add("username = ? OR email = ?", uname, email)
	default:
		return user.User{}, user.ErrNotFound
	}

	usr, err := repo.queryOne(ctx, repo.getExec(exec), "SELECT "+userColumns+" FROM "+userTable+w.String()+" LIMIT 1", w.args...)
	if err != nil {
		return user.User{}, trapNoRowsErr(err, "finding user")
	}
	return usr, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	r := toRow(usr)
	q := "UPDATE " + userTable + " SET name = ?, username = ?, email = ?, is_active = ?, roles = ?, " +
		"password_hash = ?, updated_at = NOW(), last_login = ? WHERE id = ? RETURNING " + userColumns
	updated, err := repo.queryOne(ctx, repo.getExec(exec), q,
		r.Name, r.Username, r.Email, r.IsActive, r.Roles, r.PasswordHash, r.LastLogin, r.ID)
	if err != nil {
		return user.User{}, trapNoRowsErr(err, "updating user")
	}
	return updated, nil
}

func (repo userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		return repo.CreateUser(ctx, usr, exec...)
	}
	return repo.UpdateUser(ctx, usr, exec...)
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return 0, nil
	}

	q, args, err := sqlx.In("DELETE FROM "+userTable+" WHERE id IN (?)", valid)
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	res, err := repo.getExec(exec).ExecContext(ctx, sqlx.Rebind(sqlx.DOLLAR, q), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	return int(cnt), nil
}
