package user

import (
	"bytes"
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core"
)

var (
	// errors
	ErrNotFound       = errors.New("user not found")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrUsernameExists = errors.New("a user with this username already exists")

	errUnknownOrdering = "unknown ordering field"

	// OrderingFields are the fields users can be ordered by.
	OrderingFields = []string{"name", "username", "email", "is_active", "created_at", "updated_at", "last_login"}
)

type (
	// Repository persists users. Every method runs on exec when given, on the repository's DB otherwise.
	Repository interface {
		CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []User, exec ...core.DBExecutor) error
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		// QueryUsers returns the users matching filter (all when nil), ordered, limited to page (all when zero).
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Page, exec ...core.DBExecutor) ([]User, error)
		CountUsers(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) (int, error)
		GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		UpdateOrCreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
	}

	Service interface {
		CheckUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error
		Create(ctx context.Context, nu NewUser) (User, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Page) ([]User, error)
		Count(ctx context.Context, filter *QueryFilter) (int, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByUsernameOrEmail(ctx context.Context, uname string) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		Delete(ctx context.Context, ids ...string) (int, error)
		// MailDirectoryExport mails an exported member list to usr as an attachment.
		MailDirectoryExport(usr User, filename string, content []byte, count int) error
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) Service {
	return &service{repo: repo, mailSvc: mailSvc, conf: conf}
}

func (svc *service) CheckUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(ctx, uname, email, exclUsers); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return errors.Wrap(err, "checking uniqueness")
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: errors.Cause(err).Error()})
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Name:      nu.Name,
		Username:  nu.Username,
		Email:     nu.Email,
		Roles:     nu.Roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	usr.SetActive(true)
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Page) ([]User, error) {
	if err := ValidateOrdering(ordering); err != nil {
		return nil, err
	}
	return svc.repo.QueryUsers(ctx, filter, ordering, page)
}

func (svc *service) Count(ctx context.Context, filter *QueryFilter) (int, error) {
	return svc.repo.CountUsers(ctx, filter)
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: []string{core.CleanString(uname, true /* lower */)}})
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) Delete(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return svc.repo.DeleteUsersByID(ctx, ids)
}

func (svc *service) MailDirectoryExport(usr User, filename string, content []byte, count int) error {
	if usr.Email == "" {
		return core.NewValidationError(errors.New("you have no email address"))
	}
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Member directory export",
		TemplateName: "directory_export",
		TemplateData: map[string]interface{}{"Name": usr.Name, "Count": count},
	}
	if err := msg.Attach(bytes.NewReader(content), filename, "text/csv"); err != nil {
		return errors.Wrap(err, "attaching export")
	}
	svc.mailSvc.SendMessages(msg)
	return nil
}

// ValidateOrdering checks that users can be ordered by every field of ordering.
func ValidateOrdering(ordering []core.DBOrdering) error {
	for _, ord := range ordering {
		if !isOrderingField(ord.Field) {
			return core.NewValidationError(nil, core.FieldError{Field: "ordering", Error: errUnknownOrdering + " " + ord.Field})
		}
	}
	return nil
}

func isOrderingField(field string) bool {
	for _, f := range OrderingFields {
		if f == field {
			return true
		}
	}
	return false
}
