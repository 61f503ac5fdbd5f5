package echoapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/user"
	emailsvc "github.com/trezcool/masomo/services/email"
	inmemdb "github.com/trezcool/masomo/storage/database/inmem"
)

type testLogger struct{ errs []string }

func (l *testLogger) Debug(string, ...interface{})        {}
func (l *testLogger) Info(string, ...interface{})         {}
func (l *testLogger) Warn(string, ...interface{})         {}
func (l *testLogger) Error(msg string, _ ...interface{}) { l.errs = append(l.errs, msg) }
func (l *testLogger) Fatal(msg string, _ ...interface{}) { l.errs = append(l.errs, msg) }

type testApp struct {
	srv    Server
	auth   *authenticator
	conf   *core.Config
	repo   user.Repository
	mail   *emailsvc.ConsoleServiceMock
	logger *testLogger
}

func setup(t *testing.T) *testApp {
	t.Helper()

	logger := new(testLogger)
	conf := core.NewTestConfig()
	conf.Table.DefaultPageSize = 10
	core.ParseEmailTemplates(conf, logger)
	user.LoadCommonPasswords(logger)
	require.Empty(t, logger.errs)

	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)

	repo := inmemdb.NewUserRepository(inmemdb.Open())
	mail := emailsvc.NewConsoleServiceMock(conf, logger)
	svc := user.NewService(repo, mail, conf)

	srv := NewServer(ServerDeps{
		Conf:       conf,
		Logger:     logger,
		UserSvc:    svc,
		Validate:   validate,
		Translator: translator,
	})
	t.Cleanup(func() { _ = srv.Close() })

	return &testApp{
		srv:    srv,
		auth:   srv.(*server).auth,
		conf:   conf,
		repo:   repo,
		mail:   mail,
		logger: logger,
	}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

// newFormRequest posts form as a browser would: no JSON Accept header.
func newFormRequest(path, token string, form url.Values) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: TokenCookie, Value: token})
	}
	return req, httptest.NewRecorder()
}

func (app *testApp) do(req *http.Request, rec *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	app.srv.ServeHTTP(rec, req)
	return rec
}

func (app *testApp) token(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := app.auth.generateToken(app.auth.userClaims(usr))
	require.NoError(t, err, "generateToken()")
	return token
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	require.NoError(t, err, "json.Marshal()")
	return data
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, tt.wantCode, rec.Code, "code; body %s", rec.Body.String())
	if tt.wantData != nil {
		assert.JSONEq(t, string(tt.wantData), rec.Body.String())
	}
}
