package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/roster/apps/api/echo"
	"github.com/trezcool/roster/core"
	"github.com/trezcool/roster/core/session"
	"github.com/trezcool/roster/core/student"
	"github.com/trezcool/roster/core/user"
	"github.com/trezcool/roster/fs"
	"github.com/trezcool/roster/services/email"
	"github.com/trezcool/roster/storage/database/inmem"
	"github.com/trezcool/roster/tests"
)

const (
	adminPwd  = "Gr8-Roster!"
	csrfField = "_csrf" // cookie & form field
	csrfToken = "Xq3bW9rTz7LmKp2VhN8cYd4sFg6jAe1u"
)

var (
	app      Server
	db       *inmemdb.DB
	usrRepo  user.Repository
	stdRepo  student.Repository
	sessions *session.Manager

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

func TestMain(m *testing.M) {
	var err error

	conf := &core.Config{
		AppName:                   "Roster",
		TestMode:                  true,
		SecretKey:                 "secret",
		FrontendBaseURL:           "http://roster.test",
		PasswordResetTimeoutDelta: time.Hour,
	}
	conf.Server.JWTExpirationDelta = time.Hour
	conf.Server.JWTRefreshExpirationDelta = 24 * time.Hour
	conf.Session.TTL = time.Hour

	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	user.LoadCommonPasswords(appfs.FS, appfs.CommonPasswordsFile, testutil.NopLogger{})
	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf, testutil.NopLogger{})

	// set up DB & repos
	db = inmemdb.Open()
	usrRepo = inmemdb.NewUserRepository(db)
	stdRepo = inmemdb.NewStudentRepository(db)

	// set up services
	usrSvc := user.NewService(usrRepo, emailsvc.NewConsoleServiceMock(conf), conf)
	sessions = session.NewManager(inmemdb.NewSessionStore(db), usrSvc, conf.Session.TTL)

	// set up server
	app, err = NewServer(
		"",  /* addr */
		nil, /* shutdown */
		&Deps{
			Conf:       conf,
			Logger:     testutil.NopLogger{},
			UserSvc:    usrSvc,
			StudentSvc: student.NewService(stdRepo),
			Sessions:   sessions,
			Validate:   validate,
			Translator: translator,
		},
	)
	if err != nil {
		fmt.Printf("NewServer(): %v", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
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
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// newFormRequest builds a console request carrying a valid CSRF token,
// authenticated by the session cookie when given.
func newFormRequest(method, path string, cookie *http.Cookie, form url.Values) (*http.Request, *httptest.ResponseRecorder) {
	data := url.Values{}
	for k, v := range form {
		data[k] = v
	}
	if method != http.MethodGet {
		data.Set(csrfField, csrfToken)
	}
	req := newCSRFRequest(method, path, data, csrfToken)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req, httptest.NewRecorder()
}

// newCSRFRequest builds a console form request with the given CSRF cookie ("" for none).
func newCSRFRequest(method, path string, form url.Values, cookieToken string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookieToken != "" {
		req.AddCookie(&http.Cookie{Name: csrfField, Value: cookieToken})
	}
	return req
}

func createAdmin(t *testing.T, email string, isActive bool) user.User {
	return testutil.CreateUser(t, usrRepo, "Admin", email, adminPwd, isActive)
}

// getToken signs in through the API.
func getToken(t *testing.T, email string) string {
	req, rec := newRequest(http.MethodPost, "/api/auth/login", marchallObj(t, LoginRequest{Email: email, Password: adminPwd}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("getToken(): code = %v; body %s", rec.Code, rec.Body.String())
	}
	var resp LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return resp.Token
}

// getSessionCookie signs in through the console.
func getSessionCookie(t *testing.T, email string) *http.Cookie {
	req, rec := newFormRequest(http.MethodPost, "/login", nil, url.Values{"email": {email}, "password": {adminPwd}})
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("getSessionCookie(): code = %v; body %s", rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == "roster_session" {
			return c
		}
	}
	t.Fatal("getSessionCookie(): no session cookie")
	return nil
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, tt.wantCode, rec.Code, "code")
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
