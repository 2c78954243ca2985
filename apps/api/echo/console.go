package echoapi

import (
	"fmt"
	"net/http"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/roster/core"
	"github.com/trezcool/roster/core/roster"
	"github.com/trezcool/roster/core/session"
	"github.com/trezcool/roster/core/student"
	"github.com/trezcool/roster/core/user"
)

const (
	apiPrefix         = "/api"
	loginPath         = "/login"
	logoutPath        = "/logout"
	passwordResetPath = "/password-reset"
	dashboardPath     = "/dashboard"
	studentsPath      = dashboardPath + "/students"
)

// user facing notices
const (
	noticeLoginFailed     = "Login failed"
	noticeWriteFailed     = "Something went wrong, the changes were not saved. Please try again."
	noticeInFlight        = "This operation is already in progress."
	noticeStudentNotFound = "This student no longer exists."
	noticeSignOutFailed   = "Could not sign out. Please try again."
	noticeInvalidReset    = "The password reset link is invalid or has expired."
)

type (
	layoutData struct {
		Title    string
		SignedIn bool
		Admin    string
		Notice   string
	}

	loginPage struct {
		layoutData
		Email  string
		Errors map[string]string
	}

	studentsPage struct {
		layoutData
		Students  []student.Student
		ModalOpen bool
		Editing   *student.Student
		Form      student.Data
		Errors    map[string]string

		keepForm bool
	}

	passwordResetPage struct {
		layoutData
		UID    string
		Token  string
		Errors map[string]string
		Done   bool
	}
)

// FormAction is where the student form posts to.
func (p studentsPage) FormAction() string {
	if p.Editing != nil {
		return studentsPath + "/" + p.Editing.ID
	}
	return studentsPath
}

// console is the server-rendered admin console.
type console struct {
	conf       *core.Config
	auth       *auth
	users      *user.Service
	sessions   *session.Manager
	rosters    *rosterRegistry
	validate   *validator.Validate
	translator ut.Translator
	logger     core.Logger
}

func registerConsole(app *echo.Echo, c *console) {
	app.GET(loginPath, c.loginPage)
	app.POST(loginPath, c.login)
	app.GET(passwordResetPath, c.passwordResetPage)
	app.POST(passwordResetPath, c.resetPassword)

	requireAuth := consoleAuthMiddleware(c.auth, c.sessions)
	app.POST(logoutPath, c.logout, requireAuth)
	app.GET(dashboardPath, c.toStudents)
	app.GET(dashboardPath+"/*", c.toStudents)

	sg := app.Group(studentsPath, requireAuth)
	sg.GET("", c.students)
	sg.POST("", c.createStudent)
	sg.GET("/new", c.newStudent)
	sg.POST("/close", c.closeModal)
	sg.GET("/:id/edit", c.editStudent)
	sg.POST("/:id", c.updateStudent)
	sg.POST("/:id/delete", c.deleteStudent)
}

func (c *console) secureCookies() bool {
	return !(c.conf.Debug || c.conf.TestMode)
}

func (c *console) contextRoster(ctx echo.Context) (*roster.Roster, session.Session) {
	sess, _ := getContextSession(ctx) // set by consoleAuthMiddleware
	return c.rosters.get(sess), sess
}

// Authentication gate

func (c *console) loginPage(ctx echo.Context) error {
	if _, ok := consoleSession(ctx, c.auth, c.sessions); ok {
		return ctx.Redirect(http.StatusSeeOther, studentsPath)
	}
	return ctx.Render(http.StatusOK, "login", loginPage{layoutData: layoutData{Title: "Login"}})
}

func (c *console) login(ctx echo.Context) error {
	var form LoginRequest
	if err := ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}

	page := loginPage{layoutData: layoutData{Title: "Login"}}
	if err := form.Validate(c.validate); err != nil {
		page.Email = form.Email
		page.Errors = core.FieldErrors(err, c.translator)
		return ctx.Render(http.StatusBadRequest, "login", page)
	}

	token, err := c.auth.signIn(ctx, c.sessions, c.users, form.Email, form.Password)
	if err != nil {
		if cause := errors.Cause(err); cause != session.ErrAuthenticationFailed && cause != user.ErrAccountDeactivated {
			c.logger.Error(fmt.Sprintf("console: signing in: %v", err), err)
		}
		page.Email = form.Email
		page.Notice = noticeLoginFailed
		return ctx.Render(http.StatusBadRequest, "login", page)
	}

	ctx.SetCookie(newSessionCookie(token, time.Now().Add(c.conf.Session.TTL), c.secureCookies()))
	return ctx.Redirect(http.StatusSeeOther, studentsPath)
}

func (c *console) logout(ctx echo.Context) error {
	r, sess := c.contextRoster(ctx)
	if err := c.sessions.SignOut(ctx.Request().Context(), sess.ID); err != nil {
		c.logger.Error(fmt.Sprintf("console: signing out: %v", err), err, claimsUser(ctx))
		page := studentsPage{layoutData: layoutData{Notice: noticeSignOutFailed}}
		return c.renderStudents(ctx, http.StatusInternalServerError, r, page)
	}
	ctx.SetCookie(expiredSessionCookie(c.secureCookies()))
	return ctx.Redirect(http.StatusSeeOther, loginPath)
}

func (c *console) passwordResetPage(ctx echo.Context) error {
	return ctx.Render(http.StatusOK, "password_reset", passwordResetPage{
		layoutData: layoutData{Title: "Password reset"},
		UID:        ctx.QueryParam("uid"),
		Token:      ctx.QueryParam("token"),
	})
}

func (c *console) resetPassword(ctx echo.Context) error {
	var form user.ResetUserPassword
	if err := ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}

	page := passwordResetPage{layoutData: layoutData{Title: "Password reset"}, UID: form.UID, Token: form.Token}
	if err := form.Validate(c.validate); err != nil {
		page.Errors = core.FieldErrors(err, c.translator)
		return ctx.Render(http.StatusBadRequest, "password_reset", page)
	}
	if _, err := c.users.ResetPassword(ctx.Request().Context(), form); err != nil {
		if !core.IsValidationError(err) {
			c.logger.Error(fmt.Sprintf("console: resetting password: %v", err), err)
		}
		page.Notice = noticeInvalidReset
		return ctx.Render(http.StatusBadRequest, "password_reset", page)
	}

	page.Done = true
	return ctx.Render(http.StatusOK, "password_reset", page)
}

// Roster view

func (c *console) toStudents(ctx echo.Context) error {
	return ctx.Redirect(http.StatusFound, studentsPath)
}

func (c *console) renderStudents(ctx echo.Context, code int, r *roster.Roster, page studentsPage) error {
	sess, _ := getContextSession(ctx)
	page.Title = "Students"
	page.SignedIn = true
	page.Admin = sess.Email
	page.Students = r.Students()

	modal := r.Modal()
	page.ModalOpen = page.ModalOpen || modal.Open
	if page.Editing == nil {
		page.Editing = modal.Editing
	}
	if !page.keepForm && page.Editing != nil {
		page.Form = page.Editing.Data
	}
	return ctx.Render(code, "students", page)
}

func (c *console) students(ctx echo.Context) error {
	r, _ := c.contextRoster(ctx)
	if err := r.Load(ctx.Request().Context()); errors.Cause(err) == roster.ErrClosed {
		return ctx.Redirect(http.StatusSeeOther, loginPath)
	}
	// a failed load is logged by the roster & the previous list stays displayed
	return c.renderStudents(ctx, http.StatusOK, r, studentsPage{})
}

func (c *console) newStudent(ctx echo.Context) error {
	r, _ := c.contextRoster(ctx)
	r.Add()
	return c.renderStudents(ctx, http.StatusOK, r, studentsPage{})
}

func (c *console) editStudent(ctx echo.Context) error {
	r, _ := c.contextRoster(ctx)
	if err := r.Edit(ctx.Param("id")); err != nil {
		return ctx.Redirect(http.StatusSeeOther, studentsPath)
	}
	return c.renderStudents(ctx, http.StatusOK, r, studentsPage{})
}

func (c *console) closeModal(ctx echo.Context) error {
	r, _ := c.contextRoster(ctx)
	r.CloseModal()
	return ctx.Redirect(http.StatusSeeOther, studentsPath)
}

func (c *console) createStudent(ctx echo.Context) error {
	var data student.Data
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to student.Data")
	}
	r, _ := c.contextRoster(ctx)

	if _, err := r.Create(ctx.Request().Context(), data); err != nil {
		return c.writeFailed(ctx, r, err, studentsPage{Form: data, keepForm: true, ModalOpen: true})
	}
	return ctx.Redirect(http.StatusSeeOther, studentsPath)
}

func (c *console) updateStudent(ctx echo.Context) error {
	var data student.Data
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to student.Data")
	}
	r, _ := c.contextRoster(ctx)
	id := ctx.Param("id")

	if _, err := r.Update(ctx.Request().Context(), id, data); err != nil {
		editing := &student.Student{ID: id, Data: data}
		return c.writeFailed(ctx, r, err, studentsPage{Editing: editing, Form: data, keepForm: true, ModalOpen: true})
	}
	return ctx.Redirect(http.StatusSeeOther, studentsPath)
}

func (c *console) deleteStudent(ctx echo.Context) error {
	r, _ := c.contextRoster(ctx)
	if err := r.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return c.writeFailed(ctx, r, err, studentsPage{})
	}
	return ctx.Redirect(http.StatusSeeOther, studentsPath)
}

// writeFailed renders the roster after a failed write. Backend failures are already logged by the roster.
func (c *console) writeFailed(ctx echo.Context, r *roster.Roster, err error, page studentsPage) error {
	if core.IsValidationError(err) {
		page.Errors = core.FieldErrors(err, c.translator)
		return c.renderStudents(ctx, http.StatusBadRequest, r, page)
	}

	code := http.StatusInternalServerError
	switch errors.Cause(err) {
	case roster.ErrClosed:
		return ctx.Redirect(http.StatusSeeOther, loginPath)
	case roster.ErrInFlight:
		code = http.StatusConflict
		page.Notice = noticeInFlight
	case student.ErrNotFound:
		r.CloseModal()
		code = http.StatusNotFound
		page = studentsPage{layoutData: layoutData{Notice: noticeStudentNotFound}}
	default:
		page.Notice = noticeWriteFailed
	}
	return c.renderStudents(ctx, code, r, page)
}
