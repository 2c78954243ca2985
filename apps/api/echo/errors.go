package echoapi

import (
	"net/http"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/roster/core"
	"github.com/trezcool/roster/core/roster"
	"github.com/trezcool/roster/core/session"
	"github.com/trezcool/roster/core/student"
	"github.com/trezcool/roster/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errSessionExpired       = echo.NewHTTPError(http.StatusUnauthorized, "session has expired")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "Login failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
	errInFlight             = echo.NewHTTPError(http.StatusConflict, "operation already in progress")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		default:
			if core.IsValidationError(origErr) {
				code = http.StatusBadRequest
				if flds := core.FieldErrors(origErr, translator); flds != nil {
					message = flds
				} else {
					message = origErr.Error()
				}
				break
			}

			switch origErr {
			case student.ErrNotFound, user.ErrNotFound:
				code, message = errHttpNotFound.Code, errHttpNotFound.Message
			case roster.ErrInFlight:
				code, message = errInFlight.Code, errInFlight.Message
			case session.ErrNotFound, session.ErrExpired, roster.ErrClosed:
				code, message = errSessionExpired.Code, errSessionExpired.Message
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg
				logger.Error(msg, errors.Wrap(err, msg), claimsUser(ctx))

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		// console pages that do not exist lead to the login page (which leads to the dashboard when signed in)
		if !isAPIRequest(ctx) && (code == http.StatusNotFound || code == http.StatusMethodNotAllowed) {
			if err = ctx.Redirect(http.StatusFound, loginPath); err != nil {
				ctx.Echo().Logger.Error(err)
			}
			return
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

func isAPIRequest(ctx echo.Context) bool {
	p := ctx.Request().URL.Path
	return p == apiPrefix || strings.HasPrefix(p, apiPrefix+"/")
}
