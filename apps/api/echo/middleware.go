package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/roster/core/session"
)

const (
	sessionCookieName = "roster_session"
	csrfCookieName    = "_csrf"
	csrfFormField     = "_csrf"
	contextCSRFKey    = "csrf"
)

// csrfMiddleware guards the console forms with a double submit cookie. The JSON API uses bearer tokens instead.
func csrfMiddleware(secure bool) echo.MiddlewareFunc {
	return middleware.CSRFWithConfig(middleware.CSRFConfig{
		Skipper:        isAPIRequest,
		TokenLookup:    "form:" + csrfFormField,
		ContextKey:     contextCSRFKey,
		CookieName:     csrfCookieName,
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   secure,
	})
}

// sessionMiddleware rejects tokens whose session was closed. It runs after the JWT middleware.
func sessionMiddleware(sessions *session.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			sess, err := sessions.Current(ctx.Request().Context(), claims.Id)
			if err != nil {
				return errors.Wrap(err, "getting current session")
			}
			ctx.Set(contextSessionKey, sess)
			return next(ctx)
		}
	}
}

// consoleAuthMiddleware authenticates console pages through the session cookie.
// Visitors without a live session are sent to the login page.
func consoleAuthMiddleware(a *auth, sessions *session.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sess, ok := consoleSession(ctx, a, sessions)
			if !ok {
				ctx.SetCookie(expiredSessionCookie(!(a.conf.Debug || a.conf.TestMode)))
				return ctx.Redirect(http.StatusSeeOther, loginPath)
			}
			ctx.Set(contextSessionKey, sess)
			return next(ctx)
		}
	}
}

// consoleSession returns the live session the request's cookie is bound to, if any.
func consoleSession(ctx echo.Context, a *auth, sessions *session.Manager) (session.Session, bool) {
	cookie, err := ctx.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return session.Session{}, false
	}
	token, err := a.parseToken(cookie.Value)
	if err != nil {
		return session.Session{}, false
	}
	ctx.Set(contextTokenKey, token)

	claims, _ := getContextClaims(ctx)
	sess, err := sessions.Current(ctx.Request().Context(), claims.Id)
	if err != nil {
		return session.Session{}, false
	}
	return sess, true
}
