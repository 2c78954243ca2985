package echoapi

import (
	"context"
	"net/http"
	"os"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/trezcool/roster/core"
	"github.com/trezcool/roster/core/session"
	"github.com/trezcool/roster/core/student"
	"github.com/trezcool/roster/core/user"
	"github.com/trezcool/roster/fs"
)

type (
	Deps struct {
		Conf       *core.Config
		Logger     core.Logger
		UserSvc    *user.Service
		StudentSvc *student.Service
		Sessions   *session.Manager
		Validate   *validator.Validate
		Translator ut.Translator
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(ctx context.Context) error
		Close() error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		deps        *Deps
		app         *echo.Echo
		rosters     *rosterRegistry
		unsubscribe func()
		errors      chan error
		shutdown    chan os.Signal
	}
)

var _ Server = (*server)(nil)

// NewServer sets up the JSON API & the web console.
// shutdown may be nil, in which case the server creates its own channel.
func NewServer(addr string, shutdown chan os.Signal, deps *Deps) (Server, error) {
	if shutdown == nil {
		shutdown = make(chan os.Signal, 1)
	}
	s := &server{
		deps:     deps,
		app:      echo.New(),
		rosters:  newRosterRegistry(deps.StudentSvc, deps.Validate, deps.Logger),
		errors:   make(chan error, 1),
		shutdown: shutdown,
	}
	s.app.Server.Addr = addr
	s.app.Server.ReadTimeout = deps.Conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = deps.Conf.Server.WriteTimeout

	if err := s.setup(); err != nil {
		return nil, err
	}
	s.unsubscribe = deps.Sessions.Subscribe(s.rosters.onSessionEvent)
	return s, nil
}

func (s *server) setup() error {
	conf := s.deps.Conf

	renderer, err := newTemplateRenderer(appfs.FS, appfs.ConsoleTemplatesDir)
	if err != nil {
		return errors.Wrap(err, "loading console templates")
	}

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.Renderer = renderer
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	if conf.Debug {
		s.app.Logger.SetLevel(log.DEBUG)
	} else {
		s.app.Logger.SetLevel(log.INFO)
	}

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.Use(csrfMiddleware(!(conf.Debug || conf.TestMode)))

	a := newAuth(conf)
	requireAuth := []echo.MiddlewareFunc{a.middleware(), sessionMiddleware(s.deps.Sessions)}

	api := s.app.Group(apiPrefix)
	registerAuthAPI(api, requireAuth, &authApi{
		auth:     a,
		users:    s.deps.UserSvc,
		sessions: s.deps.Sessions,
		validate: s.deps.Validate,
		logger:   s.deps.Logger,
	})
	registerStudentAPI(api, requireAuth, &studentApi{
		svc:     s.deps.StudentSvc,
		rosters: s.rosters,
	})

	registerConsole(s.app, &console{
		conf:       conf,
		auth:       a,
		users:      s.deps.UserSvc,
		sessions:   s.deps.Sessions,
		rosters:    s.rosters,
		validate:   s.deps.Validate,
		translator: s.deps.Translator,
		logger:     s.deps.Logger,
	})
	return nil
}

// Start blocks until the server stops. Errors other than a graceful stop are sent to Errors().
func (s *server) Start() {
	if err := s.app.StartServer(s.app.Server); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) stopped() {
	s.unsubscribe()
	s.rosters.closeAll()
}

func (s *server) Shutdown(ctx context.Context) error {
	defer s.stopped()
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	defer s.stopped()
	return s.app.Close()
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.app.ServeHTTP(w, r)
}
