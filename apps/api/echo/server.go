package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/dismod47/GroupChatProject/core"
	"github.com/dismod47/GroupChatProject/core/audit"
	"github.com/dismod47/GroupChatProject/core/chat"
	"github.com/dismod47/GroupChatProject/core/course"
	"github.com/dismod47/GroupChatProject/core/group"
	"github.com/dismod47/GroupChatProject/core/user"
)

type (
	// Subscriber serves live group events over a websocket.
	Subscriber interface {
		Serve(w http.ResponseWriter, r *http.Request, groupID, userName string) error
		// Rename keeps open subscriptions attached to a renamed user.
		Rename(oldName, newName string)
		Close()
	}

	Deps struct {
		UserSvc    *user.Service
		CourseSvc  *course.Service
		GroupSvc   *group.Service
		ChatSvc    *chat.Service
		AuditSvc   *audit.Service
		Subscriber Subscriber
		// CoursesSeed is the YAML catalog applied by the admin seed endpoint.
		CoursesSeed []byte
	}

	Server struct {
		conf     *core.Config
		logger   core.Logger
		app      *echo.Echo
		deps     *Deps
		shutdown chan os.Signal
		errors   chan error
	}
)

func NewServer(
	conf *core.Config,
	logger core.Logger,
	validate *validator.Validate,
	translator ut.Translator,
	deps *Deps,
) *Server {
	configureAuth(conf)

	s := &Server{
		conf:     conf,
		logger:   logger,
		app:      echo.New(),
		deps:     deps,
		shutdown: make(chan os.Signal, 1),
		errors:   make(chan error, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup(validate, translator)
	return s
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) setup(validate *validator.Validate, translator ut.Translator) {
	s.app.HideBanner = true
	s.app.Debug = s.conf.Debug
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.logger, translator, s.signalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.conf.Debug || s.conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: s.conf.Server.AllowedOrigins}))

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)
	admin := adminMiddleware(s.deps.UserSvc)

	registerUserAPI(v1, jwt, s.deps, validate)
	registerCourseAPI(v1, jwt, s.deps, validate)
	registerGroupAPI(v1, jwt, s.deps)
	registerChatAPI(v1, jwt, s.deps)
	registerAdminAPI(v1, jwt, admin, s.deps)
	registerLiveAPI(v1, middleware.JWTWithConfig(wsJWTConfig), s.deps)
}

// Start listens until the server is shut down. Listener errors are sent to Errors().
func (s *Server) Start() {
	srv := &http.Server{
		Addr:         s.conf.Server.Host,
		ReadTimeout:  s.conf.Server.ReadTimeout,
		WriteTimeout: s.conf.Server.WriteTimeout,
	}
	if err := s.app.StartServer(srv); err != nil && err != http.ErrServerClosed {
		s.errors <- errors.Wrap(err, "starting server")
	}
}

// Shutdown closes live subscriptions then gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.deps.Subscriber != nil {
		s.deps.Subscriber.Close()
	}
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.conf.AppName+" API!")
}
