package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/roster/apps/api/echo"
	"github.com/trezcool/roster/core"
	"github.com/trezcool/roster/core/session"
	"github.com/trezcool/roster/core/student"
	"github.com/trezcool/roster/core/user"
	appfs "github.com/trezcool/roster/fs"
	emailsvc "github.com/trezcool/roster/services/email"
	logsvc "github.com/trezcool/roster/services/logger"
	"github.com/trezcool/roster/storage/database"
	inmemdb "github.com/trezcool/roster/storage/database/inmem"
	sqlxrepos "github.com/trezcool/roster/storage/database/sqlx"
	redissessions "github.com/trezcool/roster/storage/session/redis"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up repositories
	var (
		usrRepo user.Repository
		stdRepo student.Repository
		store   session.Store
	)
	if conf.Database.Engine == core.DBEngineMemory {
		memDB := inmemdb.Open()
		usrRepo, stdRepo, store = inmemdb.NewUserRepository(memDB), inmemdb.NewStudentRepository(memDB), inmemdb.NewSessionStore(memDB)
	} else {
		db, err := setUpDB(conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
		}
		defer func() {
			if err = db.Close(); err != nil {
				dbLogger.Error(fmt.Sprintf("closing database: %v", err), err)
			}
		}()
		usrRepo, stdRepo = sqlxrepos.NewUserRepository(db), sqlxrepos.NewStudentRepository(db)
		store = inmemdb.NewSessionStore(inmemdb.Open())
	}

	if conf.Session.Store == core.SessionStoreRedis {
		client := redissessions.NewClient(conf)
		defer func() {
			if err := client.Close(); err != nil {
				logger.Error(fmt.Sprintf("closing redis client: %v", err), err)
			}
		}()
		store = redissessions.NewStore(client)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	usrSvc := user.NewService(usrRepo, mailSvc, conf)
	sessions := session.NewManager(store, usrSvc, conf.Session.TTL)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf, logger)
	user.LoadCommonPasswords(appfs.FS, appfs.CommonPasswordsFile, logger)

	if conf.Admin.Email != "" {
		if _, err := usrSvc.EnsureAdmin(context.Background(), validate, conf.Admin.Name, conf.Admin.Email, conf.Admin.Password); err != nil {
			logger.Fatal(fmt.Sprintf("seeding admin %s: %v", conf.Admin.Email, err), err)
		}
	} else if conf.Database.Engine == core.DBEngineMemory {
		logger.Warn("in-memory database without a seeded admin (ADMIN_EMAIL): nobody can sign in")
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("database").Set(conf.Database.Engine)
	expvar.NewString("sessions").Set(conf.Session.Store)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server, err := echoapi.NewServer(conf.Server.Address, shutdown, &echoapi.Deps{
		Conf:       conf,
		Logger:     logger,
		UserSvc:    usrSvc,
		StudentSvc: student.NewService(stdRepo),
		Sessions:   sessions,
		Validate:   validate,
		Translator: translator,
	})
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up server: %v", err), err)
	}

	go func() {
		logger.Info(fmt.Sprintf("Listening on %s", conf.Server.Address))
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
