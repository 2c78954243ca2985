package main

import (
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/roster/core"
	"github.com/trezcool/roster/core/user"
	appfs "github.com/trezcool/roster/fs"
	emailsvc "github.com/trezcool/roster/services/email"
	logsvc "github.com/trezcool/roster/services/logger"
	"github.com/trezcool/roster/storage/database"
	sqlxrepos "github.com/trezcool/roster/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	user.LoadCommonPasswords(appfs.FS, appfs.CommonPasswordsFile, logger)

	if err := checkEngine(conf.Database.Engine); err != nil {
		printError(err, translator)
		os.Exit(1)
	}
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer func() { _ = db.Close() }()

	cli := commandLine{db: db, validate: validate, translator: translator}
	cli.usrSvc = user.NewService(sqlxrepos.NewUserRepository(db), emailsvc.NewConsoleService(conf), conf)

	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			printError(err, translator)
		}
		_ = db.Close()
		os.Exit(1)
	}
}

func printError(err error, translator ut.Translator) {
	if !core.IsValidationError(err) {
		fmt.Printf("\nerror: %v\n", err)
		return
	}

	fields := core.FieldErrors(err, translator)
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("\ninvalid input:")
	for _, name := range names {
		fmt.Printf("  %s: %s\n", name, fields[name])
	}
}
