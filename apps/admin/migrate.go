package main

import (
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/trezcool/roster/storage/database"
)

var gooseRunFunc = goose.Run // mockable

var errNoDatabase = errors.New("migrations need a SQL database engine")

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNoDatabase
	}
	engine := cli.db.DriverName()
	if err := database.PrepareMigrations(engine); err != nil {
		return err
	}

	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(args[0], cli.db.DB, database.MigrationsDir(engine), arguments...)
}
