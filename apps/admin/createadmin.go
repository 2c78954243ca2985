package main

import (
	"context"
)

// createAdmin creates an active admin, or re-activates an existing one with a new name & password.
func (cli *commandLine) createAdmin(name, email, pwd string) error {
	_, err := cli.usrSvc.EnsureAdmin(context.Background(), cli.validate, name, email, pwd)
	return err
}
