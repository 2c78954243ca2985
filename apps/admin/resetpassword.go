package main

import (
	"context"

	"github.com/trezcool/roster/core/user"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	// same password policy as on creation
	nu := user.NewUser{Name: usr.Name, Email: usr.Email, Password: pwd, PasswordConfirm: pwd}
	if err = nu.Validate(cli.validate); err != nil {
		return err
	}
	_, err = cli.usrSvc.SetPassword(ctx, usr.Email, pwd)
	return err
}
