package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/dismod47/GroupChatProject/core/user"
)

// addUser creates a user, or updates the password and roles of an existing one.
func (cli *commandLine) addUser(name, pwd string, isAdmin bool) error {
	ctx := context.Background()
	roles := user.StudentRoles
	if isAdmin {
		roles = user.AdminRoles
	}

	usr, err := cli.usrSvc.GetByName(ctx, name)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		nu := user.NewUser{Name: name, Password: pwd, Roles: roles}
		if err = nu.Validate(cli.validate); err != nil {
			return err
		}
		_, err = cli.usrSvc.Create(ctx, nu)
		return err
	}

	if usr, err = cli.usrSvc.SetPassword(ctx, usr.Name, pwd); err != nil {
		return err
	}
	_, err = cli.usrSvc.SetRoles(ctx, usr, roles)
	return err
}
