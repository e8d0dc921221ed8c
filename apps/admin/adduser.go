package main

import (
	"context"
	"fmt"

	"github.com/trezcool/ratiba/core/user"
)

// addUser updates or creates an active user.User
func (cli *commandLine) addUser(uname, email, name string, isAdmin, isStaff bool) error {
	ctx := context.Background()
	usr := user.User{
		Name:     name,
		Username: uname,
		Email:    email,
		IsActive: true,
	}
	switch {
	case isAdmin:
		usr.Roles = user.AllRoles
	case isStaff:
		usr.Roles = []string{user.RoleStaff}
	}

	usr, err := cli.usrSvc.Sync(ctx, usr)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "user %q saved (id: %s)\n", usr.Username, usr.ID)
	return nil
}
