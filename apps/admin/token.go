package main

import (
	"context"
	"fmt"

	echoapi "github.com/trezcool/ratiba/apps/api/echo"
)

// printToken mints an API token for operators. Inactive users get none.
func (cli *commandLine) printToken(uname string) error {
	usr, err := cli.usrSvc.GetByUsernameOrEmail(context.Background(), uname)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return fmt.Errorf("user %q is deactivated", usr.Username)
	}
	token, err := echoapi.GenerateToken(echoapi.GetUserClaims(usr, cli.conf), cli.conf.SecretKey)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, token)
	return nil
}
