package main

import (
	"context"
)

func (cli *commandLine) resetPassword(name, pwd string) error {
	_, err := cli.usrSvc.SetPassword(context.Background(), name, pwd)
	return err
}
