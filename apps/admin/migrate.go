package main

import (
	"github.com/pressly/goose/v3"

	appfs "github.com/kahero/ratiba/fs"
)

func (cli *commandLine) migrate(args []string) error {
	goose.SetBaseFS(appfs.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	var arguments []string
	if len(args) > 1 {
		arguments = args[1:]
	}
	return goose.Run(args[0], cli.db, "migrations", arguments...)
}
