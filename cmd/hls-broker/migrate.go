package main

import (
	"github.com/pressly/goose"
	cli "gopkg.in/urfave/cli.v1"

	_ "github.com/Vizzuality/HLS-data-project/migrations"
	"github.com/Vizzuality/HLS-data-project/util"
)

func migrateDatabaseAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	database, err := getConnectionProviderFunc(cfg)(&util.BasicLogContext{})
	if err != nil {
		return util.LogSimpleErr(&util.BasicLogContext{}, "Could not open database connection.", err)
	}
	defer database.Close()

	return goose.Run("up", database, ".")
}
