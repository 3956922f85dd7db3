package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/kanisahq/kanisa/internal/migration"
	"github.com/kanisahq/kanisa/internal/observability"
	"github.com/kanisahq/kanisa/internal/server"
	"github.com/kanisahq/kanisa/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,

		// Domain modules are pulled in by the HTTP server module.
		server.Module,
		migration.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
