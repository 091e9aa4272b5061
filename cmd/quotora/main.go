package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/craftbom/quotora/internal/clock"
	"github.com/craftbom/quotora/internal/config"
	"github.com/craftbom/quotora/internal/migration"
	"github.com/craftbom/quotora/internal/observability"
	"github.com/craftbom/quotora/internal/server"
	"github.com/craftbom/quotora/pkg/db"
	"github.com/craftbom/quotora/pkg/telemetry"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		telemetry.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		server.Module,
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
