package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/indielance/cra/internal/audit"
	"github.com/indielance/cra/internal/clock"
	"github.com/indielance/cra/internal/company"
	"github.com/indielance/cra/internal/config"
	"github.com/indielance/cra/internal/cra"
	"github.com/indielance/cra/internal/logger"
	"github.com/indielance/cra/internal/migration"
	"github.com/indielance/cra/internal/mission"
	"github.com/indielance/cra/internal/ratelimit"
	"github.com/indielance/cra/internal/seed"
	"github.com/indielance/cra/internal/server"
	"github.com/indielance/cra/pkg/db"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		seed.Module,

		// Domains
		audit.Module,
		company.Module,
		mission.Module,
		cra.Module,

		// Transport
		ratelimit.Module,
		server.MetricsModule,
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
