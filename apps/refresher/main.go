package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/stableview/stableview/internal/clock"
	"github.com/stableview/stableview/internal/config"
	"github.com/stableview/stableview/internal/migration"
	"github.com/stableview/stableview/internal/observability"
	"github.com/stableview/stableview/internal/providers"
	"github.com/stableview/stableview/internal/ratelimit"
	"github.com/stableview/stableview/internal/refresh"
	"github.com/stableview/stableview/internal/stablecoin"
	"github.com/stableview/stableview/pkg/db"
	"github.com/stableview/stableview/pkg/log"
	"go.uber.org/fx"
)

// Worker deployment: refresh loop only, no HTTP surface. Suited to running
// the refresh pass out of band from the API pods.
func main() {
	app := fx.New(
		config.Module,
		log.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		observability.Module,

		stablecoin.Module,
		providers.Module,
		ratelimit.Module,
		refresh.Module,
		refresh.ScheduleModule,
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
