package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/realtyleadsai/leadflow/internal/clock"
	"github.com/realtyleadsai/leadflow/internal/config"
	"github.com/realtyleadsai/leadflow/internal/fulfillment"
	"github.com/realtyleadsai/leadflow/internal/leadqueue"
	"github.com/realtyleadsai/leadflow/internal/logger"
	"github.com/realtyleadsai/leadflow/internal/migration"
	"github.com/realtyleadsai/leadflow/internal/notify"
	"github.com/realtyleadsai/leadflow/internal/observability"
	"github.com/realtyleadsai/leadflow/internal/order"
	"github.com/realtyleadsai/leadflow/internal/payment"
	"github.com/realtyleadsai/leadflow/internal/scheduler"
	"github.com/realtyleadsai/leadflow/internal/server"
	"github.com/realtyleadsai/leadflow/internal/storage"
	"github.com/realtyleadsai/leadflow/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		order.Module,
		notify.Module,
		leadqueue.Module,
		payment.Module,
		storage.Module,
		fulfillment.Module,
		scheduler.Module,

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
