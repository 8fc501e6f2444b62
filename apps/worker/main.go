package main

import (
	"go.uber.org/fx"

	"github.com/realtyleadsai/leadflow/internal/config"
	"github.com/realtyleadsai/leadflow/internal/leadqueue"
	"github.com/realtyleadsai/leadflow/internal/logger"
	"github.com/realtyleadsai/leadflow/internal/observability"
)

// The worker binary drains the lead acquisition queue and hands each order
// off to the scrape pipeline. It runs separately from the API so slow
// scrape dispatches never back up webhook handling.
func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		observability.Module,

		leadqueue.Module,
		leadqueue.WorkerModule,
	)
	app.Run()
}
