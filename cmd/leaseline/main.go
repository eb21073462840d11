package main

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/leaseline/leaseline/internal/clock"
	"github.com/leaseline/leaseline/internal/config"
	"github.com/leaseline/leaseline/internal/enrich"
	"github.com/leaseline/leaseline/internal/extract"
	"github.com/leaseline/leaseline/internal/identity"
	"github.com/leaseline/leaseline/internal/migration"
	"github.com/leaseline/leaseline/internal/normalize"
	"github.com/leaseline/leaseline/internal/observability"
	"github.com/leaseline/leaseline/internal/pipeline"
	"github.com/leaseline/leaseline/internal/rollup"
	"github.com/leaseline/leaseline/internal/scheduler"
	"github.com/leaseline/leaseline/internal/seed"
	"github.com/leaseline/leaseline/internal/status"
	"github.com/leaseline/leaseline/pkg/db"
	"github.com/leaseline/leaseline/pkg/log"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		log.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		seed.Module,

		// Pipeline
		extract.Module,
		identity.Module,
		status.Module,
		normalize.Module,
		enrich.Module,
		rollup.Module,
		pipeline.Module,
		scheduler.Module,

		fx.Invoke(runOneShot),
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

// runOneShot performs a single sync cycle and shuts the process down. When
// scheduled mode is enabled the scheduler owns the loop instead and the
// process stays up.
func runOneShot(lc fx.Lifecycle, sd fx.Shutdowner, cfg config.Config, logger *zap.Logger, sched *scheduler.Scheduler) {
	if cfg.SyncScheduleEnabled {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				sched.RunOnce(context.Background())
				if err := sd.Shutdown(); err != nil {
					logger.Error("shutdown failed", zap.Error(err))
				}
			}()
			return nil
		},
	})
}
