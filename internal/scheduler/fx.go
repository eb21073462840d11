package scheduler

import (
	"context"
	"time"

	"go.uber.org/fx"

	"github.com/leaseline/leaseline/internal/config"
)

var Module = fx.Module("scheduler",
	fx.Provide(ProvideConfig),
	fx.Provide(New),
	fx.Invoke(StartScheduler),
)

// ProvideConfig translates process configuration into scheduler settings.
func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval: time.Duration(cfg.SyncIntervalMinutes) * time.Minute,
		RunTimeout:  time.Duration(cfg.SyncTimeoutMinutes) * time.Minute,
	}
}

// StartScheduler runs the sync loop for the process lifetime when scheduled
// mode is on; one-shot mode leaves the loop off and lets main drive a single
// pass.
func StartScheduler(lc fx.Lifecycle, cfg config.Config, sched *Scheduler) {
	if !cfg.SyncScheduleEnabled {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go sched.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
