// Package scheduler reruns the reconciliation pipeline on a fixed interval.
// Runs are strictly serialized: a tick that arrives while a run is still in
// flight waits for the next tick rather than overlapping it.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/leaseline/leaseline/internal/canonical"
	"github.com/leaseline/leaseline/internal/clock"
	"github.com/leaseline/leaseline/internal/config"
	"github.com/leaseline/leaseline/internal/pipeline"
)

// Params collects scheduler dependencies.
type Params struct {
	fx.In

	Log          *zap.Logger
	Clock        clock.Clock
	Orchestrator *pipeline.Orchestrator
	Config       Config `optional:"true"`
	AppConfig    config.Config
}

// Scheduler drives periodic full sync runs.
type Scheduler struct {
	log     *zap.Logger
	cfg     Config
	clock   clock.Clock
	orch    *pipeline.Orchestrator
	sources []canonical.Source
}

// New builds the scheduler.
func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.Orchestrator == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:     p.Log.Named("scheduler"),
		cfg:     p.Config.withDefaults(),
		clock:   p.Clock,
		orch:    p.Orchestrator,
		sources: selectSources(p.AppConfig.SyncSources),
	}, nil
}

// selectSources filters the known vendor feeds down to the configured subset;
// an empty filter means every feed.
func selectSources(filter []string) []canonical.Source {
	if len(filter) == 0 {
		return canonical.Sources()
	}
	allowed := make(map[string]bool, len(filter))
	for _, s := range filter {
		allowed[s] = true
	}
	out := make([]canonical.Source, 0, len(filter))
	for _, s := range canonical.Sources() {
		if allowed[string(s)] {
			out = append(out, s)
		}
	}
	return out
}

// RunForever loops until ctx is cancelled. The first pass starts immediately.
func (s *Scheduler) RunForever(ctx context.Context) {
	s.log.Info("scheduler started",
		zap.Duration("interval", s.cfg.RunInterval),
		zap.Int("sources", len(s.sources)),
	)

	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce syncs every configured source sequentially. One source failing does
// not stop the remaining sources; the failure is already recorded in the sync
// log by the orchestrator.
func (s *Scheduler) RunOnce(ctx context.Context) {
	started := s.clock.Now()
	for _, source := range s.sources {
		if ctx.Err() != nil {
			return
		}
		s.runSource(ctx, source)
	}
	s.log.Info("sync cycle finished",
		zap.Duration("elapsed", s.clock.Now().Sub(started)),
	)
}

func (s *Scheduler) runSource(ctx context.Context, source canonical.Source) {
	runCtx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
	defer cancel()

	run, err := s.orch.Run(runCtx, source)
	if err != nil {
		s.log.Error("source sync failed",
			zap.String("source", string(source)),
			zap.Error(err),
		)
		return
	}
	s.log.Info("source synced",
		zap.String("source", string(source)),
		zap.String("run_id", run.RunID),
		zap.Int("records", run.RecordsSynced),
	)
}
