// Package pipeline drives one full reconciliation pass per vendor source:
// full-replace normalization in dependency order, enrichment, rollup, and the
// sync log. Optional inputs that are absent get skipped inside the
// normalizers; only store failures abort a run.
package pipeline

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/leaseline/leaseline/internal/canonical"
	"github.com/leaseline/leaseline/internal/clock"
	"github.com/leaseline/leaseline/internal/enrich"
	"github.com/leaseline/leaseline/internal/identity"
	"github.com/leaseline/leaseline/internal/normalize"
	obsmetrics "github.com/leaseline/leaseline/internal/observability/metrics"
	"github.com/leaseline/leaseline/internal/rollup"
)

// SyncTypeFull is the only sync type the pipeline performs: a vendor's rows
// are always deleted and reinserted, never patched.
const SyncTypeFull = "full"

// Params collects orchestrator dependencies.
type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Resolver   *identity.Resolver
	Normalizer *normalize.Service
	Enricher   *enrich.Service
	Rollup     *rollup.Service
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

// Orchestrator runs full sync passes.
type Orchestrator struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	resolver   *identity.Resolver
	normalizer *normalize.Service
	enricher   *enrich.Service
	rollup     *rollup.Service
	metrics    *obsmetrics.Metrics
}

// New builds the orchestrator.
func New(p Params) *Orchestrator {
	return &Orchestrator{
		db:         p.DB,
		log:        p.Log.Named("pipeline.orchestrator"),
		genID:      p.GenID,
		clock:      p.Clock,
		resolver:   p.Resolver,
		normalizer: p.Normalizer,
		enricher:   p.Enricher,
		rollup:     p.Rollup,
		metrics:    p.Metrics,
	}
}

type step struct {
	table string
	model any
	fn    func(context.Context, *gorm.DB, canonical.Source, *identity.Snapshot) (int, error)
}

// Run executes one full pipeline pass for a vendor source and records it in
// the sync log. The returned SyncLog reflects the terminal run state even
// when err is non-nil.
func (o *Orchestrator) Run(ctx context.Context, source canonical.Source) (*canonical.SyncLog, error) {
	run := &canonical.SyncLog{
		ID:        o.genID.Generate(),
		RunID:     uuid.NewString(),
		Source:    source,
		SyncType:  SyncTypeFull,
		StartedAt: o.clock.Now(),
		Status:    canonical.SyncRunning,
	}
	if err := o.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}

	log := o.log.With(
		zap.String("source", string(source)),
		zap.String("run_id", run.RunID),
	)
	log.Info("sync started")

	ids, err := o.resolver.Snapshot(ctx)
	if err != nil {
		return o.fail(ctx, run, err)
	}

	steps := []step{
		{"properties", &canonical.Property{}, o.normalizer.Properties},
		{"units", &canonical.Unit{}, o.normalizer.Units},
		{"residents", &canonical.Resident{}, o.normalizer.Residents},
		{"leases", &canonical.Lease{}, o.normalizer.Leases},
		{"delinquency_records", &canonical.DelinquencyRecord{}, o.normalizer.Delinquency},
		{"amenities", &canonical.Amenity{}, o.normalizer.Amenities},
		{"financial_transactions", &canonical.FinancialTransaction{}, o.normalizer.Financials},
		{"activity_events", &canonical.ActivityEvent{}, o.normalizer.Activity},
	}

	total := 0
	tables := make([]string, 0, len(steps)+3)
	for _, st := range steps {
		n, err := o.replaceTable(ctx, source, st, ids)
		if err != nil {
			return o.fail(ctx, run, err)
		}
		total += n
		tables = append(tables, st.table)
		log.Info("table synced", zap.String("table", st.table), zap.Int("records", n))
	}

	enriched, err := o.enricher.Run(ctx, source, ids)
	if err != nil {
		return o.fail(ctx, run, err)
	}
	o.metrics.AddEnrichedFields(string(source), enriched)

	derived, err := o.rebuildDerived(ctx, source)
	if err != nil {
		return o.fail(ctx, run, err)
	}
	total += derived
	tables = append(tables, "property_metrics", "floorplan_pricing", "leasing_funnel")

	completedAt := o.clock.Now()
	run.CompletedAt = &completedAt
	run.Status = canonical.SyncCompleted
	run.TablesSynced = strings.Join(tables, ",")
	run.RecordsSynced = total
	if err := o.db.WithContext(ctx).Save(run).Error; err != nil {
		return run, err
	}

	o.metrics.IncSyncRun(string(source), string(canonical.SyncCompleted))
	o.metrics.AddRecordsSynced(string(source), total)
	log.Info("sync completed",
		zap.Int("records", total),
		zap.Int("enriched_fields", enriched),
	)
	return run, nil
}

// replaceTable makes one entity table's full replace atomic for concurrent
// readers: the vendor's delete and reinsert share one transaction.
func (o *Orchestrator) replaceTable(ctx context.Context, source canonical.Source, st step, ids *identity.Snapshot) (int, error) {
	var n int
	err := o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("source = ?", source).Delete(st.model).Error; err != nil {
			return err
		}
		var err error
		n, err = st.fn(ctx, tx, source, ids)
		return err
	})
	return n, err
}

func (o *Orchestrator) rebuildDerived(ctx context.Context, source canonical.Source) (int, error) {
	var n int
	err := o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{
			&canonical.PropertyMetrics{},
			&canonical.FloorplanPricing{},
			&canonical.LeasingFunnel{},
		} {
			if err := tx.Where("source = ?", source).Delete(model).Error; err != nil {
				return err
			}
		}
		var err error
		n, err = o.rollup.Build(ctx, tx, source)
		return err
	})
	return n, err
}

func (o *Orchestrator) fail(ctx context.Context, run *canonical.SyncLog, cause error) (*canonical.SyncLog, error) {
	completedAt := o.clock.Now()
	run.CompletedAt = &completedAt
	run.Status = canonical.SyncFailed
	run.Error = cause.Error()
	if err := o.db.WithContext(ctx).Save(run).Error; err != nil {
		o.log.Error("failed to record sync failure", zap.Error(err))
	}
	o.metrics.IncSyncRun(string(run.Source), string(canonical.SyncFailed))
	o.log.Error("sync failed",
		zap.String("source", string(run.Source)),
		zap.String("run_id", run.RunID),
		zap.Error(cause),
	)
	return run, cause
}
