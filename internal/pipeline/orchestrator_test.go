package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/leaseline/leaseline/internal/canonical"
	"github.com/leaseline/leaseline/internal/clock"
	"github.com/leaseline/leaseline/internal/config"
	"github.com/leaseline/leaseline/internal/enrich"
	"github.com/leaseline/leaseline/internal/extract"
	"github.com/leaseline/leaseline/internal/identity"
	"github.com/leaseline/leaseline/internal/normalize"
	"github.com/leaseline/leaseline/internal/rollup"
	"github.com/leaseline/leaseline/internal/status"
)

var now = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db    *gorm.DB
	orch  *Orchestrator
	genID *snowflake.Node
}

// newFixture wires the full pipeline against an in-memory store, a static
// registry mapping entrata "100" to "maple-court", and a frozen clock.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	models := append(canonical.Tables(), &extract.RawRecord{})
	require.NoError(t, db.AutoMigrate(models...))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	registry := filepath.Join(t.TempDir(), "registry.yaml")
	require.NoError(t, os.WriteFile(registry, []byte(`
properties:
  - source: entrata
    vendor_id: "100"
    canonical_id: maple-court
`), 0o600))

	log := zap.NewNop()
	cfg := config.Config{RegistryPath: registry, FunnelWindowDays: 30}
	fake := clock.NewFakeClock(now)
	reader := extract.NewReader(extract.Params{DB: db, Log: log})
	mapper := status.NewMapper(status.Params{Log: log, Config: status.DefaultConfig()})

	resolver, err := identity.NewResolver(identity.Params{DB: db, Log: log, Config: cfg})
	require.NoError(t, err)

	orch := New(Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: fake,
		Resolver: resolver,
		Normalizer: normalize.NewService(normalize.Params{
			DB: db, Log: log, GenID: node, Reader: reader, Mapper: mapper,
		}),
		Enricher: enrich.NewService(enrich.Params{
			DB: db, Log: log, Reader: reader, Clock: fake,
		}),
		Rollup: rollup.NewService(rollup.Params{
			DB: db, Log: log, GenID: node, Clock: fake, Config: cfg,
		}),
	})

	return &fixture{db: db, orch: orch, genID: node}
}

func (f *fixture) seedRaw(t *testing.T, kind extract.Kind, payload map[string]any) {
	t.Helper()
	require.NoError(t, f.db.Create(&extract.RawRecord{
		ID:               f.genID.Generate(),
		Source:           canonical.SourceEntrata,
		Kind:             kind,
		VendorPropertyID: "100",
		ReportDate:       time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Payload:          payload,
	}).Error)
}

func (f *fixture) seedProperty(t *testing.T) {
	t.Helper()
	f.seedRaw(t, extract.KindProperties, map[string]any{
		"propertyName": "Maple Court",
		"ownerName":    "Northview Partners",
	})
	f.seedRaw(t, extract.KindUnits, map[string]any{
		"unitNumber": "U1", "unitStatus": "Occupied", "floorPlanName": "A1",
		"marketRent": 1200, "rent": 1100, "bedrooms": 2,
	})
	f.seedRaw(t, extract.KindUnits, map[string]any{
		"unitNumber": "U2", "unitStatus": "Vacant Unrented Ready",
		"floorPlanName": "A1", "marketRent": 1250,
		"availableDate": "2026-01-26",
	})
	f.seedRaw(t, extract.KindResidents, map[string]any{
		"residentId": "R1", "unitNumber": "U1", "status": "Current",
		"rent": 1100,
	})
	f.seedRaw(t, extract.KindLeases, map[string]any{
		"unitNumber": "U1", "leaseStatus": "Current",
		"leaseStartDate": "2025-07-01", "leaseEndDate": "2026-06-30", "rent": 1100,
	})
	f.seedRaw(t, extract.KindActivity, map[string]any{
		"prospectId": "P1", "eventType": "Lead", "eventDate": "2026-01-25",
	})
}

func count[T any](t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	var model T
	require.NoError(t, db.Model(&model).Count(&n).Error)
	return n
}

func TestRun_EndToEnd(t *testing.T) {
	f := newFixture(t)
	f.seedProperty(t)

	run, err := f.orch.Run(context.Background(), canonical.SourceEntrata)
	require.NoError(t, err)
	require.NotNil(t, run)

	assert.Equal(t, canonical.SyncCompleted, run.Status)
	assert.Equal(t, SyncTypeFull, run.SyncType)
	assert.NotEmpty(t, run.RunID)
	assert.NotNil(t, run.CompletedAt)
	assert.Greater(t, run.RecordsSynced, 0)
	assert.Contains(t, run.TablesSynced, "units")
	assert.Contains(t, run.TablesSynced, "property_metrics")

	assert.EqualValues(t, 1, count[canonical.Property](t, f.db))
	assert.EqualValues(t, 2, count[canonical.Unit](t, f.db))
	assert.EqualValues(t, 1, count[canonical.Resident](t, f.db))
	assert.EqualValues(t, 1, count[canonical.Lease](t, f.db))

	var m canonical.PropertyMetrics
	require.NoError(t, f.db.First(&m).Error)
	assert.Equal(t, 2, m.TotalUnits)
	assert.Equal(t, 1, m.Occupied)
	assert.Equal(t, 1, m.VacantReady)
	assert.Equal(t, 0.5, m.PhysicalOccupancy)

	// enrichment backfilled days-vacant from the available date
	var vacant canonical.Unit
	require.NoError(t, f.db.Where("unit_number = ?", "U2").First(&vacant).Error)
	require.NotNil(t, vacant.DaysVacant)
	assert.Equal(t, 6, *vacant.DaysVacant)

	var funnel canonical.LeasingFunnel
	require.NoError(t, f.db.First(&funnel).Error)
	assert.Equal(t, 1, funnel.Leads)
}

func TestRun_FullReplaceIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.seedProperty(t)
	ctx := context.Background()

	first, err := f.orch.Run(ctx, canonical.SourceEntrata)
	require.NoError(t, err)

	second, err := f.orch.Run(ctx, canonical.SourceEntrata)
	require.NoError(t, err)

	assert.Equal(t, first.RecordsSynced, second.RecordsSynced)
	assert.Equal(t, first.TablesSynced, second.TablesSynced)
	assert.NotEqual(t, first.RunID, second.RunID)

	// a rerun replaces rather than accumulates
	assert.EqualValues(t, 2, count[canonical.Unit](t, f.db))
	assert.EqualValues(t, 1, count[canonical.PropertyMetrics](t, f.db))

	var m canonical.PropertyMetrics
	require.NoError(t, f.db.First(&m).Error)
	assert.Equal(t, 2, m.TotalUnits)
	assert.Equal(t, 1, m.Occupied)

	assert.EqualValues(t, 2, count[canonical.SyncLog](t, f.db))
}

func TestRun_MissingOptionalSourcesSkipped(t *testing.T) {
	f := newFixture(t)
	// only the property roster exists; every other report is absent
	f.seedRaw(t, extract.KindProperties, map[string]any{
		"propertyName": "Maple Court",
	})

	run, err := f.orch.Run(context.Background(), canonical.SourceEntrata)
	require.NoError(t, err)
	assert.Equal(t, canonical.SyncCompleted, run.Status)
	assert.Equal(t, 1, run.RecordsSynced)
	assert.Empty(t, run.Error)
}

func TestRun_StoreFailureRecorded(t *testing.T) {
	f := newFixture(t)
	f.seedProperty(t)

	require.NoError(t, f.db.Migrator().DropTable(&canonical.Lease{}))

	run, err := f.orch.Run(context.Background(), canonical.SourceEntrata)
	require.Error(t, err)
	require.NotNil(t, run)
	assert.Equal(t, canonical.SyncFailed, run.Status)
	assert.NotEmpty(t, run.Error)
	assert.NotNil(t, run.CompletedAt)

	var logged canonical.SyncLog
	require.NoError(t, f.db.Where("run_id = ?", run.RunID).First(&logged).Error)
	assert.Equal(t, canonical.SyncFailed, logged.Status)
	assert.False(t, strings.Contains(logged.TablesSynced, "leases"))
}

func TestRun_SourcesDoNotInterfere(t *testing.T) {
	f := newFixture(t)
	f.seedProperty(t)
	ctx := context.Background()

	_, err := f.orch.Run(ctx, canonical.SourceEntrata)
	require.NoError(t, err)

	// a resman run has no raw data and must not touch entrata's rows
	run, err := f.orch.Run(ctx, canonical.SourceResman)
	require.NoError(t, err)
	assert.Equal(t, canonical.SyncCompleted, run.Status)
	assert.Zero(t, run.RecordsSynced)

	assert.EqualValues(t, 2, count[canonical.Unit](t, f.db))
	assert.EqualValues(t, 1, count[canonical.PropertyMetrics](t, f.db))
}
