package rollup

import (
	"context"
	"fmt"
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
)

var snapshot = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, now time.Time) (*gorm.DB, *Service, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(canonical.Tables()...))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(Params{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  clock.NewFakeClock(now),
		Config: config.Config{FunnelWindowDays: 30},
	})
	return db, svc, node
}

func seedUnits(t *testing.T, db *gorm.DB, node *snowflake.Node, property string, status canonical.OccupancyStatus, preleased bool, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, db.Create(&canonical.Unit{
			ID:              node.Generate(),
			PropertyID:      property,
			Source:          canonical.SourceEntrata,
			UnitNumber:      fmt.Sprintf("%s-%s-%d", property, status, i),
			OccupancyStatus: status,
			Preleased:       preleased,
			SnapshotDate:    snapshot,
		}).Error)
	}
}

func TestPropertyMetrics_ExposureAndOccupancy(t *testing.T) {
	db, svc, node := newTestService(t, snapshot)
	ctx := context.Background()

	// 100 units: 80 occupied, 15 vacant, 5 notice, none preleased
	seedUnits(t, db, node, "maple-court", canonical.UnitOccupied, false, 80)
	seedUnits(t, db, node, "maple-court", canonical.UnitVacantReady, false, 10)
	seedUnits(t, db, node, "maple-court", canonical.UnitVacantNotReady, false, 5)
	seedUnits(t, db, node, "maple-court", canonical.UnitNotice, false, 5)

	_, err := svc.Build(ctx, db, canonical.SourceEntrata)
	require.NoError(t, err)

	var m canonical.PropertyMetrics
	require.NoError(t, db.First(&m).Error)
	assert.Equal(t, 100, m.TotalUnits)
	assert.Equal(t, 80, m.Occupied)
	assert.Equal(t, 10, m.VacantReady)
	assert.Equal(t, 5, m.VacantNotReady)
	assert.Equal(t, 5, m.Notice)
	assert.Equal(t, 100, m.Occupied+m.VacantReady+m.VacantNotReady+m.Notice+m.Model+m.Down)

	assert.InDelta(t, 0.80, m.PhysicalOccupancy, 1e-9)
	assert.InDelta(t, 0.80, m.LeasedPercent, 1e-9)
	// 15 vacant + half of 5 notices (truncated to 2) - 0 preleased
	assert.Equal(t, 17, m.Exposure30)
	assert.Equal(t, 20, m.Exposure60)
}

func TestPropertyMetrics_PreleasedReducesExposure(t *testing.T) {
	db, svc, node := newTestService(t, snapshot)
	ctx := context.Background()

	seedUnits(t, db, node, "maple-court", canonical.UnitOccupied, false, 6)
	seedUnits(t, db, node, "maple-court", canonical.UnitVacantReady, true, 3)
	seedUnits(t, db, node, "maple-court", canonical.UnitNotice, false, 1)

	_, err := svc.Build(ctx, db, canonical.SourceEntrata)
	require.NoError(t, err)

	var m canonical.PropertyMetrics
	require.NoError(t, db.First(&m).Error)
	assert.Equal(t, 3, m.Preleased)
	assert.Equal(t, 0, m.Exposure30) // 3 vacant + 0 (notice/2) - 3 preleased
	assert.Equal(t, 1, m.Exposure60)
	assert.InDelta(t, 0.9, m.LeasedPercent, 1e-9)
}

func TestPropertyMetrics_EmptySourceProducesNothing(t *testing.T) {
	db, svc, _ := newTestService(t, snapshot)

	n, err := svc.Build(context.Background(), db, canonical.SourceResman)
	require.NoError(t, err)
	assert.Zero(t, n)

	var count int64
	require.NoError(t, db.Model(&canonical.PropertyMetrics{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestFloorplanPricing_PrefersResidentRent(t *testing.T) {
	db, svc, node := newTestService(t, snapshot)
	ctx := context.Background()

	require.NoError(t, db.Create(&canonical.Unit{
		ID: node.Generate(), PropertyID: "maple-court", Source: canonical.SourceEntrata,
		UnitNumber: "U1", Floorplan: "A1", OccupancyStatus: canonical.UnitOccupied,
		MarketRent: 1200, InPlaceRent: 1000, SnapshotDate: snapshot,
	}).Error)
	require.NoError(t, db.Create(&canonical.Unit{
		ID: node.Generate(), PropertyID: "maple-court", Source: canonical.SourceEntrata,
		UnitNumber: "U2", Floorplan: "A1", OccupancyStatus: canonical.UnitVacantReady,
		MarketRent: 1200, SnapshotDate: snapshot,
	}).Error)
	// the resident ledger says U1 actually pays 1100
	require.NoError(t, db.Create(&canonical.Resident{
		ID: node.Generate(), PropertyID: "maple-court", Source: canonical.SourceEntrata,
		UnitNumber: "U1", Status: canonical.ResidentCurrent, CurrentRent: 1100,
		VendorResidentID: "R1", SnapshotDate: snapshot,
	}).Error)

	_, err := svc.Build(ctx, db, canonical.SourceEntrata)
	require.NoError(t, err)

	var p canonical.FloorplanPricing
	require.NoError(t, db.First(&p).Error)
	assert.Equal(t, 2, p.Units)
	assert.InDelta(t, 1100, p.AvgInPlaceRent, 1e-9) // only the occupied unit counts
	assert.InDelta(t, 1200, p.AvgMarketRent, 1e-9)
	assert.InDelta(t, 1200.0/1100.0-1, p.RentGrowth, 1e-9)
}

func TestFloorplanPricing_ZeroInPlaceMeansZeroGrowth(t *testing.T) {
	db, svc, node := newTestService(t, snapshot)
	ctx := context.Background()

	require.NoError(t, db.Create(&canonical.Unit{
		ID: node.Generate(), PropertyID: "maple-court", Source: canonical.SourceEntrata,
		UnitNumber: "U1", Floorplan: "B2", OccupancyStatus: canonical.UnitVacantReady,
		MarketRent: 1400, SnapshotDate: snapshot,
	}).Error)

	_, err := svc.Build(ctx, db, canonical.SourceEntrata)
	require.NoError(t, err)

	var p canonical.FloorplanPricing
	require.NoError(t, db.First(&p).Error)
	assert.Zero(t, p.AvgInPlaceRent)
	assert.Zero(t, p.RentGrowth)
}

func TestLeasingFunnel_DistinctProspectsInWindow(t *testing.T) {
	db, svc, node := newTestService(t, snapshot)
	ctx := context.Background()

	event := func(prospect string, typ canonical.ActivityType, daysAgo int) {
		require.NoError(t, db.Create(&canonical.ActivityEvent{
			ID: node.Generate(), PropertyID: "maple-court", Source: canonical.SourceEntrata,
			ProspectID: prospect, Type: typ,
			EventDate: snapshot.AddDate(0, 0, -daysAgo),
		}).Error)
	}

	event("p1", canonical.ActivityLead, 5)
	event("p1", canonical.ActivityLead, 3) // same prospect, counted once
	event("p2", canonical.ActivityLead, 10)
	event("p1", canonical.ActivityTour, 2)
	event("p1", canonical.ActivityLease, 1)
	event("p3", canonical.ActivityLead, 45) // outside the 30-day window

	_, err := svc.Build(ctx, db, canonical.SourceEntrata)
	require.NoError(t, err)

	var f canonical.LeasingFunnel
	require.NoError(t, db.First(&f).Error)
	assert.Equal(t, 2, f.Leads)
	assert.Equal(t, 1, f.Tours)
	assert.Equal(t, 0, f.Applications)
	assert.Equal(t, 1, f.Leases)

	assert.InDelta(t, 0.5, f.LeadToTour, 1e-9)
	assert.InDelta(t, 0.0, f.TourToApply, 1e-9)
	assert.InDelta(t, 0.0, f.ApplyToLease, 1e-9) // zero applications, not a panic
	assert.InDelta(t, 0.5, f.LeadToLease, 1e-9)
}
