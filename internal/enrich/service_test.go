package enrich

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
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
	"github.com/leaseline/leaseline/internal/extract"
	"github.com/leaseline/leaseline/internal/identity"
)

var today = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

type fixture struct {
	db    *gorm.DB
	svc   *Service
	ids   *identity.Snapshot
	genID *snowflake.Node
}

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

	resolver, err := identity.NewResolver(identity.Params{
		DB:     db,
		Log:    zap.NewNop(),
		Config: config.Config{RegistryPath: registry},
	})
	require.NoError(t, err)
	ids, err := resolver.Snapshot(context.Background())
	require.NoError(t, err)

	svc := NewService(Params{
		DB:     db,
		Log:    zap.NewNop(),
		Reader: extract.NewReader(extract.Params{DB: db, Log: zap.NewNop()}),
		Clock:  clock.NewFakeClock(today),
	})

	return &fixture{db: db, svc: svc, ids: ids, genID: node}
}

func (f *fixture) createUnit(t *testing.T, u canonical.Unit) canonical.Unit {
	t.Helper()
	u.ID = f.genID.Generate()
	u.PropertyID = "maple-court"
	u.Source = canonical.SourceEntrata
	u.SnapshotDate = today
	require.NoError(t, f.db.Create(&u).Error)
	return u
}

func (f *fixture) reload(t *testing.T, id snowflake.ID) canonical.Unit {
	t.Helper()
	var u canonical.Unit
	require.NoError(t, f.db.Where("id = ?", id).First(&u).Error)
	return u
}

func datePtr(s string) *time.Time {
	d, _ := time.Parse("2006-01-02", s)
	d = d.UTC()
	return &d
}

func TestDaysVacant_AvailableDateLastResort(t *testing.T) {
	f := newFixture(t)

	// vacant for 6 days, no move-out record anywhere
	u := f.createUnit(t, canonical.Unit{
		UnitNumber:      "U1",
		OccupancyStatus: canonical.UnitVacantReady,
		AvailableDate:   datePtr("2026-01-26"),
	})

	n, err := f.svc.Run(context.Background(), canonical.SourceEntrata, f.ids)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got := f.reload(t, u.ID)
	require.NotNil(t, got.DaysVacant)
	assert.Equal(t, 6, *got.DaysVacant)
}

func TestDaysVacant_SeesAvailableDateBackfilledSameRun(t *testing.T) {
	f := newFixture(t)

	// the unit itself carries no available date; only the availability
	// report knows it, so pass 1 must feed pass 3 within the same run
	u := f.createUnit(t, canonical.Unit{
		UnitNumber:      "U1",
		OccupancyStatus: canonical.UnitVacantReady,
	})
	require.NoError(t, f.db.Create(&extract.RawRecord{
		ID:               f.genID.Generate(),
		Source:           canonical.SourceEntrata,
		Kind:             extract.KindAvailability,
		VendorPropertyID: "100",
		ReportDate:       today,
		Payload: map[string]any{
			"unitNumber":    "U1",
			"availableDate": "2026-01-26",
		},
	}).Error)

	_, err := f.svc.Run(context.Background(), canonical.SourceEntrata, f.ids)
	require.NoError(t, err)

	got := f.reload(t, u.ID)
	require.NotNil(t, got.AvailableDate)
	require.NotNil(t, got.DaysVacant)
	assert.Equal(t, 6, *got.DaysVacant)
}

func TestDaysVacant_LinkedMoveOutBeatsAvailableDate(t *testing.T) {
	f := newFixture(t)

	u := f.createUnit(t, canonical.Unit{
		UnitNumber:      "U1",
		OccupancyStatus: canonical.UnitVacantReady,
		AvailableDate:   datePtr("2026-01-26"),
	})
	require.NoError(t, f.db.Create(&canonical.Resident{
		ID: f.genID.Generate(), PropertyID: "maple-court", Source: canonical.SourceEntrata,
		VendorResidentID: "R1", UnitNumber: "U1",
		Status: canonical.ResidentPast, MoveOut: datePtr("2026-01-22"),
		SnapshotDate: today,
	}).Error)

	_, err := f.svc.Run(context.Background(), canonical.SourceEntrata, f.ids)
	require.NoError(t, err)

	got := f.reload(t, u.ID)
	require.NotNil(t, got.DaysVacant)
	assert.Equal(t, 10, *got.DaysVacant)
}

func TestDaysVacant_NeverNegative(t *testing.T) {
	f := newFixture(t)

	u := f.createUnit(t, canonical.Unit{
		UnitNumber:      "U1",
		OccupancyStatus: canonical.UnitVacantNotReady,
		AvailableDate:   datePtr("2026-02-10"), // in the future
	})

	_, err := f.svc.Run(context.Background(), canonical.SourceEntrata, f.ids)
	require.NoError(t, err)

	got := f.reload(t, u.ID)
	require.NotNil(t, got.DaysVacant)
	assert.Equal(t, 0, *got.DaysVacant)
}

func TestRun_RerunWritesNothing(t *testing.T) {
	f := newFixture(t)

	u := f.createUnit(t, canonical.Unit{
		UnitNumber:      "U1",
		OccupancyStatus: canonical.UnitVacantReady,
		AvailableDate:   datePtr("2026-01-26"),
	})

	ctx := context.Background()
	first, err := f.svc.Run(ctx, canonical.SourceEntrata, f.ids)
	require.NoError(t, err)
	require.Equal(t, 1, first)

	second, err := f.svc.Run(ctx, canonical.SourceEntrata, f.ids)
	require.NoError(t, err)
	assert.Zero(t, second)

	got := f.reload(t, u.ID)
	require.NotNil(t, got.DaysVacant)
	assert.Equal(t, 6, *got.DaysVacant)
}

func TestIncomingLeaseStart_ApplicantLeaseFirst(t *testing.T) {
	f := newFixture(t)

	u := f.createUnit(t, canonical.Unit{
		UnitNumber:      "U1",
		OccupancyStatus: canonical.UnitVacantReady,
		Preleased:       true,
	})
	require.NoError(t, f.db.Create(&canonical.Lease{
		ID: f.genID.Generate(), PropertyID: "maple-court", Source: canonical.SourceEntrata,
		UnitNumber: "U1", Status: canonical.LeaseApplicant,
		LeaseStart: datePtr("2026-03-01"), ReportDate: today,
	}).Error)
	// a future resident also exists but the applicant lease wins
	require.NoError(t, f.db.Create(&canonical.Resident{
		ID: f.genID.Generate(), PropertyID: "maple-court", Source: canonical.SourceEntrata,
		VendorResidentID: "R1", UnitNumber: "U1",
		Status: canonical.ResidentFuture, MoveIn: datePtr("2026-03-15"),
		SnapshotDate: today,
	}).Error)

	_, err := f.svc.Run(context.Background(), canonical.SourceEntrata, f.ids)
	require.NoError(t, err)

	got := f.reload(t, u.ID)
	require.NotNil(t, got.IncomingLeaseStart)
	assert.Equal(t, *datePtr("2026-03-01"), got.IncomingLeaseStart.UTC())
}

func TestIncomingLeaseStart_FutureResidentFallback(t *testing.T) {
	f := newFixture(t)

	u := f.createUnit(t, canonical.Unit{
		UnitNumber:      "U1",
		OccupancyStatus: canonical.UnitVacantReady,
		Preleased:       true,
	})
	require.NoError(t, f.db.Create(&canonical.Resident{
		ID: f.genID.Generate(), PropertyID: "maple-court", Source: canonical.SourceEntrata,
		VendorResidentID: "R1", UnitNumber: "U1",
		Status: canonical.ResidentFuture, MoveIn: datePtr("2026-03-15"),
		SnapshotDate: today,
	}).Error)

	_, err := f.svc.Run(context.Background(), canonical.SourceEntrata, f.ids)
	require.NoError(t, err)

	got := f.reload(t, u.ID)
	require.NotNil(t, got.IncomingLeaseStart)
	assert.Equal(t, *datePtr("2026-03-15"), got.IncomingLeaseStart.UTC())
}

func TestIncomingLeaseStart_SkipsNonPreleased(t *testing.T) {
	f := newFixture(t)

	u := f.createUnit(t, canonical.Unit{
		UnitNumber:      "U1",
		OccupancyStatus: canonical.UnitVacantReady,
	})
	require.NoError(t, f.db.Create(&canonical.Lease{
		ID: f.genID.Generate(), PropertyID: "maple-court", Source: canonical.SourceEntrata,
		UnitNumber: "U1", Status: canonical.LeaseApplicant,
		LeaseStart: datePtr("2026-03-01"), ReportDate: today,
	}).Error)

	_, err := f.svc.Run(context.Background(), canonical.SourceEntrata, f.ids)
	require.NoError(t, err)

	got := f.reload(t, u.ID)
	assert.Nil(t, got.IncomingLeaseStart)
}

func TestUnitDates_FromAvailabilityReport(t *testing.T) {
	f := newFixture(t)

	u := f.createUnit(t, canonical.Unit{
		UnitNumber:      "U1",
		OccupancyStatus: canonical.UnitNotice,
	})
	require.NoError(t, f.db.Create(&extract.RawRecord{
		ID:               f.genID.Generate(),
		Source:           canonical.SourceEntrata,
		Kind:             extract.KindAvailability,
		VendorPropertyID: "100",
		ReportDate:       today,
		Payload: map[string]any{
			"unitNumber":    "U1",
			"readyDate":     "2026-02-10",
			"availableDate": "2026-02-15",
			"noticeDate":    "2026-01-20",
		},
	}).Error)

	_, err := f.svc.Run(context.Background(), canonical.SourceEntrata, f.ids)
	require.NoError(t, err)

	got := f.reload(t, u.ID)
	require.NotNil(t, got.ReadyDate)
	require.NotNil(t, got.AvailableDate)
	require.NotNil(t, got.NoticeDate)
	assert.Equal(t, *datePtr("2026-02-10"), got.ReadyDate.UTC())
	assert.Equal(t, *datePtr("2026-02-15"), got.AvailableDate.UTC())
	assert.Equal(t, *datePtr("2026-01-20"), got.NoticeDate.UTC())
}

func TestBedBath_FloorplanSibling(t *testing.T) {
	f := newFixture(t)

	f.createUnit(t, canonical.Unit{
		UnitNumber: "U1", Floorplan: "A1",
		OccupancyStatus: canonical.UnitOccupied,
		Bedrooms:        2, Bathrooms: 1.5,
	})
	u := f.createUnit(t, canonical.Unit{
		UnitNumber: "U2", Floorplan: "A1",
		OccupancyStatus: canonical.UnitOccupied,
	})

	_, err := f.svc.Run(context.Background(), canonical.SourceEntrata, f.ids)
	require.NoError(t, err)

	got := f.reload(t, u.ID)
	assert.Equal(t, 2, got.Bedrooms)
	assert.Equal(t, 1.5, got.Bathrooms)
}

func TestBedBath_LeaseDetailFallback(t *testing.T) {
	f := newFixture(t)

	u := f.createUnit(t, canonical.Unit{
		UnitNumber: "U1", Floorplan: "B2",
		OccupancyStatus: canonical.UnitVacantReady,
	})
	require.NoError(t, f.db.Create(&extract.RawRecord{
		ID:               f.genID.Generate(),
		Source:           canonical.SourceEntrata,
		Kind:             extract.KindLeaseDetails,
		VendorPropertyID: "100",
		ReportDate:       today,
		Payload: map[string]any{
			"unitNumber":    "U9",
			"floorPlanName": "B2",
			"bedrooms":      3,
			"bathrooms":     2,
		},
	}).Error)

	_, err := f.svc.Run(context.Background(), canonical.SourceEntrata, f.ids)
	require.NoError(t, err)

	got := f.reload(t, u.ID)
	assert.Equal(t, 3, got.Bedrooms)
	assert.Equal(t, 2.0, got.Bathrooms)
}
