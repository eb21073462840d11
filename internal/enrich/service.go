// Package enrich backfills canonical fields still missing after
// normalization. Each pass walks all eligible rows once, resolves an ordered
// list of secondary sources, and writes only where the target field is still
// empty, so reruns can never regress or flip an already-enriched value.
package enrich

import (
	"context"
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/leaseline/leaseline/internal/canonical"
	"github.com/leaseline/leaseline/internal/clock"
	"github.com/leaseline/leaseline/internal/extract"
	"github.com/leaseline/leaseline/internal/identity"
)

// Params collects enrichment dependencies.
type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Reader extract.Reader
	Clock  clock.Clock
}

// Service runs the enrichment passes for one vendor source.
type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	reader extract.Reader
	clock  clock.Clock
}

// NewService builds the enrichment service.
func NewService(p Params) *Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("enrich.service"),
		reader: p.Reader,
		clock:  p.Clock,
	}
}

// Run executes every pass in order and returns the number of fields written.
func (s *Service) Run(ctx context.Context, source canonical.Source, ids *identity.Snapshot) (int, error) {
	ds, err := s.load(ctx, source, ids)
	if err != nil {
		return 0, err
	}

	total := 0
	passes := []struct {
		name string
		fn   func(context.Context, *dataset) (int, error)
	}{
		{"unit_dates", s.passUnitDates},
		{"incoming_lease_start", s.passIncomingLeaseStart},
		{"days_vacant", s.passDaysVacant},
		{"bed_bath", s.passBedBath},
	}
	for _, pass := range passes {
		n, err := pass.fn(ctx, ds)
		if err != nil {
			return total, err
		}
		if n > 0 {
			s.log.Info("enrichment pass wrote fields",
				zap.String("source", string(source)),
				zap.String("pass", pass.name),
				zap.Int("fields", n),
			)
		}
		total += n
	}
	return total, nil
}

// setIfNull writes a unit column only when it is still empty. RowsAffected
// doubles as the idempotence signal: a rerun matches zero rows.
func (s *Service) setIfNull(ctx context.Context, id snowflake.ID, column string, value any) (int, error) {
	res := s.db.WithContext(ctx).Model(&canonical.Unit{}).
		Where("id = ? AND "+column+" IS NULL", id).
		Update(column, value)
	return int(res.RowsAffected), res.Error
}

// passUnitDates backfills ready/available/notice dates from the availability
// report first and the lease-detail report second. Dates that land are
// mirrored onto the loaded unit so the later passes resolve against what this
// pass just wrote, not the pre-enrichment snapshot.
func (s *Service) passUnitDates(ctx context.Context, ds *dataset) (int, error) {
	written := 0
	for _, u := range ds.units {
		key := unitKey(u.PropertyID, u.UnitNumber)
		avail, hasAvail := ds.availByUnit[key]

		if u.ReadyDate == nil {
			if v, _, ok := firstOf(
				source[*time.Time]{name: "availability", fn: func() (*time.Time, bool) {
					return avail.readyDate, hasAvail && avail.readyDate != nil
				}},
			); ok {
				n, err := s.setIfNull(ctx, u.ID, "ready_date", v)
				if err != nil {
					return written, err
				}
				if n > 0 {
					u.ReadyDate = v
				}
				written += n
			}
		}

		if u.AvailableDate == nil {
			if v, _, ok := firstOf(
				source[*time.Time]{name: "availability", fn: func() (*time.Time, bool) {
					return avail.availableDate, hasAvail && avail.availableDate != nil
				}},
				source[*time.Time]{name: "lease_detail_moveout", fn: func() (*time.Time, bool) {
					d := latestDetailMoveOut(ds.detailsByUnit[key])
					return d, d != nil
				}},
			); ok {
				n, err := s.setIfNull(ctx, u.ID, "available_date", v)
				if err != nil {
					return written, err
				}
				if n > 0 {
					u.AvailableDate = v
				}
				written += n
			}
		}

		if u.NoticeDate == nil && u.OccupancyStatus == canonical.UnitNotice {
			if v, _, ok := firstOf(
				source[*time.Time]{name: "availability", fn: func() (*time.Time, bool) {
					return avail.noticeDate, hasAvail && avail.noticeDate != nil
				}},
				source[*time.Time]{name: "notice_resident_moveout", fn: func() (*time.Time, bool) {
					d := residentMoveOut(ds.residentsByUnit[key], canonical.ResidentNotice)
					return d, d != nil
				}},
			); ok {
				n, err := s.setIfNull(ctx, u.ID, "notice_date", v)
				if err != nil {
					return written, err
				}
				if n > 0 {
					u.NoticeDate = v
				}
				written += n
			}
		}
	}
	return written, nil
}

// passIncomingLeaseStart backfills the forward lease start for pre-leased
// vacant units: applicant lease, then a future resident on the unit, then the
// earliest forward lease-detail start on the same floorplan.
func (s *Service) passIncomingLeaseStart(ctx context.Context, ds *dataset) (int, error) {
	written := 0
	for _, u := range ds.units {
		if !u.Preleased || u.IncomingLeaseStart != nil {
			continue
		}
		key := unitKey(u.PropertyID, u.UnitNumber)
		planKey := unitKey(u.PropertyID, u.Floorplan)

		v, _, ok := firstOf(
			source[*time.Time]{name: "applicant_lease", fn: func() (*time.Time, bool) {
				d := earliestLeaseStart(ds.leasesByUnit[key], canonical.LeaseApplicant, canonical.LeaseFuture)
				return d, d != nil
			}},
			source[*time.Time]{name: "future_resident", fn: func() (*time.Time, bool) {
				d := futureResidentMoveIn(ds.residentsByUnit[key], ds.today)
				return d, d != nil
			}},
			source[*time.Time]{name: "floorplan_lease_detail", fn: func() (*time.Time, bool) {
				d := earliestDetailStartAfter(ds.detailsByPlan[planKey], ds.today)
				return d, d != nil
			}},
		)
		if !ok {
			continue
		}
		n, err := s.setIfNull(ctx, u.ID, "incoming_lease_start", v)
		if err != nil {
			return written, err
		}
		written += n
	}
	return written, nil
}

// passDaysVacant backfills days-vacant for vacant units: canonical
// lease/resident move-out, then the report move-out, then the unit's own
// available date as last resort.
func (s *Service) passDaysVacant(ctx context.Context, ds *dataset) (int, error) {
	written := 0
	for _, u := range ds.units {
		if u.DaysVacant != nil {
			continue
		}
		if u.OccupancyStatus != canonical.UnitVacantReady && u.OccupancyStatus != canonical.UnitVacantNotReady {
			continue
		}
		key := unitKey(u.PropertyID, u.UnitNumber)
		available := u.AvailableDate

		v, _, ok := firstOf(
			source[*time.Time]{name: "linked_moveout", fn: func() (*time.Time, bool) {
				d := latestLinkedMoveOut(ds.leasesByUnit[key], ds.residentsByUnit[key])
				return d, d != nil
			}},
			source[*time.Time]{name: "report_moveout", fn: func() (*time.Time, bool) {
				d := latestDetailMoveOut(ds.detailsByUnit[key])
				return d, d != nil
			}},
			source[*time.Time]{name: "available_date", fn: func() (*time.Time, bool) {
				return available, available != nil
			}},
		)
		if !ok {
			continue
		}

		days := daysBetween(*v, ds.today)
		n, err := s.setIfNull(ctx, u.ID, "days_vacant", days)
		if err != nil {
			return written, err
		}
		written += n
	}
	return written, nil
}

// passBedBath backfills bedroom/bathroom counts from a populated floorplan
// sibling first and the lease-detail report second.
func (s *Service) passBedBath(ctx context.Context, ds *dataset) (int, error) {
	written := 0
	for _, u := range ds.units {
		if u.Bedrooms > 0 || u.Floorplan == "" {
			continue
		}
		planKey := unitKey(u.PropertyID, u.Floorplan)

		type bedBath struct {
			beds  int
			baths float64
		}
		v, _, ok := firstOf(
			source[bedBath]{name: "floorplan_sibling", fn: func() (bedBath, bool) {
				for _, sib := range ds.unitsByPlan[planKey] {
					if sib.ID != u.ID && sib.Bedrooms > 0 {
						return bedBath{beds: sib.Bedrooms, baths: sib.Bathrooms}, true
					}
				}
				return bedBath{}, false
			}},
			source[bedBath]{name: "lease_detail", fn: func() (bedBath, bool) {
				for _, d := range ds.detailsByPlan[planKey] {
					if d.bedrooms > 0 {
						return bedBath{beds: d.bedrooms, baths: d.bathrooms}, true
					}
				}
				return bedBath{}, false
			}},
		)
		if !ok {
			continue
		}

		res := s.db.WithContext(ctx).Model(&canonical.Unit{}).
			Where("id = ? AND bedrooms = 0", u.ID).
			Updates(map[string]any{"bedrooms": v.beds, "bathrooms": v.baths})
		if res.Error != nil {
			return written, res.Error
		}
		if res.RowsAffected > 0 {
			u.Bedrooms = v.beds
			u.Bathrooms = v.baths
		}
		written += int(res.RowsAffected)
	}
	return written, nil
}

func daysBetween(from, to time.Time) int {
	days := int(math.Floor(to.Sub(from).Hours() / 24))
	if days < 0 {
		return 0
	}
	return days
}

func latestDetailMoveOut(details []detailRow) *time.Time {
	var latest *time.Time
	for _, d := range details {
		if d.moveOut == nil {
			continue
		}
		if latest == nil || d.moveOut.After(*latest) {
			latest = d.moveOut
		}
	}
	return latest
}

func latestLinkedMoveOut(leases []*canonical.Lease, residents []*canonical.Resident) *time.Time {
	var latest *time.Time
	for _, l := range leases {
		if l.MoveOut == nil {
			continue
		}
		if latest == nil || l.MoveOut.After(*latest) {
			latest = l.MoveOut
		}
	}
	for _, r := range residents {
		if r.MoveOut == nil || (r.Status != canonical.ResidentPast && r.Status != canonical.ResidentNotice) {
			continue
		}
		if latest == nil || r.MoveOut.After(*latest) {
			latest = r.MoveOut
		}
	}
	return latest
}

func residentMoveOut(residents []*canonical.Resident, status canonical.ResidentStatus) *time.Time {
	var latest *time.Time
	for _, r := range residents {
		if r.Status != status || r.MoveOut == nil {
			continue
		}
		if latest == nil || r.MoveOut.After(*latest) {
			latest = r.MoveOut
		}
	}
	return latest
}

func earliestLeaseStart(leases []*canonical.Lease, statuses ...canonical.LeaseStatus) *time.Time {
	var earliest *time.Time
	for _, l := range leases {
		if l.LeaseStart == nil {
			continue
		}
		matched := false
		for _, st := range statuses {
			if l.Status == st {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		if earliest == nil || l.LeaseStart.Before(*earliest) {
			earliest = l.LeaseStart
		}
	}
	return earliest
}

func futureResidentMoveIn(residents []*canonical.Resident, today time.Time) *time.Time {
	var earliest *time.Time
	for _, r := range residents {
		var candidate *time.Time
		switch {
		case r.Status == canonical.ResidentFuture && r.MoveIn != nil:
			candidate = r.MoveIn
		case r.Status == canonical.ResidentFuture && r.LeaseStart != nil:
			candidate = r.LeaseStart
		case r.Status == canonical.ResidentCurrent && r.MoveIn != nil && !r.MoveIn.Before(today):
			candidate = r.MoveIn
		}
		if candidate == nil {
			continue
		}
		if earliest == nil || candidate.Before(*earliest) {
			earliest = candidate
		}
	}
	return earliest
}

func earliestDetailStartAfter(details []detailRow, today time.Time) *time.Time {
	var earliest *time.Time
	for _, d := range details {
		if d.leaseStart == nil || d.leaseStart.Before(today) {
			continue
		}
		if earliest == nil || d.leaseStart.Before(*earliest) {
			earliest = d.leaseStart
		}
	}
	return earliest
}
