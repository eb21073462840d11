package enrich

import (
	"context"
	"time"

	"github.com/leaseline/leaseline/internal/canonical"
	"github.com/leaseline/leaseline/internal/extract"
	"github.com/leaseline/leaseline/internal/identity"
	"github.com/leaseline/leaseline/pkg/repository"
)

// dataset is everything one enrichment run reads, loaded once so each pass is
// a bounded operation over all eligible rows.
type dataset struct {
	source canonical.Source
	today  time.Time

	units           []*canonical.Unit
	leasesByUnit    map[string][]*canonical.Lease
	residentsByUnit map[string][]*canonical.Resident
	unitsByPlan     map[string][]*canonical.Unit

	availByUnit   map[string]availRow
	detailsByUnit map[string][]detailRow
	detailsByPlan map[string][]detailRow
}

// availRow is the parsed shape of one availability report line.
type availRow struct {
	readyDate     *time.Time
	availableDate *time.Time
	noticeDate    *time.Time
}

// detailRow is the parsed shape of one lease-detail report line.
type detailRow struct {
	unitNumber string
	floorplan  string
	bedrooms   int
	bathrooms  float64
	leaseStart *time.Time
	moveOut    *time.Time
}

func unitKey(propertyID, unitNumber string) string {
	return propertyID + "|" + unitNumber
}

func (s *Service) load(ctx context.Context, source canonical.Source, ids *identity.Snapshot) (*dataset, error) {
	ds := &dataset{
		source:          source,
		today:           s.clock.Now(),
		leasesByUnit:    make(map[string][]*canonical.Lease),
		residentsByUnit: make(map[string][]*canonical.Resident),
		unitsByPlan:     make(map[string][]*canonical.Unit),
		availByUnit:     make(map[string]availRow),
		detailsByUnit:   make(map[string][]detailRow),
		detailsByPlan:   make(map[string][]detailRow),
	}

	units, err := repository.ProvideStore[canonical.Unit](s.db).Find(ctx, &canonical.Unit{Source: source})
	if err != nil {
		return nil, err
	}
	ds.units = units
	for _, u := range units {
		if u.Floorplan != "" {
			key := unitKey(u.PropertyID, u.Floorplan)
			ds.unitsByPlan[key] = append(ds.unitsByPlan[key], u)
		}
	}

	leases, err := repository.ProvideStore[canonical.Lease](s.db).Find(ctx, &canonical.Lease{Source: source})
	if err != nil {
		return nil, err
	}
	for _, l := range leases {
		key := unitKey(l.PropertyID, l.UnitNumber)
		ds.leasesByUnit[key] = append(ds.leasesByUnit[key], l)
	}

	residents, err := repository.ProvideStore[canonical.Resident](s.db).Find(ctx, &canonical.Resident{Source: source})
	if err != nil {
		return nil, err
	}
	for _, r := range residents {
		if r.UnitNumber == "" {
			continue
		}
		key := unitKey(r.PropertyID, r.UnitNumber)
		ds.residentsByUnit[key] = append(ds.residentsByUnit[key], r)
	}

	if err := s.loadAvailability(ctx, source, ids, ds); err != nil {
		return nil, err
	}
	if err := s.loadLeaseDetails(ctx, source, ids, ds); err != nil {
		return nil, err
	}
	return ds, nil
}

func (s *Service) loadAvailability(ctx context.Context, source canonical.Source, ids *identity.Snapshot, ds *dataset) error {
	rows, err := s.reader.Read(ctx, source, extract.KindAvailability)
	if err != nil {
		return err
	}
	for _, raw := range rows {
		propertyID, ok := ids.Resolve(source, raw.VendorPropertyID)
		if !ok {
			continue
		}
		unitNumber := extract.Str(raw.Payload, "unitNumber", "Unit", "UnitNumber")
		if unitNumber == "" {
			continue
		}
		ds.availByUnit[unitKey(propertyID, unitNumber)] = availRow{
			readyDate:     extract.Date(raw.Payload, "readyDate", "ReadyDate", "MadeReadyDate"),
			availableDate: extract.Date(raw.Payload, "availableDate", "AvailableDate", "DateAvailable"),
			noticeDate:    extract.Date(raw.Payload, "noticeDate", "NoticeDate"),
		}
	}
	return nil
}

func (s *Service) loadLeaseDetails(ctx context.Context, source canonical.Source, ids *identity.Snapshot, ds *dataset) error {
	rows, err := s.reader.Read(ctx, source, extract.KindLeaseDetails)
	if err != nil {
		return err
	}
	for _, raw := range rows {
		propertyID, ok := ids.Resolve(source, raw.VendorPropertyID)
		if !ok {
			continue
		}
		detail := detailRow{
			unitNumber: extract.Str(raw.Payload, "unitNumber", "Unit", "UnitNumber"),
			floorplan:  extract.Str(raw.Payload, "floorPlanName", "UnitType", "Floorplan"),
			bedrooms:   extract.Whole(raw.Payload, "bedrooms", "Beds"),
			bathrooms:  extract.F64(raw.Payload, "bathrooms", "Baths"),
			leaseStart: extract.Date(raw.Payload, "leaseStartDate", "LeaseStart"),
			moveOut:    extract.Date(raw.Payload, "moveOutDate", "MoveOut", "MoveOutDate"),
		}
		if detail.unitNumber != "" {
			key := unitKey(propertyID, detail.unitNumber)
			ds.detailsByUnit[key] = append(ds.detailsByUnit[key], detail)
		}
		if detail.floorplan != "" {
			key := unitKey(propertyID, detail.floorplan)
			ds.detailsByPlan[key] = append(ds.detailsByPlan[key], detail)
		}
	}
	return nil
}
