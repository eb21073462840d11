// Package normalize converts raw vendor rows into canonical-shape records:
// typed casts, status-vocabulary mapping, identity resolution, and natural-key
// deduplication. Per-record problems are recovered locally; only store
// failures propagate.
package normalize

import (
	"context"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/leaseline/leaseline/internal/canonical"
	"github.com/leaseline/leaseline/internal/extract"
	"github.com/leaseline/leaseline/internal/identity"
	"github.com/leaseline/leaseline/internal/status"
	"github.com/leaseline/leaseline/pkg/db"
	"github.com/leaseline/leaseline/pkg/repository"
)

// Params collects normalizer dependencies.
type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Reader extract.Reader
	Mapper *status.Mapper
}

// Service normalizes one entity type per call, in the dependency order the
// orchestrator drives.
type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	reader extract.Reader
	mapper *status.Mapper
}

// NewService builds the normalizer service.
func NewService(p Params) *Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("normalize.service"),
		genID:  p.GenID,
		reader: p.Reader,
		mapper: p.Mapper,
	}
}

// readKind loads raw rows for (source, kind). ok=false means the optional
// source is absent for this run; the step is skipped, not failed.
func (s *Service) readKind(ctx context.Context, source canonical.Source, kind extract.Kind) ([]extract.Row, bool, error) {
	rows, err := s.reader.Read(ctx, source, kind)
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		s.log.Warn("optional raw source absent, skipping",
			zap.String("source", string(source)),
			zap.String("kind", string(kind)),
		)
		return nil, false, nil
	}
	return rows, true, nil
}

func (s *Service) logDropped(source canonical.Source, kind extract.Kind, dropped int) {
	if dropped == 0 {
		return
	}
	s.log.Warn("dropped rows with unresolved or unusable identity",
		zap.String("source", string(source)),
		zap.String("kind", string(kind)),
		zap.Int("dropped", dropped),
	)
}

// Properties normalizes the property master rows and refreshes the dynamic
// property directory for every id that resolved.
func (s *Service) Properties(ctx context.Context, tx *gorm.DB, source canonical.Source, ids *identity.Snapshot) (int, error) {
	raws, ok, err := s.readKind(ctx, source, extract.KindProperties)
	if err != nil || !ok {
		return 0, err
	}

	rows := make([]propertyRow, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		if _, ok := ids.Resolve(source, raw.VendorPropertyID); !ok {
			dropped++
			continue
		}
		rows = append(rows, newPropertyRow(raw))
	}
	rows = dedupeLatest(rows,
		func(r propertyRow) string { return r.vendorPropertyID },
		func(r propertyRow) time.Time { return r.reportDate },
	)

	directory := repository.ProvideStore[canonical.PropertyDirectory](tx)
	out := make([]*canonical.Property, 0, len(rows))
	for _, r := range rows {
		propertyID, _ := ids.Resolve(source, r.vendorPropertyID)
		out = append(out, &canonical.Property{
			ID:               s.genID.Generate(),
			PropertyID:       propertyID,
			Source:           source,
			VendorPropertyID: r.vendorPropertyID,
			Name:             r.name,
			OwnerGroup:       r.ownerGroup,
			SnapshotDate:     r.reportDate,
		})

		err := directory.Create(ctx, &canonical.PropertyDirectory{
			ID:               s.genID.Generate(),
			Source:           source,
			VendorPropertyID: r.vendorPropertyID,
			PropertyID:       propertyID,
		})
		if err != nil && !db.IsDuplicateKeyErr(err) {
			return 0, err
		}
	}

	if err := repository.ProvideStore[canonical.Property](tx).BatchCreate(ctx, out); err != nil {
		return 0, err
	}
	s.logDropped(source, extract.KindProperties, dropped)
	return len(out), nil
}

// Units normalizes the unit rows and derives each canonical occupancy status.
func (s *Service) Units(ctx context.Context, tx *gorm.DB, source canonical.Source, ids *identity.Snapshot) (int, error) {
	raws, ok, err := s.readKind(ctx, source, extract.KindUnits)
	if err != nil || !ok {
		return 0, err
	}

	rows := make([]unitRow, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		if _, ok := ids.Resolve(source, raw.VendorPropertyID); !ok {
			dropped++
			continue
		}
		row := newUnitRow(raw)
		if row.unitNumber == "" {
			dropped++
			continue
		}
		rows = append(rows, row)
	}
	rows = dedupeLatest(rows,
		func(r unitRow) string { return r.vendorPropertyID + "|" + r.unitNumber },
		func(r unitRow) time.Time { return r.reportDate },
	)

	out := make([]*canonical.Unit, 0, len(rows))
	for _, r := range rows {
		propertyID, _ := ids.Resolve(source, r.vendorPropertyID)
		out = append(out, &canonical.Unit{
			ID:              s.genID.Generate(),
			PropertyID:      propertyID,
			Source:          source,
			VendorUnitID:    r.vendorUnitID,
			UnitNumber:      r.unitNumber,
			Floorplan:       r.floorplan,
			Bedrooms:        r.bedrooms,
			Bathrooms:       r.bathrooms,
			SquareFeet:      r.squareFeet,
			MarketRent:      r.marketRent,
			InPlaceRent:     r.inPlaceRent,
			OccupancyStatus: s.mapper.UnitStatus(source, r.rawStatus, r.flags),
			Preleased:       r.preleased,
			ReadyDate:       r.readyDate,
			AvailableDate:   r.availableDate,
			NoticeDate:      r.noticeDate,
			SnapshotDate:    r.reportDate,
		})
	}

	if err := repository.ProvideStore[canonical.Unit](tx).BatchCreate(ctx, out); err != nil {
		return 0, err
	}
	s.logDropped(source, extract.KindUnits, dropped)
	return len(out), nil
}

// Residents normalizes resident rows and reconciles notice residents against
// their units: a unit with a notice resident cannot stay plain occupied.
func (s *Service) Residents(ctx context.Context, tx *gorm.DB, source canonical.Source, ids *identity.Snapshot) (int, error) {
	raws, ok, err := s.readKind(ctx, source, extract.KindResidents)
	if err != nil || !ok {
		return 0, err
	}

	rows := make([]residentRow, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		if _, ok := ids.Resolve(source, raw.VendorPropertyID); !ok {
			dropped++
			continue
		}
		row := newResidentRow(raw)
		if row.vendorResidentID == "" {
			dropped++
			continue
		}
		rows = append(rows, row)
	}
	rows = dedupeLatest(rows,
		func(r residentRow) string { return r.vendorPropertyID + "|" + r.vendorResidentID },
		func(r residentRow) time.Time { return r.reportDate },
	)

	out := make([]*canonical.Resident, 0, len(rows))
	for _, r := range rows {
		propertyID, _ := ids.Resolve(source, r.vendorPropertyID)
		out = append(out, &canonical.Resident{
			ID:               s.genID.Generate(),
			PropertyID:       propertyID,
			Source:           source,
			VendorResidentID: r.vendorResidentID,
			UnitNumber:       r.unitNumber,
			Status:           s.mapper.ResidentStatus(r.rawStatus),
			LeaseStart:       r.leaseStart,
			LeaseEnd:         r.leaseEnd,
			MoveIn:           r.moveIn,
			MoveOut:          r.moveOut,
			CurrentRent:      r.currentRent,
			Balance:          r.balance,
			SnapshotDate:     r.reportDate,
		})
	}

	if err := repository.ProvideStore[canonical.Resident](tx).BatchCreate(ctx, out); err != nil {
		return 0, err
	}

	for _, res := range out {
		if res.Status != canonical.ResidentNotice || res.UnitNumber == "" {
			continue
		}
		err := tx.WithContext(ctx).Model(&canonical.Unit{}).
			Where("source = ? AND property_id = ? AND unit_number = ? AND occupancy_status = ?",
				source, res.PropertyID, res.UnitNumber, canonical.UnitOccupied).
			Update("occupancy_status", canonical.UnitNotice).Error
		if err != nil {
			return 0, err
		}
	}

	s.logDropped(source, extract.KindResidents, dropped)
	return len(out), nil
}

// Leases normalizes lease rows, dedupes on (property, unit, lease end), and
// links each renewal to the prior lease on the same unit.
func (s *Service) Leases(ctx context.Context, tx *gorm.DB, source canonical.Source, ids *identity.Snapshot) (int, error) {
	raws, ok, err := s.readKind(ctx, source, extract.KindLeases)
	if err != nil || !ok {
		return 0, err
	}

	rows := make([]leaseRow, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		if _, ok := ids.Resolve(source, raw.VendorPropertyID); !ok {
			dropped++
			continue
		}
		row := newLeaseRow(raw)
		if row.unitNumber == "" {
			dropped++
			continue
		}
		rows = append(rows, row)
	}
	rows = dedupeLatest(rows,
		func(r leaseRow) string {
			end := ""
			if r.leaseEnd != nil {
				end = r.leaseEnd.Format("2006-01-02")
			}
			return r.vendorPropertyID + "|" + r.unitNumber + "|" + end
		},
		func(r leaseRow) time.Time { return r.reportDate },
	)

	out := make([]*canonical.Lease, 0, len(rows))
	for _, r := range rows {
		propertyID, _ := ids.Resolve(source, r.vendorPropertyID)
		status := s.mapper.LeaseStatus(r.rawStatus)
		out = append(out, &canonical.Lease{
			ID:            s.genID.Generate(),
			PropertyID:    propertyID,
			Source:        source,
			VendorLeaseID: r.vendorLeaseID,
			UnitNumber:    r.unitNumber,
			Floorplan:     r.floorplan,
			Status:        status,
			Rent:          r.rent,
			TermMonths:    r.termMonths,
			LeaseStart:    r.leaseStart,
			LeaseEnd:      r.leaseEnd,
			MoveOut:       r.moveOut,
			IsRenewal:     r.renewal || status == canonical.LeaseRenewal,
			ReportDate:    r.reportDate,
		})
	}

	linkRenewals(out)

	if err := repository.ProvideStore[canonical.Lease](tx).BatchCreate(ctx, out); err != nil {
		return 0, err
	}
	s.logDropped(source, extract.KindLeases, dropped)
	return len(out), nil
}

// linkRenewals points every renewal lease at the latest earlier lease on the
// same (property, unit). A renewal with no resolvable prior lease gets its
// flag cleared rather than left dangling.
func linkRenewals(leases []*canonical.Lease) {
	byUnit := make(map[string][]*canonical.Lease)
	for _, l := range leases {
		key := l.PropertyID + "|" + l.UnitNumber
		byUnit[key] = append(byUnit[key], l)
	}

	for _, chain := range byUnit {
		sort.Slice(chain, func(i, j int) bool {
			return leaseStartOrZero(chain[i]).Before(leaseStartOrZero(chain[j]))
		})
		for i, l := range chain {
			if !l.IsRenewal {
				continue
			}
			if i == 0 {
				l.IsRenewal = false
				continue
			}
			prior := chain[i-1].ID
			l.PriorLeaseID = &prior
		}
	}
}

func leaseStartOrZero(l *canonical.Lease) time.Time {
	if l.LeaseStart != nil {
		return *l.LeaseStart
	}
	return time.Time{}
}

// Delinquency normalizes the aged-receivables rows.
func (s *Service) Delinquency(ctx context.Context, tx *gorm.DB, source canonical.Source, ids *identity.Snapshot) (int, error) {
	raws, ok, err := s.readKind(ctx, source, extract.KindDelinquency)
	if err != nil || !ok {
		return 0, err
	}

	rows := make([]delinquencyRow, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		if _, ok := ids.Resolve(source, raw.VendorPropertyID); !ok {
			dropped++
			continue
		}
		row := newDelinquencyRow(raw)
		if row.vendorResidentID == "" {
			dropped++
			continue
		}
		rows = append(rows, row)
	}
	rows = dedupeLatest(rows,
		func(r delinquencyRow) string { return r.vendorPropertyID + "|" + r.vendorResidentID },
		func(r delinquencyRow) time.Time { return r.reportDate },
	)

	out := make([]*canonical.DelinquencyRecord, 0, len(rows))
	for _, r := range rows {
		propertyID, _ := ids.Resolve(source, r.vendorPropertyID)
		out = append(out, &canonical.DelinquencyRecord{
			ID:               s.genID.Generate(),
			PropertyID:       propertyID,
			Source:           source,
			VendorResidentID: r.vendorResidentID,
			UnitNumber:       r.unitNumber,
			Bucket0to30:      r.bucket0to30,
			Bucket31to60:     r.bucket31to60,
			Bucket61to90:     r.bucket61to90,
			Bucket90Plus:     r.bucket90Plus,
			NetBalance:       r.netBalance,
			Eviction:         r.eviction,
			ReportDate:       r.reportDate,
		})
	}

	if err := repository.ProvideStore[canonical.DelinquencyRecord](tx).BatchCreate(ctx, out); err != nil {
		return 0, err
	}
	s.logDropped(source, extract.KindDelinquency, dropped)
	return len(out), nil
}

// Amenities normalizes rentable-item rows.
func (s *Service) Amenities(ctx context.Context, tx *gorm.DB, source canonical.Source, ids *identity.Snapshot) (int, error) {
	raws, ok, err := s.readKind(ctx, source, extract.KindAmenities)
	if err != nil || !ok {
		return 0, err
	}

	rows := make([]amenityRow, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		if _, ok := ids.Resolve(source, raw.VendorPropertyID); !ok {
			dropped++
			continue
		}
		row := newAmenityRow(raw)
		if row.amenityType == "" {
			dropped++
			continue
		}
		rows = append(rows, row)
	}
	rows = dedupeLatest(rows,
		func(r amenityRow) string {
			return r.vendorPropertyID + "|" + r.unitNumber + "|" + r.amenityType + "|" + r.vendorID
		},
		func(r amenityRow) time.Time { return r.reportDate },
	)

	out := make([]*canonical.Amenity, 0, len(rows))
	for _, r := range rows {
		propertyID, _ := ids.Resolve(source, r.vendorPropertyID)
		out = append(out, &canonical.Amenity{
			ID:            s.genID.Generate(),
			PropertyID:    propertyID,
			Source:        source,
			VendorID:      r.vendorID,
			UnitNumber:    r.unitNumber,
			Type:          r.amenityType,
			MonthlyCharge: r.monthlyCharge,
			Status:        r.assignStatus,
			ReportDate:    r.reportDate,
		})
	}

	if err := repository.ProvideStore[canonical.Amenity](tx).BatchCreate(ctx, out); err != nil {
		return 0, err
	}
	s.logDropped(source, extract.KindAmenities, dropped)
	return len(out), nil
}

// Financials normalizes ledger-line rows.
func (s *Service) Financials(ctx context.Context, tx *gorm.DB, source canonical.Source, ids *identity.Snapshot) (int, error) {
	raws, ok, err := s.readKind(ctx, source, extract.KindFinancial)
	if err != nil || !ok {
		return 0, err
	}

	rows := make([]financialRow, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		if _, ok := ids.Resolve(source, raw.VendorPropertyID); !ok {
			dropped++
			continue
		}
		rows = append(rows, newFinancialRow(raw))
	}
	rows = dedupeLatest(rows,
		func(r financialRow) string {
			day := ""
			if r.transactionDate != nil {
				day = r.transactionDate.Format("2006-01-02")
			}
			return r.vendorPropertyID + "|" + r.vendorResidentID + "|" + r.code + "|" + day
		},
		func(r financialRow) time.Time { return r.reportDate },
	)

	out := make([]*canonical.FinancialTransaction, 0, len(rows))
	for _, r := range rows {
		propertyID, _ := ids.Resolve(source, r.vendorPropertyID)
		out = append(out, &canonical.FinancialTransaction{
			ID:               s.genID.Generate(),
			PropertyID:       propertyID,
			Source:           source,
			VendorResidentID: r.vendorResidentID,
			Code:             r.code,
			Description:      r.description,
			Amount:           r.amount,
			TransactionDate:  r.transactionDate,
			ReportDate:       r.reportDate,
		})
	}

	if err := repository.ProvideStore[canonical.FinancialTransaction](tx).BatchCreate(ctx, out); err != nil {
		return 0, err
	}
	s.logDropped(source, extract.KindFinancial, dropped)
	return len(out), nil
}

// Activity normalizes leasing-funnel touches; rows whose event type is not a
// recognized funnel stage are dropped.
func (s *Service) Activity(ctx context.Context, tx *gorm.DB, source canonical.Source, ids *identity.Snapshot) (int, error) {
	raws, ok, err := s.readKind(ctx, source, extract.KindActivity)
	if err != nil || !ok {
		return 0, err
	}

	rows := make([]activityRow, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		if _, ok := ids.Resolve(source, raw.VendorPropertyID); !ok {
			dropped++
			continue
		}
		row := newActivityRow(raw)
		if !row.known || row.prospectID == "" || row.eventDate == nil {
			dropped++
			continue
		}
		rows = append(rows, row)
	}
	rows = dedupeLatest(rows,
		func(r activityRow) string {
			return r.vendorPropertyID + "|" + r.prospectID + "|" + string(r.eventType) + "|" + r.eventDate.Format("2006-01-02")
		},
		func(r activityRow) time.Time { return r.reportDate },
	)

	out := make([]*canonical.ActivityEvent, 0, len(rows))
	for _, r := range rows {
		propertyID, _ := ids.Resolve(source, r.vendorPropertyID)
		out = append(out, &canonical.ActivityEvent{
			ID:         s.genID.Generate(),
			PropertyID: propertyID,
			Source:     source,
			ProspectID: r.prospectID,
			Type:       r.eventType,
			EventDate:  *r.eventDate,
			Agent:      r.agent,
		})
	}

	if err := repository.ProvideStore[canonical.ActivityEvent](tx).BatchCreate(ctx, out); err != nil {
		return 0, err
	}
	s.logDropped(source, extract.KindActivity, dropped)
	return len(out), nil
}
