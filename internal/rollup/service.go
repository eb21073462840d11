// Package rollup computes the derived per-property summary tables from the
// normalized entities: status counts, occupancy and exposure, floorplan
// pricing, and the leasing funnel.
package rollup

import (
	"context"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/leaseline/leaseline/internal/canonical"
	"github.com/leaseline/leaseline/internal/clock"
	"github.com/leaseline/leaseline/internal/config"
	"github.com/leaseline/leaseline/pkg/repository"
)

// Params collects rollup dependencies.
type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Config config.Config
}

// Service rebuilds the derived tables for one vendor source.
type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	funnelWindow time.Duration
}

// NewService builds the rollup service.
func NewService(p Params) *Service {
	days := p.Config.FunnelWindowDays
	if days <= 0 {
		days = 30
	}
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("rollup.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		funnelWindow: time.Duration(days) * 24 * time.Hour,
	}
}

// Build recomputes all derived rows for one source inside tx. The caller has
// already deleted the source's previous derived rows.
func (s *Service) Build(ctx context.Context, tx *gorm.DB, source canonical.Source) (int, error) {
	units, err := repository.ProvideStore[canonical.Unit](tx).Find(ctx, &canonical.Unit{Source: source})
	if err != nil {
		return 0, err
	}
	residents, err := repository.ProvideStore[canonical.Resident](tx).Find(ctx, &canonical.Resident{Source: source})
	if err != nil {
		return 0, err
	}
	events, err := repository.ProvideStore[canonical.ActivityEvent](tx).Find(ctx, &canonical.ActivityEvent{Source: source})
	if err != nil {
		return 0, err
	}

	total := 0
	n, err := s.buildPropertyMetrics(ctx, tx, source, units)
	if err != nil {
		return total, err
	}
	total += n

	n, err = s.buildFloorplanPricing(ctx, tx, source, units, residents)
	if err != nil {
		return total, err
	}
	total += n

	n, err = s.buildLeasingFunnel(ctx, tx, source, events)
	if err != nil {
		return total, err
	}
	total += n

	return total, nil
}

type snapshotKey struct {
	propertyID string
	snapshot   time.Time
}

func (s *Service) buildPropertyMetrics(ctx context.Context, tx *gorm.DB, source canonical.Source, units []*canonical.Unit) (int, error) {
	groups := make(map[snapshotKey][]*canonical.Unit)
	for _, u := range units {
		key := snapshotKey{propertyID: u.PropertyID, snapshot: u.SnapshotDate}
		groups[key] = append(groups[key], u)
	}

	keys := make([]snapshotKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].propertyID != keys[j].propertyID {
			return keys[i].propertyID < keys[j].propertyID
		}
		return keys[i].snapshot.Before(keys[j].snapshot)
	})

	out := make([]*canonical.PropertyMetrics, 0, len(keys))
	for _, key := range keys {
		group := groups[key]
		m := &canonical.PropertyMetrics{
			ID:           s.genID.Generate(),
			PropertyID:   key.propertyID,
			Source:       source,
			SnapshotDate: key.snapshot,
			TotalUnits:   len(group),
		}
		for _, u := range group {
			switch u.OccupancyStatus {
			case canonical.UnitOccupied:
				m.Occupied++
			case canonical.UnitVacantReady:
				m.VacantReady++
			case canonical.UnitVacantNotReady:
				m.VacantNotReady++
			case canonical.UnitNotice:
				m.Notice++
			case canonical.UnitModel:
				m.Model++
			case canonical.UnitDown:
				m.Down++
			}
			if u.Preleased {
				m.Preleased++
			}
		}

		vacant := m.VacantReady + m.VacantNotReady
		m.PhysicalOccupancy = ratio(float64(m.Occupied), float64(m.TotalUnits))
		m.LeasedPercent = ratio(float64(m.Occupied+m.Preleased), float64(m.TotalUnits))
		// Forward exposure weights notice units at 0.5 for the 30-day horizon
		// (roughly half of notices vacate within 30 days) and at full weight
		// for the 60-day horizon. The half-weight term truncates toward zero:
		// 5 notices contribute 2, not 3.
		m.Exposure30 = vacant + m.Notice/2 - m.Preleased
		m.Exposure60 = vacant + m.Notice - m.Preleased

		out = append(out, m)
	}

	if err := repository.ProvideStore[canonical.PropertyMetrics](tx).BatchCreate(ctx, out); err != nil {
		return 0, err
	}
	return len(out), nil
}

type planKey struct {
	propertyID string
	floorplan  string
}

func (s *Service) buildFloorplanPricing(ctx context.Context, tx *gorm.DB, source canonical.Source, units []*canonical.Unit, residents []*canonical.Resident) (int, error) {
	// in-place rent prefers what current residents actually pay
	rentByUnit := make(map[string]float64)
	for _, r := range residents {
		if r.Status == canonical.ResidentCurrent && r.CurrentRent > 0 && r.UnitNumber != "" {
			rentByUnit[r.PropertyID+"|"+r.UnitNumber] = r.CurrentRent
		}
	}

	groups := make(map[planKey][]*canonical.Unit)
	for _, u := range units {
		if u.Floorplan == "" {
			continue
		}
		key := planKey{propertyID: u.PropertyID, floorplan: u.Floorplan}
		groups[key] = append(groups[key], u)
	}

	keys := make([]planKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].propertyID != keys[j].propertyID {
			return keys[i].propertyID < keys[j].propertyID
		}
		return keys[i].floorplan < keys[j].floorplan
	})

	out := make([]*canonical.FloorplanPricing, 0, len(keys))
	for _, key := range keys {
		group := groups[key]
		var snapshot time.Time
		var marketSum, marketN, inPlaceSum, inPlaceN float64
		for _, u := range group {
			if u.SnapshotDate.After(snapshot) {
				snapshot = u.SnapshotDate
			}
			if u.MarketRent > 0 {
				marketSum += u.MarketRent
				marketN++
			}
			inPlace := u.InPlaceRent
			if paid, ok := rentByUnit[u.PropertyID+"|"+u.UnitNumber]; ok {
				inPlace = paid
			}
			if inPlace > 0 && u.OccupancyStatus == canonical.UnitOccupied {
				inPlaceSum += inPlace
				inPlaceN++
			}
		}

		avgMarket := ratio(marketSum, marketN)
		avgInPlace := ratio(inPlaceSum, inPlaceN)
		growth := 0.0
		if avgInPlace > 0 {
			growth = avgMarket/avgInPlace - 1
		}

		out = append(out, &canonical.FloorplanPricing{
			ID:             s.genID.Generate(),
			PropertyID:     key.propertyID,
			Source:         source,
			Floorplan:      key.floorplan,
			SnapshotDate:   snapshot,
			Units:          len(group),
			AvgInPlaceRent: avgInPlace,
			AvgMarketRent:  avgMarket,
			RentGrowth:     growth,
		})
	}

	if err := repository.ProvideStore[canonical.FloorplanPricing](tx).BatchCreate(ctx, out); err != nil {
		return 0, err
	}
	return len(out), nil
}

func (s *Service) buildLeasingFunnel(ctx context.Context, tx *gorm.DB, source canonical.Source, events []*canonical.ActivityEvent) (int, error) {
	windowEnd := s.clock.Now()
	windowStart := windowEnd.Add(-s.funnelWindow)

	type stageSet map[canonical.ActivityType]map[string]bool
	perProperty := make(map[string]stageSet)
	for _, e := range events {
		if e.EventDate.Before(windowStart) || e.EventDate.After(windowEnd) {
			continue
		}
		stages, ok := perProperty[e.PropertyID]
		if !ok {
			stages = make(stageSet)
			perProperty[e.PropertyID] = stages
		}
		if stages[e.Type] == nil {
			stages[e.Type] = make(map[string]bool)
		}
		stages[e.Type][e.ProspectID] = true
	}

	propertyIDs := make([]string, 0, len(perProperty))
	for id := range perProperty {
		propertyIDs = append(propertyIDs, id)
	}
	sort.Strings(propertyIDs)

	out := make([]*canonical.LeasingFunnel, 0, len(propertyIDs))
	for _, propertyID := range propertyIDs {
		stages := perProperty[propertyID]
		leads := len(stages[canonical.ActivityLead])
		tours := len(stages[canonical.ActivityTour])
		applications := len(stages[canonical.ActivityApplication])
		leases := len(stages[canonical.ActivityLease])

		out = append(out, &canonical.LeasingFunnel{
			ID:           s.genID.Generate(),
			PropertyID:   propertyID,
			Source:       source,
			WindowStart:  windowStart,
			WindowEnd:    windowEnd,
			Leads:        leads,
			Tours:        tours,
			Applications: applications,
			Leases:       leases,
			LeadToTour:   ratio(float64(tours), float64(leads)),
			TourToApply:  ratio(float64(applications), float64(tours)),
			ApplyToLease: ratio(float64(leases), float64(applications)),
			LeadToLease:  ratio(float64(leases), float64(leads)),
		})
	}

	if err := repository.ProvideStore[canonical.LeasingFunnel](tx).BatchCreate(ctx, out); err != nil {
		return 0, err
	}
	return len(out), nil
}

// ratio guards every derived percentage: a zero denominator yields 0.
func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
