// Package status derives canonical occupancy and resident statuses from raw
// vendor signals. Statuses are recomputed from scratch on every sync; nothing
// here transitions state incrementally.
package status

import (
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/leaseline/leaseline/internal/canonical"
)

// Params collects mapper dependencies.
type Params struct {
	fx.In

	Log    *zap.Logger
	Config Config
}

// Mapper applies the configured vocabularies and defaults.
type Mapper struct {
	log *zap.Logger
	cfg Config
}

// NewMapper builds a Mapper from central configuration.
func NewMapper(p Params) *Mapper {
	return &Mapper{
		log: p.Log.Named("status.mapper"),
		cfg: p.Config,
	}
}

// UnitFlags are the raw boolean signals some vendors deliver alongside (or
// instead of) a status string.
type UnitFlags struct {
	Vacant   bool
	Ready    bool
	OnNotice bool
}

// UnitStatus derives the canonical occupancy status for one unit. The
// vendor's vocabulary table is consulted first; raw flags decide next; an
// unrecognized or ambiguous signal yields the configured default.
func (m *Mapper) UnitStatus(source canonical.Source, raw string, flags UnitFlags) canonical.OccupancyStatus {
	normalized := normalize(raw)
	if vocab, ok := m.cfg.UnitVocabulary[source]; ok {
		if status, ok := vocab[normalized]; ok {
			return status
		}
	}

	switch {
	case flags.OnNotice:
		return canonical.UnitNotice
	case flags.Vacant && flags.Ready:
		return canonical.UnitVacantReady
	case flags.Vacant:
		return canonical.UnitVacantNotReady
	}

	if normalized != "" {
		m.log.Debug("unknown unit status, applying default",
			zap.String("source", string(source)),
			zap.String("raw", raw),
		)
	}
	return m.cfg.DefaultUnitStatus
}

// ResidentStatus derives the canonical resident status via ordered substring
// match; the first matching rule wins and the default is applied otherwise.
func (m *Mapper) ResidentStatus(raw string) canonical.ResidentStatus {
	normalized := normalize(raw)
	for _, rule := range m.cfg.ResidentKeywords {
		for _, kw := range rule.Keywords {
			if strings.Contains(normalized, kw) {
				return rule.Status
			}
		}
	}
	return m.cfg.DefaultResidentStatus
}

// LeaseStatus maps a raw lease status string onto the canonical lease states
// relevant to the renewal chain and enrichment.
func (m *Mapper) LeaseStatus(raw string) canonical.LeaseStatus {
	normalized := normalize(raw)
	switch {
	case strings.Contains(normalized, "renew"):
		return canonical.LeaseRenewal
	case strings.Contains(normalized, "applic"), strings.Contains(normalized, "approved"):
		return canonical.LeaseApplicant
	case strings.Contains(normalized, "future"), strings.Contains(normalized, "pending"):
		return canonical.LeaseFuture
	case strings.Contains(normalized, "past"), strings.Contains(normalized, "expired"),
		strings.Contains(normalized, "former"), strings.Contains(normalized, "month-to-month expired"):
		return canonical.LeasePast
	default:
		return canonical.LeaseCurrent
	}
}

func normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "_", " ")
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "  ", " ")), " ")
}
