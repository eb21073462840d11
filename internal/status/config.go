package status

import "github.com/leaseline/leaseline/internal/canonical"

// Config centralizes every vocabulary table and default-on-unknown rule so no
// call site hardcodes its own fallback.
type Config struct {
	// DefaultUnitStatus is applied when neither the vocabulary nor the raw
	// flags decide. Defaulting to occupied undercounts vacancy instead of
	// breaking the unit-count sum.
	DefaultUnitStatus canonical.OccupancyStatus

	DefaultResidentStatus canonical.ResidentStatus

	// UnitVocabulary maps a vendor's raw status strings (lowercased, trimmed)
	// to canonical statuses.
	UnitVocabulary map[canonical.Source]map[string]canonical.OccupancyStatus

	// ResidentKeywords is evaluated in order; the first rule whose keyword is
	// a substring of the raw status wins.
	ResidentKeywords []KeywordRule
}

// KeywordRule maps raw-status substrings onto one resident status.
type KeywordRule struct {
	Keywords []string
	Status   canonical.ResidentStatus
}

// DefaultConfig carries the vocabulary observed in both vendor feeds.
func DefaultConfig() Config {
	return Config{
		DefaultUnitStatus:     canonical.UnitOccupied,
		DefaultResidentStatus: canonical.ResidentCurrent,
		UnitVocabulary: map[canonical.Source]map[string]canonical.OccupancyStatus{
			canonical.SourceEntrata: {
				"occupied":                 canonical.UnitOccupied,
				"occupied no notice":       canonical.UnitOccupied,
				"occupied on notice":       canonical.UnitNotice,
				"vacant ready":             canonical.UnitVacantReady,
				"vacant unrented ready":    canonical.UnitVacantReady,
				"vacant rented ready":      canonical.UnitVacantReady,
				"vacant not ready":         canonical.UnitVacantNotReady,
				"vacant unrented not ready": canonical.UnitVacantNotReady,
				"vacant rented not ready":  canonical.UnitVacantNotReady,
				"notice rented":            canonical.UnitNotice,
				"notice unrented":          canonical.UnitNotice,
				"model":                    canonical.UnitModel,
				"down":                     canonical.UnitDown,
				"admin":                    canonical.UnitDown,
			},
			canonical.SourceResman: {
				"occupied":         canonical.UnitOccupied,
				"occupied-ntv":     canonical.UnitNotice,
				"occupied-ntvl":    canonical.UnitNotice,
				"vacant-ready":     canonical.UnitVacantReady,
				"vacant-not ready": canonical.UnitVacantNotReady,
				"vacant-leased":    canonical.UnitVacantReady,
				"notice":           canonical.UnitNotice,
				"model":            canonical.UnitModel,
				"down":             canonical.UnitDown,
				"excluded":         canonical.UnitDown,
			},
		},
		ResidentKeywords: []KeywordRule{
			{Keywords: []string{"current"}, Status: canonical.ResidentCurrent},
			{Keywords: []string{"past", "former", "previous", "moved out", "evicted", "cancelled", "denied"}, Status: canonical.ResidentPast},
			{Keywords: []string{"notice", "ntv"}, Status: canonical.ResidentNotice},
			{Keywords: []string{"applicant", "future", "approved", "pending"}, Status: canonical.ResidentFuture},
		},
	}
}
