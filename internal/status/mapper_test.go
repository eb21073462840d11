package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/leaseline/leaseline/internal/canonical"
)

func newTestMapper() *Mapper {
	return NewMapper(Params{
		Log:    zap.NewNop(),
		Config: DefaultConfig(),
	})
}

func TestUnitStatus(t *testing.T) {
	mapper := newTestMapper()

	tests := []struct {
		name     string
		source   canonical.Source
		raw      string
		flags    UnitFlags
		expected canonical.OccupancyStatus
	}{
		{
			name:     "vocabulary match wins",
			source:   canonical.SourceResman,
			raw:      "Vacant-Ready",
			expected: canonical.UnitVacantReady,
		},
		{
			name:     "vacant and ready flags",
			source:   canonical.SourceEntrata,
			raw:      "",
			flags:    UnitFlags{Vacant: true, Ready: true},
			expected: canonical.UnitVacantReady,
		},
		{
			name:     "vacant without ready flag",
			source:   canonical.SourceEntrata,
			raw:      "",
			flags:    UnitFlags{Vacant: true},
			expected: canonical.UnitVacantNotReady,
		},
		{
			name:     "notice flag beats vacant",
			source:   canonical.SourceEntrata,
			raw:      "",
			flags:    UnitFlags{Vacant: true, OnNotice: true},
			expected: canonical.UnitNotice,
		},
		{
			name:     "occupied on notice",
			source:   canonical.SourceResman,
			raw:      "Occupied-NTV",
			expected: canonical.UnitNotice,
		},
		{
			name:     "model",
			source:   canonical.SourceEntrata,
			raw:      "Model",
			expected: canonical.UnitModel,
		},
		{
			name:     "unknown status defaults to occupied",
			source:   canonical.SourceResman,
			raw:      "Krakatoa",
			expected: canonical.UnitOccupied,
		},
		{
			name:     "empty signal defaults to occupied",
			source:   canonical.SourceEntrata,
			raw:      "",
			expected: canonical.UnitOccupied,
		},
		{
			name:     "unknown source falls through to flags",
			source:   canonical.Source("other"),
			raw:      "whatever",
			flags:    UnitFlags{Vacant: true, Ready: true},
			expected: canonical.UnitVacantReady,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, mapper.UnitStatus(tt.source, tt.raw, tt.flags))
		})
	}
}

func TestResidentStatus(t *testing.T) {
	mapper := newTestMapper()

	tests := []struct {
		raw      string
		expected canonical.ResidentStatus
	}{
		{"Current", canonical.ResidentCurrent},
		{"Current Resident", canonical.ResidentCurrent},
		{"Past", canonical.ResidentPast},
		{"Former Resident", canonical.ResidentPast},
		{"Notice to Vacate", canonical.ResidentNotice},
		{"NTV", canonical.ResidentNotice},
		{"Applicant", canonical.ResidentFuture},
		{"Future Resident", canonical.ResidentFuture},
		{"Pending Approval", canonical.ResidentFuture},
		// first matching rule wins
		{"Current - Notice", canonical.ResidentCurrent},
		// default on unknown
		{"???", canonical.ResidentCurrent},
		{"", canonical.ResidentCurrent},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.expected, mapper.ResidentStatus(tt.raw))
		})
	}
}

func TestLeaseStatus(t *testing.T) {
	mapper := newTestMapper()

	assert.Equal(t, canonical.LeaseRenewal, mapper.LeaseStatus("Renewal"))
	assert.Equal(t, canonical.LeaseApplicant, mapper.LeaseStatus("Applicant"))
	assert.Equal(t, canonical.LeaseFuture, mapper.LeaseStatus("Future"))
	assert.Equal(t, canonical.LeasePast, mapper.LeaseStatus("Expired"))
	assert.Equal(t, canonical.LeaseCurrent, mapper.LeaseStatus("Active"))
}
