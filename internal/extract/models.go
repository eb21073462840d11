// Package extract reads the raw per-vendor tabular extracts the external
// producers land in the raw store. Field names and status vocabularies inside
// a payload are still vendor-specific at this layer.
package extract

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"

	"github.com/leaseline/leaseline/internal/canonical"
)

// Kind names one raw table/report type.
type Kind string

const (
	KindProperties   Kind = "properties"
	KindUnits        Kind = "units"
	KindResidents    Kind = "residents"
	KindLeases       Kind = "leases"
	KindLeaseDetails Kind = "lease_details"
	KindDelinquency  Kind = "delinquency"
	KindAmenities    Kind = "amenities"
	KindFinancial    Kind = "financial"
	KindActivity     Kind = "activity"
	KindAvailability Kind = "availability"
)

// RawRecord is one vendor row as delivered, payload untouched.
type RawRecord struct {
	ID               snowflake.ID      `gorm:"primaryKey"`
	Source           canonical.Source  `gorm:"type:text;not null;index:idx_raw_source_kind"`
	Kind             Kind              `gorm:"type:text;not null;index:idx_raw_source_kind"`
	VendorPropertyID string            `gorm:"type:text;not null"`
	ReportDate       time.Time         `gorm:"not null"`
	Payload          datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt        time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (RawRecord) TableName() string { return "raw_records" }

// Row is the in-memory view handed to the normalizers.
type Row struct {
	Source           canonical.Source
	Kind             Kind
	VendorPropertyID string
	ReportDate       time.Time
	Payload          map[string]any
}
