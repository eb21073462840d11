// Package canonical contains the vendor-independent persistence models the
// reconciliation pipeline produces. Rows are owned exclusively by the pipeline:
// every sync fully replaces one vendor's rows, and downstream consumers read
// these tables but never write them.
package canonical

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Property is one managed community.
type Property struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	PropertyID       string       `gorm:"type:text;not null;index"` // canonical code
	Source           Source       `gorm:"type:text;not null;index"`
	VendorPropertyID string       `gorm:"type:text;not null"`
	Name             string       `gorm:"type:text"`
	OwnerGroup       string       `gorm:"type:text"`
	SnapshotDate     time.Time    `gorm:"not null"`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Property) TableName() string { return "properties" }

// Unit is one rentable unit. Enrichment passes backfill the nullable fields
// after normalization; a populated field is never overwritten.
type Unit struct {
	ID                 snowflake.ID    `gorm:"primaryKey"`
	PropertyID         string          `gorm:"type:text;not null;index:idx_units_property_unit"`
	Source             Source          `gorm:"type:text;not null;index"`
	VendorUnitID       string          `gorm:"type:text"`
	UnitNumber         string          `gorm:"type:text;not null;index:idx_units_property_unit"`
	Floorplan          string          `gorm:"type:text"`
	Bedrooms           int             `gorm:"not null;default:0"`
	Bathrooms          float64         `gorm:"not null;default:0"`
	SquareFeet         int             `gorm:"not null;default:0"`
	MarketRent         float64         `gorm:"not null;default:0"`
	InPlaceRent        float64         `gorm:"not null;default:0"`
	OccupancyStatus    OccupancyStatus `gorm:"type:text;not null"`
	Preleased          bool            `gorm:"not null;default:false"`
	ReadyDate          *time.Time
	AvailableDate      *time.Time
	NoticeDate         *time.Time
	DaysVacant         *int
	IncomingLeaseStart *time.Time
	SnapshotDate       time.Time `gorm:"not null"`
	CreatedAt          time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Unit) TableName() string { return "units" }

// Resident is one person (or household record) attached to a unit.
type Resident struct {
	ID               snowflake.ID   `gorm:"primaryKey"`
	PropertyID       string         `gorm:"type:text;not null;index"`
	Source           Source         `gorm:"type:text;not null;index"`
	VendorResidentID string         `gorm:"type:text;not null"`
	UnitNumber       string         `gorm:"type:text;index"`
	Status           ResidentStatus `gorm:"type:text;not null"`
	LeaseStart       *time.Time
	LeaseEnd         *time.Time
	MoveIn           *time.Time
	MoveOut          *time.Time
	CurrentRent      float64   `gorm:"not null;default:0"`
	Balance          float64   `gorm:"not null;default:0"`
	SnapshotDate     time.Time `gorm:"not null"`
	CreatedAt        time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Resident) TableName() string { return "residents" }

// Lease is one lease agreement. Renewals link back to the prior lease on the
// same unit through PriorLeaseID.
type Lease struct {
	ID            snowflake.ID `gorm:"primaryKey"`
	PropertyID    string       `gorm:"type:text;not null;index:idx_leases_property_unit"`
	Source        Source       `gorm:"type:text;not null;index"`
	VendorLeaseID string       `gorm:"type:text"`
	UnitNumber    string       `gorm:"type:text;not null;index:idx_leases_property_unit"`
	Floorplan     string       `gorm:"type:text"`
	Status        LeaseStatus  `gorm:"type:text;not null"`
	Rent          float64      `gorm:"not null;default:0"`
	TermMonths    int          `gorm:"not null;default:0"`
	LeaseStart    *time.Time
	LeaseEnd      *time.Time
	MoveOut       *time.Time
	IsRenewal     bool          `gorm:"not null;default:false"`
	PriorLeaseID  *snowflake.ID `gorm:"index"`
	ReportDate    time.Time     `gorm:"not null"`
	CreatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Lease) TableName() string { return "leases" }

// DelinquencyRecord is one resident's aged receivable balance.
type DelinquencyRecord struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	PropertyID       string       `gorm:"type:text;not null;index"`
	Source           Source       `gorm:"type:text;not null;index"`
	VendorResidentID string       `gorm:"type:text;not null"`
	UnitNumber       string       `gorm:"type:text"`
	Bucket0to30      float64      `gorm:"not null;default:0"`
	Bucket31to60     float64      `gorm:"not null;default:0"`
	Bucket61to90     float64      `gorm:"not null;default:0"`
	Bucket90Plus     float64      `gorm:"not null;default:0"`
	NetBalance       float64      `gorm:"not null;default:0"`
	Eviction         bool         `gorm:"not null;default:false"`
	ReportDate       time.Time    `gorm:"not null"`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (DelinquencyRecord) TableName() string { return "delinquency_records" }

// Amenity is one rentable or assigned amenity (garage, storage, pet, ...).
type Amenity struct {
	ID            snowflake.ID `gorm:"primaryKey"`
	PropertyID    string       `gorm:"type:text;not null;index"`
	Source        Source       `gorm:"type:text;not null;index"`
	VendorID      string       `gorm:"type:text"`
	UnitNumber    string       `gorm:"type:text"`
	Type          string       `gorm:"type:text;not null"`
	MonthlyCharge float64      `gorm:"not null;default:0"`
	Status        string       `gorm:"type:text"`
	ReportDate    time.Time    `gorm:"not null"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Amenity) TableName() string { return "amenities" }

// FinancialTransaction is one ledger line from a vendor financial export.
type FinancialTransaction struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	PropertyID       string       `gorm:"type:text;not null;index"`
	Source           Source       `gorm:"type:text;not null;index"`
	VendorResidentID string       `gorm:"type:text"`
	Code             string       `gorm:"type:text"`
	Description      string       `gorm:"type:text"`
	Amount           float64      `gorm:"not null;default:0"`
	TransactionDate  *time.Time
	ReportDate       time.Time `gorm:"not null"`
	CreatedAt        time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (FinancialTransaction) TableName() string { return "financial_transactions" }

// ActivityEvent is one leasing-funnel touch for a prospect.
type ActivityEvent struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	PropertyID string       `gorm:"type:text;not null;index"`
	Source     Source       `gorm:"type:text;not null;index"`
	ProspectID string       `gorm:"type:text;not null"`
	Type       ActivityType `gorm:"type:text;not null"`
	EventDate  time.Time    `gorm:"not null"`
	Agent      string       `gorm:"type:text"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (ActivityEvent) TableName() string { return "activity_events" }

// PropertyMetrics is the per-property per-snapshot rollup.
type PropertyMetrics struct {
	ID                snowflake.ID `gorm:"primaryKey"`
	PropertyID        string       `gorm:"type:text;not null;index:idx_property_metrics_snapshot"`
	Source            Source       `gorm:"type:text;not null;index"`
	SnapshotDate      time.Time    `gorm:"not null;index:idx_property_metrics_snapshot"`
	TotalUnits        int          `gorm:"not null;default:0"`
	Occupied          int          `gorm:"not null;default:0"`
	VacantReady       int          `gorm:"not null;default:0"`
	VacantNotReady    int          `gorm:"not null;default:0"`
	Notice            int          `gorm:"not null;default:0"`
	Model             int          `gorm:"not null;default:0"`
	Down              int          `gorm:"not null;default:0"`
	Preleased         int          `gorm:"not null;default:0"`
	PhysicalOccupancy float64      `gorm:"not null;default:0"`
	LeasedPercent     float64      `gorm:"not null;default:0"`
	Exposure30        int          `gorm:"not null;default:0"`
	Exposure60        int          `gorm:"not null;default:0"`
	CreatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (PropertyMetrics) TableName() string { return "property_metrics" }

// FloorplanPricing is the per-floorplan rent rollup.
type FloorplanPricing struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	PropertyID     string       `gorm:"type:text;not null;index"`
	Source         Source       `gorm:"type:text;not null;index"`
	Floorplan      string       `gorm:"type:text;not null"`
	SnapshotDate   time.Time    `gorm:"not null"`
	Units          int          `gorm:"not null;default:0"`
	AvgInPlaceRent float64      `gorm:"not null;default:0"`
	AvgMarketRent  float64      `gorm:"not null;default:0"`
	RentGrowth     float64      `gorm:"not null;default:0"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (FloorplanPricing) TableName() string { return "floorplan_pricing" }

// LeasingFunnel is the distinct-prospect conversion rollup for a date window.
type LeasingFunnel struct {
	ID              snowflake.ID `gorm:"primaryKey"`
	PropertyID      string       `gorm:"type:text;not null;index"`
	Source          Source       `gorm:"type:text;not null;index"`
	WindowStart     time.Time    `gorm:"not null"`
	WindowEnd       time.Time    `gorm:"not null"`
	Leads           int          `gorm:"not null;default:0"`
	Tours           int          `gorm:"not null;default:0"`
	Applications    int          `gorm:"not null;default:0"`
	Leases          int          `gorm:"not null;default:0"`
	LeadToTour      float64      `gorm:"not null;default:0"`
	TourToApply     float64      `gorm:"not null;default:0"`
	ApplyToLease    float64      `gorm:"not null;default:0"`
	LeadToLease     float64      `gorm:"not null;default:0"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (LeasingFunnel) TableName() string { return "leasing_funnel" }

// SyncLog records one pipeline run.
type SyncLog struct {
	ID            snowflake.ID `gorm:"primaryKey"`
	RunID         string       `gorm:"type:text;not null;uniqueIndex"`
	Source        Source       `gorm:"type:text;not null;index"`
	SyncType      string       `gorm:"type:text;not null"`
	TablesSynced  string       `gorm:"type:text"`
	RecordsSynced int          `gorm:"not null;default:0"`
	StartedAt     time.Time    `gorm:"not null"`
	CompletedAt   *time.Time
	Status        SyncStatus `gorm:"type:text;not null"`
	Error         string     `gorm:"type:text"`
}

func (SyncLog) TableName() string { return "sync_logs" }

// PropertyDirectory is the dynamic secondary identity lookup, keyed by the
// vendor-native property id.
type PropertyDirectory struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	Source           Source       `gorm:"type:text;not null;uniqueIndex:idx_directory_source_vendor"`
	VendorPropertyID string       `gorm:"type:text;not null;uniqueIndex:idx_directory_source_vendor"`
	PropertyID       string       `gorm:"type:text;not null"`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (PropertyDirectory) TableName() string { return "property_directory" }

// Tables lists every model the pipeline owns, in migration order.
func Tables() []any {
	return []any{
		&Property{},
		&Unit{},
		&Resident{},
		&Lease{},
		&DelinquencyRecord{},
		&Amenity{},
		&FinancialTransaction{},
		&ActivityEvent{},
		&PropertyMetrics{},
		&FloorplanPricing{},
		&LeasingFunnel{},
		&SyncLog{},
		&PropertyDirectory{},
	}
}
