package canonical

// Source identifies the vendor system a row was reconciled from.
type Source string

const (
	// SourceEntrata is the live-API vendor feed.
	SourceEntrata Source = "entrata"
	// SourceResman is the scheduled-report vendor feed.
	SourceResman Source = "resman"
)

// Sources lists every ingested vendor in sync order.
func Sources() []Source {
	return []Source{SourceEntrata, SourceResman}
}

// OccupancyStatus is the canonical unit occupancy state.
type OccupancyStatus string

const (
	UnitOccupied       OccupancyStatus = "occupied"
	UnitVacantReady    OccupancyStatus = "vacant_ready"
	UnitVacantNotReady OccupancyStatus = "vacant_not_ready"
	UnitNotice         OccupancyStatus = "notice"
	UnitModel          OccupancyStatus = "model"
	UnitDown           OccupancyStatus = "down"
)

// ResidentStatus is the canonical resident lifecycle state.
type ResidentStatus string

const (
	ResidentCurrent ResidentStatus = "current"
	ResidentNotice  ResidentStatus = "notice"
	ResidentFuture  ResidentStatus = "future"
	ResidentPast    ResidentStatus = "past"
)

// Lease statuses kept verbatim enough for the renewal chain and the
// applicant-lease enrichment source to reason about them.
type LeaseStatus string

const (
	LeaseCurrent   LeaseStatus = "current"
	LeaseApplicant LeaseStatus = "applicant"
	LeaseFuture    LeaseStatus = "future"
	LeaseRenewal   LeaseStatus = "renewal"
	LeasePast      LeaseStatus = "past"
)

// ActivityType is a leasing-funnel stage.
type ActivityType string

const (
	ActivityLead        ActivityType = "lead"
	ActivityTour        ActivityType = "tour"
	ActivityApplication ActivityType = "application"
	ActivityLease       ActivityType = "lease"
)

// SyncStatus is the terminal state of one sync run.
type SyncStatus string

const (
	SyncRunning   SyncStatus = "running"
	SyncCompleted SyncStatus = "completed"
	SyncFailed    SyncStatus = "failed"
)
