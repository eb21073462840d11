package normalize

import (
	"strings"
	"time"

	"github.com/leaseline/leaseline/internal/canonical"
	"github.com/leaseline/leaseline/internal/extract"
	"github.com/leaseline/leaseline/internal/status"
)

// Typed intermediate rows, one per entity. The constructors centralize field
// renaming and malformed-value handling: both vendors' key spellings are
// listed in precedence order and a bad value casts to zero, so nothing past
// this point deals with vendor shape.

type propertyRow struct {
	vendorPropertyID string
	name             string
	ownerGroup       string
	reportDate       time.Time
}

func newPropertyRow(r extract.Row) propertyRow {
	p := r.Payload
	return propertyRow{
		vendorPropertyID: r.VendorPropertyID,
		name:             extract.Str(p, "propertyName", "PropertyName", "name", "Property"),
		ownerGroup:       extract.Str(p, "ownerName", "Owner", "OwnerGroup"),
		reportDate:       r.ReportDate,
	}
}

type unitRow struct {
	vendorPropertyID string
	vendorUnitID     string
	unitNumber       string
	floorplan        string
	bedrooms         int
	bathrooms        float64
	squareFeet       int
	marketRent       float64
	inPlaceRent      float64
	rawStatus        string
	flags            status.UnitFlags
	preleased        bool
	readyDate        *time.Time
	availableDate    *time.Time
	noticeDate       *time.Time
	reportDate       time.Time
}

func newUnitRow(r extract.Row) unitRow {
	p := r.Payload
	row := unitRow{
		vendorPropertyID: r.VendorPropertyID,
		vendorUnitID:     extract.Str(p, "unitId", "UnitID"),
		unitNumber:       extract.Str(p, "unitNumber", "Unit", "UnitNumber"),
		floorplan:        extract.Str(p, "floorPlanName", "UnitType", "Floorplan"),
		bedrooms:         extract.Whole(p, "bedrooms", "Beds"),
		bathrooms:        extract.F64(p, "bathrooms", "Baths"),
		squareFeet:       extract.Whole(p, "squareFeet", "SqFt"),
		marketRent:       extract.F64(p, "marketRent", "MarketRent"),
		inPlaceRent:      extract.F64(p, "rent", "ActualRent", "CurrentRent"),
		rawStatus:        extract.Str(p, "unitStatus", "Status"),
		flags: status.UnitFlags{
			Vacant:   extract.Flag(p, "isVacant", "Vacant"),
			Ready:    extract.Flag(p, "isReady", "Ready", "MadeReady", "isAvailable", "Available"),
			OnNotice: extract.Flag(p, "onNotice", "Notice"),
		},
		preleased:     extract.Flag(p, "isPreleased", "Preleased", "PreLeased"),
		readyDate:     extract.Date(p, "readyDate", "ReadyDate", "MadeReadyDate"),
		availableDate: extract.Date(p, "availableDate", "AvailableDate", "DateAvailable"),
		noticeDate:    extract.Date(p, "noticeDate", "NoticeDate"),
		reportDate:    r.ReportDate,
	}
	if !row.preleased {
		s := strings.ToLower(row.rawStatus)
		row.preleased = strings.Contains(s, "leased") ||
			(strings.Contains(s, "rented") && !strings.Contains(s, "unrented"))
	}
	return row
}

type residentRow struct {
	vendorPropertyID string
	vendorResidentID string
	unitNumber       string
	rawStatus        string
	leaseStart       *time.Time
	leaseEnd         *time.Time
	moveIn           *time.Time
	moveOut          *time.Time
	currentRent      float64
	balance          float64
	reportDate       time.Time
}

func newResidentRow(r extract.Row) residentRow {
	p := r.Payload
	return residentRow{
		vendorPropertyID: r.VendorPropertyID,
		vendorResidentID: extract.Str(p, "residentId", "ResidentID", "Resident"),
		unitNumber:       extract.Str(p, "unitNumber", "Unit", "UnitNumber"),
		rawStatus:        extract.Str(p, "status", "residentStatus", "Status"),
		leaseStart:       extract.Date(p, "leaseStartDate", "LeaseStart"),
		leaseEnd:         extract.Date(p, "leaseEndDate", "LeaseEnd"),
		moveIn:           extract.Date(p, "moveInDate", "MoveIn", "MoveInDate"),
		moveOut:          extract.Date(p, "moveOutDate", "MoveOut", "MoveOutDate"),
		currentRent:      extract.F64(p, "rent", "Rent", "CurrentRent"),
		balance:          extract.F64(p, "balance", "Balance"),
		reportDate:       r.ReportDate,
	}
}

type leaseRow struct {
	vendorPropertyID string
	vendorLeaseID    string
	unitNumber       string
	floorplan        string
	rawStatus        string
	rent             float64
	termMonths       int
	leaseStart       *time.Time
	leaseEnd         *time.Time
	moveOut          *time.Time
	renewal          bool
	reportDate       time.Time
}

func newLeaseRow(r extract.Row) leaseRow {
	p := r.Payload
	row := leaseRow{
		vendorPropertyID: r.VendorPropertyID,
		vendorLeaseID:    extract.Str(p, "leaseId", "LeaseID"),
		unitNumber:       extract.Str(p, "unitNumber", "Unit", "UnitNumber"),
		floorplan:        extract.Str(p, "floorPlanName", "UnitType", "Floorplan"),
		rawStatus:        extract.Str(p, "leaseStatus", "status", "Status"),
		rent:             extract.F64(p, "rent", "Rent", "LeaseRent"),
		termMonths:       extract.Whole(p, "termMonths", "Term", "LeaseTerm"),
		leaseStart:       extract.Date(p, "leaseStartDate", "LeaseStart"),
		leaseEnd:         extract.Date(p, "leaseEndDate", "LeaseEnd"),
		moveOut:          extract.Date(p, "moveOutDate", "MoveOut", "MoveOutDate"),
		renewal:          extract.Flag(p, "isRenewal", "Renewal"),
		reportDate:       r.ReportDate,
	}
	if !row.renewal {
		row.renewal = strings.Contains(strings.ToLower(row.rawStatus), "renew")
	}
	return row
}

type delinquencyRow struct {
	vendorPropertyID string
	vendorResidentID string
	unitNumber       string
	bucket0to30      float64
	bucket31to60     float64
	bucket61to90     float64
	bucket90Plus     float64
	netBalance       float64
	eviction         bool
	reportDate       time.Time
}

func newDelinquencyRow(r extract.Row) delinquencyRow {
	p := r.Payload
	row := delinquencyRow{
		vendorPropertyID: r.VendorPropertyID,
		vendorResidentID: extract.Str(p, "residentId", "ResidentID", "Resident"),
		unitNumber:       extract.Str(p, "unitNumber", "Unit", "UnitNumber"),
		bucket0to30:      extract.F64(p, "delinquent0to30", "0-30", "Days0to30"),
		bucket31to60:     extract.F64(p, "delinquent31to60", "31-60", "Days31to60"),
		bucket61to90:     extract.F64(p, "delinquent61to90", "61-90", "Days61to90"),
		bucket90Plus:     extract.F64(p, "delinquent90Plus", "90+", "Days90Plus"),
		netBalance:       extract.F64(p, "netBalance", "NetBalance", "Total"),
		eviction:         extract.Flag(p, "eviction", "Eviction", "EvictionFiled"),
		reportDate:       r.ReportDate,
	}
	if row.netBalance == 0 {
		row.netBalance = row.bucket0to30 + row.bucket31to60 + row.bucket61to90 + row.bucket90Plus
	}
	return row
}

type amenityRow struct {
	vendorPropertyID string
	vendorID         string
	unitNumber       string
	amenityType      string
	monthlyCharge    float64
	assignStatus     string
	reportDate       time.Time
}

func newAmenityRow(r extract.Row) amenityRow {
	p := r.Payload
	return amenityRow{
		vendorPropertyID: r.VendorPropertyID,
		vendorID:         extract.Str(p, "amenityId", "AmenityID"),
		unitNumber:       extract.Str(p, "unitNumber", "Unit", "UnitNumber"),
		amenityType:      extract.Str(p, "amenityType", "Type", "AmenityType"),
		monthlyCharge:    extract.F64(p, "charge", "MonthlyCharge", "Rate"),
		assignStatus:     extract.Str(p, "status", "Status"),
		reportDate:       r.ReportDate,
	}
}

type financialRow struct {
	vendorPropertyID string
	vendorResidentID string
	code             string
	description      string
	amount           float64
	transactionDate  *time.Time
	reportDate       time.Time
}

func newFinancialRow(r extract.Row) financialRow {
	p := r.Payload
	return financialRow{
		vendorPropertyID: r.VendorPropertyID,
		vendorResidentID: extract.Str(p, "residentId", "ResidentID", "Resident"),
		code:             extract.Str(p, "code", "TransactionCode", "ChargeCode"),
		description:      extract.Str(p, "description", "Description"),
		amount:           extract.F64(p, "amount", "Amount"),
		transactionDate:  extract.Date(p, "transactionDate", "Date", "TransactionDate"),
		reportDate:       r.ReportDate,
	}
}

type activityRow struct {
	vendorPropertyID string
	prospectID       string
	eventType        canonical.ActivityType
	known            bool
	eventDate        *time.Time
	agent            string
	reportDate       time.Time
}

func newActivityRow(r extract.Row) activityRow {
	p := r.Payload
	eventType, known := activityType(extract.Str(p, "eventType", "Type", "ActivityType", "Event"))
	return activityRow{
		vendorPropertyID: r.VendorPropertyID,
		prospectID:       extract.Str(p, "prospectId", "ProspectID", "GuestCardID"),
		eventType:        eventType,
		known:            known,
		eventDate:        extract.Date(p, "eventDate", "Date", "ActivityDate"),
		agent:            extract.Str(p, "agent", "Agent", "LeasingAgent"),
		reportDate:       r.ReportDate,
	}
}

func activityType(raw string) (canonical.ActivityType, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(s, "lead"), strings.Contains(s, "inquiry"), strings.Contains(s, "guest card"):
		return canonical.ActivityLead, true
	case strings.Contains(s, "tour"), strings.Contains(s, "show"), strings.Contains(s, "visit"):
		return canonical.ActivityTour, true
	case strings.Contains(s, "appl"):
		return canonical.ActivityApplication, true
	case strings.Contains(s, "lease"), strings.Contains(s, "sign"):
		return canonical.ActivityLease, true
	default:
		return "", false
	}
}
