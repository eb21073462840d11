// Package seed loads a small two-vendor sample of raw extracts so a local
// first run produces a visible canonical dataset. Seeding is skipped whenever
// raw records already exist.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/leaseline/leaseline/internal/canonical"
	"github.com/leaseline/leaseline/internal/extract"
)

const sampleVendorProperty = "100"

// EnsureSampleExtracts inserts demo raw records for both vendor feeds.
func EnsureSampleExtracts(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&extract.RawRecord{}).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}

		reportDate := time.Now().UTC().Truncate(24 * time.Hour)
		records := append(
			entrataSample(node, reportDate),
			resmanSample(node, reportDate)...,
		)
		return tx.Create(records).Error
	})
}

type sampleRow struct {
	kind    extract.Kind
	payload map[string]any
}

func entrataSample(node *snowflake.Node, reportDate time.Time) []*extract.RawRecord {
	rows := []sampleRow{
		{extract.KindProperties, map[string]any{
			"propertyName": "Maple Court", "ownerName": "Northview Partners",
		}},
		{extract.KindUnits, map[string]any{
			"unitNumber": "101", "unitStatus": "Occupied",
			"floorPlanName": "A1", "bedrooms": 1, "bathrooms": 1,
			"marketRent": 1250, "rent": 1190,
		}},
		{extract.KindUnits, map[string]any{
			"unitNumber": "102", "unitStatus": "Vacant Unrented Ready",
			"floorPlanName": "A1", "bedrooms": 1, "bathrooms": 1,
			"marketRent": 1275, "availableDate": reportDate.AddDate(0, 0, -9).Format("2006-01-02"),
		}},
		{extract.KindResidents, map[string]any{
			"residentId": "e-9001", "unitNumber": "101", "status": "Current",
			"rent": 1190, "balance": 0,
		}},
		{extract.KindLeases, map[string]any{
			"unitNumber": "101", "leaseStatus": "Current", "rent": 1190,
			"leaseStartDate": reportDate.AddDate(-1, 0, 0).Format("2006-01-02"),
			"leaseEndDate":   reportDate.AddDate(0, 5, 0).Format("2006-01-02"),
		}},
		{extract.KindActivity, map[string]any{
			"prospectId": "e-p1", "eventType": "Lead",
			"eventDate": reportDate.AddDate(0, 0, -4).Format("2006-01-02"),
		}},
	}
	return buildRecords(node, canonical.SourceEntrata, reportDate, rows)
}

func resmanSample(node *snowflake.Node, reportDate time.Time) []*extract.RawRecord {
	rows := []sampleRow{
		{extract.KindProperties, map[string]any{
			"PropertyName": "Maple Court", "Owner": "Northview Partners",
		}},
		{extract.KindUnits, map[string]any{
			"Unit": "201", "Status": "Occupied-NTV", "UnitType": "B2",
			"Beds": 2, "Baths": 2, "MarketRent": "1,650.00",
		}},
		{extract.KindDelinquency, map[string]any{
			"Resident": "r-3001", "Unit": "201",
			"Balance": "425.50", "0-30": "425.50",
		}},
	}
	return buildRecords(node, canonical.SourceResman, reportDate, rows)
}

func buildRecords(node *snowflake.Node, source canonical.Source, reportDate time.Time, rows []sampleRow) []*extract.RawRecord {
	out := make([]*extract.RawRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, &extract.RawRecord{
			ID:               node.Generate(),
			Source:           source,
			Kind:             row.kind,
			VendorPropertyID: sampleVendorProperty,
			ReportDate:       reportDate,
			Payload:          row.payload,
		})
	}
	return out
}
