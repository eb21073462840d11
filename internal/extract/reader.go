package extract

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/leaseline/leaseline/internal/canonical"
	"github.com/leaseline/leaseline/pkg/repository"
)

// Reader yields raw rows for one (source, kind). An empty result is how an
// optional report that was never produced shows up; callers skip, not fail.
type Reader interface {
	Read(ctx context.Context, source canonical.Source, kind Kind) ([]Row, error)
}

// Params collects reader dependencies.
type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type storeReader struct {
	log  *zap.Logger
	raws repository.Repository[RawRecord]
}

// NewReader returns a Reader over the raw_records table.
func NewReader(p Params) Reader {
	return &storeReader{
		log:  p.Log.Named("extract.reader"),
		raws: repository.ProvideStore[RawRecord](p.DB),
	}
}

func (r *storeReader) Read(ctx context.Context, source canonical.Source, kind Kind) ([]Row, error) {
	records, err := r.raws.Find(ctx, &RawRecord{Source: source, Kind: kind})
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, Row{
			Source:           rec.Source,
			Kind:             rec.Kind,
			VendorPropertyID: rec.VendorPropertyID,
			ReportDate:       rec.ReportDate,
			Payload:          rec.Payload,
		})
	}
	return rows, nil
}
