package seed

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/leaseline/leaseline/internal/config"
)

var Module = fx.Module("seed",
	fx.Invoke(Run),
)

// Run seeds the sample extracts in development when enabled.
func Run(cfg config.Config, db *gorm.DB, log *zap.Logger) error {
	if !cfg.SeedSampleData {
		return nil
	}
	if err := EnsureSampleExtracts(db); err != nil {
		return err
	}
	log.Info("sample extracts ensured")
	return nil
}
