package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/leaseline/leaseline/internal/canonical"
	"github.com/leaseline/leaseline/internal/config"
	"github.com/leaseline/leaseline/internal/extract"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}
		// non-postgres targets are local/dev databases
		models := append(canonical.Tables(), &extract.RawRecord{})
		return conn.AutoMigrate(models...)
	}),
)
