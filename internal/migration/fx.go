package migration

import (
	"github.com/craftbom/quotora/internal/assembly/domain"
	componentdomain "github.com/craftbom/quotora/internal/component/domain"
	"github.com/craftbom/quotora/internal/config"
	quotationdomain "github.com/craftbom/quotora/internal/quotation/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// golang-migrate drives the postgres schema; other dialects
		// (sqlite in dev, mysql) derive it from the models.
		if cfg.DBType != "postgres" {
			return conn.AutoMigrate(
				&componentdomain.Component{},
				&componentdomain.PriceHistoryRecord{},
				&domain.Assembly{},
				&domain.AssemblyMember{},
				&quotationdomain.QuotationProject{},
				&quotationdomain.QuotationSystem{},
				&quotationdomain.QuotationItem{},
				&quotationdomain.QuotationParameters{},
				&quotationdomain.QuotationCalculations{},
				&quotationdomain.QuotationItemResult{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
