package database

import (
	"fmt"

	"telemetry-http-service/internal/domain/models"
	Logger "telemetry-http-service/pkg/logger"

	"gorm.io/gorm"
)

// Models lists every table the service owns.
func Models() []interface{} {
	return []interface{}{
		&models.Device{},
		&models.Reading{},
	}
}

// Migrate brings the schema up to date. Mode "drop" recreates both tables
// and loses their data; anything else only adds missing tables and columns.
func Migrate(db *gorm.DB, mode string) error {
	if mode == "drop" {
		Logger.Warning("警告: 在drop模式下运行，将删除并重建所有表")
		if err := db.Migrator().DropTable(Models()...); err != nil {
			return fmt.Errorf("drop tables: %w", err)
		}
	}

	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	Logger.Info("数据库迁移完成 (mode=%s)", mode)
	return nil
}
