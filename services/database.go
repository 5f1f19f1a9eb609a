package services

import (
	"fmt"

	"robotsim-backend/config"
	"robotsim-backend/logger"
	"robotsim-backend/models"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// OpenDatabase - MySQL 또는 SQLite 연결 후 마이그레이션
func OpenDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.Open(cfg.DSN())
	case "sqlite", "":
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("DB 연결 실패: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	if cfg.Driver == "mysql" {
		logger.Log.Infof("✅ MySQL 연결 및 마이그레이션 완료 (%s:%d/%s)", cfg.Host, cfg.Port, cfg.Name)
	} else {
		logger.Log.Infof("✅ SQLite 연결 및 마이그레이션 완료 (%s)", cfg.SQLitePath)
	}
	return db, nil
}

// Migrate - 테이블 자동 생성
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.FactoryRecord{}, &models.SimulationEvent{}); err != nil {
		return fmt.Errorf("마이그레이션 실패: %w", err)
	}
	return nil
}
