package database

import (
	"fmt"
	"time"

	"github.com/SeakMengs/OceanSeal/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func GetDSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		cfg.DB_HOST, cfg.DB_USERNAME, cfg.DB_PASSWORD, cfg.DB_DATABASE, cfg.DB_PORT, cfg.DB_SSLMODE)
}

func ConnectReturnGormDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(GetDSN(cfg)), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDb, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDb.SetMaxIdleConns(cfg.MaxIdleConns)

	idleTime, err := time.ParseDuration(cfg.MaxIdleTime)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_IDLE_TIME %q: %w", cfg.MaxIdleTime, err)
	}
	sqlDb.SetConnMaxIdleTime(idleTime)

	return db, nil
}
