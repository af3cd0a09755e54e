package main

import (
	"github.com/SeakMengs/OceanSeal/internal/config"
	"github.com/SeakMengs/OceanSeal/internal/database"
	"github.com/SeakMengs/OceanSeal/internal/env"
	"github.com/SeakMengs/OceanSeal/internal/model"
	"github.com/SeakMengs/OceanSeal/internal/util"
)

func init() {
	env.LoadEnv(".env")
}

func main() {
	cfg := config.GetConfig()
	logger := util.NewLogger(cfg.ENV)
	defer logger.Sync()

	logger.Infof("Migrating database %s on %s:%s", cfg.DB.DB_DATABASE, cfg.DB.DB_HOST, cfg.DB.DB_PORT)

	db, err := database.ConnectReturnGormDB(cfg.DB)
	if err != nil {
		logger.Panic(err)
	}

	if err := db.AutoMigrate(&model.Certificate{}, &model.CertificateLog{}); err != nil {
		logger.Panic(err)
	}

	logger.Info("Migration completed")
}
