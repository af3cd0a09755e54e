package repository

import (
	"context"

	"github.com/SeakMengs/OceanSeal/internal/constant"
	"github.com/SeakMengs/OceanSeal/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CertificateLogRepository struct {
	*baseRepository
}

// Create is idempotent on EventID so a redelivered event does not duplicate the trail.
func (clr CertificateLogRepository) Create(ctx context.Context, tx *gorm.DB, log *model.CertificateLog) error {
	clr.logger.Debugf("Create certificate log: %s %s", log.Action, log.CertID)

	db := clr.getDB(tx)
	ctx, cancel := context.WithTimeout(ctx, constant.QUERY_TIMEOUT_DURATION)
	defer cancel()

	return db.WithContext(ctx).Model(&model.CertificateLog{}).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(log).Error
}
