package repository

import (
	"context"

	"github.com/SeakMengs/OceanSeal/internal/constant"
	"github.com/SeakMengs/OceanSeal/internal/model"
	"github.com/SeakMengs/OceanSeal/pkg/oceanseal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CertificateRepository struct {
	*baseRepository
}

// InsertIfAbsent creates the certificate unless one with the same image hash exists.
// It returns the stored row and whether this call created it. The unique index on
// image_hash decides concurrent inserts, the first writer wins.
func (cr CertificateRepository) InsertIfAbsent(ctx context.Context, tx *gorm.DB, c *model.Certificate) (*model.Certificate, bool, error) {
	cr.logger.Debugf("Insert certificate if absent, image hash: %s", c.ImageHash)

	db := cr.getDB(tx)
	queryCtx, cancel := context.WithTimeout(ctx, constant.QUERY_TIMEOUT_DURATION)
	defer cancel()

	result := db.WithContext(queryCtx).Model(&model.Certificate{}).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "image_hash"}},
		DoNothing: true,
	}).Create(c)
	if result.Error != nil {
		return c, false, result.Error
	}

	if result.RowsAffected == 0 {
		existing, err := cr.GetByImageHash(ctx, tx, c.ImageHash)
		return existing, false, err
	}

	return c, true, nil
}

func (cr CertificateRepository) GetByImageHash(ctx context.Context, tx *gorm.DB, imageHash string) (*model.Certificate, error) {
	cr.logger.Debugf("Get certificate by image hash: %s", imageHash)

	hash, kind := oceanseal.NormalizeCertID(imageHash)
	if kind != oceanseal.LookupExact {
		return nil, gorm.ErrRecordNotFound
	}

	db := cr.getDB(tx)
	ctx, cancel := context.WithTimeout(ctx, constant.QUERY_TIMEOUT_DURATION)
	defer cancel()

	var certificate model.Certificate
	if err := db.WithContext(ctx).Model(&model.Certificate{}).Where("image_hash = ?", hash).First(&certificate).Error; err != nil {
		return nil, err
	}

	return &certificate, nil
}

// GetByCertId accepts a full id or a short prefix of at least eight hex digits.
// Ids that fail validation are reported as not found and never reach the query.
func (cr CertificateRepository) GetByCertId(ctx context.Context, tx *gorm.DB, certId string) (*model.Certificate, error) {
	cr.logger.Debugf("Get certificate by cert id: %s", certId)

	id, kind := oceanseal.NormalizeCertID(certId)
	if kind == oceanseal.LookupInvalid {
		return nil, gorm.ErrRecordNotFound
	}

	db := cr.getDB(tx)
	ctx, cancel := context.WithTimeout(ctx, constant.QUERY_TIMEOUT_DURATION)
	defer cancel()

	query := db.WithContext(ctx).Model(&model.Certificate{})
	if kind == oceanseal.LookupExact {
		query = query.Where("cert_id = ?", id)
	} else {
		// id only holds 0x and hex digits, so it carries no LIKE wildcards
		query = query.Where("cert_id LIKE ?", id+"%").Order("created_at asc")
	}

	var certificate model.Certificate
	if err := query.First(&certificate).Error; err != nil {
		return nil, err
	}

	return &certificate, nil
}

func (cr CertificateRepository) ListByUserId(ctx context.Context, tx *gorm.DB, userId string) ([]model.Certificate, error) {
	cr.logger.Debugf("List certificates by user id: %s", userId)

	db := cr.getDB(tx)
	ctx, cancel := context.WithTimeout(ctx, constant.QUERY_TIMEOUT_DURATION)
	defer cancel()

	certificates := []model.Certificate{}
	if err := db.WithContext(ctx).Model(&model.Certificate{}).Where("user_id = ?", userId).Order("created_at desc").Find(&certificates).Error; err != nil {
		return certificates, err
	}

	return certificates, nil
}

// UpdateStatus changes the status of a certificate that is not revoked yet and returns the
// number of rows changed. Revoked rows are never touched, so revocation cannot be undone here.
func (cr CertificateRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, certId string, status oceanseal.CertStatus) (int64, error) {
	cr.logger.Debugf("Update certificate status: %s -> %s", certId, status)

	id, kind := oceanseal.NormalizeCertID(certId)
	if kind != oceanseal.LookupExact {
		return 0, gorm.ErrRecordNotFound
	}

	db := cr.getDB(tx)
	ctx, cancel := context.WithTimeout(ctx, constant.QUERY_TIMEOUT_DURATION)
	defer cancel()

	result := db.WithContext(ctx).Model(&model.Certificate{}).
		Where("cert_id = ? AND status <> ?", id, oceanseal.CertStatusRevoked).
		Update("status", status)

	return result.RowsAffected, result.Error
}
