package model

import (
	"time"

	"github.com/SeakMengs/OceanSeal/pkg/oceanseal"
)

// Certificate binds an image hash to its issuer, type and ledger reference.
// Status is the only column that changes after creation.
type Certificate struct {
	BaseModel
	CertID       string               `gorm:"type:varchar(66);not null;uniqueIndex" json:"certId"`
	ImageHash    string               `gorm:"type:varchar(66);not null;uniqueIndex" json:"imageHash"`
	ImageURL     string               `gorm:"type:text;default:null" json:"imageUrl"`
	ThumbnailURL string               `gorm:"type:text;default:null" json:"thumbnailUrl"`
	UserID       string               `gorm:"type:text;not null;index" json:"userId"`
	CertType     oceanseal.CertType   `gorm:"type:varchar(16);not null" json:"certType"`
	TxHash       string               `gorm:"type:varchar(66);not null" json:"txHash"`
	BlockNumber  uint64               `gorm:"type:bigint;not null;default:0" json:"blockNumber"`
	Status       oceanseal.CertStatus `gorm:"type:varchar(16);not null;default:active" json:"status"`
}

func (c Certificate) TableName() string {
	return "certificates"
}

func (c Certificate) Anchor() oceanseal.Anchor {
	return oceanseal.NewAnchor(c.TxHash, c.BlockNumber)
}

func (c Certificate) IsRevoked() bool {
	return c.Status == oceanseal.CertStatusRevoked
}

// CreatedTime returns the creation time, or the zero time for records that were never persisted.
func (c Certificate) CreatedTime() time.Time {
	if c.CreatedAt == nil {
		return time.Time{}
	}
	return *c.CreatedAt
}
