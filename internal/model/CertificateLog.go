package model

import "time"

// CertificateLog is the append-only audit trail written by the event consumer.
type CertificateLog struct {
	BaseModel

	EventID     string    `gorm:"type:text;not null;uniqueIndex" json:"eventId"`
	Action      string    `gorm:"type:text;not null;" json:"action"`
	Description string    `gorm:"type:text;not null;" json:"description"`
	ActorID     string    `gorm:"type:text;not null;" json:"actorId"`
	Timestamp   time.Time `gorm:"type:timestamptz;not null;" json:"timestamp"`

	CertID string `gorm:"type:varchar(66);not null;index" json:"certId"`
}

func (cl CertificateLog) TableName() string {
	return "certificate_logs"
}
