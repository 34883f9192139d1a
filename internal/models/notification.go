package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Notification struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;index;not null" json:"user_id"`
	Type      string         `gorm:"type:varchar(40);not null" json:"type"`
	Title     string         `gorm:"not null" json:"title"`
	Body      string         `gorm:"type:text" json:"body"`
	Data      datatypes.JSON `json:"data,omitempty"`
	IsRead    bool           `gorm:"not null;default:false;index" json:"is_read"`
	CreatedAt time.Time      `json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return
}

type EmailLogStatus string

const (
	EmailLogSent    EmailLogStatus = "sent"
	EmailLogFailed  EmailLogStatus = "failed"
	EmailLogPartial EmailLogStatus = "partial"
)

// EmailLog records one bulk dispatch; RecipientCount feeds the daily quota.
type EmailLog struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SenderID       uuid.UUID      `gorm:"type:uuid;index" json:"sender_id"`
	Subject        string         `gorm:"not null" json:"subject"`
	Mode           string         `gorm:"type:varchar(20);not null" json:"mode"`
	RecipientCount int            `gorm:"not null" json:"recipient_count"`
	SuccessCount   int            `gorm:"not null" json:"success_count"`
	FailureCount   int            `gorm:"not null" json:"failure_count"`
	Status         EmailLogStatus `gorm:"type:varchar(20);not null" json:"status"`
	Failures       datatypes.JSON `json:"failures,omitempty"`
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`
}

func (e *EmailLog) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return
}
