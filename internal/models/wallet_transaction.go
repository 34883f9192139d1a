package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WalletTrxType string

const (
	WalletTrxCredit     WalletTrxType = "credit"     // earnings released for a job
	WalletTrxAdjustment WalletTrxType = "adjustment" // balance corrected by recompute
)

type WalletTransaction struct {
	ID            uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID     `gorm:"type:uuid;index;not null" json:"user_id"`
	Amount        float64       `gorm:"not null" json:"amount"`
	Type          WalletTrxType `gorm:"type:varchar(20);not null" json:"type"`
	Description   string        `gorm:"type:text" json:"description"`
	ReferenceID   *uuid.UUID    `gorm:"type:uuid;index" json:"reference_id,omitempty"` // job id
	BalanceBefore float64       `json:"balance_before"`
	BalanceAfter  float64       `json:"balance_after"`
	CreatedAt     time.Time     `json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (w *WalletTransaction) BeforeCreate(tx *gorm.DB) (err error) {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return
}
