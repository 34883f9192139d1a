package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

type Payment struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	JobID        uuid.UUID  `gorm:"type:uuid;index;not null" json:"job_id"`
	ClientID     uuid.UUID  `gorm:"type:uuid;index;not null" json:"client_id"`
	FreelancerID *uuid.UUID `gorm:"type:uuid;index" json:"freelancer_id,omitempty"`
	Amount       float64    `gorm:"not null" json:"amount"`
	Phone        string     `gorm:"type:varchar(20)" json:"phone"`

	Status        PaymentStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	FailureReason string        `gorm:"type:text" json:"failure_reason,omitempty"`

	MpesaMerchantRequestID string `gorm:"type:varchar(80)" json:"mpesa_merchant_request_id,omitempty"`
	// nullable so several rows may sit without a checkout id before the STK push returns
	MpesaCheckoutRequestID *string        `gorm:"type:varchar(80);uniqueIndex" json:"mpesa_checkout_request_id,omitempty"`
	MpesaReceiptNumber     string         `gorm:"type:varchar(40);index" json:"mpesa_receipt_number,omitempty"`
	RawCallback            datatypes.JSON `json:"-"`

	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Job *Job `gorm:"foreignKey:JobID" json:"job,omitempty"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}

type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusConfirmed InvoiceStatus = "confirmed"
)

// Invoice is derived from a completed and paid job.
type Invoice struct {
	ID               uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	Number           string        `gorm:"type:varchar(30);uniqueIndex" json:"number"`
	JobID            uuid.UUID     `gorm:"type:uuid;uniqueIndex;not null" json:"job_id"`
	ClientID         uuid.UUID     `gorm:"type:uuid;index;not null" json:"client_id"`
	FreelancerID     uuid.UUID     `gorm:"type:uuid;index;not null" json:"freelancer_id"`
	Amount           float64       `gorm:"not null" json:"amount"`
	FreelancerAmount float64       `gorm:"not null" json:"freelancer_amount"`
	AdminCommission  float64       `gorm:"not null" json:"admin_commission"`
	Status           InvoiceStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	ConfirmedAt      *time.Time    `json:"confirmed_at,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`

	Job *Job `gorm:"foreignKey:JobID" json:"job,omitempty"`
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) (err error) {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return
}
