package models

import (
	"crypto/rand"
	"math/big"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusApproved   JobStatus = "approved"
	JobStatusAssigned   JobStatus = "assigned"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusEditing    JobStatus = "editing"
	JobStatusDelivered  JobStatus = "delivered"
	JobStatusRevision   JobStatus = "revision"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusPaid       JobStatus = "paid"
	JobStatusCancelled  JobStatus = "cancelled"
	JobStatusOnHold     JobStatus = "on_hold"
)

type Job struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	DisplayID            string     `gorm:"type:varchar(20);uniqueIndex" json:"display_id"` // ORD-XXXXXXXX
	ClientID             uuid.UUID  `gorm:"type:uuid;index;not null" json:"client_id"`
	AssignedFreelancerID *uuid.UUID `gorm:"type:uuid;index" json:"assigned_freelancer_id,omitempty"`

	Title        string `gorm:"not null" json:"title"`
	Instructions string `gorm:"type:text" json:"instructions"`
	WorkType     string `gorm:"type:varchar(60)" json:"work_type"`
	Pages        int    `gorm:"not null;default:0" json:"pages"`
	Slides       int    `gorm:"not null;default:0" json:"slides"`

	Amount             float64 `gorm:"not null" json:"amount"`
	FreelancerEarnings float64 `gorm:"not null;default:0" json:"freelancer_earnings"`

	Status             JobStatus  `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ActualDeadline     time.Time  `json:"actual_deadline"`
	FreelancerDeadline time.Time  `json:"freelancer_deadline"`
	DeliveredAt        *time.Time `json:"delivered_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	ArchivedAt         *time.Time `gorm:"index" json:"archived_at,omitempty"`

	PaymentConfirmed bool `gorm:"not null;default:false;index" json:"payment_confirmed"`
	AdminApproved    bool `gorm:"not null;default:false" json:"admin_approved"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Client     *User `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Freelancer *User `gorm:"foreignKey:AssignedFreelancerID" json:"freelancer,omitempty"`
}

func (j *Job) BeforeCreate(tx *gorm.DB) (err error) {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	if j.DisplayID == "" {
		j.DisplayID = "ORD-" + GenerateOrderCode()
	}
	return
}

// IsParticipant reports whether userID is the job's client or assigned freelancer.
func (j *Job) IsParticipant(userID uuid.UUID) bool {
	if j.ClientID == userID {
		return true
	}
	return j.AssignedFreelancerID != nil && *j.AssignedFreelancerID == userID
}

// GenerateOrderCode generates a random alphanumeric code
func GenerateOrderCode() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, 8)
	max := big.NewInt(int64(len(letters)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			n = big.NewInt(int64(time.Now().UnixNano() % int64(len(letters))))
		}
		b[i] = letters[n.Int64()]
	}
	return string(b)
}

type BidStatus string

const (
	BidStatusPending  BidStatus = "pending"
	BidStatusAccepted BidStatus = "accepted"
	BidStatusRejected BidStatus = "rejected"
)

type Bid struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	JobID         uuid.UUID `gorm:"type:uuid;index;not null;uniqueIndex:idx_bid_job_freelancer" json:"job_id"`
	FreelancerID  uuid.UUID `gorm:"type:uuid;index;not null;uniqueIndex:idx_bid_job_freelancer" json:"freelancer_id"`
	Amount        float64   `json:"amount"`
	CoverNote     string    `gorm:"type:text" json:"cover_note"`
	AdminApproved bool      `gorm:"not null;default:false" json:"admin_approved"`
	Status        BidStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Freelancer *User `gorm:"foreignKey:FreelancerID" json:"freelancer,omitempty"`
}

func (b *Bid) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return
}
