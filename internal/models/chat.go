// internal/models/chat.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is a job-scoped chat message. Clients and freelancers only see it
// after an admin approves it.
type Message struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	JobID    uuid.UUID `gorm:"type:uuid;index;not null" json:"job_id"`
	SenderID uuid.UUID `gorm:"type:uuid;index;not null" json:"sender_id"`
	Body     string    `gorm:"type:text;not null" json:"body"`

	AdminApproved       bool       `gorm:"not null;default:false;index" json:"admin_approved"`
	VisibleToClient     bool       `gorm:"not null;default:false" json:"visible_to_client"`
	VisibleToFreelancer bool       `gorm:"not null;default:false" json:"visible_to_freelancer"`
	ApprovedBy          *uuid.UUID `gorm:"type:uuid" json:"approved_by,omitempty"`
	ApprovedAt          *time.Time `json:"approved_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Sender *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return
}

type AttachmentCategory string

const (
	AttachmentInstructions AttachmentCategory = "instructions"
	AttachmentDraft        AttachmentCategory = "draft"
	AttachmentFinal        AttachmentCategory = "final"
)

type JobAttachment struct {
	ID          uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	JobID       uuid.UUID          `gorm:"type:uuid;index;not null" json:"job_id"`
	UploaderID  uuid.UUID          `gorm:"type:uuid;index;not null" json:"uploader_id"`
	FileName    string             `gorm:"not null" json:"file_name"`
	StoredPath  string             `gorm:"type:text;not null" json:"-"`
	URL         string             `gorm:"type:text" json:"url"`
	Size        int64              `json:"size"`
	ContentType string             `gorm:"type:varchar(120)" json:"content_type"`
	Category    AttachmentCategory `gorm:"type:varchar(20);not null;default:'instructions'" json:"category"`
	IsVisible   bool               `gorm:"not null;default:true" json:"is_visible"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (a *JobAttachment) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return
}
