package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Rating struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	JobID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_rating_job_rater" json:"job_id"`
	RaterID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_rating_job_rater" json:"rater_id"`
	RateeID uuid.UUID `gorm:"type:uuid;index;not null" json:"ratee_id"`

	Score   int    `gorm:"not null" json:"score"` // 1-5
	Comment string `gorm:"type:text" json:"comment"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Job   *Job  `gorm:"foreignKey:JobID" json:"job,omitempty"`
	Rater *User `gorm:"foreignKey:RaterID" json:"rater,omitempty"`
}

func (r *Rating) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}
