package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin        Role = "admin"
	RoleClient       Role = "client"
	RoleFreelancer   Role = "freelancer"
	RoleManager      Role = "manager"
	RoleEditor       Role = "editor"
	RoleAccountOwner Role = "account_owner"
)

// IsStaff reports whether the role moderates content (admin and manager).
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleManager
}

// internal/models/user.go
type User struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name  string    `gorm:"not null" json:"name"`
	Email string    `gorm:"uniqueIndex;not null" json:"email"`
	Phone string    `gorm:"type:varchar(30);index" json:"phone"`

	Password string `gorm:"not null" json:"-"`
	Role     Role   `gorm:"type:varchar(20);not null;index" json:"role"`
	IsActive bool   `gorm:"default:true" json:"is_active"`
	Approved bool   `gorm:"default:false;index" json:"approved"`

	// Balance is derived from completed+paid jobs, see earnings.Settler.RecomputeBalance.
	Balance          float64 `gorm:"not null;default:0" json:"balance"`
	TotalEarned      float64 `gorm:"not null;default:0" json:"total_earned"`
	TotalSpent       float64 `gorm:"not null;default:0" json:"total_spent"`
	CompletedJobs    int     `gorm:"not null;default:0" json:"completed_jobs"`
	OnTimeDeliveries int     `gorm:"not null;default:0" json:"on_time_deliveries"`
	Rating           float64 `gorm:"not null;default:0" json:"rating"`
	RatingCount      int     `gorm:"not null;default:0" json:"rating_count"`
	FreelancerBadge  string  `gorm:"type:varchar(30)" json:"freelancer_badge,omitempty"`
	ClientTier       string  `gorm:"type:varchar(30)" json:"client_tier,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Badges []UserBadge `gorm:"foreignKey:UserID" json:"badges,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return
}

type Badge string

const (
	BadgeTopRated       Badge = "top_rated"
	BadgeVerifiedExpert Badge = "verified_expert"
	BadgeClientFavorite Badge = "client_favorite"
)

// UserBadge replaces the serialized badge list with one row per (user, badge).
type UserBadge struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_badge" json:"user_id"`
	Badge     Badge     `gorm:"type:varchar(30);not null;uniqueIndex:idx_user_badge" json:"badge"`
	AwardedAt time.Time `json:"awarded_at"`
}

func (b *UserBadge) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.AwardedAt.IsZero() {
		b.AwardedAt = time.Now()
	}
	return
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

func (a Actor) IsStaff() bool { return a.Role.IsStaff() }
