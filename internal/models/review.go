package models

import (
	"time"
)

// Rating bounds for overall and per-category review ratings
const (
	RatingMin = 1
	RatingMax = 10
)

// Review represents a user review of a piece of equipment
type Review struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	EquipmentID     uint       `gorm:"not null;index;uniqueIndex:idx_reviews_user_equipment" json:"equipment_id"`
	Equipment       *Equipment `gorm:"foreignKey:EquipmentID" json:"equipment,omitempty"`
	UserID          uint       `gorm:"not null;index;uniqueIndex:idx_reviews_user_equipment" json:"user_id"`
	User            *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	OverallRating   int        `gorm:"not null" json:"overall_rating"`
	CategoryRatings JSONB      `gorm:"type:jsonb" json:"category_ratings"`
	Body            string     `gorm:"type:text" json:"body"`
	ReviewerContext JSONB      `gorm:"type:jsonb" json:"reviewer_context"`
	Status          Status     `gorm:"size:50;default:pending;index" json:"status"`
	ModeratorNotes  string     `gorm:"type:text" json:"moderator_notes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName specifies the table name for Review model
func (Review) TableName() string {
	return "reviews"
}

// ReviewApproval records a single moderator's approval of a review. A review
// becomes fully approved on its second distinct approval, or on the first
// approval by an admin. The unique index makes re-approval by the same
// moderator a no-op at the storage level.
type ReviewApproval struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ReviewID    uint       `gorm:"not null;index;uniqueIndex:idx_review_approvals_review_moderator" json:"review_id"`
	Review      *Review    `gorm:"foreignKey:ReviewID" json:"review,omitempty"`
	ModeratorID uint       `gorm:"not null;uniqueIndex:idx_review_approvals_review_moderator" json:"moderator_id"`
	Moderator   *Moderator `gorm:"foreignKey:ModeratorID" json:"moderator,omitempty"`
	IsAdmin     bool       `gorm:"default:false" json:"is_admin"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (ReviewApproval) TableName() string {
	return "review_approvals"
}
