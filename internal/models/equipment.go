package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Equipment categories
const (
	CategoryBlade  = "blade"
	CategoryRubber = "rubber"
	CategoryBall   = "ball"
)

// Rubber subcategories
const (
	SubcategoryInverted  = "inverted"
	SubcategoryLongPips  = "long_pips"
	SubcategoryAnti      = "anti"
	SubcategoryShortPips = "short_pips"
)

// ValidCategory reports whether category is one of the known equipment categories.
func ValidCategory(category string) bool {
	switch category {
	case CategoryBlade, CategoryRubber, CategoryBall:
		return true
	}
	return false
}

// ValidSubcategory reports whether subcategory is legal for the given category.
// Subcategories only apply to rubbers; blades and balls must leave it empty.
func ValidSubcategory(category, subcategory string) bool {
	if subcategory == "" {
		return true
	}
	if category != CategoryRubber {
		return false
	}
	switch subcategory {
	case SubcategoryInverted, SubcategoryLongPips, SubcategoryAnti, SubcategoryShortPips:
		return true
	}
	return false
}

// Equipment represents a canonical catalog entry
type Equipment struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	Name           string          `gorm:"size:255;not null;index" json:"name"`
	Manufacturer   string          `gorm:"size:100;not null;index" json:"manufacturer"`
	Category       string          `gorm:"size:20;not null;index" json:"category"`
	Subcategory    string          `gorm:"size:20" json:"subcategory,omitempty"`
	Specifications JSONB           `gorm:"type:jsonb" json:"specifications"`
	AverageRating  decimal.Decimal `gorm:"type:decimal(4,2);default:0" json:"average_rating"`
	ReviewCount    int             `gorm:"default:0" json:"review_count"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Equipment model
func (Equipment) TableName() string {
	return "equipment"
}

// EquipmentSubmission represents a user-submitted catalog entry awaiting moderation
type EquipmentSubmission struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	SubmitterID    uint      `gorm:"not null;index" json:"submitter_id"`
	Submitter      *User     `gorm:"foreignKey:SubmitterID" json:"submitter,omitempty"`
	Name           string    `gorm:"size:255;not null" json:"name"`
	Manufacturer   string    `gorm:"size:100;not null" json:"manufacturer"`
	Category       string    `gorm:"size:20;not null" json:"category"`
	Subcategory    string    `gorm:"size:20" json:"subcategory,omitempty"`
	Specifications JSONB     `gorm:"type:jsonb" json:"specifications"`
	Status         Status    `gorm:"size:50;default:pending;index" json:"status"`
	ModeratorID    *uint     `json:"moderator_id,omitempty"`
	ModeratorNotes string    `gorm:"type:text" json:"moderator_notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (EquipmentSubmission) TableName() string {
	return "equipment_submissions"
}
