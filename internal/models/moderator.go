package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// JSONB for PostgreSQL JSON support
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if str, isStr := value.(string); isStr {
			bytes = []byte(str)
		} else {
			return nil
		}
	}
	return json.Unmarshal(bytes, &j)
}

// Moderator represents a user with moderation permissions
type Moderator struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	User        *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role        string    `gorm:"size:20;not null" json:"role"` // ADMIN, MODERATOR
	DiscordID   *string   `gorm:"uniqueIndex" json:"discord_id,omitempty"`
	Permissions JSONB     `gorm:"type:jsonb" json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Moderator) TableName() string {
	return "moderators"
}

// IsAdmin reports whether the moderator holds the admin role, which lets a
// single approval fully approve a review.
func (m *Moderator) IsAdmin() bool {
	return m.Role == RoleAdmin
}

const (
	RoleAdmin     = "ADMIN"
	RoleModerator = "MODERATOR"
)

// ModerationLog records every moderation action for the admin dashboard
type ModerationLog struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	ModeratorID  uint       `gorm:"not null;index" json:"moderator_id"`
	Moderator    *Moderator `gorm:"foreignKey:ModeratorID" json:"moderator,omitempty"`
	Action       string     `gorm:"size:50;not null" json:"action"` // APPROVE, REJECT, PROMOTE_MODERATOR
	ResourceType string     `gorm:"size:50;not null" json:"resource_type"`
	ResourceID   *uint      `json:"resource_id,omitempty"`
	Details      JSONB      `gorm:"type:jsonb" json:"details"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (ModerationLog) TableName() string {
	return "moderation_logs"
}
