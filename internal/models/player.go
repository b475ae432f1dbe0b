package models

import (
	"time"
)

// Player represents a professional player profile
type Player struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"size:255;not null;index" json:"name"`
	HighestRating *int      `json:"highest_rating,omitempty"`
	ActiveYears   string    `gorm:"size:50" json:"active_years,omitempty"`
	Active        bool      `gorm:"default:true" json:"active"`
	PlayingStyle  string    `gorm:"size:100" json:"playing_style,omitempty"`
	BirthCountry  string    `gorm:"size:100" json:"birth_country,omitempty"`
	Represents    string    `gorm:"size:100" json:"represents,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName specifies the table name for Player model
func (Player) TableName() string {
	return "players"
}

// PlayerEdit represents a user-proposed change to a player profile.
// EditData is a merge patch: only keys present in it are applied on approval.
type PlayerEdit struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	PlayerID       uint      `gorm:"not null;index" json:"player_id"`
	Player         *Player   `gorm:"foreignKey:PlayerID" json:"player,omitempty"`
	SubmitterID    uint      `gorm:"not null;index" json:"submitter_id"`
	Submitter      *User     `gorm:"foreignKey:SubmitterID" json:"submitter,omitempty"`
	EditData       JSONB     `gorm:"type:jsonb;not null" json:"edit_data"`
	Status         Status    `gorm:"size:50;default:pending;index" json:"status"`
	ModeratorID    *uint     `json:"moderator_id,omitempty"`
	ModeratorNotes string    `gorm:"type:text" json:"moderator_notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (PlayerEdit) TableName() string {
	return "player_edits"
}

// EditablePlayerFields lists the Player columns a PlayerEdit may patch.
var EditablePlayerFields = map[string]bool{
	"name":           true,
	"highest_rating": true,
	"active_years":   true,
	"active":         true,
	"playing_style":  true,
	"birth_country":  true,
	"represents":     true,
}
