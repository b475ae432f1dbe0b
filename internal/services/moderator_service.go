package services

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tabletennis-reviews/internal/models"
)

// ModeratorService manages moderator accounts and the audit log.
type ModeratorService struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewModeratorService creates a new ModeratorService
func NewModeratorService(db *gorm.DB, logger *logrus.Logger) *ModeratorService {
	if logger == nil {
		logger = logrus.New()
	}
	return &ModeratorService{db: db, logger: logger}
}

// IsModerator checks if a user holds any moderation role
func (s *ModeratorService) IsModerator(userID uint) bool {
	var moderator models.Moderator
	result := s.db.Where("user_id = ?", userID).First(&moderator)
	return result.Error == nil
}

// GetByUserID gets a moderator by user ID
func (s *ModeratorService) GetByUserID(userID uint) (*models.Moderator, error) {
	var moderator models.Moderator
	if err := s.db.Where("user_id = ?", userID).First(&moderator).Error; err != nil {
		return nil, err
	}
	return &moderator, nil
}

// GetByDiscordID resolves a Discord user id to a moderator account. The
// Discord interaction path uses this to derive the acting moderator.
func (s *ModeratorService) GetByDiscordID(discordID string) (*models.Moderator, error) {
	var moderator models.Moderator
	if err := s.db.Where("discord_id = ?", discordID).First(&moderator).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("discord user %s: %w", discordID, ErrNotFound)
		}
		return nil, err
	}
	return &moderator, nil
}

// Promote grants a user a moderation role
func (s *ModeratorService) Promote(userID uint, role string, discordID string, promotedByID uint) (*models.Moderator, error) {
	// Check if user exists
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	// Check if already a moderator
	var existing models.Moderator
	if err := s.db.Where("user_id = ?", userID).First(&existing).Error; err == nil {
		return nil, fmt.Errorf("user is already a moderator")
	}

	permissions := models.JSONB{
		"moderate_reviews":   true,
		"moderate_players":   true,
		"moderate_equipment": true,
		"manage_moderators":  role == models.RoleAdmin,
	}

	moderator := models.Moderator{
		UserID:      userID,
		Role:        role,
		Permissions: permissions,
	}
	if discordID != "" {
		moderator.DiscordID = &discordID
	}

	if err := s.db.Create(&moderator).Error; err != nil {
		return nil, fmt.Errorf("failed to promote user: %w", err)
	}

	s.LogAction(promotedByID, "PROMOTE_MODERATOR", "USER", &userID, models.JSONB{"role": role})

	s.logger.WithFields(logrus.Fields{"user_id": userID, "role": role}).Info("user promoted to moderator")
	return &moderator, nil
}

// LogAction logs a moderation action
func (s *ModeratorService) LogAction(moderatorID uint, action string, resourceType string, resourceID *uint, details models.JSONB) error {
	entry := models.ModerationLog{
		ModeratorID:  moderatorID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
	}
	return s.db.Create(&entry).Error
}

// GetLogs returns moderation activity logs, newest first
func (s *ModeratorService) GetLogs(limit int, offset int) ([]models.ModerationLog, error) {
	var logs []models.ModerationLog
	if err := s.db.Preload("Moderator").Preload("Moderator.User").
		Order("created_at DESC").Limit(limit).Offset(offset).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
