package services

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tabletennis-reviews/internal/models"
)

// ErrNoEditableFields means an edit proposal contained no recognized fields.
var ErrNoEditableFields = errors.New("no editable fields in edit data")

// PlayerService handles player profiles and user-proposed edits.
type PlayerService struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewPlayerService creates a new PlayerService
func NewPlayerService(db *gorm.DB, logger *logrus.Logger) *PlayerService {
	if logger == nil {
		logger = logrus.New()
	}
	return &PlayerService{db: db, logger: logger}
}

// List returns player profiles with optional name search.
func (s *PlayerService) List(search string, limit int, offset int) ([]models.Player, int64, error) {
	var players []models.Player
	var total int64

	query := s.db.Model(&models.Player{})
	if search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}

	query.Count(&total)
	if err := query.Order("name ASC").Limit(limit).Offset(offset).Find(&players).Error; err != nil {
		return nil, 0, err
	}
	return players, total, nil
}

// GetByID returns a single player profile.
func (s *PlayerService) GetByID(playerID uint) (*models.Player, error) {
	var player models.Player
	if err := s.db.First(&player, playerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("player %d: %w", playerID, ErrNotFound)
		}
		return nil, err
	}
	return &player, nil
}

// SubmitEdit stores a pending merge-patch proposal against a player profile.
// Unknown keys are dropped up front so moderators only ever see fields that
// approval can actually apply.
func (s *PlayerService) SubmitEdit(playerID uint, submitterID uint, editData map[string]interface{}) (*models.PlayerEdit, error) {
	var player models.Player
	if err := s.db.First(&player, playerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("player %d: %w", playerID, ErrNotFound)
		}
		return nil, err
	}

	filtered := models.JSONB{}
	for key, value := range editData {
		if models.EditablePlayerFields[key] {
			filtered[key] = value
		}
	}
	if len(filtered) == 0 {
		return nil, ErrNoEditableFields
	}

	edit := models.PlayerEdit{
		PlayerID:    playerID,
		SubmitterID: submitterID,
		EditData:    filtered,
		Status:      models.StatusPending,
	}

	if err := s.db.Create(&edit).Error; err != nil {
		return nil, fmt.Errorf("failed to create player edit: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"edit_id":      edit.ID,
		"player_id":    playerID,
		"submitter_id": submitterID,
	}).Info("player edit submitted")
	return &edit, nil
}
