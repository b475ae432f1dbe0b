package services

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tabletennis-reviews/internal/models"
)

// ErrInvalidCategory covers unknown categories and subcategories that are
// illegal for the chosen category.
var ErrInvalidCategory = errors.New("invalid category")

// EquipmentSubmissionInput carries the fields of a user equipment submission.
type EquipmentSubmissionInput struct {
	Name           string
	Manufacturer   string
	Category       string
	Subcategory    string
	Specifications map[string]interface{}
}

// EquipmentService handles the public catalog and user submissions.
type EquipmentService struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewEquipmentService creates a new EquipmentService
func NewEquipmentService(db *gorm.DB, logger *logrus.Logger) *EquipmentService {
	if logger == nil {
		logger = logrus.New()
	}
	return &EquipmentService{db: db, logger: logger}
}

// List returns catalog entries with optional category filter and name search.
func (s *EquipmentService) List(category string, search string, limit int, offset int) ([]models.Equipment, int64, error) {
	var equipment []models.Equipment
	var total int64

	query := s.db.Model(&models.Equipment{})
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where("name LIKE ? OR manufacturer LIKE ?", pattern, pattern)
	}

	query.Count(&total)
	if err := query.Order("name ASC").Limit(limit).Offset(offset).Find(&equipment).Error; err != nil {
		return nil, 0, err
	}
	return equipment, total, nil
}

// GetByID returns a single catalog entry.
func (s *EquipmentService) GetByID(equipmentID uint) (*models.Equipment, error) {
	var equipment models.Equipment
	if err := s.db.First(&equipment, equipmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("equipment %d: %w", equipmentID, ErrNotFound)
		}
		return nil, err
	}
	return &equipment, nil
}

// Submit validates and stores a new pending equipment submission. Category
// and subcategory validity is enforced here; approval trusts this check.
func (s *EquipmentService) Submit(submitterID uint, input EquipmentSubmissionInput) (*models.EquipmentSubmission, error) {
	if input.Name == "" || input.Manufacturer == "" {
		return nil, fmt.Errorf("name and manufacturer are required")
	}
	if !models.ValidCategory(input.Category) {
		return nil, fmt.Errorf("category %q: %w", input.Category, ErrInvalidCategory)
	}
	if !models.ValidSubcategory(input.Category, input.Subcategory) {
		return nil, fmt.Errorf("subcategory %q is not valid for category %q: %w",
			input.Subcategory, input.Category, ErrInvalidCategory)
	}

	submission := models.EquipmentSubmission{
		SubmitterID:    submitterID,
		Name:           input.Name,
		Manufacturer:   input.Manufacturer,
		Category:       input.Category,
		Subcategory:    input.Subcategory,
		Specifications: models.JSONB(input.Specifications),
		Status:         models.StatusPending,
	}

	if err := s.db.Create(&submission).Error; err != nil {
		return nil, fmt.Errorf("failed to create equipment submission: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"submission_id": submission.ID,
		"name":          input.Name,
		"submitter_id":  submitterID,
	}).Info("equipment submitted")
	return &submission, nil
}
