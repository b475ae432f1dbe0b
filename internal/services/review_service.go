package services

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tabletennis-reviews/internal/models"
)

// Validation errors surfaced to review submitters before any write.
var (
	ErrRatingOutOfRange = errors.New("rating out of range")
	ErrDuplicateReview  = errors.New("review already exists for this equipment")
)

// ReviewInput carries the fields of a new review submission.
type ReviewInput struct {
	EquipmentID     uint
	OverallRating   int
	CategoryRatings map[string]int
	Body            string
	ReviewerContext map[string]string
}

// ReviewService handles review submission and reads of approved reviews.
type ReviewService struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewReviewService creates a new ReviewService
func NewReviewService(db *gorm.DB, logger *logrus.Logger) *ReviewService {
	if logger == nil {
		logger = logrus.New()
	}
	return &ReviewService{db: db, logger: logger}
}

// Create validates and stores a new pending review. Ratings outside [1,10]
// and a second review for the same (user, equipment) pair are rejected here,
// never later at approval time.
func (s *ReviewService) Create(userID uint, input ReviewInput) (*models.Review, error) {
	if input.OverallRating < models.RatingMin || input.OverallRating > models.RatingMax {
		return nil, fmt.Errorf("overall rating %d: %w", input.OverallRating, ErrRatingOutOfRange)
	}
	for category, rating := range input.CategoryRatings {
		if rating < models.RatingMin || rating > models.RatingMax {
			return nil, fmt.Errorf("%s rating %d: %w", category, rating, ErrRatingOutOfRange)
		}
	}

	var equipment models.Equipment
	if err := s.db.First(&equipment, input.EquipmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("equipment %d: %w", input.EquipmentID, ErrNotFound)
		}
		return nil, err
	}

	var existing models.Review
	err := s.db.Where("user_id = ? AND equipment_id = ?", userID, input.EquipmentID).First(&existing).Error
	if err == nil {
		return nil, ErrDuplicateReview
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	categoryRatings := models.JSONB{}
	for category, rating := range input.CategoryRatings {
		categoryRatings[category] = rating
	}
	reviewerContext := models.JSONB{}
	for key, value := range input.ReviewerContext {
		reviewerContext[key] = value
	}

	review := models.Review{
		EquipmentID:     input.EquipmentID,
		UserID:          userID,
		OverallRating:   input.OverallRating,
		CategoryRatings: categoryRatings,
		Body:            input.Body,
		ReviewerContext: reviewerContext,
		Status:          models.StatusPending,
	}

	if err := s.db.Create(&review).Error; err != nil {
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"review_id":    review.ID,
		"equipment_id": input.EquipmentID,
		"user_id":      userID,
	}).Info("review submitted")
	return &review, nil
}

// ListApprovedByEquipment returns the approved reviews for an equipment page.
func (s *ReviewService) ListApprovedByEquipment(equipmentID uint, limit int, offset int) ([]models.Review, int64, error) {
	var reviews []models.Review
	var total int64

	query := s.db.Model(&models.Review{}).
		Where("equipment_id = ? AND status = ?", equipmentID, models.StatusApproved)
	query.Count(&total)
	if err := query.Preload("User").Order("created_at DESC").
		Limit(limit).Offset(offset).Find(&reviews).Error; err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}

// ListByUser returns all reviews a user has submitted, any status.
func (s *ReviewService) ListByUser(userID uint) ([]models.Review, error) {
	var reviews []models.Review
	if err := s.db.Preload("Equipment").Where("user_id = ?", userID).
		Order("created_at DESC").Find(&reviews).Error; err != nil {
		return nil, err
	}
	return reviews, nil
}
