package services

import (
	"errors"
	"testing"

	"tabletennis-reviews/internal/models"
)

func TestCreateReviewRatingValidation(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(t, db)
	service := NewReviewService(db, nil)

	equipment := createTestEquipment(t, db)
	user := models.User{Email: "reviewer@example.com", PasswordHash: "x", DisplayName: "Reviewer"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	cases := []struct {
		name  string
		input ReviewInput
	}{
		{"overall too low", ReviewInput{EquipmentID: equipment.ID, OverallRating: 0}},
		{"overall too high", ReviewInput{EquipmentID: equipment.ID, OverallRating: 11}},
		{"category too high", ReviewInput{
			EquipmentID:     equipment.ID,
			OverallRating:   8,
			CategoryRatings: map[string]int{"spin": 11},
		}},
		{"category too low", ReviewInput{
			EquipmentID:     equipment.ID,
			OverallRating:   8,
			CategoryRatings: map[string]int{"speed": 0},
		}},
	}

	for _, tc := range cases {
		_, err := service.Create(user.ID, tc.input)
		if !errors.Is(err, ErrRatingOutOfRange) {
			t.Errorf("%s: expected ErrRatingOutOfRange, got %v", tc.name, err)
		}
	}

	var count int64
	db.Model(&models.Review{}).Count(&count)
	if count != 0 {
		t.Errorf("invalid reviews must never be stored, found %d", count)
	}
}

func TestCreateReviewDuplicateConflict(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(t, db)
	service := NewReviewService(db, nil)

	equipment := createTestEquipment(t, db)
	user := models.User{Email: "reviewer@example.com", PasswordHash: "x", DisplayName: "Reviewer"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	input := ReviewInput{
		EquipmentID:     equipment.ID,
		OverallRating:   8,
		CategoryRatings: map[string]int{"spin": 9, "speed": 7},
		Body:            "Classic all-round rubber.",
		ReviewerContext: map[string]string{"playing_level": "club", "tested_for": "3 months"},
	}

	review, err := service.Create(user.ID, input)
	if err != nil {
		t.Fatalf("first review failed: %v", err)
	}
	if review.Status != models.StatusPending {
		t.Errorf("new reviews must be pending, got %s", review.Status)
	}

	// Second review for the same (user, equipment) pair conflicts
	_, err = service.Create(user.ID, input)
	if !errors.Is(err, ErrDuplicateReview) {
		t.Errorf("expected ErrDuplicateReview, got %v", err)
	}

	var count int64
	db.Model(&models.Review{}).Count(&count)
	if count != 1 {
		t.Errorf("expected exactly 1 review, got %d", count)
	}
}

func TestCreateReviewUnknownEquipment(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(t, db)
	service := NewReviewService(db, nil)

	_, err := service.Create(1, ReviewInput{EquipmentID: 12345, OverallRating: 7})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListApprovedByEquipmentFiltersStatus(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(t, db)
	service := NewReviewService(db, nil)
	moderation := NewModerationService(db, nil, nil)

	equipment := createTestEquipment(t, db)
	review1 := createTestReview(t, db, equipment.ID, 1, 8)
	createTestReview(t, db, equipment.ID, 2, 6)

	if _, err := moderation.ApproveReview(review1.ID, 10, true); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	reviews, total, err := service.ListApprovedByEquipment(equipment.ID, 10, 0)
	if err != nil {
		t.Fatalf("ListApprovedByEquipment failed: %v", err)
	}
	if total != 1 || len(reviews) != 1 {
		t.Fatalf("expected exactly the approved review, got %d (total %d)", len(reviews), total)
	}
	if reviews[0].ID != review1.ID {
		t.Errorf("expected review %d, got %d", review1.ID, reviews[0].ID)
	}
}
