package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tabletennis-reviews/internal/models"
	"tabletennis-reviews/internal/notify"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Equipment{},
		&models.Player{},
		&models.Review{},
		&models.ReviewApproval{},
		&models.PlayerEdit{},
		&models.EquipmentSubmission{},
		&models.Moderator{},
		&models.ModerationLog{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	return db
}

func cleanTables(t *testing.T, db *gorm.DB) {
	t.Helper()
	for _, table := range []string{
		"moderation_logs", "review_approvals", "reviews", "player_edits",
		"equipment_submissions", "moderators", "players", "equipment", "users",
	} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			t.Fatalf("failed to clean table %s: %v", table, err)
		}
	}
}

func decimalFromString(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", value, err)
	}
	return d
}

// failingNotifier simulates a permanently broken notification channel.
type failingNotifier struct{ calls int }

func (f *failingNotifier) Send(event string, payload map[string]interface{}) error {
	f.calls++
	return fmt.Errorf("webhook unreachable")
}

func createTestEquipment(t *testing.T, db *gorm.DB) *models.Equipment {
	t.Helper()
	equipment := models.Equipment{
		Name:         "Mark V",
		Manufacturer: "Yasaka",
		Category:     models.CategoryRubber,
		Subcategory:  models.SubcategoryInverted,
	}
	if err := db.Create(&equipment).Error; err != nil {
		t.Fatalf("failed to create equipment: %v", err)
	}
	return &equipment
}

func createTestReview(t *testing.T, db *gorm.DB, equipmentID uint, userID uint, rating int) *models.Review {
	t.Helper()
	user := models.User{Email: fmt.Sprintf("user%d@example.com", userID), PasswordHash: "x", DisplayName: "Reviewer"}
	user.ID = userID
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	review := models.Review{
		EquipmentID:     equipmentID,
		UserID:          userID,
		OverallRating:   rating,
		CategoryRatings: models.JSONB{"spin": 9, "speed": 7},
		Body:            "Great control, decent speed.",
		Status:          models.StatusPending,
	}
	if err := db.Create(&review).Error; err != nil {
		t.Fatalf("failed to create review: %v", err)
	}
	return &review
}

func TestReviewTwoModeratorApproval(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(t, db)
	service := NewModerationService(db, notify.NewMemory(), nil)

	equipment := createTestEquipment(t, db)
	review := createTestReview(t, db, equipment.ID, 1, 8)

	// First non-admin approval keeps the review pending
	result, err := service.ApproveReview(review.ID, 10, false)
	if err != nil {
		t.Fatalf("first approval failed: %v", err)
	}
	if result.Outcome != models.OutcomeFirstApproval {
		t.Errorf("expected first_approval, got %s", result.Outcome)
	}

	var reloaded models.Review
	db.First(&reloaded, review.ID)
	if reloaded.Status != models.StatusPending {
		t.Errorf("review should remain pending after one approval, got %s", reloaded.Status)
	}

	// Second distinct moderator flips the review to approved
	result, err = service.ApproveReview(review.ID, 11, false)
	if err != nil {
		t.Fatalf("second approval failed: %v", err)
	}
	if result.Outcome != models.OutcomeFullyApproved {
		t.Errorf("expected fully_approved, got %s", result.Outcome)
	}

	db.First(&reloaded, review.ID)
	if reloaded.Status != models.StatusApproved {
		t.Errorf("expected approved status, got %s", reloaded.Status)
	}

	// Further approvals are no-ops
	result, err = service.ApproveReview(review.ID, 10, false)
	if err != nil {
		t.Fatalf("re-approval errored: %v", err)
	}
	if result.Outcome != models.OutcomeAlreadyApproved {
		t.Errorf("expected already_approved, got %s", result.Outcome)
	}
}

func TestReviewApproveIdempotentPerModerator(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(t, db)
	service := NewModerationService(db, notify.NewMemory(), nil)

	equipment := createTestEquipment(t, db)
	review := createTestReview(t, db, equipment.ID, 1, 7)

	result, err := service.ApproveReview(review.ID, 10, false)
	if err != nil || result.Outcome != models.OutcomeFirstApproval {
		t.Fatalf("expected first_approval, got %s (err %v)", result.Outcome, err)
	}

	// Same moderator approving again must not count as a second approval
	result, err = service.ApproveReview(review.ID, 10, false)
	if err != nil {
		t.Fatalf("repeat approval errored: %v", err)
	}
	if result.Outcome != models.OutcomeAlreadyApproved {
		t.Errorf("expected already_approved on repeat, got %s", result.Outcome)
	}

	var count int64
	db.Model(&models.ReviewApproval{}).Where("review_id = ?", review.ID).Count(&count)
	if count != 1 {
		t.Errorf("expected 1 recorded approval, got %d", count)
	}

	var reloaded models.Review
	db.First(&reloaded, review.ID)
	if reloaded.Status != models.StatusPending {
		t.Errorf("review must stay pending, got %s", reloaded.Status)
	}
}

func TestReviewAdminApprovalFastPath(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(t, db)
	service := NewModerationService(db, notify.NewMemory(), nil)

	equipment := createTestEquipment(t, db)
	review := createTestReview(t, db, equipment.ID, 1, 9)

	result, err := service.ApproveReview(review.ID, 10, true)
	if err != nil {
		t.Fatalf("admin approval failed: %v", err)
	}
	if result.Outcome != models.OutcomeFullyApproved {
		t.Errorf("admin approval should be fully_approved, got %s", result.Outcome)
	}

	result, err = service.ApproveReview(review.ID, 10, true)
	if err != nil {
		t.Fatalf("re-approval errored: %v", err)
	}
	if result.Outcome != models.OutcomeAlreadyApproved {
		t.Errorf("expected already_approved, got %s", result.Outcome)
	}
}

func TestApproveReviewNotFound(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(t, db)
	service := NewModerationService(db, notify.NewMemory(), nil)

	_, err := service.ApproveReview(99999, 10, false)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRejectAlreadyProcessed(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(t, db)
	service := NewModerationService(db, notify.NewMemory(), nil)

	equipment := createTestEquipment(t, db)
	review := createTestReview(t, db, equipment.ID, 1, 5)

	if err := service.RejectReview(review.ID, 10, "low effort"); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	var reloaded models.Review
	db.First(&reloaded, review.ID)
	if reloaded.Status != models.StatusRejected {
		t.Errorf("expected rejected status, got %s", reloaded.Status)
	}
	if reloaded.ModeratorNotes != "low effort" {
		t.Errorf("expected reason stored in moderator notes, got %q", reloaded.ModeratorNotes)
	}

	// Rejecting again fails without a status change
	err := service.RejectReview(review.ID, 11, "")
	if !errors.Is(err, ErrAlreadyProcessed) {
		t.Errorf("expected ErrAlreadyProcessed, got %v", err)
	}

	// Rejecting an approved review also fails
	review2 := createTestReview(t, db, equipment.ID, 2, 8)
	if _, err := service.ApproveReview(review2.ID, 10, true); err != nil {
		t.Fatalf("admin approval failed: %v", err)
	}
	err = service.RejectReview(review2.ID, 10, "")
	if !errors.Is(err, ErrAlreadyProcessed) {
		t.Errorf("expected ErrAlreadyProcessed for approved review, got %v", err)
	}
}

func TestApproveRejectedReviewReturnsError(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(t, db)
	service := NewModerationService(db, notify.NewMemory(), nil)

	equipment := createTestEquipment(t, db)
	review := createTestReview(t, db, equipment.ID, 1, 4)

	if err := service.RejectReview(review.ID, 10, "spam"); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	result, err := service.ApproveReview(review.ID, 11, false)
	if err != nil {
		t.Fatalf("approve on rejected review errored: %v", err)
	}
	if result.Outcome != models.OutcomeError {
		t.Errorf("expected error outcome, got %s", result.Outcome)
	}
}

func TestPlayerEditMergePatch(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(t, db)
	service := NewModerationService(db, notify.NewMemory(), nil)

	player := models.Player{Name: "Jan-Ove Waldner", ActiveYears: "1982-2012", PlayingStyle: "attacker"}
	if err := db.Create(&player).Error; err != nil {
		t.Fatalf("failed to create player: %v", err)
	}

	edit := models.PlayerEdit{
		PlayerID:    player.ID,
		SubmitterID: 1,
		EditData:    models.JSONB{"active_years": "1982-2016"},
		Status:      models.StatusPending,
	}
	if err := db.Create(&edit).Error; err != nil {
		t.Fatalf("failed to create edit: %v", err)
	}

	result, err := service.ApprovePlayerEdit(edit.ID, 10)
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if result.Outcome != models.OutcomeApproved {
		t.Errorf("expected approved outcome, got %s", result.Outcome)
	}

	// Only active_years changes; every other field is untouched
	var reloaded models.Player
	db.First(&reloaded, player.ID)
	if reloaded.ActiveYears != "1982-2016" {
		t.Errorf("expected patched active_years, got %q", reloaded.ActiveYears)
	}
	if reloaded.Name != "Jan-Ove Waldner" {
		t.Errorf("name must be untouched, got %q", reloaded.Name)
	}
	if reloaded.PlayingStyle != "attacker" {
		t.Errorf("playing_style must be untouched, got %q", reloaded.PlayingStyle)
	}

	var reloadedEdit models.PlayerEdit
	db.First(&reloadedEdit, edit.ID)
	if reloadedEdit.Status != models.StatusApproved {
		t.Errorf("edit should be approved, got %s", reloadedEdit.Status)
	}
	if reloadedEdit.ModeratorID == nil || *reloadedEdit.ModeratorID != 10 {
		t.Errorf("edit should record the approving moderator")
	}

	// Second approval is a no-op
	result, err = service.ApprovePlayerEdit(edit.ID, 11)
	if err != nil {
		t.Fatalf("re-approval errored: %v", err)
	}
	if result.Outcome != models.OutcomeAlreadyApproved {
		t.Errorf("expected already_approved, got %s", result.Outcome)
	}
}

func TestPlayerEditMissingTarget(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(t, db)
	service := NewModerationService(db, notify.NewMemory(), nil)

	edit := models.PlayerEdit{
		PlayerID:    4242,
		SubmitterID: 1,
		EditData:    models.JSONB{"name": "Ghost"},
		Status:      models.StatusPending,
	}
	if err := db.Create(&edit).Error; err != nil {
		t.Fatalf("failed to create edit: %v", err)
	}

	result, err := service.ApprovePlayerEdit(edit.ID, 10)
	if err == nil {
		t.Fatal("expected error for missing target player")
	}
	if result.Outcome != models.OutcomeError {
		t.Errorf("expected error outcome, got %s", result.Outcome)
	}

	// The failed transaction must not leave the edit marked approved
	var reloaded models.PlayerEdit
	db.First(&reloaded, edit.ID)
	if reloaded.Status != models.StatusPending {
		t.Errorf("edit must stay pending after failed patch, got %s", reloaded.Status)
	}
}

func TestEquipmentSubmissionApproval(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(t, db)
	service := NewModerationService(db, notify.NewMemory(), nil)

	existing := createTestEquipment(t, db)

	submission := models.EquipmentSubmission{
		SubmitterID:    1,
		Name:           "Viscaria",
		Manufacturer:   "Butterfly",
		Category:       models.CategoryBlade,
		Specifications: models.JSONB{"plies": 7, "weight_g": 90},
		Status:         models.StatusPending,
	}
	if err := db.Create(&submission).Error; err != nil {
		t.Fatalf("failed to create submission: %v", err)
	}

	result, err := service.ApproveEquipmentSubmission(submission.ID, 10)
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if result.Outcome != models.OutcomeApproved {
		t.Errorf("expected approved outcome, got %s", result.Outcome)
	}

	// Exactly one new catalog entry, fields copied verbatim
	var count int64
	db.Model(&models.Equipment{}).Count(&count)
	if count != 2 {
		t.Errorf("expected 2 equipment rows, got %d", count)
	}

	var created models.Equipment
	if err := db.Where("name = ?", "Viscaria").First(&created).Error; err != nil {
		t.Fatalf("created equipment not found: %v", err)
	}
	if created.Manufacturer != "Butterfly" || created.Category != models.CategoryBlade {
		t.Errorf("created equipment fields mismatch: %+v", created)
	}

	// Pre-existing catalog entry untouched
	var reloadedExisting models.Equipment
	db.First(&reloadedExisting, existing.ID)
	if reloadedExisting.Name != existing.Name {
		t.Errorf("pre-existing equipment was mutated")
	}

	// Second approval must not create a second catalog entry
	result, err = service.ApproveEquipmentSubmission(submission.ID, 11)
	if err != nil {
		t.Fatalf("re-approval errored: %v", err)
	}
	if result.Outcome != models.OutcomeAlreadyApproved {
		t.Errorf("expected already_approved, got %s", result.Outcome)
	}
	db.Model(&models.Equipment{}).Count(&count)
	if count != 2 {
		t.Errorf("re-approval created a duplicate entry, have %d rows", count)
	}
}

func TestEquipmentSubmissionMissingFields(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(t, db)
	service := NewModerationService(db, notify.NewMemory(), nil)

	// Bypass the submission validation to simulate a corrupt record
	submission := models.EquipmentSubmission{
		SubmitterID: 1,
		Name:        "",
		Category:    models.CategoryBall,
		Status:      models.StatusPending,
	}
	if err := db.Create(&submission).Error; err != nil {
		t.Fatalf("failed to create submission: %v", err)
	}

	result, err := service.ApproveEquipmentSubmission(submission.ID, 10)
	if err != nil {
		t.Fatalf("approve errored: %v", err)
	}
	if result.Outcome != models.OutcomeError {
		t.Errorf("expected error outcome for missing fields, got %s", result.Outcome)
	}

	var count int64
	db.Model(&models.Equipment{}).Count(&count)
	if count != 0 {
		t.Errorf("no equipment should be created, got %d rows", count)
	}
}

func TestModerationStatsConsistency(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(t, db)
	service := NewModerationService(db, notify.NewMemory(), nil)

	checkFamily := func(name string, fs FamilyStats) {
		t.Helper()
		if fs.Pending+fs.Approved+fs.Rejected != fs.Total {
			t.Errorf("%s: pending+approved+rejected = %d, total = %d",
				name, fs.Pending+fs.Approved+fs.Rejected, fs.Total)
		}
	}
	checkAll := func() {
		t.Helper()
		stats, err := service.GetStats()
		if err != nil {
			t.Fatalf("GetStats failed: %v", err)
		}
		checkFamily("reviews", stats.Reviews)
		checkFamily("player_edits", stats.PlayerEdits)
		checkFamily("equipment_submissions", stats.EquipmentSubmissions)
	}

	equipment := createTestEquipment(t, db)
	review1 := createTestReview(t, db, equipment.ID, 1, 8)
	review2 := createTestReview(t, db, equipment.ID, 2, 6)
	checkAll()

	if _, err := service.ApproveReview(review1.ID, 10, true); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	checkAll()

	if err := service.RejectReview(review2.ID, 10, "dup"); err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	checkAll()

	stats, err := service.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.Reviews.Approved != 1 || stats.Reviews.Rejected != 1 || stats.Reviews.Pending != 0 {
		t.Errorf("unexpected review stats: %+v", stats.Reviews)
	}
	if stats.Reviews.Total != 2 {
		t.Errorf("expected review total 2, got %d", stats.Reviews.Total)
	}
}

func TestNotifierFailureDoesNotBlockTransitions(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(t, db)
	broken := &failingNotifier{}
	service := NewModerationService(db, broken, nil)

	equipment := createTestEquipment(t, db)
	review1 := createTestReview(t, db, equipment.ID, 1, 8)
	review2 := createTestReview(t, db, equipment.ID, 2, 3)

	result, err := service.ApproveReview(review1.ID, 10, true)
	if err != nil {
		t.Fatalf("approve must succeed despite notifier failure: %v", err)
	}
	if result.Outcome != models.OutcomeFullyApproved {
		t.Errorf("expected fully_approved, got %s", result.Outcome)
	}

	if err := service.RejectReview(review2.ID, 10, ""); err != nil {
		t.Fatalf("reject must succeed despite notifier failure: %v", err)
	}

	var reloaded models.Review
	db.First(&reloaded, review1.ID)
	if reloaded.Status != models.StatusApproved {
		t.Errorf("status transition lost: %s", reloaded.Status)
	}
	if broken.calls == 0 {
		t.Error("notifier was never invoked")
	}
}

func TestEquipmentRatingAggregate(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(t, db)
	service := NewModerationService(db, notify.NewMemory(), nil)

	equipment := createTestEquipment(t, db)
	review1 := createTestReview(t, db, equipment.ID, 1, 8)
	review2 := createTestReview(t, db, equipment.ID, 2, 9)

	if _, err := service.ApproveReview(review1.ID, 10, true); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if _, err := service.ApproveReview(review2.ID, 10, true); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	var reloaded models.Equipment
	db.First(&reloaded, equipment.ID)
	if reloaded.ReviewCount != 2 {
		t.Errorf("expected review_count 2, got %d", reloaded.ReviewCount)
	}
	if !reloaded.AverageRating.Equal(decimalFromString(t, "8.5")) {
		t.Errorf("expected average 8.5, got %s", reloaded.AverageRating)
	}
}

func TestListPendingNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(t, db)
	service := NewModerationService(db, notify.NewMemory(), nil)

	equipment := createTestEquipment(t, db)
	createTestReview(t, db, equipment.ID, 1, 8)
	createTestReview(t, db, equipment.ID, 2, 6)

	reviews, total, err := service.ListPendingReviews(10, 0)
	if err != nil {
		t.Fatalf("ListPendingReviews failed: %v", err)
	}
	if total != 2 {
		t.Errorf("expected total 2, got %d", total)
	}
	if len(reviews) != 2 {
		t.Errorf("expected 2 reviews, got %d", len(reviews))
	}
	for _, r := range reviews {
		if r.Equipment == nil {
			t.Error("pending review should include equipment summary")
		}
	}

	// Pagination still reports the full pending count
	page, total, err := service.ListPendingReviews(1, 0)
	if err != nil {
		t.Fatalf("ListPendingReviews failed: %v", err)
	}
	if len(page) != 1 || total != 2 {
		t.Errorf("expected 1 item with total 2, got %d items, total %d", len(page), total)
	}
}
