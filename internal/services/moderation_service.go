package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tabletennis-reviews/internal/models"
	"tabletennis-reviews/internal/notify"
)

// Sentinel errors shared by the moderation operations.
var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyProcessed = errors.New("already processed")
)

// ApprovalResult is the outcome of an approve call. Message is safe to show
// to moderators on both the admin dashboard and in the Discord channel.
type ApprovalResult struct {
	Outcome models.Outcome `json:"outcome"`
	Message string         `json:"message"`
}

// FamilyStats holds moderation counts for one entity family.
type FamilyStats struct {
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
	Total    int64 `json:"total"`
}

// ModerationStats aggregates counts across all three families.
type ModerationStats struct {
	Reviews              FamilyStats `json:"reviews"`
	PlayerEdits          FamilyStats `json:"player_edits"`
	EquipmentSubmissions FamilyStats `json:"equipment_submissions"`
}

// ModerationService drives reviews, player edits and equipment submissions
// through their approval lifecycle. It is the single implementation behind
// both the HTTP admin surface and the Discord interaction callbacks.
type ModerationService struct {
	db       *gorm.DB
	notifier notify.Notifier
	logger   *logrus.Logger
}

// NewModerationService creates a new ModerationService
func NewModerationService(db *gorm.DB, notifier notify.Notifier, logger *logrus.Logger) *ModerationService {
	if logger == nil {
		logger = logrus.New()
	}
	return &ModerationService{db: db, notifier: notifier, logger: logger}
}

// Approve dispatches an approval to the entity family named by kind.
func (s *ModerationService) Approve(kind models.Kind, id uint, moderatorID uint, isAdmin bool) (ApprovalResult, error) {
	switch kind {
	case models.KindReview:
		return s.ApproveReview(id, moderatorID, isAdmin)
	case models.KindPlayerEdit:
		return s.ApprovePlayerEdit(id, moderatorID)
	case models.KindEquipmentSubmission:
		return s.ApproveEquipmentSubmission(id, moderatorID)
	}
	return ApprovalResult{}, fmt.Errorf("unknown moderation kind %q", kind)
}

// Reject dispatches a rejection to the entity family named by kind.
func (s *ModerationService) Reject(kind models.Kind, id uint, moderatorID uint, reason string) error {
	switch kind {
	case models.KindReview:
		return s.RejectReview(id, moderatorID, reason)
	case models.KindPlayerEdit:
		return s.RejectPlayerEdit(id, moderatorID, reason)
	case models.KindEquipmentSubmission:
		return s.RejectEquipmentSubmission(id, moderatorID, reason)
	}
	return fmt.Errorf("unknown moderation kind %q", kind)
}

// ApproveReview records one moderator's approval of a review. A review needs
// two distinct moderator approvals, or a single admin approval, before it
// flips to approved. Re-approval by the same moderator and approval of an
// already-approved review are safe no-ops reported as already_approved.
func (s *ModerationService) ApproveReview(reviewID uint, moderatorID uint, isAdmin bool) (ApprovalResult, error) {
	var review models.Review
	if err := s.db.First(&review, reviewID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ApprovalResult{}, fmt.Errorf("review %d: %w", reviewID, ErrNotFound)
		}
		return errorResult("Failed to load the review."), err
	}

	if review.Status == models.StatusApproved {
		return ApprovalResult{
			Outcome: models.OutcomeAlreadyApproved,
			Message: "This review has already been fully approved.",
		}, nil
	}
	if review.Status == models.StatusRejected {
		return errorResult("This review was rejected and can no longer be approved."), nil
	}

	// A repeated approval by the same moderator must not count twice.
	var existing models.ReviewApproval
	err := s.db.Where("review_id = ? AND moderator_id = ?", reviewID, moderatorID).First(&existing).Error
	if err == nil {
		return ApprovalResult{
			Outcome: models.OutcomeAlreadyApproved,
			Message: "You have already approved this review.",
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return errorResult("Failed to check existing approvals."), err
	}

	approval := models.ReviewApproval{
		ReviewID:    reviewID,
		ModeratorID: moderatorID,
		IsAdmin:     isAdmin,
	}
	if err := s.db.Create(&approval).Error; err != nil {
		return errorResult("Failed to record the approval."), fmt.Errorf("failed to record approval: %w", err)
	}

	var approvalCount int64
	if err := s.db.Model(&models.ReviewApproval{}).Where("review_id = ?", reviewID).Count(&approvalCount).Error; err != nil {
		return errorResult("Failed to count approvals."), err
	}

	if !isAdmin && approvalCount < 2 {
		s.logAction(moderatorID, "APPROVE", "REVIEW", &reviewID, models.JSONB{"outcome": "first_approval"})
		s.notify(notify.EventReviewFirstApproval, models.JSONB{
			"review_id":    reviewID,
			"equipment_id": review.EquipmentID,
			"moderator_id": moderatorID,
		})
		return ApprovalResult{
			Outcome: models.OutcomeFirstApproval,
			Message: "First approval recorded. One more moderator approval is required.",
		}, nil
	}

	// Second distinct approval, or any admin approval: flip to approved and
	// refresh the equipment's cached rating aggregate in the same transaction.
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Review{}).Where("id = ?", reviewID).
			Update("status", models.StatusApproved).Error; err != nil {
			return fmt.Errorf("failed to update review status: %w", err)
		}
		return recalculateEquipmentRating(tx, review.EquipmentID)
	})
	if err != nil {
		return errorResult("Failed to finalize the approval."), err
	}

	s.logAction(moderatorID, "APPROVE", "REVIEW", &reviewID, models.JSONB{
		"outcome":  "fully_approved",
		"is_admin": isAdmin,
	})
	s.notify(notify.EventReviewApproved, models.JSONB{
		"review_id":    reviewID,
		"equipment_id": review.EquipmentID,
		"moderator_id": moderatorID,
	})

	return ApprovalResult{
		Outcome: models.OutcomeFullyApproved,
		Message: "Review fully approved and now visible on the site.",
	}, nil
}

// RejectReview rejects a pending review, storing the reason as moderator notes.
// Rejecting an entity that is not in a rejectable state fails without mutation.
func (s *ModerationService) RejectReview(reviewID uint, moderatorID uint, reason string) error {
	var review models.Review
	if err := s.db.First(&review, reviewID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("review %d: %w", reviewID, ErrNotFound)
		}
		return err
	}

	if !review.Status.CanReject() {
		return fmt.Errorf("review %d is %s: %w", reviewID, review.Status, ErrAlreadyProcessed)
	}

	updates := map[string]interface{}{"status": models.StatusRejected}
	if reason != "" {
		updates["moderator_notes"] = reason
	}
	if err := s.db.Model(&models.Review{}).Where("id = ?", reviewID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to reject review: %w", err)
	}

	s.logAction(moderatorID, "REJECT", "REVIEW", &reviewID, models.JSONB{"reason": reason})
	s.notify(notify.EventReviewRejected, models.JSONB{
		"review_id":    reviewID,
		"equipment_id": review.EquipmentID,
		"moderator_id": moderatorID,
		"reason":       reason,
	})
	return nil
}

// ApprovePlayerEdit applies the edit's merge patch onto the player profile
// and marks the edit approved, as one transaction. Only the keys present in
// edit_data are written; all other player fields are untouched.
func (s *ModerationService) ApprovePlayerEdit(editID uint, moderatorID uint) (ApprovalResult, error) {
	var edit models.PlayerEdit
	if err := s.db.First(&edit, editID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ApprovalResult{}, fmt.Errorf("player edit %d: %w", editID, ErrNotFound)
		}
		return errorResult("Failed to load the player edit."), err
	}

	if edit.Status == models.StatusApproved {
		return ApprovalResult{
			Outcome: models.OutcomeAlreadyApproved,
			Message: "This player edit has already been approved.",
		}, nil
	}
	if edit.Status == models.StatusRejected {
		return errorResult("This player edit was rejected and can no longer be approved."), nil
	}

	patch := buildPlayerPatch(edit.EditData)
	if len(patch) == 0 {
		return errorResult("The edit contains no editable player fields."), nil
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var player models.Player
		if err := tx.First(&player, edit.PlayerID).Error; err != nil {
			return fmt.Errorf("target player %d not found: %w", edit.PlayerID, err)
		}
		if err := tx.Model(&models.Player{}).Where("id = ?", edit.PlayerID).Updates(patch).Error; err != nil {
			return fmt.Errorf("failed to patch player: %w", err)
		}
		return tx.Model(&models.PlayerEdit{}).Where("id = ?", editID).Updates(map[string]interface{}{
			"status":       models.StatusApproved,
			"moderator_id": moderatorID,
		}).Error
	})
	if err != nil {
		return errorResult("Failed to apply the player edit."), err
	}

	s.logAction(moderatorID, "APPROVE", "PLAYER_EDIT", &editID, models.JSONB{"player_id": edit.PlayerID})
	s.notify(notify.EventPlayerEditApproved, models.JSONB{
		"player_edit_id": editID,
		"player_id":      edit.PlayerID,
		"moderator_id":   moderatorID,
	})

	return ApprovalResult{
		Outcome: models.OutcomeApproved,
		Message: "Player edit approved and applied to the profile.",
	}, nil
}

// RejectPlayerEdit rejects a pending player edit.
func (s *ModerationService) RejectPlayerEdit(editID uint, moderatorID uint, reason string) error {
	var edit models.PlayerEdit
	if err := s.db.First(&edit, editID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("player edit %d: %w", editID, ErrNotFound)
		}
		return err
	}

	if !edit.Status.CanReject() {
		return fmt.Errorf("player edit %d is %s: %w", editID, edit.Status, ErrAlreadyProcessed)
	}

	updates := map[string]interface{}{
		"status":       models.StatusRejected,
		"moderator_id": moderatorID,
	}
	if reason != "" {
		updates["moderator_notes"] = reason
	}
	if err := s.db.Model(&models.PlayerEdit{}).Where("id = ?", editID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to reject player edit: %w", err)
	}

	s.logAction(moderatorID, "REJECT", "PLAYER_EDIT", &editID, models.JSONB{"reason": reason})
	s.notify(notify.EventPlayerEditRejected, models.JSONB{
		"player_edit_id": editID,
		"player_id":      edit.PlayerID,
		"moderator_id":   moderatorID,
		"reason":         reason,
	})
	return nil
}

// ApproveEquipmentSubmission creates a canonical catalog entry from the
// submission and marks the submission approved, as one transaction.
// Category validity was checked at submission time and is not re-validated;
// missing required fields still fail safely before any write.
func (s *ModerationService) ApproveEquipmentSubmission(submissionID uint, moderatorID uint) (ApprovalResult, error) {
	var submission models.EquipmentSubmission
	if err := s.db.First(&submission, submissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ApprovalResult{}, fmt.Errorf("equipment submission %d: %w", submissionID, ErrNotFound)
		}
		return errorResult("Failed to load the equipment submission."), err
	}

	if submission.Status == models.StatusApproved {
		return ApprovalResult{
			Outcome: models.OutcomeAlreadyApproved,
			Message: "This equipment submission has already been approved.",
		}, nil
	}
	if submission.Status == models.StatusRejected {
		return errorResult("This submission was rejected and can no longer be approved."), nil
	}

	if submission.Name == "" || submission.Manufacturer == "" || submission.Category == "" {
		return errorResult("The submission is missing required fields."), nil
	}

	var equipment models.Equipment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		equipment = models.Equipment{
			Name:           submission.Name,
			Manufacturer:   submission.Manufacturer,
			Category:       submission.Category,
			Subcategory:    submission.Subcategory,
			Specifications: submission.Specifications,
		}
		if err := tx.Create(&equipment).Error; err != nil {
			return fmt.Errorf("failed to create equipment: %w", err)
		}
		return tx.Model(&models.EquipmentSubmission{}).Where("id = ?", submissionID).Updates(map[string]interface{}{
			"status":       models.StatusApproved,
			"moderator_id": moderatorID,
		}).Error
	})
	if err != nil {
		return errorResult("Failed to create the catalog entry."), err
	}

	s.logAction(moderatorID, "APPROVE", "EQUIPMENT_SUBMISSION", &submissionID, models.JSONB{
		"equipment_id": equipment.ID,
	})
	s.notify(notify.EventEquipmentApproved, models.JSONB{
		"submission_id": submissionID,
		"equipment_id":  equipment.ID,
		"name":          submission.Name,
		"moderator_id":  moderatorID,
	})

	return ApprovalResult{
		Outcome: models.OutcomeApproved,
		Message: fmt.Sprintf("Submission approved. %q added to the catalog.", submission.Name),
	}, nil
}

// RejectEquipmentSubmission rejects a pending equipment submission.
func (s *ModerationService) RejectEquipmentSubmission(submissionID uint, moderatorID uint, reason string) error {
	var submission models.EquipmentSubmission
	if err := s.db.First(&submission, submissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("equipment submission %d: %w", submissionID, ErrNotFound)
		}
		return err
	}

	if !submission.Status.CanReject() {
		return fmt.Errorf("equipment submission %d is %s: %w", submissionID, submission.Status, ErrAlreadyProcessed)
	}

	updates := map[string]interface{}{
		"status":       models.StatusRejected,
		"moderator_id": moderatorID,
	}
	if reason != "" {
		updates["moderator_notes"] = reason
	}
	if err := s.db.Model(&models.EquipmentSubmission{}).Where("id = ?", submissionID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to reject equipment submission: %w", err)
	}

	s.logAction(moderatorID, "REJECT", "EQUIPMENT_SUBMISSION", &submissionID, models.JSONB{"reason": reason})
	s.notify(notify.EventEquipmentRejected, models.JSONB{
		"submission_id": submissionID,
		"name":          submission.Name,
		"moderator_id":  moderatorID,
		"reason":        reason,
	})
	return nil
}

// ListPendingReviews returns pending reviews, newest first, with the total
// pending count for pagination.
func (s *ModerationService) ListPendingReviews(limit int, offset int) ([]models.Review, int64, error) {
	var reviews []models.Review
	var total int64

	query := s.db.Model(&models.Review{}).Where("status = ?", models.StatusPending)
	query.Count(&total)
	if err := query.Preload("Equipment").Order("created_at DESC").
		Limit(limit).Offset(offset).Find(&reviews).Error; err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}

// ListPendingPlayerEdits returns pending player edits, newest first.
func (s *ModerationService) ListPendingPlayerEdits(limit int, offset int) ([]models.PlayerEdit, int64, error) {
	var edits []models.PlayerEdit
	var total int64

	query := s.db.Model(&models.PlayerEdit{}).Where("status = ?", models.StatusPending)
	query.Count(&total)
	if err := query.Preload("Player").Order("created_at DESC").
		Limit(limit).Offset(offset).Find(&edits).Error; err != nil {
		return nil, 0, err
	}
	return edits, total, nil
}

// ListPendingEquipmentSubmissions returns pending submissions, newest first.
func (s *ModerationService) ListPendingEquipmentSubmissions(limit int, offset int) ([]models.EquipmentSubmission, int64, error) {
	var submissions []models.EquipmentSubmission
	var total int64

	query := s.db.Model(&models.EquipmentSubmission{}).Where("status = ?", models.StatusPending)
	query.Count(&total)
	if err := query.Order("created_at DESC").
		Limit(limit).Offset(offset).Find(&submissions).Error; err != nil {
		return nil, 0, err
	}
	return submissions, total, nil
}

// GetReviewByID returns a review with its equipment summary joined in.
func (s *ModerationService) GetReviewByID(reviewID uint) (*models.Review, error) {
	var review models.Review
	if err := s.db.Preload("Equipment").First(&review, reviewID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("review %d: %w", reviewID, ErrNotFound)
		}
		return nil, err
	}
	return &review, nil
}

// GetPlayerEditByID returns a player edit with its target player joined in.
func (s *ModerationService) GetPlayerEditByID(editID uint) (*models.PlayerEdit, error) {
	var edit models.PlayerEdit
	if err := s.db.Preload("Player").First(&edit, editID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("player edit %d: %w", editID, ErrNotFound)
		}
		return nil, err
	}
	return &edit, nil
}

// GetEquipmentSubmissionByID returns a single equipment submission.
func (s *ModerationService) GetEquipmentSubmissionByID(submissionID uint) (*models.EquipmentSubmission, error) {
	var submission models.EquipmentSubmission
	if err := s.db.First(&submission, submissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("equipment submission %d: %w", submissionID, ErrNotFound)
		}
		return nil, err
	}
	return &submission, nil
}

// GetStats returns pending/approved/rejected/total counts for each family.
func (s *ModerationService) GetStats() (*ModerationStats, error) {
	stats := &ModerationStats{}

	if err := s.countFamily(&models.Review{}, &stats.Reviews); err != nil {
		return nil, err
	}
	if err := s.countFamily(&models.PlayerEdit{}, &stats.PlayerEdits); err != nil {
		return nil, err
	}
	if err := s.countFamily(&models.EquipmentSubmission{}, &stats.EquipmentSubmissions); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *ModerationService) countFamily(model interface{}, out *FamilyStats) error {
	if err := s.db.Model(model).Where("status = ?", models.StatusPending).Count(&out.Pending).Error; err != nil {
		return err
	}
	if err := s.db.Model(model).Where("status = ?", models.StatusApproved).Count(&out.Approved).Error; err != nil {
		return err
	}
	if err := s.db.Model(model).Where("status = ?", models.StatusRejected).Count(&out.Rejected).Error; err != nil {
		return err
	}
	return s.db.Model(model).Count(&out.Total).Error
}

// notify delivers a moderation event. Failures are logged and swallowed;
// they never abort a state transition that already committed.
func (s *ModerationService) notify(event string, payload models.JSONB) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(event, payload); err != nil {
		s.logger.WithError(err).WithField("event", event).Warn("notification delivery failed")
	}
}

// logAction records the moderation action in the audit log. Audit failures
// are logged but do not fail the operation.
func (s *ModerationService) logAction(moderatorID uint, action string, resourceType string, resourceID *uint, details models.JSONB) {
	entry := models.ModerationLog{
		ModeratorID:  moderatorID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
	}
	if err := s.db.Create(&entry).Error; err != nil {
		s.logger.WithError(err).Warn("failed to write moderation log entry")
	}
}

// buildPlayerPatch filters the raw edit data down to the editable player
// columns. JSON-decoded numbers arrive as float64 and are passed through;
// GORM handles the column conversion.
func buildPlayerPatch(editData models.JSONB) map[string]interface{} {
	patch := map[string]interface{}{}
	for key, value := range editData {
		if models.EditablePlayerFields[key] {
			patch[key] = value
		}
	}
	return patch
}

// recalculateEquipmentRating refreshes the cached average rating and review
// count on the equipment row from its approved reviews.
func recalculateEquipmentRating(tx *gorm.DB, equipmentID uint) error {
	var ratings []int
	if err := tx.Model(&models.Review{}).
		Where("equipment_id = ? AND status = ?", equipmentID, models.StatusApproved).
		Pluck("overall_rating", &ratings).Error; err != nil {
		return fmt.Errorf("failed to load approved ratings: %w", err)
	}

	average := decimal.Zero
	if len(ratings) > 0 {
		sum := decimal.Zero
		for _, r := range ratings {
			sum = sum.Add(decimal.NewFromInt(int64(r)))
		}
		average = sum.Div(decimal.NewFromInt(int64(len(ratings)))).Round(2)
	}

	return tx.Model(&models.Equipment{}).Where("id = ?", equipmentID).Updates(map[string]interface{}{
		"average_rating": average,
		"review_count":   len(ratings),
	}).Error
}

func errorResult(message string) ApprovalResult {
	return ApprovalResult{Outcome: models.OutcomeError, Message: message}
}
