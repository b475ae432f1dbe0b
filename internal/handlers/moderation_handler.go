package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tabletennis-reviews/internal/models"
	"tabletennis-reviews/internal/services"
)

// ModerationHandler is the authenticated HTTP admin surface over the
// moderation engine. Authorization happens here; the engine assumes the
// acting moderator has already been verified.
type ModerationHandler struct {
	moderationService *services.ModerationService
	moderatorService  *services.ModeratorService
}

// NewModerationHandler creates a new ModerationHandler
func NewModerationHandler(moderationService *services.ModerationService, moderatorService *services.ModeratorService) *ModerationHandler {
	return &ModerationHandler{
		moderationService: moderationService,
		moderatorService:  moderatorService,
	}
}

// ModeratorMiddleware checks that the authenticated user is a moderator
func (h *ModerationHandler) ModeratorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		moderator, err := h.moderatorService.GetByUserID(userID.(uint))
		if err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not a moderator"})
			c.Abort()
			return
		}

		c.Set("moderator_id", moderator.ID)
		c.Set("moderator_role", moderator.Role)
		c.Set("is_admin", moderator.IsAdmin())
		c.Next()
	}
}

// AdminMiddleware restricts a route to full admins
func (h *ModerationHandler) AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("moderator_role")
		if !exists || role != models.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// parseKind maps the URL segment to a moderation kind
func parseKind(segment string) (models.Kind, bool) {
	switch segment {
	case "reviews":
		return models.KindReview, true
	case "player-edits":
		return models.KindPlayerEdit, true
	case "equipment-submissions":
		return models.KindEquipmentSubmission, true
	}
	return "", false
}

// ListPending returns the pending queue for one entity family
func (h *ModerationHandler) ListPending(c *gin.Context) {
	kind, ok := parseKind(c.Param("kind"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown moderation kind"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	var data interface{}
	var total int64
	var err error

	switch kind {
	case models.KindReview:
		data, total, err = h.moderationService.ListPendingReviews(limit, offset)
	case models.KindPlayerEdit:
		data, total, err = h.moderationService.ListPendingPlayerEdits(limit, offset)
	case models.KindEquipmentSubmission:
		data, total, err = h.moderationService.ListPendingEquipmentSubmissions(limit, offset)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch pending items"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// Get returns one moderated entity by id
func (h *ModerationHandler) Get(c *gin.Context) {
	kind, ok := parseKind(c.Param("kind"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown moderation kind"})
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return
	}

	var data interface{}
	switch kind {
	case models.KindReview:
		data, err = h.moderationService.GetReviewByID(uint(id))
	case models.KindPlayerEdit:
		data, err = h.moderationService.GetPlayerEditByID(uint(id))
	case models.KindEquipmentSubmission:
		data, err = h.moderationService.GetEquipmentSubmissionByID(uint(id))
	}
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch item"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// Approve records an approval by the acting moderator
func (h *ModerationHandler) Approve(c *gin.Context) {
	kind, ok := parseKind(c.Param("kind"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown moderation kind"})
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return
	}

	moderatorID := c.GetUint("moderator_id")
	isAdmin := c.GetBool("is_admin")

	result, err := h.moderationService.Approve(kind, uint(id), moderatorID, isAdmin)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   result.Message,
			"outcome": result.Outcome,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": result.Outcome != models.OutcomeError,
		"outcome": result.Outcome,
		"message": result.Message,
	})
}

// Reject rejects a pending entity, with an optional reason
func (h *ModerationHandler) Reject(c *gin.Context) {
	kind, ok := parseKind(c.Param("kind"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown moderation kind"})
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	// Body is optional for rejections
	_ = c.ShouldBindJSON(&req)

	moderatorID := c.GetUint("moderator_id")

	if err := h.moderationService.Reject(kind, uint(id), moderatorID, req.Reason); err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		case errors.Is(err, services.ErrAlreadyProcessed):
			c.JSON(http.StatusConflict, gin.H{"error": "Item has already been processed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reject item"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Item rejected",
	})
}

// GetStats returns the moderation dashboard counters
func (h *ModerationHandler) GetStats(c *gin.Context) {
	stats, err := h.moderationService.GetStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
	})
}

// GetLogs returns moderation activity logs
func (h *ModerationHandler) GetLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	logs, err := h.moderatorService.GetLogs(limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    logs,
		"count":   len(logs),
	})
}

// PromoteModerator grants a user a moderation role (admin only)
func (h *ModerationHandler) PromoteModerator(c *gin.Context) {
	moderatorID := c.GetUint("moderator_id")

	var req struct {
		UserID    uint   `json:"user_id" binding:"required"`
		Role      string `json:"role" binding:"required"`
		DiscordID string `json:"discord_id"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Role != models.RoleAdmin && req.Role != models.RoleModerator {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
		return
	}

	moderator, err := h.moderatorService.Promote(req.UserID, req.Role, req.DiscordID, moderatorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    moderator,
	})
}
