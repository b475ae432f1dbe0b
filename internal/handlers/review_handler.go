package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tabletennis-reviews/internal/auth"
	"tabletennis-reviews/internal/services"
)

// ReviewHandler handles review submission and reads
type ReviewHandler struct {
	reviewService *services.ReviewService
}

// NewReviewHandler creates a new ReviewHandler
func NewReviewHandler(reviewService *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

// Create submits a new review for moderation
func (h *ReviewHandler) Create(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		EquipmentID     uint              `json:"equipment_id" binding:"required"`
		OverallRating   int               `json:"overall_rating" binding:"required"`
		CategoryRatings map[string]int    `json:"category_ratings"`
		Body            string            `json:"body"`
		ReviewerContext map[string]string `json:"reviewer_context"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	review, err := h.reviewService.Create(userID, services.ReviewInput{
		EquipmentID:     req.EquipmentID,
		OverallRating:   req.OverallRating,
		CategoryRatings: req.CategoryRatings,
		Body:            req.Body,
		ReviewerContext: req.ReviewerContext,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRatingOutOfRange):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrDuplicateReview):
			c.JSON(http.StatusConflict, gin.H{"error": "You have already reviewed this equipment"})
		case errors.Is(err, services.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Equipment not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create review"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    review,
	})
}

// ListByEquipment returns approved reviews for an equipment page
func (h *ReviewHandler) ListByEquipment(c *gin.Context) {
	equipmentID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid equipment ID"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	reviews, total, err := h.reviewService.ListApprovedByEquipment(uint(equipmentID), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reviews"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    reviews,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// ListMine returns the authenticated user's reviews, any status
func (h *ReviewHandler) ListMine(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	reviews, err := h.reviewService.ListByUser(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reviews"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    reviews,
		"count":   len(reviews),
	})
}
