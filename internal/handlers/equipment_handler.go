package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tabletennis-reviews/internal/auth"
	"tabletennis-reviews/internal/services"
)

// EquipmentHandler handles the public catalog and equipment submissions
type EquipmentHandler struct {
	equipmentService *services.EquipmentService
	reviewService    *services.ReviewService
}

// NewEquipmentHandler creates a new EquipmentHandler
func NewEquipmentHandler(equipmentService *services.EquipmentService, reviewService *services.ReviewService) *EquipmentHandler {
	return &EquipmentHandler{equipmentService: equipmentService, reviewService: reviewService}
}

// List returns catalog entries with optional filtering
func (h *EquipmentHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	category := c.Query("category")
	search := c.Query("search")

	equipment, total, err := h.equipmentService.List(category, search, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch equipment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    equipment,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// Get returns one catalog entry with its approved reviews
func (h *EquipmentHandler) Get(c *gin.Context) {
	equipmentID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid equipment ID"})
		return
	}

	equipment, err := h.equipmentService.GetByID(uint(equipmentID))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Equipment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch equipment"})
		return
	}

	reviews, reviewTotal, err := h.reviewService.ListApprovedByEquipment(uint(equipmentID), 20, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reviews"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"equipment":    equipment,
			"reviews":      reviews,
			"review_total": reviewTotal,
		},
	})
}

// Submit accepts a new equipment submission for moderation
func (h *EquipmentHandler) Submit(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		Name           string                 `json:"name" binding:"required"`
		Manufacturer   string                 `json:"manufacturer" binding:"required"`
		Category       string                 `json:"category" binding:"required"`
		Subcategory    string                 `json:"subcategory"`
		Specifications map[string]interface{} `json:"specifications"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	submission, err := h.equipmentService.Submit(userID, services.EquipmentSubmissionInput{
		Name:           req.Name,
		Manufacturer:   req.Manufacturer,
		Category:       req.Category,
		Subcategory:    req.Subcategory,
		Specifications: req.Specifications,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidCategory) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create submission"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    submission,
	})
}
