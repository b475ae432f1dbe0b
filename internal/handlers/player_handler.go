package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tabletennis-reviews/internal/auth"
	"tabletennis-reviews/internal/services"
)

// PlayerHandler handles player profiles and edit proposals
type PlayerHandler struct {
	playerService *services.PlayerService
}

// NewPlayerHandler creates a new PlayerHandler
func NewPlayerHandler(playerService *services.PlayerService) *PlayerHandler {
	return &PlayerHandler{playerService: playerService}
}

// List returns player profiles with optional name search
func (h *PlayerHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	search := c.Query("search")

	players, total, err := h.playerService.List(search, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch players"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    players,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// Get returns one player profile
func (h *PlayerHandler) Get(c *gin.Context) {
	playerID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid player ID"})
		return
	}

	player, err := h.playerService.GetByID(uint(playerID))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Player not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch player"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    player,
	})
}

// SubmitEdit accepts a proposed change to a player profile for moderation
func (h *PlayerHandler) SubmitEdit(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	playerID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid player ID"})
		return
	}

	var req struct {
		EditData map[string]interface{} `json:"edit_data" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	edit, err := h.playerService.SubmitEdit(uint(playerID), userID, req.EditData)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Player not found"})
		case errors.Is(err, services.ErrNoEditableFields):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Edit contains no editable player fields"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create edit"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    edit,
	})
}
