package handlers

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"tabletennis-reviews/internal/models"
	"tabletennis-reviews/internal/services"
)

// Discord interaction and response type constants, per the interactions API.
const (
	interactionPing             = 1
	interactionMessageComponent = 3

	responsePong           = 1
	responseChannelMessage = 4

	// messageFlagEphemeral makes the reply visible only to the clicking moderator.
	messageFlagEphemeral = 64
)

// discordInteraction is the subset of the interaction payload we consume.
type discordInteraction struct {
	Type int `json:"type"`
	Data struct {
		CustomID string `json:"custom_id"`
	} `json:"data"`
	Member struct {
		Roles []string `json:"roles"`
		User  struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"user"`
	} `json:"member"`
}

// DiscordHandler handles moderation button callbacks from Discord. It
// independently authenticates the request (ed25519 signature), derives the
// acting moderator from the Discord user id, and authorizes against the
// configured role allow-list before invoking the same engine operations the
// HTTP admin surface uses.
type DiscordHandler struct {
	moderationService *services.ModerationService
	moderatorService  *services.ModeratorService
	publicKey         ed25519.PublicKey
	allowedRoleIDs    []string
	logger            *logrus.Logger
}

// NewDiscordHandler creates a new DiscordHandler. publicKeyHex is the
// application public key from the Discord developer portal; an empty
// allow-list permits any Discord member to press moderation buttons.
func NewDiscordHandler(moderationService *services.ModerationService, moderatorService *services.ModeratorService,
	publicKeyHex string, allowedRoleIDs []string, logger *logrus.Logger) (*DiscordHandler, error) {

	if logger == nil {
		logger = logrus.New()
	}

	var publicKey ed25519.PublicKey
	if publicKeyHex != "" {
		decoded, err := hex.DecodeString(publicKeyHex)
		if err != nil || len(decoded) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("invalid discord public key")
		}
		publicKey = ed25519.PublicKey(decoded)
	}

	if len(allowedRoleIDs) == 0 {
		logger.Warn("discord moderator role allow-list is empty; any member may trigger moderation actions")
	}

	return &DiscordHandler{
		moderationService: moderationService,
		moderatorService:  moderatorService,
		publicKey:         publicKey,
		allowedRoleIDs:    allowedRoleIDs,
		logger:            logger,
	}, nil
}

// HandleInteraction is the POST /discord/interactions endpoint
func (h *DiscordHandler) HandleInteraction(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	if !h.verifySignature(c, body) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid request signature"})
		return
	}

	var interaction discordInteraction
	if err := json.Unmarshal(body, &interaction); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid interaction payload"})
		return
	}

	switch interaction.Type {
	case interactionPing:
		c.JSON(http.StatusOK, gin.H{"type": responsePong})
	case interactionMessageComponent:
		h.handleComponent(c, &interaction)
	default:
		respondMessage(c, "Unsupported interaction type.")
	}
}

// verifySignature checks the ed25519 signature headers against the raw body.
// With no public key configured (local development) verification is skipped.
func (h *DiscordHandler) verifySignature(c *gin.Context, body []byte) bool {
	if h.publicKey == nil {
		return true
	}

	signatureHex := c.GetHeader("X-Signature-Ed25519")
	timestamp := c.GetHeader("X-Signature-Timestamp")
	if signatureHex == "" || timestamp == "" {
		return false
	}

	signature, err := hex.DecodeString(signatureHex)
	if err != nil || len(signature) != ed25519.SignatureSize {
		return false
	}

	message := append([]byte(timestamp), body...)
	return ed25519.Verify(h.publicKey, message, signature)
}

func (h *DiscordHandler) handleComponent(c *gin.Context, interaction *discordInteraction) {
	action, kind, id, err := parseCustomID(interaction.Data.CustomID)
	if err != nil {
		respondMessage(c, "Unrecognized moderation button.")
		return
	}

	if !h.authorizeRoles(interaction.Member.Roles) {
		respondMessage(c, "You do not have a moderation role in this server.")
		return
	}

	moderator, err := h.moderatorService.GetByDiscordID(interaction.Member.User.ID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			respondMessage(c, "Your Discord account is not linked to a moderator account.")
			return
		}
		h.logger.WithError(err).Error("failed to resolve discord moderator")
		respondMessage(c, "Something went wrong while resolving your moderator account.")
		return
	}

	switch action {
	case "approve":
		result, err := h.moderationService.Approve(kind, id, moderator.ID, moderator.IsAdmin())
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				respondMessage(c, "That item no longer exists.")
				return
			}
			h.logger.WithError(err).WithFields(logrus.Fields{"kind": kind, "id": id}).Error("discord approval failed")
			respondMessage(c, "The approval could not be completed. Please retry from the dashboard.")
			return
		}
		respondMessage(c, outcomeMessage(result))
	case "reject":
		err := h.moderationService.Reject(kind, id, moderator.ID, "")
		switch {
		case err == nil:
			respondMessage(c, "🚫 Rejected.")
		case errors.Is(err, services.ErrNotFound):
			respondMessage(c, "That item no longer exists.")
		case errors.Is(err, services.ErrAlreadyProcessed):
			respondMessage(c, "That item has already been processed.")
		default:
			h.logger.WithError(err).WithFields(logrus.Fields{"kind": kind, "id": id}).Error("discord rejection failed")
			respondMessage(c, "The rejection could not be completed. Please retry from the dashboard.")
		}
	default:
		respondMessage(c, "Unrecognized moderation action.")
	}
}

// authorizeRoles checks the member's roles against the allow-list. An empty
// allow-list permits everyone.
func (h *DiscordHandler) authorizeRoles(memberRoles []string) bool {
	if len(h.allowedRoleIDs) == 0 {
		return true
	}
	for _, allowed := range h.allowedRoleIDs {
		for _, role := range memberRoles {
			if role == allowed {
				return true
			}
		}
	}
	return false
}

// parseCustomID decodes button ids of the form
// "<approve|reject>_<review|player_edit|equipment_submission>:<id>".
func parseCustomID(customID string) (action string, kind models.Kind, id uint, err error) {
	base, idPart, found := strings.Cut(customID, ":")
	if !found {
		return "", "", 0, fmt.Errorf("malformed custom id %q", customID)
	}

	action, kindPart, found := strings.Cut(base, "_")
	if !found {
		return "", "", 0, fmt.Errorf("malformed custom id %q", customID)
	}
	if action != "approve" && action != "reject" {
		return "", "", 0, fmt.Errorf("unknown action %q", action)
	}

	switch models.Kind(kindPart) {
	case models.KindReview, models.KindPlayerEdit, models.KindEquipmentSubmission:
		kind = models.Kind(kindPart)
	default:
		return "", "", 0, fmt.Errorf("unknown kind %q", kindPart)
	}

	parsed, err := strconv.ParseUint(idPart, 10, 32)
	if err != nil {
		return "", "", 0, fmt.Errorf("invalid id %q", idPart)
	}

	return action, kind, uint(parsed), nil
}

// outcomeMessage renders distinct channel wording per approval outcome so a
// moderator watching the channel can follow workflow state.
func outcomeMessage(result services.ApprovalResult) string {
	switch result.Outcome {
	case models.OutcomeFirstApproval:
		return "☑️ " + result.Message
	case models.OutcomeFullyApproved, models.OutcomeApproved:
		return "✅ " + result.Message
	case models.OutcomeAlreadyApproved:
		return "ℹ️ " + result.Message
	default:
		return "⚠️ " + result.Message
	}
}

func respondMessage(c *gin.Context, content string) {
	c.JSON(http.StatusOK, gin.H{
		"type": responseChannelMessage,
		"data": gin.H{
			"content": content,
			"flags":   messageFlagEphemeral,
		},
	})
}
