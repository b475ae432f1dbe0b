package handlers

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tabletennis-reviews/internal/models"
	"tabletennis-reviews/internal/notify"
	"tabletennis-reviews/internal/services"
)

func setupHandlerTestDB(t *testing.T) *gorm.DB {
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

	for _, table := range []string{
		"moderation_logs", "review_approvals", "reviews", "player_edits",
		"equipment_submissions", "moderators", "players", "equipment", "users",
	} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			t.Fatalf("failed to clean table %s: %v", table, err)
		}
	}
	return db
}

func newDiscordTestRouter(t *testing.T, db *gorm.DB, publicKeyHex string, allowedRoles []string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	moderationService := services.NewModerationService(db, notify.NewMemory(), nil)
	moderatorService := services.NewModeratorService(db, nil)

	handler, err := NewDiscordHandler(moderationService, moderatorService, publicKeyHex, allowedRoles, nil)
	if err != nil {
		t.Fatalf("failed to create discord handler: %v", err)
	}

	router := gin.New()
	router.POST("/discord/interactions", handler.HandleInteraction)
	return router
}

func TestParseCustomID(t *testing.T) {
	cases := []struct {
		customID string
		action   string
		kind     models.Kind
		id       uint
		wantErr  bool
	}{
		{"approve_review:42", "approve", models.KindReview, 42, false},
		{"reject_review:7", "reject", models.KindReview, 7, false},
		{"approve_player_edit:3", "approve", models.KindPlayerEdit, 3, false},
		{"reject_equipment_submission:12", "reject", models.KindEquipmentSubmission, 12, false},
		{"approve_review", "", "", 0, true},
		{"delete_review:1", "", "", 0, true},
		{"approve_tournament:1", "", "", 0, true},
		{"approve_review:abc", "", "", 0, true},
		{"", "", "", 0, true},
	}

	for _, tc := range cases {
		action, kind, id, err := parseCustomID(tc.customID)
		if tc.wantErr {
			if err == nil {
				t.Errorf("%q: expected error, got action=%s kind=%s id=%d", tc.customID, action, kind, id)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error: %v", tc.customID, err)
			continue
		}
		if action != tc.action || kind != tc.kind || id != tc.id {
			t.Errorf("%q: got (%s, %s, %d), want (%s, %s, %d)",
				tc.customID, action, kind, id, tc.action, tc.kind, tc.id)
		}
	}
}

func TestAuthorizeRoles(t *testing.T) {
	h := &DiscordHandler{allowedRoleIDs: []string{"111", "222"}}
	if !h.authorizeRoles([]string{"999", "222"}) {
		t.Error("member with an allowed role should be authorized")
	}
	if h.authorizeRoles([]string{"999"}) {
		t.Error("member without an allowed role should be denied")
	}

	// Empty allow-list is permissive
	open := &DiscordHandler{}
	if !open.authorizeRoles(nil) {
		t.Error("empty allow-list should permit any caller")
	}
}

func TestInteractionPingSignature(t *testing.T) {
	db := setupHandlerTestDB(t)

	publicKey, privateKey, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	router := newDiscordTestRouter(t, db, hex.EncodeToString(publicKey), nil)

	body := []byte(`{"type":1}`)
	timestamp := "1700000000"
	signature := ed25519.Sign(privateKey, append([]byte(timestamp), body...))

	req := httptest.NewRequest(http.MethodPost, "/discord/interactions", bytes.NewReader(body))
	req.Header.Set("X-Signature-Ed25519", hex.EncodeToString(signature))
	req.Header.Set("X-Signature-Timestamp", timestamp)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Type int `json:"type"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp.Type != responsePong {
		t.Errorf("expected pong response, got type %d", resp.Type)
	}

	// A tampered body must be rejected
	req = httptest.NewRequest(http.MethodPost, "/discord/interactions", strings.NewReader(`{"type":1,"x":1}`))
	req.Header.Set("X-Signature-Ed25519", hex.EncodeToString(signature))
	req.Header.Set("X-Signature-Timestamp", timestamp)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for invalid signature, got %d", w.Code)
	}
}

func TestInteractionApproveButton(t *testing.T) {
	db := setupHandlerTestDB(t)

	// Linked admin moderator pressing an approve button
	user := models.User{Email: "mod@example.com", PasswordHash: "x", DisplayName: "Mod"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	discordID := "5550001"
	moderator := models.Moderator{UserID: user.ID, Role: models.RoleAdmin, DiscordID: &discordID}
	if err := db.Create(&moderator).Error; err != nil {
		t.Fatalf("failed to create moderator: %v", err)
	}

	submission := models.EquipmentSubmission{
		SubmitterID:  user.ID,
		Name:         "Hurricane 3",
		Manufacturer: "DHS",
		Category:     models.CategoryRubber,
		Subcategory:  models.SubcategoryInverted,
		Status:       models.StatusPending,
	}
	if err := db.Create(&submission).Error; err != nil {
		t.Fatalf("failed to create submission: %v", err)
	}

	// No public key configured: signature verification is skipped
	router := newDiscordTestRouter(t, db, "", nil)

	interaction := fmt.Sprintf(`{
		"type": 3,
		"data": {"custom_id": "approve_equipment_submission:%d"},
		"member": {"roles": [], "user": {"id": %q, "username": "mod"}}
	}`, submission.ID, discordID)

	req := httptest.NewRequest(http.MethodPost, "/discord/interactions", strings.NewReader(interaction))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Hurricane 3") {
		t.Errorf("expected approval confirmation naming the equipment, got %s", w.Body.String())
	}

	var reloaded models.EquipmentSubmission
	db.First(&reloaded, submission.ID)
	if reloaded.Status != models.StatusApproved {
		t.Errorf("submission should be approved, got %s", reloaded.Status)
	}

	var created models.Equipment
	if err := db.Where("name = ?", "Hurricane 3").First(&created).Error; err != nil {
		t.Errorf("approved submission should create a catalog entry: %v", err)
	}
}

func TestInteractionUnknownModerator(t *testing.T) {
	db := setupHandlerTestDB(t)
	router := newDiscordTestRouter(t, db, "", nil)

	interaction := `{
		"type": 3,
		"data": {"custom_id": "approve_review:1"},
		"member": {"roles": [], "user": {"id": "404404", "username": "stranger"}}
	}`

	req := httptest.NewRequest(http.MethodPost, "/discord/interactions", strings.NewReader(interaction))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("interaction responses always return 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "not linked") {
		t.Errorf("expected unlinked-account message, got %s", w.Body.String())
	}
}

func TestInteractionRoleAllowList(t *testing.T) {
	db := setupHandlerTestDB(t)
	router := newDiscordTestRouter(t, db, "", []string{"role-mods"})

	interaction := `{
		"type": 3,
		"data": {"custom_id": "approve_review:1"},
		"member": {"roles": ["role-users"], "user": {"id": "5550001", "username": "mod"}}
	}`

	req := httptest.NewRequest(http.MethodPost, "/discord/interactions", strings.NewReader(interaction))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("interaction responses always return 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "moderation role") {
		t.Errorf("expected role denial message, got %s", w.Body.String())
	}
}
