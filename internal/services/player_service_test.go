package services

import (
	"errors"
	"testing"

	"tabletennis-reviews/internal/models"
)

func TestSubmitEditFiltersUnknownFields(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(t, db)
	service := NewPlayerService(db, nil)

	player := models.Player{Name: "Timo Boll", BirthCountry: "Germany"}
	if err := db.Create(&player).Error; err != nil {
		t.Fatalf("failed to create player: %v", err)
	}

	edit, err := service.SubmitEdit(player.ID, 1, map[string]interface{}{
		"playing_style": "left-handed looper",
		"shoe_size":     44, // not an editable player field
	})
	if err != nil {
		t.Fatalf("SubmitEdit failed: %v", err)
	}

	if _, ok := edit.EditData["playing_style"]; !ok {
		t.Error("editable field was dropped")
	}
	if _, ok := edit.EditData["shoe_size"]; ok {
		t.Error("unknown field should have been filtered out")
	}
}

func TestSubmitEditNoEditableFields(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(t, db)
	service := NewPlayerService(db, nil)

	player := models.Player{Name: "Ma Long"}
	if err := db.Create(&player).Error; err != nil {
		t.Fatalf("failed to create player: %v", err)
	}

	_, err := service.SubmitEdit(player.ID, 1, map[string]interface{}{"favorite_food": "noodles"})
	if !errors.Is(err, ErrNoEditableFields) {
		t.Errorf("expected ErrNoEditableFields, got %v", err)
	}
}

func TestSubmitEditUnknownPlayer(t *testing.T) {
	db := setupTestDB(t)
	cleanTables(t, db)
	service := NewPlayerService(db, nil)

	_, err := service.SubmitEdit(9999, 1, map[string]interface{}{"name": "Nobody"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
