package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wricardo/skytrack/game/config"
	"github.com/wricardo/skytrack/game/engine"
	"github.com/wricardo/skytrack/game/service"
)

func newTestSession(t *testing.T, id string, rules *engine.Rules) *service.Session {
	t.Helper()
	eng, err := engine.NewEngine(rules)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return &service.Session{
		ID:             id,
		ConfigName:     "classic",
		ScreenName:     "maverick",
		PlayerID:       7,
		GameID:         42,
		Rules:          rules,
		Engine:         eng,
		CreatedAt:      time.Now().Truncate(time.Second),
		LastAccessedAt: time.Now().Truncate(time.Second),
	}
}

func TestFilePersistence(t *testing.T) {
	tempDir := t.TempDir()

	configManager, err := config.NewManager("../../configs")
	if err != nil {
		t.Fatalf("Failed to create config manager: %v", err)
	}

	persistence, err := NewFilePersistence(tempDir, configManager)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}

	rules := configManager.GetDefault()
	session := newTestSession(t, "test1", rules)

	t.Run("Save and Load Session", func(t *testing.T) {
		if err := persistence.Save(session); err != nil {
			t.Fatalf("Failed to save session: %v", err)
		}
		if !persistence.Exists("test1") {
			t.Error("Session file should exist after save")
		}

		loaded, err := persistence.Load("test1")
		if err != nil {
			t.Fatalf("Failed to load session: %v", err)
		}
		if loaded.ID != session.ID || loaded.PlayerID != 7 || loaded.GameID != 42 {
			t.Errorf("Unexpected loaded session: %+v", loaded)
		}
		if loaded.ScreenName != "maverick" || loaded.ConfigName != "classic" {
			t.Errorf("Expected screen name and config to survive, got %+v", loaded)
		}
		if loaded.Rules.StartingFuel != rules.StartingFuel || loaded.Engine == nil {
			t.Errorf("Expected rules and engine restored, got %+v", loaded.Rules)
		}
		if !loaded.CreatedAt.Equal(session.CreatedAt) {
			t.Errorf("Expected created at %v, got %v", session.CreatedAt, loaded.CreatedAt)
		}
	})

	t.Run("Rules Travel With The Session", func(t *testing.T) {
		custom := engine.DefaultRules()
		custom.Name = "Custom"
		custom.StartingFuel = 900
		persistence.Save(newTestSession(t, "custom", custom))

		loaded, err := persistence.Load("custom")
		if err != nil {
			t.Fatal(err)
		}
		if loaded.Rules.StartingFuel != 900 {
			t.Errorf("Expected stored rules to win over config files, got %v", loaded.Rules.StartingFuel)
		}
	})

	t.Run("Legacy File Falls Back To Config", func(t *testing.T) {
		legacy := `{"id":"old1","config_name":"classic","screen_name":"goose","player_id":3,"game_id":4}`
		if err := os.WriteFile(filepath.Join(tempDir, "old1.json"), []byte(legacy), 0644); err != nil {
			t.Fatal(err)
		}

		loaded, err := persistence.Load("old1")
		if err != nil {
			t.Fatalf("Failed to load legacy session: %v", err)
		}
		if loaded.Rules == nil || loaded.Rules.Name != rules.Name {
			t.Errorf("Expected classic rules from config manager, got %+v", loaded.Rules)
		}
	})

	t.Run("List All Sessions", func(t *testing.T) {
		os.Mkdir(filepath.Join(tempDir, "subdir"), 0755)
		os.WriteFile(filepath.Join(tempDir, "notes.txt"), []byte("ignore"), 0644)

		ids, err := persistence.ListAll()
		if err != nil {
			t.Fatalf("ListAll failed: %v", err)
		}
		found := map[string]bool{}
		for _, id := range ids {
			found[id] = true
		}
		for _, want := range []string{"test1", "custom", "old1"} {
			if !found[want] {
				t.Errorf("Expected %s in %v", want, ids)
			}
		}
		if len(ids) != 3 {
			t.Errorf("Expected only session files listed, got %v", ids)
		}
	})

	t.Run("Delete Session", func(t *testing.T) {
		if err := persistence.Delete("test1"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if persistence.Exists("test1") {
			t.Error("Session file should be gone")
		}
		if err := persistence.Delete("test1"); err != ErrSessionNotFound {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
		if _, err := persistence.Load("test1"); err != ErrSessionNotFound {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("Corrupted File", func(t *testing.T) {
		os.WriteFile(filepath.Join(tempDir, "bad.json"), []byte("{not json"), 0644)
		if _, err := persistence.Load("bad"); err == nil {
			t.Error("Expected error loading corrupted file")
		}
	})

	t.Run("Path Traversal", func(t *testing.T) {
		if persistence.Exists("../escape") {
			t.Error("Expected traversal id to be rejected")
		}
		if _, err := persistence.Load("../escape"); err != ErrInvalidSessionID {
			t.Errorf("Expected ErrInvalidSessionID, got %v", err)
		}
		if err := persistence.Save(newTestSession(t, "a/b", rules)); err != ErrInvalidSessionID {
			t.Errorf("Expected ErrInvalidSessionID, got %v", err)
		}
	})

	t.Run("Nil Session", func(t *testing.T) {
		if err := persistence.Save(nil); err == nil {
			t.Error("Expected error saving nil session")
		}
	})
}
