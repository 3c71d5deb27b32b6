package store

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/huddle/internal/model"
	"github.com/roach88/huddle/internal/session"
)

var testTime = time.Date(2026, 9, 12, 9, 30, 0, 123456789, time.UTC)

// createTestStore creates a new temp-file store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSnapshot builds a session with one offensive play and a live selection.
func createTestSnapshot(t *testing.T) session.Snapshot {
	t.Helper()
	s := session.Start("sess-1", model.GameMeta{GameID: "game-1", Opponent: "Hawks"}, []model.PlayerRef{
		{ID: "5", Jersey: 5, Name: "Ava", Eligible: true},
		{ID: "11", Jersey: 11, Eligible: true},
		{ID: "70", Jersey: 70, Eligible: false},
	}, testTime)
	if err := s.Select("5"); err != nil {
		t.Fatalf("Select() failed: %v", err)
	}
	s.RecordPlay(model.ResultRun, map[string]string{"yards": "7"}, "key-1", testTime)
	if err := s.Select("11"); err != nil {
		t.Fatalf("Select() failed: %v", err)
	}
	return s.Snapshot()
}

// createTestAction creates a pending action with a JSON payload.
func createTestAction(id string, retries int) model.OfflineAction {
	return model.OfflineAction{
		ID:         id,
		Type:       model.ActionCreate,
		Entity:     model.EntityPlay,
		Payload:    json.RawMessage(`{"key":"` + id + `"}`),
		EnqueuedAt: testTime,
		Retries:    retries,
	}
}
