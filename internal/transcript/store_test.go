package transcript

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/relaydesk/relaydesk/pkg/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "transcripts.db"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestArchiveAndReadBack(t *testing.T) {
	s := openTestStore(t)
	room := models.Room{RoomID: "r1", SessionID: "42", UserName: "Alice"}
	msgs := []models.Message{
		{Role: models.RoleUser, Content: "hi", Timestamp: "t1"},
		{Role: models.RoleAgent, Content: "hello, how can I help", Timestamp: "t2"},
	}

	if err := s.ArchiveRoom(room, msgs); err != nil {
		t.Fatalf("ArchiveRoom: %v", err)
	}

	visits, err := s.Visits(context.Background(), "r1")
	if err != nil {
		t.Fatalf("Visits: %v", err)
	}
	if len(visits) != 1 {
		t.Fatalf("got %d visits, want 1", len(visits))
	}
	v := visits[0]
	if v.SessionID != "42" || v.UserName != "Alice" || v.ArchivedAt == "" {
		t.Errorf("visit = %+v", v)
	}
	if len(v.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(v.Messages))
	}
	if v.Messages[0].Content != "hi" || v.Messages[1].Role != models.RoleAgent {
		t.Errorf("messages out of order: %+v", v.Messages)
	}
}

func TestRepeatedVisitsStaySeparate(t *testing.T) {
	s := openTestStore(t)
	room := models.Room{RoomID: "r1"}

	if err := s.ArchiveRoom(room, []models.Message{{Role: models.RoleUser, Content: "first"}}); err != nil {
		t.Fatalf("ArchiveRoom: %v", err)
	}
	if err := s.ArchiveRoom(room, []models.Message{{Role: models.RoleUser, Content: "second"}}); err != nil {
		t.Fatalf("ArchiveRoom: %v", err)
	}

	visits, err := s.Visits(context.Background(), "r1")
	if err != nil {
		t.Fatalf("Visits: %v", err)
	}
	if len(visits) != 2 {
		t.Fatalf("got %d visits, want 2", len(visits))
	}
	if visits[0].Messages[0].Content != "first" || visits[1].Messages[0].Content != "second" {
		t.Errorf("visit ordering wrong: %+v", visits)
	}
}

func TestEmptyTranscript(t *testing.T) {
	s := openTestStore(t)
	if err := s.ArchiveRoom(models.Room{RoomID: "r1"}, nil); err != nil {
		t.Fatalf("ArchiveRoom with no messages: %v", err)
	}
	visits, err := s.Visits(context.Background(), "r1")
	if err != nil {
		t.Fatalf("Visits: %v", err)
	}
	if len(visits) != 1 || len(visits[0].Messages) != 0 {
		t.Errorf("visits = %+v", visits)
	}
}

func TestVisitsUnknownRoom(t *testing.T) {
	s := openTestStore(t)
	visits, err := s.Visits(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("Visits: %v", err)
	}
	if len(visits) != 0 {
		t.Errorf("got %d visits for unknown room", len(visits))
	}
}
