package transport

import (
	"testing"

	"github.com/relaydesk/relaydesk/internal/events"
	"github.com/relaydesk/relaydesk/pkg/models"
)

func TestDecodeFrameEscalationPending(t *testing.T) {
	raw := []byte(`{"event":"escalation_pending","data":{
		"roomId":"room_abc","sessionId":12,"userName":"alice",
		"status":"escalated","priority":"high","reason":"billing dispute",
		"createdAt":"2025-01-01T10:00:00Z","escalationId":7,
		"uniqueKey":"escalation_7"}}`)

	ev, err := decodeFrame(raw)
	if err != nil {
		t.Fatalf("decodeFrame() error = %v", err)
	}
	push, ok := ev.(events.EscalationPending)
	if !ok {
		t.Fatalf("event type = %T, want EscalationPending", ev)
	}
	if push.Escalation.RoomID != "room_abc" {
		t.Errorf("RoomID = %q", push.Escalation.RoomID)
	}
	if push.Escalation.SessionID != "12" {
		t.Errorf("SessionID = %q, want numeric id as text", push.Escalation.SessionID)
	}
	if push.EscalationID != "7" {
		t.Errorf("EscalationID = %q", push.EscalationID)
	}
	if push.Escalation.Priority != models.PriorityHigh {
		t.Errorf("Priority = %q", push.Escalation.Priority)
	}
}

func TestDecodeFrameMessageAliases(t *testing.T) {
	// new_message carries role/content, the dashboard-era chat_message
	// shape carries roomId/message. Both must map to the same Message.
	newMsg, err := decodeFrame([]byte(
		`{"event":"new_message","data":{"role":"ai","content":"try rebooting","timestamp":"t1","session_id":"s1","confidence":0.93}}`))
	if err != nil {
		t.Fatalf("new_message decode error = %v", err)
	}
	nm := newMsg.(events.NewMessage)
	if nm.Message.Role != models.RoleAI || nm.Message.Content != "try rebooting" {
		t.Errorf("new_message mapped to %+v", nm.Message)
	}
	if nm.Message.Confidence != 0.93 {
		t.Errorf("Confidence = %v", nm.Message.Confidence)
	}

	chatMsg, err := decodeFrame([]byte(
		`{"event":"chat_message","data":{"roomId":"r1","message":"my line is down","timestamp":"t2"}}`))
	if err != nil {
		t.Fatalf("chat_message decode error = %v", err)
	}
	cm := chatMsg.(events.ChatMessage)
	if cm.RoomID != "r1" {
		t.Errorf("RoomID = %q", cm.RoomID)
	}
	if cm.Message.Content != "my line is down" {
		t.Errorf("Content = %q, want message field honored", cm.Message.Content)
	}
	if cm.Message.Role != models.RoleUser {
		t.Errorf("Role = %q, want default user", cm.Message.Role)
	}
}

func TestDecodeFrameChatHistory(t *testing.T) {
	raw := []byte(`{"event":"chat_history","data":{"session_id":"s1","messages":[
		{"role":"user","content":"hi","timestamp":"t1"},
		{"role":"ai","content":"hello","timestamp":"t2","session_id":"s1"}]}}`)

	ev, err := decodeFrame(raw)
	if err != nil {
		t.Fatalf("decodeFrame() error = %v", err)
	}
	hist := ev.(events.ChatHistory)
	if hist.SessionID != "s1" {
		t.Errorf("SessionID = %q", hist.SessionID)
	}
	if len(hist.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(hist.Messages))
	}
	// Batch session id backfills messages that lack their own.
	if hist.Messages[0].SessionID != "s1" {
		t.Errorf("message 0 SessionID = %q, want backfilled s1", hist.Messages[0].SessionID)
	}
}

func TestDecodeFrameSessionClosedKeySpellings(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"camel", `{"event":"session_closed","data":{"roomId":"r1","reason":"resolved"}}`},
		{"snake", `{"event":"session_closed","data":{"room_id":"r1","reason":"resolved"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := decodeFrame([]byte(tt.raw))
			if err != nil {
				t.Fatalf("decodeFrame() error = %v", err)
			}
			closed := ev.(events.SessionClosed)
			if closed.RoomID != "r1" || closed.Reason != "resolved" {
				t.Errorf("mapped to %+v", closed)
			}
		})
	}
}

func TestDecodeFramePresenceAndTyping(t *testing.T) {
	ev, err := decodeFrame([]byte(`{"event":"agent_joined","data":{"roomId":"r1","agentId":"agent_007"}}`))
	if err != nil {
		t.Fatalf("agent_joined error = %v", err)
	}
	if joined := ev.(events.AgentJoined); joined.AgentID != "agent_007" {
		t.Errorf("AgentID = %q", joined.AgentID)
	}

	ev, err = decodeFrame([]byte(`{"event":"ai_typing","data":{"typing":true}}`))
	if err != nil {
		t.Fatalf("ai_typing error = %v", err)
	}
	if typing := ev.(events.AITyping); !typing.Typing {
		t.Error("Typing = false, want true")
	}
}

func TestDecodeFrameIgnoredEvents(t *testing.T) {
	for _, name := range []string{"connected", "joined_session", "escalation_triggered"} {
		ev, err := decodeFrame([]byte(`{"event":"` + name + `","data":{}}`))
		if err != nil {
			t.Errorf("%s: error = %v, want silent ignore", name, err)
		}
		if ev != nil {
			t.Errorf("%s: event = %v, want nil", name, ev)
		}
	}
}

func TestDecodeFrameRejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{{{`},
		{"missing event", `{"data":{}}`},
		{"unknown event", `{"event":"totally_new_thing","data":{}}`},
		{"schema violation", `{"event":"escalation_pending","data":{"priority":"high"}}`},
		{"typing wrong type", `{"event":"ai_typing","data":{"typing":"yes"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := decodeFrame([]byte(tt.raw)); err == nil {
				t.Error("decodeFrame() = nil error, want reject")
			}
		})
	}
}

func TestDecodeFrameEmptyData(t *testing.T) {
	// get_escalations replies can push presence events with no payload.
	ev, err := decodeFrame([]byte(`{"event":"agent_left"}`))
	if err != nil {
		t.Fatalf("decodeFrame() error = %v", err)
	}
	if _, ok := ev.(events.AgentLeft); !ok {
		t.Fatalf("event type = %T", ev)
	}
}
