package transport

import (
	"encoding/json"
	"fmt"

	"github.com/relaydesk/relaydesk/internal/events"
	"github.com/relaydesk/relaydesk/pkg/models"
)

// frame is the wire envelope: {"event": "<name>", "data": {...}}.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Server acks and legacy events that are recognized and deliberately
// swallowed. The polling fallback can also replay these out of order;
// nothing downstream depends on them.
var ignoredEvents = map[string]struct{}{
	"connected":            {},
	"joined_room":          {},
	"joined_session":       {},
	"left_room":            {},
	"escalation_triggered": {},
	"typing":               {},
}

// decodeFrame validates and maps one inbound frame to its typed event.
// A nil event with nil error means the frame is recognized but carries
// nothing for subscribers.
func decodeFrame(data []byte) (events.Event, error) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("frame decode: %w", err)
	}
	if f.Event == "" {
		return nil, fmt.Errorf("frame missing event name")
	}
	if _, ignore := ignoredEvents[f.Event]; ignore {
		return nil, nil
	}
	if err := validateFrame(f.Event, f.Data); err != nil {
		return nil, fmt.Errorf("frame %s: %w", f.Event, err)
	}
	return mapEvent(f.Event, f.Data)
}

// escalationPush is the escalation_pending payload. It carries the
// escalation fields flat, plus the backend escalation id when one exists.
type escalationPush struct {
	models.Escalation
	EscalationID models.FlexID `json:"escalationId,omitempty"`
}

// messagePayload tolerates both message-event shapes: the user path sends
// {role, content, timestamp, session_id}, the dashboard path historically
// also saw {roomId, message}.
type messagePayload struct {
	RoomID      string         `json:"roomId,omitempty"`
	Role        models.Role    `json:"role,omitempty"`
	Content     string         `json:"content,omitempty"`
	Message     string         `json:"message,omitempty"`
	Timestamp   string         `json:"timestamp,omitempty"`
	SessionID   models.FlexID  `json:"session_id,omitempty"`
	MessageType string         `json:"messageType,omitempty"`
	Confidence  float64        `json:"confidence,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func (p messagePayload) toMessage() models.Message {
	content := p.Content
	if content == "" {
		content = p.Message
	}
	role := p.Role
	if role == "" {
		role = models.RoleUser
	}
	return models.Message{
		Role:        role,
		Content:     content,
		Timestamp:   p.Timestamp,
		SessionID:   p.SessionID,
		MessageType: p.MessageType,
		Confidence:  p.Confidence,
		Metadata:    p.Metadata,
	}
}

// sessionClosedPayload tolerates both key spellings the backend has used.
type sessionClosedPayload struct {
	RoomID      string `json:"roomId,omitempty"`
	RoomIDSnake string `json:"room_id,omitempty"`
	AgentID     string `json:"agent_id,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

func mapEvent(name string, data json.RawMessage) (events.Event, error) {
	if len(data) == 0 {
		data = []byte("{}")
	}

	switch name {
	case events.NameEscalationPending:
		var p escalationPush
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return events.EscalationPending{Escalation: p.Escalation, EscalationID: string(p.EscalationID)}, nil

	case events.NameChatMessage:
		var p messagePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return events.ChatMessage{RoomID: p.RoomID, Message: p.toMessage()}, nil

	case events.NameNewMessage:
		var p messagePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return events.NewMessage{Message: p.toMessage()}, nil

	case events.NameChatHistory:
		var p struct {
			SessionID models.FlexID    `json:"session_id,omitempty"`
			Messages  []messagePayload `json:"messages"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		msgs := make([]models.Message, 0, len(p.Messages))
		for _, raw := range p.Messages {
			msg := raw.toMessage()
			if msg.SessionID == "" {
				msg.SessionID = p.SessionID
			}
			msgs = append(msgs, msg)
		}
		return events.ChatHistory{SessionID: string(p.SessionID), Messages: msgs}, nil

	case events.NameSessionClosed:
		var p sessionClosedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		roomID := p.RoomID
		if roomID == "" {
			roomID = p.RoomIDSnake
		}
		return events.SessionClosed{RoomID: roomID, AgentID: p.AgentID, Reason: p.Reason}, nil

	case events.NameAgentJoined, events.NameAgentLeft:
		var p struct {
			RoomID  string `json:"roomId,omitempty"`
			AgentID string `json:"agentId,omitempty"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		if name == events.NameAgentJoined {
			return events.AgentJoined{RoomID: p.RoomID, AgentID: p.AgentID}, nil
		}
		return events.AgentLeft{RoomID: p.RoomID, AgentID: p.AgentID}, nil

	case events.NameAITyping:
		var p struct {
			Typing bool `json:"typing"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return events.AITyping{Typing: p.Typing}, nil

	case events.NameEscalationNotice:
		var p struct {
			SessionID models.FlexID `json:"session_id,omitempty"`
			Reasons   []string      `json:"reasons,omitempty"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return events.EscalationNotice{SessionID: string(p.SessionID), Reasons: p.Reasons}, nil

	default:
		return nil, fmt.Errorf("unknown event %q", name)
	}
}
