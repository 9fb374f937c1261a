// Package events defines the closed set of backend-pushed events and the
// local subscription bus that fans them out to UI-side handlers.
//
// The backend keys events by name on the wire; locally each name maps to
// exactly one concrete Event type, so subscribers switch on types instead
// of strings.
package events

import "github.com/relaydesk/relaydesk/pkg/models"

// Event is the sealed interface implemented by every inbound event.
type Event interface {
	// Name returns the wire-level event name.
	Name() string
	sealed()
}

// Wire-level event names.
const (
	NameConnectionStatus  = "connection_status"
	NameConnectionError   = "connection_error"
	NameEscalationPending = "escalation_pending"
	NameChatMessage       = "chat_message"
	NameNewMessage        = "new_message"
	NameChatHistory       = "chat_history"
	NameSessionClosed     = "session_closed"
	NameAgentJoined       = "agent_joined"
	NameAgentLeft         = "agent_left"
	NameAITyping          = "ai_typing"
	NameEscalationNotice  = "escalation"
)

// ConnectionStatus reports local connect/disconnect transitions. It is
// synthesized by the transport, never sent by the backend.
type ConnectionStatus struct {
	Connected bool
}

// ConnectionError carries a human-readable connect or reconnect failure.
// Also synthesized locally; transport errors never propagate as panics.
type ConnectionError struct {
	Message string
}

// EscalationPending announces a room newly flagged for human attention,
// or an update to one already pending.
type EscalationPending struct {
	Escalation models.Escalation
	// EscalationID is the backend-issued id, when present. Used to derive
	// the list identity key.
	EscalationID string
}

// ChatMessage is a customer message relayed to the agent dashboard.
type ChatMessage struct {
	RoomID  string
	Message models.Message
}

// NewMessage is the primary message event on the user-facing path. The
// same underlying message may also arrive as ChatMessage; deduplication is
// by identity triple, not event name.
type NewMessage struct {
	Message models.Message
}

// ChatHistory delivers a batch of prior messages for a session, possibly
// before the local UI has registered which room is active.
type ChatHistory struct {
	SessionID string
	Messages  []models.Message
}

// SessionClosed signals that a room's session ended.
type SessionClosed struct {
	RoomID  string
	AgentID string
	Reason  string
}

// AgentJoined signals a human agent entering a room.
type AgentJoined struct {
	RoomID  string
	AgentID string
}

// AgentLeft signals a human agent leaving a room.
type AgentLeft struct {
	RoomID  string
	AgentID string
}

// AITyping toggles the assistant typing indicator.
type AITyping struct {
	Typing bool
}

// EscalationNotice is the legacy user-facing escalation event. It carries
// no room identity and is surfaced as a notification only.
type EscalationNotice struct {
	SessionID string
	Reasons   []string
}

func (ConnectionStatus) Name() string  { return NameConnectionStatus }
func (ConnectionError) Name() string   { return NameConnectionError }
func (EscalationPending) Name() string { return NameEscalationPending }
func (ChatMessage) Name() string       { return NameChatMessage }
func (NewMessage) Name() string        { return NameNewMessage }
func (ChatHistory) Name() string       { return NameChatHistory }
func (SessionClosed) Name() string     { return NameSessionClosed }
func (AgentJoined) Name() string       { return NameAgentJoined }
func (AgentLeft) Name() string         { return NameAgentLeft }
func (AITyping) Name() string          { return NameAITyping }
func (EscalationNotice) Name() string  { return NameEscalationNotice }

func (ConnectionStatus) sealed()  {}
func (ConnectionError) sealed()   {}
func (EscalationPending) sealed() {}
func (ChatMessage) sealed()       {}
func (NewMessage) sealed()        {}
func (ChatHistory) sealed()       {}
func (SessionClosed) sealed()     {}
func (AgentJoined) sealed()       {}
func (AgentLeft) sealed()         {}
func (AITyping) sealed()          {}
func (EscalationNotice) sealed()  {}
