// Package models defines the wire and client-state types shared by the
// relaydesk transport, reconcilers and REST client.
package models

import (
	"fmt"
	"time"
)

// Role indicates the author of a chat message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
	RoleAI    Role = "ai"
	RoleBot   Role = "bot"
)

// Priority of a pending escalation.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
	PriorityNone   Priority = ""
)

// Rank maps a priority to its sort weight. Unknown values rank lowest.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// EscalationStatus is the lifecycle state of an escalated room.
type EscalationStatus string

const (
	StatusWaiting   EscalationStatus = "waiting"
	StatusEscalated EscalationStatus = "escalated"
	StatusActive    EscalationStatus = "active"
	StatusClosed    EscalationStatus = "closed"
)

// Escalation is a pending, unclaimed support room awaiting an agent.
type Escalation struct {
	RoomID      string           `json:"roomId"`
	SessionID   FlexID           `json:"sessionId,omitempty"`
	UserName    string           `json:"userName,omitempty"`
	Status      EscalationStatus `json:"status,omitempty"`
	Priority    Priority         `json:"priority,omitempty"`
	Reason      string           `json:"reason,omitempty"`
	CreatedAt   string           `json:"createdAt,omitempty"`
	EscalatedAt string           `json:"escalatedAt,omitempty"`
	LastMessage string           `json:"lastMessage,omitempty"`

	// UniqueKey is a derived, stable list identity. Room ids arriving via
	// push events without a backend-issued id can collide or repeat, so the
	// list never keys on RoomID alone.
	UniqueKey string `json:"uniqueKey,omitempty"`
}

// SortTime returns the timestamp used for recency ordering, preferring
// EscalatedAt over CreatedAt. Unparseable timestamps sort oldest.
func (e Escalation) SortTime() time.Time {
	for _, raw := range []string{e.EscalatedAt, e.CreatedAt} {
		if raw == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Room is the conversation currently attended in the UI.
type Room struct {
	RoomID    string           `json:"roomId"`
	SessionID string           `json:"sessionId,omitempty"`
	UserName  string           `json:"userName,omitempty"`
	Status    EscalationStatus `json:"status,omitempty"`
	Priority  Priority         `json:"priority,omitempty"`
	Reason    string           `json:"reason,omitempty"`
}

// Message is a single chat message. Timestamp stays in its wire form
// (RFC3339 string) so identity comparison is exact rather than
// parse-normalized.
type Message struct {
	Role        Role           `json:"role"`
	Content     string         `json:"content"`
	Timestamp   string         `json:"timestamp"`
	SessionID   FlexID         `json:"session_id,omitempty"`
	MessageType string         `json:"messageType,omitempty"`
	Confidence  float64        `json:"confidence,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// IdentityKey is the deduplication identity for a message. No server-issued
// id is guaranteed on every event path, so identity is the
// (content, timestamp, role) triple.
func (m Message) IdentityKey() string {
	return fmt.Sprintf("%s\x00%s\x00%s", m.Content, m.Timestamp, m.Role)
}

// SessionSummary is the backend-generated overview of a support session.
type SessionSummary struct {
	User             SummaryUser    `json:"user"`
	Session          SummarySession `json:"session"`
	Issues           []string       `json:"issues,omitempty"`
	Summary          string         `json:"summary,omitempty"`
	KeyPoints        []string       `json:"keyPoints,omitempty"`
	Sentiment        string         `json:"sentiment,omitempty"`
	EscalationReason string         `json:"escalationReason,omitempty"`
}

// SummaryUser identifies the customer behind a session.
type SummaryUser struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// SummarySession carries session-level statistics.
type SummarySession struct {
	StartTime    string `json:"startTime,omitempty"`
	Duration     string `json:"duration,omitempty"`
	MessageCount int    `json:"messageCount,omitempty"`
}

// Agent is a support agent as reported by the backend.
type Agent struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	IsAvailable bool   `json:"is_available"`
	ActiveChats int    `json:"active_chats,omitempty"`
}

// EscalationRecord is the REST snapshot shape for a pending escalation.
// The push-event shape (Escalation) is flatter; ToEscalation bridges them.
type EscalationRecord struct {
	ID        FlexID            `json:"id"`
	SessionID FlexID            `json:"session_id"`
	Session   *EscalationOrigin `json:"session,omitempty"`
	Status    EscalationStatus  `json:"status,omitempty"`
	Priority  Priority          `json:"priority,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	CreatedAt string            `json:"created_at,omitempty"`
}

// EscalationOrigin links a REST escalation record back to its room.
type EscalationOrigin struct {
	RoomID string `json:"room_id,omitempty"`
	UserID string `json:"user_id,omitempty"`
}

// ToEscalation converts a REST record into the client Escalation shape,
// deriving a room_{sessionId} fallback when the record carries no room id.
func (r EscalationRecord) ToEscalation() Escalation {
	roomID := ""
	userName := ""
	if r.Session != nil {
		roomID = r.Session.RoomID
		userName = r.Session.UserID
	}
	if roomID == "" {
		roomID = "room_" + string(r.SessionID)
	}
	return Escalation{
		RoomID:    roomID,
		SessionID: r.SessionID,
		UserName:  userName,
		Status:    r.Status,
		Priority:  r.Priority,
		Reason:    r.Reason,
		CreatedAt: r.CreatedAt,
		UniqueKey: "escalation_" + string(r.ID),
	}
}
