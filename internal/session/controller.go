// Package session drives the agent-side room lifecycle: which room is
// being attended, how join/send/close commands are issued, and how
// backend events feed the escalation and message reconcilers. All state
// transitions funnel through the Controller so the reconcilers stay the
// only mutators of shared state.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/relaydesk/relaydesk/internal/events"
	"github.com/relaydesk/relaydesk/internal/reconcile"
	"github.com/relaydesk/relaydesk/internal/transport"
	"github.com/relaydesk/relaydesk/pkg/models"
)

// State names the room-attendance phase of the controller.
type State int

const (
	// NoRoom means no conversation is being attended.
	NoRoom State = iota
	// JoiningRoom is the transient phase between a join request and its
	// command being issued.
	JoiningRoom
	// InRoom means a conversation is active.
	InRoom
)

func (s State) String() string {
	switch s {
	case NoRoom:
		return "no_room"
	case JoiningRoom:
		return "joining_room"
	case InRoom:
		return "in_room"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Transport is the outbound command surface the controller needs. The
// concrete implementation is transport.Client.
type Transport interface {
	IsConnected() bool
	JoinRoom(roomID string) error
	LeaveRoom(roomID string) error
	SendMessage(roomID, message string) error
	CloseSession(roomID, reason string) error
}

// SummaryFetcher resolves the backend-generated overview of a session.
// Optional; nil skips summary loading entirely.
type SummaryFetcher interface {
	GetSessionSummary(ctx context.Context, sessionID string) (models.SessionSummary, error)
}

// Archiver persists the transcript of a room when the controller leaves
// it. Optional and best-effort; archive failures never block teardown.
type Archiver interface {
	ArchiveRoom(room models.Room, msgs []models.Message) error
}

// Options configures a Controller. Transport, Escalations and Log are
// required; everything else has a working default or is optional.
type Options struct {
	Transport   Transport
	Escalations *reconcile.EscalationList
	Log         *reconcile.MessageLog

	// Summaries enables the best-effort session summary fetch on join.
	Summaries SummaryFetcher

	// Archiver receives the room transcript on close/teardown.
	Archiver Archiver

	// Notifier defaults to a LogNotifier over Logger.
	Notifier Notifier

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Controller is the session lifecycle state machine. All methods are
// safe for concurrent use; event handlers and user commands serialize on
// the same lock so reconciled state never sees a half-applied
// transition.
type Controller struct {
	transport   Transport
	escalations *reconcile.EscalationList
	log         *reconcile.MessageLog
	summaries   SummaryFetcher
	archiver    Archiver
	notifier    Notifier
	logger      *slog.Logger

	mu       sync.Mutex
	state    State
	summary  *models.SessionSummary
	aiTyping bool
}

// NewController wires a controller over its collaborators. Call Bind to
// attach it to a bus.
func NewController(opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Notifier == nil {
		opts.Notifier = LogNotifier{Logger: opts.Logger}
	}
	return &Controller{
		transport:   opts.Transport,
		escalations: opts.Escalations,
		log:         opts.Log,
		summaries:   opts.Summaries,
		archiver:    opts.Archiver,
		notifier:    opts.Notifier,
		logger:      opts.Logger,
	}
}

// Bind subscribes the controller to every inbound event it reacts to.
// The returned function detaches all subscriptions.
func (c *Controller) Bind(bus *events.Bus) func() {
	subs := []func(){
		bus.Subscribe(events.NameConnectionStatus, c.onEvent),
		bus.Subscribe(events.NameEscalationPending, c.onEvent),
		bus.Subscribe(events.NameChatMessage, c.onEvent),
		bus.Subscribe(events.NameNewMessage, c.onEvent),
		bus.Subscribe(events.NameChatHistory, c.onEvent),
		bus.Subscribe(events.NameSessionClosed, c.onEvent),
		bus.Subscribe(events.NameAgentJoined, c.onEvent),
		bus.Subscribe(events.NameAgentLeft, c.onEvent),
		bus.Subscribe(events.NameAITyping, c.onEvent),
		bus.Subscribe(events.NameEscalationNotice, c.onEvent),
	}
	return func() {
		for _, u := range subs {
			u()
		}
	}
}

// State reports the current lifecycle phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Summary returns the session overview loaded on join, or nil when none
// is available.
func (c *Controller) Summary() *models.SessionSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.summary == nil {
		return nil
	}
	s := *c.summary
	return &s
}

// AITyping reports whether the backend bot is currently composing a
// reply in the active room.
func (c *Controller) AITyping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aiTyping
}

// HandleJoinRoom attends the given room: it builds the active room from
// the matching escalation, clears the message log, issues the join
// command, loads the session summary best-effort and removes the room
// from the escalation list. While disconnected it fails with a
// notification and no state change.
func (c *Controller) HandleJoinRoom(ctx context.Context, roomID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.transport.IsConnected() {
		c.notifier.Error("Not connected to server")
		return transport.ErrNotConnected
	}
	c.state = JoiningRoom

	room := models.Room{RoomID: roomID}
	if esc, ok := c.escalations.Get(roomID); ok {
		room.SessionID = string(esc.SessionID)
		room.UserName = esc.UserName
		room.Status = esc.Status
		room.Priority = esc.Priority
		room.Reason = esc.Reason
	}

	c.log.SetActiveRoom(&room)
	if err := c.transport.JoinRoom(roomID); err != nil {
		c.log.SetActiveRoom(nil)
		c.state = NoRoom
		c.notifier.Error("Failed to join room " + roomID)
		return fmt.Errorf("join room %s: %w", roomID, err)
	}

	// Summary is display garnish: a fetch failure clears it and the
	// join proceeds regardless.
	c.summary = nil
	if c.summaries != nil && room.SessionID != "" {
		if sum, err := c.summaries.GetSessionSummary(ctx, room.SessionID); err != nil {
			c.logger.Debug("session summary unavailable",
				"session_id", room.SessionID, "error", err)
		} else {
			c.summary = &sum
		}
	}

	c.escalations.Remove(roomID)
	c.state = InRoom
	c.notifier.Success("Joined room " + roomID)
	return nil
}

// HandleSendMessage appends a local echo of the agent's text and issues
// the outbound message. While disconnected it fails with a notification
// and no echo.
func (c *Controller) HandleSendMessage(roomID, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.transport.IsConnected() {
		c.notifier.Error("Not connected to server")
		return transport.ErrNotConnected
	}
	room := c.log.ActiveRoom()
	if room == nil || room.RoomID != roomID {
		return fmt.Errorf("send message: room %s is not active", roomID)
	}

	c.log.AppendLocalEcho(text, models.RoleAgent, room.SessionID)
	if err := c.transport.SendMessage(roomID, text); err != nil {
		c.notifier.Error("Failed to send message")
		return fmt.Errorf("send message to %s: %w", roomID, err)
	}
	return nil
}

// HandleLeaveRoom steps away from the attended room without closing
// the customer's session. The room goes back to the escalation queue on
// the backend side; locally it is a plain teardown.
func (c *Controller) HandleLeaveRoom(roomID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.transport.IsConnected() {
		c.notifier.Error("Not connected to server")
		return transport.ErrNotConnected
	}
	if err := c.transport.LeaveRoom(roomID); err != nil {
		c.notifier.Error("Failed to leave room")
		return fmt.Errorf("leave room %s: %w", roomID, err)
	}
	c.teardownLocked("left by agent")
	c.notifier.Info("Left room " + roomID)
	return nil
}

// HandleCloseSession closes the attended room after explicit user
// confirmation. Declining the confirmation leaves all state untouched.
func (c *Controller) HandleCloseSession(roomID string, confirm func() bool) error {
	if confirm != nil && !confirm() {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.transport.IsConnected() {
		c.notifier.Error("Not connected to server")
		return transport.ErrNotConnected
	}
	if err := c.transport.CloseSession(roomID, ""); err != nil {
		c.notifier.Error("Failed to close session")
		return fmt.Errorf("close session %s: %w", roomID, err)
	}
	c.teardownLocked("closed by agent")
	c.notifier.Success("Session closed")
	return nil
}

func (c *Controller) onEvent(ev events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch e := ev.(type) {
	case events.ConnectionStatus:
		if !e.Connected && c.state != NoRoom {
			c.teardownLocked("disconnected")
			c.notifier.Error("Connection lost")
		}
	case events.EscalationPending:
		c.escalations.ApplyPush(e.Escalation, e.EscalationID)
	case events.ChatMessage:
		// Only the attended room's messages enter the log; a message for
		// any other room still refreshes that room's preview.
		room := c.log.ActiveRoom()
		if e.RoomID == "" || (room != nil && room.RoomID == e.RoomID) {
			c.log.Ingest(e.Message, events.NameChatMessage)
		}
		c.escalations.ApplyMessagePreview(e.RoomID, e.Message.Content)
	case events.NewMessage:
		c.log.Ingest(e.Message, events.NameNewMessage)
	case events.ChatHistory:
		for _, msg := range e.Messages {
			c.log.Ingest(msg, events.NameChatHistory)
		}
	case events.SessionClosed:
		// A closed session leaves the escalation queue whether or not it
		// was being attended.
		c.escalations.Remove(e.RoomID)
		room := c.log.ActiveRoom()
		if room != nil && room.RoomID == e.RoomID {
			c.teardownLocked("closed remotely")
			c.notifier.Info("Session was closed: " + e.Reason)
		}
	case events.AgentJoined:
		c.notifier.Info("Agent " + e.AgentID + " joined the room")
	case events.AgentLeft:
		c.notifier.Info("Agent " + e.AgentID + " left the room")
	case events.AITyping:
		c.aiTyping = e.Typing
	case events.EscalationNotice:
		c.notifier.Info("Escalation requested for session " + e.SessionID)
	}
}

// teardownLocked returns the controller to NoRoom, archiving the
// transcript first when an archiver is configured.
func (c *Controller) teardownLocked(reason string) {
	room := c.log.ActiveRoom()
	if room != nil && c.archiver != nil {
		if err := c.archiver.ArchiveRoom(*room, c.log.Messages()); err != nil {
			c.logger.Warn("transcript archive failed",
				"room_id", room.RoomID, "error", err)
		}
	}
	if room != nil {
		c.logger.Info("leaving room", "room_id", room.RoomID, "reason", reason)
	}
	c.log.SetActiveRoom(nil)
	c.summary = nil
	c.aiTyping = false
	c.state = NoRoom
}
