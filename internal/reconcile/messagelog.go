package reconcile

import (
	"log/slog"
	"sync"
	"time"

	"github.com/relaydesk/relaydesk/pkg/models"
)

// MessageLog maintains the ordered message history for the single room
// currently attended, plus a holding buffer for history that arrives
// before the room is registered locally.
//
// The same underlying message can arrive through several event names
// (chat_message, new_message, chat_history), so the log deduplicates by
// the (content, timestamp, role) identity triple rather than by any
// server-issued id.
type MessageLog struct {
	logger *slog.Logger

	mu      sync.Mutex
	room    *models.Room
	log     []models.Message
	seen    map[string]struct{}
	pending []models.Message

	now func() time.Time
}

// NewMessageLog creates an empty log with no active room. If logger is
// nil, slog.Default() is used.
func NewMessageLog(logger *slog.Logger) *MessageLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &MessageLog{
		logger: logger,
		seen:   make(map[string]struct{}),
		now:    time.Now,
	}
}

// SetActiveRoom replaces the active room. Every replacement, including to
// nil, clears the message log unconditionally so messages never leak
// across rooms. When transitioning from no room to a room, the pending
// history buffer is flushed into the fresh log in arrival order before
// being cleared.
func (m *MessageLog) SetActiveRoom(room *models.Room) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hadRoom := m.room != nil
	m.room = room
	m.log = nil
	m.seen = make(map[string]struct{})

	if room == nil {
		m.pending = nil
		return
	}
	if !hadRoom {
		m.flushPendingLocked()
	}
	m.pending = nil
}

// flushPendingLocked appends each buffered message not already present,
// preserving arrival order. Caller holds m.mu.
func (m *MessageLog) flushPendingLocked() {
	flushed := 0
	for _, msg := range m.pending {
		key := msg.IdentityKey()
		if _, dup := m.seen[key]; dup {
			continue
		}
		m.seen[key] = struct{}{}
		m.log = append(m.log, msg)
		flushed++
	}
	if flushed > 0 {
		m.logger.Debug("pending history flushed",
			"room_id", m.room.RoomID,
			"flushed", flushed,
			"buffered", len(m.pending),
		)
	}
}

// Ingest reconciles one inbound message.
//
// Session-tagged messages arriving before any room is active are buffered
// (deduplicated against the buffer itself) for a later flush. With a room
// active, duplicates by identity triple are dropped; messages without a
// session id append directly since the room is unambiguous.
//
// viaEvent names the delivering event for diagnostics only; it never
// affects reconciliation.
func (m *MessageLog) Ingest(msg models.Message, viaEvent string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.room == nil {
		if msg.SessionID == "" {
			// No room and no session tag: nothing to attach it to.
			m.logger.Debug("message dropped, no active room", "via", viaEvent)
			return
		}
		key := msg.IdentityKey()
		for _, buffered := range m.pending {
			if buffered.IdentityKey() == key {
				return
			}
		}
		m.pending = append(m.pending, msg)
		return
	}

	key := msg.IdentityKey()
	if _, dup := m.seen[key]; dup {
		m.logger.Debug("duplicate message dropped",
			"via", viaEvent,
			"role", msg.Role,
			"timestamp", msg.Timestamp,
		)
		return
	}
	m.seen[key] = struct{}{}
	m.log = append(m.log, msg)
}

// AppendLocalEcho appends a locally originated message before network
// confirmation, stamped with the current time. The echo participates in
// identity-triple dedup, so the later server copy of the same
// content+timestamp+role is dropped instead of duplicated.
//
// Identity rests on timestamp granularity rather than a server idempotency
// key: two genuinely distinct, identical sends within the same RFC3339
// nanosecond instant collapse into one entry. Accepted and documented
// behavior, not corrected here.
func (m *MessageLog) AppendLocalEcho(content string, role models.Role, sessionID string) models.Message {
	msg := models.Message{
		Role:      role,
		Content:   content,
		Timestamp: m.now().UTC().Format(time.RFC3339Nano),
		SessionID: models.FlexID(sessionID),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.room == nil {
		m.logger.Debug("local echo with no active room dropped")
		return msg
	}

	key := msg.IdentityKey()
	if _, dup := m.seen[key]; !dup {
		m.seen[key] = struct{}{}
		m.log = append(m.log, msg)
	}
	return msg
}

// ActiveRoom returns the current room, or nil.
func (m *MessageLog) ActiveRoom() *models.Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.room == nil {
		return nil
	}
	room := *m.room
	return &room
}

// Messages returns a copy of the current log in order.
func (m *MessageLog) Messages() []models.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Message, len(m.log))
	copy(out, m.log)
	return out
}

// PendingCount reports how many messages sit in the history buffer.
func (m *MessageLog) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}
