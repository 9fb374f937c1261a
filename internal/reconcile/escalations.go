// Package reconcile maintains the client-side view of pending escalations
// and the active room's message log, merging backend push events with REST
// snapshots. The backend is the source of truth; nothing here blocks on it
// for read access.
package reconcile

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/relaydesk/relaydesk/pkg/models"
)

// EscalationList holds the ordered set of pending support rooms. At most
// one entry exists per room id; a push for a known room merges in place.
type EscalationList struct {
	logger *slog.Logger

	mu      sync.Mutex
	entries []models.Escalation

	// now is swappable for tests that pin uniqueKey derivation.
	now func() time.Time
}

// NewEscalationList creates an empty list. If logger is nil,
// slog.Default() is used.
func NewEscalationList(logger *slog.Logger) *EscalationList {
	if logger == nil {
		logger = slog.Default()
	}
	return &EscalationList{
		logger: logger,
		now:    time.Now,
	}
}

// ApplyPush merges a pushed escalation into the list. If an entry with the
// same room id exists, new non-empty fields win over the original; the
// merge is idempotent under rapid repeated pushes. Otherwise the
// escalation is appended with a derived identity key.
//
// escalationID is the backend-issued id when the push carries one; it
// anchors the identity key so repeated room ids cannot corrupt list
// identity.
func (l *EscalationList) ApplyPush(esc models.Escalation, escalationID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.entries {
		if l.entries[i].RoomID == esc.RoomID {
			l.entries[i] = mergeEscalation(l.entries[i], esc)
			l.logger.Debug("escalation merged", "room_id", esc.RoomID)
			return
		}
	}

	if esc.UniqueKey == "" {
		esc.UniqueKey = l.deriveKey(esc, escalationID)
	}
	l.entries = append(l.entries, esc)
	l.logger.Debug("escalation added", "room_id", esc.RoomID, "priority", esc.Priority)
}

// deriveKey builds the stable list identity: escalation_{escalationId},
// falling back to the room id, then to the current time.
func (l *EscalationList) deriveKey(esc models.Escalation, escalationID string) string {
	switch {
	case escalationID != "":
		return "escalation_" + escalationID
	case esc.RoomID != "":
		return "escalation_" + esc.RoomID
	default:
		return fmt.Sprintf("escalation_%d", l.now().UnixMilli())
	}
}

// ApplySnapshot replaces the list wholesale from a REST fetch.
func (l *EscalationList) ApplySnapshot(records []models.EscalationRecord) {
	entries := make([]models.Escalation, 0, len(records))
	for _, rec := range records {
		entries = append(entries, rec.ToEscalation())
	}

	l.mu.Lock()
	l.entries = entries
	l.mu.Unlock()

	l.logger.Debug("escalation snapshot applied", "count", len(entries))
}

// ApplyMessagePreview updates the lastMessage preview on the entry for
// roomID. Unknown rooms are a no-op.
func (l *EscalationList) ApplyMessagePreview(roomID, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.entries {
		if l.entries[i].RoomID == roomID {
			l.entries[i].LastMessage = text
			return
		}
	}
}

// Remove drops the entry for roomID, if present. Used when an agent joins
// the room or its session closes.
func (l *EscalationList) Remove(roomID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.entries {
		if l.entries[i].RoomID == roomID {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return
		}
	}
}

// Get returns the entry for roomID and whether it exists.
func (l *EscalationList) Get(roomID string) (models.Escalation, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, e := range l.entries {
		if e.RoomID == roomID {
			return e, true
		}
	}
	return models.Escalation{}, false
}

// Len reports the number of pending escalations.
func (l *EscalationList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// SortForDisplay returns the entries ordered for presentation: priority
// rank descending, then escalatedAt/createdAt descending. The sort is
// stable and does not mutate stored order.
func (l *EscalationList) SortForDisplay() []models.Escalation {
	l.mu.Lock()
	out := make([]models.Escalation, len(l.entries))
	copy(out, l.entries)
	l.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].Priority.Rank(), out[j].Priority.Rank()
		if pi != pj {
			return pi > pj
		}
		return out[i].SortTime().After(out[j].SortTime())
	})
	return out
}

// mergeEscalation overlays src onto dst, keeping dst where src is empty.
// The identity key is never replaced.
func mergeEscalation(dst, src models.Escalation) models.Escalation {
	if src.SessionID != "" {
		dst.SessionID = src.SessionID
	}
	if src.UserName != "" {
		dst.UserName = src.UserName
	}
	if src.Status != "" {
		dst.Status = src.Status
	}
	if src.Priority != "" {
		dst.Priority = src.Priority
	}
	if src.Reason != "" {
		dst.Reason = src.Reason
	}
	if src.CreatedAt != "" {
		dst.CreatedAt = src.CreatedAt
	}
	if src.EscalatedAt != "" {
		dst.EscalatedAt = src.EscalatedAt
	}
	if src.LastMessage != "" {
		dst.LastMessage = src.LastMessage
	}
	return dst
}
