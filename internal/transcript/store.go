// Package transcript keeps a local, append-only archive of attended
// conversations. It exists purely for the console operator's benefit;
// the backend remains the source of truth for chat history.
package transcript

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/relaydesk/relaydesk/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS rooms (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	room_id     TEXT NOT NULL,
	session_id  TEXT,
	user_name   TEXT,
	reason      TEXT,
	archived_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	room_ref  INTEGER NOT NULL REFERENCES rooms(id),
	role      TEXT NOT NULL,
	content   TEXT NOT NULL,
	timestamp TEXT,
	position  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_room ON messages(room_ref);
CREATE INDEX IF NOT EXISTS idx_rooms_room_id ON rooms(room_id);
`

// Store is a sqlite-backed transcript archive.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// Open opens (creating if needed) the archive at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open transcript db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply transcript schema: %w", err)
	}
	return &Store{db: db, logger: logger, now: time.Now}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ArchiveRoom writes one room visit and its messages as a single
// transaction. Repeated visits to the same room produce separate
// archive entries.
func (s *Store) ArchiveRoom(room models.Room, msgs []models.Message) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("archive room %s: %w", room.RoomID, err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO rooms (room_id, session_id, user_name, reason, archived_at) VALUES (?, ?, ?, ?, ?)`,
		room.RoomID, room.SessionID, room.UserName, room.Reason,
		s.now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("archive room %s: %w", room.RoomID, err)
	}
	roomRef, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("archive room %s: %w", room.RoomID, err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO messages (room_ref, role, content, timestamp, position) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("archive room %s: %w", room.RoomID, err)
	}
	defer stmt.Close()

	for i, msg := range msgs {
		if _, err := stmt.Exec(roomRef, string(msg.Role), msg.Content, msg.Timestamp, i); err != nil {
			return fmt.Errorf("archive message %d of room %s: %w", i, room.RoomID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("archive room %s: %w", room.RoomID, err)
	}
	s.logger.Info("transcript archived", "room_id", room.RoomID, "messages", len(msgs))
	return nil
}

// Visit is one archived stay in a room.
type Visit struct {
	RoomID     string
	SessionID  string
	UserName   string
	ArchivedAt string
	Messages   []models.Message
}

// Visits returns the archived visits for a room, oldest first.
func (s *Store) Visits(ctx context.Context, roomID string) ([]Visit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, room_id, session_id, user_name, archived_at FROM rooms WHERE room_id = ? ORDER BY id`,
		roomID)
	if err != nil {
		return nil, fmt.Errorf("list visits for %s: %w", roomID, err)
	}
	defer rows.Close()

	var visits []Visit
	var refs []int64
	for rows.Next() {
		var ref int64
		var v Visit
		var sessionID sql.NullString
		if err := rows.Scan(&ref, &v.RoomID, &sessionID, &v.UserName, &v.ArchivedAt); err != nil {
			return nil, fmt.Errorf("scan visit for %s: %w", roomID, err)
		}
		v.SessionID = sessionID.String
		visits = append(visits, v)
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list visits for %s: %w", roomID, err)
	}

	for i, ref := range refs {
		msgs, err := s.visitMessages(ctx, ref)
		if err != nil {
			return nil, err
		}
		visits[i].Messages = msgs
	}
	return visits, nil
}

func (s *Store) visitMessages(ctx context.Context, roomRef int64) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, timestamp FROM messages WHERE room_ref = ? ORDER BY position`,
		roomRef)
	if err != nil {
		return nil, fmt.Errorf("load messages for visit %d: %w", roomRef, err)
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		var msg models.Message
		var role string
		var ts sql.NullString
		if err := rows.Scan(&role, &msg.Content, &ts); err != nil {
			return nil, fmt.Errorf("scan message for visit %d: %w", roomRef, err)
		}
		msg.Role = models.Role(role)
		msg.Timestamp = ts.String
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}
