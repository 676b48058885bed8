package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// InsertMessage stores a new message and returns its assigned ID.
// IDs are monotonic and never reused.
func (db *DB) InsertMessage(m *Message) (int64, error) {
	res, err := db.Exec(`
		INSERT INTO messages (contact_id, body, inbound, sent, seen, timestamp, kind, media_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ContactID, m.Body, m.Inbound, m.Sent, m.Read, m.Timestamp, m.Kind, m.MediaID)
	if err != nil {
		return 0, fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert message id: %w", err)
	}
	m.ID = id
	return id, nil
}

// UpdateMessage flips the mutable flags (send state, read flag) of an
// existing message. Payload and timestamp are immutable after insert.
func (db *DB) UpdateMessage(m *Message) error {
	_, err := db.Exec(`UPDATE messages SET sent = ?, seen = ? WHERE id = ?`, m.Sent, m.Read, m.ID)
	if err != nil {
		return fmt.Errorf("update message %d: %w", m.ID, err)
	}
	return nil
}

// GetMessage returns a message by ID, or nil when absent.
func (db *DB) GetMessage(id int64) (*Message, error) {
	var m Message
	err := db.QueryRow(`
		SELECT id, contact_id, body, inbound, sent, seen, timestamp, kind, media_id
		FROM messages WHERE id = ?`, id).
		Scan(&m.ID, &m.ContactID, &m.Body, &m.Inbound, &m.Sent, &m.Read, &m.Timestamp, &m.Kind, &m.MediaID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get message %d: %w", id, err)
	}
	return &m, nil
}

// MessagesFor returns all messages of one conversation, timestamp-ascending.
func (db *DB) MessagesFor(contactID string) ([]Message, error) {
	rows, err := db.Query(`
		SELECT id, contact_id, body, inbound, sent, seen, timestamp, kind, media_id
		FROM messages WHERE contact_id = ? ORDER BY timestamp ASC, id ASC`, contactID)
	if err != nil {
		return nil, fmt.Errorf("messages for %q: %w", contactID, err)
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ContactID, &m.Body, &m.Inbound, &m.Sent, &m.Read, &m.Timestamp, &m.Kind, &m.MediaID); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// DeleteMessages removes the given message IDs in one statement.
func (db *DB) DeleteMessages(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := db.Exec(`DELETE FROM messages WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	return nil
}

// MarkConversationRead flips the read flag on every unread inbound
// message of the conversation.
func (db *DB) MarkConversationRead(contactID string) error {
	_, err := db.Exec(`UPDATE messages SET seen = 1 WHERE contact_id = ? AND inbound = 1 AND seen = 0`, contactID)
	if err != nil {
		return fmt.Errorf("mark read %q: %w", contactID, err)
	}
	return nil
}
