package store

import "fmt"

// AllConversations reads every contact with its messages. Messages come
// back timestamp-ascending within each conversation; the conversation
// list itself carries no ordering guarantee, ordering is the caller's
// concern.
func (db *DB) AllConversations() ([]Conversation, error) {
	contacts, err := db.ListContacts()
	if err != nil {
		return nil, fmt.Errorf("all conversations: %w", err)
	}

	rows, err := db.Query(`
		SELECT id, contact_id, body, inbound, sent, seen, timestamp, kind, media_id
		FROM messages ORDER BY timestamp ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("all conversations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	byContact := make(map[string][]Message, len(contacts))
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ContactID, &m.Body, &m.Inbound, &m.Sent, &m.Read, &m.Timestamp, &m.Kind, &m.MediaID); err != nil {
			return nil, err
		}
		byContact[m.ContactID] = append(byContact[m.ContactID], m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	convs := make([]Conversation, 0, len(contacts))
	for _, c := range contacts {
		convs = append(convs, Conversation{Contact: c, Messages: byContact[c.PhoneNumber]})
	}
	return convs, nil
}
