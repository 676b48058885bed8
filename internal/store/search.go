package store

// SearchMessages performs a full-text search on message bodies.
func (db *DB) SearchMessages(query string, contactID string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 50
	}

	q := `
		SELECT m.id, m.contact_id, m.body, m.inbound, m.sent, m.seen,
		       m.timestamp, m.kind, m.media_id,
		       snippet(messages_fts, 0, '<<', '>>', '...', 32)
		FROM messages_fts f
		JOIN messages m ON m.id = f.rowid
		WHERE messages_fts MATCH ?`

	args := []any{query}
	if contactID != "" {
		q += " AND m.contact_id = ?"
		args = append(args, contactID)
	}
	q += " ORDER BY rank LIMIT ?"
	args = append(args, limit)

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(
			&r.Message.ID, &r.Message.ContactID, &r.Message.Body,
			&r.Message.Inbound, &r.Message.Sent, &r.Message.Read,
			&r.Message.Timestamp, &r.Message.Kind, &r.Message.MediaID,
			&r.Snippet,
		); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
