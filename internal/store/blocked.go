package store

import "fmt"

// InsertBlocked adds a phone number to the blocked set (idempotent).
func (db *DB) InsertBlocked(phoneNumber string) error {
	_, err := db.Exec(`INSERT OR IGNORE INTO blocked_contacts (phone_number) VALUES (?)`, phoneNumber)
	if err != nil {
		return fmt.Errorf("insert blocked %q: %w", phoneNumber, err)
	}
	return nil
}

// DeleteBlocked removes a phone number from the blocked set.
func (db *DB) DeleteBlocked(phoneNumber string) error {
	_, err := db.Exec(`DELETE FROM blocked_contacts WHERE phone_number = ?`, phoneNumber)
	if err != nil {
		return fmt.Errorf("delete blocked %q: %w", phoneNumber, err)
	}
	return nil
}

// BlockedExists reports whether a phone number is in the blocked set.
func (db *DB) BlockedExists(phoneNumber string) (bool, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM blocked_contacts WHERE phone_number = ?`, phoneNumber).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("blocked exists %q: %w", phoneNumber, err)
	}
	return n > 0, nil
}

// ListBlocked returns the full blocked set.
func (db *DB) ListBlocked() ([]string, error) {
	rows, err := db.Query(`SELECT phone_number FROM blocked_contacts ORDER BY phone_number ASC`)
	if err != nil {
		return nil, fmt.Errorf("list blocked: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var numbers []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		numbers = append(numbers, n)
	}
	return numbers, rows.Err()
}
