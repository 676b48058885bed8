package store

import (
	"database/sql"
	"fmt"
)

// UpsertContact inserts or updates a contact. A nil incoming name never
// clears a saved name; token and status always take the new values.
func (db *DB) UpsertContact(c *Contact) error {
	_, err := db.Exec(`
		INSERT INTO contacts (phone_number, name, token, status)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(phone_number) DO UPDATE SET
			name = COALESCE(excluded.name, contacts.name),
			token = excluded.token,
			status = excluded.status`,
		c.PhoneNumber, c.Name, c.Token, c.Status)
	if err != nil {
		return fmt.Errorf("upsert contact %q: %w", c.PhoneNumber, err)
	}
	return nil
}

// GetContact returns a contact by phone number, or nil when absent.
func (db *DB) GetContact(phoneNumber string) (*Contact, error) {
	var c Contact
	err := db.QueryRow(`SELECT phone_number, name, token, status FROM contacts WHERE phone_number = ?`, phoneNumber).
		Scan(&c.PhoneNumber, &c.Name, &c.Token, &c.Status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get contact %q: %w", phoneNumber, err)
	}
	return &c, nil
}

// ContactExists reports whether a contact row exists.
func (db *DB) ContactExists(phoneNumber string) (bool, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM contacts WHERE phone_number = ?`, phoneNumber).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("contact exists %q: %w", phoneNumber, err)
	}
	return n > 0, nil
}

// ListContacts returns all contacts ordered by phone number.
func (db *DB) ListContacts() ([]Contact, error) {
	rows, err := db.Query(`SELECT phone_number, name, token, status FROM contacts ORDER BY phone_number ASC`)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var contacts []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.PhoneNumber, &c.Name, &c.Token, &c.Status); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// DeleteContact removes a contact row. Messages referencing it are
// removed by the foreign key cascade.
func (db *DB) DeleteContact(phoneNumber string) error {
	_, err := db.Exec(`DELETE FROM contacts WHERE phone_number = ?`, phoneNumber)
	if err != nil {
		return fmt.Errorf("delete contact %q: %w", phoneNumber, err)
	}
	return nil
}
