package store

// Kind identifies the content kind of a message.
type Kind int

const (
	KindText  Kind = 1
	KindImage Kind = 2
)

// Contact represents a chat participant keyed by a phone-number-like ID.
// A nil Name means the contact is not saved locally; a nil Token means
// the contact is unreachable for push delivery.
type Contact struct {
	PhoneNumber string
	Name        *string
	Token       *string
	Status      *string
}

// Message represents a single stored message. Sent is nil while an
// outbound message is in flight, true once acknowledged and false on
// failure; it stays nil for inbound messages. Read is always true for
// outbound messages.
type Message struct {
	ID        int64
	ContactID string
	Body      *string
	Inbound   bool
	Sent      *bool
	Read      bool
	Timestamp int64
	Kind      Kind
	MediaID   *string
}

// Conversation is a contact joined with its messages, derived on read
// and never persisted as a row of its own.
type Conversation struct {
	Contact  Contact
	Messages []Message
}

// LatestTimestamp returns the timestamp of the most recent message,
// or 0 for an empty conversation.
func (c *Conversation) LatestTimestamp() int64 {
	var latest int64
	for _, m := range c.Messages {
		if m.Timestamp >= latest {
			latest = m.Timestamp
		}
	}
	return latest
}

// SearchResult holds a message with a search snippet.
type SearchResult struct {
	Message Message
	Snippet string
}
