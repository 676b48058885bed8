// Package view derives presentation values from a conversation
// snapshot. Everything here is a pure transform; no state, no I/O.
package view

import "github.com/lmoreira/courier/internal/store"

// ImagePlaceholder is shown as the preview for image messages.
const ImagePlaceholder = "Image"

// Visible filters out conversations with no messages; a contact row
// without history never shows in the top-level list.
func Visible(convs []store.Conversation) []store.Conversation {
	var out []store.Conversation
	for _, c := range convs {
		if len(c.Messages) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// Preview returns the latest-message preview: text verbatim, a fixed
// placeholder for images, nil for an empty conversation.
func Preview(c *store.Conversation) *string {
	var latest *store.Message
	for i := range c.Messages {
		m := &c.Messages[i]
		if latest == nil || m.Timestamp >= latest.Timestamp {
			latest = m
		}
	}
	if latest == nil {
		return nil
	}
	switch latest.Kind {
	case store.KindText:
		return latest.Body
	case store.KindImage:
		p := ImagePlaceholder
		return &p
	default:
		return nil
	}
}

// UnreadCount counts inbound messages not yet read.
func UnreadCount(c *store.Conversation) int {
	n := 0
	for _, m := range c.Messages {
		if m.Inbound && !m.Read {
			n++
		}
	}
	return n
}

// IsReachable reports whether the contact has a push token.
func IsReachable(c *store.Conversation) bool {
	return c.Contact.Token != nil
}

// DisplayName returns the saved contact name, falling back to the raw ID.
func DisplayName(c *store.Contact) string {
	if c.Name != nil {
		return *c.Name
	}
	return c.PhoneNumber
}
