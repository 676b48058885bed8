// Package session resolves the active session, its on-disk layout and
// the authenticated identity.
package session

// Session carries the authenticated identity for one daemon instance.
// It is constructed once at startup and passed explicitly to every
// component that needs to know who is sending; there is no global
// current-user accessor.
type Session struct {
	Name   string
	UserID string // the user's own phone-number-like ID
}
