package bus

import "time"

// Event kinds published on the bus, grouped by namespace:
//
//	push.inbound        raw push payload awaiting reconciliation
//	push.contact        remote contact snapshot change
//	chats.snapshot      freshly derived conversation snapshot
//	message.upserted    a message row was written
//	message.send_ack    outbound delivery confirmed
//	message.send_failed outbound delivery failed
//	contact.updated     a contact row was rewritten
//	blocklist.changed   local blocked set changed
//	app.state_changed   foreground/background transition
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
