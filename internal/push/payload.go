// Package push decodes inbound push-notification payloads into
// normalized events ready for reconciliation.
package push

import (
	"errors"
	"strconv"
	"time"

	"github.com/lmoreira/courier/internal/store"
)

// Wire keys of the push payload. Every value is string-typed on the wire.
const (
	KeyMessageType = "messageType"
	KeyTitle       = "title" // sender ID
	KeyMessage     = "message"
	KeyImage       = "image" // media ID
	KeyPreview     = "imagePreview"
	KeyWidth       = "imageWidth"
	KeyHeight      = "imageHeight"
)

// ErrMalformedPayload marks a payload that cannot be decoded. Such
// events are dropped and logged, never retried.
var ErrMalformedPayload = errors.New("malformed push payload")

// Raw is an undecoded payload as delivered by the transport, published
// on the bus under "push.inbound".
type Raw struct {
	Data   map[string]string
	SentAt time.Time
}

// Inbound is a decoded inbound message event.
type Inbound struct {
	SenderID   string
	Kind       store.Kind
	Body       *string
	MediaID    string
	PreviewB64 string
	Width      int
	Height     int
	SentAt     int64 // unix millis, sender-supplied
}

// ContactUpdate is a remote profile-change event for a known contact.
type ContactUpdate struct {
	ID     string
	Token  *string
	Status *string
}

// Parse decodes a raw payload map. sentAt is the transport-level send
// time used as the message timestamp.
func Parse(data map[string]string, sentAt time.Time) (*Inbound, error) {
	kindStr, ok := data[KeyMessageType]
	if !ok {
		return nil, ErrMalformedPayload
	}
	kind, err := strconv.Atoi(kindStr)
	if err != nil {
		return nil, ErrMalformedPayload
	}

	sender, ok := data[KeyTitle]
	if !ok {
		return nil, ErrMalformedPayload
	}

	in := &Inbound{
		SenderID: sender,
		Kind:     store.Kind(kind),
		SentAt:   sentAt.UnixMilli(),
	}
	if body, ok := data[KeyMessage]; ok {
		in.Body = &body
	}

	switch store.Kind(kind) {
	case store.KindText:
		if in.Body == nil {
			return nil, ErrMalformedPayload
		}
	case store.KindImage:
		in.MediaID, ok = data[KeyImage]
		if !ok {
			return nil, ErrMalformedPayload
		}
		in.PreviewB64, ok = data[KeyPreview]
		if !ok {
			return nil, ErrMalformedPayload
		}
		in.Width, err = strconv.Atoi(data[KeyWidth])
		if err != nil {
			return nil, ErrMalformedPayload
		}
		in.Height, err = strconv.Atoi(data[KeyHeight])
		if err != nil {
			return nil, ErrMalformedPayload
		}
	default:
		return nil, ErrMalformedPayload
	}

	return in, nil
}
