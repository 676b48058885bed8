// Package outbox drives outbound messages through their delivery
// attempt against the abstract send and upload ports.
package outbox

import (
	"context"

	"github.com/lmoreira/courier/internal/store"
	"go.uber.org/zap"
)

// Notification is the wire shape handed to the send port.
type Notification struct {
	SenderID       string
	RecipientToken string
	Kind           store.Kind
	Body           *string
	MediaID        string
	PreviewB64     string
	Width          int
	Height         int
}

// Sender is the push delivery port.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// Uploader is the media upload port. For image messages the upload
// must succeed before the notification is dispatched.
type Uploader interface {
	Upload(ctx context.Context, data []byte, mediaID string) error
}

// Job is one delivery attempt for a stored message. Media is non-nil
// for image messages that still need their bytes uploaded.
type Job struct {
	MessageID    int64
	Notification Notification
	Media        []byte
}

// Tracker executes delivery attempts. Attempts are fire-and-forget:
// once accepted they run to a terminal outcome and are never cancelled
// by the caller going away.
type Tracker struct {
	sender   Sender
	uploader Uploader
	logger   *zap.Logger
}

// NewTracker creates a tracker over the given ports.
func NewTracker(sender Sender, uploader Uploader, logger *zap.Logger) *Tracker {
	return &Tracker{sender: sender, uploader: uploader, logger: logger}
}

// Deliver starts an asynchronous delivery attempt for job and invokes
// done with the terminal outcome. Port errors are mapped to a failed
// outcome, never propagated.
func (t *Tracker) Deliver(ctx context.Context, job Job, done func(sent bool)) {
	go func() {
		done(t.attempt(ctx, job))
	}()
}

func (t *Tracker) attempt(ctx context.Context, job Job) bool {
	if job.Media != nil {
		if err := t.uploader.Upload(ctx, job.Media, job.Notification.MediaID); err != nil {
			t.logger.Error("media upload failed",
				zap.Int64("msg_id", job.MessageID),
				zap.String("media_id", job.Notification.MediaID),
				zap.Error(err))
			return false
		}
	}

	if err := t.sender.Send(ctx, job.Notification); err != nil {
		t.logger.Error("send failed", zap.Int64("msg_id", job.MessageID), zap.Error(err))
		return false
	}

	t.logger.Info("message delivered", zap.Int64("msg_id", job.MessageID))
	return true
}
