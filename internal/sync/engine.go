// Package sync implements the reconciliation engine: the single writer
// that merges local mutations, inbound push events and delivery
// outcomes into one published conversation snapshot.
package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"sort"
	stdsync "sync"
	"time"

	"github.com/lmoreira/courier/internal/block"
	"github.com/lmoreira/courier/internal/bus"
	"github.com/lmoreira/courier/internal/directory"
	"github.com/lmoreira/courier/internal/media"
	"github.com/lmoreira/courier/internal/notify"
	"github.com/lmoreira/courier/internal/outbox"
	"github.com/lmoreira/courier/internal/presence"
	"github.com/lmoreira/courier/internal/push"
	"github.com/lmoreira/courier/internal/session"
	"github.com/lmoreira/courier/internal/store"
	"github.com/lmoreira/courier/internal/view"
	"go.uber.org/zap"
)

// ErrUnknownMessage is returned when an operation names a message ID
// that does not exist. This is a contract violation, not an expected
// failure mode.
var ErrUnknownMessage = errors.New("unknown message id")

// Deps collects the engine's collaborators.
type Deps struct {
	DB        *store.DB
	Bus       *bus.Bus
	Gate      *block.Gate
	Tracker   *outbox.Tracker
	Media     *media.Store
	Directory directory.Directory
	Notifier  notify.Notifier
	Presence  *presence.Machine
	Session   session.Session
	Logger    *zap.Logger
}

// Engine owns the store mutation path. Every mutation and every
// re-derive runs under one mutex so interleaved insert/read-all
// sequences cannot lose updates. Port calls (send, upload, directory)
// always happen outside that mutex, so a slow network call never
// starves snapshot publication.
type Engine struct {
	db       *store.DB
	bus      *bus.Bus
	gate     *block.Gate
	tracker  *outbox.Tracker
	media    *media.Store
	dir      directory.Directory
	notifier notify.Notifier
	presence *presence.Machine
	sess     session.Session
	logger   *zap.Logger

	mu stdsync.Mutex // serializes store mutations + re-derives

	snapMu   stdsync.RWMutex
	snapshot []store.Conversation

	cancel context.CancelFunc
}

// NewEngine creates the reconciliation engine.
func NewEngine(d Deps) *Engine {
	return &Engine{
		db:       d.DB,
		bus:      d.Bus,
		gate:     d.Gate,
		tracker:  d.Tracker,
		media:    d.Media,
		dir:      d.Directory,
		notifier: d.Notifier,
		presence: d.Presence,
		sess:     d.Session,
		logger:   d.Logger,
	}
}

// Start subscribes to inbound push events on the bus.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	ch, unsub := e.bus.Subscribe("push.", 256)

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				e.handleEvent(ctx, evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the engine.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *Engine) handleEvent(ctx context.Context, evt bus.Event) {
	switch evt.Kind {
	case "push.inbound":
		raw, ok := evt.Payload.(push.Raw)
		if !ok {
			return
		}
		if err := e.Receive(ctx, raw.Data, raw.SentAt); err != nil {
			e.logger.Error("failed to ingest push event", zap.Error(err))
		}
	case "push.contact":
		upd, ok := evt.Payload.(push.ContactUpdate)
		if !ok {
			return
		}
		if err := e.ContactSnapshotChanged(upd.ID, upd.Token, upd.Status); err != nil {
			e.logger.Error("failed to apply contact update", zap.String("contact", upd.ID), zap.Error(err))
		}
	}
}

// Snapshot returns the most recently published conversation snapshot.
// The returned slice must be treated as immutable.
func (e *Engine) Snapshot() []store.Conversation {
	e.snapMu.RLock()
	defer e.snapMu.RUnlock()
	return e.snapshot
}

// Rederive recomputes the published snapshot from the store's current
// contents.
func (e *Engine) Rederive() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rederiveLocked()
}

// rederiveLocked reads all conversations, orders them by latest-message
// timestamp descending (empty conversations sort with timestamp 0, ties
// break on contact ID so repeated derives are stable) and atomically
// replaces the published snapshot. Callers must hold e.mu.
func (e *Engine) rederiveLocked() error {
	convs, err := e.db.AllConversations()
	if err != nil {
		return fmt.Errorf("rederive: %w", err)
	}

	sort.Slice(convs, func(i, j int) bool {
		ti, tj := convs[i].LatestTimestamp(), convs[j].LatestTimestamp()
		if ti != tj {
			return ti > tj
		}
		return convs[i].Contact.PhoneNumber < convs[j].Contact.PhoneNumber
	})

	e.snapMu.Lock()
	e.snapshot = convs
	e.snapMu.Unlock()

	e.bus.Publish(bus.Event{
		Kind:      "chats.snapshot",
		Timestamp: time.Now(),
		Payload:   convs,
	})
	return nil
}

// SendText composes an outbound text message. The message is stored as
// in-flight and published before the send attempt resolves; the
// delivery outcome flips it to sent or failed later.
func (e *Engine) SendText(ctx context.Context, to string, body string) error {
	if e.gate.IsBlocked(to) {
		e.logger.Debug("send to blocked contact dropped", zap.String("contact", to))
		return nil
	}

	contact, err := e.ensureContact(to)
	if err != nil {
		return err
	}

	msg := &store.Message{
		ContactID: to,
		Body:      &body,
		Inbound:   false,
		Read:      true,
		Timestamp: time.Now().UnixMilli(),
		Kind:      store.KindText,
	}

	e.mu.Lock()
	id, err := e.db.InsertMessage(msg)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if err := e.rederiveLocked(); err != nil {
		e.mu.Unlock()
		return err
	}
	e.mu.Unlock()
	e.publishUpserted(to, id)

	if contact.Token == nil {
		// Unreachable contact: no attempt, the message stays in flight.
		e.logger.Warn("contact has no push token, send not attempted", zap.String("contact", to))
		return nil
	}

	e.tracker.Deliver(ctx, outbox.Job{
		MessageID: id,
		Notification: outbox.Notification{
			SenderID:       e.sess.UserID,
			RecipientToken: *contact.Token,
			Kind:           store.KindText,
			Body:           &body,
		},
	}, e.finishSend(id))
	return nil
}

// SendImage composes an outbound image message from encoded image
// bytes. The media is persisted locally under a fresh ID before any
// network work; the upload must succeed before the notification goes
// out.
func (e *Engine) SendImage(ctx context.Context, to string, data []byte, caption *string) error {
	if e.gate.IsBlocked(to) {
		e.logger.Debug("send to blocked contact dropped", zap.String("contact", to))
		return nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	previewB64, width, height, err := media.EncodePreview(img)
	if err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}

	contact, err := e.ensureContact(to)
	if err != nil {
		return err
	}

	mediaID := e.media.NewID()
	if err := e.media.SaveMedia(mediaID, data); err != nil {
		return err
	}

	msg := &store.Message{
		ContactID: to,
		Body:      caption,
		Inbound:   false,
		Read:      true,
		Timestamp: time.Now().UnixMilli(),
		Kind:      store.KindImage,
		MediaID:   &mediaID,
	}

	e.mu.Lock()
	id, err := e.db.InsertMessage(msg)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if err := e.rederiveLocked(); err != nil {
		e.mu.Unlock()
		return err
	}
	e.mu.Unlock()
	e.publishUpserted(to, id)

	if contact.Token == nil {
		e.logger.Warn("contact has no push token, send not attempted", zap.String("contact", to))
		return nil
	}

	e.tracker.Deliver(ctx, outbox.Job{
		MessageID: id,
		Media:     data,
		Notification: outbox.Notification{
			SenderID:       e.sess.UserID,
			RecipientToken: *contact.Token,
			Kind:           store.KindImage,
			Body:           caption,
			MediaID:        mediaID,
			PreviewB64:     previewB64,
			Width:          width,
			Height:         height,
		},
	}, e.finishSend(id))
	return nil
}

// Resend retries a failed outbound message: same identity, same media
// reference, brand-new attempt. The state resets to in-flight first.
func (e *Engine) Resend(ctx context.Context, msgID int64) error {
	e.mu.Lock()
	msg, err := e.db.GetMessage(msgID)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if msg == nil || msg.Inbound {
		e.mu.Unlock()
		return fmt.Errorf("resend %d: %w", msgID, ErrUnknownMessage)
	}
	msg.Sent = nil
	if err := e.db.UpdateMessage(msg); err != nil {
		e.mu.Unlock()
		return err
	}
	if err := e.rederiveLocked(); err != nil {
		e.mu.Unlock()
		return err
	}
	e.mu.Unlock()
	e.publishUpserted(msg.ContactID, msgID)

	contact, err := e.db.GetContact(msg.ContactID)
	if err != nil {
		return err
	}
	if contact == nil || contact.Token == nil {
		e.logger.Warn("contact has no push token, resend not attempted", zap.String("contact", msg.ContactID))
		return nil
	}

	n := outbox.Notification{
		SenderID:       e.sess.UserID,
		RecipientToken: *contact.Token,
		Kind:           msg.Kind,
		Body:           msg.Body,
	}
	var mediaBytes []byte
	if msg.Kind == store.KindImage && msg.MediaID != nil {
		data, err := e.media.LoadMedia(*msg.MediaID)
		if err != nil {
			e.logger.Error("media missing for resend", zap.Int64("msg_id", msgID), zap.Error(err))
			e.completeSend(msgID, false)
			return nil
		}
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			e.completeSend(msgID, false)
			return nil
		}
		previewB64, width, height, err := media.EncodePreview(img)
		if err != nil {
			e.completeSend(msgID, false)
			return nil
		}
		n.MediaID = *msg.MediaID
		n.PreviewB64 = previewB64
		n.Width = width
		n.Height = height
		mediaBytes = data
	}

	e.tracker.Deliver(ctx, outbox.Job{MessageID: msgID, Media: mediaBytes, Notification: n}, e.finishSend(msgID))
	return nil
}

// Receive applies one inbound push payload. Malformed payloads and
// messages from blocked senders are dropped silently; an unknown
// sender whose directory lookup fails drops the event too (accepted
// data loss, there is no retry path).
func (e *Engine) Receive(ctx context.Context, data map[string]string, sentAt time.Time) error {
	p, err := push.Parse(data, sentAt)
	if err != nil {
		e.logger.Warn("push payload dropped", zap.Error(err))
		return nil
	}

	if e.gate.IsBlocked(p.SenderID) {
		return nil
	}

	exists, err := e.db.ContactExists(p.SenderID)
	if err != nil {
		return err
	}

	var newContact *store.Contact
	if !exists {
		entry, err := e.dir.Lookup(ctx, p.SenderID)
		if err != nil || entry == nil || entry.Token == nil {
			e.logger.Warn("unknown sender not in directory, message dropped",
				zap.String("contact", p.SenderID), zap.Error(err))
			return nil
		}
		newContact = &store.Contact{
			PhoneNumber: p.SenderID,
			Token:       entry.Token,
			Status:      entry.Status,
		}
	}

	if p.Kind == store.KindImage {
		// Persist the inline preview before the message row exists so
		// the UI always has something to render.
		preview, err := media.DecodePreview(p.PreviewB64, p.Width, p.Height)
		if err != nil {
			e.logger.Warn("push payload dropped", zap.Error(err))
			return nil
		}
		if err := e.media.SavePreview(p.MediaID, preview); err != nil {
			return err
		}
	}

	msg := &store.Message{
		ContactID: p.SenderID,
		Body:      p.Body,
		Inbound:   true,
		Read:      false,
		Timestamp: p.SentAt,
		Kind:      p.Kind,
	}
	if p.Kind == store.KindImage {
		msg.MediaID = &p.MediaID
	}

	e.mu.Lock()
	if newContact != nil {
		if err := e.db.UpsertContact(newContact); err != nil {
			e.mu.Unlock()
			return err
		}
	}
	id, err := e.db.InsertMessage(msg)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if err := e.rederiveLocked(); err != nil {
		e.mu.Unlock()
		return err
	}
	e.mu.Unlock()
	e.publishUpserted(p.SenderID, id)

	if !e.presence.Foregrounded() && p.Body != nil {
		title := p.SenderID
		if c, err := e.db.GetContact(p.SenderID); err == nil && c != nil {
			title = view.DisplayName(c)
		}
		e.notifier.Notify(title, *p.Body)
	}
	return nil
}

// ContactSnapshotChanged applies a remote profile change to a locally
// known contact; unknown contacts are a no-op.
func (e *Engine) ContactSnapshotChanged(id string, token, status *string) error {
	if status == nil {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.db.GetContact(id)
	if err != nil {
		return err
	}
	if c == nil {
		return nil
	}
	c.Token = token
	c.Status = status
	if err := e.db.UpsertContact(c); err != nil {
		return err
	}
	e.bus.Publish(bus.Event{Kind: "contact.updated", Timestamp: time.Now(), Payload: id})
	return e.rederiveLocked()
}

// MarkConversationRead flips the read flag on every unread inbound
// message of the conversation.
func (e *Engine) MarkConversationRead(contactID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.db.MarkConversationRead(contactID); err != nil {
		return err
	}
	return e.rederiveLocked()
}

// DeleteConversation removes a conversation's messages; a contact
// without a saved name goes with them.
func (e *Engine) DeleteConversation(contactID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	msgs, err := e.db.MessagesFor(contactID)
	if err != nil {
		return err
	}
	ids := make([]int64, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	if err := e.db.DeleteMessages(ids); err != nil {
		return err
	}

	c, err := e.db.GetContact(contactID)
	if err != nil {
		return err
	}
	if c != nil && c.Name == nil {
		if err := e.db.DeleteContact(contactID); err != nil {
			return err
		}
	}
	return e.rederiveLocked()
}

// Block adds a contact to the block list (remote first). On remote
// failure the local set stays unchanged and the error is returned.
func (e *Engine) Block(ctx context.Context, contactID string) error {
	if err := e.gate.Block(ctx, contactID); err != nil {
		return err
	}
	e.bus.Publish(bus.Event{Kind: "blocklist.changed", Timestamp: time.Now(), Payload: contactID})
	return e.Rederive()
}

// Unblock removes a contact from the block list (remote first).
func (e *Engine) Unblock(ctx context.Context, contactID string) error {
	if err := e.gate.Unblock(ctx, contactID); err != nil {
		return err
	}
	e.bus.Publish(bus.Event{Kind: "blocklist.changed", Timestamp: time.Now(), Payload: contactID})
	return e.Rederive()
}

// RefreshContacts re-reads every known contact from the remote
// directory in fixed-size batches, merges tokens and statuses into the
// store and pulls the remote block list.
func (e *Engine) RefreshContacts(ctx context.Context) error {
	contacts, err := e.db.ListContacts()
	if err != nil {
		return err
	}
	ids := make([]string, len(contacts))
	for i, c := range contacts {
		ids[i] = c.PhoneNumber
	}

	entries, err := directory.BatchLookup(ctx, e.dir, ids)
	if err != nil {
		return fmt.Errorf("refresh contacts: %w", err)
	}
	if err := e.gate.Sync(ctx); err != nil {
		e.logger.Warn("block list sync failed", zap.Error(err))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, entry := range entries {
		c, err := e.db.GetContact(entry.ID)
		if err != nil {
			return err
		}
		if c == nil {
			continue
		}
		c.Token = entry.Token
		c.Status = entry.Status
		if err := e.db.UpsertContact(c); err != nil {
			return err
		}
	}
	return e.rederiveLocked()
}

// ensureContact makes sure a contact row exists for an outbound
// compose, creating a minimal one on first exchange.
func (e *Engine) ensureContact(id string) (*store.Contact, error) {
	c, err := e.db.GetContact(id)
	if err != nil {
		return nil, err
	}
	if c != nil {
		return c, nil
	}
	c = &store.Contact{PhoneNumber: id}
	e.mu.Lock()
	err = e.db.UpsertContact(c)
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return c, nil
}

// finishSend returns the delivery completion callback for a message:
// it flips the send state to its terminal value and re-derives.
func (e *Engine) finishSend(msgID int64) func(sent bool) {
	return func(sent bool) {
		e.completeSend(msgID, sent)
	}
}

func (e *Engine) completeSend(msgID int64, sent bool) {
	e.mu.Lock()
	msg, err := e.db.GetMessage(msgID)
	if err != nil || msg == nil {
		e.mu.Unlock()
		e.logger.Error("delivery outcome for missing message", zap.Int64("msg_id", msgID), zap.Error(err))
		return
	}
	msg.Sent = &sent
	if err := e.db.UpdateMessage(msg); err != nil {
		e.mu.Unlock()
		e.logger.Error("failed to record delivery outcome", zap.Int64("msg_id", msgID), zap.Error(err))
		return
	}
	if err := e.rederiveLocked(); err != nil {
		e.mu.Unlock()
		e.logger.Error("rederive after delivery failed", zap.Error(err))
		return
	}
	e.mu.Unlock()

	kind := "message.send_ack"
	if !sent {
		kind = "message.send_failed"
	}
	e.bus.Publish(bus.Event{Kind: kind, Timestamp: time.Now(), Payload: msgID})
}

// publishUpserted announces a stored message on the bus.
func (e *Engine) publishUpserted(contactID string, msgID int64) {
	e.bus.Publish(bus.Event{
		Kind:      "message.upserted",
		Timestamp: time.Now(),
		Payload: map[string]any{
			"contact_id": contactID,
			"msg_id":     msgID,
		},
	})
}
