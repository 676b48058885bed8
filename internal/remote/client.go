// Package remote is an HTTP implementation of the send, upload,
// directory and block-list ports. It is one interchangeable backend;
// the core only ever sees the port interfaces.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/lmoreira/courier/internal/block"
	"github.com/lmoreira/courier/internal/directory"
	"github.com/lmoreira/courier/internal/outbox"
	"github.com/lmoreira/courier/internal/session"
)

// Client talks to a courier-compatible remote backend.
type Client struct {
	base string
	sess session.Session
	http *http.Client
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, sess session.Session) *Client {
	return &Client{
		base: baseURL,
		sess: sess,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

type wireNotification struct {
	SenderID       string  `json:"senderId"`
	RecipientToken string  `json:"recipientToken"`
	ContentKind    int     `json:"contentKind"`
	TextBody       *string `json:"textBody,omitempty"`
	MediaID        string  `json:"mediaId,omitempty"`
	PreviewEncoded string  `json:"mediaPreviewEncoded,omitempty"`
	MediaWidth     int     `json:"mediaWidth,omitempty"`
	MediaHeight    int     `json:"mediaHeight,omitempty"`
}

type wireUser struct {
	ID     string  `json:"id"`
	Token  *string `json:"token"`
	Status *string `json:"status"`
}

// Send dispatches a push notification.
func (c *Client) Send(ctx context.Context, n outbox.Notification) error {
	body, err := json.Marshal(wireNotification{
		SenderID:       n.SenderID,
		RecipientToken: n.RecipientToken,
		ContentKind:    int(n.Kind),
		TextBody:       n.Body,
		MediaID:        n.MediaID,
		PreviewEncoded: n.PreviewB64,
		MediaWidth:     n.Width,
		MediaHeight:    n.Height,
	})
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/v1/messages", "application/json", body, nil)
}

// Upload stores media bytes remotely under mediaID.
func (c *Client) Upload(ctx context.Context, data []byte, mediaID string) error {
	return c.do(ctx, http.MethodPut, "/v1/media/"+url.PathEscape(mediaID), "application/octet-stream", data, nil)
}

// Token returns the push token registered for id.
func (c *Client) Token(ctx context.Context, id string) (string, error) {
	entry, err := c.Lookup(ctx, id)
	if err != nil {
		return "", err
	}
	if entry.Token == nil {
		return "", fmt.Errorf("no token for %q", id)
	}
	return *entry.Token, nil
}

// Lookup fetches the directory entry for id.
func (c *Client) Lookup(ctx context.Context, id string) (*directory.Entry, error) {
	var u wireUser
	if err := c.do(ctx, http.MethodGet, "/v1/users/"+url.PathEscape(id), "", nil, &u); err != nil {
		return nil, err
	}
	return &directory.Entry{ID: id, Token: u.Token, Status: u.Status}, nil
}

// LookupAll fetches directory entries for up to directory.BatchSize IDs.
func (c *Client) LookupAll(ctx context.Context, ids []string) ([]directory.Entry, error) {
	if len(ids) > directory.BatchSize {
		return nil, fmt.Errorf("lookup batch too large: %d > %d", len(ids), directory.BatchSize)
	}
	body, err := json.Marshal(map[string][]string{"ids": ids})
	if err != nil {
		return nil, err
	}
	var resp struct {
		Users []wireUser `json:"users"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/users/lookup", "application/json", body, &resp); err != nil {
		return nil, err
	}
	entries := make([]directory.Entry, 0, len(resp.Users))
	for _, u := range resp.Users {
		entries = append(entries, directory.Entry{ID: u.ID, Token: u.Token, Status: u.Status})
	}
	return entries, nil
}

// Block adds id to the caller's remote block list.
func (c *Client) Block(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPut, c.blocklistPath(id), "", nil, nil)
}

// Unblock removes id from the caller's remote block list.
func (c *Client) Unblock(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, c.blocklistPath(id), "", nil, nil)
}

// Blocklist fetches the caller's remote block list.
func (c *Client) Blocklist(ctx context.Context) ([]string, error) {
	var resp struct {
		Blocked []string `json:"blocked"`
	}
	if err := c.do(ctx, http.MethodGet, c.blocklistPath(""), "", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Blocked, nil
}

func (c *Client) blocklistPath(id string) string {
	p := "/v1/blocklist/" + url.PathEscape(c.sess.UserID)
	if id != "" {
		p += "/" + url.PathEscape(id)
	}
	return p
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s %s: decode response: %w", method, path, err)
		}
	}
	return nil
}

// Interface conformance.
var (
	_ outbox.Sender       = (*Client)(nil)
	_ outbox.Uploader     = (*Client)(nil)
	_ directory.Directory = (*Client)(nil)
	_ block.Remote        = (*Client)(nil)
)
