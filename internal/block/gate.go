// Package block implements the blocked-contact gate applied to both
// inbound receipt and outbound sends.
package block

import (
	"context"
	"fmt"

	"github.com/lmoreira/courier/internal/store"
	"go.uber.org/zap"
)

// Remote is the remote block-list port. The remote set is the source
// of truth; local writes only happen after a remote write succeeds.
type Remote interface {
	Block(ctx context.Context, id string) error
	Unblock(ctx context.Context, id string) error
	Blocklist(ctx context.Context) ([]string, error)
}

// Gate answers blocked-membership queries from the local store and
// coordinates remote-then-local block-list writes.
type Gate struct {
	db     *store.DB
	remote Remote
	logger *zap.Logger
}

// NewGate creates a gate backed by the store's blocked set.
func NewGate(db *store.DB, remote Remote, logger *zap.Logger) *Gate {
	return &Gate{db: db, remote: remote, logger: logger}
}

// IsBlocked reports whether id is in the local blocked set. Read
// failures are treated as not blocked.
func (g *Gate) IsBlocked(id string) bool {
	blocked, err := g.db.BlockedExists(id)
	if err != nil {
		g.logger.Warn("blocked lookup failed", zap.String("contact", id), zap.Error(err))
		return false
	}
	return blocked
}

// Block adds id to the block list, remote first. If the remote write
// fails the local set is left unchanged and the error is returned.
func (g *Gate) Block(ctx context.Context, id string) error {
	if err := g.remote.Block(ctx, id); err != nil {
		return fmt.Errorf("remote block %q: %w", id, err)
	}
	return g.db.InsertBlocked(id)
}

// Unblock removes id from the block list, remote first.
func (g *Gate) Unblock(ctx context.Context, id string) error {
	if err := g.remote.Unblock(ctx, id); err != nil {
		return fmt.Errorf("remote unblock %q: %w", id, err)
	}
	return g.db.DeleteBlocked(id)
}

// Sync pulls the remote block list into the local set.
func (g *Gate) Sync(ctx context.Context) error {
	ids, err := g.remote.Blocklist(ctx)
	if err != nil {
		return fmt.Errorf("fetch block list: %w", err)
	}
	for _, id := range ids {
		if err := g.db.InsertBlocked(id); err != nil {
			return err
		}
	}
	return nil
}
