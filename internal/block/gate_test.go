package block

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/lmoreira/courier/internal/store"
	"go.uber.org/zap"
)

// fakeRemote records calls and can be told to fail.
type fakeRemote struct {
	failing bool
	blocked []string
	list    []string
}

var errRemote = errors.New("remote unavailable")

func (f *fakeRemote) Block(_ context.Context, id string) error {
	if f.failing {
		return errRemote
	}
	f.blocked = append(f.blocked, id)
	return nil
}

func (f *fakeRemote) Unblock(_ context.Context, id string) error {
	if f.failing {
		return errRemote
	}
	return nil
}

func (f *fakeRemote) Blocklist(_ context.Context) ([]string, error) {
	if f.failing {
		return nil, errRemote
	}
	return f.list, nil
}

func testGate(t *testing.T, remote Remote) (*Gate, *store.DB) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewGate(db, remote, zap.NewNop()), db
}

func TestBlockWritesRemoteThenLocal(t *testing.T) {
	remote := &fakeRemote{}
	g, _ := testGate(t, remote)

	if err := g.Block(context.Background(), "111"); err != nil {
		t.Fatalf("Block() error = %v", err)
	}
	if len(remote.blocked) != 1 || remote.blocked[0] != "111" {
		t.Errorf("remote calls = %v, want [111]", remote.blocked)
	}
	if !g.IsBlocked("111") {
		t.Error("IsBlocked = false after Block")
	}
}

// TestBlockRemoteFailureLeavesLocalUnchanged verifies that a failed
// remote write never dirties the local set: the contact stays unblocked
// and inbound messages keep flowing.
func TestBlockRemoteFailureLeavesLocalUnchanged(t *testing.T) {
	remote := &fakeRemote{failing: true}
	g, _ := testGate(t, remote)

	err := g.Block(context.Background(), "111")
	if err == nil {
		t.Fatal("Block() should surface remote failure")
	}
	if !errors.Is(err, errRemote) {
		t.Errorf("error = %v, want wrapping of remote error", err)
	}
	if g.IsBlocked("111") {
		t.Error("IsBlocked = true after failed remote write")
	}
}

func TestUnblock(t *testing.T) {
	remote := &fakeRemote{}
	g, _ := testGate(t, remote)

	if err := g.Block(context.Background(), "111"); err != nil {
		t.Fatal(err)
	}
	if err := g.Unblock(context.Background(), "111"); err != nil {
		t.Fatalf("Unblock() error = %v", err)
	}
	if g.IsBlocked("111") {
		t.Error("IsBlocked = true after Unblock")
	}
}

func TestUnblockRemoteFailureLeavesLocalUnchanged(t *testing.T) {
	remote := &fakeRemote{}
	g, _ := testGate(t, remote)
	if err := g.Block(context.Background(), "111"); err != nil {
		t.Fatal(err)
	}

	remote.failing = true
	if err := g.Unblock(context.Background(), "111"); err == nil {
		t.Fatal("Unblock() should surface remote failure")
	}
	if !g.IsBlocked("111") {
		t.Error("IsBlocked = false after failed remote unblock")
	}
}

func TestSyncPullsRemoteList(t *testing.T) {
	remote := &fakeRemote{list: []string{"111", "222"}}
	g, db := testGate(t, remote)

	if err := g.Sync(context.Background()); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	for _, id := range remote.list {
		if !g.IsBlocked(id) {
			t.Errorf("IsBlocked(%s) = false after Sync", id)
		}
	}

	list, err := db.ListBlocked()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Errorf("local blocked set has %d entries, want 2", len(list))
	}
}

func TestSyncRemoteFailure(t *testing.T) {
	remote := &fakeRemote{failing: true}
	g, _ := testGate(t, remote)
	if err := g.Sync(context.Background()); err == nil {
		t.Error("Sync() should surface remote failure")
	}
}
