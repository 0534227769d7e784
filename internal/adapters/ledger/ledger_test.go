package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/imap-autoresponder/internal/core"
)

const testCooldown = 24 * time.Hour

// testLedgerContract exercises the behavior every backend must share.
func testLedgerContract(t *testing.T, l core.ReplyLedger) {
	t.Helper()
	ctx := context.Background()

	ok, err := l.MayReply(ctx, "unknown@example.com")
	if err != nil {
		t.Fatalf("MayReply(unknown) error = %v", err)
	}
	if !ok {
		t.Fatal("sender with no record should be eligible")
	}

	if err := l.RecordReply(ctx, "alice@example.com", time.Now()); err != nil {
		t.Fatalf("RecordReply() error = %v", err)
	}
	ok, err = l.MayReply(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("MayReply(alice) error = %v", err)
	}
	if ok {
		t.Fatal("sender with a fresh record should be within cooldown")
	}

	ok, err = l.MayReply(ctx, "bob@example.com")
	if err != nil {
		t.Fatalf("MayReply(bob) error = %v", err)
	}
	if !ok {
		t.Fatal("record for one sender must not affect another")
	}

	if err := l.RecordReply(ctx, "carol@example.com", time.Now().Add(-25*time.Hour)); err != nil {
		t.Fatalf("RecordReply(stale) error = %v", err)
	}
	ok, err = l.MayReply(ctx, "carol@example.com")
	if err != nil {
		t.Fatalf("MayReply(carol) error = %v", err)
	}
	if !ok {
		t.Fatal("sender whose cooldown has elapsed should be eligible")
	}

	// A new record replaces the old one and restarts the window.
	if err := l.RecordReply(ctx, "carol@example.com", time.Now()); err != nil {
		t.Fatalf("RecordReply(refresh) error = %v", err)
	}
	ok, err = l.MayReply(ctx, "carol@example.com")
	if err != nil {
		t.Fatalf("MayReply(carol) error = %v", err)
	}
	if ok {
		t.Fatal("refreshed record should restart the cooldown")
	}
}

func TestMemoryLedger(t *testing.T) {
	l := NewMemoryLedger(zap.NewNop(), testCooldown, 0, time.Hour)
	defer l.Close()
	testLedgerContract(t, l)
}

func TestMemoryLedgerRemoveStale(t *testing.T) {
	l := NewMemoryLedger(zap.NewNop(), testCooldown, 0, time.Hour)
	defer l.Close()
	ctx := context.Background()

	l.RecordReply(ctx, "old@example.com", time.Now().Add(-48*time.Hour))
	l.RecordReply(ctx, "new@example.com", time.Now())

	if removed := l.removeStale(time.Now().Add(-36 * time.Hour)); removed != 1 {
		t.Fatalf("removeStale() = %d, want 1", removed)
	}
	if _, ok := l.records["old@example.com"]; ok {
		t.Error("stale record survived the sweep")
	}
	if _, ok := l.records["new@example.com"]; !ok {
		t.Error("fresh record removed by the sweep")
	}
}

func TestSQLiteLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replies.db")
	l, err := NewSQLiteLedger(path, zap.NewNop(), testCooldown, 0, time.Hour)
	if err != nil {
		t.Fatalf("NewSQLiteLedger() error = %v", err)
	}
	defer l.Close()
	testLedgerContract(t, l)
}

func TestSQLiteLedgerSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replies.db")
	ctx := context.Background()

	l, err := NewSQLiteLedger(path, zap.NewNop(), testCooldown, 0, time.Hour)
	if err != nil {
		t.Fatalf("NewSQLiteLedger() error = %v", err)
	}
	if err := l.RecordReply(ctx, "alice@example.com", time.Now()); err != nil {
		t.Fatalf("RecordReply() error = %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewSQLiteLedger(path, zap.NewNop(), testCooldown, 0, time.Hour)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	ok, err := reopened.MayReply(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("MayReply() error = %v", err)
	}
	if ok {
		t.Fatal("cooldown record lost across reopen")
	}
}

func TestSQLiteLedgerRemoveStale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replies.db")
	l, err := NewSQLiteLedger(path, zap.NewNop(), testCooldown, 0, time.Hour)
	if err != nil {
		t.Fatalf("NewSQLiteLedger() error = %v", err)
	}
	defer l.Close()
	ctx := context.Background()

	l.RecordReply(ctx, "old@example.com", time.Now().Add(-48*time.Hour))
	l.RecordReply(ctx, "new@example.com", time.Now())

	removed, err := l.removeStale(time.Now().Add(-36 * time.Hour))
	if err != nil {
		t.Fatalf("removeStale() error = %v", err)
	}
	if removed != 1 {
		t.Fatalf("removeStale() = %d, want 1", removed)
	}

	ok, err := l.MayReply(ctx, "new@example.com")
	if err != nil {
		t.Fatalf("MayReply() error = %v", err)
	}
	if ok {
		t.Error("fresh record removed by the sweep")
	}
}

func TestBoltLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replies.bolt")
	l, err := NewBoltLedger(path, zap.NewNop(), testCooldown, 0, time.Hour)
	if err != nil {
		t.Fatalf("NewBoltLedger() error = %v", err)
	}
	defer l.Close()
	testLedgerContract(t, l)
}

func TestBoltLedgerSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replies.bolt")
	ctx := context.Background()

	l, err := NewBoltLedger(path, zap.NewNop(), testCooldown, 0, time.Hour)
	if err != nil {
		t.Fatalf("NewBoltLedger() error = %v", err)
	}
	if err := l.RecordReply(ctx, "alice@example.com", time.Now()); err != nil {
		t.Fatalf("RecordReply() error = %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewBoltLedger(path, zap.NewNop(), testCooldown, 0, time.Hour)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	ok, err := reopened.MayReply(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("MayReply() error = %v", err)
	}
	if ok {
		t.Fatal("cooldown record lost across reopen")
	}
}

func TestBoltLedgerRemoveStale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replies.bolt")
	l, err := NewBoltLedger(path, zap.NewNop(), testCooldown, 0, time.Hour)
	if err != nil {
		t.Fatalf("NewBoltLedger() error = %v", err)
	}
	defer l.Close()
	ctx := context.Background()

	l.RecordReply(ctx, "old@example.com", time.Now().Add(-48*time.Hour))
	l.RecordReply(ctx, "new@example.com", time.Now())

	removed, err := l.removeStale(time.Now().Add(-36 * time.Hour))
	if err != nil {
		t.Fatalf("removeStale() error = %v", err)
	}
	if removed != 1 {
		t.Fatalf("removeStale() = %d, want 1", removed)
	}

	ok, err := l.MayReply(ctx, "new@example.com")
	if err != nil {
		t.Fatalf("MayReply() error = %v", err)
	}
	if ok {
		t.Error("fresh record removed by the sweep")
	}
}
