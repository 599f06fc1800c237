package emit

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestJournal(t *testing.T) *SQLiteEmitter {
	t.Helper()
	// A file under t.TempDir() rather than :memory: so the WAL pragma
	// path is exercised too.
	journal, err := NewSQLiteEmitter(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("NewSQLiteEmitter failed: %v", err)
	}
	t.Cleanup(func() { _ = journal.Close() })
	return journal
}

func TestSQLiteEmitter_Emit(t *testing.T) {
	journal := newTestJournal(t)
	ctx := context.Background()

	journal.Emit(Event{Site: "Amy", Seq: 1, Msg: "data_admitted",
		Meta: map[string]interface{}{"did": "did:00"}})
	journal.Emit(Event{Site: "Amy", Seq: 2, Msg: "sleep"})
	journal.Emit(Event{Site: "Bob", Seq: 1, Msg: "recv"})

	if n, err := journal.Count(ctx, "Amy"); err != nil || n != 2 {
		t.Errorf("Count(Amy) = %d, %v; want 2, nil", n, err)
	}
	if n, err := journal.Count(ctx, ""); err != nil || n != 3 {
		t.Errorf("Count(all) = %d, %v; want 3, nil", n, err)
	}
}

func TestSQLiteEmitter_DuplicateSeqIgnored(t *testing.T) {
	journal := newTestJournal(t)
	ctx := context.Background()

	event := Event{Site: "Amy", Seq: 1, Msg: "send"}
	journal.Emit(event)
	journal.Emit(event)

	if n, err := journal.Count(ctx, "Amy"); err != nil || n != 1 {
		t.Errorf("Count(Amy) = %d, %v; want 1, nil", n, err)
	}
}

func TestSQLiteEmitter_EmitBatch(t *testing.T) {
	journal := newTestJournal(t)
	ctx := context.Background()

	events := make([]Event, 20)
	for i := range events {
		events[i] = Event{Site: "Cho", Seq: i + 1, Msg: "send"}
	}
	if err := journal.EmitBatch(ctx, events); err != nil {
		t.Fatalf("EmitBatch failed: %v", err)
	}
	if n, err := journal.Count(ctx, "Cho"); err != nil || n != 20 {
		t.Errorf("Count(Cho) = %d, %v; want 20, nil", n, err)
	}
}

func TestSQLiteEmitter_Close(t *testing.T) {
	journal := newTestJournal(t)
	if err := journal.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	// Emits after close are silently dropped, not panics.
	journal.Emit(Event{Site: "Amy", Seq: 1, Msg: "late"})
	if err := journal.Close(); err != nil {
		t.Errorf("second Close = %v; want nil", err)
	}
}
