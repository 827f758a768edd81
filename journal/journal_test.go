// ABOUTME: Tests for the SQLite event journal: append idempotence, ordering, and per-board scoping.
package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/2389-research/retroboard/board"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func newEvent(boardID string, payload board.EventPayload) board.RemoteEvent {
	return board.RemoteEvent{
		EventID:   board.NewULID(),
		BoardID:   boardID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

func TestJournalAppendAndReadBack(t *testing.T) {
	j := openTestJournal(t)

	ev := newEvent("board-1", board.CardMovedPayload{CardID: "c1", ColumnID: "col-2"})
	if err := j.Append(ev); err != nil {
		t.Fatalf("Append: %v", err)
	}

	events, err := j.Events("board-1")
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if events[0].EventID != ev.EventID {
		t.Errorf("EventID = %s, want %s", events[0].EventID, ev.EventID)
	}
	moved, ok := events[0].Payload.(board.CardMovedPayload)
	if !ok || moved.ColumnID != "col-2" {
		t.Errorf("payload = %+v", events[0].Payload)
	}
}

func TestJournalAppendIdempotent(t *testing.T) {
	j := openTestJournal(t)

	ev := newEvent("board-1", board.CardDeletedPayload{CardID: "c1"})
	for i := 0; i < 3; i++ {
		if err := j.Append(ev); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	n, err := j.Count("board-1")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("Count = %d, want 1 (redelivery ignored)", n)
	}
}

func TestJournalOrderedByEventID(t *testing.T) {
	j := openTestJournal(t)

	// ULIDs are lexicographically time-ordered, so insertion order and ID
	// order coincide.
	var ids []string
	for i := 0; i < 5; i++ {
		ev := newEvent("board-1", board.BoardRenamedPayload{Name: "n"})
		ids = append(ids, ev.EventID.String())
		if err := j.Append(ev); err != nil {
			t.Fatalf("Append: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	events, err := j.Events("board-1")
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 5 {
		t.Fatalf("len(events) = %d", len(events))
	}
	for i, ev := range events {
		if ev.EventID.String() != ids[i] {
			t.Errorf("events[%d] = %s, want %s", i, ev.EventID, ids[i])
		}
	}
}

func TestJournalScopedPerBoard(t *testing.T) {
	j := openTestJournal(t)

	if err := j.Append(newEvent("board-1", board.BoardClosedPayload{})); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := j.Append(newEvent("board-2", board.BoardClosedPayload{})); err != nil {
		t.Fatalf("Append: %v", err)
	}

	n, err := j.Count("board-1")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("Count(board-1) = %d, want 1", n)
	}
	events, err := j.Events("board-2")
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 1 || events[0].BoardID != "board-2" {
		t.Errorf("Events(board-2) = %+v", events)
	}
}

func TestJournalInMemory(t *testing.T) {
	j, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:): %v", err)
	}
	defer j.Close()

	if err := j.Append(newEvent("board-1", board.CardDeletedPayload{CardID: "c1"})); err != nil {
		t.Fatalf("Append: %v", err)
	}
	n, _ := j.Count("board-1")
	if n != 1 {
		t.Errorf("Count = %d", n)
	}
}
