package turnbuffer

import (
	"context"
	"fmt"
	"testing"

	pebblestore "github.com/rzbill/battlelog/internal/storage/pebble"
)

func openDB(t *testing.T, dir string) *pebblestore.DB {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	return db
}

func stageAndCommit(t *testing.T, db *pebblestore.DB, buf *Buffer, payloads ...string) []uint64 {
	t.Helper()
	b := db.NewBatch()
	defer b.Close()
	recs := make([]Record, len(payloads))
	for i, p := range payloads {
		recs[i] = Record{Header: []byte("h"), Payload: []byte(p)}
	}
	seqs, err := buf.Stage(b, recs)
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if err := db.CommitBatch(context.Background(), b); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return seqs
}

func TestStageAssignsSequentialAndReadsInOrder(t *testing.T) {
	db := openDB(t, t.TempDir())
	t.Cleanup(func() { _ = db.Close() })
	buf, err := Open(db, "b1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	seqs := stageAndCommit(t, db, buf, "t1", "t2")
	seqs = append(seqs, stageAndCommit(t, db, buf, "t3")...)
	if fmt.Sprint(seqs) != "[1 2 3]" {
		t.Fatalf("unexpected seqs %v", seqs)
	}
	if buf.Len() != 3 {
		t.Fatalf("len = %d", buf.Len())
	}

	items, err := buf.ReadAll()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("want 3 items, got %d", len(items))
	}
	for i, want := range []string{"t1", "t2", "t3"} {
		if string(items[i].Payload) != want || items[i].Seq != uint64(i+1) {
			t.Fatalf("item %d = seq %d %q", i, items[i].Seq, items[i].Payload)
		}
	}
}

func TestUncommittedStageIsInvisible(t *testing.T) {
	db := openDB(t, t.TempDir())
	t.Cleanup(func() { _ = db.Close() })
	buf, _ := Open(db, "b1")

	b := db.NewBatch()
	if _, err := buf.Stage(b, []Record{{Payload: []byte("lost")}}); err != nil {
		t.Fatalf("stage: %v", err)
	}
	b.Close()

	items, err := buf.ReadAll()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no committed items, got %d", len(items))
	}
	reopened, _ := Open(db, "b1")
	if reopened.Len() != 0 {
		t.Fatalf("reopened len = %d", reopened.Len())
	}
}

func TestDurableAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	db := openDB(t, dir)
	buf, _ := Open(db, "b1")
	stageAndCommit(t, db, buf, "x")
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db2 := openDB(t, dir)
	t.Cleanup(func() { _ = db2.Close() })
	buf2, err := Open(db2, "b1")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	seqs := stageAndCommit(t, db2, buf2, "y")
	if seqs[0] != 2 {
		t.Fatalf("expected seq 2 after reopen, got %d", seqs[0])
	}
}

func TestStageClearIsScopedToBattle(t *testing.T) {
	db := openDB(t, t.TempDir())
	t.Cleanup(func() { _ = db.Close() })
	a, _ := Open(db, "a")
	other, _ := Open(db, "ab")
	stageAndCommit(t, db, a, "1", "2")
	stageAndCommit(t, db, other, "keep")

	b := db.NewBatch()
	if err := a.StageClear(b); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := db.CommitBatch(context.Background(), b); err != nil {
		t.Fatalf("commit: %v", err)
	}
	b.Close()

	if items, _ := a.ReadAll(); len(items) != 0 {
		t.Fatalf("expected cleared buffer, got %d", len(items))
	}
	if items, _ := other.ReadAll(); len(items) != 1 {
		t.Fatalf("expected sibling buffer intact, got %d", len(items))
	}
	if reopened, _ := Open(db, "a"); reopened.Len() != 0 {
		t.Fatalf("meta should be cleared")
	}
}

func TestOpenRejectsEmptyID(t *testing.T) {
	db := openDB(t, t.TempDir())
	t.Cleanup(func() { _ = db.Close() })
	if _, err := Open(db, ""); err == nil {
		t.Fatalf("expected error")
	}
}
