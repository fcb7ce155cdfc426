package pebblestore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cockroachdb/pebble"
)

type testMetrics struct {
	read         int
	batchCommits int
	batchOps     int
}

func (m *testMetrics) ObserveRead(_ time.Duration, bytes int) { m.read += bytes }
func (m *testMetrics) ObserveBatchCommit(_ time.Duration, numOps int, _ int) {
	m.batchCommits++
	m.batchOps += numOps
}

func newTestDB(t *testing.T, mode FsyncMode) (*DB, *testMetrics) {
	t.Helper()
	m := &testMetrics{}
	db, err := Open(Options{DataDir: t.TempDir(), Fsync: mode, FsyncInterval: 2 * time.Millisecond, Metrics: m})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, m
}

func put(t *testing.T, db *DB, pairs ...string) {
	t.Helper()
	b := db.NewBatch()
	defer b.Close()
	for i := 0; i+1 < len(pairs); i += 2 {
		if err := b.Set([]byte(pairs[i]), []byte(pairs[i+1]), nil); err != nil {
			t.Fatalf("batch set: %v", err)
		}
	}
	if err := db.CommitBatch(context.Background(), b); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestOpenRequiresDataDir(t *testing.T) {
	if _, err := Open(Options{}); err == nil {
		t.Fatalf("expected error without DataDir")
	}
}

func TestBatchThenGet(t *testing.T) {
	for _, mode := range []FsyncMode{FsyncModeAlways, FsyncModeInterval, FsyncModeNever, FsyncModeUnspecified} {
		t.Run(fmt.Sprint(mode), func(t *testing.T) {
			db, m := newTestDB(t, mode)
			put(t, db, "battles/a", "meta-a", "battles/b", "meta-b")

			got, err := db.Get([]byte("battles/a"))
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if string(got) != "meta-a" {
				t.Fatalf("got %q want %q", got, "meta-a")
			}
			if m.batchCommits != 1 || m.batchOps != 2 {
				t.Fatalf("commit metrics = %d commits, %d ops", m.batchCommits, m.batchOps)
			}
			if m.read != len("meta-a") {
				t.Fatalf("read metrics = %d bytes", m.read)
			}
			if _, err := db.Get([]byte("battles/zz")); !errors.Is(err, ErrNotFound) {
				t.Fatalf("want ErrNotFound, got %v", err)
			}
		})
	}
}

func TestGetReturnsCopy(t *testing.T) {
	db, _ := newTestDB(t, FsyncModeAlways)
	put(t, db, "k", "value")
	got, err := db.Get([]byte("k"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got[0] = 'X'
	again, err := db.Get([]byte("k"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(again) != "value" {
		t.Fatalf("stored value changed through returned slice: %q", again)
	}
}

func TestScanAndDeletePrefix(t *testing.T) {
	db, _ := newTestDB(t, FsyncModeAlways)
	var pairs []string
	for i := 0; i < 5; i++ {
		pairs = append(pairs, fmt.Sprintf("turns/b1/%d", i), fmt.Sprint(i))
	}
	put(t, db, append(pairs, "turns/b2/0", "x")...)

	kvs, err := db.ScanPrefix([]byte("turns/b1/"), 0)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(kvs) != 5 || string(kvs[0].Key) != "turns/b1/0" || string(kvs[4].Key) != "turns/b1/4" {
		t.Fatalf("unexpected scan result: %d pairs", len(kvs))
	}
	if limited, _ := db.ScanPrefix([]byte("turns/b1/"), 2); len(limited) != 2 {
		t.Fatalf("limit: got %d", len(limited))
	}

	b := db.NewBatch()
	if err := DeletePrefix(b, []byte("turns/b1/")); err != nil {
		t.Fatalf("delete prefix: %v", err)
	}
	if err := db.CommitBatch(context.Background(), b); err != nil {
		t.Fatalf("commit: %v", err)
	}
	b.Close()

	kvs, err = db.ScanPrefix([]byte("turns/"), 0)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(kvs) != 1 || string(kvs[0].Key) != "turns/b2/0" {
		t.Fatalf("expected only turns/b2/0 to survive, got %d pairs", len(kvs))
	}
}

func TestDeletePrefixRejectsAllFF(t *testing.T) {
	db, _ := newTestDB(t, FsyncModeNever)
	b := db.NewBatch()
	defer b.Close()
	if err := DeletePrefix(b, []byte{0xff, 0xff}); err == nil {
		t.Fatalf("expected error for an all-0xff prefix")
	}
}

func TestPrefixUpperBound(t *testing.T) {
	cases := []struct {
		in, want []byte
	}{
		{[]byte("a/"), []byte("a0")},
		{[]byte{0x01, 0xff}, []byte{0x02}},
		{[]byte{0xff, 0xff}, nil},
	}
	for _, c := range cases {
		got := PrefixUpperBound(c.in)
		if string(got) != string(c.want) {
			t.Fatalf("PrefixUpperBound(%x) = %x want %x", c.in, got, c.want)
		}
	}
}

func TestCommitBatchHonoursContext(t *testing.T) {
	db, m := newTestDB(t, FsyncModeAlways)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := db.NewBatch()
	defer b.Close()
	_ = b.Set([]byte("z"), []byte("1"), nil)
	if err := db.CommitBatch(ctx, b); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if m.batchCommits != 0 {
		t.Fatalf("cancelled commit was observed")
	}
	if _, err := db.Get([]byte("z")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cancelled batch was applied: %v", err)
	}
	if err := db.CommitBatch(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil batch")
	}
}

func TestPing(t *testing.T) {
	db, _ := newTestDB(t, FsyncModeAlways)
	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := db.Ping(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}

	var closed *DB
	if err := closed.Ping(context.Background()); err == nil {
		t.Fatalf("expected error from nil db")
	}
	if err := closed.Close(); err != nil {
		t.Fatalf("close nil db: %v", err)
	}
}

func TestPebbleOptionsPassThrough(t *testing.T) {
	db, err := Open(Options{DataDir: t.TempDir(), PebbleOptions: &pebble.Options{MemTableSize: 8 << 20}})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
