package pebblestore

import (
	"context"
	"errors"
	"time"

	"github.com/cockroachdb/pebble"
)

// FsyncMode selects when committed batches reach stable storage.
type FsyncMode int

const (
	FsyncModeUnspecified FsyncMode = iota
	// FsyncModeAlways syncs the WAL on every commit. A submission is durable
	// once it has been acknowledged.
	FsyncModeAlways
	// FsyncModeInterval lets Pebble group WAL syncs within FsyncInterval.
	FsyncModeInterval
	// FsyncModeNever leaves syncing to Pebble. Acknowledged submissions can be
	// lost on a crash.
	FsyncModeNever
)

const defaultSyncInterval = 5 * time.Millisecond

// Options configures Open.
type Options struct {
	DataDir       string
	Fsync         FsyncMode
	FsyncInterval time.Duration
	// PebbleOptions is passed through to pebble.Open. Nil uses Pebble defaults.
	PebbleOptions *pebble.Options
	// Metrics receives read and commit observations. Optional.
	Metrics MetricsHook
}

// MetricsHook observes storage traffic.
type MetricsHook interface {
	ObserveRead(elapsed time.Duration, bytes int)
	ObserveBatchCommit(elapsed time.Duration, numOps int, bytes int)
}

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = pebble.ErrNotFound

type noopMetrics struct{}

func (noopMetrics) ObserveRead(time.Duration, int)             {}
func (noopMetrics) ObserveBatchCommit(time.Duration, int, int) {}

// DB is the key-value store behind battles, reports and turn buffers.
// Every mutation goes through a batch so a submission lands atomically.
type DB struct {
	inner   *pebble.DB
	sync    pebble.WriteOptions
	metrics MetricsHook
}

// Open creates or opens the database under opts.DataDir.
func Open(opts Options) (*DB, error) {
	if opts.DataDir == "" {
		return nil, errors.New("pebble: Options.DataDir is required")
	}
	po := opts.PebbleOptions
	if po == nil {
		po = &pebble.Options{}
	}
	switch opts.Fsync {
	case FsyncModeAlways, FsyncModeNever:
	case FsyncModeInterval:
		interval := opts.FsyncInterval
		if interval <= 0 {
			interval = defaultSyncInterval
		}
		po.WALMinSyncInterval = func() time.Duration { return interval }
	default:
		po.WALMinSyncInterval = func() time.Duration { return defaultSyncInterval }
	}

	inner, err := pebble.Open(opts.DataDir, po)
	if err != nil {
		return nil, err
	}
	db := &DB{inner: inner, sync: *pebble.NoSync, metrics: opts.Metrics}
	if opts.Fsync == FsyncModeAlways {
		db.sync = *pebble.Sync
	}
	if db.metrics == nil {
		db.metrics = noopMetrics{}
	}
	return db, nil
}

// Close closes the database. It is safe on a nil DB.
func (db *DB) Close() error {
	if db == nil || db.inner == nil {
		return nil
	}
	return db.inner.Close()
}

// Ping opens and closes an iterator to confirm the database is readable.
func (db *DB) Ping(ctx context.Context) error {
	if db == nil || db.inner == nil {
		return errors.New("pebble: db not open")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	it, err := db.inner.NewIter(nil)
	if err != nil {
		return err
	}
	return it.Close()
}

// NewBatch starts an atomic write. The caller commits it with CommitBatch
// and closes it afterwards.
func (db *DB) NewBatch() *pebble.Batch {
	return db.inner.NewBatch()
}

// CommitBatch applies b under the configured fsync mode. A cancelled ctx
// aborts before anything is written.
func (db *DB) CommitBatch(ctx context.Context, b *pebble.Batch) error {
	if b == nil {
		return errors.New("pebble: nil batch")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	err := b.Commit(&db.sync)
	db.metrics.ObserveBatchCommit(time.Since(start), int(b.Count()), b.Len())
	return err
}

// Get returns a copy of the value stored under key.
func (db *DB) Get(key []byte) ([]byte, error) {
	start := time.Now()
	val, closer, err := db.inner.Get(key)
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	out := append([]byte(nil), val...)
	db.metrics.ObserveRead(time.Since(start), len(out))
	return out, nil
}

// KV is a copied key/value pair returned by ScanPrefix.
type KV struct {
	Key   []byte
	Value []byte
}

// PrefixUpperBound returns the smallest key greater than every key with the
// given prefix, or nil when the prefix is all 0xff.
func PrefixUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

// ScanPrefix returns copies of every pair whose key starts with prefix, in
// key order. limit <= 0 means no limit.
func (db *DB) ScanPrefix(prefix []byte, limit int) ([]KV, error) {
	start := time.Now()
	it, err := db.inner.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: PrefixUpperBound(prefix)})
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var (
		out   []KV
		bytes int
	)
	for ok := it.First(); ok; ok = it.Next() {
		kv := KV{Key: append([]byte(nil), it.Key()...), Value: append([]byte(nil), it.Value()...)}
		bytes += len(kv.Key) + len(kv.Value)
		out = append(out, kv)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	db.metrics.ObserveRead(time.Since(start), bytes)
	return out, it.Error()
}

// DeletePrefix stages a range deletion of every key under prefix into b.
func DeletePrefix(b *pebble.Batch, prefix []byte) error {
	end := PrefixUpperBound(prefix)
	if end == nil {
		return errors.New("pebble: cannot range-delete an all-0xff prefix")
	}
	return b.DeleteRange(prefix, end, nil)
}
