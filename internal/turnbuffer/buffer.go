package turnbuffer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/rzbill/battlelog/internal/storage/pebble"
)

// Item is a buffered turn with its assigned sequence.
type Item struct {
	Seq     uint64
	Header  []byte
	Payload []byte
}

// Buffer is the turn queue of a single battle.
type Buffer struct {
	db       *pebblestore.DB
	battleID string

	mu      sync.Mutex
	lastSeq uint64
}

// Open initializes a Buffer and loads the last sequence from metadata (if any).
func Open(db *pebblestore.DB, battleID string) (*Buffer, error) {
	if battleID == "" {
		return nil, errors.New("turnbuffer: empty battle id")
	}
	buf := &Buffer{db: db, battleID: battleID}
	meta, err := db.Get(KeyMeta(battleID))
	switch {
	case err == nil && len(meta) >= 8:
		buf.lastSeq = binary.BigEndian.Uint64(meta[:8])
	case err != nil && !errors.Is(err, pebblestore.ErrNotFound):
		return nil, fmt.Errorf("turnbuffer: load meta: %w", err)
	}
	return buf, nil
}

// BattleID returns the battle this buffer belongs to.
func (buf *Buffer) BattleID() string { return buf.battleID }

// Len returns the number of turns appended so far, including staged ones.
func (buf *Buffer) Len() uint64 {
	buf.mu.Lock()
	defer buf.mu.Unlock()
	return buf.lastSeq
}

// Stage appends recs to b and returns their sequence numbers. The in-memory
// sequence advances immediately; callers that fail to commit b must reopen
// the buffer.
func (buf *Buffer) Stage(b *pebble.Batch, recs []Record) ([]uint64, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	buf.mu.Lock()
	defer buf.mu.Unlock()

	seqs := make([]uint64, len(recs))
	for i, r := range recs {
		buf.lastSeq++
		if err := b.Set(KeyEntry(buf.battleID, buf.lastSeq), EncodeRecord(r.Header, r.Payload), nil); err != nil {
			return nil, err
		}
		seqs[i] = buf.lastSeq
	}

	var meta [8]byte
	binary.BigEndian.PutUint64(meta[:], buf.lastSeq)
	if err := b.Set(KeyMeta(buf.battleID), meta[:], nil); err != nil {
		return nil, err
	}
	return seqs, nil
}

// ReadAll returns every committed turn in insertion order.
func (buf *Buffer) ReadAll() ([]Item, error) {
	prefix := entryPrefix(buf.battleID)
	kvs, err := buf.db.ScanPrefix(prefix, 0)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(kvs))
	for _, kv := range kvs {
		seq := binary.BigEndian.Uint64(kv.Key[len(prefix):])
		rec, err := DecodeRecord(kv.Value)
		if err != nil {
			return nil, fmt.Errorf("turn %d: %w", seq, err)
		}
		items = append(items, Item{Seq: seq, Header: rec.Header, Payload: rec.Payload})
	}
	return items, nil
}

// StageClear deletes the whole buffer, metadata included, inside b.
func (buf *Buffer) StageClear(b *pebble.Batch) error {
	buf.mu.Lock()
	defer buf.mu.Unlock()
	if err := pebblestore.DeletePrefix(b, KeyPrefix(buf.battleID)); err != nil {
		return err
	}
	buf.lastSeq = 0
	return nil
}
