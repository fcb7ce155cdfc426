package id

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// ID is 16 bytes big-endian: [8 bytes unix ms][8 bytes sequence].
type ID [16]byte

// String returns the canonical form, 32 lowercase hex characters.
func (i ID) String() string { return hex.EncodeToString(i[:]) }

// Time returns the creation time embedded in the ID.
func (i ID) Time() time.Time {
	return time.UnixMilli(int64(binary.BigEndian.Uint64(i[:8])))
}

// Parse decodes the canonical form produced by String.
func Parse(s string) (ID, error) {
	var out ID
	if len(s) != 2*len(out) {
		return ID{}, fmt.Errorf("id: want %d hex chars, got %d", 2*len(out), len(s))
	}
	if _, err := hex.Decode(out[:], []byte(s)); err != nil {
		return ID{}, fmt.Errorf("id: %w", err)
	}
	if out.String() != s {
		return ID{}, fmt.Errorf("id: %q is not lowercase hex", s)
	}
	return out, nil
}

// Generator hands out strictly increasing IDs. Safe for concurrent use.
type Generator struct {
	now func() time.Time

	mu     sync.Mutex
	lastMs int64
	seq    uint64
}

// NewGenerator returns a Generator on the wall clock.
func NewGenerator() *Generator { return NewGeneratorAt(time.Now) }

// NewGeneratorAt returns a Generator reading time from now.
func NewGeneratorAt(now func() time.Time) *Generator {
	return &Generator{now: now}
}

// Next returns a new ID. When the clock stands still or moves backwards the
// last millisecond is kept and the sequence advances.
func (g *Generator) Next() ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms <= g.lastMs {
		ms = g.lastMs
		g.seq++
	} else {
		g.seq = 0
	}
	g.lastMs = ms

	var out ID
	binary.BigEndian.PutUint64(out[:8], uint64(ms))
	binary.BigEndian.PutUint64(out[8:], g.seq)
	return out
}
