// Package keydict interns event field names into per-battle integer
// positions.
//
// A Dictionary is append-only: a name keeps the position it was first given
// for the life of the battle, so events written early still decode after the
// table has grown.
package keydict

import (
	"fmt"
	"sort"
)

// Dictionary maps field names to positions. Not safe for concurrent mutation.
type Dictionary struct {
	keys []string
	pos  map[string]int
}

// New builds a dictionary from a persisted key map.
func New(keys []string) *Dictionary {
	d := &Dictionary{keys: append([]string(nil), keys...), pos: make(map[string]int, len(keys))}
	for i, k := range d.keys {
		if _, dup := d.pos[k]; !dup {
			d.pos[k] = i
		}
	}
	return d
}

// Len returns the number of interned names.
func (d *Dictionary) Len() int { return len(d.keys) }

// Keys returns a copy of the table, indexed by position.
func (d *Dictionary) Keys() []string { return append([]string(nil), d.keys...) }

// Position returns the position of name.
func (d *Dictionary) Position(name string) (int, bool) {
	p, ok := d.pos[name]
	return p, ok
}

// Encode replaces field names with positions, first appending unseen names
// in sorted order. added lists the names appended by this call.
func (d *Dictionary) Encode(fields map[string]any) (map[int]any, []string) {
	var added []string
	for name := range fields {
		if _, ok := d.pos[name]; !ok {
			added = append(added, name)
		}
	}
	sort.Strings(added)
	for _, name := range added {
		d.pos[name] = len(d.keys)
		d.keys = append(d.keys, name)
	}

	out := make(map[int]any, len(fields))
	for name, v := range fields {
		out[d.pos[name]] = v
	}
	return out, added
}

// Decode maps positions back to names.
func (d *Dictionary) Decode(data map[int]any) (map[string]any, error) {
	return Decode(d.keys, data)
}

// Decode resolves data against a key map without building a Dictionary.
func Decode(keys []string, data map[int]any) (map[string]any, error) {
	out := make(map[string]any, len(data))
	for p, v := range data {
		if p < 0 || p >= len(keys) {
			return nil, fmt.Errorf("keydict: unknown position %d (table has %d keys)", p, len(keys))
		}
		out[keys[p]] = v
	}
	return out, nil
}
