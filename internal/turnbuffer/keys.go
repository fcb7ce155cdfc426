package turnbuffer

import (
	"encoding/binary"
)

var (
	turnsPrefix = []byte("turns/")
	metaSuffix  = []byte("/m")
	entrySeg    = []byte("/e/")
)

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// KeyPrefix returns the prefix covering every key of a battle's buffer.
func KeyPrefix(battleID string) []byte {
	k := make([]byte, 0, len(turnsPrefix)+len(battleID)+1)
	k = append(k, turnsPrefix...)
	k = append(k, battleID...)
	k = append(k, '/')
	return k
}

// KeyMeta builds the buffer metadata key.
func KeyMeta(battleID string) []byte {
	k := make([]byte, 0, len(turnsPrefix)+len(battleID)+len(metaSuffix))
	k = append(k, turnsPrefix...)
	k = append(k, battleID...)
	k = append(k, metaSuffix...)
	return k
}

// KeyEntry builds the entry key with a big-endian sequence for proper ordering.
func KeyEntry(battleID string, seq uint64) []byte {
	k := make([]byte, 0, len(turnsPrefix)+len(battleID)+len(entrySeg)+8)
	k = append(k, turnsPrefix...)
	k = append(k, battleID...)
	k = append(k, entrySeg...)
	k = appendBE8(k, seq)
	return k
}

func entryPrefix(battleID string) []byte {
	k := make([]byte, 0, len(turnsPrefix)+len(battleID)+len(entrySeg))
	k = append(k, turnsPrefix...)
	k = append(k, battleID...)
	k = append(k, entrySeg...)
	return k
}
