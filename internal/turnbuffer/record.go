package turnbuffer

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
)

// Record encoding: varint headerLen | header | payload | crc32c(header|payload)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// ErrCorruptRecord is returned when a stored record fails framing or checksum validation.
var ErrCorruptRecord = errors.New("turnbuffer: corrupt record")

// Record is one buffered turn.
type Record struct {
	Header  []byte
	Payload []byte
}

func EncodeRecord(header, payload []byte) []byte {
	out := make([]byte, 0, binary.MaxVarintLen64+len(header)+len(payload)+4)
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], uint64(len(header)))
	out = append(out, tmp[:n]...)
	out = append(out, header...)
	out = append(out, payload...)

	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, payload)
	var crcb [4]byte
	binary.BigEndian.PutUint32(crcb[:], crc)
	return append(out, crcb[:]...)
}

func DecodeRecord(b []byte) (Record, error) {
	if len(b) < 1+4 {
		return Record{}, ErrCorruptRecord
	}
	hlen, n := binary.Uvarint(b)
	if n <= 0 || uint64(len(b)-n-4) < hlen {
		return Record{}, ErrCorruptRecord
	}
	header := b[n : n+int(hlen)]
	payload := b[n+int(hlen) : len(b)-4]
	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, payload)
	if crc != binary.BigEndian.Uint32(b[len(b)-4:]) {
		return Record{}, ErrCorruptRecord
	}
	return Record{Header: append([]byte(nil), header...), Payload: append([]byte(nil), payload...)}, nil
}
