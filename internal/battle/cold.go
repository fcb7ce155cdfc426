package battle

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// Cold record layout: codec(1B) | rawLen(4B BE) | body.
// Body is the JSON turn list, LZ4 block-compressed when codec is codecLZ4.
const (
	codecRaw byte = 0
	codecLZ4 byte = 1

	coldHeaderSize = 5
)

var errBadCold = errors.New("battle: malformed cold record")

// EncodeCold serializes turns into a single compressed cold record.
func EncodeCold(turns []Turn) ([]byte, error) {
	if turns == nil {
		turns = []Turn{}
	}
	raw, err := json.Marshal(turns)
	if err != nil {
		return nil, err
	}
	out := make([]byte, coldHeaderSize+lz4.CompressBlockBound(len(raw)))
	binary.BigEndian.PutUint32(out[1:coldHeaderSize], uint32(len(raw)))

	var c lz4.Compressor
	written, err := c.CompressBlock(raw, out[coldHeaderSize:])
	if err != nil {
		return nil, fmt.Errorf("compress cold record: %w", err)
	}
	if written == 0 || written >= len(raw) {
		// incompressible
		out[0] = codecRaw
		return append(out[:coldHeaderSize], raw...), nil
	}
	out[0] = codecLZ4
	return out[:coldHeaderSize+written], nil
}

// DecodeCold reverses EncodeCold.
func DecodeCold(b []byte) ([]Turn, error) {
	if len(b) < coldHeaderSize {
		return nil, errBadCold
	}
	rawLen := int(binary.BigEndian.Uint32(b[1:coldHeaderSize]))
	body := b[coldHeaderSize:]

	var raw []byte
	switch b[0] {
	case codecRaw:
		raw = body
	case codecLZ4:
		raw = make([]byte, rawLen)
		n, err := lz4.UncompressBlock(body, raw)
		if err != nil {
			return nil, fmt.Errorf("decompress cold record: %w", err)
		}
		raw = raw[:n]
	default:
		return nil, errBadCold
	}
	if len(raw) != rawLen {
		return nil, errBadCold
	}
	var turns []Turn
	if err := json.Unmarshal(raw, &turns); err != nil {
		return nil, err
	}
	return turns, nil
}
