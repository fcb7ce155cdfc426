// Package turnbuffer implements the durable, append-only turn queue of the
// active battle.
//
// # Overview
//
// Turns are persisted in Pebble under a per-battle keyspace that sorts in
// insertion order:
//   - turns/{battle}/m             (metadata: lastSeq, 8B BE)
//   - turns/{battle}/e/{seq_be8}   (one record per turn)
//
// Records are stored as: varint headerLen | header | payload | crc32c(header|payload).
// The header carries the turn time; the payload is the encoded event list.
//
// Appends are staged into a caller-owned batch so that a turn becomes visible
// in the same atomic commit as the battle state it belongs to:
//
//	buf, _ := turnbuffer.Open(db, battleID)
//	b := db.NewBatch()
//	seqs, _ := buf.Stage(b, []turnbuffer.Record{{Header: h, Payload: p}})
//	_ = db.CommitBatch(ctx, b)
//
// On rollover the whole buffer is read with ReadAll and removed with
// StageClear in the batch that writes the battle's cold record.
package turnbuffer
