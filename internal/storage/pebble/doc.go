// Package pebblestore wraps Pebble with the fsync policy and the few
// operations the battle store and turn buffers need: batched writes, point
// reads and prefix scans.
//
//	db, err := pebblestore.Open(pebblestore.Options{DataDir: "./data", Fsync: pebblestore.FsyncModeAlways})
//	if err != nil { /* handle */ }
//	defer db.Close()
//
//	b := db.NewBatch()
//	_ = b.Set([]byte("battles/0001"), meta, nil)
//	_ = db.CommitBatch(ctx, b)
//	b.Close()
//
//	kvs, _ := db.ScanPrefix([]byte("battles/"), 0)
package pebblestore
