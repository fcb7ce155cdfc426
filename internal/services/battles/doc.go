// Package battlesvc is the battle ingestion pipeline and its query boundary.
// It ties the normalizer, segmentation engine, turn buffer, reporters and
// audit mirror together and is consumed by the gRPC/HTTP transports.
//
// Example:
//
//	svc, _ := battlesvc.Open(ctx, rt, battlesvc.Options{})
//	res, _ := svc.Submit(ctx, []normalize.RawTurnLog{{Lines: lines, Time: &ts}})
//	reports, _ := svc.GetReports(ctx, res.BattleID)
//	events, _ := svc.GetEvents(ctx, res.BattleID, battlesvc.EventsQuery{Filter: `event_type == "DEATH"`})
package battlesvc

// Write path
//
// Submit normalizes outside the ingest lock, then under it: sweeps reports
// left open by a crash, admits the batch to a battle (possibly rolling over),
// stages turns, key map and report updates into one pebble batch, appends the
// submission to the battle's audit file and fsyncs it, and only then commits
// the batch. A failure at any step drops the cached active battle state so
// the next call reloads it from the store.
//
// Read path
//
// Queries never take the ingest lock. Events of the active battle are read
// from its turn buffer; events of retired battles from their cold record.
