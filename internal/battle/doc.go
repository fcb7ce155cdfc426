// Package battle holds the persisted data model of battlelog (battles,
// turns, reports) and its Pebble-backed store.
//
// # Keyspace
//
//   - battles/{id}          Battle JSON
//   - active                id of the single active battle
//   - reports/{id}/{type}   Report JSON
//   - open/{id}/{type}      index of unfinalized reports, scanned by the sweep
//   - cold/{id}             compacted turns of a retired battle (see EncodeCold)
//
// Writes go through a Txn, which wraps one Pebble batch and serves its own
// staged battles and reports back to readers inside the same transaction.
package battle
