// Package segment owns the active battle pointer and decides, once per
// ingested batch, whether incoming turns continue the active battle or start
// a new one.
//
// The decision is driven by the first round-start event of the batch,
// compared against the active battle's meta report:
//
//   - no round start             continue (create a battle if none is active)
//   - no meta report yet         create the meta report, keep the battle
//   - type or max rounds differ  rollover
//   - current round decreased    rollover
//   - otherwise                  advance last_round in place
//
// A repeated round number is not a rollover signal.
package segment
