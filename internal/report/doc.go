// Package report implements the incremental per-battle aggregators.
//
// Each Kind is a closed, startup-resolved variant with a trigger predicate
// and a constructor. A Runner owns the reporters of one battle: a reporter is
// created on the first event its kind triggers on, then steps every turn
// until the battle is retired, at which point Finalize runs exactly once per
// created reporter and the Runner is sealed.
//
// Reporter failures (errors or panics) are contained: the reporter is marked
// degraded, stops stepping, and the failure is surfaced as an Update for the
// caller to persist and log.
package report
