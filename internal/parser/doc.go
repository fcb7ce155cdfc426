// Package parser turns raw game log lines into structured events.
//
// The default Parser walks a fixed table of patterns and returns the first
// match. Named captures become event fields; numeric captures are decoded to
// float64 and optional captures that did not participate are omitted.
// Lines that match nothing parse to nil.
package parser
