package battlesvc

import (
	"errors"
)

var (
	// ErrAuditWrite is returned when the audit mirror could not be written.
	// Nothing from the submission is committed.
	ErrAuditWrite = errors.New("battles: audit mirror write failed")
	// ErrEmptySubmission is returned for a submission with no turns.
	ErrEmptySubmission = errors.New("battles: submission has no turns")
	// ErrInvalidFilter wraps filter compilation errors.
	ErrInvalidFilter = errors.New("battles: invalid filter")
	// ErrInvalidID is returned for a battle id that is not a well-formed id.
	ErrInvalidID = errors.New("battles: invalid battle id")
	// ErrStoreNotEmpty is returned by Rebuild when battles already exist.
	ErrStoreNotEmpty = errors.New("battles: store is not empty")
)

// SubmitResult summarizes an accepted submission.
type SubmitResult struct {
	BattleID  string `json:"battleId"`
	NewBattle bool   `json:"newBattle"`
	// Retired is the battle deactivated by this submission, if any.
	Retired  string `json:"retired,omitempty"`
	Turns    int    `json:"turns"`
	Events   int    `json:"events"`
	Rejected int    `json:"rejected"`
}

// EventsQuery narrows GetEvents.
type EventsQuery struct {
	// Filter is a CEL expression over event_type, data, turn and time.
	Filter string
	// Limit caps the number of events returned. Zero means no limit beyond
	// the configured one.
	Limit int
}

// EventView is a decoded stored event.
type EventView struct {
	Turn uint64         `json:"turn"`
	Time float64        `json:"time"`
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// RebuildResult summarizes a Rebuild run.
type RebuildResult struct {
	Files       int `json:"files"`
	Batches     int `json:"batches"`
	Submissions int `json:"submissions"`
	Battles     int `json:"battles"`
}
