package controllers

import (
	"encoding/json"

	"github.com/rzbill/battlelog/internal/battle"
)

// battleJSON is the wire form of a battle. The key map is internal and the
// unparsed lines are summarized by count unless requested.
type battleJSON struct {
	ID          string   `json:"id"`
	CreatedAtMs int64    `json:"created_at_ms"`
	Active      bool     `json:"active"`
	TimeOrigin  *float64 `json:"time_origin"`
	Turns       uint64   `json:"turns"`
	Unparsed    int      `json:"unparsed"`
	Lines       []string `json:"unparsed_lines,omitempty"`
}

func toBattleJSON(b battle.Battle, withLines bool) battleJSON {
	out := battleJSON{
		ID:          b.ID,
		CreatedAtMs: b.CreatedAtMs,
		Active:      b.Active,
		TimeOrigin:  b.TimeOrigin,
		Turns:       b.Turns,
		Unparsed:    len(b.Unparsed),
	}
	if withLines {
		out.Lines = b.Unparsed
	}
	return out
}

// reportJSON is one report with its lifecycle flags.
type reportJSON struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Finalized bool            `json:"finalized"`
	Degraded  bool            `json:"degraded,omitempty"`
}
