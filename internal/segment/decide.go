package segment

import (
	"github.com/rzbill/battlelog/internal/battle"
	"github.com/rzbill/battlelog/internal/normalize"
	"github.com/rzbill/battlelog/internal/parser"
)

// RoundStart is the segmentation-relevant content of a ROUND_START event.
type RoundStart struct {
	BattleType string
	Current    float64
	Max        float64
}

// FromEvent extracts a RoundStart from ev, if it is one.
func FromEvent(ev *parser.Event) (*RoundStart, bool) {
	if ev == nil || ev.Type != parser.TypeRoundStart {
		return nil, false
	}
	cur, ok1 := ev.Number("current")
	maxRounds, ok2 := ev.Number("max")
	if !ok1 || !ok2 {
		return nil, false
	}
	return &RoundStart{BattleType: ev.String("battle_type"), Current: cur, Max: maxRounds}, true
}

// Find returns the first round start across turns, in submission order.
func Find(turns []normalize.Turn) *RoundStart {
	for _, t := range turns {
		for _, ev := range t.Events {
			if rs, ok := FromEvent(ev); ok {
				return rs
			}
		}
	}
	return nil
}

// Meta converts rs into meta report data.
func (rs RoundStart) Meta() battle.MetaData {
	return battle.MetaData{BattleType: rs.BattleType, MaxRounds: rs.Max, LastRound: rs.Current}
}

// Decision is the outcome of Decide.
type Decision int

const (
	// Continue keeps the active battle untouched.
	Continue Decision = iota
	// CreateMeta keeps the battle and creates its meta report.
	CreateMeta
	// Advance keeps the battle and records the new round.
	Advance
	// Rollover retires the active battle and starts a new one.
	Rollover
)

func (d Decision) String() string {
	switch d {
	case Continue:
		return "continue"
	case CreateMeta:
		return "create_meta"
	case Advance:
		return "advance"
	case Rollover:
		return "rollover"
	default:
		return "unknown"
	}
}

// Decide compares a round start against the active battle's meta data.
// meta is nil when the battle has no meta report.
func Decide(meta *battle.MetaData, rs *RoundStart) Decision {
	switch {
	case rs == nil:
		return Continue
	case meta == nil:
		return CreateMeta
	case rs.BattleType != meta.BattleType,
		rs.Max != meta.MaxRounds,
		rs.Current < meta.LastRound:
		return Rollover
	default:
		return Advance
	}
}
