package segment

import (
	"testing"

	"github.com/rzbill/battlelog/internal/battle"
	"github.com/rzbill/battlelog/internal/normalize"
	"github.com/rzbill/battlelog/internal/parser"
)

func TestDecide(t *testing.T) {
	meta := &battle.MetaData{BattleType: "T", MaxRounds: 5, LastRound: 3}
	cases := []struct {
		name string
		meta *battle.MetaData
		rs   *RoundStart
		want Decision
	}{
		{"no round start", meta, nil, Continue},
		{"no round start no meta", nil, nil, Continue},
		{"first round start", nil, &RoundStart{"T", 1, 5}, CreateMeta},
		{"progress", meta, &RoundStart{"T", 4, 5}, Advance},
		{"equal round is not a restart", meta, &RoundStart{"T", 3, 5}, Advance},
		{"round decreased", meta, &RoundStart{"T", 1, 5}, Rollover},
		{"type changed", meta, &RoundStart{"U", 4, 5}, Rollover},
		{"max changed", meta, &RoundStart{"T", 4, 6}, Rollover},
	}
	for _, c := range cases {
		if got := Decide(c.meta, c.rs); got != c.want {
			t.Fatalf("%s: got %s want %s", c.name, got, c.want)
		}
	}
}

func TestFindFirstRoundStart(t *testing.T) {
	p := parser.New()
	turns := []normalize.Turn{
		{Events: []*parser.Event{p.ParseLine("You gain 10 EXP!")}},
		{Events: []*parser.Event{p.ParseLine("Initializing Arena (Round 2 / 9) ..."), p.ParseLine("Initializing Arena (Round 3 / 9) ...")}},
	}
	rs := Find(turns)
	if rs == nil || rs.BattleType != "Arena" || rs.Current != 2 || rs.Max != 9 {
		t.Fatalf("unexpected round start %+v", rs)
	}
	if Find(turns[:1]) != nil {
		t.Fatalf("expected no round start")
	}
}

func TestFromEventRejectsIncompleteEvents(t *testing.T) {
	if _, ok := FromEvent(&parser.Event{Type: parser.TypeRoundStart, Fields: map[string]any{"current": 1.0}}); ok {
		t.Fatalf("expected missing max to be rejected")
	}
	if _, ok := FromEvent(nil); ok {
		t.Fatalf("expected nil to be rejected")
	}
}
