package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzbill/battlelog/internal/parser"
)

func parsedTurn(t *testing.T, lines ...string) Turn {
	t.Helper()
	p := parser.New()
	var turn Turn
	for _, l := range lines {
		ev := p.ParseLine(l)
		require.NotNil(t, ev, l)
		turn.Events = append(turn.Events, ev)
	}
	return turn
}

func runAll(t *testing.T, kinds []string, turns ...Turn) map[Kind]Update {
	t.Helper()
	reg, err := NewRegistry(kinds)
	require.NoError(t, err)
	r := NewRunner("b", reg, nil)
	for _, tr := range turns {
		_, err := r.Step(tr)
		require.NoError(t, err)
	}
	out := map[Kind]Update{}
	for _, u := range r.Finalize() {
		out[u.Kind] = u
	}
	return out
}

func TestDamageSummary(t *testing.T) {
	got := runAll(t, []string{"damage"},
		parsedTurn(t,
			"Sword hits Goblin for 10 slashing damage.",
			"Sword crits Goblin for 30 slashing damage.",
			"Fireball blasts Goblin for 20 fire damage (50% resisted)",
		),
		parsedTurn(t,
			"Goblin hits you for 7 crushing damage.",
			"You evade the attack from Goblin.",
			"Your spirit shield absorbs 4 points of damage from the attack into 2 points of spirit damage.",
		),
	)
	u := got[KindDamage]
	require.NotNil(t, u.Data)
	sum := decode[DamageSummary](t, u.Data)
	assert.Equal(t, 60.0, sum.Dealt.Total)
	assert.Equal(t, 2, sum.Dealt.Hits)
	assert.Equal(t, 1, sum.Dealt.Crits)
	assert.Equal(t, 30.0, sum.Dealt.Biggest)
	assert.Equal(t, 40.0, sum.Dealt.ByType["slashing"])
	assert.Equal(t, 20.0, sum.Dealt.BySource["Fireball"])
	assert.Equal(t, 7.0, sum.Taken.Total)
	assert.Equal(t, 1, sum.Taken.Misses)
	assert.Equal(t, 4.0, sum.SpiritAbsorbed)
	assert.Equal(t, 2, sum.Turns)
	assert.Equal(t, 30.0, sum.DealtPerTurn)
	assert.Equal(t, 50.0, sum.AvgResisted)
}

func TestLootSummary(t *testing.T) {
	got := runAll(t, []string{"loot"},
		parsedTurn(t,
			"You gain 100 EXP!",
			"You gain 25 Credits!",
			"Goblin dropped [Health Draught]",
			"Goblin dropped [Health Draught]",
			"Battle Clear Bonus! [Token of Blood]",
			"You gain 0.5 points of staff proficiency.",
		),
	)
	sum := decode[LootSummary](t, got[KindLoot].Data)
	assert.Equal(t, 100.0, sum.EXP)
	assert.Equal(t, 25.0, sum.Credits)
	assert.Equal(t, 0.5, sum.Proficiency["staff"])
	assert.Equal(t, []ItemCount{{"Health Draught", 2}, {"Token of Blood", 1}}, sum.ItemList)
}

func TestMonsterSummary(t *testing.T) {
	got := runAll(t, []string{"monsters"},
		parsedTurn(t,
			"Spawned Monster A: MID=1 (Goblin) LV=3 HP=100",
			"Spawned Monster B: MID=2 (Goblin) LV=5 HP=150",
		),
		parsedTurn(t, "Goblin has been defeated."),
	)
	sum := decode[MonsterSummary](t, got[KindMonsters].Data)
	assert.Equal(t, 2, sum.Spawned)
	assert.Equal(t, 1, sum.Defeated)
	assert.Equal(t, 250.0, sum.TotalHP)
	assert.Equal(t, 0.5, sum.KillRatio)
	assert.Equal(t, 5.0, sum.Monsters["Goblin"].MaxLevel)
}

func TestUntriggeredKindsProduceNothing(t *testing.T) {
	got := runAll(t, nil, parsedTurn(t, "You gain 100 EXP!"))
	assert.Contains(t, got, KindLoot)
	assert.NotContains(t, got, KindDamage)
	assert.NotContains(t, got, KindMonsters)
}
