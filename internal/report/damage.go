package report

import (
	"github.com/rzbill/battlelog/internal/parser"
)

var damageTypes = []string{
	parser.TypePlayerBasic,
	parser.TypePlayerSkillDamage,
	parser.TypePlayerMiss,
	parser.TypeEnemyResist,
	parser.TypeEnemyBasic,
	parser.TypeEnemySkillSuccess,
	parser.TypeEnemySkillMiss,
	parser.TypeEnemySkillAbsorb,
	parser.TypePlayerDodge,
	parser.TypeSpiritShield,
}

// DamageSide aggregates damage in one direction.
type DamageSide struct {
	Total    float64            `json:"total"`
	Hits     int                `json:"hits"`
	Crits    int                `json:"crits"`
	Misses   int                `json:"misses"`
	Biggest  float64            `json:"biggest"`
	ByType   map[string]float64 `json:"by_type"`
	BySource map[string]float64 `json:"by_source"`
	// Resisted is the sum of resist percentages over resisted hits.
	Resisted      float64 `json:"resisted_pct_sum"`
	ResistedCount int     `json:"resisted_count"`
}

func newSide() DamageSide {
	return DamageSide{ByType: map[string]float64{}, BySource: map[string]float64{}}
}

func (s *DamageSide) hit(ev *parser.Event, source string) {
	v, _ := ev.Number("value")
	s.Total += v
	if ev.String("multiplier_type") == "crits" {
		s.Crits++
	} else {
		s.Hits++
	}
	if v > s.Biggest {
		s.Biggest = v
	}
	s.ByType[ev.String("damage_type")] += v
	s.BySource[source] += v
	if r, ok := ev.Number("resist"); ok {
		s.Resisted += r
		s.ResistedCount++
	}
}

// DamageSummary is the damage report.
type DamageSummary struct {
	Dealt          DamageSide `json:"dealt"`
	Taken          DamageSide `json:"taken"`
	SpiritAbsorbed float64    `json:"spirit_absorbed"`
	Turns          int        `json:"turns"`

	DealtPerTurn float64 `json:"dealt_per_turn,omitempty"`
	TakenPerTurn float64 `json:"taken_per_turn,omitempty"`
	AvgResisted  float64 `json:"avg_resisted_pct,omitempty"`
}

type damage struct {
	sum DamageSummary
}

func newDamage() *damage {
	return &damage{sum: DamageSummary{Dealt: newSide(), Taken: newSide()}}
}

func (d *damage) Step(turn Turn) (any, error) {
	d.sum.Turns++
	changed := false
	for _, ev := range turn.Events {
		switch ev.Type {
		case parser.TypePlayerBasic, parser.TypePlayerSkillDamage:
			d.sum.Dealt.hit(ev, ev.String("name"))
		case parser.TypePlayerMiss, parser.TypeEnemyResist:
			d.sum.Dealt.Misses++
		case parser.TypeEnemyBasic:
			d.sum.Taken.hit(ev, ev.String("monster"))
		case parser.TypeEnemySkillSuccess:
			d.sum.Taken.hit(ev, ev.String("monster")+": "+ev.String("skill"))
		case parser.TypeEnemySkillMiss, parser.TypeEnemySkillAbsorb, parser.TypePlayerDodge:
			d.sum.Taken.Misses++
		case parser.TypeSpiritShield:
			v, _ := ev.Number("damage")
			d.sum.SpiritAbsorbed += v
		default:
			continue
		}
		changed = true
	}
	if !changed {
		return nil, nil
	}
	return d.sum, nil
}

func (d *damage) Finalize() (any, error) {
	out := d.sum
	if out.Turns > 0 {
		out.DealtPerTurn = out.Dealt.Total / float64(out.Turns)
		out.TakenPerTurn = out.Taken.Total / float64(out.Turns)
	}
	if out.Dealt.ResistedCount > 0 {
		out.AvgResisted = out.Dealt.Resisted / float64(out.Dealt.ResistedCount)
	}
	return out, nil
}
