package report

import (
	"github.com/rzbill/battlelog/internal/parser"
)

// MonsterStats aggregates one monster name.
type MonsterStats struct {
	Spawned  int     `json:"spawned"`
	Defeated int     `json:"defeated"`
	MaxLevel float64 `json:"max_level"`
	TotalHP  float64 `json:"total_hp"`
}

// MonsterSummary is the monsters report.
type MonsterSummary struct {
	Monsters map[string]*MonsterStats `json:"monsters"`
	Spawned  int                      `json:"spawned"`
	Defeated int                      `json:"defeated"`
	TotalHP  float64                  `json:"total_hp"`

	KillRatio float64 `json:"kill_ratio,omitempty"`
}

type monsters struct {
	sum MonsterSummary
}

func newMonsters() *monsters {
	return &monsters{sum: MonsterSummary{Monsters: map[string]*MonsterStats{}}}
}

func (m *monsters) stats(name string) *MonsterStats {
	s, ok := m.sum.Monsters[name]
	if !ok {
		s = &MonsterStats{}
		m.sum.Monsters[name] = s
	}
	return s
}

func (m *monsters) Step(turn Turn) (any, error) {
	changed := false
	for _, ev := range turn.Events {
		switch ev.Type {
		case parser.TypeSpawn:
			s := m.stats(ev.String("monster"))
			hp, _ := ev.Number("hp")
			lvl, _ := ev.Number("level")
			s.Spawned++
			s.TotalHP += hp
			if lvl > s.MaxLevel {
				s.MaxLevel = lvl
			}
			m.sum.Spawned++
			m.sum.TotalHP += hp
		case parser.TypeDeath:
			m.stats(ev.String("monster")).Defeated++
			m.sum.Defeated++
		default:
			continue
		}
		changed = true
	}
	if !changed {
		return nil, nil
	}
	return m.sum, nil
}

func (m *monsters) Finalize() (any, error) {
	out := m.sum
	if out.Spawned > 0 {
		out.KillRatio = float64(out.Defeated) / float64(out.Spawned)
	}
	return out, nil
}
