package report

import (
	"sort"

	"github.com/rzbill/battlelog/internal/parser"
)

var lootTypes = []string{
	parser.TypeCredits,
	parser.TypeAutoSell,
	parser.TypeExperience,
	parser.TypeProficiency,
	parser.TypeDrop,
	parser.TypeAutoSalvage,
	parser.TypeClearBonus,
	parser.TypeTokenBonus,
	parser.TypeEventItem,
	parser.TypeGem,
}

// ItemCount is one row of the final item list.
type ItemCount struct {
	Item  string  `json:"item"`
	Count float64 `json:"count"`
}

// LootSummary is the loot report.
type LootSummary struct {
	Credits     float64            `json:"credits"`
	EXP         float64            `json:"exp"`
	Proficiency map[string]float64 `json:"proficiency"`
	Items       map[string]float64 `json:"items"`
	Gems        map[string]int     `json:"gems"`

	ItemList []ItemCount `json:"item_list,omitempty"`
}

type loot struct {
	sum LootSummary
}

func newLoot() *loot {
	return &loot{sum: LootSummary{
		Proficiency: map[string]float64{},
		Items:       map[string]float64{},
		Gems:        map[string]int{},
	}}
}

func (l *loot) Step(turn Turn) (any, error) {
	changed := false
	for _, ev := range turn.Events {
		v, _ := ev.Number("value")
		switch ev.Type {
		case parser.TypeCredits, parser.TypeAutoSell:
			l.sum.Credits += v
		case parser.TypeExperience:
			l.sum.EXP += v
		case parser.TypeProficiency:
			l.sum.Proficiency[ev.String("type")] += v
		case parser.TypeDrop, parser.TypeClearBonus, parser.TypeTokenBonus, parser.TypeEventItem:
			l.sum.Items[ev.String("item")]++
		case parser.TypeAutoSalvage:
			l.sum.Items[ev.String("item")] += v
		case parser.TypeGem:
			l.sum.Gems[ev.String("type")]++
		default:
			continue
		}
		changed = true
	}
	if !changed {
		return nil, nil
	}
	return l.sum, nil
}

func (l *loot) Finalize() (any, error) {
	out := l.sum
	out.ItemList = make([]ItemCount, 0, len(out.Items))
	for item, n := range out.Items {
		out.ItemList = append(out.ItemList, ItemCount{Item: item, Count: n})
	}
	sort.Slice(out.ItemList, func(i, j int) bool {
		if out.ItemList[i].Count != out.ItemList[j].Count {
			return out.ItemList[i].Count > out.ItemList[j].Count
		}
		return out.ItemList[i].Item < out.ItemList[j].Item
	})
	return out, nil
}
