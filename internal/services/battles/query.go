package battlesvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rzbill/battlelog/internal/battle"
	"github.com/rzbill/battlelog/internal/keydict"
	"github.com/rzbill/battlelog/internal/turnbuffer"
	"github.com/rzbill/battlelog/pkg/id"
)

// ListBattles returns every battle in creation order.
func (s *Service) ListBattles(ctx context.Context) ([]battle.Battle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.List()
}

// GetBattle returns one battle or battle.ErrNotFound.
func (s *Service) GetBattle(ctx context.Context, battleID string) (battle.Battle, error) {
	if err := ctx.Err(); err != nil {
		return battle.Battle{}, err
	}
	if _, err := id.Parse(battleID); err != nil {
		return battle.Battle{}, fmt.Errorf("%w: %w", ErrInvalidID, err)
	}
	return s.store.Get(battleID)
}

// ActiveBattle returns the active battle, if any.
func (s *Service) ActiveBattle(ctx context.Context) (battle.Battle, bool, error) {
	if err := ctx.Err(); err != nil {
		return battle.Battle{}, false, err
	}
	return s.store.Active()
}

// GetReports returns the data of every report of a battle keyed by report type.
func (s *Service) GetReports(ctx context.Context, battleID string) (map[string]json.RawMessage, error) {
	reports, err := s.Reports(ctx, battleID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage, len(reports))
	for _, r := range reports {
		data := r.Data
		if data == nil {
			data = json.RawMessage("null")
		}
		out[r.Type] = data
	}
	return out, nil
}

// Reports returns the full report records of a battle, including their
// finalized and degraded flags.
func (s *Service) Reports(ctx context.Context, battleID string) ([]battle.Report, error) {
	if _, err := s.GetBattle(ctx, battleID); err != nil {
		return nil, err
	}
	return s.store.Reports(battleID)
}

// GetEvents decodes the stored events of a battle in turn order. Events of
// the active battle come from its turn buffer, others from the cold record.
func (s *Service) GetEvents(ctx context.Context, battleID string, q EventsQuery) ([]EventView, error) {
	ctx, span := s.tracer.Start(ctx, "battlelog.get_events",
		trace.WithAttributes(attribute.String("battle.id", battleID)))
	defer span.End()

	filter, err := newCELFilter(q.Filter)
	if err != nil {
		return nil, err
	}
	limit := q.Limit
	if s.maxEvents > 0 && (limit <= 0 || limit > s.maxEvents) {
		limit = s.maxEvents
	}

	b, err := s.GetBattle(ctx, battleID)
	if err != nil {
		return nil, err
	}
	stored, seqs, keys, err := s.storedTurns(b)
	if err != nil {
		return nil, err
	}

	out := []EventView{}
	for i, t := range stored {
		for _, ev := range t.Events {
			data, err := keydict.Decode(keys, ev.Data)
			if err != nil {
				return nil, fmt.Errorf("turn %d: %w", seqs[i], err)
			}
			view := EventView{Turn: seqs[i], Time: t.Time, Type: ev.Type, Data: data}
			if !filter.Eval(view) {
				continue
			}
			out = append(out, view)
			if limit > 0 && len(out) >= limit {
				span.SetAttributes(attribute.Int("events.returned", len(out)))
				return out, nil
			}
		}
	}
	span.SetAttributes(attribute.Int("events.returned", len(out)))
	return out, nil
}

// storedTurns reads the raw turns of b with their sequence numbers and a key
// map covering them. Reads race with ingestion, so the battle is reloaded
// after the active buffer is read: the key map only grows, and a buffer
// emptied by a concurrent rollover means the turns moved to cold storage.
func (s *Service) storedTurns(b battle.Battle) ([]battle.Turn, []uint64, []string, error) {
	if b.Active {
		buf, err := turnbuffer.Open(s.store.DB(), b.ID)
		if err != nil {
			return nil, nil, nil, err
		}
		items, err := buf.ReadAll()
		if err != nil {
			return nil, nil, nil, err
		}
		fresh, err := s.store.Get(b.ID)
		if err != nil {
			return nil, nil, nil, err
		}
		if fresh.Active || len(items) > 0 {
			stored, _, err := decodeItems(nil, items)
			if err != nil {
				return nil, nil, nil, err
			}
			seqs := make([]uint64, len(items))
			for i, it := range items {
				seqs[i] = it.Seq
			}
			return stored, seqs, fresh.KeyMap, nil
		}
		b = fresh
	}
	stored, err := s.store.Cold(b.ID)
	if errors.Is(err, battle.ErrNotFound) {
		return nil, nil, b.KeyMap, nil
	}
	if err != nil {
		return nil, nil, nil, err
	}
	seqs := make([]uint64, len(stored))
	for i := range stored {
		seqs[i] = uint64(i) + 1
	}
	return stored, seqs, b.KeyMap, nil
}
