package battlesvc

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/rzbill/battlelog/internal/battle"
	"github.com/rzbill/battlelog/internal/keydict"
	"github.com/rzbill/battlelog/internal/parser"
	"github.com/rzbill/battlelog/internal/report"
	"github.com/rzbill/battlelog/internal/turnbuffer"
	logpkg "github.com/rzbill/battlelog/pkg/log"
)

// retire is the segmentation engine's rollover hook. It compacts prev's turn
// buffer into its cold record and finalizes prev's reporters, all inside the
// admitting transaction.
func (s *Service) retire(tx *battle.Txn, prev battle.Battle) error {
	buf, runner := s.buf, s.runner
	if buf == nil || buf.BattleID() != prev.ID || runner == nil {
		var err error
		if buf, runner, err = s.load(prev); err != nil {
			return err
		}
	}
	items, err := buf.ReadAll()
	if err != nil {
		return fmt.Errorf("read turn buffer: %w", err)
	}
	stored, _, err := decodeItems(nil, items)
	if err != nil {
		return err
	}
	size, err := tx.PutCold(prev.ID, stored)
	if err != nil {
		return fmt.Errorf("write cold record: %w", err)
	}
	if err := buf.StageClear(tx.Batch()); err != nil {
		return fmt.Errorf("clear turn buffer: %w", err)
	}
	for _, u := range runner.Finalize() {
		if err := s.applyUpdate(tx, prev.ID, u); err != nil {
			return fmt.Errorf("finalize %s: %w", u.Kind, err)
		}
	}
	s.logger.Info("battle retired",
		logpkg.Str(logpkg.BattleKey, prev.ID),
		logpkg.Int("turns", len(stored)),
		logpkg.Str("cold_size", humanize.Bytes(uint64(size))))
	return nil
}

// sweepLocked finalizes every open report whose battle is no longer active.
// Report data is rebuilt by replaying the battle's cold turns so each such
// report is finalized with its terminal value. Meta reports are only sealed.
func (s *Service) sweepLocked(ctx context.Context) error {
	open, err := s.store.OpenReports()
	if err != nil {
		return err
	}
	active, hasActive, err := s.store.Active()
	if err != nil {
		return err
	}
	byBattle := make(map[string][]battle.Report)
	for _, r := range open {
		if hasActive && r.BattleID == active.ID {
			continue
		}
		byBattle[r.BattleID] = append(byBattle[r.BattleID], r)
	}
	if len(byBattle) == 0 {
		return nil
	}

	ctx, span := s.tracer.Start(ctx, "battlelog.sweep")
	defer span.End()

	ids := make([]string, 0, len(byBattle))
	for id := range byBattle {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	tx := s.store.Begin()
	defer tx.Close()
	swept := 0
	for _, id := range ids {
		n, err := s.sweepBattle(tx, id, byBattle[id])
		if err != nil {
			return fmt.Errorf("battle %s: %w", id, err)
		}
		swept += n
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	s.logger.Info("swept open reports", logpkg.Int("battles", len(ids)), logpkg.Int("reports", swept))
	return nil
}

func (s *Service) sweepBattle(tx *battle.Txn, battleID string, open []battle.Report) (int, error) {
	b, err := s.store.Get(battleID)
	if err != nil && !errors.Is(err, battle.ErrNotFound) {
		return 0, err
	}
	turns, err := s.turnsOf(b)
	if err != nil {
		return 0, err
	}

	final := make(map[string]report.Update)
	runner := report.NewRunner(battleID, s.reg, s.logger)
	if err := runner.Rehydrate(turns); err != nil {
		return 0, err
	}
	for _, u := range runner.Finalize() {
		final[string(u.Kind)] = u
	}

	for _, r := range open {
		u, ok := final[r.Type]
		if !ok {
			u = report.Update{Kind: report.Kind(r.Type), Final: true}
		}
		if err := s.applyUpdate(tx, battleID, u); err != nil {
			return 0, err
		}
		s.logger.Warn("finalized orphaned report",
			logpkg.Str(logpkg.BattleKey, battleID),
			logpkg.Str("report", r.Type))
	}
	return len(open), nil
}

// turnsOf returns the stored turns of b decoded for reporters. Retired
// battles are read from their cold record, falling back to a turn buffer that
// was never compacted.
func (s *Service) turnsOf(b battle.Battle) ([]report.Turn, error) {
	if b.ID == "" {
		return nil, nil
	}
	cold, err := s.store.Cold(b.ID)
	switch {
	case err == nil:
		return decodeTurns(b.KeyMap, cold, 1)
	case !errors.Is(err, battle.ErrNotFound):
		return nil, err
	}
	buf, err := turnbuffer.Open(s.store.DB(), b.ID)
	if err != nil {
		return nil, err
	}
	items, err := buf.ReadAll()
	if err != nil {
		return nil, err
	}
	_, turns, err := decodeItems(b.KeyMap, items)
	return turns, err
}

// decodeItems unpacks buffer items. Reporter turns are only decoded when
// keys is non-nil.
func decodeItems(keys []string, items []turnbuffer.Item) ([]battle.Turn, []report.Turn, error) {
	stored := make([]battle.Turn, len(items))
	var turns []report.Turn
	for i, it := range items {
		t, err := battle.UnmarshalTurn(it.Header, it.Payload)
		if err != nil {
			return nil, nil, fmt.Errorf("turn %d: %w", it.Seq, err)
		}
		stored[i] = t
		if keys == nil {
			continue
		}
		rt, err := decodeTurn(keys, t, it.Seq)
		if err != nil {
			return nil, nil, err
		}
		turns = append(turns, rt)
	}
	return stored, turns, nil
}

// decodeTurns converts stored turns, numbering them from firstSeq.
func decodeTurns(keys []string, stored []battle.Turn, firstSeq uint64) ([]report.Turn, error) {
	out := make([]report.Turn, 0, len(stored))
	for i, t := range stored {
		rt, err := decodeTurn(keys, t, firstSeq+uint64(i))
		if err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, nil
}

func decodeTurn(keys []string, t battle.Turn, seq uint64) (report.Turn, error) {
	rt := report.Turn{Seq: seq, Time: t.Time, Events: make([]*parser.Event, 0, len(t.Events))}
	for _, ev := range t.Events {
		fields, err := keydict.Decode(keys, ev.Data)
		if err != nil {
			return report.Turn{}, fmt.Errorf("turn %d: %w", seq, err)
		}
		rt.Events = append(rt.Events, &parser.Event{Type: ev.Type, Fields: fields})
	}
	return rt, nil
}
