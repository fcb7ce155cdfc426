package battle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/rzbill/battlelog/internal/storage/pebble"
)

// Store reads and writes battles, reports and cold records.
type Store struct {
	db *pebblestore.DB
}

// NewStore wraps db.
func NewStore(db *pebblestore.DB) *Store { return &Store{db: db} }

// DB returns the underlying database.
func (s *Store) DB() *pebblestore.DB { return s.db }

func (s *Store) getJSON(key []byte, v any) error {
	b, err := s.db.Get(key)
	if err != nil {
		if errors.Is(err, pebblestore.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return json.Unmarshal(b, v)
}

// Get loads a battle by id.
func (s *Store) Get(id string) (Battle, error) {
	var b Battle
	if err := s.getJSON(keyBattle(id), &b); err != nil {
		return Battle{}, err
	}
	return b, nil
}

// Active returns the active battle, if any.
func (s *Store) Active() (Battle, bool, error) {
	id, err := s.db.Get(activeKey)
	if err != nil {
		if errors.Is(err, pebblestore.ErrNotFound) {
			return Battle{}, false, nil
		}
		return Battle{}, false, err
	}
	b, err := s.Get(string(id))
	if err != nil {
		return Battle{}, false, fmt.Errorf("active battle %s: %w", id, err)
	}
	return b, true, nil
}

// List returns every battle in creation order.
func (s *Store) List() ([]Battle, error) {
	kvs, err := s.db.ScanPrefix(battlesPrefix, 0)
	if err != nil {
		return nil, err
	}
	out := make([]Battle, 0, len(kvs))
	for _, kv := range kvs {
		var b Battle
		if err := json.Unmarshal(kv.Value, &b); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kv.Key, err)
		}
		out = append(out, b)
	}
	return out, nil
}

// Report loads one report.
func (s *Store) Report(id, typ string) (Report, error) {
	var r Report
	if err := s.getJSON(keyReport(id, typ), &r); err != nil {
		return Report{}, err
	}
	return r, nil
}

// Reports returns every report of a battle, ordered by type.
func (s *Store) Reports(id string) ([]Report, error) {
	kvs, err := s.db.ScanPrefix(keyReportsOf(id), 0)
	if err != nil {
		return nil, err
	}
	out := make([]Report, 0, len(kvs))
	for _, kv := range kvs {
		var r Report
		if err := json.Unmarshal(kv.Value, &r); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kv.Key, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// OpenReports returns every unfinalized report across all battles.
func (s *Store) OpenReports() ([]Report, error) {
	kvs, err := s.db.ScanPrefix(openPrefix, 0)
	if err != nil {
		return nil, err
	}
	out := make([]Report, 0, len(kvs))
	for _, kv := range kvs {
		var r Report
		if err := s.getJSON(append(append([]byte(nil), reportsPrefix...), kv.Key[len(openPrefix):]...), &r); err != nil {
			return nil, fmt.Errorf("open index %s: %w", kv.Key, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// Cold returns the compacted turns of a retired battle.
func (s *Store) Cold(id string) ([]Turn, error) {
	b, err := s.db.Get(keyCold(id))
	if err != nil {
		if errors.Is(err, pebblestore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return DecodeCold(b)
}

// Begin starts a write transaction.
func (s *Store) Begin() *Txn {
	return &Txn{
		store:   s,
		batch:   s.db.NewBatch(),
		battles: make(map[string]Battle),
		reports: make(map[string]Report),
	}
}

// Txn stages writes into a single batch. Reads through a Txn observe its
// staged battles and reports.
type Txn struct {
	store   *Store
	batch   *pebble.Batch
	battles map[string]Battle
	reports map[string]Report
	active  *string
	closed  bool
}

// Batch exposes the underlying batch so other keyspaces can join the commit.
func (tx *Txn) Batch() *pebble.Batch { return tx.batch }

// Battle returns the staged or stored battle.
func (tx *Txn) Battle(id string) (Battle, error) {
	if b, ok := tx.battles[id]; ok {
		return b, nil
	}
	return tx.store.Get(id)
}

// Active returns the staged or stored active battle.
func (tx *Txn) Active() (Battle, bool, error) {
	if tx.active != nil {
		if *tx.active == "" {
			return Battle{}, false, nil
		}
		b, err := tx.Battle(*tx.active)
		return b, err == nil, err
	}
	return tx.store.Active()
}

// Report returns the staged or stored report.
func (tx *Txn) Report(id, typ string) (Report, error) {
	if r, ok := tx.reports[string(keyReport(id, typ))]; ok {
		return r, nil
	}
	return tx.store.Report(id, typ)
}

// PutBattle stages b.
func (tx *Txn) PutBattle(b Battle) error {
	v, err := json.Marshal(b)
	if err != nil {
		return err
	}
	if err := tx.batch.Set(keyBattle(b.ID), v, nil); err != nil {
		return err
	}
	tx.battles[b.ID] = b
	return nil
}

// SetActive stages the active pointer. An empty id clears it.
func (tx *Txn) SetActive(id string) error {
	var err error
	if id == "" {
		err = tx.batch.Delete(activeKey, nil)
	} else {
		err = tx.batch.Set(activeKey, []byte(id), nil)
	}
	if err != nil {
		return err
	}
	tx.active = &id
	return nil
}

// PutReport stages r. Any write over a finalized report fails with ErrSealed.
func (tx *Txn) PutReport(r Report) error {
	prev, err := tx.Report(r.BattleID, r.Type)
	switch {
	case err == nil && prev.Finalized:
		return fmt.Errorf("%s/%s: %w", r.BattleID, r.Type, ErrSealed)
	case err != nil && !errors.Is(err, ErrNotFound):
		return err
	}
	v, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if err := tx.batch.Set(keyReport(r.BattleID, r.Type), v, nil); err != nil {
		return err
	}
	if r.Finalized {
		err = tx.batch.Delete(keyOpen(r.BattleID, r.Type), nil)
	} else {
		err = tx.batch.Set(keyOpen(r.BattleID, r.Type), nil, nil)
	}
	if err != nil {
		return err
	}
	tx.reports[string(keyReport(r.BattleID, r.Type))] = r
	return nil
}

// PutCold stages the compacted turns of a battle.
func (tx *Txn) PutCold(id string, turns []Turn) (int, error) {
	v, err := EncodeCold(turns)
	if err != nil {
		return 0, err
	}
	return len(v), tx.batch.Set(keyCold(id), v, nil)
}

// Commit commits the batch and releases it.
func (tx *Txn) Commit(ctx context.Context) error {
	if tx.closed {
		return errors.New("battle: transaction closed")
	}
	defer tx.Close()
	return tx.store.db.CommitBatch(ctx, tx.batch)
}

// Close discards any uncommitted writes. Safe to call more than once.
func (tx *Txn) Close() {
	if tx.closed {
		return
	}
	tx.closed = true
	_ = tx.batch.Close()
}
