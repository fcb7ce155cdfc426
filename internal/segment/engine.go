package segment

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rzbill/battlelog/internal/battle"
	"github.com/rzbill/battlelog/pkg/id"
)

// RetireFunc runs inside the admitting transaction when prev is about to be
// deactivated. It flushes prev's turn buffer and finalizes its reporters.
type RetireFunc func(tx *battle.Txn, prev battle.Battle) error

// Admission is the result of Admit.
type Admission struct {
	// Battle is the battle the batch belongs to, as staged in the transaction.
	Battle battle.Battle
	// Meta is the battle's meta report, nil until a round start is seen.
	Meta     *battle.Report
	Decision Decision
	IsNew    bool
	// Retired is the battle deactivated by a rollover, if any.
	Retired *battle.Battle
}

// Options configures an Engine.
type Options struct {
	IDs    *id.Generator
	Retire RetireFunc
	Now    func() time.Time
}

// Engine decides battle boundaries. Admit calls must be serialized by the
// caller; the engine only caches the active battle id between them.
type Engine struct {
	ids    *id.Generator
	retire RetireFunc
	now    func() time.Time

	mu       sync.Mutex
	activeID string
	cached   bool
}

// NewEngine returns an engine with an empty cache.
func NewEngine(opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.IDs == nil {
		opts.IDs = id.NewGeneratorAt(opts.Now)
	}
	return &Engine{ids: opts.IDs, retire: opts.Retire, now: opts.Now}
}

// Reset drops the cached active pointer so the next Admit reloads it.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.activeID, e.cached = "", false
	e.mu.Unlock()
}

// ActiveID returns the cached active battle id, if known.
func (e *Engine) ActiveID() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeID, e.cached && e.activeID != ""
}

func (e *Engine) current(tx *battle.Txn) (battle.Battle, bool, error) {
	e.mu.Lock()
	activeID, cached := e.activeID, e.cached
	e.mu.Unlock()
	if !cached {
		return tx.Active()
	}
	if activeID == "" {
		return battle.Battle{}, false, nil
	}
	b, err := tx.Battle(activeID)
	if err != nil {
		return battle.Battle{}, false, err
	}
	return b, true, nil
}

func (e *Engine) remember(id string) {
	e.mu.Lock()
	e.activeID, e.cached = id, true
	e.mu.Unlock()
}

// Admit resolves the battle for a batch whose first round start is rs
// (nil when the batch has none) and stages the resulting changes in tx.
func (e *Engine) Admit(tx *battle.Txn, rs *RoundStart) (Admission, error) {
	return e.admit(tx, rs, nil)
}

// AdmitInto admits a batch already known to belong to battleID, as when a
// mirror file is replayed. An active battle with another id is retired and
// battleID is started under that id. The active battle is never rolled over
// into a battle other than battleID.
func (e *Engine) AdmitInto(tx *battle.Txn, rs *RoundStart, battleID string) (Admission, error) {
	pin, err := id.Parse(battleID)
	if err != nil {
		return Admission{}, err
	}
	return e.admit(tx, rs, &pin)
}

func (e *Engine) admit(tx *battle.Txn, rs *RoundStart, pin *id.ID) (Admission, error) {
	cur, ok, err := e.current(tx)
	if err != nil {
		return Admission{}, fmt.Errorf("load active battle: %w", err)
	}
	if !ok {
		return e.start(tx, rs, nil, pin)
	}

	meta, md, err := e.loadMeta(tx, cur.ID)
	if err != nil {
		return Admission{}, err
	}

	adm := Admission{Battle: cur, Meta: meta, Decision: Decide(md, rs)}
	if pin != nil {
		switch {
		case cur.ID != pin.String():
			adm.Decision = Rollover
		case adm.Decision == Rollover:
			adm.Decision = Continue
		}
	}
	switch adm.Decision {
	case Continue:
	case CreateMeta:
		r, err := e.putMeta(tx, cur.ID, rs.Meta(), false)
		if err != nil {
			return Admission{}, err
		}
		adm.Meta = &r
	case Advance:
		updated := *md
		updated.LastRound = rs.Current
		r, err := e.putMeta(tx, cur.ID, updated, false)
		if err != nil {
			return Admission{}, err
		}
		adm.Meta = &r
	case Rollover:
		if e.retire != nil {
			if err := e.retire(tx, cur); err != nil {
				return Admission{}, fmt.Errorf("retire %s: %w", cur.ID, err)
			}
		}
		if md != nil {
			if _, err := e.putMeta(tx, cur.ID, *md, true); err != nil {
				return Admission{}, err
			}
		}
		// retire may have updated the battle record
		prev, err := tx.Battle(cur.ID)
		if err != nil {
			return Admission{}, err
		}
		prev.Active = false
		if err := tx.PutBattle(prev); err != nil {
			return Admission{}, err
		}
		next, err := e.start(tx, rs, &prev, pin)
		if err != nil {
			return Admission{}, err
		}
		next.Decision = Rollover
		return next, nil
	}
	e.remember(cur.ID)
	return adm, nil
}

func (e *Engine) start(tx *battle.Txn, rs *RoundStart, retired *battle.Battle, pin *id.ID) (Admission, error) {
	var nid id.ID
	if pin != nil {
		_, err := tx.Battle(pin.String())
		switch {
		case err == nil:
			return Admission{}, fmt.Errorf("battle %s already exists", pin)
		case !errors.Is(err, battle.ErrNotFound):
			return Admission{}, err
		}
		nid = *pin
	} else {
		nid = e.ids.Next()
	}
	b := battle.Battle{ID: nid.String(), CreatedAtMs: nid.Time().UnixMilli(), Active: true}
	if err := tx.PutBattle(b); err != nil {
		return Admission{}, err
	}
	if err := tx.SetActive(b.ID); err != nil {
		return Admission{}, err
	}
	adm := Admission{Battle: b, IsNew: true, Retired: retired, Decision: Continue}
	if rs != nil {
		r, err := e.putMeta(tx, b.ID, rs.Meta(), false)
		if err != nil {
			return Admission{}, err
		}
		adm.Meta = &r
		adm.Decision = CreateMeta
	}
	e.remember(b.ID)
	return adm, nil
}

func (e *Engine) loadMeta(tx *battle.Txn, battleID string) (*battle.Report, *battle.MetaData, error) {
	r, err := tx.Report(battleID, battle.MetaReportType)
	if errors.Is(err, battle.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load meta report: %w", err)
	}
	md, err := battle.DecodeMeta(r)
	if err != nil {
		return nil, nil, fmt.Errorf("decode meta report of %s: %w", battleID, err)
	}
	return &r, &md, nil
}

func (e *Engine) putMeta(tx *battle.Txn, battleID string, md battle.MetaData, final bool) (battle.Report, error) {
	data, err := json.Marshal(md)
	if err != nil {
		return battle.Report{}, err
	}
	r := battle.Report{
		BattleID:    battleID,
		Type:        battle.MetaReportType,
		Data:        data,
		Finalized:   final,
		UpdatedAtMs: e.now().UnixMilli(),
	}
	return r, tx.PutReport(r)
}
