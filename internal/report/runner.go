package report

import (
	"encoding/json"
	"fmt"

	"github.com/rzbill/battlelog/internal/parser"
	logpkg "github.com/rzbill/battlelog/pkg/log"
)

// Update is a change a Runner asks the caller to persist.
type Update struct {
	Kind Kind
	// Data is the marshalled aggregate. Nil on a degraded update, or on a
	// final update whose reporter returned nothing.
	Data     json.RawMessage
	Final    bool
	Degraded bool
	Err      error
}

type slot struct {
	rep      Reporter
	degraded bool
}

// Runner owns the reporters of one battle. Not safe for concurrent use.
type Runner struct {
	battleID string
	reg      *Registry
	logger   logpkg.Logger

	slots  map[Kind]*slot
	sealed bool
}

// NewRunner returns a Runner with no reporters created yet.
func NewRunner(battleID string, reg *Registry, logger logpkg.Logger) *Runner {
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
	}
	return &Runner{
		battleID: battleID,
		reg:      reg,
		logger:   logger.With(logpkg.Component("report"), logpkg.Str(logpkg.BattleKey, battleID)),
		slots:    make(map[Kind]*slot),
	}
}

// BattleID returns the battle the runner aggregates.
func (r *Runner) BattleID() string { return r.battleID }

// Sealed reports whether Finalize has run.
func (r *Runner) Sealed() bool { return r.sealed }

// Created lists the kinds that have a reporter, in registry order.
func (r *Runner) Created() []Kind {
	var out []Kind
	for _, f := range r.reg.factories {
		if _, ok := r.slots[f.Kind]; ok {
			out = append(out, f.Kind)
		}
	}
	return out
}

// Step feeds turn to every reporter, creating reporters whose kind the turn
// triggers.
func (r *Runner) Step(turn Turn) ([]Update, error) {
	if r.sealed {
		return nil, ErrSealed
	}
	var updates []Update
	for _, f := range r.reg.factories {
		s, ok := r.slots[f.Kind]
		if !ok {
			first := firstTrigger(f, turn)
			if first == nil {
				continue
			}
			s = &slot{}
			r.slots[f.Kind] = s
			err := guard(func() error {
				rep, err := f.New(first)
				s.rep = rep
				return err
			})
			if err != nil {
				updates = append(updates, r.degrade(f.Kind, s, "init", err))
				continue
			}
		}
		if s.degraded {
			continue
		}
		var out any
		err := guard(func() error {
			var err error
			out, err = s.rep.Step(turn)
			return err
		})
		if err != nil {
			updates = append(updates, r.degrade(f.Kind, s, "step", err))
			continue
		}
		if out == nil {
			continue
		}
		data, err := json.Marshal(out)
		if err != nil {
			updates = append(updates, r.degrade(f.Kind, s, "encode", err))
			continue
		}
		updates = append(updates, Update{Kind: f.Kind, Data: data})
	}
	return updates, nil
}

// Finalize runs Finalize once on every created reporter and seals the runner.
// Degraded reporters are finalized too; a failure yields a final degraded
// update. Subsequent calls return nil.
func (r *Runner) Finalize() []Update {
	if r.sealed {
		return nil
	}
	r.sealed = true
	var updates []Update
	for _, k := range r.Created() {
		s := r.slots[k]
		u := Update{Kind: k, Final: true, Degraded: s.degraded}
		if s.rep == nil {
			updates = append(updates, u)
			continue
		}
		var out any
		err := guard(func() error {
			var err error
			out, err = s.rep.Finalize()
			return err
		})
		if err == nil && out != nil {
			u.Data, err = json.Marshal(out)
		}
		if err != nil {
			u = r.degrade(k, s, "finalize", err)
			u.Final = true
		}
		updates = append(updates, u)
	}
	return updates
}

// Rehydrate replays turns already persisted for the battle, rebuilding
// reporter state after a restart. Updates are discarded since their effects
// are already stored.
func (r *Runner) Rehydrate(turns []Turn) error {
	for _, t := range turns {
		if _, err := r.Step(t); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) degrade(k Kind, s *slot, phase string, err error) Update {
	s.degraded = true
	r.logger.Error("reporter failed",
		logpkg.Str("report", string(k)),
		logpkg.Str("phase", phase),
		logpkg.Err(err))
	return Update{Kind: k, Degraded: true, Err: fmt.Errorf("%s %s: %w", k, phase, err)}
}

func firstTrigger(f Factory, turn Turn) *parser.Event {
	for _, ev := range turn.Events {
		if ev != nil && f.Triggers(ev) {
			return ev
		}
	}
	return nil
}

// guard converts a panic in fn into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn()
}
