package report

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rzbill/battlelog/internal/parser"
)

var (
	// ErrUnknownKind is returned for a report kind outside the registry.
	ErrUnknownKind = errors.New("report: unknown kind")
	// ErrSealed is returned when stepping a runner after Finalize.
	ErrSealed = errors.New("report: runner already finalized")
)

// Kind names a report type.
type Kind string

const (
	// KindMeta is maintained by the segmentation engine, never by a Runner.
	KindMeta     Kind = "meta"
	KindDamage   Kind = "damage"
	KindLoot     Kind = "loot"
	KindMonsters Kind = "monsters"
)

// Turn is the decoded view of a stored turn fed to reporters.
type Turn struct {
	Seq    uint64
	Time   float64
	Events []*parser.Event
}

// Reporter aggregates the turns of one battle. Step returns nil when the
// turn did not change the aggregate. Finalize returns the terminal value.
type Reporter interface {
	Step(turn Turn) (any, error)
	Finalize() (any, error)
}

// Factory describes one report kind.
type Factory struct {
	Kind Kind
	// Triggers reports whether ev should bring the reporter into existence.
	Triggers func(ev *parser.Event) bool
	// New builds a reporter from the first triggering event.
	New func(first *parser.Event) (Reporter, error)
}

func typeSet(types ...string) func(*parser.Event) bool {
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return func(ev *parser.Event) bool {
		_, ok := set[ev.Type]
		return ok
	}
}

func builtins() map[Kind]Factory {
	return map[Kind]Factory{
		KindDamage: {
			Kind:     KindDamage,
			Triggers: typeSet(damageTypes...),
			New:      func(*parser.Event) (Reporter, error) { return newDamage(), nil },
		},
		KindLoot: {
			Kind:     KindLoot,
			Triggers: typeSet(lootTypes...),
			New:      func(*parser.Event) (Reporter, error) { return newLoot(), nil },
		},
		KindMonsters: {
			Kind:     KindMonsters,
			Triggers: typeSet(parser.TypeSpawn, parser.TypeDeath),
			New:      func(*parser.Event) (Reporter, error) { return newMonsters(), nil },
		},
	}
}

// DefaultKinds lists every runner-owned kind in evaluation order.
func DefaultKinds() []Kind { return []Kind{KindDamage, KindLoot, KindMonsters} }

// Registry is the fixed, ordered set of enabled factories.
type Registry struct {
	factories []Factory
}

// NewRegistry resolves kinds against the built-in set. An empty list enables
// every default kind. The meta kind is accepted and skipped.
func NewRegistry(kinds []string) (*Registry, error) {
	all := builtins()
	if len(kinds) == 0 {
		for _, k := range DefaultKinds() {
			kinds = append(kinds, string(k))
		}
	}
	reg := &Registry{}
	seen := make(map[Kind]bool)
	for _, name := range kinds {
		k := Kind(strings.ToLower(strings.TrimSpace(name)))
		if k == KindMeta || seen[k] {
			continue
		}
		f, ok := all[k]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKind, name)
		}
		seen[k] = true
		reg.factories = append(reg.factories, f)
	}
	return reg, nil
}

// NewRegistryFrom builds a registry from explicit factories. Used by tests
// and by callers adding kinds of their own.
func NewRegistryFrom(factories ...Factory) *Registry {
	return &Registry{factories: append([]Factory(nil), factories...)}
}

// Kinds returns the enabled kinds in order.
func (r *Registry) Kinds() []Kind {
	out := make([]Kind, len(r.factories))
	for i, f := range r.factories {
		out[i] = f.Kind
	}
	return out
}
