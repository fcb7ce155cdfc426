package report

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzbill/battlelog/internal/parser"
)

type countingReporter struct {
	steps     int
	finalized int
	failAt    int
	panicAt   int
}

func (c *countingReporter) Step(Turn) (any, error) {
	c.steps++
	if c.steps == c.panicAt {
		panic("boom")
	}
	if c.steps == c.failAt {
		return nil, errors.New("step failed")
	}
	return map[string]int{"steps": c.steps}, nil
}

func (c *countingReporter) Finalize() (any, error) {
	c.finalized++
	return map[string]int{"final": c.steps}, nil
}

func factoryFor(kind Kind, typ string, rep *countingReporter) Factory {
	return Factory{
		Kind:     kind,
		Triggers: typeSet(typ),
		New:      func(*parser.Event) (Reporter, error) { return rep, nil },
	}
}

func turnOf(types ...string) Turn {
	t := Turn{}
	for _, typ := range types {
		t.Events = append(t.Events, &parser.Event{Type: typ, Fields: map[string]any{}})
	}
	return t
}

func TestRunnerCreatesLazilyAndFinalizesOnce(t *testing.T) {
	a, b := &countingReporter{}, &countingReporter{}
	r := NewRunner("b1", NewRegistryFrom(factoryFor("a", "A", a), factoryFor("b", "B", b)), nil)

	ups, err := r.Step(turnOf("X"))
	require.NoError(t, err)
	assert.Empty(t, ups)

	ups, err = r.Step(turnOf("A"))
	require.NoError(t, err)
	require.Len(t, ups, 1)
	assert.Equal(t, Kind("a"), ups[0].Kind)
	assert.JSONEq(t, `{"steps":1}`, string(ups[0].Data))

	_, _ = r.Step(turnOf("X"))
	assert.Equal(t, 2, a.steps, "created reporters step every later turn")
	assert.Equal(t, 0, b.steps)
	assert.Equal(t, []Kind{"a"}, r.Created())

	final := r.Finalize()
	require.Len(t, final, 1)
	assert.True(t, final[0].Final)
	assert.JSONEq(t, `{"final":2}`, string(final[0].Data))
	assert.Nil(t, r.Finalize())
	assert.Equal(t, 1, a.finalized)
	assert.Equal(t, 0, b.finalized, "never-created reporters are not finalized")

	_, err = r.Step(turnOf("A"))
	assert.ErrorIs(t, err, ErrSealed)
	assert.Equal(t, 2, a.steps, "no step after finalize")
}

func TestRunnerIsolatesFailures(t *testing.T) {
	bad := &countingReporter{panicAt: 2}
	good := &countingReporter{failAt: -1}
	r := NewRunner("b1", NewRegistryFrom(factoryFor("bad", "E", bad), factoryFor("good", "E", good)), nil)

	_, err := r.Step(turnOf("E"))
	require.NoError(t, err)
	ups, err := r.Step(turnOf("E"))
	require.NoError(t, err)
	require.Len(t, ups, 2)
	assert.True(t, ups[0].Degraded)
	assert.Error(t, ups[0].Err)
	assert.False(t, ups[1].Degraded)

	_, _ = r.Step(turnOf("E"))
	assert.Equal(t, 2, bad.steps, "degraded reporter stops stepping")
	assert.Equal(t, 3, good.steps)

	final := r.Finalize()
	require.Len(t, final, 2)
	assert.True(t, final[0].Degraded)
	assert.True(t, final[0].Final)
	assert.Equal(t, 1, bad.finalized)
}

func TestRunnerInitFailure(t *testing.T) {
	f := Factory{
		Kind:     "x",
		Triggers: typeSet("A"),
		New:      func(*parser.Event) (Reporter, error) { return nil, errors.New("bad start event") },
	}
	r := NewRunner("b1", NewRegistryFrom(f), nil)
	ups, err := r.Step(turnOf("A"))
	require.NoError(t, err)
	require.Len(t, ups, 1)
	assert.True(t, ups[0].Degraded)

	final := r.Finalize()
	require.Len(t, final, 1)
	assert.True(t, final[0].Final)
	assert.True(t, final[0].Degraded)
	assert.Nil(t, final[0].Data)
}

func TestRehydrateRebuildsState(t *testing.T) {
	reg, err := NewRegistry(nil)
	require.NoError(t, err)
	p := parser.New()
	turns := []Turn{
		{Events: []*parser.Event{p.ParseLine("Spawned Monster A: MID=1 (Goblin) LV=3 HP=100")}},
		{Events: []*parser.Event{p.ParseLine("Goblin has been defeated.")}},
	}

	live := NewRunner("b1", reg, nil)
	for _, tr := range turns {
		_, err := live.Step(tr)
		require.NoError(t, err)
	}
	replayed := NewRunner("b1", reg, nil)
	require.NoError(t, replayed.Rehydrate(turns))

	assert.Equal(t, live.Finalize(), replayed.Finalize())
}

func TestNewRegistry(t *testing.T) {
	reg, err := NewRegistry([]string{"loot", "META", "damage", "loot"})
	require.NoError(t, err)
	assert.Equal(t, []Kind{KindLoot, KindDamage}, reg.Kinds())

	_, err = NewRegistry([]string{"nope"})
	assert.ErrorIs(t, err, ErrUnknownKind)

	all, err := NewRegistry(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultKinds(), all.Kinds())
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}
