package keydict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeAssignsSortedPositions(t *testing.T) {
	d := New(nil)
	enc, added := d.Encode(map[string]any{"value": 3.0, "monster": "Goblin"})
	assert.Equal(t, []string{"monster", "value"}, added)
	assert.Equal(t, map[int]any{0: "Goblin", 1: 3.0}, enc)

	enc, added = d.Encode(map[string]any{"value": 4.0, "damage_type": "fire"})
	assert.Equal(t, []string{"damage_type"}, added)
	assert.Equal(t, map[int]any{1: 4.0, 2: "fire"}, enc)
	assert.Equal(t, []string{"monster", "value", "damage_type"}, d.Keys())
}

func TestPositionsStableAcrossGrowthAndReload(t *testing.T) {
	d := New(nil)
	first, _ := d.Encode(map[string]any{"name": "Sword"})
	for i := 0; i < 50; i++ {
		d.Encode(map[string]any{string(rune('a'+i%26)) + "x": i})
	}

	reloaded := New(d.Keys())
	got, err := reloaded.Decode(first)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Sword"}, got)

	p, ok := reloaded.Position("name")
	require.True(t, ok)
	assert.Equal(t, 0, p)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	d := New([]string{"existing"})
	in := map[string]any{"existing": true, "b": "x", "a": 1.5}
	enc, _ := d.Encode(in)
	out, err := d.Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeUnknownPosition(t *testing.T) {
	_, err := Decode([]string{"a"}, map[int]any{3: "x"})
	assert.Error(t, err)
}

func TestEncodeEmpty(t *testing.T) {
	d := New(nil)
	enc, added := d.Encode(nil)
	assert.Empty(t, enc)
	assert.Nil(t, added)
	assert.Equal(t, 0, d.Len())
}
