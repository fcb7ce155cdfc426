package battle

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColdCompressesRepetitiveTurns(t *testing.T) {
	turns := make([]Turn, 200)
	for i := range turns {
		turns[i] = Turn{Time: float64(i), Events: []Event{{Type: "PLAYER_BASIC", Data: map[int]any{0: "Goblin", 1: 12.0, 2: "hits"}}}}
	}
	enc, err := EncodeCold(turns)
	require.NoError(t, err)
	assert.Equal(t, codecLZ4, enc[0])

	dec, err := DecodeCold(enc)
	require.NoError(t, err)
	require.Len(t, dec, 200)
	assert.Equal(t, 199.0, dec[199].Time)
	assert.Equal(t, "Goblin", dec[10].Events[0].Data[0])
}

func TestColdSmallPayloadStoredRaw(t *testing.T) {
	enc, err := EncodeCold(nil)
	require.NoError(t, err)
	assert.Equal(t, codecRaw, enc[0])
	dec, err := DecodeCold(enc)
	require.NoError(t, err)
	assert.Empty(t, dec)
}

func TestColdRejectsGarbage(t *testing.T) {
	for _, b := range [][]byte{nil, {9, 0, 0, 0, 1, 'x'}, {codecRaw, 0, 0, 0, 9, '[', ']'}} {
		_, err := DecodeCold(b)
		assert.Error(t, err, fmt.Sprintf("%x", b))
	}
}

func TestTurnRecordRoundTrip(t *testing.T) {
	in := Turn{Time: 0.5, Events: []Event{{Type: "X", Data: map[int]any{3: "v"}}}}
	payload, err := MarshalTurnPayload(in)
	require.NoError(t, err)
	out, err := UnmarshalTurn(TurnHeader(in), payload)
	require.NoError(t, err)
	assert.Equal(t, 0.5, out.Time)
	assert.Equal(t, "v", out.Events[0].Data[3])

	_, err = UnmarshalTurn([]byte{1}, payload)
	assert.Error(t, err)
}
