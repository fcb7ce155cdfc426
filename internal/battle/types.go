package battle

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"math"
)

var (
	// ErrNotFound is returned when a battle, report or cold record does not exist.
	ErrNotFound = errors.New("battle: not found")
	// ErrSealed is returned when writing over a finalized report.
	ErrSealed = errors.New("battle: report already finalized")
)

// Battle is one ingestion session.
type Battle struct {
	ID          string   `json:"id"`
	CreatedAtMs int64    `json:"createdAtMs"`
	Active      bool     `json:"active"`
	TimeOrigin  *float64 `json:"timeOrigin,omitempty"`
	// Unparsed holds every rejected line verbatim, in arrival order.
	Unparsed []string `json:"unparsed,omitempty"`
	// KeyMap is the append-only field dictionary; index is the field position.
	KeyMap []string `json:"keyMap,omitempty"`
	// Turns counts turns appended over the battle's lifetime.
	Turns uint64 `json:"turns"`
	// Batches counts accepted submissions. It numbers mirror lines so a
	// replay can regroup them.
	Batches uint64 `json:"batches"`
}

// Event is a stored event. Data is keyed by position in the battle's KeyMap.
type Event struct {
	Type string      `json:"type"`
	Data map[int]any `json:"data"`
}

// Turn is one stored submission.
type Turn struct {
	Time   float64 `json:"time"`
	Events []Event `json:"events"`
}

// TurnHeader encodes the turn time for the turn buffer record header.
func TurnHeader(t Turn) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(t.Time))
	return b[:]
}

// MarshalTurnPayload encodes the events of t.
func MarshalTurnPayload(t Turn) ([]byte, error) {
	if t.Events == nil {
		t.Events = []Event{}
	}
	return json.Marshal(t.Events)
}

// UnmarshalTurn rebuilds a turn from a buffer record.
func UnmarshalTurn(header, payload []byte) (Turn, error) {
	if len(header) != 8 {
		return Turn{}, errors.New("battle: bad turn header")
	}
	t := Turn{Time: math.Float64frombits(binary.BigEndian.Uint64(header))}
	if err := json.Unmarshal(payload, &t.Events); err != nil {
		return Turn{}, err
	}
	return t, nil
}

// Report is the persisted output of one reporter for one battle.
type Report struct {
	BattleID    string          `json:"battleId"`
	Type        string          `json:"type"`
	Data        json.RawMessage `json:"data,omitempty"`
	Finalized   bool            `json:"finalized"`
	Degraded    bool            `json:"degraded,omitempty"`
	UpdatedAtMs int64           `json:"updatedAtMs"`
}

// MetaReportType is the report owned by the segmentation engine.
const MetaReportType = "meta"

// MetaData is the data of the meta report.
type MetaData struct {
	BattleType string  `json:"battle_type"`
	MaxRounds  float64 `json:"max_rounds"`
	LastRound  float64 `json:"last_round"`
}

// DecodeMeta decodes a meta report's data.
func DecodeMeta(r Report) (MetaData, error) {
	var m MetaData
	err := json.Unmarshal(r.Data, &m)
	return m, err
}
