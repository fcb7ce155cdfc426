// Package normalize turns client submissions into ordered, parsed turns.
//
// Submissions are ordered by timestamp for parsing, parsed in fixed-size
// batches, and then regrouped back into the order they were submitted in.
// Lines the parser cannot read are returned separately as rejects.
package normalize

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/rzbill/battlelog/internal/parser"
)

// DefaultBatchSize bounds the number of lines handed to a single Parse call.
const DefaultBatchSize = 1000

// ErrParserLength is returned when a parser does not return one result per line.
var ErrParserLength = errors.New("normalize: parser returned wrong number of results")

// Parser is the line parser boundary. Implementations must be pure and
// length-preserving: result i describes line i, nil meaning unparseable.
type Parser interface {
	Parse(lines []string) ([]*parser.Event, error)
}

// RawTurnLog is one client submission.
type RawTurnLog struct {
	Lines []string `json:"lines"`
	Time  *float64 `json:"time"`
}

// Turn is a parsed submission, in submission order.
type Turn struct {
	Index  int
	Time   *float64
	Events []*parser.Event
}

// Reject is a line that did not parse.
type Reject struct {
	Turn int
	Line string
}

// Result of Normalize.
type Result struct {
	Turns   []Turn
	Rejects []Reject
}

// Options tune batching.
type Options struct {
	// BatchSize is the maximum number of lines per Parse call.
	BatchSize int
	// Workers bounds concurrent Parse calls.
	Workers int
}

// Normalizer is safe for concurrent use.
type Normalizer struct {
	parser Parser
	opts   Options
}

// New returns a Normalizer over p.
func New(p Parser, opts Options) *Normalizer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Normalizer{parser: p, opts: opts}
}

// sortKey orders a submission by its time, or by its index when untimed.
func sortKey(idx int, l RawTurnLog) float64 {
	if l.Time != nil {
		return *l.Time
	}
	return float64(idx)
}

// Normalize parses logs and returns one Turn per submission.
func (n *Normalizer) Normalize(ctx context.Context, logs []RawTurnLog) (Result, error) {
	order := make([]int, len(logs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return sortKey(order[a], logs[order[a]]) < sortKey(order[b], logs[order[b]])
	})

	// Flatten lines in parse order and remember where each submission starts.
	offset := make([]int, len(logs))
	var lines []string
	for _, idx := range order {
		offset[idx] = len(lines)
		lines = append(lines, logs[idx].Lines...)
	}

	parsed, err := n.parseAll(ctx, lines)
	if err != nil {
		return Result{}, err
	}

	res := Result{Turns: make([]Turn, len(logs))}
	for idx, l := range logs {
		turn := Turn{Index: idx, Time: l.Time, Events: make([]*parser.Event, 0, len(l.Lines))}
		for j, line := range l.Lines {
			if ev := parsed[offset[idx]+j]; ev != nil {
				turn.Events = append(turn.Events, ev)
			} else {
				res.Rejects = append(res.Rejects, Reject{Turn: idx, Line: line})
			}
		}
		res.Turns[idx] = turn
	}
	return res, nil
}

func (n *Normalizer) parseAll(ctx context.Context, lines []string) ([]*parser.Event, error) {
	out := make([]*parser.Event, len(lines))
	if len(lines) == 0 {
		return out, nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.opts.Workers)
	for start := 0; start < len(lines); start += n.opts.BatchSize {
		end := min(start+n.opts.BatchSize, len(lines))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			evs, err := n.parser.Parse(lines[start:end])
			if err != nil {
				return fmt.Errorf("parse lines %d-%d: %w", start, end, err)
			}
			if len(evs) != end-start {
				return fmt.Errorf("lines %d-%d: got %d results: %w", start, end, len(evs), ErrParserLength)
			}
			copy(out[start:end], evs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
