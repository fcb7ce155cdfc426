package battlesvc

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
)

// celFilter wraps a compiled CEL program evaluated against decoded events.
// When disabled, Eval always returns true.
type celFilter struct {
	prog    cel.Program
	enabled bool
}

func newCELFilter(expr string) (celFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return celFilter{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("event_type", cel.StringType),
		// Decoded event fields; numbers are doubles.
		cel.Variable("data", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("turn", cel.IntType),
		cel.Variable("time", cel.DoubleType),
	)
	if err != nil {
		return celFilter{}, err
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return celFilter{}, fmt.Errorf("%w: %v", ErrInvalidFilter, iss.Err())
	}
	prog, err := env.Program(ast)
	if err != nil {
		return celFilter{}, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	return celFilter{prog: prog, enabled: true}, nil
}

// Eval reports whether ev matches. Evaluation errors, such as a missing
// field, count as no match.
func (f celFilter) Eval(ev EventView) bool {
	if !f.enabled {
		return true
	}
	data := ev.Data
	if data == nil {
		data = map[string]any{}
	}
	out, _, err := f.prog.Eval(map[string]any{
		"event_type": ev.Type,
		"data":       data,
		"turn":       int64(ev.Turn),
		"time":       ev.Time,
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
