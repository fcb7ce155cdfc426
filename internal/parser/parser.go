package parser

import (
	"strconv"
)

// Event is one parsed log line.
type Event struct {
	Type   string         `json:"type"`
	Fields map[string]any `json:"fields"`
}

// String returns a string field or "".
func (e *Event) String(name string) string {
	s, _ := e.Fields[name].(string)
	return s
}

// Number returns a numeric field and whether it was present.
func (e *Event) Number(name string) (float64, bool) {
	f, ok := e.Fields[name].(float64)
	return f, ok
}

// Parser is the default table-driven log parser. It is stateless and safe
// for concurrent use.
type Parser struct {
	table []pattern
}

// New returns a parser over the default pattern table.
func New() *Parser { return &Parser{table: defaultTable()} }

// Types lists the event types the parser can emit, in table order.
func (p *Parser) Types() []string {
	out := make([]string, len(p.table))
	for i, pt := range p.table {
		out[i] = pt.typ
	}
	return out
}

// Parse parses every line. The result has the same length as lines; lines
// that match no pattern yield nil.
func (p *Parser) Parse(lines []string) ([]*Event, error) {
	out := make([]*Event, len(lines))
	for i, l := range lines {
		out[i] = p.ParseLine(l)
	}
	return out, nil
}

// ParseLine parses a single line.
func (p *Parser) ParseLine(line string) *Event {
	for i := range p.table {
		if ev := p.table[i].match(line); ev != nil {
			return ev
		}
	}
	return nil
}

func (pt *pattern) match(line string) *Event {
	idx := pt.re.FindStringSubmatchIndex(line)
	if idx == nil {
		return nil
	}
	names := pt.re.SubexpNames()
	fields := make(map[string]any, len(names))
	for gi, name := range names {
		if gi == 0 || name == "" || idx[2*gi] < 0 {
			continue
		}
		raw := line[idx[2*gi]:idx[2*gi+1]]
		if pt.numeric[name] {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil
			}
			fields[name] = v
			continue
		}
		fields[name] = raw
	}
	if pt.reject != nil && pt.reject(fields) {
		return nil
	}
	return &Event{Type: pt.typ, Fields: fields}
}
