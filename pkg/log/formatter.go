package log

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// DefaultTimestampFormat is used when a formatter has no explicit format.
const DefaultTimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// TextFormatter renders entries as a single human-readable line:
//
//	2024-01-02T15:04:05.000Z INFO  message key=value key2="quoted value"
type TextFormatter struct {
	TimestampFormat  string
	DisableTimestamp bool
	ShowCaller       bool
}

// Format implements Formatter.
func (f *TextFormatter) Format(entry *Entry) ([]byte, error) {
	var b bytes.Buffer
	if !f.DisableTimestamp {
		layout := f.TimestampFormat
		if layout == "" {
			layout = DefaultTimestampFormat
		}
		b.WriteString(entry.Timestamp.Format(layout))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s %s", entry.Level.String(), entry.Message)

	for _, k := range sortedKeys(entry.Fields) {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(textValue(entry.Fields[k]))
	}
	if entry.Error != nil {
		b.WriteString(" error=")
		b.WriteString(textValue(entry.Error.Error()))
	}
	if f.ShowCaller && entry.Caller != "" {
		b.WriteString(" caller=")
		b.WriteString(entry.Caller)
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// JSONFormatter renders entries as one JSON object per line.
type JSONFormatter struct {
	TimestampFormat string
	ShowCaller      bool
}

// Format implements Formatter.
func (f *JSONFormatter) Format(entry *Entry) ([]byte, error) {
	layout := f.TimestampFormat
	if layout == "" {
		layout = time.RFC3339Nano
	}
	out := make(map[string]interface{}, len(entry.Fields)+4)
	for k, v := range entry.Fields {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		out[k] = v
	}
	out["ts"] = entry.Timestamp.Format(layout)
	out["level"] = strings.ToLower(entry.Level.String())
	out["msg"] = entry.Message
	if entry.Error != nil {
		out["error"] = entry.Error.Error()
	}
	if f.ShowCaller && entry.Caller != "" {
		out["caller"] = entry.Caller
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func sortedKeys(m Fields) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func textValue(v interface{}) string {
	var s string
	switch t := v.(type) {
	case nil:
		return "<nil>"
	case string:
		s = t
	case error:
		s = t.Error()
	case fmt.Stringer:
		s = t.String()
	default:
		s = fmt.Sprint(t)
	}
	if strings.ContainsAny(s, " \t\n\"=") {
		return fmt.Sprintf("%q", s)
	}
	return s
}
