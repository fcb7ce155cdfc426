package auditlog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/edsrzf/mmap-go"
)

// ErrCorrupt is returned for a line that is not valid JSON.
var ErrCorrupt = errors.New("auditlog: corrupt line")

// File is the decoded content of a mirror file.
type File struct {
	Header      *Header
	Submissions []json.RawMessage
	Size        int64
}

// ReadFile maps path read-only and decodes it.
func ReadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	out := &File{Size: st.Size()}
	if st.Size() == 0 {
		return out, nil
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	defer data.Unmap()

	lineNo := 0
	rest := []byte(data)
	for len(rest) > 0 {
		var line []byte
		if i := bytes.IndexByte(rest, '\n'); i >= 0 {
			line, rest = rest[:i], rest[i+1:]
		} else {
			line, rest = rest, nil
		}
		lineNo++
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			return nil, fmt.Errorf("%s:%d: %w", filepath.Base(path), lineNo, ErrCorrupt)
		}
		if lineNo == 1 {
			if h, ok := parseHeader(line); ok {
				out.Header = h
				continue
			}
		}
		// copy out of the mapping before it is unmapped
		out.Submissions = append(out.Submissions, append(json.RawMessage(nil), line...))
	}
	return out, nil
}

func parseHeader(line []byte) (*Header, bool) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(line, &keys); err != nil {
		return nil, false
	}
	if _, ok := keys["battle"]; !ok {
		return nil, false
	}
	if _, ok := keys["lines"]; ok {
		return nil, false
	}
	var h Header
	if err := json.Unmarshal(line, &h); err != nil {
		return nil, false
	}
	return &h, true
}

// List returns the battle ids with a mirror file in dir, sorted by id
// (creation order for generated ids).
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Ext) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), Ext))
	}
	sort.Strings(ids)
	return ids, nil
}
