package auditlog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Ext is the mirror file extension.
const Ext = ".jsonl"

const fileModePerm = 0o644

// Header is the optional first line of a mirror file.
type Header struct {
	Battle HeaderBattle `json:"battle"`
}

// HeaderBattle identifies the battle a file mirrors.
type HeaderBattle struct {
	ID         string   `json:"id"`
	TimeOrigin *float64 `json:"time_origin"`
}

// DirectorySyncer syncs a directory after a file is created in it.
type DirectorySyncer interface {
	SyncDir(dir string) error
}

// DirectorySyncFunc adapts a function to DirectorySyncer.
type DirectorySyncFunc func(dir string) error

// SyncDir implements DirectorySyncer.
func (f DirectorySyncFunc) SyncDir(dir string) error { return f(dir) }

// WriterOptions configures a Writer.
type WriterOptions struct {
	// Sync fsyncs every append.
	Sync bool
	// DirSyncer defaults to an fsync of the directory.
	DirSyncer DirectorySyncer
}

// Writer appends submissions to mirror files.
type Writer struct {
	dir  string
	opts WriterOptions

	mu sync.Mutex
}

// NewWriter creates dir if needed.
func NewWriter(dir string, opts WriterOptions) (*Writer, error) {
	if dir == "" {
		return nil, errors.New("auditlog: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("auditlog: create dir: %w", err)
	}
	if opts.DirSyncer == nil {
		opts.DirSyncer = DirectorySyncFunc(syncDir)
	}
	return &Writer{dir: dir, opts: opts}, nil
}

// Dir returns the directory files are written to.
func (w *Writer) Dir() string { return w.dir }

// Path returns the mirror file of a battle.
func (w *Writer) Path(battleID string) string {
	return filepath.Join(w.dir, battleID+Ext)
}

// Append writes subs as one line each. header is written first when the
// file is new. All lines go out in a single write.
func (w *Writer) Append(battleID string, header *Header, subs []json.RawMessage) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	path := w.Path(battleID)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, fileModePerm)
	if err != nil {
		return fmt.Errorf("auditlog: open %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("auditlog: stat %s: %w", path, err)
	}
	created := st.Size() == 0

	var buf bytes.Buffer
	if created && header != nil {
		h, err := json.Marshal(header)
		if err != nil {
			f.Close()
			return err
		}
		buf.Write(h)
		buf.WriteByte('\n')
	}
	for _, s := range subs {
		if err := compactLine(&buf, s); err != nil {
			f.Close()
			return fmt.Errorf("auditlog: encode submission: %w", err)
		}
	}

	if _, err := writeFile(f, buf.Bytes()); err != nil {
		err = fmt.Errorf("auditlog: write %s: %w", path, err)
		return rollback(f, st.Size(), err)
	}
	if w.opts.Sync {
		if err := syncFile(f); err != nil {
			err = fmt.Errorf("auditlog: fsync %s: %w", path, err)
			return rollback(f, st.Size(), err)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("auditlog: close %s: %w", path, err)
	}
	if created && w.opts.Sync {
		if err := w.opts.DirSyncer.SyncDir(w.dir); err != nil {
			return fmt.Errorf("auditlog: sync dir: %w", err)
		}
	}
	return nil
}

var (
	writeFile = func(f *os.File, b []byte) (int, error) { return f.Write(b) }
	syncFile  = func(f *os.File) error { return f.Sync() }
)

// rollback cuts f back to size so a failed append leaves no partial line
// for the next one to be glued onto, then closes it.
func rollback(f *os.File, size int64, cause error) error {
	if err := f.Truncate(size); err != nil {
		cause = fmt.Errorf("%w (truncate: %v)", cause, err)
	}
	f.Close()
	return cause
}

// compactLine writes s without insignificant whitespace so it fits on one line.
func compactLine(buf *bytes.Buffer, s json.RawMessage) error {
	if err := json.Compact(buf, s); err != nil {
		return err
	}
	buf.WriteByte('\n')
	return nil
}

func syncDir(dir string) error {
	df, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer df.Close()
	return df.Sync()
}
