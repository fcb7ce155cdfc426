package log

import (
	"io"
	"os"
	"sync"
)

// ConsoleOutput writes to stdout, routing error entries to stderr.
type ConsoleOutput struct {
	mu     sync.Mutex
	Out    io.Writer
	ErrOut io.Writer
}

// NewConsoleOutput returns a console output bound to os.Stdout/os.Stderr.
func NewConsoleOutput() *ConsoleOutput {
	return &ConsoleOutput{Out: os.Stdout, ErrOut: os.Stderr}
}

// Write implements Output.
func (o *ConsoleOutput) Write(entry *Entry, formatted []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	w := o.Out
	if w == nil {
		w = os.Stdout
	}
	if entry != nil && entry.Level >= ErrorLevel {
		if o.ErrOut != nil {
			w = o.ErrOut
		} else {
			w = os.Stderr
		}
	}
	_, err := w.Write(formatted)
	return err
}

// Close implements Output.
func (o *ConsoleOutput) Close() error { return nil }

// WriterOutput writes every entry to a single io.Writer. Useful in tests.
type WriterOutput struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterOutput wraps w.
func NewWriterOutput(w io.Writer) *WriterOutput { return &WriterOutput{w: w} }

// Write implements Output.
func (o *WriterOutput) Write(_ *Entry, formatted []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, err := o.w.Write(formatted)
	return err
}

// Close implements Output.
func (o *WriterOutput) Close() error { return nil }

// FileOutput appends entries to a file.
type FileOutput struct {
	mu sync.Mutex
	f  *os.File
}

// NewFileOutput opens (or creates) path for appending.
func NewFileOutput(path string) (*FileOutput, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileOutput{f: f}, nil
}

// Write implements Output.
func (o *FileOutput) Write(_ *Entry, formatted []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, err := o.f.Write(formatted)
	return err
}

// Close implements Output.
func (o *FileOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.f.Close()
}

// NullOutput discards everything.
type NullOutput struct{}

// Write implements Output.
func (NullOutput) Write(*Entry, []byte) error { return nil }

// Close implements Output.
func (NullOutput) Close() error { return nil }
