package auditlog

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSyncer struct{ calls []string }

func (r *recordingSyncer) SyncDir(dir string) error {
	r.calls = append(r.calls, dir)
	return nil
}

func raw(s string) json.RawMessage { return json.RawMessage(s) }

func TestAppendWritesHeaderOnceAndReadsBack(t *testing.T) {
	dir := t.TempDir()
	syncer := &recordingSyncer{}
	w, err := NewWriter(dir, WriterOptions{Sync: true, DirSyncer: syncer})
	require.NoError(t, err)

	origin := 12.5
	h := &Header{Battle: HeaderBattle{ID: "b1", TimeOrigin: &origin}}
	require.NoError(t, w.Append("b1", h, []json.RawMessage{
		raw(`{"lines": ["a", "b"], "time": 12.5}`),
		raw(`{"lines":[],"time":null}`),
	}))
	require.NoError(t, w.Append("b1", h, []json.RawMessage{raw(`{"lines":["c"],"time":13}`)}))
	assert.Equal(t, []string{dir}, syncer.calls, "directory is synced only when the file is created")

	content, err := os.ReadFile(w.Path("b1"))
	require.NoError(t, err)
	assert.Equal(t,
		`{"battle":{"id":"b1","time_origin":12.5}}`+"\n"+
			`{"lines":["a","b"],"time":12.5}`+"\n"+
			`{"lines":[],"time":null}`+"\n"+
			`{"lines":["c"],"time":13}`+"\n",
		string(content))

	f, err := ReadFile(w.Path("b1"))
	require.NoError(t, err)
	require.NotNil(t, f.Header)
	assert.Equal(t, "b1", f.Header.Battle.ID)
	assert.Equal(t, 12.5, *f.Header.Battle.TimeOrigin)
	require.Len(t, f.Submissions, 3)
	assert.JSONEq(t, `{"lines":["c"],"time":13}`, string(f.Submissions[2]))
}

func TestHeaderIsOptional(t *testing.T) {
	w, err := NewWriter(t.TempDir(), WriterOptions{})
	require.NoError(t, err)
	require.NoError(t, w.Append("b2", nil, []json.RawMessage{raw(`{"lines":["x"],"time":1}`)}))

	f, err := ReadFile(w.Path("b2"))
	require.NoError(t, err)
	assert.Nil(t, f.Header)
	assert.Len(t, f.Submissions, 1)
}

func TestAppendRejectsInvalidJSON(t *testing.T) {
	w, err := NewWriter(t.TempDir(), WriterOptions{})
	require.NoError(t, err)
	assert.Error(t, w.Append("b3", nil, []json.RawMessage{raw(`{nope`)}))
}

func TestAppendFailsWhenDirectoryVanishes(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "audit")
	w, err := NewWriter(dir, WriterOptions{Sync: true})
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(dir))
	require.NoError(t, os.WriteFile(dir, []byte("not a dir"), 0o644))

	assert.Error(t, w.Append("b4", nil, []json.RawMessage{raw(`{}`)}))
}

func TestReadFileReportsCorruptLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad"+Ext)
	require.NoError(t, os.WriteFile(path, []byte("{\"lines\":[]}\n{broken\n"), 0o644))
	_, err := ReadFile(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorrupt))
	assert.Contains(t, err.Error(), ":2:")
}

func TestReadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty"+Ext)
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	f, err := ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, f.Submissions)
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, WriterOptions{})
	require.NoError(t, err)
	for _, id := range []string{"0002", "0001"} {
		require.NoError(t, w.Append(id, nil, []json.RawMessage{raw(`{}`)}))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"+Ext), 0o755))

	ids, err := List(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001", "0002"}, ids)
}

func TestFailedAppendLeavesNoPartialLine(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, WriterOptions{})
	require.NoError(t, err)
	h := &Header{Battle: HeaderBattle{ID: "b1"}}
	require.NoError(t, w.Append("b1", h, []json.RawMessage{raw(`{"lines":["a"],"time":1}`)}))

	origWrite := writeFile
	t.Cleanup(func() { writeFile = origWrite })
	writeFile = func(f *os.File, b []byte) (int, error) {
		n, _ := f.Write(b[:len(b)/2])
		return n, errors.New("no space left on device")
	}
	err = w.Append("b1", h, []json.RawMessage{raw(`{"lines":["lost"],"time":2}`)})
	require.ErrorContains(t, err, "no space left on device")
	writeFile = origWrite

	require.NoError(t, w.Append("b1", h, []json.RawMessage{raw(`{"lines":["c"],"time":3}`)}))
	f, err := ReadFile(w.Path("b1"))
	require.NoError(t, err)
	require.Len(t, f.Submissions, 2)
	assert.JSONEq(t, `{"lines":["a"],"time":1}`, string(f.Submissions[0]))
	assert.JSONEq(t, `{"lines":["c"],"time":3}`, string(f.Submissions[1]))
}

func TestFailedSyncOnNewFileRewritesHeader(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, WriterOptions{Sync: true, DirSyncer: &recordingSyncer{}})
	require.NoError(t, err)

	origSync := syncFile
	t.Cleanup(func() { syncFile = origSync })
	syncFile = func(*os.File) error { return errors.New("input/output error") }
	h := &Header{Battle: HeaderBattle{ID: "b2"}}
	require.Error(t, w.Append("b2", h, []json.RawMessage{raw(`{"lines":["x"],"time":1}`)}))
	syncFile = origSync

	st, err := os.Stat(w.Path("b2"))
	require.NoError(t, err)
	assert.Zero(t, st.Size())

	require.NoError(t, w.Append("b2", h, []json.RawMessage{raw(`{"lines":["y"],"time":2}`)}))
	f, err := ReadFile(w.Path("b2"))
	require.NoError(t, err)
	require.NotNil(t, f.Header)
	assert.Equal(t, "b2", f.Header.Battle.ID)
	require.Len(t, f.Submissions, 1)
	assert.JSONEq(t, `{"lines":["y"],"time":2}`, string(f.Submissions[0]))
}
