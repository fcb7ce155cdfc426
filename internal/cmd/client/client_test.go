package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfgpkg "github.com/rzbill/battlelog/internal/config"
	"github.com/rzbill/battlelog/internal/runtime"
	grpcserver "github.com/rzbill/battlelog/internal/server/grpc"
	battlesvc "github.com/rzbill/battlelog/internal/services/battles"
	pebblestore "github.com/rzbill/battlelog/internal/storage/pebble"
	logpkg "github.com/rzbill/battlelog/pkg/log"
)

// startServer runs a real gRPC server on a loopback port and points the CLI at it.
func startServer(t *testing.T) *runtime.Runtime {
	t.Helper()
	rt, err := runtime.Open(runtime.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways, Config: cfgpkg.Default()})
	require.NoError(t, err)
	svc, err := battlesvc.Open(context.Background(), rt, battlesvc.Options{Logger: logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))})
	require.NoError(t, err)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := grpcserver.New(rt, svc)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx, l)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		rt.Close()
	})
	t.Setenv("BATTLELOG_GRPC", l.Addr().String())
	return rt
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRoot()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSubmitAndInspect(t *testing.T) {
	rt := startServer(t)
	turns := writeFile(t, "turns.json", `[{"lines":["Initializing Arena (Round 1 / 3) ...","Spawned Monster A: MID=1 (Goblin) LV=10 HP=100"],"time":5}]`)

	out, err := run(t, "submit", "--file", turns)
	require.NoError(t, err)
	var res battlesvc.SubmitResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.NewBattle)

	text := writeFile(t, "combat.txt", "You gain 50 Credits!\nwhat is this\n")
	out, err = run(t, "submit", "--lines", text, "--time", "9")
	require.NoError(t, err)
	assert.Contains(t, out, `"rejected": 1`)

	out, err = run(t, "battles", "list")
	require.NoError(t, err)
	assert.Contains(t, out, res.BattleID)
	assert.Contains(t, out, "UNPARSED")

	out, err = run(t, "reports", res.BattleID)
	require.NoError(t, err)
	assert.Contains(t, out, `"loot"`)

	out, err = run(t, "events", res.BattleID, "--filter", `event_type == "CREDITS"`)
	require.NoError(t, err)
	var events []battlesvc.EventView
	require.NoError(t, json.Unmarshal([]byte(out), &events))
	require.Len(t, events, 1)
	assert.Equal(t, 9.0, events[0].Time)

	out, err = run(t, "audit", "show", res.BattleID, "--dir", rt.Audit().Dir(), "--lines")
	require.NoError(t, err)
	assert.Contains(t, out, "submissions: 2")
	assert.Contains(t, out, "You gain 50 Credits!")
}

func TestCommandErrors(t *testing.T) {
	startServer(t)

	_, err := run(t, "submit")
	assert.Error(t, err)

	_, err = run(t, "reports", "missing")
	assert.Error(t, err)

	_, err = run(t, "audit", "rebuild")
	assert.Error(t, err)

	_, err = run(t, "events")
	assert.Error(t, err)
}

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{}, splitLines("\n"))
	assert.Equal(t, []string{"a", "b"}, splitLines("a\r\nb\n"))

	t.Setenv("BATTLELOG_GRPC", "")
	assert.True(t, strings.HasPrefix(grpcAddrFromEnv(), "127.0.0.1"))
}
