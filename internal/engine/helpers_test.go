package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/patchbay/internal/ir"
	"github.com/roach88/patchbay/internal/module"
	"github.com/roach88/patchbay/internal/testutil"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// testServer bundles a Server with recording collaborators.
type testServer struct {
	*Server
	t     *testing.T
	sink  *RecordingSink
	host  *RecordingHost
	store *MemorySnapshotStore
}

func newTestServer(t *testing.T, opts ...ServerOption) *testServer {
	t.Helper()
	ts := &testServer{
		t:     t,
		sink:  &RecordingSink{},
		host:  &RecordingHost{},
		store: NewMemorySnapshotStore(),
	}
	base := []ServerOption{
		WithSink(ts.sink),
		WithHost(ts.host),
		WithSnapshotStore(ts.store),
		WithIDGenerator(NewFixedGenerator("snap-1", "snap-2", "snap-3")),
		WithNow(func() time.Time { return fixedNow }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	ts.Server = NewServer(module.NewRegistry(testutil.Definitions()...), append(base, opts...)...)
	return ts
}

func p(s string) ir.Path { return ir.MustParsePath(s) }

// do runs a command from the external API and fails the test on error.
func (ts *testServer) do(cmd Command) Result {
	ts.t.Helper()
	res, err := ts.ProcessCommand(context.Background(), cmd, ir.SourceHostAPI)
	require.NoError(ts.t, err)
	return res
}

// try runs a command from the external API and returns its error code.
func (ts *testServer) try(cmd Command, source ir.CommandSource) ErrorCode {
	ts.t.Helper()
	_, err := ts.ProcessCommand(context.Background(), cmd, source)
	return CodeOf(err)
}

func (ts *testServer) create(moduleName, name, parent string) Result {
	ts.t.Helper()
	ids := map[string]func() *ir.InterfaceDefinition{
		"Oscillator": testutil.OscillatorInterface,
		"Container":  testutil.ContainerInterface,
		"Script":     testutil.ScriptInterface,
		"Connection": testutil.ConnectionInterface,
		"Player":     testutil.PlayerInterface,
		"Control":    testutil.ControlInterface,
	}
	def, ok := ids[moduleName]
	require.True(ts.t, ok, moduleName)
	return ts.do(New{ModuleID: def().ModuleID, Name: name, Parent: p(parent)})
}

func (ts *testServer) setValue(path string, v ir.Value) Result {
	ts.t.Helper()
	return ts.do(Set{Path: p(path), Value: v})
}

func (ts *testServer) get(path string) ir.Value {
	ts.t.Helper()
	v, ok := ts.Get(p(path))
	require.True(ts.t, ok, "endpoint %s", path)
	return v
}

// connect creates a Connection node under parent routing src to dst.
func (ts *testServer) connect(name, parent, src, dst string) {
	ts.t.Helper()
	ts.create("Connection", name, parent)
	base := name
	if parent != "" {
		base = parent + "." + name
	}
	ts.setValue(base+".sourcePath", ir.String(src))
	ts.setValue(base+".targetPath", ir.String(dst))
}

// events renders recorded notifications one per line.
func (ts *testServer) events() []string {
	var out []string
	for _, n := range ts.sink.Events() {
		out = append(out, n.String())
	}
	return out
}

// sends renders host SendValue calls as "path=value".
func (ts *testServer) sends() []string {
	var out []string
	for _, c := range ts.host.Sends() {
		v := "<bang>"
		if c.Value != nil {
			v = c.Value.String()
		}
		out = append(out, c.Path.String()+"="+v)
	}
	return out
}

func (ts *testServer) reset() {
	ts.sink.Reset()
	ts.host.Reset()
}

// stagerFunc adapts a function to FileStager.
type stagerFunc func(ctx context.Context, node ir.Path, file string) (string, error)

func (f stagerFunc) Stage(ctx context.Context, node ir.Path, file string) (string, error) {
	return f(ctx, node, file)
}
