package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/patchbay/internal/config"
	"github.com/roach88/patchbay/internal/logging"
	"github.com/roach88/patchbay/internal/store"
)

const oscillatorID = "0b5c2f64-3c1e-4e8e-9a41-6f1d2a000001"

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Modules.SystemDir = systemModules
	cfg.Modules.ThirdPartyDir = thirdPartyModules
	cfg.Store.SQLitePath = filepath.Join(t.TempDir(), "patchbay.db")
	return cfg
}

func postCommand(t *testing.T, h http.Handler, url, body string) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, url, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var env struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env.Status
}

func TestRuntime_SQLite(t *testing.T) {
	cfg := testConfig(t)
	rt, err := newRuntime(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 5, rt.registry.Len())
	require.NotNil(t, rt.queue)

	assert.Equal(t, "SUCCESS", postCommand(t, rt.handler, "/command/new", `{"module_id":"`+oscillatorID+`","name":"Osc"}`))
	assert.Equal(t, "SUCCESS", postCommand(t, rt.handler, "/command/set", `{"path":"Osc.gain","value":{"integer":8}}`))
	assert.Equal(t, "SUCCESS", postCommand(t, rt.handler, "/command/save", `{"path":"","name":"live"}`))
	assert.Equal(t, "CONSTRAINT_ERROR", postCommand(t, rt.handler, "/command/set", `{"path":"Osc.gain","value":{"integer":80}}`))
	assert.Positive(t, rt.queue.Pending(), "host messages wait for the queue to run")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	rt.handler.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), `patchbay_commands_total{code="CONSTRAINT_ERROR",command="set",source="host_api"} 1`)
	assert.Contains(t, w.Body.String(), "go_goroutines")

	rt.close()

	st, err := store.Open(cfg.Store.SQLitePath)
	require.NoError(t, err)
	defer st.Close()
	snap, err := st.LoadSnapshot(context.Background(), "live")
	require.NoError(t, err)
	require.Len(t, snap.Nodes, 1)
	assert.Equal(t, "Osc", snap.Nodes[0].Path.String())
}

func TestRuntime_RedisNoHost(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Store.Driver = config.StoreRedis
	cfg.Store.Redis.Addr = mr.Addr()
	cfg.Host.Mode = config.HostNone
	cfg.Log.Spans = true

	rt, err := newRuntime(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)
	defer rt.close()

	assert.Nil(t, rt.queue)
	assert.Equal(t, "SUCCESS", postCommand(t, rt.handler, "/command/new", `{"module_id":"`+oscillatorID+`","name":"Osc"}`))
	assert.Equal(t, "SUCCESS", postCommand(t, rt.handler, "/command/save", `{"path":"Osc","name":"one"}`))
	assert.True(t, mr.Exists(cfg.Store.Redis.Prefix+"one"))
}

func TestRuntime_Errors(t *testing.T) {
	cfg := testConfig(t)
	cfg.Modules.SystemDir = t.TempDir()
	cfg.Modules.ThirdPartyDir = ""
	_, err := newRuntime(context.Background(), cfg, logging.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no interfaces loaded")

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	cfg = testConfig(t)
	cfg.Store.Driver = config.StoreRedis
	cfg.Store.Redis.Addr = addr
	_, err = newRuntime(context.Background(), cfg, logging.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect redis store")
}

func TestRuntime_DataDirStagesFiles(t *testing.T) {
	cfg := testConfig(t)
	cfg.Host.DataDir = filepath.Join(t.TempDir(), "files")
	src := filepath.Join(t.TempDir(), "loop.wav")
	require.NoError(t, os.WriteFile(src, []byte("RIFF"), 0644))

	rt, err := newRuntime(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)
	defer rt.close()

	require.Equal(t, "SUCCESS", postCommand(t, rt.handler, "/command/new", `{"module_id":"0b5c2f64-3c1e-4e8e-9a41-6f1d2a000005","name":"Player"}`))
	require.Equal(t, "SUCCESS", postCommand(t, rt.handler, "/command/set", `{"path":"Player.file","value":{"string":"`+src+`"}}`))

	assert.FileExists(t, filepath.Join(cfg.Host.DataDir, "Player", "loop.wav"))
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestServe_RunsUntilCancelled(t *testing.T) {
	dir := t.TempDir()
	addr := freeAddr(t)
	cfgPath := filepath.Join(dir, "patchbay.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
modules:
  system_dir: `+systemModules+`
store:
  driver: none
shutdown_timeout: 2s
`), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logs := &syncBuffer{}
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(logs)
	cmd.SetArgs([]string{"serve", "--config", cfgPath, "--listen", addr})

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
	assert.Contains(t, logs.String(), "server stopped")
}

func TestServe_InvalidConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("store:\n  driver: etcd\n"), 0644))

	_, err := execute(t, "text", "serve", "--config", cfgPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "unknown driver")
}
