package introspect

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/vortexlang/cbridge/pkg/bridge"
	"github.com/vortexlang/cbridge/pkg/bridge/stats"
)

// fakeSource is a minimal Source for testing without booting the real
// process-wide bridge singleton.
type fakeSource struct {
	st *stats.Stats
}

func (f *fakeSource) Stats() stats.Snapshot { return f.st.Snapshot() }

func (f *fakeSource) ModuleInfo() []bridge.ModuleRecord {
	return []bridge.ModuleRecord{
		{Name: "atomics", Version: "1.0.0", Initialized: true},
		{Name: "tasks", Version: "1.0.0", Initialized: true},
		{Name: "sync", Version: "1.0.0", Initialized: true},
		{Name: "channels", Version: "1.0.0", Initialized: true},
		{Name: "patterns", Version: "1.0.0", Initialized: true},
	}
}

func TestHandleStats(t *testing.T) {
	st := stats.New()
	st.Task.Spawned.Store(7)
	srv := New(&fakeSource{st: st}, nil)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.True(t, body.Success)
}

func TestHandleModules(t *testing.T) {
	srv := New(&fakeSource{st: stats.New()}, nil)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/modules")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Success bool                  `json:"success"`
		Data    []bridge.ModuleRecord `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.True(t, body.Success)
	require.Len(t, body.Data, 5)
}

func TestWebSocketBroadcast(t *testing.T) {
	st := stats.New()
	srv := New(&fakeSource{st: st}, nil)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	wsURL := "ws" + ts.URL[len("http"):] + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the server a moment to register the new client before broadcasting.
	time.Sleep(20 * time.Millisecond)
	srv.Broadcast()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var snap stats.Snapshot
	require.NoError(t, conn.ReadJSON(&snap))
}

func TestServeOnEphemeralListener(t *testing.T) {
	srv := New(&fakeSource{st: stats.New()}, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go srv.Serve(ln)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	resp, err := http.Get("http://" + ln.Addr().String() + "/api/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
