package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"workb-agent/config"
	"workb-agent/internal/model"
	"workb-agent/internal/storage"
)

// wsServer is a scriptable realtime backend stand-in.
type wsServer struct {
	server   *httptest.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	conns    []*websocket.Conn
	upgrades int
	auths    []string

	frames chan Envelope
}

func newWSServer(t *testing.T) *wsServer {
	ws := &wsServer{frames: make(chan Envelope, 100)}
	ws.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ws.mu.Lock()
		ws.upgrades++
		ws.auths = append(ws.auths, r.Header.Get("Authorization"))
		ws.conns = append(ws.conns, conn)
		ws.mu.Unlock()

		for {
			var envelope Envelope
			if err := conn.ReadJSON(&envelope); err != nil {
				return
			}
			ws.frames <- envelope
		}
	}))
	t.Cleanup(ws.server.Close)
	return ws
}

func (ws *wsServer) url() string {
	return "ws" + strings.TrimPrefix(ws.server.URL, "http")
}

func (ws *wsServer) upgradeCount() int {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.upgrades
}

func (ws *wsServer) closeAll() {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	for _, conn := range ws.conns {
		conn.Close()
	}
	ws.conns = nil
}

func (ws *wsServer) push(t *testing.T, event string, data any) {
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	ws.mu.Lock()
	defer ws.mu.Unlock()
	require.NotEmpty(t, ws.conns)
	conn := ws.conns[len(ws.conns)-1]
	require.NoError(t, conn.WriteJSON(Envelope{Event: event, Data: raw}))
}

func (ws *wsServer) nextFrame(t *testing.T) Envelope {
	select {
	case f := <-ws.frames:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return Envelope{}
	}
}

func (ws *wsServer) expectNoFrame(t *testing.T) {
	select {
	case f := <-ws.frames:
		t.Fatalf("unexpected frame: %s", f.Event)
	case <-time.After(100 * time.Millisecond):
	}
}

func testRealtimeConfig(url string) config.RealtimeConfig {
	return config.RealtimeConfig{
		URL:                  url,
		MaxReconnectAttempts: 5,
		ReconnectDelay:       10 * time.Millisecond,
		ReconnectDelayMax:    50 * time.Millisecond,
		ConnectTimeout:       2 * time.Second,
	}
}

func newTestStorage(t *testing.T) *storage.Storage {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.KVEntry{}, &model.PushSubscription{}))
	return storage.NewWithDB(db)
}

func TestClient_ConnectIdempotent(t *testing.T) {
	ws := newWSServer(t)
	client := NewClient(testRealtimeConfig(ws.url()), newTestStorage(t))
	defer client.Disconnect()

	assert.True(t, client.Connect(context.Background()))
	assert.True(t, client.Connect(context.Background()))
	assert.True(t, client.Connected())
	assert.Equal(t, 1, ws.upgradeCount())
}

func TestClient_ConnectAttachesBearerToken(t *testing.T) {
	ws := newWSServer(t)
	store := newTestStorage(t)
	require.NoError(t, store.Set(storage.KeyAuthToken, "tok-9"))

	client := NewClient(testRealtimeConfig(ws.url()), store)
	defer client.Disconnect()

	require.True(t, client.Connect(context.Background()))
	ws.mu.Lock()
	defer ws.mu.Unlock()
	require.Len(t, ws.auths, 1)
	assert.Equal(t, "Bearer tok-9", ws.auths[0])
}

func TestClient_ConnectFailureReturnsFalse(t *testing.T) {
	cfg := testRealtimeConfig("ws://127.0.0.1:1/ws")
	cfg.ConnectTimeout = 200 * time.Millisecond
	client := NewClient(cfg, newTestStorage(t))

	assert.False(t, client.Connect(context.Background()))
	assert.False(t, client.Connected())
}

func TestClient_SingleRoomInvariant(t *testing.T) {
	ws := newWSServer(t)
	client := NewClient(testRealtimeConfig(ws.url()), newTestStorage(t))
	defer client.Disconnect()
	require.True(t, client.Connect(context.Background()))

	client.JoinWorkspace("A")
	frame := ws.nextFrame(t)
	assert.Equal(t, SignalJoinWorkspace, frame.Event)
	assert.Equal(t, `"A"`, string(frame.Data))

	client.JoinWorkspace("B")
	frame = ws.nextFrame(t)
	assert.Equal(t, SignalLeaveWorkspace, frame.Event)
	assert.Equal(t, `"A"`, string(frame.Data))
	frame = ws.nextFrame(t)
	assert.Equal(t, SignalJoinWorkspace, frame.Event)
	assert.Equal(t, `"B"`, string(frame.Data))

	// Rejoining the current room emits no leave.
	client.JoinWorkspace("B")
	frame = ws.nextFrame(t)
	assert.Equal(t, SignalJoinWorkspace, frame.Event)
	ws.expectNoFrame(t)
}

func TestClient_EmitWhileOfflineIsDropped(t *testing.T) {
	ws := newWSServer(t)
	client := NewClient(testRealtimeConfig(ws.url()), newTestStorage(t))

	assert.NotPanics(t, func() {
		client.EmitCheckIn(CheckEvent{UserID: "u1", WorkspaceID: "A", Time: time.Now()})
	})
	assert.Zero(t, ws.upgradeCount())
	ws.expectNoFrame(t)
}

func TestClient_JoinWhileOfflineIsDropped(t *testing.T) {
	ws := newWSServer(t)
	client := NewClient(testRealtimeConfig(ws.url()), newTestStorage(t))

	client.JoinWorkspace("A")
	ws.expectNoFrame(t)

	// The join is not queued: connecting afterwards joins nothing.
	require.True(t, client.Connect(context.Background()))
	defer client.Disconnect()
	ws.expectNoFrame(t)
}

func TestClient_DisconnectIsIdempotent(t *testing.T) {
	ws := newWSServer(t)
	client := NewClient(testRealtimeConfig(ws.url()), newTestStorage(t))

	client.Disconnect() // never connected
	require.True(t, client.Connect(context.Background()))
	client.Disconnect()
	client.Disconnect()
	assert.False(t, client.Connected())
}

func TestClient_DispatchAndOff(t *testing.T) {
	ws := newWSServer(t)
	client := NewClient(testRealtimeConfig(ws.url()), newTestStorage(t))
	defer client.Disconnect()
	require.True(t, client.Connect(context.Background()))

	got := make(chan string, 10)
	client.On(EventAttendanceStatusChanged, func(data json.RawMessage) {
		got <- string(data)
	})
	// A panicking handler must not break dispatch for others.
	client.On(EventAttendanceStatusChanged, func(json.RawMessage) { panic("boom") })

	ws.push(t, EventAttendanceStatusChanged, map[string]string{"userId": "u1", "status": "working"})
	select {
	case payload := <-got:
		assert.Contains(t, payload, "u1")
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not invoked")
	}

	client.Off(EventAttendanceStatusChanged)
	ws.push(t, EventAttendanceStatusChanged, map[string]string{"userId": "u2"})
	select {
	case <-got:
		t.Fatal("handler invoked after Off")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestClient_ReconnectAfterFreshConnectStaysSingle(t *testing.T) {
	ws := newWSServer(t)
	client := NewClient(testRealtimeConfig(ws.url()), newTestStorage(t))
	defer client.Disconnect()

	for i := 0; i < 3; i++ {
		require.True(t, client.Connect(context.Background()))
		client.Disconnect()
	}
	require.True(t, client.Connect(context.Background()))

	// Read loops of the torn-down connections must not redial a transport
	// on top of the live one.
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 4, ws.upgradeCount())
	assert.True(t, client.Connected())
}

func TestClient_ReconnectRejoinsWorkspace(t *testing.T) {
	ws := newWSServer(t)
	client := NewClient(testRealtimeConfig(ws.url()), newTestStorage(t))
	defer client.Disconnect()
	require.True(t, client.Connect(context.Background()))

	client.JoinWorkspace("A")
	require.Equal(t, SignalJoinWorkspace, ws.nextFrame(t).Event)

	// Kill the transport from the server side; the client must redial and
	// re-issue the join for the last-known room.
	ws.closeAll()

	frame := ws.nextFrame(t)
	assert.Equal(t, SignalJoinWorkspace, frame.Event)
	assert.Equal(t, `"A"`, string(frame.Data))

	require.Eventually(t, func() bool { return ws.upgradeCount() == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, client.Connected())
}
