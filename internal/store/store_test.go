package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"workb-agent/config"
	"workb-agent/internal/apiclient"
	"workb-agent/internal/model"
	"workb-agent/internal/realtime"
	"workb-agent/internal/storage"
)

// fakeSession stands in for the realtime client: it records emits and lets
// tests push events straight into registered handlers.
type fakeSession struct {
	nextID    int
	handlers  map[string]map[int]realtime.Handler
	checkIns  []realtime.CheckEvent
	checkOuts []realtime.CheckEvent
	presence  []realtime.PresenceResponse
	online    bool
	joined    []string
	disconnects int
}

func newFakeSession() *fakeSession {
	return &fakeSession{handlers: map[string]map[int]realtime.Handler{}, online: true}
}

func (f *fakeSession) On(event string, fn realtime.Handler) func() {
	if f.handlers[event] == nil {
		f.handlers[event] = map[int]realtime.Handler{}
	}
	f.nextID++
	id := f.nextID
	f.handlers[event][id] = fn
	return func() { delete(f.handlers[event], id) }
}

func (f *fakeSession) Off(event string) { delete(f.handlers, event) }

func (f *fakeSession) EmitCheckIn(e realtime.CheckEvent)           { f.checkIns = append(f.checkIns, e) }
func (f *fakeSession) EmitCheckOut(e realtime.CheckEvent)          { f.checkOuts = append(f.checkOuts, e) }
func (f *fakeSession) EmitPresenceResponse(r realtime.PresenceResponse) {
	f.presence = append(f.presence, r)
}

func (f *fakeSession) Connect(ctx context.Context) bool { return f.online }
func (f *fakeSession) Disconnect()                      { f.disconnects++ }
func (f *fakeSession) JoinWorkspace(id string)          { f.joined = append(f.joined, id) }

// push delivers a server event to every handler registered for it.
func (f *fakeSession) push(t *testing.T, event string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	for _, fn := range f.handlers[event] {
		fn(raw)
	}
}

func newTestStorage(t *testing.T) *storage.Storage {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.KVEntry{}, &model.PushSubscription{}))
	return storage.NewWithDB(db)
}

// newTestBackend wires an apiclient against an httptest server.
func newTestBackend(t *testing.T, handler http.Handler) (*apiclient.Client, *storage.Storage) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	store := newTestStorage(t)
	client := apiclient.New(&config.BackendConfig{BaseURL: srv.URL, Timeout: 2 * time.Second}, store)
	return client, store
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}
