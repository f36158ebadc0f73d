package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"workb-agent/config"
	"workb-agent/internal/geo"
	"workb-agent/internal/location"
	"workb-agent/internal/model"
	"workb-agent/internal/netmon"
	"workb-agent/internal/realtime"
	"workb-agent/internal/storage"
	"workb-agent/internal/store"
)

type stubNetProvider struct{}

func (stubNetProvider) Fetch(ctx context.Context) (netmon.State, error) {
	return netmon.State{Status: netmon.StatusWifi, IsConnected: true}, nil
}

func (stubNetProvider) Subscribe(fn func(netmon.State)) func() {
	return func() {}
}

type stubSession struct {
	presence []realtime.PresenceResponse
}

func (s *stubSession) On(event string, fn realtime.Handler) func() { return func() {} }
func (s *stubSession) Off(event string)                            {}
func (s *stubSession) EmitCheckIn(realtime.CheckEvent)             {}
func (s *stubSession) EmitCheckOut(realtime.CheckEvent)            {}
func (s *stubSession) EmitPresenceResponse(r realtime.PresenceResponse) {
	s.presence = append(s.presence, r)
}
func (s *stubSession) Connect(ctx context.Context) bool { return false }
func (s *stubSession) Disconnect()                      {}
func (s *stubSession) JoinWorkspace(workspaceID string) {}

// newTestRouter wires the router against demo-mode stores and stub
// providers, so no backend is involved.
func newTestRouter(t *testing.T, webpushOptions *webpush.Options) (http.Handler, *storage.Storage, *stubSession) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.KVEntry{}, &model.PushSubscription{}))
	localStore := storage.NewWithDB(db)

	network := netmon.New(stubNetProvider{})
	network.Initialize(context.Background())

	office := &config.OfficeConfig{Latitude: 37.4979, Longitude: 127.0276, RadiusMeters: 100}
	locCfg := config.LocationConfig{
		WatchInterval: time.Minute,
		FetchTimeout:  time.Second,
		MaxSampleAge:  time.Second,
	}
	provider := &location.FixedProvider{Coordinate: geo.Coordinate{Lat: 37.4979, Lon: 127.0276}}
	session := location.NewSession(office, locCfg, provider, network)
	session.Initialize(context.Background())

	rt := &stubSession{}
	deps := Deps{
		Server:     config.ServerConfig{RateLimitPerSec: 1000, CacheTTLSeconds: 1},
		Auth:       store.NewAuth(nil, localStore, rt, true),
		Attendance: store.NewAttendance(nil, rt, true),
		Leave:      store.NewLeave(nil, rt, true),
		Notices:    store.NewNotices(nil, rt, true),
		Location:   session,
		Network:    network,
		Storage:    localStore,
		Realtime:   rt,
		WebPush:    webpushOptions,
	}
	return NewRouter(deps), localStore, rt
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(raw)
	} else {
		reader = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetState(t *testing.T) {
	router, _, _ := newTestRouter(t, nil)

	w := doJSON(t, router, http.MethodGet, "/api/state", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var state map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	for _, section := range []string{"auth", "attendance", "location", "network"} {
		assert.Contains(t, state, section)
	}
}

func TestCheckInThroughRouter(t *testing.T) {
	router, _, _ := newTestRouter(t, nil)

	w := doJSON(t, router, http.MethodPost, "/api/attendance/checkin",
		map[string]string{"workLocation": "remote"})
	require.Equal(t, http.StatusOK, w.Code)

	var state store.AttendanceState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, model.AttendanceWorking, state.Status)
	assert.Equal(t, model.LocationRemote, state.WorkLocation)

	w = doJSON(t, router, http.MethodPost, "/api/attendance/checkout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, model.AttendanceOut, state.Status)
}

func TestLoginAndSession(t *testing.T) {
	router, localStore, _ := newTestRouter(t, nil)

	w := doJSON(t, router, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "kim@example.com", "password": "pw"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, localStore.Token())

	w = doJSON(t, router, http.MethodGet, "/api/auth/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var session store.AuthState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	assert.True(t, session.IsAuthenticated)

	w = doJSON(t, router, http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, localStore.Token())
}

func TestLoginValidation(t *testing.T) {
	router, _, _ := newTestRouter(t, nil)

	w := doJSON(t, router, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "kim@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubscriptionLifecycle(t *testing.T) {
	router, _, _ := newTestRouter(t, nil)

	sub := map[string]string{
		"endpoint": "https://example.com/push",
		"p256dh":   "key",
		"auth":     "auth",
	}
	w := doJSON(t, router, http.MethodPut, "/api/subscriptions", sub)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodGet,
		"/api/subscriptions?endpoint=https%3A%2F%2Fexample.com%2Fpush", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/api/subscriptions",
		map[string]string{"endpoint": "https://example.com/push"})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodGet,
		"/api/subscriptions?endpoint=https%3A%2F%2Fexample.com%2Fpush", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPutSubscriptionValidation(t *testing.T) {
	router, _, _ := newTestRouter(t, nil)

	w := doJSON(t, router, http.MethodPut, "/api/subscriptions",
		map[string]string{"endpoint": "https://example.com/push"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRespondPresence(t *testing.T) {
	router, _, rt := newTestRouter(t, nil)

	// Requires a logged-in user.
	w := doJSON(t, router, http.MethodPost, "/api/presence/respond",
		map[string]any{"checkId": "chk-1", "responded": true})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "kim@example.com", "password": "pw"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/presence/respond",
		map[string]any{"checkId": "chk-1", "responded": true})
	require.Equal(t, http.StatusAccepted, w.Code)

	require.Len(t, rt.presence, 1)
	assert.Equal(t, "chk-1", rt.presence[0].CheckID)
	assert.True(t, rt.presence[0].Responded)
	assert.Equal(t, "demo-user", rt.presence[0].UserID)
}

func TestPushSettings(t *testing.T) {
	router, localStore, _ := newTestRouter(t, nil)

	w := doJSON(t, router, http.MethodGet, "/api/push/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"token":"","enabled":false}`, w.Body.String())

	token := "device-token"
	enabled := true
	w = doJSON(t, router, http.MethodPut, "/api/push/settings",
		map[string]any{"token": token, "enabled": enabled})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"token":"device-token","enabled":true}`, w.Body.String())

	persisted, err := localStore.Get(storage.KeyPushToken)
	require.NoError(t, err)
	assert.Equal(t, "device-token", persisted)

	// Empty body is rejected.
	w = doJSON(t, router, http.MethodPut, "/api/push/settings", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetVAPIDPublicKey(t *testing.T) {
	router, _, _ := newTestRouter(t, nil)
	w := doJSON(t, router, http.MethodGet, "/api/vapid_public_key", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	router, _, _ = newTestRouter(t, &webpush.Options{VAPIDPublicKey: "pub-key"})
	w = doJSON(t, router, http.MethodGet, "/api/vapid_public_key", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"public_key":"pub-key"}`, w.Body.String())
}
