package store

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workb-agent/internal/model"
	"workb-agent/internal/realtime"
)

func TestAttendance_FetchStatusWorking(t *testing.T) {
	checkIn := time.Now().Add(-2 * time.Hour)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /attendance", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"status":       "working",
			"checkIn":      checkIn,
			"checkOut":     nil,
			"workLocation": "remote",
		})
	})
	api, _ := newTestBackend(t, mux)
	att := NewAttendance(api, newFakeSession(), false)

	require.NoError(t, att.FetchStatus(context.Background()))

	state := att.Snapshot()
	assert.Equal(t, model.AttendanceWorking, state.Status)
	assert.Equal(t, model.LocationRemote, state.WorkLocation)
	require.NotNil(t, state.StartTime)
	assert.Nil(t, state.EndTime)
	assert.False(t, state.IsLoading)
	assert.Regexp(t, `^02:00:0\d$`, state.WorkDuration)
}

func TestAttendance_CheckInBackendFirst(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /attendance/checkin", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"userId": "u-1", "workspaceId": "w-1"})
	})
	api, _ := newTestBackend(t, mux)
	session := newFakeSession()
	att := NewAttendance(api, session, false)

	require.NoError(t, att.CheckIn(context.Background(), model.LocationOffice))

	state := att.Snapshot()
	assert.Equal(t, model.AttendanceWorking, state.Status)
	require.NotNil(t, state.StartTime)
	require.Len(t, session.checkIns, 1)
	assert.Equal(t, "u-1", session.checkIns[0].UserID)
	assert.Equal(t, "w-1", session.checkIns[0].WorkspaceID)
}

func TestAttendance_CheckInFailureKeepsStateOut(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /attendance/checkin", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	api, _ := newTestBackend(t, mux)
	session := newFakeSession()
	att := NewAttendance(api, session, false)

	err := att.CheckIn(context.Background(), model.LocationOffice)
	require.Error(t, err)

	// No local mutation and no emitted event on backend failure.
	state := att.Snapshot()
	assert.Equal(t, model.AttendanceOut, state.Status)
	assert.Nil(t, state.StartTime)
	assert.Empty(t, session.checkIns)
}

func TestAttendance_DemoModeNeedsNoBackend(t *testing.T) {
	// Backend that fails every request: demo mode must never reach it.
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected backend call: %s %s", r.Method, r.URL.Path)
	})
	api, _ := newTestBackend(t, mux)
	att := NewAttendance(api, newFakeSession(), true)

	require.NoError(t, att.CheckIn(context.Background(), model.LocationField))
	assert.Equal(t, model.AttendanceWorking, att.Snapshot().Status)
	assert.Equal(t, model.LocationField, att.Snapshot().WorkLocation)

	require.NoError(t, att.CheckOut(context.Background()))
	state := att.Snapshot()
	assert.Equal(t, model.AttendanceOut, state.Status)
	require.NotNil(t, state.EndTime)
}

func TestAttendance_RealtimeStatusChangeTriggersRefetch(t *testing.T) {
	fetches := 0
	mux := http.NewServeMux()
	mux.HandleFunc("GET /attendance", func(w http.ResponseWriter, r *http.Request) {
		fetches++
		writeJSON(t, w, map[string]any{"status": "out"})
	})
	api, _ := newTestBackend(t, mux)
	session := newFakeSession()
	att := NewAttendance(api, session, false)
	att.SetupRealtimeListeners()

	session.push(t, realtime.EventAttendanceStatusChanged, map[string]string{"userId": "u-9"})
	assert.Equal(t, 1, fetches)

	att.CleanupListeners()
	session.push(t, realtime.EventAttendanceStatusChanged, map[string]string{"userId": "u-9"})
	assert.Equal(t, 1, fetches, "removed listener must not refetch")
}

func TestAttendance_RecalculateDuration(t *testing.T) {
	att := NewAttendance(nil, newFakeSession(), true)

	assert.Equal(t, "00:00:00", att.RecalculateDuration(), "not working yet")

	start := time.Now().Add(-(3*time.Hour + 25*time.Minute + 7*time.Second))
	att.hub.Apply(func(prev AttendanceState) AttendanceState {
		prev.Status = model.AttendanceWorking
		prev.StartTime = &start
		return prev
	})
	assert.Regexp(t, `^03:25:0[78]$`, att.RecalculateDuration())
	assert.Equal(t, att.Snapshot().WorkDuration, att.RecalculateDuration())
}
