// Package store holds the agent's last-known-good server state, one store
// per business domain. Stores mutate backend-first: local state changes only
// after a successful response, or immediately in demo mode. Realtime events
// patch entries by identifier; unknown identifiers are ignored.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"workb-agent/internal/apiclient"
	"workb-agent/internal/broadcast"
	"workb-agent/internal/model"
	"workb-agent/internal/realtime"
)

// Realtime is the slice of the session client the stores depend on.
type Realtime interface {
	On(event string, fn realtime.Handler) func()
	Off(event string)
	EmitCheckIn(realtime.CheckEvent)
	EmitCheckOut(realtime.CheckEvent)
	EmitPresenceResponse(realtime.PresenceResponse)
}

// AttendanceState is the attendance store's broadcast value.
type AttendanceState struct {
	Status       model.AttendanceStatus  `json:"status"`
	StartTime    *time.Time              `json:"startTime"`
	EndTime      *time.Time              `json:"endTime"`
	WorkDuration string                  `json:"workDuration"`
	WorkLocation model.WorkLocation      `json:"workLocation"`
	TodayRecord  *model.AttendanceRecord `json:"todayRecord"`
	IsLoading    bool                    `json:"isLoading"`
}

// Attendance tracks today's attendance status.
type Attendance struct {
	api      *apiclient.Client
	realtime Realtime
	demo     bool
	hub      *broadcast.Hub[AttendanceState]
	unsubs   []func()
}

// NewAttendance creates the attendance store. With demo enabled, mutations
// succeed locally without any network round-trip.
func NewAttendance(api *apiclient.Client, rt Realtime, demo bool) *Attendance {
	initial := AttendanceState{
		Status:       model.AttendanceNotCheckedIn,
		WorkDuration: "00:00:00",
		WorkLocation: model.LocationOffice,
	}
	return &Attendance{
		api:      api,
		realtime: rt,
		demo:     demo,
		hub:      broadcast.NewHub(initial, func(a, b AttendanceState) bool { return false }),
	}
}

// Snapshot returns the current attendance state.
func (a *Attendance) Snapshot() AttendanceState {
	return a.hub.Snapshot()
}

// Subscribe registers an observer; returns the snapshot and an unsubscribe.
func (a *Attendance) Subscribe(fn func(AttendanceState)) (AttendanceState, func()) {
	return a.hub.Subscribe(fn)
}

// todayResponse models GET /attendance.
type todayResponse struct {
	Status       string                  `json:"status"`
	CheckIn      *time.Time              `json:"checkIn"`
	CheckOut     *time.Time              `json:"checkOut"`
	WorkLocation model.WorkLocation      `json:"workLocation"`
	Record       *model.AttendanceRecord `json:"record"`
}

// checkResult models the check-in/out response fields the agent uses.
type checkResult struct {
	UserID      string `json:"userId"`
	WorkspaceID string `json:"workspaceId"`
}

func isToday(ts *time.Time) bool {
	if ts == nil {
		return false
	}
	now := time.Now()
	y1, m1, d1 := ts.Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// FetchStatus refreshes today's attendance from the backend. In demo mode
// it only resets locally held state when a new day has started.
func (a *Attendance) FetchStatus(ctx context.Context) error {
	a.hub.Apply(func(prev AttendanceState) AttendanceState {
		prev.IsLoading = true
		return prev
	})

	if a.demo {
		a.hub.Apply(func(prev AttendanceState) AttendanceState {
			if prev.StartTime != nil && !isToday(prev.StartTime) {
				log.Println("attendance: demo mode, new day detected, resetting status")
				prev = AttendanceState{
					Status:       model.AttendanceNotCheckedIn,
					WorkDuration: "00:00:00",
					WorkLocation: prev.WorkLocation,
				}
			}
			prev.IsLoading = false
			return prev
		})
		return nil
	}

	var today todayResponse
	if err := a.api.Get(ctx, "/attendance", &today); err != nil {
		a.hub.Apply(func(prev AttendanceState) AttendanceState {
			prev.Status = model.AttendanceOut
			prev.IsLoading = false
			return prev
		})
		return fmt.Errorf("failed to fetch attendance status: %w", err)
	}

	working := today.CheckIn != nil && today.CheckOut == nil
	status := model.AttendanceOut
	if working {
		status = model.AttendanceWorking
	}
	location := today.WorkLocation
	if location == "" {
		location = model.LocationOffice
	}

	a.hub.Apply(func(prev AttendanceState) AttendanceState {
		prev.Status = status
		prev.StartTime = today.CheckIn
		prev.EndTime = today.CheckOut
		prev.WorkLocation = location
		prev.TodayRecord = today.Record
		prev.IsLoading = false
		return prev
	})
	a.RecalculateDuration()
	return nil
}

// CheckIn records the start of work. Backend-first: local state is updated
// only after a successful response, then the realtime event is emitted.
func (a *Attendance) CheckIn(ctx context.Context, location model.WorkLocation) error {
	if location == "" {
		location = a.hub.Snapshot().WorkLocation
	}
	a.hub.Apply(func(prev AttendanceState) AttendanceState {
		prev.Status = model.AttendanceLoading
		return prev
	})

	now := time.Now()
	if a.demo {
		a.hub.Apply(func(prev AttendanceState) AttendanceState {
			prev.Status = model.AttendanceWorking
			prev.StartTime = &now
			prev.EndTime = nil
			prev.WorkLocation = location
			return prev
		})
		log.Printf("attendance: demo mode, check-in simulated at %s", now.Format("15:04:05"))
		return nil
	}

	var result checkResult
	err := a.api.Post(ctx, "/attendance/checkin", map[string]any{"workLocation": location}, &result)
	if err != nil {
		a.hub.Apply(func(prev AttendanceState) AttendanceState {
			prev.Status = model.AttendanceOut
			return prev
		})
		return fmt.Errorf("check-in failed: %w", err)
	}

	a.hub.Apply(func(prev AttendanceState) AttendanceState {
		prev.Status = model.AttendanceWorking
		prev.StartTime = &now
		prev.EndTime = nil
		prev.WorkLocation = location
		return prev
	})
	a.realtime.EmitCheckIn(realtime.CheckEvent{
		UserID:      result.UserID,
		WorkspaceID: result.WorkspaceID,
		Time:        now,
	})
	log.Println("attendance: check-in successful")
	return nil
}

// CheckOut records the end of work.
func (a *Attendance) CheckOut(ctx context.Context) error {
	a.hub.Apply(func(prev AttendanceState) AttendanceState {
		prev.Status = model.AttendanceLoading
		return prev
	})

	now := time.Now()
	if a.demo {
		a.hub.Apply(func(prev AttendanceState) AttendanceState {
			prev.Status = model.AttendanceOut
			prev.EndTime = &now
			return prev
		})
		log.Printf("attendance: demo mode, check-out simulated at %s", now.Format("15:04:05"))
		return nil
	}

	var result checkResult
	if err := a.api.Post(ctx, "/attendance/checkout", map[string]any{}, &result); err != nil {
		// Refetch to recover the correct state.
		if fetchErr := a.FetchStatus(ctx); fetchErr != nil {
			log.Printf("attendance: refetch after failed check-out also failed: %v", fetchErr)
		}
		return fmt.Errorf("check-out failed: %w", err)
	}

	a.hub.Apply(func(prev AttendanceState) AttendanceState {
		prev.Status = model.AttendanceOut
		prev.EndTime = &now
		return prev
	})
	a.realtime.EmitCheckOut(realtime.CheckEvent{
		UserID:      result.UserID,
		WorkspaceID: result.WorkspaceID,
		Time:        now,
	})
	log.Println("attendance: check-out successful")
	return nil
}

// SetWorkLocation selects where the next check-in is performed from.
func (a *Attendance) SetWorkLocation(location model.WorkLocation) {
	a.hub.Apply(func(prev AttendanceState) AttendanceState {
		prev.WorkLocation = location
		return prev
	})
}

// RecalculateDuration refreshes the elapsed-time string and returns it.
// Formatting only; the backend owns all other attendance arithmetic.
func (a *Attendance) RecalculateDuration() string {
	state := a.hub.Snapshot()
	if state.StartTime == nil || state.Status != model.AttendanceWorking {
		return "00:00:00"
	}

	diff := time.Since(*state.StartTime)
	if diff < 0 {
		return "00:00:00"
	}
	duration := fmt.Sprintf("%02d:%02d:%02d",
		int(diff.Hours()), int(diff.Minutes())%60, int(diff.Seconds())%60)

	a.hub.Apply(func(prev AttendanceState) AttendanceState {
		prev.WorkDuration = duration
		return prev
	})
	return duration
}

// SetupRealtimeListeners patches the store from server-pushed events.
func (a *Attendance) SetupRealtimeListeners() {
	unsub := a.realtime.On(realtime.EventAttendanceStatusChanged, func(data json.RawMessage) {
		log.Printf("attendance: realtime status update: %s", data)
		if err := a.FetchStatus(context.Background()); err != nil {
			log.Printf("attendance: refetch after realtime update failed: %v", err)
		}
	})
	a.unsubs = append(a.unsubs, unsub)
}

// CleanupListeners removes the store's realtime subscriptions.
func (a *Attendance) CleanupListeners() {
	for _, unsub := range a.unsubs {
		unsub()
	}
	a.unsubs = nil
}
