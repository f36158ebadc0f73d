package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"workb-agent/internal/apiclient"
	"workb-agent/internal/broadcast"
	"workb-agent/internal/model"
	"workb-agent/internal/realtime"
)

// LeaveState is the leave store's broadcast value.
type LeaveState struct {
	Requests  []model.LeaveRequest `json:"requests"`
	Balance   *model.LeaveBalance  `json:"balance"`
	IsLoading bool                 `json:"isLoading"`
	Error     string               `json:"error"`
}

// Leave tracks leave requests and the remaining balance.
type Leave struct {
	api      *apiclient.Client
	realtime Realtime
	demo     bool
	hub      *broadcast.Hub[LeaveState]
	unsubs   []func()
}

func NewLeave(api *apiclient.Client, rt Realtime, demo bool) *Leave {
	return &Leave{
		api:      api,
		realtime: rt,
		demo:     demo,
		hub:      broadcast.NewHub(LeaveState{}, func(a, b LeaveState) bool { return false }),
	}
}

func (l *Leave) Snapshot() LeaveState {
	return l.hub.Snapshot()
}

func (l *Leave) Subscribe(fn func(LeaveState)) (LeaveState, func()) {
	return l.hub.Subscribe(fn)
}

type leaveDataResponse struct {
	Requests []model.LeaveRequest `json:"requests"`
	Balance  *model.LeaveBalance  `json:"balance"`
}

// FetchLeaveData loads the user's requests and balance in one call.
func (l *Leave) FetchLeaveData(ctx context.Context) error {
	l.hub.Apply(func(prev LeaveState) LeaveState {
		prev.IsLoading = true
		prev.Error = ""
		return prev
	})

	if l.demo {
		l.hub.Apply(func(prev LeaveState) LeaveState {
			if prev.Balance == nil {
				prev.Balance = &model.LeaveBalance{
					Annual: model.LeaveBalanceEntry{Total: 15, Remaining: 15},
					Sick:   model.LeaveBalanceEntry{Total: 5, Remaining: 5},
				}
			}
			prev.IsLoading = false
			return prev
		})
		return nil
	}

	var data leaveDataResponse
	if err := l.api.Get(ctx, "/leave", &data); err != nil {
		l.hub.Apply(func(prev LeaveState) LeaveState {
			prev.IsLoading = false
			prev.Error = "failed to load leave data"
			return prev
		})
		return fmt.Errorf("failed to fetch leave data: %w", err)
	}

	l.hub.Apply(func(prev LeaveState) LeaveState {
		prev.Requests = data.Requests
		prev.Balance = data.Balance
		prev.IsLoading = false
		return prev
	})
	return nil
}

// requestDays computes the span of a request in days. Half-day types count
// as 0.5 regardless of the date range.
func requestDays(leaveType model.LeaveType, start, end time.Time) float64 {
	if leaveType == model.LeaveHalfAM || leaveType == model.LeaveHalfPM {
		return 0.5
	}
	startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	endDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return endDay.Sub(startDay).Hours()/24 + 1
}

// SubmitRequest files a new leave request. The server assigns the id and
// pending status; in demo mode both are fabricated locally.
func (l *Leave) SubmitRequest(ctx context.Context, leaveType model.LeaveType, start, end time.Time, reason string) error {
	days := requestDays(leaveType, start, end)

	if l.demo {
		request := model.LeaveRequest{
			ID:        uuid.NewString(),
			Type:      leaveType,
			StartDate: start,
			EndDate:   end,
			Days:      days,
			Reason:    reason,
			Status:    model.LeavePending,
			CreatedAt: time.Now(),
		}
		l.hub.Apply(func(prev LeaveState) LeaveState {
			prev.Requests = append([]model.LeaveRequest{request}, prev.Requests...)
			return prev
		})
		log.Printf("leave: demo mode, request %s recorded locally", request.ID)
		return nil
	}

	body := map[string]any{
		"type":      leaveType,
		"startDate": start,
		"endDate":   end,
		"days":      days,
		"reason":    reason,
	}
	var created model.LeaveRequest
	if err := l.api.Post(ctx, "/leave", body, &created); err != nil {
		return fmt.Errorf("leave request failed: %w", err)
	}

	l.hub.Apply(func(prev LeaveState) LeaveState {
		prev.Requests = append([]model.LeaveRequest{created}, prev.Requests...)
		return prev
	})
	return nil
}

// CancelRequest withdraws a pending request.
func (l *Leave) CancelRequest(ctx context.Context, id string) error {
	if !l.demo {
		if err := l.api.Delete(ctx, "/leave/"+id); err != nil {
			return fmt.Errorf("leave cancellation failed: %w", err)
		}
	}
	l.hub.Apply(func(prev LeaveState) LeaveState {
		kept := make([]model.LeaveRequest, 0, len(prev.Requests))
		for _, r := range prev.Requests {
			if r.ID != id {
				kept = append(kept, r)
			}
		}
		prev.Requests = kept
		return prev
	})
	return nil
}

// patchStatus flips a request's status. Unknown ids are ignored. The
// requests slice is copied so earlier snapshots keep their values.
func (l *Leave) patchStatus(id string, status model.LeaveStatus, reason string) {
	l.hub.Apply(func(prev LeaveState) LeaveState {
		for i := range prev.Requests {
			if prev.Requests[i].ID == id {
				requests := make([]model.LeaveRequest, len(prev.Requests))
				copy(requests, prev.Requests)
				requests[i].Status = status
				if reason != "" {
					requests[i].RejectReason = reason
				}
				prev.Requests = requests
				return prev
			}
		}
		return prev
	})
}

type leaveDecision struct {
	RequestID string `json:"requestId"`
	Reason    string `json:"reason"`
}

// SetupRealtimeListeners patches request statuses from server decisions.
func (l *Leave) SetupRealtimeListeners() {
	onApproved := l.realtime.On(realtime.EventLeaveApproved, func(data json.RawMessage) {
		var decision leaveDecision
		if err := json.Unmarshal(data, &decision); err != nil {
			log.Printf("leave: malformed approval event: %v", err)
			return
		}
		l.patchStatus(decision.RequestID, model.LeaveApproved, "")
	})
	onRejected := l.realtime.On(realtime.EventLeaveRejected, func(data json.RawMessage) {
		var decision leaveDecision
		if err := json.Unmarshal(data, &decision); err != nil {
			log.Printf("leave: malformed rejection event: %v", err)
			return
		}
		l.patchStatus(decision.RequestID, model.LeaveRejected, decision.Reason)
	})
	l.unsubs = append(l.unsubs, onApproved, onRejected)
}

func (l *Leave) CleanupListeners() {
	for _, unsub := range l.unsubs {
		unsub()
	}
	l.unsubs = nil
}
