package notification

import (
	"encoding/json"
	"log"

	"workb-agent/internal/model"
	"workb-agent/internal/realtime"
)

// realtimeSource is the event surface the dispatcher consumes.
type realtimeSource interface {
	On(event string, fn realtime.Handler) func()
}

// Dispatcher turns server-pushed realtime events into push payloads and
// hands them to the worker pool, so subscribed browsers hear about events
// the agent received while their tab was closed.
type Dispatcher struct {
	pool   *WorkerPool
	unsubs []func()
}

func NewDispatcher(pool *WorkerPool) *Dispatcher {
	return &Dispatcher{pool: pool}
}

// Start registers the realtime listeners.
func (d *Dispatcher) Start(source realtimeSource) {
	d.unsubs = append(d.unsubs,
		source.On(realtime.EventNoticeNew, d.onNotice),
		source.On(realtime.EventNoticeCreated, d.onNotice),
		source.On(realtime.EventLeaveApproved, func(data json.RawMessage) {
			d.onLeaveDecision(data, "Leave request approved")
		}),
		source.On(realtime.EventLeaveRejected, func(data json.RawMessage) {
			d.onLeaveDecision(data, "Leave request rejected")
		}),
		source.On(realtime.EventPresenceCheckRequired, d.onPresenceCheck),
	)
}

// Stop removes the realtime listeners.
func (d *Dispatcher) Stop() {
	for _, unsub := range d.unsubs {
		unsub()
	}
	d.unsubs = nil
}

func (d *Dispatcher) onNotice(data json.RawMessage) {
	var notice model.Notice
	if err := json.Unmarshal(data, &notice); err != nil {
		log.Printf("notification: malformed notice event: %v", err)
		return
	}
	d.pool.Dispatch(Payload{
		Type:        TypeNotice,
		Title:       "New notice",
		Body:        notice.Title,
		EntityID:    notice.ID,
		WorkspaceID: notice.WorkspaceID,
	})
}

func (d *Dispatcher) onLeaveDecision(data json.RawMessage, title string) {
	var decision struct {
		RequestID string `json:"requestId"`
		Reason    string `json:"reason"`
	}
	if err := json.Unmarshal(data, &decision); err != nil {
		log.Printf("notification: malformed leave event: %v", err)
		return
	}
	d.pool.Dispatch(Payload{
		Type:     TypeLeave,
		Title:    title,
		Body:     decision.Reason,
		EntityID: decision.RequestID,
	})
}

func (d *Dispatcher) onPresenceCheck(data json.RawMessage) {
	var check realtime.CheckEvent
	if err := json.Unmarshal(data, &check); err != nil {
		log.Printf("notification: malformed presence check event: %v", err)
		return
	}
	d.pool.Dispatch(Payload{
		Type:        TypePresenceCheck,
		Title:       "Presence check",
		Body:        "Confirm you are still working",
		WorkspaceID: check.WorkspaceID,
	})
}
