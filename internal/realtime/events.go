package realtime

import (
	"encoding/json"
	"time"
)

// Server event names. The strings are a wire contract with the backend and
// must match exactly.
const (
	EventAttendanceCheckIn       = "attendance:checkin"
	EventAttendanceCheckOut      = "attendance:checkout"
	EventAttendanceStatusChanged = "attendance:status_changed"

	EventLeaveRequested = "leave:requested"
	EventLeaveApproved  = "leave:approved"
	EventLeaveRejected  = "leave:rejected"

	EventNoticeCreated = "notice:created"
	EventNoticeNew     = "notice:new"
	EventNoticeUpdated = "notice:updated"
	EventNoticeDeleted = "notice:deleted"

	EventPresenceCheckRequired = "presence:check_required"
	EventPresenceCheckResponse = "presence:check_response"
)

// Room control signals.
const (
	SignalJoinWorkspace  = "join-workspace"
	SignalLeaveWorkspace = "leave-workspace"
)

// Envelope is the JSON frame exchanged over the realtime transport.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// CheckEvent is the payload for attendance check-in/out emits.
type CheckEvent struct {
	UserID      string    `json:"userId"`
	WorkspaceID string    `json:"workspaceId"`
	Time        time.Time `json:"time"`
}

// PresenceResponse answers a presence check.
type PresenceResponse struct {
	CheckID   string `json:"checkId"`
	UserID    string `json:"userId"`
	Responded bool   `json:"responded"`
}
