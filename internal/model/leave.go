package model

import "time"

// LeaveType enumerates the request categories the backend accepts.
type LeaveType string

const (
	LeaveAnnual   LeaveType = "annual"
	LeaveSick     LeaveType = "sick"
	LeaveHalfAM   LeaveType = "half_am"
	LeaveHalfPM   LeaveType = "half_pm"
	LeavePersonal LeaveType = "personal"
)

// LeaveStatus is the approval state of a request.
type LeaveStatus string

const (
	LeavePending  LeaveStatus = "pending"
	LeaveApproved LeaveStatus = "approved"
	LeaveRejected LeaveStatus = "rejected"
)

// LeaveRequest is a server-confirmed leave request. Day arithmetic is the
// server's; the agent only computes the requested day count on submission.
type LeaveRequest struct {
	ID        string      `json:"id"`
	UserID    string      `json:"userId"`
	Type      LeaveType   `json:"type"`
	StartDate time.Time   `json:"startDate"`
	EndDate   time.Time   `json:"endDate"`
	Days      float64     `json:"days"`
	Reason    string      `json:"reason,omitempty"`
	Status    LeaveStatus `json:"status"`
	// RejectReason is set by the approver when Status is rejected.
	RejectReason string    `json:"rejectReason,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// LeaveBalanceEntry is one category's quota breakdown.
type LeaveBalanceEntry struct {
	Total     float64 `json:"total"`
	Used      float64 `json:"used"`
	Remaining float64 `json:"remaining"`
}

// LeaveBalance mirrors the backend's per-category quota summary.
type LeaveBalance struct {
	Annual LeaveBalanceEntry `json:"annual"`
	Sick   LeaveBalanceEntry `json:"sick"`
}
