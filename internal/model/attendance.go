package model

import "time"

// AttendanceStatus tracks whether the user is currently on the clock.
type AttendanceStatus string

const (
	AttendanceWorking      AttendanceStatus = "working"
	AttendanceOut          AttendanceStatus = "out"
	AttendanceNotCheckedIn AttendanceStatus = "not_checked_in"
	AttendanceLoading      AttendanceStatus = "loading"
)

// WorkLocation is where a check-in was performed from.
type WorkLocation string

const (
	LocationOffice WorkLocation = "office"
	LocationRemote WorkLocation = "remote"
	LocationField  WorkLocation = "field"
)

// RecordStatus is the server-computed evaluation of a day's attendance. The
// agent trusts it and never recomputes it.
type RecordStatus string

const (
	RecordNormal     RecordStatus = "normal"
	RecordLate       RecordStatus = "late"
	RecordEarlyLeave RecordStatus = "early_leave"
	RecordShortWork  RecordStatus = "short_work"
	RecordAbsent     RecordStatus = "absent"
)

// AttendanceRecord is one day's server-confirmed attendance entry.
type AttendanceRecord struct {
	ID           string       `json:"id"`
	UserID       string       `json:"userId"`
	Date         string       `json:"date"`
	CheckInTime  *time.Time   `json:"checkInTime,omitempty"`
	CheckOutTime *time.Time   `json:"checkOutTime,omitempty"`
	WorkMinutes  int          `json:"workMinutes,omitempty"`
	WorkLocation WorkLocation `json:"workLocation"`
	Status       RecordStatus `json:"status"`
}
