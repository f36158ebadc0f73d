package notification

// Payload is the push message contract shared with the notification server
// and the receiving clients. Type selects the handling path; Screen is only
// consulted for unrecognized types.
type Payload struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	Screen      string `json:"screen,omitempty"`
	EntityID    string `json:"entityId,omitempty"`
	WorkspaceID string `json:"workspaceId,omitempty"`
}

// Known payload types.
const (
	TypeAttendance    = "attendance"
	TypeLeave         = "leave"
	TypeNotice        = "notice"
	TypePresenceCheck = "presence_check"
	TypeGeneral       = "general"
)

// Target is the navigation destination a payload resolves to on a client.
type Target struct {
	Screen   string
	EntityID string
}

// Resolve maps a payload to its navigation target. Known types route to
// their fixed screens. An unknown type falls back to the explicit screen
// field; without one the payload resolves to nothing and is ignored.
func Resolve(p Payload) (Target, bool) {
	switch p.Type {
	case TypeAttendance:
		return Target{Screen: "attendance"}, true
	case TypeLeave:
		return Target{Screen: "leave", EntityID: p.EntityID}, true
	case TypeNotice:
		return Target{Screen: "notices", EntityID: p.EntityID}, true
	case TypePresenceCheck:
		return Target{Screen: "presence", EntityID: p.EntityID}, true
	case TypeGeneral:
		return Target{Screen: "home"}, true
	default:
		if p.Screen != "" {
			return Target{Screen: p.Screen, EntityID: p.EntityID}, true
		}
		return Target{}, false
	}
}
