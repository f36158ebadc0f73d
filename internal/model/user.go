package model

// Role enumerates workspace membership roles.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleGuest  Role = "guest"
)

// User is the server-issued account object, received wholesale from the
// backend and never derived locally.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Role        Role   `json:"role"`
	PhotoURL    string `json:"photoURL,omitempty"`
	WorkspaceID string `json:"workspaceId,omitempty"`
	TeamID      string `json:"teamId,omitempty"`
	Department  string `json:"department,omitempty"`
}
