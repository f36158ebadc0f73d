package model

import "time"

// Notice is a workspace announcement.
type Notice struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Author      string     `json:"author"`
	AuthorID    string     `json:"authorId"`
	IsPinned    bool       `json:"isPinned"`
	IsRead      bool       `json:"isRead"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
	WorkspaceID string     `json:"workspaceId"`
}
