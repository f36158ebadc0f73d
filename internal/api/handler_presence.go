package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"workb-agent/internal/realtime"
)

type presenceResponseRequest struct {
	CheckID   string `json:"checkId" binding:"required"`
	Responded bool   `json:"responded"`
}

// RespondPresence answers a server presence check on behalf of the logged-in
// user. The emit is fire-and-forget; offline it is dropped like any other.
func (h *Handler) RespondPresence(c *gin.Context) {
	var req presenceResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session := h.auth.Snapshot()
	if !session.IsAuthenticated {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
		return
	}

	h.realtime.EmitPresenceResponse(realtime.PresenceResponse{
		CheckID:   req.CheckID,
		UserID:    session.User.ID,
		Responded: req.Responded,
	})
	c.Status(http.StatusAccepted)
}
