package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetState returns one combined snapshot of everything the agent tracks.
func (h *Handler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"auth":       h.auth.Snapshot(),
		"attendance": h.attendance.Snapshot(),
		"location":   h.location.Snapshot(),
		"network":    h.network.Snapshot(),
	})
}

// GetLocation returns the current proximity classification.
func (h *Handler) GetLocation(c *gin.Context) {
	c.JSON(http.StatusOK, h.location.Snapshot())
}

// RefreshLocation forces an immediate location and wifi re-check.
func (h *Handler) RefreshLocation(c *gin.Context) {
	h.location.Refresh(c.Request.Context())
	c.JSON(http.StatusOK, h.location.Snapshot())
}

// GetNetwork returns the connectivity snapshot.
func (h *Handler) GetNetwork(c *gin.Context) {
	c.JSON(http.StatusOK, h.network.Snapshot())
}
