package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"workb-agent/internal/model"
)

// GetAttendance returns today's attendance snapshot with a fresh duration.
func (h *Handler) GetAttendance(c *gin.Context) {
	h.attendance.RecalculateDuration()
	c.JSON(http.StatusOK, h.attendance.Snapshot())
}

type checkInRequest struct {
	WorkLocation model.WorkLocation `json:"workLocation"`
}

// CheckIn starts the work day.
func (h *Handler) CheckIn(c *gin.Context) {
	var req checkInRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.attendance.CheckIn(c.Request.Context(), req.WorkLocation); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.attendance.Snapshot())
}

// CheckOut ends the work day.
func (h *Handler) CheckOut(c *gin.Context) {
	if err := h.attendance.CheckOut(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.attendance.Snapshot())
}
