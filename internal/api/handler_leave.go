package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"workb-agent/internal/model"
)

// GetLeave returns the leave requests and balance, fetching on first use.
func (h *Handler) GetLeave(c *gin.Context) {
	state := h.leave.Snapshot()
	if state.Requests == nil && state.Balance == nil {
		if err := h.leave.FetchLeaveData(c.Request.Context()); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		state = h.leave.Snapshot()
	}
	c.JSON(http.StatusOK, state)
}

type submitLeaveRequest struct {
	Type      model.LeaveType `json:"type" binding:"required"`
	StartDate time.Time       `json:"startDate" binding:"required"`
	EndDate   time.Time       `json:"endDate" binding:"required"`
	Reason    string          `json:"reason"`
}

// SubmitLeave files a new leave request.
func (h *Handler) SubmitLeave(c *gin.Context) {
	var req submitLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.EndDate.Before(req.StartDate) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endDate is before startDate"})
		return
	}

	err := h.leave.SubmitRequest(c.Request.Context(), req.Type, req.StartDate, req.EndDate, req.Reason)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, h.leave.Snapshot())
}

// CancelLeave withdraws a request.
func (h *Handler) CancelLeave(c *gin.Context) {
	if err := h.leave.CancelRequest(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
