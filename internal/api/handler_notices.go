package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetNotices returns the announcement list, fetching on first use.
func (h *Handler) GetNotices(c *gin.Context) {
	state := h.notices.Snapshot()
	if state.Notices == nil {
		if err := h.notices.FetchNotices(c.Request.Context()); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		state = h.notices.Snapshot()
	}
	c.JSON(http.StatusOK, state)
}

// MarkNoticeRead flags one notice as read.
func (h *Handler) MarkNoticeRead(c *gin.Context) {
	if err := h.notices.MarkAsRead(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.notices.Snapshot())
}

// MarkAllNoticesRead flags every notice as read.
func (h *Handler) MarkAllNoticesRead(c *gin.Context) {
	if err := h.notices.MarkAllAsRead(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.notices.Snapshot())
}
