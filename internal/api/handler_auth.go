package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"workb-agent/internal/apiclient"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates against the backend and establishes the session.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.auth.Login(c.Request.Context(), req.Email, req.Password); err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.auth.Snapshot())
}

// Logout tears down the session and clears persisted credentials.
func (h *Handler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// GetSession returns the current auth snapshot.
func (h *Handler) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.auth.Snapshot())
}
