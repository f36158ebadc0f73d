package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"workb-agent/internal/storage"
)

type pushSettingsRequest struct {
	Token   *string `json:"token"`
	Enabled *bool   `json:"enabled"`
}

// PutPushSettings persists the device push token and the enabled flag.
// Either field may be updated independently.
func (h *Handler) PutPushSettings(c *gin.Context) {
	var req pushSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Token == nil && req.Enabled == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	if req.Token != nil {
		if err := h.storage.Set(storage.KeyPushToken, *req.Token); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	if req.Enabled != nil {
		if err := h.storage.Set(storage.KeyPushEnabled, strconv.FormatBool(*req.Enabled)); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	h.GetPushSettings(c)
}

// GetPushSettings returns the persisted push preferences.
func (h *Handler) GetPushSettings(c *gin.Context) {
	token, err := h.storage.Get(storage.KeyPushToken)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	enabled := false
	if raw, err := h.storage.Get(storage.KeyPushEnabled); err == nil {
		enabled, _ = strconv.ParseBool(raw)
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "enabled": enabled})
}
