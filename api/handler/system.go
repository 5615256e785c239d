package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type SystemHandler struct {
	hub *WSHub
}

func NewSystemHandler(hub *WSHub) *SystemHandler {
	return &SystemHandler{hub: hub}
}

// HealthLive handles GET /health and always returns 200.
// Used as a liveness probe by container orchestrators.
func (h *SystemHandler) HealthLive(c *gin.Context) {
	resp := gin.H{"status": "ok"}
	if h.hub != nil {
		resp["previews"] = h.hub.Len()
	}
	c.JSON(http.StatusOK, resp)
}
