package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/docproc-backend/internal/services"
)

type StatusHandler struct {
	status services.StatusService
}

func NewStatusHandler(status services.StatusService) *StatusHandler {
	return &StatusHandler{status: status}
}

// GET /
func (h *StatusHandler) Root(c *gin.Context) {
	RespondOK(c, gin.H{"status": "Document Processing System Online"})
}

func HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// GET /api/system-status
func (h *StatusHandler) SystemStatus(c *gin.Context) {
	status, err := h.status.SystemStatus(c.Request.Context())
	if err != nil {
		RespondFailure(c, err)
		return
	}
	RespondOK(c, status)
}
