package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/docproc-backend/internal/apperr"
	"github.com/yungbote/docproc-backend/internal/repos"
	"github.com/yungbote/docproc-backend/internal/services"
	"github.com/yungbote/docproc-backend/internal/types"
)

type WorkerHandler struct {
	workers services.WorkerService
}

func NewWorkerHandler(workers services.WorkerService) *WorkerHandler {
	return &WorkerHandler{workers: workers}
}

type registerRequest struct {
	WorkerName string `json:"worker_name"`
	APIURL     string `json:"api_url"`
	Model      string `json:"model"`
	APIKey     string `json:"api_key"`
	ProcessID  string `json:"process_id"`
}

// POST /api/register-worker
func (h *WorkerHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondFailure(c, apperr.Wrap(apperr.KindValidation, err))
		return
	}

	reg, err := h.workers.Register(c.Request.Context(), repos.RegisterInput{
		Name:      req.WorkerName,
		APIURL:    req.APIURL,
		Model:     req.Model,
		APIKey:    req.APIKey,
		ProcessID: req.ProcessID,
	})
	if err != nil {
		RespondFailure(c, err)
		return
	}

	resp := gin.H{
		"status":    "Worker registered",
		"worker_id": reg.Worker.ID,
		"config": gin.H{
			"api_url": reg.Worker.APIURL,
			"model":   reg.Worker.Model,
		},
	}
	if reg.Warning != "" {
		resp["warning"] = reg.Warning
	}
	RespondOK(c, resp)
}

type heartbeatRequest struct {
	WorkerID   string `json:"worker_id"`
	Status     string `json:"status"`
	DocumentID string `json:"document_id"`
}

// POST /api/worker-heartbeat
func (h *WorkerHandler) Heartbeat(c *gin.Context) {
	var req heartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondFailure(c, apperr.Wrap(apperr.KindValidation, err))
		return
	}
	if req.WorkerID == "" {
		RespondFailure(c, apperr.New(apperr.KindValidation, "worker ID is required"))
		return
	}

	command, err := h.workers.Heartbeat(c.Request.Context(), req.WorkerID, types.WorkerState(req.Status), req.DocumentID)
	if err != nil {
		RespondFailure(c, err)
		return
	}

	if command != types.CommandNone {
		RespondOK(c, gin.H{"command": string(command)})
		return
	}
	RespondOK(c, gin.H{"status": "Heartbeat received"})
}

// POST /api/worker/stop/:worker_id
func (h *WorkerHandler) Stop(c *gin.Context) {
	workerID := c.Param("worker_id")
	if err := h.workers.Stop(c.Request.Context(), workerID); err != nil {
		RespondFailure(c, err)
		return
	}
	RespondOK(c, gin.H{"status": "Worker stopped", "worker_id": workerID})
}

// POST /api/worker/start/:worker_id
func (h *WorkerHandler) Start(c *gin.Context) {
	workerID := c.Param("worker_id")
	if err := h.workers.Start(c.Request.Context(), workerID); err != nil {
		RespondFailure(c, err)
		return
	}
	RespondOK(c, gin.H{"status": "Worker started", "worker_id": workerID})
}

// DELETE /api/force-remove-worker/:worker_id
func (h *WorkerHandler) ForceRemove(c *gin.Context) {
	workerID := c.Param("worker_id")
	if err := h.workers.ForceRemove(c.Request.Context(), workerID); err != nil {
		RespondFailure(c, err)
		return
	}
	RespondOK(c, gin.H{"status": "Worker forcefully removed", "worker_id": workerID})
}

// GET /api/worker/:worker_id
func (h *WorkerHandler) Get(c *gin.Context) {
	workerID := c.Param("worker_id")
	w, stats, err := h.workers.Get(c.Request.Context(), workerID)
	if err != nil {
		RespondFailure(c, err)
		return
	}
	RespondOK(c, gin.H{
		"worker": w,
		"stats":  stats,
	})
}
