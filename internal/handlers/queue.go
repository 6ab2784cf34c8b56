package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/docproc-backend/internal/services"
)

type QueueHandler struct {
	queue services.QueueService
}

func NewQueueHandler(queue services.QueueService) *QueueHandler {
	return &QueueHandler{queue: queue}
}

// POST /api/enqueue?file_path=...&schema_name=...
func (h *QueueHandler) Enqueue(c *gin.Context) {
	filePath := c.Query("file_path")
	schemaName := c.Query("schema_name")

	receipt, err := h.queue.EnqueueFile(c.Request.Context(), filePath, schemaName)
	if err != nil {
		RespondFailure(c, err)
		return
	}

	RespondOK(c, gin.H{
		"status":         "Document enqueued",
		"document_id":    receipt.Document.ID,
		"queue_position": receipt.QueuePosition,
		"schema":         schemaOrDefault(schemaName),
	})
}

// POST /api/enqueue-folder?folder_path=...&schema_name=...
func (h *QueueHandler) EnqueueFolder(c *gin.Context) {
	folderPath := c.Query("folder_path")
	schemaName := c.Query("schema_name")

	count, err := h.queue.EnqueueFolder(c.Request.Context(), folderPath, schemaName)
	if err != nil {
		RespondFailure(c, err)
		return
	}

	RespondOK(c, gin.H{
		"status": "Folder documents enqueued",
		"count":  count,
		"folder": folderPath,
		"schema": schemaOrDefault(schemaName),
	})
}

func schemaOrDefault(name string) string {
	if name == "" {
		return "default"
	}
	return name
}
