package handlers

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/docproc-backend/internal/apperr"
	"github.com/yungbote/docproc-backend/internal/services"
)

type ProcessingHandler struct {
	processing services.ProcessingService
}

func NewProcessingHandler(processing services.ProcessingService) *ProcessingHandler {
	return &ProcessingHandler{processing: processing}
}

// GET /api/next-document/:worker_id
func (h *ProcessingHandler) NextDocument(c *gin.Context) {
	workerID := c.Param("worker_id")

	outcome, err := h.processing.NextDocument(c.Request.Context(), workerID)
	if err != nil {
		RespondFailure(c, err)
		return
	}

	if !outcome.Active {
		RespondOK(c, gin.H{
			"status":       "Worker is not in active state",
			"worker_state": string(outcome.WorkerState),
		})
		return
	}
	if outcome.Document == nil {
		RespondOK(c, gin.H{"status": "No documents in queue"})
		return
	}
	RespondOK(c, gin.H{
		"status":   "Document assigned",
		"document": outcome.Document,
	})
}

type completeRequest struct {
	IsError    bool            `json:"is_error"`
	FilePath   string          `json:"file_path"`
	SchemaName string          `json:"schema_name"`
	Result     json.RawMessage `json:"result"`
}

// POST /api/document-processed?worker_id=...&document_id=...
func (h *ProcessingHandler) DocumentProcessed(c *gin.Context) {
	workerID := c.Query("worker_id")
	documentID := c.Query("document_id")

	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondFailure(c, apperr.Wrap(apperr.KindValidation, err))
		return
	}

	err := h.processing.Complete(c.Request.Context(), workerID, documentID, services.CompleteInput{
		IsError:    req.IsError,
		FilePath:   req.FilePath,
		SchemaName: req.SchemaName,
		Result:     req.Result,
	})
	if err != nil {
		RespondFailure(c, err)
		return
	}
	RespondOK(c, gin.H{"status": "Document processed and result saved"})
}
