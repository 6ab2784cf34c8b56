package handlers

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/docproc-backend/internal/apperr"
	"github.com/yungbote/docproc-backend/internal/services"
)

type SchemaHandler struct {
	schemas services.SchemaService
}

func NewSchemaHandler(schemas services.SchemaService) *SchemaHandler {
	return &SchemaHandler{schemas: schemas}
}

type putSchemaRequest struct {
	Name    string          `json:"name"`
	Content json.RawMessage `json:"content"`
}

// POST /api/schema
func (h *SchemaHandler) Put(c *gin.Context) {
	var req putSchemaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondSchemaFailure(c, apperr.Wrap(apperr.KindValidation, err))
		return
	}
	if req.Name == "" {
		RespondSchemaFailure(c, apperr.New(apperr.KindValidation, "schema name is required"))
		return
	}

	schema, err := h.schemas.Put(c.Request.Context(), req.Name, req.Content)
	if err != nil {
		RespondSchemaFailure(c, err)
		return
	}
	RespondOK(c, gin.H{
		"status": "Schema added successfully",
		"name":   schema.Name,
	})
}

// GET /api/schema/:schema_name
func (h *SchemaHandler) Get(c *gin.Context) {
	name := c.Param("schema_name")
	schema, err := h.schemas.Get(c.Request.Context(), name)
	if err != nil {
		RespondSchemaFailure(c, err)
		return
	}
	RespondOK(c, gin.H{
		"name":       schema.Name,
		"content":    schema.Content,
		"created_at": schema.CreatedAt,
	})
}

// DELETE /api/schema/:schema_name
func (h *SchemaHandler) Delete(c *gin.Context) {
	name := c.Param("schema_name")
	if err := h.schemas.Delete(c.Request.Context(), name); err != nil {
		RespondSchemaFailure(c, err)
		return
	}
	RespondOK(c, gin.H{
		"status": "Schema deleted successfully",
		"name":   name,
	})
}

// GET /api/schemas
func (h *SchemaHandler) List(c *gin.Context) {
	schemas, err := h.schemas.List(c.Request.Context())
	if err != nil {
		RespondSchemaFailure(c, err)
		return
	}
	RespondOK(c, gin.H{"schemas": schemas})
}
