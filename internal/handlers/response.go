package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/docproc-backend/internal/apperr"
)

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondFailure maps an error to the legacy wire convention preserved for
// client compatibility: business rejections come back as 200 with an
// `error` field, and only unclassified failures surface as 5xx.
func RespondFailure(c *gin.Context, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindNotFound, apperr.KindConflict, apperr.KindState:
		c.JSON(http.StatusOK, gin.H{"error": msg})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

// RespondSchemaFailure is the one place where missing resources surface as
// a real 404.
func RespondSchemaFailure(c *gin.Context, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": msg})
	case apperr.KindValidation, apperr.KindConflict:
		c.JSON(http.StatusOK, gin.H{"error": msg})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}
