package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/docproc-backend/internal/server"
)

func wireRouter(handlerset Handlers) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		QueueHandler:      handlerset.Queue,
		WorkerHandler:     handlerset.Workers,
		ProcessingHandler: handlerset.Processing,
		SchemaHandler:     handlerset.Schemas,
		StatusHandler:     handlerset.Status,
	})
}
