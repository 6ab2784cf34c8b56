package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/docproc-backend/internal/handlers"
)

type RouterConfig struct {
	QueueHandler      *handlers.QueueHandler
	WorkerHandler     *handlers.WorkerHandler
	ProcessingHandler *handlers.ProcessingHandler
	SchemaHandler     *handlers.SchemaHandler
	StatusHandler     *handlers.StatusHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Requested-With"},
	}))

	router.GET("/", cfg.StatusHandler.Root)
	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/enqueue", cfg.QueueHandler.Enqueue)
		api.POST("/enqueue-folder", cfg.QueueHandler.EnqueueFolder)

		api.POST("/register-worker", cfg.WorkerHandler.Register)
		api.POST("/worker-heartbeat", cfg.WorkerHandler.Heartbeat)
		api.POST("/worker/stop/:worker_id", cfg.WorkerHandler.Stop)
		api.POST("/worker/start/:worker_id", cfg.WorkerHandler.Start)
		api.DELETE("/force-remove-worker/:worker_id", cfg.WorkerHandler.ForceRemove)
		api.GET("/worker/:worker_id", cfg.WorkerHandler.Get)

		api.GET("/next-document/:worker_id", cfg.ProcessingHandler.NextDocument)
		api.POST("/document-processed", cfg.ProcessingHandler.DocumentProcessed)

		api.GET("/system-status", cfg.StatusHandler.SystemStatus)

		api.POST("/schema", cfg.SchemaHandler.Put)
		api.GET("/schemas", cfg.SchemaHandler.List)
		api.GET("/schema/:schema_name", cfg.SchemaHandler.Get)
		api.DELETE("/schema/:schema_name", cfg.SchemaHandler.Delete)
	}

	return router
}
