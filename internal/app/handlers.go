package app

import (
	"github.com/yungbote/docproc-backend/internal/handlers"
)

type Handlers struct {
	Queue      *handlers.QueueHandler
	Workers    *handlers.WorkerHandler
	Processing *handlers.ProcessingHandler
	Schemas    *handlers.SchemaHandler
	Status     *handlers.StatusHandler
}

func wireHandlers(serviceset Services) Handlers {
	return Handlers{
		Queue:      handlers.NewQueueHandler(serviceset.Queue),
		Workers:    handlers.NewWorkerHandler(serviceset.Workers),
		Processing: handlers.NewProcessingHandler(serviceset.Processing),
		Schemas:    handlers.NewSchemaHandler(serviceset.Schemas),
		Status:     handlers.NewStatusHandler(serviceset.Status),
	}
}
