package app

import (
	"github.com/yungbote/docproc-backend/internal/logger"
	"github.com/yungbote/docproc-backend/internal/services"
)

type Services struct {
	Queue      services.QueueService
	Processing services.ProcessingService
	Workers    services.WorkerService
	Schemas    services.SchemaService
	Status     services.StatusService
}

func wireServices(log *logger.Logger, cfg Config, reposet Repos) Services {
	return Services{
		Queue:      services.NewQueueService(log, reposet.Queue),
		Processing: services.NewProcessingService(log, reposet.Queue, reposet.Workers, reposet.Results, reposet.Counters),
		Workers:    services.NewWorkerService(log, reposet.Workers, cfg.HeartbeatTimeout),
		Schemas:    services.NewSchemaService(log, reposet.Schemas),
		Status:     services.NewStatusService(log, reposet.Queue, reposet.Workers, reposet.Counters, cfg.HeartbeatTimeout),
	}
}
