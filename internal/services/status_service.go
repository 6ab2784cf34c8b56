package services

import (
	"context"
	"time"

	"github.com/yungbote/docproc-backend/internal/logger"
	"github.com/yungbote/docproc-backend/internal/repos"
)

// QueueStatus mirrors the queue counters at one instant. Each number is
// read atomically but the set is not a consistent snapshot.
type QueueStatus struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Processed  int64 `json:"processed"`
	Errors     int64 `json:"errors"`
}

// WorkerSummary is the operator-facing projection used by system status.
type WorkerSummary struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Status        string    `json:"status"`
	Model         string    `json:"model"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	Stale         bool      `json:"stale"`
}

type SystemStatus struct {
	QueueStatus QueueStatus     `json:"queue_status"`
	Workers     []WorkerSummary `json:"workers"`
}

type StatusService interface {
	SystemStatus(ctx context.Context) (*SystemStatus, error)
}

type statusService struct {
	log              *logger.Logger
	queue            repos.QueueRepo
	workers          repos.WorkerRepo
	counters         repos.CounterRepo
	heartbeatTimeout time.Duration
}

func NewStatusService(baseLog *logger.Logger, queue repos.QueueRepo, workers repos.WorkerRepo, counters repos.CounterRepo, heartbeatTimeout time.Duration) StatusService {
	if heartbeatTimeout <= 0 {
		heartbeatTimeout = 30 * time.Second
	}
	return &statusService{
		log:              baseLog.With("service", "StatusService"),
		queue:            queue,
		workers:          workers,
		counters:         counters,
		heartbeatTimeout: heartbeatTimeout,
	}
}

func (s *statusService) SystemStatus(ctx context.Context) (*SystemStatus, error) {
	pending, err := s.queue.PendingLen(ctx)
	if err != nil {
		return nil, err
	}
	processing, err := s.queue.ProcessingLen(ctx)
	if err != nil {
		return nil, err
	}
	processed, err := s.counters.Processed(ctx)
	if err != nil {
		return nil, err
	}
	errCount, err := s.counters.Errors(ctx)
	if err != nil {
		return nil, err
	}

	workers, err := s.workers.List(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	summaries := make([]WorkerSummary, 0, len(workers))
	for _, w := range workers {
		summaries = append(summaries, WorkerSummary{
			ID:            w.ID,
			Name:          w.Name,
			Status:        string(w.Status),
			Model:         w.Model,
			LastHeartbeat: w.LastHeartbeat,
			Stale:         w.Stale(now, s.heartbeatTimeout),
		})
	}

	return &SystemStatus{
		QueueStatus: QueueStatus{
			Pending:    pending,
			Processing: processing,
			Processed:  processed,
			Errors:     errCount,
		},
		Workers: summaries,
	}, nil
}
