package services

import (
	"context"
	"strings"
	"time"

	"github.com/yungbote/docproc-backend/internal/logger"
	"github.com/yungbote/docproc-backend/internal/repos"
	"github.com/yungbote/docproc-backend/internal/types"
)

const openAIKeyWarning = "WARNING: OpenAI API endpoint specified without API key"

// Registration is the outcome of a successful register call; Warning is
// non-empty when the configuration looks risky but was accepted anyway.
type Registration struct {
	Worker  *types.Worker
	Warning string
}

// WorkerStats is the derived block attached to worker detail reads.
type WorkerStats struct {
	ProcessedDocuments int64   `json:"processed_documents"`
	Errors             int64   `json:"errors"`
	UptimeSeconds      float64 `json:"uptime"`
	Stale              bool    `json:"stale"`
}

type WorkerService interface {
	Register(ctx context.Context, in repos.RegisterInput) (*Registration, error)
	Heartbeat(ctx context.Context, workerID string, status types.WorkerState, documentID string) (types.WorkerCommand, error)
	Stop(ctx context.Context, workerID string) error
	Start(ctx context.Context, workerID string) error
	ForceRemove(ctx context.Context, workerID string) error
	Get(ctx context.Context, workerID string) (*types.Worker, *WorkerStats, error)
	List(ctx context.Context) ([]*types.Worker, error)
}

type workerService struct {
	log              *logger.Logger
	workers          repos.WorkerRepo
	heartbeatTimeout time.Duration
}

func NewWorkerService(baseLog *logger.Logger, workers repos.WorkerRepo, heartbeatTimeout time.Duration) WorkerService {
	if heartbeatTimeout <= 0 {
		heartbeatTimeout = 30 * time.Second
	}
	return &workerService{
		log:              baseLog.With("service", "WorkerService"),
		workers:          workers,
		heartbeatTimeout: heartbeatTimeout,
	}
}

func (s *workerService) Register(ctx context.Context, in repos.RegisterInput) (*Registration, error) {
	w, err := s.workers.Register(ctx, in)
	if err != nil {
		return nil, err
	}

	var warning string
	if strings.Contains(in.APIURL, "openai.com") && in.APIKey == "" {
		warning = openAIKeyWarning
	}

	s.log.Info("Worker registered", "worker_id", w.ID, "name", w.Name, "model", w.Model)
	return &Registration{Worker: w, Warning: warning}, nil
}

func (s *workerService) Heartbeat(ctx context.Context, workerID string, status types.WorkerState, documentID string) (types.WorkerCommand, error) {
	return s.workers.Heartbeat(ctx, workerID, status, documentID)
}

func (s *workerService) Stop(ctx context.Context, workerID string) error {
	if err := s.workers.Stop(ctx, workerID); err != nil {
		return err
	}
	s.log.Info("Worker stopped", "worker_id", workerID)
	return nil
}

func (s *workerService) Start(ctx context.Context, workerID string) error {
	if err := s.workers.Start(ctx, workerID); err != nil {
		return err
	}
	s.log.Info("Worker started", "worker_id", workerID)
	return nil
}

func (s *workerService) ForceRemove(ctx context.Context, workerID string) error {
	if err := s.workers.ForceRemove(ctx, workerID); err != nil {
		return err
	}
	s.log.Info("Worker forcefully removed", "worker_id", workerID)
	return nil
}

func (s *workerService) Get(ctx context.Context, workerID string) (*types.Worker, *WorkerStats, error) {
	w, err := s.workers.Get(ctx, workerID)
	if err != nil {
		return nil, nil, err
	}
	now := time.Now()
	stats := &WorkerStats{
		ProcessedDocuments: w.ProcessedDocuments,
		Errors:             w.Errors,
		UptimeSeconds:      now.Sub(w.RegisteredAt).Seconds(),
		Stale:              w.Stale(now, s.heartbeatTimeout),
	}
	return w, stats, nil
}

func (s *workerService) List(ctx context.Context) ([]*types.Worker, error) {
	return s.workers.List(ctx)
}
