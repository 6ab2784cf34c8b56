package services

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/docproc-backend/internal/apperr"
	"github.com/yungbote/docproc-backend/internal/logger"
	"github.com/yungbote/docproc-backend/internal/repos"
	"github.com/yungbote/docproc-backend/internal/types"
)

// ClaimOutcome is the dispatch decision for one next-document call.
// Active=false means the worker may not claim in its current state;
// Document=nil with Active=true means the queue stayed empty.
type ClaimOutcome struct {
	Document    *types.Document
	WorkerState types.WorkerState
	Active      bool
}

// CompleteInput is the outcome body posted by a worker.
type CompleteInput struct {
	IsError    bool
	FilePath   string
	SchemaName string
	Result     json.RawMessage
}

type ProcessingService interface {
	NextDocument(ctx context.Context, workerID string) (*ClaimOutcome, error)
	// Complete persists the outcome and settles queue, counters and worker
	// state. Safe to retry for the same document id: removal from
	// processing and the worker reset are idempotent, while each retry
	// appends another outcome record and moves the counters again.
	Complete(ctx context.Context, workerID, documentID string, in CompleteInput) error
}

type processingService struct {
	log          *logger.Logger
	queue        repos.QueueRepo
	workers      repos.WorkerRepo
	results      repos.ResultRepo
	counters     repos.CounterRepo
	claimTimeout time.Duration
}

func NewProcessingService(baseLog *logger.Logger, queue repos.QueueRepo, workers repos.WorkerRepo, results repos.ResultRepo, counters repos.CounterRepo) ProcessingService {
	return &processingService{
		log:          baseLog.With("service", "ProcessingService"),
		queue:        queue,
		workers:      workers,
		results:      results,
		counters:     counters,
		claimTimeout: time.Second,
	}
}

func (s *processingService) NextDocument(ctx context.Context, workerID string) (*ClaimOutcome, error) {
	w, err := s.workers.Get(ctx, workerID)
	if err != nil {
		return nil, err
	}

	// Polling for work counts as liveness even when nothing is assigned.
	if err := s.workers.TouchHeartbeat(ctx, workerID); err != nil {
		return nil, err
	}

	if !w.Status.Active() {
		return &ClaimOutcome{WorkerState: w.Status, Active: false}, nil
	}

	doc, err := s.queue.Claim(ctx, s.claimTimeout)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return &ClaimOutcome{WorkerState: w.Status, Active: true}, nil
	}

	if err := s.workers.MarkProcessing(ctx, workerID, doc.ID); err != nil {
		return nil, err
	}
	s.log.Info("Document assigned", "document_id", doc.ID, "worker_id", workerID)
	return &ClaimOutcome{Document: doc, WorkerState: types.WorkerProcessing, Active: true}, nil
}

func (s *processingService) Complete(ctx context.Context, workerID, documentID string, in CompleteInput) error {
	if workerID == "" || documentID == "" {
		return apperr.New(apperr.KindValidation, "missing required parameters: worker_id and document_id")
	}
	if _, err := s.workers.Get(ctx, workerID); err != nil {
		return err
	}

	payload := in.Result
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	rec := repos.ResultRecord{
		WorkerID:   workerID,
		DocumentID: documentID,
		FilePath:   in.FilePath,
		SchemaName: in.SchemaName,
		Result:     datatypes.JSON(payload),
	}

	// The result write and the queue/counter updates are individually
	// atomic but not jointly; a failed record write must not strand the
	// document in processing, so it is logged and the settlement goes on.
	if in.IsError {
		if _, err := s.results.AppendError(ctx, nil, rec); err != nil {
			s.log.Error("Failed to persist error record", "document_id", documentID, "error", err)
		}
		if err := s.workers.IncrErrors(ctx, workerID); err != nil {
			s.log.Error("Failed to bump worker error counter", "worker_id", workerID, "error", err)
		}
		if err := s.counters.IncrErrors(ctx); err != nil {
			s.log.Error("Failed to bump error counter", "error", err)
		}
	} else {
		if _, err := s.results.AppendResult(ctx, nil, rec); err != nil {
			s.log.Error("Failed to persist result record", "document_id", documentID, "error", err)
		}
	}

	if err := s.queue.Complete(ctx, documentID); err != nil {
		return err
	}
	if err := s.workers.MarkIdle(ctx, workerID); err != nil {
		return err
	}
	if err := s.counters.IncrProcessed(ctx); err != nil {
		return err
	}
	if err := s.workers.IncrProcessed(ctx, workerID); err != nil {
		return err
	}

	s.log.Info("Document processed", "document_id", documentID, "worker_id", workerID, "is_error", in.IsError)
	return nil
}
