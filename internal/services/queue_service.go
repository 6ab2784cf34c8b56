package services

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/docproc-backend/internal/apperr"
	"github.com/yungbote/docproc-backend/internal/logger"
	"github.com/yungbote/docproc-backend/internal/repos"
	"github.com/yungbote/docproc-backend/internal/types"
)

// EnqueueReceipt reports where a document landed after enqueue.
type EnqueueReceipt struct {
	Document      *types.Document
	QueuePosition int64
}

type QueueService interface {
	EnqueueFile(ctx context.Context, filePath, schemaName string) (*EnqueueReceipt, error)
	// EnqueueFolder recursively enqueues every regular file under
	// folderPath. The walk happens before the first push so a bad folder
	// enqueues nothing.
	EnqueueFolder(ctx context.Context, folderPath, schemaName string) (int, error)
}

type queueService struct {
	log   *logger.Logger
	queue repos.QueueRepo
}

func NewQueueService(baseLog *logger.Logger, queue repos.QueueRepo) QueueService {
	return &queueService{
		log:   baseLog.With("service", "QueueService"),
		queue: queue,
	}
}

func (s *queueService) EnqueueFile(ctx context.Context, filePath, schemaName string) (*EnqueueReceipt, error) {
	if filePath == "" {
		return nil, apperr.New(apperr.KindValidation, "file_path is required")
	}
	doc := &types.Document{
		ID:         uuid.NewString(),
		Path:       filePath,
		SchemaName: schemaName,
		EnqueuedAt: time.Now(),
	}
	pos, err := s.queue.Enqueue(ctx, doc)
	if err != nil {
		return nil, err
	}
	s.log.Info("Document enqueued", "document_id", doc.ID, "path", filePath, "schema", schemaName)
	return &EnqueueReceipt{Document: doc, QueuePosition: pos}, nil
}

func (s *queueService) EnqueueFolder(ctx context.Context, folderPath, schemaName string) (int, error) {
	if folderPath == "" {
		return 0, apperr.New(apperr.KindValidation, "folder_path is required")
	}
	info, err := os.Stat(folderPath)
	if err != nil || !info.IsDir() {
		return 0, apperr.New(apperr.KindNotFound, "folder not found or not a directory: %s", folderPath)
	}

	var files []string
	err = filepath.WalkDir(folderPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return 0, apperr.New(apperr.KindNotFound, "failed to read folder: %s", folderPath)
	}

	for _, path := range files {
		doc := &types.Document{
			ID:         uuid.NewString(),
			Path:       path,
			SchemaName: schemaName,
			EnqueuedAt: time.Now(),
		}
		if _, err := s.queue.Enqueue(ctx, doc); err != nil {
			return 0, err
		}
	}
	s.log.Info("Folder documents enqueued", "folder", folderPath, "count", len(files), "schema", schemaName)
	return len(files), nil
}
