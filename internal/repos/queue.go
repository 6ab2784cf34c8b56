package repos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/docproc-backend/internal/logger"
	"github.com/yungbote/docproc-backend/internal/types"
)

const (
	documentQueueKey  = "document_queue"
	processingListKey = "processing_documents"
)

// QueueRepo is the two-region durable queue: a FIFO pending list and the
// unordered processing list of claimed documents.
type QueueRepo interface {
	// Enqueue pushes the document onto the pending queue and returns the
	// pending length after the push.
	Enqueue(ctx context.Context, doc *types.Document) (int64, error)
	// Claim atomically moves the pending tail into processing, blocking up
	// to timeout. The wait is capped at one second, and a non-positive
	// timeout also waits one second. A nil document with nil error means
	// the queue stayed empty for the whole wait.
	Claim(ctx context.Context, timeout time.Duration) (*types.Document, error)
	// Complete removes the document from processing. Calling it again for
	// the same id is a no-op.
	Complete(ctx context.Context, documentID string) error
	PendingLen(ctx context.Context) (int64, error)
	ProcessingLen(ctx context.Context) (int64, error)
}

type queueRepo struct {
	rdb *goredis.Client
	log *logger.Logger
}

func NewQueueRepo(rdb *goredis.Client, baseLog *logger.Logger) QueueRepo {
	return &queueRepo{
		rdb: rdb,
		log: baseLog.With("repo", "QueueRepo"),
	}
}

func (r *queueRepo) Enqueue(ctx context.Context, doc *types.Document) (int64, error) {
	if doc == nil || doc.ID == "" {
		return 0, fmt.Errorf("document with id required")
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return 0, fmt.Errorf("marshal document: %w", err)
	}
	n, err := r.rdb.LPush(ctx, documentQueueKey, raw).Result()
	if err != nil {
		return 0, fmt.Errorf("push document: %w", err)
	}
	return n, nil
}

func (r *queueRepo) Claim(ctx context.Context, timeout time.Duration) (*types.Document, error) {
	if timeout <= 0 || timeout > time.Second {
		timeout = time.Second
	}
	// BRPOPLPUSH is the atomicity guarantee: the element lands in
	// processing in the same step that removes it from pending, so two
	// concurrent claims can never see the same document.
	raw, err := r.rdb.BRPopLPush(ctx, documentQueueKey, processingListKey, timeout).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim document: %w", err)
	}
	var doc types.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		// The entry already moved to processing; drop it rather than hand
		// out garbage.
		r.log.Error("Dropping undecodable queue entry", "raw_len", len(raw), "error", err)
		_ = r.rdb.LRem(ctx, processingListKey, 1, raw).Err()
		return nil, fmt.Errorf("decode claimed document: %w", err)
	}
	return &doc, nil
}

func (r *queueRepo) Complete(ctx context.Context, documentID string) error {
	if documentID == "" {
		return fmt.Errorf("document id required")
	}
	items, err := r.rdb.LRange(ctx, processingListKey, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("scan processing list: %w", err)
	}
	for _, item := range items {
		var doc types.Document
		if err := json.Unmarshal([]byte(item), &doc); err != nil {
			continue
		}
		if doc.ID == documentID {
			if err := r.rdb.LRem(ctx, processingListKey, 1, item).Err(); err != nil {
				return fmt.Errorf("remove from processing: %w", err)
			}
			return nil
		}
	}
	// Already removed by an earlier completion; retries are expected.
	return nil
}

func (r *queueRepo) PendingLen(ctx context.Context) (int64, error) {
	return r.rdb.LLen(ctx, documentQueueKey).Result()
}

func (r *queueRepo) ProcessingLen(ctx context.Context) (int64, error) {
	return r.rdb.LLen(ctx, processingListKey).Result()
}
