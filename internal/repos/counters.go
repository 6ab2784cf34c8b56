package repos

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/docproc-backend/internal/logger"
)

const (
	processedCounterKey = "processed_documents_count"
	errorCounterKey     = "error_documents_count"
)

// CounterRepo holds the system-wide monotonic counters. Increments happen
// once per accepted completion call, so retried completions double count;
// that is the at-least-once contract.
type CounterRepo interface {
	IncrProcessed(ctx context.Context) error
	IncrErrors(ctx context.Context) error
	Processed(ctx context.Context) (int64, error)
	Errors(ctx context.Context) (int64, error)
}

type counterRepo struct {
	rdb *goredis.Client
	log *logger.Logger
}

func NewCounterRepo(rdb *goredis.Client, baseLog *logger.Logger) CounterRepo {
	return &counterRepo{
		rdb: rdb,
		log: baseLog.With("repo", "CounterRepo"),
	}
}

func (r *counterRepo) IncrProcessed(ctx context.Context) error {
	return r.rdb.Incr(ctx, processedCounterKey).Err()
}

func (r *counterRepo) IncrErrors(ctx context.Context) error {
	return r.rdb.Incr(ctx, errorCounterKey).Err()
}

func (r *counterRepo) Processed(ctx context.Context) (int64, error) {
	return r.counter(ctx, processedCounterKey)
}

func (r *counterRepo) Errors(ctx context.Context) (int64, error) {
	return r.counter(ctx, errorCounterKey)
}

func (r *counterRepo) counter(ctx context.Context, key string) (int64, error) {
	raw, err := r.rdb.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read counter %s: %w", key, err)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse counter %s: %w", key, err)
	}
	return n, nil
}
