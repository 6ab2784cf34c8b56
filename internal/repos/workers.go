package repos

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/docproc-backend/internal/apperr"
	"github.com/yungbote/docproc-backend/internal/logger"
	"github.com/yungbote/docproc-backend/internal/types"
)

const (
	workersSetKey   = "active_workers"
	workerKeyPrefix = "worker:"
)

// RegisterInput carries the worker-supplied registration fields.
type RegisterInput struct {
	Name      string
	APIURL    string
	Model     string
	APIKey    string
	ProcessID string
}

// WorkerRepo owns the worker hashes and the active set. All state
// transitions run through it; workers themselves never write here.
type WorkerRepo interface {
	Register(ctx context.Context, in RegisterInput) (*types.Worker, error)
	Get(ctx context.Context, workerID string) (*types.Worker, error)
	List(ctx context.Context) ([]*types.Worker, error)
	// Heartbeat applies the command rules against the pre-update state and
	// returns the command the worker must obey.
	Heartbeat(ctx context.Context, workerID string, reported types.WorkerState, documentID string) (types.WorkerCommand, error)
	Stop(ctx context.Context, workerID string) error
	Start(ctx context.Context, workerID string) error
	ForceRemove(ctx context.Context, workerID string) error
	// TouchHeartbeat refreshes last_heartbeat without touching status.
	TouchHeartbeat(ctx context.Context, workerID string) error
	MarkProcessing(ctx context.Context, workerID, documentID string) error
	MarkIdle(ctx context.Context, workerID string) error
	IncrProcessed(ctx context.Context, workerID string) error
	IncrErrors(ctx context.Context, workerID string) error
}

type workerRepo struct {
	rdb *goredis.Client
	log *logger.Logger
}

func NewWorkerRepo(rdb *goredis.Client, baseLog *logger.Logger) WorkerRepo {
	return &workerRepo{
		rdb: rdb,
		log: baseLog.With("repo", "WorkerRepo"),
	}
}

func workerKey(id string) string { return workerKeyPrefix + id }

func (r *workerRepo) Register(ctx context.Context, in RegisterInput) (*types.Worker, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperr.New(apperr.KindValidation, "worker name is required")
	}
	if strings.TrimSpace(in.APIURL) == "" {
		return nil, apperr.New(apperr.KindValidation, "api_url is required")
	}
	if strings.TrimSpace(in.Model) == "" {
		return nil, apperr.New(apperr.KindValidation, "model is required")
	}

	// Name uniqueness holds across the active set only; a force-removed
	// worker frees its name.
	existing, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, w := range existing {
		if w.Name == in.Name {
			return nil, apperr.New(apperr.KindConflict, "worker name %q is already in use", in.Name)
		}
	}

	now := time.Now()
	w := &types.Worker{
		ID:            uuid.NewString(),
		Name:          in.Name,
		APIURL:        in.APIURL,
		Model:         in.Model,
		APIKey:        in.APIKey,
		Status:        types.WorkerIdle,
		RegisteredAt:  now,
		LastHeartbeat: now,
		ProcessID:     in.ProcessID,
	}

	if err := r.rdb.HSet(ctx, workerKey(w.ID), workerToMap(w)).Err(); err != nil {
		return nil, fmt.Errorf("store worker: %w", err)
	}
	if err := r.rdb.SAdd(ctx, workersSetKey, w.ID).Err(); err != nil {
		return nil, fmt.Errorf("add worker to active set: %w", err)
	}
	return w, nil
}

func (r *workerRepo) Get(ctx context.Context, workerID string) (*types.Worker, error) {
	active, err := r.rdb.SIsMember(ctx, workersSetKey, workerID).Result()
	if err != nil {
		return nil, fmt.Errorf("check active set: %w", err)
	}
	if !active {
		return nil, apperr.New(apperr.KindNotFound, "worker not registered")
	}
	data, err := r.rdb.HGetAll(ctx, workerKey(workerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load worker: %w", err)
	}
	if len(data) == 0 {
		return nil, apperr.New(apperr.KindNotFound, "worker not registered")
	}
	return workerFromMap(data), nil
}

func (r *workerRepo) List(ctx context.Context) ([]*types.Worker, error) {
	ids, err := r.rdb.SMembers(ctx, workersSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list active workers: %w", err)
	}
	out := make([]*types.Worker, 0, len(ids))
	for _, id := range ids {
		data, err := r.rdb.HGetAll(ctx, workerKey(id)).Result()
		if err != nil && !errors.Is(err, goredis.Nil) {
			return nil, fmt.Errorf("load worker %s: %w", id, err)
		}
		if len(data) == 0 {
			continue
		}
		out = append(out, workerFromMap(data))
	}
	return out, nil
}

func (r *workerRepo) Heartbeat(ctx context.Context, workerID string, reported types.WorkerState, documentID string) (types.WorkerCommand, error) {
	w, err := r.Get(ctx, workerID)
	if err != nil {
		return types.CommandNone, err
	}

	now := timeField(time.Now())
	switch {
	case w.Status == types.WorkerRemoving:
		// Keep the record untouched so the shutdown is observable until
		// the worker is actually removed.
		return types.CommandShutdown, nil
	case w.Status == types.WorkerStopped && reported != types.WorkerError:
		if err := r.rdb.HSet(ctx, workerKey(workerID), "last_heartbeat", now).Err(); err != nil {
			return types.CommandNone, fmt.Errorf("update heartbeat: %w", err)
		}
		return types.CommandStop, nil
	default:
		if !reported.Valid() {
			return types.CommandNone, apperr.New(apperr.KindValidation, "unknown worker status %q", string(reported))
		}
		fields := map[string]interface{}{
			"last_heartbeat":   now,
			"status":           string(reported),
			"current_document": documentID,
		}
		if err := r.rdb.HSet(ctx, workerKey(workerID), fields).Err(); err != nil {
			return types.CommandNone, fmt.Errorf("update heartbeat: %w", err)
		}
		return types.CommandNone, nil
	}
}

func (r *workerRepo) Stop(ctx context.Context, workerID string) error {
	if _, err := r.Get(ctx, workerID); err != nil {
		return err
	}
	return r.rdb.HSet(ctx, workerKey(workerID), "status", string(types.WorkerStopped)).Err()
}

func (r *workerRepo) Start(ctx context.Context, workerID string) error {
	w, err := r.Get(ctx, workerID)
	if err != nil {
		return err
	}
	if w.Status != types.WorkerStopped && w.Status != types.WorkerError {
		return apperr.New(apperr.KindState, "worker cannot be started from %s state", string(w.Status))
	}
	return r.rdb.HSet(ctx, workerKey(workerID), "status", string(types.WorkerIdle)).Err()
}

func (r *workerRepo) ForceRemove(ctx context.Context, workerID string) error {
	removed, err := r.rdb.SRem(ctx, workersSetKey, workerID).Result()
	if err != nil {
		return fmt.Errorf("remove from active set: %w", err)
	}
	if removed == 0 {
		return apperr.New(apperr.KindNotFound, "worker not found")
	}
	if err := r.rdb.Del(ctx, workerKey(workerID)).Err(); err != nil {
		return fmt.Errorf("delete worker record: %w", err)
	}
	return nil
}

func (r *workerRepo) TouchHeartbeat(ctx context.Context, workerID string) error {
	return r.rdb.HSet(ctx, workerKey(workerID), "last_heartbeat", timeField(time.Now())).Err()
}

func (r *workerRepo) MarkProcessing(ctx context.Context, workerID, documentID string) error {
	fields := map[string]interface{}{
		"status":           string(types.WorkerProcessing),
		"current_document": documentID,
	}
	return r.rdb.HSet(ctx, workerKey(workerID), fields).Err()
}

func (r *workerRepo) MarkIdle(ctx context.Context, workerID string) error {
	fields := map[string]interface{}{
		"status":           string(types.WorkerIdle),
		"current_document": "",
	}
	return r.rdb.HSet(ctx, workerKey(workerID), fields).Err()
}

func (r *workerRepo) IncrProcessed(ctx context.Context, workerID string) error {
	return r.rdb.HIncrBy(ctx, workerKey(workerID), "processed_documents", 1).Err()
}

func (r *workerRepo) IncrErrors(ctx context.Context, workerID string) error {
	return r.rdb.HIncrBy(ctx, workerKey(workerID), "errors", 1).Err()
}

func timeField(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimeField(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func workerToMap(w *types.Worker) map[string]interface{} {
	return map[string]interface{}{
		"id":                  w.ID,
		"name":                w.Name,
		"api_url":             w.APIURL,
		"model":               w.Model,
		"api_key":             w.APIKey,
		"status":              string(w.Status),
		"registered_at":       timeField(w.RegisteredAt),
		"last_heartbeat":      timeField(w.LastHeartbeat),
		"current_document":    w.CurrentDocument,
		"processed_documents": w.ProcessedDocuments,
		"errors":              w.Errors,
		"process_id":          w.ProcessID,
	}
}

func workerFromMap(data map[string]string) *types.Worker {
	processed, _ := strconv.ParseInt(data["processed_documents"], 10, 64)
	errCount, _ := strconv.ParseInt(data["errors"], 10, 64)
	return &types.Worker{
		ID:                 data["id"],
		Name:               data["name"],
		APIURL:             data["api_url"],
		Model:              data["model"],
		APIKey:             data["api_key"],
		Status:             types.WorkerState(data["status"]),
		RegisteredAt:       parseTimeField(data["registered_at"]),
		LastHeartbeat:      parseTimeField(data["last_heartbeat"]),
		CurrentDocument:    data["current_document"],
		ProcessedDocuments: processed,
		Errors:             errCount,
		ProcessID:          data["process_id"],
	}
}
