package repos

import (
	"context"
	"testing"

	"github.com/yungbote/docproc-backend/internal/apperr"
	"github.com/yungbote/docproc-backend/internal/types"
)

func registerTestWorker(t *testing.T, repo WorkerRepo, name string) *types.Worker {
	t.Helper()
	w, err := repo.Register(context.Background(), RegisterInput{
		Name:   name,
		APIURL: "http://localhost:5000/api/vision",
		Model:  "gpt-4o-mini",
	})
	if err != nil {
		t.Fatalf("Register %s: %v", name, err)
	}
	return w
}

func TestWorkerRegisterAssignsIdleState(t *testing.T) {
	repo := NewWorkerRepo(newTestRedis(t), newTestLogger(t))
	w := registerTestWorker(t, repo, "alpha")

	if w.ID == "" {
		t.Fatalf("worker id: want non-empty")
	}
	if w.Status != types.WorkerIdle {
		t.Fatalf("status: want=%s got=%s", types.WorkerIdle, w.Status)
	}
	if w.RegisteredAt.IsZero() || w.LastHeartbeat.IsZero() {
		t.Fatalf("timestamps not stamped: registered_at=%v last_heartbeat=%v", w.RegisteredAt, w.LastHeartbeat)
	}

	got, err := repo.Get(context.Background(), w.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "alpha" {
		t.Fatalf("name: want=alpha got=%s", got.Name)
	}
}

func TestWorkerRegisterDuplicateNameConflicts(t *testing.T) {
	repo := NewWorkerRepo(newTestRedis(t), newTestLogger(t))
	first := registerTestWorker(t, repo, "dup")

	_, err := repo.Register(context.Background(), RegisterInput{
		Name:   "dup",
		APIURL: "http://localhost:5000",
		Model:  "gpt-4o-mini",
	})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("duplicate register: want conflict got %v", err)
	}

	// First record untouched.
	got, err := repo.Get(context.Background(), first.ID)
	if err != nil {
		t.Fatalf("Get first: %v", err)
	}
	if got.Status != types.WorkerIdle {
		t.Fatalf("first worker status: want=%s got=%s", types.WorkerIdle, got.Status)
	}
}

func TestWorkerRegisterValidatesRequiredFields(t *testing.T) {
	repo := NewWorkerRepo(newTestRedis(t), newTestLogger(t))
	cases := []RegisterInput{
		{APIURL: "http://x", Model: "m"},
		{Name: "n", Model: "m"},
		{Name: "n", APIURL: "http://x"},
	}
	for i, in := range cases {
		if _, err := repo.Register(context.Background(), in); !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("case %d: want validation error got %v", i, err)
		}
	}
}

func TestWorkerHeartbeatAcceptsReportedState(t *testing.T) {
	repo := NewWorkerRepo(newTestRedis(t), newTestLogger(t))
	w := registerTestWorker(t, repo, "hb")
	ctx := context.Background()

	cmd, err := repo.Heartbeat(ctx, w.ID, types.WorkerProcessing, "doc-1")
	if err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	if cmd != types.CommandNone {
		t.Fatalf("command: want none got %q", cmd)
	}

	got, err := repo.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != types.WorkerProcessing {
		t.Fatalf("status: want=%s got=%s", types.WorkerProcessing, got.Status)
	}
	if got.CurrentDocument != "doc-1" {
		t.Fatalf("current_document: want=doc-1 got=%s", got.CurrentDocument)
	}
}

func TestWorkerHeartbeatStoppedReturnsStopCommand(t *testing.T) {
	repo := NewWorkerRepo(newTestRedis(t), newTestLogger(t))
	w := registerTestWorker(t, repo, "stopped-hb")
	ctx := context.Background()

	if err := repo.Stop(ctx, w.ID); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	cmd, err := repo.Heartbeat(ctx, w.ID, types.WorkerIdle, "")
	if err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	if cmd != types.CommandStop {
		t.Fatalf("command: want=stop got=%q", cmd)
	}

	// Reported status must not overwrite the stop.
	got, err := repo.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != types.WorkerStopped {
		t.Fatalf("status: want=%s got=%s", types.WorkerStopped, got.Status)
	}
}

func TestWorkerHeartbeatStoppedAcceptsErrorReport(t *testing.T) {
	repo := NewWorkerRepo(newTestRedis(t), newTestLogger(t))
	w := registerTestWorker(t, repo, "stopped-err")
	ctx := context.Background()

	if err := repo.Stop(ctx, w.ID); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	cmd, err := repo.Heartbeat(ctx, w.ID, types.WorkerError, "")
	if err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	if cmd != types.CommandNone {
		t.Fatalf("command: want none got %q", cmd)
	}
	got, err := repo.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != types.WorkerError {
		t.Fatalf("status: want=%s got=%s", types.WorkerError, got.Status)
	}
}

func TestWorkerHeartbeatRemovingReturnsShutdown(t *testing.T) {
	rdb := newTestRedis(t)
	repo := NewWorkerRepo(rdb, newTestLogger(t))
	w := registerTestWorker(t, repo, "removing")
	ctx := context.Background()

	if err := rdb.HSet(ctx, workerKey(w.ID), "status", string(types.WorkerRemoving)).Err(); err != nil {
		t.Fatalf("mark removing: %v", err)
	}

	cmd, err := repo.Heartbeat(ctx, w.ID, types.WorkerIdle, "")
	if err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	if cmd != types.CommandShutdown {
		t.Fatalf("command: want=shutdown got=%q", cmd)
	}
	got, err := repo.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != types.WorkerRemoving {
		t.Fatalf("status must stay removing, got %s", got.Status)
	}
}

func TestWorkerStartOnlyFromStoppedOrError(t *testing.T) {
	repo := NewWorkerRepo(newTestRedis(t), newTestLogger(t))
	w := registerTestWorker(t, repo, "startable")
	ctx := context.Background()

	if err := repo.Start(ctx, w.ID); !apperr.Is(err, apperr.KindState) {
		t.Fatalf("Start from idle: want state error got %v", err)
	}

	if err := repo.Stop(ctx, w.ID); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := repo.Start(ctx, w.ID); err != nil {
		t.Fatalf("Start from stopped: %v", err)
	}
	got, err := repo.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != types.WorkerIdle {
		t.Fatalf("status after start: want=%s got=%s", types.WorkerIdle, got.Status)
	}
}

func TestWorkerForceRemoveRejectsLaterHeartbeats(t *testing.T) {
	repo := NewWorkerRepo(newTestRedis(t), newTestLogger(t))
	w := registerTestWorker(t, repo, "doomed")
	ctx := context.Background()

	if err := repo.ForceRemove(ctx, w.ID); err != nil {
		t.Fatalf("ForceRemove: %v", err)
	}

	if _, err := repo.Heartbeat(ctx, w.ID, types.WorkerIdle, ""); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("heartbeat after remove: want not_found got %v", err)
	}
	if err := repo.ForceRemove(ctx, w.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("second remove: want not_found got %v", err)
	}

	// Name is free again.
	if _, err := repo.Register(ctx, RegisterInput{Name: "doomed", APIURL: "http://x", Model: "m"}); err != nil {
		t.Fatalf("re-register freed name: %v", err)
	}
}

func TestWorkerCountersIncrement(t *testing.T) {
	repo := NewWorkerRepo(newTestRedis(t), newTestLogger(t))
	w := registerTestWorker(t, repo, "counting")
	ctx := context.Background()

	if err := repo.IncrProcessed(ctx, w.ID); err != nil {
		t.Fatalf("IncrProcessed: %v", err)
	}
	if err := repo.IncrProcessed(ctx, w.ID); err != nil {
		t.Fatalf("IncrProcessed: %v", err)
	}
	if err := repo.IncrErrors(ctx, w.ID); err != nil {
		t.Fatalf("IncrErrors: %v", err)
	}

	got, err := repo.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ProcessedDocuments != 2 {
		t.Fatalf("processed_documents: want=2 got=%d", got.ProcessedDocuments)
	}
	if got.Errors != 1 {
		t.Fatalf("errors: want=1 got=%d", got.Errors)
	}
}

func TestWorkerMarkProcessingAndIdle(t *testing.T) {
	repo := NewWorkerRepo(newTestRedis(t), newTestLogger(t))
	w := registerTestWorker(t, repo, "marker")
	ctx := context.Background()

	if err := repo.MarkProcessing(ctx, w.ID, "doc-9"); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	got, err := repo.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != types.WorkerProcessing || got.CurrentDocument != "doc-9" {
		t.Fatalf("after MarkProcessing: status=%s current=%s", got.Status, got.CurrentDocument)
	}

	if err := repo.MarkIdle(ctx, w.ID); err != nil {
		t.Fatalf("MarkIdle: %v", err)
	}
	got, err = repo.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != types.WorkerIdle || got.CurrentDocument != "" {
		t.Fatalf("after MarkIdle: status=%s current=%q", got.Status, got.CurrentDocument)
	}
}
